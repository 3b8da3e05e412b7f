package engine

import (
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/mapping"
)

// EndStateConfig configures an end state.
type EndStateConfig struct {
	ID           string
	EntryActions []Action

	// FinalResponse renders the last response of a root flow, e.g. a RenderViewAction.
	FinalResponse Action

	// OutputMapper builds the session output from the request environment.
	OutputMapper *mapping.Mapper

	ExceptionHandlers []ExceptionHandler
	Attributes        domain.Attributes
}

// EndState terminates its flow session. Its id becomes the session outcome.
type EndState struct {
	stateCore
	finalResponse Action
	outputMapper  *mapping.Mapper
}

// NewEndState creates an end state and adds it to flow.
func NewEndState(flow *Flow, cfg EndStateConfig) (*EndState, error) {
	s := &EndState{
		stateCore:     newCore(cfg.ID, cfg.EntryActions, cfg.ExceptionHandlers, cfg.Attributes),
		finalResponse: cfg.FinalResponse,
		outputMapper:  cfg.OutputMapper,
	}
	if err := register(flow, s); err != nil {
		return nil, err
	}
	return s, nil
}

// FinalResponse returns the final response action, or nil.
func (s *EndState) FinalResponse() Action { return s.finalResponse }

func (s *EndState) doEnter(rc RequestControlContext) error {
	if rc.InRootSession() && s.finalResponse != nil {
		ext := rc.ExternalContext()
		if !ext.IsResponseComplete() {
			if _, err := executeAction(s.finalResponse, rc); err != nil {
				return err
			}
			ext.RecordResponseComplete()
		}
	}
	output, err := s.createOutput(rc)
	if err != nil {
		return err
	}
	return rc.EndActiveFlowSession(s.id, output)
}

func (s *EndState) createOutput(rc RequestContext) (domain.Attributes, error) {
	output := domain.NewAttributes()
	if s.outputMapper == nil {
		return output, nil
	}
	results := s.outputMapper.Map(Env(rc), mapping.AttributesTarget(output))
	if results.HasErrors() {
		return nil, &FlowOutputMappingError{FlowID: s.flow.ID(), StateID: s.id, Results: results}
	}
	return output, nil
}
