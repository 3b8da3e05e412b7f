package engine

import (
	"fmt"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/expression"
	"github.com/aretw0/webflow/pkg/mapping"
)

// SubflowAttributeMapper passes data into a subflow and maps its output back.
type SubflowAttributeMapper interface {
	// CreateSubflowInput builds the input of the subflow session.
	CreateSubflowInput(rc RequestContext) (domain.Attributes, error)

	// MapSubflowOutput maps the output of the ended subflow into the parent's scopes.
	MapSubflowOutput(output domain.Attributes, rc RequestContext) error
}

// MappingSubflowMapper is a SubflowAttributeMapper backed by two attribute mappers.
// Input maps from the parent's request environment into a plain map;
// Output maps from the subflow output into the parent's scopes, flow scope by default.
type MappingSubflowMapper struct {
	Input  *mapping.Mapper
	Output *mapping.Mapper
}

// CreateSubflowInput implements SubflowAttributeMapper.
func (m MappingSubflowMapper) CreateSubflowInput(rc RequestContext) (domain.Attributes, error) {
	input := domain.NewAttributes()
	if m.Input == nil {
		return input, nil
	}
	results := m.Input.Map(Env(rc), mapping.AttributesTarget(input))
	if results.HasErrors() {
		flowID, stateID := ids(rc)
		return nil, &FlowInputMappingError{FlowID: flowID, StateID: stateID, Results: results}
	}
	return input, nil
}

// MapSubflowOutput implements SubflowAttributeMapper.
func (m MappingSubflowMapper) MapSubflowOutput(output domain.Attributes, rc RequestContext) error {
	if m.Output == nil {
		return nil
	}
	results := m.Output.Map(output, mapping.ScopesTarget{Scopes: Scopes(rc), Default: expression.FlowScope})
	if results.HasErrors() {
		flowID, stateID := ids(rc)
		return &FlowOutputMappingError{FlowID: flowID, StateID: stateID, Results: results}
	}
	return nil
}

// SubflowStateConfig configures a subflow state. Exactly one of Subflow or SubflowID is set.
type SubflowStateConfig struct {
	ID                string
	Subflow           *Flow
	SubflowID         string
	AttributeMapper   SubflowAttributeMapper
	EntryActions      []Action
	ExitActions       []Action
	Transitions       []*Transition
	ExceptionHandlers []ExceptionHandler
	Attributes        domain.Attributes
}

// SubflowState spawns a child flow as a subflow. The subflow's end state
// outcome is handled as an event in this state.
type SubflowState struct {
	stateCore
	transitionable
	subflow   *Flow
	subflowID string
	mapper    SubflowAttributeMapper
}

// NewSubflowState creates a subflow state and adds it to flow.
func NewSubflowState(flow *Flow, cfg SubflowStateConfig) (*SubflowState, error) {
	if cfg.Subflow == nil && cfg.SubflowID == "" {
		return nil, fmt.Errorf("%w: %q", ErrNoSubflow, cfg.ID)
	}
	s := &SubflowState{
		stateCore:      newCore(cfg.ID, cfg.EntryActions, cfg.ExceptionHandlers, cfg.Attributes),
		transitionable: newTransitionable(cfg.Transitions, cfg.ExitActions),
		subflow:        cfg.Subflow,
		subflowID:      cfg.SubflowID,
		mapper:         cfg.AttributeMapper,
	}
	if err := register(flow, s); err != nil {
		return nil, err
	}
	return s, nil
}

// SubflowID returns the id of the spawned flow.
func (s *SubflowState) SubflowID() string {
	if s.subflow != nil {
		return s.subflow.ID()
	}
	return s.subflowID
}

// AttributeMapper returns the configured mapper, or nil.
func (s *SubflowState) AttributeMapper() SubflowAttributeMapper { return s.mapper }

func (s *SubflowState) resolveSubflow(rc RequestControlContext) (*Flow, error) {
	if s.subflow != nil {
		return s.subflow, nil
	}
	return rc.ResolveFlow(s.subflowID)
}

func (s *SubflowState) doEnter(rc RequestControlContext) error {
	sub, err := s.resolveSubflow(rc)
	if err != nil {
		return err
	}
	input := domain.NewAttributes()
	if s.mapper != nil {
		if input, err = s.mapper.CreateSubflowInput(rc); err != nil {
			return err
		}
	}
	return rc.Start(sub, input)
}

func (s *SubflowState) mapOutput(output domain.Attributes, rc RequestContext) error {
	if s.mapper == nil {
		return nil
	}
	return s.mapper.MapSubflowOutput(output, rc)
}
