package engine

import (
	"github.com/aretw0/webflow/pkg/domain"
)

// DecisionStateConfig configures a decision state.
type DecisionStateConfig struct {
	ID                string
	EntryActions      []Action
	ExitActions       []Action
	Transitions       []*Transition
	ExceptionHandlers []ExceptionHandler
	Attributes        domain.Attributes
}

// DecisionState routes to the first transition whose criteria hold.
// Typical transitions use When(ExprCriteria{...}) followed by an Always fallback.
type DecisionState struct {
	stateCore
	transitionable
}

// NewDecisionState creates a decision state and adds it to flow.
func NewDecisionState(flow *Flow, cfg DecisionStateConfig) (*DecisionState, error) {
	s := &DecisionState{
		stateCore:      newCore(cfg.ID, cfg.EntryActions, cfg.ExceptionHandlers, cfg.Attributes),
		transitionable: newTransitionable(cfg.Transitions, cfg.ExitActions),
	}
	if err := register(flow, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DecisionState) doEnter(rc RequestControlContext) error {
	t, err := s.transitions.Find(rc)
	if err != nil {
		return err
	}
	if t != nil {
		moved, err := rc.Execute(t)
		if err != nil || moved {
			return err
		}
	}
	eventID := ""
	if ev := rc.CurrentEvent(); ev != nil {
		eventID = ev.QualifiedID()
	}
	return &NoMatchingTransitionError{FlowID: s.flow.ID(), StateID: s.id, EventID: eventID}
}
