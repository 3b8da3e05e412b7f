package engine

import (
	"fmt"

	"github.com/aretw0/webflow/pkg/domain"
)

// ActionStateConfig configures an action state.
type ActionStateConfig struct {
	ID                string
	Actions           []Action
	EntryActions      []Action
	ExitActions       []Action
	Transitions       []*Transition
	ExceptionHandlers []ExceptionHandler
	Attributes        domain.Attributes
}

// ActionState executes its actions in order. Each result event is tried
// against the transitions; the first one that leads somewhere ends the state.
type ActionState struct {
	stateCore
	transitionable
	actions *ActionList
}

// NewActionState creates an action state and adds it to flow.
func NewActionState(flow *Flow, cfg ActionStateConfig) (*ActionState, error) {
	if len(cfg.Actions) == 0 {
		return nil, fmt.Errorf("%w: action state %q has an empty action list", ErrNoActions, cfg.ID)
	}
	s := &ActionState{
		stateCore:      newCore(cfg.ID, cfg.EntryActions, cfg.ExceptionHandlers, cfg.Attributes),
		transitionable: newTransitionable(cfg.Transitions, cfg.ExitActions),
		actions:        NewActionList(cfg.Actions...),
	}
	if err := register(flow, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Actions returns the state's actions.
func (s *ActionState) Actions() *ActionList { return s.actions }

// doEnter realizes a chain of responsibility over the actions. An action
// returning nil is skipped and an event without a matching transition hands
// over to the next action. A matched transition ends the chain even when its
// execution criteria veto it.
func (s *ActionState) doEnter(rc RequestControlContext) error {
	var signaled []string
	for _, a := range s.actions.actions {
		ev, err := executeAction(a, rc)
		if err != nil {
			return err
		}
		if ev == nil {
			continue
		}
		signaled = append(signaled, ev.QualifiedID())
		rc.SignalEvent(ev)

		t, err := s.flow.transitionFor(s, rc)
		if err != nil {
			return err
		}
		if t == nil {
			continue
		}
		_, err = rc.Execute(t)
		return err
	}
	err := &NoMatchingTransitionError{
		FlowID:   s.flow.ID(),
		StateID:  s.id,
		EventIDs: signaled,
	}
	if len(signaled) > 0 {
		err.EventID = signaled[len(signaled)-1]
	}
	return err
}
