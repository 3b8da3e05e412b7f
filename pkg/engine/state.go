package engine

import (
	"fmt"

	"github.com/aretw0/webflow/pkg/domain"
)

// State is a node of a flow graph. The set of implementations is closed:
// *ActionState, *ViewState, *SubflowState, *DecisionState and *EndState.
type State interface {
	ID() string
	Flow() *Flow
	Attributes() domain.Attributes
	EntryActions() *ActionList
	ExceptionHandlers() []ExceptionHandler

	core() *stateCore
}

// TransitionableState is a state with outgoing transitions. Every kind except *EndState is one.
type TransitionableState interface {
	State
	Transitions() []*Transition
	ExitActions() *ActionList

	transitionSet() *TransitionSet
}

// stateCore holds what every state kind has in common.
type stateCore struct {
	id                string
	flow              *Flow
	entryActions      *ActionList
	exceptionHandlers []ExceptionHandler
	attributes        domain.Attributes
}

func newCore(id string, entry []Action, handlers []ExceptionHandler, attrs domain.Attributes) stateCore {
	return stateCore{
		id:                id,
		entryActions:      NewActionList(entry...),
		exceptionHandlers: append([]ExceptionHandler(nil), handlers...),
		attributes:        attrs.Clone(),
	}
}

// ID returns the state id, unique within its flow.
func (s *stateCore) ID() string { return s.id }

// Flow returns the owning flow.
func (s *stateCore) Flow() *Flow { return s.flow }

// Attributes returns a copy of the state's configuration attributes.
func (s *stateCore) Attributes() domain.Attributes { return s.attributes.Clone() }

// EntryActions returns the actions executed on entry.
func (s *stateCore) EntryActions() *ActionList { return s.entryActions }

// ExceptionHandlers returns the state's exception handlers in order.
func (s *stateCore) ExceptionHandlers() []ExceptionHandler {
	return append([]ExceptionHandler(nil), s.exceptionHandlers...)
}

func (s *stateCore) core() *stateCore { return s }

// transitionable holds the outgoing transitions and exit actions.
type transitionable struct {
	transitions *TransitionSet
	exitActions *ActionList
}

func newTransitionable(ts []*Transition, exit []Action) transitionable {
	return transitionable{transitions: NewTransitionSet(ts...), exitActions: NewActionList(exit...)}
}

// Transitions returns the state's transitions in order.
func (t *transitionable) Transitions() []*Transition { return t.transitions.Transitions() }

// ExitActions returns the actions executed on exit.
func (t *transitionable) ExitActions() *ActionList { return t.exitActions }

func (t *transitionable) transitionSet() *TransitionSet { return t.transitions }

// Kind returns a short name for the kind of s.
func Kind(s State) string {
	switch s.(type) {
	case *ActionState:
		return "action"
	case *ViewState:
		return "view"
	case *SubflowState:
		return "subflow"
	case *DecisionState:
		return "decision"
	case *EndState:
		return "end"
	}
	return "unknown"
}

// Enter runs the entry protocol shared by every state: record the state as
// current, run the pre-entry hook, run entry actions, then the kind specific behavior.
func Enter(s State, rc RequestControlContext) error {
	rc.SetCurrentState(s)
	if vs, ok := s.(*ViewState); ok {
		if err := vs.createVariables(rc); err != nil {
			return err
		}
	}
	if err := s.EntryActions().Execute(rc); err != nil {
		return err
	}
	switch st := s.(type) {
	case *ActionState:
		return st.doEnter(rc)
	case *ViewState:
		return st.doEnter(rc)
	case *SubflowState:
		return st.doEnter(rc)
	case *DecisionState:
		return st.doEnter(rc)
	case *EndState:
		return st.doEnter(rc)
	}
	return fmt.Errorf("unsupported state type %T", s)
}

// Resume continues a paused execution in s. Only view states pause.
func Resume(s State, rc RequestControlContext) error {
	vs, ok := s.(*ViewState)
	if !ok {
		return fmt.Errorf("%w: %s state %q", ErrNotResumable, Kind(s), s.ID())
	}
	return vs.resume(rc)
}

// Exit leaves s ahead of a transition.
func Exit(s State, rc RequestControlContext) error {
	switch st := s.(type) {
	case *ViewState:
		return st.exit(rc)
	case TransitionableState:
		return st.ExitActions().Execute(rc)
	}
	return fmt.Errorf("%w: %s state %q", ErrNotTransitionable, Kind(s), s.ID())
}

func register(flow *Flow, s State) error {
	if flow == nil {
		return fmt.Errorf("state %q: flow is nil", s.ID())
	}
	return flow.add(s)
}
