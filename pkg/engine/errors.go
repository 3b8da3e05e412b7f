package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/mapping"
)

// Configuration errors, raised while building a flow or on first entry of a misconfigured state.
var (
	ErrDuplicateState    = errors.New("duplicate state id")
	ErrStateOwned        = errors.New("state already belongs to another flow")
	ErrNoStartState      = errors.New("flow has no start state")
	ErrUnknownState      = errors.New("no such state")
	ErrNoActions         = errors.New("action state has no actions")
	ErrNoSubflow         = errors.New("subflow state has no subflow")
	ErrNoViewFactory     = errors.New("view state has no view factory")
	ErrNotTransitionable = errors.New("state is not transitionable")
	ErrNotResumable      = errors.New("state cannot be resumed")
	ErrFlowFrozen        = errors.New("flow definition is frozen")
)

// NoMatchingTransitionError is returned when no transition, local or global, accepts an event.
type NoMatchingTransitionError struct {
	FlowID  string
	StateID string

	// EventID is the last event signaled.
	EventID string

	// EventIDs lists every event signaled in the state, in order. Action states
	// may signal several before giving up.
	EventIDs []string
}

func (e *NoMatchingTransitionError) Error() string {
	if e.EventID == "" && len(e.EventIDs) == 0 {
		return fmt.Sprintf("no action in state %q of flow %q signaled an event", e.StateID, e.FlowID)
	}
	if len(e.EventIDs) > 1 {
		return fmt.Sprintf("no transition matched event %q in state %q of flow %q; events signaled by %d actions: [%s]",
			e.EventID, e.StateID, e.FlowID, len(e.EventIDs), strings.Join(e.EventIDs, ", "))
	}
	return fmt.Sprintf("no transition matched event %q in state %q of flow %q", e.EventID, e.StateID, e.FlowID)
}

// ActionExecutionError wraps a failure raised by action code.
type ActionExecutionError struct {
	FlowID     string
	StateID    string
	Action     string
	Attributes domain.Attributes
	Err        error
}

func (e *ActionExecutionError) Error() string {
	return fmt.Sprintf("action %s failed in state %q of flow %q: %v", e.Action, e.StateID, e.FlowID, e.Err)
}

func (e *ActionExecutionError) Unwrap() error { return e.Err }

// FlowInputMappingError is returned when the input of a flow cannot be mapped.
type FlowInputMappingError struct {
	FlowID  string
	StateID string
	Results *mapping.Results
}

func (e *FlowInputMappingError) Error() string {
	where := ""
	if e.StateID != "" {
		where = fmt.Sprintf(" in state %q", e.StateID)
	}
	return fmt.Sprintf("input mapping of flow %q failed%s: %v", e.FlowID, where, e.Results.Err())
}

func (e *FlowInputMappingError) Unwrap() error { return e.Results.Err() }

// FlowOutputMappingError is returned when the output of a flow session cannot be mapped.
type FlowOutputMappingError struct {
	FlowID  string
	StateID string
	Results *mapping.Results
}

func (e *FlowOutputMappingError) Error() string {
	return fmt.Sprintf("output mapping in state %q of flow %q failed: %v", e.StateID, e.FlowID, e.Results.Err())
}

func (e *FlowOutputMappingError) Unwrap() error { return e.Results.Err() }

// FlowExecutionError wraps any other failure with the flow and state it occurred in.
type FlowExecutionError struct {
	FlowID  string
	StateID string
	Err     error
}

func (e *FlowExecutionError) Error() string {
	if e.StateID == "" {
		return fmt.Sprintf("flow %q: %v", e.FlowID, e.Err)
	}
	return fmt.Sprintf("flow %q, state %q: %v", e.FlowID, e.StateID, e.Err)
}

func (e *FlowExecutionError) Unwrap() error { return e.Err }

// WrapError attaches flow and state ids to err unless it already carries them.
func WrapError(err error, flowID, stateID string) error {
	if err == nil {
		return nil
	}
	var (
		noMatch *NoMatchingTransitionError
		action  *ActionExecutionError
		input   *FlowInputMappingError
		output  *FlowOutputMappingError
		exec    *FlowExecutionError
	)
	switch {
	case errors.As(err, &noMatch), errors.As(err, &action), errors.As(err, &input),
		errors.As(err, &output), errors.As(err, &exec):
		return err
	}
	return &FlowExecutionError{FlowID: flowID, StateID: stateID, Err: err}
}

// RootCause returns the innermost error of err's Unwrap chain.
func RootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func ids(rc RequestContext) (flowID, stateID string) {
	if f := rc.ActiveFlow(); f != nil {
		flowID = f.ID()
	}
	if s := rc.CurrentState(); s != nil {
		stateID = s.ID()
	}
	return flowID, stateID
}
