package engine

import (
	"errors"
	"fmt"

	"github.com/aretw0/webflow/pkg/domain"
)

// ExceptionHandler recovers from errors raised while a flow executes.
type ExceptionHandler interface {
	CanHandle(err error) bool

	// Handle recovers, typically by transitioning to an error state.
	Handle(err error, rc RequestControlContext) error
}

// HandleException offers err to the current state's handlers, then to the
// active flow's. It reports whether a handler took the error; the returned
// error is the handler's own failure, if any.
func HandleException(err error, rc RequestControlContext) (bool, error) {
	if s := rc.CurrentState(); s != nil {
		for _, h := range s.ExceptionHandlers() {
			if h.CanHandle(err) {
				return true, h.Handle(err, rc)
			}
		}
	}
	if f := rc.ActiveFlow(); f != nil {
		for _, h := range f.exceptionHandlers {
			if h.CanHandle(err) {
				return true, h.Handle(err, rc)
			}
		}
	}
	return false, nil
}

// ErrorMatcher selects errors for a handler.
type ErrorMatcher func(err error) bool

// MatchIs matches errors wrapping target.
func MatchIs(target error) ErrorMatcher {
	return func(err error) bool { return errors.Is(err, target) }
}

// MatchAs matches errors wrapping a T.
func MatchAs[T error]() ErrorMatcher {
	return func(err error) bool {
		var t T
		return errors.As(err, &t)
	}
}

// MatchAny matches every error.
func MatchAny() ErrorMatcher {
	return func(error) bool { return true }
}

// Names of the flow errors that definitions can catch by name.
const (
	ErrorNoMatchingTransition = "no_matching_transition"
	ErrorActionExecution      = "action_execution"
	ErrorFlowInputMapping     = "flow_input_mapping"
	ErrorFlowOutputMapping    = "flow_output_mapping"
	ErrorNoSuchFlow           = "no_such_flow"
)

var namedMatchers = map[string]ErrorMatcher{
	ErrorNoMatchingTransition: MatchAs[*NoMatchingTransitionError](),
	ErrorActionExecution:      MatchAs[*ActionExecutionError](),
	ErrorFlowInputMapping:     MatchAs[*FlowInputMappingError](),
	ErrorFlowOutputMapping:    MatchAs[*FlowOutputMappingError](),
	ErrorNoSuchFlow:           MatchIs(domain.ErrNoSuchFlow),
}

// NamedMatcher returns the matcher of a flow error name.
func NamedMatcher(name string) (ErrorMatcher, bool) {
	m, ok := namedMatchers[name]
	return m, ok
}

// ErrorMapping routes matching errors to a target state.
type ErrorMapping struct {
	Match  ErrorMatcher
	Target string
}

// TransitionExecutingHandler transitions to a state mapped by error. Before
// transitioning it exposes the error in flash scope and runs its actions.
type TransitionExecutingHandler struct {
	mappings []ErrorMapping
	actions  *ActionList
}

// NewTransitionExecutingHandler creates a handler; the first matching mapping wins.
func NewTransitionExecutingHandler(mappings ...ErrorMapping) *TransitionExecutingHandler {
	return &TransitionExecutingHandler{mappings: append([]ErrorMapping(nil), mappings...)}
}

// On adds a mapping and returns h.
func (h *TransitionExecutingHandler) On(match ErrorMatcher, target string) *TransitionExecutingHandler {
	h.mappings = append(h.mappings, ErrorMapping{Match: match, Target: target})
	return h
}

// WithActions sets actions run before the transition and returns h.
func (h *TransitionExecutingHandler) WithActions(actions ...Action) *TransitionExecutingHandler {
	h.actions = NewActionList(actions...)
	return h
}

// CanHandle implements ExceptionHandler.
func (h *TransitionExecutingHandler) CanHandle(err error) bool {
	_, ok := h.target(err)
	return ok
}

// Handle implements ExceptionHandler.
func (h *TransitionExecutingHandler) Handle(err error, rc RequestControlContext) error {
	target, ok := h.target(err)
	if !ok {
		return fmt.Errorf("no target state mapped for %w", err)
	}
	flash := rc.FlashScope()
	flash.Put(domain.FlashFlowExecutionException, err.Error())
	flash.Put(domain.FlashRootCauseException, RootCause(err).Error())
	if err := h.actions.Execute(rc); err != nil {
		return err
	}
	_, execErr := rc.Execute(NewTransition(To(target)))
	return execErr
}

func (h *TransitionExecutingHandler) target(err error) (string, bool) {
	for _, m := range h.mappings {
		if m.Match != nil && m.Match(err) {
			return m.Target, true
		}
	}
	return "", false
}
