package engine

import (
	"fmt"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/expression"
)

// TargetStateResolver computes the target state of a transition.
// A nil state means "no state change".
type TargetStateResolver interface {
	Resolve(t *Transition, source State, rc RequestContext) (State, error)
}

// StaticTarget resolves to the state with the given id in the active flow.
type StaticTarget string

// Resolve implements TargetStateResolver.
func (id StaticTarget) Resolve(_ *Transition, _ State, rc RequestContext) (State, error) {
	flow := rc.ActiveFlow()
	s, ok := flow.State(string(id))
	if !ok {
		return nil, fmt.Errorf("%w: %q in flow %q", ErrUnknownState, string(id), flow.ID())
	}
	return s, nil
}

// ExprTarget resolves the target id by evaluating an expression. An empty result means no target.
type ExprTarget struct {
	Expr *expression.Expression
}

// Resolve implements TargetStateResolver.
func (r ExprTarget) Resolve(t *Transition, source State, rc RequestContext) (State, error) {
	v, err := r.Expr.Eval(Env(rc))
	if err != nil {
		return nil, err
	}
	if v == nil || v == "" {
		return nil, nil
	}
	return StaticTarget(fmt.Sprint(v)).Resolve(t, source, rc)
}

// Transition is a guarded edge to a target state. Transitions hold no execution data.
type Transition struct {
	matching   TransitionCriteria
	execution  TransitionCriteria
	target     TargetStateResolver
	attributes domain.Attributes
}

// TransitionOption configures a transition.
type TransitionOption func(*Transition)

// NewTransition creates a transition. Without a matching option it matches every event.
func NewTransition(opts ...TransitionOption) *Transition {
	t := &Transition{
		matching:   Always,
		attributes: domain.NewAttributes(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// On matches an unqualified event id, or a qualified "action.id".
func On(eventID string) TransitionOption {
	return When(ParseEventCriteria(eventID))
}

// OnResult matches the event id signaled by the named action.
func OnResult(action, eventID string) TransitionOption {
	return When(EventIDCriteria{Action: action, ID: eventID})
}

// When sets the matching criteria.
func When(c TransitionCriteria) TransitionOption {
	return func(t *Transition) { t.matching = c }
}

// Guard adds execution criteria, tested after the transition matched.
func Guard(c TransitionCriteria) TransitionOption {
	return func(t *Transition) {
		if t.execution == nil {
			t.execution = c
			return
		}
		t.execution = All(t.execution, c)
	}
}

// WithActions runs actions when the transition executes; any non-success result vetoes it.
func WithActions(actions ...Action) TransitionOption {
	return Guard(ActionCriteria{Actions: actions})
}

// To targets a state by id.
func To(stateID string) TransitionOption {
	return func(t *Transition) { t.target = StaticTarget(stateID) }
}

// ToExpr targets the state whose id an expression computes.
func ToExpr(e *expression.Expression) TransitionOption {
	return func(t *Transition) { t.target = ExprTarget{Expr: e} }
}

// WithTarget sets a custom target resolver.
func WithTarget(r TargetStateResolver) TransitionOption {
	return func(t *Transition) { t.target = r }
}

// WithAttribute sets a transition attribute such as "bind" or "validate".
func WithAttribute(key string, value any) TransitionOption {
	return func(t *Transition) { t.attributes.Put(key, value) }
}

// WithHistory overrides the history policy of the view state this transition leaves.
func WithHistory(h domain.History) TransitionOption {
	return WithAttribute(domain.TransitionHistory, h)
}

// Matches reports whether the transition applies to the current event.
func (t *Transition) Matches(rc RequestContext) (bool, error) {
	return t.matching.Test(rc)
}

// CanExecute tests the execution criteria. A false result rolls the
// transition back: the flow stays in its current state.
func (t *Transition) CanExecute(rc RequestContext) (bool, error) {
	if t.execution == nil {
		return true, nil
	}
	return t.execution.Test(rc)
}

// Execute moves the flow from source to the target state. The target is
// resolved before source is exited. It reports whether a state change occurred.
func (t *Transition) Execute(source State, rc RequestControlContext) (bool, error) {
	ok, err := t.CanExecute(rc)
	if err != nil || !ok {
		return false, err
	}
	rc.SetCurrentTransition(t)
	if t.target == nil {
		return false, nil
	}
	target, err := t.target.Resolve(t, source, rc)
	if err != nil {
		return false, err
	}
	if target == nil {
		return false, nil
	}
	if source != nil {
		if _, ok := source.(TransitionableState); ok {
			if err := Exit(source, rc); err != nil {
				return false, err
			}
		}
	}
	return true, Enter(target, rc)
}

// TargetID returns the static target state id, or "" for dynamic or missing targets.
func (t *Transition) TargetID() string {
	if s, ok := t.target.(StaticTarget); ok {
		return string(s)
	}
	return ""
}

// MatchingCriteria returns the matching criteria.
func (t *Transition) MatchingCriteria() TransitionCriteria {
	return t.matching
}

// Attribute returns a transition attribute.
func (t *Transition) Attribute(key string) any {
	return t.attributes.Get(key)
}

// History returns the history policy set on the transition, if any.
func (t *Transition) History() (domain.History, bool) {
	switch h := t.attributes.Get(domain.TransitionHistory).(type) {
	case domain.History:
		return h, true
	case string:
		parsed, err := domain.ParseHistory(h)
		return parsed, err == nil
	}
	return "", false
}

func (t *Transition) String() string {
	target := t.TargetID()
	if target == "" && t.target != nil {
		target = fmt.Sprint(t.target)
	}
	return fmt.Sprintf("on %v -> %s", t.matching, target)
}

// TransitionSet is an ordered set of transitions; the first match wins.
type TransitionSet struct {
	transitions []*Transition
}

// NewTransitionSet creates a transition set.
func NewTransitionSet(ts ...*Transition) *TransitionSet {
	return &TransitionSet{transitions: append([]*Transition(nil), ts...)}
}

// Transitions returns a copy of the transitions.
func (s *TransitionSet) Transitions() []*Transition {
	if s == nil {
		return nil
	}
	return append([]*Transition(nil), s.transitions...)
}

// Find returns the first transition matching rc, or nil.
func (s *TransitionSet) Find(rc RequestContext) (*Transition, error) {
	if s == nil {
		return nil, nil
	}
	for _, t := range s.transitions {
		ok, err := t.Matches(rc)
		if err != nil {
			return nil, err
		}
		if ok {
			return t, nil
		}
	}
	return nil, nil
}
