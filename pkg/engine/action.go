package engine

import (
	"errors"
	"fmt"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/expression"
	"github.com/aretw0/webflow/pkg/mapping"
)

// Action is a unit of application behavior executed by the flow.
// The returned event, if any, may drive a transition; nil means "no result".
type Action interface {
	Execute(rc RequestContext) (*domain.Event, error)
}

// ActionFunc adapts a function to the Action interface.
type ActionFunc func(rc RequestContext) (*domain.Event, error)

// Execute implements Action.
func (f ActionFunc) Execute(rc RequestContext) (*domain.Event, error) {
	return f(rc)
}

// Result returns an event with the given id, for use as an action result.
func Result(id string) *domain.Event {
	return &domain.Event{ID: id, Attributes: domain.NewAttributes()}
}

// Success returns the "success" result event.
func Success() *domain.Event { return Result(domain.EventSuccess) }

// AnnotatedAction decorates an action with a name and attributes. Events
// returned by a named action are qualified by that name.
type AnnotatedAction struct {
	Name       string
	Action     Action
	Attributes domain.Attributes
}

// Named returns action wrapped with a name.
func Named(name string, action Action) *AnnotatedAction {
	return &AnnotatedAction{Name: name, Action: action}
}

// Execute implements Action.
func (a *AnnotatedAction) Execute(rc RequestContext) (*domain.Event, error) {
	ev, err := a.Action.Execute(rc)
	if err != nil || ev == nil {
		return ev, err
	}
	if a.Name != "" {
		ev.ActionName = a.Name
	}
	return ev, nil
}

func (a *AnnotatedAction) String() string {
	if a.Name != "" {
		return a.Name
	}
	return describe(a.Action)
}

func describe(a Action) string {
	if s, ok := a.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", a)
}

// executeAction runs a and wraps failures into an *ActionExecutionError.
func executeAction(a Action, rc RequestContext) (*domain.Event, error) {
	ev, err := a.Execute(rc)
	if err == nil {
		if ev != nil && ev.Source == "" {
			ev.Source = describe(a)
		}
		return ev, nil
	}
	var already *ActionExecutionError
	if errors.As(err, &already) {
		return nil, err
	}
	flowID, stateID := ids(rc)
	attrs := rc.Attributes().Clone()
	if aa, ok := a.(*AnnotatedAction); ok {
		attrs = attrs.Union(aa.Attributes)
	}
	return nil, &ActionExecutionError{
		FlowID:     flowID,
		StateID:    stateID,
		Action:     describe(a),
		Attributes: attrs,
		Err:        err,
	}
}

// ActionList is an ordered list of actions executed unconditionally.
// A nil *ActionList is empty.
type ActionList struct {
	actions []Action
}

// NewActionList creates an action list.
func NewActionList(actions ...Action) *ActionList {
	return &ActionList{actions: append([]Action(nil), actions...)}
}

// Len returns the number of actions.
func (l *ActionList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.actions)
}

// Actions returns a copy of the actions.
func (l *ActionList) Actions() []Action {
	if l == nil {
		return nil
	}
	return append([]Action(nil), l.actions...)
}

// Execute runs the actions in order, ignoring their result events.
// The first failure stops the list and is returned as an *ActionExecutionError.
func (l *ActionList) Execute(rc RequestContext) error {
	if l == nil {
		return nil
	}
	for _, a := range l.actions {
		if _, err := executeAction(a, rc); err != nil {
			return err
		}
	}
	return nil
}

// ResultEvent converts an arbitrary value into a result event:
// booleans become yes/no, strings become the event id, nil becomes "null"
// and anything else becomes "success" with the value under "result".
func ResultEvent(v any) *domain.Event {
	switch r := v.(type) {
	case nil:
		return Result(domain.EventNull)
	case *domain.Event:
		return r
	case bool:
		if r {
			return Result(domain.EventYes)
		}
		return Result(domain.EventNo)
	case string:
		return Result(r)
	case fmt.Stringer:
		return Result(r.String())
	}
	ev := Success()
	ev.Attributes.Put("result", v)
	return ev
}

// EvaluateAction evaluates an expression, optionally assigns the value and
// signals an event derived from it (see ResultEvent).
type EvaluateAction struct {
	Expr *expression.Expression

	// Result, when set, receives the value. Paths without scope target flow scope.
	Result *expression.Path

	// ResultType converts the value before assignment (see mapping.Convert).
	ResultType string
}

// Execute implements Action.
func (a *EvaluateAction) Execute(rc RequestContext) (*domain.Event, error) {
	v, err := a.Expr.Eval(Env(rc))
	if err != nil {
		return nil, err
	}
	if a.ResultType != "" && v != nil {
		if v, err = mapping.Convert(v, a.ResultType); err != nil {
			return nil, err
		}
	}
	if a.Result != nil {
		if err := a.Result.WithDefaultScope(expression.FlowScope).Assign(Scopes(rc), v); err != nil {
			return nil, err
		}
	}
	return ResultEvent(v), nil
}

func (a *EvaluateAction) String() string {
	return fmt.Sprintf("evaluate(%s)", a.Expr)
}

// SetAction assigns the value of an expression to a scoped attribute.
type SetAction struct {
	Target expression.Path
	Value  *expression.Expression
	Type   string
}

// Execute implements Action.
func (a *SetAction) Execute(rc RequestContext) (*domain.Event, error) {
	v, err := a.Value.Eval(Env(rc))
	if err != nil {
		return nil, err
	}
	if a.Type != "" && v != nil {
		if v, err = mapping.Convert(v, a.Type); err != nil {
			return nil, err
		}
	}
	if err := a.Target.WithDefaultScope(expression.FlowScope).Assign(Scopes(rc), v); err != nil {
		return nil, err
	}
	return Success(), nil
}

func (a *SetAction) String() string {
	return fmt.Sprintf("set(%s = %s)", a.Target, a.Value)
}

// ExternalRedirectAction asks the host to redirect to a computed location.
type ExternalRedirectAction struct {
	Location *expression.Expression
}

// Execute implements Action.
func (a *ExternalRedirectAction) Execute(rc RequestContext) (*domain.Event, error) {
	v, err := a.Location.Eval(Env(rc))
	if err != nil {
		return nil, err
	}
	loc, ok := v.(string)
	if !ok || loc == "" {
		return nil, fmt.Errorf("redirect location %s evaluated to %v", a.Location, v)
	}
	rc.ExternalContext().RequestExternalRedirect(loc)
	return Success(), nil
}

func (a *ExternalRedirectAction) String() string {
	return fmt.Sprintf("externalRedirect(%s)", a.Location)
}

// FlowDefinitionRedirectAction asks the host to launch another flow.
type FlowDefinitionRedirectAction struct {
	FlowID string
	Input  map[string]*expression.Expression
}

// Execute implements Action.
func (a *FlowDefinitionRedirectAction) Execute(rc RequestContext) (*domain.Event, error) {
	env := Env(rc)
	input := domain.NewAttributes()
	for name, e := range a.Input {
		v, err := e.Eval(env)
		if err != nil {
			return nil, err
		}
		input.Put(name, v)
	}
	rc.ExternalContext().RequestFlowDefinitionRedirect(a.FlowID, input)
	return Success(), nil
}

func (a *FlowDefinitionRedirectAction) String() string {
	return fmt.Sprintf("flowRedirect(%s)", a.FlowID)
}

// RenderViewAction renders a view as the final response of an end state.
type RenderViewAction struct {
	Factory ViewFactory
}

// Execute implements Action.
func (a *RenderViewAction) Execute(rc RequestContext) (*domain.Event, error) {
	v, err := a.Factory.GetView(rc)
	if err != nil {
		return nil, err
	}
	if err := v.Render(); err != nil {
		return nil, err
	}
	return Success(), nil
}

func (a *RenderViewAction) String() string {
	return "renderView"
}
