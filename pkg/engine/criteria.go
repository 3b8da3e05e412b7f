package engine

import (
	"fmt"
	"strings"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/expression"
)

// Wildcard matches any event id.
const Wildcard = "*"

// TransitionCriteria decides whether a transition applies to the current request.
// Criteria must not change flow state; ActionCriteria is the one deliberate
// exception, used to run transition actions as an execution guard.
type TransitionCriteria interface {
	Test(rc RequestContext) (bool, error)
}

// CriteriaFunc adapts a function to TransitionCriteria.
type CriteriaFunc func(rc RequestContext) (bool, error)

// Test implements TransitionCriteria.
func (f CriteriaFunc) Test(rc RequestContext) (bool, error) { return f(rc) }

// Always matches every request.
var Always TransitionCriteria = alwaysCriteria{}

type alwaysCriteria struct{}

func (alwaysCriteria) Test(RequestContext) (bool, error) { return true, nil }
func (alwaysCriteria) String() string                   { return Wildcard }

// EventIDCriteria matches the current event by (action name, event id).
//
// An event signaled by a named action only matches criteria carrying that same
// action name; an unqualified criteria only matches events of unnamed actions,
// user events and subflow outcomes. The unqualified wildcard matches everything.
type EventIDCriteria struct {
	Action string
	ID     string
}

// Test implements TransitionCriteria.
func (c EventIDCriteria) Test(rc RequestContext) (bool, error) {
	ev := rc.CurrentEvent()
	if ev == nil {
		return false, nil
	}
	if c.Action == "" && c.ID == Wildcard {
		return true, nil
	}
	if c.Action != ev.ActionName {
		return false, nil
	}
	return c.ID == Wildcard || c.ID == ev.ID, nil
}

func (c EventIDCriteria) String() string {
	return (&domain.Event{ActionName: c.Action, ID: c.ID}).QualifiedID()
}

// ParseEventCriteria parses "id" or "action.id". The part after the last dot is the event id.
func ParseEventCriteria(s string) EventIDCriteria {
	if i := strings.LastIndex(s, "."); i > 0 && i < len(s)-1 {
		return EventIDCriteria{Action: s[:i], ID: s[i+1:]}
	}
	return EventIDCriteria{ID: s}
}

// ExprCriteria matches when a boolean expression over the request scopes holds.
type ExprCriteria struct {
	Expr *expression.Expression
}

// Test implements TransitionCriteria.
func (c ExprCriteria) Test(rc RequestContext) (bool, error) {
	return c.Expr.EvalBool(Env(rc))
}

func (c ExprCriteria) String() string { return c.Expr.String() }

// ActionCriteria executes actions and matches when all of them signal a
// success-like event ("success", "yes" or "true"). An action error aborts the
// transition with an *ActionExecutionError.
type ActionCriteria struct {
	Actions []Action
}

// Test implements TransitionCriteria.
func (c ActionCriteria) Test(rc RequestContext) (bool, error) {
	for _, a := range c.Actions {
		ev, err := executeAction(a, rc)
		if err != nil {
			return false, err
		}
		if ev == nil || !isSuccess(ev.ID) {
			return false, nil
		}
	}
	return true, nil
}

func (c ActionCriteria) String() string {
	names := make([]string, len(c.Actions))
	for i, a := range c.Actions {
		names[i] = describe(a)
	}
	return "actions(" + strings.Join(names, ", ") + ")"
}

func isSuccess(id string) bool {
	switch id {
	case domain.EventSuccess, domain.EventYes, "true":
		return true
	}
	return false
}

// Not negates criteria.
func Not(c TransitionCriteria) TransitionCriteria {
	return notCriteria{c}
}

type notCriteria struct{ c TransitionCriteria }

func (n notCriteria) Test(rc RequestContext) (bool, error) {
	ok, err := n.c.Test(rc)
	return !ok, err
}

func (n notCriteria) String() string { return fmt.Sprintf("!(%v)", n.c) }

// All matches when every criteria matches. Evaluation stops at the first miss.
func All(cs ...TransitionCriteria) TransitionCriteria {
	return allCriteria(cs)
}

type allCriteria []TransitionCriteria

func (a allCriteria) Test(rc RequestContext) (bool, error) {
	for _, c := range a {
		ok, err := c.Test(rc)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (a allCriteria) String() string {
	parts := make([]string, len(a))
	for i, c := range a {
		parts[i] = fmt.Sprint(c)
	}
	return strings.Join(parts, " && ")
}
