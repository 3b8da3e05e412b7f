package dsl

import (
	"fmt"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/expression"
	"github.com/aretw0/webflow/pkg/views"
)

// common holds what every state kind can declare.
type common struct {
	id          string
	entry       []engine.Action
	exit        []engine.Action
	transitions []*engine.Transition
	handlers    []engine.ExceptionHandler
	catches     *engine.TransitionExecutingHandler
	attrs       domain.Attributes
	errs        []error
}

func newCommon(id string) common {
	return common{id: id, attrs: domain.NewAttributes()}
}

func (c *common) on(event, target string, opts []engine.TransitionOption) {
	c.transitions = append(c.transitions, newTransition(event, target, opts))
}

func (c *common) catch(match engine.ErrorMatcher, target string) {
	if c.catches == nil {
		c.catches = engine.NewTransitionExecutingHandler()
		c.handlers = append(c.handlers, c.catches)
	}
	c.catches.On(match, target)
}

func (c *common) err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return fmt.Errorf("state %q: %w", c.id, c.errs[0])
}

// ViewBuilder configures a view state.
type ViewBuilder struct {
	common
	viewID   string
	factory  engine.ViewFactory
	viewOpts []views.Option
	render   []engine.Action
	vars     []engine.ViewVariable
	redirect *bool
	popup    bool
	history  domain.History
}

// View adds a view state rendering viewID with the model view factory.
func (b *Builder) View(id, viewID string) *ViewBuilder {
	v := &ViewBuilder{common: newCommon(id), viewID: viewID}
	b.add(id, v)
	return v
}

// Factory replaces the default view factory.
func (v *ViewBuilder) Factory(f engine.ViewFactory) *ViewBuilder {
	v.factory = f
	return v
}

// Model binds request parameters to the model at path on postbacks.
func (v *ViewBuilder) Model(path string) *ViewBuilder {
	v.viewOpts = append(v.viewOpts, views.WithModel(path))
	return v
}

// Fields restricts binding to the named fields.
func (v *ViewBuilder) Fields(names ...string) *ViewBuilder {
	v.viewOpts = append(v.viewOpts, views.WithFields(names...))
	return v
}

// Rules validates map models with validator tags per field.
func (v *ViewBuilder) Rules(rules map[string]string) *ViewBuilder {
	v.viewOpts = append(v.viewOpts, views.WithRules(rules))
	return v
}

// Redirect overrides the execution's redirect-on-pause setting for this state.
func (v *ViewBuilder) Redirect(enabled bool) *ViewBuilder {
	v.redirect = &enabled
	return v
}

// Popup renders the view in a popup. It implies Redirect(true).
func (v *ViewBuilder) Popup() *ViewBuilder {
	v.popup = true
	return v
}

// History sets the policy applied to the snapshot when leaving the state.
func (v *ViewBuilder) History(h domain.History) *ViewBuilder {
	v.history = h
	return v
}

// Var declares a view variable, live while the flow stays in this state.
func (v *ViewBuilder) Var(name string, create func(engine.RequestContext) (any, error)) *ViewBuilder {
	v.vars = append(v.vars, engine.ViewVariable{Name: name, Create: create})
	return v
}

// OnEntry runs actions when the state is entered.
func (v *ViewBuilder) OnEntry(actions ...engine.Action) *ViewBuilder {
	v.entry = append(v.entry, actions...)
	return v
}

// OnRender runs actions before every render.
func (v *ViewBuilder) OnRender(actions ...engine.Action) *ViewBuilder {
	v.render = append(v.render, actions...)
	return v
}

// OnExit runs actions when the state is left.
func (v *ViewBuilder) OnExit(actions ...engine.Action) *ViewBuilder {
	v.exit = append(v.exit, actions...)
	return v
}

// On adds a transition on event to target. An empty target handles the event without leaving the state.
func (v *ViewBuilder) On(event, target string, opts ...engine.TransitionOption) *ViewBuilder {
	v.on(event, target, opts)
	return v
}

// Catch transitions to target when an error matching match is raised in this state.
func (v *ViewBuilder) Catch(match engine.ErrorMatcher, target string) *ViewBuilder {
	v.catch(match, target)
	return v
}

// Attr sets a state attribute.
func (v *ViewBuilder) Attr(key string, value any) *ViewBuilder {
	v.attrs.Put(key, value)
	return v
}

func (v *ViewBuilder) build(flow *engine.Flow) error {
	factory := v.factory
	if factory == nil {
		factory = views.New(v.viewID, v.viewOpts...)
	}
	_, err := engine.NewViewState(flow, engine.ViewStateConfig{
		ID:                v.id,
		ViewFactory:       factory,
		EntryActions:      v.entry,
		RenderActions:     v.render,
		ExitActions:       v.exit,
		Transitions:       v.transitions,
		Variables:         v.vars,
		Redirect:          v.redirect,
		Popup:             v.popup,
		History:           v.history,
		ExceptionHandlers: v.handlers,
		Attributes:        v.attrs,
	})
	return err
}

// ActionBuilder configures an action state.
type ActionBuilder struct {
	common
	actions []engine.Action
}

// Action adds an action state executing actions in order until one of their
// results matches a transition.
func (b *Builder) Action(id string, actions ...engine.Action) *ActionBuilder {
	a := &ActionBuilder{common: newCommon(id), actions: actions}
	b.add(id, a)
	return a
}

// Do appends actions.
func (a *ActionBuilder) Do(actions ...engine.Action) *ActionBuilder {
	a.actions = append(a.actions, actions...)
	return a
}

// Evaluate appends an action evaluating expr. When result is not empty the
// value is assigned to it (flow scope by default).
func (a *ActionBuilder) Evaluate(expr, result string) *ActionBuilder {
	e, err := expression.Parse(expr)
	if err != nil {
		a.errs = append(a.errs, err)
		return a
	}
	act := &engine.EvaluateAction{Expr: e}
	if result != "" {
		p, err := expression.ParsePath(result)
		if err != nil {
			a.errs = append(a.errs, err)
			return a
		}
		act.Result = &p
	}
	a.actions = append(a.actions, act)
	return a
}

// Set appends an action assigning the value of expr to target.
func (a *ActionBuilder) Set(target, expr string) *ActionBuilder {
	set, err := newSet(target, expr)
	if err != nil {
		a.errs = append(a.errs, err)
		return a
	}
	a.actions = append(a.actions, set)
	return a
}

// OnEntry runs actions when the state is entered.
func (a *ActionBuilder) OnEntry(actions ...engine.Action) *ActionBuilder {
	a.entry = append(a.entry, actions...)
	return a
}

// OnExit runs actions when the state is left.
func (a *ActionBuilder) OnExit(actions ...engine.Action) *ActionBuilder {
	a.exit = append(a.exit, actions...)
	return a
}

// On adds a transition on event to target.
func (a *ActionBuilder) On(event, target string, opts ...engine.TransitionOption) *ActionBuilder {
	a.on(event, target, opts)
	return a
}

// Catch transitions to target when an error matching match is raised in this state.
func (a *ActionBuilder) Catch(match engine.ErrorMatcher, target string) *ActionBuilder {
	a.catch(match, target)
	return a
}

// Attr sets a state attribute.
func (a *ActionBuilder) Attr(key string, value any) *ActionBuilder {
	a.attrs.Put(key, value)
	return a
}

func (a *ActionBuilder) build(flow *engine.Flow) error {
	if err := a.err(); err != nil {
		return err
	}
	_, err := engine.NewActionState(flow, engine.ActionStateConfig{
		ID:                a.id,
		Actions:           a.actions,
		EntryActions:      a.entry,
		ExitActions:       a.exit,
		Transitions:       a.transitions,
		ExceptionHandlers: a.handlers,
		Attributes:        a.attrs,
	})
	return err
}

// DecisionBuilder configures a decision state.
type DecisionBuilder struct {
	common
	otherwise string
}

// Decision adds a decision state choosing its transition by expression.
func (b *Builder) Decision(id string) *DecisionBuilder {
	d := &DecisionBuilder{common: newCommon(id)}
	b.add(id, d)
	return d
}

// If transitions to target when the boolean expression holds. Conditions are tested in order.
func (d *DecisionBuilder) If(expr, target string) *DecisionBuilder {
	e, err := expression.ParseBool(expr)
	if err != nil {
		d.errs = append(d.errs, err)
		return d
	}
	d.transitions = append(d.transitions, engine.NewTransition(engine.When(engine.ExprCriteria{Expr: e}), engine.To(target)))
	return d
}

// Else transitions to target when no condition holds.
func (d *DecisionBuilder) Else(target string) *DecisionBuilder {
	d.otherwise = target
	return d
}

// Catch transitions to target when an error matching match is raised in this state.
func (d *DecisionBuilder) Catch(match engine.ErrorMatcher, target string) *DecisionBuilder {
	d.catch(match, target)
	return d
}

// Attr sets a state attribute.
func (d *DecisionBuilder) Attr(key string, value any) *DecisionBuilder {
	d.attrs.Put(key, value)
	return d
}

func (d *DecisionBuilder) build(flow *engine.Flow) error {
	if err := d.err(); err != nil {
		return err
	}
	ts := d.transitions
	if d.otherwise != "" {
		ts = append(ts[:len(ts):len(ts)], engine.NewTransition(engine.To(d.otherwise)))
	}
	_, err := engine.NewDecisionState(flow, engine.DecisionStateConfig{
		ID:                d.id,
		EntryActions:      d.entry,
		ExitActions:       d.exit,
		Transitions:       ts,
		ExceptionHandlers: d.handlers,
		Attributes:        d.attrs,
	})
	return err
}

// SubflowBuilder configures a subflow state.
type SubflowBuilder struct {
	common
	subflowID string
	subflow   *engine.Flow
	input     []M
	output    []M
}

// Subflow adds a state spawning the flow subflowID, resolved through inline
// flows and the flow locator when entered.
func (b *Builder) Subflow(id, subflowID string) *SubflowBuilder {
	s := &SubflowBuilder{common: newCommon(id), subflowID: subflowID}
	b.add(id, s)
	return s
}

// Flow binds the subflow definition directly.
func (s *SubflowBuilder) Flow(f *engine.Flow) *SubflowBuilder {
	s.subflow = f
	return s
}

// Input maps parent data into the subflow input.
func (s *SubflowBuilder) Input(ms ...M) *SubflowBuilder {
	s.input = append(s.input, ms...)
	return s
}

// Output maps the subflow outcome output into the parent (flow scope by default).
func (s *SubflowBuilder) Output(ms ...M) *SubflowBuilder {
	s.output = append(s.output, ms...)
	return s
}

// On adds a transition on the subflow outcome event to target.
func (s *SubflowBuilder) On(event, target string, opts ...engine.TransitionOption) *SubflowBuilder {
	s.on(event, target, opts)
	return s
}

// Catch transitions to target when an error matching match is raised in this state.
func (s *SubflowBuilder) Catch(match engine.ErrorMatcher, target string) *SubflowBuilder {
	s.catch(match, target)
	return s
}

// Attr sets a state attribute.
func (s *SubflowBuilder) Attr(key string, value any) *SubflowBuilder {
	s.attrs.Put(key, value)
	return s
}

func (s *SubflowBuilder) build(flow *engine.Flow) error {
	cfg := engine.SubflowStateConfig{
		ID:                s.id,
		Subflow:           s.subflow,
		SubflowID:         s.subflowID,
		EntryActions:      s.entry,
		ExitActions:       s.exit,
		Transitions:       s.transitions,
		ExceptionHandlers: s.handlers,
		Attributes:        s.attrs,
	}
	if len(s.input) > 0 || len(s.output) > 0 {
		in, err := compileMappings(s.input)
		if err != nil {
			return fmt.Errorf("state %q: %w", s.id, err)
		}
		out, err := compileMappings(s.output)
		if err != nil {
			return fmt.Errorf("state %q: %w", s.id, err)
		}
		cfg.AttributeMapper = engine.MappingSubflowMapper{Input: in, Output: out}
	}
	_, err := engine.NewSubflowState(flow, cfg)
	return err
}

// EndBuilder configures an end state.
type EndBuilder struct {
	common
	final  engine.Action
	output []M
}

// End adds an end state. Its id is the outcome of the flow.
func (b *Builder) End(id string) *EndBuilder {
	e := &EndBuilder{common: newCommon(id)}
	b.add(id, e)
	return e
}

// OnEntry runs actions when the state is entered.
func (e *EndBuilder) OnEntry(actions ...engine.Action) *EndBuilder {
	e.entry = append(e.entry, actions...)
	return e
}

// Render renders viewID as the final response.
func (e *EndBuilder) Render(viewID string) *EndBuilder {
	e.final = &engine.RenderViewAction{Factory: views.New(viewID)}
	return e
}

// Redirect answers with an external redirect to the location the expression computes.
func (e *EndBuilder) Redirect(location string) *EndBuilder {
	loc, err := expression.Parse(location)
	if err != nil {
		e.errs = append(e.errs, err)
		return e
	}
	e.final = &engine.ExternalRedirectAction{Location: loc}
	return e
}

// FlowRedirect answers with a redirect launching flowID.
func (e *EndBuilder) FlowRedirect(flowID string) *EndBuilder {
	e.final = &engine.FlowDefinitionRedirectAction{FlowID: flowID}
	return e
}

// Output maps data into the outcome output of this end state.
func (e *EndBuilder) Output(ms ...M) *EndBuilder {
	e.output = append(e.output, ms...)
	return e
}

// Catch transitions to target when an error matching match is raised in this state.
func (e *EndBuilder) Catch(match engine.ErrorMatcher, target string) *EndBuilder {
	e.catch(match, target)
	return e
}

// Attr sets a state attribute.
func (e *EndBuilder) Attr(key string, value any) *EndBuilder {
	e.attrs.Put(key, value)
	return e
}

func (e *EndBuilder) build(flow *engine.Flow) error {
	if err := e.err(); err != nil {
		return err
	}
	out, err := compileMappings(e.output)
	if err != nil {
		return fmt.Errorf("state %q: %w", e.id, err)
	}
	_, err = engine.NewEndState(flow, engine.EndStateConfig{
		ID:                e.id,
		EntryActions:      e.entry,
		FinalResponse:     e.final,
		OutputMapper:      out,
		ExceptionHandlers: e.handlers,
		Attributes:        e.attrs,
	})
	return err
}

func newSet(target, expr string) (*engine.SetAction, error) {
	p, err := expression.ParsePath(target)
	if err != nil {
		return nil, err
	}
	e, err := expression.Parse(expr)
	if err != nil {
		return nil, err
	}
	return &engine.SetAction{Target: p, Value: e}, nil
}
