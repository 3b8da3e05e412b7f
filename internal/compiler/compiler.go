package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/webflow/internal/dto"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/dsl"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/expression"
)

// ActionResolver looks up application actions by name.
type ActionResolver interface {
	Action(name string) (engine.Action, error)
}

// ErrorResolver resolves error names used by catch entries. An ActionResolver
// that also implements it, such as a registry, is consulted first.
type ErrorResolver interface {
	ErrorMatcher(name string) (engine.ErrorMatcher, bool)
}

// Compiler builds engine flows from flow documents.
type Compiler struct {
	actions ActionResolver
}

// New creates a compiler resolving named actions through actions, which may be
// nil when documents only use evaluate and set actions.
func New(actions ActionResolver) *Compiler {
	return &Compiler{actions: actions}
}

// Compile builds and freezes the flow def describes.
func (c *Compiler) Compile(def *dto.FlowDefinition) (*engine.Flow, error) {
	b, err := c.builder(def)
	if err != nil {
		return nil, fmt.Errorf("flow %q: %w", def.ID, err)
	}
	return b.Build()
}

// CompileBytes parses and compiles a flow document.
func (c *Compiler) CompileBytes(data []byte) (*engine.Flow, error) {
	def, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return c.Compile(def)
}

func (c *Compiler) builder(def *dto.FlowDefinition) (*dsl.Builder, error) {
	b := dsl.New(def.ID)
	if def.Start != "" {
		b.StartAt(def.Start)
	}
	b.Input(mappings(def.Input)...)
	b.Output(mappings(def.Output)...)
	for k, v := range def.Attributes {
		b.Attr(k, v)
	}
	for _, v := range def.Vars {
		create, err := variable(v)
		if err != nil {
			return nil, err
		}
		b.Var(v.Name, create)
	}

	onStart, err := c.actionList(def.OnStart)
	if err != nil {
		return nil, fmt.Errorf("on_start: %w", err)
	}
	b.OnStart(onStart...)
	onEnd, err := c.actionList(def.OnEnd)
	if err != nil {
		return nil, fmt.Errorf("on_end: %w", err)
	}
	b.OnEnd(onEnd...)

	for _, t := range def.Global {
		opts, err := c.transitionOptions(t)
		if err != nil {
			return nil, fmt.Errorf("global transition %q: %w", t.On, err)
		}
		b.Global(t.On, t.To, opts...)
	}
	for _, ct := range def.Catch {
		b.Catch(c.matcher(ct.Error), ct.To)
	}
	for i := range def.Inline {
		sub, err := c.builder(&def.Inline[i])
		if err != nil {
			return nil, fmt.Errorf("inline flow %q: %w", def.Inline[i].ID, err)
		}
		b.Inline(sub)
	}

	for _, s := range def.States {
		if s.ID == "" {
			return nil, fmt.Errorf("state missing id")
		}
		if err := c.state(b, s); err != nil {
			return nil, fmt.Errorf("state %q: %w", s.ID, err)
		}
	}
	return b, nil
}

func (c *Compiler) state(b *dsl.Builder, s dto.State) error {
	entry, err := c.actionList(s.OnEntry)
	if err != nil {
		return fmt.Errorf("on_entry: %w", err)
	}
	exit, err := c.actionList(s.OnExit)
	if err != nil {
		return fmt.Errorf("on_exit: %w", err)
	}

	switch kind := s.Kind(); kind {
	case dto.KindAction:
		actions, err := c.actionList(s.Actions)
		if err != nil {
			return err
		}
		a := b.Action(s.ID, actions...).OnEntry(entry...).OnExit(exit...)
		for k, v := range s.Attributes {
			a.Attr(k, v)
		}
		for _, ct := range s.Catch {
			a.Catch(c.matcher(ct.Error), ct.To)
		}
		return c.transitions(s.Transitions, func(on, to string, opts []engine.TransitionOption) { a.On(on, to, opts...) })

	case dto.KindView:
		v := b.View(s.ID, s.View).OnEntry(entry...).OnExit(exit...)
		if s.Model != "" {
			v.Model(s.Model)
		}
		if len(s.Fields) > 0 {
			v.Fields(s.Fields...)
		}
		if len(s.Rules) > 0 {
			v.Rules(s.Rules)
		}
		if s.Redirect != nil {
			v.Redirect(*s.Redirect)
		}
		if s.Popup {
			v.Popup()
		}
		h, err := domain.ParseHistory(s.History)
		if err != nil {
			return err
		}
		v.History(h)
		render, err := c.actionList(s.OnRender)
		if err != nil {
			return fmt.Errorf("on_render: %w", err)
		}
		v.OnRender(render...)
		for _, vv := range s.Vars {
			create, err := variable(vv)
			if err != nil {
				return err
			}
			v.Var(vv.Name, create)
		}
		for k, val := range s.Attributes {
			v.Attr(k, val)
		}
		for _, ct := range s.Catch {
			v.Catch(c.matcher(ct.Error), ct.To)
		}
		return c.transitions(s.Transitions, func(on, to string, opts []engine.TransitionOption) { v.On(on, to, opts...) })

	case dto.KindDecision:
		if len(s.Transitions) > 0 {
			return fmt.Errorf("decision states route with if/else, not transitions")
		}
		d := b.Decision(s.ID)
		for _, br := range s.If {
			d.If(br.Test, br.Then)
		}
		if s.Else != "" {
			d.Else(s.Else)
		}
		for k, v := range s.Attributes {
			d.Attr(k, v)
		}
		for _, ct := range s.Catch {
			d.Catch(c.matcher(ct.Error), ct.To)
		}
		return nil

	case dto.KindSubflow:
		sf := b.Subflow(s.ID, s.Flow).Input(mappings(s.Input)...).Output(mappings(s.Output)...)
		for k, v := range s.Attributes {
			sf.Attr(k, v)
		}
		for _, ct := range s.Catch {
			sf.Catch(c.matcher(ct.Error), ct.To)
		}
		return c.transitions(s.Transitions, func(on, to string, opts []engine.TransitionOption) { sf.On(on, to, opts...) })

	case dto.KindEnd:
		e := b.End(s.ID).OnEntry(entry...).Output(mappings(s.Output)...)
		switch {
		case s.View != "":
			e.Render(s.View)
		case s.Location != "":
			e.Redirect(s.Location)
		case s.FlowRedirect != "":
			e.FlowRedirect(s.FlowRedirect)
		}
		for k, v := range s.Attributes {
			e.Attr(k, v)
		}
		for _, ct := range s.Catch {
			e.Catch(c.matcher(ct.Error), ct.To)
		}
		return nil

	default:
		return fmt.Errorf("unknown state type %q", kind)
	}
}

func (c *Compiler) transitions(ts []dto.Transition, add func(on, to string, opts []engine.TransitionOption)) error {
	for _, t := range ts {
		opts, err := c.transitionOptions(t)
		if err != nil {
			return fmt.Errorf("transition %q: %w", t.On, err)
		}
		add(t.On, t.To, opts)
	}
	return nil
}

func (c *Compiler) transitionOptions(t dto.Transition) ([]engine.TransitionOption, error) {
	var opts []engine.TransitionOption
	if t.If != "" {
		e, err := expression.ParseBool(t.If)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.Guard(engine.ExprCriteria{Expr: e}))
	}
	if t.Bind != nil {
		opts = append(opts, engine.WithAttribute(domain.TransitionBind, *t.Bind))
	}
	if t.Validate != nil {
		opts = append(opts, engine.WithAttribute(domain.TransitionValidate, *t.Validate))
	}
	if t.History != "" {
		h, err := domain.ParseHistory(t.History)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithHistory(h))
	}
	if len(t.Actions) > 0 {
		actions, err := c.actionList(t.Actions)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithActions(actions...))
	}
	return opts, nil
}

func (c *Compiler) actionList(list []dto.Action) ([]engine.Action, error) {
	out := make([]engine.Action, 0, len(list))
	for _, a := range list {
		act, err := c.action(a)
		if err != nil {
			return nil, err
		}
		out = append(out, act)
	}
	return out, nil
}

func (c *Compiler) action(a dto.Action) (engine.Action, error) {
	var act engine.Action
	switch {
	case a.Call != "":
		if c.actions == nil {
			return nil, fmt.Errorf("action %q: no action registry configured", a.Call)
		}
		resolved, err := c.actions.Action(a.Call)
		if err != nil {
			return nil, err
		}
		act = resolved
	case a.Evaluate != "":
		e, err := expression.Parse(a.Evaluate)
		if err != nil {
			return nil, err
		}
		eval := &engine.EvaluateAction{Expr: e, ResultType: a.ResultType}
		if a.Result != "" {
			p, err := expression.ParsePath(a.Result)
			if err != nil {
				return nil, err
			}
			eval.Result = &p
		}
		act = eval
	case a.Set != "":
		p, err := expression.ParsePath(a.Set)
		if err != nil {
			return nil, err
		}
		v, err := expression.Parse(a.Value)
		if err != nil {
			return nil, fmt.Errorf("set %s: %w", a.Set, err)
		}
		act = &engine.SetAction{Target: p, Value: v, Type: a.Type}
	default:
		return nil, fmt.Errorf("action needs one of call, evaluate or set")
	}
	if a.Name != "" {
		return engine.Named(a.Name, act), nil
	}
	return act, nil
}

func mappings(ms []dto.Mapping) []dsl.M {
	out := make([]dsl.M, 0, len(ms))
	for _, m := range ms {
		out = append(out, dsl.M{From: m.From, To: m.To, Type: m.Type, Required: m.Required})
	}
	return out
}

// matcher resolves a catch entry: "*" matches everything, a registered or
// built-in error name matches those errors, and any other text matches errors
// whose message, or the message of an error they wrap, contains it.
func (c *Compiler) matcher(spec string) engine.ErrorMatcher {
	if spec == "" || spec == "*" {
		return engine.MatchAny()
	}
	if r, ok := c.actions.(ErrorResolver); ok {
		if m, ok := r.ErrorMatcher(spec); ok {
			return m
		}
	} else if m, ok := engine.NamedMatcher(spec); ok {
		return m
	}
	return func(err error) bool {
		for e := err; e != nil; e = errors.Unwrap(e) {
			if strings.Contains(e.Error(), spec) {
				return true
			}
		}
		return false
	}
}

func variable(v dto.Variable) (func(engine.RequestContext) (any, error), error) {
	if v.Name == "" {
		return nil, fmt.Errorf("variable missing name")
	}
	if v.Expr != "" {
		e, err := expression.Parse(v.Expr)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", v.Name, err)
		}
		return func(rc engine.RequestContext) (any, error) {
			return e.Eval(engine.Env(rc))
		}, nil
	}
	value := v.Value
	return func(engine.RequestContext) (any, error) {
		return deepCopy(value), nil
	}, nil
}

// deepCopy copies the maps and slices of a decoded document value.
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		c := make(domain.Attributes, len(t))
		for k, val := range t {
			c[k] = deepCopy(val)
		}
		return c
	case []any:
		c := make([]any, len(t))
		for i, val := range t {
			c[i] = deepCopy(val)
		}
		return c
	}
	return v
}
