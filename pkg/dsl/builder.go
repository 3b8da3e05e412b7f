package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/expression"
	"github.com/aretw0/webflow/pkg/mapping"
)

// M describes a mapping from a source expression to a target path.
// An empty To reuses From, so M{From: "hotelId"} passes a value through.
type M struct {
	From     string
	To       string
	Type     string
	Required bool
}

func (m M) compile() (mapping.Mapping, error) {
	to := m.To
	if to == "" {
		to = m.From
	}
	src, err := expression.Parse(m.From)
	if err != nil {
		return mapping.Mapping{}, fmt.Errorf("mapping %q: %w", m.From, err)
	}
	target, err := expression.ParsePath(to)
	if err != nil {
		return mapping.Mapping{}, fmt.Errorf("mapping target %q: %w", to, err)
	}
	return mapping.Mapping{Source: src, Target: target, Type: m.Type, Required: m.Required}, nil
}

func compileMappings(ms []M) (*mapping.Mapper, error) {
	if len(ms) == 0 {
		return nil, nil
	}
	out := make([]mapping.Mapping, 0, len(ms))
	for _, m := range ms {
		c, err := m.compile()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return mapping.NewMapper(out...), nil
}

// stateBuilder adds one state to a flow under construction.
type stateBuilder interface {
	build(flow *engine.Flow) error
}

// Builder manages the flow construction.
type Builder struct {
	id       string
	start    string
	vars     []engine.FlowVariable
	input    []M
	output   []M
	onStart  []engine.Action
	onEnd    []engine.Action
	globals  []*engine.Transition
	handlers []engine.ExceptionHandler
	catches  *engine.TransitionExecutingHandler
	inline   []*Builder
	attrs    domain.Attributes
	states   []stateBuilder
	stateIDs map[string]bool
	errs     []error
}

// New creates a new flow builder.
func New(id string) *Builder {
	return &Builder{
		id:       id,
		attrs:    domain.NewAttributes(),
		stateIDs: make(map[string]bool),
	}
}

// ID returns the id of the flow being built.
func (b *Builder) ID() string { return b.id }

// StartAt sets the start state. By default the first added state starts the flow.
func (b *Builder) StartAt(stateID string) *Builder {
	b.start = stateID
	return b
}

// Var declares a flow variable created when the flow starts.
func (b *Builder) Var(name string, create func(engine.RequestContext) (any, error)) *Builder {
	b.vars = append(b.vars, engine.FlowVariable{Name: name, Create: create})
	return b
}

// Input maps the launch input into flow scope.
func (b *Builder) Input(ms ...M) *Builder {
	b.input = append(b.input, ms...)
	return b
}

// Output maps flow data into the outcome output when the flow ends.
func (b *Builder) Output(ms ...M) *Builder {
	b.output = append(b.output, ms...)
	return b
}

// OnStart runs actions when the flow starts, before the start state is entered.
func (b *Builder) OnStart(actions ...engine.Action) *Builder {
	b.onStart = append(b.onStart, actions...)
	return b
}

// OnEnd runs actions when the flow ends.
func (b *Builder) OnEnd(actions ...engine.Action) *Builder {
	b.onEnd = append(b.onEnd, actions...)
	return b
}

// Global adds a transition shared by every state of the flow.
func (b *Builder) Global(event, target string, opts ...engine.TransitionOption) *Builder {
	b.globals = append(b.globals, newTransition(event, target, opts))
	return b
}

// Catch transitions to target when an error matching match is raised anywhere in the flow.
func (b *Builder) Catch(match engine.ErrorMatcher, target string) *Builder {
	if b.catches == nil {
		b.catches = engine.NewTransitionExecutingHandler()
		b.handlers = append(b.handlers, b.catches)
	}
	b.catches.On(match, target)
	return b
}

// Handler adds a custom flow-level exception handler.
func (b *Builder) Handler(h engine.ExceptionHandler) *Builder {
	b.handlers = append(b.handlers, h)
	return b
}

// Inline adds a flow local to this one, usable as a subflow by id.
func (b *Builder) Inline(sub *Builder) *Builder {
	b.inline = append(b.inline, sub)
	return b
}

// Attr sets a flow attribute.
func (b *Builder) Attr(key string, value any) *Builder {
	b.attrs.Put(key, value)
	return b
}

func (b *Builder) add(id string, s stateBuilder) {
	if b.stateIDs[id] {
		b.errs = append(b.errs, fmt.Errorf("%w: %q", engine.ErrDuplicateState, id))
		return
	}
	b.stateIDs[id] = true
	b.states = append(b.states, s)
}

// Build compiles the builder into a frozen flow.
func (b *Builder) Build() (*engine.Flow, error) {
	errs := append([]error(nil), b.errs...)

	opts := []engine.FlowOption{
		engine.WithVariables(b.vars...),
		engine.WithStartActions(b.onStart...),
		engine.WithEndActions(b.onEnd...),
		engine.WithGlobalTransitions(b.globals...),
		engine.WithExceptionHandlers(b.handlers...),
		engine.WithFlowAttributes(b.attrs),
	}
	if b.start != "" {
		opts = append(opts, engine.WithStartState(b.start))
	}
	if in, err := compileMappings(b.input); err != nil {
		errs = append(errs, err)
	} else if in != nil {
		opts = append(opts, engine.WithInputMapper(in))
	}
	if out, err := compileMappings(b.output); err != nil {
		errs = append(errs, err)
	} else if out != nil {
		opts = append(opts, engine.WithOutputMapper(out))
	}
	for _, sub := range b.inline {
		f, err := sub.Build()
		if err != nil {
			errs = append(errs, fmt.Errorf("inline flow %q: %w", sub.id, err))
			continue
		}
		opts = append(opts, engine.WithInlineFlows(f))
	}

	flow := engine.NewFlow(b.id, opts...)
	for _, s := range b.states {
		if err := s.build(flow); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("flow %q: %w", b.id, errors.Join(errs...))
	}
	if err := flow.Freeze(); err != nil {
		return nil, fmt.Errorf("flow %q: %w", b.id, err)
	}
	return flow, nil
}

// MustBuild is like Build but panics on error. It suits flows declared in
// package variables and tests.
func (b *Builder) MustBuild() *engine.Flow {
	f, err := b.Build()
	if err != nil {
		panic(err)
	}
	return f
}

func newTransition(event, target string, opts []engine.TransitionOption) *engine.Transition {
	all := make([]engine.TransitionOption, 0, len(opts)+2)
	if event != "" {
		all = append(all, engine.On(event))
	}
	if target != "" {
		all = append(all, engine.To(target))
	}
	return engine.NewTransition(append(all, opts...)...)
}
