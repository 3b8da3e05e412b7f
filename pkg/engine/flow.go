package engine

import (
	"fmt"
	"sync"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/expression"
	"github.com/aretw0/webflow/pkg/mapping"
)

// Flow is a flow definition: a graph of states and the behavior run when a
// session of it starts and ends. A Flow is built once, frozen, then shared
// read-only by every execution.
type Flow struct {
	id     string
	states []State
	byID   map[string]State

	startID           string
	variables         []FlowVariable
	inputMapper       *mapping.Mapper
	outputMapper      *mapping.Mapper
	startActions      *ActionList
	endActions        *ActionList
	exceptionHandlers []ExceptionHandler
	globalTransitions *TransitionSet
	inlineFlows       map[string]*Flow
	attributes        domain.Attributes

	mu     sync.Mutex
	frozen bool
}

// FlowOption configures a flow.
type FlowOption func(*Flow)

// WithStartState names the start state. By default the first state added is the start state.
func WithStartState(id string) FlowOption {
	return func(f *Flow) { f.startID = id }
}

// WithVariables declares flow variables, created when a session starts.
func WithVariables(vars ...FlowVariable) FlowOption {
	return func(f *Flow) { f.variables = append(f.variables, vars...) }
}

// WithInputMapper maps session input into flow scope. Without one, input is ignored.
func WithInputMapper(m *mapping.Mapper) FlowOption {
	return func(f *Flow) { f.inputMapper = m }
}

// WithOutputMapper adds to the session output when the flow ends.
func WithOutputMapper(m *mapping.Mapper) FlowOption {
	return func(f *Flow) { f.outputMapper = m }
}

// WithStartActions runs actions when a session starts, before the start state is entered.
func WithStartActions(actions ...Action) FlowOption {
	return func(f *Flow) { f.startActions = NewActionList(append(f.startActions.Actions(), actions...)...) }
}

// WithEndActions runs actions when a session ends.
func WithEndActions(actions ...Action) FlowOption {
	return func(f *Flow) { f.endActions = NewActionList(append(f.endActions.Actions(), actions...)...) }
}

// WithExceptionHandlers registers flow level exception handlers, tried after the state's.
func WithExceptionHandlers(hs ...ExceptionHandler) FlowOption {
	return func(f *Flow) { f.exceptionHandlers = append(f.exceptionHandlers, hs...) }
}

// WithGlobalTransitions adds transitions shared by every transitionable state.
func WithGlobalTransitions(ts ...*Transition) FlowOption {
	return func(f *Flow) {
		f.globalTransitions = NewTransitionSet(append(f.globalTransitions.Transitions(), ts...)...)
	}
}

// WithInlineFlows registers flows private to this one, resolvable by subflow states.
func WithInlineFlows(flows ...*Flow) FlowOption {
	return func(f *Flow) {
		for _, in := range flows {
			f.inlineFlows[in.ID()] = in
		}
	}
}

// WithFlowAttributes sets flow attributes.
func WithFlowAttributes(attrs domain.Attributes) FlowOption {
	return func(f *Flow) {
		for k, v := range attrs {
			f.attributes.Put(k, v)
		}
	}
}

// NewFlow creates an empty flow definition. States are added with the New*State constructors.
func NewFlow(id string, opts ...FlowOption) *Flow {
	f := &Flow{
		id:          id,
		byID:        make(map[string]State),
		inlineFlows: make(map[string]*Flow),
		attributes:  domain.NewAttributes(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ID returns the flow id.
func (f *Flow) ID() string { return f.id }

// States returns the states in the order they were added.
func (f *Flow) States() []State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]State(nil), f.states...)
}

// State returns the state with the given id.
func (f *Flow) State(id string) (State, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	return s, ok
}

// StartState returns the start state, or nil if the flow has no states.
func (f *Flow) StartState() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startState()
}

func (f *Flow) startState() State {
	if f.startID != "" {
		return f.byID[f.startID]
	}
	if len(f.states) > 0 {
		return f.states[0]
	}
	return nil
}

// InlineFlow returns the inline flow with the given id.
func (f *Flow) InlineFlow(id string) (*Flow, bool) {
	in, ok := f.inlineFlows[id]
	return in, ok
}

// InlineFlows returns the inline flows.
func (f *Flow) InlineFlows() []*Flow {
	out := make([]*Flow, 0, len(f.inlineFlows))
	for _, in := range f.inlineFlows {
		out = append(out, in)
	}
	return out
}

// GlobalTransitions returns the global transitions.
func (f *Flow) GlobalTransitions() []*Transition { return f.globalTransitions.Transitions() }

// ExceptionHandlers returns the flow level exception handlers.
func (f *Flow) ExceptionHandlers() []ExceptionHandler {
	return append([]ExceptionHandler(nil), f.exceptionHandlers...)
}

// Attributes returns a copy of the flow attributes.
func (f *Flow) Attributes() domain.Attributes { return f.attributes.Clone() }

// Variables returns the declared flow variables.
func (f *Flow) Variables() []FlowVariable { return append([]FlowVariable(nil), f.variables...) }

// Frozen reports whether the definition no longer accepts states.
func (f *Flow) Frozen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frozen
}

// Freeze validates the definition and makes it immutable. It is idempotent.
func (f *Flow) Freeze() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.frozen {
		return nil
	}
	if f.startState() == nil {
		if f.startID != "" {
			return fmt.Errorf("%w: %q names unknown state %q", ErrNoStartState, f.id, f.startID)
		}
		return fmt.Errorf("%w: %q", ErrNoStartState, f.id)
	}
	check := func(from string, ts []*Transition) error {
		for _, t := range ts {
			if id := t.TargetID(); id != "" {
				if _, ok := f.byID[id]; !ok {
					return fmt.Errorf("%w: transition %s of %q targets %q in flow %q", ErrUnknownState, t, from, id, f.id)
				}
			}
		}
		return nil
	}
	for _, s := range f.states {
		if ts, ok := s.(TransitionableState); ok {
			if err := check(s.ID(), ts.Transitions()); err != nil {
				return err
			}
		}
	}
	if err := check("global", f.globalTransitions.Transitions()); err != nil {
		return err
	}
	for _, in := range f.inlineFlows {
		if err := in.Freeze(); err != nil {
			return err
		}
	}
	f.frozen = true
	return nil
}

func (f *Flow) add(s State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.frozen {
		return fmt.Errorf("%w: cannot add state %q to %q", ErrFlowFrozen, s.ID(), f.id)
	}
	c := s.core()
	if c.flow != nil && c.flow != f {
		return fmt.Errorf("%w: %q belongs to %q", ErrStateOwned, s.ID(), c.flow.ID())
	}
	if _, dup := f.byID[s.ID()]; dup {
		return fmt.Errorf("%w: %q in flow %q", ErrDuplicateState, s.ID(), f.id)
	}
	c.flow = f
	f.states = append(f.states, s)
	f.byID[s.ID()] = s
	return nil
}

// Start begins a new session of this flow. The session must already be active in rc.
func (f *Flow) Start(rc RequestControlContext, input domain.Attributes) error {
	if err := f.Freeze(); err != nil {
		return err
	}
	scope := rc.FlowScope()
	for _, v := range f.variables {
		value, err := v.Create(rc)
		if err != nil {
			return fmt.Errorf("creating flow variable %q: %w", v.Name, err)
		}
		scope.Put(v.Name, value)
	}
	if f.inputMapper != nil {
		results := f.inputMapper.Map(input, mapping.ScopesTarget{Scopes: Scopes(rc), Default: expression.FlowScope})
		if results.HasErrors() {
			return &FlowInputMappingError{FlowID: f.id, Results: results}
		}
	}
	if err := f.startActions.Execute(rc); err != nil {
		return err
	}
	return Enter(f.StartState(), rc)
}

// Resume resumes the session paused in the current state.
func (f *Flow) Resume(rc RequestControlContext) error {
	s := rc.CurrentState()
	if s == nil {
		return fmt.Errorf("%w: flow %q has no current state", ErrNotResumable, f.id)
	}
	return Resume(s, rc)
}

// HandleEvent handles the current event in the current state. When the
// current state is a subflow state, the event carries the ended subflow's
// output, which is mapped first. It reports whether a state change occurred.
func (f *Flow) HandleEvent(rc RequestControlContext) (bool, error) {
	s := rc.CurrentState()
	ts, ok := s.(TransitionableState)
	if !ok {
		if s == nil {
			return false, fmt.Errorf("%w: flow %q has no current state", ErrNotTransitionable, f.id)
		}
		return false, fmt.Errorf("%w: %s state %q", ErrNotTransitionable, Kind(s), s.ID())
	}
	ev := rc.CurrentEvent()
	if sub, ok := s.(*SubflowState); ok && ev != nil {
		if err := sub.mapOutput(ev.Attributes, rc); err != nil {
			return false, err
		}
	}
	t, err := f.transitionFor(ts, rc)
	if err != nil {
		return false, err
	}
	if t == nil {
		eventID := ""
		if ev != nil {
			eventID = ev.QualifiedID()
		}
		return false, &NoMatchingTransitionError{FlowID: f.id, StateID: s.ID(), EventID: eventID}
	}
	return rc.Execute(t)
}

// End ends a session of this flow, adding to output.
func (f *Flow) End(rc RequestControlContext, output domain.Attributes) error {
	if err := f.endActions.Execute(rc); err != nil {
		return err
	}
	if f.outputMapper == nil {
		return nil
	}
	results := f.outputMapper.Map(Env(rc), mapping.AttributesTarget(output))
	if results.HasErrors() {
		stateID := ""
		if s := rc.CurrentState(); s != nil {
			stateID = s.ID()
		}
		return &FlowOutputMappingError{FlowID: f.id, StateID: stateID, Results: results}
	}
	return nil
}

// transitionFor finds the transition for the current event: the state's own
// transitions first, then the flow's global transitions.
func (f *Flow) transitionFor(s TransitionableState, rc RequestContext) (*Transition, error) {
	t, err := s.transitionSet().Find(rc)
	if err != nil || t != nil {
		return t, err
	}
	return f.globalTransitions.Find(rc)
}

func (f *Flow) String() string { return f.id }
