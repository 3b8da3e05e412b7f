package registry

import (
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/engine"
)

// Registry manages the available flows and actions.
type Registry struct {
	mu      sync.RWMutex
	flows   map[string]*engine.Flow
	actions map[string]engine.Action
	errs    map[string]engine.ErrorMatcher
	parent  engine.FlowDefinitionLocator
}

// Option configures the Registry.
type Option func(*Registry)

// WithParent makes lookups fall back to parent for unknown flow ids.
func WithParent(parent engine.FlowDefinitionLocator) Option {
	return func(r *Registry) {
		r.parent = parent
	}
}

// NewRegistry creates a new empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		flows:   make(map[string]*engine.Flow),
		actions: make(map[string]engine.Action),
		errs:    make(map[string]engine.ErrorMatcher),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterFlow freezes flow and adds it to the registry.
// If a flow with the same id exists, it is replaced.
func (r *Registry) RegisterFlow(flow *engine.Flow) error {
	if err := flow.Freeze(); err != nil {
		return fmt.Errorf("invalid flow %q: %w", flow.ID(), err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flows[flow.ID()] = flow
	return nil
}

// FlowDefinition implements engine.FlowDefinitionLocator.
func (r *Registry) FlowDefinition(id string) (*engine.Flow, error) {
	r.mu.RLock()
	flow, ok := r.flows[id]
	r.mu.RUnlock()
	if ok {
		return flow, nil
	}
	if r.parent != nil {
		return r.parent.FlowDefinition(id)
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrNoSuchFlow, id)
}

// FlowIDs returns the ids of the registered flows in sorted order.
func (r *Registry) FlowIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.flows))
	for id := range r.flows {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// RegisterAction adds an action under name, overwriting any previous one.
func (r *Registry) RegisterAction(name string, action engine.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = action
}

// RegisterActionFunc adds a function as an action.
func (r *Registry) RegisterActionFunc(name string, fn func(rc engine.RequestContext) (*domain.Event, error)) {
	r.RegisterAction(name, engine.ActionFunc(fn))
}

// Action looks up an action by name.
func (r *Registry) Action(name string) (engine.Action, error) {
	r.mu.RLock()
	action, ok := r.actions[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("action not found: %s", name)
	}
	return action, nil
}

// ActionNames returns the registered action names in sorted order.
func (r *Registry) ActionNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// RegisterError makes errors wrapping target catchable under name.
func (r *Registry) RegisterError(name string, target error) {
	r.RegisterErrorMatcher(name, engine.MatchIs(target))
}

// RegisterErrorMatcher makes the errors match selects catchable under name,
// overwriting any previous matcher.
func (r *Registry) RegisterErrorMatcher(name string, match engine.ErrorMatcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[name] = match
}

// ErrorMatcher looks up name among the registered errors, then among the
// flow errors known to the engine.
func (r *Registry) ErrorMatcher(name string) (engine.ErrorMatcher, bool) {
	r.mu.RLock()
	m, ok := r.errs[name]
	r.mu.RUnlock()
	if ok {
		return m, true
	}
	return engine.NamedMatcher(name)
}
