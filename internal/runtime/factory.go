package runtime

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/webflow/internal/logging"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/engine"
)

// Factory creates new executions and restores executions from snapshots.
type Factory struct {
	locator    engine.FlowDefinitionLocator
	attributes domain.Attributes
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
}

// Option configures a Factory.
type Option func(*Factory)

// WithLocator sets the locator used to resolve subflows and restore snapshots.
func WithLocator(l engine.FlowDefinitionLocator) Option {
	return func(f *Factory) { f.locator = l }
}

// WithAttributes sets execution attributes such as domain.AttrAlwaysRedirectOnPause.
func WithAttributes(attrs domain.Attributes) Option {
	return func(f *Factory) {
		for k, v := range attrs {
			f.attributes.Put(k, v)
		}
	}
}

// WithLifecycleHooks registers lifecycle hooks on every execution.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(f *Factory) { f.hooks = f.hooks.Combine(hooks) }
}

// WithLogger sets the logger of created executions.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Factory) { f.logger = logger }
}

// NewFactory creates an execution factory.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		attributes: domain.NewAttributes(),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Locator returns the configured flow definition locator.
func (f *Factory) Locator() engine.FlowDefinitionLocator { return f.locator }

// CreateFlowExecution creates a not yet started execution of flow. keys may be nil,
// in which case the execution is never assigned a key.
func (f *Factory) CreateFlowExecution(flow *engine.Flow, keys KeyFactory) *Execution {
	e := newExecution(flow)
	f.configure(e, keys)
	return e
}

// Restore rebuilds an active execution from a snapshot. Flow definitions are
// reattached through the inline flows of the enclosing sessions and the locator.
func (f *Factory) Restore(snap *ExecutionSnapshot, key string, conversation domain.Attributes, keys KeyFactory) (*Execution, error) {
	if len(snap.Sessions) == 0 {
		return nil, fmt.Errorf("snapshot of flow %q has no sessions", snap.FlowID)
	}
	if f.locator == nil {
		return nil, fmt.Errorf("%w: %q (no locator configured)", domain.ErrNoSuchFlow, snap.FlowID)
	}
	root, err := f.locator.FlowDefinition(snap.FlowID)
	if err != nil {
		return nil, err
	}
	e := newExecution(root)
	f.configure(e, keys)
	e.status = StatusActive
	e.key = key
	if conversation != nil {
		e.conversation = conversation
	}
	if snap.Flash != nil {
		e.flash = snap.Flash
	}
	for k, v := range snap.Attributes {
		e.attributes.Put(k, v)
	}

	for i, ss := range snap.Sessions {
		var flow *engine.Flow
		if i == 0 {
			if ss.FlowID != root.ID() {
				return nil, fmt.Errorf("root session of snapshot is %q, expected %q", ss.FlowID, root.ID())
			}
			flow = root
		} else if flow, err = e.resolveFlow(ss.FlowID); err != nil {
			return nil, err
		}
		state, ok := flow.State(ss.StateID)
		if !ok {
			return nil, fmt.Errorf("%w: %q in flow %q", engine.ErrUnknownState, ss.StateID, flow.ID())
		}
		session := newSession(flow)
		session.state = state
		if ss.Scope != nil {
			session.scope = ss.Scope
		}
		if ss.ViewScope != nil {
			session.viewScope = ss.ViewScope
		}
		e.sessions = append(e.sessions, session)
	}
	return e, nil
}

func (f *Factory) configure(e *Execution, keys KeyFactory) {
	e.keys = keys
	e.locator = f.locator
	e.hooks = f.hooks
	e.logger = f.logger
	for k, v := range f.attributes {
		e.attributes.Put(k, v)
	}
}

// resolveFlow looks in the inline flows of the active sessions, innermost first, then asks the locator.
func (e *Execution) resolveFlow(id string) (*engine.Flow, error) {
	for i := len(e.sessions) - 1; i >= 0; i-- {
		if in, ok := e.sessions[i].flow.InlineFlow(id); ok {
			return in, nil
		}
	}
	if e.flow != nil {
		if in, ok := e.flow.InlineFlow(id); ok {
			return in, nil
		}
	}
	if e.locator == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrNoSuchFlow, id)
	}
	return e.locator.FlowDefinition(id)
}
