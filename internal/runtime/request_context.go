package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/external"
	"github.com/aretw0/webflow/pkg/ports"
)

// requestContext is the engine.RequestControlContext of a single request.
type requestContext struct {
	ctx        context.Context
	exec       *Execution
	ext        ports.ExternalContext
	request    domain.Attributes
	attributes domain.Attributes

	event      *domain.Event
	transition *engine.Transition
	view       engine.View
}

var _ engine.RequestControlContext = (*requestContext)(nil)

func newRequestContext(ctx context.Context, exec *Execution, ext ports.ExternalContext) *requestContext {
	if ctx == nil {
		ctx = context.Background()
	}
	if ext == nil {
		ext = external.New(nil)
	}
	return &requestContext{
		ctx:        ctx,
		exec:       exec,
		ext:        ext,
		request:    domain.NewAttributes(),
		attributes: domain.NewAttributes(),
	}
}

func (rc *requestContext) Context() context.Context { return rc.ctx }

func (rc *requestContext) ActiveFlow() *engine.Flow {
	if s := rc.exec.ActiveSession(); s != nil {
		return s.flow
	}
	return nil
}

func (rc *requestContext) CurrentState() engine.State { return rc.exec.CurrentState() }

func (rc *requestContext) CurrentTransition() *engine.Transition { return rc.transition }

func (rc *requestContext) CurrentEvent() *domain.Event { return rc.event }

func (rc *requestContext) CurrentView() engine.View { return rc.view }

func (rc *requestContext) RequestScope() domain.Attributes { return rc.request }

func (rc *requestContext) FlashScope() domain.Attributes { return rc.exec.flash }

func (rc *requestContext) ViewScope() domain.Attributes {
	if s := rc.exec.ActiveSession(); s != nil {
		return s.viewScope
	}
	return nil
}

func (rc *requestContext) FlowScope() domain.Attributes {
	if s := rc.exec.ActiveSession(); s != nil {
		return s.scope
	}
	return nil
}

func (rc *requestContext) ConversationScope() domain.Attributes { return rc.exec.conversation }

func (rc *requestContext) RequestParameters() domain.Attributes { return rc.ext.RequestParameters() }

func (rc *requestContext) ExternalContext() ports.ExternalContext { return rc.ext }

func (rc *requestContext) Attributes() domain.Attributes { return rc.attributes }

func (rc *requestContext) FlowExecutionKey() string { return rc.exec.key }

func (rc *requestContext) FlowExecutionAttributes() domain.Attributes { return rc.exec.attributes }

func (rc *requestContext) InRootSession() bool { return len(rc.exec.sessions) == 1 }

// SetCurrentState records s as the active session's current state. Leaving a
// view state discards its view scope.
func (rc *requestContext) SetCurrentState(s engine.State) {
	session := rc.exec.ActiveSession()
	previous := session.state
	if _, ok := previous.(*engine.ViewState); ok {
		session.viewScope.Clear()
	}
	session.state = s
	prevID := ""
	if previous != nil {
		prevID = previous.ID()
	}
	rc.exec.logger.Debug("State entered", "flow_id", session.flow.ID(), "state_id", s.ID(), "previous_state_id", prevID)
	rc.exec.fire(rc.ctx, domain.EventStateEntered, func(ev *domain.LifecycleEvent) { ev.PreviousStateID = prevID })
}

func (rc *requestContext) SetCurrentTransition(t *engine.Transition) { rc.transition = t }

func (rc *requestContext) SetCurrentView(v engine.View) { rc.view = v }

func (rc *requestContext) SignalEvent(ev *domain.Event) {
	rc.event = ev
	rc.exec.fire(rc.ctx, domain.EventSignaled, func(le *domain.LifecycleEvent) { le.EventID = ev.QualifiedID() })
}

func (rc *requestContext) HandleEvent(ev *domain.Event) (bool, error) {
	rc.SignalEvent(ev)
	flow := rc.ActiveFlow()
	if flow == nil {
		return false, fmt.Errorf("%w: no active session to handle %q", ErrNotActive, ev.QualifiedID())
	}
	return flow.HandleEvent(rc)
}

func (rc *requestContext) Execute(t *engine.Transition) (bool, error) {
	return t.Execute(rc.CurrentState(), rc)
}

func (rc *requestContext) AssignFlowExecutionKey() error {
	if rc.exec.keys == nil {
		return nil
	}
	key, err := rc.exec.keys.GetKey(rc.ctx, rc.exec)
	if err != nil {
		return err
	}
	rc.exec.key = key
	return nil
}

func (rc *requestContext) ViewRendering(engine.View) {}

func (rc *requestContext) ViewRendered(engine.View) {
	rc.exec.fire(rc.ctx, domain.EventViewRendered, nil)
}

func (rc *requestContext) Start(flow *engine.Flow, input domain.Attributes) error {
	rc.exec.sessions = append(rc.exec.sessions, newSession(flow))
	rc.exec.fire(rc.ctx, domain.EventSessionStarting, nil)
	rc.exec.logger.Debug("Flow session starting", "flow_id", flow.ID(), "depth", len(rc.exec.sessions))
	if err := flow.Start(rc, input); err != nil {
		return err
	}
	rc.exec.fire(rc.ctx, domain.EventSessionStarted, nil)
	return nil
}

func (rc *requestContext) EndActiveFlowSession(outcome string, output domain.Attributes) error {
	session := rc.exec.ActiveSession()
	if output == nil {
		output = domain.NewAttributes()
	}
	if err := session.flow.End(rc, output); err != nil {
		return err
	}
	rc.exec.fire(rc.ctx, domain.EventSessionEnded, func(ev *domain.LifecycleEvent) { ev.EventID = outcome })
	rc.exec.sessions = rc.exec.sessions[:len(rc.exec.sessions)-1]
	rc.exec.logger.Debug("Flow session ended", "flow_id", session.flow.ID(), "outcome", outcome)

	if len(rc.exec.sessions) == 0 {
		rc.exec.status = StatusEnded
		rc.exec.outcome = &domain.Outcome{ID: outcome, Output: output}
		return nil
	}
	_, err := rc.HandleEvent(&domain.Event{ID: outcome, Source: session.flow.ID(), Attributes: output})
	return err
}

func (rc *requestContext) RemoveCurrentFlowExecutionSnapshot() error {
	if rc.exec.keys == nil {
		return nil
	}
	return rc.exec.keys.RemoveFlowExecutionSnapshot(rc.ctx, rc.exec)
}

func (rc *requestContext) RemoveAllFlowExecutionSnapshots() error {
	if rc.exec.keys == nil {
		return nil
	}
	return rc.exec.keys.RemoveAllFlowExecutionSnapshots(rc.ctx, rc.exec)
}

func (rc *requestContext) UpdateCurrentFlowExecutionSnapshot() error {
	if rc.exec.keys == nil {
		return nil
	}
	return rc.exec.keys.UpdateFlowExecutionSnapshot(rc.ctx, rc.exec)
}

func (rc *requestContext) RedirectOnPause() bool { return rc.exec.redirectOnPause() }

func (rc *requestContext) RedirectInSameState() bool { return rc.exec.redirectInSameState() }

// ResolveFlow looks in the inline flows of the active sessions, innermost
// first, then asks the locator.
func (rc *requestContext) ResolveFlow(id string) (*engine.Flow, error) {
	return rc.exec.resolveFlow(id)
}
