package engine

import (
	"context"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/expression"
	"github.com/aretw0/webflow/pkg/ports"
)

// RequestContext is the read view of one request into a flow execution.
// Actions and transition criteria receive it.
type RequestContext interface {
	// Context returns the context of the current request.
	Context() context.Context

	// ActiveFlow returns the definition of the active session's flow.
	ActiveFlow() *Flow

	// CurrentState returns the active session's current state, or nil before the first state is entered.
	CurrentState() State

	// CurrentTransition returns the transition being executed, if any.
	CurrentTransition() *Transition

	// CurrentEvent returns the last event signaled in this request, if any.
	CurrentEvent() *domain.Event

	// CurrentView returns the view selected in this request, if any.
	CurrentView() View

	RequestScope() domain.Attributes
	FlashScope() domain.Attributes
	ViewScope() domain.Attributes
	FlowScope() domain.Attributes
	ConversationScope() domain.Attributes
	RequestParameters() domain.Attributes

	// ExternalContext returns the calling environment.
	ExternalContext() ports.ExternalContext

	// Attributes returns request context attributes, a scratch map for framework collaborators.
	Attributes() domain.Attributes

	// FlowExecutionKey returns the key assigned to the execution, or "" if none yet.
	FlowExecutionKey() string

	// FlowExecutionAttributes returns the execution's configuration attributes.
	FlowExecutionAttributes() domain.Attributes

	// InRootSession reports whether the active session is the root flow's.
	InRootSession() bool
}

// RequestControlContext is the mutable view of a request, used by states and
// transitions to drive the execution.
type RequestControlContext interface {
	RequestContext

	SetCurrentState(State)
	SetCurrentTransition(*Transition)
	SetCurrentView(View)

	// SignalEvent records ev as the current event without handling it.
	SignalEvent(ev *domain.Event)

	// HandleEvent signals ev and lets the active flow handle it.
	// It reports whether a state transition occurred.
	HandleEvent(ev *domain.Event) (bool, error)

	// Execute executes t from the current state.
	Execute(t *Transition) (bool, error)

	// AssignFlowExecutionKey gives the execution a (new) key at a pause point.
	AssignFlowExecutionKey() error

	ViewRendering(View)
	ViewRendered(View)

	// Start spawns a new session for flow with the given input, making it the active session.
	Start(flow *Flow, input domain.Attributes) error

	// EndActiveFlowSession ends the active session. When the root session ends the
	// execution ends; otherwise the parent session resumes with the outcome as event.
	EndActiveFlowSession(outcome string, output domain.Attributes) error

	RemoveCurrentFlowExecutionSnapshot() error
	RemoveAllFlowExecutionSnapshots() error
	UpdateCurrentFlowExecutionSnapshot() error

	// RedirectOnPause reports whether view states redirect before rendering by default.
	RedirectOnPause() bool

	// RedirectInSameState reports whether a postback staying in a view state redirects by default.
	RedirectInSameState() bool

	// ResolveFlow finds a flow definition by id: inline flows of the active flows first, then the locator.
	ResolveFlow(id string) (*Flow, error)
}

// View is a renderable view selected by a view state.
type View interface {
	// Render writes the view to the response.
	Render() error

	// UserEventQueued reports whether the request carries a user event for this view.
	UserEventQueued() bool

	// ProcessUserEvent binds and validates the request data of the queued user event.
	ProcessUserEvent() error

	// HasFlowEvent reports whether processing produced an event the flow should handle.
	HasFlowEvent() bool

	// FlowEvent returns that event.
	FlowEvent() *domain.Event

	// SaveState captures view state before the view state is exited with history preserved.
	SaveState() error
}

// ViewFactory creates the view of a view state for the current request.
type ViewFactory interface {
	GetView(rc RequestContext) (View, error)
}

// FlowDefinitionLocator resolves flow ids to definitions.
type FlowDefinitionLocator interface {
	FlowDefinition(id string) (*Flow, error)
}

// Scopes returns the scopes of rc for expression evaluation and assignment.
func Scopes(rc RequestContext) expression.Scopes {
	return expression.Scopes{
		Request:      rc.RequestScope(),
		Flash:        rc.FlashScope(),
		View:         rc.ViewScope(),
		Flow:         rc.FlowScope(),
		Conversation: rc.ConversationScope(),
		Parameters:   rc.RequestParameters(),
		Event:        rc.CurrentEvent(),
		Key:          rc.FlowExecutionKey(),
	}
}

// Env returns the expression environment of rc.
func Env(rc RequestContext) map[string]any {
	return Scopes(rc).Env()
}

// eventContext overrides the current event of a request context, so criteria
// can be tested against an event that has not been signaled.
type eventContext struct {
	RequestContext
	event *domain.Event
}

func (c eventContext) CurrentEvent() *domain.Event {
	return c.event
}
