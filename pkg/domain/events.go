package domain

import (
	"context"
	"time"
)

// EventType defines the category of a lifecycle event.
type EventType string

const (
	EventSessionStarting EventType = "session_starting"
	EventSessionStarted  EventType = "session_started"
	EventSessionEnded    EventType = "session_ended"
	EventStateEntered    EventType = "state_entered"
	EventSignaled        EventType = "event_signaled"
	EventViewRendered    EventType = "view_rendered"
	EventPaused          EventType = "paused"
	EventResuming        EventType = "resuming"
	EventException       EventType = "exception"
)

// LifecycleEvent describes one observable step of a flow execution.
type LifecycleEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`

	// FlowID is the id of the active flow when the event was raised.
	FlowID string `json:"flow_id"`

	// StateID is the current state, if any.
	StateID string `json:"state_id,omitempty"`

	// PreviousStateID is set for EventStateEntered.
	PreviousStateID string `json:"previous_state_id,omitempty"`

	// Key is the flow execution key, if one was assigned.
	Key string `json:"key,omitempty"`

	// EventID is set for EventSignaled and EventSessionEnded (the outcome).
	EventID string `json:"event_id,omitempty"`

	// Depth is the number of active sessions (1 for the root flow).
	Depth int `json:"depth"`

	// Err is set for EventException.
	Err error `json:"-"`
}

// LifecycleHooks defines callbacks for execution observability.
// Every hook is optional.
type LifecycleHooks struct {
	OnSessionStarting func(context.Context, *LifecycleEvent)
	OnSessionStarted  func(context.Context, *LifecycleEvent)
	OnSessionEnded    func(context.Context, *LifecycleEvent)
	OnStateEntered    func(context.Context, *LifecycleEvent)
	OnEventSignaled   func(context.Context, *LifecycleEvent)
	OnViewRendered    func(context.Context, *LifecycleEvent)
	OnPaused          func(context.Context, *LifecycleEvent)
	OnResuming        func(context.Context, *LifecycleEvent)
	OnException       func(context.Context, *LifecycleEvent)
}

// Fire dispatches ev to the hook matching its type.
func (h LifecycleHooks) Fire(ctx context.Context, ev *LifecycleEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	var fn func(context.Context, *LifecycleEvent)
	switch ev.Type {
	case EventSessionStarting:
		fn = h.OnSessionStarting
	case EventSessionStarted:
		fn = h.OnSessionStarted
	case EventSessionEnded:
		fn = h.OnSessionEnded
	case EventStateEntered:
		fn = h.OnStateEntered
	case EventSignaled:
		fn = h.OnEventSignaled
	case EventViewRendered:
		fn = h.OnViewRendered
	case EventPaused:
		fn = h.OnPaused
	case EventResuming:
		fn = h.OnResuming
	case EventException:
		fn = h.OnException
	}
	if fn != nil {
		fn(ctx, ev)
	}
}

// Combine returns hooks that call h first and then other.
func (h LifecycleHooks) Combine(other LifecycleHooks) LifecycleHooks {
	chain := func(a, b func(context.Context, *LifecycleEvent)) func(context.Context, *LifecycleEvent) {
		if a == nil {
			return b
		}
		if b == nil {
			return a
		}
		return func(ctx context.Context, ev *LifecycleEvent) {
			a(ctx, ev)
			b(ctx, ev)
		}
	}
	return LifecycleHooks{
		OnSessionStarting: chain(h.OnSessionStarting, other.OnSessionStarting),
		OnSessionStarted:  chain(h.OnSessionStarted, other.OnSessionStarted),
		OnSessionEnded:    chain(h.OnSessionEnded, other.OnSessionEnded),
		OnStateEntered:    chain(h.OnStateEntered, other.OnStateEntered),
		OnEventSignaled:   chain(h.OnEventSignaled, other.OnEventSignaled),
		OnViewRendered:    chain(h.OnViewRendered, other.OnViewRendered),
		OnPaused:          chain(h.OnPaused, other.OnPaused),
		OnResuming:        chain(h.OnResuming, other.OnResuming),
		OnException:       chain(h.OnException, other.OnException),
	}
}
