package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/webflow/internal/logging"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/ports"
)

var (
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("flow execution already started")

	// ErrNotActive is returned when an execution that is not active is resumed.
	ErrNotActive = errors.New("flow execution is not active")
)

// KeyFactory assigns execution keys and manages the snapshots behind them.
// The flow execution repository implements it.
type KeyFactory interface {
	// GetKey returns the key for the execution's current pause point.
	GetKey(ctx context.Context, exec *Execution) (string, error)

	RemoveFlowExecutionSnapshot(ctx context.Context, exec *Execution) error
	RemoveAllFlowExecutionSnapshots(ctx context.Context, exec *Execution) error
	UpdateFlowExecutionSnapshot(ctx context.Context, exec *Execution) error
}

// Execution is a running instance of a flow definition.
type Execution struct {
	flow         *engine.Flow
	sessions     []*Session
	status       Status
	outcome      *domain.Outcome
	key          string
	conversation domain.Attributes
	flash        domain.Attributes
	attributes   domain.Attributes

	keys    KeyFactory
	locator engine.FlowDefinitionLocator
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
}

func newExecution(flow *engine.Flow) *Execution {
	return &Execution{
		flow:         flow,
		conversation: domain.NewAttributes(),
		flash:        domain.NewAttributes(),
		attributes:   domain.NewAttributes(),
		logger:       logging.NewNop(),
	}
}

// Definition returns the root flow.
func (e *Execution) Definition() *engine.Flow { return e.flow }

// Status returns the lifecycle status.
func (e *Execution) Status() Status { return e.status }

// IsActive reports whether the execution has started and not ended.
func (e *Execution) IsActive() bool { return e.status == StatusActive }

// HasEnded reports whether the root session has ended.
func (e *Execution) HasEnded() bool { return e.status == StatusEnded }

// Outcome returns the root session's outcome once the execution has ended.
func (e *Execution) Outcome() *domain.Outcome { return e.outcome }

// Key returns the current execution key, or "" if none was assigned.
func (e *Execution) Key() string { return e.key }

// SetKey replaces the execution key, e.g. after a snapshot was restored.
func (e *Execution) SetKey(key string) { e.key = key }

// ConversationScope returns the scope shared by all snapshots of the conversation.
func (e *Execution) ConversationScope() domain.Attributes { return e.conversation }

// FlashScope returns the flash scope.
func (e *Execution) FlashScope() domain.Attributes { return e.flash }

// Attributes returns the execution attributes.
func (e *Execution) Attributes() domain.Attributes { return e.attributes }

// ActiveSession returns the innermost session, or nil when none is active.
func (e *Execution) ActiveSession() *Session {
	if len(e.sessions) == 0 {
		return nil
	}
	return e.sessions[len(e.sessions)-1]
}

// Sessions returns the session stack, root first.
func (e *Execution) Sessions() []*Session {
	return append([]*Session(nil), e.sessions...)
}

// CurrentState returns the active session's current state, or nil.
func (e *Execution) CurrentState() engine.State {
	s := e.ActiveSession()
	if s == nil {
		return nil
	}
	return s.State()
}

// Start starts the root flow session and processes the first request.
func (e *Execution) Start(ctx context.Context, input domain.Attributes, ext ports.ExternalContext) error {
	if e.status != StatusNotStarted {
		return fmt.Errorf("%w: %s", ErrAlreadyStarted, e.flow.ID())
	}
	if input == nil {
		input = domain.NewAttributes()
	}
	rc := newRequestContext(ctx, e, ext)
	e.status = StatusActive
	if err := rc.Start(e.flow, input); err != nil {
		if err := e.handleException(err, rc); err != nil {
			return err
		}
	}
	e.requestProcessed(rc)
	return nil
}

// Resume processes a request against the paused current state.
func (e *Execution) Resume(ctx context.Context, ext ports.ExternalContext) error {
	if !e.IsActive() {
		return fmt.Errorf("%w: %s", ErrNotActive, e.flow.ID())
	}
	rc := newRequestContext(ctx, e, ext)
	e.fire(ctx, domain.EventResuming, nil)
	if err := e.ActiveSession().flow.Resume(rc); err != nil {
		if err := e.handleException(err, rc); err != nil {
			return err
		}
	}
	e.requestProcessed(rc)
	return nil
}

// handleException routes err through the state's and flow's exception handlers.
// It returns the error left unhandled, if any.
func (e *Execution) handleException(err error, rc *requestContext) error {
	flowID, stateID := e.ids()
	err = engine.WrapError(err, flowID, stateID)
	e.fire(rc.ctx, domain.EventException, func(ev *domain.LifecycleEvent) { ev.Err = err })
	if !e.IsActive() {
		return err
	}
	handled, herr := engine.HandleException(err, rc)
	if !handled {
		e.logger.Warn("Unhandled flow execution error", "flow_id", flowID, "state_id", stateID, "err", err)
		return err
	}
	if herr != nil {
		fid, sid := e.ids()
		return engine.WrapError(herr, fid, sid)
	}
	e.logger.Debug("Flow execution error handled", "flow_id", flowID, "state_id", stateID, "err", err)
	return nil
}

func (e *Execution) requestProcessed(rc *requestContext) {
	if e.IsActive() {
		e.fire(rc.ctx, domain.EventPaused, nil)
	}
}

func (e *Execution) ids() (flowID, stateID string) {
	s := e.ActiveSession()
	if s == nil {
		return e.flow.ID(), ""
	}
	flowID = s.flow.ID()
	if s.state != nil {
		stateID = s.state.ID()
	}
	return flowID, stateID
}

func (e *Execution) fire(ctx context.Context, typ domain.EventType, fill func(*domain.LifecycleEvent)) {
	flowID, stateID := e.ids()
	ev := &domain.LifecycleEvent{
		Type:    typ,
		FlowID:  flowID,
		StateID: stateID,
		Key:     e.key,
		Depth:   len(e.sessions),
	}
	if fill != nil {
		fill(ev)
	}
	e.hooks.Fire(ctx, ev)
}

// redirectOnPause reports the alwaysRedirectOnPause attribute.
func (e *Execution) redirectOnPause() bool {
	v, _ := e.attributes.GetBool(domain.AttrAlwaysRedirectOnPause)
	return v
}

func (e *Execution) redirectInSameState() bool {
	if v, ok := e.attributes.GetBool(domain.AttrRedirectInSameState); ok {
		return v
	}
	return e.redirectOnPause()
}
