package webflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/webflow/internal/logging"
	"github.com/aretw0/webflow/internal/runtime"
	"github.com/aretw0/webflow/pkg/adapters/memory"
	"github.com/aretw0/webflow/pkg/conversation"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/engine"
	"github.com/aretw0/webflow/pkg/external"
	"github.com/aretw0/webflow/pkg/ports"
	"github.com/aretw0/webflow/pkg/repository"
)

// Version is the release of the webflow module.
const Version = "0.1.0"

// Result describes where a request left a flow execution: paused under a key,
// or ended with an outcome.
type Result struct {
	FlowID  string
	Key     string
	Outcome *domain.Outcome
}

// Paused reports whether the execution is waiting for another request.
func (r *Result) Paused() bool { return r.Key != "" }

// Ended reports whether the execution finished.
func (r *Result) Ended() bool { return r.Outcome != nil }

// Executor is the high-level entry point of the library. It launches flows
// and resumes paused executions, persisting them between requests.
type Executor struct {
	flows      engine.FlowDefinitionLocator
	store      ports.ConversationStore
	locker     ports.DistributedLocker
	hooks      domain.LifecycleHooks
	attributes domain.Attributes
	logger     *slog.Logger

	lockTimeout   time.Duration
	repoOpts      []repository.Option
	conversations *conversation.Manager
	repo          *repository.Repository
}

// Option defines a functional option for configuring the Executor.
type Option func(*Executor)

// WithStore sets the conversation store (in-memory by default).
func WithStore(store ports.ConversationStore) Option {
	return func(e *Executor) {
		e.store = store
	}
}

// WithLocker enables distributed conversation locks.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Executor) {
		e.locker = locker
	}
}

// WithLockTimeout bounds how long a request waits for a busy conversation.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.lockTimeout = d
	}
}

// WithMaxSnapshots bounds the snapshots kept per conversation (-1 keeps all).
func WithMaxSnapshots(n int) Option {
	return func(e *Executor) {
		e.repoOpts = append(e.repoOpts, repository.WithMaxSnapshots(n))
	}
}

// WithAlwaysGenerateNewNextKey controls whether every pause gets its own key.
func WithAlwaysGenerateNewNextKey(enabled bool) Option {
	return func(e *Executor) {
		e.repoOpts = append(e.repoOpts, repository.WithAlwaysGenerateNewNextKey(enabled))
	}
}

// WithCompression gzips stored snapshots.
func WithCompression(enabled bool) Option {
	return func(e *Executor) {
		e.repoOpts = append(e.repoOpts, repository.WithCompression(enabled))
	}
}

// WithRedirectOnPause makes every view state redirect before rendering
// (POST-REDIRECT-GET), so refreshing the browser never resubmits.
func WithRedirectOnPause(enabled bool) Option {
	return WithExecutionAttribute(domain.AttrAlwaysRedirectOnPause, enabled)
}

// WithExecutionAttribute sets an attribute on every flow execution.
func WithExecutionAttribute(key string, value any) Option {
	return func(e *Executor) {
		e.attributes.Put(key, value)
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Executor) {
		e.hooks = e.hooks.Combine(hooks)
	}
}

// WithLogger sets a custom structured logger for the executor.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// New creates an executor launching the flows flows can locate.
func New(flows engine.FlowDefinitionLocator, opts ...Option) *Executor {
	e := &Executor{
		flows:       flows,
		attributes:  domain.NewAttributes(),
		logger:      logging.NewNop(),
		lockTimeout: conversation.DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}

	convOpts := []conversation.Option{
		conversation.WithLockTimeout(e.lockTimeout),
		conversation.WithLogger(e.logger),
	}
	if e.locker != nil {
		convOpts = append(convOpts, conversation.WithLocker(e.locker))
	}
	e.conversations = conversation.NewManager(e.store, convOpts...)

	factory := runtime.NewFactory(
		runtime.WithLocator(flows),
		runtime.WithAttributes(e.attributes),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithLogger(e.logger),
	)
	e.repo = repository.New(e.conversations, factory, append([]repository.Option{repository.WithLogger(e.logger)}, e.repoOpts...)...)
	return e
}

// Flows returns the flow definition locator.
func (e *Executor) Flows() engine.FlowDefinitionLocator { return e.flows }

// Repository returns the flow execution repository.
func (e *Executor) Repository() *repository.Repository { return e.repo }

// Conversations returns the conversation manager.
func (e *Executor) Conversations() *conversation.Manager { return e.conversations }

// Launch starts a new execution of flowID. A paused execution is stored and
// its key returned; the response instruction is recorded on ext.
func (e *Executor) Launch(ctx context.Context, flowID string, input domain.Attributes, ext ports.ExternalContext) (*Result, error) {
	flow, err := e.flows.FlowDefinition(flowID)
	if err != nil {
		return nil, err
	}
	if ext == nil {
		ext = external.New(nil)
	}

	ctx, release := e.repo.BeginLaunch(ctx)
	defer release()

	exec := e.repo.CreateFlowExecution(flow)
	if err := exec.Start(ctx, input, ext); err != nil {
		e.discard(ctx, exec)
		return nil, err
	}
	if !exec.IsActive() {
		e.discard(ctx, exec)
		e.logger.Debug("Flow ended on launch", "flow_id", flowID, "outcome", exec.Outcome().ID)
		return &Result{FlowID: flowID, Outcome: exec.Outcome()}, nil
	}
	if exec.Key() == "" {
		return nil, fmt.Errorf("flow %q paused without an execution key", flowID)
	}

	if err := e.repo.PutFlowExecution(ctx, exec); err != nil {
		e.discard(ctx, exec)
		return nil, err
	}
	e.logger.Debug("Flow launched", "flow_id", flowID, "key", exec.Key())
	return &Result{FlowID: flowID, Key: exec.Key()}, nil
}

// Resume continues the execution paused under key with the request in ext.
// Unknown or expired keys fail with an error matching domain.ErrNoSuchFlowExecution.
func (e *Executor) Resume(ctx context.Context, key string, ext ports.ExternalContext) (*Result, error) {
	if ext == nil {
		ext = external.New(nil)
	}
	var result *Result
	err := e.withLock(ctx, key, func(ctx context.Context) error {
		exec, err := e.repo.GetFlowExecution(ctx, key)
		if err != nil {
			return err
		}
		flowID := exec.Definition().ID()
		if err := exec.Resume(ctx, ext); err != nil {
			return err
		}
		if exec.IsActive() {
			if err := e.repo.PutFlowExecution(ctx, exec); err != nil {
				return err
			}
			result = &Result{FlowID: flowID, Key: exec.Key()}
			return nil
		}
		if err := e.repo.RemoveFlowExecution(ctx, exec); err != nil {
			return err
		}
		result = &Result{FlowID: flowID, Outcome: exec.Outcome()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Debug("Flow resumed", "key", key, "paused", result.Paused())
	return result, nil
}

func (e *Executor) withLock(ctx context.Context, key string, fn func(context.Context) error) error {
	lock, err := e.repo.GetLock(key)
	if err != nil {
		return err
	}
	ctx, err = lock.Lock(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(context.WithoutCancel(ctx)); err != nil {
			e.logger.Warn("Failed to release conversation lock", "key", key, "err", err)
		}
	}()
	return fn(ctx)
}

// discard removes the conversation a launch began but did not leave paused.
// ctx must come from BeginLaunch.
func (e *Executor) discard(ctx context.Context, exec *runtime.Execution) {
	if exec.Key() == "" {
		return
	}
	err := e.repo.RemoveFlowExecution(context.WithoutCancel(ctx), exec)
	if err != nil && !errors.Is(err, domain.ErrNoSuchFlowExecution) {
		e.logger.Warn("Failed to discard conversation of launch", "key", exec.Key(), "err", err)
	}
}
