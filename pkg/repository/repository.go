package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/aretw0/webflow/internal/logging"
	"github.com/aretw0/webflow/internal/runtime"
	"github.com/aretw0/webflow/pkg/conversation"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/engine"
)

// DefaultMaxSnapshots is the number of snapshots kept per conversation.
const DefaultMaxSnapshots = 30

// Repository is the flow execution repository. It also acts as the
// runtime.KeyFactory of the executions it creates and restores.
type Repository struct {
	conversations *conversation.Manager
	executions    *runtime.Factory
	codec         Codec

	maxSnapshots             int
	alwaysGenerateNewNextKey bool
	now                      func() time.Time
	logger                   *slog.Logger
}

// Option configures the Repository.
type Option func(*Repository)

// WithMaxSnapshots bounds the snapshots kept per conversation; the oldest are
// evicted first. A negative value keeps every snapshot.
func WithMaxSnapshots(n int) Option {
	return func(r *Repository) {
		r.maxSnapshots = n
	}
}

// WithAlwaysGenerateNewNextKey controls whether every pause gets a new
// snapshot id. When false the execution keeps its key and the snapshot is
// overwritten, so the back button cannot return to earlier pauses.
func WithAlwaysGenerateNewNextKey(enabled bool) Option {
	return func(r *Repository) {
		r.alwaysGenerateNewNextKey = enabled
	}
}

// WithCompression gzips serialized snapshots.
func WithCompression(enabled bool) Option {
	return func(r *Repository) {
		r.codec.Compress = enabled
	}
}

// WithLogger configures a logger for the Repository.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}

// New creates a repository storing conversations through conversations and
// restoring executions with executions.
func New(conversations *conversation.Manager, executions *runtime.Factory, opts ...Option) *Repository {
	r := &Repository{
		conversations:            conversations,
		executions:               executions,
		maxSnapshots:             DefaultMaxSnapshots,
		alwaysGenerateNewNextKey: true,
		now:                      time.Now,
		logger:                   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Conversations returns the conversation manager.
func (r *Repository) Conversations() *conversation.Manager { return r.conversations }

// CreateFlowExecution creates a new execution whose keys are managed by r.
func (r *Repository) CreateFlowExecution(flow *engine.Flow) *runtime.Execution {
	return r.executions.CreateFlowExecution(flow, r)
}

// GetLock returns the lock of the conversation behind key.
func (r *Repository) GetLock(key string) (*Lock, error) {
	k, err := ParseFlowExecutionKey(key)
	if err != nil {
		return nil, err
	}
	return &Lock{conversations: r.conversations, conversationID: k.ConversationID}, nil
}

// GetFlowExecution restores the execution paused under key.
func (r *Repository) GetFlowExecution(ctx context.Context, key string) (*runtime.Execution, error) {
	k, err := ParseFlowExecutionKey(key)
	if err != nil {
		return nil, err
	}
	conv, err := r.load(ctx, k)
	if err != nil {
		return nil, err
	}
	i := snapshotIndex(conv, k.SnapshotID)
	if i < 0 {
		return nil, &NoSuchFlowExecutionError{Key: key, Err: fmt.Errorf("snapshot %d not found", k.SnapshotID)}
	}

	var snap runtime.ExecutionSnapshot
	if err := r.codec.Decode(conv.Snapshots[i].Data, &snap); err != nil {
		return nil, err
	}
	scope := domain.NewAttributes()
	if len(conv.Scope) > 0 {
		if err := r.codec.Decode(conv.Scope, &scope); err != nil {
			return nil, err
		}
	}
	exec, err := r.executions.Restore(&snap, k.String(), scope, r)
	if err != nil {
		return nil, fmt.Errorf("failed to restore flow execution %q: %w", key, err)
	}
	return exec, nil
}

// PutFlowExecution stores a snapshot of exec under its key together with the
// conversation scope. ctx must carry the conversation lock.
func (r *Repository) PutFlowExecution(ctx context.Context, exec *runtime.Execution) error {
	k, err := ParseFlowExecutionKey(exec.Key())
	if err != nil {
		return err
	}
	ctx = leased(ctx)
	if !r.conversations.Held(ctx, k.ConversationID) {
		return fmt.Errorf("%w: putting flow execution %s", domain.ErrLockNotHeld, k)
	}
	conv, err := r.load(ctx, k)
	if err != nil {
		return err
	}
	if err := r.writeSnapshot(conv, k.SnapshotID, exec); err != nil {
		return err
	}
	scope, err := r.codec.Encode(exec.ConversationScope())
	if err != nil {
		return err
	}
	conv.Scope = scope
	if err := r.conversations.Save(ctx, conv); err != nil {
		return err
	}
	r.logger.Debug("Flow execution stored", "key", k.String(), "snapshots", len(conv.Snapshots))
	return nil
}

// RemoveFlowExecution ends the conversation of exec, discarding every snapshot.
// ctx must carry the conversation lock.
func (r *Repository) RemoveFlowExecution(ctx context.Context, exec *runtime.Execution) error {
	k, err := ParseFlowExecutionKey(exec.Key())
	if err != nil {
		return err
	}
	if err := r.conversations.Delete(leased(ctx), k.ConversationID); err != nil {
		return err
	}
	r.logger.Debug("Flow execution removed", "key", k.String())
	return nil
}

// GetKey implements runtime.KeyFactory. The first key of an execution begins
// its conversation; under BeginLaunch that conversation stays locked until the
// launch is released.
func (r *Repository) GetKey(ctx context.Context, exec *runtime.Execution) (string, error) {
	if exec.Key() == "" {
		conv, err := r.begin(ctx, exec.Definition().ID())
		if err != nil {
			return "", err
		}
		return CompositeKey{ConversationID: conv.ID, SnapshotID: conv.NextSnapshotID}.String(), nil
	}
	if !r.alwaysGenerateNewNextKey {
		return exec.Key(), nil
	}
	k, err := ParseFlowExecutionKey(exec.Key())
	if err != nil {
		return "", err
	}
	conv, err := r.load(ctx, k)
	if err != nil {
		return "", err
	}
	return CompositeKey{ConversationID: k.ConversationID, SnapshotID: conv.NextSnapshotID}.String(), nil
}

// RemoveFlowExecutionSnapshot implements runtime.KeyFactory.
func (r *Repository) RemoveFlowExecutionSnapshot(ctx context.Context, exec *runtime.Execution) error {
	return r.update(ctx, exec, func(conv *domain.Conversation, k CompositeKey) error {
		conv.Snapshots = slices.DeleteFunc(conv.Snapshots, func(s domain.Snapshot) bool {
			return s.ID == k.SnapshotID
		})
		return nil
	})
}

// RemoveAllFlowExecutionSnapshots implements runtime.KeyFactory.
func (r *Repository) RemoveAllFlowExecutionSnapshots(ctx context.Context, exec *runtime.Execution) error {
	return r.update(ctx, exec, func(conv *domain.Conversation, k CompositeKey) error {
		conv.Snapshots = nil
		return nil
	})
}

// UpdateFlowExecutionSnapshot implements runtime.KeyFactory.
func (r *Repository) UpdateFlowExecutionSnapshot(ctx context.Context, exec *runtime.Execution) error {
	return r.update(ctx, exec, func(conv *domain.Conversation, k CompositeKey) error {
		return r.writeSnapshot(conv, k.SnapshotID, exec)
	})
}

func (r *Repository) update(ctx context.Context, exec *runtime.Execution, fn func(*domain.Conversation, CompositeKey) error) error {
	k, err := ParseFlowExecutionKey(exec.Key())
	if err != nil {
		return err
	}
	conv, err := r.load(ctx, k)
	if err != nil {
		return err
	}
	if err := fn(conv, k); err != nil {
		return err
	}
	return r.conversations.Save(leased(ctx), conv)
}

func (r *Repository) load(ctx context.Context, k CompositeKey) (*domain.Conversation, error) {
	conv, err := r.conversations.Load(ctx, k.ConversationID)
	if errors.Is(err, domain.ErrConversationNotFound) {
		return nil, &NoSuchFlowExecutionError{Key: k.String(), Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", k.ConversationID, err)
	}
	return conv, nil
}

// writeSnapshot serializes exec into the snapshot slot id, evicting the
// oldest snapshots beyond the configured maximum.
func (r *Repository) writeSnapshot(conv *domain.Conversation, id int, exec *runtime.Execution) error {
	data, err := r.codec.Encode(exec.Snapshot())
	if err != nil {
		return err
	}
	snap := domain.Snapshot{ID: id, Data: data, CreatedAt: r.now().UTC()}
	if i := snapshotIndex(conv, id); i >= 0 {
		conv.Snapshots[i] = snap
	} else {
		conv.Snapshots = append(conv.Snapshots, snap)
		slices.SortFunc(conv.Snapshots, func(a, b domain.Snapshot) int { return a.ID - b.ID })
	}
	if r.maxSnapshots > 0 && len(conv.Snapshots) > r.maxSnapshots {
		conv.Snapshots = slices.Delete(conv.Snapshots, 0, len(conv.Snapshots)-r.maxSnapshots)
	}
	if id >= conv.NextSnapshotID {
		conv.NextSnapshotID = id + 1
	}
	return nil
}

func snapshotIndex(conv *domain.Conversation, id int) int {
	return slices.IndexFunc(conv.Snapshots, func(s domain.Snapshot) bool { return s.ID == id })
}

type launchKey struct{}

// launch holds the lease of the conversation begun during a launch request.
type launch struct {
	lease *conversation.Lease
}

// BeginLaunch returns a context for starting a new execution. The conversation
// its first key creates is locked at once, and every repository call made with
// the returned context holds that lock. release frees the lock; call it after
// the execution has been put or removed.
func (r *Repository) BeginLaunch(ctx context.Context) (launchCtx context.Context, release func()) {
	l := &launch{}
	release = func() {
		if l.lease == nil {
			return
		}
		lease := l.lease
		l.lease = nil
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			r.logger.Warn("Failed to release conversation lock", "conversation_id", lease.ConversationID(), "err", err)
		}
	}
	return context.WithValue(ctx, launchKey{}, l), release
}

func (r *Repository) begin(ctx context.Context, flowID string) (*domain.Conversation, error) {
	l, ok := ctx.Value(launchKey{}).(*launch)
	if !ok || l.lease != nil {
		return r.conversations.Create(ctx, flowID)
	}
	conv, lease, err := r.conversations.Begin(ctx, flowID)
	if err != nil {
		return nil, err
	}
	l.lease = lease
	return conv, nil
}

// leased adds the launch lease, if any, to ctx.
func leased(ctx context.Context) context.Context {
	if l, ok := ctx.Value(launchKey{}).(*launch); ok && l.lease != nil {
		return conversation.WithLease(ctx, l.lease)
	}
	return ctx
}
