package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/webflow/internal/logging"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/ports"
	"github.com/google/uuid"
)

// DefaultLockTimeout bounds how long Lock waits for a busy conversation.
const DefaultLockTimeout = 30 * time.Second

// lockEntry holds the semaphore, the reference count and the current holder.
type lockEntry struct {
	sem    chan struct{}
	refs   int
	holder uint64
}

// Manager orchestrates conversation access, ensuring safe concurrent operations.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.ConversationStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker      ports.DistributedLocker
	lockTimeout time.Duration
	lockTTL     time.Duration
	newID       func() string
	now         func() time.Time
	tokens      atomic.Uint64
	logger      *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTimeout sets how long Lock waits before failing with domain.ErrLockTimeout.
// Zero or negative waits until the context is done.
func WithLockTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.lockTimeout = d
	}
}

// WithLockTTL sets the expiry of distributed locks, after which a crashed holder's lock is freed.
func WithLockTTL(d time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = d
	}
}

// WithIDGenerator replaces the conversation id generator (random UUIDs by default).
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		m.newID = fn
	}
}

// WithClock replaces the time source used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a conversation manager over store.
func NewManager(store ports.ConversationStore, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		locks:       make(map[string]*lockEntry),
		lockTimeout: DefaultLockTimeout,
		lockTTL:     DefaultLockTimeout,
		newID:       uuid.NewString,
		now:         time.Now,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the underlying conversation store.
func (m *Manager) Store() ports.ConversationStore {
	return m.store
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must pair it with release.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry when it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// Lock acquires the lock of conversation id. It blocks until the lock is free,
// ctx is done, or the lock timeout elapses (domain.ErrLockTimeout).
// Locks are not reentrant: never lock a conversation twice from one request.
func (m *Manager) Lock(ctx context.Context, id string) (*Lease, error) {
	waitCtx, cancel := ctx, context.CancelFunc(func() {})
	if m.lockTimeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, m.lockTimeout)
	}
	defer cancel()

	entry := m.acquire(id)
	select {
	case entry.sem <- struct{}{}:
	case <-waitCtx.Done():
		m.release(id)
		return nil, m.waitError(ctx, id)
	}

	var unlock ports.UnlockFunc
	if m.locker != nil {
		var err error
		unlock, err = m.locker.Lock(waitCtx, id, m.lockTTL)
		if err != nil {
			<-entry.sem
			m.release(id)
			if waitCtx.Err() != nil {
				return nil, m.waitError(ctx, id)
			}
			return nil, fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
	}

	token := m.tokens.Add(1)
	m.mu.Lock()
	entry.holder = token
	m.mu.Unlock()

	return &Lease{m: m, id: id, token: token, entry: entry, unlock: unlock}, nil
}

func (m *Manager) waitError(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fmt.Errorf("%w: conversation %s", domain.ErrLockTimeout, id)
}

// WithLock executes fn while holding the lock of conversation id.
// The context passed to fn carries the lease.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	lease, err := m.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			m.logger.Warn("Failed to release conversation lock", "conversation_id", id, "err", err)
		}
	}()
	return fn(WithLease(ctx, lease))
}

// Held reports whether ctx carries the live lease of conversation id.
func (m *Manager) Held(ctx context.Context, id string) bool {
	lease, ok := ctx.Value(leaseKey{id: id}).(*Lease)
	if !ok || lease.m != m {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return !lease.released && lease.entry.holder == lease.token
}

// Create begins a new conversation for flowID and stores its empty record.
func (m *Manager) Create(ctx context.Context, flowID string) (*domain.Conversation, error) {
	now := m.now().UTC()
	conv := &domain.Conversation{
		ID:             m.newID(),
		FlowID:         flowID,
		NextSnapshotID: 1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := m.store.Save(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to begin conversation: %w", err)
	}
	m.logger.Debug("Conversation started", "conversation_id", conv.ID, "flow_id", flowID)
	return conv, nil
}

// Begin creates a conversation for flowID like Create and returns it locked.
// The caller owns the lease and must release it.
func (m *Manager) Begin(ctx context.Context, flowID string) (*domain.Conversation, *Lease, error) {
	id := m.newID()
	lease, err := m.Lock(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	now := m.now().UTC()
	conv := &domain.Conversation{
		ID:             id,
		FlowID:         flowID,
		NextSnapshotID: 1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := m.store.Save(ctx, conv); err != nil {
		if rerr := lease.Release(context.WithoutCancel(ctx)); rerr != nil {
			m.logger.Warn("Failed to release conversation lock", "conversation_id", id, "err", rerr)
		}
		return nil, nil, fmt.Errorf("failed to begin conversation: %w", err)
	}
	m.logger.Debug("Conversation started", "conversation_id", id, "flow_id", flowID)
	return conv, lease, nil
}

// Load retrieves a conversation record. Reading does not require the lock.
func (m *Manager) Load(ctx context.Context, id string) (*domain.Conversation, error) {
	return m.store.Load(ctx, id)
}

// Save persists a record. ctx must carry the conversation's lease.
func (m *Manager) Save(ctx context.Context, conv *domain.Conversation) error {
	if !m.Held(ctx, conv.ID) {
		return fmt.Errorf("%w: saving conversation %s", domain.ErrLockNotHeld, conv.ID)
	}
	conv.UpdatedAt = m.now().UTC()
	return m.store.Save(ctx, conv)
}

// Delete ends a conversation. ctx must carry the conversation's lease.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if !m.Held(ctx, id) {
		return fmt.Errorf("%w: deleting conversation %s", domain.ErrLockNotHeld, id)
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.logger.Debug("Conversation ended", "conversation_id", id)
	return nil
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Lease is a held conversation lock.
type Lease struct {
	m        *Manager
	id       string
	token    uint64
	entry    *lockEntry
	unlock   ports.UnlockFunc
	released bool
}

// ConversationID returns the id of the locked conversation.
func (l *Lease) ConversationID() string { return l.id }

// ErrLeaseReleased is returned when a lease is released twice.
var ErrLeaseReleased = errors.New("conversation lease already released")

// Release frees the lock. A failing distributed unlock is returned after the
// local lock has been released; the distributed lock then expires via its TTL.
func (l *Lease) Release(ctx context.Context) error {
	l.m.mu.Lock()
	if l.released {
		l.m.mu.Unlock()
		return ErrLeaseReleased
	}
	l.released = true
	l.entry.holder = 0
	l.m.mu.Unlock()

	var err error
	if l.unlock != nil {
		if err = l.unlock(ctx); err != nil {
			err = fmt.Errorf("failed to release distributed lock: %w", err)
		}
	}
	<-l.entry.sem
	l.m.release(l.id)
	return err
}

type leaseKey struct{ id string }

// WithLease returns a context carrying lease, which Manager.Held recognizes.
func WithLease(ctx context.Context, lease *Lease) context.Context {
	return context.WithValue(ctx, leaseKey{id: lease.id}, lease)
}
