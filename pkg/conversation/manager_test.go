package conversation_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/webflow/pkg/adapters/memory"
	redisadapter "github.com/aretw0/webflow/pkg/adapters/redis"
	"github.com/aretw0/webflow/pkg/conversation"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_CreateAndLoad(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mgr := conversation.NewManager(memory.NewStore(),
		conversation.WithIDGenerator(func() string { return "c1" }),
		conversation.WithClock(func() time.Time { return fixed }),
	)

	conv, err := mgr.Create(ctx, "booking")
	require.NoError(t, err)
	assert.Equal(t, "c1", conv.ID)
	assert.Equal(t, 1, conv.NextSnapshotID)

	loaded, err := mgr.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "booking", loaded.FlowID)
	assert.True(t, loaded.CreatedAt.Equal(fixed))
}

func TestManager_BeginReturnsLockedConversation(t *testing.T) {
	ctx := context.Background()
	mgr := conversation.NewManager(memory.NewStore(),
		conversation.WithIDGenerator(func() string { return "c1" }),
		conversation.WithLockTimeout(50*time.Millisecond),
	)

	conv, lease, err := mgr.Begin(ctx, "booking")
	require.NoError(t, err)
	assert.Equal(t, "c1", conv.ID)
	assert.Equal(t, "c1", lease.ConversationID())

	leased := conversation.WithLease(ctx, lease)
	assert.True(t, mgr.Held(leased, "c1"))
	require.NoError(t, mgr.Save(leased, conv))

	_, err = mgr.Lock(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrLockTimeout)

	require.NoError(t, lease.Release(ctx))
	other, err := mgr.Lock(ctx, "c1")
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))
}

func TestManager_MutationsRequireLease(t *testing.T) {
	ctx := context.Background()
	mgr := conversation.NewManager(memory.NewStore())
	conv, err := mgr.Create(ctx, "booking")
	require.NoError(t, err)

	err = mgr.Save(ctx, conv)
	assert.ErrorIs(t, err, domain.ErrLockNotHeld)
	err = mgr.Delete(ctx, conv.ID)
	assert.ErrorIs(t, err, domain.ErrLockNotHeld)

	err = mgr.WithLock(ctx, conv.ID, func(ctx context.Context) error {
		assert.True(t, mgr.Held(ctx, conv.ID))
		conv.Scope = []byte("scope")
		return mgr.Save(ctx, conv)
	})
	require.NoError(t, err)

	loaded, err := mgr.Load(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("scope"), loaded.Scope)
}

func TestManager_ReleasedLeaseIsNotHeld(t *testing.T) {
	ctx := context.Background()
	mgr := conversation.NewManager(memory.NewStore())

	lease, err := mgr.Lock(ctx, "c1")
	require.NoError(t, err)
	leased := conversation.WithLease(ctx, lease)
	assert.True(t, mgr.Held(leased, "c1"))
	assert.False(t, mgr.Held(leased, "c2"))

	require.NoError(t, lease.Release(ctx))
	assert.False(t, mgr.Held(leased, "c1"))
	assert.ErrorIs(t, lease.Release(ctx), conversation.ErrLeaseReleased)

	other := conversation.NewManager(memory.NewStore())
	lease, err = mgr.Lock(ctx, "c1")
	require.NoError(t, err)
	defer lease.Release(ctx)
	assert.False(t, other.Held(conversation.WithLease(ctx, lease), "c1"))
}

func TestManager_SerializesHolders(t *testing.T) {
	ctx := context.Background()
	mgr := conversation.NewManager(memory.NewStore())

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := mgr.WithLock(ctx, "shared", func(ctx context.Context) error {
				n := inside.Add(1)
				for {
					m := maxInside.Load()
					if n <= m || maxInside.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside.Load())
}

func TestManager_LockTimeout(t *testing.T) {
	ctx := context.Background()
	mgr := conversation.NewManager(memory.NewStore(), conversation.WithLockTimeout(20*time.Millisecond))

	lease, err := mgr.Lock(ctx, "c1")
	require.NoError(t, err)
	defer lease.Release(ctx)

	_, err = mgr.Lock(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrLockTimeout)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = mgr.Lock(cancelled, "c1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestManager_DistributedLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	locker := redisadapter.NewLocker(client, "test:", redisadapter.WithPollInterval(5*time.Millisecond))
	replicaA := conversation.NewManager(memory.NewStore(), conversation.WithLocker(locker))
	replicaB := conversation.NewManager(memory.NewStore(), conversation.WithLocker(locker),
		conversation.WithLockTimeout(50*time.Millisecond))

	lease, err := replicaA.Lock(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:c1"))

	_, err = replicaB.Lock(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrLockTimeout)

	require.NoError(t, lease.Release(ctx))
	assert.False(t, mr.Exists("test:lock:c1"))

	lease, err = replicaB.Lock(ctx, "c1")
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))
}

type failingLocker struct{}

func (failingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	return nil, errors.New("backend down")
}

func TestManager_DistributedLockFailureReleasesLocal(t *testing.T) {
	ctx := context.Background()
	mgr := conversation.NewManager(memory.NewStore(), conversation.WithLocker(failingLocker{}))

	_, err := mgr.Lock(ctx, "c1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend down")

	_, err = mgr.Lock(ctx, "c1")
	assert.Contains(t, err.Error(), "backend down", "local lock must not stay held")
}
