package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/webflow/pkg/adapters/memory"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunConversationStoreContract(t, memory.NewStore())
}

func TestMemoryStore_BoundedContract(t *testing.T) {
	ports.RunConversationStoreContract(t, memory.NewStore(memory.WithMaxConversations(10)))
}

func TestMemoryStore_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(memory.WithMaxConversations(2))

	require.NoError(t, store.Save(ctx, &domain.Conversation{ID: "a"}))
	require.NoError(t, store.Save(ctx, &domain.Conversation{ID: "b"}))
	_, err := store.Load(ctx, "a") // a becomes most recently used
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, &domain.Conversation{ID: "c"}))

	_, err = store.Load(ctx, "b")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids)
}
