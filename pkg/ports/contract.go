package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunConversationStoreContract runs a suite of tests to verify that a ConversationStore implementation
// adheres to the defined interface contract.
func RunConversationStoreContract(t *testing.T, store ConversationStore) {
	ctx := context.Background()
	convID := "contract-test-conversation-" + time.Now().Format("20060102150405")

	newConversation := func(id string) *domain.Conversation {
		now := time.Now().UTC().Truncate(time.Second)
		return &domain.Conversation{
			ID:             id,
			FlowID:         "booking",
			Scope:          []byte("scope"),
			Snapshots:      []domain.Snapshot{{ID: 1, Data: []byte("one"), CreatedAt: now}},
			NextSnapshotID: 2,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		conv := newConversation(convID)
		conv.Snapshots = append(conv.Snapshots, domain.Snapshot{ID: 2, Data: []byte("two"), CreatedAt: conv.CreatedAt})
		conv.NextSnapshotID = 3

		err := store.Save(ctx, conv)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, convID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, conv.ID, loaded.ID)
		assert.Equal(t, conv.FlowID, loaded.FlowID)
		assert.Equal(t, conv.Scope, loaded.Scope)
		assert.Equal(t, 3, loaded.NextSnapshotID)
		require.Len(t, loaded.Snapshots, 2)
		assert.Equal(t, []byte("one"), loaded.Snapshots[0].Data)
		assert.Equal(t, 2, loaded.Snapshots[1].ID)
	})

	t.Run("Isolation", func(t *testing.T) {
		conv := newConversation(convID)
		require.NoError(t, store.Save(ctx, conv))

		// Mutating the saved value must not affect the stored record.
		conv.Snapshots[0].Data[0] = 'X'
		conv.FlowID = "mutated"

		loaded, err := store.Load(ctx, convID)
		require.NoError(t, err)
		assert.Equal(t, "booking", loaded.FlowID)
		assert.Equal(t, []byte("one"), loaded.Snapshots[0].Data)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+convID)
		assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, newConversation(convID))
		require.NoError(t, err)

		err = store.Delete(ctx, convID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, convID)
		assert.ErrorIs(t, err, domain.ErrConversationNotFound, "Load after Delete should return ErrConversationNotFound")

		assert.NoError(t, store.Delete(ctx, convID), "Deleting twice should not fail")
	})

	t.Run("List", func(t *testing.T) {
		id1 := convID + "-1"
		id2 := convID + "-2"
		_ = store.Save(ctx, newConversation(id1))
		_ = store.Save(ctx, newConversation(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
