package ports

import (
	"context"

	"github.com/aretw0/webflow/pkg/domain"
)

// ConversationStore defines the interface for persisting conversation records.
// Implementations must not retain or share the record passed to Save: later
// mutations by the caller must not leak into the store.
type ConversationStore interface {
	// Save persists the record under its ID, replacing any previous version.
	Save(ctx context.Context, conv *domain.Conversation) error

	// Load retrieves the record for a conversation id.
	// Returns domain.ErrConversationNotFound if the conversation does not exist or has been evicted.
	Load(ctx context.Context, id string) (*domain.Conversation, error)

	// Delete removes the record. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the ids of stored conversations.
	List(ctx context.Context) ([]string, error)
}
