package ports_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/ports"
)

// mockStore is a minimal map backed ConversationStore used to check the contract suite itself.
type mockStore struct {
	mu   sync.Mutex
	data map[string]*domain.Conversation
}

func (m *mockStore) Save(ctx context.Context, conv *domain.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[conv.ID] = conv.Clone()
	return nil
}

func (m *mockStore) Load(ctx context.Context, id string) (*domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.data[id]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	return conv.Clone(), nil
}

func (m *mockStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

func (m *mockStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestConversationStore_Contract(t *testing.T) {
	ports.RunConversationStoreContract(t, &mockStore{data: make(map[string]*domain.Conversation)})
}
