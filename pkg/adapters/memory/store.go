// Package memory provides an in-process ConversationStore.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/webflow/pkg/domain"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Store implements ports.ConversationStore in memory.
// Safe for concurrent use. When created with a maximum, the least recently
// used conversation is evicted once the maximum is exceeded.
type Store struct {
	mu    sync.Mutex
	data  map[string]*domain.Conversation
	cache *lru.Cache[string, *domain.Conversation]
}

// Option configures a Store.
type Option func(*Store)

// WithMaxConversations bounds the number of stored conversations. Values <= 0 mean unbounded.
func WithMaxConversations(n int) Option {
	return func(s *Store) {
		if n <= 0 {
			s.cache = nil
			return
		}
		cache, err := lru.New[string, *domain.Conversation](n)
		if err == nil {
			s.cache = cache
		}
	}
}

// NewStore creates a new in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{data: make(map[string]*domain.Conversation)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save stores a copy of the record.
func (s *Store) Save(ctx context.Context, conv *domain.Conversation) error {
	copied := conv.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache != nil {
		s.cache.Add(conv.ID, copied)
		return nil
	}
	s.data[conv.ID] = copied
	return nil
}

// Load returns a copy of the record, so callers cannot mutate the store through it.
func (s *Store) Load(ctx context.Context, id string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		conv *domain.Conversation
		ok   bool
	)
	if s.cache != nil {
		conv, ok = s.cache.Get(id)
	} else {
		conv, ok = s.data[id]
	}
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	return conv.Clone(), nil
}

// Delete removes the record.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache != nil {
		s.cache.Remove(id)
		return nil
	}
	delete(s.data, id)
	return nil
}

// List returns the stored conversation ids in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	if s.cache != nil {
		ids = s.cache.Keys()
	} else {
		ids = make([]string, 0, len(s.data))
		for id := range s.data {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
