package repository

import (
	"context"

	"github.com/aretw0/webflow/pkg/conversation"
)

// Lock guards the conversation behind a flow execution key. Locking an
// already locked Lock only increments a counter; Unlock releases the
// conversation when the counter drops to zero. A Lock is owned by one request
// and is not safe for concurrent use.
type Lock struct {
	conversations  *conversation.Manager
	conversationID string
	lease          *conversation.Lease
	depth          int
}

// Lock acquires the conversation lock. The returned context carries the lock
// and must be used for the repository mutations made while holding it.
func (l *Lock) Lock(ctx context.Context) (context.Context, error) {
	if l.lease != nil {
		l.depth++
		return conversation.WithLease(ctx, l.lease), nil
	}
	lease, err := l.conversations.Lock(ctx, l.conversationID)
	if err != nil {
		return ctx, err
	}
	l.lease = lease
	l.depth = 1
	return conversation.WithLease(ctx, lease), nil
}

// Unlock releases one acquisition. Unlocking a lock that is not held is a no-op.
func (l *Lock) Unlock(ctx context.Context) error {
	if l.lease == nil {
		return nil
	}
	l.depth--
	if l.depth > 0 {
		return nil
	}
	lease := l.lease
	l.lease = nil
	return lease.Release(ctx)
}

// ConversationID returns the id of the guarded conversation.
func (l *Lock) ConversationID() string { return l.conversationID }
