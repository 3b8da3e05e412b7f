package domain

import "errors"

// ErrConversationNotFound is returned by stores when a conversation id is unknown or has expired.
var ErrConversationNotFound = errors.New("conversation not found")

// ErrNoSuchFlowExecution marks lookups of flow executions that do not exist anymore.
// Host adapters use it to tell an expired session apart from an operational failure.
var ErrNoSuchFlowExecution = errors.New("no such flow execution")

// ErrBadKeyFormat is returned when a flow execution key string cannot be parsed.
var ErrBadKeyFormat = errors.New("bad flow execution key format")

// ErrLockTimeout is returned when a conversation lock could not be acquired in time.
var ErrLockTimeout = errors.New("timed out acquiring conversation lock")

// ErrLockNotHeld is returned when a repository mutation is attempted without holding the conversation lock.
var ErrLockNotHeld = errors.New("conversation lock not held")

// ErrNoSuchFlow is returned when a flow id cannot be resolved to a definition.
var ErrNoSuchFlow = errors.New("no such flow definition")
