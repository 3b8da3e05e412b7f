// Package runtime executes flow definitions.
//
// An Execution is one running instance of a flow: a stack of flow sessions
// (the root flow first, then any active subflows), the conversation and
// flash scopes, and the execution key assigned at each pause point. Each
// call to Start or Resume processes one request through a request context
// that implements engine.RequestControlContext.
//
// Executions are not safe for concurrent use; the repository serializes
// access to a conversation with its lock.
package runtime
