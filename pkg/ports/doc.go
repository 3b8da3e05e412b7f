/*
Package ports defines the driven ports (interfaces) of the webflow engine.

These interfaces decouple the engine from its environment, so the same flows
run behind an HTTP handler, a console loop or a test harness, and persist to
memory, files or Redis.

# Key Interfaces

  - ExternalContext: the calling environment of one request (parameters, attribute maps, response instruction).
  - ConversationStore: persists conversation records and their snapshots.
  - DistributedLocker: serializes access to a conversation across replicas.
*/
package ports
