// Package conversation manages conversation records and the locks that
// serialize access to them.
//
// A conversation is the persistent container of one flow execution: its
// snapshot group and its conversation scope. Every mutation of a record
// happens while holding the conversation's Lease, obtained from Manager.Lock.
// Locks are local semaphores, reference counted and garbage collected on
// release, optionally backed by a ports.DistributedLocker so several
// replicas can share one store.
package conversation
