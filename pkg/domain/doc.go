/*
Package domain contains the pure data types shared by the webflow engine, its
repository and its host adapters.

Nothing in this package performs I/O. Flow definitions live in package engine;
this package only describes the values that cross package boundaries.

# Key Entities

  - Attributes: a named attribute map used for every scope (request, flash, view, flow, conversation).
  - Event: something that happened during a request, identified by an id and optionally qualified by the action that signaled it.
  - Outcome: the result of a flow session that reached an end state.
  - Response: the instruction a host adapter turns into an actual response (render, redirect, nothing).
  - Conversation: the persisted record backing a paused flow execution and its snapshots.
*/
package domain
