/*
Package engine contains the flow definition model and the state machine that
drives it.

A Flow is an immutable graph of states. States come in five kinds, each a
concrete type behind the sealed State interface:

  - ActionState runs actions and transitions on the first result event that matches.
  - ViewState pauses the execution and renders a view; the next request resumes it.
  - SubflowState starts a child flow and transitions on its outcome.
  - DecisionState routes on boolean expressions.
  - EndState ends the active flow session, returning control to the parent flow if any.

Definitions hold no per-execution data. Everything mutable lives behind the
RequestControlContext handed to every operation, which the runtime package
implements. A single Flow value can therefore serve any number of concurrent
executions.

Building a flow:

	f := engine.NewFlow("booking")
	engine.NewActionState(f, engine.ActionStateConfig{
		ID:          "setup",
		Actions:     []engine.Action{setup},
		Transitions: []*engine.Transition{engine.NewTransition(engine.On("success"), engine.To("enterDetails"))},
	})
	...
	if err := f.Freeze(); err != nil { ... }

Most callers use package dsl or YAML definitions instead of these constructors.
*/
package engine
