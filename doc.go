/*
Package webflow is a flow engine for multi-request user dialogs.

A flow is an explicit state machine. It runs until it reaches a view state,
pauses there while the user looks at the rendered view, and resumes when the
next request arrives with the flow execution key. Between requests the paused
execution is serialized into a conversation, so any replica sharing the
conversation store can continue it.

# Concept

Flows are made of states: action states run application code, view states
render and wait for a user event, decision states branch on expressions,
subflow states spawn child flows and end states finish the flow with an
outcome. The host (HTTP handler, console loop, test) owns the I/O: it passes
request parameters in through a ports.ExternalContext and turns the recorded
response instruction (render, redirect) into an actual response.

# Key Features

  - Back button support: every pause gets its own key and snapshot.
  - Post-redirect-get: view states can redirect before rendering so refreshes never resubmit.
  - Safe concurrency: each conversation is locked for the whole restore, resume and store cycle.
  - Pluggable storage: memory (LRU bounded), files or Redis with distributed locks.

# Usage

	b := dsl.New("signup")
	b.View("form", "signupForm").Model("account").On("submit", "done")
	b.End("done").Output(dsl.M{From: "account"})

	flows := registry.NewRegistry()
	if err := flows.RegisterFlow(b.MustBuild()); err != nil {
		log.Fatal(err)
	}
	exec := webflow.New(flows)

	// First request: launch and render the form.
	ext := external.New(nil)
	res, err := exec.Launch(ctx, "signup", nil, ext)

	// Next request: resume with the submitted form.
	ext = external.New(domain.Attributes{"_eventId": "submit", "email": "ada@example.com"})
	res, err = exec.Resume(ctx, res.Key, ext)
*/
package webflow
