/*
Package runner drives flow executions from a terminal or a pipe.

It is a console host for a webflow.Executor: each paused view is shown through
an IOHandler, the user's answer becomes the next request, and redirects are
followed until the flow pauses again or ends. Interrupting the runner leaves a
paused execution in its store, so it can be resumed later by key.

# Key Components

  - Runner: the request loop.
  - IOHandler: decouples how views are shown and commands read.
  - TextHandler: interactive console ("submit guest=Ada").
  - JSONHandler: JSON lines for scripted hosts.

# Usage

	r := runner.NewRunner(executor,
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	res, err := r.Run(ctx, "booking", nil)
	if err != nil {
		log.Fatal(err)
	}
*/
package runner
