/*
Package runner implements the activation loop and I/O orchestration for the Rekitter engine.

It acts as the bridge between the engine and the outside world. The runner paces turns,
presents timeline and session events through pluggable handlers, reads operator commands
while a debate runs and stops the debate cleanly on SIGINT or SIGTERM.

# Key Components

  - Runner: runs a started debate to completion (Run) or keeps any running debate
    moving in the background (Autopilot).
  - Handler: decouples how events are presented (TextHandler, JSONHandler).
  - CommandSource: operator commands such as /start, /post, /gen, /stop and /reset.

# Usage

	r := runner.NewRunner(
		runner.WithHandler(runner.NewTextHandler(os.Stdout)),
		runner.WithPacing(3*time.Second),
	)

	if err := eng.Start(ctx, "reformation", 10); err != nil {
		log.Fatal(err)
	}
	if err := r.Run(ctx, eng); err != nil {
		log.Fatal(err)
	}
*/
package runner
