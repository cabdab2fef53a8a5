/*
Package rekitter simulates a debate between historical figures and presents it as a social feed.

Characters are loaded from a roster (a JSON or YAML file, or a directory of Markdown documents
read through Loam). A debate is started on a theme with a round budget; every activation asks
the next speaker for a short post, sanitizes the reply and appends it to the timeline. Two primary
speakers alternate; interjectors occasionally take a turn and a chaos meter grows with every post.

# Usage

	reg, err := registry.Load("characters.json")
	if err != nil {
		log.Fatal(err)
	}

	eng, err := rekitter.New(reg, rekitter.WithGenerator(openaiClient))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := eng.Start(ctx, "reformation", 10); err != nil {
		log.Fatal(err)
	}
	for eng.Snapshot().Running {
		if _, err := eng.Activate(ctx); err != nil {
			log.Fatal(err)
		}
	}

The engine does not pace itself. Hosts drive Activate on their own cadence; pkg/runner provides
the paced loop used by the CLI and the HTTP server.

# Concurrency

Start, Activate and the manual operations are serialized per debate by a session lock, optionally
backed by a distributed lock (see pkg/adapters/redis). Stop and ResetHistory never wait for a turn
in flight: a reply that arrives after a reset is discarded.

# Events

Subscribe returns a channel of timeline and session events for incremental rendering. Additional
sinks (Redis pub/sub, Prometheus gauges) are attached with WithPublisher.
*/
package rekitter
