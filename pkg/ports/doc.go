/*
Package ports defines the driven ports (interfaces) for the Rekitter engine.

These interfaces decouple the turn scheduler from external implementations, allowing
the engine to work with various generation services, timeline stores and event sinks.

# Key Interfaces

  - Generator: Produces the text of a post from composed instructions (OpenAI, Gemini, scripted).
  - TimelineStore: Append-only, ordered collection of posts.
  - EventPublisher: Fan-out of timeline and session events (in-process bus, Redis pub/sub).
  - DistributedLocker: Provides distributed locking so only one writer activates a turn.
*/
package ports
