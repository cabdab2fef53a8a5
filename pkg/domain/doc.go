/*
Package domain contains the core models of the Rekitter debate engine.

It defines the entities that flow between the scheduler, the prompt composer and
the presentation layers. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Character: A participant of the debate, loaded once from the roster.
  - PersonaPolicy: Fixed beliefs and forbidden positions of a character.
  - Post: One immutable entry of the timeline.
  - Session: The live debate state (status, round budget, chaos, last speaker).
  - Theme: The topic under debate and the speakers it admits.
  - Event: A notification emitted on every timeline or session change.
*/
package domain
