package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTimelineUpdated  EventType = "timeline_updated"
	EventTimelineReset    EventType = "timeline_reset"
	EventSessionChanged   EventType = "session_changed"
	EventTurnSoftFailed   EventType = "turn_soft_failed"
	EventGenerationFailed EventType = "generation_failed"
)

// Event is emitted on every timeline or session change so presentation layers
// can update incrementally.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Post      *Post     `json:"post,omitempty"`
	Session   Snapshot  `json:"session"`
	SpeakerID string    `json:"speaker_id,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// TurnEvent describes a scheduled turn for lifecycle hooks.
type TurnEvent struct {
	Timestamp time.Time
	SpeakerID string
	Round     int
	Attempt   int
	Manual    bool
	Duration  time.Duration
	Post      *Post
	Err       error
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnTurnStart         func(context.Context, *TurnEvent)
	OnPostAppended      func(context.Context, *TurnEvent)
	OnSoftFailure       func(context.Context, *TurnEvent)
	OnGenerationFailure func(context.Context, *TurnEvent)
	OnStatusChange      func(context.Context, Snapshot)
}

// ChainHooks merges several hook sets; every non-nil callback runs in order.
func ChainHooks(all ...LifecycleHooks) LifecycleHooks {
	turn := func(pick func(LifecycleHooks) func(context.Context, *TurnEvent)) func(context.Context, *TurnEvent) {
		var fns []func(context.Context, *TurnEvent)
		for _, h := range all {
			if fn := pick(h); fn != nil {
				fns = append(fns, fn)
			}
		}
		if len(fns) == 0 {
			return nil
		}
		return func(ctx context.Context, ev *TurnEvent) {
			for _, fn := range fns {
				fn(ctx, ev)
			}
		}
	}

	var status []func(context.Context, Snapshot)
	for _, h := range all {
		if h.OnStatusChange != nil {
			status = append(status, h.OnStatusChange)
		}
	}

	out := LifecycleHooks{
		OnTurnStart:         turn(func(h LifecycleHooks) func(context.Context, *TurnEvent) { return h.OnTurnStart }),
		OnPostAppended:      turn(func(h LifecycleHooks) func(context.Context, *TurnEvent) { return h.OnPostAppended }),
		OnSoftFailure:       turn(func(h LifecycleHooks) func(context.Context, *TurnEvent) { return h.OnSoftFailure }),
		OnGenerationFailure: turn(func(h LifecycleHooks) func(context.Context, *TurnEvent) { return h.OnGenerationFailure }),
	}
	if len(status) > 0 {
		out.OnStatusChange = func(ctx context.Context, s Snapshot) {
			for _, fn := range status {
				fn(ctx, s)
			}
		}
	}
	return out
}
