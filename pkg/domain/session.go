package domain

// Status is the lifecycle state of a debate session.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
)

// MaxChaos is the upper bound of the chaos level.
const MaxChaos = 100

// Session is the live debate state. It is owned by the scheduler and mutated once per turn.
type Session struct {
	Status          Status
	Theme           Theme
	RoundBudget     int
	RoundsCompleted int
	Chaos           int
	NextSpeakerID   string
	LastSpeakerID   string
	// LastSpoke maps a character id to the timeline sequence of its latest post.
	LastSpoke    map[string]int
	SoftFailures int
	// Epoch changes on every reset so in-flight results can be discarded.
	Epoch int
}

// NewSession returns an idle session with nothing spoken yet.
func NewSession() *Session {
	return &Session{
		Status:    StatusIdle,
		LastSpoke: make(map[string]int),
	}
}

// Running reports whether turns are being scheduled.
func (s *Session) Running() bool {
	return s.Status == StatusRunning
}

// Snapshot returns a read-only copy suitable for presentation.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Status:          s.Status,
		Running:         s.Running(),
		Theme:           s.Theme,
		RoundBudget:     s.RoundBudget,
		RoundsCompleted: s.RoundsCompleted,
		Chaos:           s.Chaos,
		NextSpeakerID:   s.NextSpeakerID,
		LastSpeakerID:   s.LastSpeakerID,
	}
}

// Snapshot is the presentation view of a Session.
type Snapshot struct {
	Status          Status `json:"status"`
	Running         bool   `json:"running"`
	Theme           Theme  `json:"theme"`
	RoundBudget     int    `json:"round_budget"`
	RoundsCompleted int    `json:"rounds_completed"`
	Chaos           int    `json:"chaos"`
	NextSpeakerID   string `json:"next_speaker_id,omitempty"`
	LastSpeakerID   string `json:"last_speaker_id,omitempty"`
}

// TurnOutcome describes what a single activation did.
type TurnOutcome string

const (
	// OutcomeAppended means a post was added to the timeline.
	OutcomeAppended TurnOutcome = "appended"
	// OutcomeSoftFailure means the response was discarded and the same speaker will retry.
	OutcomeSoftFailure TurnOutcome = "soft_failure"
	// OutcomeIdle means the session was not running and nothing happened.
	OutcomeIdle TurnOutcome = "idle"
	// OutcomeFailed means the generation service failed and the session stopped.
	OutcomeFailed TurnOutcome = "failed"
	// OutcomeDiscarded means the history was reset while the call was in flight.
	OutcomeDiscarded TurnOutcome = "discarded"
)

// TurnResult is returned by every activation.
type TurnResult struct {
	Outcome   TurnOutcome `json:"outcome"`
	SpeakerID string      `json:"speaker_id,omitempty"`
	Post      *Post       `json:"post,omitempty"`
	Snapshot  Snapshot    `json:"session"`
}
