package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/aretw0/rekitter/internal/logging"
	"github.com/aretw0/rekitter/pkg/composer"
	"github.com/aretw0/rekitter/pkg/domain"
	"github.com/aretw0/rekitter/pkg/ports"
	"github.com/aretw0/rekitter/pkg/registry"
	"github.com/aretw0/rekitter/pkg/sanitizer"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/aretw0/rekitter/internal/runtime"

// Scheduler is the turn orchestration state machine (idle, running, completed).
//
// Write operations (Start, Activate, ManualPost, ManualGenerate) must be serialized by
// the caller; see session.Manager. Stop, ResetHistory and the read operations may be
// called at any time: the session itself is guarded by an internal mutex that is never
// held across a generation call.
type Scheduler struct {
	registry   *registry.Registry
	store      ports.TimelineStore
	generator  ports.Generator
	composer   *composer.Composer
	publishers []ports.EventPublisher
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	tracer     trace.Tracer
	settings   Settings
	now        func() time.Time

	mu      sync.Mutex
	rng     *rand.Rand
	session *domain.Session
	chaos   *ChaosTracker
}

// New creates a scheduler over the given roster, timeline and generation service.
func New(reg *registry.Registry, store ports.TimelineStore, gen ports.Generator, opts ...Option) *Scheduler {
	seed := uint64(time.Now().UnixNano())
	s := &Scheduler{
		registry:  reg,
		store:     store,
		generator: gen,
		composer:  composer.New(),
		logger:    logging.NewNop(),
		tracer:    otel.Tracer(tracerName),
		settings:  DefaultSettings(),
		now:       time.Now,
		rng:       rand.New(rand.NewPCG(seed, seed>>1)),
		session:   domain.NewSession(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.chaos = NewChaosTracker(s.settings.ChaosIncrement)
	return s
}

// Registry returns the roster the scheduler draws speakers from.
func (s *Scheduler) Registry() *registry.Registry { return s.registry }

// Settings returns the active tunables.
func (s *Scheduler) Settings() Settings { return s.settings }

// Snapshot returns the current session view.
func (s *Scheduler) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Snapshot()
}

// Timeline returns every post in the requested order.
func (s *Scheduler) Timeline(ctx context.Context, order domain.Order) ([]domain.Post, error) {
	return s.store.List(ctx, order)
}

// Start moves an idle or completed session to running and picks the opening speaker,
// the first primary of the theme in roster order.
func (s *Scheduler) Start(ctx context.Context, theme domain.Theme, budget int) error {
	if budget < 1 {
		return fmt.Errorf("%w: got %d", domain.ErrInvalidBudget, budget)
	}
	primaries, err := s.registry.Primaries(theme)
	if err != nil {
		return fmt.Errorf("resolving primaries of theme %q: %w", theme.ID, err)
	}
	if len(primaries) == 0 {
		return domain.ErrNoSpeakers
	}
	if _, err := s.registry.Interjectors(theme); err != nil {
		return fmt.Errorf("resolving interjections of theme %q: %w", theme.ID, err)
	}

	s.mu.Lock()
	sess := s.session
	if sess.Running() {
		s.mu.Unlock()
		return domain.ErrAlreadyRunning
	}
	sess.Status = domain.StatusRunning
	sess.Theme = theme
	sess.RoundBudget = budget
	sess.RoundsCompleted = 0
	sess.SoftFailures = 0
	sess.LastSpeakerID = ""
	sess.LastSpoke = make(map[string]int)
	sess.NextSpeakerID = primaries[0].ID
	snap := sess.Snapshot()
	s.mu.Unlock()

	s.logger.Info("Debate started",
		"theme", theme.Subject(),
		"rounds", budget,
		"opening", snap.NextSpeakerID,
	)
	s.statusChanged(ctx, snap)
	return nil
}

// Stop moves a running session to idle. It never waits for an in-flight generation call;
// a reply that arrives afterwards may still be appended.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.session.Running() {
		s.mu.Unlock()
		return nil
	}
	s.session.Status = domain.StatusIdle
	snap := s.session.Snapshot()
	s.mu.Unlock()

	s.logger.Info("Debate stopped", "rounds_completed", snap.RoundsCompleted)
	s.statusChanged(ctx, snap)
	return nil
}

// ResetHistory clears the timeline, zeroes chaos and returns the session to idle.
// Replies still in flight are discarded when they arrive.
func (s *Scheduler) ResetHistory(ctx context.Context) error {
	s.mu.Lock()
	if err := s.store.Reset(ctx); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("resetting timeline: %w", err)
	}
	prev := s.session
	s.session = domain.NewSession()
	s.session.Epoch = prev.Epoch + 1
	s.session.Theme = prev.Theme
	s.chaos.Reset()
	snap := s.session.Snapshot()
	s.mu.Unlock()

	s.logger.Info("History reset")
	s.emit(ctx, domain.Event{Type: domain.EventTimelineReset, Session: snap})
	s.statusChanged(ctx, snap)
	return nil
}

// Activate runs one scheduled turn: at most one generation call, then the session update.
// It is a no-op while the session is not running.
func (s *Scheduler) Activate(ctx context.Context) (domain.TurnResult, error) {
	s.mu.Lock()
	if !s.session.Running() {
		res := domain.TurnResult{Outcome: domain.OutcomeIdle, Snapshot: s.session.Snapshot()}
		s.mu.Unlock()
		return res, nil
	}
	speakerID := s.session.NextSpeakerID
	st := s.captureLocked()
	s.mu.Unlock()

	return s.turn(ctx, speakerID, true, st)
}

// turnState is the session view a turn runs against. It is captured in the same
// critical section that picks the speaker, so a reset in between is seen as a new epoch.
type turnState struct {
	epoch   int
	theme   domain.Theme
	round   int
	attempt int
}

func (s *Scheduler) captureLocked() turnState {
	return turnState{
		epoch:   s.session.Epoch,
		theme:   s.session.Theme,
		round:   s.session.RoundsCompleted + 1,
		attempt: s.session.SoftFailures + 1,
	}
}

// ManualGenerate asks a specific character for a post outside the schedule.
// It never advances the round counter.
func (s *Scheduler) ManualGenerate(ctx context.Context, speakerID string) (domain.TurnResult, error) {
	if _, err := s.registry.Get(speakerID); err != nil {
		return domain.TurnResult{}, err
	}
	s.mu.Lock()
	st := s.captureLocked()
	s.mu.Unlock()
	return s.turn(ctx, speakerID, false, st)
}

// ManualPost appends operator text as a post by speakerID. Empty text is ignored
// and returns a nil post without error.
func (s *Scheduler) ManualPost(ctx context.Context, speakerID, text string) (*domain.Post, error) {
	clean, err := sanitizer.Input(text)
	if err != nil {
		return nil, fmt.Errorf("manual post rejected: %w", err)
	}
	if clean == "" {
		s.logger.Debug("Ignoring empty manual post", "speaker", speakerID)
		return nil, nil
	}
	speaker, err := s.registry.Get(speakerID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	epoch := s.session.Epoch
	s.mu.Unlock()

	ev := &domain.TurnEvent{Timestamp: s.now(), SpeakerID: speaker.ID, Manual: true}
	res, err := s.commit(ctx, speaker, clean, epoch, false, true, ev)
	return res.Post, err
}

func (s *Scheduler) turn(ctx context.Context, speakerID string, scheduled bool, st turnState) (domain.TurnResult, error) {
	epoch, round := st.epoch, st.round

	speaker, err := s.registry.Get(speakerID)
	if err != nil {
		return domain.TurnResult{}, err
	}

	history, err := s.store.Recent(ctx, s.composer.Window())
	if err != nil {
		return domain.TurnResult{}, fmt.Errorf("reading timeline: %w", err)
	}

	prompt := s.composer.Compose(composer.Input{
		Speaker: speaker,
		Policy:  s.registry.Policy(speaker.ID),
		Theme:   st.theme,
		History: history,
	})

	ev := &domain.TurnEvent{
		Timestamp: s.now(),
		SpeakerID: speaker.ID,
		Round:     round,
		Attempt:   st.attempt,
		Manual:    !scheduled,
	}
	if s.hooks.OnTurnStart != nil {
		s.hooks.OnTurnStart(ctx, ev)
	}

	started := time.Now()
	raw, genErr := s.generate(ctx, speaker, round, prompt)
	ev.Duration = time.Since(started)
	if genErr != nil {
		return s.failGeneration(ctx, speaker.ID, epoch, ev, genErr)
	}

	content, err := sanitizer.Response(raw, s.composer.RenderLimit(), speaker.Name, speaker.ID)
	if err != nil {
		return s.softFail(ctx, speaker.ID, epoch, scheduled, ev)
	}
	return s.commit(ctx, speaker, content, epoch, scheduled, false, ev)
}

func (s *Scheduler) generate(ctx context.Context, speaker domain.Character, round int, prompt composer.Prompt) (string, error) {
	ctx, span := s.tracer.Start(ctx, "rekitter.generate", trace.WithAttributes(
		attribute.String("rekitter.speaker", speaker.ID),
		attribute.Int("rekitter.round", round),
		attribute.Int("rekitter.context_turns", len(prompt.Context)),
	))
	defer span.End()

	text, err := s.generator.Generate(ctx, ports.GenerationRequest{
		Instructions:  prompt.Instructions,
		Context:       prompt.Context,
		MaxTokens:     s.settings.MaxTokens,
		Temperature:   s.settings.Temperature,
		StopSequences: s.settings.StopSequences,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.Int("rekitter.reply_length", len(text)))
	return text, nil
}

func (s *Scheduler) commit(ctx context.Context, speaker domain.Character, content string, epoch int, scheduled, manual bool, ev *domain.TurnEvent) (domain.TurnResult, error) {
	s.mu.Lock()
	sess := s.session
	if sess.Epoch != epoch {
		snap := sess.Snapshot()
		s.mu.Unlock()
		s.logger.Warn("Discarding reply that arrived after a reset", "speaker", speaker.ID)
		return domain.TurnResult{Outcome: domain.OutcomeDiscarded, SpeakerID: speaker.ID, Snapshot: snap}, nil
	}

	post, err := s.store.Append(ctx, domain.Post{
		AuthorID:   speaker.ID,
		AuthorName: speaker.Name,
		Avatar:     speaker.Avatar,
		Content:    content,
		Manual:     manual,
		CreatedAt:  s.now(),
	})
	if err != nil {
		s.mu.Unlock()
		return domain.TurnResult{}, fmt.Errorf("appending post: %w", err)
	}

	sess.Chaos = s.chaos.Increment()
	sess.LastSpeakerID = speaker.ID
	sess.LastSpoke[speaker.ID] = post.Sequence
	sess.SoftFailures = 0

	completed := false
	if sess.Running() {
		if scheduled {
			sess.RoundsCompleted++
			if sess.RoundsCompleted >= sess.RoundBudget {
				sess.Status = domain.StatusCompleted
				sess.NextSpeakerID = ""
				completed = true
			}
		}
		// Manual posts also re-plan, so the speaker who just posted is not scheduled next.
		if sess.Running() {
			sess.NextSpeakerID = s.selectNext(sess)
		}
	}
	snap := sess.Snapshot()
	s.mu.Unlock()

	s.logger.Debug("Post appended",
		"speaker", speaker.ID,
		"sequence", post.Sequence,
		"rounds_completed", snap.RoundsCompleted,
		"chaos", snap.Chaos,
		"manual", manual,
	)

	ev.Post = &post
	if s.hooks.OnPostAppended != nil {
		s.hooks.OnPostAppended(ctx, ev)
	}
	s.emit(ctx, domain.Event{Type: domain.EventTimelineUpdated, Post: &post, SpeakerID: speaker.ID, Session: snap})
	if completed {
		s.logger.Info("Debate completed", "rounds", snap.RoundsCompleted)
		s.statusChanged(ctx, snap)
	}

	return domain.TurnResult{Outcome: domain.OutcomeAppended, SpeakerID: speaker.ID, Post: &post, Snapshot: snap}, nil
}

func (s *Scheduler) softFail(ctx context.Context, speakerID string, epoch int, scheduled bool, ev *domain.TurnEvent) (domain.TurnResult, error) {
	s.mu.Lock()
	sess := s.session
	if sess.Epoch != epoch {
		snap := sess.Snapshot()
		s.mu.Unlock()
		return domain.TurnResult{Outcome: domain.OutcomeDiscarded, SpeakerID: speakerID, Snapshot: snap}, nil
	}
	attempts := 1
	if scheduled {
		sess.SoftFailures++
		attempts = sess.SoftFailures
	}
	snap := sess.Snapshot()
	s.mu.Unlock()

	if scheduled && attempts >= s.settings.SoftFailureRetries {
		cause := fmt.Errorf("%w: %d consecutive unusable replies", domain.ErrSoftFailure, attempts)
		return s.failGeneration(ctx, speakerID, epoch, ev, cause)
	}

	s.logger.Warn("Reply held nothing usable, speaker will retry",
		"speaker", speakerID,
		"attempt", attempts,
		"max_attempts", s.settings.SoftFailureRetries,
	)
	ev.Err = domain.ErrSoftFailure
	if s.hooks.OnSoftFailure != nil {
		s.hooks.OnSoftFailure(ctx, ev)
	}
	s.emit(ctx, domain.Event{
		Type:      domain.EventTurnSoftFailed,
		SpeakerID: speakerID,
		Message:   domain.ErrSoftFailure.Error(),
		Session:   snap,
	})
	return domain.TurnResult{Outcome: domain.OutcomeSoftFailure, SpeakerID: speakerID, Snapshot: snap}, nil
}

func (s *Scheduler) failGeneration(ctx context.Context, speakerID string, epoch int, ev *domain.TurnEvent, cause error) (domain.TurnResult, error) {
	genErr := &domain.GenerationError{SpeakerID: speakerID, Err: cause}

	s.mu.Lock()
	sess := s.session
	if sess.Epoch != epoch {
		snap := sess.Snapshot()
		s.mu.Unlock()
		return domain.TurnResult{Outcome: domain.OutcomeDiscarded, SpeakerID: speakerID, Snapshot: snap}, nil
	}
	stopped := sess.Running()
	if stopped {
		sess.Status = domain.StatusIdle
	}
	sess.SoftFailures = 0
	snap := sess.Snapshot()
	s.mu.Unlock()

	s.logger.Error("Generation failed, debate stopped", "speaker", speakerID, "err", cause)
	ev.Err = genErr
	if s.hooks.OnGenerationFailure != nil {
		s.hooks.OnGenerationFailure(ctx, ev)
	}
	s.emit(ctx, domain.Event{
		Type:      domain.EventGenerationFailed,
		SpeakerID: speakerID,
		Message:   genErr.Error(),
		Session:   snap,
	})
	if stopped {
		s.statusChanged(ctx, snap)
	}
	return domain.TurnResult{Outcome: domain.OutcomeFailed, SpeakerID: speakerID, Snapshot: snap}, genErr
}

func (s *Scheduler) statusChanged(ctx context.Context, snap domain.Snapshot) {
	if s.hooks.OnStatusChange != nil {
		s.hooks.OnStatusChange(ctx, snap)
	}
	s.emit(ctx, domain.Event{Type: domain.EventSessionChanged, Session: snap})
}

func (s *Scheduler) emit(ctx context.Context, ev domain.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now()
	}
	for _, p := range s.publishers {
		if err := p.Publish(ctx, ev); err != nil {
			s.logger.Warn("Failed to publish event", "type", ev.Type, "err", err)
		}
	}
}
