// Package feed is the interactive terminal timeline: posts scroll in a viewport
// while the operator types slash commands below it.
package feed

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/aretw0/rekitter"
	"github.com/aretw0/rekitter/internal/presentation/tui"
	"github.com/aretw0/rekitter/pkg/domain"
	"github.com/aretw0/rekitter/pkg/runner"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Rows taken by the header, status line, notice and input.
const chromeHeight = 5

var (
	palette = []string{"#38bdf8", "#818cf8", "#c084fc", "#fb7185", "#f59e0b", "#22c55e"}

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#818cf8"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b"))
	cardStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type eventMsg domain.Event

type closedMsg struct{}

type timelineMsg struct {
	posts []domain.Post
	err   error
}

type commandDoneMsg struct {
	cmd runner.Command
	err error
}

// Option customizes a Model.
type Option func(*Model)

// WithProfile sets the color profile of the chaos meter.
func WithProfile(p termenv.Profile) Option {
	return func(m *Model) {
		m.profile = p
	}
}

// Model is the bubbletea model of the feed.
type Model struct {
	ctx    context.Context
	engine *rekitter.Engine
	events <-chan domain.Event
	cancel func()

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	profile  termenv.Profile

	posts  []domain.Post
	snap   domain.Snapshot
	notice string
	err    error

	width  int
	height int
	ready  bool
}

// New subscribes to eng and returns the feed model. The subscription ends when the
// program quits.
func New(ctx context.Context, eng *rekitter.Engine, opts ...Option) *Model {
	ti := textinput.New()
	ti.Placeholder = "/start 10 The Reformation, /post luther ..., /help"
	ti.Prompt = "> "
	ti.CharLimit = 500
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	events, cancel := eng.Subscribe()
	m := &Model{
		ctx:     ctx,
		engine:  eng,
		events:  events,
		cancel:  cancel,
		input:   ti,
		spinner: sp,
		profile: termenv.Ascii,
		snap:    eng.Snapshot(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init loads the current timeline and starts listening for events.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.loadTimeline, m.waitForEvent)
}

func (m *Model) loadTimeline() tea.Msg {
	posts, err := m.engine.Timeline(m.ctx, domain.OrderAscending)
	return timelineMsg{posts: posts, err: err}
}

func (m *Model) waitForEvent() tea.Msg {
	ev, ok := <-m.events
	if !ok {
		return closedMsg{}
	}
	return eventMsg(ev)
}

func (m *Model) apply(cmd runner.Command) tea.Cmd {
	return func() tea.Msg {
		return commandDoneMsg{cmd: cmd, err: runner.Apply(m.ctx, m.engine, cmd)}
	}
}

// Update handles one message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		h := max(1, msg.Height-chromeHeight)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, h)
			m.ready = true
		} else {
			m.viewport.Width, m.viewport.Height = msg.Width, h
		}
		m.input.Width = max(10, msg.Width-4)
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.Close()
			return m, tea.Quit
		case tea.KeyEnter:
			return m, m.submit()
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case timelineMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.posts = msg.posts
		}
		m.refresh()
		return m, nil

	case eventMsg:
		m.handleEvent(domain.Event(msg))
		return m, m.waitForEvent

	case closedMsg:
		return m, nil

	case commandDoneMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("/%s failed: %w", msg.cmd.Name, msg.err)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submit() tea.Cmd {
	line := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	if line == "" {
		return nil
	}
	m.err, m.notice = nil, ""

	cmd, err := runner.ParseCommand(line)
	if err != nil {
		m.err = err
		return nil
	}
	if cmd.Name == runner.CommandHelp {
		m.notice = runner.Usage
		return nil
	}
	return m.apply(cmd)
}

func (m *Model) handleEvent(ev domain.Event) {
	m.snap = ev.Session
	switch ev.Type {
	case domain.EventTimelineUpdated:
		if ev.Post != nil {
			m.posts = append(m.posts, *ev.Post)
		}
	case domain.EventTimelineReset:
		m.posts = nil
		m.notice = "Timeline cleared."
	case domain.EventTurnSoftFailed:
		m.notice = fmt.Sprintf("@%s hesitates, asking again", ev.SpeakerID)
	case domain.EventGenerationFailed:
		m.err = fmt.Errorf("generation failed: %s", ev.Message)
	case domain.EventSessionChanged:
		if ev.Session.Status == domain.StatusCompleted {
			m.notice = fmt.Sprintf("Debate completed after %d rounds.", ev.Session.RoundsCompleted)
		}
	}
	m.refresh()
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderPosts())
	m.viewport.GotoBottom()
}

func (m *Model) renderPosts() string {
	if len(m.posts) == 0 {
		return mutedStyle.Render("No posts yet. Type /start 10 to begin.")
	}
	width := max(20, m.width-2)
	cards := make([]string, len(m.posts))
	for i, p := range m.posts {
		cards[i] = renderCard(p, width)
	}
	return strings.Join(cards, "\n")
}

func renderCard(p domain.Post, width int) string {
	color := lipgloss.Color(authorColor(p.AuthorID))
	header := lipgloss.NewStyle().Bold(true).Foreground(color).Render(p.AuthorName) + " " +
		mutedStyle.Render(fmt.Sprintf("@%s · %s", p.AuthorID, p.CreatedAt.Format("15:04:05")))
	if p.Manual {
		header += mutedStyle.Render(" · manual")
	}
	return cardStyle.BorderForeground(color).Width(width - 2).Render(header + "\n" + p.Content)
}

func authorColor(id string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return palette[h.Sum32()%uint32(len(palette))]
}

// View renders the feed.
func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := titleStyle.Render("Rekitter")
	if subject := m.snap.Theme.Title; subject != "" && m.snap.Status != domain.StatusIdle {
		title += mutedStyle.Render(" · " + subject)
	}
	status := tui.StatusLine(m.profile)(m.snap)
	if m.snap.Running {
		status = m.spinner.View() + " " + status
	}

	var notice string
	switch {
	case m.err != nil:
		notice = errorStyle.Render(m.err.Error())
	case m.notice != "":
		notice = noticeStyle.Render(m.notice)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.viewport.View(),
		status,
		notice,
		m.input.View(),
	)
}

// Posts returns the posts currently shown.
func (m *Model) Posts() []domain.Post {
	return m.posts
}

// Close ends the event subscription.
func (m *Model) Close() {
	m.cancel()
}

// Run starts the feed as a full-screen program.
func Run(ctx context.Context, eng *rekitter.Engine, opts ...Option) error {
	m := New(ctx, eng, opts...)
	defer m.Close()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
