package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/rekitter/pkg/domain"
)

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// StatusRenderer formats a session snapshot as a single status line.
type StatusRenderer func(domain.Snapshot) string

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer
	Status   StatusRenderer

	// Prompt is printed before reading a command. Empty disables it.
	Prompt string

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerInput enables reading operator commands from r.
func WithTextHandlerInput(r io.Reader) TextHandlerOption {
	return func(h *TextHandler) {
		h.Reader = bufio.NewReader(r)
	}
}

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithTextHandlerStatus configures the status line renderer.
func WithTextHandlerStatus(status StatusRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Status = status
	}
}

// NewTextHandler creates a handler writing to w.
func NewTextHandler(w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{Writer: w, Status: PlainStatus}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// PlainStatus is the default status line.
func PlainStatus(s domain.Snapshot) string {
	line := fmt.Sprintf("%s · round %d/%d · chaos %d%%", s.Status, s.RoundsCompleted, s.RoundBudget, s.Chaos)
	if s.NextSpeakerID != "" {
		line += " · next @" + s.NextSpeakerID
	}
	return line
}

// FormatPost renders a post as Markdown.
func FormatPost(p domain.Post) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** `@%s` · %s", p.AuthorName, p.AuthorID, p.CreatedAt.Format("15:04:05"))
	if p.Manual {
		sb.WriteString(" · _manual_")
	}
	sb.WriteString("\n\n")
	sb.WriteString(p.Content)
	return sb.String()
}

func (h *TextHandler) Event(ctx context.Context, ev domain.Event) error {
	switch ev.Type {
	case domain.EventTimelineUpdated:
		if ev.Post == nil {
			return nil
		}
		output := FormatPost(*ev.Post)
		if h.Renderer != nil {
			if rendered, err := h.Renderer(output); err == nil {
				output = rendered
			}
		}
		_, err := fmt.Fprintln(h.Writer, strings.TrimSpace(output))
		return err
	case domain.EventSessionChanged:
		_, err := fmt.Fprintf(h.Writer, "-- %s\n", h.Status(ev.Session))
		return err
	case domain.EventTurnSoftFailed:
		_, err := fmt.Fprintf(h.Writer, "-- @%s hesitates, asking again\n", ev.SpeakerID)
		return err
	case domain.EventGenerationFailed:
		return h.System(ctx, "Generation failed: "+ev.Message)
	case domain.EventTimelineReset:
		return h.System(ctx, "Timeline cleared.")
	}
	return nil
}

func (h *TextHandler) System(ctx context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, "\n[System] %s\n", msg)
	return err
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')

		// If we got text (even with EOF), send it
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}

		if err != nil {
			if err == io.EOF {
				close(h.inputChan)
				return
			}
			h.inputChan <- inputResult{err: err}
			// Backoff for non-fatal errors to prevent CPU spikes on persistent failure
			time.Sleep(50 * time.Millisecond)
		}
	}
}

// Command reads the next valid command. Invalid lines are reported and skipped.
func (h *TextHandler) Command(ctx context.Context) (Command, error) {
	if h.Reader == nil {
		return Command{}, io.EOF
	}
	h.initPump()

	for {
		if h.Prompt != "" {
			fmt.Fprint(h.Writer, h.Prompt)
		}

		select {
		case <-ctx.Done():
			return Command{}, ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return Command{}, io.EOF
			}
			if res.err != nil {
				return Command{}, res.err
			}
			text := strings.TrimSpace(res.text)
			if text == "" {
				continue
			}
			cmd, err := ParseCommand(text)
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v\n", err)
				continue
			}
			return cmd, nil
		}
	}
}
