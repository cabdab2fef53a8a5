package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/rekitter/pkg/domain"
)

// JSONHandler implements Handler and CommandSource for JSON-Lines communication.
// Every event is written as one line; commands are read one per line either as
// {"command":"post","speaker":"luther","text":"..."} or as a slash command.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder

	mu sync.Mutex
}

// systemMessage is the line written for System calls.
type systemMessage struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
}

// NewJSONHandler creates a handler for JSON IO. r may be nil when no commands are expected.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if w == nil {
		w = os.Stdout
	}
	h := &JSONHandler{
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
	if r != nil {
		h.Reader = bufio.NewReader(r)
	}
	return h
}

func (h *JSONHandler) Event(ctx context.Context, ev domain.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Encoder.Encode(ev)
}

func (h *JSONHandler) System(ctx context.Context, msg string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Encoder.Encode(systemMessage{Timestamp: time.Now(), Type: "system", Message: msg})
}

// Command reads one command per line. Malformed lines are reported on the output and skipped.
func (h *JSONHandler) Command(ctx context.Context) (Command, error) {
	if h.Reader == nil {
		return Command{}, io.EOF
	}
	for {
		if err := ctx.Err(); err != nil {
			return Command{}, err
		}
		text, err := h.Reader.ReadString('\n')
		text = strings.TrimSpace(text)
		if text != "" {
			cmd, perr := decodeCommand(text)
			if perr == nil {
				return cmd, nil
			}
			_ = h.System(ctx, perr.Error())
		}
		if err != nil {
			return Command{}, err
		}
	}
}

func decodeCommand(text string) (Command, error) {
	if !strings.HasPrefix(text, "{") {
		return ParseCommand(text)
	}
	var cmd Command
	if err := json.Unmarshal([]byte(text), &cmd); err != nil {
		return Command{}, err
	}
	switch cmd.Name {
	case CommandStart, CommandStop, CommandReset, CommandPost, CommandGenerate, CommandHelp:
		return cmd, nil
	}
	return Command{}, ErrUnknownCommand
}
