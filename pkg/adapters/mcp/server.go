package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/rekitter"
	"github.com/aretw0/rekitter/internal/logging"
	"github.com/aretw0/rekitter/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	TimelineURI = "rekitter://timeline"
	RosterURI   = "rekitter://roster"
	SessionURI  = "rekitter://session"
)

// Engine defines the debate operations exposed as MCP tools.
type Engine interface {
	Start(ctx context.Context, theme string, rounds int) error
	Stop(ctx context.Context) error
	ResetHistory(ctx context.Context) error
	Activate(ctx context.Context) (domain.TurnResult, error)
	ManualPost(ctx context.Context, speakerID, text string) (*domain.Post, error)
	ManualGenerate(ctx context.Context, speakerID string) (domain.TurnResult, error)
	Timeline(ctx context.Context, order domain.Order) ([]domain.Post, error)
	Snapshot() domain.Snapshot
	Roster() []domain.Character
}

// Server wraps the Rekitter Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("rekitter-mcp", rekitter.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying server, e.g. for in-process transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// StartArgs are the arguments of start_debate.
type StartArgs struct {
	Theme  string `json:"theme"`
	Rounds int    `json:"rounds"`
}

// SpeakerArgs are the arguments of manual_post and manual_generate.
type SpeakerArgs struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// TimelineArgs are the arguments of get_timeline.
type TimelineArgs struct {
	Order string `json:"order"`
	Limit int    `json:"limit"`
}

// TimelineResult is the output of get_timeline.
type TimelineResult struct {
	Posts   []domain.Post   `json:"posts" jsonschema_description:"Posts in the requested order"`
	Session domain.Snapshot `json:"session" jsonschema_description:"Session at the time of reading"`
}

// PostResult is the output of manual_post.
type PostResult struct {
	Post    *domain.Post    `json:"post,omitempty" jsonschema_description:"The appended post, absent when the text was empty"`
	Session domain.Snapshot `json:"session"`
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_debate",
		mcp.WithDescription("Start a debate on a theme for a number of rounds. The theme is a catalogue id or title, or free text."),
		mcp.WithString("theme", mcp.Description("Theme id, title or free text (optional)")),
		mcp.WithNumber("rounds", mcp.Required(), mcp.Description("Round budget, at least 1")),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("stop_debate",
		mcp.WithDescription("Stop the running debate. The timeline is kept."),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleStop))

	s.mcpServer.AddTool(mcp.NewTool("reset_history",
		mcp.WithDescription("Clear the timeline and the chaos meter and stop the debate."),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleReset))

	s.mcpServer.AddTool(mcp.NewTool("step",
		mcp.WithDescription("Run one scheduled turn of the debate."),
		mcp.WithOutputSchema[domain.TurnResult](),
	), mcp.NewStructuredToolHandler(s.handleStep))

	s.mcpServer.AddTool(mcp.NewTool("manual_post",
		mcp.WithDescription("Append operator text as a post by a character. Empty text is ignored."),
		mcp.WithString("speaker", mcp.Required(), mcp.Description("Character id")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Post text")),
		mcp.WithOutputSchema[PostResult](),
	), mcp.NewStructuredToolHandler(s.handleManualPost))

	s.mcpServer.AddTool(mcp.NewTool("manual_generate",
		mcp.WithDescription("Ask a character to post now, outside the schedule."),
		mcp.WithString("speaker", mcp.Required(), mcp.Description("Character id")),
		mcp.WithOutputSchema[domain.TurnResult](),
	), mcp.NewStructuredToolHandler(s.handleManualGenerate))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get the current session: status, rounds, chaos and next speaker."),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleSession))

	s.mcpServer.AddTool(mcp.NewTool("get_timeline",
		mcp.WithDescription("Read the timeline."),
		mcp.WithString("order", mcp.Description("asc (oldest first, default) or desc"), mcp.Enum("asc", "desc")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of posts (optional)")),
		mcp.WithOutputSchema[TimelineResult](),
	), mcp.NewStructuredToolHandler(s.handleTimeline))
}

// Handler methods for structured tools

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args StartArgs) (domain.Snapshot, error) {
	if err := s.engine.Start(ctx, args.Theme, args.Rounds); err != nil {
		return domain.Snapshot{}, s.toolError("start_debate", err)
	}
	return s.engine.Snapshot(), nil
}

func (s *Server) handleStop(ctx context.Context, request mcp.CallToolRequest, args struct{}) (domain.Snapshot, error) {
	if err := s.engine.Stop(ctx); err != nil {
		return domain.Snapshot{}, s.toolError("stop_debate", err)
	}
	return s.engine.Snapshot(), nil
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest, args struct{}) (domain.Snapshot, error) {
	if err := s.engine.ResetHistory(ctx); err != nil {
		return domain.Snapshot{}, s.toolError("reset_history", err)
	}
	return s.engine.Snapshot(), nil
}

func (s *Server) handleStep(ctx context.Context, request mcp.CallToolRequest, args struct{}) (domain.TurnResult, error) {
	res, err := s.engine.Activate(ctx)
	if err != nil {
		return domain.TurnResult{}, s.toolError("step", err)
	}
	return res, nil
}

func (s *Server) handleManualPost(ctx context.Context, request mcp.CallToolRequest, args SpeakerArgs) (PostResult, error) {
	post, err := s.engine.ManualPost(ctx, args.Speaker, args.Text)
	if err != nil {
		return PostResult{}, s.toolError("manual_post", err)
	}
	return PostResult{Post: post, Session: s.engine.Snapshot()}, nil
}

func (s *Server) handleManualGenerate(ctx context.Context, request mcp.CallToolRequest, args SpeakerArgs) (domain.TurnResult, error) {
	res, err := s.engine.ManualGenerate(ctx, args.Speaker)
	if err != nil {
		return domain.TurnResult{}, s.toolError("manual_generate", err)
	}
	return res, nil
}

func (s *Server) handleSession(ctx context.Context, request mcp.CallToolRequest, args struct{}) (domain.Snapshot, error) {
	return s.engine.Snapshot(), nil
}

func (s *Server) handleTimeline(ctx context.Context, request mcp.CallToolRequest, args TimelineArgs) (TimelineResult, error) {
	posts, err := s.engine.Timeline(ctx, domain.ParseOrder(args.Order))
	if err != nil {
		return TimelineResult{}, s.toolError("get_timeline", err)
	}
	if args.Limit > 0 && len(posts) > args.Limit {
		posts = posts[:args.Limit]
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	return TimelineResult{Posts: posts, Session: s.engine.Snapshot()}, nil
}

func (s *Server) toolError(tool string, err error) error {
	if errors.Is(err, domain.ErrGenerationFailure) {
		s.logger.Error("MCP tool failed", "tool", tool, "error", err)
	} else {
		s.logger.Debug("MCP tool rejected", "tool", tool, "error", err)
	}
	return fmt.Errorf("%s failed: %w", tool, err)
}

func (s *Server) registerResources() {
	s.addJSONResource(TimelineURI, "Debate Timeline", func(ctx context.Context) (any, error) {
		return s.engine.Timeline(ctx, domain.OrderAscending)
	})
	s.addJSONResource(RosterURI, "Character Roster", func(ctx context.Context) (any, error) {
		return s.engine.Roster(), nil
	})
	s.addJSONResource(SessionURI, "Debate Session", func(ctx context.Context) (any, error) {
		return s.engine.Snapshot(), nil
	})
}

func (s *Server) addJSONResource(uri, name string, read func(ctx context.Context) (any, error)) {
	s.mcpServer.AddResource(mcp.NewResource(uri, name,
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		v, err := read(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", uri, err)
		}
		jsonBytes, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
