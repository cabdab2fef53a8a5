package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/rekitter"
	"github.com/aretw0/rekitter/internal/logging"
	"github.com/aretw0/rekitter/pkg/domain"
	"github.com/aretw0/rekitter/pkg/sanitizer"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
)

// DefaultKeepAlive is the interval of SSE comment frames that keep proxies from closing idle streams.
const DefaultKeepAlive = 15 * time.Second

// Engine defines the debate operations exposed over HTTP.
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
	Themes() []domain.Theme
	Subscribe() (<-chan domain.Event, func())
}

// Server serves the Rekitter API.
type Server struct {
	Engine    Engine
	Logger    *slog.Logger
	metrics   http.Handler
	static    string
	keepAlive time.Duration
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// WithMetrics mounts h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithStatic serves the files of dir (avatars) under /static/.
func WithStatic(dir string) Option {
	return func(s *Server) {
		s.static = dir
	}
}

// WithKeepAlive sets the SSE keep-alive interval.
func WithKeepAlive(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.keepAlive = d
		}
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) (http.Handler, error) {
	server := &Server{
		Engine:    engine,
		Logger:    logging.NewNop(),
		keepAlive: DefaultKeepAlive,
	}
	for _, opt := range opts {
		opt(server)
	}

	validator, err := validateRequests(server.Logger)
	if err != nil {
		return nil, fmt.Errorf("loading API description: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	// Swagger UI
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if server.metrics != nil {
		r.Method(http.MethodGet, "/metrics", server.metrics)
	}
	if server.static != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(server.static))))
	}

	r.Group(func(r chi.Router) {
		r.Use(validator)
		r.Get("/health", server.GetHealth)
		r.Get("/info", server.GetInfo)
		r.Get("/roster", server.GetRoster)
		r.Get("/themes", server.GetThemes)
		r.Get("/session", server.GetSession)
		r.Get("/timeline", server.GetTimeline)
		r.Get("/events", server.SubscribeEvents)
		r.Post("/debate/start", server.StartDebate)
		r.Post("/debate/stop", server.StopDebate)
		r.Post("/debate/reset", server.ResetHistory)
		r.Post("/debate/step", server.StepDebate)
		r.Post("/posts", server.ManualPost)
		r.Post("/posts/generate", server.ManualGenerate)
	})

	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Rekitter API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "rekitter-http",
		"version":     rekitter.Version,
		"api_version": apiVersion,
	})
}

// GetRoster handles the GET /roster request.
func (s *Server) GetRoster(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Roster())
}

// GetThemes handles the GET /themes request.
func (s *Server) GetThemes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Themes())
}

// GetSession handles the GET /session request.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Snapshot())
}

// TimelineResponse is the body of GET /timeline.
type TimelineResponse struct {
	Posts   []domain.Post   `json:"posts"`
	Session domain.Snapshot `json:"session"`
}

// GetTimeline handles the GET /timeline request.
func (s *Server) GetTimeline(w http.ResponseWriter, r *http.Request) {
	var (
		order string
		limit int
	)
	if err := runtime.BindQueryParameter("form", true, false, "order", r.URL.Query(), &order); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	posts, err := s.Engine.Timeline(r.Context(), domain.ParseOrder(order))
	if err != nil {
		s.fail(w, "Timeline", err)
		return
	}
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	writeJSON(w, http.StatusOK, TimelineResponse{Posts: posts, Session: s.Engine.Snapshot()})
}

// StartRequest is the body of POST /debate/start.
type StartRequest struct {
	Theme  string `json:"theme"`
	Rounds int    `json:"rounds"`
}

// StartDebate handles the POST /debate/start request.
func (s *Server) StartDebate(w http.ResponseWriter, r *http.Request) {
	var body StartRequest
	if !s.decode(w, r, &body) {
		return
	}
	if err := s.Engine.Start(r.Context(), body.Theme, body.Rounds); err != nil {
		s.fail(w, "Start", err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.Engine.Snapshot())
}

// StopDebate handles the POST /debate/stop request.
func (s *Server) StopDebate(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.Stop(r.Context()); err != nil {
		s.fail(w, "Stop", err)
		return
	}
	writeJSON(w, http.StatusOK, s.Engine.Snapshot())
}

// ResetHistory handles the POST /debate/reset request.
func (s *Server) ResetHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.ResetHistory(r.Context()); err != nil {
		s.fail(w, "Reset", err)
		return
	}
	writeJSON(w, http.StatusOK, s.Engine.Snapshot())
}

// StepDebate handles the POST /debate/step request: one activation, for hosts without autopilot.
func (s *Server) StepDebate(w http.ResponseWriter, r *http.Request) {
	res, err := s.Engine.Activate(r.Context())
	if err != nil {
		s.fail(w, "Step", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PostRequest is the body of POST /posts and POST /posts/generate.
type PostRequest struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text,omitempty"`
}

// ManualPost handles the POST /posts request.
func (s *Server) ManualPost(w http.ResponseWriter, r *http.Request) {
	var body PostRequest
	if !s.decode(w, r, &body) {
		return
	}
	post, err := s.Engine.ManualPost(r.Context(), body.Speaker, body.Text)
	if err != nil {
		s.fail(w, "ManualPost", err)
		return
	}
	if post == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// ManualGenerate handles the POST /posts/generate request.
func (s *Server) ManualGenerate(w http.ResponseWriter, r *http.Request) {
	var body PostRequest
	if !s.decode(w, r, &body) {
		return
	}
	res, err := s.Engine.ManualGenerate(r.Context(), body.Speaker)
	if err != nil {
		s.fail(w, "ManualGenerate", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SubscribeEvents handles the GET /events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.Logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	var filter map[domain.EventType]bool
	if types := r.URL.Query().Get("types"); types != "" {
		filter = make(map[domain.EventType]bool)
		for _, t := range strings.Split(types, ",") {
			filter[domain.EventType(strings.TrimSpace(t))] = true
		}
	}

	events, cancel := s.Engine.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.Logger.Info("SSE: Client subscribed")

	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Info("SSE: Client disconnected")
			return
		case <-keepAlive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			if filter != nil && !filter[ev.Type] {
				continue
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.Logger.Error("SSE: Event encode failed", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}

// -- Helpers --

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.Logger.Warn("Invalid request body", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error(op+" failed", "error", err)
	} else {
		s.Logger.Debug(op+" rejected", "error", err)
	}
	writeError(w, status, err)
}

// StatusFor maps engine errors to HTTP status codes.
func StatusFor(err error) int {
	var temp interface{ Temporary() bool }
	switch {
	case errors.As(err, &temp) && temp.Temporary():
		// Upstream rate limit or outage; the caller may try again.
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrInvalidBudget),
		errors.Is(err, sanitizer.ErrInputTooLarge),
		errors.Is(err, sanitizer.ErrInvalidUTF8):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownCharacter), errors.Is(err, domain.ErrUnknownTheme):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoSpeakers):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrGenerationFailure):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
