package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/rekitter"
	"github.com/aretw0/rekitter/internal/runtime"
	"github.com/aretw0/rekitter/pkg/adapters/openai"
	"github.com/aretw0/rekitter/pkg/domain"
	"github.com/aretw0/rekitter/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, opts ...Option) (http.Handler, *rekitter.Engine) {
	t.Helper()
	reg, err := registry.FromRecords([]registry.Record{
		{ID: "luther", Name: "Martin Luther", Persona: "Reformer"},
		{ID: "leo_x", Name: "Pope Leo X", Persona: "Pope"},
	})
	require.NoError(t, err)
	settings := runtime.DefaultSettings()
	settings.InterjectionProbability = 0
	eng, err := rekitter.New(reg, rekitter.WithSettings(settings))
	require.NoError(t, err)

	h, err := NewHandler(eng, opts...)
	require.NoError(t, err)
	return h, eng
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGetSwagger(t *testing.T) {
	doc, err := GetSwagger()
	require.NoError(t, err)
	assert.Equal(t, "Rekitter API", doc.Info.Title)
	assert.NotNil(t, doc.Paths.Find("/debate/start"))
}

func TestServer_Basics(t *testing.T) {
	h, _ := newTestHandler(t)

	w := do(t, h, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, "GET", "/info", "")
	require.Equal(t, http.StatusOK, w.Code)
	var info map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "rekitter-http", info["app"])
	assert.Equal(t, "0.1.0", info["api_version"])

	w = do(t, h, "GET", "/roster", "")
	var roster []domain.Character
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &roster))
	require.Len(t, roster, 2)
	assert.Equal(t, "luther", roster[0].ID)

	w = do(t, h, "GET", "/themes", "")
	var themes []domain.Theme
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &themes))
	assert.Equal(t, "reformation", themes[0].ID)

	w = do(t, h, "GET", "/openapi.yaml", "")
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")
	w = do(t, h, "GET", "/swagger", "")
	assert.Contains(t, w.Body.String(), "swagger-ui")
}

func TestServer_DebateFlow(t *testing.T) {
	h, _ := newTestHandler(t)

	w := do(t, h, "POST", "/debate/start", `{"theme":"reformation","rounds":2}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.True(t, snap.Running)
	assert.Equal(t, "luther", snap.NextSpeakerID)

	w = do(t, h, "POST", "/debate/start", `{"rounds":2}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	for range 2 {
		w = do(t, h, "POST", "/debate/step", "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	var res domain.TurnResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, domain.OutcomeAppended, res.Outcome)
	assert.Equal(t, domain.StatusCompleted, res.Snapshot.Status)

	w = do(t, h, "GET", "/timeline?order=desc&limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var tl TimelineResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tl))
	require.Len(t, tl.Posts, 1)
	assert.Equal(t, "leo_x", tl.Posts[0].AuthorID, "newest first")
	assert.Equal(t, 20, tl.Session.Chaos)

	w = do(t, h, "POST", "/debate/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, h, "GET", "/timeline", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tl))
	assert.Empty(t, tl.Posts)
	assert.Zero(t, tl.Session.Chaos)
}

func TestServer_ManualPosts(t *testing.T) {
	h, eng := newTestHandler(t)

	w := do(t, h, "POST", "/posts", `{"speaker":"leo_x","text":"Exsurge Domine"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var post domain.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))
	assert.True(t, post.Manual)
	assert.Equal(t, "Pope Leo X", post.AuthorName)

	w = do(t, h, "POST", "/posts", `{"speaker":"leo_x","text":"   "}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, "POST", "/posts", `{"speaker":"calvin","text":"Hello"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, "POST", "/posts/generate", `{"speaker":"luther"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	posts, err := eng.Timeline(context.Background(), domain.OrderAscending)
	require.NoError(t, err)
	assert.Len(t, posts, 2)
	assert.Zero(t, eng.Snapshot().RoundsCompleted)
}

func TestServer_Validation(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := []struct {
		name, method, target, body string
		want                       int
	}{
		{"missing rounds", "POST", "/debate/start", `{"theme":"x"}`, http.StatusBadRequest},
		{"zero rounds", "POST", "/debate/start", `{"rounds":0}`, http.StatusBadRequest},
		{"bad order", "GET", "/timeline?order=sideways", "", http.StatusBadRequest},
		{"bad limit", "GET", "/timeline?limit=abc", "", http.StatusBadRequest},
		{"missing speaker", "POST", "/posts", `{"text":"hi"}`, http.StatusBadRequest},
		{"broken json", "POST", "/posts/generate", `{"speaker":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestServer_Metrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "rekitter_chaos_level 0")
	})
	h, _ := newTestHandler(t, WithMetrics(metrics))
	w := do(t, h, "GET", "/metrics", "")
	assert.Equal(t, "rekitter_chaos_level 0", w.Body.String())
}

func TestSubscribeEvents(t *testing.T) {
	h, eng := newTestHandler(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/events?types=timeline_updated", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	// The subscription is registered before the ping is written.
	require.NoError(t, eng.Start(ctx, "", 1))
	_, err = eng.Activate(ctx)
	require.NoError(t, err)

	var event, data string
	for data == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "data: ") && event != "ping":
			data = strings.TrimPrefix(line, "data: ")
		}
	}
	assert.Equal(t, "timeline_updated", event, "session events are filtered out")

	var ev domain.Event
	require.NoError(t, json.Unmarshal([]byte(data), &ev))
	require.NotNil(t, ev.Post)
	assert.Equal(t, "luther", ev.Post.AuthorID)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(domain.ErrInvalidBudget))
	assert.Equal(t, http.StatusNotFound, StatusFor(fmt.Errorf("x: %w", domain.ErrUnknownCharacter)))
	assert.Equal(t, http.StatusConflict, StatusFor(domain.ErrAlreadyRunning))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(domain.ErrNoSpeakers))
	assert.Equal(t, http.StatusBadGateway, StatusFor(&domain.GenerationError{Err: errors.New("boom")}))
	assert.Equal(t, http.StatusBadGateway, StatusFor(&domain.GenerationError{Err: &openai.APIError{StatusCode: http.StatusUnauthorized}}))
	assert.Equal(t, http.StatusServiceUnavailable, StatusFor(&domain.GenerationError{Err: &openai.APIError{StatusCode: http.StatusTooManyRequests}}))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("disk full")))
}
