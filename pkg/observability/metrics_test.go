package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/rekitter/internal/runtime"
	"github.com/aretw0/rekitter/pkg/adapters/memory"
	"github.com/aretw0/rekitter/pkg/domain"
	"github.com/aretw0/rekitter/pkg/observability"
	"github.com/aretw0/rekitter/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScheduler(t *testing.T, gen *memory.ScriptedGenerator, opts ...runtime.Option) *runtime.Scheduler {
	t.Helper()
	reg, err := registry.FromRecords([]registry.Record{
		{ID: "luther", Name: "Luther", Persona: "Reformer"},
		{ID: "leo_x", Name: "Leo X", Persona: "Pope"},
	})
	require.NoError(t, err)
	return runtime.New(reg, memory.NewStore(), gen, opts...)
}

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics()
	gen := memory.NewScriptedGenerator(memory.Texts("One. #T", "Sure!", "Two. #T")...)
	s := newScheduler(t, gen, runtime.WithHooks(m.Hooks()), runtime.WithPublisher(m))
	ctx := context.Background()

	require.NoError(t, s.Start(ctx, domain.Theme{Title: "T"}, 2))
	for s.Snapshot().Running {
		_, err := s.Activate(ctx)
		require.NoError(t, err)
	}

	body := scrape(t, m)
	assert.Contains(t, body, `rekitter_posts_total{manual="false",speaker="luther"} 1`)
	assert.Contains(t, body, `rekitter_posts_total{manual="false",speaker="leo_x"} 1`)
	assert.Contains(t, body, `rekitter_soft_failures_total{speaker="leo_x"} 1`)
	assert.Contains(t, body, "rekitter_chaos_level 20")
	assert.Contains(t, body, "rekitter_rounds_completed 2")
	assert.Contains(t, body, "rekitter_session_running 0")
}

func scrape(t *testing.T, m *observability.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	return rec.Body.String()
}

func TestMetrics_Handler(t *testing.T) {
	m := observability.NewMetrics()
	m.Hooks().OnStatusChange(context.Background(), domain.Snapshot{Status: domain.StatusRunning, Running: true})

	body := scrape(t, m)
	assert.Contains(t, body, `rekitter_status_changes_total{status="running"} 1`)
	assert.Contains(t, body, "rekitter_session_running 1")
}

func TestAuditHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s := newScheduler(t, memory.NewScriptedGenerator(memory.Texts("One. #T")...),
		runtime.WithHooks(observability.AuditHooks(logger)))
	ctx := context.Background()
	require.NoError(t, s.Start(ctx, domain.Theme{Title: "T"}, 1))
	_, err := s.Activate(ctx)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "turn_start")
	assert.Contains(t, out, "post_appended")
	assert.Contains(t, out, "status=completed")
}
