package tui

import (
	"bytes"
	"testing"

	"github.com/aretw0/rekitter/pkg/domain"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestChaosMeter(t *testing.T) {
	tests := []struct {
		level, width int
		want         string
	}{
		{0, 10, "░░░░░░░░░░   0%"},
		{30, 10, "███░░░░░░░  30%"},
		{100, 4, "████ 100%"},
		{250, 4, "████ 100%"},
		{-5, 4, "░░░░   0%"},
		{50, 0, "█████░░░░░  50%"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ChaosMeter(termenv.Ascii, tt.level, tt.width))
	}
}

func TestChaosColor(t *testing.T) {
	assert.Equal(t, "#22c55e", ChaosColor(10))
	assert.Equal(t, "#f59e0b", ChaosColor(40))
	assert.Equal(t, "#ef4444", ChaosColor(90))
}

func TestStatusLine(t *testing.T) {
	line := StatusLine(termenv.Ascii)(domain.Snapshot{
		Status: domain.StatusRunning, RoundBudget: 10, RoundsCompleted: 2, Chaos: 20, NextSpeakerID: "leo_x",
	})
	assert.Equal(t, "RUNNING  round 2/10  chaos ██░░░░░░░░  20%  next @leo_x", line)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, termenv.Ascii)
	assert.Contains(t, buf.String(), `|  _ \ ___| | _(_) |_| |_ ___ _ __`)
}

func TestNewRenderer(t *testing.T) {
	render := NewRenderer(60)
	out, err := render("**Martin Luther** says hi")
	assert.NoError(t, err)
	assert.Contains(t, out, "Martin Luther")
}
