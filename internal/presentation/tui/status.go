package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/rekitter/pkg/domain"
	"github.com/muesli/termenv"
)

// ChaosColor picks the meter color for a chaos level.
func ChaosColor(level int) string {
	switch {
	case level >= 70:
		return "#ef4444"
	case level >= 40:
		return "#f59e0b"
	default:
		return "#22c55e"
	}
}

// ChaosMeter draws the chaos level as a bar of width cells.
func ChaosMeter(p termenv.Profile, level, width int) string {
	if width <= 0 {
		width = 10
	}
	level = max(0, min(level, domain.MaxChaos))
	filled := level * width / domain.MaxChaos
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return termenv.String(bar).Foreground(p.Color(ChaosColor(level))).String() + fmt.Sprintf(" %3d%%", level)
}

// StatusLine renders a session snapshot for the text runner.
func StatusLine(p termenv.Profile) func(domain.Snapshot) string {
	return func(s domain.Snapshot) string {
		status := termenv.String(strings.ToUpper(string(s.Status))).Bold()
		line := fmt.Sprintf("%s  round %d/%d  chaos %s", status, s.RoundsCompleted, s.RoundBudget, ChaosMeter(p, s.Chaos, 10))
		if s.NextSpeakerID != "" {
			line += "  next @" + s.NextSpeakerID
		}
		return line
	}
}
