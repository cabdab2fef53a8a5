package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Rekitter banner to w.
func PrintBanner(w io.Writer, p termenv.Profile) {
	lines := []struct {
		text  string
		color string
	}{
		{`  ____      _    _ _   _            `, "#38bdf8"},
		{` |  _ \ ___| | _(_) |_| |_ ___ _ __ `, "#60a5fa"},
		{` | |_) / _ \ |/ / | __| __/ _ \ '__|`, "#818cf8"},
		{` |  _ <  __/   <| | |_| ||  __/ |   `, "#a78bfa"},
		{` |_| \_\___|_|\_\_|\__|\__\___|_|   `, "#c084fc"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
