package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/rekitter/pkg/ports"
)

// Reply is one scripted answer of a ScriptedGenerator.
type Reply struct {
	Text string
	Err  error
}

// ScriptedGenerator implements ports.Generator by replaying a fixed script.
// Once the script is exhausted it falls back to Fallback (or an error if unset).
// Every request is recorded for inspection.
type ScriptedGenerator struct {
	mu       sync.Mutex
	script   []Reply
	requests []ports.GenerationRequest

	// Fallback answers requests after the script runs out.
	Fallback func(req ports.GenerationRequest) (string, error)
}

// NewScriptedGenerator creates a generator that answers with replies in order.
func NewScriptedGenerator(replies ...Reply) *ScriptedGenerator {
	return &ScriptedGenerator{script: replies}
}

// Texts is a shorthand for a script of successful replies.
func Texts(lines ...string) []Reply {
	out := make([]Reply, len(lines))
	for i, l := range lines {
		out[i] = Reply{Text: l}
	}
	return out
}

// Generate pops the next scripted reply.
func (g *ScriptedGenerator) Generate(ctx context.Context, req ports.GenerationRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	g.mu.Lock()
	g.requests = append(g.requests, req)
	if len(g.script) > 0 {
		next := g.script[0]
		g.script = g.script[1:]
		g.mu.Unlock()
		return next.Text, next.Err
	}
	fallback := g.Fallback
	g.mu.Unlock()

	if fallback == nil {
		return "", fmt.Errorf("scripted generator exhausted after %d calls", len(g.Requests()))
	}
	return fallback(req)
}

// Requests returns a copy of every request received so far.
func (g *ScriptedGenerator) Requests() []ports.GenerationRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]ports.GenerationRequest, len(g.requests))
	copy(out, g.requests)
	return out
}

// demoRetorts are the offline lines of the demo generator.
var demoRetorts = []string{
	"Your argument collapses under its own weight.",
	"Scripture says otherwise, read it again.",
	"Tradition is not a crime, innovation might be.",
	"The people deserve to read for themselves.",
	"Authority was given for a reason.",
	"Conscience cannot be bought.",
}

// NewDemoGenerator returns a generator that needs no network access.
// It rebuts the latest post of the context window in rotation.
func NewDemoGenerator(hashtag string) *ScriptedGenerator {
	var (
		mu sync.Mutex
		n  int
	)
	g := NewScriptedGenerator()
	g.Fallback = func(req ports.GenerationRequest) (string, error) {
		mu.Lock()
		line := demoRetorts[n%len(demoRetorts)]
		n++
		mu.Unlock()

		if len(req.Context) == 0 {
			return fmt.Sprintf("Let the debate begin. %s %s", line, hashtag), nil
		}
		last := req.Context[len(req.Context)-1]
		return fmt.Sprintf("@%s %s %s", last.Author, line, hashtag), nil
	}
	return g
}
