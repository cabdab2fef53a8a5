// Package loam loads a roster from a directory of character documents
// (Markdown with frontmatter, JSON or YAML) through the Loam library.
package loam

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/rekitter/pkg/domain"
	"github.com/aretw0/rekitter/pkg/registry"
)

// Loader adapts a Loam repository to the character registry.
type Loader struct {
	Repo *loam.TypedRepository[CharacterMetadata]
	dir  string
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[CharacterMetadata]) *Loader {
	return &Loader{Repo: repo}
}

// Open initializes a read-only Loam repository at dir.
func Open(dir string) (*Loader, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath, loam.WithReadOnly(true))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	l := New(loam.NewTypedRepository[CharacterMetadata](repo))
	l.dir = absPath
	return l, nil
}

// Records lists every character document as a roster record, in roster order.
func (l *Loader) Records(ctx context.Context) ([]registry.Record, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	type entry struct {
		order int
		rec   registry.Record
	}
	seen := make(map[string]string)
	entries := make([]entry, 0, len(docs))

	for _, doc := range docs {
		meta := doc.Data
		id := meta.ID
		if id == "" {
			id = doc.ID
		}
		id = trimExtension(id)

		// Collision Detection
		if existingPath, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID

		persona := meta.Persona
		if strings.TrimSpace(persona) == "" {
			persona = doc.Content
		}
		entries = append(entries, entry{
			order: meta.Order,
			rec: registry.Record{
				ID:      id,
				Name:    meta.Name,
				Persona: strings.TrimSpace(persona),
				Era:     meta.Era,
				Image:   meta.Image,
				Role:    meta.Role,
				Policy:  meta.Policy,
			},
		})
	}

	slices.SortStableFunc(entries, func(a, b entry) int {
		// Explicit orders first, then by id.
		ao, bo := a.order, b.order
		if ao == 0 {
			ao = math.MaxInt
		}
		if bo == 0 {
			bo = math.MaxInt
		}
		if c := cmp.Compare(ao, bo); c != 0 {
			return c
		}
		return cmp.Compare(a.rec.ID, b.rec.ID)
	})

	records := make([]registry.Record, len(entries))
	for i, e := range entries {
		records[i] = e.rec
	}
	return records, nil
}

// Registry builds the validated registry from the repository.
func (l *Loader) Registry(ctx context.Context, opts ...registry.Option) (*registry.Registry, error) {
	records, err := l.Records(ctx)
	if err != nil {
		return nil, &domain.ConfigError{Source: l.source(), Err: err}
	}
	return registry.FromRecords(records, append([]registry.Option{registry.WithSource(l.source())}, opts...)...)
}

func (l *Loader) source() string {
	if l.dir != "" {
		return l.dir
	}
	return "loam"
}

// Watch reports the id of every character document that changes, until ctx is done.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- trimExtension(evt.ID):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
