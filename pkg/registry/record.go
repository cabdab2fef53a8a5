package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/rekitter/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Record is one roster entry as written in the roster file.
type Record struct {
	ID          string                `mapstructure:"id"`
	Name        string                `mapstructure:"name"`
	Persona     string                `mapstructure:"persona"`
	Description string                `mapstructure:"description"`
	Era         string                `mapstructure:"era"`
	Image       string                `mapstructure:"image"`
	Avatar      string                `mapstructure:"avatar"`
	Role        string                `mapstructure:"role"`
	Policy      *domain.PersonaPolicy `mapstructure:"policy"`

	// key is the mapping key when the roster is a keyed object.
	key string
}

func (r Record) persona() string {
	if p := strings.TrimSpace(r.Persona); p != "" {
		return p
	}
	return strings.TrimSpace(r.Description)
}

func (r Record) image() string {
	if r.Image != "" {
		return r.Image
	}
	return r.Avatar
}

// normalizedID applies: explicit id, mapping key, avatar filename stem, positional fallback.
func (r Record) normalizedID(i int) string {
	if id := strings.TrimSpace(r.ID); id != "" {
		return id
	}
	if r.key != "" {
		return r.key
	}
	if img := r.image(); img != "" {
		base := filepath.Base(img)
		if stem := strings.TrimSuffix(base, filepath.Ext(base)); stem != "" {
			return stem
		}
	}
	return fmt.Sprintf("char_%d", i)
}

// Load reads a roster file (JSON or YAML) and builds the registry.
func Load(path string, opts ...Option) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.ConfigError{Source: path, Err: err}
	}
	return Parse(data, append([]Option{WithSource(path)}, opts...)...)
}

// Parse decodes a roster given either as a sequence of records or as a keyed mapping.
// Mapping order is preserved, so the first key is the opening speaker.
func Parse(data []byte, opts ...Option) (*Registry, error) {
	s := newSettings(opts)
	records, err := DecodeRecords(data)
	if err != nil {
		return nil, &domain.ConfigError{Source: s.source, Err: err}
	}
	return FromRecords(records, opts...)
}

// DecodeRecords parses roster bytes into records without validating them.
func DecodeRecords(data []byte) ([]Record, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed roster: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("roster is empty")
	}

	root := doc.Content[0]
	var records []Record
	switch root.Kind {
	case yaml.SequenceNode:
		for i, item := range root.Content {
			rec, err := decodeNode(item)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			records = append(records, rec)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			key := root.Content[i].Value
			rec, err := decodeNode(root.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("record %q: %w", key, err)
			}
			rec.key = key
			records = append(records, rec)
		}
	default:
		return nil, fmt.Errorf("roster must be a list or a mapping of characters")
	}
	return records, nil
}

func decodeNode(node *yaml.Node) (Record, error) {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return Record{}, err
	}
	return DecodeRecord(raw)
}

// DecodeRecord binds a loosely typed map (e.g. Markdown frontmatter) to a Record.
func DecodeRecord(raw map[string]any) (Record, error) {
	var rec Record
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &rec,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Record{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Record{}, err
	}
	return rec, nil
}
