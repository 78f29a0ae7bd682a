package versions

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yaml
var fixtureYAML []byte

type fixtureRecord struct {
	ID        string    `yaml:"id"`
	Version   string    `yaml:"version"`
	Type      string    `yaml:"type"`
	Timestamp time.Time `yaml:"timestamp"`
	Author    string    `yaml:"author"`
	Status    string    `yaml:"status"`
	Summary   string    `yaml:"summary"`
}

var (
	fallbackOnce sync.Once
	fallbackList []Record
	fallbackErr  error
)

// Fallback returns the fixed history used while the deployment API is unreachable.
// Each call returns a fresh copy.
func Fallback() []Record {
	fallbackOnce.Do(func() {
		fallbackList, fallbackErr = ParseFixtures(fixtureYAML)
	})
	if fallbackErr != nil {
		panic(fallbackErr)
	}
	return Clone(fallbackList)
}

// ParseFixtures decodes a YAML history document.
func ParseFixtures(data []byte) ([]Record, error) {
	var raw []fixtureRecord
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("versions: decode fixtures: %w", err)
	}
	out := make([]Record, 0, len(raw))
	for i, item := range raw {
		if strings.TrimSpace(item.ID) == "" || strings.TrimSpace(item.Version) == "" {
			return nil, fmt.Errorf("versions: fixture %d is missing id or version", i)
		}
		typ, ok := ParseType(item.Type)
		if !ok {
			return nil, fmt.Errorf("versions: fixture %s has unknown type %q", item.ID, item.Type)
		}
		status := StatusReverted
		if strings.EqualFold(item.Status, string(StatusActive)) {
			status = StatusActive
		}
		out = append(out, Record{
			ID:            ID(strings.TrimSpace(item.ID)),
			Version:       strings.TrimSpace(item.Version),
			Type:          typ,
			ChangeSummary: strings.TrimSpace(item.Summary),
			Timestamp:     item.Timestamp.UTC(),
			Author:        strings.TrimSpace(item.Author),
			Status:        status,
		})
	}
	if ActiveCount(out) > 1 {
		return nil, fmt.Errorf("versions: fixtures declare more than one active version")
	}
	return out, nil
}
