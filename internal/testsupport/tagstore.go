package testsupport

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"reencode/internal/tags"
)

// MemoryStore is an in-memory tags.Store. Probe answers come from Props, or
// Default when a path is not listed; tag reads come from Files, or
// DefaultTags for paths never written.
type MemoryStore struct {
	mu sync.Mutex

	Props       map[string]tags.Properties
	Default     tags.Properties
	Files       map[string]tags.Tags
	DefaultTags tags.Tags
	// Drop lists tags silently lost on write, simulating a container that
	// cannot hold them.
	Drop []string
	// ProbeErr, when set, is returned for every probe.
	ProbeErr error
	// BeforeWrite, when set, runs before each write; its error is returned.
	BeforeWrite func(ctx context.Context, path string) error

	probes int
	writes int
}

// NewMemoryStore returns a store that reports CD-quality stereo and a
// complete tag set for every file.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Props:   map[string]tags.Properties{},
		Default: tags.Properties{Codec: "flac", SampleRate: 44100, BitsPerSample: 16, Channels: 2},
		Files:   map[string]tags.Tags{},
		DefaultTags: tags.Tags{
			"artist":      "Artist",
			"album":       "Album",
			"title":       "Title",
			"tracknumber": "1",
			"totaltracks": "10",
		},
	}
}

func (m *MemoryStore) Probe(ctx context.Context, path string) (tags.Properties, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes++
	if m.ProbeErr != nil {
		return tags.Properties{}, m.ProbeErr
	}
	if props, ok := m.Props[path]; ok {
		return props, nil
	}
	return m.Default, nil
}

func (m *MemoryStore) ReadTags(ctx context.Context, path string) (tags.Tags, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.Files[path]; ok {
		return maps.Clone(existing), nil
	}
	if m.DefaultTags == nil {
		return nil, fmt.Errorf("no tags for %s", path)
	}
	return maps.Clone(m.DefaultTags), nil
}

func (m *MemoryStore) WriteTags(ctx context.Context, path string, values tags.Tags) error {
	if m.BeforeWrite != nil {
		if err := m.BeforeWrite(ctx, path); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	stored := maps.Clone(values)
	for _, key := range m.Drop {
		delete(stored, key)
	}
	m.Files[path] = stored
	return nil
}

// Probes returns how many Probe calls were made.
func (m *MemoryStore) Probes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.probes
}

// Writes returns how many WriteTags calls were made.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Written returns the tags stored for path.
func (m *MemoryStore) Written(path string) (tags.Tags, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.Files[path]
	return maps.Clone(v), ok
}

var _ tags.Store = (*MemoryStore)(nil)
