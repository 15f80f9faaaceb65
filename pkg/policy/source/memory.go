package source

import (
	"context"
	"sync"
	"time"

	"mercator-hq/auditor/pkg/policy"
)

// MemorySource serves a document held in memory. The CLI uses it to lint
// grids read from stdin, and tests use it to drive reloads.
type MemorySource struct {
	mu      sync.Mutex
	data    []byte
	format  policy.Format
	version string
	err     error
	fetches int
}

// NewMemorySource creates a memory source holding data.
func NewMemorySource(data []byte, format policy.Format) *MemorySource {
	return &MemorySource{data: data, format: format}
}

// Name implements Source.
func (s *MemorySource) Name() string { return "memory" }

// Describe implements Source.
func (s *MemorySource) Describe() string { return "memory" }

// Fetch implements Source.
func (s *MemorySource) Fetch(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fetches++
	if s.err != nil {
		return nil, s.err
	}
	data := make([]byte, len(s.data))
	copy(data, s.data)
	return &Snapshot{
		Data:      data,
		Format:    s.format,
		Version:   s.version,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// Set replaces the document and clears any injected error.
func (s *MemorySource) Set(data []byte, version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.version = version
	s.err = nil
}

// SetError makes subsequent fetches fail with err.
func (s *MemorySource) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Fetches returns how many times Fetch was called.
func (s *MemorySource) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}
