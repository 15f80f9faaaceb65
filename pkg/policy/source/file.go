package source

import (
	"context"
	"fmt"
	"os"
	"time"

	"mercator-hq/auditor/pkg/policy"
)

// FileSource reads the grid from a local file. It always returns the
// current contents; change detection is left to the file watcher.
type FileSource struct {
	path string
}

// NewFileSource creates a file source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name implements Source.
func (s *FileSource) Name() string { return "file" }

// Describe implements Source.
func (s *FileSource) Describe() string { return "file:" + s.path }

// Path returns the watched file path.
func (s *FileSource) Path() string { return s.path }

// Fetch implements Source.
func (s *FileSource) Fetch(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read grid file %q: %w", s.path, err)
	}
	return &Snapshot{
		Data:      data,
		Format:    policy.FormatFromPath(s.path),
		FetchedAt: time.Now().UTC(),
	}, nil
}
