package source

import (
	"context"
	"time"

	"mercator-hq/auditor/pkg/policy"
	"mercator-hq/auditor/pkg/policy/git"
)

// GitSource reads the grid from a Git repository. The HEAD commit SHA is the
// grid version.
type GitSource struct {
	repo    *git.Repository
	path    string
	fetched bool
}

// NewGitSource wraps a repository.
func NewGitSource(repo *git.Repository, path string) *GitSource {
	return &GitSource{repo: repo, path: path}
}

// Name implements Source.
func (s *GitSource) Name() string { return "git" }

// Describe implements Source.
func (s *GitSource) Describe() string { return s.repo.Describe() }

// Repository returns the underlying repository.
func (s *GitSource) Repository() *git.Repository { return s.repo }

// Reset implements Resetter. The next Fetch reads the grid even when the
// pull brings nothing new.
func (s *GitSource) Reset() { s.fetched = false }

// Fetch syncs the repository and reads the grid. After the first fetch it
// returns ErrNotModified when the pull did not touch the grid file.
func (s *GitSource) Fetch(ctx context.Context) (*Snapshot, error) {
	result, err := s.repo.Sync(ctx)
	if err != nil {
		return nil, err
	}
	if s.fetched && !result.GridChanged {
		return nil, ErrNotModified
	}

	data, commit, err := s.repo.ReadGrid()
	if err != nil {
		return nil, err
	}
	s.fetched = true

	return &Snapshot{
		Data:      data,
		Format:    policy.FormatFromPath(s.path),
		Version:   commit.SHA,
		FetchedAt: time.Now().UTC(),
	}, nil
}
