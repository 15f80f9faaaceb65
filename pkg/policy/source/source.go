package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/policy"
	"mercator-hq/auditor/pkg/policy/git"
)

// ErrNotModified is returned by Fetch when the source knows the grid has
// not changed since the previous successful fetch.
var ErrNotModified = errors.New("grid not modified")

// Snapshot is one fetched grid document.
type Snapshot struct {
	// Data is the raw document.
	Data []byte

	// Format is the document encoding.
	Format policy.Format

	// Version identifies the revision: a commit SHA, an ETag, or empty to
	// fall back to the content digest.
	Version string

	// FetchedAt is when the document was read.
	FetchedAt time.Time
}

// Source supplies decision grid documents.
type Source interface {
	// Name identifies the source kind ("file", "http", "s3", "git").
	Name() string

	// Describe names the concrete location for logs.
	Describe() string

	// Fetch returns the current document, or ErrNotModified.
	Fetch(ctx context.Context) (*Snapshot, error)
}

// Resetter is implemented by sources that remember the last revision they
// served. Reset forgets it so the next Fetch returns the full document.
type Resetter interface {
	Reset()
}

// New builds the source selected by cfg.Source.
func New(ctx context.Context, cfg config.PolicyConfig) (Source, error) {
	switch cfg.Source {
	case "file", "":
		return NewFileSource(cfg.File.Path), nil
	case "http":
		return NewHTTPSource(cfg.HTTP, nil), nil
	case "s3":
		return NewS3Source(ctx, cfg.S3)
	case "git":
		repo, err := git.NewRepository(cfg.Git)
		if err != nil {
			return nil, fmt.Errorf("git source: %w", err)
		}
		return NewGitSource(repo, cfg.Git.Path), nil
	default:
		return nil, fmt.Errorf("unknown policy source %q", cfg.Source)
	}
}

// Load fetches from src and parses the result. ErrNotModified is passed
// through unchanged.
func Load(ctx context.Context, src Source) (*policy.Table, *policy.LoadReport, error) {
	snap, err := src.Fetch(ctx)
	if err != nil {
		return nil, nil, err
	}
	return policy.Parse(snap.Data, snap.Format, policy.Metadata{
		Version:  snap.Version,
		Source:   src.Describe(),
		LoadedAt: snap.FetchedAt,
	})
}
