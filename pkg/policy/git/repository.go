package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"mercator-hq/auditor/pkg/config"
)

// ErrNotCloned is returned by read operations before the first Sync.
var ErrNotCloned = errors.New("repository not cloned, call Sync first")

// Repository keeps a local checkout of the repository holding the decision
// grid and reads the grid document from its HEAD commit.
type Repository struct {
	config    config.GitPolicyConfig
	localPath string
	auth      AuthProvider
	repo      *gogit.Repository
	mu        sync.RWMutex
	metrics   RepositoryMetrics
}

// NewRepository validates cfg and prepares a repository. Nothing touches the
// network or disk until Sync.
func NewRepository(cfg config.GitPolicyConfig) (*Repository, error) {
	if cfg.Repository == "" {
		return nil, fmt.Errorf("repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		return nil, fmt.Errorf("branch cannot be empty")
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("grid path cannot be empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultPolicyGitTimeout
	}

	auth, err := NewAuthProvider(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth provider: %w", err)
	}

	localPath := cfg.Clone.LocalPath
	if localPath == "" {
		localPath = filepath.Join(os.TempDir(), "mercator-auditor-grid")
	}

	return &Repository{
		config:    cfg,
		localPath: localPath,
		auth:      auth,
	}, nil
}

// Sync clones the repository on first use and pulls on later calls.
func (r *Repository) Sync(ctx context.Context) (*SyncResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.repo == nil {
		if err := r.cloneLocked(ctx); err != nil {
			return nil, err
		}
		head, err := r.headLocked()
		if err != nil {
			return nil, err
		}
		r.metrics.LastCommitSHA = head.String()
		return &SyncResult{ToSHA: head.String(), Cloned: true, GridChanged: true}, nil
	}
	return r.pullLocked(ctx)
}

func (r *Repository) cloneLocked(ctx context.Context) error {
	start := time.Now()
	defer func() {
		r.metrics.CloneDuration = time.Since(start)
	}()

	if r.config.Clone.CleanOnStart {
		if err := os.RemoveAll(r.localPath); err != nil {
			return fmt.Errorf("failed to clean existing checkout: %w", err)
		}
	}

	if _, err := os.Stat(filepath.Join(r.localPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(r.localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing checkout: %w", err)
		}
		r.repo = repo
		return nil
	}

	if err := os.MkdirAll(r.localPath, 0o755); err != nil {
		return fmt.Errorf("failed to create checkout directory: %w", err)
	}

	auth, err := r.auth.GetAuth()
	if err != nil {
		return fmt.Errorf("failed to get auth: %w", err)
	}

	cloneCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	repo, err := gogit.PlainCloneContext(cloneCtx, r.localPath, false, &gogit.CloneOptions{
		URL:           r.config.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(r.config.Branch),
		SingleBranch:  true,
		Depth:         r.config.Clone.Depth,
		Auth:          auth,
	})
	if err != nil {
		return fmt.Errorf("failed to clone %s: %w", r.config.Repository, err)
	}

	r.repo = repo
	return nil
}

func (r *Repository) pullLocked(ctx context.Context) (*SyncResult, error) {
	start := time.Now()
	defer func() {
		r.metrics.PullDuration = time.Since(start)
		r.metrics.LastPullTime = time.Now()
	}()

	from, err := r.headLocked()
	if err != nil {
		return nil, err
	}

	worktree, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	auth, err := r.auth.GetAuth()
	if err != nil {
		return nil, fmt.Errorf("failed to get auth: %w", err)
	}

	pullCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	err = worktree.PullContext(pullCtx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(r.config.Branch),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		r.metrics.FailedPulls++
		return nil, fmt.Errorf("failed to pull: %w", err)
	}
	r.metrics.SuccessfulPulls++

	to, err := r.headLocked()
	if err != nil {
		return nil, err
	}

	result := &SyncResult{FromSHA: from.String(), ToSHA: to.String()}
	if from != to {
		changed, err := r.gridChangedLocked(from, to)
		if err != nil {
			return nil, err
		}
		result.GridChanged = changed
		r.metrics.LastCommitSHA = to.String()
	}
	return result, nil
}

func (r *Repository) headLocked() (plumbing.Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to get HEAD: %w", err)
	}
	return ref.Hash(), nil
}

// gridChangedLocked reports whether the grid file was touched between two
// commits.
func (r *Repository) gridChangedLocked(from, to plumbing.Hash) (bool, error) {
	fromCommit, err := r.repo.CommitObject(from)
	if err != nil {
		// A shallow history may not contain the old commit.
		return true, nil
	}
	toCommit, err := r.repo.CommitObject(to)
	if err != nil {
		return false, fmt.Errorf("failed to get commit %s: %w", to, err)
	}

	fromTree, err := fromCommit.Tree()
	if err != nil {
		return false, fmt.Errorf("failed to get tree: %w", err)
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		return false, fmt.Errorf("failed to get tree: %w", err)
	}

	changes, err := fromTree.Diff(toTree)
	if err != nil {
		return false, fmt.Errorf("failed to diff trees: %w", err)
	}

	target := r.gridPath()
	for _, change := range changes {
		if change.To.Name == target || change.From.Name == target {
			return true, nil
		}
	}
	return false, nil
}

// gridPath is the slash-separated path of the grid inside the repository.
func (r *Repository) gridPath() string {
	return strings.TrimPrefix(path.Clean(filepath.ToSlash(r.config.Path)), "/")
}

// ReadGrid returns the grid document as committed at HEAD, along with the
// commit it was read from. Uncommitted changes in the checkout are ignored.
func (r *Repository) ReadGrid() ([]byte, *CommitInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.repo == nil {
		return nil, nil, ErrNotCloned
	}

	head, err := r.headLocked()
	if err != nil {
		return nil, nil, err
	}
	commit, err := r.repo.CommitObject(head)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get commit: %w", err)
	}

	file, err := commit.File(r.gridPath())
	if err != nil {
		return nil, nil, fmt.Errorf("grid %s not found at %s: %w", r.gridPath(), head.String()[:12], err)
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open grid blob: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read grid blob: %w", err)
	}
	return data, r.commitInfo(commit), nil
}

// Head returns metadata about the HEAD commit.
func (r *Repository) Head() (*CommitInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.repo == nil {
		return nil, ErrNotCloned
	}
	head, err := r.headLocked()
	if err != nil {
		return nil, err
	}
	commit, err := r.repo.CommitObject(head)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}
	return r.commitInfo(commit), nil
}

// History returns up to limit commits that touched the grid file, newest
// first.
func (r *Repository) History(limit int) ([]*CommitInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.repo == nil {
		return nil, ErrNotCloned
	}
	head, err := r.headLocked()
	if err != nil {
		return nil, err
	}

	target := r.gridPath()
	iter, err := r.repo.Log(&gogit.LogOptions{
		From:     head,
		FileName: &target,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get commit log: %w", err)
	}
	defer iter.Close()

	var history []*CommitInfo
	err = iter.ForEach(func(c *object.Commit) error {
		if limit > 0 && len(history) >= limit {
			return storer.ErrStop
		}
		history = append(history, r.commitInfo(c))
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, fmt.Errorf("failed to iterate commits: %w", err)
	}
	return history, nil
}

func (r *Repository) commitInfo(c *object.Commit) *CommitInfo {
	return &CommitInfo{
		SHA:        c.Hash.String(),
		Author:     c.Author.Name,
		Email:      c.Author.Email,
		Timestamp:  c.Author.When,
		Message:    strings.TrimSpace(c.Message),
		Branch:     r.config.Branch,
		Repository: r.config.Repository,
	}
}

// Metrics returns a copy of the operation statistics.
func (r *Repository) Metrics() RepositoryMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metrics
}

// LocalPath returns where the repository is checked out.
func (r *Repository) LocalPath() string {
	return r.localPath
}

// Describe names the repository for logs and source metadata.
func (r *Repository) Describe() string {
	return fmt.Sprintf("%s@%s:%s", r.config.Repository, r.config.Branch, r.gridPath())
}
