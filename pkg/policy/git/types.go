package git

import (
	"time"
)

// CommitInfo contains metadata about a Git commit.
type CommitInfo struct {
	SHA        string    `json:"sha"`
	Author     string    `json:"author"`
	Email      string    `json:"email"`
	Timestamp  time.Time `json:"timestamp"`
	Message    string    `json:"message"`
	Branch     string    `json:"branch"`
	Repository string    `json:"repository"`
}

// ShortSHA returns the first 12 characters of the commit hash.
func (c *CommitInfo) ShortSHA() string {
	if len(c.SHA) <= 12 {
		return c.SHA
	}
	return c.SHA[:12]
}

// SyncResult describes one Sync call.
type SyncResult struct {
	// FromSHA is HEAD before the sync; empty on the first clone.
	FromSHA string

	// ToSHA is HEAD after the sync.
	ToSHA string

	// Cloned reports whether this sync created the local checkout.
	Cloned bool

	// GridChanged reports whether the grid file differs between FromSHA and
	// ToSHA. It is true after a clone.
	GridChanged bool
}

// RepositoryMetrics tracks Git operation statistics.
type RepositoryMetrics struct {
	CloneDuration   time.Duration
	PullDuration    time.Duration
	LastCommitSHA   string
	LastPullTime    time.Time
	FailedPulls     int64
	SuccessfulPulls int64
}
