package gitctx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Runner is the git capability the summary needs.
type Runner interface {
	// MergeBase returns the best common ancestor of a and b.
	MergeBase(ctx context.Context, a, b string) (string, error)
	// Diff returns per-file changes and the unified patch from base to head.
	Diff(ctx context.Context, base, head string) (*RawDiff, error)
	// Log returns commits reachable from head but not base, newest first.
	Log(ctx context.Context, base, head string) ([]Commit, error)
	// RemoteURL returns the fetch URL of the configured remote.
	RemoteURL(ctx context.Context) (string, error)
	// Fetch retrieves ref from the configured remote.
	Fetch(ctx context.Context, ref string) error
	// MergeCommits returns up to limit merge commits reachable from HEAD,
	// newest first.
	MergeCommits(ctx context.Context, limit int) ([]MergeCommit, error)
}

// ChangeType is git's classification of a file change.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeDeleted  ChangeType = "deleted"
	ChangeModified ChangeType = "modified"
	ChangeRenamed  ChangeType = "renamed"
	ChangeCopied   ChangeType = "copied"
)

// FileChange describes one path in a diff.
type FileChange struct {
	Type    ChangeType `json:"type"`
	Path    string     `json:"path"`
	OldPath string     `json:"oldPath,omitempty"`
	// ContentChanged is false for renames and copies with identical blobs.
	ContentChanged bool `json:"contentChanged"`
	Binary         bool `json:"binary,omitempty"`
	Insertions     int  `json:"insertions"`
	Deletions      int  `json:"deletions"`
}

// RawDiff is a runner's uninterpreted diff output.
type RawDiff struct {
	Files []FileChange
	Patch string
}

// Author identifies a commit author.
type Author struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Commit is one entry of the commit list.
type Commit struct {
	SHA     string    `json:"sha"`
	Message string    `json:"message"`
	Author  Author    `json:"author"`
	Date    time.Time `json:"date"`
}

// Subject returns the first line of the commit message.
func (c Commit) Subject() string {
	subject, _, _ := strings.Cut(c.Message, "\n")
	return subject
}

// MergeCommit is a commit with more than one parent.
type MergeCommit struct {
	SHA     string
	Message string
	Parents []string
}

// ErrNoMergeBase is returned when two refs share no history, which in
// practice means the clone is too shallow.
var ErrNoMergeBase = errors.New("no merge base")

// UnknownRevisionError reports a ref that does not resolve locally.
type UnknownRevisionError struct {
	Ref string
	Err error
}

func (e *UnknownRevisionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unknown revision %q: %v", e.Ref, e.Err)
	}
	return fmt.Sprintf("unknown revision %q", e.Ref)
}

func (e *UnknownRevisionError) Unwrap() error { return e.Err }

// DiffUnavailableError is returned by Summarize when the diff cannot be
// computed, even after fetching.
type DiffUnavailableError struct {
	Base    string
	Head    string
	Fetched bool
	Err     error
}

func (e *DiffUnavailableError) Error() string {
	msg := fmt.Sprintf("diff %s...%s unavailable", e.Base, e.Head)
	if e.Fetched {
		msg += " after fetch"
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *DiffUnavailableError) Unwrap() error { return e.Err }

// NewRunner returns the runner for backend: "exec" (default) or "go-git".
func NewRunner(backend, dir, remote string) (Runner, error) {
	switch backend {
	case "", "exec":
		return NewCommand(dir, remote), nil
	case "go-git", "gogit":
		return OpenRepository(dir, remote)
	}
	return nil, fmt.Errorf("unknown git backend %q (want exec or go-git)", backend)
}

// remoteRef maps ref to its name on the remote and the local name it is
// fetched into. Shas have no mapping and yield empty strings.
//
//	feature           -> refs/heads/feature, refs/remotes/origin/feature
//	refs/pull/7/head  -> refs/pull/7/head,   refs/remotes/origin/pull/7/head
func remoteRef(ref, remote string) (src, dst string) {
	if shaRe.MatchString(ref) {
		return "", ""
	}
	tracking := "refs/remotes/" + remote + "/"
	switch {
	case strings.HasPrefix(ref, tracking):
		return "refs/heads/" + strings.TrimPrefix(ref, tracking), ref
	case strings.HasPrefix(ref, "refs/heads/"):
		return ref, tracking + strings.TrimPrefix(ref, "refs/heads/")
	case strings.HasPrefix(ref, "refs/"):
		return ref, tracking + strings.TrimPrefix(ref, "refs/")
	case strings.HasPrefix(ref, remote+"/"):
		branch := strings.TrimPrefix(ref, remote+"/")
		return "refs/heads/" + branch, tracking + branch
	default:
		return "refs/heads/" + ref, tracking + ref
	}
}
