package review

import (
	"github.com/dshills/danger/internal/comment"
	"github.com/dshills/danger/internal/gitctx"
	"github.com/dshills/danger/internal/host"
	"github.com/dshills/danger/internal/ledger"
	"github.com/dshills/danger/internal/source"
)

// DiffInfo is the part of the diff summary that goes into a report.
type DiffInfo struct {
	Base       string          `json:"base"`
	Head       string          `json:"head"`
	MergeBase  string          `json:"mergeBase,omitempty"`
	Added      gitctx.FileList `json:"added"`
	Deleted    gitctx.FileList `json:"deleted"`
	Modified   gitctx.FileList `json:"modified"`
	Insertions int             `json:"insertions"`
	Deletions  int             `json:"deletions"`
	Commits    int             `json:"commits"`
}

// CommentInfo describes what happened to the sticky comment.
type CommentInfo struct {
	Action    comment.Action `json:"action"`
	CommentID string         `json:"commentId,omitempty"`
	// Applied is false for dry runs and failed mutations.
	Applied  bool `json:"applied"`
	Resolved int  `json:"resolved"`
}

// Timing contains performance metrics.
type Timing struct {
	GitMs   int64 `json:"gitMs"`
	HostMs  int64 `json:"hostMs"`
	TotalMs int64 `json:"totalMs"`
}

// Report is the top-level output structure.
type Report struct {
	Tool       string           `json:"tool"`
	Version    string           `json:"version"`
	RunID      string           `json:"runId"`
	Source     *source.Resolved `json:"source"`
	Request    *host.Request    `json:"request,omitempty"`
	Dangerfile string           `json:"dangerfile"`
	Diff       DiffInfo         `json:"diff"`
	Status     ledger.Status    `json:"status"`
	Counts     ledger.Counts    `json:"counts"`
	Comment    *CommentInfo     `json:"comment,omitempty"`
	// HostErrors are the failed host operations. They never affect Failed.
	HostErrors []string `json:"hostErrors,omitempty"`
	Failed     bool     `json:"failed"`
	Timing     Timing   `json:"timing"`

	// Sync is the comment protocol pass, kept for dry-run output.
	Sync *comment.Result `json:"-"`
}

func newDiffInfo(d *gitctx.DiffStat) DiffInfo {
	return DiffInfo{
		Base:       d.Base,
		Head:       d.Head,
		MergeBase:  d.MergeBase,
		Added:      d.Added,
		Deleted:    d.Deleted,
		Modified:   d.Modified,
		Insertions: d.Insertions,
		Deletions:  d.Deletions,
		Commits:    len(d.Commits),
	}
}

func newCommentInfo(res *comment.Result) *CommentInfo {
	info := &CommentInfo{
		Action:    res.Plan.Action,
		CommentID: res.CommentID,
		Applied:   res.Applied,
	}
	for _, s := range res.Reconciled.Sections {
		info.Resolved += len(s.Resolved())
	}
	return info
}
