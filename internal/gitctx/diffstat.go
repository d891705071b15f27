package gitctx

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chainguard-dev/clog"
	"github.com/waigani/diffparser"
)

// DiffStat summarizes the changes between two refs. It is never mutated
// after Summarize returns.
type DiffStat struct {
	Base       string   `json:"base"`
	Head       string   `json:"head"`
	MergeBase  string   `json:"mergeBase"`
	Added      FileList `json:"added"`
	Deleted    FileList `json:"deleted"`
	Modified   FileList `json:"modified"`
	Insertions int      `json:"insertions"`
	Deletions  int      `json:"deletions"`
	Commits    []Commit `json:"commits"`

	files map[string]FileChange
	patch string

	parseOnce sync.Once
	parsed    *diffparser.Diff
	parseErr  error
}

// FileInfo holds line counts for a single file.
type FileInfo struct {
	Path       string     `json:"path"`
	Type       ChangeType `json:"type"`
	Insertions int        `json:"insertions"`
	Deletions  int        `json:"deletions"`
	Binary     bool       `json:"binary"`
}

// Summarize computes the DiffStat for base...head. The file diff is taken
// from the merge base of the two refs; the commit list is head's commits
// not reachable from base.
//
// A ref that cannot be resolved triggers one fetch of that ref followed by
// one retry. Any failure is returned as a *DiffUnavailableError.
func Summarize(ctx context.Context, r Runner, base, head string) (*DiffStat, error) {
	stat, err := summarize(ctx, r, base, head)
	if err == nil {
		return stat, nil
	}

	missing := base
	var unknown *UnknownRevisionError
	switch {
	case errors.As(err, &unknown):
		missing = unknown.Ref
	case errors.Is(err, ErrNoMergeBase):
	default:
		return nil, &DiffUnavailableError{Base: base, Head: head, Err: err}
	}

	clog.FromContext(ctx).With("ref", missing).Warnf("ref not available locally, fetching: %v", err)
	if ferr := r.Fetch(ctx, missing); ferr != nil {
		return nil, &DiffUnavailableError{Base: base, Head: head, Fetched: true, Err: errors.Join(err, ferr)}
	}

	stat, err = summarize(ctx, r, base, head)
	if err != nil {
		return nil, &DiffUnavailableError{Base: base, Head: head, Fetched: true, Err: err}
	}
	return stat, nil
}

func summarize(ctx context.Context, r Runner, base, head string) (*DiffStat, error) {
	mb, err := r.MergeBase(ctx, base, head)
	if err != nil {
		return nil, err
	}
	raw, err := r.Diff(ctx, mb, head)
	if err != nil {
		return nil, err
	}
	commits, err := r.Log(ctx, base, head)
	if err != nil {
		return nil, err
	}

	stat := classify(raw)
	stat.Base = base
	stat.Head = head
	stat.MergeBase = mb
	stat.Commits = commits
	if stat.Commits == nil {
		stat.Commits = []Commit{}
	}
	return stat, nil
}

// classify sorts raw changes into the three file sets and totals the line
// counts. Binary files contribute no lines.
func classify(raw *RawDiff) *DiffStat {
	added := make(map[string]bool)
	deleted := make(map[string]bool)
	modified := make(map[string]bool)
	stat := &DiffStat{
		files: make(map[string]FileChange, len(raw.Files)),
		patch: raw.Patch,
	}

	for _, fc := range raw.Files {
		if fc.Binary {
			fc.Insertions, fc.Deletions = 0, 0
		}
		switch fc.Type {
		case ChangeAdded:
			added[fc.Path] = true
		case ChangeDeleted:
			deleted[fc.Path] = true
		case ChangeRenamed, ChangeCopied:
			if !fc.ContentChanged {
				continue
			}
			modified[fc.Path] = true
		default:
			modified[fc.Path] = true
		}
		stat.files[fc.Path] = fc
		stat.Insertions += fc.Insertions
		stat.Deletions += fc.Deletions
	}

	stat.Added = newFileList(added)
	stat.Deleted = newFileList(deleted)
	stat.Modified = newFileList(modified)
	return stat
}

// LinesOfCode returns insertions plus deletions.
func (d *DiffStat) LinesOfCode() int {
	return d.Insertions + d.Deletions
}

// TouchedFiles returns every path in the three file sets.
func (d *DiffStat) TouchedFiles() FileList {
	all := make(map[string]bool, len(d.Added)+len(d.Deleted)+len(d.Modified))
	for _, set := range []FileList{d.Added, d.Deleted, d.Modified} {
		for _, p := range set {
			all[p] = true
		}
	}
	return newFileList(all)
}

// InfoForFile returns line counts for path. The second result is false when
// the path is not part of the diff.
func (d *DiffStat) InfoForFile(path string) (FileInfo, bool) {
	fc, ok := d.files[path]
	if !ok {
		return FileInfo{}, false
	}
	return FileInfo{
		Path:       fc.Path,
		Type:       fc.Type,
		Insertions: fc.Insertions,
		Deletions:  fc.Deletions,
		Binary:     fc.Binary,
	}, true
}

// Patch returns the unified diff for the whole change.
func (d *DiffStat) Patch() string {
	return d.patch
}

// DiffForFile returns the parsed unified diff of one file.
func (d *DiffStat) DiffForFile(path string) (*diffparser.DiffFile, error) {
	d.parseOnce.Do(func() {
		d.parsed, d.parseErr = diffparser.Parse(d.patch)
	})
	if d.parseErr != nil {
		return nil, fmt.Errorf("parsing diff: %w", d.parseErr)
	}
	for _, f := range d.parsed.Files {
		if f.NewName == path || (f.Mode == diffparser.DELETED && f.OrigName == path) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("no diff for %s", path)
}
