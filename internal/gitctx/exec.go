package gitctx

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Command runs the git binary in Dir.
type Command struct {
	Dir    string
	Remote string
}

// NewCommand returns a runner for the repository at dir. An empty remote
// means "origin".
func NewCommand(dir, remote string) *Command {
	if remote == "" {
		remote = "origin"
	}
	return &Command{Dir: dir, Remote: remote}
}

var _ Runner = (*Command)(nil)

// MergeBase implements Runner.
func (c *Command) MergeBase(ctx context.Context, a, b string) (string, error) {
	ra, err := c.resolve(ctx, a)
	if err != nil {
		return "", err
	}
	rb, err := c.resolve(ctx, b)
	if err != nil {
		return "", err
	}
	out, err := c.git(ctx, "merge-base", ra, rb)
	if err != nil {
		var exitErr *exec.ExitError
		// merge-base exits 1 with no output when there is no common ancestor.
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && strings.TrimSpace(out) == "" {
			return "", ErrNoMergeBase
		}
		return "", fmt.Errorf("git merge-base: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Diff implements Runner.
func (c *Command) Diff(ctx context.Context, base, head string) (*RawDiff, error) {
	rb, err := c.resolve(ctx, base)
	if err != nil {
		return nil, err
	}
	rh, err := c.resolve(ctx, head)
	if err != nil {
		return nil, err
	}

	raw, err := c.git(ctx, "diff", "--raw", "-z", "-M", "--no-abbrev", rb, rh)
	if err != nil {
		return nil, fmt.Errorf("git diff --raw: %w", err)
	}
	files, err := parseRaw(raw)
	if err != nil {
		return nil, err
	}

	numstat, err := c.git(ctx, "diff", "--numstat", "-z", "-M", rb, rh)
	if err != nil {
		return nil, fmt.Errorf("git diff --numstat: %w", err)
	}
	stats := parseNumstat(numstat)
	for i := range files {
		if st, ok := stats[files[i].Path]; ok {
			files[i].Insertions = st.Insertions
			files[i].Deletions = st.Deletions
			files[i].Binary = st.Binary
		}
	}

	patch, err := c.git(ctx, "diff", "-M", rb, rh)
	if err != nil {
		return nil, fmt.Errorf("git diff: %w", err)
	}
	return &RawDiff{Files: files, Patch: patch}, nil
}

const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
)

// Log implements Runner.
func (c *Command) Log(ctx context.Context, base, head string) ([]Commit, error) {
	rb, err := c.resolve(ctx, base)
	if err != nil {
		return nil, err
	}
	rh, err := c.resolve(ctx, head)
	if err != nil {
		return nil, err
	}

	out, err := c.git(ctx, "log", "--format=%H%x1f%an%x1f%ae%x1f%aI%x1f%B%x1e", rb+".."+rh)
	if err != nil {
		return nil, fmt.Errorf("git log %s..%s: %w", base, head, err)
	}

	var commits []Commit
	for _, rec := range strings.Split(out, recordSep) {
		rec = strings.TrimLeft(rec, "\n")
		if rec == "" {
			continue
		}
		f := strings.SplitN(rec, fieldSep, 5)
		if len(f) != 5 {
			return nil, fmt.Errorf("unexpected git log record %q", rec)
		}
		date, _ := time.Parse(time.RFC3339, f[3])
		commits = append(commits, Commit{
			SHA:     f[0],
			Author:  Author{Name: f[1], Email: f[2]},
			Date:    date,
			Message: strings.TrimRight(f[4], "\n"),
		})
	}
	return commits, nil
}

// RemoteURL implements Runner.
func (c *Command) RemoteURL(ctx context.Context) (string, error) {
	out, err := c.git(ctx, "remote", "get-url", c.Remote)
	if err != nil {
		return "", fmt.Errorf("git remote get-url %s: %w", c.Remote, err)
	}
	return strings.TrimSpace(out), nil
}

var shaRe = regexp.MustCompile(`^[0-9a-f]{7,40}$`)

// Fetch implements Runner. Named refs are fetched into the remote's
// tracking namespace so that later resolution finds them.
func (c *Command) Fetch(ctx context.Context, ref string) error {
	spec := ref
	if src, dst := remoteRef(ref, c.Remote); src != "" {
		spec = "+" + src + ":" + dst
	}
	if _, err := c.git(ctx, "fetch", "--no-tags", c.Remote, spec); err != nil {
		return fmt.Errorf("git fetch %s %s: %w", c.Remote, spec, err)
	}
	return nil
}

// MergeCommits implements Runner.
func (c *Command) MergeCommits(ctx context.Context, limit int) ([]MergeCommit, error) {
	out, err := c.git(ctx, "log", "--merges", "-n", strconv.Itoa(limit), "--format=%H%x1f%P%x1f%B%x1e", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("git log --merges: %w", err)
	}
	var merges []MergeCommit
	for _, rec := range strings.Split(out, recordSep) {
		rec = strings.TrimLeft(rec, "\n")
		if rec == "" {
			continue
		}
		f := strings.SplitN(rec, fieldSep, 3)
		if len(f) != 3 {
			return nil, fmt.Errorf("unexpected git log record %q", rec)
		}
		merges = append(merges, MergeCommit{
			SHA:     f[0],
			Parents: strings.Fields(f[1]),
			Message: strings.TrimRight(f[2], "\n"),
		})
	}
	return merges, nil
}

// resolve turns ref into a commit sha, falling back to the name Fetch
// stores it under when ref is not present locally.
func (c *Command) resolve(ctx context.Context, ref string) (string, error) {
	candidates := []string{ref}
	if _, dst := remoteRef(ref, c.Remote); dst != "" && dst != ref {
		candidates = append(candidates, dst)
	}
	var lastErr error
	for _, cand := range candidates {
		out, err := c.git(ctx, "rev-parse", "--verify", "--quiet", cand+"^{commit}")
		if err == nil {
			return strings.TrimSpace(out), nil
		}
		lastErr = err
	}
	return "", &UnknownRevisionError{Ref: ref, Err: lastErr}
}

func (c *Command) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.Dir
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return string(out), fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}

// parseRaw reads `git diff --raw -z` output. Each entry is a metadata
// token followed by one path, or two for renames and copies.
func parseRaw(out string) ([]FileChange, error) {
	toks := strings.Split(strings.TrimSuffix(out, "\x00"), "\x00")
	var files []FileChange
	for i := 0; i < len(toks); i++ {
		meta := toks[i]
		if meta == "" {
			continue
		}
		if !strings.HasPrefix(meta, ":") {
			return nil, fmt.Errorf("unexpected raw diff token %q", meta)
		}
		f := strings.Fields(meta)
		if len(f) != 5 {
			return nil, fmt.Errorf("unexpected raw diff metadata %q", meta)
		}
		srcSHA, dstSHA, status := f[2], f[3], f[4]

		fc := FileChange{ContentChanged: srcSHA != dstSHA}
		switch status[0] {
		case 'A':
			fc.Type = ChangeAdded
		case 'D':
			fc.Type = ChangeDeleted
		case 'R':
			fc.Type = ChangeRenamed
		case 'C':
			fc.Type = ChangeCopied
		default:
			fc.Type = ChangeModified
		}

		if fc.Type == ChangeRenamed || fc.Type == ChangeCopied {
			if i+2 >= len(toks) {
				return nil, fmt.Errorf("truncated raw diff entry %q", meta)
			}
			fc.OldPath, fc.Path = toks[i+1], toks[i+2]
			i += 2
		} else {
			if i+1 >= len(toks) {
				return nil, fmt.Errorf("truncated raw diff entry %q", meta)
			}
			fc.Path = toks[i+1]
			i++
		}
		files = append(files, fc)
	}
	return files, nil
}

type lineStat struct {
	Insertions int
	Deletions  int
	Binary     bool
}

// parseNumstat reads `git diff --numstat -z` output keyed by new path.
// Binary files report "-" for both counts.
func parseNumstat(out string) map[string]lineStat {
	stats := make(map[string]lineStat)
	toks := strings.Split(strings.TrimSuffix(out, "\x00"), "\x00")
	for i := 0; i < len(toks); i++ {
		parts := strings.SplitN(toks[i], "\t", 3)
		if len(parts) != 3 {
			continue
		}
		path := parts[2]
		if path == "" && i+2 < len(toks) {
			// rename: old and new path follow as separate tokens
			path = toks[i+2]
			i += 2
		}
		var st lineStat
		if parts[0] == "-" && parts[1] == "-" {
			st.Binary = true
		} else {
			st.Insertions, _ = strconv.Atoi(parts[0])
			st.Deletions, _ = strconv.Atoi(parts[1])
		}
		stats[path] = st
	}
	return stats
}
