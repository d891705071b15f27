package dangerfile

import (
	"context"
	"slices"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/dshills/danger/internal/gitctx"
	"github.com/dshills/danger/internal/host"
	"github.com/dshills/danger/internal/ledger"
)

// Input is what rules are evaluated against. Request may be nil when the
// host could not be asked, in which case request conditions see empty
// values.
type Input struct {
	Diff    *gitctx.DiffStat
	Request *host.Request
}

// Evaluate records the action of every matching rule into l, in file
// order.
func (d *Dangerfile) Evaluate(ctx context.Context, in Input, l *ledger.Ledger) error {
	log := clog.FromContext(ctx)
	if in.Diff == nil {
		in.Diff = &gitctx.DiffStat{}
	}
	if in.Request == nil {
		in.Request = &host.Request{}
	}

	for _, r := range d.Rules {
		files, ok := r.match(in)
		if !ok {
			continue
		}
		text := strings.ReplaceAll(r.text, "{{files}}", formatFiles(files))

		var opts []ledger.Option
		if r.File != "" {
			opts = append(opts, ledger.At(r.File, r.Line))
		}
		var err error
		switch r.action {
		case "markdown":
			err = l.RecordMarkdown(text, opts...)
		case "fail":
			err = l.Record(ledger.KindError, text, r.stickyOpt(opts)...)
		case "warn":
			err = l.Record(ledger.KindWarning, text, r.stickyOpt(opts)...)
		case "message":
			err = l.Record(ledger.KindMessage, text, r.stickyOpt(opts)...)
		}
		if err != nil {
			return &ExecutionError{File: d.Path, Line: r.pos, Err: err}
		}
		log.With("rule", r.label(), "action", r.action).Debug("rule matched")
	}
	return nil
}

func (r Rule) stickyOpt(opts []ledger.Option) []ledger.Option {
	if r.Sticky {
		return append(opts, ledger.Sticky())
	}
	return opts
}

// match reports whether every condition of r holds, and returns the files
// that satisfied the file conditions.
func (r Rule) match(in Input) (gitctx.FileList, bool) {
	c := r.When
	diff, req := in.Diff, in.Request
	matched := map[string]bool{}

	for _, set := range []struct {
		patterns []string
		files    gitctx.FileList
	}{
		{c.Added, diff.Added},
		{c.Deleted, diff.Deleted},
		{c.Modified, diff.Modified},
		{c.Touched, diff.TouchedFiles()},
	} {
		if len(set.patterns) == 0 {
			continue
		}
		hits := set.files.Include(set.patterns...)
		if len(hits) == 0 {
			return nil, false
		}
		for _, f := range hits {
			matched[f] = true
		}
	}

	if len(c.NotModified) > 0 && len(diff.TouchedFiles().Include(c.NotModified...)) > 0 {
		return nil, false
	}
	if c.MaxLines != nil && diff.LinesOfCode() <= *c.MaxLines {
		return nil, false
	}
	if r.title != nil && !r.title.MatchString(req.Title) {
		return nil, false
	}
	if r.body != nil && !r.body.MatchString(req.Body) {
		return nil, false
	}
	if c.BodyEmpty && strings.TrimSpace(req.Body) != "" {
		return nil, false
	}
	if r.commits != nil && !slices.ContainsFunc(diff.Commits, func(cm gitctx.Commit) bool {
		return r.commits.MatchString(cm.Message)
	}) {
		return nil, false
	}
	if len(c.Labels) > 0 && !slices.ContainsFunc(req.Labels, func(l string) bool {
		return slices.Contains(c.Labels, l)
	}) {
		return nil, false
	}

	files := make(gitctx.FileList, 0, len(matched))
	for f := range matched {
		files = append(files, f)
	}
	slices.Sort(files)
	return files, true
}

func formatFiles(files gitctx.FileList) string {
	quoted := make([]string, len(files))
	for i, f := range files {
		quoted[i] = "`" + f + "`"
	}
	return strings.Join(quoted, ", ")
}
