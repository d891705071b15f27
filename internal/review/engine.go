package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"

	"github.com/dshills/danger/internal/comment"
	"github.com/dshills/danger/internal/dangerfile"
	"github.com/dshills/danger/internal/gitctx"
	"github.com/dshills/danger/internal/host"
	"github.com/dshills/danger/internal/ledger"
	"github.com/dshills/danger/internal/redact"
	"github.com/dshills/danger/internal/source"
)

// Version is reported in every Report and by `danger version`.
var Version = "dev"

// Options configures one run.
type Options struct {
	// Env is the environment the CI provider and host are resolved from.
	Env source.Env
	// Dir is the repository working directory.
	Dir        string
	Remote     string
	GitBackend string
	// Base and Head override the refs the CI provider reports.
	Base, Head string
	// Dangerfile is the rules file. Empty means the first default name
	// found in Dir.
	Dangerfile string
	// DangerID namespaces the sticky comment and the commit status.
	DangerID string
	// Ignored lists violation texts to drop, in addition to the ignore
	// directives of the request body.
	Ignored      []string
	CommitStatus bool
	// DryRun reads from the host but never writes to it.
	DryRun bool

	// Runner replaces the git runner built from Dir, Remote and GitBackend.
	Runner gitctx.Runner
	// NewProvider replaces host.New.
	NewProvider func(context.Context, *source.Resolved) (host.Provider, error)
}

// Run executes one danger run. Resolution, diff and Dangerfile failures
// are returned as errors; host failures are recorded on the Report.
func Run(ctx context.Context, opts Options) (*Report, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	log := clog.FromContext(ctx).With("run_id", runID)
	ctx = clog.WithLogger(ctx, log)

	runner := opts.Runner
	if runner == nil {
		var err error
		runner, err = gitctx.NewRunner(opts.GitBackend, opts.Dir, remoteOrDefault(opts.Remote))
		if err != nil {
			return nil, err
		}
	}

	rc, err := source.Resolve(ctx, opts.Env, runner)
	if err != nil {
		return nil, err
	}
	rc = rc.WithRefs(opts.Base, opts.Head)
	secrets := rc.Credentials.Secrets()

	df, err := loadDangerfile(opts)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Tool:       "danger",
		Version:    Version,
		RunID:      runID,
		Source:     rc,
		Dangerfile: df.Path,
	}
	hostErr := func(err error) {
		msg := redact.Values(err.Error(), secrets...)
		report.HostErrors = append(report.HostErrors, msg)
		log.With("error", msg).Warn("host operation failed")
	}

	newProvider := opts.NewProvider
	if newProvider == nil {
		newProvider = host.New
	}
	hostStart := time.Now()
	provider, err := newProvider(ctx, rc)
	if err != nil {
		return nil, fmt.Errorf("creating %s client: %w", source.HostName(rc.Host), err)
	}

	req, err := provider.FetchRequest(ctx)
	if err != nil {
		hostErr(&comment.HostMutationError{Op: comment.OpFetch, Host: provider.Name(), Err: err})
		req = nil
	}
	report.Request = req
	hostMs := time.Since(hostStart)

	base, head := refs(rc, req)
	if base == "" || head == "" {
		return nil, &gitctx.DiffUnavailableError{
			Base: base,
			Head: head,
			Err:  errors.New("the refs to compare are unknown; pass --base and --head"),
		}
	}

	gitStart := time.Now()
	diff, err := gitctx.Summarize(ctx, runner, base, head)
	if err != nil {
		return nil, err
	}
	gitMs := time.Since(gitStart).Milliseconds()
	report.Diff = newDiffInfo(diff)

	l := ledger.New()
	if err := df.Evaluate(ctx, dangerfile.Input{Diff: diff, Request: req}, l); err != nil {
		return nil, err
	}
	l.Seal()

	var directives []string
	if req != nil {
		directives = ledger.IgnoreDirectives(req.Body)
	}
	status := l.Status(ledger.MergeIgnores(opts.Ignored, directives))
	report.Status = status
	report.Counts = status.Counts()
	report.Failed = status.Failed()

	hostStart = time.Now()
	id := opts.DangerID
	if id == "" {
		id = comment.DefaultID
	}
	switch {
	case rc.CI == source.CILocalGit || rc.ReadOnly:
		log.Debug("local run, not posting")
	case opts.DryRun:
		res, err := comment.Prepare(ctx, provider, status, id)
		if err != nil {
			hostErr(err)
			break
		}
		report.Sync = res
		report.Comment = newCommentInfo(res)
	default:
		res, err := comment.Sync(ctx, provider, status, id)
		if err != nil {
			hostErr(err)
		}
		if res != nil {
			report.Sync = res
			report.Comment = newCommentInfo(res)
		}
		if opts.CommitStatus {
			setStatus(ctx, provider, status, id, req, head, hostErr)
		}
	}
	hostMs += time.Since(hostStart)

	report.Timing = Timing{
		GitMs:   gitMs,
		HostMs:  hostMs.Milliseconds(),
		TotalMs: time.Since(startTime).Milliseconds(),
	}
	log.With("errors", report.Counts.Errors, "warnings", report.Counts.Warnings, "failed", report.Failed).
		Info("run complete")
	return report, nil
}

func loadDangerfile(opts Options) (*dangerfile.Dangerfile, error) {
	path := opts.Dangerfile
	if path == "" {
		dir := opts.Dir
		if dir == "" {
			dir = "."
		}
		var err error
		if path, err = dangerfile.Find(dir); err != nil {
			return nil, err
		}
	}
	return dangerfile.Load(path)
}

// refs picks the refs to compare. Refs from the CI provider or the command
// line win over the request's, and the request's commit SHAs win over its
// branch names.
func refs(rc *source.Resolved, req *host.Request) (base, head string) {
	base, head = rc.BaseRef, rc.HeadRef
	if req == nil {
		return base, head
	}
	if base == "" {
		base = firstNonEmpty(req.BaseSHA, req.BaseRef)
	}
	if head == "" {
		head = firstNonEmpty(req.HeadSHA, req.HeadRef)
	}
	return base, head
}

func setStatus(ctx context.Context, p host.Provider, status ledger.Status, id string, req *host.Request, head string, hostErr func(error)) {
	sha, target := head, ""
	if req != nil {
		sha = firstNonEmpty(req.HeadSHA, head)
		target = req.URL
	}
	err := p.SetStatus(ctx, sha, comment.CommitStatus(status, id, target))
	switch {
	case errors.Is(err, host.ErrStatusUnsupported):
		clog.FromContext(ctx).With("host", p.Name()).Info("host has no commit statuses, skipping")
	case err != nil:
		hostErr(&comment.HostMutationError{Op: comment.OpStatus, Host: p.Name(), Err: err})
	}
}

func remoteOrDefault(r string) string {
	if r == "" {
		return "origin"
	}
	return r
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
