package source

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/chainguard-dev/clog"

	"github.com/dshills/danger/internal/redact"
)

// Resolve identifies the CI provider and host for env. It returns a
// *Resolved, ErrNotPullRequest (wrapped) for builds that are not for a
// request, or a *Diagnostic. git is only consulted in local mode and may
// be nil otherwise.
func Resolve(ctx context.Context, env Env, git LocalRepo) (*Resolved, error) {
	log := clog.FromContext(ctx)

	ci, ok := detectCI(env)
	if !ok {
		return nil, &Diagnostic{Kind: DiagNoCI, ObservedKeys: env.Keys()}
	}
	log.With("ci", ci.id).Debug("detected CI provider")

	if !ci.isPR(env) {
		return nil, fmt.Errorf("%s: %w", ci.name, ErrNotPullRequest)
	}

	he, err := decodeHostEnv(ctx, env)
	if err != nil {
		return nil, &Diagnostic{Kind: DiagCIEnvironment, CI: ci.name, Err: err}
	}

	info, err := ci.build(ctx, env, he, git)
	if err != nil {
		if errors.Is(err, errLocal) {
			return nil, &Diagnostic{Kind: DiagLocalGit, CI: ci.name, Err: err}
		}
		return nil, &Diagnostic{Kind: DiagCIEnvironment, CI: ci.name, Err: err}
	}

	host, diag := selectHost(ci, info, he, env)
	if diag != nil {
		return nil, diag
	}

	rc := &Resolved{
		CI:            ci.id,
		Host:          host.id,
		RepoSlug:      info.slug,
		RepoURL:       redact.URL(info.repoURL),
		PullRequestID: info.id,
		BaseRef:       info.base,
		HeadRef:       info.head,
		Credentials:   host.creds(he),
	}
	if ci.id == CILocalGit && len(host.missing(env)) > 0 {
		rc.ReadOnly = true
	}
	if err := rc.validate(); err != nil {
		return nil, &Diagnostic{Kind: DiagCIEnvironment, CI: ci.name, Err: err}
	}

	log.With("ci", rc.CI, "host", rc.Host, "repo", rc.RepoSlug, "request", rc.PullRequestID).
		Info("resolved request")
	return rc, nil
}

// selectHost applies the host rules: an inferable host must have its own
// credentials; otherwise the first supported host with credentials wins.
func selectHost(ci ciProvider, info ciInfo, he hostEnv, env Env) (hostSpec, *Diagnostic) {
	if ci.id == CILocalGit {
		// Local mode reads from GitHub and may do so without a token.
		return lookupHost(HostGitHub), nil
	}

	if h, ok := inferHost(info.repoURL, he); ok {
		if !ci.supports(h.id) {
			return hostSpec{}, &Diagnostic{
				Kind:  DiagUnsupportedHost,
				CI:    ci.name,
				Host:  h.name,
				Hosts: requirements(ci),
			}
		}
		if missing := h.missing(env); len(missing) > 0 {
			return hostSpec{}, &Diagnostic{
				Kind:     DiagMissingCredentials,
				CI:       ci.name,
				Host:     h.name,
				Missing:  missing,
				Optional: h.optional,
				Notes:    forkNotes(ci, missing),
			}
		}
		return h, nil
	}

	for _, h := range hostRegistry {
		if ci.supports(h.id) && len(h.missing(env)) == 0 {
			return h, nil
		}
	}

	d := &Diagnostic{
		Kind:         DiagNoHost,
		CI:           ci.name,
		Hosts:        requirements(ci),
		ObservedKeys: env.Keys(),
	}
	var unset []string
	for _, k := range ci.hiddenOnForks {
		if env.Get(k) == "" {
			unset = append(unset, k)
		}
	}
	d.Notes = forkNotes(ci, unset)
	return hostSpec{}, d
}

// forkNotes explains, for each absent variable the CI provider withholds
// from fork builds, why it may be missing.
func forkNotes(ci ciProvider, absent []string) []string {
	var notes []string
	for _, k := range ci.hiddenOnForks {
		if !slices.Contains(absent, k) {
			continue
		}
		notes = append(notes, fmt.Sprintf(
			"Note: %s does not expose secure variables such as %s to builds of pull requests opened from forks. "+
				"If this pull request comes from a fork, Danger cannot comment on it.", ci.name, k))
	}
	return notes
}

func requirements(ci ciProvider) []HostRequirement {
	var out []HostRequirement
	for _, h := range hostRegistry {
		if ci.supports(h.id) {
			out = append(out, HostRequirement{Host: h.name, Variables: h.required})
		}
	}
	return out
}
