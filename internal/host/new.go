package host

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/danger/internal/source"
)

// New returns the provider for the host rc resolved to.
func New(ctx context.Context, rc *source.Resolved) (Provider, error) {
	id, err := parseIID(rc.PullRequestID)
	if err != nil {
		return nil, err
	}
	owner, repo, ok := strings.Cut(rc.RepoSlug, "/")
	if !ok {
		return nil, fmt.Errorf("repository slug %q is not of the form org/repo", rc.RepoSlug)
	}
	creds := rc.Credentials

	switch rc.Host {
	case source.HostGitHub:
		return NewGitHub(owner, repo, id, creds.Token, creds.APIURL, nil)
	case source.HostGitLab:
		return NewGitLab(ctx, rc.RepoSlug, id, creds.Token, creds.APIURL), nil
	case source.HostBitbucketCloud:
		return NewBitbucketCloud(rc.RepoSlug, id, creds.Username, creds.Password, creds.APIURL, nil), nil
	case source.HostBitbucketServer:
		return NewBitbucketServer(owner, repo, id, creds.Username, creds.Password, creds.APIURL, nil), nil
	}
	return nil, fmt.Errorf("unsupported host %q", rc.Host)
}
