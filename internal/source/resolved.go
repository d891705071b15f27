package source

import (
	"errors"
	"fmt"
)

// CI identifies a CI provider.
type CI string

const (
	CILocalGit           CI = "local_git"
	CITravis             CI = "travis"
	CICircle             CI = "circle"
	CIBuildkite          CI = "buildkite"
	CIGitHubActions      CI = "github_actions"
	CIGitLab             CI = "gitlab_ci"
	CIBitbucketPipelines CI = "bitbucket_pipelines"
	CIJenkins            CI = "jenkins"
)

// HostID identifies a code host.
type HostID string

const (
	HostGitHub          HostID = "github"
	HostGitLab          HostID = "gitlab"
	HostBitbucketCloud  HostID = "bitbucket_cloud"
	HostBitbucketServer HostID = "bitbucket_server"
)

// ErrNotPullRequest is returned when the CI build is not for a request.
// Callers should skip the run without failing.
var ErrNotPullRequest = errors.New("not a pull request build")

// Credentials holds what a host provider needs to authenticate. Only the
// fields relevant to the selected host are set.
type Credentials struct {
	Token    string
	Username string
	Password string
	// WebHost is the host name users browse to, e.g. github.com.
	WebHost string
	// APIURL is the REST base URL.
	APIURL string
}

// String keeps credentials out of %v output.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{WebHost:%s APIURL:%s}", c.WebHost, c.APIURL)
}

// Secrets returns the secret values, for redaction.
func (c Credentials) Secrets() []string {
	return []string{c.Token, c.Password}
}

// Resolved is the immutable outcome of a successful resolution.
type Resolved struct {
	CI            CI          `json:"ci"`
	Host          HostID      `json:"host"`
	RepoSlug      string      `json:"repoSlug"`
	RepoURL       string      `json:"repoURL,omitempty"`
	PullRequestID string      `json:"pullRequestId"`
	BaseRef       string      `json:"baseRef,omitempty"`
	HeadRef       string      `json:"headRef,omitempty"`
	Credentials   Credentials `json:"-"`
	// ReadOnly is set when the host is reachable without credentials and
	// nothing may be posted, as in local mode without a token.
	ReadOnly bool `json:"readOnly,omitempty"`
}

// WithRefs returns a copy with the non-empty refs replaced.
func (r *Resolved) WithRefs(base, head string) *Resolved {
	out := *r
	if base != "" {
		out.BaseRef = base
	}
	if head != "" {
		out.HeadRef = head
	}
	return &out
}

func (r *Resolved) validate() error {
	if r.RepoSlug == "" || !slugRe.MatchString(r.RepoSlug) {
		return fmt.Errorf("repository slug %q is not of the form org/repo", r.RepoSlug)
	}
	if r.PullRequestID == "" {
		return errors.New("pull request id is empty")
	}
	return nil
}
