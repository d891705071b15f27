package host

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"
)

// GitHub is the Provider for github.com and GitHub Enterprise.
type GitHub struct {
	gh     *gh.Client
	owner  string
	repo   string
	number int
}

var _ Provider = (*GitHub)(nil)

// NewGitHub returns a provider for pull request number of owner/repo.
// apiURL is the REST base URL. When httpClient is nil the client is built
// on an in-memory ETag cache and the secondary rate limit middleware.
func NewGitHub(owner, repo string, number int, token, apiURL string, httpClient *http.Client) (*GitHub, error) {
	if httpClient == nil {
		httpClient = github_ratelimit.NewClient(httpcache.NewMemoryCacheTransport())
	}
	client := gh.NewClient(httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	if apiURL != "" {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		u, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("parsing GitHub API URL: %w", err)
		}
		client.BaseURL = u
	}
	return &GitHub{gh: client, owner: owner, repo: repo, number: number}, nil
}

func (g *GitHub) Name() string { return "GitHub" }

// ListComments returns the issue comments of the pull request, following
// pagination.
func (g *GitHub) ListComments(ctx context.Context) ([]Comment, error) {
	opts := &gh.IssueListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	var out []Comment
	for {
		comments, resp, err := g.gh.Issues.ListComments(ctx, g.owner, g.repo, g.number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing comments for %s/%s#%d (page %d): %w", g.owner, g.repo, g.number, opts.Page, err)
		}
		for _, c := range comments {
			out = append(out, mapIssueComment(c))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (g *GitHub) CreateComment(ctx context.Context, body string) (Comment, error) {
	c, _, err := g.gh.Issues.CreateComment(ctx, g.owner, g.repo, g.number, &gh.IssueComment{
		Body: gh.Ptr(body),
	})
	if err != nil {
		return Comment{}, fmt.Errorf("creating comment on %s/%s#%d: %w", g.owner, g.repo, g.number, err)
	}
	return mapIssueComment(c), nil
}

func (g *GitHub) UpdateComment(ctx context.Context, id, body string) error {
	cid, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid comment id %q: %w", id, err)
	}
	if _, _, err := g.gh.Issues.EditComment(ctx, g.owner, g.repo, cid, &gh.IssueComment{Body: gh.Ptr(body)}); err != nil {
		return fmt.Errorf("updating comment %s: %w", id, err)
	}
	return nil
}

func (g *GitHub) DeleteComment(ctx context.Context, id string) error {
	cid, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid comment id %q: %w", id, err)
	}
	if _, err := g.gh.Issues.DeleteComment(ctx, g.owner, g.repo, cid); err != nil {
		return fmt.Errorf("deleting comment %s: %w", id, err)
	}
	return nil
}

func (g *GitHub) FetchRequest(ctx context.Context) (*Request, error) {
	pr, _, err := g.gh.PullRequests.Get(ctx, g.owner, g.repo, g.number)
	if err != nil {
		return nil, fmt.Errorf("fetching pull request %s/%s#%d: %w", g.owner, g.repo, g.number, err)
	}
	req := &Request{
		Title:   pr.GetTitle(),
		Body:    pr.GetBody(),
		Author:  pr.GetUser().GetLogin(),
		BaseRef: pr.GetBase().GetRef(),
		HeadRef: pr.GetHead().GetRef(),
		BaseSHA: pr.GetBase().GetSHA(),
		HeadSHA: pr.GetHead().GetSHA(),
		URL:     pr.GetHTMLURL(),
	}
	for _, l := range pr.Labels {
		req.Labels = append(req.Labels, l.GetName())
	}
	return req, nil
}

// SetStatus posts a commit status for sha.
func (g *GitHub) SetStatus(ctx context.Context, sha string, s Status) error {
	status := &gh.RepoStatus{
		State:       gh.Ptr(string(s.State)),
		Description: gh.Ptr(s.Description),
		Context:     gh.Ptr(s.Context),
	}
	if s.TargetURL != "" {
		status.TargetURL = gh.Ptr(s.TargetURL)
	}
	u := fmt.Sprintf("repos/%s/%s/statuses/%s", g.owner, g.repo, sha)
	req, err := g.gh.NewRequest(http.MethodPost, u, status)
	if err != nil {
		return fmt.Errorf("creating status request: %w", err)
	}
	if _, err := g.gh.Do(ctx, req, nil); err != nil {
		return fmt.Errorf("setting status on %s: %w", sha, err)
	}
	return nil
}

func mapIssueComment(c *gh.IssueComment) Comment {
	return Comment{
		ID:        strconv.FormatInt(c.GetID(), 10),
		Body:      c.GetBody(),
		CreatedAt: c.GetCreatedAt().Time,
	}
}
