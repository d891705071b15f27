package host

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

// GitLab is the Provider for gitlab.com and self-managed GitLab, using
// the v4 REST API.
type GitLab struct {
	rest    restClient
	project string
	iid     int
}

var _ Provider = (*GitLab)(nil)

// NewGitLab returns a provider for merge request iid of project, a
// "group/name" path. The token is sent as an OAuth2 bearer token, which
// GitLab accepts for personal, project and CI job tokens.
func NewGitLab(ctx context.Context, project string, iid int, token, apiURL string) *GitLab {
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	return &GitLab{
		rest:    restClient{http: httpClient, base: apiURL},
		project: project,
		iid:     iid,
	}
}

func (g *GitLab) Name() string { return "GitLab" }

func (g *GitLab) mrPath() string {
	return fmt.Sprintf("projects/%s/merge_requests/%d", url.PathEscape(g.project), g.iid)
}

// ListComments returns the merge request's notes, skipping system notes,
// oldest first.
func (g *GitLab) ListComments(ctx context.Context) ([]Comment, error) {
	var out []Comment
	page := "1"
	for page != "" {
		path := fmt.Sprintf("%s/notes?per_page=100&sort=asc&order_by=created_at&page=%s", g.mrPath(), page)
		data, hdr, err := g.rest.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, fmt.Errorf("listing notes for %s!%d: %w", g.project, g.iid, err)
		}
		for _, n := range gjson.ParseBytes(data).Array() {
			if n.Get("system").Bool() {
				continue
			}
			out = append(out, Comment{
				ID:        n.Get("id").String(),
				Body:      n.Get("body").String(),
				CreatedAt: n.Get("created_at").Time(),
			})
		}
		page = hdr.Get("X-Next-Page")
	}
	return out, nil
}

func (g *GitLab) CreateComment(ctx context.Context, body string) (Comment, error) {
	data, _, err := g.rest.do(ctx, http.MethodPost, g.mrPath()+"/notes", map[string]string{"body": body})
	if err != nil {
		return Comment{}, fmt.Errorf("creating note on %s!%d: %w", g.project, g.iid, err)
	}
	n := gjson.ParseBytes(data)
	return Comment{
		ID:        n.Get("id").String(),
		Body:      n.Get("body").String(),
		CreatedAt: n.Get("created_at").Time(),
	}, nil
}

func (g *GitLab) UpdateComment(ctx context.Context, id, body string) error {
	path := g.mrPath() + "/notes/" + url.PathEscape(id)
	if _, _, err := g.rest.do(ctx, http.MethodPut, path, map[string]string{"body": body}); err != nil {
		return fmt.Errorf("updating note %s: %w", id, err)
	}
	return nil
}

func (g *GitLab) DeleteComment(ctx context.Context, id string) error {
	path := g.mrPath() + "/notes/" + url.PathEscape(id)
	if _, _, err := g.rest.do(ctx, http.MethodDelete, path, nil); err != nil {
		return fmt.Errorf("deleting note %s: %w", id, err)
	}
	return nil
}

func (g *GitLab) FetchRequest(ctx context.Context) (*Request, error) {
	data, _, err := g.rest.do(ctx, http.MethodGet, g.mrPath(), nil)
	if err != nil {
		return nil, fmt.Errorf("fetching merge request %s!%d: %w", g.project, g.iid, err)
	}
	mr := gjson.ParseBytes(data)
	req := &Request{
		Title:   mr.Get("title").String(),
		Body:    mr.Get("description").String(),
		Author:  mr.Get("author.username").String(),
		BaseRef: mr.Get("target_branch").String(),
		HeadRef: mr.Get("source_branch").String(),
		BaseSHA: mr.Get("diff_refs.base_sha").String(),
		HeadSHA: mr.Get("diff_refs.head_sha").String(),
		URL:     mr.Get("web_url").String(),
	}
	if req.HeadSHA == "" {
		req.HeadSHA = mr.Get("sha").String()
	}
	for _, l := range mr.Get("labels").Array() {
		req.Labels = append(req.Labels, l.String())
	}
	return req, nil
}

// gitlabStates maps status states to GitLab's commit status names.
var gitlabStates = map[State]string{
	StateSuccess: "success",
	StateFailure: "failed",
	StatePending: "pending",
}

func (g *GitLab) SetStatus(ctx context.Context, sha string, s Status) error {
	in := map[string]string{
		"state":       gitlabStates[s.State],
		"name":        s.Context,
		"description": s.Description,
	}
	if s.TargetURL != "" {
		in["target_url"] = s.TargetURL
	}
	path := fmt.Sprintf("projects/%s/statuses/%s", url.PathEscape(g.project), url.PathEscape(sha))
	if _, _, err := g.rest.do(ctx, http.MethodPost, path, in); err != nil {
		return fmt.Errorf("setting status on %s: %w", sha, err)
	}
	return nil
}

// parseIID accepts "12" or "!12".
func parseIID(s string) (int, error) {
	if len(s) > 0 && (s[0] == '!' || s[0] == '#') {
		s = s[1:]
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("request id %q is not a positive number", s)
	}
	return n, nil
}
