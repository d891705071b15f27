package host

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// BitbucketServer is the Provider for self-hosted Bitbucket Server and
// Data Center, using the 1.0 REST API.
//
// Updates and deletes must name the comment version the caller last saw.
// Versions are remembered from ListComments and CreateComment.
type BitbucketServer struct {
	rest    restClient
	project string
	repo    string
	id      int

	mu       sync.Mutex
	versions map[string]int64
}

var _ Provider = (*BitbucketServer)(nil)

// NewBitbucketServer returns a provider for pull request id of
// project/repo on the server at baseURL.
func NewBitbucketServer(project, repo string, id int, username, password, baseURL string, httpClient *http.Client) *BitbucketServer {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &BitbucketServer{
		rest: restClient{
			http: httpClient,
			base: strings.TrimRight(baseURL, "/") + "/rest/api/1.0",
			auth: func(r *http.Request) { r.SetBasicAuth(username, password) },
		},
		project:  project,
		repo:     repo,
		id:       id,
		versions: make(map[string]int64),
	}
}

func (b *BitbucketServer) Name() string { return "Bitbucket Server" }

func (b *BitbucketServer) prPath() string {
	return fmt.Sprintf("projects/%s/repos/%s/pull-requests/%d",
		url.PathEscape(b.project), url.PathEscape(b.repo), b.id)
}

// ListComments returns the comments added to the pull request, read from
// its activity stream.
func (b *BitbucketServer) ListComments(ctx context.Context) ([]Comment, error) {
	var out []Comment
	start := int64(0)
	for {
		path := fmt.Sprintf("%s/activities?limit=100&start=%d", b.prPath(), start)
		data, _, err := b.rest.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, fmt.Errorf("listing activities for %s/%s#%d: %w", b.project, b.repo, b.id, err)
		}
		page := gjson.ParseBytes(data)
		for _, a := range page.Get("values").Array() {
			if a.Get("action").String() != "COMMENTED" || a.Get("commentAction").String() != "ADDED" {
				continue
			}
			out = append(out, b.remember(a.Get("comment")))
		}
		if page.Get("isLastPage").Bool() || !page.Get("nextPageStart").Exists() {
			break
		}
		start = page.Get("nextPageStart").Int()
	}
	return out, nil
}

func (b *BitbucketServer) CreateComment(ctx context.Context, body string) (Comment, error) {
	data, _, err := b.rest.do(ctx, http.MethodPost, b.prPath()+"/comments", map[string]string{"text": body})
	if err != nil {
		return Comment{}, fmt.Errorf("creating comment on %s/%s#%d: %w", b.project, b.repo, b.id, err)
	}
	return b.remember(gjson.ParseBytes(data)), nil
}

func (b *BitbucketServer) UpdateComment(ctx context.Context, id, body string) error {
	in := map[string]any{"text": body, "version": b.version(id)}
	data, _, err := b.rest.do(ctx, http.MethodPut, b.prPath()+"/comments/"+url.PathEscape(id), in)
	if err != nil {
		return fmt.Errorf("updating comment %s: %w", id, err)
	}
	b.remember(gjson.ParseBytes(data))
	return nil
}

func (b *BitbucketServer) DeleteComment(ctx context.Context, id string) error {
	path := fmt.Sprintf("%s/comments/%s?version=%d", b.prPath(), url.PathEscape(id), b.version(id))
	if _, _, err := b.rest.do(ctx, http.MethodDelete, path, nil); err != nil {
		return fmt.Errorf("deleting comment %s: %w", id, err)
	}
	b.mu.Lock()
	delete(b.versions, id)
	b.mu.Unlock()
	return nil
}

func (b *BitbucketServer) FetchRequest(ctx context.Context) (*Request, error) {
	data, _, err := b.rest.do(ctx, http.MethodGet, b.prPath(), nil)
	if err != nil {
		return nil, fmt.Errorf("fetching pull request %s/%s#%d: %w", b.project, b.repo, b.id, err)
	}
	pr := gjson.ParseBytes(data)
	return &Request{
		Title:   pr.Get("title").String(),
		Body:    pr.Get("description").String(),
		Author:  pr.Get("author.user.name").String(),
		BaseRef: pr.Get("toRef.displayId").String(),
		HeadRef: pr.Get("fromRef.displayId").String(),
		BaseSHA: pr.Get("toRef.latestCommit").String(),
		HeadSHA: pr.Get("fromRef.latestCommit").String(),
		URL:     pr.Get("links.self.0.href").String(),
	}, nil
}

func (b *BitbucketServer) SetStatus(context.Context, string, Status) error {
	return ErrStatusUnsupported
}

func (b *BitbucketServer) remember(c gjson.Result) Comment {
	id := c.Get("id").String()
	b.mu.Lock()
	b.versions[id] = c.Get("version").Int()
	b.mu.Unlock()
	return Comment{
		ID:        id,
		Body:      c.Get("text").String(),
		CreatedAt: time.UnixMilli(c.Get("createdDate").Int()),
	}
}

func (b *BitbucketServer) version(id string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.versions[id]
}
