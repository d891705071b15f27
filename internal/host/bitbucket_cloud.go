package host

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
)

// BitbucketCloud is the Provider for bitbucket.org, using the 2.0 API with
// an app password.
type BitbucketCloud struct {
	rest restClient
	slug string
	id   int
}

var _ Provider = (*BitbucketCloud)(nil)

// NewBitbucketCloud returns a provider for pull request id of the
// workspace/repo slug.
func NewBitbucketCloud(slug string, id int, username, password, apiURL string, httpClient *http.Client) *BitbucketCloud {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &BitbucketCloud{
		rest: restClient{
			http: httpClient,
			base: apiURL,
			auth: func(r *http.Request) { r.SetBasicAuth(username, password) },
		},
		slug: slug,
		id:   id,
	}
}

func (b *BitbucketCloud) Name() string { return "Bitbucket Cloud" }

func (b *BitbucketCloud) prPath() string {
	return fmt.Sprintf("repositories/%s/pullrequests/%d", b.slug, b.id)
}

// ListComments returns the general comments of the pull request. Inline
// and deleted comments are skipped.
func (b *BitbucketCloud) ListComments(ctx context.Context) ([]Comment, error) {
	var out []Comment
	next := b.prPath() + "/comments?pagelen=100"
	for next != "" {
		data, _, err := b.rest.do(ctx, http.MethodGet, next, nil)
		if err != nil {
			return nil, fmt.Errorf("listing comments for %s#%d: %w", b.slug, b.id, err)
		}
		page := gjson.ParseBytes(data)
		for _, c := range page.Get("values").Array() {
			if c.Get("deleted").Bool() || c.Get("inline").Exists() {
				continue
			}
			out = append(out, bitbucketCloudComment(c))
		}
		next = page.Get("next").String()
	}
	return out, nil
}

func (b *BitbucketCloud) CreateComment(ctx context.Context, body string) (Comment, error) {
	data, _, err := b.rest.do(ctx, http.MethodPost, b.prPath()+"/comments", rawContent(body))
	if err != nil {
		return Comment{}, fmt.Errorf("creating comment on %s#%d: %w", b.slug, b.id, err)
	}
	return bitbucketCloudComment(gjson.ParseBytes(data)), nil
}

func (b *BitbucketCloud) UpdateComment(ctx context.Context, id, body string) error {
	path := b.prPath() + "/comments/" + url.PathEscape(id)
	if _, _, err := b.rest.do(ctx, http.MethodPut, path, rawContent(body)); err != nil {
		return fmt.Errorf("updating comment %s: %w", id, err)
	}
	return nil
}

func (b *BitbucketCloud) DeleteComment(ctx context.Context, id string) error {
	path := b.prPath() + "/comments/" + url.PathEscape(id)
	if _, _, err := b.rest.do(ctx, http.MethodDelete, path, nil); err != nil {
		return fmt.Errorf("deleting comment %s: %w", id, err)
	}
	return nil
}

func (b *BitbucketCloud) FetchRequest(ctx context.Context) (*Request, error) {
	data, _, err := b.rest.do(ctx, http.MethodGet, b.prPath(), nil)
	if err != nil {
		return nil, fmt.Errorf("fetching pull request %s#%d: %w", b.slug, b.id, err)
	}
	pr := gjson.ParseBytes(data)
	author := pr.Get("author.nickname").String()
	if author == "" {
		author = pr.Get("author.display_name").String()
	}
	return &Request{
		Title:   pr.Get("title").String(),
		Body:    pr.Get("description").String(),
		Author:  author,
		BaseRef: pr.Get("destination.branch.name").String(),
		HeadRef: pr.Get("source.branch.name").String(),
		BaseSHA: pr.Get("destination.commit.hash").String(),
		HeadSHA: pr.Get("source.commit.hash").String(),
		URL:     pr.Get("links.html.href").String(),
	}, nil
}

var bitbucketStates = map[State]string{
	StateSuccess: "SUCCESSFUL",
	StateFailure: "FAILED",
	StatePending: "INPROGRESS",
}

// SetStatus posts a build status. Bitbucket requires a URL, so the pull
// request page is used when s has none.
func (b *BitbucketCloud) SetStatus(ctx context.Context, sha string, s Status) error {
	target := s.TargetURL
	if target == "" {
		target = fmt.Sprintf("https://bitbucket.org/%s/pull-requests/%d", b.slug, b.id)
	}
	in := map[string]string{
		"state":       bitbucketStates[s.State],
		"key":         s.Context,
		"name":        s.Context,
		"description": s.Description,
		"url":         target,
	}
	path := fmt.Sprintf("repositories/%s/commit/%s/statuses/build", b.slug, url.PathEscape(sha))
	if _, _, err := b.rest.do(ctx, http.MethodPost, path, in); err != nil {
		return fmt.Errorf("setting status on %s: %w", sha, err)
	}
	return nil
}

func rawContent(body string) map[string]any {
	return map[string]any{"content": map[string]string{"raw": body}}
}

func bitbucketCloudComment(c gjson.Result) Comment {
	return Comment{
		ID:        c.Get("id").String(),
		Body:      c.Get("content.raw").String(),
		CreatedAt: c.Get("created_on").Time(),
	}
}
