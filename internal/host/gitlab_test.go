package host

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGitLab(t *testing.T, r chi.Router) *GitLab {
	t.Helper()
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return NewGitLab(context.Background(), "group/app", 5, "glpat-test", server.URL+"/api/v4")
}

func TestGitLab_ListComments(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v4/projects/{project}/merge_requests/{iid}/notes", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "group%2Fapp", chi.URLParam(req, "project"))
		assert.Equal(t, "5", chi.URLParam(req, "iid"))
		assert.Equal(t, "Bearer glpat-test", req.Header.Get("Authorization"))
		if req.URL.Query().Get("page") == "1" {
			w.Header().Set("X-Next-Page", "2")
			fmt.Fprint(w, `[
				{"id": 1, "body": "hi", "created_at": "2024-01-01T10:00:00.000Z", "system": false},
				{"id": 2, "body": "added 1 commit", "created_at": "2024-01-01T11:00:00.000Z", "system": true}
			]`)
			return
		}
		fmt.Fprint(w, `[{"id": 3, "body": "later", "created_at": "2024-01-02T10:00:00.000Z"}]`)
	})
	g := newTestGitLab(t, r)

	comments, err := g.ListComments(context.Background())
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "1", comments[0].ID)
	assert.Equal(t, "later", comments[1].Body)
	assert.Equal(t, 2024, comments[1].CreatedAt.Year())
}

func TestGitLab_CommentMutations(t *testing.T) {
	var got []string
	r := chi.NewRouter()
	r.Route("/api/v4/projects/{project}/merge_requests/{iid}/notes", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, req *http.Request) {
			var in map[string]string
			require.NoError(t, json.NewDecoder(req.Body).Decode(&in))
			got = append(got, "create:"+in["body"])
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id": 99, "body": "x", "created_at": "2024-01-01T00:00:00Z"}`)
		})
		r.Put("/{note}", func(w http.ResponseWriter, req *http.Request) {
			var in map[string]string
			require.NoError(t, json.NewDecoder(req.Body).Decode(&in))
			got = append(got, "update:"+chi.URLParam(req, "note")+":"+in["body"])
			fmt.Fprint(w, `{}`)
		})
		r.Delete("/{note}", func(w http.ResponseWriter, req *http.Request) {
			got = append(got, "delete:"+chi.URLParam(req, "note"))
			w.WriteHeader(http.StatusNoContent)
		})
	})
	g := newTestGitLab(t, r)
	ctx := context.Background()

	c, err := g.CreateComment(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "99", c.ID)
	require.NoError(t, g.UpdateComment(ctx, "99", "bye"))
	require.NoError(t, g.DeleteComment(ctx, "99"))
	assert.Equal(t, []string{"create:hello", "update:99:bye", "delete:99"}, got)
}

func TestGitLab_FetchRequest(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v4/projects/{project}/merge_requests/{iid}", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `{
			"title": "Draft: tidy", "description": "body", "author": {"username": "dev"},
			"labels": ["backend"], "target_branch": "main", "source_branch": "tidy",
			"diff_refs": {"base_sha": "b1", "head_sha": "h1"},
			"web_url": "https://gitlab.com/group/app/-/merge_requests/5"
		}`)
	})
	g := newTestGitLab(t, r)

	req, err := g.FetchRequest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Draft: tidy", req.Title)
	assert.Equal(t, "dev", req.Author)
	assert.Equal(t, []string{"backend"}, req.Labels)
	assert.Equal(t, "b1", req.BaseSHA)
	assert.Equal(t, "h1", req.HeadSHA)
	assert.Equal(t, "tidy", req.HeadRef)
}

func TestGitLab_SetStatus(t *testing.T) {
	var in map[string]string
	r := chi.NewRouter()
	r.Post("/api/v4/projects/{project}/statuses/{sha}", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "h1", chi.URLParam(req, "sha"))
		require.NoError(t, json.NewDecoder(req.Body).Decode(&in))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{}`)
	})
	g := newTestGitLab(t, r)

	require.NoError(t, g.SetStatus(context.Background(), "h1", Status{State: StateFailure, Context: "danger/danger", Description: "d"}))
	assert.Equal(t, "failed", in["state"])
	assert.Equal(t, "danger/danger", in["name"])
}

func TestGitLab_APIError(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v4/projects/{project}/merge_requests/{iid}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message": "401 Unauthorized"}`)
	})
	g := newTestGitLab(t, r)

	_, err := g.FetchRequest(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "authentication failed")
}

func TestParseIID(t *testing.T) {
	for in, want := range map[string]int{"12": 12, "!3": 3, "#4": 4} {
		got, err := parseIID(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "abc", "0", "-1"} {
		_, err := parseIID(in)
		assert.Error(t, err, in)
	}
}
