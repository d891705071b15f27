package gitctx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// testRepo is a throw-away repository built in-process.
type testRepo struct {
	t    *testing.T
	dir  string
	repo *git.Repository
	wt   *git.Worktree
	tick time.Time
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	return &testRepo{t: t, dir: dir, repo: repo, wt: wt, tick: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (r *testRepo) write(path, content string) {
	r.t.Helper()
	full := filepath.Join(r.dir, path)
	require.NoError(r.t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(r.t, os.WriteFile(full, []byte(content), 0o644))
	_, err := r.wt.Add(path)
	require.NoError(r.t, err)
}

func (r *testRepo) remove(path string) {
	r.t.Helper()
	_, err := r.wt.Remove(path)
	require.NoError(r.t, err)
}

func (r *testRepo) commit(msg string, parents ...plumbing.Hash) string {
	r.t.Helper()
	r.tick = r.tick.Add(time.Minute)
	sig := &object.Signature{Name: "Test", Email: "test@example.com", When: r.tick}
	opts := &git.CommitOptions{Author: sig, Committer: sig}
	if len(parents) > 0 {
		opts.Parents = parents
	}
	h, err := r.wt.Commit(msg, opts)
	require.NoError(r.t, err)
	return h.String()
}

func (r *testRepo) branch(name, sha string) {
	r.t.Helper()
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), plumbing.NewHash(sha))
	require.NoError(r.t, r.repo.Storer.SetReference(ref))
}

func numberedLines(n int, changed int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		if i == changed {
			b.WriteString("this line was changed\n")
			continue
		}
		b.WriteString("line number " + string(rune('a'+i%26)) + " of the fixture\n")
	}
	return b.String()
}
