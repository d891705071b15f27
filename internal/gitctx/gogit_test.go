package gitctx

import (
	"context"
	"testing"

	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_MergeCommits(t *testing.T) {
	r := newTestRepo(t)
	r.write("x", "x\n")
	base := r.commit("init")
	r.write("y", "y\n")
	topic := r.commit("topic work")

	merge := r.commit("Merge pull request #7 from someone/topic",
		plumbing.NewHash(base), plumbing.NewHash(topic))
	r.write("z", "z\n")
	r.commit("after merge")

	merges, err := NewRepository(r.repo, "").MergeCommits(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, merges, 1)
	assert.Equal(t, merge, merges[0].SHA)
	assert.Equal(t, []string{base, topic}, merges[0].Parents)
	assert.Equal(t, "Merge pull request #7 from someone/topic", merges[0].Message)
}

func TestRepository_RemoteURL(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "upstream",
		URLs: []string{"https://gitlab.com/group/project.git"},
	})
	require.NoError(t, err)

	url, err := NewRepository(r.repo, "upstream").RemoteURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://gitlab.com/group/project.git", url)

	_, err = NewRepository(r.repo, "").RemoteURL(context.Background())
	assert.Error(t, err)
}

func TestRepository_ResolvesRemoteTrackingBranch(t *testing.T) {
	r := newTestRepo(t)
	r.write("x", "x\n")
	sha := r.commit("init")
	ref := plumbing.NewHashReference(plumbing.NewRemoteReferenceName("origin", "develop"), plumbing.NewHash(sha))
	require.NoError(t, r.repo.Storer.SetReference(ref))

	h, err := NewRepository(r.repo, "").resolve("develop")
	require.NoError(t, err)
	assert.Equal(t, sha, h.String())

	_, err = NewRepository(r.repo, "").resolve("nope")
	var unknown *UnknownRevisionError
	assert.ErrorAs(t, err, &unknown)
}

func TestRepository_ResolvesFetchedPullRequestRef(t *testing.T) {
	r := newTestRepo(t)
	r.write("x", "x\n")
	sha := r.commit("init")
	ref := plumbing.NewHashReference(plumbing.ReferenceName("refs/remotes/origin/pull/7/head"), plumbing.NewHash(sha))
	require.NoError(t, r.repo.Storer.SetReference(ref))

	h, err := NewRepository(r.repo, "").resolve("refs/pull/7/head")
	require.NoError(t, err)
	assert.Equal(t, sha, h.String())
}

func TestOpenRepository_NotARepo(t *testing.T) {
	_, err := OpenRepository(t.TempDir(), "")
	assert.Error(t, err)
}
