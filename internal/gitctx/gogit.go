package gitctx

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// Repository is an in-process Runner backed by go-git. It needs no git
// binary, which suits minimal CI images.
type Repository struct {
	repo   *git.Repository
	remote string
}

var _ Runner = (*Repository)(nil)

// OpenRepository opens the repository containing dir.
func OpenRepository(dir, remote string) (*Repository, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repository %s: %w", dir, err)
	}
	return NewRepository(repo, remote), nil
}

// NewRepository wraps an already opened go-git repository.
func NewRepository(repo *git.Repository, remote string) *Repository {
	if remote == "" {
		remote = "origin"
	}
	return &Repository{repo: repo, remote: remote}
}

// MergeBase implements Runner.
func (r *Repository) MergeBase(_ context.Context, a, b string) (string, error) {
	ca, err := r.commit(a)
	if err != nil {
		return "", err
	}
	cb, err := r.commit(b)
	if err != nil {
		return "", err
	}
	bases, err := ca.MergeBase(cb)
	if err != nil {
		return "", fmt.Errorf("merge base of %s and %s: %w", a, b, err)
	}
	if len(bases) == 0 {
		return "", ErrNoMergeBase
	}
	return bases[0].Hash.String(), nil
}

// Diff implements Runner.
func (r *Repository) Diff(ctx context.Context, base, head string) (*RawDiff, error) {
	baseTree, err := r.tree(base)
	if err != nil {
		return nil, err
	}
	headTree, err := r.tree(head)
	if err != nil {
		return nil, err
	}

	changes, err := object.DiffTreeWithOptions(ctx, baseTree, headTree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, fmt.Errorf("diffing trees: %w", err)
	}

	raw := &RawDiff{}
	var patch strings.Builder
	for _, ch := range changes {
		action, err := ch.Action()
		if err != nil {
			return nil, fmt.Errorf("classifying change: %w", err)
		}

		var fc FileChange
		switch action {
		case merkletrie.Insert:
			fc = FileChange{Type: ChangeAdded, Path: ch.To.Name, ContentChanged: true}
		case merkletrie.Delete:
			fc = FileChange{Type: ChangeDeleted, Path: ch.From.Name, ContentChanged: true}
		case merkletrie.Modify:
			fc = FileChange{Type: ChangeModified, Path: ch.To.Name}
			if ch.From.Name != ch.To.Name {
				fc.Type = ChangeRenamed
				fc.OldPath = ch.From.Name
			}
			fc.ContentChanged = ch.From.TreeEntry.Hash != ch.To.TreeEntry.Hash
		}

		p, err := ch.PatchContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("patch for %s: %w", fc.Path, err)
		}
		for _, fp := range p.FilePatches() {
			if fp.IsBinary() {
				fc.Binary = true
			}
		}
		if !fc.Binary {
			for _, st := range p.Stats() {
				fc.Insertions += st.Addition
				fc.Deletions += st.Deletion
			}
		}
		patch.WriteString(p.String())

		raw.Files = append(raw.Files, fc)
	}
	raw.Patch = patch.String()
	return raw, nil
}

// Log implements Runner.
func (r *Repository) Log(_ context.Context, base, head string) ([]Commit, error) {
	baseHash, err := r.resolve(base)
	if err != nil {
		return nil, err
	}
	headHash, err := r.resolve(head)
	if err != nil {
		return nil, err
	}

	seen := make(map[plumbing.Hash]bool)
	baseIter, err := r.repo.Log(&git.LogOptions{From: baseHash})
	if err != nil {
		return nil, fmt.Errorf("log %s: %w", base, err)
	}
	if err := baseIter.ForEach(func(c *object.Commit) error {
		seen[c.Hash] = true
		return nil
	}); err != nil {
		return nil, fmt.Errorf("log %s: %w", base, err)
	}

	headIter, err := r.repo.Log(&git.LogOptions{From: headHash, Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("log %s: %w", head, err)
	}
	var commits []Commit
	err = headIter.ForEach(func(c *object.Commit) error {
		if seen[c.Hash] {
			return nil
		}
		commits = append(commits, Commit{
			SHA:     c.Hash.String(),
			Message: strings.TrimRight(c.Message, "\n"),
			Author:  Author{Name: c.Author.Name, Email: c.Author.Email},
			Date:    c.Author.When,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("log %s..%s: %w", base, head, err)
	}
	return commits, nil
}

// RemoteURL implements Runner.
func (r *Repository) RemoteURL(_ context.Context) (string, error) {
	remote, err := r.repo.Remote(r.remote)
	if err != nil {
		return "", fmt.Errorf("remote %s: %w", r.remote, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("remote %s has no URL", r.remote)
	}
	return urls[0], nil
}

// Fetch implements Runner. A sha cannot be requested directly, so fetching
// one pulls all branches of the remote.
func (r *Repository) Fetch(ctx context.Context, ref string) error {
	spec := fmt.Sprintf("+refs/heads/*:refs/remotes/%s/*", r.remote)
	if src, dst := remoteRef(ref, r.remote); src != "" {
		spec = "+" + src + ":" + dst
	}
	err := r.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: r.remote,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(spec)},
		Tags:       git.NoTags,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetching %s from %s: %w", ref, r.remote, err)
	}
	return nil
}

// MergeCommits implements Runner.
func (r *Repository) MergeCommits(_ context.Context, limit int) ([]MergeCommit, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}
	iter, err := r.repo.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("log HEAD: %w", err)
	}

	var merges []MergeCommit
	err = iter.ForEach(func(c *object.Commit) error {
		if c.NumParents() < 2 {
			return nil
		}
		mc := MergeCommit{SHA: c.Hash.String(), Message: strings.TrimRight(c.Message, "\n")}
		for _, p := range c.ParentHashes {
			mc.Parents = append(mc.Parents, p.String())
		}
		merges = append(merges, mc)
		if len(merges) >= limit {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("log HEAD: %w", err)
	}
	return merges, nil
}

func (r *Repository) resolve(ref string) (plumbing.Hash, error) {
	h, err := r.repo.ResolveRevision(plumbing.Revision(ref))
	if err == nil {
		return *h, nil
	}
	if _, dst := remoteRef(ref, r.remote); dst != "" && dst != ref {
		if h2, err2 := r.repo.ResolveRevision(plumbing.Revision(dst)); err2 == nil {
			return *h2, nil
		}
	}
	return plumbing.ZeroHash, &UnknownRevisionError{Ref: ref, Err: err}
}

func (r *Repository) commit(ref string) (*object.Commit, error) {
	h, err := r.resolve(ref)
	if err != nil {
		return nil, err
	}
	c, err := r.repo.CommitObject(h)
	if err != nil {
		return nil, &UnknownRevisionError{Ref: ref, Err: err}
	}
	return c, nil
}

func (r *Repository) tree(ref string) (*object.Tree, error) {
	c, err := r.commit(ref)
	if err != nil {
		return nil, err
	}
	t, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("tree of %s: %w", ref, err)
	}
	return t, nil
}
