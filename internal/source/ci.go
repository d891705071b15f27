package source

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/dshills/danger/internal/gitctx"
	"github.com/dshills/danger/internal/redact"
)

// LocalRepo is the git access local mode needs.
type LocalRepo interface {
	RemoteURL(ctx context.Context) (string, error)
	MergeCommits(ctx context.Context, limit int) ([]gitctx.MergeCommit, error)
}

// ciInfo is what a CI provider can tell about the request.
type ciInfo struct {
	slug    string
	id      string
	repoURL string
	base    string
	head    string
}

// ciProvider is one entry of the CI registry.
type ciProvider struct {
	id    CI
	name  string
	isCI  func(Env) bool
	isPR  func(Env) bool
	build func(context.Context, Env, hostEnv, LocalRepo) (ciInfo, error)
	hosts []HostID
	// hiddenOnForks lists variables the vendor withholds from builds of
	// pull requests opened from forks.
	hiddenOnForks []string
}

// ciRegistry is ordered by priority. Local mode comes first because it is
// an explicit request; Jenkins comes last because its markers are the
// most generic.
var ciRegistry = []ciProvider{
	localGitCI,
	{
		id:            CITravis,
		name:          "Travis CI",
		isCI:          has("HAS_JOSH_K_SEAL_OF_APPROVAL"),
		isPR:          positiveInt("TRAVIS_PULL_REQUEST"),
		build:         buildTravis,
		hosts:         []HostID{HostGitHub},
		hiddenOnForks: []string{"DANGER_GITHUB_API_TOKEN"},
	},
	{
		id:   CICircle,
		name: "CircleCI",
		isCI: has("CIRCLE_BUILD_NUM"),
		isPR: func(env Env) bool {
			return env.First("CI_PULL_REQUEST", "CIRCLE_PULL_REQUEST") != ""
		},
		build:         buildCircle,
		hosts:         []HostID{HostGitHub, HostBitbucketCloud},
		hiddenOnForks: []string{"DANGER_GITHUB_API_TOKEN"},
	},
	{
		id:   CIBuildkite,
		name: "Buildkite",
		isCI: has("BUILDKITE"),
		isPR: func(env Env) bool {
			pr := env.Get("BUILDKITE_PULL_REQUEST")
			return env.Get("BUILDKITE_PULL_REQUEST_REPO") != "" && pr != "" && pr != "false"
		},
		build: buildBuildkite,
		hosts: []HostID{HostGitHub, HostGitLab, HostBitbucketServer},
	},
	{
		id:   CIGitHubActions,
		name: "GitHub Actions",
		isCI: has("GITHUB_ACTION"),
		isPR: func(env Env) bool {
			ev := env.Get("GITHUB_EVENT_NAME")
			return ev == "pull_request" || ev == "pull_request_target"
		},
		build:         buildGitHubActions,
		hosts:         []HostID{HostGitHub},
		hiddenOnForks: []string{"DANGER_GITHUB_API_TOKEN"},
	},
	{
		id:            CIGitLab,
		name:          "GitLab CI",
		isCI:          has("GITLAB_CI"),
		isPR:          nonEmpty("CI_MERGE_REQUEST_IID"),
		build:         buildGitLabCI,
		hosts:         []HostID{HostGitLab},
		hiddenOnForks: []string{"DANGER_GITLAB_API_TOKEN"},
	},
	{
		id:    CIBitbucketPipelines,
		name:  "Bitbucket Pipelines",
		isCI:  has("BITBUCKET_BUILD_NUMBER"),
		isPR:  nonEmpty("BITBUCKET_PR_ID"),
		build: buildBitbucketPipelines,
		hosts: []HostID{HostBitbucketCloud},
	},
	{
		id:   CIJenkins,
		name: "Jenkins",
		isCI: has("JENKINS_URL"),
		isPR: func(env Env) bool {
			return env.First("ghprbPullId", "CHANGE_ID", "gitlabMergeRequestIid") != ""
		},
		build: buildJenkins,
		hosts: []HostID{HostGitHub, HostGitLab, HostBitbucketServer},
	},
}

// detectCI returns the first provider whose markers are present.
func detectCI(env Env) (ciProvider, bool) {
	for _, p := range ciRegistry {
		if p.isCI(env) {
			return p, true
		}
	}
	return ciProvider{}, false
}

func has(key string) func(Env) bool {
	return func(env Env) bool { return env.Has(key) }
}

func nonEmpty(key string) func(Env) bool {
	return func(env Env) bool { return env.Get(key) != "" }
}

func positiveInt(key string) func(Env) bool {
	return func(env Env) bool {
		n, err := strconv.Atoi(strings.TrimSpace(env.Get(key)))
		return err == nil && n > 0
	}
}

func buildTravis(_ context.Context, env Env, _ hostEnv, _ LocalRepo) (ciInfo, error) {
	info := ciInfo{
		slug: env.Get("TRAVIS_REPO_SLUG"),
		id:   strings.TrimSpace(env.Get("TRAVIS_PULL_REQUEST")),
	}
	if base, head, ok := strings.Cut(env.Get("TRAVIS_COMMIT_RANGE"), "..."); ok {
		info.base, info.head = base, head
	}
	return info, nil
}

func buildCircle(_ context.Context, env Env, _ hostEnv, _ LocalRepo) (ciInfo, error) {
	prURL := env.First("CI_PULL_REQUEST", "CIRCLE_PULL_REQUEST")
	info := ciInfo{
		id:      path.Base(strings.TrimRight(prURL, "/")),
		repoURL: env.Get("CIRCLE_REPOSITORY_URL"),
		head:    env.Get("CIRCLE_SHA1"),
	}
	if user, repo := env.Get("CIRCLE_PROJECT_USERNAME"), env.Get("CIRCLE_PROJECT_REPONAME"); user != "" && repo != "" {
		info.slug = user + "/" + repo
	}
	if info.repoURL == "" {
		info.repoURL = prURL
	}
	return info, nil
}

func buildBuildkite(_ context.Context, env Env, _ hostEnv, _ LocalRepo) (ciInfo, error) {
	repoURL := env.Get("BUILDKITE_PULL_REQUEST_REPO")
	return ciInfo{
		slug:    slugFromURL(repoURL),
		id:      env.Get("BUILDKITE_PULL_REQUEST"),
		repoURL: repoURL,
		base:    env.Get("BUILDKITE_PULL_REQUEST_BASE_BRANCH"),
		head:    env.Get("BUILDKITE_COMMIT"),
	}, nil
}

var githubRefRe = regexp.MustCompile(`^refs/pull/(\d+)/`)

func buildGitHubActions(_ context.Context, env Env, _ hostEnv, _ LocalRepo) (ciInfo, error) {
	m := githubRefRe.FindStringSubmatch(env.Get("GITHUB_REF"))
	if m == nil {
		return ciInfo{}, fmt.Errorf("GITHUB_REF %q does not name a pull request", env.Get("GITHUB_REF"))
	}
	server := env.Get("GITHUB_SERVER_URL")
	if server == "" {
		server = "https://github.com"
	}
	slug := env.Get("GITHUB_REPOSITORY")
	// GITHUB_HEAD_REF names a branch that may only exist in a fork; the
	// pull ref is always served by origin.
	return ciInfo{
		slug:    slug,
		id:      m[1],
		repoURL: strings.TrimRight(server, "/") + "/" + slug,
		base:    env.Get("GITHUB_BASE_REF"),
		head:    "refs/pull/" + m[1] + "/head",
	}, nil
}

func buildGitLabCI(_ context.Context, env Env, _ hostEnv, _ LocalRepo) (ciInfo, error) {
	return ciInfo{
		slug:    env.First("CI_MERGE_REQUEST_PROJECT_PATH", "CI_PROJECT_PATH"),
		id:      env.Get("CI_MERGE_REQUEST_IID"),
		repoURL: env.First("CI_MERGE_REQUEST_PROJECT_URL", "CI_PROJECT_URL"),
		base:    env.First("CI_MERGE_REQUEST_DIFF_BASE_SHA", "CI_MERGE_REQUEST_TARGET_BRANCH_NAME"),
		head:    env.First("CI_MERGE_REQUEST_SOURCE_BRANCH_SHA", "CI_COMMIT_SHA"),
	}, nil
}

func buildBitbucketPipelines(_ context.Context, env Env, _ hostEnv, _ LocalRepo) (ciInfo, error) {
	return ciInfo{
		slug:    env.Get("BITBUCKET_REPO_FULL_NAME"),
		id:      env.Get("BITBUCKET_PR_ID"),
		repoURL: env.First("BITBUCKET_GIT_HTTP_ORIGIN", "BITBUCKET_GIT_SSH_ORIGIN"),
		base:    env.Get("BITBUCKET_PR_DESTINATION_BRANCH"),
		head:    env.Get("BITBUCKET_COMMIT"),
	}, nil
}

func buildJenkins(_ context.Context, env Env, _ hostEnv, _ LocalRepo) (ciInfo, error) {
	var info ciInfo
	switch {
	case env.Get("ghprbPullId") != "":
		info.id = env.Get("ghprbPullId")
		info.slug = env.Get("ghprbGhRepository")
		info.repoURL = env.First("ghprbPullLink", "GIT_URL")
		info.base = env.Get("ghprbTargetBranch")
		info.head = env.Get("ghprbActualCommit")
	case env.Get("CHANGE_ID") != "":
		info.id = env.Get("CHANGE_ID")
		info.repoURL = env.First("CHANGE_URL", "GIT_URL")
		info.base = env.Get("CHANGE_TARGET")
		info.head = env.Get("GIT_COMMIT")
	default:
		info.id = env.Get("gitlabMergeRequestIid")
		info.repoURL = env.First("gitlabTargetRepoHttpUrl", "gitlabSourceRepoHttpUrl")
		info.base = env.Get("gitlabTargetBranch")
		info.head = env.Get("gitlabMergeRequestLastCommit")
	}
	if info.slug == "" {
		info.slug = slugFromRequestURL(info.repoURL)
	}
	if info.slug == "" && info.repoURL != "" {
		if owner, repo, err := ParseRemoteURL(info.repoURL); err == nil {
			info.slug = owner + "/" + repo
		}
	}
	return info, nil
}

// mergedPRRe matches the subject GitHub gives pull request merge commits.
var mergedPRRe = regexp.MustCompile(`^Merge pull request #(\d+)`)

// mergeSearchDepth bounds how many merge commits local mode inspects.
const mergeSearchDepth = 500

var localGitCI = ciProvider{
	id:    CILocalGit,
	name:  "local git",
	isCI:  has("DANGER_USE_LOCAL_GIT"),
	isPR:  func(Env) bool { return true },
	build: buildLocalGit,
	hosts: []HostID{HostGitHub},
}

// errLocal marks failures that should read as local-mode guidance.
var errLocal = errors.New("local git")

func buildLocalGit(ctx context.Context, env Env, he hostEnv, git LocalRepo) (ciInfo, error) {
	if git == nil {
		return ciInfo{}, fmt.Errorf("%w: no repository available", errLocal)
	}
	remote, err := git.RemoteURL(ctx)
	if err != nil {
		return ciInfo{}, fmt.Errorf("%w: reading remote: %w", errLocal, err)
	}
	if h := RemoteHost(remote); h != bareHost(he.GitHubHost) {
		return ciInfo{}, fmt.Errorf("%w: danger local requires a repository hosted on %s, remote is %s",
			errLocal, bareHost(he.GitHubHost), redact.URL(remote))
	}
	owner, repo, err := ParseRemoteURL(remote)
	if err != nil {
		return ciInfo{}, fmt.Errorf("%w: %w", errLocal, err)
	}

	merges, err := git.MergeCommits(ctx, mergeSearchDepth)
	if err != nil {
		return ciInfo{}, fmt.Errorf("%w: listing merge commits: %w", errLocal, err)
	}
	want := strings.TrimPrefix(strings.TrimSpace(env.Get("LOCAL_GIT_PR_ID")), "#")
	for _, mc := range merges {
		m := mergedPRRe.FindStringSubmatch(mc.Message)
		if m == nil || len(mc.Parents) < 2 {
			continue
		}
		if want != "" && m[1] != want {
			continue
		}
		return ciInfo{
			slug:    owner + "/" + repo,
			id:      m[1],
			repoURL: redact.URL(remote),
			base:    mc.Parents[0],
			head:    mc.Parents[1],
		}, nil
	}
	if want != "" {
		return ciInfo{}, fmt.Errorf("%w: could not find a merge commit for pull request #%s", errLocal, want)
	}
	return ciInfo{}, fmt.Errorf("%w: no recent pull request merge commits found", errLocal)
}

func (p ciProvider) supports(id HostID) bool {
	return slices.Contains(p.hosts, id)
}
