// Danger runs a Dangerfile against the changes of a pull request and keeps
// a sticky comment on the request up to date with the results.
//
// It detects the CI provider (Travis CI, CircleCI, Buildkite, GitHub
// Actions, GitLab CI, Bitbucket Pipelines, Jenkins) and the code host
// (GitHub, GitLab, Bitbucket Cloud, Bitbucket Server) from the environment,
// and exits with deterministic codes suitable for CI gating and git hooks.
//
// Usage:
//
//	danger ci                       # run on a CI server
//	danger ci --dry-run             # show the comment change without posting
//	danger local                    # run against the latest merged pull request
//	danger local --use-merged-pr 42 # run against merged pull request #42
//	danger config init              # write a starter .danger.yml
//	danger hook install             # run `danger local` before every push
package main
