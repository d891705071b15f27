// Package source works out where a run is happening: which CI provider
// launched it and which code host holds the request it should report on.
//
// [Resolve] walks a fixed, ordered registry of CI providers and then a
// registry of hosts. The first CI provider whose markers are present wins.
// A CI build that is not for a pull or merge request returns
// [ErrNotPullRequest]. Otherwise the host is inferred from the repository
// URL when possible and its credentials are checked. Every failure is a
// [*Diagnostic] whose text tells the user which variables to expose.
//
// Resolution only reads the environment map it is given and, in local mode,
// the git remote. It never reads the process environment itself.
package source
