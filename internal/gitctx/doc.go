// Package gitctx computes change summaries between two git refs.
//
// A [Runner] is the only way this package touches a repository. Two
// implementations exist: [Command] shells out to the git binary and
// [Repository] works in-process through go-git. [Summarize] turns a runner's
// raw output into a [DiffStat]: added, deleted and modified file sets, line
// counts and the commits between the refs, newest first.
//
// Renames follow git's rename detection. A renamed file whose content also
// changed is reported as modified under its new path; a pure rename is not
// reported at all. Binary files are listed but count no lines.
//
// When a ref is missing locally, as happens with shallow CI clones,
// Summarize fetches it from the configured remote once and retries once
// before giving up with a [DiffUnavailableError].
package gitctx
