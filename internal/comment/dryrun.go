package comment

import (
	"fmt"
	"io"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff returns a colored character diff from the previous body to the
// planned one.
func (r *Result) Diff() string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(r.Previous.Body, r.Rendered.Body, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	return dmp.DiffPrettyText(diffs)
}

// WriteDryRun prints what Apply would do without touching the host.
func WriteDryRun(w io.Writer, r *Result) error {
	var err error
	printf := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}
	switch r.Plan.Action {
	case ActionNone:
		if r.Previous.Found {
			printf("Comment %s is up to date.\n", r.Previous.CommentID)
		} else {
			printf("Nothing to report, no comment would be created.\n")
		}
	case ActionCreate:
		printf("Would create a comment:\n\n%s", r.Plan.Body)
	case ActionUpdate:
		printf("Would update comment %s:\n\n%s\n", r.Plan.CommentID, r.Diff())
	case ActionDelete:
		printf("Would delete comment %s.\n", r.Plan.CommentID)
	}
	return err
}
