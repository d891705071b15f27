package comment

// Action is the host mutation a run decides on.
type Action string

const (
	ActionNone   Action = "none"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Plan is the mutation for one run.
type Plan struct {
	Action Action
	// CommentID is the comment to update or delete.
	CommentID string
	// Body is the new body for create and update.
	Body string
}

// NewPlan decides what to do with the host comment. An existing comment is
// always updated in place, never duplicated; an update that would not
// change the body is dropped; an empty render deletes the comment, or does
// nothing when there is none.
func NewPlan(prev Previous, r Rendered) Plan {
	switch {
	case r.ShouldDelete && prev.Found:
		return Plan{Action: ActionDelete, CommentID: prev.CommentID}
	case r.ShouldDelete:
		return Plan{Action: ActionNone}
	case !prev.Found:
		return Plan{Action: ActionCreate, Body: r.Body}
	case prev.Body == r.Body:
		return Plan{Action: ActionNone, CommentID: prev.CommentID}
	default:
		return Plan{Action: ActionUpdate, CommentID: prev.CommentID, Body: r.Body}
	}
}
