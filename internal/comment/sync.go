package comment

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"

	"github.com/dshills/danger/internal/host"
	"github.com/dshills/danger/internal/ledger"
	"github.com/dshills/danger/internal/redact"
)

// Commenter is the part of a host provider the protocol needs.
type Commenter interface {
	Name() string
	ListComments(ctx context.Context) ([]host.Comment, error)
	CreateComment(ctx context.Context, body string) (host.Comment, error)
	UpdateComment(ctx context.Context, id, body string) error
	DeleteComment(ctx context.Context, id string) error
}

// Op names a host operation.
type Op string

const (
	OpFetch  Op = "fetch"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpStatus Op = "status"
)

// HostMutationError is a failed host operation. It is reported but never
// changes the verdict of a run.
type HostMutationError struct {
	Op   Op
	Host string
	Err  error
}

func (e *HostMutationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Host, e.Op, redact.Secrets(e.Err.Error()))
}

func (e *HostMutationError) Unwrap() error { return e.Err }

// Result describes one pass of the protocol.
type Result struct {
	Previous   Previous
	Reconciled Reconciled
	Rendered   Rendered
	Plan       Plan
	// Applied is set once the plan was carried out on the host.
	Applied bool
	// CommentID is the id of the comment after the run, or "" if there is
	// none.
	CommentID string
}

// Prepare reads the previous comment for id, reconciles it with status and
// plans the mutation. Nothing is written.
func Prepare(ctx context.Context, c Commenter, status ledger.Status, id string) (*Result, error) {
	comments, err := c.ListComments(ctx)
	if err != nil {
		return nil, &HostMutationError{Op: OpFetch, Host: c.Name(), Err: err}
	}
	existing, found := Find(comments, id)
	prev := NewPrevious(existing, found)

	res := &Result{Previous: prev, CommentID: prev.CommentID}
	res.Reconciled = Reconcile(status, prev.Violations)
	res.Rendered = Render(res.Reconciled, id)
	res.Plan = NewPlan(prev, res.Rendered)

	clog.FromContext(ctx).With("host", c.Name(), "found", found, "action", res.Plan.Action).
		Debug("planned comment update")
	return res, nil
}

// Apply carries out res.Plan.
func Apply(ctx context.Context, c Commenter, res *Result) error {
	log := clog.FromContext(ctx).With("host", c.Name(), "action", res.Plan.Action)
	switch res.Plan.Action {
	case ActionCreate:
		created, err := c.CreateComment(ctx, res.Plan.Body)
		if err != nil {
			return &HostMutationError{Op: OpCreate, Host: c.Name(), Err: err}
		}
		res.CommentID = created.ID
	case ActionUpdate:
		if err := c.UpdateComment(ctx, res.Plan.CommentID, res.Plan.Body); err != nil {
			return &HostMutationError{Op: OpUpdate, Host: c.Name(), Err: err}
		}
	case ActionDelete:
		if err := c.DeleteComment(ctx, res.Plan.CommentID); err != nil {
			return &HostMutationError{Op: OpDelete, Host: c.Name(), Err: err}
		}
		res.CommentID = ""
	}
	res.Applied = true
	log.With("comment", res.CommentID).Info("comment synced")
	return nil
}

// Sync runs Prepare and then Apply.
func Sync(ctx context.Context, c Commenter, status ledger.Status, id string) (*Result, error) {
	res, err := Prepare(ctx, c, status, id)
	if err != nil {
		return nil, err
	}
	return res, Apply(ctx, c, res)
}
