package host

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dshills/danger/internal/redact"
)

// Comment is a top-level comment on a request.
type Comment struct {
	ID        string
	Body      string
	CreatedAt time.Time
}

// Request is the metadata of a pull or merge request.
type Request struct {
	Title   string   `json:"title"`
	Body    string   `json:"body"`
	Author  string   `json:"author"`
	Labels  []string `json:"labels,omitempty"`
	BaseRef string   `json:"baseRef"`
	HeadRef string   `json:"headRef"`
	BaseSHA string   `json:"baseSha,omitempty"`
	HeadSHA string   `json:"headSha,omitempty"`
	URL     string   `json:"url,omitempty"`
}

// State is a commit status state.
type State string

const (
	StateSuccess State = "success"
	StateFailure State = "failure"
	StatePending State = "pending"
)

// Status is a commit status attached to the head commit of a request.
type Status struct {
	State       State
	Description string
	Context     string
	TargetURL   string
}

// Provider is the set of host operations a run uses.
type Provider interface {
	Name() string
	ListComments(ctx context.Context) ([]Comment, error)
	CreateComment(ctx context.Context, body string) (Comment, error)
	UpdateComment(ctx context.Context, id, body string) error
	DeleteComment(ctx context.Context, id string) error
	FetchRequest(ctx context.Context) (*Request, error)
	// SetStatus attaches s to sha. Providers without commit statuses
	// return ErrStatusUnsupported.
	SetStatus(ctx context.Context, sha string, s Status) error
}

// ErrStatusUnsupported is returned by SetStatus on hosts without commit
// statuses.
var ErrStatusUnsupported = errors.New("commit statuses are not supported by this host")

// APIError is a non-2xx response from a host API.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	msg := fmt.Sprintf("%s %s: status %d", e.Method, redact.URL(e.URL), e.StatusCode)
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		msg += " (authentication failed)"
	case http.StatusNotFound:
		msg += " (not found)"
	}
	if body != "" {
		msg += ": " + redact.Secrets(body)
	}
	return msg
}
