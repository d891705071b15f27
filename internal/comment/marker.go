package comment

import (
	"strings"

	"github.com/dshills/danger/internal/host"
)

// DefaultID is the danger id used when none is configured.
const DefaultID = "danger"

// Marker returns the token that identifies comments written for id. The
// closing quote keeps "danger" from matching "danger-lint".
func Marker(id string) string {
	if id == "" {
		id = DefaultID
	}
	return `data-meta="generated_by_` + id + `"`
}

// Find returns the canonical comment for id among comments: the newest one
// that carries the marker. Ties on creation time go to the one listed
// last. Other marked comments are left alone.
func Find(comments []host.Comment, id string) (host.Comment, bool) {
	marker := Marker(id)
	var (
		best  host.Comment
		found bool
	)
	for _, c := range comments {
		if !strings.Contains(c.Body, marker) {
			continue
		}
		if !found || !c.CreatedAt.Before(best.CreatedAt) {
			best, found = c, true
		}
	}
	return best, found
}
