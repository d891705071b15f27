package comment

import (
	"fmt"

	"github.com/dustin/go-humanize/english"

	"github.com/dshills/danger/internal/host"
	"github.com/dshills/danger/internal/ledger"
)

// maxDescription is the longest status description GitHub accepts.
const maxDescription = 140

// Description summarizes status in one line for a commit status.
func Description(status ledger.Status) string {
	c := status.Counts()
	if c.Errors == 0 && c.Warnings == 0 {
		seed := make([]string, 0, len(status.Messages))
		for _, m := range status.Messages {
			seed = append(seed, m.Message)
		}
		return "All green. " + compliment(seed)
	}
	return fmt.Sprintf("⚠ %s. %s. Don't worry, everything is fixable.",
		english.Plural(c.Errors, "Error", ""), english.Plural(c.Warnings, "Warning", ""))
}

// CommitStatus builds the commit status for status under the context
// danger/<id>.
func CommitStatus(status ledger.Status, id, targetURL string) host.Status {
	if id == "" {
		id = DefaultID
	}
	state := host.StateSuccess
	if status.Failed() {
		state = host.StateFailure
	}
	desc := Description(status)
	if r := []rune(desc); len(r) > maxDescription {
		desc = string(r[:maxDescription-1]) + "…"
	}
	return host.Status{
		State:       state,
		Description: desc,
		Context:     "danger/" + id,
		TargetURL:   targetURL,
	}
}
