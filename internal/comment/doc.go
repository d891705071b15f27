// Package comment keeps one summary comment per request in step with the
// findings of the latest run.
//
// The comment body is the only record of earlier runs. Each run finds its
// own comment by a marker derived from the danger id, parses the sticky
// rows out of it, reconciles them with the current ledger into New,
// Recurring and Resolved rows, renders a new body and then creates,
// updates or deletes the comment. Rendering the same ledger twice in a row
// yields the same body, so a repeated run changes nothing on the host.
package comment
