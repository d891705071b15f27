// Package ledger records the findings produced during a single danger run.
//
// A [Ledger] holds three ordered sequences of [Violation] (messages,
// warnings and errors) plus an ordered sequence of [Markdown] blocks.
// Recording is append-only and preserves duplicates. Once the report has been
// generated the ledger is sealed and further records fail with [ErrSealed].
//
// [Ledger.Status] returns a read-only snapshot. The ignore list passed to it
// filters entries at snapshot time, so the same recorded run can be viewed
// under different configurations.
package ledger
