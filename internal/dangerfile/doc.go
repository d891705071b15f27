// Package dangerfile loads and evaluates declarative Dangerfiles.
//
// A Dangerfile is a YAML list of rules. Each rule has a set of conditions
// over the diff and the request, all of which must hold, and exactly one
// action: fail, warn, message or markdown. Matching rules record into the
// run's ledger.
//
//	rules:
//	  - name: big-pr
//	    when: { max_lines: 500 }
//	    warn: "Big PR, consider splitting"
//	  - when: { modified: ["go.mod"], not_modified: ["go.sum"] }
//	    fail: "go.mod changed without go.sum"
//	    sticky: true
//
// Problems in the file are reported as *ExecutionError with the file name
// and line.
package dangerfile
