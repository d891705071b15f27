// Package output formats run reports for the terminal or for machines.
//
// Three formats are supported:
//   - text  human-readable terminal output with one table per violation kind (default)
//   - json  the full structured report
//   - sarif SARIF v2.1.0 for upload to code scanning tools
//
// Use [GetWriter] to obtain a [Writer] for a given format string, or
// [WriteReport] to write to a file or stdout.
package output
