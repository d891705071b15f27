// Package review runs danger end to end.
//
// Run resolves the CI provider and code host from the environment, reads
// the request from the host, summarizes the diff between the request's
// refs, evaluates the Dangerfile into a ledger and reconciles the result
// with the sticky comment on the request. The verdict of a run depends on
// the ledger alone: host failures are collected on the Report but never
// turn a passing run into a failing one.
package review
