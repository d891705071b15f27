// Package cli wires together the Cobra command tree for the danger binary.
//
// It defines the root command and all subcommands (ci, local, config, hook,
// version), binds flags, reads configuration, invokes the run orchestrator,
// and returns deterministic exit codes for CI gating.
package cli
