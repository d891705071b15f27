package source

import (
	"fmt"
	"strings"
)

// DiagnosticKind classifies resolution failures.
type DiagnosticKind string

const (
	DiagNoCI               DiagnosticKind = "no_ci"
	DiagCIEnvironment      DiagnosticKind = "ci_environment"
	DiagLocalGit           DiagnosticKind = "local_git"
	DiagMissingCredentials DiagnosticKind = "missing_credentials"
	DiagUnsupportedHost    DiagnosticKind = "unsupported_host"
	DiagNoHost             DiagnosticKind = "no_host"
)

// HostRequirement names a host and the variables it needs.
type HostRequirement struct {
	Host      string
	Variables []string
}

// Diagnostic explains why a run could not be resolved. Its Error text is
// meant to be shown to the user as is.
type Diagnostic struct {
	Kind DiagnosticKind
	CI   string
	Host string
	// Missing lists the required variables of Host that are absent.
	Missing  []string
	Optional []string
	// Hosts enumerates every candidate host when none could be inferred.
	Hosts []HostRequirement
	// ObservedKeys are the environment's key names, never its values.
	ObservedKeys []string
	Notes        []string
	Err          error
}

func (d *Diagnostic) Unwrap() error { return d.Err }

func (d *Diagnostic) Error() string {
	var b strings.Builder
	switch d.Kind {
	case DiagNoCI:
		b.WriteString("Could not find the type of CI for Danger to run on.\n\n")
		b.WriteString("To run Danger against a merged pull request on your machine, use `danger local` or set DANGER_USE_LOCAL_GIT=YES.\n")
	case DiagCIEnvironment:
		fmt.Fprintf(&b, "Could not read the pull request from the %s environment: %v\n", d.CI, d.Err)
	case DiagLocalGit:
		fmt.Fprintf(&b, "Could not run Danger locally: %v\n", d.Err)
	case DiagMissingCredentials:
		b.WriteString("Could not set up API to Code Review site for Danger.\n\n")
		fmt.Fprintf(&b, "For your %s repo, you need to expose: %s\n", d.Host, strings.Join(d.Missing, ", "))
		if len(d.Optional) > 0 {
			fmt.Fprintf(&b, "You may also need: %s\n", strings.Join(d.Optional, ", "))
		}
	case DiagUnsupportedHost:
		fmt.Fprintf(&b, "%s cannot report to %s.\n", d.CI, d.Host)
		names := make([]string, 0, len(d.Hosts))
		for _, h := range d.Hosts {
			names = append(names, h.Host)
		}
		fmt.Fprintf(&b, "Hosts supported on %s: %s\n", d.CI, strings.Join(names, ", "))
	case DiagNoHost:
		b.WriteString("Could not set up API to Code Review site for Danger.\n\n")
		b.WriteString("For Danger to run on this project, you need to expose a set of following the ENV vars:\n")
		for _, h := range d.Hosts {
			fmt.Fprintf(&b, " - %s: %s\n", h.Host, strings.Join(h.Variables, ", "))
		}
	default:
		fmt.Fprintf(&b, "Could not resolve the Danger environment: %v\n", d.Err)
	}

	if len(d.ObservedKeys) > 0 {
		fmt.Fprintf(&b, "\nFound these keys in your ENV: %s.\n", strings.Join(d.ObservedKeys, ", "))
	}
	for _, n := range d.Notes {
		fmt.Fprintf(&b, "\n%s\n", n)
	}
	if d.Kind == DiagMissingCredentials || d.Kind == DiagNoHost {
		b.WriteString("\nFailing the build, Danger cannot run without API access.\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
