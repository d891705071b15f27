// Package redact keeps credentials out of everything danger prints or posts.
//
// Host tokens and passwords reach the process through the environment and
// can resurface in remote URLs, HTTP error bodies and log lines. [Secrets]
// applies regex heuristics for common token shapes, [Values] additionally
// masks known credential values, and [URL] strips userinfo from clone URLs
// before they are stored or displayed.
package redact
