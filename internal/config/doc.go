// Package config loads danger configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (DANGER_ID, DANGER_DANGERFILE, DANGER_FORMAT, etc.)
//  3. Config file (.danger.yml in the working directory, or
//     $XDG_CONFIG_HOME/danger/config.yml)
//  4. Built-in defaults
//
// Host credentials are deliberately not configuration: they are read from
// the environment by the source package only.
//
// Use [Load] to obtain a merged [Config] and [Init] to write a starter
// config file.
package config
