package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the per-repository config file.
const FileName = ".danger.yml"

const envPrefix = "DANGER"

// Config represents the danger configuration.
type Config struct {
	DangerID          string   `mapstructure:"danger_id" yaml:"danger_id" json:"dangerId"`
	Dangerfile        string   `mapstructure:"dangerfile" yaml:"dangerfile,omitempty" json:"dangerfile,omitempty"`
	Base              string   `mapstructure:"base" yaml:"base,omitempty" json:"base,omitempty"`
	Head              string   `mapstructure:"head" yaml:"head,omitempty" json:"head,omitempty"`
	Remote            string   `mapstructure:"remote" yaml:"remote" json:"remote"`
	GitBackend        string   `mapstructure:"git_backend" yaml:"git_backend" json:"gitBackend"`
	IgnoredViolations []string `mapstructure:"ignored_violations" yaml:"ignored_violations" json:"ignoredViolations"`
	FailOnErrors      bool     `mapstructure:"fail_on_errors" yaml:"fail_on_errors" json:"failOnErrors"`
	CommitStatus      bool     `mapstructure:"commit_status" yaml:"commit_status" json:"commitStatus"`
	Format            string   `mapstructure:"format" yaml:"format" json:"format"`
	LogLevel          string   `mapstructure:"log_level" yaml:"log_level" json:"logLevel"`
	DryRun            bool     `mapstructure:"dry_run" yaml:"dry_run" json:"dryRun"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-" yaml:"-" json:"file,omitempty"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		DangerID:          "danger",
		Remote:            "origin",
		GitBackend:        "exec",
		IgnoredViolations: []string{},
		FailOnErrors:      true,
		Format:            "text",
		LogLevel:          "warn",
	}
}

// flagKeys maps config keys to the CLI flags that override them.
var flagKeys = map[string]string{
	"danger_id":          "id",
	"dangerfile":         "dangerfile",
	"base":               "base",
	"head":               "head",
	"remote":             "remote",
	"git_backend":        "git-backend",
	"ignored_violations": "ignore",
	"fail_on_errors":     "fail-on-errors",
	"commit_status":      "commit-status",
	"format":             "format",
	"log_level":          "log-level",
	"dry_run":            "dry-run",
}

// ConfigDir returns the platform-appropriate config directory for danger.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "danger"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "danger"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "danger"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "danger"), nil
	default:
		return filepath.Join(home, ".config", "danger"), nil
	}
}

// FindFile returns the config file to read: explicit if set, otherwise
// .danger.yml in dir, otherwise config.yml in ConfigDir. It returns ""
// when none exists.
func FindFile(explicit, dir string) string {
	if explicit != "" {
		return explicit
	}
	candidates := []string{filepath.Join(dir, FileName)}
	if cd, err := ConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(cd, "config.yml"))
	}
	for _, p := range candidates {
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	return ""
}

// Load builds the effective config by merging: defaults <- file <- env <- flags.
// path names an explicit config file; when empty the file is searched for
// with FindFile from dir. flags may be nil.
func Load(path, dir string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// DANGER_ID reads better than DANGER_DANGER_ID.
	if err := v.BindEnv("danger_id", "DANGER_ID", "DANGER_DANGER_ID"); err != nil {
		return Config{}, err
	}

	file := FindFile(path, dir)
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			if path == "" && errors.Is(err, os.ErrNotExist) {
				file = ""
			} else {
				return Config{}, fmt.Errorf("read config %s: %w", file, err)
			}
		}
	}

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.File = file
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func applyDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("danger_id", d.DangerID)
	v.SetDefault("dangerfile", d.Dangerfile)
	v.SetDefault("base", d.Base)
	v.SetDefault("head", d.Head)
	v.SetDefault("remote", d.Remote)
	v.SetDefault("git_backend", d.GitBackend)
	v.SetDefault("ignored_violations", d.IgnoredViolations)
	v.SetDefault("fail_on_errors", d.FailOnErrors)
	v.SetDefault("commit_status", d.CommitStatus)
	v.SetDefault("format", d.Format)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("dry_run", d.DryRun)
}

var (
	formats     = []string{"text", "json", "sarif"}
	gitBackends = []string{"exec", "go-git"}
)

// Validate reports the first invalid value.
func (c Config) Validate() error {
	if c.DangerID == "" {
		return errors.New("danger_id must not be empty")
	}
	if !slices.Contains(formats, c.Format) {
		return fmt.Errorf("format %q is not one of %s", c.Format, strings.Join(formats, ", "))
	}
	if !slices.Contains(gitBackends, c.GitBackend) {
		return fmt.Errorf("git_backend %q is not one of %s", c.GitBackend, strings.Join(gitBackends, ", "))
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the log level as a slog.Level.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

// Starter is the content `danger config init` writes.
func Starter() ([]byte, error) {
	d := Default()
	d.IgnoredViolations = nil
	data, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	header := "# danger configuration. Environment variables (DANGER_*) and flags override these values.\n"
	return append([]byte(header), data...), nil
}

// Init writes a starter config file to path. It fails if the file exists.
func Init(path string) error {
	data, err := Starter()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
