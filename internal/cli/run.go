package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/dshills/danger/internal/comment"
	"github.com/dshills/danger/internal/config"
	"github.com/dshills/danger/internal/output"
	"github.com/dshills/danger/internal/review"
	"github.com/dshills/danger/internal/source"
)

// Shared run flags
var (
	flagConfig       string
	flagOut          string
	flagID           string
	flagDangerfile   string
	flagBase         string
	flagHead         string
	flagRemote       string
	flagGitBackend   string
	flagIgnore       []string
	flagFailOnErrors bool
	flagCommitStatus bool
	flagFormat       string
	flagLogLevel     string
	flagDryRun       bool

	flagMergedPR string
)

func addRunFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&flagConfig, "config", "", "Config file (default: .danger.yml, then $XDG_CONFIG_HOME/danger/config.yml)")
	f.StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	f.StringVar(&flagID, "id", "", "Identifier of this Danger run, to keep several sticky comments apart")
	f.StringVar(&flagDangerfile, "dangerfile", "", "Dangerfile path (default: Dangerfile.yml, Dangerfile.yaml or Dangerfile)")
	f.StringVar(&flagBase, "base", "", "Base ref to diff from, overriding the CI's")
	f.StringVar(&flagHead, "head", "", "Head ref to diff to, overriding the CI's")
	f.StringVar(&flagRemote, "remote", "", "Git remote to fetch missing refs from")
	f.StringVar(&flagGitBackend, "git-backend", "", "Git backend (exec, go-git)")
	f.StringSliceVar(&flagIgnore, "ignore", nil, "Violation text to ignore (repeatable)")
	f.BoolVar(&flagFailOnErrors, "fail-on-errors", true, "Exit 1 when errors are reported")
	f.BoolVar(&flagCommitStatus, "commit-status", false, "Report the verdict as a commit status")
	f.StringVar(&flagFormat, "format", "", "Output format (text, json, sarif)")
	f.StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.BoolVar(&flagDryRun, "dry-run", false, "Show the comment change without posting it")
}

var ciCmd = &cobra.Command{
	Use:   "ci",
	Short: "Run Danger on a CI server",
	Long: "Detect the CI provider and code host from the environment, run the Dangerfile " +
		"and update the sticky comment on the pull request.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runDanger(cmd, source.FromEnviron(os.Environ()))
		return nil
	},
}

var localCmd = &cobra.Command{
	Use:   "local",
	Short: "Run Danger against a merged pull request in this repository",
	Long: "Find a merged pull request in the local history, run the Dangerfile against it " +
		"and print the report. Nothing is posted.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runDanger(cmd, localEnv(source.FromEnviron(os.Environ()), flagMergedPR))
		return nil
	},
}

// localEnv switches env to local mode, optionally pinned to one merged
// pull request.
func localEnv(env source.Env, pr string) source.Env {
	env = env.With("DANGER_USE_LOCAL_GIT", "YES")
	if pr = strings.TrimSpace(pr); pr != "" {
		env = env.With("LOCAL_GIT_PR_ID", pr)
	}
	return env
}

func runDanger(cmd *cobra.Command, env source.Env) {
	cfg, err := config.Load(flagConfig, ".", cmd.Flags())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitUsageError
		return
	}
	lvl, _ := cfg.Level()
	ctx := newContext(cmd.Context(), lvl)

	report, err := review.Run(ctx, review.Options{
		Env:          env,
		Dir:          ".",
		Remote:       cfg.Remote,
		GitBackend:   cfg.GitBackend,
		Base:         cfg.Base,
		Head:         cfg.Head,
		Dangerfile:   cfg.Dangerfile,
		DangerID:     cfg.DangerID,
		Ignored:      cfg.IgnoredViolations,
		CommitStatus: cfg.CommitStatus,
		DryRun:       cfg.DryRun,
	})
	if err != nil {
		exitCode = exitCodeFor(err)
		if exitCode == ExitSuccess {
			fmt.Fprintf(os.Stderr, "Skipping Danger: %v\n", err)
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}

	if cfg.DryRun && report.Sync != nil {
		if err := comment.WriteDryRun(os.Stderr, report.Sync); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing dry run: %v\n", err)
		}
	}
	if err := output.WriteReport(report, cfg.Format, flagOut); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}

	if report.Failed && cfg.FailOnErrors {
		exitCode = ExitFindings
	}
}

// exitCodeFor maps a run error to an exit code. A build that is not for a
// pull request is skipped, not failed.
func exitCodeFor(err error) int {
	var diag *source.Diagnostic
	switch {
	case err == nil, errors.Is(err, source.ErrNotPullRequest):
		return ExitSuccess
	case errors.As(err, &diag):
		return ExitDiagnostic
	default:
		return ExitRuntimeError
	}
}

func newContext(ctx context.Context, lvl slog.Level) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := clog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	return clog.WithLogger(ctx, logger)
}

func init() {
	localCmd.Flags().StringVar(&flagMergedPR, "use-merged-pr", "", "Number of the merged pull request to run against (default: the most recent)")
}
