package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/danger/internal/review"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitFindings     = 1
	ExitUsageError   = 2
	ExitDiagnostic   = 3
	ExitRuntimeError = 4
)

var rootCmd = &cobra.Command{
	Use:   "danger",
	Short: "Automate common code review chores",
	Long: "Danger runs a Dangerfile against the changes of a pull request and keeps one " +
		"sticky comment on the request up to date with the results.",
	SilenceUsage: true,
}

// Run executes the root command and returns an exit code.
func Run() int {
	exitCode = ExitSuccess
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print danger version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "danger version %s\n", review.Version)
	},
}

func init() {
	addRunFlags(rootCmd)
	rootCmd.AddCommand(ciCmd)
	rootCmd.AddCommand(localCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(versionCmd)
}
