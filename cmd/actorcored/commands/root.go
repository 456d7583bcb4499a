package commands

import (
	"github.com/spf13/cobra"

	"github.com/elkhart-labs/actorcore/internal/build"
)

var (
	// node is this process's logical node name.
	node string

	// logDir is where rotating log files are written (empty disables
	// file logging).
	logDir string

	// maxLogFiles is the rotated log file retention count.
	maxLogFiles int

	// maxLogFileSize is the per-file rotation threshold in MB.
	maxLogFileSize int
)

// rootCmd is the base command for the daemon CLI.
var rootCmd = &cobra.Command{
	Use:   "actorcored",
	Short: "actorcore runtime daemon",
	Long: `actorcored boots an actor runtime: spawn, send, ask, supervision,
scheduling, and the distributed directory, wired together behind one
process.`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&node, "node", "local",
		"Logical node name for this process's actor addresses",
	)
	rootCmd.PersistentFlags().StringVar(
		&logDir, "log-dir", "~/.actorcore/logs",
		"Directory for log files (empty to disable file logging)",
	)
	rootCmd.PersistentFlags().IntVar(
		&maxLogFiles, "max-log-files", build.DefaultMaxLogFiles,
		"Maximum number of rotated log files to keep",
	)
	rootCmd.PersistentFlags().IntVar(
		&maxLogFileSize, "max-log-file-size", build.DefaultMaxLogFileSize,
		"Maximum log file size in MB before rotation",
	)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(versionCmd)
}
