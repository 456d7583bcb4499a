package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/elkhart-labs/actorcore/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  `Display the version, commit hash, and build metadata for actorcored.`,
	Run:   runVersion,
}

func runVersion(_ *cobra.Command, _ []string) {
	fmt.Printf("actorcored version %s", build.Version())

	if build.Commit != "" {
		fmt.Printf(" commit=%s", build.Commit)
	} else if build.CommitHash != "" {
		fmt.Printf(" commit=%s", build.CommitHash)
	}

	if build.GoVersion != "" {
		fmt.Printf(" go=%s", build.GoVersion)
	}

	if tags := build.Tags(); len(tags) > 0 {
		fmt.Printf(" tags=%s", build.RawTags)
	}

	fmt.Println()
}
