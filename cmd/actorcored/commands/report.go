package commands

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var reportTarget string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Fetch and print a running daemon's diagnostics report",
	Long: `report fetches the Markdown diagnostics report from a running
actorcored instance's --report-addr endpoint and prints it to stdout.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(
		&reportTarget, "target", "http://localhost:8090",
		"Base URL of the running daemon's report server",
	)
}

func runReport(_ *cobra.Command, _ []string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(reportTarget + "/report")
	if err != nil {
		return fmt.Errorf("fetching report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("report endpoint returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading report: %w", err)
	}

	fmt.Print(string(body))

	return nil
}
