package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-contagion/internal/report"
)

// summaryCmd is the cobra command for displaying a high-level database overview.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a high-level overview of the database",
	Long: `Display aggregate counts of the stored dataset: matches, players, team
entries, kill events, ban records and the time range of the kills.`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ov, err := db.GetOverview()
	if err != nil {
		return fmt.Errorf("get overview: %w", err)
	}
	if ov.Matches == 0 && ov.Cheaters == 0 {
		fmt.Fprintln(os.Stdout, "No data stored yet. Run 'contagion import <dir>' to add some.")
		return nil
	}
	report.PrintDatasetSummary(os.Stdout, ov)
	return nil
}
