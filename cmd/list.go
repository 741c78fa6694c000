package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-contagion/internal/model"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored matches",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	matches, err := db.ListMatches()
	if err != nil {
		return fmt.Errorf("list matches: %w", err)
	}
	if len(matches) == 0 {
		fmt.Fprintln(os.Stdout, "No matches stored yet. Run 'contagion import <dir>' to add some.")
		return nil
	}

	printMatchList(os.Stdout, matches)
	return nil
}

func printMatchList(w io.Writer, matches []model.MatchSummary) {
	fmt.Fprintf(w, "%-20s  %-6s  %-19s  %7s  %5s\n",
		"MATCH", "SOURCE", "IMPORTED", "PLAYERS", "KILLS")
	fmt.Fprintf(w, "%-20s  %-6s  %-19s  %7s  %5s\n",
		"────────────────────", "──────", "───────────────────", "───────", "─────")
	for _, m := range matches {
		imported := m.ImportedAt
		if len(imported) > 19 {
			imported = imported[:19]
		}
		fmt.Fprintf(w, "%-20s  %-6s  %-19s  %7d  %5d\n",
			m.ID, m.Source, imported, m.Players, m.Kills)
	}
}
