package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-contagion/internal/loader"
)

var cheatersCmd = &cobra.Command{
	Use:   "cheaters <cheaters.tsv>",
	Short: "Add or update ban records",
	Long: `Merge ban records into the database without touching matches or kills.
Existing records for the same player are replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheaters,
}

func runCheaters(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open cheaters: %w", err)
	}
	defer f.Close()

	cheaters, err := loader.ReadCheaters(f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.UpsertCheaters(cheaters); err != nil {
		return fmt.Errorf("store cheaters: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Stored %d cheater records.\n", len(cheaters))
	return nil
}
