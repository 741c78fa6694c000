package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-contagion/internal/demo"
	"github.com/pable/go-cs-contagion/internal/model"
)

var (
	ingestMatchID string
	ingestStart   string
	ingestForce   bool
)

var ingestDemoCmd = &cobra.Command{
	Use:   "ingest-demo <demo.dem>...",
	Short: "Add matches from CS2 demo files",
	Long: `Parse CS2 demos and store their rosters and kill events. Players are
grouped by the side they started on (team A started T, team B started CT).
Already stored matches are skipped unless --force is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngestDemo,
}

func init() {
	ingestDemoCmd.Flags().StringVar(&ingestMatchID, "match-id", "", "match ID (single demo only; default: demo hash prefix)")
	ingestDemoCmd.Flags().StringVar(&ingestStart, "start", "", "match start time, RFC3339 (default: file modification time)")
	ingestDemoCmd.Flags().BoolVar(&ingestForce, "force", false, "re-import matches that are already stored")
}

func runIngestDemo(cmd *cobra.Command, args []string) error {
	if ingestMatchID != "" && len(args) > 1 {
		return fmt.Errorf("--match-id needs exactly one demo, got %d", len(args))
	}
	var start time.Time
	if ingestStart != "" {
		t, err := time.Parse(time.RFC3339, ingestStart)
		if err != nil {
			return fmt.Errorf("invalid --start %q: %w", ingestStart, err)
		}
		start = t
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	for _, path := range args {
		id := model.MatchID(ingestMatchID)
		if id == "" {
			if id, err = demo.HashFile(path); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}
		exists, err := db.MatchExists(id)
		if err != nil {
			return fmt.Errorf("check match: %w", err)
		}
		if exists && !ingestForce {
			fmt.Fprintf(os.Stdout, "Match %s already stored, skipping %s.\n", id, path)
			continue
		}

		fmt.Fprintf(os.Stdout, "Parsing %s...\n", path)
		m, err := demo.ParseDemo(path, demo.Options{MatchID: id, Start: start})
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := db.InsertMatch(m.ID, m.Teams, m.Kills, "demo"); err != nil {
			return fmt.Errorf("store match %s: %w", m.ID, err)
		}
		logger.Debug("demo stored", "match_id", string(m.ID), "map", m.MapName)
		fmt.Fprintf(os.Stdout, "Stored match %s (%s): %d players, %d kills\n",
			m.ID, m.MapName, m.Teams.Len(), m.Kills.Len())
	}
	return nil
}
