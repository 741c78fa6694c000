package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-contagion/internal/loader"
	"github.com/pable/go-cs-contagion/internal/report"
)

var (
	importCheaters string
	importTeams    string
	importKills    string
)

var importCmd = &cobra.Command{
	Use:   "import [dir]",
	Short: "Replace the stored dataset with TSV files",
	Long: `Load cheaters.txt, team_ids.txt and kills.txt from dir (or from the paths
given by flags or the config file) and replace everything in the database.

File formats (tab separated, no header):
  cheaters.txt   player_id  cheat_start(YYYY-MM-DD)  ban_date(YYYY-MM-DD)
  team_ids.txt   match_id   player_id  team_id
  kills.txt      match_id   killer_id  victim_id  time(YYYY-MM-DD HH:MM:SS[.fff])`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importCheaters, "cheaters", "", "cheaters file (overrides dir)")
	importCmd.Flags().StringVar(&importTeams, "teams", "", "team assignments file (overrides dir)")
	importCmd.Flags().StringVar(&importKills, "kills", "", "kill events file (overrides dir)")
}

func runImport(cmd *cobra.Command, args []string) error {
	dir := cfg.Data.Dir
	if len(args) == 1 {
		dir = args[0]
	}
	paths := dataPaths(dir, importCheaters, importTeams, importKills)
	if paths.Cheaters == "" || paths.Teams == "" || paths.Kills == "" {
		return fmt.Errorf("no input: pass a directory or --cheaters, --teams and --kills")
	}

	logger.Info("loading dataset", "cheaters", paths.Cheaters, "teams", paths.Teams, "kills", paths.Kills)
	ds, err := loader.Load(paths)
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.ReplaceDataset(ds, "tsv"); err != nil {
		return fmt.Errorf("store dataset: %w", err)
	}
	ov, err := db.GetOverview()
	if err != nil {
		return fmt.Errorf("get overview: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Imported into %s\n", dbPath)
	report.PrintDatasetSummary(os.Stdout, ov)
	return nil
}

// dataPaths resolves input files: explicit flag, then dir, then config file.
func dataPaths(dir, cheaters, teams, kills string) loader.Paths {
	var p loader.Paths
	if dir != "" {
		p = loader.DirPaths(dir)
	}
	pick := func(flag, fromDir, fromConfig string) string {
		switch {
		case flag != "":
			return flag
		case fromDir != "":
			return fromDir
		default:
			return fromConfig
		}
	}
	return loader.Paths{
		Cheaters: pick(cheaters, p.Cheaters, cfg.Data.Cheaters),
		Teams:    pick(teams, p.Teams, cfg.Data.Teams),
		Kills:    pick(kills, p.Kills, cfg.Data.Kills),
	}
}
