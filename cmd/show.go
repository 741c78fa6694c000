package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-contagion/internal/model"
	"github.com/pable/go-cs-contagion/internal/report"
)

var showCmd = &cobra.Command{
	Use:   "show <match-id>",
	Short: "Show a stored match's roster and kill events",
	Long: `Print the roster and the ordered kill events of one match. The cheater
columns mark players whose cheating was active at match start ("active") or
started after it ("later").`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	id := model.MatchID(args[0])

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	teams, kills, ok, err := db.LoadMatch(id)
	if err != nil {
		return fmt.Errorf("load match: %w", err)
	}
	if !ok {
		fmt.Fprintf(os.Stderr, "No match stored with ID %q\n", id)
		return nil
	}
	cheaters, err := db.LoadCheaters()
	if err != nil {
		return fmt.Errorf("load cheaters: %w", err)
	}

	start, hasKills := kills.Start()
	fmt.Fprintf(os.Stdout, "\nMatch %s  |  Players: %d  |  Kills: %d", id, teams.Len(), kills.Len())
	if hasKills {
		fmt.Fprintf(os.Stdout, "  |  Start: %s", start.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprint(os.Stdout, "\n\n")

	if teams.Len() > 0 {
		report.PrintRoster(os.Stdout, teams, cheaters, start)
		fmt.Fprintln(os.Stdout)
	}
	if hasKills {
		report.PrintKills(os.Stdout, kills, cheaters)
	}
	return nil
}
