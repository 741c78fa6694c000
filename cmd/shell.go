package cmd

import (
	"bufio"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/go-cs-contagion/internal/analysis"
	"github.com/pable/go-cs-contagion/internal/model"
	"github.com/pable/go-cs-contagion/internal/report"
	"github.com/pable/go-cs-contagion/internal/storage"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cHeader   = color.New(color.FgCyan, color.Bold)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive REPL session",
	Long: `Open a persistent session against the database. The dataset is loaded once,
so analyses can be repeated with different questions quickly. Type 'help' for
available commands.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

// shellState is the session: an open database, the dataset loaded from it
// and the last analysis result.
type shellState struct {
	db   *storage.DB
	ds   model.Dataset
	last *analysis.Result
}

func runShell(cmd *cobra.Command, _ []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	st := &shellState{db: db}
	if err := st.reload(); err != nil {
		return err
	}

	cGreeting.Println("contagion shell")
	cMuted.Println("type 'help' or 'exit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrompt.Print("contagion")
		cMuted.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		tokens := strings.Fields(line)
		name, args := tokens[0], tokens[1:]

		switch name {
		case "exit", "quit":
			return nil
		case "help":
			shellHelp()
		case "list":
			st.list()
		case "summary":
			st.summary()
		case "reload":
			if err := st.reload(); err != nil {
				cError.Fprintf(os.Stderr, "error: %v\n", err)
			}
		case "analyze":
			st.analyze(cmd, args)
		case "player":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: player <id> [<id>...]")
				continue
			}
			st.players(args)
		default:
			cWarn.Fprintf(os.Stderr, "unknown command %q, type 'help'\n", name)
		}
	}
	return nil
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"list", "list all stored matches"},
		{"summary", "show dataset counts"},
		{"analyze [teams|victims|observers ...]", "run questions (all by default)"},
		{"player <id> [...]", "ban record, activity and conversions of players"},
		{"reload", "reload the dataset from the database"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-40s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}

func (st *shellState) reload() error {
	ds, err := st.db.LoadDataset()
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	st.ds = ds
	st.last = nil
	cMuted.Printf("loaded %d matches, %d kills, %d cheaters\n", len(ds.Teams), ds.Kills.Events(), len(ds.Cheaters))
	return nil
}

func (st *shellState) list() {
	matches, err := st.db.ListMatches()
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if len(matches) == 0 {
		cMuted.Println("No matches stored yet.")
		return
	}
	printMatchList(os.Stdout, matches)
}

func (st *shellState) summary() {
	ov, err := st.db.GetOverview()
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	report.PrintDatasetSummary(os.Stdout, ov)
}

func (st *shellState) analyze(cmd *cobra.Command, args []string) {
	runner, err := buildRunner(cmd)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	for _, a := range args {
		q, err := analysis.ParseQuestion(a)
		if err != nil {
			cError.Fprintf(os.Stderr, "error: %v\n", err)
			return
		}
		runner.Questions = append(runner.Questions, q)
	}
	res, err := runner.Run(cmd.Context(), st.ds)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	st.last = res
	printResult(os.Stdout, res)
}

func (st *shellState) players(ids []string) {
	for _, raw := range ids {
		id := model.PlayerID(raw)
		a := playerActivity(st.ds, id)

		fmt.Fprintln(os.Stdout)
		cHeader.Fprintf(os.Stdout, "--- %s ---\n", id)
		if rec, ok := st.ds.Cheaters[id]; ok {
			fmt.Fprintf(os.Stdout, "  Cheating from : %s\n", rec.CheatStart.Format("2006-01-02"))
			fmt.Fprintf(os.Stdout, "  Banned on     : %s\n", rec.BanDate.Format("2006-01-02"))
		} else {
			cMuted.Fprintln(os.Stdout, "  no ban record")
		}
		fmt.Fprintf(os.Stdout, "  Matches       : %d\n", a.matches)
		fmt.Fprintf(os.Stdout, "  Kills/deaths  : %d/%d\n", a.kills, a.deaths)
		fmt.Fprintf(os.Stdout, "  Killed by cheaters while they cheated: %d\n", a.deathsToCheaters)

		if st.last != nil {
			for _, c := range []struct {
				name string
				r    *analysis.ConversionResult
			}{{"victim", st.last.Victims}, {"observer", st.last.Observers}} {
				if c.r != nil && slices.Contains(c.r.Players, id) {
					cWarn.Fprintf(os.Stdout, "  converted as %s in the last analysis\n", c.name)
				}
			}
		}
	}
	fmt.Fprintln(os.Stdout)
}

type activity struct {
	matches          int
	kills            int
	deaths           int
	deathsToCheaters int
}

// playerActivity counts a player's appearances and kill events across the dataset.
func playerActivity(ds model.Dataset, id model.PlayerID) activity {
	var a activity
	seen := make(map[model.MatchID]bool)
	for mid, m := range ds.Teams {
		if slices.Contains(m.PlayerIDs, id) {
			seen[mid] = true
		}
	}
	for mid, m := range ds.Kills {
		for i := range m.Len() {
			switch id {
			case m.Killers[i]:
				a.kills++
				seen[mid] = true
			case m.Victims[i]:
				a.deaths++
				seen[mid] = true
				if ds.Cheaters.ActiveBefore(m.Killers[i], m.Times[i]) {
					a.deathsToCheaters++
				}
			}
		}
	}
	a.matches = len(seen)
	return a
}
