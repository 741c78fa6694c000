package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/go-cs-contagion/internal/analysis"
	"github.com/pable/go-cs-contagion/internal/inference"
	"github.com/pable/go-cs-contagion/internal/model"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// PrintRunHeader prints a one-line summary of the run parameters.
func PrintRunHeader(w io.Writer, res *analysis.Result) {
	fmt.Fprintf(w, "\nRun: %s  |  Reps: %d  |  z: %.3f  |  Seed: %d  |  Elapsed: %s\n\n",
		shortID(res.RunID), res.Reps, res.Z, res.Seed, res.Elapsed.Round(1e6))
}

// PrintTeamTable prints observed and expected team counts per number of cheaters in the team.
// Columns: CHEATERS | TEAMS | EXP_MEAN | CI_LOW | CI_HIGH | VS_NULL
func PrintTeamTable(w io.Writer, tr *analysis.TeamResult) {
	table := newTable(w)
	table.Header("CHEATERS", "TEAMS", "EXP_MEAN", "CI_LOW", "CI_HIGH", "VS_NULL")

	for n, observed := range tr.Observed {
		iv := tr.Expected[n]
		table.Append(
			strconv.Itoa(n),
			strconv.Itoa(observed),
			fmt.Sprintf("%.2f", iv.Mean),
			fmt.Sprintf("%.2f", iv.Lower),
			fmt.Sprintf("%.2f", iv.Upper),
			Verdict(float64(observed), iv),
		)
	}
	table.Render()
}

// PrintConversionTable prints the victim and observer questions side by side.
// Questions that were not run are skipped.
func PrintConversionTable(w io.Writer, res *analysis.Result) {
	table := newTable(w)
	table.Header("QUESTION", "OBSERVED", "EXP_MEAN", "CI_LOW", "CI_HIGH", "VS_NULL")

	rows := []struct {
		name string
		c    *analysis.ConversionResult
	}{
		{"victims → cheaters", res.Victims},
		{"observers → cheaters", res.Observers},
	}
	for _, r := range rows {
		if r.c == nil {
			continue
		}
		table.Append(
			r.name,
			strconv.Itoa(r.c.Observed),
			fmt.Sprintf("%.2f", r.c.Expected.Mean),
			fmt.Sprintf("%.2f", r.c.Expected.Lower),
			fmt.Sprintf("%.2f", r.c.Expected.Upper),
			Verdict(float64(r.c.Observed), r.c.Expected),
		)
	}
	table.Render()
}

// Verdict compares an observed value with its null interval.
func Verdict(observed float64, iv inference.Interval) string {
	switch {
	case observed > iv.Upper:
		return "above"
	case observed < iv.Lower:
		return "below"
	default:
		return "within"
	}
}

// PrintPlayers lists player IDs under a title, wrapped a few per line.
func PrintPlayers(w io.Writer, title string, ids []model.PlayerID) {
	fmt.Fprintf(w, "\n%s (%d):\n", title, len(ids))
	if len(ids) == 0 {
		fmt.Fprintln(w, "  —")
		return
	}
	const perLine = 4
	for i := 0; i < len(ids); i += perLine {
		end := min(i+perLine, len(ids))
		parts := make([]string, 0, perLine)
		for _, id := range ids[i:end] {
			parts = append(parts, string(id))
		}
		fmt.Fprintf(w, "  %s\n", strings.Join(parts, "  "))
	}
}

// PrintDatasetSummary prints the stored dataset overview.
func PrintDatasetSummary(w io.Writer, ov model.DatasetOverview) {
	fmt.Fprintf(w, "\n=== Dataset Summary ===\n\n")
	fmt.Fprintf(w, "  Matches       : %d\n", ov.Matches)
	fmt.Fprintf(w, "  Players seen  : %d\n", ov.Players)
	fmt.Fprintf(w, "  Team entries  : %d\n", ov.TeamEntries)
	fmt.Fprintf(w, "  Kill events   : %d\n", ov.Kills)
	fmt.Fprintf(w, "  Cheaters      : %d\n", ov.Cheaters)
	if ov.EarliestKill != "" {
		fmt.Fprintf(w, "  Kill range    : %s → %s\n", ov.EarliestKill, ov.LatestKill)
	}
	fmt.Fprintln(w)
}

// CheaterStatus describes a player's cheating relative to t: "active" when
// cheating started before t, "later" when it started after, empty otherwise
// or when t is unknown (zero).
func CheaterStatus(c model.Cheaters, id model.PlayerID, t time.Time) string {
	switch {
	case t.IsZero():
		return ""
	case c.ActiveBefore(id, t):
		return "active"
	case c.StartsAfter(id, t):
		return "later"
	default:
		return ""
	}
}

// PrintRoster prints one match's players with their team and cheater status at start.
// Columns: PLAYER | TEAM | CHEATER
func PrintRoster(w io.Writer, teams model.MatchTeams, cheaters model.Cheaters, start time.Time) {
	table := newTable(w)
	table.Header("PLAYER", "TEAM", "CHEATER")
	for i, id := range teams.PlayerIDs {
		table.Append(string(id), string(teams.TeamIDs[i]), CheaterStatus(cheaters, id, start))
	}
	table.Render()
}

// PrintKills prints one match's kill events in order, with cheater status at match start.
// Columns: # | TIME | KILLER | VICTIM | KILLER_CHEATER | VICTIM_CHEATER
func PrintKills(w io.Writer, kills model.MatchKills, cheaters model.Cheaters) {
	start, _ := kills.Start()
	table := newTable(w)
	table.Header("#", "TIME", "KILLER", "VICTIM", "KILLER_CHEATER", "VICTIM_CHEATER")
	for i := range kills.Len() {
		table.Append(
			strconv.Itoa(i+1),
			kills.Times[i].Format("15:04:05.000"),
			string(kills.Killers[i]),
			string(kills.Victims[i]),
			CheaterStatus(cheaters, kills.Killers[i], start),
			CheaterStatus(cheaters, kills.Victims[i], start),
		)
	}
	table.Render()
}

// WriteJSON writes the result as indented JSON.
func WriteJSON(w io.Writer, res *analysis.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
