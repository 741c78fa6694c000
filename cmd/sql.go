package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/pable/go-cs-contagion/internal/storage"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the dataset database",
	Long: `Run an arbitrary SQL query against the dataset database and print results as a table.

Schema overview:
  matches(match_id, source, imported_at)
  match_players(match_id, seq, team_id, player_id)
  kills(match_id, seq, killer_id, victim_id, killed_at)
  cheaters(player_id, cheat_start, ban_date)

Times are stored as UTC text 'YYYY-MM-DD HH:MM:SS.nnnnnnnnn' and compare as strings.

Examples:
  # Kills made by players whose cheating had already started
  contagion sql "SELECT k.match_id, k.killer_id, k.victim_id, k.killed_at
    FROM kills k JOIN cheaters c ON c.player_id = k.killer_id
    WHERE c.cheat_start < k.killed_at LIMIT 20"

  # Cheaters per team in one match
  contagion sql "SELECT p.team_id, COUNT(c.player_id) FROM match_players p
    LEFT JOIN cheaters c USING (player_id) WHERE p.match_id = 'm1' GROUP BY p.team_id"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return nil
	}
	logger.Debug("sql query", "rows", len(rows), "columns", len(cols))

	table := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))

	colsAny := make([]any, len(cols))
	for i, c := range cols {
		colsAny[i] = c
	}
	table.Header(colsAny...)

	for _, row := range rows {
		rowAny := make([]any, len(row))
		for i, v := range row {
			rowAny[i] = v
		}
		table.Append(rowAny...)
	}
	table.Render()
	fmt.Fprintf(os.Stdout, "\n(%d rows)\n", len(rows))
	return nil
}

