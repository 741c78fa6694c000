package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pable/go-cs-contagion/internal/model"
)

// MatchExists returns true if a match with the given ID is already stored.
func (db *DB) MatchExists(id model.MatchID) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(1) FROM matches WHERE match_id = ?", string(id)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ReplaceDataset discards all stored data and writes ds in one transaction.
// Matches that appear only in the team table or only in the kill table are
// stored with whatever rows they have.
func (db *DB) ReplaceDataset(ds model.Dataset, source string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"kills", "match_players", "matches", "cheaters"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	ids := make(map[model.MatchID]struct{}, len(ds.Teams))
	for id := range ds.Teams {
		ids[id] = struct{}{}
	}
	for id := range ds.Kills {
		ids[id] = struct{}{}
	}
	now := formatTime(time.Now())
	for id := range ids {
		if err := insertMatch(tx, id, ds.Teams[id], ds.Kills[id], source, now); err != nil {
			return err
		}
	}
	if err := upsertCheaters(tx, ds.Cheaters); err != nil {
		return err
	}
	return tx.Commit()
}

// InsertMatch stores one match, replacing any previous rows for the same ID.
func (db *DB) InsertMatch(id model.MatchID, teams model.MatchTeams, kills model.MatchKills, source string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM matches WHERE match_id = ?", string(id)); err != nil {
		return fmt.Errorf("delete match %s: %w", id, err)
	}
	if err := insertMatch(tx, id, teams, kills, source, formatTime(time.Now())); err != nil {
		return err
	}
	return tx.Commit()
}

// UpsertCheaters inserts or replaces cheater records.
func (db *DB) UpsertCheaters(c model.Cheaters) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := upsertCheaters(tx, c); err != nil {
		return err
	}
	return tx.Commit()
}

func insertMatch(tx *sql.Tx, id model.MatchID, teams model.MatchTeams, kills model.MatchKills, source, importedAt string) error {
	if _, err := tx.Exec(
		"INSERT INTO matches(match_id, source, imported_at) VALUES (?, ?, ?)",
		string(id), source, importedAt,
	); err != nil {
		return fmt.Errorf("insert match %s: %w", id, err)
	}

	pstmt, err := tx.Prepare("INSERT INTO match_players(match_id, seq, team_id, player_id) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer pstmt.Close()
	for i := range teams.PlayerIDs {
		if _, err := pstmt.Exec(string(id), i, string(teams.TeamIDs[i]), string(teams.PlayerIDs[i])); err != nil {
			return fmt.Errorf("insert match_players for %s: %w", id, err)
		}
	}

	kstmt, err := tx.Prepare("INSERT INTO kills(match_id, seq, killer_id, victim_id, killed_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer kstmt.Close()
	for i := range kills.Killers {
		if _, err := kstmt.Exec(string(id), i, string(kills.Killers[i]), string(kills.Victims[i]), formatTime(kills.Times[i])); err != nil {
			return fmt.Errorf("insert kills for %s: %w", id, err)
		}
	}
	return nil
}

func upsertCheaters(tx *sql.Tx, c model.Cheaters) error {
	stmt, err := tx.Prepare("INSERT OR REPLACE INTO cheaters(player_id, cheat_start, ban_date) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for id, r := range c {
		if _, err := stmt.Exec(string(id), formatTime(r.CheatStart), formatTime(r.BanDate)); err != nil {
			return fmt.Errorf("insert cheater %s: %w", id, err)
		}
	}
	return nil
}

// LoadDataset reads the full dataset. Kills come back per match ordered by
// time, with ties in insertion order.
func (db *DB) LoadDataset() (model.Dataset, error) {
	ds := model.Dataset{
		Teams: make(model.Teams),
		Kills: make(model.Kills),
	}

	cheaters, err := db.LoadCheaters()
	if err != nil {
		return model.Dataset{}, err
	}
	ds.Cheaters = cheaters

	if err := db.loadTeams(ds.Teams, "", nil); err != nil {
		return model.Dataset{}, err
	}
	if err := db.loadKills(ds.Kills, "", nil); err != nil {
		return model.Dataset{}, err
	}
	return ds, nil
}

// LoadCheaters reads every ban record.
func (db *DB) LoadCheaters() (model.Cheaters, error) {
	rows, err := db.conn.Query("SELECT player_id, cheat_start, ban_date FROM cheaters")
	if err != nil {
		return nil, fmt.Errorf("query cheaters: %w", err)
	}
	defer rows.Close()

	out := make(model.Cheaters)
	for rows.Next() {
		var id, start, ban string
		if err := rows.Scan(&id, &start, &ban); err != nil {
			return nil, err
		}
		var r model.CheaterRecord
		if r.CheatStart, err = parseTime(start); err != nil {
			return nil, fmt.Errorf("cheater %s: %w", id, err)
		}
		if r.BanDate, err = parseTime(ban); err != nil {
			return nil, fmt.Errorf("cheater %s: %w", id, err)
		}
		out[model.PlayerID(id)] = r
	}
	return out, rows.Err()
}

// LoadMatch reads the roster and kills of one match. ok is false when the
// match is not stored.
func (db *DB) LoadMatch(id model.MatchID) (teams model.MatchTeams, kills model.MatchKills, ok bool, err error) {
	ok, err = db.MatchExists(id)
	if err != nil || !ok {
		return teams, kills, ok, err
	}
	t := make(model.Teams)
	k := make(model.Kills)
	if err := db.loadTeams(t, "WHERE match_id = ?", []any{string(id)}); err != nil {
		return teams, kills, false, err
	}
	if err := db.loadKills(k, "WHERE match_id = ?", []any{string(id)}); err != nil {
		return teams, kills, false, err
	}
	return t[id], k[id], true, nil
}

func (db *DB) loadTeams(dst model.Teams, where string, args []any) error {
	rows, err := db.conn.Query("SELECT match_id, team_id, player_id FROM match_players "+where+" ORDER BY match_id, seq", args...)
	if err != nil {
		return fmt.Errorf("query match_players: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var match, team, player string
		if err := rows.Scan(&match, &team, &player); err != nil {
			return err
		}
		m := dst[model.MatchID(match)]
		m.TeamIDs = append(m.TeamIDs, model.TeamID(team))
		m.PlayerIDs = append(m.PlayerIDs, model.PlayerID(player))
		dst[model.MatchID(match)] = m
	}
	return rows.Err()
}

// loadKills appends kills ordered by time, with ties in insertion order.
func (db *DB) loadKills(dst model.Kills, where string, args []any) error {
	rows, err := db.conn.Query("SELECT match_id, killer_id, victim_id, killed_at FROM kills "+where+" ORDER BY match_id, killed_at, seq", args...)
	if err != nil {
		return fmt.Errorf("query kills: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var match, killer, victim, at string
		if err := rows.Scan(&match, &killer, &victim, &at); err != nil {
			return err
		}
		t, err := parseTime(at)
		if err != nil {
			return fmt.Errorf("kill in %s: %w", match, err)
		}
		m := dst[model.MatchID(match)]
		m.Killers = append(m.Killers, model.PlayerID(killer))
		m.Victims = append(m.Victims, model.PlayerID(victim))
		m.Times = append(m.Times, t)
		dst[model.MatchID(match)] = m
	}
	return rows.Err()
}

// ListMatches returns every stored match with its player and kill counts, ordered by ID.
func (db *DB) ListMatches() ([]model.MatchSummary, error) {
	rows, err := db.conn.Query(`
		SELECT m.match_id, m.source, m.imported_at,
			(SELECT COUNT(1) FROM match_players p WHERE p.match_id = m.match_id),
			(SELECT COUNT(1) FROM kills k WHERE k.match_id = m.match_id)
		FROM matches m
		ORDER BY m.match_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MatchSummary
	for rows.Next() {
		var (
			s  model.MatchSummary
			id string
		)
		if err := rows.Scan(&id, &s.Source, &s.ImportedAt, &s.Players, &s.Kills); err != nil {
			return nil, err
		}
		s.ID = model.MatchID(id)
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetOverview returns row counts and the kill time range. Players are
// counted over rosters and kill events together.
func (db *DB) GetOverview() (model.DatasetOverview, error) {
	var ov model.DatasetOverview
	err := db.conn.QueryRow(`
		SELECT
			(SELECT COUNT(1) FROM matches),
			(SELECT COUNT(1) FROM (
				SELECT player_id FROM match_players
				UNION SELECT killer_id FROM kills
				UNION SELECT victim_id FROM kills)),
			(SELECT COUNT(1) FROM match_players),
			(SELECT COUNT(1) FROM kills),
			(SELECT COUNT(1) FROM cheaters),
			COALESCE((SELECT MIN(killed_at) FROM kills), ''),
			COALESCE((SELECT MAX(killed_at) FROM kills), '')`).
		Scan(&ov.Matches, &ov.Players, &ov.TeamEntries, &ov.Kills, &ov.Cheaters, &ov.EarliestKill, &ov.LatestKill)
	if err != nil {
		return model.DatasetOverview{}, fmt.Errorf("overview: %w", err)
	}
	return ov, nil
}

// QueryRaw runs an arbitrary query and returns column names and stringified rows.
func (db *DB) QueryRaw(query string) ([]string, [][]string, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out [][]string
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			switch x := v.(type) {
			case nil:
				row[i] = "NULL"
			case []byte:
				row[i] = string(x)
			default:
				row[i] = fmt.Sprint(x)
			}
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}
