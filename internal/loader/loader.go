// Package loader reads the tab-separated match exports into the record model.
//
// File formats, one record per line:
//
//	cheaters.txt  player_id  cheat_start(YYYY-MM-DD)  ban_date(YYYY-MM-DD)
//	team_ids.txt  match_id   player_id                team_id
//	kills.txt     match_id   killer_id  victim_id     YYYY-MM-DD HH:MM:SS[.ffffff]
//
// Kills are stably sorted ascending by time within each match, so events that
// share a timestamp keep their file order.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pable/go-cs-contagion/internal/model"
)

// Default file names inside a data directory.
const (
	CheatersFile = "cheaters.txt"
	TeamsFile    = "team_ids.txt"
	KillsFile    = "kills.txt"
)

const (
	dateLayout = "2006-01-02"
	// Fractional seconds are accepted on parse even though the layout omits them.
	timeLayout = "2006-01-02 15:04:05"
)

// Paths locates the three input files.
type Paths struct {
	Cheaters string
	Teams    string
	Kills    string
}

// DirPaths returns the default file locations inside dir.
func DirPaths(dir string) Paths {
	return Paths{
		Cheaters: filepath.Join(dir, CheatersFile),
		Teams:    filepath.Join(dir, TeamsFile),
		Kills:    filepath.Join(dir, KillsFile),
	}
}

// Load reads all three files into a Dataset.
func Load(p Paths) (model.Dataset, error) {
	var ds model.Dataset
	var err error
	if ds.Cheaters, err = readFile(p.Cheaters, ReadCheaters); err != nil {
		return model.Dataset{}, err
	}
	if ds.Teams, err = readFile(p.Teams, ReadTeams); err != nil {
		return model.Dataset{}, err
	}
	if ds.Kills, err = readFile(p.Kills, ReadKills); err != nil {
		return model.Dataset{}, err
	}
	return ds, nil
}

func readFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	v, err := read(f)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// ReadCheaters parses cheater records. The first record of a player wins.
func ReadCheaters(r io.Reader) (model.Cheaters, error) {
	out := make(model.Cheaters)
	err := eachRecord(r, 3, func(line int, rec []string) error {
		start, err := time.Parse(dateLayout, rec[1])
		if err != nil {
			return fmt.Errorf("line %d: cheat start: %w", line, err)
		}
		ban, err := time.Parse(dateLayout, rec[2])
		if err != nil {
			return fmt.Errorf("line %d: ban date: %w", line, err)
		}
		id := model.PlayerID(rec[0])
		if _, dup := out[id]; !dup {
			out[id] = model.CheaterRecord{CheatStart: start, BanDate: ban}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadTeams parses team assignments, appending entries per match in file order.
func ReadTeams(r io.Reader) (model.Teams, error) {
	out := make(model.Teams)
	err := eachRecord(r, 3, func(_ int, rec []string) error {
		id := model.MatchID(rec[0])
		m := out[id]
		m.PlayerIDs = append(m.PlayerIDs, model.PlayerID(rec[1]))
		m.TeamIDs = append(m.TeamIDs, model.TeamID(rec[2]))
		out[id] = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadKills parses kill events and sorts each match ascending by time.
func ReadKills(r io.Reader) (model.Kills, error) {
	type event struct {
		killer, victim model.PlayerID
		at             time.Time
	}
	byMatch := make(map[model.MatchID][]event)
	err := eachRecord(r, 4, func(line int, rec []string) error {
		at, err := time.Parse(timeLayout, rec[3])
		if err != nil {
			return fmt.Errorf("line %d: kill time: %w", line, err)
		}
		id := model.MatchID(rec[0])
		byMatch[id] = append(byMatch[id], event{model.PlayerID(rec[1]), model.PlayerID(rec[2]), at})
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make(model.Kills, len(byMatch))
	for id, events := range byMatch {
		slices.SortStableFunc(events, func(a, b event) int { return a.at.Compare(b.at) })
		m := model.MatchKills{
			Killers: make([]model.PlayerID, len(events)),
			Victims: make([]model.PlayerID, len(events)),
			Times:   make([]time.Time, len(events)),
		}
		for i, e := range events {
			m.Killers[i], m.Victims[i], m.Times[i] = e.killer, e.victim, e.at
		}
		out[id] = m
	}
	return out, nil
}

// eachRecord calls fn for every non-blank tab-separated record. Records need
// at least minFields fields; extra trailing fields are ignored.
func eachRecord(r io.Reader, minFields int, fn func(line int, rec []string) error) error {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line, _ := cr.FieldPos(0)
		if len(rec) < minFields {
			return fmt.Errorf("line %d: want %d fields, got %d", line, minFields, len(rec))
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		if err := fn(line, rec); err != nil {
			return err
		}
	}
}
