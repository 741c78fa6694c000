// Package demo turns a CS2 demo file into one match of team assignments and
// kill events.
package demo

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	demoinfocs "github.com/markus-wa/demoinfocs-golang/v4/pkg/demoinfocs"
	common "github.com/markus-wa/demoinfocs-golang/v4/pkg/demoinfocs/common"
	"github.com/markus-wa/demoinfocs-golang/v4/pkg/demoinfocs/events"

	"github.com/pable/go-cs-contagion/internal/model"
)

// Team labels are the side a player started the match on.
const (
	TeamStartedT  model.TeamID = "A"
	TeamStartedCT model.TeamID = "B"
)

// Options control how a demo is mapped onto the dataset.
type Options struct {
	MatchID model.MatchID // empty: derived from the file hash
	Start   time.Time     // zero: file modification time
}

// Match is the parsed content of one demo.
type Match struct {
	ID      model.MatchID
	MapName string
	Teams   model.MatchTeams
	Kills   model.MatchKills
}

// ParseDemo parses the demo at path.
func ParseDemo(path string, opts Options) (*Match, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open demo: %w", err)
	}
	defer f.Close()

	matchID := opts.MatchID
	if matchID == "" {
		if matchID, err = hashReader(f); err != nil {
			return nil, err
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek demo: %w", err)
		}
	}

	start := opts.Start
	if start.IsZero() {
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("stat demo: %w", err)
		}
		start = info.ModTime()
	}

	p := demoinfocs.NewParser(f)
	defer p.Close()

	c := newCollector()

	p.RegisterEventHandler(func(events.TeamSideSwitch) {
		c.switched = !c.switched
	})

	// Roster snapshot at every live round start catches players without kills.
	p.RegisterEventHandler(func(events.RoundStart) {
		if p.GameState().IsWarmupPeriod() {
			return
		}
		for _, pl := range p.GameState().Participants().Playing() {
			c.see(pl)
		}
	})

	p.RegisterEventHandler(func(e events.Kill) {
		if p.GameState().IsWarmupPeriod() {
			return
		}
		if e.Killer == nil || e.Victim == nil {
			return
		}
		c.kill(e.Killer, e.Victim, start.Add(p.CurrentTime()))
	})

	if err := p.ParseToEnd(); err != nil {
		return nil, fmt.Errorf("parse demo: %w", err)
	}

	return &Match{
		ID:      matchID,
		MapName: p.Header().MapName,
		Teams:   c.teams,
		Kills:   c.kills,
	}, nil
}

// HashFile returns the default match ID of the demo at path, so callers can
// skip stored matches without parsing.
func HashFile(path string) (model.MatchID, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open demo: %w", err)
	}
	defer f.Close()
	return hashReader(f)
}

func hashReader(r io.Reader) (model.MatchID, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash demo: %w", err)
	}
	return MatchIDFromHash(h.Sum(nil)), nil
}

// MatchIDFromHash shortens a demo digest to a match ID.
func MatchIDFromHash(sum []byte) model.MatchID {
	id := fmt.Sprintf("%x", sum)
	if len(id) > 12 {
		id = id[:12]
	}
	return model.MatchID(id)
}

// StartingSide maps a player's current side to the side they started on.
// switched is true after an odd number of side switches. Spectators and
// unassigned players have no team.
func StartingSide(current common.Team, switched bool) (model.TeamID, bool) {
	var startedT bool
	switch current {
	case common.TeamTerrorists:
		startedT = true
	case common.TeamCounterTerrorists:
		startedT = false
	default:
		return "", false
	}
	if switched {
		startedT = !startedT
	}
	if startedT {
		return TeamStartedT, true
	}
	return TeamStartedCT, true
}

// collector accumulates one match. Players keep the team of their first sighting.
type collector struct {
	switched bool
	seen     map[uint64]bool
	teams    model.MatchTeams
	kills    model.MatchKills
}

func newCollector() *collector {
	return &collector{seen: make(map[uint64]bool)}
}

func (c *collector) see(pl *common.Player) {
	if pl == nil || pl.SteamID64 == 0 || pl.IsBot || c.seen[pl.SteamID64] {
		return
	}
	team, ok := StartingSide(pl.Team, c.switched)
	if !ok {
		return
	}
	c.seen[pl.SteamID64] = true
	c.teams.TeamIDs = append(c.teams.TeamIDs, team)
	c.teams.PlayerIDs = append(c.teams.PlayerIDs, playerID(pl.SteamID64))
}

func (c *collector) kill(killer, victim *common.Player, at time.Time) {
	if killer.SteamID64 == 0 || victim.SteamID64 == 0 || killer.SteamID64 == victim.SteamID64 {
		return
	}
	c.see(killer)
	c.see(victim)
	c.kills.Killers = append(c.kills.Killers, playerID(killer.SteamID64))
	c.kills.Victims = append(c.kills.Victims, playerID(victim.SteamID64))
	c.kills.Times = append(c.kills.Times, at)
}

func playerID(steamID uint64) model.PlayerID {
	return model.PlayerID(strconv.FormatUint(steamID, 10))
}
