// Package detect implements the conversion detectors. Every function is pure:
// it reads match data and cheater records and returns a fresh result.
package detect

import (
	"errors"
	"fmt"

	"github.com/pable/go-cs-contagion/internal/model"
)

// MaxTeamCheaters is the largest per-team cheater count that has a bucket.
const MaxTeamCheaters = 4

// ObservationThreshold is the number of qualifying kills after which a
// cheater counts as having been observed cheating by the rest of the lobby.
const ObservationThreshold = 3

// ErrTeamOverflow is returned when a team holds more cheaters than
// MaxTeamCheaters. The input violates the team-size contract.
var ErrTeamOverflow = errors.New("team cheater count out of range")

// TeamCounts holds, for n in 0..MaxTeamCheaters, the number of teams with
// exactly n cheaters.
type TeamCounts [MaxTeamCheaters + 1]int

// Total returns the number of teams counted.
func (c TeamCounts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Vector returns the buckets as float64, index = cheaters in team.
func (c TeamCounts) Vector() []float64 {
	out := make([]float64, len(c))
	for i, v := range c {
		out[i] = float64(v)
	}
	return out
}

// CountCheatersPerTeam counts how many of each team's members have a cheater
// record, with no temporal condition, and adds one occurrence per team to the
// bucket for that count.
func CountCheatersPerTeam(teams model.Teams, cheaters model.Cheaters) (TeamCounts, error) {
	var counts TeamCounts
	for _, id := range teams.MatchIDs() {
		m := teams[id]

		perTeam := make(map[model.TeamID]int)
		for i, team := range m.TeamIDs {
			n := perTeam[team]
			if cheaters.Is(m.PlayerIDs[i]) {
				n++
			}
			perTeam[team] = n
		}

		for team, n := range perTeam {
			if n > MaxTeamCheaters {
				return TeamCounts{}, fmt.Errorf("match %s team %s has %d cheaters: %w", id, team, n, ErrTeamOverflow)
			}
			counts[n]++
		}
	}
	return counts, nil
}

// VictimConversions returns the distinct players who were killed by an
// established cheater and started cheating after that kill.
//
// For a kill (k, v, t) in a match whose earliest kill is at start, v is
// reported when k was cheating before start, v was not cheating before start,
// and v's cheating began strictly after t.
func VictimConversions(kills model.Kills, cheaters model.Cheaters) model.PlayerSet {
	converted := make(model.PlayerSet)
	for _, m := range kills {
		start, ok := m.Start()
		if !ok {
			continue
		}
		for i := range m.Killers {
			killer, victim := m.Killers[i], m.Victims[i]
			if !cheaters.ActiveBefore(killer, start) {
				continue
			}
			if cheaters.ActiveBefore(victim, start) {
				continue
			}
			if cheaters.StartsAfter(victim, m.Times[i]) {
				converted.Add(victim)
			}
		}
	}
	return converted
}

// ObserverConversions returns the distinct players who died after watching
// an established cheater reach ObservationThreshold kills in the same match,
// and who later became cheaters themselves.
//
// Kills are walked in stored order. When a killer that was cheating before
// the match started reaches exactly ObservationThreshold kills, every victim
// at a later sequence position is reported if it has a cheater record that
// did not start before the match. Each killer triggers at most once per match.
// "Later" is by position, not timestamp, so events sharing a timestamp with
// the trigger keep their stored order.
func ObserverConversions(kills model.Kills, cheaters model.Cheaters) model.PlayerSet {
	converted := make(model.PlayerSet)
	for _, m := range kills {
		start, ok := m.Start()
		if !ok {
			continue
		}

		tally := make(map[model.PlayerID]int)
		for i, killer := range m.Killers {
			if !cheaters.ActiveBefore(killer, start) {
				continue
			}
			tally[killer]++
			if tally[killer] != ObservationThreshold {
				continue
			}
			for _, observer := range m.Victims[i+1:] {
				if cheaters.Is(observer) && !cheaters.ActiveBefore(observer, start) {
					converted.Add(observer)
				}
			}
		}
	}
	return converted
}
