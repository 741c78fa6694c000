package model

import (
	"slices"
	"time"
)

// PlayerID identifies a player across matches.
type PlayerID string

// MatchID identifies one played game session.
type MatchID string

// TeamID identifies a team inside a single match.
type TeamID string

// ---- Cheaters ----

// CheaterRecord is the recorded cheating window of a banned player.
// CheatStart <= BanDate is assumed, not enforced.
type CheaterRecord struct {
	CheatStart time.Time
	BanDate    time.Time
}

// Cheaters maps a player to their cheating record. A player absent from the
// map is never a cheater.
type Cheaters map[PlayerID]CheaterRecord

// Is reports whether id has a cheater record at all.
func (c Cheaters) Is(id PlayerID) bool {
	_, ok := c[id]
	return ok
}

// ActiveBefore reports whether id is a cheater whose cheating started strictly before t.
func (c Cheaters) ActiveBefore(id PlayerID, t time.Time) bool {
	r, ok := c[id]
	return ok && r.CheatStart.Before(t)
}

// StartsAfter reports whether id is a cheater whose cheating started strictly after t.
func (c Cheaters) StartsAfter(id PlayerID, t time.Time) bool {
	r, ok := c[id]
	return ok && r.CheatStart.After(t)
}

// ---- Teams ----

// MatchTeams holds the team assignment of every player entry in one match.
// TeamIDs[i] is the team of PlayerIDs[i].
type MatchTeams struct {
	TeamIDs   []TeamID
	PlayerIDs []PlayerID
}

// Len returns the number of player entries.
func (m MatchTeams) Len() int { return len(m.PlayerIDs) }

// Clone returns a deep copy sharing no backing arrays with m.
func (m MatchTeams) Clone() MatchTeams {
	return MatchTeams{
		TeamIDs:   slices.Clone(m.TeamIDs),
		PlayerIDs: slices.Clone(m.PlayerIDs),
	}
}

// TeamSizes returns the number of entries per team.
func (m MatchTeams) TeamSizes() map[TeamID]int {
	sizes := make(map[TeamID]int)
	for _, t := range m.TeamIDs {
		sizes[t]++
	}
	return sizes
}

// Teams maps a match to its team assignments.
type Teams map[MatchID]MatchTeams

// MatchIDs returns the match keys in ascending order.
func (t Teams) MatchIDs() []MatchID {
	return sortedKeys(t)
}

// Clone returns a deep copy of every match.
func (t Teams) Clone() Teams {
	out := make(Teams, len(t))
	for id, m := range t {
		out[id] = m.Clone()
	}
	return out
}

// ---- Kills ----

// MatchKills holds the kill events of one match as parallel sequences sorted
// ascending by time: Killers[i] killed Victims[i] at Times[i].
type MatchKills struct {
	Killers []PlayerID
	Victims []PlayerID
	Times   []time.Time
}

// Len returns the number of kill events.
func (m MatchKills) Len() int { return len(m.Killers) }

// Start returns the earliest kill time. ok is false for a match without kills.
func (m MatchKills) Start() (start time.Time, ok bool) {
	if len(m.Times) == 0 {
		return time.Time{}, false
	}
	start = m.Times[0]
	for _, t := range m.Times[1:] {
		if t.Before(start) {
			start = t
		}
	}
	return start, true
}

// Clone returns a deep copy sharing no backing arrays with m.
func (m MatchKills) Clone() MatchKills {
	return MatchKills{
		Killers: slices.Clone(m.Killers),
		Victims: slices.Clone(m.Victims),
		Times:   slices.Clone(m.Times),
	}
}

// Kills maps a match to its kill events.
type Kills map[MatchID]MatchKills

// MatchIDs returns the match keys in ascending order.
func (k Kills) MatchIDs() []MatchID {
	return sortedKeys(k)
}

// Clone returns a deep copy of every match.
func (k Kills) Clone() Kills {
	out := make(Kills, len(k))
	for id, m := range k {
		out[id] = m.Clone()
	}
	return out
}

// Events returns the total number of kill events across matches.
func (k Kills) Events() int {
	n := 0
	for _, m := range k {
		n += m.Len()
	}
	return n
}

// ---- Sets ----

// PlayerSet is a set of distinct players.
type PlayerSet map[PlayerID]struct{}

// Add inserts id; adding an existing member is a no-op.
func (s PlayerSet) Add(id PlayerID) { s[id] = struct{}{} }

// Has reports membership.
func (s PlayerSet) Has(id PlayerID) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of members.
func (s PlayerSet) Len() int { return len(s) }

// Sorted returns the members in ascending order.
func (s PlayerSet) Sorted() []PlayerID {
	return sortedKeys(s)
}

// Dataset bundles the three loaded tables of one analysis run.
type Dataset struct {
	Cheaters Cheaters
	Teams    Teams
	Kills    Kills
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// DatasetOverview summarizes a stored dataset.
type DatasetOverview struct {
	Matches      int
	Players      int
	TeamEntries  int
	Kills        int
	Cheaters     int
	EarliestKill string
	LatestKill   string
}

// MatchSummary is one row of the stored match list.
type MatchSummary struct {
	ID         MatchID
	Source     string
	ImportedAt string
	Players    int
	Kills      int
}
