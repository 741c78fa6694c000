package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2019, 3, 1, 12, 0, 0, 0, time.UTC)

func TestCheatersPredicates(t *testing.T) {
	c := Cheaters{"x": {CheatStart: base, BanDate: base.AddDate(0, 1, 0)}}

	assert.True(t, c.Is("x"))
	assert.False(t, c.Is("y"))

	assert.True(t, c.ActiveBefore("x", base.Add(time.Second)))
	assert.False(t, c.ActiveBefore("x", base), "equal start is not strictly before")
	assert.False(t, c.ActiveBefore("y", base.Add(time.Hour)))

	assert.True(t, c.StartsAfter("x", base.Add(-time.Second)))
	assert.False(t, c.StartsAfter("x", base))
	assert.False(t, c.StartsAfter("y", base.Add(-time.Hour)))
}

func TestMatchKillsStart(t *testing.T) {
	_, ok := MatchKills{}.Start()
	assert.False(t, ok)

	m := MatchKills{
		Killers: []PlayerID{"a", "b", "c"},
		Victims: []PlayerID{"b", "c", "a"},
		Times:   []time.Time{base.Add(2 * time.Minute), base, base.Add(time.Minute)},
	}
	start, ok := m.Start()
	require.True(t, ok)
	assert.Equal(t, base, start)
}

func TestCloneDoesNotAlias(t *testing.T) {
	teams := Teams{"m1": {TeamIDs: []TeamID{"1", "2"}, PlayerIDs: []PlayerID{"a", "b"}}}
	cp := teams.Clone()
	cp["m1"].TeamIDs[0] = "9"
	assert.Equal(t, TeamID("1"), teams["m1"].TeamIDs[0])

	kills := Kills{"m1": {Killers: []PlayerID{"a"}, Victims: []PlayerID{"b"}, Times: []time.Time{base}}}
	kc := kills.Clone()
	kc["m1"].Killers[0] = "z"
	assert.Equal(t, PlayerID("a"), kills["m1"].Killers[0])
	assert.Equal(t, 1, kills.Events())
}

func TestSortedKeys(t *testing.T) {
	s := PlayerSet{}
	s.Add("c")
	s.Add("a")
	s.Add("b")
	s.Add("a")
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []PlayerID{"a", "b", "c"}, s.Sorted())

	teams := Teams{"m2": {}, "m1": {}}
	assert.Equal(t, []MatchID{"m1", "m2"}, teams.MatchIDs())
}

func TestTeamSizes(t *testing.T) {
	m := MatchTeams{
		TeamIDs:   []TeamID{"1", "1", "2", "1"},
		PlayerIDs: []PlayerID{"a", "b", "c", "d"},
	}
	assert.Equal(t, map[TeamID]int{"1": 3, "2": 1}, m.TeamSizes())
	assert.Equal(t, 4, m.Len())
}
