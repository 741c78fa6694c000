// Package randomize builds structure-preserving null-model variants of match
// data. Every function returns a fresh value that shares no backing arrays
// with its input, so repeated or concurrent trials never interfere.
package randomize

import (
	"math/rand/v2"
	"slices"

	"github.com/pable/go-cs-contagion/internal/model"
)

// ShuffleTeamLabels permutes the team labels of every match uniformly at
// random while holding the player sequence fixed. The same players are
// re-partitioned into teams of the sizes observed in that match; matches are
// never mixed. teams is left unmodified.
func ShuffleTeamLabels(rng *rand.Rand, teams model.Teams) model.Teams {
	out := make(model.Teams, len(teams))
	// Sorted order keeps the draw sequence independent of map iteration.
	for _, id := range teams.MatchIDs() {
		m := teams[id].Clone()
		rng.Shuffle(len(m.TeamIDs), func(i, j int) {
			m.TeamIDs[i], m.TeamIDs[j] = m.TeamIDs[j], m.TeamIDs[i]
		})
		out[id] = m
	}
	return out
}

// RelabelPlayers draws one uniform bijection over the distinct identities in
// killers and victims and applies it to every occurrence in both sequences.
// Event order, event count and who-killed-whom topology are preserved; only
// labels change. With fewer than two distinct identities the map is the
// identity. killers and victims must have equal length.
func RelabelPlayers(rng *rand.Rand, killers, victims []model.PlayerID) ([]model.PlayerID, []model.PlayerID) {
	if len(killers) != len(victims) {
		panic("randomize: killers and victims differ in length")
	}

	// Distinct identities in order of first appearance.
	index := make(map[model.PlayerID]int)
	var ids []model.PlayerID
	for i := range killers {
		for _, p := range [2]model.PlayerID{killers[i], victims[i]} {
			if _, ok := index[p]; !ok {
				index[p] = len(ids)
				ids = append(ids, p)
			}
		}
	}

	if len(ids) < 2 {
		return slices.Clone(killers), slices.Clone(victims)
	}

	perm := rng.Perm(len(ids))
	outK := make([]model.PlayerID, len(killers))
	outV := make([]model.PlayerID, len(victims))
	for i := range killers {
		outK[i] = ids[perm[index[killers[i]]]]
		outV[i] = ids[perm[index[victims[i]]]]
	}
	return outK, outV
}

// RelabelKills applies RelabelPlayers independently to every match. Kill
// times are copied unchanged.
func RelabelKills(rng *rand.Rand, kills model.Kills) model.Kills {
	out := make(model.Kills, len(kills))
	for _, id := range kills.MatchIDs() {
		m := kills[id]
		killers, victims := RelabelPlayers(rng, m.Killers, m.Victims)
		out[id] = model.MatchKills{
			Killers: killers,
			Victims: victims,
			Times:   slices.Clone(m.Times),
		}
	}
	return out
}
