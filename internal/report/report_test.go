package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-cs-contagion/internal/analysis"
	"github.com/pable/go-cs-contagion/internal/detect"
	"github.com/pable/go-cs-contagion/internal/inference"
	"github.com/pable/go-cs-contagion/internal/model"
)

func sampleResult() *analysis.Result {
	expected := make([]inference.Interval, detect.MaxTeamCheaters+1)
	for i := range expected {
		expected[i] = inference.Interval{Mean: 1, Lower: 0.5, Upper: 1.5}
	}
	return &analysis.Result{
		RunID:   "0123456789abcdef",
		Reps:    20,
		Z:       1.96,
		Seed:    42,
		Elapsed: 1500 * time.Millisecond,
		Teams: &analysis.TeamResult{
			Observed: detect.TeamCounts{5, 1, 0, 0, 0},
			Expected: expected,
		},
		Victims: &analysis.ConversionResult{
			Players:  []model.PlayerID{"v1", "v2"},
			Observed: 2,
			Expected: inference.Interval{Mean: 0.4, Lower: 0.1, Upper: 0.7},
		},
	}
}

func TestVerdict(t *testing.T) {
	iv := inference.Interval{Mean: 2, Lower: 1, Upper: 3}
	assert.Equal(t, "above", Verdict(4, iv))
	assert.Equal(t, "below", Verdict(0, iv))
	assert.Equal(t, "within", Verdict(3, iv))
}

func TestPrintTables(t *testing.T) {
	res := sampleResult()
	var buf bytes.Buffer

	PrintRunHeader(&buf, res)
	PrintTeamTable(&buf, res.Teams)
	PrintConversionTable(&buf, res)
	out := buf.String()

	assert.Contains(t, out, "01234567")
	assert.Contains(t, out, "CHEATERS")
	assert.Contains(t, out, "victims → cheaters")
	assert.NotContains(t, out, "observers → cheaters", "questions not run are skipped")
	assert.Contains(t, out, "above")
}

func TestPrintPlayers(t *testing.T) {
	var buf bytes.Buffer
	PrintPlayers(&buf, "Converted victims", []model.PlayerID{"a", "b", "c", "d", "e"})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Converted victims (5):", lines[0])

	buf.Reset()
	PrintPlayers(&buf, "Converted observers", nil)
	assert.Contains(t, buf.String(), "(0)")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleResult()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "0123456789abcdef", decoded["run_id"])
	assert.Contains(t, decoded, "teams")
	assert.NotContains(t, decoded, "observers")
}

func TestPrintDatasetSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintDatasetSummary(&buf, model.DatasetOverview{Matches: 3, Kills: 10, EarliestKill: "a", LatestKill: "b"})
	assert.Contains(t, buf.String(), "Matches       : 3")
	assert.Contains(t, buf.String(), "a → b")
}

func TestCheaterStatus(t *testing.T) {
	start := time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC)
	cheaters := model.Cheaters{
		"old": {CheatStart: start.AddDate(0, -1, 0), BanDate: start.AddDate(0, 1, 0)},
		"new": {CheatStart: start.AddDate(0, 0, 3), BanDate: start.AddDate(0, 1, 0)},
	}
	assert.Equal(t, "active", CheaterStatus(cheaters, "old", start))
	assert.Equal(t, "later", CheaterStatus(cheaters, "new", start))
	assert.Equal(t, "", CheaterStatus(cheaters, "clean", start))
}

func TestPrintRosterWithoutStart(t *testing.T) {
	cheaters := model.Cheaters{"c": {CheatStart: time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC)}}
	assert.Equal(t, "", CheaterStatus(cheaters, "c", time.Time{}))

	var buf bytes.Buffer
	PrintRoster(&buf, model.MatchTeams{
		TeamIDs:   []model.TeamID{"A"},
		PlayerIDs: []model.PlayerID{"c"},
	}, cheaters, time.Time{})
	assert.NotContains(t, buf.String(), "later")
	assert.NotContains(t, buf.String(), "active")
}

func TestPrintRosterAndKills(t *testing.T) {
	start := time.Date(2019, 5, 1, 12, 0, 0, 0, time.UTC)
	cheaters := model.Cheaters{"c": {CheatStart: start.AddDate(0, 0, -1), BanDate: start.AddDate(0, 0, 9)}}
	teams := model.MatchTeams{
		TeamIDs:   []model.TeamID{"A", "B"},
		PlayerIDs: []model.PlayerID{"c", "v"},
	}
	kills := model.MatchKills{
		Killers: []model.PlayerID{"c"},
		Victims: []model.PlayerID{"v"},
		Times:   []time.Time{start},
	}

	var buf bytes.Buffer
	PrintRoster(&buf, teams, cheaters, start)
	PrintKills(&buf, kills, cheaters)
	out := buf.String()
	assert.Contains(t, out, "CHEATER")
	assert.Contains(t, out, "VICTIM")
	assert.Contains(t, out, "12:00:00.000")
	assert.Contains(t, out, "active")
}
