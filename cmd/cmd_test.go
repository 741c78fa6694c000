package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-cs-contagion/internal/config"
	"github.com/pable/go-cs-contagion/internal/demo"
	"github.com/pable/go-cs-contagion/internal/inference"
	"github.com/pable/go-cs-contagion/internal/model"
	"github.com/pable/go-cs-contagion/internal/storage"
)

func TestPlayerActivity(t *testing.T) {
	start := time.Date(2019, 3, 1, 10, 0, 0, 0, time.UTC)
	ds := model.Dataset{
		Cheaters: model.Cheaters{"c": {CheatStart: start.AddDate(0, 0, -1), BanDate: start.AddDate(0, 0, 5)}},
		Teams: model.Teams{
			"m1": {TeamIDs: []model.TeamID{"A", "B"}, PlayerIDs: []model.PlayerID{"c", "p"}},
			"m3": {TeamIDs: []model.TeamID{"A"}, PlayerIDs: []model.PlayerID{"p"}},
		},
		Kills: model.Kills{
			"m1": {
				Killers: []model.PlayerID{"c", "p"},
				Victims: []model.PlayerID{"p", "c"},
				Times:   []time.Time{start, start.Add(time.Second)},
			},
			"m2": {
				Killers: []model.PlayerID{"x"},
				Victims: []model.PlayerID{"p"},
				Times:   []time.Time{start},
			},
		},
	}

	a := playerActivity(ds, "p")
	assert.Equal(t, 3, a.matches)
	assert.Equal(t, 1, a.kills)
	assert.Equal(t, 2, a.deaths)
	assert.Equal(t, 1, a.deathsToCheaters)

	assert.Equal(t, activity{}, playerActivity(ds, "nobody"))
}

func TestDataPaths(t *testing.T) {
	prev := cfg
	t.Cleanup(func() { cfg = prev })
	cfg = config.Default()
	cfg.Data.Kills = "/cfg/kills.txt"
	cfg.Data.Teams = "/cfg/teams.txt"

	p := dataPaths("/data", "", "/flag/teams.txt", "")
	assert.Equal(t, filepath.Join("/data", "cheaters.txt"), p.Cheaters)
	assert.Equal(t, "/flag/teams.txt", p.Teams)
	assert.Equal(t, filepath.Join("/data", "kills.txt"), p.Kills)

	p = dataPaths("", "", "", "")
	assert.Equal(t, "", p.Cheaters)
	assert.Equal(t, "/cfg/teams.txt", p.Teams)
	assert.Equal(t, "/cfg/kills.txt", p.Kills)
}

func TestBuildRunnerZ(t *testing.T) {
	prev := cfg
	t.Cleanup(func() { cfg = prev })

	bare := &cobra.Command{Use: "bare"}

	cfg = config.Default()
	cfg.Inference.Seed = 5
	r, err := buildRunner(bare)
	require.NoError(t, err)
	assert.Equal(t, inference.DefaultZ, r.Options.Z, "no confidence anywhere keeps z = 1.96 exactly")
	assert.Equal(t, uint64(5), r.Options.Seed)
	assert.Equal(t, 20, r.Options.Reps)

	cfg.Inference.Confidence = 0.99
	r, err = buildRunner(bare)
	require.NoError(t, err)
	assert.InDelta(t, 2.5758, r.Options.Z, 1e-3)
}

func TestIngestDemoSkipsStoredMatchBeforeParsing(t *testing.T) {
	prevDB := dbPath
	t.Cleanup(func() { dbPath = prevDB })
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "contagion.db")

	// Not a parseable demo: only the hash-based skip lets this succeed.
	path := filepath.Join(dir, "stored.dem")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	id, err := demo.HashFile(path)
	require.NoError(t, err)

	db, err := storage.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, db.InsertMatch(id, model.MatchTeams{}, model.MatchKills{}, "demo"))
	require.NoError(t, db.Close())

	assert.NoError(t, runIngestDemo(ingestDemoCmd, []string{path}))
}

func TestDropRemovesWALFiles(t *testing.T) {
	oldPath, oldForce := dbPath, dropForce
	t.Cleanup(func() { dbPath, dropForce = oldPath, oldForce })

	dbPath = filepath.Join(t.TempDir(), "contagion.db")
	for _, p := range dbFiles(dbPath) {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}

	dropForce = false
	require.NoError(t, runDrop(dropCmd, nil))
	assert.FileExists(t, dbPath)

	dropForce = true
	require.NoError(t, runDrop(dropCmd, nil))
	for _, p := range dbFiles(dbPath) {
		assert.NoFileExists(t, p)
	}

	// Dropping again is a no-op.
	require.NoError(t, runDrop(dropCmd, nil))
}

func TestSQLHelpShowsContagionQueries(t *testing.T) {
	assert.Contains(t, sqlCmd.Long, "JOIN cheaters")
	assert.Contains(t, sqlCmd.Long, "c.cheat_start < k.killed_at")
}
