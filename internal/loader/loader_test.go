package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-cs-contagion/internal/model"
)

func TestReadCheaters(t *testing.T) {
	in := "p1\t2019-03-01\t2019-03-09\n\np2\t2019-02-10\t2019-03-02\np1\t2018-01-01\t2018-01-02\n"
	got, err := ReadCheaters(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC), got["p1"].CheatStart, "first record wins")
	assert.Equal(t, time.Date(2019, 3, 9, 0, 0, 0, 0, time.UTC), got["p1"].BanDate)
	assert.Equal(t, time.Date(2019, 2, 10, 0, 0, 0, 0, time.UTC), got["p2"].CheatStart)
}

func TestReadCheatersBadDate(t *testing.T) {
	_, err := ReadCheaters(strings.NewReader("p1\t2019-03-01\t2019-03-09\np2\tnot-a-date\t2019-03-02\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadCheatersShortRow(t *testing.T) {
	_, err := ReadCheaters(strings.NewReader("p1\t2019-03-01\n"))
	assert.Error(t, err)
}

func TestReadTeams(t *testing.T) {
	in := "m1\ta\t1\nm1\tb\t2\nm2\tc\t5\nm1\td\t1\n"
	got, err := ReadTeams(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, model.MatchTeams{
		TeamIDs:   []model.TeamID{"1", "2", "1"},
		PlayerIDs: []model.PlayerID{"a", "b", "d"},
	}, got["m1"])
	assert.Equal(t, 1, got["m2"].Len())
}

func TestReadKillsSortsStably(t *testing.T) {
	in := strings.Join([]string{
		"m1\tk3\tv3\t2019-03-01 10:00:03.000",
		"m1\tk1\tv1\t2019-03-01 10:00:01.5",
		"m1\tkA\tvA\t2019-03-01 10:00:02",
		"m1\tkB\tvB\t2019-03-01 10:00:02",
		"m2\tx\ty\t2019-03-02 00:00:00.123456",
	}, "\n")
	got, err := ReadKills(strings.NewReader(in))
	require.NoError(t, err)

	m1 := got["m1"]
	assert.Equal(t, []model.PlayerID{"k1", "kA", "kB", "k3"}, m1.Killers)
	assert.Equal(t, []model.PlayerID{"v1", "vA", "vB", "v3"}, m1.Victims)
	assert.Equal(t, 500*time.Millisecond, m1.Times[0].Sub(time.Date(2019, 3, 1, 10, 0, 1, 0, time.UTC)))

	m2 := got["m2"]
	require.Equal(t, 1, m2.Len())
	assert.Equal(t, 123456000, m2.Times[0].Nanosecond())
}

func TestReadKillsBadTime(t *testing.T) {
	_, err := ReadKills(strings.NewReader("m1\ta\tb\tyesterday\n"))
	assert.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write(CheatersFile, "c\t2019-01-01\t2019-02-01\n")
	write(TeamsFile, "m1\tc\t1\nm1\td\t2\n")
	write(KillsFile, "m1\tc\td\t2019-03-01 10:00:00\n")

	ds, err := Load(DirPaths(dir))
	require.NoError(t, err)
	assert.Len(t, ds.Cheaters, 1)
	assert.Len(t, ds.Teams, 1)
	assert.Equal(t, 1, ds.Kills.Events())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(DirPaths(t.TempDir()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), CheatersFile)
}
