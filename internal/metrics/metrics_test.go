package metrics

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-cs-contagion/internal/analysis"
	"github.com/pable/go-cs-contagion/internal/inference"
)

func TestRecorder_Gather(t *testing.T) {
	r := New("run-1")
	r.Observed(analysis.QuestionVictims, "total", 3)
	r.Expected(analysis.QuestionVictims, "total", inference.Interval{Mean: 1, Lower: 0.5, Upper: 1.5})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Trial(analysis.QuestionVictims, time.Millisecond)
		}()
	}
	wg.Wait()

	families, err := r.Registry().Gather()
	require.NoError(t, err)

	byName := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetGauge() != nil:
				byName[mf.GetName()] = m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				byName[mf.GetName()] = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				byName[mf.GetName()] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	assert.Equal(t, 3.0, byName["contagion_observed_value"])
	assert.Equal(t, 1.0, byName["contagion_expected_mean"])
	assert.Equal(t, 0.5, byName["contagion_expected_lower"])
	assert.Equal(t, 1.5, byName["contagion_expected_upper"])
	assert.Equal(t, 8.0, byName["contagion_trials_total"])
	assert.Equal(t, 8.0, byName["contagion_trial_duration_seconds"])
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := New("abc")
	r.Observed(analysis.QuestionTeams, "2", 6)

	path := filepath.Join(t.TempDir(), "contagion.prom")
	require.NoError(t, r.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	assert.Contains(t, out, "# TYPE contagion_observed_value gauge")
	assert.Contains(t, out, `contagion_observed_value{bucket="2",question="teams",run_id="abc"} 6`)
}
