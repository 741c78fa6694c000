// Package analysis drives the three conversion questions: it evaluates each
// detector on the observed data, then estimates its null expectation with
// the matching randomizer.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/pable/go-cs-contagion/internal/detect"
	"github.com/pable/go-cs-contagion/internal/inference"
	"github.com/pable/go-cs-contagion/internal/model"
	"github.com/pable/go-cs-contagion/internal/randomize"
)

// Question names one of the analyses.
type Question string

const (
	QuestionTeams     Question = "teams"     // cheaters per team
	QuestionVictims   Question = "victims"   // killed victims who converted
	QuestionObservers Question = "observers" // bystanders who converted
)

// AllQuestions lists every question in report order.
var AllQuestions = []Question{QuestionTeams, QuestionVictims, QuestionObservers}

// ParseQuestion validates a question name.
func ParseQuestion(s string) (Question, error) {
	q := Question(s)
	if !slices.Contains(AllQuestions, q) {
		return "", fmt.Errorf("unknown question %q (want one of teams, victims, observers)", s)
	}
	return q, nil
}

// Recorder receives the values of a run as they are produced.
type Recorder interface {
	Observed(q Question, label string, value float64)
	Expected(q Question, label string, iv inference.Interval)
	Trial(q Question, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) Observed(Question, string, float64)            {}
func (nopRecorder) Expected(Question, string, inference.Interval) {}
func (nopRecorder) Trial(Question, time.Duration)                 {}

// TeamResult is the outcome of the cheaters-per-team question.
type TeamResult struct {
	Observed detect.TeamCounts   `json:"observed"`
	Expected []inference.Interval `json:"expected"`
}

// ConversionResult is the outcome of a victim or observer question.
type ConversionResult struct {
	Players  []model.PlayerID   `json:"players"`
	Observed int                `json:"observed"`
	Expected inference.Interval `json:"expected"`
}

// AboveExpected reports whether the observed count exceeds the interval.
func (c ConversionResult) AboveExpected() bool {
	return float64(c.Observed) > c.Expected.Upper
}

// Result collects the answers of one run. Questions that were not asked are nil.
type Result struct {
	RunID     string            `json:"run_id"`
	Reps      int               `json:"reps"`
	Z         float64           `json:"z"`
	Seed      uint64            `json:"seed"`
	Teams     *TeamResult       `json:"teams,omitempty"`
	Victims   *ConversionResult `json:"victims,omitempty"`
	Observers *ConversionResult `json:"observers,omitempty"`
	Elapsed   time.Duration     `json:"elapsed_ns"`
}

// Runner executes analyses with fixed inference options.
type Runner struct {
	RunID     string // empty: a fresh UUID per run
	Options   inference.Options
	Questions []Question // empty means AllQuestions
	Logger    *slog.Logger
	Recorder  Recorder
}

// Run answers the configured questions over ds.
func (r *Runner) Run(ctx context.Context, ds model.Dataset) (*Result, error) {
	if err := r.Options.Validate(); err != nil {
		return nil, err
	}
	questions := r.Questions
	if len(questions) == 0 {
		questions = AllQuestions
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rec := r.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}

	runID := r.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	res := &Result{
		RunID: runID,
		Reps:  r.Options.Reps,
		Z:     r.Options.Z,
		Seed:  r.Options.Seed,
	}
	logger = logger.With("run_id", res.RunID)
	logger.Info("analysis started",
		"matches_teams", len(ds.Teams),
		"matches_kills", len(ds.Kills),
		"kills", ds.Kills.Events(),
		"cheaters", len(ds.Cheaters),
		"reps", r.Options.Reps,
		"seed", r.Options.Seed,
	)
	started := time.Now()

	for _, q := range questions {
		opts := r.Options
		opts.TrialHook = func(_ int, elapsed time.Duration) { rec.Trial(q, elapsed) }

		qStarted := time.Now()
		var err error
		switch q {
		case QuestionTeams:
			res.Teams, err = runTeams(ctx, ds, opts, rec)
		case QuestionVictims:
			res.Victims, err = runConversions(ctx, q, ds, detect.VictimConversions, opts, rec)
		case QuestionObservers:
			res.Observers, err = runConversions(ctx, q, ds, detect.ObserverConversions, opts, rec)
		default:
			err = fmt.Errorf("unknown question %q", q)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", q, err)
		}
		logger.Debug("question done", "question", string(q), "elapsed", time.Since(qStarted))
	}

	res.Elapsed = time.Since(started)
	logger.Info("analysis finished", "elapsed", res.Elapsed)
	return res, nil
}

func runTeams(ctx context.Context, ds model.Dataset, opts inference.Options, rec Recorder) (*TeamResult, error) {
	observed, err := detect.CountCheatersPerTeam(ds.Teams, ds.Cheaters)
	if err != nil {
		return nil, err
	}
	stat := func(teams model.Teams) ([]float64, error) {
		c, err := detect.CountCheatersPerTeam(teams, ds.Cheaters)
		if err != nil {
			return nil, err
		}
		return c.Vector(), nil
	}
	expected, err := inference.EstimateVector(ctx, ds.Teams, randomize.ShuffleTeamLabels, stat, opts)
	if err != nil {
		return nil, err
	}

	for n := range observed {
		label := strconv.Itoa(n)
		rec.Observed(QuestionTeams, label, float64(observed[n]))
		rec.Expected(QuestionTeams, label, expected[n])
	}
	return &TeamResult{Observed: observed, Expected: expected}, nil
}

func runConversions(
	ctx context.Context,
	q Question,
	ds model.Dataset,
	detector func(model.Kills, model.Cheaters) model.PlayerSet,
	opts inference.Options,
	rec Recorder,
) (*ConversionResult, error) {
	players := detector(ds.Kills, ds.Cheaters)
	stat := func(kills model.Kills) (float64, error) {
		return float64(detector(kills, ds.Cheaters).Len()), nil
	}
	expected, err := inference.Estimate(ctx, ds.Kills, randomize.RelabelKills, stat, opts)
	if err != nil {
		return nil, err
	}

	rec.Observed(q, "total", float64(players.Len()))
	rec.Expected(q, "total", expected)
	return &ConversionResult{
		Players:  players.Sorted(),
		Observed: players.Len(),
		Expected: expected,
	}, nil
}
