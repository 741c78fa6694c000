package cmd

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pable/go-cs-contagion/internal/analysis"
	"github.com/pable/go-cs-contagion/internal/inference"
	"github.com/pable/go-cs-contagion/internal/loader"
	"github.com/pable/go-cs-contagion/internal/metrics"
	"github.com/pable/go-cs-contagion/internal/model"
	"github.com/pable/go-cs-contagion/internal/report"
)

var (
	analyzeReps        int
	analyzeConfidence  float64
	analyzeZ           float64
	analyzeSeed        uint64
	analyzeWorkers     int
	analyzeOnly        []string
	analyzeJSON        bool
	analyzePlayers     bool
	analyzeMetricsFile string
	analyzeFromDir     string
)

var (
	cAbove  = color.New(color.FgRed, color.Bold)
	cWithin = color.New(color.Faint)
	cBelow  = color.New(color.FgCyan)
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compare observed cheating patterns with randomized null models",
	Long: `Run the three questions over the stored dataset (or TSV files with --from-dir):

  teams      how many teams hold 0..4 cheaters, vs. shuffled team labels
  victims    players who started cheating after being killed by a cheater
  observers  players who started cheating after seeing a cheater kill 3 others

Expected values are confidence intervals over --reps randomized trials.`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.IntVar(&analyzeReps, "reps", inference.DefaultReps, "randomization trials per question")
	f.Float64Var(&analyzeConfidence, "confidence", 0, "confidence level of the intervals (0: fixed z = 1.96)")
	f.Float64Var(&analyzeZ, "z", 0, "critical value (overrides --confidence)")
	f.Uint64Var(&analyzeSeed, "seed", 0, "random seed (0 picks one and logs it)")
	f.IntVar(&analyzeWorkers, "workers", 0, "parallel trials (0 = GOMAXPROCS)")
	f.StringSliceVar(&analyzeOnly, "only", nil, "questions to run: teams, victims, observers")
	f.BoolVar(&analyzeJSON, "json", false, "print the result as JSON")
	f.BoolVar(&analyzePlayers, "players", false, "list converted players")
	f.StringVar(&analyzeMetricsFile, "metrics-file", "", "write prometheus textfile metrics to this path")
	f.StringVar(&analyzeFromDir, "from-dir", "", "analyze TSV files in this directory instead of the database")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	runner, err := buildRunner(cmd)
	if err != nil {
		return err
	}
	ds, err := loadDataset()
	if err != nil {
		return err
	}

	var rec *metrics.Recorder
	metricsFile := analyzeMetricsFile
	if !cmd.Flags().Changed("metrics-file") {
		metricsFile = cfg.MetricsFile
	}
	if metricsFile != "" {
		runner.RunID = uuid.NewString()
		rec = metrics.New(runner.RunID)
		runner.Recorder = rec
	}

	res, err := runner.Run(ctx, ds)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	if rec != nil {
		if err := rec.WriteTextfile(metricsFile); err != nil {
			return err
		}
		logger.Info("metrics written", "path", metricsFile)
	}

	if analyzeJSON {
		return report.WriteJSON(os.Stdout, res)
	}
	printResult(os.Stdout, res)
	return nil
}

// buildRunner merges flags over config values into a Runner.
func buildRunner(cmd *cobra.Command) (*analysis.Runner, error) {
	flags := cmd.Flags()
	opts := inference.DefaultOptions()

	opts.Reps = cfg.Inference.Reps
	if flags.Changed("reps") {
		opts.Reps = analyzeReps
	}
	if w := cfg.Inference.Workers; w > 0 {
		opts.Workers = w
	}
	if flags.Changed("workers") && analyzeWorkers > 0 {
		opts.Workers = analyzeWorkers
	}

	// z: --z, then --confidence, then the config confidence, else DefaultZ.
	level := cfg.Inference.Confidence
	if flags.Changed("confidence") {
		level = analyzeConfidence
	}
	switch {
	case flags.Changed("z"):
		opts.Z = analyzeZ
	case level != 0:
		z, err := inference.ZForConfidence(level)
		if err != nil {
			return nil, err
		}
		opts.Z = z
	default:
		opts.Z = inference.DefaultZ
	}

	opts.Seed = cfg.Inference.Seed
	if flags.Changed("seed") {
		opts.Seed = analyzeSeed
	}
	if opts.Seed == 0 {
		opts.Seed = rand.Uint64()
		logger.Info("picked random seed", "seed", opts.Seed)
	}

	questions := make([]analysis.Question, 0, len(analyzeOnly))
	for _, s := range analyzeOnly {
		q, err := analysis.ParseQuestion(s)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}

	return &analysis.Runner{
		Options:   opts,
		Questions: questions,
		Logger:    logger,
	}, nil
}

func loadDataset() (model.Dataset, error) {
	if analyzeFromDir != "" {
		return loader.Load(loader.DirPaths(analyzeFromDir))
	}
	db, err := openDB()
	if err != nil {
		return model.Dataset{}, err
	}
	defer db.Close()

	ds, err := db.LoadDataset()
	if err != nil {
		return model.Dataset{}, fmt.Errorf("load dataset: %w", err)
	}
	if len(ds.Teams) == 0 && len(ds.Kills) == 0 {
		return model.Dataset{}, fmt.Errorf("no matches stored in %s; run 'contagion import' first", dbPath)
	}
	return ds, nil
}

func printResult(w io.Writer, res *analysis.Result) {
	report.PrintRunHeader(w, res)
	if res.Teams != nil {
		fmt.Fprintln(w, "--- Cheaters per team ---")
		fmt.Fprintln(w)
		report.PrintTeamTable(w, res.Teams)
		fmt.Fprintln(w)
	}
	if res.Victims != nil || res.Observers != nil {
		fmt.Fprintln(w, "--- Conversions ---")
		fmt.Fprintln(w)
		report.PrintConversionTable(w, res)
		printVerdict(w, "victims", res.Victims)
		printVerdict(w, "observers", res.Observers)
	}
	if analyzePlayers {
		if res.Victims != nil {
			report.PrintPlayers(w, "Converted victims", res.Victims.Players)
		}
		if res.Observers != nil {
			report.PrintPlayers(w, "Converted observers", res.Observers.Players)
		}
	}
}

func printVerdict(w io.Writer, name string, c *analysis.ConversionResult) {
	if c == nil {
		return
	}
	verdict := report.Verdict(float64(c.Observed), c.Expected)
	line := fmt.Sprintf("  %s: %d observed, %s expected [%.2f, %.2f]",
		name, c.Observed, verdict, c.Expected.Lower, c.Expected.Upper)
	switch verdict {
	case "above":
		cAbove.Fprintln(w, line)
	case "below":
		cBelow.Fprintln(w, line)
	default:
		cWithin.Fprintln(w, line)
	}
}

// runAnalysis is shared with explain.
func runAnalysis(ctx context.Context, cmd *cobra.Command) (*analysis.Result, error) {
	runner, err := buildRunner(cmd)
	if err != nil {
		return nil, err
	}
	ds, err := loadDataset()
	if err != nil {
		return nil, err
	}
	return runner.Run(ctx, ds)
}
