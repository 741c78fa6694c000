// Package inference estimates the null distribution of a statistic by
// repeated randomized trials and summarizes it as a mean with a
// normal-approximation confidence interval.
package inference

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// DefaultReps is the number of randomized trials per estimate.
	DefaultReps = 20
	// DefaultZ is the two-sided 95% normal quantile.
	DefaultZ = 1.96
)

// ErrInvalidOptions is returned when Options cannot drive an estimate.
var ErrInvalidOptions = errors.New("invalid inference options")

// Options controls an estimate.
type Options struct {
	Reps    int     // trials per estimate
	Z       float64 // interval half-width in standard errors
	Seed    uint64  // base seed; trial i draws from stream (Seed, i)
	Workers int     // concurrent trials

	// TrialHook, when set, is called after every successful trial.
	// It may be called from several goroutines at once.
	TrialHook func(trial int, elapsed time.Duration)
}

// DefaultOptions returns 20 reps at z = 1.96 using every available CPU.
func DefaultOptions() Options {
	return Options{
		Reps:    DefaultReps,
		Z:       DefaultZ,
		Workers: runtime.GOMAXPROCS(0),
	}
}

// Validate reports whether o can drive an estimate.
func (o Options) Validate() error {
	switch {
	case o.Reps < 1:
		return fmt.Errorf("%w: reps must be >= 1, got %d", ErrInvalidOptions, o.Reps)
	case !(o.Z > 0) || math.IsInf(o.Z, 0):
		return fmt.Errorf("%w: z must be positive and finite, got %v", ErrInvalidOptions, o.Z)
	case o.Workers < 1:
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalidOptions, o.Workers)
	}
	return nil
}

// ZForConfidence returns the two-sided standard normal quantile for a
// confidence level in (0, 1); 0.95 gives ~1.96.
func ZForConfidence(level float64) (float64, error) {
	if !(level > 0 && level < 1) {
		return 0, fmt.Errorf("%w: confidence must be in (0, 1), got %v", ErrInvalidOptions, level)
	}
	return distuv.UnitNormal.Quantile(1 - (1-level)/2), nil
}

// Interval is a mean with its confidence bounds.
type Interval struct {
	Mean  float64 `json:"mean"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Contains reports whether x lies within the closed interval.
func (i Interval) Contains(x float64) bool {
	return x >= i.Lower && x <= i.Upper
}

// Width returns Upper - Lower.
func (i Interval) Width() float64 { return i.Upper - i.Lower }

// Summarize returns mean ± z·σ/√n over values, where σ is the population
// standard deviation. This is a standard-error interval for the mean, not a
// percentile interval. Constant values collapse it to a point.
func Summarize(values []float64, z float64) (Interval, error) {
	mean, err := stats.Mean(values)
	if err != nil {
		return Interval{}, fmt.Errorf("mean: %w", err)
	}
	sd, err := stats.StandardDeviation(values)
	if err != nil {
		return Interval{}, fmt.Errorf("standard deviation: %w", err)
	}
	half := z * sd / math.Sqrt(float64(len(values)))
	return Interval{Mean: mean, Lower: mean - half, Upper: mean + half}, nil
}

// Randomizer returns a randomized copy of in. It must not modify in.
type Randomizer[T any] func(rng *rand.Rand, in T) T

// Statistic evaluates a scalar statistic.
type Statistic[T any] func(in T) (float64, error)

// VectorStatistic evaluates a fixed-length vector statistic.
type VectorStatistic[T any] func(in T) ([]float64, error)

// Estimate runs opts.Reps trials of stat over randomized copies of input and
// summarizes the trial values.
func Estimate[T any](ctx context.Context, input T, randomize Randomizer[T], stat Statistic[T], opts Options) (Interval, error) {
	values, err := RunTrials(ctx, opts, func(rng *rand.Rand) (float64, error) {
		return stat(randomize(rng, input))
	})
	if err != nil {
		return Interval{}, err
	}
	return Summarize(values, opts.Z)
}

// EstimateVector is Estimate for vector statistics; each component is
// summarized independently.
func EstimateVector[T any](ctx context.Context, input T, randomize Randomizer[T], stat VectorStatistic[T], opts Options) ([]Interval, error) {
	trials, err := RunTrials(ctx, opts, func(rng *rand.Rand) ([]float64, error) {
		return stat(randomize(rng, input))
	})
	if err != nil {
		return nil, err
	}

	width := len(trials[0])
	out := make([]Interval, width)
	column := make([]float64, len(trials))
	for c := 0; c < width; c++ {
		for i, v := range trials {
			if len(v) != width {
				return nil, fmt.Errorf("trial %d returned %d components, want %d", i, len(v), width)
			}
			column[i] = v[c]
		}
		iv, err := Summarize(column, opts.Z)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", c, err)
		}
		out[c] = iv
	}
	return out, nil
}

// RunTrials runs fn opts.Reps times on up to opts.Workers goroutines and
// returns the results indexed by trial. Trial i gets its own PCG stream
// seeded with (opts.Seed, i), so the results do not depend on the worker
// count or scheduling. The first error cancels the remaining trials.
func RunTrials[R any](ctx context.Context, opts Options, fn func(rng *rand.Rand) (R, error)) ([]R, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	results := make([]R, opts.Reps)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := 0; i < opts.Reps; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			started := time.Now()
			rng := rand.New(rand.NewPCG(opts.Seed, uint64(i)))
			r, err := fn(rng)
			if err != nil {
				return fmt.Errorf("trial %d: %w", i, err)
			}
			results[i] = r
			if opts.TrialHook != nil {
				opts.TrialHook(i, time.Since(started))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
