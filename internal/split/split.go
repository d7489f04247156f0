// Package split partitions samples into training and validation sets without
// letting a conversation straddle the boundary.
package split

import (
	"fmt"
	"math"

	"github.com/MikeSquared-Agency/anselm/internal/sample"
)

// Strategy selects how samples are assigned.
type Strategy string

const (
	StrategyTime  Strategy = "time"
	StrategyGroup Strategy = "group"
)

const (
	DefaultTrainRatio = 0.9
	DefaultSeed       = 42

	// minTimestampCoverage is the share of samples that must carry a
	// timestamp for a time split; below it the group split is used.
	minTimestampCoverage = 0.8
)

// Options configures an assignment.
type Options struct {
	Strategy   Strategy
	TrainRatio float64 // share of samples targeted at training; validation gets the rest
	Seed       int64
	// ValidationMostRecent puts the newest samples in validation. When false
	// the oldest samples form the validation block instead.
	ValidationMostRecent bool
}

// DefaultOptions returns a 90/10 time split with the newest tail held out.
func DefaultOptions() Options {
	return Options{
		Strategy:             StrategyTime,
		TrainRatio:           DefaultTrainRatio,
		Seed:                 DefaultSeed,
		ValidationMostRecent: true,
	}
}

// Result is a disjoint partition of the input.
type Result struct {
	Train      []sample.Sample
	Validation []sample.Sample
	Strategy   Strategy // strategy actually applied
	FellBack   bool
	Note       string
}

// Total returns the number of samples across both subsets.
func (r Result) Total() int { return len(r.Train) + len(r.Validation) }

// ParseStrategy parses a strategy name, defaulting to time.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyTime:
		return StrategyTime, nil
	case StrategyGroup, "grouped", "random":
		return StrategyGroup, nil
	default:
		return "", fmt.Errorf("unknown split strategy %q", s)
	}
}

// Assign partitions samples. It never drops or duplicates a sample, and an
// empty input yields two empty subsets.
func Assign(samples []sample.Sample, opts Options) (Result, error) {
	if opts.TrainRatio < 0 || opts.TrainRatio > 1 || math.IsNaN(opts.TrainRatio) {
		return Result{}, fmt.Errorf("train ratio %v out of range [0,1]", opts.TrainRatio)
	}
	if len(samples) == 0 {
		return Result{Strategy: opts.Strategy}, nil
	}
	switch opts.Strategy {
	case StrategyGroup:
		return ByGroup(samples, opts), nil
	case StrategyTime, "":
		return ByTime(samples, opts), nil
	default:
		return Result{}, fmt.Errorf("unknown split strategy %q", opts.Strategy)
	}
}

// targetCount is floor(ratio*n), nudged so 0.29*100 lands on 29.
func targetCount(ratio float64, n int) int {
	t := int(math.Floor(ratio*float64(n) + 1e-9))
	if t > n {
		return n
	}
	return t
}
