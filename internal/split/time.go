package split

import (
	"fmt"
	"sort"
	"time"

	"github.com/MikeSquared-Agency/anselm/internal/sample"
)

// ByTime sorts timestamped samples ascending and cuts them into contiguous
// blocks. Samples without a timestamp join training. When fewer than 80% of
// samples carry a timestamp it falls back to ByGroup.
func ByTime(samples []sample.Sample, opts Options) Result {
	type timed struct {
		s  sample.Sample
		at time.Time
	}

	var withTS []timed
	var withoutTS []sample.Sample
	for _, s := range samples {
		if at, ok := s.Time(); ok {
			withTS = append(withTS, timed{s: s, at: at})
		} else {
			withoutTS = append(withoutTS, s)
		}
	}

	if len(withTS) < int(minTimestampCoverage*float64(len(samples))) {
		res := ByGroup(samples, opts)
		res.FellBack = true
		res.Note = fmt.Sprintf("only %d of %d samples have timestamps; used group split", len(withTS), len(samples))
		return res
	}

	sort.SliceStable(withTS, func(i, j int) bool {
		return withTS[i].at.Before(withTS[j].at)
	})

	n := len(withTS)
	nTrain := targetCount(opts.TrainRatio, n)
	nVal := n - nTrain

	res := Result{Strategy: StrategyTime}
	if opts.ValidationMostRecent {
		for _, t := range withTS[:nTrain] {
			res.Train = append(res.Train, t.s)
		}
		for _, t := range withTS[nTrain:] {
			res.Validation = append(res.Validation, t.s)
		}
	} else {
		for _, t := range withTS[:nVal] {
			res.Validation = append(res.Validation, t.s)
		}
		for _, t := range withTS[nVal:] {
			res.Train = append(res.Train, t.s)
		}
	}
	res.Train = append(res.Train, withoutTS...)
	return res
}
