package split

import (
	"math/rand"

	"github.com/MikeSquared-Agency/anselm/internal/sample"
)

// ByGroup buckets samples by chat id, shuffles the buckets with opts.Seed and
// fills training one whole bucket at a time until it reaches its target; the
// remaining buckets go to validation. Samples without a chat id are then
// placed one by one under the same target rule.
func ByGroup(samples []sample.Sample, opts Options) Result {
	var order []string
	buckets := make(map[string][]sample.Sample)
	var unknown []sample.Sample
	for _, s := range samples {
		key := s.ChatID()
		if key == "" {
			unknown = append(unknown, s)
			continue
		}
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], s)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	nTrain := targetCount(opts.TrainRatio, len(samples))
	res := Result{Strategy: StrategyGroup}
	for _, key := range order {
		if len(res.Train) < nTrain {
			res.Train = append(res.Train, buckets[key]...)
		} else {
			res.Validation = append(res.Validation, buckets[key]...)
		}
	}
	for _, s := range unknown {
		if len(res.Train) < nTrain {
			res.Train = append(res.Train, s)
		} else {
			res.Validation = append(res.Validation, s)
		}
	}
	return res
}
