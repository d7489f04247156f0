package dataset

import "math/rand"

// ReservoirSample picks k items uniformly at random in one pass, then shuffles
// them. The same seed always yields the same selection and order. When items
// has no more than k entries all of them are returned, shuffled.
func ReservoirSample[T any](items []T, k int, seed int64) []T {
	if k <= 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(seed))
	reservoir := make([]T, 0, min(k, len(items)))
	for i, it := range items {
		if i < k {
			reservoir = append(reservoir, it)
			continue
		}
		if j := rng.Intn(i + 1); j < k {
			reservoir[j] = it
		}
	}

	shuffle := rand.New(rand.NewSource(seed))
	shuffle.Shuffle(len(reservoir), func(i, j int) {
		reservoir[i], reservoir[j] = reservoir[j], reservoir[i]
	})
	return reservoir
}
