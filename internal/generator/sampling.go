package generator

import (
	"math"
	"math/rand/v2"
)

// uniform returns a float in [lo, hi).
func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}

// choice picks one of the values uniformly.
func choice[T any](rng *rand.Rand, values ...T) T {
	return values[rng.IntN(len(values))]
}

// weightedIndex draws an index with probability proportional to its weight.
// Weights need not be normalized.
func weightedIndex(rng *rand.Rand, weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	target := rng.Float64() * total
	var cum float64
	for i, w := range weights {
		cum += w
		if target < cum {
			return i
		}
	}
	return len(weights) - 1
}

// poisson draws from a Poisson distribution with the given mean (Knuth).
// Means here are small daily counts, so the product loop stays short.
func poisson(rng *rand.Rand, mean float64) int {
	if mean <= 0 {
		return 0
	}
	limit := math.Exp(-mean)
	k := 0
	p := 1.0
	for {
		p *= rng.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}
