package facematch

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Mean returns the per-dimension arithmetic mean of vectors, which must all
// have the same length. It returns nil for no vectors.
func Mean(vectors [][]float64) []float64 {
	if len(vectors) == 0 {
		return nil
	}
	sum := make([]float64, len(vectors[0]))
	for _, v := range vectors {
		floats.Add(sum, v)
	}
	n := float64(len(vectors))
	for i := range sum {
		sum[i] /= n
	}
	return sum
}

// Distance is the Euclidean distance between a and b. Vectors of different
// length are infinitely far apart.
func Distance(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	return floats.Distance(a, b, 2)
}
