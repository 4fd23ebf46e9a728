package facematch

import "math"

// EuclideanDistance computes the L2 norm of a - b.
// Vectors of different (or zero) length are never comparable and yield +Inf.
func EuclideanDistance(a, b Embedding) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// Distances returns the distance from query to every gallery entry,
// in the same order as the gallery.
func Distances(query Embedding, gallery Gallery) []float64 {
	distances := make([]float64, len(gallery))
	for i := range gallery {
		distances[i] = EuclideanDistance(query, gallery[i].Embedding)
	}
	return distances
}

// MinIndex returns the index of the first occurrence of the smallest distance
// and the distance itself. It returns -1 for an empty slice.
func MinIndex(distances []float64) (int, float64) {
	if len(distances) == 0 {
		return -1, math.Inf(1)
	}

	idx := 0
	for i := 1; i < len(distances); i++ {
		if distances[i] < distances[idx] {
			idx = i
		}
	}
	return idx, distances[idx]
}

// MatchMask reports, per entry, whether its distance is within tolerance.
func MatchMask(distances []float64, tolerance float64) []bool {
	mask := make([]bool, len(distances))
	for i, d := range distances {
		mask[i] = d <= tolerance
	}
	return mask
}
