package similarity

// CoordinationFactor is 1 in both combination modes: cosine does not reward
// the number of matched terms beyond their weights, and overlap reports the
// match count separately (Result.Overlap) instead of decaying scores by it.
func (m CombinationMode) CoordinationFactor(overlap, maxOverlap int) float64 {
	return 1
}

// Combine aggregates per-term contributions into a document score.
// Contributions are summed in order so equal inputs give bit-identical
// scores. Overlap ignores both norms; cosine multiplies the sum by them.
func (m CombinationMode) Combine(contributions []float64, queryNorm, docNorm, coord float64) float64 {
	var sum float64
	for _, c := range contributions {
		sum += c
	}
	if m == CombinationCosine {
		return sum * queryNorm * docNorm * coord
	}
	return sum * coord
}
