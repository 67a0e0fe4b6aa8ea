package similarity

import "math"

// QueryNormalization returns the factor that makes scores comparable across
// queries. Cosine uses 1/sqrt(sumOfSquaredWeights) and falls back to 1 for
// an empty query; overlap always returns 1.
func (m CombinationMode) QueryNormalization(sumOfSquaredWeights float64) float64 {
	if m != CombinationCosine {
		return 1
	}
	if sumOfSquaredWeights <= 0 {
		return 1
	}
	return 1 / math.Sqrt(sumOfSquaredWeights)
}

// DocumentNormalization reduces a document's field length (token count) to
// the length norm 1/sqrt(fieldLength) under cosine, approximating the
// Euclidean length of the document vector. Overlap always returns 1.
//
// fieldLength must be positive under cosine.
func (m CombinationMode) DocumentNormalization(fieldLength float64) float64 {
	if m != CombinationCosine {
		return 1
	}
	return 1 / math.Sqrt(fieldLength)
}
