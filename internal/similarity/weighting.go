package similarity

import "math"

// TermFrequencyWeight returns the tf weight of a term occurring freq times
// in a document.
//
//	basic:     freq
//	sublinear: 1 + ln(freq), and exactly 0 when freq is 0
//	boolean:   1
//
// freq must be non-negative; the scorer validates it before calling.
func (m WeightingMode) TermFrequencyWeight(freq int) float64 {
	switch m {
	case WeightingBasic:
		return float64(freq)
	case WeightingSublinear:
		if freq <= 0 {
			return 0
		}
		return 1 + math.Log(float64(freq))
	case WeightingBoolean:
		return 1
	}
	return 0
}

// InverseDocumentFrequencyWeight returns the idf weight of a term found in
// docFreq of numDocs documents: 1 for boolean weighting, otherwise
// 1 + ln(numDocs / (docFreq + 1)).
//
// numDocs must be at least 1 and docFreq at most numDocs, which keeps the
// result strictly positive.
func (m WeightingMode) InverseDocumentFrequencyWeight(docFreq, numDocs int) float64 {
	switch m {
	case WeightingBoolean:
		return 1
	case WeightingBasic, WeightingSublinear:
		return 1 + math.Log(float64(numDocs)/float64(docFreq+1))
	}
	return 0
}
