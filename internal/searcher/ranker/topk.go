package ranker

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/similarity"
)

// TopK returns the best limit results by score descending with ties broken
// by document ID ascending. limit <= 0 keeps everything.
func TopK(results []similarity.Result, limit int) []ScoredDoc {
	if limit <= 0 || limit > len(results) {
		limit = len(results)
	}
	h := make(scoredDocHeap, 0, limit+1)
	for _, res := range results {
		doc := ScoredDoc{DocID: res.DocID, Score: res.Score, MatchedTerms: res.Overlap}
		if h.Len() < limit {
			heap.Push(&h, doc)
			continue
		}
		if limit > 0 && better(doc, h[0]) {
			h[0] = doc
			heap.Fix(&h, 0)
		}
	}
	out := make([]ScoredDoc, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(ScoredDoc)
	}
	return out
}

func better(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

// scoredDocHeap is a min-heap whose root is the worst kept document.
type scoredDocHeap []ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool { return better(h[j], h[i]) }

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x interface{}) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *scoredDocHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
