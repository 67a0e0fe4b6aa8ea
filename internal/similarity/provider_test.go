package similarity

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

var errUnknownDoc = errors.New("unknown document")

// fakeProvider is an in-memory StatsProvider. Documents missing from
// lengths are unknown and every lookup against them fails.
type fakeProvider struct {
	corpus  int
	df      map[string]int
	tf      map[string]map[string]int
	lengths map[string]float64

	corpusErr error
	dfErr     map[string]error
	tfCalls   atomic.Int64
}

func newFakeProvider(corpus int) *fakeProvider {
	return &fakeProvider{
		corpus:  corpus,
		df:      make(map[string]int),
		tf:      make(map[string]map[string]int),
		lengths: make(map[string]float64),
		dfErr:   make(map[string]error),
	}
}

func (p *fakeProvider) addDoc(docID string, length float64, freqs map[string]int) *fakeProvider {
	p.lengths[docID] = length
	for term, freq := range freqs {
		if p.tf[term] == nil {
			p.tf[term] = make(map[string]int)
		}
		p.tf[term][docID] = freq
	}
	return p
}

func (p *fakeProvider) setDF(term string, df int) *fakeProvider {
	p.df[term] = df
	return p
}

func (p *fakeProvider) TermFrequency(ctx context.Context, term, docID string) (int, error) {
	p.tfCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if _, ok := p.lengths[docID]; !ok {
		return 0, fmt.Errorf("%w: %s", errUnknownDoc, docID)
	}
	return p.tf[term][docID], nil
}

func (p *fakeProvider) DocumentFrequency(ctx context.Context, term string) (int, error) {
	if err := p.dfErr[term]; err != nil {
		return 0, err
	}
	return p.df[term], nil
}

func (p *fakeProvider) CorpusSize(ctx context.Context) (int, error) {
	if p.corpusErr != nil {
		return 0, p.corpusErr
	}
	return p.corpus, nil
}

func (p *fakeProvider) FieldLength(ctx context.Context, docID string) (float64, error) {
	length, ok := p.lengths[docID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", errUnknownDoc, docID)
	}
	return length, nil
}
