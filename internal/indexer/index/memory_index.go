package index

import (
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/indexer/tokenizer"
)

// MemoryIndex is the mutable, in-memory layer of an engine. Re-adding a
// document replaces its previous postings.
type MemoryIndex struct {
	mu         sync.RWMutex
	index      map[string]map[string]*Posting
	docTerms   map[string][]string
	docLengths map[string]int
	size       int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index:      make(map[string]map[string]*Posting),
		docTerms:   make(map[string][]string),
		docLengths: make(map[string]int),
	}
}

// AddDocument indexes the given tokens under docID. The document's field
// length is the number of tokens.
func (m *MemoryIndex) AddDocument(docID string, tokens []tokenizer.Token) {
	termData := make(map[string]*Posting)
	for _, token := range tokens {
		p, exists := termData[token.Term]
		if !exists {
			p = &Posting{
				DocID:     docID,
				Positions: make([]int, 0, 4),
			}
			termData[token.Term] = p
		}
		p.Frequency++
		p.Positions = append(p.Positions, token.Position)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(docID)
	terms := make([]string, 0, len(termData))
	for term, posting := range termData {
		if _, exists := m.index[term]; !exists {
			m.index[term] = make(map[string]*Posting)
		}
		m.index[term][docID] = posting
		m.size += postingSize(term, posting)
		terms = append(terms, term)
	}
	m.docTerms[docID] = terms
	m.docLengths[docID] = len(tokens)
}

func (m *MemoryIndex) removeLocked(docID string) {
	terms, ok := m.docTerms[docID]
	if !ok {
		return
	}
	for _, term := range terms {
		docs := m.index[term]
		if p, ok := docs[docID]; ok {
			m.size -= postingSize(term, p)
			delete(docs, docID)
		}
		if len(docs) == 0 {
			delete(m.index, term)
		}
	}
	delete(m.docTerms, docID)
	delete(m.docLengths, docID)
}

func postingSize(term string, p *Posting) int64 {
	return int64(len(term) + len(p.DocID) + len(p.Positions)*8 + 64)
}

// Search returns the postings for term ordered by document ID.
func (m *MemoryIndex) Search(term string) PostingList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs, exists := m.index[term]
	if !exists {
		return nil
	}
	result := make(PostingList, 0, len(docs))
	for _, posting := range docs {
		result = append(result, *posting)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}

// TermFrequency returns how often term occurs in docID, 0 when it does not.
func (m *MemoryIndex) TermFrequency(term, docID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.index[term][docID]; ok {
		return p.Frequency
	}
	return 0
}

// DocLength returns the token count of docID and whether the document is
// held by this index.
func (m *MemoryIndex) DocLength(docID string) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.docLengths[docID]
	return n, ok
}

func (m *MemoryIndex) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0, len(m.index))
	for term, docs := range m.index {
		postings := make(PostingList, 0, len(docs))
		for _, posting := range docs {
			postings = append(postings, *posting)
		}
		sort.Slice(postings, func(i, j int) bool {
			return postings[i].DocID < postings[j].DocID
		})
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: postings,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	lengths := make(map[string]int, len(m.docLengths))
	for id, n := range m.docLengths {
		lengths[id] = n
	}
	return Snapshot{Terms: entries, DocLengths: lengths}
}

func (m *MemoryIndex) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docLengths)
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = make(map[string]map[string]*Posting)
	m.docTerms = make(map[string][]string)
	m.docLengths = make(map[string]int)
	m.size = 0
}
