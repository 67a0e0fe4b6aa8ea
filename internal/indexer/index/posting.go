package index

// Posting records one document's occurrences of a term.
type Posting struct {
	DocID     string `json:"doc"`
	Frequency int    `json:"tf"`
	Positions []int  `json:"pos,omitempty"`
}

type PostingList []Posting

type TermEntry struct {
	Term     string
	Postings PostingList
}

// Snapshot is a point-in-time copy of a memory index, ready to be written as
// a segment. DocLengths holds the token count of every document in it.
type Snapshot struct {
	Terms      []TermEntry
	DocLengths map[string]int
}

// Empty reports whether the snapshot holds no documents.
func (s Snapshot) Empty() bool {
	return len(s.DocLengths) == 0
}
