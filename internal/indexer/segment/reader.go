// Package segment reads and writes immutable on-disk index segments. A
// segment holds zstd-compressed postings per term, a sorted term dictionary
// and the token count of every document it contains.
package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sort"

	lru "github.com/hashicorp/golang-lru"
	"github.com/klauspost/compress/zstd"

	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/indexer/index"
)

// PostingsCacheSize bounds how many decoded posting lists a Reader keeps.
const PostingsCacheSize = 1024

// Reader serves lookups from one segment file. It is safe for concurrent use.
// Decoded postings are cached per term, so scoring many candidates against
// the same query decodes each term once.
type Reader struct {
	file       *os.File
	name       string
	header     SegmentHeader
	dict       []DictEntry
	docLengths map[string]int
	decoder    *zstd.Decoder
	postings   *lru.Cache
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	r, err := openReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.name = filepath.Base(path)
	return r, nil
}

func openReader(f *os.File) (*Reader, error) {
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("reading segment header: %w", err)
	}
	header := decodeHeader(headerBytes)
	if header.Magic != MagicBytes {
		return nil, fmt.Errorf("invalid segment file: bad magic bytes %x", header.Magic)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported segment version %d", header.Version)
	}

	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	lensBytes := make([]byte, header.LensSize)
	if _, err := f.ReadAt(lensBytes, header.LensOffset); err != nil {
		return nil, fmt.Errorf("reading document lengths: %w", err)
	}
	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, header.LensOffset+header.LensSize); err != nil {
		return nil, fmt.Errorf("reading footer: %w", err)
	}
	checksum := crc32.NewIEEE()
	checksum.Write(dictBytes)
	checksum.Write(lensBytes)
	if got, want := checksum.Sum32(), binary.LittleEndian.Uint32(footer[0:4]); got != want {
		return nil, fmt.Errorf("segment checksum mismatch: got %08x, want %08x", got, want)
	}

	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}
	var lens []DocLength
	if err := json.Unmarshal(lensBytes, &lens); err != nil {
		return nil, fmt.Errorf("parsing document lengths: %w", err)
	}
	docLengths := make(map[string]int, len(lens))
	for _, l := range lens {
		docLengths[l.DocID] = l.Length
	}

	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderLowmem(true),
		zstd.WithDecoderMaxWindow(32*1024*1024),
		zstd.WithDecoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	cache, err := lru.New(PostingsCacheSize)
	if err != nil {
		dec.Close()
		return nil, fmt.Errorf("creating postings cache: %w", err)
	}
	return &Reader{
		file:       f,
		header:     header,
		dict:       dict,
		docLengths: docLengths,
		decoder:    dec,
		postings:   cache,
	}, nil
}

func (r *Reader) lookup(term string) (DictEntry, bool) {
	idx := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Term >= term
	})
	if idx >= len(r.dict) || r.dict[idx].Term != term {
		return DictEntry{}, false
	}
	return r.dict[idx], true
}

// Search returns the postings for term ordered by document ID. The list is
// shared with later callers and must not be modified.
func (r *Reader) Search(term string) (index.PostingList, error) {
	if cached, ok := r.postings.Get(term); ok {
		return cached.(index.PostingList), nil
	}
	entry, ok := r.lookup(term)
	if !ok {
		return nil, nil
	}
	postings, err := r.decode(term, entry)
	if err != nil {
		return nil, err
	}
	r.postings.Add(term, postings)
	return postings, nil
}

func (r *Reader) decode(term string, entry DictEntry) (index.PostingList, error) {
	block := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(block, r.header.PostOffset+entry.PostOffset); err != nil {
		return nil, fmt.Errorf("reading postings: %w", err)
	}
	raw, err := r.decoder.DecodeAll(block, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing postings for term %q: %w", term, err)
	}
	var postings index.PostingList
	if err := json.Unmarshal(raw, &postings); err != nil {
		return nil, fmt.Errorf("parsing postings: %w", err)
	}
	return postings, nil
}

// TermFrequency returns how often term occurs in docID within this segment.
func (r *Reader) TermFrequency(term, docID string) (int, error) {
	postings, err := r.Search(term)
	if err != nil {
		return 0, err
	}
	i := sort.Search(len(postings), func(i int) bool {
		return postings[i].DocID >= docID
	})
	if i < len(postings) && postings[i].DocID == docID {
		return postings[i].Frequency, nil
	}
	return 0, nil
}

// DocFrequency returns the number of documents in this segment containing
// term, read from the dictionary without decoding postings.
func (r *Reader) DocFrequency(term string) int {
	entry, ok := r.lookup(term)
	if !ok {
		return 0
	}
	return entry.DocFreq
}

// DocLength returns the token count of docID and whether the segment holds
// the document.
func (r *Reader) DocLength(docID string) (int, bool) {
	n, ok := r.docLengths[docID]
	return n, ok
}

// DocLengths calls fn for every document in the segment.
func (r *Reader) DocLengths(fn func(docID string, length int)) {
	for id, n := range r.docLengths {
		fn(id, n)
	}
}

func (r *Reader) Name() string {
	return r.name
}

func (r *Reader) Terms() int {
	return len(r.dict)
}

func (r *Reader) DocCount() uint32 {
	return r.header.DocCount
}

func (r *Reader) Close() error {
	r.decoder.Close()
	return r.file.Close()
}
