package index

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ferret-index/ferret/pkg/log"
)

// Posting is one entry of a term's posting list.
type Posting struct {
	DocID     string
	Frequency int
}

// Index is the global inverted index: term -> {docID -> frequency}.
//
// One logical writer (the merger) and many readers (searches) share it
// under a single RWMutex. A reader always observes a term's posting list
// either entirely before or entirely after any one merge.
type Index struct {
	mu    sync.RWMutex
	terms map[string]map[string]int
}

// New returns an empty index.
func New() *Index {
	return &Index{terms: make(map[string]map[string]int)}
}

// Merge incorporates one document's partial index. Inner maps that do not
// mention docID, and non-positive frequencies, are skipped: they indicate
// malformed worker output and must not corrupt the index. Merging the
// same partial twice is a no-op.
func (ix *Index) Merge(docID string, partial map[string]map[string]int) {
	logger := log.WithComponent("index")

	ix.mu.Lock()
	defer ix.mu.Unlock()

	for term, docFreqs := range partial {
		freq, ok := docFreqs[docID]
		if !ok {
			logger.Warn().
				Str("term", term).
				Str("doc_id", docID).
				Msg("partial entry does not mention its own document, skipping term")
			continue
		}
		if freq < 1 {
			logger.Warn().
				Str("term", term).
				Str("doc_id", docID).
				Int("frequency", freq).
				Msg("non-positive frequency, skipping term")
			continue
		}
		postings, ok := ix.terms[term]
		if !ok {
			postings = make(map[string]int)
			ix.terms[term] = postings
		}
		// Last writer wins per (term, docID); a re-index overwrites.
		postings[docID] = freq
	}
}

// Postings returns the posting list for term sorted by frequency
// descending, ties broken by docID ascending. An absent term yields nil.
func (ix *Index) Postings(term string) []Posting {
	ix.mu.RLock()
	docFreqs, ok := ix.terms[term]
	if !ok {
		ix.mu.RUnlock()
		return nil
	}
	out := make([]Posting, 0, len(docFreqs))
	for docID, freq := range docFreqs {
		out = append(out, Posting{DocID: docID, Frequency: freq})
	}
	ix.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].DocID < out[j].DocID
	})
	return out
}

// TermCount returns the number of distinct terms currently indexed.
func (ix *Index) TermCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.terms)
}

// Save writes the index as gzip-compressed JSON to path, atomically: the
// snapshot is written to a temporary file in the same directory and
// renamed over path, so a concurrent reader of path sees either the
// previous snapshot or the new one.
func (ix *Index) Save(path string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	defer func() {
		// Best-effort cleanup on the error paths; harmless after rename.
		_ = os.Remove(tmp.Name())
	}()

	zw := gzip.NewWriter(tmp)
	if err := json.NewEncoder(zw).Encode(ix.terms); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("finish snapshot compression: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot from path and replaces the in-memory index in one
// step. A missing file is not an error: it yields an empty index.
func (ix *Index) Load(path string) error {
	loaded, err := readSnapshot(path)
	if err != nil {
		return err
	}

	ix.mu.Lock()
	ix.terms = loaded
	ix.mu.Unlock()
	return nil
}

func readSnapshot(path string) (map[string]map[string]int, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]map[string]int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	defer zr.Close()

	var loaded map[string]map[string]int
	if err := json.NewDecoder(zr).Decode(&loaded); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if loaded == nil {
		loaded = make(map[string]map[string]int)
	}
	return loaded, nil
}
