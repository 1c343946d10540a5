package index

import (
	"github.com/ferret-index/ferret/pkg/textnorm"
	"github.com/ferret-index/ferret/pkg/types"
)

// QueryEngine answers single-term keyword queries against an index,
// normalizing the raw term with the same pipeline the workers apply to
// document content.
type QueryEngine struct {
	index    *Index
	language types.Language
}

// NewQueryEngine binds a query engine to an index and a language.
func NewQueryEngine(ix *Index, lang types.Language) *QueryEngine {
	return &QueryEngine{index: ix, language: lang}
}

// Search normalizes rawTerm and returns the postings for the resulting
// token, sorted by frequency descending then docID ascending. A term that
// normalizes to nothing (punctuation, stopwords) yields an empty result.
// Multi-token input collapses to its first token.
func (q *QueryEngine) Search(rawTerm string) []Posting {
	tokens := textnorm.Normalize(rawTerm, q.language)
	if len(tokens) == 0 {
		return nil
	}
	return q.index.Postings(tokens[0])
}
