package index

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ferret-index/ferret/pkg/types"
)

// TestQueryEngineSearch tests term normalization at query time
func TestQueryEngineSearch(t *testing.T) {
	ix := New()
	// Postings are stored under stemmed terms, the way the merger receives
	// them from workers.
	ix.Merge("a.txt", map[string]map[string]int{"cat": {"a.txt": 3}})
	ix.Merge("b.txt", map[string]map[string]int{"cat": {"b.txt": 5}})

	q := NewQueryEngine(ix, types.LanguageEnglish)

	tests := []struct {
		name string
		term string
		want []Posting
	}{
		{
			name: "exact term",
			term: "cat",
			want: []Posting{{DocID: "b.txt", Frequency: 5}, {DocID: "a.txt", Frequency: 3}},
		},
		{
			name: "inflected query stems to the stored term",
			term: "Cats",
			want: []Posting{{DocID: "b.txt", Frequency: 5}, {DocID: "a.txt", Frequency: 3}},
		},
		{
			name: "unknown term",
			term: "zebra",
			want: nil,
		},
		{
			name: "stopword normalizes to nothing",
			term: "the",
			want: nil,
		},
		{
			name: "punctuation only",
			term: "!!!",
			want: nil,
		},
		{
			name: "multi-token query collapses to its first token",
			term: "cats zebras",
			want: []Posting{{DocID: "b.txt", Frequency: 5}, {DocID: "a.txt", Frequency: 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, q.Search(tt.term))
		})
	}
}
