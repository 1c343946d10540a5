package textnorm

import (
	"strings"
	"sync"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
	"github.com/kljensen/snowball"

	"github.com/ferret-index/ferret/pkg/types"
)

var (
	stopwordsOnce sync.Once
	stopwordSets  map[types.Language]map[string]struct{}
)

// stopwordSet returns the stopword lookup table for lang, building all
// tables on first use. Unknown languages fall back to English.
func stopwordSet(lang types.Language) map[string]struct{} {
	stopwordsOnce.Do(func() {
		stopwordSets = map[types.Language]map[string]struct{}{
			types.LanguageEnglish: buildSet(englishStopwords),
			types.LanguageSpanish: buildSet(spanishStopwords),
		}
	})
	if set, ok := stopwordSets[lang]; ok {
		return set
	}
	return stopwordSets[types.LanguageEnglish]
}

func buildSet(list []string) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, w := range list {
		set[w] = struct{}{}
	}
	return set
}

// Normalize lowercases text, segments it on Unicode word boundaries,
// drops non-alphabetic tokens and stopwords of the selected language, and
// stems what remains. Tokens are returned in positional order with
// duplicates preserved; the caller counts them.
//
// The coordinator normalizes query terms with the same function the
// workers use on document content. The two must stay byte-identical: a
// divergence makes search silently return nothing.
func Normalize(text string, lang types.Language) []string {
	text = strings.ToLower(text)
	stops := stopwordSet(lang)

	var out []string
	tokens := words.FromString(text)
	for tokens.Next() {
		token := tokens.Value()
		if !alphabetic(token) {
			continue
		}
		if _, stop := stops[token]; stop {
			continue
		}
		out = append(out, stem(token, lang))
	}
	return out
}

// TermFrequencies builds a frequency map from a normalized token list.
func TermFrequencies(tokens []string) map[string]int {
	if len(tokens) == 0 {
		return map[string]int{}
	}
	freqs := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freqs[t]++
	}
	return freqs
}

func stem(token string, lang types.Language) string {
	stemmed, err := snowball.Stem(token, string(lang), false)
	if err != nil {
		return token
	}
	return stemmed
}

// alphabetic reports whether the token consists entirely of letters.
// Segmentation emits punctuation and numeric runs as their own tokens;
// this filter drops them.
func alphabetic(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
