package onnxmodel

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// vectorizer turns text into term counts over a fixed vocabulary, the
// feature layout the classifier was trained on.
type vectorizer struct {
	index map[string]int
	size  int
}

func newVectorizer(terms []string) *vectorizer {
	v := &vectorizer{
		index: make(map[string]int, len(terms)),
		size:  len(terms),
	}
	for i, term := range terms {
		v.index[v.normalize(term)] = i
	}
	return v
}

// normalize applies NFKC (folding half-width katakana and full-width ASCII
// into their canonical forms) followed by case folding. A Caser holds state,
// so each call gets its own.
func (v *vectorizer) normalize(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}

// tokens splits normalized text into runs of letters, digits and
// underscores, keeping runs of at least two runes.
func (v *vectorizer) tokens(text string) []string {
	fields := strings.FieldsFunc(v.normalize(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= 2 {
			out = append(out, f)
		}
	}
	return out
}

// transform returns the count vector for text and the number of
// in-vocabulary tokens that contributed to it.
func (v *vectorizer) transform(text string) ([]float32, int) {
	vec := make([]float32, v.size)
	hits := 0
	for _, tok := range v.tokens(text) {
		if i, ok := v.index[tok]; ok {
			vec[i]++
			hits++
		}
	}
	return vec, hits
}
