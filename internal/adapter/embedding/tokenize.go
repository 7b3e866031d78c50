package embedding

import (
	"strings"
	"unicode"
)

// stopwords carry no topical signal and would otherwise dominate short
// query vectors.
var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with", "this",
		"have", "had", "but", "not", "we", "our", "they", "their",
		"if", "or", "so", "no", "can", "do", "does", "did", "been",
		"being", "would", "could", "should", "may", "might", "which",
		"what", "when", "where", "how", "all", "each", "both",
		"more", "most", "other", "some", "such", "than", "very",
		"also", "these", "those", "into", "there", "about",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// tokenize lowercases text and splits it into letter/digit runs, dropping
// single characters and stopwords. Hyphenated terms stay whole.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if len([]rune(f)) < 2 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
