// Package tokenizer extracts the set of indexable terms from text. It
// lower-cases input, takes maximal runs of ASCII letters, and discards tokens
// of two characters or fewer. The same rules apply to book bodies, titles,
// and search queries; queries additionally trim stray punctuation per token.
package tokenizer

import (
	"strings"
	"unicode"
)

// isLetter matches the alphabetic runs the index is built from. Digits are
// deliberately excluded: postings hold words, not numbers.
func isLetter(r byte) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// Tokenize returns the set of lowercase alphabetic terms longer than two
// characters found in text. Duplicates collapse; order is irrelevant.
func Tokenize(text string) map[string]struct{} {
	words := make(map[string]struct{})
	lower := strings.ToLower(text)
	start := -1
	for i := 0; i <= len(lower); i++ {
		if i < len(lower) && isLetter(lower[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if i-start > 2 {
				words[lower[start:i]] = struct{}{}
			}
			start = -1
		}
	}
	return words
}

// TokenizeQuery splits a query on whitespace, keeps terms longer than two
// characters, strips leading and trailing non-alphanumeric punctuation from
// each, and drops any term left empty. Order and duplicates are preserved;
// the query engine treats the terms conjunctively either way.
func TokenizeQuery(query string) []string {
	var terms []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		if len(word) <= 2 {
			continue
		}
		trimmed := strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if trimmed == "" {
			continue
		}
		terms = append(terms, trimmed)
	}
	return terms
}
