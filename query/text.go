package query

import (
	"strings"
	"unicode"
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "were": true, "to": true, "of": true, "and": true, "or": true,
	"in": true, "that": true, "have": true, "has": true, "it": true, "for": true,
	"not": true, "on": true, "with": true, "as": true, "at": true, "this": true,
	"by": true, "from": true, "what": true, "how": true, "much": true, "many": true,
	"does": true, "did": true, "do": true, "which": true, "who": true, "when": true,
	"there": true, "their": true, "its": true, "about": true, "me": true, "tell": true,
}

// keywords returns the significant words of text in lowercase.
// Dollar amounts and numbers keep their inner separators, so "$4,000,000."
// yields "$4,000,000".
func keywords(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == '/' || r == '(' || r == ')'
	})

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.ToLower(strings.TrimFunc(f, func(r rune) bool {
			return r != '$' && !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}))
		w = strings.TrimSuffix(w, "'s")
		if w == "" || w == "$" || stopWords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// keywordMatcher reports whether a text mentions every keyword of a query.
type keywordMatcher struct {
	words []string
}

func newKeywordMatcher(query string) keywordMatcher {
	return keywordMatcher{words: keywords(query)}
}

// matches is false for a query with no keywords.
func (m keywordMatcher) matches(text string) bool {
	if len(m.words) == 0 {
		return false
	}

	present := make(map[string]bool)
	for _, w := range keywords(text) {
		present[w] = true
	}
	for _, w := range m.words {
		if !present[w] {
			return false
		}
	}
	return true
}
