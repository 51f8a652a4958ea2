package content

import (
	"github.com/surgebase/porter2"

	"github.com/codesift/codesift/internal/types"
)

// stem returns the porter2 stem of tok, or tok unchanged when it is shorter
// than minLen — short tokens stem too aggressively to be useful, matching
// the teacher's own Stemmer.Stem minimum-length guard
// (internal/semantic/stemmer.go).
func stem(tok string, minLen int) string {
	if minLen <= 0 {
		minLen = 3
	}
	if len(tok) < minLen {
		return tok
	}
	return porter2.Stem(tok)
}

// buildStemIndex groups every indexed token by its stem, for §4.4's opt-in
// stemming pass: a query term expands to every original token sharing its
// stem instead of requiring an exact token match.
func buildStemIndex(inverted map[string][]types.Posting, minLen int) map[string][]string {
	out := make(map[string][]string)
	for tok := range inverted {
		s := stem(tok, minLen)
		out[s] = append(out[s], tok)
	}
	return out
}
