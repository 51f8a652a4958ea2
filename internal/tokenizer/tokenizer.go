// Package tokenizer implements the single token-boundary definition used by
// both the content index build and query-time phrase tokenization (§4.1).
//
// Context-free unit: maximal-run scanner over [A-Za-z0-9_] returning a token slice, lowercased,
// minimum length filter. Non-ASCII letters are treated as separators.
// External deps: none.
package tokenizer

import "strings"

// DefaultMinLength is the minimum token length (L) used by the content index
// when no override is configured.
const DefaultMinLength = 2

// Token is one maximal run of token characters, with its 0-based byte offset
// in the source text it was scanned from.
type Token struct {
	Text   string
	Offset int
}

func isTokenByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '_'
}

// Scan splits line into lowercased tokens of length >= minLen. It is pure and
// restartable per line: callers may invoke it once per line of a file or once
// per tokenized query term without any shared state.
func Scan(line string, minLen int) []Token {
	if minLen <= 0 {
		minLen = DefaultMinLength
	}
	var out []Token
	start := -1
	for i := 0; i < len(line); i++ {
		b := line[i]
		if isTokenByte(b) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if i-start >= minLen {
				out = append(out, Token{Text: strings.ToLower(line[start:i]), Offset: start})
			}
			start = -1
		}
	}
	if start >= 0 && len(line)-start >= minLen {
		out = append(out, Token{Text: strings.ToLower(line[start:]), Offset: start})
	}
	return out
}

// ScanWords is Scan without offsets, for phrase-query tokenization where only
// the token text and order matter.
func ScanWords(s string, minLen int) []string {
	toks := Scan(s, minLen)
	words := make([]string, len(toks))
	for i, t := range toks {
		words[i] = t.Text
	}
	return words
}

// Normalize lowercases a single token for use as an index key
// (name_index, attribute_index, etc. all require lowercased keys per the
// universal invariant that no name_index key contains uppercase letters).
func Normalize(s string) string {
	return strings.ToLower(s)
}
