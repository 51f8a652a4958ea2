package content

import "sort"

// TrigramIndex accelerates "does any token contain this substring" queries
// (field-prefix discovery like `_foo` / `m_foo` used by the caller-tree
// builder) without paying for trigram-on-content, per design note §9.
type TrigramIndex struct {
	Tokens     []string         // the indexed token set
	TrigramMap map[string][]int // trigram -> sorted token indices
}

// NewTrigramIndex returns an empty index.
func NewTrigramIndex() *TrigramIndex {
	return &TrigramIndex{TrigramMap: make(map[string][]int)}
}

func trigramsOf(s string) []string {
	if len(s) < 3 {
		return nil
	}
	out := make([]string, 0, len(s)-2)
	for i := 0; i+3 <= len(s); i++ {
		out = append(out, s[i:i+3])
	}
	return out
}

// BuildTrigramIndex constructs a trigram index from the given token set.
func BuildTrigramIndex(tokens []string) *TrigramIndex {
	ti := NewTrigramIndex()
	ti.Tokens = make([]string, len(tokens))
	copy(ti.Tokens, tokens)
	sort.Strings(ti.Tokens)

	for idx, tok := range ti.Tokens {
		seen := make(map[string]struct{})
		for _, tg := range trigramsOf(tok) {
			if _, dup := seen[tg]; dup {
				continue
			}
			seen[tg] = struct{}{}
			ti.TrigramMap[tg] = append(ti.TrigramMap[tg], idx)
		}
	}
	return ti
}

// Substring returns every indexed token containing query as a substring, by
// intersecting the posting lists for each trigram of query and then verifying
// the literal contains check on each candidate (§3).
func (ti *TrigramIndex) Substring(query string) []string {
	if ti == nil || len(ti.Tokens) == 0 {
		return nil
	}
	if len(query) < 3 {
		// Too short to trigram; fall back to a linear scan, the query is rare
		// (interface-stem matches are always >=4 chars per the acceptance rule).
		var out []string
		for _, tok := range ti.Tokens {
			if containsFold(tok, query) {
				out = append(out, tok)
			}
		}
		return out
	}

	grams := trigramsOf(query)
	var candidates []int
	for i, tg := range grams {
		list, ok := ti.TrigramMap[tg]
		if !ok {
			return nil
		}
		if i == 0 {
			candidates = list
			continue
		}
		candidates = intersectSorted(candidates, list)
		if len(candidates) == 0 {
			return nil
		}
	}

	out := make([]string, 0, len(candidates))
	for _, idx := range candidates {
		if containsFold(ti.Tokens[idx], query) {
			out = append(out, ti.Tokens[idx])
		}
	}
	return out
}

func intersectSorted(a, b []int) []int {
	out := make([]int, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

func containsFold(haystack, needle string) bool {
	// Token set is already lowercased at index time (tokenizer.Normalize);
	// query is expected lowercased by the caller (resolver/calltree).
	return len(needle) <= len(haystack) && indexOf(haystack, needle) >= 0
}

func indexOf(s, sub string) int {
	n, m := len(s), len(sub)
	if m == 0 {
		return 0
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == sub {
			return i
		}
	}
	return -1
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
