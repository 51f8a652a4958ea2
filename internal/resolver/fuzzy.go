package resolver

import (
	"strings"

	"github.com/hbollon/go-edlib"
)

// MinStemLen is §9's floor on the interface stem length below which the
// fuzzy acceptance rules never fire (too short to be discriminating).
const MinStemLen = 4

// EdlibSimilarityThreshold gates the secondary go-edlib acceptance path
// (§4.6, §9): kept high because this signal is a logged fallback behind the
// literal stem-prefix rule, not a replacement for it.
const EdlibSimilarityThreshold = 0.82

// Stem strips a leading "I" from an interface-style name, per §9's
// definition: "the interface name with the leading I removed". Only strips
// when the result still starts with an uppercase letter (IUserService ->
// UserService), so a plain word that merely starts with I (e.g. "Index")
// is left alone.
func Stem(name string) string {
	if len(name) < 2 {
		return name
	}
	if name[0] != 'I' {
		return name
	}
	if name[1] < 'A' || name[1] > 'Z' {
		return name
	}
	return name[1:]
}

// StemMatch implements §4.6/§9's literal stem-prefix acceptance rule: the
// receiver's stem (leading I stripped) must be at least MinStemLen chars,
// and either contained in the target class name or share a case-insensitive
// prefix of at least half the stem's length with it.
func StemMatch(receiver, target string) bool {
	stem := Stem(receiver)
	if len(stem) < MinStemLen {
		return false
	}
	lstem := strings.ToLower(stem)
	ltarget := strings.ToLower(target)
	if strings.Contains(ltarget, lstem) {
		return true
	}
	return sharedPrefixLen(lstem, ltarget) >= (len(lstem)+1)/2
}

func sharedPrefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// InterfaceFuzzyMatch applies §9's full bidirectional stem rule: accept if
// receiver's stem matches target, or target's stem (as if it were itself an
// interface name) matches receiver — "the inverse (target implements
// receiver by the same stem rule)".
func InterfaceFuzzyMatch(receiver, target string) bool {
	if StemMatch(receiver, target) {
		return true
	}
	return StemMatch(target, receiver)
}

// EdlibAccept is the secondary, lower-priority acceptance signal from
// SPEC_FULL's dependency table: a Jaro-Winkler similarity check via
// go-edlib, used only when the literal stem rule (InterfaceFuzzyMatch) did
// not already accept. Call sites should log when this path — rather than
// the literal rule — is what accepted a match, since it is intentionally a
// looser fallback.
func EdlibAccept(receiver, target string) bool {
	if receiver == "" || target == "" {
		return false
	}
	score, err := edlib.StringsSimilarity(Stem(receiver), Stem(target), edlib.JaroWinkler)
	if err != nil {
		return false
	}
	return float64(score) >= EdlibSimilarityThreshold
}
