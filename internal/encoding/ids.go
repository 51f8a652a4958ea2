// Package encoding renders numeric definition indices as short display IDs
// for query results: base-63 over [A-Za-z0-9_], so a typical index fits in
// one to three characters and stays double-click-selectable in a terminal.
package encoding

import (
	"errors"
	"fmt"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_"

const base = uint64(len(alphabet))

var (
	// ErrEmptyID reports a decode of the empty string.
	ErrEmptyID = errors.New("encoding: empty id")
	// ErrBadIDChar reports a character outside the ID alphabet.
	ErrBadIDChar = errors.New("encoding: invalid id character")
	// ErrIDOverflow reports an ID too large for uint64.
	ErrIDOverflow = errors.New("encoding: id overflows uint64")
)

// EncodeID renders v in the ID alphabet. Zero encodes as "A" so every ID is
// non-empty.
func EncodeID(v uint64) string {
	if v == 0 {
		return alphabet[:1]
	}
	var buf [11]byte // ceil(64 / log2(63)) digits cover uint64
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = alphabet[v%base]
		v /= base
	}
	return string(buf[i:])
}

// DecodeID parses an EncodeID-produced string back to its numeric value.
func DecodeID(s string) (uint64, error) {
	if s == "" {
		return 0, ErrEmptyID
	}
	var v uint64
	for _, c := range s {
		d, ok := digitValue(c)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrBadIDChar, c)
		}
		if v > (^uint64(0)-d)/base {
			return 0, ErrIDOverflow
		}
		v = v*base + d
	}
	return v, nil
}

// ValidID reports whether s decodes cleanly.
func ValidID(s string) bool {
	_, err := DecodeID(s)
	return err == nil
}

func digitValue(c rune) (uint64, bool) {
	switch {
	case c >= 'A' && c <= 'Z':
		return uint64(c - 'A'), true
	case c >= 'a' && c <= 'z':
		return 26 + uint64(c-'a'), true
	case c >= '0' && c <= '9':
		return 52 + uint64(c-'0'), true
	case c == '_':
		return 62, true
	}
	return 0, false
}
