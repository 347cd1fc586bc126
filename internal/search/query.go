// Package search holds the query vocabulary shared by the backend and its
// Go client: free-text normalization, filter brackets, and the parameter set
// forwarded to the external search engine.
//
// Nothing here performs I/O. Ranking and retrieval belong to the engine.
package search

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxQueryRunes bounds a stored or forwarded query.
const MaxQueryRunes = 2000

// DefaultQuery is what the engine searches for when a caller has no intent
// yet (the anonymous recommendation feed). It reads "all properties".
const DefaultQuery = "ทรัพย์สินทั้งหมด"

var (
	// ErrEmptyQuery is returned for blank input.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrQueryTooLong is returned for input over MaxQueryRunes.
	ErrQueryTooLong = errors.New("query is too long")
)

// NormalizeQuery converts q to NFC, collapses runs of whitespace into one
// space, and trims the ends. Thai input typed on different keyboards yields
// different code point orders for tone marks; NFC makes them compare equal.
func NormalizeQuery(q string) (string, error) {
	q = collapseWhitespace(norm.NFC.String(q))
	if q == "" {
		return "", ErrEmptyQuery
	}
	if utf8.RuneCountInString(q) > MaxQueryRunes {
		return "", ErrQueryTooLong
	}
	return q, nil
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
