// Package query extracts structure from raw card queries: order/direction
// hints, recognized filter syntax, bracket-style lookups, and a best-effort
// bare card name used as fallback input after a failed filtered search.
package query

import (
	"regexp"
	"strings"
)

// Parsed is the result of syntactic extraction on one query string.
// Cleaned never contains order:/sort:/dir:/direction: tokens.
type Parsed struct {
	Cleaned   string
	Order     string // "" when no usable order hint was present
	Direction string // "asc", "desc", "auto", or ""
}

// hintTrimCutset holds the bracket/punctuation characters trimmed from both
// ends of an order or direction value.
const hintTrimCutset = `()[]{}.,;'"`

// validDirections is the closed set of accepted direction values.
var validDirections = map[string]struct{}{"asc": {}, "desc": {}, "auto": {}}

// essentialFilters is the fixed set of substrings recognized as filter
// syntax. Presence of any of them routes a query to the search path.
var essentialFilters = []string{
	"e:", "set:", "frame:", "border:",
	"is:foil", "is:nonfoil", "is:fullart", "is:textless", "is:borderless",
	"rarity:", "cn:", "number:",
}

// booleanKeywords are standalone filter words dropped during bare-name
// extraction.
var booleanKeywords = map[string]struct{}{
	"foil": {}, "nonfoil": {}, "fullart": {}, "textless": {}, "borderless": {},
}

// ExtractSortParameters pulls order:/sort: and dir:/direction: tokens out of
// the query. Hint values are trimmed of surrounding punctuation and
// lower-cased; an empty order value leaves the hint unset, and a direction
// outside {asc, desc, auto} is dropped without setting a hint. All other
// tokens are retained in original order, joined by single spaces.
func ExtractSortParameters(q string) Parsed {
	var p Parsed
	remaining := make([]string, 0, 8)

	for _, tok := range strings.Fields(q) {
		lower := strings.ToLower(tok)
		switch {
		case strings.HasPrefix(lower, "order:") || strings.HasPrefix(lower, "sort:"):
			if v := hintValue(tok); v != "" {
				p.Order = v
			}
		case strings.HasPrefix(lower, "dir:") || strings.HasPrefix(lower, "direction:"):
			v := hintValue(tok)
			if _, ok := validDirections[v]; ok {
				p.Direction = v
			}
		default:
			remaining = append(remaining, tok)
		}
	}

	p.Cleaned = strings.Join(remaining, " ")
	return p
}

// hintValue returns the lower-cased, punctuation-trimmed value after the
// first colon of a hint token.
func hintValue(tok string) string {
	_, v, _ := strings.Cut(tok, ":")
	v = strings.Trim(strings.TrimSpace(v), hintTrimCutset)
	return strings.ToLower(v)
}

// HasFilterParameters reports whether the query contains recognized filter
// syntax.
func HasFilterParameters(q string) bool {
	lower := strings.ToLower(q)
	for _, f := range essentialFilters {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

// ExtractCardName recovers a bare candidate name from a filtered query for
// fallback purposes: tokens containing a colon and standalone boolean filter
// keywords are dropped, the rest joined by single spaces.
func ExtractCardName(q string) string {
	words := strings.Fields(q)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		lower := strings.ToLower(w)
		if strings.Contains(lower, ":") {
			continue
		}
		if _, skip := booleanKeywords[lower]; skip {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// bracketRE matches the [[card name]] inline lookup syntax.
var bracketRE = regexp.MustCompile(`\[\[([^\]]+)\]\]`)

// BracketContent returns the first [[...]] payload in the message, trimmed,
// or "" when the syntax is absent.
func BracketContent(message string) string {
	m := bracketRE.FindStringSubmatch(message)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// Normalize lower-cases the text, collapses internal whitespace to single
// spaces, and trims. Used as the duplicate-suppression key.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
