package search

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldText lowercases and strips combining marks so "Šíleně" matches "silene".
func foldText(raw string) string {
	// transform.Chain keeps state, build one per call.
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripper, raw)
	if err != nil {
		folded = raw
	}
	return strings.ToLower(folded)
}

func queryTokens(query string) []string {
	return strings.Fields(foldText(query))
}

// MatchScore is the fraction of query tokens found as substrings of name.
func MatchScore(query, name string) float64 {
	return scoreTokens(queryTokens(query), foldText(name))
}

func scoreTokens(tokens []string, foldedName string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	matched := 0
	for _, token := range tokens {
		if strings.Contains(foldedName, token) {
			matched++
		}
	}
	return float64(matched) / float64(len(tokens))
}

func streamLabel(sizeBytes int64, positive, negative int) string {
	if sizeBytes < 0 {
		sizeBytes = 0
	}
	return fmt.Sprintf("💾 %s 👍 %d 👎 %d", humanize.Bytes(uint64(sizeBytes)), positive, negative)
}
