// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package matcher compares candidate author names against the internal
// author registry: exact normalized equality first, then Jaro-Winkler
// similarity against every entry.
package matcher

import (
	"strings"
	"unicode/utf8"

	"github.com/xrash/smetrics"

	"github.com/pdiddy/affiliation-engine/internal/normalize"
	"github.com/pdiddy/affiliation-engine/internal/registry"
)

// DefaultThreshold is the minimum similarity for a fuzzy match.
const DefaultThreshold = 0.85

// Jaro-Winkler parameters: the prefix bonus applies above boostThreshold and
// considers at most prefixSize leading characters.
const (
	boostThreshold = 0.7
	prefixSize     = 4
)

// Kind classifies how a candidate matched.
type Kind string

const (
	KindExact Kind = "exact"
	KindFuzzy Kind = "fuzzy"
	KindNone  Kind = "none"
)

// Result is the outcome of matching one candidate. Matched is true exactly
// when Author is set; KindExact always carries Score 1.
type Result struct {
	Input   string           `json:"input" yaml:"input"`
	Matched bool             `json:"matched" yaml:"matched"`
	Author  *registry.Author `json:"author,omitempty" yaml:"author,omitempty"`
	Score   float64          `json:"score" yaml:"score"`
	Kind    Kind             `json:"kind" yaml:"kind"`
}

// Similarity returns the Jaro-Winkler similarity of two already-normalized
// strings, compared character by character.
func Similarity(a, b string) float64 {
	a, b = runeAlphabet(a, b)
	return smetrics.JaroWinkler(a, b, boostThreshold, prefixSize)
}

// runeAlphabet re-encodes a and b over a shared one-byte alphabet so that
// smetrics, which indexes bytes, sees one position per rune. ASCII input is
// returned as is. More than 256 distinct runes leaves both strings unchanged.
func runeAlphabet(a, b string) (string, string) {
	if isASCII(a) && isASCII(b) {
		return a, b
	}
	codes := make(map[rune]byte)
	encode := func(s string) (string, bool) {
		out := make([]byte, 0, len(s))
		for _, r := range s {
			c, ok := codes[r]
			if !ok {
				if len(codes) > 255 {
					return "", false
				}
				c = byte(len(codes))
				codes[r] = c
			}
			out = append(out, c)
		}
		return string(out), true
	}
	ea, ok := encode(a)
	if !ok {
		return a, b
	}
	eb, ok := encode(b)
	if !ok {
		return a, b
	}
	return ea, eb
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// Match compares candidate against every registry entry. The threshold is
// inclusive. On fuzzy ties the earliest registry entry wins. A failed match
// still reports the best score seen.
func Match(candidate string, reg []registry.Author, threshold float64) Result {
	if strings.TrimSpace(candidate) == "" {
		return Result{Input: candidate, Kind: KindNone}
	}

	norm := normalize.Text(candidate)
	for i := range reg {
		if reg[i].NormName == norm {
			author := reg[i]
			return Result{Input: candidate, Matched: true, Author: &author, Score: 1.0, Kind: KindExact}
		}
	}

	best := -1
	bestScore := 0.0
	for i := range reg {
		score := Similarity(norm, reg[i].NormName)
		if best < 0 || score > bestScore {
			best = i
			bestScore = score
		}
	}

	if best >= 0 && bestScore >= threshold {
		author := reg[best]
		return Result{Input: candidate, Matched: true, Author: &author, Score: bestScore, Kind: KindFuzzy}
	}
	return Result{Input: candidate, Score: bestScore, Kind: KindNone}
}

// MatchBatch matches each name independently against the same snapshot,
// preserving input order.
func MatchBatch(names []string, reg []registry.Author, threshold float64) []Result {
	results := make([]Result, len(names))
	for i, name := range names {
		results[i] = Match(name, reg, threshold)
	}
	return results
}
