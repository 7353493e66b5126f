// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize provides the single text normalization used for every
// comparison in the pipeline: author names, registry keys, institution text
// and keyword tables.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Text decomposes accented characters, drops combining marks, lowercases,
// collapses whitespace runs to a single space and trims. It is total and
// idempotent: Text(Text(s)) == Text(s).
func Text(s string) string {
	if s == "" {
		return ""
	}
	// Lowercasing first lets marks produced by case mapping (İ → i̇) be
	// stripped too. Transformers carry state, so a chain is built per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	lower := strings.ToLower(s)
	stripped, _, err := transform.String(t, lower)
	if err != nil {
		stripped = lower
	}
	return strings.Join(strings.Fields(stripped), " ")
}

// All normalizes every element of values, dropping results that are empty.
func All(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if n := Text(v); n != "" {
			out = append(out, n)
		}
	}
	return out
}
