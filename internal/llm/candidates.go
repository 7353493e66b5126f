// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"sort"
	"strings"

	"github.com/pdiddy/affiliation-engine/internal/normalize"
	"github.com/pdiddy/affiliation-engine/internal/registry"
)

// DefaultMaxCandidates caps the whitelist of one prompt.
const DefaultMaxCandidates = 50

// Tuning of the surname prefilter. These bound prompt size only; the
// registry filter on the answer is what guarantees correctness.
const (
	minCandidates = 10
	prefixCutoff  = 0.6
)

// SelectCandidates narrows the registry to the full names most likely to
// belong to the unmatched authors, best first. Entries are scored by
// surname: 1 for an exact surname, otherwise the shared prefix ratio when
// it reaches prefixCutoff. Short lists are padded from the registry up to
// limit; without any names the registry prefix is returned.
func SelectCandidates(reg []registry.Author, names []string, limit int) []string {
	if limit <= 0 {
		limit = DefaultMaxCandidates
	}

	var surnames []string
	for _, n := range names {
		if s := surnameToken(n); s != "" {
			surnames = append(surnames, s)
		}
	}
	if len(surnames) == 0 {
		return registryPrefix(reg, limit, nil)
	}

	type scored struct {
		index int
		score float64
	}
	var hits []scored
	for i, a := range reg {
		own := surnameToken(a.NormName)
		best := 0.0
		for _, s := range surnames {
			if sc := surnameScore(s, own); sc > best {
				best = sc
			}
		}
		if best > 0 {
			hits = append(hits, scored{i, best})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]string, 0, len(hits))
	taken := make(map[int]bool, len(hits))
	for _, h := range hits {
		out = append(out, reg[h.index].FullName())
		taken[h.index] = true
	}
	if len(out) < minCandidates {
		out = append(out, registryPrefix(reg, limit-len(out), taken)...)
	}
	return out
}

// surnameToken is the first word of the first comma-separated segment of
// the normalized name.
func surnameToken(name string) string {
	norm := normalize.Text(name)
	first, _, _ := strings.Cut(norm, ",")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func surnameScore(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	n := 0
	for n < len(ra) && n < len(rb) && ra[n] == rb[n] {
		n++
	}
	ratio := float64(n) / float64(max(len(ra), len(rb)))
	if ratio < prefixCutoff {
		return 0
	}
	return ratio
}

func registryPrefix(reg []registry.Author, n int, skip map[int]bool) []string {
	var out []string
	for i, a := range reg {
		if len(out) >= n {
			break
		}
		if skip[i] {
			continue
		}
		out = append(out, a.FullName())
	}
	return out
}
