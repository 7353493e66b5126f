// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/affiliation-engine/internal/normalize"
	"github.com/pdiddy/affiliation-engine/internal/registry"
)

func testRegistry() []registry.Author {
	return []registry.Author{
		registry.NewAuthor("Novák", "Ján"),
		registry.NewAuthor("Horáková", "Eva"),
		registry.NewAuthor("Dvořák", "Tomáš"),
	}
}

func TestSimilarityCountsCharacters(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical non-ascii", "łódź", "łódź", 1},
		{"one stroke letter", "łukasz", "lukasz", 8.0 / 9},
		{"multi-byte shifts window", "čáp", "cap", 5.0 / 9},
		{"ascii unchanged", "martha", "marhta", 0.9611},
		{"disjoint", "ø", "x", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Similarity(tc.a, tc.b), 1e-4)
			assert.InDelta(t, tc.want, Similarity(tc.b, tc.a), 1e-4)
		})
	}
}

func TestMatchBlankCandidate(t *testing.T) {
	for _, in := range []string{"", "   "} {
		res := Match(in, testRegistry(), DefaultThreshold)
		assert.False(t, res.Matched)
		assert.Nil(t, res.Author)
		assert.Equal(t, KindNone, res.Kind)
		assert.Zero(t, res.Score)
	}
}

func TestMatchExactDominates(t *testing.T) {
	// Exact wins even with a threshold no fuzzy score can reach.
	res := Match("NOVAK,  Jan", testRegistry(), 1.5)
	require.True(t, res.Matched)
	require.NotNil(t, res.Author)
	assert.Equal(t, KindExact, res.Kind)
	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, "Novák, Ján", res.Author.FullName())
}

func TestMatchFuzzy(t *testing.T) {
	res := Match("Horakova, E.", testRegistry(), 0.85)
	require.True(t, res.Matched)
	assert.Equal(t, KindFuzzy, res.Kind)
	assert.Equal(t, "Horáková, Eva", res.Author.FullName())
	assert.GreaterOrEqual(t, res.Score, 0.85)
	assert.Less(t, res.Score, 1.0)
}

func TestMatchNoneReportsBestScore(t *testing.T) {
	res := Match("Smith, John", testRegistry(), DefaultThreshold)
	assert.False(t, res.Matched)
	assert.Nil(t, res.Author)
	assert.Equal(t, KindNone, res.Kind)
	assert.Greater(t, res.Score, 0.0)
	assert.Less(t, res.Score, DefaultThreshold)
}

func TestMatchThresholdInclusive(t *testing.T) {
	reg := testRegistry()
	candidate := "Dvorak, Tomas J."
	score := Similarity(normalize.Text(candidate), reg[2].NormName)
	require.Less(t, score, 1.0)

	res := Match(candidate, reg, score)
	assert.True(t, res.Matched)
	assert.Equal(t, KindFuzzy, res.Kind)
	assert.Equal(t, score, res.Score)

	res = Match(candidate, reg, score+1e-9)
	assert.False(t, res.Matched)
}

func TestMatchEmptyRegistry(t *testing.T) {
	res := Match("Novák, Ján", nil, 0)
	assert.False(t, res.Matched)
	assert.Equal(t, KindNone, res.Kind)
}

func TestMatchTieKeepsFirstRegistryEntry(t *testing.T) {
	// Identical normalized keys cannot coexist in a deduplicated registry,
	// so build the tie with two entries at equal distance from the candidate.
	reg := []registry.Author{
		{Surname: "Abcx", NormName: "abcx"},
		{Surname: "Abcy", NormName: "abcy"},
	}
	res := Match("abcz", reg, 0.5)
	require.True(t, res.Matched)
	assert.Equal(t, "Abcx", res.Author.Surname)
}

func TestMatchBatchPreservesOrder(t *testing.T) {
	names := []string{"Smith, John", "Novak, Jan", "", "Horakova, Eva"}
	results := MatchBatch(names, testRegistry(), DefaultThreshold)
	require.Len(t, results, 4)

	for i, name := range names {
		assert.Equal(t, name, results[i].Input)
	}
	assert.False(t, results[0].Matched)
	assert.Equal(t, KindExact, results[1].Kind)
	assert.Equal(t, KindNone, results[2].Kind)
	assert.Equal(t, KindExact, results[3].Kind)
}

func TestMatchReturnsCopyOfAuthor(t *testing.T) {
	reg := testRegistry()
	res := Match("Novak, Jan", reg, DefaultThreshold)
	require.NotNil(t, res.Author)
	res.Author.Surname = "changed"
	assert.Equal(t, "Novák", reg[0].Surname)
}
