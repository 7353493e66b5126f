// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/affiliation-engine/internal/backend"
	"github.com/pdiddy/affiliation-engine/internal/registry"
	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// fakeBackend answers every prompt with the same text or error and records
// the user messages it saw.
type fakeBackend struct {
	answer  string
	err     error
	panicky bool

	mu    sync.Mutex
	users []string
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) HealthCheck(context.Context) bool { return true }

func (f *fakeBackend) Complete(_ context.Context, _, user string) (string, error) {
	if f.panicky {
		panic("backend exploded")
	}
	f.mu.Lock()
	f.users = append(f.users, user)
	f.mu.Unlock()
	return f.answer, f.err
}

var fixedNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func testProcessor(t *testing.T, b backend.Backend) *Processor {
	p := NewProcessor(b, 10, zaptest.NewLogger(t))
	p.now = func() time.Time { return fixedNow }
	return p
}

func llmRegistry() []registry.Author {
	return []registry.Author{
		registry.NewAuthor("Novák", "Ján"),
		registry.NewAuthor("Kováč", "Petra"),
	}
}

func TestProcessDropsHallucinatedNames(t *testing.T) {
	fb := &fakeBackend{answer: `{"internal_authors":[
		{"name":"Kováč, Petra","faculty":"FT","department":"Dept Polymer Engn"},
		{"name":"Kovac, Petra","faculty":"Faculty of Technology","department":""},
		{"name":"Ghost, Casper","faculty":"Faculty of Humanities","department":"Department of Pedagogical Sciences"}
	]}`}
	in := types.LLMInput{
		ResourceID:      "42",
		WoSAffiliations: []string{"[Novak, Jan; Kovac, Petra] Tomas Bata Univ Zlin, Dept Polymer Engn, Zlin, Czech Republic"},
		Flags:           types.Flags{MatchedInternalAuthors: 1, UnmatchedInternalAuthors: []string{"Kovac, Petra"}},
		Prior: types.Attribution{
			Authors:     []string{"Novák, Ján"},
			Faculties:   []string{"Faculty of Technology"},
			Departments: []string{"Department of Polymer Engineering"},
		},
	}

	out := testProcessor(t, fb).Process(context.Background(), in, llmRegistry())

	require.Equal(t, types.StatusProcessed, out.Status)
	assert.Equal(t, fixedNow, out.ProcessedAt)
	assert.Equal(t, []string{"Novák, Ján", "Kováč, Petra"}, out.Attribution.Authors)
	assert.Equal(t, []string{"Faculty of Technology"}, out.Attribution.Faculties)
	assert.Equal(t, []string{"Department of Polymer Engineering", "Dept Polymer Engn"}, out.Attribution.Departments)
	assert.NotContains(t, out.Attribution.Authors, "Ghost, Casper")
	assert.NotContains(t, out.Attribution.Authors, "Kovac, Petra")
	assert.NotContains(t, out.Attribution.Faculties, "Faculty of Humanities")
	assert.Equal(t, []string{"Kovac, Petra", "Ghost, Casper"}, out.Payload.RejectedNames)
	assert.Equal(t, "plain", out.Payload.Strategy)
	assert.Equal(t, "fake", out.Payload.Backend)

	require.Len(t, fb.users, 1)
	assert.Contains(t, fb.users[0], "resource_id: 42")
	assert.Contains(t, fb.users[0], `"Kováč, Petra"`)
}

func TestProcessValidationError(t *testing.T) {
	long := "The authors are: " + strings.Repeat("x", 3000)
	out := testProcessor(t, &fakeBackend{answer: long}).Process(context.Background(),
		types.LLMInput{ResourceID: "1", Prior: types.Attribution{Authors: []string{"Novák, Ján"}}}, llmRegistry())

	assert.Equal(t, types.StatusValidationError, out.Status)
	assert.Contains(t, out.Payload.Error, "no JSON object")
	assert.Len(t, []rune(out.Payload.Raw), rawAuditLimit)
	assert.True(t, strings.HasPrefix(out.Payload.Raw, "The authors are: "))
	assert.True(t, out.Attribution.Empty(), "failures carry no attribution")
}

func TestProcessSchemaViolation(t *testing.T) {
	out := testProcessor(t, &fakeBackend{answer: `{"internal_authors":[{"name":"Novák, Ján","confidence":0.9}]}`}).
		Process(context.Background(), types.LLMInput{ResourceID: "1"}, llmRegistry())

	assert.Equal(t, types.StatusValidationError, out.Status)
	assert.Contains(t, out.Payload.Raw, "confidence")
}

func TestProcessBackendError(t *testing.T) {
	fb := &fakeBackend{err: &backend.StatusError{Backend: "fake", StatusCode: 503, Body: "overloaded"}}
	out := testProcessor(t, fb).Process(context.Background(), types.LLMInput{ResourceID: "1"}, llmRegistry())

	assert.Equal(t, types.StatusError, out.Status)
	assert.Contains(t, out.Payload.Error, "503")
	assert.Empty(t, out.Payload.Raw)
}

func TestProcessRecoversPanics(t *testing.T) {
	out := testProcessor(t, &fakeBackend{panicky: true}).Process(context.Background(), types.LLMInput{ResourceID: "1"}, llmRegistry())

	assert.Equal(t, types.StatusError, out.Status)
	assert.Contains(t, out.Payload.Error, "backend exploded")
}

func TestProcessUsesContributorsWithoutUnmatchedNames(t *testing.T) {
	reg := append(llmRegistry(), candidateRegistry()...)
	fb := &fakeBackend{answer: `{"internal_authors":[]}`}
	p := NewProcessor(fb, 1, nil)

	out := p.Process(context.Background(), types.LLMInput{
		ResourceID:   "9",
		Contributors: []string{"Svoboda, K."},
	}, reg)

	require.Equal(t, types.StatusProcessed, out.Status)
	assert.Contains(t, fb.users[0], `["Svoboda, Karel"]`)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "čš", truncate("čšť", 2))
}
