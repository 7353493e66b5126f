// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/affiliation-engine/internal/heuristics"
	"github.com/pdiddy/affiliation-engine/internal/llm"
	"github.com/pdiddy/affiliation-engine/internal/registry"
	"github.com/pdiddy/affiliation-engine/pkg/types"
)

var (
	_ heuristics.Store = (*Store)(nil)
	_ llm.Store        = (*Store)(nil)
	_ registry.Source  = (*Store)(nil)
)

var stamp = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(types.StoreConfig{Path: filepath.Join(t.TempDir(), "db", "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *Store, ids ...string) {
	t.Helper()
	pubs := make([]types.Publication, len(ids))
	for i, id := range ids {
		pubs[i] = types.Publication{
			ResourceID:      id,
			Contributors:    []string{"Novák, Ján", "Smith, J."},
			WoSAffiliations: []string{"[Novak, J] Tomas Bata Univ Zlin, Zlin, Czech Republic"},
		}
	}
	n, err := s.ImportPublications(context.Background(), pubs)
	require.NoError(t, err)
	require.Equal(t, len(ids), n)
}

func TestImportAndPendingHeuristics(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	seed(t, s, "b", "a", "c")

	pubs, err := s.PendingHeuristics(ctx, []types.Status{types.StatusNotProcessed}, "", 2)
	require.NoError(t, err)
	require.Len(t, pubs, 2)
	assert.Equal(t, "a", pubs[0].ResourceID)
	assert.Equal(t, "b", pubs[1].ResourceID)
	assert.Equal(t, []string{"Novák, Ján", "Smith, J."}, pubs[0].Contributors)
	assert.Nil(t, pubs[0].ScopusAffiliations)

	pubs, err = s.PendingHeuristics(ctx, []types.Status{types.StatusNotProcessed}, "b", 10)
	require.NoError(t, err)
	require.Len(t, pubs, 1)
	assert.Equal(t, "c", pubs[0].ResourceID)

	pubs, err = s.PendingHeuristics(ctx, nil, "", 10)
	require.NoError(t, err)
	assert.Empty(t, pubs)
}

func TestReimportKeepsProcessingState(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	seed(t, s, "a")
	require.NoError(t, s.SaveHeuristics(ctx, []types.HeuristicResult{{
		ResourceID: "a", Status: types.StatusProcessed, Version: "3.1.0", ProcessedAt: stamp,
		Attribution: types.Attribution{Authors: []string{"Novák, Ján"}},
	}}))

	_, err := s.ImportPublications(ctx, []types.Publication{{ResourceID: "a", Contributors: []string{"Other, O."}}})
	require.NoError(t, err)

	pending, err := s.PendingHeuristics(ctx, []types.Status{types.StatusNotProcessed}, "", 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	recs, err := s.Records(ctx, false)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, []string{"Other, O."}, recs[0].Contributors)
	assert.Equal(t, []string{"Novák, Ján"}, recs[0].Attribution.Authors)
}

func TestHeuristicsThenLLMLifecycle(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	seed(t, s, "a", "b")

	require.NoError(t, s.SaveHeuristics(ctx, []types.HeuristicResult{
		{
			ResourceID: "a", Status: types.StatusProcessed, ProcessedAt: stamp, NeedsLLM: true,
			Attribution: types.Attribution{
				Authors:   []string{"Novák, Ján"},
				Faculties: []string{"Faculty of Technology"},
			},
			Flags: types.Flags{MatchedInternalAuthors: 1, UnmatchedInternalAuthors: []string{"Kovac, P"}},
		},
		{ResourceID: "b", Status: types.StatusProcessed, ProcessedAt: stamp},
	}))

	inputs, err := s.PendingLLM(ctx, false, "", 10)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	in := inputs[0]
	assert.Equal(t, "a", in.ResourceID)
	assert.Equal(t, []string{"Kovac, P"}, in.Flags.UnmatchedInternalAuthors)
	assert.Equal(t, []string{"Novák, Ján"}, in.Prior.Authors)
	assert.Equal(t, []string{"Faculty of Technology"}, in.Prior.Faculties)

	merged := in.Prior.Merge(types.Attribution{Authors: []string{"Kováč, Petra"}, Departments: []string{"Department of Physics"}})
	require.NoError(t, s.SaveLLM(ctx, []types.LLMOutcome{{
		ResourceID: "a", Status: types.StatusProcessed, ProcessedAt: stamp,
		Payload:     types.LLMPayload{InternalAuthors: []types.LLMEntry{{Name: "Kováč, Petra"}}, RejectedNames: []string{"Ghost, C"}},
		Attribution: merged,
	}}))

	inputs, err = s.PendingLLM(ctx, true, "", 10)
	require.NoError(t, err)
	assert.Empty(t, inputs)

	// A heuristic rerun keeps what the LLM stage added.
	require.NoError(t, s.SaveHeuristics(ctx, []types.HeuristicResult{{
		ResourceID: "a", Status: types.StatusProcessed, ProcessedAt: stamp, NeedsLLM: true,
		Attribution: types.Attribution{Authors: []string{"Novák, Ján"}},
	}}))

	recs, err := s.Records(ctx, true)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, []string{"Novák, Ján", "Kováč, Petra"}, recs[0].Attribution.Authors)
	assert.Equal(t, []string{"Faculty of Technology"}, recs[0].Attribution.Faculties)
	assert.Equal(t, []string{"Department of Physics"}, recs[0].Attribution.Departments)
	require.NotNil(t, recs[0].LLMResult)
	assert.Equal(t, []string{"Ghost, C"}, recs[0].LLMResult.RejectedNames)
}

func TestLLMFailuresKeepPriorListsAndNeedOptIn(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	seed(t, s, "a", "b")
	require.NoError(t, s.SaveHeuristics(ctx, []types.HeuristicResult{
		{ResourceID: "a", Status: types.StatusProcessed, NeedsLLM: true, Attribution: types.Attribution{Authors: []string{"Novák, Ján"}}},
		{ResourceID: "b", Status: types.StatusProcessed, NeedsLLM: true},
	}))

	require.NoError(t, s.SaveLLM(ctx, []types.LLMOutcome{
		{ResourceID: "a", Status: types.StatusValidationError, Payload: types.LLMPayload{Error: "bad", Raw: "text"}},
		{ResourceID: "b", Status: types.StatusError, Payload: types.LLMPayload{Error: "503"}},
	}))

	inputs, err := s.PendingLLM(ctx, false, "", 10)
	require.NoError(t, err)
	assert.Empty(t, inputs)

	inputs, err = s.PendingLLM(ctx, true, "", 10)
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.Equal(t, []string{"Novák, Ján"}, inputs[0].Prior.Authors)

	report, err := s.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.NeedsLLM)
	assert.Equal(t, 2, report.Heuristic[types.StatusProcessed])
	assert.Equal(t, 1, report.LLM[types.StatusValidationError])
	assert.Equal(t, 1, report.LLM[types.StatusError])

	var out bytes.Buffer
	report.Print(&out)
	assert.Contains(t, out.String(), "validation_error")
}

func TestSaveUnknownRecord(t *testing.T) {
	s := testStore(t)
	err := s.SaveHeuristics(context.Background(), []types.HeuristicResult{{ResourceID: "missing"}})
	assert.ErrorContains(t, err, "unknown record")
	err = s.SaveLLM(context.Background(), []types.LLMOutcome{{ResourceID: "missing", Status: types.StatusError}})
	assert.ErrorContains(t, err, "unknown record")
}

func TestReplaceAndLoadAuthors(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	n, err := s.ReplaceAuthors(ctx, []registry.Author{
		registry.NewAuthor("Novák", "Ján"),
		registry.NewAuthor("Novak", "Jan"),
		registry.NewAuthor("Kováč", "Petra"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	authors, err := s.LoadAuthors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []registry.Author{registry.NewAuthor("Novák", "Ján"), registry.NewAuthor("Kováč", "Petra")}, authors)

	_, err = s.ReplaceAuthors(ctx, []registry.Author{registry.NewAuthor("Svoboda", "")})
	require.NoError(t, err)
	authors, err = s.LoadAuthors(ctx)
	require.NoError(t, err)
	require.Len(t, authors, 1)
	assert.Equal(t, "Svoboda", authors[0].FullName())
}

func TestExportFormats(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	seed(t, s, "a", "b")
	require.NoError(t, s.SaveHeuristics(ctx, []types.HeuristicResult{{
		ResourceID: "a", Status: types.StatusProcessed, NeedsLLM: true,
		Attribution: types.Attribution{Authors: []string{"Novák, Ján", "Kováč, Petra"}, Faculties: []string{"Faculty of Technology"}},
	}}))
	require.NoError(t, s.SaveLLM(ctx, []types.LLMOutcome{{
		ResourceID: "a", Status: types.StatusProcessed,
		Payload:     types.LLMPayload{RejectedNames: []string{"Ghost, C"}},
		Attribution: types.Attribution{Authors: []string{"Novák, Ján", "Kováč, Petra"}, Faculties: []string{"Faculty of Technology"}},
	}}))

	var csvOut bytes.Buffer
	n, err := s.Export(ctx, &csvOut, FormatCSV, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	lines := strings.Split(strings.TrimSpace(csvOut.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "resource_id;heuristic_status;needs_llm;llm_status;internal_authors;faculties;departments;rejected_names", lines[0])
	assert.Equal(t, "a;processed;true;processed;Novák, Ján||Kováč, Petra;Faculty of Technology;;Ghost, C", lines[1])
	assert.Equal(t, "b;not_processed;false;not_processed;;;;", lines[2])

	var jsonOut bytes.Buffer
	n, err = s.Export(ctx, &jsonOut, FormatJSON, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	var recs []Record
	require.NoError(t, json.Unmarshal(jsonOut.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "a", recs[0].ResourceID)

	var yamlOut bytes.Buffer
	_, err = s.Export(ctx, &yamlOut, FormatYAML, true)
	require.NoError(t, err)
	var yrecs []Record
	require.NoError(t, yaml.Unmarshal(yamlOut.Bytes(), &yrecs))
	require.Len(t, yrecs, 1)
	assert.Equal(t, []string{"Ghost, C"}, yrecs[0].LLMResult.RejectedNames)

	_, err = s.Export(ctx, &bytes.Buffer{}, "xml", false)
	assert.ErrorContains(t, err, "unknown export format")
}

func TestReadPublicationsCSV(t *testing.T) {
	input := "\ufeffresource_id;dc.contributor.author;utb.wos.affiliation;utb.scopus.affiliation\n" +
		"101;Novák, Ján||Smith, J.;[Novak, J] Tomas Bata Univ Zlin, Zlin, Czech Republic;\n" +
		";orphan;;\n" +
		"102;Kováč, Petra;;Tomas Bata University in Zlin, Zlin, Czech Republic\n"

	pubs, err := ReadPublicationsCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, pubs, 2)
	assert.Equal(t, "101", pubs[0].ResourceID)
	assert.Equal(t, []string{"Novák, Ján", "Smith, J."}, pubs[0].Contributors)
	assert.Len(t, pubs[0].WoSAffiliations, 1)
	assert.Nil(t, pubs[0].ScopusAffiliations)
	assert.Nil(t, pubs[1].WoSAffiliations)
	assert.Equal(t, []string{"Tomas Bata University in Zlin, Zlin, Czech Republic"}, pubs[1].ScopusAffiliations)
}

func TestReadPublicationsCSVMissingID(t *testing.T) {
	_, err := ReadPublicationsCSV(strings.NewReader("id;authors\n1;x\n"))
	assert.ErrorContains(t, err, "resource_id")
}
