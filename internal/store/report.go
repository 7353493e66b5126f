// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// multiValueSep joins list values in CSV cells.
const multiValueSep = "||"

// Report counts records per stage and status.
type Report struct {
	Total     int
	NeedsLLM  int
	Heuristic map[types.Status]int
	LLM       map[types.Status]int
}

type statusCount struct {
	Status string `db:"status"`
	N      int    `db:"n"`
}

// Status counts records per heuristic and LLM status. LLM counts cover
// records flagged for the LLM stage only.
func (s *Store) Status(ctx context.Context) (Report, error) {
	r := Report{Heuristic: map[types.Status]int{}, LLM: map[types.Status]int{}}

	if err := s.db.GetContext(ctx, &r.Total, `SELECT count(*) FROM publications`); err != nil {
		return r, fmt.Errorf("counting records: %w", err)
	}
	if err := s.db.GetContext(ctx, &r.NeedsLLM, `SELECT count(*) FROM publications WHERE needs_llm = 1`); err != nil {
		return r, fmt.Errorf("counting llm records: %w", err)
	}

	var counts []statusCount
	if err := s.db.SelectContext(ctx, &counts, `
		SELECT heuristic_status AS status, count(*) AS n FROM publications GROUP BY heuristic_status`); err != nil {
		return r, fmt.Errorf("counting heuristic statuses: %w", err)
	}
	for _, c := range counts {
		r.Heuristic[types.Status(c.Status)] = c.N
	}

	counts = nil
	if err := s.db.SelectContext(ctx, &counts, `
		SELECT llm_status AS status, count(*) AS n FROM publications WHERE needs_llm = 1 GROUP BY llm_status`); err != nil {
		return r, fmt.Errorf("counting llm statuses: %w", err)
	}
	for _, c := range counts {
		r.LLM[types.Status(c.Status)] = c.N
	}
	return r, nil
}

var reportStatuses = []types.Status{
	types.StatusNotProcessed, types.StatusProcessed, types.StatusError, types.StatusValidationError,
}

// Print writes the report as a small table.
func (r Report) Print(w io.Writer) {
	fmt.Fprintf(w, "records:   %d\n", r.Total)
	fmt.Fprintf(w, "needs llm: %d\n\n", r.NeedsLLM)
	fmt.Fprintf(w, "%-18s %10s %10s\n", "status", "heuristics", "llm")
	for _, st := range reportStatuses {
		fmt.Fprintf(w, "%-18s %10d %10d\n", st, r.Heuristic[st], r.LLM[st])
	}
}

// Record is one exported result row.
type Record struct {
	ResourceID      string            `json:"resource_id" yaml:"resource_id"`
	Contributors    []string          `json:"contributors" yaml:"contributors"`
	HeuristicStatus types.Status      `json:"heuristic_status" yaml:"heuristic_status"`
	NeedsLLM        bool              `json:"needs_llm" yaml:"needs_llm"`
	LLMStatus       types.Status      `json:"llm_status" yaml:"llm_status"`
	Attribution     types.Attribution `json:"attribution" yaml:"attribution"`
	Flags           types.Flags       `json:"flags" yaml:"flags"`
	LLMResult       *types.LLMPayload `json:"llm_result,omitempty" yaml:"llm_result,omitempty"`
}

type exportRow struct {
	ResourceID      string   `db:"resource_id"`
	Contributors    jsonList `db:"contributors"`
	HeuristicStatus string   `db:"heuristic_status"`
	NeedsLLM        bool     `db:"needs_llm"`
	LLMStatus       string   `db:"llm_status"`
	Authors         jsonList `db:"internal_authors"`
	Faculties       jsonList `db:"faculties"`
	Departments     jsonList `db:"departments"`
	Flags           string   `db:"flags"`
	LLMResult       string   `db:"llm_result"`
}

// Records returns all processed results in resource_id order. With
// onlyLLM, only records that went through the LLM stage are returned.
func (s *Store) Records(ctx context.Context, onlyLLM bool) ([]Record, error) {
	query := `
		SELECT resource_id, contributors, heuristic_status, needs_llm, llm_status,
			internal_authors, faculties, departments, flags, llm_result
		FROM publications`
	if onlyLLM {
		query += ` WHERE llm_status != 'not_processed'`
	}
	query += ` ORDER BY resource_id`

	var rows []exportRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	out := make([]Record, len(rows))
	for i, r := range rows {
		rec := Record{
			ResourceID:      r.ResourceID,
			Contributors:    r.Contributors,
			HeuristicStatus: types.Status(r.HeuristicStatus),
			NeedsLLM:        r.NeedsLLM,
			LLMStatus:       types.Status(r.LLMStatus),
			Attribution:     types.Attribution{Authors: r.Authors, Faculties: r.Faculties, Departments: r.Departments},
		}
		if r.Flags != "" {
			if err := json.Unmarshal([]byte(r.Flags), &rec.Flags); err != nil {
				return nil, fmt.Errorf("decoding flags for %s: %w", r.ResourceID, err)
			}
		}
		if r.LLMResult != "" {
			var payload types.LLMPayload
			if err := json.Unmarshal([]byte(r.LLMResult), &payload); err != nil {
				return nil, fmt.Errorf("decoding llm result for %s: %w", r.ResourceID, err)
			}
			rec.LLMResult = &payload
		}
		out[i] = rec
	}
	return out, nil
}

// Export writes the results to w in the given format and returns the
// number of records written.
func (s *Store) Export(ctx context.Context, w io.Writer, format string, onlyLLM bool) (int, error) {
	records, err := s.Records(ctx, onlyLLM)
	if err != nil {
		return 0, err
	}

	switch strings.ToLower(format) {
	case FormatCSV, "":
		err = writeCSV(w, records)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(records)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(records); err == nil {
			err = enc.Close()
		}
	default:
		return 0, fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		return 0, fmt.Errorf("writing %s export: %w", format, err)
	}
	return len(records), nil
}

var csvHeader = []string{
	"resource_id", "heuristic_status", "needs_llm", "llm_status",
	"internal_authors", "faculties", "departments", "rejected_names",
}

func writeCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		var rejected []string
		if r.LLMResult != nil {
			rejected = r.LLMResult.RejectedNames
		}
		if err := cw.Write([]string{
			r.ResourceID,
			string(r.HeuristicStatus),
			strconv.FormatBool(r.NeedsLLM),
			string(r.LLMStatus),
			strings.Join(r.Attribution.Authors, multiValueSep),
			strings.Join(r.Attribution.Faculties, multiValueSep),
			strings.Join(r.Attribution.Departments, multiValueSep),
			strings.Join(rejected, multiValueSep),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
