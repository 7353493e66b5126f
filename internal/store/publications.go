// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// ImportPublications inserts records or refreshes their source columns.
// Processing state of existing records is kept. It returns the number of
// records written.
func (s *Store) ImportPublications(ctx context.Context, pubs []types.Publication) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO publications (resource_id, contributors, wos_affiliation, scopus_affiliation)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(resource_id) DO UPDATE SET
			contributors = excluded.contributors,
			wos_affiliation = excluded.wos_affiliation,
			scopus_affiliation = excluded.scopus_affiliation`)
	if err != nil {
		return 0, fmt.Errorf("preparing import: %w", err)
	}
	defer stmt.Close()

	n := 0
	for _, p := range pubs {
		if p.ResourceID == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, p.ResourceID,
			jsonList(p.Contributors), jsonList(p.WoSAffiliations), jsonList(p.ScopusAffiliations)); err != nil {
			return 0, fmt.Errorf("importing %s: %w", p.ResourceID, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing import: %w", err)
	}
	return n, nil
}

type sourceRow struct {
	ResourceID   string   `db:"resource_id"`
	Contributors jsonList `db:"contributors"`
	WoS          jsonList `db:"wos_affiliation"`
	Scopus       jsonList `db:"scopus_affiliation"`
}

// PendingHeuristics returns up to limit records whose heuristic status is
// one of statuses, in resource_id order strictly after after.
func (s *Store) PendingHeuristics(ctx context.Context, statuses []types.Status, after string, limit int) ([]types.Publication, error) {
	if len(statuses) == 0 || limit <= 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT resource_id, contributors, wos_affiliation, scopus_affiliation
		FROM publications
		WHERE heuristic_status IN (?) AND resource_id > ?
		ORDER BY resource_id
		LIMIT ?`, statusStrings(statuses), after, limit)
	if err != nil {
		return nil, fmt.Errorf("building pending query: %w", err)
	}

	var rows []sourceRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying pending records: %w", err)
	}
	pubs := make([]types.Publication, len(rows))
	for i, r := range rows {
		pubs[i] = types.Publication{
			ResourceID:         r.ResourceID,
			Contributors:       r.Contributors,
			WoSAffiliations:    r.WoS,
			ScopusAffiliations: r.Scopus,
		}
	}
	return pubs, nil
}

type attributionRow struct {
	LLMStatus   string   `db:"llm_status"`
	Authors     jsonList `db:"internal_authors"`
	Faculties   jsonList `db:"faculties"`
	Departments jsonList `db:"departments"`
}

func (r attributionRow) attribution() types.Attribution {
	return types.Attribution{Authors: r.Authors, Faculties: r.Faculties, Departments: r.Departments}
}

// SaveHeuristics writes heuristic results in one transaction. When the
// record already has a processed LLM result, the stored lists become the
// union of the new heuristic lists and the prior ones.
func (s *Store) SaveHeuristics(ctx context.Context, results []types.HeuristicResult) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning heuristic save: %w", err)
	}
	defer tx.Rollback()

	for _, res := range results {
		var prior attributionRow
		err := tx.GetContext(ctx, &prior, `
			SELECT llm_status, internal_authors, faculties, departments
			FROM publications WHERE resource_id = ?`, res.ResourceID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("saving %s: unknown record", res.ResourceID)
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", res.ResourceID, err)
		}

		attr := res.Attribution.Merge(types.Attribution{})
		if types.Status(prior.LLMStatus) == types.StatusProcessed {
			attr = attr.Merge(prior.attribution())
		}

		flags, err := json.Marshal(res.Flags)
		if err != nil {
			return fmt.Errorf("encoding flags for %s: %w", res.ResourceID, err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE publications SET
				flags = ?, heuristic_status = ?, heuristic_version = ?,
				heuristic_processed_at = ?, needs_llm = ?,
				internal_authors = ?, faculties = ?, departments = ?
			WHERE resource_id = ?`,
			string(flags), string(res.Status), res.Version,
			formatTime(res.ProcessedAt), res.NeedsLLM,
			jsonList(attr.Authors), jsonList(attr.Faculties), jsonList(attr.Departments),
			res.ResourceID); err != nil {
			return fmt.Errorf("saving %s: %w", res.ResourceID, err)
		}
	}
	return tx.Commit()
}

type llmInputRow struct {
	sourceRow
	Flags       string   `db:"flags"`
	Authors     jsonList `db:"internal_authors"`
	Faculties   jsonList `db:"faculties"`
	Departments jsonList `db:"departments"`
}

// PendingLLM returns up to limit records flagged for the LLM stage that
// have not been through it yet, in resource_id order strictly after after.
// With includeFailed, records whose last attempt ended in error or
// validation_error are selected as well.
func (s *Store) PendingLLM(ctx context.Context, includeFailed bool, after string, limit int) ([]types.LLMInput, error) {
	if limit <= 0 {
		return nil, nil
	}
	statuses := []types.Status{types.StatusNotProcessed}
	if includeFailed {
		statuses = append(statuses, types.StatusError, types.StatusValidationError)
	}
	query, args, err := sqlx.In(`
		SELECT resource_id, contributors, wos_affiliation, scopus_affiliation,
			flags, internal_authors, faculties, departments
		FROM publications
		WHERE needs_llm = 1 AND llm_status IN (?) AND resource_id > ?
		ORDER BY resource_id
		LIMIT ?`, statusStrings(statuses), after, limit)
	if err != nil {
		return nil, fmt.Errorf("building pending query: %w", err)
	}

	var rows []llmInputRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying pending records: %w", err)
	}
	inputs := make([]types.LLMInput, len(rows))
	for i, r := range rows {
		var flags types.Flags
		if r.Flags != "" {
			if err := json.Unmarshal([]byte(r.Flags), &flags); err != nil {
				return nil, fmt.Errorf("decoding flags for %s: %w", r.ResourceID, err)
			}
		}
		inputs[i] = types.LLMInput{
			ResourceID:         r.ResourceID,
			Contributors:       r.Contributors,
			WoSAffiliations:    r.WoS,
			ScopusAffiliations: r.Scopus,
			Flags:              flags,
			Prior:              types.Attribution{Authors: r.Authors, Faculties: r.Faculties, Departments: r.Departments},
		}
	}
	return inputs, nil
}

// SaveLLM writes LLM outcomes in one transaction. The attribution lists
// are replaced only for processed outcomes; failures keep the prior lists.
func (s *Store) SaveLLM(ctx context.Context, outcomes []types.LLMOutcome) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning llm save: %w", err)
	}
	defer tx.Rollback()

	for _, o := range outcomes {
		payload, err := json.Marshal(o.Payload)
		if err != nil {
			return fmt.Errorf("encoding llm result for %s: %w", o.ResourceID, err)
		}

		var res sql.Result
		if o.Status == types.StatusProcessed {
			res, err = tx.ExecContext(ctx, `
				UPDATE publications SET
					llm_result = ?, llm_status = ?, llm_processed_at = ?,
					internal_authors = ?, faculties = ?, departments = ?
				WHERE resource_id = ?`,
				string(payload), string(o.Status), formatTime(o.ProcessedAt),
				jsonList(o.Attribution.Authors), jsonList(o.Attribution.Faculties), jsonList(o.Attribution.Departments),
				o.ResourceID)
		} else {
			res, err = tx.ExecContext(ctx, `
				UPDATE publications SET llm_result = ?, llm_status = ?, llm_processed_at = ?
				WHERE resource_id = ?`,
				string(payload), string(o.Status), formatTime(o.ProcessedAt), o.ResourceID)
		}
		if err != nil {
			return fmt.Errorf("saving %s: %w", o.ResourceID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("saving %s: unknown record", o.ResourceID)
		}
	}
	return tx.Commit()
}
