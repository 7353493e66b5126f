// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"

	"github.com/pdiddy/affiliation-engine/internal/registry"
)

// ReplaceAuthors replaces the internal author registry. Authors are
// deduplicated by normalized name, keeping the first occurrence. It
// returns the number of authors stored.
func (s *Store) ReplaceAuthors(ctx context.Context, authors []registry.Author) (int, error) {
	authors = registry.Dedupe(authors)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning author import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM internal_authors`); err != nil {
		return 0, fmt.Errorf("clearing authors: %w", err)
	}
	for _, a := range authors {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO internal_authors (surname, firstname, norm_name)
			VALUES (:surname, :firstname, :norm_name)`, a); err != nil {
			return 0, fmt.Errorf("inserting author %s: %w", a.FullName(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing authors: %w", err)
	}
	return len(authors), nil
}

// LoadAuthors returns the registry in insertion order. It makes the store
// a registry.Source.
func (s *Store) LoadAuthors(ctx context.Context) ([]registry.Author, error) {
	var authors []registry.Author
	if err := s.db.SelectContext(ctx, &authors, `
		SELECT surname, firstname, norm_name FROM internal_authors ORDER BY id`); err != nil {
		return nil, fmt.Errorf("loading authors: %w", err)
	}
	return authors, nil
}
