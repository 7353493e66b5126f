// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package registry holds the curated list of internal authors and the cache
// that serves it to the matching stages.
package registry

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/affiliation-engine/internal/normalize"
)

// pairsPerRow is the number of (surname, firstname) column pairs in one row
// of the curated authors CSV.
const pairsPerRow = 4

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Author is an internal author. Identity is NormName; a registry never holds
// two authors with the same NormName.
type Author struct {
	Surname   string `json:"surname" yaml:"surname" db:"surname"`
	Firstname string `json:"firstname,omitempty" yaml:"firstname,omitempty" db:"firstname"`
	NormName  string `json:"norm_name" yaml:"norm_name" db:"norm_name"`
}

// NewAuthor builds an Author with its normalized comparison key.
func NewAuthor(surname, firstname string) Author {
	surname = strings.TrimSpace(surname)
	firstname = strings.TrimSpace(firstname)
	return Author{
		Surname:   surname,
		Firstname: firstname,
		NormName:  normalize.Text(joinName(surname, firstname)),
	}
}

// FullName returns "Surname, Firstname", or just the surname.
func (a Author) FullName() string {
	return joinName(a.Surname, a.Firstname)
}

func joinName(surname, firstname string) string {
	if firstname == "" {
		return surname
	}
	return surname + ", " + firstname
}

// Dedupe drops authors whose normalized key was already seen, keeping the
// first occurrence and its position.
func Dedupe(authors []Author) []Author {
	seen := make(map[string]bool, len(authors))
	out := make([]Author, 0, len(authors))
	for _, a := range authors {
		if a.NormName == "" {
			a = NewAuthor(a.Surname, a.Firstname)
		}
		if a.NormName == "" || seen[a.NormName] {
			continue
		}
		seen[a.NormName] = true
		out = append(out, a)
	}
	return out
}

// FullNames returns the set of display names of authors.
func FullNames(authors []Author) map[string]bool {
	names := make(map[string]bool, len(authors))
	for _, a := range authors {
		names[a.FullName()] = true
	}
	return names
}

// LoadCSV reads the curated authors export: ";"-delimited, one header row,
// up to four (surname, firstname) pairs per row. Blank surnames are skipped
// and duplicates by normalized key are dropped.
func LoadCSV(r io.Reader) ([]Author, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var authors []Author
	header := true
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading authors CSV: %w", err)
		}
		if header {
			header = false
			continue
		}
		for i := 0; i < pairsPerRow*2; i += 2 {
			surname := field(row, i)
			if surname == "" {
				continue
			}
			authors = append(authors, NewAuthor(surname, field(row, i+1)))
		}
	}
	return Dedupe(authors), nil
}

// LoadCSVFile opens path and calls LoadCSV. A UTF-8 byte order mark is
// tolerated.
func LoadCSVFile(path string) ([]Author, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening authors CSV %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if bom, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(bom, utf8BOM) {
		br.Discard(len(utf8BOM))
	}
	return LoadCSV(br)
}

// LoadYAML reads a YAML list of {surname, firstname} records.
func LoadYAML(r io.Reader) ([]Author, error) {
	var raw []Author
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding authors YAML: %w", err)
	}
	authors := make([]Author, 0, len(raw))
	for _, a := range raw {
		authors = append(authors, NewAuthor(a.Surname, a.Firstname))
	}
	return Dedupe(authors), nil
}

func field(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
