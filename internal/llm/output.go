// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/affiliation-engine/internal/backend"
	"github.com/pdiddy/affiliation-engine/internal/faculty"
	"github.com/pdiddy/affiliation-engine/internal/registry"
	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// ValidationError means the model answered but broke the output contract.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid model output: " + e.Reason
}

type rawOutput struct {
	InternalAuthors []rawEntry `json:"internal_authors"`
}

type rawEntry struct {
	Name       *string `json:"name"`
	Faculty    *string `json:"faculty"`
	Department *string `json:"department"`
}

// ParseOutput extracts and strictly decodes the model answer. Unknown
// fields, wrong types and entries without a name are contract violations.
func ParseOutput(raw string) ([]types.LLMEntry, error) {
	obj, ok := backend.ExtractJSON(raw)
	if !ok {
		return nil, &ValidationError{Reason: "no JSON object found"}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(obj)))
	dec.DisallowUnknownFields()
	var out rawOutput
	if err := dec.Decode(&out); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	entries := make([]types.LLMEntry, 0, len(out.InternalAuthors))
	for i, e := range out.InternalAuthors {
		if e.Name == nil {
			return nil, &ValidationError{Reason: fmt.Sprintf("internal_authors[%d]: missing name", i)}
		}
		name := strings.TrimSpace(*e.Name)
		if name == "" {
			return nil, &ValidationError{Reason: fmt.Sprintf("internal_authors[%d]: empty name", i)}
		}
		entries = append(entries, types.LLMEntry{
			Name:       name,
			Faculty:    deref(e.Faculty),
			Department: deref(e.Department),
		})
	}
	return entries, nil
}

// Sanitize applies the soft field rules and the registry filter. Faculty
// codes map to display names and any other unknown faculty becomes empty;
// known departments take their canonical spelling. Every entry whose name
// is not exactly a registry full name is dropped and reported in rejected.
// Duplicate names keep their first entry.
func Sanitize(entries []types.LLMEntry, reg []registry.Author) (kept []types.LLMEntry, rejected []string) {
	allowed := registry.FullNames(reg)
	seen := make(map[string]bool)
	for _, e := range entries {
		if !allowed[e.Name] {
			rejected = append(rejected, e.Name)
			continue
		}
		if seen[e.Name] {
			continue
		}
		seen[e.Name] = true

		e.Faculty = canonicalFaculty(e.Faculty)
		e.Department = strings.TrimSpace(e.Department)
		if canon, ok := faculty.CanonicalDepartment(e.Department); ok {
			e.Department = canon
		}
		kept = append(kept, e)
	}
	return kept, rejected
}

// Attribute turns validated entries into an attribution.
func Attribute(entries []types.LLMEntry) types.Attribution {
	var a types.Attribution
	for _, e := range entries {
		a.Authors = append(a.Authors, e.Name)
		a.Faculties = append(a.Faculties, e.Faculty)
		a.Departments = append(a.Departments, e.Department)
	}
	return types.Attribution{
		Authors:     types.Union(a.Authors),
		Faculties:   types.Union(a.Faculties),
		Departments: types.Union(a.Departments),
	}
}

func canonicalFaculty(s string) string {
	s = strings.TrimSpace(s)
	if faculty.IsName(s) {
		return s
	}
	return faculty.Name(strings.ToUpper(s))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
