// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the affiliation pipeline.
package types

import (
	"strings"
	"time"
)

// Status is the processing state of one record in one stage. The heuristic
// and LLM stages track their status independently.
type Status string

const (
	StatusNotProcessed    Status = "not_processed"
	StatusProcessed       Status = "processed"
	StatusError           Status = "error"
	StatusValidationError Status = "validation_error"
)

// Failed reports whether the status is a failure eligible for reprocessing.
func (s Status) Failed() bool {
	return s == StatusError || s == StatusValidationError
}

// Publication is one harvested bibliographic record.
type Publication struct {
	// ResourceID is the repository identifier of the record.
	ResourceID string `json:"resource_id" yaml:"resource_id"`

	// Contributors is the full author list (dc.contributor.author).
	Contributors []string `json:"contributors,omitempty" yaml:"contributors,omitempty"`

	// WoSAffiliations holds raw Web of Science affiliation strings.
	WoSAffiliations []string `json:"wos_affiliations,omitempty" yaml:"wos_affiliations,omitempty"`

	// ScopusAffiliations holds raw Scopus affiliation strings.
	ScopusAffiliations []string `json:"scopus_affiliations,omitempty" yaml:"scopus_affiliations,omitempty"`
}

// Flags is the diagnostic bag written by the heuristic stage.
type Flags struct {
	NoWoSData                   bool     `json:"no_wos_data,omitempty" yaml:"no_wos_data,omitempty"`
	ScopusOnly                  bool     `json:"scopus_only,omitempty" yaml:"scopus_only,omitempty"`
	ParseWarnings               []string `json:"wos_parse_warnings,omitempty" yaml:"wos_parse_warnings,omitempty"`
	MultipleInternalBlocks      bool     `json:"multiple_internal_blocks,omitempty" yaml:"multiple_internal_blocks,omitempty"`
	InternalBlockWithoutAuthors bool     `json:"internal_block_without_authors,omitempty" yaml:"internal_block_without_authors,omitempty"`
	UnmatchedInternalAuthors    []string `json:"internal_authors_unmatched,omitempty" yaml:"internal_authors_unmatched,omitempty"`
	MatchedInternalAuthors      int      `json:"internal_authors_found_count" yaml:"internal_authors_found_count"`
	Error                       string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// PromptContext is the subset of flags shown to the model.
type PromptContext struct {
	MatchedInternalAuthors   int      `json:"internal_authors_found_count"`
	UnmatchedInternalAuthors []string `json:"internal_authors_unmatched,omitempty"`
	MultipleInternalBlocks   bool     `json:"multiple_internal_blocks,omitempty"`
	ParseWarnings            []string `json:"wos_parse_warnings,omitempty"`
	Error                    string   `json:"error,omitempty"`
}

// PromptContext returns the flags relevant to the LLM stage.
func (f Flags) PromptContext() PromptContext {
	return PromptContext{
		MatchedInternalAuthors:   f.MatchedInternalAuthors,
		UnmatchedInternalAuthors: f.UnmatchedInternalAuthors,
		MultipleInternalBlocks:   f.MultipleInternalBlocks,
		ParseWarnings:            f.ParseWarnings,
		Error:                    f.Error,
	}
}

// Attribution is the resolved set of internal authors and their units.
// All three lists are order-preserving and free of duplicates.
type Attribution struct {
	Authors     []string `json:"internal_authors" yaml:"internal_authors"`
	Faculties   []string `json:"faculties" yaml:"faculties"`
	Departments []string `json:"departments" yaml:"departments"`
}

// Empty reports whether nothing was attributed.
func (a Attribution) Empty() bool {
	return len(a.Authors) == 0 && len(a.Faculties) == 0 && len(a.Departments) == 0
}

// Merge returns the order-preserving union of a and other. Entries of a
// come first; blanks are dropped.
func (a Attribution) Merge(other Attribution) Attribution {
	return Attribution{
		Authors:     Union(a.Authors, other.Authors),
		Faculties:   Union(a.Faculties, other.Faculties),
		Departments: Union(a.Departments, other.Departments),
	}
}

// Union concatenates lists, keeping the first occurrence of each non-blank
// value.
func Union(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, v := range list {
			if strings.TrimSpace(v) == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// HeuristicResult is the outcome of the heuristic stage for one record.
type HeuristicResult struct {
	ResourceID   string    `json:"resource_id" yaml:"resource_id"`
	Status       Status    `json:"heuristic_status" yaml:"heuristic_status"`
	Version      string    `json:"heuristic_version" yaml:"heuristic_version"`
	ProcessedAt  time.Time `json:"heuristic_processed_at" yaml:"heuristic_processed_at"`
	NeedsLLM     bool      `json:"needs_llm" yaml:"needs_llm"`
	Contributors []string  `json:"contributors,omitempty" yaml:"contributors,omitempty"`
	Attribution  `yaml:",inline"`
	Flags        Flags `json:"flags" yaml:"flags"`
}

// LLMEntry is one author asserted by the model.
type LLMEntry struct {
	Name       string `json:"name" yaml:"name"`
	Faculty    string `json:"faculty" yaml:"faculty"`
	Department string `json:"department" yaml:"department"`
}

// LLMPayload is the audit record stored for each LLM attempt. Successful
// attempts carry the validated entries; failures carry Error and, for
// validation failures, a truncated Raw output.
type LLMPayload struct {
	InternalAuthors []LLMEntry `json:"internal_authors,omitempty" yaml:"internal_authors,omitempty"`
	RejectedNames   []string   `json:"rejected_names,omitempty" yaml:"rejected_names,omitempty"`
	Backend         string     `json:"backend,omitempty" yaml:"backend,omitempty"`
	Strategy        string     `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Error           string     `json:"error,omitempty" yaml:"error,omitempty"`
	Raw             string     `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// LLMInput is what the LLM stage reads for one record.
type LLMInput struct {
	ResourceID         string
	Contributors       []string
	WoSAffiliations    []string
	ScopusAffiliations []string
	Flags              Flags

	// Prior is the attribution already stored for the record.
	Prior Attribution
}

// LLMOutcome is the outcome of the LLM stage for one record. Attribution
// is set only when Status is processed.
type LLMOutcome struct {
	ResourceID  string      `json:"resource_id" yaml:"resource_id"`
	Status      Status      `json:"llm_status" yaml:"llm_status"`
	ProcessedAt time.Time   `json:"llm_processed_at" yaml:"llm_processed_at"`
	Payload     LLMPayload  `json:"llm_result" yaml:"llm_result"`
	Attribution Attribution `json:"attribution" yaml:"attribution"`
}
