// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package heuristics is the deterministic stage of the pipeline: it parses
// WoS affiliations, matches the authors of internal blocks against the
// registry and resolves their faculty and department. Records it cannot
// fully resolve are marked for the LLM stage.
package heuristics

import (
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/affiliation-engine/internal/affiliation"
	"github.com/pdiddy/affiliation-engine/internal/faculty"
	"github.com/pdiddy/affiliation-engine/internal/matcher"
	"github.com/pdiddy/affiliation-engine/internal/normalize"
	"github.com/pdiddy/affiliation-engine/internal/registry"
	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// Version is recorded with every result so reruns with changed rules can be
// told apart.
const Version = "3.1.0"

// Engine processes single records. It holds only read-only state and is
// safe for concurrent use.
type Engine struct {
	parser    *affiliation.Parser
	resolver  *faculty.Resolver
	threshold float64

	// now is replaceable in tests.
	now func() time.Time
}

// NewEngine returns an engine. A nil parser or resolver uses the defaults;
// a threshold <= 0 uses matcher.DefaultThreshold.
func NewEngine(parser *affiliation.Parser, resolver *faculty.Resolver, threshold float64) *Engine {
	if parser == nil {
		parser = affiliation.NewParser(nil)
	}
	if resolver == nil {
		resolver = faculty.DefaultResolver()
	}
	if threshold <= 0 {
		threshold = matcher.DefaultThreshold
	}
	return &Engine{parser: parser, resolver: resolver, threshold: threshold, now: time.Now}
}

// Parser returns the affiliation parser used by the engine.
func (e *Engine) Parser() *affiliation.Parser {
	return e.parser
}

// Process resolves one record against a registry snapshot. It never
// panics: unexpected failures become a StatusError result with NeedsLLM set.
func (e *Engine) Process(pub types.Publication, reg []registry.Author) (res types.HeuristicResult) {
	res = types.HeuristicResult{
		ResourceID:   pub.ResourceID,
		Status:       types.StatusError,
		Version:      Version,
		ProcessedAt:  e.now().UTC(),
		Contributors: append([]string(nil), pub.Contributors...),
	}

	defer func() {
		if r := recover(); r != nil {
			res.Status = types.StatusError
			res.NeedsLLM = true
			res.Attribution = types.Attribution{}
			res.Flags = types.Flags{Error: fmt.Sprintf("panic: %v", r)}
		}
	}()

	wos := nonBlank(pub.WoSAffiliations)
	if len(wos) == 0 {
		e.processScopusOnly(pub, &res)
		return res
	}

	var (
		authors, faculties, departments []string
		unmatched, warnings             []string
		seen                            = make(map[string]bool)
	)
	for _, raw := range wos {
		parsed := e.parser.Parse(raw)
		warnings = append(warnings, parsed.Warnings...)
		if !parsed.OK {
			res.NeedsLLM = true
			continue
		}
		if parsed.MultipleInternalBlocks() {
			res.Flags.MultipleInternalBlocks = true
		}

		for _, block := range parsed.InternalBlocks {
			if len(block.Authors) == 0 {
				res.Flags.InternalBlockWithoutAuthors = true
				res.NeedsLLM = true
				continue
			}
			fac, dept := e.resolver.ResolveWithFallback(block.AffiliationRaw)

			for _, name := range block.Authors {
				key := normalize.Text(name)
				if seen[key] {
					continue
				}
				seen[key] = true

				m := matcher.Match(name, reg, e.threshold)
				if !m.Matched {
					unmatched = append(unmatched, name)
					res.NeedsLLM = true
					continue
				}
				authors = append(authors, m.Author.FullName())
				faculties = append(faculties, fac)
				departments = append(departments, dept)
			}
		}
	}

	res.Attribution = types.Attribution{
		Authors:     types.Union(authors),
		Faculties:   types.Union(faculties),
		Departments: types.Union(departments),
	}
	res.Flags.MatchedInternalAuthors = len(res.Authors)
	res.Flags.UnmatchedInternalAuthors = unmatched
	res.Flags.ParseWarnings = warnings
	res.Status = types.StatusProcessed
	return res
}

// processScopusOnly handles records without WoS data. Scopus entries carry
// no author names, so internal entries only yield units and a referral to
// the LLM stage.
func (e *Engine) processScopusOnly(pub types.Publication, res *types.HeuristicResult) {
	res.Status = types.StatusProcessed
	res.Flags.NoWoSData = true

	var faculties, departments []string
	for _, sr := range e.parser.ParseScopusAll(pub.ScopusAffiliations) {
		for _, entry := range sr.InternalEntries {
			fac, dept := e.resolver.Resolve(entry.Raw)
			if fac != "" && dept == "" {
				dept = e.scopusDepartment(entry)
			}
			if dept == "" {
				fac, dept = e.resolver.ResolveWithFallback(entry.Raw)
			}
			faculties = append(faculties, fac)
			departments = append(departments, dept)
			res.Flags.ScopusOnly = true
		}
	}
	if !res.Flags.ScopusOnly {
		return
	}
	res.NeedsLLM = true
	res.Faculties = types.Union(faculties)
	res.Departments = types.Union(departments)
}

// scopusDepartment takes the leading part of a Scopus entry as its unit
// unless that part is the institution itself, a faculty or another
// internal marker such as the city.
func (e *Engine) scopusDepartment(entry affiliation.ScopusEntry) string {
	if len(entry.Parts) < 2 {
		return ""
	}
	d := entry.Department()
	if d == entry.Institution() || faculty.IsFacultyMention(d) {
		return ""
	}
	if internal, _ := e.parser.Detector().Detect(d); internal {
		return ""
	}
	if canon, ok := faculty.CanonicalDepartment(d); ok {
		return canon
	}
	return d
}

func nonBlank(values []string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
