// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package affiliation

import (
	"regexp"
	"strings"
)

// Institution markers in priority order: a university or academy part wins
// over an institute or school part of the same entry.
var institutionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(univ|acad|college)`),
	regexp.MustCompile(`(?i)\b(inst|school)`),
}

// ScopusEntry is one ";"-separated institutional entry of a Scopus
// affiliation. Scopus affiliations carry no author names.
type ScopusEntry struct {
	Raw            string   `json:"raw" yaml:"raw"`
	Parts          []string `json:"parts" yaml:"parts"`
	IsInternal     bool     `json:"is_internal" yaml:"is_internal"`
	MatchedKeyword string   `json:"matched_keyword,omitempty" yaml:"matched_keyword,omitempty"`
}

// Department is the first comma part, usually the department or institute.
func (e ScopusEntry) Department() string {
	if len(e.Parts) == 0 {
		return ""
	}
	return e.Parts[0]
}

// Institution is the first part naming a university-like body, else the last part.
func (e ScopusEntry) Institution() string {
	if len(e.Parts) == 0 {
		return e.Raw
	}
	for _, re := range institutionPatterns {
		for _, p := range e.Parts {
			if re.MatchString(p) {
				return p
			}
		}
	}
	return e.Parts[len(e.Parts)-1]
}

// ScopusResult is the parse of one Scopus affiliation value.
type ScopusResult struct {
	Raw             string        `json:"raw" yaml:"raw"`
	Entries         []ScopusEntry `json:"entries" yaml:"entries"`
	InternalEntries []ScopusEntry `json:"internal_entries" yaml:"internal_entries"`
}

// ParseScopus splits a Scopus affiliation value into entries and flags the
// internal ones with the parser's detector.
func (p *Parser) ParseScopus(raw string) ScopusResult {
	result := ScopusResult{Raw: raw}
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		var parts []string
		for _, part := range strings.Split(entry, ",") {
			if part = strings.TrimSpace(part); part != "" {
				parts = append(parts, part)
			}
		}
		internal, kw := p.detector.Detect(entry)
		e := ScopusEntry{Raw: entry, Parts: parts, IsInternal: internal, MatchedKeyword: kw}
		result.Entries = append(result.Entries, e)
		if internal {
			result.InternalEntries = append(result.InternalEntries, e)
		}
	}
	return result
}

// ParseScopusAll parses every non-empty Scopus value.
func (p *Parser) ParseScopusAll(values []string) []ScopusResult {
	var out []ScopusResult
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		out = append(out, p.ParseScopus(v))
	}
	return out
}
