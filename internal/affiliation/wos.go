// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package affiliation

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// WarnFallback is recorded when no bracketed author list was found.
	WarnFallback = "no author blocks found, fallback mode"

	// ErrEmptyInput is the ParseResult error for blank input.
	ErrEmptyInput = "empty input"
)

var (
	blockPattern   = regexp.MustCompile(`(?s)\[([^\]]+)\]([^\[]*)`)
	cleanupPattern = regexp.MustCompile(`^[;\s]+|[;\s]+$`)
)

// Block is one "[authors] institution" unit of a raw affiliation string.
type Block struct {
	AuthorsRaw     string   `json:"authors_raw" yaml:"authors_raw"`
	Authors        []string `json:"authors" yaml:"authors"`
	AffiliationRaw string   `json:"affiliation_raw" yaml:"affiliation_raw"`
	IsInternal     bool     `json:"is_internal" yaml:"is_internal"`
	MatchedKeyword string   `json:"matched_keyword,omitempty" yaml:"matched_keyword,omitempty"`
}

// ParseResult is the parse of one affiliation string. InternalBlocks is a
// subset of Blocks; a result with OK false carries no blocks.
type ParseResult struct {
	Raw            string   `json:"raw" yaml:"raw"`
	Blocks         []Block  `json:"blocks" yaml:"blocks"`
	InternalBlocks []Block  `json:"internal_blocks" yaml:"internal_blocks"`
	OK             bool     `json:"ok" yaml:"ok"`
	Error          string   `json:"error,omitempty" yaml:"error,omitempty"`
	Warnings       []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// HasInternal reports whether any block refers to the institution.
func (r ParseResult) HasInternal() bool {
	return len(r.InternalBlocks) > 0
}

// MultipleInternalBlocks reports ambiguous attribution: the institution
// appears in more than one author group of the same string.
func (r ParseResult) MultipleInternalBlocks() bool {
	return len(r.InternalBlocks) > 1
}

// InternalAuthors returns the authors of internal blocks, first occurrence
// order, without exact duplicates.
func (r ParseResult) InternalAuthors() []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range r.InternalBlocks {
		for _, a := range b.Authors {
			if seen[a] {
				continue
			}
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

// Parser splits WoS-style affiliation strings of the form
// "[Surname, Name; Surname, Name] Institution text[...]...".
type Parser struct {
	detector *Detector
}

// NewParser returns a parser that classifies blocks with detector.
func NewParser(detector *Detector) *Parser {
	if detector == nil {
		detector = NewDetector(nil)
	}
	return &Parser{detector: detector}
}

// Detector returns the keyword detector used by the parser.
func (p *Parser) Detector() *Detector {
	return p.detector
}

// Parse never fails on malformed input: text without any bracket group
// degrades to a single block holding the whole string.
func (p *Parser) Parse(raw string) ParseResult {
	result := ParseResult{Raw: raw, OK: true}
	if strings.TrimSpace(raw) == "" {
		result.OK = false
		result.Error = ErrEmptyInput
		return result
	}

	matches := blockPattern.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		result.Warnings = append(result.Warnings, WarnFallback)
		result.add(p.block("", nil, strings.TrimSpace(raw)))
		return result
	}

	for _, m := range matches {
		authorsRaw := strings.TrimSpace(m[1])
		affRaw := strings.TrimSpace(cleanupPattern.ReplaceAllString(m[2], ""))
		result.add(p.block(authorsRaw, splitAuthors(authorsRaw), affRaw))
	}

	if result.MultipleInternalBlocks() {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("multiple internal blocks found (%d)", len(result.InternalBlocks)))
	}
	return result
}

// ParseAll parses every non-empty value.
func (p *Parser) ParseAll(values []string) []ParseResult {
	var out []ParseResult
	for _, v := range values {
		if v == "" {
			continue
		}
		out = append(out, p.Parse(v))
	}
	return out
}

func (p *Parser) block(authorsRaw string, authors []string, affRaw string) Block {
	internal, kw := p.detector.Detect(affRaw)
	if authors == nil {
		authors = []string{}
	}
	return Block{
		AuthorsRaw:     authorsRaw,
		Authors:        authors,
		AffiliationRaw: affRaw,
		IsInternal:     internal,
		MatchedKeyword: kw,
	}
}

func (r *ParseResult) add(b Block) {
	r.Blocks = append(r.Blocks, b)
	if b.IsInternal {
		r.InternalBlocks = append(r.InternalBlocks, b)
	}
}

func splitAuthors(raw string) []string {
	var out []string
	for _, a := range strings.Split(raw, ";") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
