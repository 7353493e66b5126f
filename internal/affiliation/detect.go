// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package affiliation parses raw bibliographic affiliation strings into
// author/institution blocks and flags the blocks that mention the target
// institution.
package affiliation

import (
	"strings"

	"github.com/pdiddy/affiliation-engine/internal/normalize"
)

// DefaultKeywords are the institution markers used when no keyword list is
// configured.
var DefaultKeywords = []string{
	"tomas bata univ",
	"tomas bata university",
	"univerzita tomase bati",
	"utb zlin",
	"zlin",
	"t. bata univ",
	"utb",
	"tbu",
}

type keyword struct {
	raw  string
	norm string
}

// Detector decides whether free institution text refers to the target
// institution by normalized substring containment of a keyword list.
type Detector struct {
	keywords []keyword
}

// NewDetector prepares a detector for keywords. Keywords that normalize to
// the empty string are ignored; an empty list falls back to DefaultKeywords.
func NewDetector(keywords []string) *Detector {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	d := &Detector{}
	for _, kw := range keywords {
		n := normalize.Text(kw)
		if n == "" {
			continue
		}
		d.keywords = append(d.keywords, keyword{raw: kw, norm: n})
	}
	return d
}

// Detect reports whether text mentions the institution and returns the first
// configured keyword that matched.
func (d *Detector) Detect(text string) (bool, string) {
	n := normalize.Text(text)
	if n == "" {
		return false, ""
	}
	for _, kw := range d.keywords {
		if strings.Contains(n, kw.norm) {
			return true, kw.raw
		}
	}
	return false, ""
}
