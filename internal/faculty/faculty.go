// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package faculty maps free-text institution strings to a canonical
// (faculty, department) pair. Department keywords are tried first with the
// longest match winning; a faculty-only rule set is the fallback.
package faculty

import (
	"regexp"
	"strings"

	"github.com/pdiddy/affiliation-engine/internal/normalize"
)

var (
	departmentPattern = regexp.MustCompile(`(?i)\b(?:Dept|Department|Inst|Institute|Ctr|Center|Centre|Lab|Laboratory|Group|Division|School|Unit|Fac|Faculty)\b[^,;]*`)
	facultyMention    = regexp.MustCompile(`(?i)^fac(?:ulty)?\b`)
)

// Name returns the display name for a faculty code, or "" when unknown.
func Name(code string) string {
	for _, f := range Faculties {
		if f.Code == code {
			return f.Name
		}
	}
	return ""
}

// Names returns the faculty display names in table order.
func Names() []string {
	names := make([]string, len(Faculties))
	for i, f := range Faculties {
		names[i] = f.Name
	}
	return names
}

// IsName reports whether s is exactly one of the faculty display names.
func IsName(s string) bool {
	for _, f := range Faculties {
		if f.Name == s {
			return true
		}
	}
	return false
}

// IsFacultyMention reports whether s starts with "Fac" or "Faculty", as in
// "Fac Technol" or "Faculty of Technology".
func IsFacultyMention(s string) bool {
	return facultyMention.MatchString(strings.TrimSpace(s))
}

// CanonicalDepartment returns the table name of the department whose
// normalized name equals the normalized input.
func CanonicalDepartment(s string) (string, bool) {
	norm := normalize.Text(s)
	if norm == "" {
		return "", false
	}
	for _, d := range Departments {
		if normalize.Text(d.Name) == norm {
			return d.Name, true
		}
	}
	return "", false
}

type keywordEntry struct {
	keyword    string
	department string
	faculty    string
}

// Resolver holds the compiled keyword tables. It is read-only after
// construction and safe for concurrent use.
type Resolver struct {
	keywords []keywordEntry
	rules    []Rule
}

// NewResolver compiles departments and rules into a resolver. Each
// department contributes its normalized name, the name without its first
// word when it has more than two words, and its aliases.
func NewResolver(departments []Department, rules []Rule) *Resolver {
	r := &Resolver{}
	seen := make(map[string]bool)
	add := func(kw string, d Department) {
		kw = normalize.Text(kw)
		if kw == "" || seen[kw] {
			return
		}
		seen[kw] = true
		r.keywords = append(r.keywords, keywordEntry{keyword: kw, department: d.Name, faculty: d.Faculty})
	}

	for _, d := range departments {
		full := normalize.Text(d.Name)
		add(full, d)
		if words := strings.Fields(full); len(words) > 2 {
			add(strings.Join(words[1:], " "), d)
		}
		for _, alias := range d.Aliases {
			add(alias, d)
		}
	}

	for _, rule := range rules {
		compiled := Rule{Faculty: rule.Faculty}
		for _, kw := range rule.Keywords {
			if n := normalize.Text(kw); n != "" {
				compiled.Keywords = append(compiled.Keywords, n)
			}
		}
		r.rules = append(r.rules, compiled)
	}
	return r
}

// DefaultResolver returns a resolver over the built-in tables.
func DefaultResolver() *Resolver {
	return NewResolver(Departments, FacultyRules)
}

// Resolve returns the faculty display name and department for an
// institution string. Either may be empty.
func (r *Resolver) Resolve(text string) (facultyName, department string) {
	norm := normalize.Text(text)
	if norm == "" {
		return "", ""
	}

	var best *keywordEntry
	for i := range r.keywords {
		e := &r.keywords[i]
		if !strings.Contains(norm, e.keyword) {
			continue
		}
		if best == nil || len(e.keyword) > len(best.keyword) {
			best = e
		}
	}
	if best != nil {
		return facultyNameOrCode(best.faculty), best.department
	}

	for _, rule := range r.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(norm, kw) {
				return facultyNameOrCode(rule.Faculty), ""
			}
		}
	}
	return "", ""
}

// ResolveWithFallback resolves text and, when a faculty was found but no
// department, takes the first extracted candidate that is not itself a
// faculty mention.
func (r *Resolver) ResolveWithFallback(text string) (facultyName, department string) {
	facultyName, department = r.Resolve(text)
	if facultyName == "" || department != "" {
		return facultyName, department
	}
	for _, c := range ExtractDepartmentCandidates(text) {
		if !IsFacultyMention(c) {
			return facultyName, c
		}
	}
	return facultyName, ""
}

// ExtractDepartmentCandidates returns generic unit mentions such as
// "Dept Food Sci" or "Institute of Physics", each running up to the next
// comma or semicolon.
func ExtractDepartmentCandidates(text string) []string {
	var out []string
	for _, m := range departmentPattern.FindAllString(text, -1) {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

func facultyNameOrCode(code string) string {
	if name := Name(code); name != "" {
		return name
	}
	return code
}
