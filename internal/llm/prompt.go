// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/affiliation-engine/internal/backend"
	"github.com/pdiddy/affiliation-engine/internal/faculty"
	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// systemPromptTmpl states the output contract. The faculty list is filled
// from the faculty table.
var systemPromptTmpl = template.Must(template.New("system").Parse(`You analyse publication affiliations and identify the authors who belong to the university.

Rules:
1. Output must be a single valid JSON object and nothing else.
2. The object may contain only the key "internal_authors".
3. "internal_authors" is an array of objects with the keys "name", "faculty" and "department".
4. "name" must be copied exactly, with diacritics, from the list of allowed internal authors given in the input.
5. Never output a name that is not in that list.
6. "faculty" must be one of:
{{- range .Faculties}}
   - {{.}}
{{- end}}
   or an empty string.
7. "department" is the department or institute as written in the affiliation, or an empty string.
8. If you cannot determine the faculty or department, use an empty string.
9. No comments, explanations or markdown.

Example of the only allowed format:
{"internal_authors":[{"name":"Surname, Firstname","faculty":"Faculty of Technology","department":"Department of Polymer Engineering"}]}
`))

// SystemPrompt renders the system prompt.
func SystemPrompt() string {
	var buf bytes.Buffer
	if err := systemPromptTmpl.Execute(&buf, struct{ Faculties []string }{faculty.Names()}); err != nil {
		panic(fmt.Sprintf("rendering system prompt: %v", err))
	}
	return buf.String()
}

// BuildUserMessage assembles the per-record prompt: the affiliations of both
// sources, the heuristic context and the candidate whitelist.
func BuildUserMessage(in types.LLMInput, allowed []string) (string, error) {
	parts := []string{"resource_id: " + in.ResourceID}

	if wos := joinNonBlank(in.WoSAffiliations, "\n---\n"); wos != "" {
		parts = append(parts, "WoS affiliation:\n"+wos)
	} else {
		parts = append(parts, "WoS affiliation: (not available)")
	}
	if scopus := joinNonBlank(in.ScopusAffiliations, "; "); scopus != "" {
		parts = append(parts, "Scopus affiliation:\n"+scopus)
	}

	ctx, err := json.Marshal(in.Flags.PromptContext())
	if err != nil {
		return "", fmt.Errorf("marshaling heuristic context: %w", err)
	}
	parts = append(parts, "Heuristic context:\n"+string(ctx))

	if allowed == nil {
		allowed = []string{}
	}
	names, err := json.Marshal(allowed)
	if err != nil {
		return "", fmt.Errorf("marshaling allowed names: %w", err)
	}
	parts = append(parts, "Allowed internal author names (use only names from this list):\n"+string(names))

	return strings.Join(parts, "\n\n"), nil
}

// OutputSchema is the JSON Schema of the answer. Names are restricted to
// the whitelist when there is one.
func OutputSchema(allowed []string) backend.Schema {
	name := map[string]any{"type": "string"}
	if len(allowed) > 0 {
		name["enum"] = allowed
	}
	faculties := append(faculty.Names(), "")

	return backend.Schema{
		Name:        "internal_authors",
		Description: "Internal university authors found in the affiliation.",
		JSON: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"required":             []string{"internal_authors"},
			"properties": map[string]any{
				"internal_authors": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type":                 "object",
						"additionalProperties": false,
						"required":             []string{"name", "faculty", "department"},
						"properties": map[string]any{
							"name":       name,
							"faculty":    map[string]any{"type": "string", "enum": faculties},
							"department": map[string]any{"type": "string"},
						},
					},
				},
			},
		},
	}
}

func joinNonBlank(values []string, sep string) string {
	var kept []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			kept = append(kept, v)
		}
	}
	return strings.Join(kept, sep)
}
