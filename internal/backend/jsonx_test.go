// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare", `{"a":1}`, `{"a":1}`, true},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"fence without language", "```\n{\"a\":[1,2]}\n```", `{"a":[1,2]}`, true},
		{"prose around", `Here you go: {"a":{"b":2}} hope it helps`, `{"a":{"b":2}}`, true},
		{"braces in strings", `{"name":"x}{y","n":"\"}"}`, `{"name":"x}{y","n":"\"}"}`, true},
		{"first object invalid", `{not json} then {"a":1}`, `{"a":1}`, true},
		{"unterminated", `{"a":1`, "", false},
		{"no object", `["a"]`, "", false},
		{"empty", "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractJSON(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
