// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package affiliation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScopus(t *testing.T) {
	p := NewParser(nil)

	res := p.ParseScopus("Department of Polymer Engineering, Faculty of Technology, Tomas Bata University in Zlín, Vavrečkova 275, Zlín, 760 01, Czech Republic; Institute of Chemistry, Slovak Academy of Sciences, Bratislava, Slovakia;")

	require.Len(t, res.Entries, 2)
	require.Len(t, res.InternalEntries, 1)

	utb := res.InternalEntries[0]
	assert.Equal(t, "Department of Polymer Engineering", utb.Department())
	assert.Equal(t, "Tomas Bata University in Zlín", utb.Institution())

	other := res.Entries[1]
	assert.False(t, other.IsInternal)
	assert.Equal(t, "Slovak Academy of Sciences", other.Institution())
}

func TestScopusEntryAccessorsOnShortEntries(t *testing.T) {
	e := ScopusEntry{Raw: "Zlin"}
	assert.Equal(t, "", e.Department())
	assert.Equal(t, "Zlin", e.Institution())

	e = ScopusEntry{Raw: "A, B", Parts: []string{"A", "B"}}
	assert.Equal(t, "B", e.Institution())
}

func TestParseScopusAll(t *testing.T) {
	p := NewParser(nil)
	res := p.ParseScopusAll([]string{"", "  ", "Tomas Bata University in Zlín, Zlín"})
	require.Len(t, res, 1)
	assert.Len(t, res[0].InternalEntries, 1)
}
