// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// Record CSV columns.
const (
	ColumnResourceID = "resource_id"
	ColumnAuthors    = "dc.contributor.author"
	ColumnWoS        = "utb.wos.affiliation"
	ColumnScopus     = "utb.scopus.affiliation"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadPublicationsCSV parses a ';'-delimited repository export with a
// header row. Multi-valued cells separate values with "||". Columns are
// located by header name; only resource_id is required.
func ReadPublicationsCSV(r io.Reader) ([]types.Publication, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	if _, ok := cols[ColumnResourceID]; !ok {
		return nil, fmt.Errorf("missing %s column", ColumnResourceID)
	}

	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var pubs []types.Publication
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		id := strings.TrimSpace(cell(row, ColumnResourceID))
		if id == "" {
			continue
		}
		pubs = append(pubs, types.Publication{
			ResourceID:         id,
			Contributors:       splitMulti(cell(row, ColumnAuthors)),
			WoSAffiliations:    splitMulti(cell(row, ColumnWoS)),
			ScopusAffiliations: splitMulti(cell(row, ColumnScopus)),
		})
	}
	return pubs, nil
}

// ReadPublicationsCSVFile opens path and parses it with ReadPublicationsCSV.
func ReadPublicationsCSVFile(path string) ([]types.Publication, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening records file: %w", err)
	}
	defer f.Close()
	return ReadPublicationsCSV(f)
}

func splitMulti(s string) []string {
	var out []string
	for _, v := range strings.Split(s, multiValueSep) {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
