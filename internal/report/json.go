package report

import (
	"bytes"
	"encoding/json"
)

type jsonFormatter struct{}

type ingestSummaryJSON struct {
	CellsInserted int     `json:"cells_inserted"`
	ContentHash   *string `json:"content_hash"`
}

func (jsonFormatter) FormatIngestSummary(s IngestSummary) (string, error) {
	out := ingestSummaryJSON{CellsInserted: s.CellsInserted}
	if s.HasContentHash {
		out.ContentHash = &s.ContentHash
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (jsonFormatter) FormatCellSelection(hierarchyOrder []string, labels map[string]string) (string, error) {
	ordered := []byte("{")
	for i, name := range hierarchyOrder {
		if i > 0 {
			ordered = append(ordered, ',')
		}
		kb, err := json.Marshal(name)
		if err != nil {
			return "", err
		}
		vb, err := json.Marshal(labels[name])
		if err != nil {
			return "", err
		}
		ordered = append(append(append(ordered, kb...), ':'), vb...)
	}
	ordered = append(ordered, '}')
	var b bytes.Buffer
	if err := json.Indent(&b, ordered, "", "  "); err != nil {
		return "", err
	}
	return b.String(), nil
}
