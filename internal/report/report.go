// Package report provides human and JSON renderers for ingestion
// summaries and select_cell results, following the same dual-formatter
// split as internal/output (human.go/json.go behind one Formatter
// interface chosen by NewFormatter).
package report

import (
	"fmt"
	"strings"
)

// Format names an output rendering.
type Format string

const (
	FormatHuman Format = "human"
	FormatJSON  Format = "json"
)

// IngestSummary describes the outcome of one bulk cell-ingestion call,
// for CLI reporting.
type IngestSummary struct {
	CellsInserted  int
	ContentHash    string
	HasContentHash bool
}

// Formatter renders ingestion summaries and select_cell results.
type Formatter interface {
	FormatIngestSummary(IngestSummary) (string, error)
	FormatCellSelection(hierarchyOrder []string, labels map[string]string) (string, error)
}

// NewFormatter returns the Formatter for name, defaulting to human
// when name is empty.
func NewFormatter(name string) (Formatter, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatHuman:
		return humanFormatter{}, nil
	case FormatJSON:
		return jsonFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported report format: %s; use 'human' or 'json'", name)
	}
}
