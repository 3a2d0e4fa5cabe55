package report

import (
	"fmt"
	"strings"
)

type humanFormatter struct{}

func (humanFormatter) FormatIngestSummary(s IngestSummary) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "inserted %d cell(s)\n", s.CellsInserted)
	if s.HasContentHash {
		fmt.Fprintf(&b, "content hash: %s\n", s.ContentHash)
	} else {
		b.WriteString("content hash: (absent)\n")
	}
	return b.String(), nil
}

func (humanFormatter) FormatCellSelection(hierarchyOrder []string, labels map[string]string) (string, error) {
	var b strings.Builder
	for _, name := range hierarchyOrder {
		fmt.Fprintf(&b, "%s: %s\n", name, labels[name])
	}
	return b.String(), nil
}
