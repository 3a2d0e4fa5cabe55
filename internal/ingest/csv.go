package ingest

import (
	"context"
	"encoding/csv"
	"io"

	"gpn/internal/nodeerr"
	"gpn/internal/nodefile"
)

// InsertCellsCSV reads a header row and data rows from r and runs them
// through InsertCells. It is a thin convenience wrapper over the
// [][]string row-iterator contract; callers that already have rows in
// memory should call InsertCells directly.
func InsertCellsCSV(ctx context.Context, node *nodefile.Node, r io.Reader) error {
	reader := csv.NewReader(r)
	rows, err := reader.ReadAll()
	if err != nil {
		return nodeerr.Wrap(nodeerr.Validation, err, "read CSV rows")
	}
	return InsertCells(ctx, node, rows)
}

// csvSink adapts a csv.Writer to the RowSink interface.
type csvSink struct{ w *csv.Writer }

func (s csvSink) WriteHeader(fields []string) error { return s.w.Write(fields) }
func (s csvSink) WriteRow(fields []string) error    { return s.w.Write(fields) }

// ExportCellsCSV writes every cell to w in CSV form via ExportCells.
func ExportCellsCSV(ctx context.Context, node *nodefile.Node, w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := ExportCells(ctx, node, csvSink{w: writer}); err != nil {
		return err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nodeerr.Wrap(nodeerr.Transient, err, "flush CSV export")
	}
	return nil
}
