package ingest

import (
	"context"
	"database/sql"
	"strconv"

	"gpn/internal/nodeerr"
	"gpn/internal/nodefile"
	"gpn/internal/repository"
)

// ExportCells implements the export side of the ingestion API: it
// yields a header row (hierarchy names by rank, "cell_id" first)
// followed by one data row per cell, ordered by cell id, through sink.
// The reserved undefined cell (id 0) is included like any other row.
func ExportCells(ctx context.Context, node *nodefile.Node, sink RowSink) error {
	tx, err := node.DB().BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nodeerr.Wrap(nodeerr.Transient, err, "begin export transaction")
	}
	defer tx.Rollback()

	hierarchyRepo := repository.NewHierarchyRepository(tx)
	hierarchies, err := hierarchyRepo.List(ctx)
	if err != nil {
		return err
	}

	header := make([]string, 0, len(hierarchies)+1)
	header = append(header, "cell_id")
	for _, h := range hierarchies {
		header = append(header, h.Name)
	}
	if err := sink.WriteHeader(header); err != nil {
		return nodeerr.Wrap(nodeerr.Transient, err, "write export header")
	}

	rows, err := tx.QueryContext(ctx, "SELECT index_id FROM node_index ORDER BY index_id")
	if err != nil {
		return nodeerr.Wrap(nodeerr.Transient, err, "list cell ids for export")
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nodeerr.Wrap(nodeerr.Transient, err, "scan cell id for export")
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nodeerr.Wrap(nodeerr.Transient, err, "iterate cell ids for export")
	}

	cellRepo := repository.NewCellRepository(tx)
	for _, id := range ids {
		labels, err := cellRepo.Select(ctx, id)
		if err != nil {
			return err
		}
		row := make([]string, 0, len(hierarchies)+1)
		row = append(row, strconv.FormatInt(id, 10))
		for _, h := range hierarchies {
			row = append(row, labels[h.Name])
		}
		if err := sink.WriteRow(row); err != nil {
			return nodeerr.Wrap(nodeerr.Transient, err, "write export row")
		}
	}
	return nil
}

// RowSink is the opaque row sink that out-of-scope I/O glue implements
// over CSV, the CLI, or any other destination.
type RowSink interface {
	WriteHeader(fields []string) error
	WriteRow(fields []string) error
}

