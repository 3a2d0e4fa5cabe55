package schemamgr

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"gpn/internal/nodeerr"
	"gpn/internal/nodefile"
)

// Manager mutates the label-column set of a node file.
type Manager struct {
	node *nodefile.Node
}

// New returns a Manager bound to an open node.
func New(node *nodefile.Node) *Manager {
	return &Manager{node: node}
}

// columnDefault returns the table-specific column definition fragment
// for a new label column: cell-index non-empty text
// defaulting to "-", location text defaulting to empty, structure
// integer in {0,1} defaulting to 0.
func columnDefault(table, quoted string) string {
	switch table {
	case "node_index":
		return fmt.Sprintf(`%s TEXT NOT NULL DEFAULT '-' CHECK (length(%s) > 0)`, quoted, quoted)
	case "location":
		return fmt.Sprintf(`%s TEXT NOT NULL DEFAULT ''`, quoted)
	case "structure":
		return fmt.Sprintf(`%s INTEGER NOT NULL DEFAULT 0 CHECK (%s IN (0, 1))`, quoted, quoted)
	default:
		return quoted + " TEXT"
	}
}

// columnNames returns the ordered column names of table, excluding its
// surrogate id column (and, for structure, the _granularity column).
func (m *Manager) columnNames(ctx context.Context, tx *sql.Tx, table string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "read table_info")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, nodeerr.Wrap(nodeerr.Transient, err, "scan table_info")
		}
		if pk == 1 || name == "_granularity" || name == "partial" {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// labelColumns returns the current label columns, which must be
// identical across the three label tables by invariant P7; this reads
// node_index as the canonical source.
func (m *Manager) labelColumns(ctx context.Context, tx *sql.Tx) ([]string, error) {
	return m.columnNames(ctx, tx, "node_index")
}

// AddColumns adds new label columns to all three label-bearing
// tables, in order, skipping any name that already exists (idempotent
// add) and failing on duplicate new names.
func (m *Manager) AddColumns(ctx context.Context, tx *sql.Tx, names []string) error {
	seen := make(map[string]bool, len(names))
	var dupes []string
	for _, n := range names {
		if seen[n] {
			dupes = append(dupes, n)
		}
		seen[n] = true
	}
	if len(dupes) > 0 {
		return nodeerr.Newf(nodeerr.Validation, "duplicate new column name(s): %s", strings.Join(dupes, ", "))
	}

	existing, err := m.labelColumns(ctx, tx)
	if err != nil {
		return err
	}
	existingSet := make(map[string]bool, len(existing))
	for _, e := range existing {
		existingSet[e] = true
	}

	var toAdd []string
	for _, n := range names {
		quoted, err := nodefile.QuoteIdentifier(n)
		if err != nil {
			return err
		}
		if reservedNames[strings.Trim(quoted, `"`)] {
			return nodeerr.Newf(nodeerr.Validation, "label name not allowed: %s", n)
		}
		if existingSet[n] {
			continue // idempotent add: silently skip
		}
		toAdd = append(toAdd, n)
	}
	if len(toAdd) == 0 {
		return nil
	}

	sp, err := m.node.BeginSavepoint(ctx, tx)
	if err != nil {
		return err
	}

	if err := m.dropCompositeIndexes(ctx, tx); err != nil {
		sp.Rollback(ctx)
		return err
	}

	for _, name := range toAdd {
		quoted, _ := nodefile.QuoteIdentifier(name)
		for _, table := range labelTables {
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, columnDefault(table, quoted))
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				sp.Rollback(ctx)
				return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "add column "+name)
			}
		}
	}

	allColumns := append(append([]string{}, existing...), toAdd...)
	if err := m.recreateCompositeIndexes(ctx, tx, allColumns); err != nil {
		sp.Rollback(ctx)
		return err
	}

	return sp.Release(ctx)
}

func (m *Manager) dropCompositeIndexes(ctx context.Context, tx *sql.Tx) error {
	for _, idx := range []string{"unique_node_index_labels", "unique_structure_labels"} {
		if _, err := tx.ExecContext(ctx, "DROP INDEX IF EXISTS "+idx); err != nil {
			return nodeerr.Wrap(nodeerr.Transient, err, "drop index "+idx)
		}
	}
	return nil
}

func (m *Manager) recreateCompositeIndexes(ctx context.Context, tx *sql.Tx, columns []string) error {
	if len(columns) == 0 {
		return nil
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		q, err := nodefile.QuoteIdentifier(c)
		if err != nil {
			return err
		}
		quoted[i] = q
	}
	cols := strings.Join(quoted, ", ")
	stmts := []string{
		fmt.Sprintf("CREATE UNIQUE INDEX unique_node_index_labels ON node_index(%s)", cols),
		fmt.Sprintf("CREATE UNIQUE INDEX unique_structure_labels ON structure(%s)", cols),
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "recreate composite index")
		}
	}
	return nil
}

// RenameColumns renames label columns per the old->new mapping across
// all three label tables. It fails before touching anything if two
// old names map to the same new name.
func (m *Manager) RenameColumns(ctx context.Context, tx *sql.Tx, mapping map[string]string) error {
	if err := checkDuplicateTargets(mapping); err != nil {
		return err
	}

	native, err := m.node.SupportsNativeColumnRenameTx(ctx, tx)
	if err != nil {
		return err
	}

	sp, err := m.node.BeginSavepoint(ctx, tx)
	if err != nil {
		return err
	}
	if !native {
		// DisableForeignKeysTx/EnableForeignKeysTx bracket the rebuild; the
		// bracket must close on every exit path, success or failure
		// ("finally"-style).
		defer m.node.EnableForeignKeysTx(ctx, tx)
	}

	if native {
		if err := m.renameNative(ctx, tx, mapping); err != nil {
			sp.Rollback(ctx)
			return err
		}
	} else {
		if err := m.rebuildTables(ctx, tx, mapping, nil); err != nil {
			sp.Rollback(ctx)
			return err
		}
	}

	if err := m.node.CheckForeignKeysTx(ctx, tx); err != nil {
		sp.Rollback(ctx)
		return err
	}
	return sp.Release(ctx)
}

func checkDuplicateTargets(mapping map[string]string) error {
	seen := make(map[string]bool, len(mapping))
	var dupes []string
	for _, to := range mapping {
		if seen[to] {
			dupes = append(dupes, to)
		}
		seen[to] = true
	}
	if len(dupes) > 0 {
		return nodeerr.Newf(nodeerr.Conflict, "duplicate target column name(s): %s", strings.Join(dupes, ", "))
	}
	return nil
}

func (m *Manager) renameNative(ctx context.Context, tx *sql.Tx, mapping map[string]string) error {
	for from, to := range mapping {
		qFrom, err := nodefile.QuoteIdentifier(from)
		if err != nil {
			return err
		}
		qTo, err := nodefile.QuoteIdentifier(to)
		if err != nil {
			return err
		}
		for _, table := range labelTables {
			stmt := fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", table, qFrom, qTo)
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "rename column "+from)
			}
		}
	}
	return nil
}

// DeleteColumns drops label columns, using native drop-column where
// available and the rebuild protocol otherwise. Deleting all label
// columns is forbidden: weights, quantities, and edges rely on at
// least one level of labelling. This is the operation the original
// left unimplemented (NotImplementedError); it is completed here.
func (m *Manager) DeleteColumns(ctx context.Context, tx *sql.Tx, names []string) error {
	existing, err := m.labelColumns(ctx, tx)
	if err != nil {
		return err
	}
	remaining := subtract(existing, names)
	if len(remaining) == 0 {
		return nodeerr.New(nodeerr.SchemaState, "cannot delete all label columns: at least one level is required")
	}

	native, err := m.node.SupportsNativeColumnDropTx(ctx, tx)
	if err != nil {
		return err
	}

	sp, err := m.node.BeginSavepoint(ctx, tx)
	if err != nil {
		return err
	}
	if !native {
		defer m.node.EnableForeignKeysTx(ctx, tx)
	}

	if native {
		if err := m.dropNative(ctx, tx, names); err != nil {
			sp.Rollback(ctx)
			return err
		}
	} else {
		if err := m.rebuildTables(ctx, tx, nil, names); err != nil {
			sp.Rollback(ctx)
			return err
		}
	}
	if err := m.node.CheckForeignKeysTx(ctx, tx); err != nil {
		sp.Rollback(ctx)
		return err
	}
	return sp.Release(ctx)
}

func (m *Manager) dropNative(ctx context.Context, tx *sql.Tx, names []string) error {
	if err := m.dropCompositeIndexes(ctx, tx); err != nil {
		return err
	}
	for _, name := range names {
		quoted, err := nodefile.QuoteIdentifier(name)
		if err != nil {
			return err
		}
		for _, table := range labelTables {
			stmt := fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", table, quoted)
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "drop column "+name)
			}
		}
	}
	remaining, err := m.labelColumns(ctx, tx)
	if err != nil {
		return err
	}
	return m.recreateCompositeIndexes(ctx, tx, remaining)
}

func subtract(all, remove []string) []string {
	toRemove := make(map[string]bool, len(remove))
	for _, r := range remove {
		toRemove[r] = true
	}
	var out []string
	for _, a := range all {
		if !toRemove[a] {
			out = append(out, a)
		}
	}
	return out
}

// rebuildTables performs the full table-rebuild protocol: create
// new_<table> with the renamed/retained columns, copy rows over by
// positional projection, drop the original, rename the replacement
// back. Exactly one of rename/drop is active per call; the other is
// nil/empty.
func (m *Manager) rebuildTables(ctx context.Context, tx *sql.Tx, rename map[string]string, drop []string) error {
	if err := m.node.DisableForeignKeysTx(ctx, tx); err != nil {
		return err
	}

	existing, err := m.labelColumns(ctx, tx)
	if err != nil {
		return err
	}

	dropSet := make(map[string]bool, len(drop))
	for _, d := range drop {
		dropSet[d] = true
	}

	var oldCols, newCols []string
	for _, c := range existing {
		if dropSet[c] {
			continue
		}
		oldCols = append(oldCols, c)
		if renamed, ok := rename[c]; ok {
			newCols = append(newCols, renamed)
		} else {
			newCols = append(newCols, c)
		}
	}

	for _, table := range labelTables {
		if err := m.rebuildOneTable(ctx, tx, table, oldCols, newCols); err != nil {
			return err
		}
		if table == "node_index" {
			// node_index's C9 reserved-cell triggers are dropped along
			// with the table by SQLite and must be reinstalled.
			if _, err := tx.ExecContext(ctx, nodefile.NodeIndexTriggers); err != nil {
				return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "reinstall node_index triggers")
			}
		}
	}

	return m.recreateCompositeIndexes(ctx, tx, newCols)
}

func (m *Manager) rebuildOneTable(ctx context.Context, tx *sql.Tx, table string, oldCols, newCols []string) error {
	idCol, extra := idColumnFor(table)

	oldQuoted, err := quoteAll(oldCols)
	if err != nil {
		return err
	}
	newQuoted, err := quoteAll(newCols)
	if err != nil {
		return err
	}

	defs := make([]string, len(newQuoted))
	for i, q := range newQuoted {
		defs[i] = columnDefault(table, q)
	}

	colDefList := strings.Join(append([]string{idCol}, defs...), ", ")
	if extra != "" {
		colDefList = idCol + ", " + extra + ", " + strings.Join(defs, ", ")
	}

	newTable := "new_" + table
	plan := &Plan{}
	plan.AddWithRollback(
		fmt.Sprintf("CREATE TABLE %s(%s)", newTable, colDefList),
		fmt.Sprintf("DROP TABLE IF EXISTS %s", newTable),
	)

	selectCols := strings.Join(oldQuoted, ", ")
	insertCols := strings.Join(newQuoted, ", ")
	idName := strings.SplitN(strings.TrimSpace(idCol), " ", 2)[0]
	if extra != "" {
		extraName := strings.SplitN(strings.TrimSpace(extra), " ", 2)[0]
		plan.Add(fmt.Sprintf(
			"INSERT INTO %s (%s, %s, %s) SELECT %s, %s, %s FROM %s",
			newTable, idName, extraName, insertCols, idName, extraName, selectCols, table))
	} else {
		plan.Add(fmt.Sprintf(
			"INSERT INTO %s (%s, %s) SELECT %s, %s FROM %s",
			newTable, idName, insertCols, idName, selectCols, table))
	}

	plan.Note(fmt.Sprintf("rebuilding %s: %d -> %d label columns", table, len(oldCols), len(newCols)))
	plan.Add(fmt.Sprintf("DROP TABLE %s", table))
	plan.Add(fmt.Sprintf("ALTER TABLE %s RENAME TO %s", newTable, table))

	for _, s := range plan.Statements() {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "rebuild table "+table)
		}
	}
	return nil
}

// idColumnFor returns a table's surrogate id column definition and any
// second fixed column that must survive a rebuild alongside the id and
// the label columns (node_index's "partial" flag, structure's
// "_granularity" scalar). location has none.
func idColumnFor(table string) (idCol, extra string) {
	switch table {
	case "node_index":
		return "index_id INTEGER PRIMARY KEY AUTOINCREMENT", "partial INTEGER NOT NULL CHECK (partial IN (0, 1)) DEFAULT 0"
	case "location":
		return "_location_id INTEGER PRIMARY KEY", ""
	case "structure":
		return "_structure_id INTEGER PRIMARY KEY", "_granularity REAL"
	}
	return "", ""
}

func quoteAll(names []string) ([]string, error) {
	out := make([]string, len(names))
	for i, n := range names {
		q, err := nodefile.QuoteIdentifier(n)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}
