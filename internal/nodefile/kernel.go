// Package nodefile is the Storage Kernel: it owns the backing SQLite
// file for one node, creates and validates its schema, and hands out
// sessions with transaction/savepoint nesting and parameterised
// statement execution.
package nodefile

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"gpn/internal/model"
	"gpn/internal/nodeerr"
)

// Mode is the access mode a node file is opened under.
type Mode int

const (
	ReadWriteCreate Mode = iota
	ReadWrite
	ReadOnly
	InMemory
	TemporaryFile
)

// requiredTables is the set of tables that must exist for a file to
// be recognised as a node ( validation step (a)).
var requiredTables = []string{
	"edge", "relation", "node_index", "location", "structure",
	"hierarchy", "label", "cell_label", "attribute", "quantity",
	"weighting", "weight", "property",
}

// Node is an open handle to one node file. It is not safe for
// concurrent use by more than one writer; only one writer may hold the
// file open for writing at a time.
type Node struct {
	db         *sql.DB
	path       string
	readOnly   bool
	savepoints int64
}

// Create makes a new, empty node file at path, populated with the
// fixed relational schema, and returns an open handle to it.
func Create(ctx context.Context, path string) (*Node, error) {
	dsn := path
	if path == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "open sqlite file")
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "enable foreign keys")
	}
	if _, err := db.ExecContext(ctx, schemaScript); err != nil {
		db.Close()
		return nil, nodeerr.Wrap(nodeerr.StorageIntegrity, err, "create node schema")
	}
	if _, err := db.ExecContext(ctx, triggerScript); err != nil {
		db.Close()
		return nil, nodeerr.Wrap(nodeerr.StorageIntegrity, err, "install constraint triggers")
	}

	n := &Node{db: db, path: path}
	if err := n.seedProperties(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return n, nil
}

func (n *Node) seedProperties(ctx context.Context) error {
	id := uuid.NewString()
	stmts := []struct{ key, value string }{
		{model.PropertyUniqueID, fmt.Sprintf("%q", id)},
		{model.PropertySchemaVersion, fmt.Sprintf("%q", model.SchemaVersion)},
		{model.PropertyAppVersion, fmt.Sprintf("%q", model.AppVersion)},
	}
	for _, s := range stmts {
		if _, err := n.db.ExecContext(ctx,
			"INSERT INTO main.property (key, value) VALUES (?, ?)", s.key, s.value); err != nil {
			return nodeerr.Wrap(nodeerr.StorageIntegrity, err, "seed property "+s.key)
		}
	}
	return nil
}

// Open opens an existing node file under mode and validates its
// schema, failing with NotANode or SchemaVersionUnsupported when the
// file does not conform.
func Open(ctx context.Context, path string, mode Mode) (*Node, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.NotANode, err, "open sqlite file")
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "enable foreign keys")
	}

	n := &Node{db: db, path: path, readOnly: mode == ReadOnly}
	if err := n.validateSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if mode == ReadOnly {
		if _, err := db.ExecContext(ctx, "PRAGMA query_only = 1"); err != nil {
			db.Close()
			return nil, nodeerr.Wrap(nodeerr.Transient, err, "enable query_only")
		}
	}
	return n, nil
}

func (n *Node) validateSchema(ctx context.Context) error {
	rows, err := n.db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type='table'")
	if err != nil {
		return nodeerr.Wrap(nodeerr.NotANode, err, "read sqlite_master")
	}
	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nodeerr.Wrap(nodeerr.NotANode, err, "scan sqlite_master")
		}
		present[name] = true
	}
	rows.Close()

	for _, table := range requiredTables {
		if !present[table] {
			return nodeerr.Newf(nodeerr.NotANode, "missing required table %q", table)
		}
	}

	var uniqueID sql.NullString
	err = n.db.QueryRowContext(ctx,
		"SELECT value FROM property WHERE key=?", model.PropertyUniqueID).Scan(&uniqueID)
	if err != nil || !uniqueID.Valid {
		return nodeerr.New(nodeerr.NotANode, "missing unique_id property")
	}

	var schemaVersion sql.NullString
	err = n.db.QueryRowContext(ctx,
		"SELECT value FROM property WHERE key=?", model.PropertySchemaVersion).Scan(&schemaVersion)
	if err != nil || !schemaVersion.Valid {
		return nodeerr.New(nodeerr.NotANode, "missing schema version property")
	}
	if strings.Trim(schemaVersion.String, `"`) != model.SchemaVersion {
		return nodeerr.Newf(nodeerr.SchemaVersionUnsupported,
			"node schema version %s is not supported", schemaVersion.String)
	}
	return nil
}

// Close releases the underlying database handle.
func (n *Node) Close() error { return n.db.Close() }

// DB exposes the raw *sql.DB for packages that need to pass it to a
// *sql.Tx-taking constructor. It is not exported outside the module.
func (n *Node) DB() *sql.DB { return n.db }

// ReadOnly reports whether this handle refuses writes.
func (n *Node) ReadOnly() bool { return n.readOnly }

// Begin starts a new top-level transaction. Every mutation occurs
// inside one.
func (n *Node) Begin(ctx context.Context) (*sql.Tx, error) {
	if n.readOnly {
		return nil, nodeerr.New(nodeerr.Readonly, "write attempted against a read-only session")
	}
	tx, err := n.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "begin transaction")
	}
	return tx, nil
}

// nextSavepointName mirrors the original's _SAVEPOINT_NAME_GENERATOR:
// a monotonically increasing counter turned into "svpnt<N>".
func (n *Node) nextSavepointName() string {
	id := atomic.AddInt64(&n.savepoints, 1) - 1
	return fmt.Sprintf("svpnt%d", id)
}

// Savepoint is a nested transactional scope inside an already-open
// *sql.Tx. It releases on normal exit and rolls back on error.
type Savepoint struct {
	tx   *sql.Tx
	name string
}

// BeginSavepoint opens a named savepoint on tx. The kernel refuses to begin one
// outside of an explicit transaction, which the *sql.Tx type already
// guarantees by construction.
func (n *Node) BeginSavepoint(ctx context.Context, tx *sql.Tx) (*Savepoint, error) {
	name := n.nextSavepointName()
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return nil, nodeerr.Wrap(nodeerr.Transient, err, "begin savepoint")
	}
	return &Savepoint{tx: tx, name: name}, nil
}

// Release commits the savepoint's changes into the enclosing scope.
func (s *Savepoint) Release(ctx context.Context) error {
	if _, err := s.tx.ExecContext(ctx, "RELEASE "+s.name); err != nil {
		return nodeerr.Wrap(nodeerr.Transient, err, "release savepoint")
	}
	return nil
}

// Rollback undoes everything done since the savepoint began.
func (s *Savepoint) Rollback(ctx context.Context) error {
	if _, err := s.tx.ExecContext(ctx, "ROLLBACK TO "+s.name); err != nil {
		return nodeerr.Wrap(nodeerr.Transient, err, "rollback to savepoint")
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx. The Schema Manager
// always has an already-open *sql.Tx (it holds the connection pool's
// one and only connection, since Create/Open call SetMaxOpenConns(1)),
// so every helper below that a rebuild calls mid-transaction must run
// against that Tx rather than n.db: a n.db-level call would block
// forever waiting for a connection the open Tx is already holding.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DisableForeignKeys and EnableForeignKeys bracket a column-rebuild
// operation: foreign keys are always on
// during normal operation, but rebuilds disable them outside the
// transaction, perform the rebuild, then run a full check before
// re-enabling.
func (n *Node) DisableForeignKeys(ctx context.Context) error {
	return disableForeignKeys(ctx, n.db)
}

// DisableForeignKeysTx is DisableForeignKeys run against an
// already-open transaction, for use inside the Schema Manager's
// rebuild protocol.
func (n *Node) DisableForeignKeysTx(ctx context.Context, tx *sql.Tx) error {
	return disableForeignKeys(ctx, tx)
}

func disableForeignKeys(ctx context.Context, e execer) error {
	_, err := e.ExecContext(ctx, "PRAGMA foreign_keys = OFF")
	if err != nil {
		return nodeerr.Wrap(nodeerr.Transient, err, "disable foreign keys")
	}
	return nil
}

// CheckForeignKeys runs a full foreign-key check and fails with
// StorageIntegrity if any violation is found.
func (n *Node) CheckForeignKeys(ctx context.Context) error {
	return checkForeignKeys(ctx, n.db)
}

// CheckForeignKeysTx is CheckForeignKeys run against an already-open
// transaction.
func (n *Node) CheckForeignKeysTx(ctx context.Context, tx *sql.Tx) error {
	return checkForeignKeys(ctx, tx)
}

func checkForeignKeys(ctx context.Context, e execer) error {
	rows, err := e.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return nodeerr.Wrap(nodeerr.Transient, err, "run foreign_key_check")
	}
	defer rows.Close()
	if rows.Next() {
		return nodeerr.New(nodeerr.StorageIntegrity, "foreign key violation found after rebuild")
	}
	return nil
}

// EnableForeignKeys re-enables enforcement after a rebuild's check has
// passed.
func (n *Node) EnableForeignKeys(ctx context.Context) error {
	return enableForeignKeys(ctx, n.db)
}

// EnableForeignKeysTx is EnableForeignKeys run against an already-open
// transaction.
func (n *Node) EnableForeignKeysTx(ctx context.Context, tx *sql.Tx) error {
	return enableForeignKeys(ctx, tx)
}

func enableForeignKeys(ctx context.Context, e execer) error {
	_, err := e.ExecContext(ctx, "PRAGMA foreign_keys = ON")
	if err != nil {
		return nodeerr.Wrap(nodeerr.Transient, err, "enable foreign keys")
	}
	return nil
}

// SupportsNativeColumnRename reports whether the linked SQLite
// implementation supports ALTER TABLE ... RENAME COLUMN natively
// (added in SQLite 3.25.0). The Schema Manager uses this to choose
// between the native path and the table-rebuild path at runtime.
func (n *Node) SupportsNativeColumnRename(ctx context.Context) (bool, error) {
	return supportsVersion(ctx, n.db, 3, 25, 0)
}

// SupportsNativeColumnRenameTx is SupportsNativeColumnRename run
// against an already-open transaction.
func (n *Node) SupportsNativeColumnRenameTx(ctx context.Context, tx *sql.Tx) (bool, error) {
	return supportsVersion(ctx, tx, 3, 25, 0)
}

// SupportsNativeColumnDrop reports whether the linked SQLite
// implementation supports ALTER TABLE ... DROP COLUMN natively (added
// in SQLite 3.35.0).
func (n *Node) SupportsNativeColumnDrop(ctx context.Context) (bool, error) {
	return supportsVersion(ctx, n.db, 3, 35, 0)
}

// SupportsNativeColumnDropTx is SupportsNativeColumnDrop run against
// an already-open transaction.
func (n *Node) SupportsNativeColumnDropTx(ctx context.Context, tx *sql.Tx) (bool, error) {
	return supportsVersion(ctx, tx, 3, 35, 0)
}

func supportsVersion(ctx context.Context, e execer, wantMajor, wantMinor, wantPatch int) (bool, error) {
	var version string
	if err := e.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version); err != nil {
		return false, nodeerr.Wrap(nodeerr.Transient, err, "read sqlite_version")
	}
	return versionAtLeast(version, wantMajor, wantMinor, wantPatch), nil
}

func versionAtLeast(version string, wantMajor, wantMinor, wantPatch int) bool {
	var major, minor, patch int
	n, _ := fmt.Sscanf(version, "%d.%d.%d", &major, &minor, &patch)
	if n < 2 {
		return false
	}
	if major != wantMajor {
		return major > wantMajor
	}
	if minor != wantMinor {
		return minor > wantMinor
	}
	return patch >= wantPatch
}

// QuoteIdentifier quotes name as a SQLite identifier: surrounded by
// double quotes with embedded double quotes doubled. It rejects
// surrogate code units and embedded NUL bytes, matching the original
// normalize_identifier rule.
func QuoteIdentifier(name string) (string, error) {
	if !utf8.ValidString(name) {
		return "", nodeerr.New(nodeerr.Validation, "identifier is not valid UTF-8")
	}
	if strings.ContainsRune(name, 0) {
		return "", nodeerr.New(nodeerr.Validation, "identifier must not contain NUL")
	}
	collapsed := strings.Join(strings.Fields(name), " ")
	collapsed = strings.ReplaceAll(collapsed, `"`, `""`)
	return `"` + collapsed + `"`, nil
}
