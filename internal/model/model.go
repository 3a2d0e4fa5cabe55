// Package model defines the data-model entities of a granular
// partition network node: hierarchies, labels, cells, locations,
// structures, weightings, weights, attributes, quantities, edges,
// relations, and properties.
package model

// UnmappedValue is the distinguished label value that denotes absence
// of mapping at a hierarchy level. It is always a valid label value.
const UnmappedValue = "UNMAPPED"

// UndefinedCellID is the reserved cell id standing for the "undefined
// point" target of unresolvable external correspondences. It is
// allocated once at schema creation and is immutable.
const UndefinedCellID int64 = 0

// Hierarchy is one named, ranked level in a node's ordered sequence of
// categorisations. Rank 0 is the most general ("root") level.
type Hierarchy struct {
	ID   int64
	Name string
	Rank int
}

// Label is a value drawn at a specific hierarchy level, interned per
// node with a stable id unique together with (HierarchyID, Value).
type Label struct {
	ID          int64
	HierarchyID int64
	Value       string
}

// Cell is a point in the partition: the tuple of its labels, one per
// hierarchy level, is its label set. A cell's id is never reused.
type Cell struct {
	ID      int64
	Partial bool
	// Labels maps hierarchy id to the cell's label value at that level,
	// ordered separately by hierarchy rank when presented to callers.
	Labels map[int64]string
}

// Location is a generalised cell that may carry empty strings at finer
// levels; it anchors quantities.
type Location struct {
	ID     int64
	Labels map[int64]string
}

// Structure is a bitmask over label columns marking which levels are
// present for one granularity class, plus the node's computed
// granularity scalar for that class.
type Structure struct {
	ID          int64
	Granularity float64
	// Present maps hierarchy id to whether that level participates in
	// this granularity class.
	Present map[int64]bool
}

// Weighting is a named, optionally described schema for weights.
type Weighting struct {
	ID          int64
	Name        string
	Description string
	Selectors   []string
	IsComplete  bool
}

// Weight is a real value attached to (Weighting, Cell); unique per pair.
type Weight struct {
	ID          int64
	WeightingID int64
	CellID      int64
	Value       float64
}

// Attribute is a JSON object of string->string pairs, interned by its
// canonical (sorted-key) form.
type Attribute struct {
	ID     int64
	Values map[string]string
}

// Quantity is a numeric value attached to (Location, Attribute).
type Quantity struct {
	ID          int64
	LocationID  int64
	AttributeID int64
	Value       float64
}

// MappingLevel is a bit-flag blob: one bit per label column in the
// node's canonical order, MSB-first, length ceil(n/8) bytes. Its byte
// layout is an implementation detail; callers only compare or store
// it whole (see package mapping for packing/unpacking).
type MappingLevel []byte

// Edge is a directed reference from this node to another.
type Edge struct {
	ID                int64
	Name              string
	Description       string
	Selectors         []string
	UserProperties    map[string]any
	OtherUniqueID     string
	OtherFilenameHint string
	OtherIndexHash    string
	IsLocallyComplete bool
	// IsDefault is nil unless this edge is the default edge for
	// OtherUniqueID, matching the schema's NULL-or-1 encoding of C7.
	IsDefault *bool
}

// Relation is one row of an edge: a mapping from an other-node cell to
// a local cell with a value and optional proportion.
type Relation struct {
	ID           int64
	EdgeID       int64
	OtherIndexID int64
	// IndexID is nil when the local cell has not yet been resolved;
	// the column is DEFERRABLE INITIALLY DEFERRED to allow this within
	// a transaction.
	IndexID      *int64
	Value        float64
	Proportion   *float64
	MappingLevel MappingLevel
}

// Property is a string key holding an arbitrary JSON-encoded value.
// Reserved keys: unique_id, toron_schema_version, toron_app_version,
// content_hash.
type Property struct {
	Key   string
	Value string // JSON-encoded
}

const (
	PropertyUniqueID      = "unique_id"
	PropertySchemaVersion = "toron_schema_version"
	PropertyAppVersion    = "toron_app_version"
	PropertyContentHash   = "content_hash"
)

// SchemaVersion is the node-schema format this engine writes and
// accepts without migration.
const SchemaVersion = "0.2.0"

// AppVersion is the engine's own reported application version.
const AppVersion = "0.1.0"
