package nodefile

// schemaScript creates the fixed relational schema for a node file.
// It mirrors the authoritative "node" schema (as opposed to the
// legacy "partition" schema) per the node/partition Open Question:
// node_index/edge/relation/weighting/weight/attribute/quantity/
// location/structure/property, with label columns added later by the
// Schema Manager once the first hierarchy is known.
const schemaScript = `
PRAGMA foreign_keys = ON;

CREATE TABLE main.edge(
	edge_id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	selectors TEXT,
	user_properties TEXT,
	other_unique_id TEXT NOT NULL,
	other_filename_hint TEXT,
	other_index_hash TEXT,
	is_locally_complete INTEGER NOT NULL CHECK (is_locally_complete IN (0, 1)) DEFAULT 0,
	is_default INTEGER CHECK (is_default IS NULL OR is_default = 1) DEFAULT NULL,
	UNIQUE (name, other_unique_id),
	UNIQUE (is_default, other_unique_id)
);

CREATE TABLE main.relation(
	relation_id INTEGER PRIMARY KEY,
	edge_id INTEGER,
	other_index_id INTEGER NOT NULL,
	index_id INTEGER,
	relation_value REAL NOT NULL CHECK (0.0 <= relation_value),
	proportion REAL CHECK (proportion IS NULL OR (0.0 <= proportion AND proportion <= 1.0)),
	mapping_level BLOB,
	FOREIGN KEY (edge_id) REFERENCES edge(edge_id) ON DELETE CASCADE,
	FOREIGN KEY (index_id) REFERENCES node_index(index_id) DEFERRABLE INITIALLY DEFERRED,
	UNIQUE (edge_id, other_index_id, index_id)
);

CREATE TABLE main.node_index(
	index_id INTEGER PRIMARY KEY AUTOINCREMENT,
	partial INTEGER NOT NULL CHECK (partial IN (0, 1)) DEFAULT 0
);

CREATE TABLE main.location(
	_location_id INTEGER PRIMARY KEY
);

CREATE TABLE main.structure(
	_structure_id INTEGER PRIMARY KEY,
	_granularity REAL
);

CREATE TABLE main.hierarchy(
	hierarchy_id INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	rank INTEGER NOT NULL UNIQUE
);

CREATE TABLE main.label(
	label_id INTEGER PRIMARY KEY,
	hierarchy_id INTEGER NOT NULL,
	value TEXT NOT NULL CHECK (length(value) > 0),
	FOREIGN KEY (hierarchy_id) REFERENCES hierarchy(hierarchy_id) ON DELETE CASCADE,
	UNIQUE (hierarchy_id, value)
);

CREATE TABLE main.cell_label(
	index_id INTEGER NOT NULL,
	hierarchy_id INTEGER NOT NULL,
	label_id INTEGER NOT NULL,
	PRIMARY KEY (index_id, hierarchy_id),
	FOREIGN KEY (index_id) REFERENCES node_index(index_id) ON DELETE CASCADE,
	FOREIGN KEY (hierarchy_id) REFERENCES hierarchy(hierarchy_id) ON DELETE CASCADE,
	FOREIGN KEY (label_id) REFERENCES label(label_id) ON DELETE CASCADE
);

CREATE TABLE main.attribute(
	attribute_id INTEGER PRIMARY KEY,
	attribute_value TEXT NOT NULL,
	UNIQUE (attribute_value)
);

CREATE TABLE main.quantity(
	quantity_id INTEGER PRIMARY KEY,
	_location_id INTEGER,
	attribute_id INTEGER,
	quantity_value NUMERIC NOT NULL,
	FOREIGN KEY (_location_id) REFERENCES location(_location_id),
	FOREIGN KEY (attribute_id) REFERENCES attribute(attribute_id) ON DELETE CASCADE
);

CREATE TABLE main.weighting(
	weighting_id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	selectors TEXT,
	is_complete INTEGER NOT NULL CHECK (is_complete IN (0, 1)) DEFAULT 0,
	UNIQUE (name)
);

CREATE TABLE main.weight(
	weight_id INTEGER PRIMARY KEY,
	weighting_id INTEGER,
	index_id INTEGER CHECK (index_id > 0),
	weight_value REAL NOT NULL,
	FOREIGN KEY (weighting_id) REFERENCES weighting(weighting_id) ON DELETE CASCADE,
	FOREIGN KEY (index_id) REFERENCES node_index(index_id) DEFERRABLE INITIALLY DEFERRED,
	UNIQUE (index_id, weighting_id)
);

CREATE TABLE main.property(
	key TEXT PRIMARY KEY NOT NULL,
	value TEXT
);

INSERT INTO main.node_index (index_id, partial) VALUES (0, 0);
`

// triggerScript installs the native-trigger half of the Constraint
// Engine (C5 JSON wellformedness, C6 non-empty label / reserved
// hierarchy-name rejection, C7 default-edge uniqueness is already a
// UNIQUE index above, C8 relation bounds are CHECK constraints above,
// C9 reserved-cell immutability). C1 and C3 are the "expensive"
// set-level invariants and are checked by internal/constraint instead
// of as row triggers.
const triggerScript = `
CREATE TRIGGER IF NOT EXISTS trg_property_value_json_ins
BEFORE INSERT ON main.property FOR EACH ROW
WHEN NEW.value IS NOT NULL AND json_valid(NEW.value) = 0
BEGIN
	SELECT RAISE(ABORT, 'property.value must be well-formed JSON');
END;

CREATE TRIGGER IF NOT EXISTS trg_property_value_json_upd
BEFORE UPDATE ON main.property FOR EACH ROW
WHEN NEW.value IS NOT NULL AND json_valid(NEW.value) = 0
BEGIN
	SELECT RAISE(ABORT, 'property.value must be well-formed JSON');
END;

CREATE TRIGGER IF NOT EXISTS trg_attribute_value_shape_ins
BEFORE INSERT ON main.attribute FOR EACH ROW
WHEN json_valid(NEW.attribute_value) = 0
	OR json_type(NEW.attribute_value) != 'object'
	OR (SELECT COUNT(*) FROM json_each(NEW.attribute_value) WHERE json_each.type != 'text') != 0
BEGIN
	SELECT RAISE(ABORT, 'attribute.attribute_value must be a JSON object with text values');
END;

CREATE TRIGGER IF NOT EXISTS trg_edge_user_properties_shape_ins
BEFORE INSERT ON main.edge FOR EACH ROW
WHEN NEW.user_properties IS NOT NULL
	AND (json_valid(NEW.user_properties) = 0 OR json_type(NEW.user_properties) != 'object')
BEGIN
	SELECT RAISE(ABORT, 'edge.user_properties must be a JSON object');
END;

CREATE TRIGGER IF NOT EXISTS trg_edge_selectors_shape_ins
BEFORE INSERT ON main.edge FOR EACH ROW
WHEN NEW.selectors IS NOT NULL
	AND (json_valid(NEW.selectors) = 0 OR json_type(NEW.selectors) != 'array')
BEGIN
	SELECT RAISE(ABORT, 'edge.selectors must be a JSON array');
END;

CREATE TRIGGER IF NOT EXISTS trg_hierarchy_name_shape
BEFORE INSERT ON main.hierarchy FOR EACH ROW
WHEN length(NEW.name) = 0 OR instr(NEW.name, 'cell_id') != 0 OR instr(NEW.name, '.') != 0
BEGIN
	SELECT RAISE(ABORT, 'hierarchy name must be non-empty and must not contain "cell_id" or "."');
END;
` + NodeIndexTriggers

// NodeIndexTriggers holds the C9 reserved-cell triggers defined on
// main.node_index. SQLite drops a table's triggers along with the
// table itself, so the Schema Manager's column-rebuild protocol
// (internal/schemamgr) must reissue this script every time it rebuilds
// node_index, or the reserved cell id 0 would become mutable again
// after the first rename/delete-column operation.
const NodeIndexTriggers = `
CREATE TRIGGER IF NOT EXISTS trg_cell_reserved_no_update
BEFORE UPDATE ON main.node_index FOR EACH ROW
WHEN OLD.index_id = 0
BEGIN
	SELECT RAISE(ABORT, 'reserved cell id 0 is immutable');
END;

CREATE TRIGGER IF NOT EXISTS trg_cell_reserved_no_delete
BEFORE DELETE ON main.node_index FOR EACH ROW
WHEN OLD.index_id = 0
BEGIN
	SELECT RAISE(ABORT, 'reserved cell id 0 is undeletable');
END;
`
