// Package nodedef reads a node-definition TOML file: the initial
// hierarchy levels (and an optional description) a new node is seeded
// with, before any cells are ingested. It follows the same TOML
// schema-file reading shape as internal/parser/toml, repointed from a
// portable multi-table schema onto this engine's much smaller
// fixed-shape document.
package nodedef

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"gpn/internal/nodeerr"
)

// Definition is the top-level TOML document a "new" node may be
// seeded from.
type Definition struct {
	Description string   `toml:"description"`
	Hierarchy   []string `toml:"hierarchy"`
}

// ParseFile opens path and parses it as a node-definition file.
func ParseFile(path string) (*Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.Validation, err, fmt.Sprintf("open node definition %q", path))
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a node-definition document from r.
func Parse(r io.Reader) (*Definition, error) {
	var d Definition
	if _, err := toml.NewDecoder(r).Decode(&d); err != nil {
		return nil, nodeerr.Wrap(nodeerr.Validation, err, "decode node definition")
	}
	seen := make(map[string]bool, len(d.Hierarchy))
	for _, name := range d.Hierarchy {
		if name == "" {
			return nil, nodeerr.New(nodeerr.Validation, "node definition hierarchy levels must not be empty")
		}
		if seen[name] {
			return nil, nodeerr.Newf(nodeerr.Validation, "node definition hierarchy level %q is duplicated", name)
		}
		seen[name] = true
	}
	return &d, nil
}
