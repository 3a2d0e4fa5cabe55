package mapping

import (
	"regexp"
	"strings"

	"gpn/internal/nodeerr"
)

// Direction is one of the six arrow tokens a shorthand edge descriptor
// may use between its two node filenames.
type Direction string

const (
	DirRight     Direction = "->"
	DirRightLong Direction = "-->"
	DirLeft      Direction = "<-"
	DirLeftLong  Direction = "<--"
	DirBoth      Direction = "<->"
	DirBothLong  Direction = "<-->"
)

// ShorthandDescriptor is the parsed form of an edge shorthand string:
// "name: file1 <direction> file2 [: selector]".
type ShorthandDescriptor struct {
	EdgeName  string
	NodeFile1 string
	Direction Direction
	NodeFile2 string
	Selector  string // empty if not given
}

// forbiddenFilenameChars mirrors the original's exclusion set for edge
// names and node filenames: < > : " / \ | ? *
const forbiddenFilenameChars = `<>:"/\|?*`

// shorthandPattern is a direct Go port of the original's named-group
// regex (re.VERBOSE), with named label characters disallowed from
// both the edge name and the two filenames.
var shorthandPattern = regexp.MustCompile(
	`^\s*` +
		`([^<>:"/\\|?*]+?)\s*` + // edge name
		`:\s*` +
		`([^<>:"/\\|?*]+?)\s+` + // node file 1
		`(->|-->|<->|<-->|<-|<--)\s+` + // direction
		`([^<>:"/\\|?*]+?)\s*` + // node file 2
		`(?:\s*:\s*(\[.*\])?)?` + // optional selector
		`\s*$`,
)

// ParseEdgeShorthand parses the shorthand edge descriptor grammar. It
// returns a *nodeerr.Error of kind Validation when s does not
// match the grammar, rather than the original's plain nil return, so
// that callers get a typed, explainable failure.
func ParseEdgeShorthand(s string) (ShorthandDescriptor, error) {
	m := shorthandPattern.FindStringSubmatch(s)
	if m == nil {
		return ShorthandDescriptor{}, nodeerr.Newf(nodeerr.Validation, "invalid edge shorthand descriptor: %q", s)
	}
	d := ShorthandDescriptor{
		EdgeName:  strings.TrimSpace(m[1]),
		NodeFile1: strings.TrimSpace(m[2]),
		Direction: Direction(m[3]),
		NodeFile2: strings.TrimSpace(m[4]),
		Selector:  m[5],
	}
	if d.EdgeName == "" || d.NodeFile1 == "" || d.NodeFile2 == "" {
		return ShorthandDescriptor{}, nodeerr.Newf(nodeerr.Validation, "invalid edge shorthand descriptor: %q", s)
	}
	return d, nil
}

// IsForbiddenFilenameChar reports whether r is one of the characters
// the shorthand grammar excludes from edge names and node filenames.
func IsForbiddenFilenameChar(r rune) bool {
	return strings.ContainsRune(forbiddenFilenameChars, r)
}
