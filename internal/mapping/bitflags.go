// Package mapping implements mapping-level resolution:
// bit-flag packing over a node's canonical label-column order,
// structure-compatibility matching against the node's granularity
// lattice, and the shorthand edge descriptor grammar used to name an
// edge and its two node files on the command line.
package mapping

import (
	"gpn/internal/model"
	"gpn/internal/nodeerr"
)

// Pack encodes present, one bool per label column in the node's
// canonical order, as an MSB-first bit-flag blob of length
// ceil(len(present)/8) bytes. Bit index i corresponds to present[i],
// matching the original's BitFlags(1, 0, 1) -> 0xA0 encoding (the
// first element occupies the most-significant bit of the first byte).
func Pack(present []bool) model.MappingLevel {
	n := len(present)
	out := make(model.MappingLevel, (n+7)/8)
	for i, set := range present {
		if !set {
			continue
		}
		byteIndex := i / 8
		bitIndex := 7 - uint(i%8)
		out[byteIndex] |= 1 << bitIndex
	}
	return out
}

// Unpack decodes a bit-flag blob back into n booleans, one per label
// column in canonical order. A nil or short blob reads as all-false
// past its length, matching toron_apply_bit_flag's IndexError->0 rule.
func Unpack(blob model.MappingLevel, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		byteIndex := i / 8
		if byteIndex >= len(blob) {
			continue
		}
		bitIndex := 7 - uint(i%8)
		out[i] = blob[byteIndex]&(1<<bitIndex) != 0
	}
	return out
}

// PresentFromRow builds the canonical-order presence vector for one
// mapping row: rightHeader names the row's right-side columns in the
// order they appear in the input, values holds the corresponding
// non-empty-checked cell text, and canonicalOrder is the target
// node's label columns in schema order. A canonical column absent from
// rightHeader is treated as not present, preserving column-order
// alignment with the right-side header.
func PresentFromRow(canonicalOrder, rightHeader, values []string) ([]bool, error) {
	if len(rightHeader) != len(values) {
		return nil, nodeerr.New(nodeerr.Validation, "mapping row header/value length mismatch")
	}
	byName := make(map[string]string, len(rightHeader))
	for i, name := range rightHeader {
		byName[name] = values[i]
	}
	present := make([]bool, len(canonicalOrder))
	for i, name := range canonicalOrder {
		v, ok := byName[name]
		present[i] = ok && v != ""
	}
	return present, nil
}
