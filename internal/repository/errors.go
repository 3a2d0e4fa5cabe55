package repository

import (
	"strings"

	"gpn/internal/nodeerr"
)

// classifyConstraintError turns a raw sqlite error from a UNIQUE or
// CHECK violation into the appropriate typed error kind, naming the
// invariant when the driver's message lets us.
func classifyConstraintError(err error, invariantHint string) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique"):
		return nodeerr.Wrap(nodeerr.Conflict, err, invariantHint)
	case strings.Contains(msg, "check"):
		return nodeerr.Wrap(nodeerr.Validation, err, invariantHint)
	case strings.Contains(msg, "foreign key"):
		return nodeerr.Wrap(nodeerr.StorageIntegrity, err, invariantHint)
	default:
		return nodeerr.Wrap(nodeerr.StorageIntegrity, err, invariantHint)
	}
}
