// Package ocaf the application document model: a tree of labels carrying typed attributes
package ocaf

import (
	"github.com/google/uuid"
)

// GUID the fixed-width identity of an attribute type or a driver
type GUID = uuid.UUID

// NilGUID the zero identity, never assigned to a type
var NilGUID = uuid.Nil

// ParseGUID parses the canonical textual form
func ParseGUID(s string) (GUID, error) {
	return uuid.Parse(s)
}

// MustGUID is ParseGUID for package-level identities, panics on bad input
func MustGUID(s string) GUID {
	return uuid.MustParse(s)
}
