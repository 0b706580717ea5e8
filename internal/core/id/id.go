// Package id generates the identifiers used by every catalog entry,
// document and record in the engine. IDs are UUIDv7, so rows inserted
// in bursts at the register stay clustered by creation time in the
// primary key index.
package id

import (
	"github.com/google/uuid"
)

// ID aliases uuid.UUID so callers never import the uuid package directly.
type ID = uuid.UUID

// New returns a fresh time-ordered ID, falling back to a random v4 on
// entropy failure.
func New() ID {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v7
}

// Parse validates and converts a string, typically a path parameter.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse panics on a malformed string. Fixtures and tests only.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// Nil is the zero ID.
func Nil() ID {
	return uuid.Nil
}

// IsNil reports whether id is the zero ID.
func IsNil(id ID) bool {
	return id == uuid.Nil
}
