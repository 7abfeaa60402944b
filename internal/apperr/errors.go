// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalid marks input rejected by validation.
	ErrInvalid = errors.New("invalid input")
	// ErrInvariant is returned when an operation would break the dense
	// priority ranking, e.g. reordering a rank no current record holds.
	ErrInvariant = errors.New("invariant violation")
)
