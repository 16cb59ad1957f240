package models

import "errors"

var (
	// ErrValidation covers malformed input: nil ids, empty or unknown entity types.
	ErrValidation = errors.New("invalid input")
	// ErrNotFound is returned when the target entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict signals a concurrent mutation detected by the storage layer.
	ErrConflict = errors.New("concurrent modification")
	// ErrInvalidState signals a transition attempted on a vote in the wrong state,
	// e.g. switching a deleted vote without resurrecting it first.
	ErrInvalidState = errors.New("invalid vote state")
)
