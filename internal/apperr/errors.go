// Package apperr defines sentinel errors shared across service layers.
package apperr

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrStaleEdit = errors.New("edited view does not match the original document")
)
