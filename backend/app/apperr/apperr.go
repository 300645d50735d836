package apperr

import "errors"

// Taxonomy of protocol failures. Controllers map these to HTTP status codes;
// everything else wraps with %w so errors.Is keeps working across layers.
var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid transition")
)
