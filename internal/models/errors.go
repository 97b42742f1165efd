package models

import "errors"

// The booking engine reports five distinguishable failure kinds so callers
// can react programmatically: fix the input, pick other dates, retry as the
// right actor, or wait out the cancellation window. Anything else is an
// infrastructure failure and safe to retry as a whole.
var (
	ErrValidation = errors.New("invalid input")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("dates conflict with an existing booking")
	ErrForbidden  = errors.New("actor not allowed")
	ErrPolicy     = errors.New("cancellation window has passed")
)
