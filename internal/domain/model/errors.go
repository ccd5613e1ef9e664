package model

import "errors"

// Sentinel error kinds shared by the service and its adapters.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidSubmission = errors.New("invalid submission")
	ErrInvalidProject    = errors.New("invalid project")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthenticated   = errors.New("missing identity")
	ErrInvalidQuery      = errors.New("invalid query")
)
