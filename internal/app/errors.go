package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted         = errors.New("service not started")
	ErrSubmissionInFlight = errors.New("submission with this id is still being processed")
)
