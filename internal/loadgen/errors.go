package loadgen

import "errors"

// Sentinel kinds for load generator errors.
var (
	ErrInvalidConfig    = errors.New("invalid load generator config")
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrVerification     = errors.New("verification failed")
)
