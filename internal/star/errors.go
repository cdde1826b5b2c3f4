package star

import "errors"

// Sentinel errors for rule loading.
var (
	// ErrUnknownStar indicates a star name outside the enumerated set.
	ErrUnknownStar = errors.New("unknown star")
	// ErrInvalidRule indicates a rule that can never match or cannot be compiled.
	ErrInvalidRule = errors.New("invalid rule")
	// ErrConfidenceRange indicates a confidence outside [0, 1].
	ErrConfidenceRange = errors.New("confidence out of range [0,1]")
)
