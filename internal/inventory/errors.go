package inventory

import "errors"

// Sentinel errors for inventory loading.
var (
	// ErrUnknownLane indicates a lane outside candidate, lukhas and core.
	ErrUnknownLane = errors.New("unknown lane")
	// ErrUnknownTier indicates a tier outside T1..T4.
	ErrUnknownTier = errors.New("unknown tier")
	// ErrUnknownIntegration indicates an integration status outside none, partial and full.
	ErrUnknownIntegration = errors.New("unknown integration status")
	// ErrUnsupportedFormat indicates an inventory file extension with no decoder.
	ErrUnsupportedFormat = errors.New("unsupported inventory format")
	// ErrFileTooLarge indicates a source file above the scanner's read limit.
	ErrFileTooLarge = errors.New("file exceeds signal read limit")
)
