package depend

import "errors"

var (
	// ErrNotFound is returned when a provider is not registered or does
	// not satisfy the requested version range.
	ErrNotFound = errors.New("provider not found")

	// ErrVersionFormat is returned when a version string cannot be parsed.
	ErrVersionFormat = errors.New("invalid version format")
)
