package registry

import "errors"

// Domain-specific errors for registry operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrSeedFailed is returned when the initial series listing cannot be
	// loaded even after retries.
	ErrSeedFailed = errors.New("registry: seed failed")

	// ErrResolveFailed is returned when an unknown external identifier
	// cannot be registered with the store.
	ErrResolveFailed = errors.New("registry: resolve failed")
)
