package seriesapi

import "errors"

// Sentinel errors for store operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, seriesapi.ErrUnauthorized) {
//	    // Credential problem, not a transient outage
//	}
var (
	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("seriesapi: connection failed")

	// ErrUnauthorized indicates the store rejected the API key.
	ErrUnauthorized = errors.New("seriesapi: unauthorized")

	// ErrListFailed indicates a series listing page could not be fetched.
	ErrListFailed = errors.New("seriesapi: list series failed")

	// ErrCreateFailed indicates a series creation request failed.
	ErrCreateFailed = errors.New("seriesapi: create series failed")

	// ErrInsertFailed indicates a datapoint append request failed.
	ErrInsertFailed = errors.New("seriesapi: insert datapoints failed")
)
