package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown source or payload kind.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrIndexUnavailable indicates the search engine is not reachable.
	ErrIndexUnavailable = errors.New("search engine unavailable")

	// ErrMissingField indicates an expected field was absent from a raw
	// record. Enrichment degrades the output to null, never aborts.
	ErrMissingField = errors.New("missing field")

	// ErrRateLimited indicates the tracker API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
