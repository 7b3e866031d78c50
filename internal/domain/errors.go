package domain

import "errors"

var (
	// ErrNoCandidates means the search provider returned nothing for a query.
	// It is the only failure that aborts a query execution.
	ErrNoCandidates = errors.New("no search results found")

	// ErrCollectionMismatch means an existing collection was created with a
	// different dimension or metric than the configured embedder.
	ErrCollectionMismatch = errors.New("collection configuration mismatch")

	// ErrCollectionNotFound means the collection has not been bootstrapped.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrDimensionMismatch means a vector does not match the collection size.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrMissingAPIKey means a required credential is not set.
	ErrMissingAPIKey = errors.New("api key not set")

	ErrInvalidURL = errors.New("url must use http or https")
)
