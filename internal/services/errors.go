// Package services defines the business logic for card resolution, batch
// resolution, rulings, and the random-card operation. This file centralizes
// common service-level error values so that they can be consistently returned
// by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the dispatcher/handler layer, never here.
package services

import "errors"

// Resolution-related errors.
var (
	// ErrEmptyQuery is returned when a resolution request contains an empty
	// or whitespace-only query.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrNoQueries is returned when a batch request yields zero usable
	// queries after splitting and trimming.
	ErrNoQueries = errors.New("no valid queries in batch")

	// ErrNoneResolved is returned when every query in a batch failed to
	// resolve. The per-item results are still returned alongside it.
	ErrNoneResolved = errors.New("no cards resolved in batch")
)
