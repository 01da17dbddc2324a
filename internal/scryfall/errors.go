// Package scryfall implements the client for the upstream card-data API,
// together with the outbound politeness gate and the closed error taxonomy
// produced at the client boundary.
//
// This file centralizes the error taxonomy. Every failure leaving the client
// is an *Error carrying exactly one Kind; nothing above this boundary
// inspects raw HTTP status codes again. Callers branch with the Is* helpers
// or errors.As.
package scryfall

import (
	"errors"
	"fmt"
)

// Kind classifies a client failure.
type Kind string

// The closed set of failure kinds.
const (
	// KindValidation marks malformed or empty input; never retried.
	KindValidation Kind = "validation"
	// KindNotFound marks a query with no matching record.
	KindNotFound Kind = "not_found"
	// KindRateLimit marks upstream throttling (HTTP 429).
	KindRateLimit Kind = "rate_limit"
	// KindNetwork marks transport-level failure (refused, timeout, DNS).
	KindNetwork Kind = "network"
	// KindAPI marks any other unexpected upstream failure.
	KindAPI Kind = "api"
)

// Error is the only error type the client returns. Status carries the raw
// HTTP status when the failure originated from an upstream response; it is 0
// for validation and transport failures.
type Error struct {
	Kind    Kind
	Message string
	Status  int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("scryfall: %s: %s (status %d)", e.Kind, e.Message, e.Status)
	}
	return fmt.Sprintf("scryfall: %s: %s", e.Kind, e.Message)
}

// KindOf extracts the Kind from err, returning KindAPI for foreign errors so
// callers always get a member of the closed set.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindAPI
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return kindIs(err, KindValidation) }

// IsNotFound reports whether err is a no-match failure.
func IsNotFound(err error) bool { return kindIs(err, KindNotFound) }

// IsRateLimit reports whether err is an upstream throttling failure.
func IsRateLimit(err error) bool { return kindIs(err, KindRateLimit) }

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool { return kindIs(err, KindNetwork) }

func kindIs(err error, k Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == k
}

func newValidation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func newNotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func newNetwork(msg string) *Error {
	return &Error{Kind: KindNetwork, Message: msg}
}

// apiErrorBody is the upstream structured error envelope.
type apiErrorBody struct {
	Object   string   `json:"object"`
	Code     string   `json:"code"`
	Status   int      `json:"status"`
	Details  string   `json:"details"`
	Type     string   `json:"type"`
	Warnings []string `json:"warnings"`
}

// toError maps a parsed upstream error body to the taxonomy: 404 becomes
// NotFound, 429 becomes RateLimit, everything else is an API failure. The
// HTTP status wins over the body's own status field when they disagree.
func (b *apiErrorBody) toError(httpStatus int) *Error {
	status := httpStatus
	if status == 0 {
		status = b.Status
	}
	msg := b.Details
	if msg == "" {
		msg = "upstream API error"
	}
	switch status {
	case 404:
		return &Error{Kind: KindNotFound, Message: msg, Status: status}
	case 429:
		return &Error{Kind: KindRateLimit, Message: msg, Status: status}
	default:
		return &Error{Kind: KindAPI, Message: msg, Status: status}
	}
}
