// Copyright 2026 The Prasat Authors
// SPDX-License-Identifier: Apache-2.0

package geoloc

import (
	"context"
	"errors"
	"fmt"
)

// ErrorType classifies position acquisition failures.
type ErrorType int

const (
	// ErrorUnknown is any failure that doesn't fit the other categories.
	ErrorUnknown ErrorType = iota

	// ErrorPermissionDenied means the user or platform refused access to
	// the position. Terminal until the user changes device settings,
	// though a re-request may re-prompt.
	ErrorPermissionDenied

	// ErrorPositionUnavailable means no position fix could be obtained.
	ErrorPositionUnavailable

	// ErrorTimeout means no fix arrived within the bounded wait.
	ErrorTimeout

	// ErrorNotSupported means the platform lacks a position capability.
	ErrorNotSupported
)

// PositionError is a typed error for position acquisition failures.
type PositionError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *PositionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *PositionError) Unwrap() error {
	return e.Err
}

// Message strings surfaced to users, one per taxonomy entry.
const (
	msgPermissionDenied    = "location permission denied"
	msgPositionUnavailable = "position unavailable"
	msgTimeout             = "location request timed out"
	msgNotSupported        = "geolocation not supported"
)

// NewPermissionDenied builds the error a position source returns when the
// platform refuses access.
func NewPermissionDenied(err error) *PositionError {
	return &PositionError{Type: ErrorPermissionDenied, Message: msgPermissionDenied, Err: err}
}

// NewPositionUnavailable builds the error a position source returns when no
// fix can be obtained.
func NewPositionUnavailable(err error) *PositionError {
	return &PositionError{Type: ErrorPositionUnavailable, Message: msgPositionUnavailable, Err: err}
}

// NewNotSupported builds the error a position source returns when the
// platform has no geolocation capability at all.
func NewNotSupported() *PositionError {
	return &PositionError{Type: ErrorNotSupported, Message: msgNotSupported}
}

func errorType(err error) ErrorType {
	var posErr *PositionError
	if errors.As(err, &posErr) {
		return posErr.Type
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}

	return ErrorUnknown
}

// IsPermissionDenied checks if the error is a permission refusal.
func IsPermissionDenied(err error) bool {
	return errorType(err) == ErrorPermissionDenied
}

// IsPositionUnavailable checks if the error means no fix was obtainable.
func IsPositionUnavailable(err error) bool {
	return errorType(err) == ErrorPositionUnavailable
}

// IsTimeout checks if the error is a bounded-wait expiry.
func IsTimeout(err error) bool {
	return errorType(err) == ErrorTimeout
}

// IsNotSupported checks if the platform lacks geolocation.
func IsNotSupported(err error) bool {
	return errorType(err) == ErrorNotSupported
}

// classify wraps an arbitrary acquisition failure into the taxonomy. Typed
// errors pass through untouched, deadline expiry becomes a timeout, anything
// else is unknown.
func classify(err error) *PositionError {
	var posErr *PositionError
	if errors.As(err, &posErr) {
		return posErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &PositionError{Type: ErrorTimeout, Message: msgTimeout, Err: err}
	}

	return &PositionError{Type: ErrorUnknown, Message: "location request failed", Err: err}
}
