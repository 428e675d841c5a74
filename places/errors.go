// Copyright 2026 The Prasat Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ProviderError represents a typed failure from the external place-search
// provider. Call sites use the Is* helpers to decide between "retry later"
// and "fix the configuration".
type ProviderError struct {
	Type    ErrorType
	Message string
	Err     error
}

// ErrorType classifies provider failures.
type ErrorType int

const (
	// ErrorTypeUnknown is an unclassified failure.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeUnavailable covers network errors, timeouts and provider 5xx.
	ErrorTypeUnavailable
	// ErrorTypeUnauthorized means the access token is missing or rejected.
	ErrorTypeUnauthorized
	// ErrorTypeRateLimit means the provider throttled the request.
	ErrorTypeRateLimit
	// ErrorTypeInvalidRequest means the provider rejected the request shape.
	ErrorTypeInvalidRequest
	// ErrorTypeNotFound means the provider had no answer for the query.
	ErrorTypeNotFound
)

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether the error is a transient provider failure.
func IsUnavailable(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Type == ErrorTypeUnavailable
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "connection refused")
}

// IsUnauthorized reports whether the error is a credential problem.
func IsUnauthorized(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Type == ErrorTypeUnauthorized
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "not authorized") ||
		strings.Contains(errStr, "invalid token") ||
		strings.Contains(errStr, "401")
}

// IsRateLimitError reports whether the provider throttled the request.
func IsRateLimitError(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Type == ErrorTypeRateLimit
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429")
}

// ClassifyHTTPError maps an HTTP status code to a provider error.
func ClassifyHTTPError(statusCode int, _ string) *ProviderError {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden: // 401, 403
		return &ProviderError{
			Type:    ErrorTypeUnauthorized,
			Message: fmt.Sprintf("access token missing or rejected (status %d)", statusCode),
		}
	case http.StatusTooManyRequests: // 429
		return &ProviderError{
			Type:    ErrorTypeRateLimit,
			Message: "rate limit reached",
		}
	case http.StatusBadRequest, http.StatusUnprocessableEntity: // 400, 422
		return &ProviderError{
			Type:    ErrorTypeInvalidRequest,
			Message: "invalid request",
		}
	case http.StatusNotFound: // 404
		return &ProviderError{
			Type:    ErrorTypeNotFound,
			Message: "no results",
		}
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &ProviderError{
			Type:    ErrorTypeUnavailable,
			Message: fmt.Sprintf("provider unavailable (status %d)", statusCode),
		}
	default:
		return &ProviderError{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("HTTP error %d", statusCode),
		}
	}
}
