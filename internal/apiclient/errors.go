// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/olegiv/clinic-admin/internal/resource"
)

// Error is a sentinel error type for the client.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrUnauthenticated is returned when no token is available for an authenticated call.
	ErrUnauthenticated Error = "apiclient: not authenticated"

	// ErrSessionExpired is returned when the API rejects the token with 401.
	ErrSessionExpired Error = "apiclient: session expired"

	// ErrInvalidLoginResponse is returned when a successful login lacks a token or user.
	ErrInvalidLoginResponse Error = "apiclient: login response missing token or user"

	// ErrMissingRecord is returned when a create response carries no record with an id.
	ErrMissingRecord Error = "apiclient: response did not include the created record"
)

// RequestError is returned for any non-2xx response other than 401.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("apiclient: request failed with status %d: %s", e.Status, e.Message)
}

// NetworkError wraps a transport-level failure where no response was received.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "apiclient: could not reach server: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err means the user must log in again.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrSessionExpired)
}

// Message returns a short user-facing description of err.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var (
		reqErr *RequestError
		netErr *NetworkError
		valErr *resource.ValidationError
	)
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "Please log in to continue."
	case errors.Is(err, ErrSessionExpired):
		return "Your session has expired. Please log in again."
	case errors.As(err, &valErr):
		return valErr.Error()
	case errors.As(err, &reqErr):
		if reqErr.Message != "" {
			return reqErr.Message
		}
		return http.StatusText(reqErr.Status)
	case errors.As(err, &netErr):
		return "Could not reach the server. Please try again."
	case errors.Is(err, context.DeadlineExceeded):
		return "The server took too long to respond."
	}
	return "Something went wrong. Please try again."
}
