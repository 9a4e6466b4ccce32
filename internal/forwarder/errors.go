// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package forwarder

import (
	"errors"
	"fmt"
)

// ErrDeliveryFailed matches every *DeliveryError.
var ErrDeliveryFailed = errors.New("delivery failed")

// Error codes for failed forwards.
const (
	ErrorCodeConnectionFailed = "CONNECTION_FAILED"
	ErrorCodeTimeout          = "TIMEOUT"
	ErrorCodeServerError      = "SERVER_ERROR"
	ErrorCodeAuthFailed       = "AUTH_FAILED"
	ErrorCodeRateLimited      = "RATE_LIMITED"
	ErrorCodeClientError      = "CLIENT_ERROR"
	ErrorCodeCircuitOpen      = "CIRCUIT_OPEN"
	ErrorCodeInvalidConfig    = "INVALID_CONFIG"
	ErrorCodeUnknown          = "UNKNOWN"
)

// DeliveryError describes a forward that did not end in a 2xx response.
type DeliveryError struct {
	Code        string
	Destination string
	EventID     string
	StatusCode  int
	Transient   bool
	Err         error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("forward %s to %s: %s (status %d): %v", e.EventID, e.Destination, e.Code, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("forward %s to %s: %s: %v", e.EventID, e.Destination, e.Code, e.Err)
}

// Unwrap exposes both ErrDeliveryFailed and the cause.
func (e *DeliveryError) Unwrap() []error {
	return []error{ErrDeliveryFailed, e.Err}
}

// IsTransient reports whether err is a DeliveryError worth retrying.
func IsTransient(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de) && de.Transient
}

func isTransientCode(code string) bool {
	switch code {
	case ErrorCodeConnectionFailed, ErrorCodeTimeout, ErrorCodeRateLimited,
		ErrorCodeServerError, ErrorCodeCircuitOpen:
		return true
	default:
		return false
	}
}
