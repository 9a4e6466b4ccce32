// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package publisher

import (
	"errors"
	"fmt"
)

var (
	// ErrPublishFailed matches every *PublishError.
	ErrPublishFailed = errors.New("publish failed")

	// ErrClosed is returned by a Publisher after Close.
	ErrClosed = errors.New("publisher closed")
)

// Publish operations reported in PublishError.Op.
const (
	OpConnect = "connect"
	OpDeclare = "declare"
	OpPublish = "publish"
)

// PublishError describes a failed connect, queue declaration or publish.
type PublishError struct {
	Op    string
	URL   string
	Queue string
	Err   error
}

func (e *PublishError) Error() string {
	if e.Queue == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s on %s: %v", e.Op, e.Queue, e.URL, e.Err)
}

// Unwrap exposes both ErrPublishFailed and the cause.
func (e *PublishError) Unwrap() []error {
	return []error{ErrPublishFailed, e.Err}
}
