// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package pruner

import (
	"errors"
	"fmt"
)

// ErrPruneFailed is matched by every PruneError.
var ErrPruneFailed = errors.New("prune failed")

// PruneError reports a failed retention sweep of one system.
type PruneError struct {
	SystemID int64
	// Deleted counts the transmissions removed before or despite the failure.
	Deleted int
	Err     error
}

func (e *PruneError) Error() string {
	return fmt.Sprintf("prune system %d: %v", e.SystemID, e.Err)
}

// Unwrap exposes both ErrPruneFailed and the cause.
func (e *PruneError) Unwrap() []error {
	return []error{ErrPruneFailed, e.Err}
}
