// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package throttle

import "fmt"

// Sentinel errors that can be checked with errors.Is(). Exactly two recoverable
// error kinds flow through the core: ErrValidation (bad config, surfaced to
// callers) and ErrStorage (KVS failure, recovered locally via fail-open).
var (
	// ErrValidation is returned when a StrategyConfig setter rejects a
	// non-positive value, or when the Strategy Factory rejects an
	// unrecognized algorithm kind.
	ErrValidation = fmt.Errorf("throttle: validation failed")

	// ErrStorage is returned when any KVS-side operation (script execution,
	// key deletion, key enumeration, clock read) fails, including context
	// cancellation and deadline errors.
	ErrStorage = fmt.Errorf("throttle: storage failure")
)

// ValidationError carries the field and value that failed a fail-fast setter
// or factory check. Its message is a fixed, safe-to-expose string (HTTP 400
// per the external HTTP contract).
type ValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("throttle: invalid %s = %v: %s", e.Field, e.Value, e.Reason)
}

// Is allows errors.Is(err, ErrValidation) to match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StorageError wraps an underlying KVS client error with the operation and
// key that were being attempted, for logging. Never surface e.Error() to an
// external client directly (see §7 of the design: unrecognized errors get a
// constant message); callers that need a generic 500 should not format this.
type StorageError struct {
	Op  string
	Key string
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("throttle: storage error [%s] for key %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("throttle: storage error [%s]: %v", e.Op, e.Err)
}

// Is allows errors.Is(err, ErrStorage) to match.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// Unwrap returns the underlying client error for error-chain inspection.
func (e *StorageError) Unwrap() error {
	return e.Err
}
