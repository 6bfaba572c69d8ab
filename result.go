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

import "time"

// Result is the immutable outcome of one Limiter.Check call. All fields are
// set at construction time and never mutated afterward; callers read them
// through the accessor methods below.
type Result struct {
	admitted  bool
	algorithm AlgorithmKind
	current   int64
	limit     int64
	resetAt   time.Time
	hasReset  bool
	metadata  *Metadata
}

// NewResult constructs a Result. resetAt may be the zero time to indicate
// "absent" (no reset-time hint available); use ResetAt's second return value
// to tell presence rather than checking for the zero value directly, since an absent
// reset must never be confused with a reset exactly at the Unix epoch.
func NewResult(admitted bool, algorithm AlgorithmKind, current, limit int64, resetAt time.Time, hasReset bool, metadata *Metadata) *Result {
	return &Result{
		admitted:  admitted,
		algorithm: algorithm,
		current:   current,
		limit:     limit,
		resetAt:   resetAt,
		hasReset:  hasReset,
		metadata:  metadata,
	}
}

// Admitted reports whether the request was allowed.
func (r *Result) Admitted() bool { return r.admitted }

// Algorithm identifies which algorithm produced this Result.
func (r *Result) Algorithm() AlgorithmKind { return r.algorithm }

// Current is the algorithm-specific count used for admission: tokens consumed
// (Token Bucket), queue size (Leaky Bucket), or request count (windowed
// algorithms).
func (r *Result) Current() int64 { return r.current }

// Limit is the configured capacity or request limit.
func (r *Result) Limit() int64 { return r.limit }

// Remaining returns max(0, limit - current), per §3's derived field.
func (r *Result) Remaining() int64 {
	remaining := r.limit - r.current
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ResetAt returns the best-effort instant at which capacity will be fully
// restored, and whether that hint is present. An absent hint must never be
// rendered as an empty-value header (§6).
func (r *Result) ResetAt() (time.Time, bool) {
	return r.resetAt, r.hasReset
}

// Metadata returns the algorithm-specific metadata, or nil if none was set.
func (r *Result) Metadata() *Metadata { return r.metadata }

// Metadata carries optional, algorithm-specific fields. Every field is a
// pointer so that an unset value round-trips as absent rather than as a
// zero value indistinguishable from a real zero.
type Metadata struct {
	tokens              *float64
	queueSize           *int64
	windowStart         *int64
	previousWindowCount *int64
	currentWindowCount  *int64
}

// NewMetadata returns an empty Metadata; use the With* methods to populate it.
func NewMetadata() *Metadata {
	return &Metadata{}
}

// WithTokens sets the Token Bucket's fractional token count.
func (m *Metadata) WithTokens(tokens float64) *Metadata {
	m.tokens = &tokens
	return m
}

// WithQueueSize sets the Leaky Bucket's queue size.
func (m *Metadata) WithQueueSize(queueSize int64) *Metadata {
	m.queueSize = &queueSize
	return m
}

// WithWindowStart sets the window start, in seconds since epoch (Sliding
// Window Log).
func (m *Metadata) WithWindowStart(windowStart int64) *Metadata {
	m.windowStart = &windowStart
	return m
}

// WithPreviousWindowCount sets the prior window's count (Sliding Window Counter).
func (m *Metadata) WithPreviousWindowCount(count int64) *Metadata {
	m.previousWindowCount = &count
	return m
}

// WithCurrentWindowCount sets the current window's count (Sliding Window Counter).
func (m *Metadata) WithCurrentWindowCount(count int64) *Metadata {
	m.currentWindowCount = &count
	return m
}

// Tokens returns the Token Bucket fractional token count, if set.
func (m *Metadata) Tokens() (float64, bool) {
	if m == nil || m.tokens == nil {
		return 0, false
	}
	return *m.tokens, true
}

// QueueSize returns the Leaky Bucket queue size, if set.
func (m *Metadata) QueueSize() (int64, bool) {
	if m == nil || m.queueSize == nil {
		return 0, false
	}
	return *m.queueSize, true
}

// WindowStart returns the Sliding Window Log window start, if set.
func (m *Metadata) WindowStart() (int64, bool) {
	if m == nil || m.windowStart == nil {
		return 0, false
	}
	return *m.windowStart, true
}

// PreviousWindowCount returns the Sliding Window Counter's prior window count, if set.
func (m *Metadata) PreviousWindowCount() (int64, bool) {
	if m == nil || m.previousWindowCount == nil {
		return 0, false
	}
	return *m.previousWindowCount, true
}

// CurrentWindowCount returns the Sliding Window Counter's current window count, if set.
func (m *Metadata) CurrentWindowCount() (int64, bool) {
	if m == nil || m.currentWindowCount == nil {
		return 0, false
	}
	return *m.currentWindowCount, true
}
