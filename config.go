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

// StrategyConfig is a builder-validated configuration for a Strategy. Each
// setter rejects non-positive values immediately (fail-fast) rather than at
// first use, recording a *ValidationError that Validate returns, so the
// caller can surface an HTTP 400 without inventing a message. A
// StrategyConfig is immutable once handed
// to the Strategy Factory.
type StrategyConfig struct {
	capacity   int64
	refillRate float64
	leakRate   float64
	limit      int64
	windowSize int64 // seconds

	err error // first validation error encountered, sticky across setters
}

// NewStrategyConfig returns a config populated with the per-kind defaults:
// capacity 10, refillRate 1.0/s, leakRate 1.0/s, limit 10, windowSize 60s.
func NewStrategyConfig() *StrategyConfig {
	return &StrategyConfig{
		capacity:   10,
		refillRate: 1.0,
		leakRate:   1.0,
		limit:      10,
		windowSize: 60,
	}
}

// WithCapacity sets the token/leaky bucket capacity. Must be positive.
func (c *StrategyConfig) WithCapacity(capacity int64) *StrategyConfig {
	if capacity <= 0 {
		return c.fail("capacity", capacity, "must be positive")
	}
	c.capacity = capacity
	return c
}

// WithRefillRate sets the token bucket refill rate in tokens/second. Must be positive.
func (c *StrategyConfig) WithRefillRate(refillRate float64) *StrategyConfig {
	if refillRate <= 0 {
		return c.fail("refillRate", refillRate, "must be positive")
	}
	c.refillRate = refillRate
	return c
}

// WithLeakRate sets the leaky bucket leak rate in items/second. Must be positive.
func (c *StrategyConfig) WithLeakRate(leakRate float64) *StrategyConfig {
	if leakRate <= 0 {
		return c.fail("leakRate", leakRate, "must be positive")
	}
	c.leakRate = leakRate
	return c
}

// WithLimit sets the request limit for windowed algorithms. Must be positive.
func (c *StrategyConfig) WithLimit(limit int64) *StrategyConfig {
	if limit <= 0 {
		return c.fail("limit", limit, "must be positive")
	}
	c.limit = limit
	return c
}

// WithWindowSize sets the window size, in whole seconds, for windowed
// algorithms. Must be positive.
func (c *StrategyConfig) WithWindowSize(windowSizeSeconds int64) *StrategyConfig {
	if windowSizeSeconds <= 0 {
		return c.fail("windowSize", windowSizeSeconds, "must be positive")
	}
	c.windowSize = windowSizeSeconds
	return c
}

func (c *StrategyConfig) fail(field string, value interface{}, reason string) *StrategyConfig {
	if c.err == nil {
		c.err = &ValidationError{Field: field, Value: value, Reason: reason}
	}
	return c
}

// Validate returns the first validation error recorded by a setter, or nil.
// The Strategy Factory calls this before constructing any Strategy.
func (c *StrategyConfig) Validate() error {
	return c.err
}

// Capacity returns the configured capacity (Token Bucket, Leaky Bucket).
func (c *StrategyConfig) Capacity() int64 { return c.capacity }

// RefillRate returns the configured refill rate (Token Bucket).
func (c *StrategyConfig) RefillRate() float64 { return c.refillRate }

// LeakRate returns the configured leak rate (Leaky Bucket).
func (c *StrategyConfig) LeakRate() float64 { return c.leakRate }

// Limit returns the configured request limit (windowed algorithms).
func (c *StrategyConfig) Limit() int64 { return c.limit }

// WindowSize returns the configured window size in seconds (windowed algorithms).
func (c *StrategyConfig) WindowSize() int64 { return c.windowSize }
