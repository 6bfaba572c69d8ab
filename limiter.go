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

import (
	"context"
	"errors"
	"log"
	"math"
	"sync"
	"time"
)

// Limiter is the public entry point for rate-limit decisions. It lazily
// builds one Strategy per AlgorithmKind on first use and reuses it for the
// life of the process; building a Strategy is the caller-supplied factory's
// job (see NewLimiter), so the Limiter itself knows nothing about the KVS
// client a concrete Strategy wraps.
//
// A Limiter is safe for concurrent use by multiple goroutines.
type Limiter struct {
	factory  FactoryFunc
	defaults map[AlgorithmKind]*StrategyConfig

	// cache holds *strategySlot per AlgorithmKind. Strategy construction
	// happens at most once per kind even under concurrent first use.
	cache sync.Map
}

// strategySlot guards one AlgorithmKind's lazily-built Strategy. once.Do
// provides the happens-before edge every later Load needs: whichever
// goroutine's Do call runs the constructor, every other caller's Do call
// blocks until it finishes and then observes strategy/err without any
// further synchronization.
type strategySlot struct {
	once     sync.Once
	strategy Strategy
	err      error
}

// NewLimiter returns a Limiter that builds strategies via factory. defaults
// supplies the StrategyConfig to use for each kind the first time it is
// requested; a kind with no entry falls back to NewStrategyConfig's defaults.
func NewLimiter(factory FactoryFunc, defaults map[AlgorithmKind]*StrategyConfig) *Limiter {
	return &Limiter{
		factory:  factory,
		defaults: defaults,
	}
}

// Check evaluates one request against the named algorithm for identifier.
// It never returns an error: a KVS failure while building or running the
// Strategy is logged and converted to a fail-open admit, matching §7's
// availability-over-strictness design. identifier is typically a client IP,
// API key, or user ID — whatever dimension the caller wants to bound.
func (l *Limiter) Check(ctx context.Context, kind AlgorithmKind, identifier string) *Result {
	strat, err := l.getStrategy(kind)
	if err != nil {
		log.Printf("throttle: could not build strategy for %s: %v", kind, err)
		return failOpenResult(kind)
	}

	result, err := strat.Check(ctx, identifier)
	if err != nil {
		// Check's contract promises only *StorageError, but a Strategy that
		// violates it is still handled the §7 way: log loudly and fail open
		// rather than take the whole process down with it.
		if errors.Is(err, ErrStorage) {
			log.Printf("throttle: check failed for %s/%s, failing open: %v", kind, identifier, err)
		} else {
			log.Printf("throttle: check for %s/%s returned an error outside the documented contract, failing open: %v", kind, identifier, err)
		}
		return failOpenResult(kind)
	}
	return result
}

// Reset clears all KVS state for identifier under kind. Storage failures are
// logged and swallowed, never returned: a caller resetting a limit cannot act
// on a failure any more usefully than the Limiter already has by logging it.
func (l *Limiter) Reset(ctx context.Context, kind AlgorithmKind, identifier string) {
	strat, err := l.getStrategy(kind)
	if err != nil {
		log.Printf("throttle: could not build strategy for %s: %v", kind, err)
		return
	}
	if err := strat.Reset(ctx, identifier); err != nil {
		log.Printf("throttle: reset failed for %s/%s: %v", kind, identifier, err)
	}
}

// getStrategy returns the cached Strategy for kind, building it on first
// request. The Load fast path avoids allocating a slot for kinds that have
// already resolved; LoadOrStore only runs on the (at most five, one per
// AlgorithmKind) first requests.
func (l *Limiter) getStrategy(kind AlgorithmKind) (Strategy, error) {
	actual, ok := l.cache.Load(kind)
	if !ok {
		actual, _ = l.cache.LoadOrStore(kind, &strategySlot{})
	}

	slot := actual.(*strategySlot)
	slot.once.Do(func() {
		cfg := l.defaults[kind]
		if cfg == nil {
			cfg = NewStrategyConfig()
		}
		slot.strategy, slot.err = l.factory(kind, cfg)
	})
	return slot.strategy, slot.err
}

// failOpenResult synthesizes an admitting Result for a request that could
// not actually be checked against the KVS. current is reported as 0 and
// limit as the maximum representable value so that a caller rendering
// X-RateLimit-Remaining sees "effectively unlimited" rather than a
// misleadingly small number derived from no real count.
func failOpenResult(kind AlgorithmKind) *Result {
	return NewResult(true, kind, 0, math.MaxInt64, time.Time{}, false, nil)
}
