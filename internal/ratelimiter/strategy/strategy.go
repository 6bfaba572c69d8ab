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

// Package strategy implements the five rate-limiting algorithms as
// throttle.Strategy values, each backed by an atomic Redis script run
// through an *kvs.Executor. It depends on the root throttle package for the
// Strategy interface and value types, and on internal/ratelimiter/kvs for
// script execution — never the other way around, so that throttle itself
// stays free of any Redis import.
package strategy

import (
	"fmt"

	"throttle"
	"throttle/internal/ratelimiter/kvs"
)

// New validates cfg and constructs the Strategy for kind. It is the single
// entry point the rest of the module uses to build a Strategy; the five
// concrete constructors below are unexported.
func New(kind throttle.AlgorithmKind, cfg *throttle.StrategyConfig, executor *kvs.Executor) (throttle.Strategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch kind {
	case throttle.TokenBucket:
		return newTokenBucket(cfg, executor), nil
	case throttle.LeakyBucket:
		return newLeakyBucket(cfg, executor), nil
	case throttle.FixedWindow:
		return newFixedWindow(cfg, executor), nil
	case throttle.SlidingWindowLog:
		return newSlidingWindowLog(cfg, executor), nil
	case throttle.SlidingWindowCounter:
		return newSlidingWindowCounter(cfg, executor), nil
	default:
		return nil, &throttle.ValidationError{Field: "kind", Value: kind, Reason: "unrecognized algorithm kind"}
	}
}

// bucketTTLSeconds is the fixed TTL applied to Token Bucket and Leaky
// Bucket keys, per §3's key-namespace rule for "bucket algorithms".
const bucketTTLSeconds = 3600

// key builds the namespaced KVS key rate_limit:<algorithm>:<identifier>:<suffix>.
func key(kind throttle.AlgorithmKind, identifier, suffix string) string {
	return fmt.Sprintf("rate_limit:%s:%s:%s", kind, identifier, suffix)
}

// keyPrefix builds the namespaced KVS key with no suffix, for algorithms
// whose scripts append a window id they compute themselves.
func keyPrefix(kind throttle.AlgorithmKind, identifier string) string {
	return fmt.Sprintf("rate_limit:%s:%s", kind, identifier)
}

// errUnexpectedShape reports a script return whose element count doesn't
// match what the decoder expects — a programming error in the script or a
// KVS compatibility mismatch. Callers wrap it in a *throttle.StorageError
// with Op "decode", so the Limiter fails open on it like any storage error.
func errUnexpectedShape(got, want int) error {
	return fmt.Errorf("strategy: script returned %d elements, want %d", got, want)
}
