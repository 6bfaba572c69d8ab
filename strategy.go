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

import "context"

// Strategy encapsulates one rate-limiting algorithm: a KVS key layout, an
// atomic script, and a result-decoding contract. Per §9's design note, the
// five concrete algorithms share this one capability set rather than each
// exposing a bespoke API.
type Strategy interface {
	// Check runs the algorithm's atomic script against the KVS for
	// identifier and returns the admission decision. Returns a *StorageError
	// (matching ErrStorage) on any KVS failure.
	Check(ctx context.Context, identifier string) (*Result, error)

	// Reset clears all KVS state for identifier under this algorithm. It is
	// idempotent: calling it twice leaves the same observable state as
	// calling it once.
	Reset(ctx context.Context, identifier string) error

	// Describe reports which AlgorithmKind this Strategy implements.
	Describe() AlgorithmKind
}

// FactoryFunc constructs a Strategy for kind from a validated config. The
// concrete factory (internal/ratelimiter/strategy.New) is supplied to a
// Limiter at construction time rather than imported here, so that this
// package never depends on the KVS client the factory wires into each
// Strategy — see NewLimiter.
type FactoryFunc func(kind AlgorithmKind, cfg *StrategyConfig) (Strategy, error)
