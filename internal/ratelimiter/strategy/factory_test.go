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

package strategy

import (
	"errors"
	"testing"

	"throttle"
	"throttle/internal/ratelimiter/kvs"
)

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := throttle.NewStrategyConfig().WithCapacity(-1)
	_, err := New(throttle.TokenBucket, cfg, kvs.New(nil))
	if !errors.Is(err, throttle.ErrValidation) {
		t.Fatalf("New with invalid config: err = %v, want ErrValidation", err)
	}
}

func TestNew_RejectsUnrecognizedKind(t *testing.T) {
	_, err := New(throttle.AlgorithmKind("nonsense"), throttle.NewStrategyConfig(), kvs.New(nil))
	if !errors.Is(err, throttle.ErrValidation) {
		t.Fatalf("New with unrecognized kind: err = %v, want ErrValidation", err)
	}
}

func TestNew_BuildsEveryAlgorithmKind(t *testing.T) {
	for _, kind := range throttle.AllAlgorithmKinds() {
		strat, err := New(kind, throttle.NewStrategyConfig(), kvs.New(nil))
		if err != nil {
			t.Fatalf("New(%s): %v", kind, err)
		}
		if strat.Describe() != kind {
			t.Errorf("New(%s).Describe() = %v", kind, strat.Describe())
		}
	}
}
