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
	"context"
	"testing"
	"time"

	"throttle"
)

// Scenario 4 from §8: limit 10, window 60s; 15 checks issued back-to-back
// (all land within the same window, standing in for the spec's "frozen KVS
// time") admit the first 10 and deny the remaining 5.
func TestSlidingWindowLog_FifteenRapidChecks(t *testing.T) {
	cfg := throttle.NewStrategyConfig().WithLimit(10).WithWindowSize(60)
	strat := newTestStrategy(t, throttle.SlidingWindowLog, cfg)
	ctx := context.Background()

	admits := 0
	for i := 0; i < 15; i++ {
		res, err := strat.Check(ctx, "u")
		if err != nil {
			t.Fatalf("Check #%d: %v", i, err)
		}
		if res.Admitted() {
			admits++
		}
		if i == 14 && res.Current() != 10 {
			t.Errorf("final Current() = %d, want 10", res.Current())
		}
	}

	if admits != 10 {
		t.Errorf("admits = %d, want 10", admits)
	}
}

// No-undercount property (invariant 6): issuing checks back-to-back from the
// same identifier must never collapse distinct requests into one log member,
// even when they land in the same microsecond-granularity score bucket.
func TestSlidingWindowLog_NoUndercountUnderRapidSuccession(t *testing.T) {
	cfg := throttle.NewStrategyConfig().WithLimit(1000).WithWindowSize(60)
	strat := newTestStrategy(t, throttle.SlidingWindowLog, cfg)
	ctx := context.Background()

	const n = 50
	for i := 0; i < n; i++ {
		if _, err := strat.Check(ctx, "u"); err != nil {
			t.Fatalf("Check #%d: %v", i, err)
		}
	}

	res, err := strat.Check(ctx, "u")
	if err != nil {
		t.Fatalf("final Check: %v", err)
	}
	if res.Current() != n+1 {
		t.Errorf("Current() = %d, want %d (no collisions)", res.Current(), n+1)
	}
}

// ResetAt must track when the oldest surviving entry ages out of the
// window, not the instant of the call itself: window_start + window_size is
// always algebraically equal to "now", so a hint derived from window_start
// alone would silently always read "right now" regardless of how full the
// log is.
func TestSlidingWindowLog_ResetAtTracksOldestEntry(t *testing.T) {
	cfg := throttle.NewStrategyConfig().WithLimit(10).WithWindowSize(60)
	strat, srv := newTestStrategyWithServer(t, throttle.SlidingWindowLog, cfg)
	ctx := context.Background()

	srv.SetTime(time.Unix(1000, 0))
	first, err := strat.Check(ctx, "u")
	if err != nil {
		t.Fatalf("first Check: %v", err)
	}
	wantResetAt := time.Unix(1060, 0)
	if resetAt, ok := first.ResetAt(); !ok || !resetAt.Equal(wantResetAt) {
		t.Fatalf("first ResetAt() = %v, ok=%v, want %v", resetAt, ok, wantResetAt)
	}

	// 30s later the oldest entry is unchanged, so the hint must not have
	// drifted to the call instant (1030), which is what window_start +
	// window_size always equals.
	srv.SetTime(time.Unix(1030, 0))
	second, err := strat.Check(ctx, "u")
	if err != nil {
		t.Fatalf("second Check: %v", err)
	}
	if resetAt, ok := second.ResetAt(); !ok || !resetAt.Equal(wantResetAt) {
		t.Fatalf("second ResetAt() = %v, ok=%v, want unchanged %v", resetAt, ok, wantResetAt)
	}
}

func TestSlidingWindowLog_ResetIdempotent(t *testing.T) {
	cfg := throttle.NewStrategyConfig().WithLimit(1).WithWindowSize(60)
	strat := newTestStrategy(t, throttle.SlidingWindowLog, cfg)
	ctx := context.Background()

	strat.Check(ctx, "u")
	if err := strat.Reset(ctx, "u"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if err := strat.Reset(ctx, "u"); err != nil {
		t.Fatalf("second Reset: %v", err)
	}

	res, err := strat.Check(ctx, "u")
	if err != nil {
		t.Fatalf("Check after reset: %v", err)
	}
	if !res.Admitted() {
		t.Errorf("expected admit on pristine state after reset")
	}
}
