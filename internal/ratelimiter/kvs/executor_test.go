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

package kvs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"throttle"
)

func newTestExecutor(t *testing.T) (*Executor, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client), srv
}

func TestExecuteScriptRaw_MixedTypes(t *testing.T) {
	ex, _ := newTestExecutor(t)
	ctx := context.Background()

	const script = `return {1, tostring(3.14159), "abc"}`
	elems, err := ex.ExecuteScriptRaw(ctx, script, nil)
	if err != nil {
		t.Fatalf("ExecuteScriptRaw: %v", err)
	}
	if len(elems) != 3 {
		t.Fatalf("got %d elements, want 3", len(elems))
	}
	if n, ok := elems[0].(int64); !ok || n != 1 {
		t.Errorf("elems[0] = %#v, want int64(1)", elems[0])
	}
	if s, ok := elems[1].(string); !ok || s != "3.14159" {
		t.Errorf("elems[1] = %#v, want string 3.14159", elems[1])
	}
	if s, ok := elems[2].(string); !ok || s != "abc" {
		t.Errorf("elems[2] = %#v, want string abc", elems[2])
	}
}

func TestExecuteScript_FiltersNonNumeric(t *testing.T) {
	ex, _ := newTestExecutor(t)
	ctx := context.Background()

	const script = `return {1, "skip-me", 2}`
	nums, err := ex.ExecuteScript(ctx, script, nil)
	if err != nil {
		t.Fatalf("ExecuteScript: %v", err)
	}
	if len(nums) != 2 || nums[0] != 1 || nums[1] != 2 {
		t.Fatalf("got %v, want [1 2]", nums)
	}
}

func TestScriptCache_SameTextSameHandle(t *testing.T) {
	ex, _ := newTestExecutor(t)
	const script = `return 1`
	first := ex.scriptFor(script)
	second := ex.scriptFor(script)
	if first != second {
		t.Fatalf("scriptFor returned distinct handles for identical script text")
	}
}

func TestDeleteKeys(t *testing.T) {
	ex, srv := newTestExecutor(t)
	ctx := context.Background()

	srv.Set("rate_limit:token_bucket:u:tokens", "5")
	if err := ex.DeleteKeys(ctx, "rate_limit:token_bucket:u:tokens"); err != nil {
		t.Fatalf("DeleteKeys: %v", err)
	}
	if srv.Exists("rate_limit:token_bucket:u:tokens") {
		t.Fatalf("key still exists after DeleteKeys")
	}

	// Empty input is a no-op, not an error.
	if err := ex.DeleteKeys(ctx); err != nil {
		t.Fatalf("DeleteKeys with no keys: %v", err)
	}
}

func TestFindKeys_CursorEnumeratesAll(t *testing.T) {
	ex, srv := newTestExecutor(t)
	ctx := context.Background()

	const total = 250 // exceeds scanBatchSize so we exercise multiple SCAN rounds
	want := make(map[string]bool, total)
	for i := 0; i < total; i++ {
		key := fmt.Sprintf("rate_limit:fixed_window:u:%d", i)
		srv.Set(key, "0")
		want[key] = true
	}

	found, err := ex.FindKeys(ctx, "rate_limit:fixed_window:u:*")
	if err != nil {
		t.Fatalf("FindKeys: %v", err)
	}

	got := make(map[string]bool, len(found))
	for _, k := range found {
		got[k] = true
	}
	for k := range want {
		if !got[k] {
			t.Errorf("missing key %s from FindKeys result", k)
		}
	}
}

func TestNow_ReturnsServerClock(t *testing.T) {
	ex, srv := newTestExecutor(t)
	ctx := context.Background()

	secs, micros, err := ex.Now(ctx)
	if err != nil {
		t.Fatalf("Now: %v", err)
	}
	if secs <= 0 {
		t.Errorf("secs = %d, want > 0", secs)
	}
	if micros < 0 || micros >= 1_000_000 {
		t.Errorf("micros = %d, want in [0, 1e6)", micros)
	}
	_ = srv
}

func TestStorageFailure_WrapsAndMatchesSentinel(t *testing.T) {
	ex, srv := newTestExecutor(t)
	ctx := context.Background()

	srv.Close() // force every subsequent call to fail

	_, err := ex.ExecuteScriptRaw(ctx, `return 1`, nil)
	if err == nil {
		t.Fatalf("expected an error once the KVS connection is closed")
	}
	if !errors.Is(err, throttle.ErrStorage) {
		t.Errorf("errors.Is(err, throttle.ErrStorage) = false, want true; err = %v", err)
	}

	var storageErr *throttle.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("errors.As(err, *StorageError) failed")
	}
	if storageErr.Op != "eval" {
		t.Errorf("storageErr.Op = %q, want eval", storageErr.Op)
	}
}
