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

// Package kvs wraps a Redis client with the three capabilities every
// rate-limiting Strategy needs: atomic script execution, non-blocking key
// enumeration, and a shared clock. It is the only package in this module
// that talks to Redis directly.
package kvs

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"throttle"
)

// scanBatchSize bounds how many keys FindKeys requests per SCAN round-trip.
// Redis's SCAN is already non-blocking regardless of COUNT, but a small
// bounded batch keeps any one round-trip cheap and predictable.
const scanBatchSize = 100

// Executor compiles, caches, and runs Lua scripts against a Redis client, and
// enumerates keys without ever issuing a blocking KEYS command.
type Executor struct {
	client redis.UniversalClient

	// scripts caches one *redis.Script per distinct script source. Lookups
	// are lock-free on every repeat hit; a miss races to construct the
	// *redis.Script but LoadOrStore guarantees only one winning handle is
	// ever observed by later readers, matching §4.1's caching requirement.
	// redis.Script itself resolves EVALSHA with an EVAL fallback, so the
	// cache only needs to hold the compiled handle, not a separate SHA map.
	scripts sync.Map
}

// New wraps an existing Redis client. Callers own the client's lifecycle
// (construction and Close).
func New(client redis.UniversalClient) *Executor {
	return &Executor{client: client}
}

// scriptFor returns the cached *redis.Script for text, compiling it on first
// use. Fast path mirrors the Load-then-LoadOrStore idiom used for the
// Strategy cache: no allocation once a script has already been cached.
func (e *Executor) scriptFor(text string) *redis.Script {
	if actual, ok := e.scripts.Load(text); ok {
		return actual.(*redis.Script)
	}
	actual, _ := e.scripts.LoadOrStore(text, redis.NewScript(text))
	return actual.(*redis.Script)
}

// ExecuteScriptRaw runs text against keys and args, returning each returned
// element as either an int64 or a string depending on how the script emitted
// it. Scripts that need to preserve a double's full precision across the KVS
// boundary should return it via tostring(); every other returned value
// should be a plain Lua integer, which go-redis decodes natively as int64.
func (e *Executor) ExecuteScriptRaw(ctx context.Context, text string, keys []string, args ...interface{}) ([]interface{}, error) {
	result, err := e.scriptFor(text).Run(ctx, e.client, keys, args...).Result()
	if err != nil {
		return nil, e.wrapFailure("eval", firstKey(keys), err)
	}

	elems, ok := result.([]interface{})
	if !ok {
		// A script that returns a single scalar instead of a table; wrap it
		// in a one-element slice so callers have one shape to decode.
		return []interface{}{result}, nil
	}
	return elems, nil
}

// ExecuteScript runs text and filters the result down to the numeric
// elements, discarding anything the script returned as a string. Strategies
// that don't need sub-integer precision use this convenience instead of
// ExecuteScriptRaw.
func (e *Executor) ExecuteScript(ctx context.Context, text string, keys []string, args ...interface{}) ([]int64, error) {
	elems, err := e.ExecuteScriptRaw(ctx, text, keys, args...)
	if err != nil {
		return nil, err
	}

	out := make([]int64, 0, len(elems))
	for _, elem := range elems {
		if n, ok := elem.(int64); ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// DeleteKeys removes the given keys. A no-op, not an error, when keys is
// empty — callers building a delete set from a scan that found nothing
// should not need to special-case that.
func (e *Executor) DeleteKeys(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := e.client.Del(ctx, keys...).Err(); err != nil {
		return e.wrapFailure("del", firstKey(keys), err)
	}
	return nil
}

// FindKeys enumerates every key matching pattern using a cursor-based SCAN,
// never a single-shot KEYS sweep: Redis is single-threaded, and a full
// namespace sweep would block every other client for the duration. The
// returned set may contain transient duplicates across cursor iterations;
// callers that need a set should dedupe.
func (e *Executor) FindKeys(ctx context.Context, pattern string) ([]string, error) {
	var (
		cursor uint64
		found  []string
	)
	for {
		select {
		case <-ctx.Done():
			return nil, e.wrapFailure("scan", pattern, ctx.Err())
		default:
		}

		keys, next, err := e.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return nil, e.wrapFailure("scan", pattern, err)
		}
		found = append(found, keys...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return found, nil
}

// Now returns the KVS's own clock as seconds and the microsecond remainder,
// per §4.2's requirement that every script source "now" from the KVS rather
// than the calling process.
func (e *Executor) Now(ctx context.Context) (seconds int64, micros int64, err error) {
	t, terr := e.client.Time(ctx).Result()
	if terr != nil {
		return 0, 0, e.wrapFailure("time", "", terr)
	}
	return t.Unix(), int64(t.Nanosecond() / 1000), nil
}

func (e *Executor) wrapFailure(op, key string, cause error) error {
	return &throttle.StorageError{Op: op, Key: key, Err: fmt.Errorf("kvs: %w", cause)}
}

func firstKey(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}
