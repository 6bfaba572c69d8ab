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
	"math"
	"strconv"
	"time"

	"throttle"
	"throttle/internal/ratelimiter/kvs"
)

// tokenBucketScript refills tokens proportionally to elapsed time and
// consumes one token per admitted request. tokens is persisted via
// tostring() so its fractional part survives the round trip to the KVS and
// back; last_refreshed is persisted the same way for the same reason.
const tokenBucketScript = `
local tokens_key = KEYS[1]
local ts_key = KEYS[2]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])

local t = redis.call('TIME')
local now = tonumber(t[1]) + tonumber(t[2]) / 1000000

local tokens = tonumber(redis.call('GET', tokens_key))
local last_refreshed = tonumber(redis.call('GET', ts_key))
if tokens == nil then tokens = capacity end
if last_refreshed == nil then last_refreshed = now end

local delta = now - last_refreshed
if delta < 0 then delta = 0 end
tokens = math.min(capacity, tokens + delta * refill_rate)

local admitted = 0
if tokens >= 1 then
  admitted = 1
  tokens = tokens - 1
end

redis.call('SET', tokens_key, tostring(tokens), 'EX', ARGV[3])
redis.call('SET', ts_key, tostring(now), 'EX', ARGV[3])

return {admitted, tostring(tokens), capacity, math.floor(now)}
`

type tokenBucket struct {
	capacity   int64
	refillRate float64
	executor   *kvs.Executor
}

func newTokenBucket(cfg *throttle.StrategyConfig, executor *kvs.Executor) *tokenBucket {
	return &tokenBucket{
		capacity:   cfg.Capacity(),
		refillRate: cfg.RefillRate(),
		executor:   executor,
	}
}

func (s *tokenBucket) Describe() throttle.AlgorithmKind { return throttle.TokenBucket }

func (s *tokenBucket) Check(ctx context.Context, identifier string) (*throttle.Result, error) {
	tokensKey := key(throttle.TokenBucket, identifier, "tokens")
	tsKey := key(throttle.TokenBucket, identifier, "timestamp")

	elems, err := s.executor.ExecuteScriptRaw(ctx, tokenBucketScript,
		[]string{tokensKey, tsKey}, s.capacity, s.refillRate, bucketTTLSeconds)
	if err != nil {
		return nil, err
	}
	if len(elems) != 4 {
		return nil, &throttle.StorageError{Op: "decode", Key: tokensKey, Err: errUnexpectedShape(len(elems), 4)}
	}

	admitted := elems[0].(int64) == 1
	tokens, perr := strconv.ParseFloat(elems[1].(string), 64)
	if perr != nil {
		return nil, &throttle.StorageError{Op: "decode", Key: tokensKey, Err: perr}
	}
	capacity := elems[2].(int64)
	now := elems[3].(int64)

	current := capacity - int64(math.Floor(tokens))
	var resetAt time.Time
	hasReset := false
	if remaining := float64(capacity) - tokens; remaining > 0 && s.refillRate > 0 {
		waitSeconds := math.Ceil(remaining / s.refillRate)
		resetAt = time.Unix(now+int64(waitSeconds), 0)
		hasReset = true
	}

	metadata := throttle.NewMetadata().WithTokens(tokens)
	return throttle.NewResult(admitted, throttle.TokenBucket, current, capacity, resetAt, hasReset, metadata), nil
}

func (s *tokenBucket) Reset(ctx context.Context, identifier string) error {
	return s.executor.DeleteKeys(ctx,
		key(throttle.TokenBucket, identifier, "tokens"),
		key(throttle.TokenBucket, identifier, "timestamp"),
	)
}
