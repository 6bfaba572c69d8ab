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
	"time"

	"throttle"
	"throttle/internal/ratelimiter/kvs"
)

// leakyBucketScript advances last_leak by exactly leaked/leak_rate seconds
// rather than snapping it to now: assigning now would discard whatever
// fractional time remained below one whole leak unit, producing cumulative
// under-leakage across repeated calls.
const leakyBucketScript = `
local queue_key = KEYS[1]
local ts_key = KEYS[2]
local capacity = tonumber(ARGV[1])
local leak_rate = tonumber(ARGV[2])

local t = redis.call('TIME')
local now = tonumber(t[1]) + tonumber(t[2]) / 1000000

local queue_size = tonumber(redis.call('GET', queue_key))
local last_leak = tonumber(redis.call('GET', ts_key))
if queue_size == nil then queue_size = 0 end
if last_leak == nil then last_leak = now end

local elapsed = now - last_leak
if elapsed < 0 then elapsed = 0 end
local leaked = math.floor(elapsed * leak_rate)

if leaked > 0 then
  queue_size = queue_size - leaked
  if queue_size < 0 then queue_size = 0 end
  last_leak = last_leak + (leaked / leak_rate)
end

local admitted = 0
if queue_size < capacity then
  admitted = 1
  queue_size = queue_size + 1
end

redis.call('SET', queue_key, queue_size, 'EX', ARGV[3])
redis.call('SET', ts_key, tostring(last_leak), 'EX', ARGV[3])

return {admitted, queue_size, capacity, math.floor(now)}
`

type leakyBucket struct {
	capacity int64
	leakRate float64
	executor *kvs.Executor
}

func newLeakyBucket(cfg *throttle.StrategyConfig, executor *kvs.Executor) *leakyBucket {
	return &leakyBucket{
		capacity: cfg.Capacity(),
		leakRate: cfg.LeakRate(),
		executor: executor,
	}
}

func (s *leakyBucket) Describe() throttle.AlgorithmKind { return throttle.LeakyBucket }

func (s *leakyBucket) Check(ctx context.Context, identifier string) (*throttle.Result, error) {
	queueKey := key(throttle.LeakyBucket, identifier, "queue")
	tsKey := key(throttle.LeakyBucket, identifier, "timestamp")

	nums, err := s.executor.ExecuteScript(ctx, leakyBucketScript,
		[]string{queueKey, tsKey}, s.capacity, s.leakRate, bucketTTLSeconds)
	if err != nil {
		return nil, err
	}
	if len(nums) != 4 {
		return nil, &throttle.StorageError{Op: "decode", Key: queueKey, Err: errUnexpectedShape(len(nums), 4)}
	}

	admitted := nums[0] == 1
	queueSize := nums[1]
	capacity := nums[2]
	now := nums[3]

	resetAt := time.Unix(now+int64(math.Ceil(float64(queueSize)/s.leakRate)), 0)

	metadata := throttle.NewMetadata().WithQueueSize(queueSize)
	return throttle.NewResult(admitted, throttle.LeakyBucket, queueSize, capacity, resetAt, true, metadata), nil
}

func (s *leakyBucket) Reset(ctx context.Context, identifier string) error {
	return s.executor.DeleteKeys(ctx,
		key(throttle.LeakyBucket, identifier, "queue"),
		key(throttle.LeakyBucket, identifier, "timestamp"),
	)
}
