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
	"time"

	"throttle"
	"throttle/internal/ratelimiter/kvs"
)

// slidingWindowLogScript evicts expired entries from the sorted log, then
// (if under limit) inserts a new member scored by the current instant. The
// member string includes a per-identifier sequence number, not just the
// timestamp: two requests arriving within the same microsecond would
// otherwise collide on the same score/member pair and the sorted set would
// silently collapse them into one entry, undercounting admissions.
const slidingWindowLogScript = `
local log_key = KEYS[1]
local seq_key = KEYS[2]
local limit = tonumber(ARGV[1])
local window_size = tonumber(ARGV[2])

local t = redis.call('TIME')
local now = tonumber(t[1]) + tonumber(t[2]) / 1000000
local window_start = now - window_size

redis.call('ZREMRANGEBYSCORE', log_key, '-inf', window_start)
local current = redis.call('ZCARD', log_key)

local admitted = 0
if current < limit then
  admitted = 1
  local seq = redis.call('INCR', seq_key)
  local member = t[1] .. ':' .. t[2] .. ':' .. seq
  redis.call('ZADD', log_key, now, member)
  current = redis.call('ZCARD', log_key)
  redis.call('EXPIRE', log_key, window_size * 2)
  redis.call('EXPIRE', seq_key, window_size * 2)
end

-- Capacity is restored once the oldest surviving entry ages out of the
-- window, not "right now" (window_start is always now - window_size).
local oldest_score = -1
local oldest = redis.call('ZRANGE', log_key, 0, 0, 'WITHSCORES')
if oldest[2] then
  oldest_score = tonumber(oldest[2])
end

return {admitted, current, limit, math.floor(window_start), math.floor(oldest_score)}
`

type slidingWindowLog struct {
	limit      int64
	windowSize int64
	executor   *kvs.Executor
}

func newSlidingWindowLog(cfg *throttle.StrategyConfig, executor *kvs.Executor) *slidingWindowLog {
	return &slidingWindowLog{
		limit:      cfg.Limit(),
		windowSize: cfg.WindowSize(),
		executor:   executor,
	}
}

func (s *slidingWindowLog) Describe() throttle.AlgorithmKind { return throttle.SlidingWindowLog }

func (s *slidingWindowLog) Check(ctx context.Context, identifier string) (*throttle.Result, error) {
	logKey := key(throttle.SlidingWindowLog, identifier, "log")
	seqKey := key(throttle.SlidingWindowLog, identifier, "seq")

	nums, err := s.executor.ExecuteScript(ctx, slidingWindowLogScript,
		[]string{logKey, seqKey}, s.limit, s.windowSize)
	if err != nil {
		return nil, err
	}
	if len(nums) != 5 {
		return nil, &throttle.StorageError{Op: "decode", Key: logKey, Err: errUnexpectedShape(len(nums), 5)}
	}

	admitted := nums[0] == 1
	current := nums[1]
	limit := nums[2]
	windowStart := nums[3]
	oldestScore := nums[4]

	var resetAt time.Time
	hasReset := oldestScore >= 0
	if hasReset {
		resetAt = time.Unix(oldestScore+s.windowSize, 0)
	}

	metadata := throttle.NewMetadata().WithWindowStart(windowStart)
	return throttle.NewResult(admitted, throttle.SlidingWindowLog, current, limit, resetAt, hasReset, metadata), nil
}

func (s *slidingWindowLog) Reset(ctx context.Context, identifier string) error {
	return s.executor.DeleteKeys(ctx,
		key(throttle.SlidingWindowLog, identifier, "log"),
		key(throttle.SlidingWindowLog, identifier, "seq"),
	)
}
