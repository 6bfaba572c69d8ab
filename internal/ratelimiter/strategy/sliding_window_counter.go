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

// slidingWindowCounterScript estimates the sliding window's occupancy as a
// linear interpolation between the previous and current fixed windows,
// smoothing the boundary artifact Fixed Window accepts. The script resolves
// now and the window ids itself from the KVS clock and builds both window
// keys by string concatenation, so the whole decision is one atomic round
// trip, the same way Fixed Window's script does.
const slidingWindowCounterScript = `
local prefix = KEYS[1]
local limit = tonumber(ARGV[1])
local window_size = tonumber(ARGV[2])

local now = redis.call('TIME')
local now_sec = tonumber(now[1])
local cur_id = math.floor(now_sec / window_size)
local prev_id = cur_id - 1
local prev_key = prefix .. ':' .. prev_id
local cur_key = prefix .. ':' .. cur_id

local prev_count = tonumber(redis.call('GET', prev_key))
local cur_count = tonumber(redis.call('GET', cur_key))
if prev_count == nil then prev_count = 0 end
if cur_count == nil then cur_count = 0 end

local elapsed_frac = (now_sec - cur_id * window_size) / window_size
local weighted = prev_count * (1 - elapsed_frac) + cur_count

local admitted = 0
if weighted < limit then
  admitted = 1
  cur_count = redis.call('INCR', cur_key)
  redis.call('EXPIRE', cur_key, window_size * 2)
  weighted = prev_count * (1 - elapsed_frac) + cur_count
end

return {admitted, math.floor(weighted), limit, prev_count, cur_count, cur_id}
`

type slidingWindowCounter struct {
	limit      int64
	windowSize int64
	executor   *kvs.Executor
}

func newSlidingWindowCounter(cfg *throttle.StrategyConfig, executor *kvs.Executor) *slidingWindowCounter {
	return &slidingWindowCounter{
		limit:      cfg.Limit(),
		windowSize: cfg.WindowSize(),
		executor:   executor,
	}
}

func (s *slidingWindowCounter) Describe() throttle.AlgorithmKind { return throttle.SlidingWindowCounter }

func (s *slidingWindowCounter) Check(ctx context.Context, identifier string) (*throttle.Result, error) {
	prefix := keyPrefix(throttle.SlidingWindowCounter, identifier)
	nums, err := s.executor.ExecuteScript(ctx, slidingWindowCounterScript, []string{prefix}, s.limit, s.windowSize)
	if err != nil {
		return nil, err
	}
	if len(nums) != 6 {
		return nil, &throttle.StorageError{Op: "decode", Key: prefix, Err: errUnexpectedShape(len(nums), 6)}
	}

	admitted := nums[0] == 1
	weighted := nums[1]
	limit := nums[2]
	prevCount := nums[3]
	curCount := nums[4]
	curID := nums[5]
	resetAt := time.Unix((curID+1)*s.windowSize, 0)

	metadata := throttle.NewMetadata().
		WithPreviousWindowCount(prevCount).
		WithCurrentWindowCount(curCount)
	return throttle.NewResult(admitted, throttle.SlidingWindowCounter, weighted, limit, resetAt, true, metadata), nil
}

// Reset scans both the previous- and current-window keys (and any stale
// windows left by a prior run) matching this identifier, for the same
// reason Fixed Window's Reset does: the exact window id isn't known without
// a clock read, so a pattern scan stands in for a direct delete.
func (s *slidingWindowCounter) Reset(ctx context.Context, identifier string) error {
	pattern := key(throttle.SlidingWindowCounter, identifier, "*")
	keys, err := s.executor.FindKeys(ctx, pattern)
	if err != nil {
		return err
	}
	return s.executor.DeleteKeys(ctx, keys...)
}
