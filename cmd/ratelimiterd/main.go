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

// Package main wires a Redis client, the five rate-limiting Strategies, and
// the HTTP API into a runnable server, with graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"throttle"
	"throttle/internal/ratelimiter/api"
	"throttle/internal/ratelimiter/kvs"
	"throttle/internal/ratelimiter/strategy"
)

func main() {
	redisAddr := flag.String("redis_addr", "127.0.0.1:6379", "Redis address used as the shared KVS")
	httpAddr := flag.String("http_addr", ":8080", "HTTP listen address (e.g., :8080)")

	tokenBucketCapacity := flag.Int64("token_bucket_capacity", 10, "Token Bucket: max tokens")
	tokenBucketRefill := flag.Float64("token_bucket_refill_rate", 1.0, "Token Bucket: tokens refilled per second")
	leakyBucketCapacity := flag.Int64("leaky_bucket_capacity", 10, "Leaky Bucket: max queue size")
	leakyBucketLeak := flag.Float64("leaky_bucket_leak_rate", 1.0, "Leaky Bucket: items leaked per second")
	windowLimit := flag.Int64("window_limit", 10, "Fixed Window / Sliding Window algorithms: request limit per window")
	windowSize := flag.Int64("window_size", 60, "Fixed Window / Sliding Window algorithms: window size in seconds")

	flag.Parse()

	// 1. Connect to the shared KVS. Both the Script Executor and every
	// Strategy it builds share this one client.
	redisClient := redis.NewClient(&redis.Options{Addr: *redisAddr})
	executor := kvs.New(redisClient)

	// 2. Per-kind defaults, overridable from flags; anything not listed here
	// falls back to NewStrategyConfig()'s built-in defaults.
	defaults := map[throttle.AlgorithmKind]*throttle.StrategyConfig{
		throttle.TokenBucket: throttle.NewStrategyConfig().
			WithCapacity(*tokenBucketCapacity).
			WithRefillRate(*tokenBucketRefill),
		throttle.LeakyBucket: throttle.NewStrategyConfig().
			WithCapacity(*leakyBucketCapacity).
			WithLeakRate(*leakyBucketLeak),
		throttle.FixedWindow: throttle.NewStrategyConfig().
			WithLimit(*windowLimit).
			WithWindowSize(*windowSize),
		throttle.SlidingWindowLog: throttle.NewStrategyConfig().
			WithLimit(*windowLimit).
			WithWindowSize(*windowSize),
		throttle.SlidingWindowCounter: throttle.NewStrategyConfig().
			WithLimit(*windowLimit).
			WithWindowSize(*windowSize),
	}

	// 3. The Limiter owns nothing Redis-specific itself; the factory closure
	// is the only place that connects the two.
	limiter := throttle.NewLimiter(
		func(kind throttle.AlgorithmKind, cfg *throttle.StrategyConfig) (throttle.Strategy, error) {
			return strategy.New(kind, cfg, executor)
		},
		defaults,
	)

	// 4. Wire the HTTP server.
	apiServer := api.NewServer(limiter)
	mux := http.NewServeMux()
	apiServer.RegisterRoutes(mux)
	httpServer := &http.Server{
		Addr:         *httpAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("throttle: listening on %s, KVS at %s\n", *httpAddr, *redisAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("throttle: could not listen on %s: %v", *httpAddr, err)
		}
	}()

	// 5. Graceful shutdown on SIGINT/SIGTERM.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	fmt.Println("\nthrottle: shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("throttle: server shutdown failed: %v", err)
	}
	if err := redisClient.Close(); err != nil {
		log.Printf("throttle: error closing redis client: %v", err)
	}

	fmt.Println("throttle: stopped.")
}
