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

// Package metrics exposes Prometheus counters and histograms for the
// rate-limiting core: how many requests each algorithm admitted, denied, or
// let through on a storage fail-open, and how long a decision took.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	decisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "throttle_decisions_total",
		Help: "Total check decisions, labeled by algorithm and outcome (admitted, denied, fail_open).",
	}, []string{"algorithm", "outcome"})

	checkDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "throttle_check_duration_seconds",
		Help:    "Latency of Limiter.Check, labeled by algorithm.",
		Buckets: prometheus.DefBuckets,
	}, []string{"algorithm"})

	resetsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "throttle_resets_total",
		Help: "Total reset calls, labeled by algorithm.",
	}, []string{"algorithm"})
)

func init() {
	prometheus.MustRegister(decisionsTotal, checkDuration, resetsTotal)
}

// Outcome labels a single Check decision.
type Outcome string

const (
	Admitted Outcome = "admitted"
	Denied   Outcome = "denied"
	FailOpen Outcome = "fail_open"
)

// ObserveDecision records one check outcome for algorithm and the duration
// the decision took.
func ObserveDecision(algorithm string, outcome Outcome, durationSeconds float64) {
	decisionsTotal.WithLabelValues(algorithm, string(outcome)).Inc()
	checkDuration.WithLabelValues(algorithm).Observe(durationSeconds)
}

// ObserveReset records a reset call for algorithm.
func ObserveReset(algorithm string) {
	resetsTotal.WithLabelValues(algorithm).Inc()
}

// Handler returns the HTTP handler serving the Prometheus exposition format,
// for mounting at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
