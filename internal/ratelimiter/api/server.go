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

// Package api implements the public-facing HTTP server for the rate limiter.
// It parses the algorithm and identifier off the request, calls into the
// throttle core, and renders the bit-exact response contract external
// rate-limit tooling expects; the core itself knows nothing about HTTP.
package api

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"throttle"
	"throttle/internal/ratelimiter/telemetry/metrics"
)

// Server handles the HTTP requests for the rate limiter service.
type Server struct {
	limiter *throttle.Limiter
}

// NewServer wraps a configured Limiter.
func NewServer(limiter *throttle.Limiter) *Server {
	return &Server{limiter: limiter}
}

// RegisterRoutes sets up the HTTP routes for the server on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/check", s.handleCheck)
	mux.HandleFunc("/reset", s.handleReset)
	mux.Handle("/metrics", metrics.Handler())
}

// handleCheck evaluates one request against the algorithm and identifier
// given as query parameters and renders the decision as the standard
// rate-limit header contract. An absent resetAt must never render as an
// empty-value header, so the header is only set when one is present.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	kind, identifier, err := parseParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	result := s.limiter.Check(r.Context(), kind, identifier)
	outcome := metrics.Admitted
	switch {
	case !result.Admitted():
		outcome = metrics.Denied
	case result.Limit() == math.MaxInt64:
		// The Limiter's fail-open Result reports the maximum limit.
		outcome = metrics.FailOpen
	}
	metrics.ObserveDecision(kind.String(), outcome, time.Since(start).Seconds())

	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit()))
	w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining()))
	w.Header().Set("X-RateLimit-Algorithm", result.Algorithm().String())
	if resetAt, ok := result.ResetAt(); ok {
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetAt.Unix()))
	}

	if !result.Admitted() {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, "Too Many Requests")
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// handleReset clears all KVS state for the given algorithm and identifier.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	kind, identifier, err := parseParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	s.limiter.Reset(r.Context(), kind, identifier)
	metrics.ObserveReset(kind.String())
	w.WriteHeader(http.StatusNoContent)
}

// parseParams extracts and validates the "algorithm" and "identifier" query
// parameters. Every failure here is a ValidationError so the caller always
// gets HTTP 400, never a 500, for a malformed request.
func parseParams(r *http.Request) (throttle.AlgorithmKind, string, error) {
	identifier := r.URL.Query().Get("identifier")
	if identifier == "" {
		return "", "", &throttle.ValidationError{Field: "identifier", Reason: "required"}
	}

	kind := throttle.AlgorithmKind(r.URL.Query().Get("algorithm"))
	if !kind.Valid() {
		return "", "", &throttle.ValidationError{Field: "algorithm", Value: kind, Reason: "unrecognized algorithm kind"}
	}

	return kind, identifier, nil
}

// writeError renders a ValidationError as HTTP 400 with its safe-to-expose
// message; anything else is collapsed to a fixed, non-revealing HTTP 500 so
// that internal details never reach a client.
func writeError(w http.ResponseWriter, err error) {
	if ve, ok := err.(*throttle.ValidationError); ok {
		http.Error(w, ve.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// ListenAndServe starts the HTTP server on the specified address, with
// timeouts sized for a rate-limiting hot path: requests should be fast, so a
// client that can't complete one quickly is more likely broken than slow.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	fmt.Printf("Rate limiter API server listening on %s\n", addr)
	return httpServer.ListenAndServe()
}
