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

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"throttle"
)

type fakeStrategy struct {
	kind   throttle.AlgorithmKind
	result *throttle.Result
}

func (f *fakeStrategy) Check(ctx context.Context, identifier string) (*throttle.Result, error) {
	return f.result, nil
}
func (f *fakeStrategy) Reset(ctx context.Context, identifier string) error { return nil }
func (f *fakeStrategy) Describe() throttle.AlgorithmKind                   { return f.kind }

func newTestServer(admitted bool) *Server {
	resetAt := time.Unix(1700000000, 0)
	result := throttle.NewResult(admitted, throttle.TokenBucket, 10, 10, resetAt, !admitted, nil)
	factory := func(kind throttle.AlgorithmKind, cfg *throttle.StrategyConfig) (throttle.Strategy, error) {
		return &fakeStrategy{kind: kind, result: result}, nil
	}
	return NewServer(throttle.NewLimiter(factory, nil))
}

func TestHandleCheck_Admitted(t *testing.T) {
	s := newTestServer(true)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/check?algorithm=token_bucket&identifier=u", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "10" {
		t.Errorf("X-RateLimit-Limit = %q, want 10", got)
	}
	if got := rec.Header().Get("X-RateLimit-Algorithm"); got != "token_bucket" {
		t.Errorf("X-RateLimit-Algorithm = %q, want token_bucket", got)
	}
}

func TestHandleCheck_Denied(t *testing.T) {
	s := newTestServer(false)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/check?algorithm=token_bucket&identifier=u", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Reset"); got != "1700000000" {
		t.Errorf("X-RateLimit-Reset = %q, want 1700000000", got)
	}
}

func TestHandleCheck_MissingIdentifier(t *testing.T) {
	s := newTestServer(true)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/check?algorithm=token_bucket", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleCheck_UnknownAlgorithm(t *testing.T) {
	s := newTestServer(true)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/check?algorithm=bogus&identifier=u", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleCheck_NoResetHeaderWhenAbsent(t *testing.T) {
	result := throttle.NewResult(true, throttle.FixedWindow, 1, 10, time.Time{}, false, nil)
	factory := func(kind throttle.AlgorithmKind, cfg *throttle.StrategyConfig) (throttle.Strategy, error) {
		return &fakeStrategy{kind: kind, result: result}, nil
	}
	s := NewServer(throttle.NewLimiter(factory, nil))
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/check?algorithm=fixed_window&identifier=u", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if _, ok := rec.Result().Header["X-Ratelimit-Reset"]; ok {
		t.Errorf("X-RateLimit-Reset present, want absent when resetAt is absent")
	}
}

func TestHandleReset(t *testing.T) {
	s := newTestServer(true)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/reset?algorithm=token_bucket&identifier=u", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}
