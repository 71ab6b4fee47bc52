// Copyright 2010-2024 Google LLC
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

// Package server exposes the solve pipelines over HTTP.
//
// Routes:
//
//	POST   /v1/solve/{kind}      solve one instance; an empty body solves the reference instance
//	POST   /v1/solve             solve a batch of instances concurrently
//	GET    /v1/solutions         list the solutions of the session
//	GET    /v1/solutions/{id}    get a solution; zero variables are omitted unless
//	                             include_zero_variables=true
//	DELETE /v1/sessions/{id}     drop every solution of a session
//	GET    /healthz
//	GET    /metrics
//
// The session is named by the X-Session-ID header.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	log "github.com/golang/glog"
	"github.com/mipkit/mip-kit/internal/config"
	"github.com/mipkit/mip-kit/internal/metrics"
	"github.com/mipkit/mip-kit/internal/pipeline"
	"github.com/mipkit/mip-kit/internal/store"
	"golang.org/x/time/rate"
)

const (
	// SessionHeader names the session of a request.
	SessionHeader  = "X-Session-ID"
	defaultSession = "default"
	maxBodyBytes   = 8 << 20
	maxBatchSize   = 16
	batchWorkers   = 4
)

// Server serves the HTTP API.
type Server struct {
	runner  *pipeline.Runner
	store   *store.Store
	limiter *rate.Limiter
}

// New returns a server running pipelines with `runner` and keeping solutions in `st`.
func New(cfg config.ServerConfig, runner *pipeline.Runner, st *store.Store) *Server {
	s := &Server{runner: runner, store: st}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst)
	}
	return s
}

// Handler returns the routed API wrapped in logging and metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /v1/solve/{kind}", s.limited(http.HandlerFunc(s.solve)))
	mux.Handle("POST /v1/solve", s.limited(http.HandlerFunc(s.solveBatch)))
	mux.HandleFunc("GET /v1/solutions", s.listSolutions)
	mux.HandleFunc("GET /v1/solutions/{id}", s.getSolution)
	mux.HandleFunc("DELETE /v1/sessions/{id}", s.clearSession)
	mux.HandleFunc("GET /healthz", health)
	mux.Handle("GET /metrics", metrics.Handler())
	return loggingMiddleware(mux)
}

// ListenAndServe serves on `addr` until `ctx` is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Infof("server listening addr=%s", addr)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) limited(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionID(r *http.Request) string {
	if id := r.Header.Get(SessionHeader); id != "" {
		return id
	}
	return defaultSession
}
