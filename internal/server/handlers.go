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

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	log "github.com/golang/glog"
	"github.com/mipkit/mip-kit/internal/pipeline"
	"github.com/mipkit/mip-kit/internal/store"
	"github.com/mipkit/mip-kit/mipkit/mpmodel"
	"golang.org/x/sync/errgroup"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("encode failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// errorStatus maps a pipeline error onto an HTTP status code. A search cut short by a deadline
// is a timeout whatever the backend. Extraction consistency failures and anything
// unrecognized are internal errors.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrUnknownKind):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrInvalidInstance):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, mpmodel.ErrInfeasible), errors.Is(err, mpmodel.ErrUnbounded), errors.Is(err, mpmodel.ErrNotOptimal):
		return http.StatusUnprocessableEntity
	case errors.Is(err, mpmodel.ErrSolverFailure):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	code := errorStatus(err)
	if code >= http.StatusInternalServerError {
		log.Errorf("method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
	writeError(w, r, code, err.Error())
}

// jsonDecoder returns a strict decoder of `raw`, or nil for an empty document.
func jsonDecoder(raw []byte) pipeline.Decoder {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	return func(v any) error {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		return dec.Decode(v)
	}
}

func toSolution(res *pipeline.Result) store.Solution {
	return store.Solution{
		Summary: store.Summary{
			Kind:             string(res.Kind),
			Status:           res.Status.String(),
			ObjectiveValue:   res.Objective,
			SolveTimeSeconds: res.Elapsed.Seconds(),
		},
		Variables: res.Variables,
		Result:    res.Solution,
	}
}

func includeZeros(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("include_zero_variables"))
	return ok
}

func present(sol store.Solution, r *http.Request) store.Solution {
	if includeZeros(r) {
		return sol
	}
	return sol.NonZero()
}

func health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) solve(w http.ResponseWriter, r *http.Request) {
	kind, err := pipeline.ParseKind(r.PathValue("kind"))
	if err != nil {
		writePipelineError(w, r, err)
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	res, err := s.runner.Run(r.Context(), kind, jsonDecoder(raw))
	if err != nil {
		writePipelineError(w, r, err)
		return
	}
	sol := toSolution(res)
	sol.Summary = s.store.Put(sessionID(r), sol)
	writeJSON(w, r, http.StatusOK, present(sol, r))
}

type batchItem struct {
	Kind     string          `json:"kind"`
	Instance json.RawMessage `json:"instance,omitempty"`
}

type batchRequest struct {
	Problems []batchItem `json:"problems"`
}

type batchResponse struct {
	Solutions []store.Solution `json:"solutions"`
}

// solveBatch solves every problem of the request concurrently. The batch fails as a whole on the
// first failing problem and nothing is stored.
func (s *Server) solveBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid batch: "+err.Error())
		return
	}
	if len(req.Problems) == 0 || len(req.Problems) > maxBatchSize {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("batch must hold 1 to %d problems, got %d", maxBatchSize, len(req.Problems)))
		return
	}
	kinds := make([]pipeline.Kind, len(req.Problems))
	for i, p := range req.Problems {
		k, err := pipeline.ParseKind(p.Kind)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("problem %d: %v", i, err))
			return
		}
		kinds[i] = k
	}

	results := make([]*pipeline.Result, len(req.Problems))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(batchWorkers)
	for i, p := range req.Problems {
		g.Go(func() error {
			res, err := s.runner.Run(ctx, kinds[i], jsonDecoder(p.Instance))
			if err != nil {
				return fmt.Errorf("problem %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		writePipelineError(w, r, err)
		return
	}

	resp := batchResponse{Solutions: make([]store.Solution, len(results))}
	for i, res := range results {
		sol := toSolution(res)
		sol.Summary = s.store.Put(sessionID(r), sol)
		resp.Solutions[i] = present(sol, r)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) listSolutions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{"solutions": s.store.List(sessionID(r))})
}

func (s *Server) getSolution(w http.ResponseWriter, r *http.Request) {
	sol, err := s.store.Get(sessionID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, present(sol, r))
}

func (s *Server) clearSession(w http.ResponseWriter, r *http.Request) {
	n := s.store.ClearSession(r.PathValue("id"))
	writeJSON(w, r, http.StatusOK, map[string]int{"deleted": n})
}
