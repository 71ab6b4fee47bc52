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

// Package pipeline runs the build, solve and extract pipeline of every problem kind behind one
// entry point, recording metrics as it goes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/golang/glog"
	"github.com/mipkit/mip-kit/internal/config"
	"github.com/mipkit/mip-kit/internal/metrics"
	"github.com/mipkit/mip-kit/mipkit/linearsolver"
	"github.com/mipkit/mip-kit/mipkit/mpmodel"
	"github.com/mipkit/mip-kit/mipkit/remip"
)

// Kind names a problem kind.
type Kind string

// Problem kinds.
const (
	CVRP       Kind = "cvrp"
	Knapsack   Kind = "knapsack"
	Portfolio  Kind = "portfolio"
	Production Kind = "production"
	ProductMix Kind = "productmix"
)

// ErrUnknownKind is returned for a kind that is not one of Kinds().
var ErrUnknownKind = errors.New("unknown problem kind")

// Kinds returns every problem kind.
func Kinds() []Kind {
	return []Kind{CVRP, Knapsack, Portfolio, Production, ProductMix}
}

// ParseKind returns the kind named `s`.
func ParseKind(s string) (Kind, error) {
	if _, ok := kinds[Kind(s)]; !ok {
		return "", fmt.Errorf("%w %q, want one of %v", ErrUnknownKind, s, Kinds())
	}
	return Kind(s), nil
}

// Decoder decodes an instance into the problem value it is given. A nil Decoder selects the
// reference instance of the kind.
type Decoder func(v any) error

// Result is the outcome of a pipeline run.
type Result struct {
	Kind      Kind
	Status    mpmodel.Status
	Objective float64
	// Variables maps each model variable name to its value.
	Variables map[string]float64
	// Solution is the problem-specific solution, e.g. *vrp.Solution.
	Solution any
	Elapsed  time.Duration
}

// SolverFactory returns the solver for models of `kind`.
type SolverFactory func(kind Kind, t linearsolver.ProblemType) (mpmodel.Solver, error)

// Runner runs pipelines with the solvers of NewSolver.
type Runner struct {
	NewSolver SolverFactory
	Params    *mpmodel.Parameters
}

// NewRunner returns a runner solving with the backend selected by `cfg`.
func NewRunner(cfg config.SolverConfig) *Runner {
	r := &Runner{Params: cfg.Parameters()}
	switch cfg.Backend {
	case config.BackendReMIP:
		client := remip.NewClient(cfg.ReMIPURL,
			remip.WithStream(cfg.Stream),
			remip.WithMaxRetries(cfg.MaxRetries),
			remip.WithLogHandler(func(e remip.LogEvent) { log.V(1).Infof("remip: %s", e.Message) }),
			remip.WithMetricHandler(func(e remip.MetricEvent) {
				log.V(1).Infof("remip: iteration %d objective %v gap %v", e.Iteration, e.ObjectiveValue, e.Gap)
			}))
		r.NewSolver = func(Kind, linearsolver.ProblemType) (mpmodel.Solver, error) { return client, nil }
	default:
		r.NewSolver = func(kind Kind, t linearsolver.ProblemType) (mpmodel.Solver, error) {
			return linearsolver.New(string(kind), t)
		}
	}
	return r
}

// Model decodes and builds the model of `kind` without solving it.
func (r *Runner) Model(kind Kind, decode Decoder) (*mpmodel.Model, error) {
	j, err := build(kind, decode)
	if err != nil {
		return nil, err
	}
	return j.model, nil
}

// Run decodes, builds, solves and extracts an instance of `kind`. A non-Optimal solve returns
// the terminal error of mpmodel.SolveOptimal.
func (r *Runner) Run(ctx context.Context, kind Kind, decode Decoder) (*Result, error) {
	j, err := build(kind, decode)
	if err != nil {
		return nil, err
	}
	metrics.ObserveModel(string(kind), j.model.NumVariables(), j.model.NumConstraints())

	s, err := r.NewSolver(kind, j.problemType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", kind, mpmodel.ErrSolverFailure, err)
	}
	start := time.Now()
	resp, err := mpmodel.SolveOptimal(ctx, s, j.model, r.Params)
	elapsed := time.Since(start)
	status := "error"
	if resp != nil {
		status = resp.Status.String()
	}
	metrics.ObserveSolve(string(kind), status, elapsed)
	if err != nil {
		return nil, err
	}

	sol, err := j.extract(resp)
	if err != nil {
		return nil, err
	}
	log.V(1).Infof("%s: %v objective %v in %v", kind, resp.Status, resp.ObjectiveValue, elapsed)
	return &Result{
		Kind:      kind,
		Status:    resp.Status,
		Objective: resp.ObjectiveValue,
		Variables: variables(j.model, resp.VariableValues),
		Solution:  sol,
		Elapsed:   elapsed,
	}, nil
}

// variables keys the values by variable name. Unnamed variables become "v<index>" and a name
// shared by several variables gets a "#<index>" suffix on each of them.
func variables(m *mpmodel.Model, values []float64) map[string]float64 {
	seen := make(map[string]int, len(m.Variables))
	for _, v := range m.Variables {
		seen[v.Name]++
	}
	out := make(map[string]float64, len(values))
	for i, v := range m.Variables {
		name := v.Name
		switch {
		case name == "":
			name = fmt.Sprintf("v%d", i)
		case seen[name] > 1:
			name = fmt.Sprintf("%s#%d", name, i)
		}
		out[name] = values[i]
	}
	return out
}
