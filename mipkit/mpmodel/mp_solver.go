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

package mpmodel

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/golang/glog"
)

// Status is the outcome of a solve.
type Status int

const (
	// NotSolved means no conclusion was reached, e.g. a limit was hit before any
	// feasible solution was found.
	NotSolved Status = iota
	// Optimal means the values are a proven optimal solution.
	Optimal
	// Feasible means the values are feasible but optimality was not proven.
	Feasible
	// Infeasible means the model has no feasible solution.
	Infeasible
	// Unbounded means the objective can be improved without limit.
	Unbounded
	// ModelInvalid means the model was rejected before solving.
	ModelInvalid
	// Abnormal means the solver stopped on an internal failure.
	Abnormal
)

var statusNames = map[Status]string{
	NotSolved:    "not solved",
	Optimal:      "optimal",
	Feasible:     "feasible",
	Infeasible:   "infeasible",
	Unbounded:    "unbounded",
	ModelInvalid: "model invalid",
	Abnormal:     "abnormal",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// HasSolution reports whether a response with this status carries variable values.
func (s Status) HasSolution() bool {
	return s == Optimal || s == Feasible
}

// ParseStatus returns the Status whose String form is `s`.
func ParseStatus(s string) (Status, error) {
	for st, n := range statusNames {
		if n == s {
			return st, nil
		}
	}
	return NotSolved, fmt.Errorf("unknown status %q", s)
}

// MarshalText encodes the status as its String form.
func (s Status) MarshalText() ([]byte, error) {
	if _, ok := statusNames[s]; !ok {
		return nil, fmt.Errorf("unknown status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status from its String form.
func (s *Status) UnmarshalText(text []byte) error {
	st, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

var (
	// ErrInfeasible is wrapped by Response.Err for Infeasible responses.
	ErrInfeasible = errors.New("model is infeasible")
	// ErrUnbounded is wrapped by Response.Err for Unbounded responses.
	ErrUnbounded = errors.New("model is unbounded")
	// ErrNotOptimal is wrapped by Response.Err for every other non-optimal response.
	ErrNotOptimal = errors.New("solve did not prove optimality")
	// ErrSolverFailure is wrapped by SolveOptimal when the solver itself fails.
	ErrSolverFailure = errors.New("solver failure")
)

// Response holds the result of a solve.
type Response struct {
	Status Status
	// ObjectiveValue is the objective at VariableValues, offset included.
	ObjectiveValue float64
	// BestBound is the best proven bound on the objective.
	BestBound float64
	// VariableValues holds one value per model variable when Status.HasSolution().
	VariableValues []float64
	WallTime       time.Duration
	// Nodes is the number of search nodes explored, when the backend reports it.
	Nodes int
	// Diagnostic is a free-form message from the backend.
	Diagnostic string
	// Interrupted is the context error that cut the search short, if any.
	Interrupted error
}

// Err returns nil for an Optimal response and a terminal error otherwise.
func (r *Response) Err() error {
	var err error
	switch r.Status {
	case Optimal:
		return nil
	case Infeasible:
		err = ErrInfeasible
	case Unbounded:
		err = ErrUnbounded
	default:
		err = fmt.Errorf("status %v: %w", r.Status, ErrNotOptimal)
	}
	if r.Interrupted != nil {
		err = fmt.Errorf("%w: %w", err, r.Interrupted)
	}
	if r.Diagnostic != "" {
		return fmt.Errorf("%s: %w", r.Diagnostic, err)
	}
	return err
}

// Parameters holds backend-independent solve parameters. Zero fields select the backend
// default.
type Parameters struct {
	// TimeLimit bounds the wall time of a solve.
	TimeLimit time.Duration
	// RelativeMIPGap stops the search once |incumbent - bound| <= gap·|incumbent|.
	RelativeMIPGap float64
	// IntegralityTolerance is the largest distance to an integer still considered integral.
	IntegralityTolerance float64
	// FeasibilityTolerance is how far SolveOptimal lets a returned solution stray outside the
	// model before rejecting it. See Model.CheckFeasible.
	FeasibilityTolerance float64
	// MaxNodes bounds the number of branch-and-bound nodes.
	MaxNodes int
	// EnableOutput makes the backend log its progress.
	EnableOutput bool
}

const (
	defaultRelativeMIPGap       = 1e-9
	defaultIntegralityTolerance = 1e-6
	defaultFeasibilityTolerance = 1e-6
)

// WithDefaults returns a copy of `p` with zero fields replaced by defaults. A nil `p` yields
// the defaults.
func (p *Parameters) WithDefaults() Parameters {
	var r Parameters
	if p != nil {
		r = *p
	}
	if r.RelativeMIPGap <= 0 {
		r.RelativeMIPGap = defaultRelativeMIPGap
	}
	if r.IntegralityTolerance <= 0 {
		r.IntegralityTolerance = defaultIntegralityTolerance
	}
	if r.FeasibilityTolerance <= 0 {
		r.FeasibilityTolerance = defaultFeasibilityTolerance
	}
	return r
}

// Solver solves models. A non-nil error means the solver itself failed; conclusions about the
// model are reported through Response.Status.
type Solver interface {
	Solve(ctx context.Context, m *Model, params *Parameters) (*Response, error)
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(ctx context.Context, m *Model, params *Parameters) (*Response, error)

// Solve calls f.
func (f SolverFunc) Solve(ctx context.Context, m *Model, params *Parameters) (*Response, error) {
	return f(ctx, m, params)
}

// SolveOptimal solves `m` with `s` and returns the response only when it is Optimal and its
// values satisfy the model. Solver failures, including an Optimal answer that violates the
// model, are wrapped with ErrSolverFailure; any other status is returned as the terminal error
// of Response.Err. Nothing is retried.
func SolveOptimal(ctx context.Context, s Solver, m *Model, params *Parameters) (*Response, error) {
	log.V(1).Infof("solving %q: %d variables, %d constraints", m.Name, m.NumVariables(), m.NumConstraints())
	res, err := s.Solve(ctx, m, params)
	if err != nil {
		return nil, fmt.Errorf("solving %q failed: %w: %w", m.Name, ErrSolverFailure, err)
	}
	if err := res.Err(); err != nil {
		return res, fmt.Errorf("solving %q: %w", m.Name, err)
	}
	if len(res.VariableValues) != m.NumVariables() {
		return res, fmt.Errorf("solving %q failed: %w: got %d values for %d variables",
			m.Name, ErrSolverFailure, len(res.VariableValues), m.NumVariables())
	}
	if err := m.CheckFeasible(res.VariableValues, params.WithDefaults().FeasibilityTolerance); err != nil {
		return res, fmt.Errorf("solving %q failed: %w: optimal answer rejected: %w", m.Name, ErrSolverFailure, err)
	}
	return res, nil
}

// SolutionValue returns the value of LinearArgument `la` in the response.
func SolutionValue(r *Response, la LinearArgument) float64 {
	return la.evaluateSolutionValue(r.VariableValues)
}

// SolutionBooleanValue returns the value of the 0/1 variable `v` in the response.
func SolutionBooleanValue(r *Response, v Var) bool {
	return v.evaluateSolutionValue(r.VariableValues) > 0.5
}
