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

// Package portfolio selects projects under a budget to maximize the total return.
//
// Two strategies are provided and must agree: Solve formulates a MILP, and Enumerate checks
// every subset, which is only practical for a handful of projects.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/mipkit/mip-kit/mipkit/mpmodel"
	"gonum.org/v1/gonum/stat/combin"
)

// MaxEnumerationSize is the largest number of projects Enumerate accepts.
const MaxEnumerationSize = 20

var (
	// ErrInvalidProblem is wrapped by every error returned from Problem.Validate.
	ErrInvalidProblem = errors.New("invalid portfolio problem")
	// ErrTooLarge is returned by Enumerate for more than MaxEnumerationSize projects.
	ErrTooLarge = errors.New("too many projects to enumerate")
)

// Project is an investment opportunity.
type Project struct {
	Name       string  `yaml:"name" json:"name"`
	Investment float64 `yaml:"investment" json:"investment"`
	Return     float64 `yaml:"return" json:"return"`
}

// Problem is a set of projects and a budget.
type Problem struct {
	Projects []Project `yaml:"projects" json:"projects"`
	Budget   float64   `yaml:"budget" json:"budget"`
}

// ReferenceProblem returns three projects under a budget of 1000.
func ReferenceProblem() Problem {
	return Problem{
		Projects: []Project{
			{"A", 500, 600},
			{"B", 400, 500},
			{"C", 300, 400},
		},
		Budget: 1000,
	}
}

// Validate checks that investments, returns and the budget are finite and non-negative.
func (p Problem) Validate() error {
	ok := func(v float64) bool { return v >= 0 && !math.IsInf(v, 1) }
	if !ok(p.Budget) {
		return fmt.Errorf("budget %v: %w", p.Budget, ErrInvalidProblem)
	}
	for i, pr := range p.Projects {
		if !ok(pr.Investment) || !ok(pr.Return) {
			return fmt.Errorf("project %d (%q) has investment %v and return %v: %w", i, pr.Name, pr.Investment, pr.Return, ErrInvalidProblem)
		}
	}
	return nil
}

// Portfolio is a set of selected projects.
type Portfolio struct {
	Status mpmodel.Status
	// Projects holds the selected project indices in increasing order.
	Projects   []int
	Investment float64
	Return     float64
}

// Names returns the names of the selected projects.
func (pf *Portfolio) Names(p Problem) []string {
	names := make([]string, len(pf.Projects))
	for i, pr := range pf.Projects {
		names[i] = p.Projects[pr].Name
	}
	return names
}

func newPortfolio(p Problem, projects []int) *Portfolio {
	sort.Ints(projects)
	pf := &Portfolio{Projects: projects}
	for _, i := range projects {
		pf.Investment += p.Projects[i].Investment
		pf.Return += p.Projects[i].Return
	}
	return pf
}

// Enumerate checks every subset of projects, by increasing size, and returns the first one
// with the highest return within the budget. The empty portfolio is the fallback.
func Enumerate(p Problem) (*Portfolio, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	n := len(p.Projects)
	if n > MaxEnumerationSize {
		return nil, fmt.Errorf("%d projects, at most %d: %w", n, MaxEnumerationSize, ErrTooLarge)
	}
	best := newPortfolio(p, nil)
	for k := 1; k <= n; k++ {
		for _, subset := range combin.Combinations(n, k) {
			pf := newPortfolio(p, subset)
			if pf.Investment <= p.Budget && pf.Return > best.Return {
				best = pf
			}
		}
	}
	best.Status = mpmodel.Optimal
	return best, nil
}

// Formulation is the MILP model of a Problem.
type Formulation struct {
	Model   *mpmodel.Model
	Problem Problem
	invest  []mpmodel.Var
}

// Build formulates `p` with one 0-1 variable per project, named after its index since
// project names need not be unique.
func Build(p Problem) (*Formulation, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	mb := mpmodel.NewModelBuilder("portfolio")
	f := &Formulation{Problem: p, invest: make([]mpmodel.Var, len(p.Projects))}
	ret, cost := mpmodel.NewLinearExpr(), mpmodel.NewLinearExpr()
	for i, pr := range p.Projects {
		f.invest[i] = mb.NewBoolVar().WithName(fmt.Sprintf("invest_%d", i))
		ret.AddTerm(f.invest[i], pr.Return)
		cost.AddTerm(f.invest[i], pr.Investment)
	}
	mb.AddLessOrEqual(cost, mpmodel.NewConstant(p.Budget)).WithName("budget")
	mb.Maximize(ret)
	m, err := mb.Model()
	if err != nil {
		return nil, fmt.Errorf("building portfolio failed: %w", err)
	}
	f.Model = m
	return f, nil
}

// Extract reads the selected projects off `resp`. A selection over the budget is an error.
func (f *Formulation) Extract(resp *mpmodel.Response) (*Portfolio, error) {
	if len(resp.VariableValues) != f.Model.NumVariables() {
		return nil, fmt.Errorf("got %d values for %d projects", len(resp.VariableValues), len(f.invest))
	}
	var projects []int
	for i, v := range f.invest {
		if mpmodel.SolutionBooleanValue(resp, v) {
			projects = append(projects, i)
		}
	}
	pf := newPortfolio(f.Problem, projects)
	pf.Status = resp.Status
	if b := f.Problem.Budget; pf.Investment > b+1e-9*math.Max(1, b) {
		return nil, fmt.Errorf("portfolio invests %v, over budget %v", pf.Investment, b)
	}
	return pf, nil
}

// Solve builds, solves and extracts `p`.
func Solve(ctx context.Context, p Problem, s mpmodel.Solver, params *mpmodel.Parameters) (*Portfolio, error) {
	f, err := Build(p)
	if err != nil {
		return nil, err
	}
	resp, err := mpmodel.SolveOptimal(ctx, s, f.Model, params)
	if err != nil {
		return nil, err
	}
	return f.Extract(resp)
}
