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

// Package linearsolver is an in-process mpmodel.Solver.
//
// Linear relaxations are solved with a bounded-variable dual simplex on a dense gonum matrix.
// Integer variables are handled by a depth-first branch-and-bound on top of it, where each
// child restarts from the solved tableau of its parent. The gonum standard-form simplex backs
// up the tableau when it stalls. It is meant for the small models built in this repository;
// large models should go to a remote solver.
package linearsolver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	log "github.com/golang/glog"
	"github.com/mipkit/mip-kit/mipkit/mpmodel"
)

// ProblemType selects what a LinearSolver solves.
type ProblemType int

const (
	// LinearProgramming ignores integrality requirements and solves the LP relaxation.
	LinearProgramming ProblemType = iota
	// MixedIntegerProgramming enforces integrality with branch-and-bound.
	MixedIntegerProgramming
)

func (t ProblemType) String() string {
	switch t {
	case LinearProgramming:
		return "LINEAR_PROGRAMMING"
	case MixedIntegerProgramming:
		return "MIXED_INTEGER_PROGRAMMING"
	}
	return fmt.Sprintf("ProblemType(%d)", int(t))
}

// ErrUnsupportedProblemType is returned by New for unknown problem types.
var ErrUnsupportedProblemType = errors.New("unsupported problem type")

// SupportsProblemType reports whether New accepts `t`.
func SupportsProblemType(t ProblemType) bool {
	return t == LinearProgramming || t == MixedIntegerProgramming
}

// LinearSolver solves models in process. It holds no per-solve state and may be shared.
type LinearSolver struct {
	name        string
	problemType ProblemType
}

// New initializes a new linear solver, given a name and a problem type.
func New(name string, t ProblemType) (*LinearSolver, error) {
	if !SupportsProblemType(t) {
		return nil, fmt.Errorf("linear solver %q: %v: %w", name, t, ErrUnsupportedProblemType)
	}
	return &LinearSolver{name: name, problemType: t}, nil
}

// Name returns the name given to New.
func (ls *LinearSolver) Name() string {
	return ls.name
}

// ProblemType returns the problem type given to New.
func (ls *LinearSolver) ProblemType() ProblemType {
	return ls.problemType
}

// Solve implements mpmodel.Solver. The model is not modified.
//
// The search stops early, with a Feasible or NotSolved status, when the context is done, the
// time limit passes or the node limit is reached. A search stopped by its context reports the
// context error in Response.Interrupted. The returned error is non-nil only when a relaxation
// could not be solved numerically.
func (ls *LinearSolver) Solve(ctx context.Context, m *mpmodel.Model, params *mpmodel.Parameters) (*mpmodel.Response, error) {
	start := time.Now()
	p := params.WithDefaults()
	if p.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.TimeLimit)
		defer cancel()
	}

	if err := m.Validate(); err != nil {
		return &mpmodel.Response{Status: mpmodel.ModelInvalid, Diagnostic: err.Error(), WallTime: time.Since(start)}, nil
	}

	s := newSearch(m, p, ls.problemType == MixedIntegerProgramming)
	res, err := s.run(ctx)
	if err != nil {
		return nil, fmt.Errorf("linear solver %q: %w", ls.name, err)
	}
	res.WallTime = time.Since(start)
	const format = "linear solver %q: %v, objective %v, bound %v, %d nodes, %v"
	if p.EnableOutput {
		log.Infof(format, ls.name, res.Status, res.ObjectiveValue, res.BestBound, res.Nodes, res.WallTime)
	} else {
		log.V(1).Infof(format, ls.name, res.Status, res.ObjectiveValue, res.BestBound, res.Nodes, res.WallTime)
	}
	return res, nil
}

// node is an open subproblem of the branch-and-bound tree.
type node struct {
	lb, ub []float64
	// bound is the relaxation value of the parent, a lower bound for this node.
	bound float64
	depth int
	// warm is the solved tableau of the parent, whose bounds differ on variable branch only.
	// It is nil for the root and below nodes solved without a tableau.
	warm   *tableau
	branch int
}

type search struct {
	m       *mpmodel.Model
	p       mpmodel.Parameters
	integer []bool
	// sense is 1 for minimization and -1 for maximization; the search always minimizes
	// sense·objective.
	sense float64
	obj   []float64
	rows  []boundedRow

	nodes        int
	incumbent    []float64
	incumbentVal float64
}

func newSearch(m *mpmodel.Model, p mpmodel.Parameters, enforceIntegrality bool) *search {
	s := &search{
		m:            m,
		p:            p,
		integer:      make([]bool, len(m.Variables)),
		sense:        1,
		obj:          make([]float64, len(m.Variables)),
		rows:         activeRows(m),
		incumbentVal: math.Inf(1),
	}
	if m.Objective.Maximize {
		s.sense = -1
	}
	for i, ind := range m.Objective.VarIndices {
		s.obj[ind] += s.sense * m.Objective.Coefficients[i]
	}
	if enforceIntegrality {
		for i, v := range m.Variables {
			s.integer[i] = v.Integer
		}
	}
	return s
}

// pruneGap returns how close a bound must come to the incumbent to be pruned.
func (s *search) pruneGap() float64 {
	if math.IsInf(s.incumbentVal, 1) {
		return 0
	}
	return math.Max(s.p.RelativeMIPGap*math.Abs(s.incumbentVal), 1e-9)
}

func (s *search) rootNode() (node, bool) {
	n := len(s.m.Variables)
	root := node{lb: make([]float64, n), ub: make([]float64, n), bound: math.Inf(-1)}
	tol := s.p.IntegralityTolerance
	for i, v := range s.m.Variables {
		root.lb[i], root.ub[i] = v.LowerBound, v.UpperBound
		if s.integer[i] {
			root.lb[i] = math.Ceil(root.lb[i] - tol)
			root.ub[i] = math.Floor(root.ub[i] + tol)
			if root.lb[i] > root.ub[i] {
				return root, false
			}
		}
	}
	return root, true
}

// branchVariable returns the integer variable whose value is farthest from an integer, or -1
// when all integer variables are integral within tolerance.
func (s *search) branchVariable(values []float64) int {
	best, bestFrac := -1, s.p.IntegralityTolerance
	for i, v := range values {
		if !s.integer[i] {
			continue
		}
		frac := math.Abs(v - math.Round(v))
		if frac > bestFrac {
			best, bestFrac = i, frac
		}
	}
	return best
}

// relax solves the relaxation of a node. A warm start that stalls is retried from the slack
// basis, and a cold start that stalls goes to the standard-form simplex; the returned tableau
// is nil in that last case.
func (s *search) relax(nd node) (*relaxation, *tableau, error) {
	var t *tableau
	if nd.warm != nil {
		t = nd.warm.clone()
		t.setBounds(nd.branch, nd.lb[nd.branch], nd.ub[nd.branch])
	} else {
		t = newTableau(len(s.m.Variables), s.obj, s.rows, nd.lb, nd.ub)
	}
	status := t.solve(t.iterationLimit())
	if status == lpStalled && nd.warm != nil {
		log.V(2).Infof("node %d: warm start stalled after %d pivots, restarting", s.nodes, t.pivots)
		t = newTableau(len(s.m.Variables), s.obj, s.rows, nd.lb, nd.ub)
		status = t.solve(t.iterationLimit())
	}
	switch status {
	case lpInfeasible:
		return &relaxation{status: lpInfeasible}, nil, nil
	case lpStalled:
		log.V(1).Infof("node %d: dual simplex stalled, falling back to standard form", s.nodes)
		rel, err := solveRelaxation(s.m, s.obj, nd.lb, nd.ub, s.p.IntegralityTolerance)
		return rel, nil, err
	}
	if t.unbounded() {
		return &relaxation{status: lpUnbounded}, nil, nil
	}
	return &relaxation{status: lpOptimal, value: t.objective(), values: t.values()}, t, nil
}

func (s *search) accept(values []float64) {
	x := make([]float64, len(values))
	for i, v := range values {
		vb := s.m.Variables[i]
		if s.integer[i] {
			v = math.Round(v)
		}
		x[i] = math.Max(vb.LowerBound, math.Min(vb.UpperBound, v))
	}
	val := s.sense * (s.m.ObjectiveValue(x) - s.m.Objective.Offset)
	if val < s.incumbentVal {
		s.incumbent, s.incumbentVal = x, val
		if s.p.EnableOutput {
			log.Infof("node %d: new incumbent %v", s.nodes, s.m.ObjectiveValue(x))
		}
	}
}

func (s *search) run(ctx context.Context) (*mpmodel.Response, error) {
	root, ok := s.rootNode()
	if !ok {
		return &mpmodel.Response{Status: mpmodel.Infeasible, Diagnostic: "integer variable with no integral value in its bounds"}, nil
	}

	stack := []node{root}
	var stopped string
	var interrupted error
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			stopped, interrupted = err.Error(), err
			break
		}
		if s.p.MaxNodes > 0 && s.nodes >= s.p.MaxNodes {
			stopped = fmt.Sprintf("node limit %d reached", s.p.MaxNodes)
			break
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if nd.bound >= s.incumbentVal-s.pruneGap() {
			continue
		}

		s.nodes++
		rel, t, err := s.relax(nd)
		if err != nil {
			return nil, fmt.Errorf("node %d at depth %d: %w", s.nodes, nd.depth, err)
		}
		switch rel.status {
		case lpInfeasible:
			continue
		case lpUnbounded:
			return &mpmodel.Response{Status: mpmodel.Unbounded, Nodes: s.nodes}, nil
		}
		if rel.value >= s.incumbentVal-s.pruneGap() {
			continue
		}

		bv := s.branchVariable(rel.values)
		if bv < 0 {
			s.accept(rel.values)
			continue
		}
		v := rel.values[bv]
		down := node{lb: nd.lb, ub: append([]float64(nil), nd.ub...), bound: rel.value, depth: nd.depth + 1, warm: t, branch: bv}
		up := node{lb: append([]float64(nil), nd.lb...), ub: nd.ub, bound: rel.value, depth: nd.depth + 1, warm: t, branch: bv}
		down.ub[bv] = math.Floor(v)
		up.lb[bv] = math.Ceil(v)
		// The child nearer to the relaxation value is explored first.
		if v-math.Floor(v) < 0.5 {
			stack = append(stack, up, down)
		} else {
			stack = append(stack, down, up)
		}
	}

	res := &mpmodel.Response{Nodes: s.nodes, Diagnostic: stopped, Interrupted: interrupted}
	bound := s.incumbentVal
	for _, nd := range stack {
		bound = math.Min(bound, nd.bound)
	}
	if stopped == "" {
		bound = s.incumbentVal
	}
	switch {
	case s.incumbent == nil && stopped == "":
		res.Status = mpmodel.Infeasible
		return res, nil
	case s.incumbent == nil:
		res.Status = mpmodel.NotSolved
		return res, nil
	case stopped == "":
		res.Status = mpmodel.Optimal
	default:
		res.Status = mpmodel.Feasible
	}
	res.VariableValues = s.incumbent
	res.ObjectiveValue = s.m.ObjectiveValue(s.incumbent)
	res.BestBound = s.sense*bound + s.m.Objective.Offset
	return res, nil
}
