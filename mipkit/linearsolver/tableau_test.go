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

package linearsolver

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/mipkit/mip-kit/mipkit/mpmodel"
)

// twoVarModel is `max x + 2y, -x + 2y <= 4, 3x + y <= 9, x, y >= 0`, optimal at (2, 3).
func twoVarModel(t *testing.T) (*mpmodel.Model, *search) {
	t.Helper()
	inf := math.Inf(1)
	mb := mpmodel.NewModelBuilder("two_var")
	x := mb.NewContinuousVar(0, inf)
	y := mb.NewContinuousVar(0, inf)
	mb.AddLessOrEqual(mpmodel.NewLinearExpr().AddTerm(x, -1).AddTerm(y, 2), mpmodel.NewConstant(4))
	mb.AddLessOrEqual(mpmodel.NewLinearExpr().AddTerm(x, 3).Add(y), mpmodel.NewConstant(9))
	mb.Maximize(mpmodel.NewLinearExpr().Add(x).AddTerm(y, 2))
	m, err := mb.Model()
	if err != nil {
		t.Fatalf("Model() returned with unexpected error %v", err)
	}
	return m, newSearch(m, (*mpmodel.Parameters)(nil).WithDefaults(), false)
}

func TestTableau_Solve(t *testing.T) {
	m, s := twoVarModel(t)
	root, _ := s.rootNode()
	tab := newTableau(len(m.Variables), s.obj, s.rows, root.lb, root.ub)
	if got := tab.solve(tab.iterationLimit()); got != lpOptimal {
		t.Fatalf("solve() = %v, want %v", got, lpOptimal)
	}
	if tab.unbounded() {
		t.Errorf("unbounded() = true, want false")
	}
	if got := tab.objective(); math.Abs(got+8) > tolerance {
		t.Errorf("objective() = %v, want -8", got)
	}
	if diff := cmp.Diff([]float64{2, 3}, tab.values(), cmpopts.EquateApprox(0, tolerance)); diff != "" {
		t.Errorf("values() returned with unexpected diff (-want+got):\n%s", diff)
	}
}

func TestTableau_WarmStart(t *testing.T) {
	m, s := twoVarModel(t)
	root, _ := s.rootNode()
	parent := newTableau(len(m.Variables), s.obj, s.rows, root.lb, root.ub)
	if got := parent.solve(parent.iterationLimit()); got != lpOptimal {
		t.Fatalf("solve() = %v, want %v", got, lpOptimal)
	}

	// Capping y at 2 moves the optimum to (7/3, 2).
	lb := append([]float64(nil), root.lb...)
	ub := append([]float64(nil), root.ub...)
	ub[1] = 2
	warm := parent.clone()
	warm.setBounds(1, lb[1], ub[1])
	if got := warm.solve(warm.iterationLimit()); got != lpOptimal {
		t.Fatalf("warm solve() = %v, want %v", got, lpOptimal)
	}
	cold := newTableau(len(m.Variables), s.obj, s.rows, lb, ub)
	if got := cold.solve(cold.iterationLimit()); got != lpOptimal {
		t.Fatalf("cold solve() = %v, want %v", got, lpOptimal)
	}

	want := []float64{7.0 / 3, 2}
	for name, tab := range map[string]*tableau{"warm": warm, "cold": cold} {
		if got := tab.objective(); math.Abs(got+19.0/3) > tolerance {
			t.Errorf("%s objective() = %v, want %v", name, got, -19.0/3)
		}
		if diff := cmp.Diff(want, tab.values(), cmpopts.EquateApprox(0, tolerance)); diff != "" {
			t.Errorf("%s values() returned with unexpected diff (-want+got):\n%s", name, diff)
		}
	}
	if got := parent.objective(); math.Abs(got+8) > tolerance {
		t.Errorf("parent objective() = %v after clone, want -8", got)
	}
}

func TestTableau_Refactor(t *testing.T) {
	m, s := twoVarModel(t)
	root, _ := s.rootNode()
	tab := newTableau(len(m.Variables), s.obj, s.rows, root.lb, root.ub)
	tab.solve(tab.iterationLimit())
	want := tab.values()
	if !tab.refactor() {
		t.Fatalf("refactor() = false, want true")
	}
	if diff := cmp.Diff(want, tab.values(), cmpopts.EquateApprox(0, tolerance)); diff != "" {
		t.Errorf("values() changed by refactor() (-want+got):\n%s", diff)
	}
	for j, b := range tab.basis {
		if tab.status[b] != basic {
			t.Errorf("basis[%d] = %d has status %v, want basic", j, b, tab.status[b])
		}
	}
}

func TestTableau_Verdicts(t *testing.T) {
	inf := math.Inf(1)
	testCases := []struct {
		name          string
		build         func(mb *mpmodel.Builder)
		wantStatus    lpStatus
		wantUnbounded bool
	}{
		{
			name: "Infeasible",
			build: func(mb *mpmodel.Builder) {
				x := mb.NewContinuousVar(0, 2)
				y := mb.NewContinuousVar(0, 2)
				mb.AddGreaterOrEqual(mpmodel.NewLinearExpr().AddSum(x, y), mpmodel.NewConstant(5))
			},
			wantStatus: lpInfeasible,
		},
		{
			name: "Unbounded",
			build: func(mb *mpmodel.Builder) {
				x := mb.NewContinuousVar(0, inf)
				y := mb.NewContinuousVar(0, inf)
				mb.AddLessOrEqual(mpmodel.NewLinearExpr().Add(x).AddTerm(y, -1), mpmodel.NewConstant(1))
				mb.Maximize(x)
			},
			wantStatus:    lpOptimal,
			wantUnbounded: true,
		},
		{
			name: "FreeVariables",
			build: func(mb *mpmodel.Builder) {
				x := mb.NewContinuousVar(-inf, inf)
				y := mb.NewContinuousVar(-inf, inf)
				mb.AddLinearConstraint(mpmodel.NewLinearExpr().Add(x).AddTerm(y, -1), -1, 1)
				mb.AddLessOrEqual(mpmodel.NewLinearExpr().AddSum(x, y), mpmodel.NewConstant(4))
				mb.Maximize(x)
			},
			wantStatus: lpOptimal,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			mb := mpmodel.NewModelBuilder(test.name)
			test.build(mb)
			m, err := mb.Model()
			if err != nil {
				t.Fatalf("Model() returned with unexpected error %v", err)
			}
			s := newSearch(m, (*mpmodel.Parameters)(nil).WithDefaults(), false)
			root, _ := s.rootNode()
			tab := newTableau(len(m.Variables), s.obj, s.rows, root.lb, root.ub)
			if got := tab.solve(tab.iterationLimit()); got != test.wantStatus {
				t.Fatalf("solve() = %v, want %v", got, test.wantStatus)
			}
			if test.wantStatus != lpOptimal {
				return
			}
			if got := tab.unbounded(); got != test.wantUnbounded {
				t.Errorf("unbounded() = %v, want %v", got, test.wantUnbounded)
			}
		})
	}
}

// The standard-form fallback must agree with the tableau.
func TestSolveRelaxation(t *testing.T) {
	m, s := twoVarModel(t)
	root, _ := s.rootNode()
	capped := append([]float64(nil), root.ub...)
	capped[1] = 2
	testCases := []struct {
		name       string
		ub         []float64
		wantValue  float64
		wantValues []float64
	}{
		{name: "Root", ub: root.ub, wantValue: -8, wantValues: []float64{2, 3}},
		{name: "Capped", ub: capped, wantValue: -19.0 / 3, wantValues: []float64{7.0 / 3, 2}},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			rel, err := solveRelaxation(m, s.obj, root.lb, test.ub, tolerance)
			if err != nil {
				t.Fatalf("solveRelaxation() returned with unexpected error %v", err)
			}
			if rel.status != lpOptimal {
				t.Fatalf("solveRelaxation() status = %v, want %v", rel.status, lpOptimal)
			}
			if math.Abs(rel.value-test.wantValue) > tolerance {
				t.Errorf("solveRelaxation() value = %v, want %v", rel.value, test.wantValue)
			}
			if diff := cmp.Diff(test.wantValues, rel.values, cmpopts.EquateApprox(0, tolerance)); diff != "" {
				t.Errorf("solveRelaxation() values returned with unexpected diff (-want+got):\n%s", diff)
			}
		})
	}
}
