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

package portfolio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mipkit/mip-kit/mipkit/linearsolver"
	"github.com/mipkit/mip-kit/mipkit/mpmodel"
)

func newSolver(t *testing.T) *linearsolver.LinearSolver {
	t.Helper()
	s, err := linearsolver.New("portfolio", linearsolver.MixedIntegerProgramming)
	if err != nil {
		t.Fatalf("linearsolver.New() returned unexpected error %v", err)
	}
	return s
}

func TestEnumerate(t *testing.T) {
	testCases := []struct {
		name string
		p    Problem
		want *Portfolio
	}{
		{
			name: "Reference",
			p:    ReferenceProblem(),
			want: &Portfolio{Status: mpmodel.Optimal, Projects: []int{0, 1}, Investment: 900, Return: 1100},
		},
		{
			name: "NothingAffordable",
			p:    Problem{Projects: []Project{{"A", 500, 600}}, Budget: 100},
			want: &Portfolio{Status: mpmodel.Optimal, Investment: 0, Return: 0},
		},
		{
			name: "Everything",
			p:    Problem{Projects: []Project{{"A", 1, 2}, {"B", 1, 3}}, Budget: 2},
			want: &Portfolio{Status: mpmodel.Optimal, Projects: []int{0, 1}, Investment: 2, Return: 5},
		},
		{
			name: "SmallerSubsetWinsTies",
			p:    Problem{Projects: []Project{{"A", 2, 5}, {"B", 1, 2}, {"C", 1, 3}}, Budget: 2},
			want: &Portfolio{Status: mpmodel.Optimal, Projects: []int{0}, Investment: 2, Return: 5},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Enumerate(tc.p)
			if err != nil {
				t.Fatalf("Enumerate() returned unexpected error %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Enumerate() returned with unexpected diff (-want+got):\n%s", diff)
			}
		})
	}
}

func TestEnumerate_TooLarge(t *testing.T) {
	p := Problem{Projects: make([]Project, MaxEnumerationSize+1), Budget: 1}
	if _, err := Enumerate(p); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Enumerate() = %v, want an error wrapping ErrTooLarge", err)
	}
}

func TestSolve_AgreesWithEnumerate(t *testing.T) {
	problems := []Problem{
		ReferenceProblem(),
		{Projects: []Project{{"A", 500, 600}}, Budget: 100},
		{
			Projects: []Project{
				{"A", 7, 10}, {"B", 5, 8}, {"C", 4, 7}, {"D", 3, 3}, {"E", 2, 4}, {"F", 6, 9},
			},
			Budget: 12,
		},
	}
	for i, p := range problems {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			want, err := Enumerate(p)
			if err != nil {
				t.Fatalf("Enumerate() returned unexpected error %v", err)
			}
			got, err := Solve(context.Background(), p, newSolver(t), nil)
			if err != nil {
				t.Fatalf("Solve() returned unexpected error %v", err)
			}
			if math.Abs(got.Return-want.Return) > 1e-9 {
				t.Errorf("Solve() return = %v, Enumerate() return = %v", got.Return, want.Return)
			}
			if got.Investment > p.Budget {
				t.Errorf("Solve() invests %v over budget %v", got.Investment, p.Budget)
			}
		})
	}
}

// everything answers Optimal with every project selected.
var everything = mpmodel.SolverFunc(func(_ context.Context, m *mpmodel.Model, _ *mpmodel.Parameters) (*mpmodel.Response, error) {
	values := make([]float64, m.NumVariables())
	for i := range values {
		values[i] = 1
	}
	return &mpmodel.Response{Status: mpmodel.Optimal, VariableValues: values, ObjectiveValue: m.ObjectiveValue(values)}, nil
})

func TestSolve_RejectsOverBudget(t *testing.T) {
	p := ReferenceProblem()
	if _, err := Solve(context.Background(), p, everything, nil); !errors.Is(err, mpmodel.ErrSolverFailure) {
		t.Errorf("Solve() = %v, want an error wrapping mpmodel.ErrSolverFailure", err)
	}

	f, err := Build(p)
	if err != nil {
		t.Fatalf("Build() returned unexpected error %v", err)
	}
	resp, err := everything.Solve(context.Background(), f.Model, nil)
	if err != nil {
		t.Fatalf("Solve() returned unexpected error %v", err)
	}
	if pf, err := f.Extract(resp); err == nil {
		t.Errorf("Extract() = %+v, want an error for investing 1200 over budget 1000", pf)
	}
}

func TestBuild_DuplicateNames(t *testing.T) {
	p := Problem{Projects: []Project{{"A", 2, 5}, {"A", 3, 4}}, Budget: 4}
	f, err := Build(p)
	if err != nil {
		t.Fatalf("Build() returned unexpected error %v", err)
	}
	var names []string
	for _, v := range f.Model.Variables {
		names = append(names, v.Name)
	}
	if diff := cmp.Diff([]string{"invest_0", "invest_1"}, names); diff != "" {
		t.Errorf("Build() variable names returned with unexpected diff (-want+got):\n%s", diff)
	}
}

func TestProblem_Validate(t *testing.T) {
	p := Problem{Projects: []Project{{"A", -1, 2}}, Budget: 10}
	if _, err := Enumerate(p); !errors.Is(err, ErrInvalidProblem) {
		t.Errorf("Enumerate() = %v, want an error wrapping ErrInvalidProblem", err)
	}
	if _, err := Build(p); !errors.Is(err, ErrInvalidProblem) {
		t.Errorf("Build() = %v, want an error wrapping ErrInvalidProblem", err)
	}
}

func Example() {
	p := ReferenceProblem()
	best, err := Enumerate(p)
	if err != nil {
		fmt.Printf("Enumerate() returned with unexpected error %v\n", err)
		return
	}
	solver, err := linearsolver.New("portfolio", linearsolver.MixedIntegerProgramming)
	if err != nil {
		fmt.Printf("linearsolver.New() returned with unexpected error %v\n", err)
		return
	}
	milp, err := Solve(context.Background(), p, solver, nil)
	if err != nil {
		fmt.Printf("Solve() returned with unexpected error %v\n", err)
		return
	}
	fmt.Printf("Enumeration: %v, return %v, investment %v\n", best.Names(p), best.Return, best.Investment)
	fmt.Printf("MILP: %v, return %v, investment %v\n", milp.Names(p), milp.Return, milp.Investment)
	// Output:
	// Enumeration: [A B], return 1100, investment 900
	// MILP: [A B], return 1100, investment 900
}
