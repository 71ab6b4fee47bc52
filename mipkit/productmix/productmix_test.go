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

package productmix

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mipkit/mip-kit/mipkit/linearsolver"
	"github.com/mipkit/mip-kit/mipkit/mpmodel"
)

func newSolver(t *testing.T) *linearsolver.LinearSolver {
	t.Helper()
	s, err := linearsolver.New("productmix", linearsolver.MixedIntegerProgramming)
	if err != nil {
		t.Fatalf("linearsolver.New() returned unexpected error %v", err)
	}
	return s
}

func TestSolve(t *testing.T) {
	testCases := []struct {
		name string
		p    Problem
		want *Mix
	}{
		{
			name: "FoodManufacturing",
			p:    ReferenceProblem(),
			want: &Mix{Status: mpmodel.Optimal, Quantities: []float64{4, 2}, Profit: 2000, Used: []float64{10, 8}},
		},
		{
			// The relaxation makes 2.5 units; only 2 can be made.
			name: "IntegralityBinds",
			p: Problem{
				Products:  []Product{{Name: "P", Profit: 1, Usage: []float64{2}}},
				Resources: []Resource{{Name: "R", Available: 5}},
			},
			want: &Mix{Status: mpmodel.Optimal, Quantities: []float64{2}, Profit: 2, Used: []float64{4}},
		},
		{
			name: "UnprofitableProduct",
			p: Problem{
				Products:  []Product{{Name: "P", Profit: -3, Usage: []float64{0}}},
				Resources: []Resource{{Name: "R", Available: 5}},
			},
			want: &Mix{Status: mpmodel.Optimal, Quantities: []float64{0}, Profit: 0, Used: []float64{0}},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Solve(context.Background(), tc.p, newSolver(t), nil)
			if err != nil {
				t.Fatalf("Solve() returned unexpected error %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Solve() returned with unexpected diff (-want+got):\n%s", diff)
			}
		})
	}
}

func TestProblem_Validate(t *testing.T) {
	testCases := []struct {
		name string
		p    Problem
	}{
		{
			name: "UsageCountMismatch",
			p:    Problem{Products: []Product{{Name: "P", Profit: 1, Usage: []float64{1, 1}}}, Resources: []Resource{{Name: "R", Available: 1}}},
		},
		{
			name: "NegativeUsage",
			p:    Problem{Products: []Product{{Name: "P", Profit: 1, Usage: []float64{-1}}}, Resources: []Resource{{Name: "R", Available: 1}}},
		},
		{
			name: "NegativeAvailability",
			p:    Problem{Resources: []Resource{{Name: "R", Available: -1}}},
		},
		{
			name: "FreeProfit",
			p:    Problem{Products: []Product{{Name: "P", Profit: 1, Usage: []float64{0}}}, Resources: []Resource{{Name: "R", Available: 1}}},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Build(tc.p); !errors.Is(err, ErrInvalidProblem) {
				t.Errorf("Build() = %v, want an error wrapping ErrInvalidProblem", err)
			}
		})
	}
}

func ExampleSolve() {
	solver, err := linearsolver.New("food_manufacturing", linearsolver.MixedIntegerProgramming)
	if err != nil {
		fmt.Printf("linearsolver.New() returned with unexpected error %v\n", err)
		return
	}
	p := ReferenceProblem()
	mix, err := Solve(context.Background(), p, solver, nil)
	if err != nil {
		fmt.Printf("Solve() returned with unexpected error %v\n", err)
		return
	}
	for i, q := range mix.Quantities {
		fmt.Printf("%s: %v\n", p.Products[i].Name, q)
	}
	fmt.Printf("Profit: %v\n", mix.Profit)
	// Output:
	// ProductA: 4
	// ProductB: 2
	// Profit: 2000
}
