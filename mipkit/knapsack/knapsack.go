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

// Package knapsack solves the 0-1 knapsack problem as a MILP, with a greedy baseline.
package knapsack

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	log "github.com/golang/glog"
	"github.com/mipkit/mip-kit/mipkit/mpmodel"
)

// ErrInvalidProblem is wrapped by every error returned from Problem.Validate.
var ErrInvalidProblem = errors.New("invalid knapsack problem")

// Item is a candidate for the knapsack.
type Item struct {
	Name   string  `yaml:"name" json:"name"`
	Value  float64 `yaml:"value" json:"value"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// Problem is a knapsack instance.
type Problem struct {
	Items    []Item  `yaml:"items" json:"items"`
	Capacity float64 `yaml:"capacity" json:"capacity"`
}

// ReferenceProblem returns an eight item instance with capacity 6.
func ReferenceProblem() Problem {
	return Problem{
		Items: []Item{
			{"Laptop", 15, 3},
			{"Camera", 8, 2},
			{"Book", 3, 1},
			{"Headphones", 6, 1},
			{"Smartphone", 12, 2},
			{"Tablet", 10, 2},
			{"Charger", 2, 1},
			{"Water bottle", 4, 2},
		},
		Capacity: 6,
	}
}

func finiteNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}

// Validate checks that values, weights and the capacity are finite and non-negative.
func (p Problem) Validate() error {
	if !finiteNonNegative(p.Capacity) {
		return fmt.Errorf("capacity %v: %w", p.Capacity, ErrInvalidProblem)
	}
	for i, it := range p.Items {
		if !finiteNonNegative(it.Value) || !finiteNonNegative(it.Weight) {
			return fmt.Errorf("item %d (%q) has value %v and weight %v: %w", i, it.Name, it.Value, it.Weight, ErrInvalidProblem)
		}
	}
	return nil
}

// Selection is a set of items.
type Selection struct {
	Status mpmodel.Status
	// Items holds the selected item indices in increasing order.
	Items  []int
	Value  float64
	Weight float64
}

// Names returns the names of the selected items.
func (s *Selection) Names(p Problem) []string {
	names := make([]string, len(s.Items))
	for i, it := range s.Items {
		names[i] = p.Items[it].Name
	}
	return names
}

func newSelection(p Problem, items []int) *Selection {
	sort.Ints(items)
	s := &Selection{Items: items}
	for _, i := range items {
		s.Value += p.Items[i].Value
		s.Weight += p.Items[i].Weight
	}
	return s
}

// Greedy selects items by decreasing value per weight, skipping those that no longer fit.
// Weightless items come first; ties keep the item order.
func Greedy(p Problem) (*Selection, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	order := make([]int, len(p.Items))
	for i := range order {
		order[i] = i
	}
	ratio := func(i int) float64 {
		if p.Items[i].Weight == 0 {
			return math.Inf(1)
		}
		return p.Items[i].Value / p.Items[i].Weight
	}
	sort.SliceStable(order, func(a, b int) bool { return ratio(order[a]) > ratio(order[b]) })

	var items []int
	left := p.Capacity
	for _, i := range order {
		if w := p.Items[i].Weight; w <= left {
			items = append(items, i)
			left -= w
		}
	}
	s := newSelection(p, items)
	s.Status = mpmodel.Feasible
	return s, nil
}

// Formulation is the MILP model of a Problem.
type Formulation struct {
	Model   *mpmodel.Model
	Problem Problem
	take    []mpmodel.Var
}

// Build formulates `p`: one 0-1 variable per item, a single capacity row, and the total value
// maximized.
func Build(p Problem) (*Formulation, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	mb := mpmodel.NewModelBuilder("knapsack")
	f := &Formulation{Problem: p, take: make([]mpmodel.Var, len(p.Items))}
	value, weight := mpmodel.NewLinearExpr(), mpmodel.NewLinearExpr()
	for i, it := range p.Items {
		f.take[i] = mb.NewBoolVar().WithName(fmt.Sprintf("take_%d", i))
		value.AddTerm(f.take[i], it.Value)
		weight.AddTerm(f.take[i], it.Weight)
	}
	mb.AddLessOrEqual(weight, mpmodel.NewConstant(p.Capacity)).WithName("capacity")
	mb.Maximize(value)

	m, err := mb.Model()
	if err != nil {
		return nil, fmt.Errorf("building knapsack failed: %w", err)
	}
	f.Model = m
	return f, nil
}

// Extract reads the selected items off `resp`.
func (f *Formulation) Extract(resp *mpmodel.Response) (*Selection, error) {
	if len(resp.VariableValues) != f.Model.NumVariables() {
		return nil, fmt.Errorf("got %d values for %d items", len(resp.VariableValues), len(f.take))
	}
	var items []int
	for i, v := range f.take {
		if mpmodel.SolutionBooleanValue(resp, v) {
			items = append(items, i)
		}
	}
	s := newSelection(f.Problem, items)
	s.Status = resp.Status
	if s.Weight > f.Problem.Capacity+1e-9*math.Max(1, f.Problem.Capacity) {
		return nil, fmt.Errorf("selection weighs %v, over capacity %v", s.Weight, f.Problem.Capacity)
	}
	return s, nil
}

// Solve builds, solves and extracts `p`.
func Solve(ctx context.Context, p Problem, s mpmodel.Solver, params *mpmodel.Parameters) (*Selection, error) {
	f, err := Build(p)
	if err != nil {
		return nil, err
	}
	resp, err := mpmodel.SolveOptimal(ctx, s, f.Model, params)
	if err != nil {
		return nil, err
	}
	sel, err := f.Extract(resp)
	if err != nil {
		return nil, err
	}
	log.V(1).Infof("knapsack: value %v, weight %v/%v", sel.Value, sel.Weight, p.Capacity)
	return sel, nil
}
