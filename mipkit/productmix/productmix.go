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

// Package productmix chooses integral production levels that maximize profit under shared
// resource limits.
package productmix

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/mipkit/mip-kit/mipkit/mpmodel"
)

// ErrInvalidProblem is wrapped by every error returned from Problem.Validate.
var ErrInvalidProblem = errors.New("invalid product mix problem")

// Product is something that can be made.
type Product struct {
	Name   string  `yaml:"name" json:"name"`
	Profit float64 `yaml:"profit" json:"profit"`
	// Usage holds the amount of each resource consumed by one unit.
	Usage []float64 `yaml:"usage" json:"usage"`
}

// Resource is a limited input shared by all products.
type Resource struct {
	Name      string  `yaml:"name" json:"name"`
	Available float64 `yaml:"available" json:"available"`
}

// Problem is a product mix instance.
type Problem struct {
	Products  []Product  `yaml:"products" json:"products"`
	Resources []Resource `yaml:"resources" json:"resources"`
}

// ReferenceProblem returns the food manufacturing instance: two products sharing flour and
// sugar.
func ReferenceProblem() Problem {
	return Problem{
		Products: []Product{
			{Name: "ProductA", Profit: 300, Usage: []float64{2, 1}},
			{Name: "ProductB", Profit: 400, Usage: []float64{1, 2}},
		},
		Resources: []Resource{
			{Name: "Flour", Available: 10},
			{Name: "Sugar", Available: 8},
		},
	}
}

// Validate checks that every product uses every resource a non-negative amount, and that each
// product with a positive profit uses at least one resource.
func (p Problem) Validate() error {
	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
	for r, res := range p.Resources {
		if !finite(res.Available) || res.Available < 0 {
			return fmt.Errorf("resource %d (%q) availability %v: %w", r, res.Name, res.Available, ErrInvalidProblem)
		}
	}
	for i, pr := range p.Products {
		if !finite(pr.Profit) {
			return fmt.Errorf("product %d (%q) profit %v: %w", i, pr.Name, pr.Profit, ErrInvalidProblem)
		}
		if len(pr.Usage) != len(p.Resources) {
			return fmt.Errorf("product %d (%q) has %d usages for %d resources: %w", i, pr.Name, len(pr.Usage), len(p.Resources), ErrInvalidProblem)
		}
		var total float64
		for r, u := range pr.Usage {
			if !finite(u) || u < 0 {
				return fmt.Errorf("product %d (%q) usage %v of resource %d: %w", i, pr.Name, u, r, ErrInvalidProblem)
			}
			total += u
		}
		if pr.Profit > 0 && total == 0 {
			return fmt.Errorf("product %d (%q) is profitable without using any resource: %w", i, pr.Name, ErrInvalidProblem)
		}
	}
	return nil
}

// Mix is a production plan.
type Mix struct {
	Status mpmodel.Status
	// Quantities holds the units made of each product.
	Quantities []float64
	Profit     float64
	// Used holds the amount of each resource consumed.
	Used []float64
}

// Formulation is the MILP model of a Problem.
type Formulation struct {
	Model   *mpmodel.Model
	Problem Problem
	units   []mpmodel.Var
}

// Build formulates `p` with one non-negative integer variable per product.
func Build(p Problem) (*Formulation, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	mb := mpmodel.NewModelBuilder("product_mix")
	f := &Formulation{Problem: p, units: make([]mpmodel.Var, len(p.Products))}
	profit := mpmodel.NewLinearExpr()
	for i, pr := range p.Products {
		f.units[i] = mb.NewIntVar(0, math.Inf(1)).WithName(pr.Name)
		profit.AddTerm(f.units[i], pr.Profit)
	}
	mb.Maximize(profit)
	for r, res := range p.Resources {
		use := mpmodel.NewLinearExpr()
		for i, pr := range p.Products {
			use.AddTerm(f.units[i], pr.Usage[r])
		}
		mb.AddLessOrEqual(use, mpmodel.NewConstant(res.Available)).WithName(res.Name)
	}
	m, err := mb.Model()
	if err != nil {
		return nil, fmt.Errorf("building product mix failed: %w", err)
	}
	f.Model = m
	return f, nil
}

// Extract reads the mix off `resp`.
func (f *Formulation) Extract(resp *mpmodel.Response) (*Mix, error) {
	if len(resp.VariableValues) != f.Model.NumVariables() {
		return nil, fmt.Errorf("got %d values for %d products", len(resp.VariableValues), len(f.units))
	}
	mix := &Mix{
		Status:     resp.Status,
		Quantities: make([]float64, len(f.units)),
		Used:       make([]float64, len(f.Problem.Resources)),
	}
	for i, v := range f.units {
		q := math.Round(mpmodel.SolutionValue(resp, v))
		mix.Quantities[i] = q
		mix.Profit += q * f.Problem.Products[i].Profit
		for r, u := range f.Problem.Products[i].Usage {
			mix.Used[r] += q * u
		}
	}
	return mix, nil
}

// Solve builds, solves and extracts `p`.
func Solve(ctx context.Context, p Problem, s mpmodel.Solver, params *mpmodel.Parameters) (*Mix, error) {
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
