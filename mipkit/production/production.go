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

// Package production plans multi-period production as a linear program.
//
// For product p and period t, x[p,t] is the quantity produced and s[p,t] the inventory held at
// the end of the period. Inventory flows between periods:
//
//	s[p,t-1] + x[p,t] - s[p,t] = demand[p,t]
//
// with s[p,-1] the initial inventory. Production in a period is bounded by the period
// capacity, and inventory by the storage of the product. The plan minimizes production plus
// holding cost.
package production

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/mipkit/mip-kit/mipkit/mpmodel"
)

// ErrInvalidProblem is wrapped by every error returned from Problem.Validate.
var ErrInvalidProblem = errors.New("invalid production planning problem")

// Product is a product to plan.
type Product struct {
	Name string `yaml:"name" json:"name"`
	// Demand holds one quantity per period.
	Demand           []float64 `yaml:"demand" json:"demand"`
	ProductionCost   float64   `yaml:"production_cost" json:"production_cost"`
	HoldingCost      float64   `yaml:"holding_cost" json:"holding_cost"`
	Storage          float64   `yaml:"storage" json:"storage"`
	InitialInventory float64   `yaml:"initial_inventory" json:"initial_inventory"`
}

// Problem is a production planning instance over len(PeriodCapacity) periods.
type Problem struct {
	Products       []Product `yaml:"products" json:"products"`
	PeriodCapacity []float64 `yaml:"period_capacity" json:"period_capacity"`
}

// ReferenceProblem returns three products planned over four periods.
func ReferenceProblem() Problem {
	return Problem{
		Products: []Product{
			{Name: "A", Demand: []float64{100, 120, 110, 130}, ProductionCost: 50, HoldingCost: 5, Storage: 200, InitialInventory: 50},
			{Name: "B", Demand: []float64{80, 90, 85, 95}, ProductionCost: 40, HoldingCost: 4, Storage: 150, InitialInventory: 30},
			{Name: "C", Demand: []float64{60, 70, 65, 75}, ProductionCost: 30, HoldingCost: 3, Storage: 100, InitialInventory: 20},
		},
		PeriodCapacity: []float64{300, 320, 310, 330},
	}
}

// NumPeriods returns the planning horizon.
func (p Problem) NumPeriods() int {
	return len(p.PeriodCapacity)
}

// Validate checks the shape of the problem and that every quantity is non-negative. Only
// storage may be infinite.
func (p Problem) Validate() error {
	finite := func(v float64) bool { return v >= 0 && !math.IsInf(v, 1) }
	if p.NumPeriods() == 0 {
		return fmt.Errorf("no periods: %w", ErrInvalidProblem)
	}
	for t, c := range p.PeriodCapacity {
		if !finite(c) {
			return fmt.Errorf("period %d capacity %v: %w", t, c, ErrInvalidProblem)
		}
	}
	for i, pr := range p.Products {
		if len(pr.Demand) != p.NumPeriods() {
			return fmt.Errorf("product %d (%q) has %d demands for %d periods: %w", i, pr.Name, len(pr.Demand), p.NumPeriods(), ErrInvalidProblem)
		}
		for t, d := range pr.Demand {
			if !finite(d) {
				return fmt.Errorf("product %d (%q) demand %v in period %d: %w", i, pr.Name, d, t, ErrInvalidProblem)
			}
		}
		if !finite(pr.ProductionCost) || !finite(pr.HoldingCost) || !finite(pr.InitialInventory) || !(pr.Storage >= 0) {
			return fmt.Errorf("product %d (%q) has a negative or non-finite cost, storage or inventory: %w", i, pr.Name, ErrInvalidProblem)
		}
	}
	return nil
}

// Plan is a production plan. Production and Inventory are indexed by product, then period.
type Plan struct {
	Status         mpmodel.Status
	Production     [][]float64
	Inventory      [][]float64
	ProductionCost float64
	HoldingCost    float64
	TotalCost      float64
}

// Formulation is the LP model of a Problem.
type Formulation struct {
	Model   *mpmodel.Model
	Problem Problem
	produce [][]mpmodel.Var
	stock   [][]mpmodel.Var
}

// Build formulates `p`.
func Build(p Problem) (*Formulation, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	mb := mpmodel.NewModelBuilder("production_planning")
	np, nt := len(p.Products), p.NumPeriods()
	f := &Formulation{Problem: p, produce: make([][]mpmodel.Var, np), stock: make([][]mpmodel.Var, np)}
	cost := mpmodel.NewLinearExpr()
	for i, pr := range p.Products {
		f.produce[i] = make([]mpmodel.Var, nt)
		f.stock[i] = make([]mpmodel.Var, nt)
		for t := 0; t < nt; t++ {
			f.produce[i][t] = mb.NewContinuousVar(0, math.Inf(1)).WithName(fmt.Sprintf("x_%s_%d", pr.Name, t))
			f.stock[i][t] = mb.NewContinuousVar(0, pr.Storage).WithName(fmt.Sprintf("s_%s_%d", pr.Name, t))
			cost.AddTerm(f.produce[i][t], pr.ProductionCost).AddTerm(f.stock[i][t], pr.HoldingCost)
		}
	}
	mb.Minimize(cost)

	for i, pr := range p.Products {
		for t := 0; t < nt; t++ {
			balance := mpmodel.NewLinearExpr().AddTerm(f.produce[i][t], 1).AddTerm(f.stock[i][t], -1)
			if t == 0 {
				balance.AddConstant(pr.InitialInventory)
			} else {
				balance.Add(f.stock[i][t-1])
			}
			mb.AddEquality(balance, mpmodel.NewConstant(pr.Demand[t])).WithName(fmt.Sprintf("balance_%s_%d", pr.Name, t))
		}
	}
	for t, c := range p.PeriodCapacity {
		total := mpmodel.NewLinearExpr()
		for i := range p.Products {
			total.Add(f.produce[i][t])
		}
		mb.AddLessOrEqual(total, mpmodel.NewConstant(c)).WithName(fmt.Sprintf("capacity_%d", t))
	}

	m, err := mb.Model()
	if err != nil {
		return nil, fmt.Errorf("building production plan failed: %w", err)
	}
	f.Model = m
	return f, nil
}

// Extract reads the plan off `resp`.
func (f *Formulation) Extract(resp *mpmodel.Response) (*Plan, error) {
	if len(resp.VariableValues) != f.Model.NumVariables() {
		return nil, fmt.Errorf("got %d values for %d variables", len(resp.VariableValues), f.Model.NumVariables())
	}
	pl := &Plan{
		Status:     resp.Status,
		Production: make([][]float64, len(f.produce)),
		Inventory:  make([][]float64, len(f.stock)),
	}
	for i, pr := range f.Problem.Products {
		pl.Production[i] = make([]float64, len(f.produce[i]))
		pl.Inventory[i] = make([]float64, len(f.stock[i]))
		for t := range f.produce[i] {
			pl.Production[i][t] = mpmodel.SolutionValue(resp, f.produce[i][t])
			pl.Inventory[i][t] = mpmodel.SolutionValue(resp, f.stock[i][t])
			pl.ProductionCost += pr.ProductionCost * pl.Production[i][t]
			pl.HoldingCost += pr.HoldingCost * pl.Inventory[i][t]
		}
	}
	pl.TotalCost = pl.ProductionCost + pl.HoldingCost
	return pl, nil
}

// Solve builds, solves and extracts `p`.
func Solve(ctx context.Context, p Problem, s mpmodel.Solver, params *mpmodel.Parameters) (*Plan, error) {
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
