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

// Package vrp formulates the capacitated vehicle routing problem as a MILP and decodes solver
// assignments into per-vehicle routes.
//
// The flow is Build, then any mpmodel.Solver, then Formulation.Extract:
//
//	f, err := vrp.Build(inst)
//	...
//	resp, err := mpmodel.SolveOptimal(ctx, solver, f.Model, nil)
//	...
//	sol, err := f.Extract(resp)
//
// Solve runs the three steps. Errors wrap ErrConfiguration when the instance cannot be
// modeled, mpmodel.ErrInfeasible and friends when the solve is not Optimal,
// mpmodel.ErrSolverFailure when the solver fails, and ErrConsistency when the assignment does
// not decode into valid routes.
package vrp

import (
	"context"

	"github.com/mipkit/mip-kit/mipkit/mpmodel"
)

// Solve builds, solves and extracts `inst`.
func Solve(ctx context.Context, inst Instance, s mpmodel.Solver, params *mpmodel.Parameters, opts ...Option) (*Solution, error) {
	f, err := Build(inst, opts...)
	if err != nil {
		return nil, err
	}
	resp, err := mpmodel.SolveOptimal(ctx, s, f.Model, params)
	if err != nil {
		return nil, err
	}
	return f.Extract(resp)
}

// ReferenceInstance returns the six-customer instance served by three vehicles of capacity 25.
func ReferenceInstance() Instance {
	return NewInstance(
		[]Point{{0, 0}, {2, 3}, {4, 1}, {1, 5}, {5, 4}, {3, 6}, {6, 2}},
		[]float64{10, 15, 8, 12, 6, 9},
		3, 25)
}
