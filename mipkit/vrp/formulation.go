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

package vrp

import (
	"fmt"
	"math"
	"sort"

	log "github.com/golang/glog"
	"github.com/mipkit/mip-kit/mipkit/mpmodel"
)

type options struct {
	oracle     Oracle
	tightOrder bool
}

// Option configures Build.
type Option func(*options)

// WithOracle sets the cost oracle. The default is the Euclidean distance between the instance
// locations.
func WithOracle(o Oracle) Option {
	return func(opts *options) { opts.oracle = o }
}

// WithTightOrderBound bounds the visit order of each vehicle by the largest number of customers
// its capacity can hold, instead of the number of customers. The feasible routes are the same.
func WithTightOrderBound() Option {
	return func(opts *options) { opts.tightOrder = true }
}

// Formulation is the MILP model of an Instance along with its variable layout.
//
// Arc variables x[i,j,k] are stored densely at offset (k·N+i)·(N-1) + j', where j' skips the
// self-loop i == j. Order variables u[i,k] follow the arcs at offset k·C + (i-1).
type Formulation struct {
	Model    *mpmodel.Model
	Instance Instance

	costs Matrix
	n, k  int
	arcs  []mpmodel.Var
	order []mpmodel.Var
	// orderBound is the big-M of the subtour elimination rows, per vehicle.
	orderBound []float64
}

// Build formulates the instance. It returns a *ConfigError, without building anything, when
// the instance fails Validate or the oracle yields an invalid cost.
//
// The model minimizes the total arc cost subject to customer coverage, depot degree, flow
// conservation, capacity and Miller-Tucker-Zemlin subtour elimination. A fleet row requires
// at least as many departures from the depot as the largest capacities need to carry the
// total demand; it removes no routing and tightens the relaxation. An instance without
// customers yields an empty model.
func Build(inst Instance, opts ...Option) (*Formulation, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	o := options{oracle: Euclidean(inst.Locations)}
	for _, opt := range opts {
		opt(&o)
	}

	n, k := inst.NumLocations(), inst.NumVehicles()
	f := &Formulation{
		Instance:   inst,
		costs:      NewMatrix(o.oracle, n),
		n:          n,
		k:          k,
		orderBound: make([]float64, k),
	}
	for i := range f.costs {
		for j, c := range f.costs[i] {
			if i != j && !validCost(c) {
				return nil, configErrorf(-1, -1, "cost from %d to %d is %v", i, j, c)
			}
		}
	}
	c := float64(inst.NumCustomers())
	for v := range f.orderBound {
		f.orderBound[v] = c
		if o.tightOrder {
			f.orderBound[v] = math.Min(c, math.Max(1, float64(maxCustomers(inst.Demands[1:], inst.Capacities[v]))))
		}
	}

	name := fmt.Sprintf("cvrp_%dx%d", n-1, k)
	mb := mpmodel.NewModelBuilder(name)
	f.arcs = make([]mpmodel.Var, 0, k*n*(n-1))
	for v := 0; v < k; v++ {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i != j {
					f.arcs = append(f.arcs, mb.NewBoolVar().WithName(fmt.Sprintf("x_%d_%d_%d", i, j, v)))
				}
			}
		}
	}
	f.order = make([]mpmodel.Var, 0, k*(n-1))
	for v := 0; v < k; v++ {
		for i := 1; i < n; i++ {
			f.order = append(f.order, mb.NewContinuousVar(0, f.orderBound[v]).WithName(fmt.Sprintf("u_%d_%d", i, v)))
		}
	}

	obj := mpmodel.NewLinearExpr()
	for v := 0; v < k; v++ {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i != j {
					obj.AddTerm(f.arc(i, j, v), f.costs[i][j])
				}
			}
		}
	}
	mb.Minimize(obj)

	if n > 1 {
		f.addCoverage(mb)
		f.addDepotDegree(mb)
		f.addFlowConservation(mb)
		f.addCapacity(mb)
		f.addSubtourElimination(mb)
		f.addFleetBound(mb)
	}

	m, err := mb.Model()
	if err != nil {
		return nil, fmt.Errorf("building %s failed: %w", name, err)
	}
	f.Model = m
	log.V(1).Infof("built %s: %d variables, %d constraints", m.Name, m.NumVariables(), m.NumConstraints())
	return f, nil
}

// Each customer has exactly one incoming arc over all vehicles.
func (f *Formulation) addCoverage(mb *mpmodel.Builder) {
	for j := 1; j < f.n; j++ {
		in := mpmodel.NewLinearExpr()
		for v := 0; v < f.k; v++ {
			for i := 0; i < f.n; i++ {
				if i != j {
					in.Add(f.arc(i, j, v))
				}
			}
		}
		mb.AddLinearConstraint(in, 1, 1).WithName(fmt.Sprintf("cover_%d", j))
	}
}

// Each vehicle leaves and enters the depot at most once, and as often as it leaves.
func (f *Formulation) addDepotDegree(mb *mpmodel.Builder) {
	for v := 0; v < f.k; v++ {
		out, in := mpmodel.NewLinearExpr(), mpmodel.NewLinearExpr()
		for j := 1; j < f.n; j++ {
			out.Add(f.arc(Depot, j, v))
			in.Add(f.arc(j, Depot, v))
		}
		mb.AddLessOrEqual(out, mpmodel.NewConstant(1)).WithName(fmt.Sprintf("depot_out_%d", v))
		mb.AddLessOrEqual(in, mpmodel.NewConstant(1)).WithName(fmt.Sprintf("depot_in_%d", v))
		mb.AddEquality(out, in).WithName(fmt.Sprintf("depot_balance_%d", v))
	}
}

func (f *Formulation) addFlowConservation(mb *mpmodel.Builder) {
	for v := 0; v < f.k; v++ {
		for j := 1; j < f.n; j++ {
			flow := mpmodel.NewLinearExpr()
			for i := 0; i < f.n; i++ {
				if i != j {
					flow.AddTerm(f.arc(i, j, v), 1).AddTerm(f.arc(j, i, v), -1)
				}
			}
			mb.AddLinearConstraint(flow, 0, 0).WithName(fmt.Sprintf("flow_%d_%d", j, v))
		}
	}
}

func (f *Formulation) addCapacity(mb *mpmodel.Builder) {
	for v := 0; v < f.k; v++ {
		load := mpmodel.NewLinearExpr()
		for j := 1; j < f.n; j++ {
			for i := 0; i < f.n; i++ {
				if i != j {
					load.AddTerm(f.arc(i, j, v), f.Instance.Demands[j])
				}
			}
		}
		mb.AddLessOrEqual(load, mpmodel.NewConstant(f.Instance.Capacities[v])).WithName(fmt.Sprintf("capacity_%d", v))
	}
}

// u[i,k] - u[j,k] + M·x[i,j,k] <= M - 1 for every ordered pair of distinct customers.
func (f *Formulation) addSubtourElimination(mb *mpmodel.Builder) {
	for v := 0; v < f.k; v++ {
		bigM := f.orderBound[v]
		for i := 1; i < f.n; i++ {
			for j := 1; j < f.n; j++ {
				if i == j {
					continue
				}
				e := mpmodel.NewLinearExpr().
					AddTerm(f.order[f.orderOffset(i, v)], 1).
					AddTerm(f.order[f.orderOffset(j, v)], -1).
					AddTerm(f.arc(i, j, v), bigM)
				mb.AddLinearConstraint(e, math.Inf(-1), bigM-1).WithName(fmt.Sprintf("mtz_%d_%d_%d", i, j, v))
			}
		}
	}
}

// Enough vehicles leave the depot to carry the total demand.
func (f *Formulation) addFleetBound(mb *mpmodel.Builder) {
	need := minVehicles(f.Instance.Capacities, f.Instance.TotalDemand())
	if need == 0 {
		return
	}
	out := mpmodel.NewLinearExpr()
	for v := 0; v < f.k; v++ {
		for j := 1; j < f.n; j++ {
			out.Add(f.arc(Depot, j, v))
		}
	}
	mb.AddGreaterOrEqual(out, mpmodel.NewConstant(float64(need))).WithName("fleet_min")
}

// minVehicles returns the fewest vehicles whose capacities add up to `demand`, or all of them
// when they fall short.
func minVehicles(capacities []float64, demand float64) int {
	if demand <= 0 {
		return 0
	}
	sorted := append([]float64(nil), capacities...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	var load float64
	for k, c := range sorted {
		load += c
		if load >= demand-1e-9*math.Max(1, demand) {
			return k + 1
		}
	}
	return len(sorted)
}

// maxCustomers returns the largest number of demands that fit together in `capacity`.
func maxCustomers(demands []float64, capacity float64) int {
	sorted := append([]float64(nil), demands...)
	sort.Float64s(sorted)
	var load float64
	for c, d := range sorted {
		load += d
		if load > capacity {
			return c
		}
	}
	return len(sorted)
}

func (f *Formulation) arcOffset(i, j, v int) int {
	jj := j
	if j > i {
		jj--
	}
	return (v*f.n+i)*(f.n-1) + jj
}

func (f *Formulation) orderOffset(i, v int) int {
	return v*(f.n-1) + i - 1
}

// arc is Arc for ids known to be valid.
func (f *Formulation) arc(i, j, v int) mpmodel.Var {
	return f.arcs[f.arcOffset(i, j, v)]
}

// Arc returns x[i,j,k]. It returns false for self-loops and unknown ids.
func (f *Formulation) Arc(i, j, k int) (mpmodel.Var, bool) {
	if i == j || i < 0 || j < 0 || i >= f.n || j >= f.n || k < 0 || k >= f.k {
		return mpmodel.Var{}, false
	}
	return f.arc(i, j, k), true
}

// Order returns u[i,k]. It returns false for the depot and unknown ids.
func (f *Formulation) Order(i, k int) (mpmodel.Var, bool) {
	if i <= Depot || i >= f.n || k < 0 || k >= f.k {
		return mpmodel.Var{}, false
	}
	return f.order[f.orderOffset(i, k)], true
}

// NumArcs returns the number of arc variables, K·N·(N-1).
func (f *Formulation) NumArcs() int {
	return len(f.arcs)
}

// OrderBound returns the big-M used in the subtour elimination rows of vehicle `k`.
func (f *Formulation) OrderBound(k int) float64 {
	return f.orderBound[k]
}

// Cost returns the arc cost used in the objective.
func (f *Formulation) Cost(i, j int) float64 {
	return f.costs.Cost(i, j)
}
