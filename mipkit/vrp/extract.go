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
	"strings"

	"github.com/mipkit/mip-kit/mipkit/mpmodel"
)

// Checks reported by ConsistencyError.
const (
	CheckValues    = "values"
	CheckBranching = "branching"
	CheckDeadEnd   = "dead end"
	CheckGuard     = "traversal guard"
	CheckSubtour   = "subtour"
	CheckPartition = "partition"
	CheckCapacity  = "capacity"
	CheckDistance  = "distance"
	CheckObjective = "objective"
)

// ConsistencyError reports a solver assignment that does not decode into valid routes. It
// points at a modeling or solver defect and is never corrected silently.
type ConsistencyError struct {
	// Check is one of the Check constants.
	Check string
	// Vehicle is the vehicle whose route failed, or -1.
	Vehicle int
	// Location is the location where the check failed, or -1.
	Location int
	Detail   string
}

func (e *ConsistencyError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "vrp: %s check failed", e.Check)
	if e.Vehicle >= 0 {
		fmt.Fprintf(&sb, " for vehicle %d", e.Vehicle)
	}
	if e.Location >= 0 {
		fmt.Fprintf(&sb, " at location %d", e.Location)
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	return sb.String()
}

func (e *ConsistencyError) Unwrap() error { return ErrConsistency }

func consistencyErrorf(check string, vehicle, location int, format string, a ...any) *ConsistencyError {
	return &ConsistencyError{Check: check, Vehicle: vehicle, Location: location, Detail: fmt.Sprintf(format, a...)}
}

// Route is the tour of one vehicle.
type Route struct {
	Vehicle int
	// Stops starts at the depot and, for a used vehicle, ends there.
	Stops    []int
	Demand   float64
	Distance float64
	Capacity float64
}

// Used reports whether the vehicle leaves the depot.
func (r Route) Used() bool {
	return len(r.Stops) > 1
}

// Customers returns the visited customers in visit order.
func (r Route) Customers() []int {
	if len(r.Stops) < 2 {
		return nil
	}
	return r.Stops[1 : len(r.Stops)-1]
}

func (r Route) String() string {
	if !r.Used() {
		return fmt.Sprintf("vehicle %d: unused", r.Vehicle)
	}
	ids := make([]string, len(r.Stops))
	for i, s := range r.Stops {
		ids[i] = fmt.Sprint(s)
	}
	return fmt.Sprintf("vehicle %d: %s (demand %v/%v, distance %.2f)",
		r.Vehicle, strings.Join(ids, " -> "), r.Demand, r.Capacity, r.Distance)
}

// Solution is a solved instance. Routes are indexed by vehicle id.
type Solution struct {
	Status    mpmodel.Status
	Objective float64
	Routes    []Route
}

// TotalDistance returns the summed distance of all routes.
func (s *Solution) TotalDistance() float64 {
	var t float64
	for _, r := range s.Routes {
		t += r.Distance
	}
	return t
}

// TotalDemand returns the summed demand served by all routes.
func (s *Solution) TotalDemand() float64 {
	var t float64
	for _, r := range s.Routes {
		t += r.Demand
	}
	return t
}

// UsedVehicles returns the number of vehicles leaving the depot.
func (s *Solution) UsedVehicles() int {
	var c int
	for _, r := range s.Routes {
		if r.Used() {
			c++
		}
	}
	return c
}

// tolerance returns the reconciliation tolerance for a distance of magnitude `v`.
func tolerance(v float64) float64 {
	return 1e-6 * math.Max(1, math.Abs(v))
}

// Extract decodes the arc values of `resp` into routes and checks them. It returns a
// *ConsistencyError when the routes do not partition the customers, exceed a capacity, or
// disagree with the solver's objective.
func (f *Formulation) Extract(resp *mpmodel.Response) (*Solution, error) {
	if len(resp.VariableValues) != f.Model.NumVariables() {
		return nil, consistencyErrorf(CheckValues, -1, -1, "got %d values for %d variables",
			len(resp.VariableValues), f.Model.NumVariables())
	}
	sol := &Solution{Status: resp.Status, Objective: resp.ObjectiveValue, Routes: make([]Route, f.k)}
	visits := make([]int, f.n)
	for v := 0; v < f.k; v++ {
		r, err := f.traverse(resp, v)
		if err != nil {
			return nil, err
		}
		for _, c := range r.Customers() {
			visits[c]++
		}
		sol.Routes[v] = r
	}

	for c := 1; c < f.n; c++ {
		if visits[c] != 1 {
			return nil, consistencyErrorf(CheckPartition, -1, c, "customer visited %d times", visits[c])
		}
	}
	var total float64
	for v, r := range sol.Routes {
		if eps := 1e-9 * math.Max(1, r.Capacity); r.Demand > r.Capacity+eps {
			return nil, consistencyErrorf(CheckCapacity, v, -1, "demand %v exceeds capacity %v", r.Demand, r.Capacity)
		}
		if contrib := f.contribution(resp, v); math.Abs(r.Distance-contrib) > tolerance(contrib) {
			return nil, consistencyErrorf(CheckDistance, v, -1, "route distance %v, solver contribution %v", r.Distance, contrib)
		}
		total += r.Distance
	}
	want := resp.ObjectiveValue - f.Model.Objective.Offset
	if math.Abs(total-want) > tolerance(want) {
		return nil, consistencyErrorf(CheckObjective, -1, -1, "route distance %v, objective %v", total, want)
	}
	return sol, nil
}

// traverse follows the arcs of vehicle `v` from the depot. The walk is bounded by N+1 stops.
func (f *Formulation) traverse(resp *mpmodel.Response, v int) (Route, error) {
	r := Route{Vehicle: v, Stops: []int{Depot}, Capacity: f.Instance.Capacities[v]}
	arcs := 0
	for i := 0; i < f.n; i++ {
		for j := 0; j < f.n; j++ {
			if i != j && mpmodel.SolutionBooleanValue(resp, f.arc(i, j, v)) {
				arcs++
			}
		}
	}

	cur := Depot
	for {
		next := -1
		for j := 0; j < f.n; j++ {
			if j == cur || !mpmodel.SolutionBooleanValue(resp, f.arc(cur, j, v)) {
				continue
			}
			if next >= 0 {
				return r, consistencyErrorf(CheckBranching, v, cur, "arcs to both %d and %d", next, j)
			}
			next = j
		}
		if next < 0 {
			if cur != Depot {
				return r, consistencyErrorf(CheckDeadEnd, v, cur, "no outgoing arc after %v", r.Stops)
			}
			break
		}
		r.Stops = append(r.Stops, next)
		r.Distance += f.costs[cur][next]
		r.Demand += f.Instance.Demands[next]
		if len(r.Stops) > f.n+1 {
			return r, consistencyErrorf(CheckGuard, v, next, "no depot return within %d stops", f.n+1)
		}
		cur = next
		if cur == Depot {
			break
		}
	}
	if arcs != len(r.Stops)-1 {
		return r, consistencyErrorf(CheckSubtour, v, -1, "%d arcs set, %d on the depot tour", arcs, len(r.Stops)-1)
	}
	return r, nil
}

// contribution returns the objective contribution of vehicle `v` at the raw solver values.
func (f *Formulation) contribution(resp *mpmodel.Response, v int) float64 {
	var c float64
	for i := 0; i < f.n; i++ {
		for j := 0; j < f.n; j++ {
			if i != j {
				c += f.costs[i][j] * mpmodel.SolutionValue(resp, f.arc(i, j, v))
			}
		}
	}
	return c
}
