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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mipkit/mip-kit/mipkit/mpmodel"
)

func setArc(t *testing.T, f *Formulation, values []float64, i, j, k int, v float64) {
	t.Helper()
	x, ok := f.Arc(i, j, k)
	if !ok {
		t.Fatalf("Arc(%d, %d, %d) does not exist", i, j, k)
	}
	values[x.Index()] = v
}

// routeValues returns an assignment where vehicle k visits routes[k] in order.
func routeValues(t *testing.T, f *Formulation, routes [][]int) []float64 {
	t.Helper()
	values := make([]float64, f.Model.NumVariables())
	for k, r := range routes {
		if len(r) == 0 {
			continue
		}
		stops := append(append([]int{Depot}, r...), Depot)
		for p := 0; p+1 < len(stops); p++ {
			setArc(t, f, values, stops[p], stops[p+1], k, 1)
		}
		for p, c := range r {
			u, ok := f.Order(c, k)
			if !ok {
				t.Fatalf("Order(%d, %d) does not exist", c, k)
			}
			values[u.Index()] = float64(p + 1)
		}
	}
	return values
}

func optimalResponse(f *Formulation, values []float64) *mpmodel.Response {
	return &mpmodel.Response{
		Status:         mpmodel.Optimal,
		ObjectiveValue: f.Model.ObjectiveValue(values),
		VariableValues: values,
	}
}

var referenceRoutes = [][]int{{1, 3}, {2, 6}, {5, 4}}

func TestFormulation_Extract(t *testing.T) {
	f := mustBuild(t, ReferenceInstance())
	values := routeValues(t, f, referenceRoutes)
	if err := f.Model.CheckFeasible(values, 1e-9); err != nil {
		t.Fatalf("CheckFeasible() on a valid routing returned unexpected error %v", err)
	}

	sol, err := f.Extract(optimalResponse(f, values))
	if err != nil {
		t.Fatalf("Extract() returned unexpected error %v", err)
	}
	var stops [][]int
	var demands []float64
	for _, r := range sol.Routes {
		stops = append(stops, r.Stops)
		demands = append(demands, r.Demand)
		if r.Demand > r.Capacity {
			t.Errorf("vehicle %d carries %v over capacity %v", r.Vehicle, r.Demand, r.Capacity)
		}
	}
	if diff := cmp.Diff([][]int{{0, 1, 3, 0}, {0, 2, 6, 0}, {0, 5, 4, 0}}, stops); diff != "" {
		t.Errorf("Extract() stops returned with unexpected diff (-want+got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{18, 24, 18}, demands); diff != "" {
		t.Errorf("Extract() demands returned with unexpected diff (-want+got):\n%s", diff)
	}
	if got, want := sol.TotalDemand(), 60.0; got != want {
		t.Errorf("TotalDemand() = %v, want %v", got, want)
	}
	if got, want := sol.UsedVehicles(), 3; got != want {
		t.Errorf("UsedVehicles() = %d, want %d", got, want)
	}
	if got, want := sol.TotalDistance(), sol.Objective; got-want > 1e-9 || want-got > 1e-9 {
		t.Errorf("TotalDistance() = %v, want objective %v", got, want)
	}
}

func TestFormulation_ExtractUnusedVehicle(t *testing.T) {
	f := mustBuild(t, ReferenceInstance())
	sol, err := f.Extract(optimalResponse(f, routeValues(t, f, [][]int{{1, 3, 5}, nil, {2, 6}})))
	if err == nil {
		t.Fatalf("Extract() with customer 4 unserved returned no error")
	}

	in := ReferenceInstance()
	in.Capacities = []float64{40, 25, 25}
	f = mustBuild(t, in)
	sol, err = f.Extract(optimalResponse(f, routeValues(t, f, [][]int{{1, 3, 4, 5}, nil, {2, 6}})))
	if err != nil {
		t.Fatalf("Extract() returned unexpected error %v", err)
	}
	if sol.Routes[1].Used() {
		t.Errorf("Routes[1].Used() = true, want false")
	}
	if diff := cmp.Diff([]int{Depot}, sol.Routes[1].Stops); diff != "" {
		t.Errorf("unused route stops returned with unexpected diff (-want+got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 3, 4, 5}, sol.Routes[0].Customers()); diff != "" {
		t.Errorf("Customers() returned with unexpected diff (-want+got):\n%s", diff)
	}
	if got, want := sol.UsedVehicles(), 2; got != want {
		t.Errorf("UsedVehicles() = %d, want %d", got, want)
	}
}

func TestFormulation_ExtractConsistencyErrors(t *testing.T) {
	testCases := []struct {
		name   string
		routes [][]int
		mutate func(t *testing.T, f *Formulation, values []float64) []float64
		// objectiveDelta is added to the objective of the assignment.
		objectiveDelta float64
		want           *ConsistencyError
	}{
		{
			name:   "Branching",
			routes: referenceRoutes,
			mutate: func(t *testing.T, f *Formulation, values []float64) []float64 {
				setArc(t, f, values, Depot, 2, 0, 1)
				return values
			},
			want: &ConsistencyError{Check: CheckBranching, Vehicle: 0, Location: Depot},
		},
		{
			name:   "DeadEnd",
			routes: referenceRoutes,
			mutate: func(t *testing.T, f *Formulation, values []float64) []float64 {
				setArc(t, f, values, 3, Depot, 0, 0)
				return values
			},
			want: &ConsistencyError{Check: CheckDeadEnd, Vehicle: 0, Location: 3},
		},
		{
			name:   "CycleAwayFromDepot",
			routes: [][]int{nil, {2, 6}, {5, 4}},
			mutate: func(t *testing.T, f *Formulation, values []float64) []float64 {
				setArc(t, f, values, Depot, 1, 0, 1)
				setArc(t, f, values, 1, 3, 0, 1)
				setArc(t, f, values, 3, 1, 0, 1)
				return values
			},
			want: &ConsistencyError{Check: CheckGuard, Vehicle: 0, Location: 3},
		},
		{
			name:   "Subtour",
			routes: [][]int{{1}, {2, 6}, {5}},
			mutate: func(t *testing.T, f *Formulation, values []float64) []float64 {
				setArc(t, f, values, 3, 4, 2, 1)
				setArc(t, f, values, 4, 3, 2, 1)
				return values
			},
			want: &ConsistencyError{Check: CheckSubtour, Vehicle: 2, Location: -1},
		},
		{
			name:   "CustomerVisitedTwice",
			routes: [][]int{{1, 3}, {2, 6}, {5, 4, 1}},
			want:   &ConsistencyError{Check: CheckPartition, Vehicle: -1, Location: 1},
		},
		{
			name:   "CustomerNotVisited",
			routes: [][]int{{1, 3}, {2, 6}, {5}},
			want:   &ConsistencyError{Check: CheckPartition, Vehicle: -1, Location: 4},
		},
		{
			name:   "OverCapacity",
			routes: [][]int{{1, 3}, {2, 4}, {5, 6}},
			want:   &ConsistencyError{Check: CheckCapacity, Vehicle: 1, Location: -1},
		},
		{
			name:   "FractionalArc",
			routes: referenceRoutes,
			mutate: func(t *testing.T, f *Formulation, values []float64) []float64 {
				setArc(t, f, values, 2, 5, 0, 0.4)
				return values
			},
			want: &ConsistencyError{Check: CheckDistance, Vehicle: 0, Location: -1},
		},
		{
			name:           "ObjectiveMismatch",
			routes:         referenceRoutes,
			objectiveDelta: 1,
			want:           &ConsistencyError{Check: CheckObjective, Vehicle: -1, Location: -1},
		},
		{
			name:   "MissingValues",
			routes: referenceRoutes,
			mutate: func(t *testing.T, f *Formulation, values []float64) []float64 {
				return values[:10]
			},
			want: &ConsistencyError{Check: CheckValues, Vehicle: -1, Location: -1},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := mustBuild(t, ReferenceInstance())
			values := routeValues(t, f, tc.routes)
			if tc.mutate != nil {
				values = tc.mutate(t, f, values)
			}
			resp := &mpmodel.Response{Status: mpmodel.Optimal, VariableValues: values}
			if len(values) == f.Model.NumVariables() {
				resp.ObjectiveValue = f.Model.ObjectiveValue(values) + tc.objectiveDelta
			}

			sol, err := f.Extract(resp)
			if sol != nil {
				t.Errorf("Extract() returned a solution along with error %v", err)
			}
			if !errors.Is(err, ErrConsistency) {
				t.Fatalf("Extract() = %v, want an error wrapping ErrConsistency", err)
			}
			var ce *ConsistencyError
			if !errors.As(err, &ce) {
				t.Fatalf("Extract() = %T, want *ConsistencyError", err)
			}
			got := &ConsistencyError{Check: ce.Check, Vehicle: ce.Vehicle, Location: ce.Location}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Extract() returned with unexpected diff (-want+got):\n%s", diff)
			}
			if ce.Detail == "" {
				t.Errorf("Extract() returned %v without detail", err)
			}
		})
	}
}

func TestConsistencyError_Error(t *testing.T) {
	err := &ConsistencyError{Check: CheckGuard, Vehicle: 2, Location: 5, Detail: "no depot return within 8 stops"}
	want := "vrp: traversal guard check failed for vehicle 2 at location 5: no depot return within 8 stops"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestRoute_String(t *testing.T) {
	testCases := []struct {
		route Route
		want  string
	}{
		{Route{Vehicle: 1, Stops: []int{0}, Capacity: 25}, "vehicle 1: unused"},
		{Route{Vehicle: 0, Stops: []int{0, 2, 6, 0}, Demand: 24, Capacity: 25, Distance: 12.5}, "vehicle 0: 0 -> 2 -> 6 -> 0 (demand 24/25, distance 12.50)"},
	}
	for _, tc := range testCases {
		if got := tc.route.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}
