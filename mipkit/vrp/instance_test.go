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
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEuclidean_Cost(t *testing.T) {
	e := Euclidean{{0, 0}, {3, 4}, {6, 8}}
	testCases := []struct {
		i, j int
		want float64
	}{
		{0, 0, 0},
		{0, 1, 5},
		{1, 0, 5},
		{0, 2, 10},
		{2, 1, 5},
	}
	for _, tc := range testCases {
		if got := e.Cost(tc.i, tc.j); got != tc.want {
			t.Errorf("Cost(%d, %d) = %v, want %v", tc.i, tc.j, got, tc.want)
		}
	}
}

func TestNewMatrix(t *testing.T) {
	m := NewMatrix(Euclidean{{0, 0}, {3, 4}, {0, 4}}, 3)
	want := Matrix{
		{0, 5, 4},
		{5, 0, 3},
		{4, 3, 0},
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("NewMatrix() returned with unexpected diff (-want+got):\n%s", diff)
	}
	if got := m.Cost(2, 1); got != 3 {
		t.Errorf("Cost(2, 1) = %v, want 3", got)
	}
}

func TestNewInstance(t *testing.T) {
	in := NewInstance([]Point{{0, 0}, {1, 0}, {2, 0}}, []float64{4, 6}, 2, 7)
	if diff := cmp.Diff([]float64{0, 4, 6}, in.Demands); diff != "" {
		t.Errorf("Demands returned with unexpected diff (-want+got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{7, 7}, in.Capacities); diff != "" {
		t.Errorf("Capacities returned with unexpected diff (-want+got):\n%s", diff)
	}
	if got, want := in.NumCustomers(), 2; got != want {
		t.Errorf("NumCustomers() = %d, want %d", got, want)
	}
	if got, want := in.TotalDemand(), 10.0; got != want {
		t.Errorf("TotalDemand() = %v, want %v", got, want)
	}
	if got := NewInstance(nil, nil, 0, 10).NumVehicles(); got != 0 {
		t.Errorf("NumVehicles() with no vehicles = %d, want 0", got)
	}
}

func TestInstance_Validate(t *testing.T) {
	locs := []Point{{0, 0}, {1, 1}, {2, 2}}
	testCases := []struct {
		name string
		in   Instance
		want *ConfigError
	}{
		{
			name: "Valid",
			in:   NewInstance(locs, []float64{3, 4}, 2, 5),
		},
		{
			name: "DepotOnly",
			in:   NewInstance(locs[:1], nil, 1, 5),
		},
		{
			name: "DemandEqualToCapacity",
			in:   NewInstance(locs, []float64{5, 4}, 1, 5),
		},
		{
			name: "PerVehicleCapacities",
			in:   Instance{Locations: locs, Demands: []float64{0, 8, 2}, Capacities: []float64{3, 8}},
		},
		{
			name: "NoDepot",
			in:   Instance{Capacities: []float64{1}},
			want: &ConfigError{Reason: "instance has no depot", Customer: -1, Vehicle: -1},
		},
		{
			name: "DemandCountMismatch",
			in:   Instance{Locations: locs, Demands: []float64{0, 1}, Capacities: []float64{1}},
			want: &ConfigError{Reason: "got 2 demands for 3 locations", Customer: -1, Vehicle: -1},
		},
		{
			name: "ZeroVehicles",
			in:   NewInstance(locs, []float64{3, 4}, 0, 5),
			want: &ConfigError{Reason: "vehicle count is zero", Customer: -1, Vehicle: -1},
		},
		{
			name: "NonFiniteLocation",
			in:   NewInstance([]Point{{0, 0}, {math.NaN(), 1}}, []float64{1}, 1, 5),
			want: &ConfigError{Reason: "location has non-finite coordinates {NaN 1}", Customer: 1, Vehicle: -1},
		},
		{
			name: "DepotDemand",
			in:   Instance{Locations: locs, Demands: []float64{1, 1, 1}, Capacities: []float64{5}},
			want: &ConfigError{Reason: "depot demand is 1, want 0", Customer: -1, Vehicle: -1},
		},
		{
			name: "NegativeCapacity",
			in:   Instance{Locations: locs, Demands: []float64{0, 1, 1}, Capacities: []float64{5, -1}},
			want: &ConfigError{Reason: "capacity -1 is not a finite non-negative number", Customer: -1, Vehicle: 1},
		},
		{
			name: "NegativeDemand",
			in:   NewInstance(locs, []float64{1, -2}, 1, 5),
			want: &ConfigError{Reason: "demand -2 is not a finite non-negative number", Customer: 2, Vehicle: -1},
		},
		{
			name: "DemandExceedsEveryCapacity",
			in:   Instance{Locations: locs, Demands: []float64{0, 9, 2}, Capacities: []float64{3, 8}},
			want: &ConfigError{Reason: "demand 9 exceeds every vehicle capacity (max 8)", Customer: 1, Vehicle: -1},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Validate()
			if tc.want == nil {
				if err != nil {
					t.Errorf("Validate() returned unexpected error %v", err)
				}
				return
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("Validate() = %v, want an error wrapping ErrConfiguration", err)
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("Validate() = %T, want *ConfigError", err)
			}
			if diff := cmp.Diff(tc.want, ce); diff != "" {
				t.Errorf("Validate() returned with unexpected diff (-want+got):\n%s", diff)
			}
		})
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Reason: "demand 30 exceeds every vehicle capacity (max 25)", Customer: 4, Vehicle: -1}
	want := "vrp: demand 30 exceeds every vehicle capacity (max 25) (customer 4)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
