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
	"fmt"
	"math"
	"strings"
)

// Depot is the location id of the depot.
const Depot = 0

var (
	// ErrConfiguration is wrapped by every ConfigError.
	ErrConfiguration = errors.New("configuration fault")
	// ErrConsistency is wrapped by every ConsistencyError.
	ErrConsistency = errors.New("consistency fault")
)

// ConfigError reports an instance that cannot be modeled. It is returned before any solver is
// invoked.
type ConfigError struct {
	Reason string
	// Customer is the offending location id, or -1.
	Customer int
	// Vehicle is the offending vehicle id, or -1.
	Vehicle int
}

func (e *ConfigError) Error() string {
	var sb strings.Builder
	sb.WriteString("vrp: ")
	sb.WriteString(e.Reason)
	if e.Customer >= 0 {
		fmt.Fprintf(&sb, " (customer %d)", e.Customer)
	}
	if e.Vehicle >= 0 {
		fmt.Fprintf(&sb, " (vehicle %d)", e.Vehicle)
	}
	return sb.String()
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

func configErrorf(customer, vehicle int, format string, a ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, a...), Customer: customer, Vehicle: vehicle}
}

// Instance is a capacitated vehicle routing instance. Location 0 is the depot and locations
// 1..N-1 are customers.
type Instance struct {
	Locations []Point `yaml:"locations" json:"locations"`
	// Demands holds one quantity per location; Demands[Depot] must be 0.
	Demands []float64 `yaml:"demands" json:"demands"`
	// Capacities holds one capacity per vehicle.
	Capacities []float64 `yaml:"capacities" json:"capacities"`
}

// NewInstance returns an instance with `vehicles` vehicles of equal `capacity`.
// `customerDemands[c]` is the demand of location c+1.
func NewInstance(locations []Point, customerDemands []float64, vehicles int, capacity float64) Instance {
	in := Instance{
		Locations: locations,
		Demands:   append([]float64{0}, customerDemands...),
	}
	if vehicles > 0 {
		in.Capacities = make([]float64, vehicles)
		for k := range in.Capacities {
			in.Capacities[k] = capacity
		}
	}
	return in
}

// NumLocations returns the number of locations, depot included.
func (in Instance) NumLocations() int {
	return len(in.Locations)
}

// NumCustomers returns the number of customers.
func (in Instance) NumCustomers() int {
	if len(in.Locations) == 0 {
		return 0
	}
	return len(in.Locations) - 1
}

// NumVehicles returns the number of vehicles.
func (in Instance) NumVehicles() int {
	return len(in.Capacities)
}

// MaxCapacity returns the largest vehicle capacity.
func (in Instance) MaxCapacity() float64 {
	m := math.Inf(-1)
	for _, c := range in.Capacities {
		m = math.Max(m, c)
	}
	return m
}

// TotalDemand returns the sum of all customer demands.
func (in Instance) TotalDemand() float64 {
	var t float64
	for _, d := range in.Demands {
		t += d
	}
	return t
}

// Validate returns a *ConfigError describing the first reason the instance cannot be modeled.
func (in Instance) Validate() error {
	if len(in.Locations) == 0 {
		return configErrorf(-1, -1, "instance has no depot")
	}
	if len(in.Demands) != len(in.Locations) {
		return configErrorf(-1, -1, "got %d demands for %d locations", len(in.Demands), len(in.Locations))
	}
	if len(in.Capacities) == 0 {
		return configErrorf(-1, -1, "vehicle count is zero")
	}
	for i, p := range in.Locations {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return configErrorf(i, -1, "location has non-finite coordinates %v", p)
		}
	}
	if in.Demands[Depot] != 0 {
		return configErrorf(-1, -1, "depot demand is %v, want 0", in.Demands[Depot])
	}
	for k, c := range in.Capacities {
		if !(c >= 0) || math.IsInf(c, 1) {
			return configErrorf(-1, k, "capacity %v is not a finite non-negative number", c)
		}
	}
	maxCap := in.MaxCapacity()
	for j := 1; j < len(in.Demands); j++ {
		d := in.Demands[j]
		if !(d >= 0) || math.IsInf(d, 1) {
			return configErrorf(j, -1, "demand %v is not a finite non-negative number", d)
		}
		if d > maxCap {
			return configErrorf(j, -1, "demand %v exceeds every vehicle capacity (max %v)", d, maxCap)
		}
	}
	return nil
}
