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

package mpmodel

import (
	"fmt"
	"math"
)

// Interval stores the closed interval `[Lo,Hi]`. Either end may be infinite. If `Lo` is
// greater than `Hi`, or either end is NaN, the interval is considered empty.
type Interval struct {
	Lo float64
	Hi float64
}

// NewInterval creates the interval `[lo,hi]`.
func NewInterval(lo, hi float64) Interval {
	return Interval{lo, hi}
}

// AllReals returns `(-inf,+inf)`.
func AllReals() Interval {
	return Interval{math.Inf(-1), math.Inf(1)}
}

// Point returns the singleton interval `[v,v]`.
func Point(v float64) Interval {
	return Interval{v, v}
}

// Offset adds an offset to both ends of the interval. Infinite ends stay infinite.
func (c Interval) Offset(delta float64) Interval {
	return Interval{offsetFinite(c.Lo, delta), offsetFinite(c.Hi, delta)}
}

func offsetFinite(v, delta float64) float64 {
	if math.IsInf(v, 0) {
		return v
	}
	return v + delta
}

// Intersect returns the intersection of `c` and `o`.
func (c Interval) Intersect(o Interval) Interval {
	return Interval{math.Max(c.Lo, o.Lo), math.Min(c.Hi, o.Hi)}
}

// IsEmpty reports whether the interval contains no value.
func (c Interval) IsEmpty() bool {
	return math.IsNaN(c.Lo) || math.IsNaN(c.Hi) || c.Lo > c.Hi
}

// IsFixed reports whether the interval contains exactly one value.
func (c Interval) IsFixed() bool {
	return c.Lo == c.Hi && !math.IsInf(c.Lo, 0)
}

// Contains reports whether `v` lies in the interval widened by `tol` on both sides.
func (c Interval) Contains(v, tol float64) bool {
	return v >= c.Lo-tol && v <= c.Hi+tol
}

// Width returns `Hi - Lo`, which is +inf when either end is infinite.
func (c Interval) Width() float64 {
	return c.Hi - c.Lo
}

func (c Interval) String() string {
	return fmt.Sprintf("[%v, %v]", c.Lo, c.Hi)
}
