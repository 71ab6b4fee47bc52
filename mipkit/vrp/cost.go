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
	"math"

	log "github.com/golang/glog"
)

// Point is a location in the plane.
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Oracle returns the cost of travelling between two locations. Cost must be total over the
// known locations, non-negative, and zero from a location to itself. An unknown location is
// a programmer error.
type Oracle interface {
	Cost(i, j int) float64
}

// Euclidean is the straight-line distance between points. Location ids index the slice.
type Euclidean []Point

// Cost implements Oracle.
func (e Euclidean) Cost(i, j int) float64 {
	if i < 0 || i >= len(e) || j < 0 || j >= len(e) {
		log.Fatalf("Euclidean.Cost(%d, %d): location out of range [0, %d)", i, j, len(e))
	}
	if i == j {
		return 0
	}
	return math.Hypot(e[i].X-e[j].X, e[i].Y-e[j].Y)
}

// Matrix is an Oracle backed by a precomputed cost matrix, which may be asymmetric.
type Matrix [][]float64

// NewMatrix evaluates `o` over every ordered pair of the first `n` locations.
func NewMatrix(o Oracle, n int) Matrix {
	m := make(Matrix, n)
	for i := range m {
		m[i] = make([]float64, n)
		for j := range m[i] {
			m[i][j] = o.Cost(i, j)
		}
	}
	return m
}

// Cost implements Oracle.
func (m Matrix) Cost(i, j int) float64 {
	if i < 0 || i >= len(m) || j < 0 || j >= len(m[i]) {
		log.Fatalf("Matrix.Cost(%d, %d): location out of range [0, %d)", i, j, len(m))
	}
	return m[i][j]
}

// validCost reports whether `c` is usable as an arc cost.
func validCost(c float64) bool {
	return c >= 0 && !math.IsInf(c, 1)
}
