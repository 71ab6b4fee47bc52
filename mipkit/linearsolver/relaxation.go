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

package linearsolver

import (
	"errors"
	"fmt"
	"math"

	"github.com/mipkit/mip-kit/mipkit/mpmodel"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// simplexTolerance is the reduced cost threshold handed to lp.Simplex.
const simplexTolerance = 1e-9

type lpStatus int

const (
	lpOptimal lpStatus = iota
	lpInfeasible
	lpUnbounded
	// lpStalled means the dual simplex gave up before reaching a verdict.
	lpStalled
)

// columnKind says how a model variable is expressed in the standard form
// `min c'y, Ay = b, y >= 0`.
type columnKind int

const (
	// x = origin + y
	shiftedLower columnKind = iota
	// x = origin - y
	shiftedUpper
	// x = y[col] - y[col2]
	splitFree
	// x = origin, no column
	eliminated
)

type varColumn struct {
	kind   columnKind
	col    int
	col2   int
	origin float64
}

// relaxation is the LP relaxation of a model under a set of variable bounds.
type relaxation struct {
	status lpStatus
	// value is the minimized objective, without the model offset.
	value  float64
	values []float64
}

type row struct {
	cols   []int
	coeffs []float64
	rhs    float64
}

// solveRelaxation minimizes `obj'x` over the constraints of `m` with variable bounds
// `[lb, ub]`, ignoring integrality. It converts the model to standard form for the gonum
// simplex, which makes it slow but independent from the tableau; the search only falls back
// to it when the tableau stalls.
func solveRelaxation(m *mpmodel.Model, obj, lb, ub []float64, tol float64) (*relaxation, error) {
	n := len(m.Variables)

	// Only rows with at least one finite bound constrain anything.
	active := make([]bool, len(m.Constraints))
	used := make([]bool, n)
	for ci, ct := range m.Constraints {
		if math.IsInf(ct.LowerBound, -1) && math.IsInf(ct.UpperBound, 1) {
			continue
		}
		active[ci] = true
		for t, ind := range ct.VarIndices {
			if ct.Coefficients[t] != 0 {
				used[ind] = true
			}
		}
	}

	vars := make([]varColumn, n)
	numCols := 0
	var bounds []row
	var constant float64
	var costs []float64
	for i := 0; i < n; i++ {
		l, u := lb[i], ub[i]
		switch {
		case l == u || !used[i]:
			v, ok := isolatedValue(obj[i], l, u)
			if !ok {
				return &relaxation{status: lpUnbounded}, nil
			}
			vars[i] = varColumn{kind: eliminated, origin: v}
			constant += obj[i] * v
		case !math.IsInf(l, -1):
			vars[i] = varColumn{kind: shiftedLower, col: numCols, origin: l}
			costs = append(costs, obj[i])
			constant += obj[i] * l
			if !math.IsInf(u, 1) {
				bounds = append(bounds, row{cols: []int{numCols}, coeffs: []float64{1}, rhs: u - l})
			}
			numCols++
		case !math.IsInf(u, 1):
			vars[i] = varColumn{kind: shiftedUpper, col: numCols, origin: u}
			costs = append(costs, -obj[i])
			constant += obj[i] * u
			numCols++
		default:
			vars[i] = varColumn{kind: splitFree, col: numCols, col2: numCols + 1}
			costs = append(costs, obj[i], -obj[i])
			numCols += 2
		}
	}

	// Each row gets its own slack column, so the constraint matrix always has full row rank.
	// A ranged row lo <= a'y <= hi becomes a'y + s = hi and s + t = hi - lo.
	type slackRow struct {
		row
		slack float64
		// ranged rows own a second slack t shared with a follow-up row.
		ranged bool
		width  float64
	}
	var rows []slackRow
	for ci, ct := range m.Constraints {
		if !active[ci] {
			continue
		}
		var r row
		var k float64
		for t, ind := range ct.VarIndices {
			coeff := ct.Coefficients[t]
			if coeff == 0 {
				continue
			}
			vc := vars[ind]
			switch vc.kind {
			case eliminated:
				k += coeff * vc.origin
			case shiftedLower:
				k += coeff * vc.origin
				r.cols = append(r.cols, vc.col)
				r.coeffs = append(r.coeffs, coeff)
			case shiftedUpper:
				k += coeff * vc.origin
				r.cols = append(r.cols, vc.col)
				r.coeffs = append(r.coeffs, -coeff)
			case splitFree:
				r.cols = append(r.cols, vc.col, vc.col2)
				r.coeffs = append(r.coeffs, coeff, -coeff)
			}
		}
		lo, hi := ct.LowerBound-k, ct.UpperBound-k
		if len(r.cols) == 0 {
			if !mpmodel.NewInterval(lo, hi).Contains(0, tol) {
				return &relaxation{status: lpInfeasible}, nil
			}
			continue
		}
		switch {
		case math.IsInf(lo, -1):
			r.rhs = hi
			rows = append(rows, slackRow{row: r, slack: 1})
		case math.IsInf(hi, 1):
			r.rhs = lo
			rows = append(rows, slackRow{row: r, slack: -1})
		default:
			r.rhs = hi
			rows = append(rows, slackRow{row: r, slack: 1, ranged: true, width: hi - lo})
		}
	}
	for _, r := range bounds {
		rows = append(rows, slackRow{row: r, slack: 1})
	}

	values := make([]float64, n)
	if len(rows) == 0 {
		for i, vc := range vars {
			values[i] = vc.origin
		}
		return &relaxation{status: lpOptimal, value: constant, values: values}, nil
	}

	numRows := len(rows)
	numSlacks := numRows
	for _, r := range rows {
		if r.ranged {
			numRows++
			numSlacks++
		}
	}
	totalCols := numCols + numSlacks
	a := mat.NewDense(numRows, totalCols, nil)
	b := make([]float64, numRows)
	c := make([]float64, totalCols)
	copy(c, costs)

	ri, si := 0, numCols
	for _, r := range rows {
		for t, col := range r.cols {
			a.Set(ri, col, a.At(ri, col)+r.coeffs[t])
		}
		a.Set(ri, si, r.slack)
		b[ri] = r.rhs
		if r.ranged {
			a.Set(ri+1, si, 1)
			a.Set(ri+1, si+1, 1)
			b[ri+1] = r.width
			ri++
			si++
		}
		ri++
		si++
	}
	for i := range b {
		if b[i] < 0 {
			b[i] = -b[i]
			for j := 0; j < totalCols; j++ {
				a.Set(i, j, -a.At(i, j))
			}
		}
	}

	opt, y, err := lp.Simplex(c, a, b, simplexTolerance, nil)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return &relaxation{status: lpInfeasible}, nil
	case errors.Is(err, lp.ErrUnbounded):
		return &relaxation{status: lpUnbounded}, nil
	case err != nil:
		return nil, fmt.Errorf("simplex on %dx%d standard form failed: %w", numRows, totalCols, err)
	}

	for i, vc := range vars {
		switch vc.kind {
		case eliminated:
			values[i] = vc.origin
		case shiftedLower:
			values[i] = vc.origin + y[vc.col]
		case shiftedUpper:
			values[i] = vc.origin - y[vc.col]
		case splitFree:
			values[i] = y[vc.col] - y[vc.col2]
		}
	}
	return &relaxation{status: lpOptimal, value: opt + constant, values: values}, nil
}

// isolatedValue picks the value of a variable that appears in no active row: the bound its
// cost pushes towards, or the point of its bounds closest to zero when it has no cost. It
// returns false when the cost pushes towards an infinite bound.
func isolatedValue(cost, lb, ub float64) (float64, bool) {
	switch {
	case lb == ub:
		return lb, true
	case cost > 0:
		return lb, !math.IsInf(lb, -1)
	case cost < 0:
		return ub, !math.IsInf(ub, 1)
	}
	return math.Max(lb, math.Min(ub, 0)), true
}
