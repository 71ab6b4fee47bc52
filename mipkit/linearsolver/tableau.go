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
	"math"

	"github.com/mipkit/mip-kit/mipkit/mpmodel"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// artificialBound stands in for an infinite bound of a nonbasic variable. A variable still
	// resting on it at the optimum with a non-zero reduced cost proves the LP unbounded.
	artificialBound = 1e7
	primalTolerance = 1e-7
	dualTolerance   = 1e-9
	pivotTolerance  = 1e-9
	// After this many degenerate pivots in a row, pivoting switches to Bland's rule.
	blandAfter = 50
	// The tableau is rebuilt from the constraint rows every refactorEvery pivots.
	refactorEvery = 200
)

type varStatus int8

const (
	basic varStatus = iota
	atLower
	atUpper
	free
)

// boundedRow is an active constraint `lo <= a'x <= hi`.
type boundedRow struct {
	cols   []int
	coeffs []float64
	lo, hi float64
}

// activeRows returns the constraints of `m` with at least one finite bound.
func activeRows(m *mpmodel.Model) []boundedRow {
	var rows []boundedRow
	for _, ct := range m.Constraints {
		if math.IsInf(ct.LowerBound, -1) && math.IsInf(ct.UpperBound, 1) {
			continue
		}
		r := boundedRow{lo: ct.LowerBound, hi: ct.UpperBound}
		for t, ind := range ct.VarIndices {
			r.cols = append(r.cols, int(ind))
			r.coeffs = append(r.coeffs, ct.Coefficients[t])
		}
		rows = append(rows, r)
	}
	return rows
}

// tableau is a bounded-variable dual simplex over the model variables and one slack per row,
// `s_r = a_r'x` with the row bounds. Columns 0..n-1 are the model variables and column n+r is
// the slack of row r. Each tableau row expresses one basic variable in terms of the nonbasic
// ones: `val[basis[r]] = -sum_j tab[r][j] * val[j]` over nonbasic j.
//
// Reduced costs stay dual feasible throughout, so after a bound change the tableau of a solved
// parent is a valid starting point for its children.
type tableau struct {
	n, m int
	rows []boundedRow
	// tab is nil when there are no rows.
	tab *mat.Dense

	cost   []float64
	d      []float64
	lb, ub []float64
	// art is -1 (resp. +1) when lb (resp. ub) is an artificial finite bound.
	art    []int8
	val    []float64
	basis  []int
	status []varStatus

	pivots        int
	sinceRefactor int
	degenerate    int
}

func newTableau(n int, obj []float64, rows []boundedRow, lb, ub []float64) *tableau {
	m := len(rows)
	cols := n + m
	t := &tableau{
		n:      n,
		m:      m,
		rows:   rows,
		cost:   make([]float64, cols),
		lb:     make([]float64, cols),
		ub:     make([]float64, cols),
		art:    make([]int8, cols),
		val:    make([]float64, cols),
		basis:  make([]int, m),
		status: make([]varStatus, cols),
	}
	copy(t.cost, obj)
	copy(t.lb, lb)
	copy(t.ub, ub)
	for r, row := range rows {
		t.lb[n+r], t.ub[n+r] = row.lo, row.hi
		t.basis[r] = n + r
	}
	t.tab = t.initial()
	t.d = append([]float64(nil), t.cost...)
	for j := 0; j < n; j++ {
		t.place(j)
	}
	t.computeBasics()
	return t
}

// initial returns the tableau of the slack basis, [-A I].
func (t *tableau) initial() *mat.Dense {
	if t.m == 0 {
		return nil
	}
	a := mat.NewDense(t.m, t.n+t.m, nil)
	for r, row := range t.rows {
		raw := a.RawRowView(r)
		for k, j := range row.cols {
			raw[j] -= row.coeffs[k]
		}
		raw[t.n+r] = 1
	}
	return a
}

func (t *tableau) clone() *tableau {
	c := *t
	if t.tab != nil {
		c.tab = mat.DenseCopyOf(t.tab)
	}
	c.d = append([]float64(nil), t.d...)
	c.lb = append([]float64(nil), t.lb...)
	c.ub = append([]float64(nil), t.ub...)
	c.art = append([]int8(nil), t.art...)
	c.val = append([]float64(nil), t.val...)
	c.basis = append([]int(nil), t.basis...)
	c.status = append([]varStatus(nil), t.status...)
	return &c
}

// place puts nonbasic variable j on the bound its reduced cost favors, replacing an infinite
// bound by an artificial one when needed.
func (t *tableau) place(j int) {
	switch {
	case t.art[j] < 0:
		t.lb[j] = math.Inf(-1)
	case t.art[j] > 0:
		t.ub[j] = math.Inf(1)
	}
	t.art[j] = 0
	l, u, d := t.lb[j], t.ub[j], t.d[j]
	switch {
	case l == u:
		t.status[j], t.val[j] = atLower, l
	case d > dualTolerance || (d >= -dualTolerance && !math.IsInf(l, -1)):
		if math.IsInf(l, -1) {
			t.lb[j], t.art[j] = -artificialBound, -1
		}
		t.status[j], t.val[j] = atLower, t.lb[j]
	case d < -dualTolerance || !math.IsInf(u, 1):
		if math.IsInf(u, 1) {
			t.ub[j], t.art[j] = artificialBound, 1
		}
		t.status[j], t.val[j] = atUpper, t.ub[j]
	default:
		t.status[j], t.val[j] = free, 0
	}
}

func (t *tableau) computeBasics() {
	for r := 0; r < t.m; r++ {
		var s float64
		for j, a := range t.tab.RawRowView(r) {
			if t.status[j] != basic && t.val[j] != 0 {
				s -= a * t.val[j]
			}
		}
		t.val[t.basis[r]] = s
	}
}

// refactor rebuilds the tableau of the current basis from the rows, which clears the error
// accumulated by pivoting. It returns false when the basis has become numerically singular.
func (t *tableau) refactor() bool {
	if t.m == 0 {
		return true
	}
	a := t.initial()
	done := make([]bool, t.m)
	basis := make([]int, t.m)
	for _, q := range t.basis {
		r, best := -1, pivotTolerance
		for i := 0; i < t.m; i++ {
			if v := math.Abs(a.At(i, q)); !done[i] && v > best {
				r, best = i, v
			}
		}
		if r < 0 {
			return false
		}
		done[r] = true
		basis[r] = q
		pivotRows(a, r, q)
	}
	t.tab, t.basis = a, basis
	d := append([]float64(nil), t.cost...)
	for r, b := range basis {
		if cb := t.cost[b]; cb != 0 {
			floats.AddScaled(d, -cb, a.RawRowView(r))
		}
	}
	for _, b := range basis {
		d[b] = 0
	}
	t.d = d
	t.computeBasics()
	t.sinceRefactor = 0
	return true
}

// setBounds changes the bounds of variable j, moving it along with the basic variables when it
// is nonbasic. The reduced costs are untouched, so the tableau stays dual feasible.
func (t *tableau) setBounds(j int, l, u float64) {
	t.lb[j], t.ub[j], t.art[j] = l, u, 0
	if t.status[j] == basic {
		return
	}
	old := t.val[j]
	switch {
	case l == u:
		t.status[j], t.val[j] = atLower, l
	case t.status[j] == atLower && !math.IsInf(l, -1):
		t.val[j] = l
	case t.status[j] == atUpper && !math.IsInf(u, 1):
		t.val[j] = u
	default:
		t.place(j)
	}
	if delta := t.val[j] - old; delta != 0 {
		for r := 0; r < t.m; r++ {
			t.val[t.basis[r]] -= t.tab.At(r, j) * delta
		}
	}
}

// infeasibility returns how far variable b is below its lower bound (positive) or above its
// upper bound (negative), and 0 when it is within bounds.
func (t *tableau) infeasibility(b int) float64 {
	v, l, u := t.val[b], t.lb[b], t.ub[b]
	if l-v > primalTolerance*math.Max(1, math.Abs(l)) {
		return l - v
	}
	if v-u > primalTolerance*math.Max(1, math.Abs(u)) {
		return u - v
	}
	return 0
}

// leaving returns the row of the most infeasible basic variable, or -1 when the basis is
// primal feasible.
func (t *tableau) leaving() int {
	bland := t.degenerate > blandAfter
	r, worst, first := -1, 0.0, math.MaxInt
	for i, b := range t.basis {
		inf := t.infeasibility(b)
		switch {
		case inf == 0:
		case bland:
			if b < first {
				r, first = i, b
			}
		case math.Abs(inf) > worst:
			r, worst = i, math.Abs(inf)
		}
	}
	return r
}

func (t *tableau) eligible(j int, a float64, up bool) bool {
	st := t.status[j]
	if st == basic || t.lb[j] == t.ub[j] || math.Abs(a) < pivotTolerance {
		return false
	}
	// The basic variable of the row moves by -a per unit increase of variable j.
	inc := a > 0
	if up {
		inc = a < 0
	}
	switch st {
	case free:
		return true
	case atLower:
		return inc
	}
	return !inc
}

// entering picks the column that enters the basis when row r leaves towards its lower bound
// (up) or its upper bound. It runs a two-pass Harris ratio test, preferring large pivots among
// the columns whose ratio is within tolerance of the smallest. It returns -1 when no column can
// repair the row, which proves the LP infeasible.
func (t *tableau) entering(r int, up bool) int {
	row := t.tab.RawRowView(r)
	bland := t.degenerate > blandAfter
	bound := math.Inf(1)
	for j, a := range row {
		if t.eligible(j, a, up) {
			bound = math.Min(bound, (math.Abs(t.d[j])+dualTolerance)/math.Abs(a))
		}
	}
	q, size, best := -1, 0.0, math.Inf(1)
	for j, a := range row {
		if !t.eligible(j, a, up) {
			continue
		}
		ratio := math.Abs(t.d[j]) / math.Abs(a)
		if bland {
			if ratio < best-1e-12 {
				q, best = j, ratio
			}
			continue
		}
		if ratio <= bound && math.Abs(a) > size {
			q, size = j, math.Abs(a)
		}
	}
	return q
}

// pivot exchanges the basic variable of row r, which leaves at `target`, with column q.
func (t *tableau) pivot(r, q int, target float64) {
	row := t.tab.RawRowView(r)
	alpha, leave := row[q], t.basis[r]
	theta := (t.val[leave] - target) / alpha
	for i, b := range t.basis {
		t.val[b] -= t.tab.At(i, q) * theta
	}
	t.val[q] += theta
	t.val[leave] = target

	ratio := t.d[q] / alpha
	if math.Abs(ratio) <= 1e-12 {
		t.degenerate++
	} else {
		t.degenerate = 0
	}
	if ratio != 0 {
		floats.AddScaled(t.d, -ratio, row)
	}
	t.d[q] = 0

	t.status[leave] = atUpper
	if target == t.lb[leave] {
		t.status[leave] = atLower
	}
	switch {
	case t.art[q] < 0:
		t.lb[q] = math.Inf(-1)
	case t.art[q] > 0:
		t.ub[q] = math.Inf(1)
	}
	t.art[q] = 0

	pivotRows(t.tab, r, q)
	t.basis[r] = q
	t.status[q] = basic
	t.pivots++
	t.sinceRefactor++
}

// solve runs dual simplex iterations until the basis is primal feasible or infeasibility is
// proven. It reports lpStalled after maxIter iterations or when refactoring fails.
func (t *tableau) solve(maxIter int) lpStatus {
	t.degenerate = 0
	for it := 0; it < maxIter; it++ {
		r := t.leaving()
		if r < 0 {
			t.computeBasics()
			if t.leaving() < 0 {
				return lpOptimal
			}
			continue
		}
		b := t.basis[r]
		up := t.infeasibility(b) > 0
		q := t.entering(r, up)
		if q < 0 {
			return lpInfeasible
		}
		target := t.ub[b]
		if up {
			target = t.lb[b]
		}
		t.pivot(r, q, target)
		if t.sinceRefactor >= refactorEvery && !t.refactor() {
			return lpStalled
		}
	}
	return lpStalled
}

// iterationLimit returns the number of iterations after which solve gives up.
func (t *tableau) iterationLimit() int {
	return 50 * (2*t.m + t.n)
}

// unbounded reports whether an optimal tableau still leans on an artificial bound.
func (t *tableau) unbounded() bool {
	for j, a := range t.art {
		if a != 0 && t.status[j] != basic && math.Abs(t.d[j]) > dualTolerance {
			return true
		}
	}
	return false
}

// objective returns the objective of the current point.
func (t *tableau) objective() float64 {
	return floats.Dot(t.cost[:t.n], t.val[:t.n])
}

// values returns a copy of the model variable values.
func (t *tableau) values() []float64 {
	return append([]float64(nil), t.val[:t.n]...)
}

// pivotRows performs a Gauss-Jordan elimination step on column q with pivot row r.
func pivotRows(a *mat.Dense, r, q int) {
	rows, _ := a.Dims()
	pr := a.RawRowView(r)
	floats.Scale(1/pr[q], pr)
	pr[q] = 1
	for i := 0; i < rows; i++ {
		if i == r {
			continue
		}
		ri := a.RawRowView(i)
		if f := ri[q]; f != 0 {
			floats.AddScaled(ri, -f, pr)
			ri[q] = 0
		}
	}
}
