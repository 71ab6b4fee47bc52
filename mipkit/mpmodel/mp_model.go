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

// Package mpmodel offers a user-friendly API to build mixed-integer linear models.
//
// The `Builder` struct owns the model under construction and provides helper methods
// for adding variables and linear constraints to it.
// The `Var` struct is a reference to a specific variable in the model and provides
// helpful methods for interacting with that variable.
// The `LinearExpr` struct provides helper methods for creating constraints and the
// objective from expressions with many variables and coefficients.
//
// Built models are handed to a `Solver`, which returns a `Response` holding the
// status and, when available, one value per variable.
package mpmodel

import (
	"errors"
	"fmt"
	"math"

	log "github.com/golang/glog"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrMixedModels holds the error when elements added to a model are different.
	ErrMixedModels = errors.New("elements are not part of the same model")
	// ErrInvalidModel is wrapped by every error returned from Validate.
	ErrInvalidModel = errors.New("invalid model")
	// ErrViolated is wrapped by every error returned from CheckFeasible.
	ErrViolated = errors.New("assignment violates the model")
)

type (
	// VarIndex is the index of a variable in the model.
	VarIndex int32
	// ConstrIndex is the index of a constraint in the model.
	ConstrIndex int32
)

// LinearArgument provides an interface for Var and LinearExpr.
type LinearArgument interface {
	addToLinearExpr(e *LinearExpr, c float64)
	evaluateSolutionValue(values []float64) float64
}

// LinearExpr is a container for a linear expression.
type LinearExpr struct {
	varCoeffs []varCoeff
	offset    float64
	// mb is the builder owning the variables of the expression, nil while the
	// expression holds none.
	mb  *Builder
	err error
}

type varCoeff struct {
	ind   VarIndex
	coeff float64
}

// NewLinearExpr creates a new empty LinearExpr.
func NewLinearExpr() *LinearExpr {
	return &LinearExpr{}
}

// NewConstant creates and returns a LinearExpr containing the constant `c`.
func NewConstant(c float64) *LinearExpr {
	return &LinearExpr{offset: c}
}

// Add adds the linear argument term to the LinearExpr and returns itself.
func (l *LinearExpr) Add(la LinearArgument) *LinearExpr {
	l.AddTerm(la, 1)
	return l
}

// AddConstant adds the constant to the LinearExpr and returns itself.
func (l *LinearExpr) AddConstant(c float64) *LinearExpr {
	l.offset += c
	return l
}

// AddTerm adds the linear argument term with the given coefficient to the LinearExpr and returns itself.
func (l *LinearExpr) AddTerm(la LinearArgument, coeff float64) *LinearExpr {
	la.addToLinearExpr(l, coeff)
	return l
}

// AddSum adds the sum of the linear arguments to the LinearExpr and returns itself.
func (l *LinearExpr) AddSum(las ...LinearArgument) *LinearExpr {
	for _, la := range las {
		l.Add(la)
	}
	return l
}

// AddWeightedSum adds the linear arguments with the corresponding coefficients to the LinearExpr
// and returns itself.
func (l *LinearExpr) AddWeightedSum(las []LinearArgument, coeffs []float64) *LinearExpr {
	if len(coeffs) != len(las) {
		log.Fatalf("las and coeffs must be the same length: %v != %v", len(las), len(coeffs))
	}
	for i, la := range las {
		l.AddTerm(la, coeffs[i])
	}
	return l
}

// Offset returns the constant part of the expression.
func (l *LinearExpr) Offset() float64 {
	return l.offset
}

// NumTerms returns the number of variable terms, counting repeated variables once per term.
func (l *LinearExpr) NumTerms() int {
	return len(l.varCoeffs)
}

func (l *LinearExpr) addVar(mb *Builder, ind VarIndex, c float64) {
	if l.mb == nil {
		l.mb = mb
	} else if l.mb != mb && l.err == nil {
		l.err = fmt.Errorf("variable %v added to an expression of another model: %w", ind, ErrMixedModels)
	}
	l.varCoeffs = append(l.varCoeffs, varCoeff{ind: ind, coeff: c})
}

func (l *LinearExpr) addToLinearExpr(e *LinearExpr, c float64) {
	for _, vc := range l.varCoeffs {
		e.addVar(l.mb, vc.ind, vc.coeff*c)
	}
	if l.err != nil && e.err == nil {
		e.err = l.err
	}
	e.offset += l.offset * c
}

func (l *LinearExpr) evaluateSolutionValue(values []float64) float64 {
	result := l.offset
	for _, vc := range l.varCoeffs {
		result += values[vc.ind] * vc.coeff
	}
	return result
}

// merged returns the terms of `l` with repeated variables combined and zero
// coefficients dropped, in order of first appearance.
func (l *LinearExpr) merged() ([]int32, []float64) {
	pos := make(map[VarIndex]int, len(l.varCoeffs))
	var inds []int32
	var coeffs []float64
	for _, vc := range l.varCoeffs {
		if p, ok := pos[vc.ind]; ok {
			coeffs[p] += vc.coeff
			continue
		}
		pos[vc.ind] = len(inds)
		inds = append(inds, int32(vc.ind))
		coeffs = append(coeffs, vc.coeff)
	}
	n := 0
	for i := range inds {
		if coeffs[i] == 0 {
			continue
		}
		inds[n], coeffs[n] = inds[i], coeffs[i]
		n++
	}
	return inds[:n], coeffs[:n]
}

// Var is a reference to a variable in the model.
type Var struct {
	ind VarIndex
	mb  *Builder
}

// Name returns the name of the variable.
func (v Var) Name() string {
	return v.mb.model.Variables[v.ind].Name
}

// Index returns the index of the variable.
func (v Var) Index() VarIndex {
	return v.ind
}

// Bounds returns the bounds of the variable.
func (v Var) Bounds() Interval {
	return v.mb.model.Variables[v.ind].Bounds()
}

// IsInteger reports whether the variable is restricted to integral values.
func (v Var) IsInteger() bool {
	return v.mb.model.Variables[v.ind].Integer
}

// WithName sets the name of the variable.
func (v Var) WithName(s string) Var {
	v.mb.model.Variables[v.ind].Name = s
	return v
}

func (v Var) addToLinearExpr(e *LinearExpr, c float64) {
	e.addVar(v.mb, v.ind, c)
}

func (v Var) evaluateSolutionValue(values []float64) float64 {
	return values[v.ind]
}

// Constraint is a reference to a linear constraint in the model.
type Constraint struct {
	ind ConstrIndex
	mb  *Builder
}

// WithName sets the name of the constraint.
func (c Constraint) WithName(s string) Constraint {
	c.mb.model.Constraints[c.ind].Name = s
	return c
}

// Name returns the name of the constraint.
func (c Constraint) Name() string {
	return c.mb.model.Constraints[c.ind].Name
}

// Index returns the index of the constraint.
func (c Constraint) Index() ConstrIndex {
	return c.ind
}

// Bounds returns the bounds of the constraint activity.
func (c Constraint) Bounds() Interval {
	return c.mb.model.Constraints[c.ind].Bounds()
}

// Variable is the stored form of a decision variable.
type Variable struct {
	Name       string
	LowerBound float64
	UpperBound float64
	Integer    bool
}

// Bounds returns the bounds of the variable as an Interval.
func (v Variable) Bounds() Interval {
	return Interval{v.LowerBound, v.UpperBound}
}

// LinearConstraint is the stored form of `LowerBound <= Σ Coefficients[i]·x[VarIndices[i]] <= UpperBound`.
type LinearConstraint struct {
	Name         string
	LowerBound   float64
	UpperBound   float64
	VarIndices   []int32
	Coefficients []float64
}

// Bounds returns the bounds of the constraint as an Interval.
func (c LinearConstraint) Bounds() Interval {
	return Interval{c.LowerBound, c.UpperBound}
}

// Objective is the stored form of the objective function.
type Objective struct {
	Maximize     bool
	Offset       float64
	VarIndices   []int32
	Coefficients []float64
}

// Model is a built mixed-integer linear model.
type Model struct {
	Name        string
	Variables   []Variable
	Constraints []LinearConstraint
	Objective   Objective
}

// NumVariables returns the number of variables in the model.
func (m *Model) NumVariables() int {
	return len(m.Variables)
}

// NumConstraints returns the number of constraints in the model.
func (m *Model) NumConstraints() int {
	return len(m.Constraints)
}

// IsMIP reports whether at least one variable is integral.
func (m *Model) IsMIP() bool {
	for _, v := range m.Variables {
		if v.Integer {
			return true
		}
	}
	return false
}

// ObjectiveValue evaluates the objective at `values`.
func (m *Model) ObjectiveValue(values []float64) float64 {
	result := m.Objective.Offset
	for i, ind := range m.Objective.VarIndices {
		result += m.Objective.Coefficients[i] * values[ind]
	}
	return result
}

// Activity evaluates the linear part of constraint `ci` at `values`.
func (m *Model) Activity(ci ConstrIndex, values []float64) float64 {
	ct := m.Constraints[ci]
	var result float64
	for i, ind := range ct.VarIndices {
		result += ct.Coefficients[i] * values[ind]
	}
	return result
}

// Validate checks that every bound is a non-empty interval, every index refers to an existing
// variable and every coefficient is finite.
func (m *Model) Validate() error {
	n := int32(len(m.Variables))
	for i, v := range m.Variables {
		b := v.Bounds()
		if b.IsEmpty() || math.IsInf(b.Lo, 1) || math.IsInf(b.Hi, -1) {
			return fmt.Errorf("variable %d (%q) has bounds %v: %w", i, v.Name, b, ErrInvalidModel)
		}
	}
	checkTerms := func(what string, inds []int32, coeffs []float64) error {
		if len(inds) != len(coeffs) {
			return fmt.Errorf("%s has %d indices and %d coefficients: %w", what, len(inds), len(coeffs), ErrInvalidModel)
		}
		for i, ind := range inds {
			if ind < 0 || ind >= n {
				return fmt.Errorf("%s refers to variable %d out of [0, %d): %w", what, ind, n, ErrInvalidModel)
			}
			if math.IsNaN(coeffs[i]) || math.IsInf(coeffs[i], 0) {
				return fmt.Errorf("%s has coefficient %v for variable %d: %w", what, coeffs[i], ind, ErrInvalidModel)
			}
		}
		return nil
	}
	for i, ct := range m.Constraints {
		if ct.Bounds().IsEmpty() {
			return fmt.Errorf("constraint %d (%q) has bounds %v: %w", i, ct.Name, ct.Bounds(), ErrInvalidModel)
		}
		if err := checkTerms(fmt.Sprintf("constraint %d (%q)", i, ct.Name), ct.VarIndices, ct.Coefficients); err != nil {
			return err
		}
	}
	if math.IsNaN(m.Objective.Offset) || math.IsInf(m.Objective.Offset, 0) {
		return fmt.Errorf("objective offset is %v: %w", m.Objective.Offset, ErrInvalidModel)
	}
	return checkTerms("objective", m.Objective.VarIndices, m.Objective.Coefficients)
}

// CheckFeasible verifies that `values` satisfies every bound and integrality requirement of
// the model within the absolute tolerance `tol`, and every constraint within `tol` times the
// sum of its absolute coefficients (at least 1). The first violation found is returned.
func (m *Model) CheckFeasible(values []float64, tol float64) error {
	if len(values) != len(m.Variables) {
		return fmt.Errorf("got %d values for %d variables: %w", len(values), len(m.Variables), ErrViolated)
	}
	for i, v := range m.Variables {
		if !v.Bounds().Contains(values[i], tol) {
			return fmt.Errorf("variable %d (%q) = %v outside %v: %w", i, v.Name, values[i], v.Bounds(), ErrViolated)
		}
		if v.Integer && math.Abs(values[i]-math.Round(values[i])) > tol {
			return fmt.Errorf("integer variable %d (%q) = %v: %w", i, v.Name, values[i], ErrViolated)
		}
	}
	for i, ct := range m.Constraints {
		scale := 1.0
		if norm := floats.Norm(ct.Coefficients, 1); norm > 1 {
			scale = norm
		}
		if a := m.Activity(ConstrIndex(i), values); !ct.Bounds().Contains(a, tol*scale) {
			return fmt.Errorf("constraint %d (%q) activity %v outside %v: %w", i, ct.Name, a, ct.Bounds(), ErrViolated)
		}
	}
	return nil
}

func (m *Model) clone() *Model {
	c := &Model{
		Name:        m.Name,
		Variables:   append([]Variable(nil), m.Variables...),
		Constraints: make([]LinearConstraint, len(m.Constraints)),
		Objective: Objective{
			Maximize:     m.Objective.Maximize,
			Offset:       m.Objective.Offset,
			VarIndices:   append([]int32(nil), m.Objective.VarIndices...),
			Coefficients: append([]float64(nil), m.Objective.Coefficients...),
		},
	}
	for i, ct := range m.Constraints {
		ct.VarIndices = append([]int32(nil), ct.VarIndices...)
		ct.Coefficients = append([]float64(nil), ct.Coefficients...)
		c.Constraints[i] = ct
	}
	return c
}

// checkSameModelAndSetErrorf returns true if `mb` and `mb2` point to the same Builder.
// If false, an error with the error message `errString` is set on `mb` if `mb.err`
// is nil. A nil `mb2` belongs to no model and is accepted.
func (mb *Builder) checkSameModelAndSetErrorf(mb2 *Builder, format string, a ...any) bool {
	if mb2 == nil || mb == mb2 {
		return true
	}
	var args = make([]any, len(a)+1)
	copy(args, a)
	args[len(a)] = ErrMixedModels
	mb.setError(fmt.Errorf(format+": %w", args...))
	return false
}

func (mb *Builder) setError(err error) {
	log.Errorf("%v; use `-log_backtrace_at` flag to get the error stack", err)
	if mb.err == nil {
		mb.err = err
	}
}

// Builder provides a wrapper for building a Model.
type Builder struct {
	model *Model
	// The first and only the first error is reported in Model.
	err error
}

// NewModelBuilder creates and returns a new model Builder.
func NewModelBuilder(name string) *Builder {
	return &Builder{model: &Model{Name: name}}
}

// NewVar creates a new variable with bounds `[lb, ub]`, restricted to integral values if
// `integer` is set.
func (mb *Builder) NewVar(lb, ub float64, integer bool) Var {
	v := Var{mb: mb, ind: VarIndex(len(mb.model.Variables))}
	mb.model.Variables = append(mb.model.Variables, Variable{LowerBound: lb, UpperBound: ub, Integer: integer})
	return v
}

// NewBoolVar creates a new integral variable in `[0, 1]`.
func (mb *Builder) NewBoolVar() Var {
	return mb.NewVar(0, 1, true)
}

// NewIntVar creates a new integral variable in `[lb, ub]`.
func (mb *Builder) NewIntVar(lb, ub float64) Var {
	return mb.NewVar(lb, ub, true)
}

// NewContinuousVar creates a new continuous variable in `[lb, ub]`.
func (mb *Builder) NewContinuousVar(lb, ub float64) Var {
	return mb.NewVar(lb, ub, false)
}

// NumVariables returns the number of variables created so far.
func (mb *Builder) NumVariables() int {
	return len(mb.model.Variables)
}

// NumConstraints returns the number of constraints added so far.
func (mb *Builder) NumConstraints() int {
	return len(mb.model.Constraints)
}

func (mb *Builder) linearize(la LinearArgument, what string) *LinearExpr {
	le := NewLinearExpr().Add(la)
	if le.err != nil {
		mb.setError(fmt.Errorf("%s: %w", what, le.err))
	}
	mb.checkSameModelAndSetErrorf(le.mb, "expression added to %s", what)
	return le
}

// addLinearConstraint adds a linear constraint that enforces the value of `le` to be in
// `bounds`. The constant offset of `le` is subtracted from the bounds.
func (mb *Builder) addLinearConstraint(le *LinearExpr, bounds Interval) Constraint {
	inds, coeffs := le.merged()
	b := bounds.Offset(-le.offset)
	i := ConstrIndex(len(mb.model.Constraints))
	mb.model.Constraints = append(mb.model.Constraints, LinearConstraint{
		LowerBound: b.Lo, UpperBound: b.Hi, VarIndices: inds, Coefficients: coeffs,
	})
	return Constraint{mb: mb, ind: i}
}

// AddLinearConstraint adds the linear constraint `lb <= expr <= ub`.
func (mb *Builder) AddLinearConstraint(expr LinearArgument, lb, ub float64) Constraint {
	le := mb.linearize(expr, fmt.Sprintf("constraint %d", len(mb.model.Constraints)))
	return mb.addLinearConstraint(le, Interval{lb, ub})
}

// AddEquality adds the linear constraint `lhs == rhs`.
func (mb *Builder) AddEquality(lhs, rhs LinearArgument) Constraint {
	diff := NewLinearExpr().Add(lhs).AddTerm(rhs, -1)
	return mb.AddLinearConstraint(diff, 0, 0)
}

// AddLessOrEqual adds the linear constraint `lhs <= rhs`.
func (mb *Builder) AddLessOrEqual(lhs, rhs LinearArgument) Constraint {
	diff := NewLinearExpr().Add(lhs).AddTerm(rhs, -1)
	return mb.AddLinearConstraint(diff, math.Inf(-1), 0)
}

// AddGreaterOrEqual adds the linear constraint `lhs >= rhs`.
func (mb *Builder) AddGreaterOrEqual(lhs, rhs LinearArgument) Constraint {
	diff := NewLinearExpr().Add(lhs).AddTerm(rhs, -1)
	return mb.AddLinearConstraint(diff, 0, math.Inf(1))
}

func (mb *Builder) setObjective(obj LinearArgument, maximize bool) {
	o := mb.linearize(obj, "objective")
	inds, coeffs := o.merged()
	mb.model.Objective = Objective{
		Maximize:     maximize,
		Offset:       o.offset,
		VarIndices:   inds,
		Coefficients: coeffs,
	}
}

// Minimize sets a linear minimization objective.
func (mb *Builder) Minimize(obj LinearArgument) {
	mb.setObjective(obj, false)
}

// Maximize sets a linear maximization objective.
func (mb *Builder) Maximize(obj LinearArgument) {
	mb.setObjective(obj, true)
}

// Model returns a copy of the model built so far. Later changes made through the builder do
// not affect returned models.
//
// Model returns an error when invalid parameters have been used during model building (e.g.
// passing variables from other builders).
func (mb *Builder) Model() (*Model, error) {
	if mb.err != nil {
		return nil, mb.err
	}
	return mb.model.clone(), nil
}
