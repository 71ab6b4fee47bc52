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

package remip

import (
	"fmt"
	"math"

	log "github.com/golang/glog"
	"github.com/mipkit/mip-kit/mipkit/mpmodel"
)

// Constraint senses of the problem dictionary.
const (
	senseLE = -1
	senseEQ = 0
	senseGE = 1
)

type coefficient struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type objectiveDict struct {
	Name         string        `json:"name"`
	Coefficients []coefficient `json:"coefficients"`
}

// constraintDict reads `Σ coefficients + constant  sense  0`.
type constraintDict struct {
	Name         string        `json:"name"`
	Sense        int           `json:"sense"`
	Constant     float64       `json:"constant"`
	Coefficients []coefficient `json:"coefficients"`
}

type variableDict struct {
	Name     string   `json:"name"`
	LowBound *float64 `json:"lowBound"`
	UpBound  *float64 `json:"upBound"`
	Cat      string   `json:"cat"`
}

type parametersDict struct {
	Name string `json:"name"`
	// Sense is 1 to minimize and -1 to maximize.
	Sense int `json:"sense"`
}

// problemDict is the problem dictionary accepted by a ReMIP server.
type problemDict struct {
	Objective   objectiveDict    `json:"objective"`
	Constraints []constraintDict `json:"constraints"`
	Variables   []variableDict   `json:"variables"`
	Parameters  parametersDict   `json:"parameters"`
}

// varName is the name a variable is sent under. Model names may be empty or repeated, so
// positions are used.
func varName(i int32) string {
	return fmt.Sprintf("v%d", i)
}

func finiteOrNil(v float64) *float64 {
	if math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func coefficients(inds []int32, coeffs []float64) []coefficient {
	cs := make([]coefficient, len(inds))
	for i, ind := range inds {
		cs[i] = coefficient{Name: varName(ind), Value: coeffs[i]}
	}
	return cs
}

// encodeProblem converts `m` to a problem dictionary. A ranged row becomes a pair of rows.
func encodeProblem(m *mpmodel.Model) problemDict {
	p := problemDict{
		Objective: objectiveDict{
			Name:         "objective",
			Coefficients: coefficients(m.Objective.VarIndices, m.Objective.Coefficients),
		},
		Constraints: []constraintDict{},
		Variables:   make([]variableDict, len(m.Variables)),
		Parameters:  parametersDict{Name: m.Name, Sense: 1},
	}
	if m.Objective.Maximize {
		p.Parameters.Sense = -1
	}
	for i, v := range m.Variables {
		cat := "Continuous"
		if v.Integer {
			cat = "Integer"
		}
		p.Variables[i] = variableDict{
			Name:     varName(int32(i)),
			LowBound: finiteOrNil(v.LowerBound),
			UpBound:  finiteOrNil(v.UpperBound),
			Cat:      cat,
		}
	}
	for ci, ct := range m.Constraints {
		name := ct.Name
		if name == "" {
			name = fmt.Sprintf("c%d", ci)
		}
		cs := coefficients(ct.VarIndices, ct.Coefficients)
		lo, hi := !math.IsInf(ct.LowerBound, -1), !math.IsInf(ct.UpperBound, 1)
		switch {
		case lo && hi && ct.LowerBound == ct.UpperBound:
			p.Constraints = append(p.Constraints, constraintDict{Name: name, Sense: senseEQ, Constant: -ct.UpperBound, Coefficients: cs})
		case lo && hi:
			p.Constraints = append(p.Constraints,
				constraintDict{Name: name + "_lo", Sense: senseGE, Constant: -ct.LowerBound, Coefficients: cs},
				constraintDict{Name: name + "_hi", Sense: senseLE, Constant: -ct.UpperBound, Coefficients: cs})
		case lo:
			p.Constraints = append(p.Constraints, constraintDict{Name: name, Sense: senseGE, Constant: -ct.LowerBound, Coefficients: cs})
		case hi:
			p.Constraints = append(p.Constraints, constraintDict{Name: name, Sense: senseLE, Constant: -ct.UpperBound, Coefficients: cs})
		}
	}
	return p
}

// solutionDict is a solve result. Servers report values as either `variable_values` or
// `variables`.
type solutionDict struct {
	Status         string             `json:"status"`
	ObjectiveValue *float64           `json:"objective_value"`
	VariableValues map[string]float64 `json:"variable_values"`
	Variables      map[string]float64 `json:"variables"`
}

// parseStatus maps a server status onto mpmodel.Status. A time limit keeps the solution, if
// any, as Feasible.
func parseStatus(s string, hasValues bool) (mpmodel.Status, bool) {
	switch s {
	case "optimal", "Optimal":
		return mpmodel.Optimal, true
	case "infeasible", "Infeasible":
		return mpmodel.Infeasible, true
	case "unbounded", "Unbounded":
		return mpmodel.Unbounded, true
	case "not solved", "Not Solved":
		return mpmodel.NotSolved, true
	case "timelimit":
		if hasValues {
			return mpmodel.Feasible, true
		}
		return mpmodel.NotSolved, true
	}
	return mpmodel.Abnormal, false
}

// decodeSolution converts a solve result for `m` into a response. Variables missing from the
// result are zero.
func decodeSolution(m *mpmodel.Model, sd solutionDict) *mpmodel.Response {
	values := sd.VariableValues
	if values == nil {
		values = sd.Variables
	}
	status := sd.Status
	if status == "" && sd.ObjectiveValue != nil {
		status = "optimal"
	}
	st, known := parseStatus(status, values != nil)
	res := &mpmodel.Response{Status: st}
	if !known {
		res.Diagnostic = fmt.Sprintf("unknown server status %q", sd.Status)
	}
	if !st.HasSolution() {
		return res
	}

	res.VariableValues = make([]float64, m.NumVariables())
	missing := 0
	for i := range res.VariableValues {
		v, ok := values[varName(int32(i))]
		if !ok {
			missing++
		}
		res.VariableValues[i] = v
	}
	if missing > 0 {
		log.V(1).Infof("remip: %d of %d variables missing from the result of %q, taken as 0", missing, m.NumVariables(), m.Name)
	}
	res.ObjectiveValue = m.ObjectiveValue(res.VariableValues)
	res.BestBound = res.ObjectiveValue
	if sd.ObjectiveValue != nil && st == mpmodel.Optimal {
		if want := *sd.ObjectiveValue + m.Objective.Offset; math.Abs(want-res.ObjectiveValue) > 1e-6*math.Max(1, math.Abs(want)) {
			log.Warningf("remip: server objective %v for %q, recomputed %v", want, m.Name, res.ObjectiveValue)
		}
	}
	return res
}
