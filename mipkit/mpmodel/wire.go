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

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of operations_research.MPModelProto and its nested messages. Objective
// coefficients are stored on the variables, as in the linear solver proto.
const (
	modelMaximizeField        protowire.Number = 1
	modelObjectiveOffsetField protowire.Number = 2
	modelVariableField        protowire.Number = 3
	modelConstraintField      protowire.Number = 4
	modelNameField            protowire.Number = 5

	varLowerBoundField protowire.Number = 1
	varUpperBoundField protowire.Number = 2
	varObjCoeffField   protowire.Number = 3
	varIsIntegerField  protowire.Number = 4
	varNameField       protowire.Number = 5

	ctLowerBoundField  protowire.Number = 2
	ctUpperBoundField  protowire.Number = 3
	ctNameField        protowire.Number = 4
	ctVarIndexField    protowire.Number = 6
	ctCoefficientField protowire.Number = 7
)

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// MarshalBinary encodes the model in the MPModelProto wire format.
func (m *Model) MarshalBinary() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("marshaling model failed: %w", err)
	}
	objCoeffs := make([]float64, len(m.Variables))
	for i, ind := range m.Objective.VarIndices {
		objCoeffs[ind] += m.Objective.Coefficients[i]
	}

	var b []byte
	if m.Objective.Maximize {
		b = appendBool(b, modelMaximizeField, true)
	}
	if m.Objective.Offset != 0 {
		b = appendDouble(b, modelObjectiveOffsetField, m.Objective.Offset)
	}
	for i, v := range m.Variables {
		var vb []byte
		vb = appendDouble(vb, varLowerBoundField, v.LowerBound)
		vb = appendDouble(vb, varUpperBoundField, v.UpperBound)
		if objCoeffs[i] != 0 {
			vb = appendDouble(vb, varObjCoeffField, objCoeffs[i])
		}
		if v.Integer {
			vb = appendBool(vb, varIsIntegerField, true)
		}
		if v.Name != "" {
			vb = appendString(vb, varNameField, v.Name)
		}
		b = protowire.AppendTag(b, modelVariableField, protowire.BytesType)
		b = protowire.AppendBytes(b, vb)
	}
	for _, ct := range m.Constraints {
		var cb []byte
		cb = appendDouble(cb, ctLowerBoundField, ct.LowerBound)
		cb = appendDouble(cb, ctUpperBoundField, ct.UpperBound)
		if ct.Name != "" {
			cb = appendString(cb, ctNameField, ct.Name)
		}
		if len(ct.VarIndices) > 0 {
			var packed []byte
			for _, ind := range ct.VarIndices {
				packed = protowire.AppendVarint(packed, uint64(ind))
			}
			cb = protowire.AppendTag(cb, ctVarIndexField, protowire.BytesType)
			cb = protowire.AppendBytes(cb, packed)
			packed = nil
			for _, c := range ct.Coefficients {
				packed = protowire.AppendFixed64(packed, math.Float64bits(c))
			}
			cb = protowire.AppendTag(cb, ctCoefficientField, protowire.BytesType)
			cb = protowire.AppendBytes(cb, packed)
		}
		b = protowire.AppendTag(b, modelConstraintField, protowire.BytesType)
		b = protowire.AppendBytes(b, cb)
	}
	if m.Name != "" {
		b = appendString(b, modelNameField, m.Name)
	}
	return b, nil
}

// fieldVisitor is called once per field with the remaining input positioned at the value. It
// returns the number of bytes consumed, or a negative protowire error code.
type fieldVisitor func(num protowire.Number, typ protowire.Type, b []byte) int

func walkFields(b []byte, visit fieldVisitor) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		m := visit(num, typ, b)
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return protowire.ParseError(m)
		}
		b = b[m:]
	}
	return nil
}

func consumeDouble(typ protowire.Type, b []byte, dst *float64) int {
	if typ != protowire.Fixed64Type {
		return 0
	}
	v, n := protowire.ConsumeFixed64(b)
	if n >= 0 {
		*dst = math.Float64frombits(v)
	}
	return n
}

func consumeBool(typ protowire.Type, b []byte, dst *bool) int {
	if typ != protowire.VarintType {
		return 0
	}
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = protowire.DecodeBool(v)
	}
	return n
}

func consumeString(typ protowire.Type, b []byte, dst *string) int {
	if typ != protowire.BytesType {
		return 0
	}
	v, n := protowire.ConsumeString(b)
	if n >= 0 {
		*dst = v
	}
	return n
}

// UnmarshalBinary decodes a model encoded by MarshalBinary, replacing the content of `m`.
// Missing bounds default to infinities, as in the proto definition.
func (m *Model) UnmarshalBinary(data []byte) error {
	*m = Model{}
	var objCoeffs []float64
	var nestedErr error
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case modelMaximizeField:
			return consumeBool(typ, b, &m.Objective.Maximize)
		case modelObjectiveOffsetField:
			return consumeDouble(typ, b, &m.Objective.Offset)
		case modelNameField:
			return consumeString(typ, b, &m.Name)
		case modelVariableField, modelConstraintField:
			if typ != protowire.BytesType {
				return 0
			}
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n
			}
			if num == modelVariableField {
				variable, c, err := unmarshalVariable(v)
				if err != nil {
					nestedErr = fmt.Errorf("variable %d: %w", len(m.Variables), err)
					return -1
				}
				m.Variables = append(m.Variables, variable)
				objCoeffs = append(objCoeffs, c)
			} else {
				ct, err := unmarshalConstraint(v)
				if err != nil {
					nestedErr = fmt.Errorf("constraint %d: %w", len(m.Constraints), err)
					return -1
				}
				m.Constraints = append(m.Constraints, ct)
			}
			return n
		}
		return 0
	})
	if nestedErr != nil {
		err = nestedErr
	}
	if err != nil {
		return fmt.Errorf("unmarshaling model failed: %w", err)
	}
	for i, c := range objCoeffs {
		if c != 0 {
			m.Objective.VarIndices = append(m.Objective.VarIndices, int32(i))
			m.Objective.Coefficients = append(m.Objective.Coefficients, c)
		}
	}
	return nil
}

func unmarshalVariable(b []byte) (Variable, float64, error) {
	v := Variable{LowerBound: math.Inf(-1), UpperBound: math.Inf(1)}
	var obj float64
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case varLowerBoundField:
			return consumeDouble(typ, b, &v.LowerBound)
		case varUpperBoundField:
			return consumeDouble(typ, b, &v.UpperBound)
		case varObjCoeffField:
			return consumeDouble(typ, b, &obj)
		case varIsIntegerField:
			return consumeBool(typ, b, &v.Integer)
		case varNameField:
			return consumeString(typ, b, &v.Name)
		}
		return 0
	})
	return v, obj, err
}

func unmarshalConstraint(b []byte) (LinearConstraint, error) {
	ct := LinearConstraint{LowerBound: math.Inf(-1), UpperBound: math.Inf(1)}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case ctLowerBoundField:
			return consumeDouble(typ, b, &ct.LowerBound)
		case ctUpperBoundField:
			return consumeDouble(typ, b, &ct.UpperBound)
		case ctNameField:
			return consumeString(typ, b, &ct.Name)
		case ctVarIndexField:
			switch typ {
			case protowire.VarintType:
				v, n := protowire.ConsumeVarint(b)
				if n >= 0 {
					ct.VarIndices = append(ct.VarIndices, int32(v))
				}
				return n
			case protowire.BytesType:
				packed, n := protowire.ConsumeBytes(b)
				for len(packed) > 0 && n >= 0 {
					v, m := protowire.ConsumeVarint(packed)
					if m < 0 {
						return m
					}
					ct.VarIndices = append(ct.VarIndices, int32(v))
					packed = packed[m:]
				}
				return n
			}
		case ctCoefficientField:
			switch typ {
			case protowire.Fixed64Type:
				var c float64
				n := consumeDouble(typ, b, &c)
				if n >= 0 {
					ct.Coefficients = append(ct.Coefficients, c)
				}
				return n
			case protowire.BytesType:
				packed, n := protowire.ConsumeBytes(b)
				for len(packed) > 0 && n >= 0 {
					v, m := protowire.ConsumeFixed64(packed)
					if m < 0 {
						return m
					}
					ct.Coefficients = append(ct.Coefficients, math.Float64frombits(v))
					packed = packed[m:]
				}
				return n
			}
		}
		return 0
	})
	return ct, err
}
