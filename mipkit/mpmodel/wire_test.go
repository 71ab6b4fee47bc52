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
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestModel_BinaryEncoding(t *testing.T) {
	mb := NewModelBuilder("knapsack")
	a := mb.NewBoolVar().WithName("a")
	b := mb.NewBoolVar().WithName("b")
	u := mb.NewContinuousVar(0, math.Inf(1)).WithName("u")
	mb.AddLessOrEqual(NewLinearExpr().AddTerm(a, 3).AddTerm(b, 2).Add(u), NewConstant(6)).WithName("capacity")
	mb.Maximize(NewLinearExpr().AddTerm(a, 15).AddTerm(b, 8).AddConstant(1))
	want, err := mb.Model()
	if err != nil {
		t.Fatalf("Model() returned with unexpected error %v", err)
	}

	data, err := want.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() returned with unexpected error %v", err)
	}
	got := &Model{}
	if err := got.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary() returned with unexpected error %v", err)
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("UnmarshalBinary(MarshalBinary()) returned with unexpected diff (-want+got):\n%s", diff)
	}
}

func TestModel_UnmarshalBinaryDefaults(t *testing.T) {
	// A variable message with only a name: bounds take the proto defaults.
	var vb []byte
	vb = protowire.AppendTag(vb, varNameField, protowire.BytesType)
	vb = protowire.AppendString(vb, "free")
	var b []byte
	b = protowire.AppendTag(b, modelVariableField, protowire.BytesType)
	b = protowire.AppendBytes(b, vb)
	// Unknown fields are skipped.
	b = protowire.AppendTag(b, 99, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)

	m := &Model{}
	if err := m.UnmarshalBinary(b); err != nil {
		t.Fatalf("UnmarshalBinary() returned with unexpected error %v", err)
	}
	want := []Variable{{Name: "free", LowerBound: math.Inf(-1), UpperBound: math.Inf(1)}}
	if diff := cmp.Diff(want, m.Variables); diff != "" {
		t.Errorf("UnmarshalBinary() returned with unexpected diff (-want+got):\n%s", diff)
	}

	if err := m.UnmarshalBinary(b[:len(b)-1]); err == nil {
		t.Errorf("UnmarshalBinary() of truncated input returned nil error")
	}
}

func TestModel_MarshalBinaryInvalid(t *testing.T) {
	m := &Model{Variables: []Variable{{LowerBound: 1, UpperBound: 0}}}
	if _, err := m.MarshalBinary(); !errors.Is(err, ErrInvalidModel) {
		t.Errorf("MarshalBinary() = %v, want %v", err, ErrInvalidModel)
	}
}
