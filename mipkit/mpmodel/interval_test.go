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
	"math"
	"testing"
)

func TestInterval_Offset(t *testing.T) {
	inf := math.Inf(1)
	testCases := []struct {
		name  string
		in    Interval
		delta float64
		want  Interval
	}{
		{name: "Finite", in: Interval{1, 3}, delta: -2, want: Interval{-1, 1}},
		{name: "UnboundedBelow", in: Interval{-inf, 3}, delta: 5, want: Interval{-inf, 8}},
		{name: "UnboundedAbove", in: Interval{0, inf}, delta: -1, want: Interval{-1, inf}},
		{name: "AllReals", in: AllReals(), delta: 4, want: AllReals()},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			if got := test.in.Offset(test.delta); got != test.want {
				t.Errorf("Offset(%v) = %v, want %v", test.delta, got, test.want)
			}
		})
	}
}

func TestInterval_Predicates(t *testing.T) {
	testCases := []struct {
		name      string
		in        Interval
		wantEmpty bool
		wantFixed bool
	}{
		{name: "Regular", in: Interval{0, 1}},
		{name: "Point", in: Point(2), wantFixed: true},
		{name: "Reversed", in: Interval{1, 0}, wantEmpty: true},
		{name: "NaN", in: Interval{math.NaN(), 1}, wantEmpty: true},
		{name: "AllReals", in: AllReals()},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			if got := test.in.IsEmpty(); got != test.wantEmpty {
				t.Errorf("%v.IsEmpty() = %v, want %v", test.in, got, test.wantEmpty)
			}
			if got := test.in.IsFixed(); got != test.wantFixed {
				t.Errorf("%v.IsFixed() = %v, want %v", test.in, got, test.wantFixed)
			}
		})
	}
}

func TestInterval_IntersectAndContains(t *testing.T) {
	got := NewInterval(0, 5).Intersect(NewInterval(3, 9))
	if want := (Interval{3, 5}); got != want {
		t.Errorf("Intersect() = %v, want %v", got, want)
	}
	if !got.Contains(5.0000001, 1e-6) {
		t.Errorf("%v.Contains(5.0000001, 1e-6) = false, want true", got)
	}
	if got.Contains(2.9, 1e-6) {
		t.Errorf("%v.Contains(2.9, 1e-6) = true, want false", got)
	}
	if empty := NewInterval(0, 1).Intersect(NewInterval(2, 3)); !empty.IsEmpty() {
		t.Errorf("Intersect() of disjoint intervals = %v, want empty", empty)
	}
}
