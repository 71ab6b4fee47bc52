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

package pipeline

import (
	"errors"
	"fmt"

	"github.com/mipkit/mip-kit/mipkit/knapsack"
	"github.com/mipkit/mip-kit/mipkit/linearsolver"
	"github.com/mipkit/mip-kit/mipkit/mpmodel"
	"github.com/mipkit/mip-kit/mipkit/portfolio"
	"github.com/mipkit/mip-kit/mipkit/production"
	"github.com/mipkit/mip-kit/mipkit/productmix"
	"github.com/mipkit/mip-kit/mipkit/vrp"
)

// ErrInvalidInstance wraps every error caused by the instance itself: decoding failures and
// problem validation errors.
var ErrInvalidInstance = errors.New("invalid instance")

// VRPInstance is the instance format of the cvrp kind. The fleet is either Vehicles identical
// vehicles of the given Capacity, or one vehicle per entry of Capacities when it is set.
type VRPInstance struct {
	// Locations holds the depot first, then the customers.
	Locations []vrp.Point `yaml:"locations" json:"locations"`
	// Demands holds one demand per customer.
	Demands  []float64 `yaml:"demands" json:"demands"`
	Vehicles int       `yaml:"vehicles" json:"vehicles"`
	Capacity float64   `yaml:"capacity" json:"capacity"`
	// Capacities holds one capacity per vehicle and overrides Vehicles and Capacity.
	Capacities []float64 `yaml:"capacities" json:"capacities"`
	// TightOrderBound bounds visit orders by what a vehicle can serve.
	TightOrderBound bool `yaml:"tight_order_bound" json:"tight_order_bound"`
}

type job struct {
	model       *mpmodel.Model
	problemType linearsolver.ProblemType
	extract     func(*mpmodel.Response) (any, error)
}

type builder func(decode Decoder) (*job, error)

var kinds = map[Kind]builder{
	CVRP: func(decode Decoder) (*job, error) {
		inst := vrp.ReferenceInstance()
		var opts []vrp.Option
		if decode != nil {
			var in VRPInstance
			if err := decode(&in); err != nil {
				return nil, err
			}
			inst = vrp.NewInstance(in.Locations, in.Demands, in.Vehicles, in.Capacity)
			if len(in.Capacities) > 0 {
				inst.Capacities = append([]float64(nil), in.Capacities...)
			}
			if in.TightOrderBound {
				opts = append(opts, vrp.WithTightOrderBound())
			}
		}
		f, err := vrp.Build(inst, opts...)
		if err != nil {
			return nil, err
		}
		return &job{f.Model, linearsolver.MixedIntegerProgramming, func(r *mpmodel.Response) (any, error) { return f.Extract(r) }}, nil
	},
	Knapsack: func(decode Decoder) (*job, error) {
		p := knapsack.ReferenceProblem()
		if err := decodeInto(decode, &p); err != nil {
			return nil, err
		}
		f, err := knapsack.Build(p)
		if err != nil {
			return nil, err
		}
		return &job{f.Model, linearsolver.MixedIntegerProgramming, func(r *mpmodel.Response) (any, error) { return f.Extract(r) }}, nil
	},
	Portfolio: func(decode Decoder) (*job, error) {
		p := portfolio.ReferenceProblem()
		if err := decodeInto(decode, &p); err != nil {
			return nil, err
		}
		f, err := portfolio.Build(p)
		if err != nil {
			return nil, err
		}
		return &job{f.Model, linearsolver.MixedIntegerProgramming, func(r *mpmodel.Response) (any, error) { return f.Extract(r) }}, nil
	},
	Production: func(decode Decoder) (*job, error) {
		p := production.ReferenceProblem()
		if err := decodeInto(decode, &p); err != nil {
			return nil, err
		}
		f, err := production.Build(p)
		if err != nil {
			return nil, err
		}
		return &job{f.Model, linearsolver.LinearProgramming, func(r *mpmodel.Response) (any, error) { return f.Extract(r) }}, nil
	},
	ProductMix: func(decode Decoder) (*job, error) {
		p := productmix.ReferenceProblem()
		if err := decodeInto(decode, &p); err != nil {
			return nil, err
		}
		f, err := productmix.Build(p)
		if err != nil {
			return nil, err
		}
		return &job{f.Model, linearsolver.MixedIntegerProgramming, func(r *mpmodel.Response) (any, error) { return f.Extract(r) }}, nil
	},
}

// decodeInto replaces `*p` by the decoded instance. A nil decoder keeps the reference.
func decodeInto[T any](decode Decoder, p *T) error {
	if decode == nil {
		return nil
	}
	var v T
	if err := decode(&v); err != nil {
		return err
	}
	*p = v
	return nil
}

func build(kind Kind, decode Decoder) (*job, error) {
	b, ok := kinds[kind]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	j, err := b(decode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", kind, ErrInvalidInstance, err)
	}
	return j, nil
}
