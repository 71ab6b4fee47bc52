// Copyright 2010-2025 Google LLC
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

// The productmix command decides how many units of two products to make from limited flour and
// sugar.
package main

import (
	"context"
	"fmt"

	log "github.com/golang/glog"
	"github.com/mipkit/mip-kit/mipkit/linearsolver"
	"github.com/mipkit/mip-kit/mipkit/productmix"
)

func productMix() error {
	solver, err := linearsolver.New("food_manufacturing", linearsolver.MixedIntegerProgramming)
	if err != nil {
		return fmt.Errorf("failed to create the solver: %w", err)
	}
	p := productmix.ReferenceProblem()
	mix, err := productmix.Solve(context.Background(), p, solver, nil)
	if err != nil {
		return fmt.Errorf("failed to solve the product mix: %w", err)
	}

	fmt.Println("Status: ", mix.Status)
	for i, pr := range p.Products {
		fmt.Printf("%s: %v units\n", pr.Name, mix.Quantities[i])
	}
	for r, res := range p.Resources {
		fmt.Printf("%s: %v of %v used\n", res.Name, mix.Used[r], res.Available)
	}
	fmt.Println("Profit: ", mix.Profit)
	return nil
}

func main() {
	if err := productMix(); err != nil {
		log.Exitf("productMix returned with error: %v", err)
	}
}
