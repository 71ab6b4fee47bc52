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

// The production command plans three products over four periods and prints the production
// and inventory of each.
package main

import (
	"context"
	"fmt"

	log "github.com/golang/glog"
	"github.com/mipkit/mip-kit/mipkit/linearsolver"
	"github.com/mipkit/mip-kit/mipkit/production"
)

func productionSample() error {
	solver, err := linearsolver.New("production", linearsolver.LinearProgramming)
	if err != nil {
		return fmt.Errorf("failed to create the solver: %w", err)
	}
	p := production.ReferenceProblem()
	plan, err := production.Solve(context.Background(), p, solver, nil)
	if err != nil {
		return fmt.Errorf("failed to plan production: %w", err)
	}

	fmt.Println("Status: ", plan.Status)
	for i, pr := range p.Products {
		fmt.Printf("%s: produce %v, hold %v\n", pr.Name, plan.Production[i], plan.Inventory[i])
	}
	fmt.Printf("Production cost: %.2f\n", plan.ProductionCost)
	fmt.Printf("Holding cost:    %.2f\n", plan.HoldingCost)
	fmt.Printf("Total cost:      %.2f\n", plan.TotalCost)
	return nil
}

func main() {
	if err := productionSample(); err != nil {
		log.Exitf("productionSample returned with error: %v", err)
	}
}
