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

// The knapsack command packs a bag of capacity 6 and compares the optimum with the greedy
// value-per-weight selection.
package main

import (
	"context"
	"fmt"

	log "github.com/golang/glog"
	"github.com/mipkit/mip-kit/mipkit/knapsack"
	"github.com/mipkit/mip-kit/mipkit/linearsolver"
)

func knapsackSample() error {
	solver, err := linearsolver.New("knapsack", linearsolver.MixedIntegerProgramming)
	if err != nil {
		return fmt.Errorf("failed to create the solver: %w", err)
	}
	p := knapsack.ReferenceProblem()

	best, err := knapsack.Solve(context.Background(), p, solver, nil)
	if err != nil {
		return fmt.Errorf("failed to solve the knapsack: %w", err)
	}
	greedy, err := knapsack.Greedy(p)
	if err != nil {
		return fmt.Errorf("failed to pack greedily: %w", err)
	}

	fmt.Println("Status: ", best.Status)
	fmt.Printf("Optimal: %v (value %v, weight %v)\n", best.Names(p), best.Value, best.Weight)
	fmt.Printf("Greedy:  %v (value %v, weight %v)\n", greedy.Names(p), greedy.Value, greedy.Weight)
	return nil
}

func main() {
	if err := knapsackSample(); err != nil {
		log.Exitf("knapsackSample returned with error: %v", err)
	}
}
