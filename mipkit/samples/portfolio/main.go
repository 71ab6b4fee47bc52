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

// The portfolio command selects projects within a budget of 1000, both by MILP and by
// enumerating every subset.
package main

import (
	"context"
	"fmt"

	log "github.com/golang/glog"
	"github.com/mipkit/mip-kit/mipkit/linearsolver"
	"github.com/mipkit/mip-kit/mipkit/portfolio"
)

func portfolioSample() error {
	solver, err := linearsolver.New("portfolio", linearsolver.MixedIntegerProgramming)
	if err != nil {
		return fmt.Errorf("failed to create the solver: %w", err)
	}
	p := portfolio.ReferenceProblem()

	milp, err := portfolio.Solve(context.Background(), p, solver, nil)
	if err != nil {
		return fmt.Errorf("failed to solve the portfolio: %w", err)
	}
	all, err := portfolio.Enumerate(p)
	if err != nil {
		return fmt.Errorf("failed to enumerate portfolios: %w", err)
	}

	fmt.Printf("MILP:        %v, return %v, investment %v\n", milp.Names(p), milp.Return, milp.Investment)
	fmt.Printf("Enumeration: %v, return %v, investment %v\n", all.Names(p), all.Return, all.Investment)
	return nil
}

func main() {
	if err := portfolioSample(); err != nil {
		log.Exitf("portfolioSample returned with error: %v", err)
	}
}
