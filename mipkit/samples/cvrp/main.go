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

// The cvrp command routes three vehicles of capacity 25 through six customers and prints the
// routes. The model is solved locally unless --remip_url names a ReMIP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	log "github.com/golang/glog"
	"github.com/mipkit/mip-kit/mipkit/linearsolver"
	"github.com/mipkit/mip-kit/mipkit/mpmodel"
	"github.com/mipkit/mip-kit/mipkit/remip"
	"github.com/mipkit/mip-kit/mipkit/vrp"
)

var (
	remipURL  = flag.String("remip_url", "", "ReMIP server to solve on; empty solves locally")
	timeLimit = flag.Duration("time_limit", time.Minute, "time limit of the solve")
)

func cvrp() error {
	var solver mpmodel.Solver
	if *remipURL != "" {
		solver = remip.NewClient(*remipURL, remip.WithStream(true),
			remip.WithLogHandler(func(e remip.LogEvent) { log.Info(e.Message) }))
	} else {
		ls, err := linearsolver.New("cvrp", linearsolver.MixedIntegerProgramming)
		if err != nil {
			return fmt.Errorf("failed to create the solver: %w", err)
		}
		solver = ls
	}

	inst := vrp.ReferenceInstance()
	sol, err := vrp.Solve(context.Background(), inst, solver,
		&mpmodel.Parameters{TimeLimit: *timeLimit}, vrp.WithTightOrderBound())
	if err != nil {
		return fmt.Errorf("failed to route the reference instance: %w", err)
	}

	fmt.Println("Status: ", sol.Status)
	fmt.Printf("Total distance: %.2f\n", sol.TotalDistance())
	for _, r := range sol.Routes {
		fmt.Println(r)
	}
	fmt.Printf("Vehicles used: %d of %d\n", sol.UsedVehicles(), inst.NumVehicles())
	return nil
}

func main() {
	flag.Parse()
	if err := cvrp(); err != nil {
		log.Exitf("cvrp returned with error: %v", err)
	}
}
