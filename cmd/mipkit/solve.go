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

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mipkit/mip-kit/internal/config"
	"github.com/mipkit/mip-kit/internal/pipeline"
	"github.com/mipkit/mip-kit/mipkit/knapsack"
	"github.com/mipkit/mip-kit/mipkit/portfolio"
	"github.com/mipkit/mip-kit/mipkit/production"
	"github.com/mipkit/mip-kit/mipkit/productmix"
	"github.com/mipkit/mip-kit/mipkit/vrp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type solveFlags struct {
	instance  string
	export    string
	all       bool
	jsonOut   bool
	backend   string
	timeLimit time.Duration
	workers   int
}

func newSolveCmd(o *options) *cobra.Command {
	f := &solveFlags{}
	cmd := &cobra.Command{
		Use:   "solve [kind]",
		Short: "Solve one problem kind, or every kind with --all",
		Long: fmt.Sprintf(`Solves an instance of the given kind and prints the solution.

Kinds: %v. Without --instance the built-in reference instance of the kind is solved.`, pipeline.Kinds()),
		Args: func(cmd *cobra.Command, args []string) error {
			if f.all {
				if len(args) > 0 || f.instance != "" || f.export != "" {
					return errors.New("--all takes no kind, --instance or --export")
				}
				return nil
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := o.cfg.Solver
			if f.backend != "" {
				cfg.Backend = f.backend
			}
			if f.timeLimit > 0 {
				cfg.TimeLimit = f.timeLimit
			}
			if cfg.Backend != config.BackendLocal && cfg.Backend != config.BackendReMIP {
				return fmt.Errorf("unknown backend %q", cfg.Backend)
			}
			runner := pipeline.NewRunner(cfg)
			if f.all {
				return solveKinds(cmd.Context(), runner, pipeline.Kinds(), f.workers, f.jsonOut, o.out)
			}
			return solveOne(cmd.Context(), runner, args[0], f, o.out)
		},
	}
	cmd.Flags().StringVar(&f.instance, "instance", "", "YAML instance file")
	cmd.Flags().StringVar(&f.export, "export", "", "write the binary model to this file before solving")
	cmd.Flags().BoolVar(&f.all, "all", false, "solve the reference instance of every kind concurrently")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "print results as JSON")
	cmd.Flags().StringVar(&f.backend, "backend", "", "override solver.backend (local or remip)")
	cmd.Flags().DurationVar(&f.timeLimit, "time_limit", 0, "override solver.time_limit")
	cmd.Flags().IntVar(&f.workers, "workers", 2, "concurrent solves with --all")
	return cmd
}

func solveOne(ctx context.Context, runner *pipeline.Runner, name string, f *solveFlags, out io.Writer) error {
	kind, err := pipeline.ParseKind(name)
	if err != nil {
		return err
	}
	var decode pipeline.Decoder
	if f.instance != "" {
		d, err := config.LoadInstance(f.instance)
		if err != nil {
			return err
		}
		decode = pipeline.Decoder(d)
	}
	if f.export != "" {
		m, err := runner.Model(kind, decode)
		if err != nil {
			return err
		}
		b, err := m.MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to encode %s model: %w", kind, err)
		}
		if err := os.WriteFile(f.export, b, 0o644); err != nil {
			return fmt.Errorf("failed to export %s model: %w", kind, err)
		}
	}
	res, err := runner.Run(ctx, kind, decode)
	if err != nil {
		return err
	}
	return printResults(out, []*pipeline.Result{res}, f.jsonOut)
}

// solveKinds solves the reference instance of every kind in `kinds` with at most `workers`
// solves at a time. The first failure cancels the others.
func solveKinds(ctx context.Context, runner *pipeline.Runner, kinds []pipeline.Kind, workers int, jsonOut bool, out io.Writer) error {
	results := make([]*pipeline.Result, len(kinds))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, k := range kinds {
		g.Go(func() error {
			res, err := runner.Run(ctx, k, nil)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return printResults(out, results, jsonOut)
}

type jsonResult struct {
	Kind             pipeline.Kind      `json:"kind"`
	Status           string             `json:"status"`
	ObjectiveValue   float64            `json:"objective_value"`
	SolveTimeSeconds float64            `json:"solve_time_seconds"`
	Variables        map[string]float64 `json:"variables"`
	Result           any                `json:"result"`
}

func printResults(out io.Writer, results []*pipeline.Result, jsonOut bool) error {
	if jsonOut {
		js := make([]jsonResult, len(results))
		for i, r := range results {
			js[i] = jsonResult{r.Kind, r.Status.String(), r.Objective, r.Elapsed.Seconds(), r.Variables, r.Solution}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(js)
	}
	for _, r := range results {
		fmt.Fprintf(out, "%s: %v, objective %v\n", r.Kind, r.Status, r.Objective)
		for _, line := range describe(r.Solution) {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}
	return nil
}

// describe renders a problem-specific solution as text lines.
func describe(sol any) []string {
	switch s := sol.(type) {
	case *vrp.Solution:
		lines := make([]string, 0, len(s.Routes)+1)
		for _, r := range s.Routes {
			lines = append(lines, r.String())
		}
		return append(lines, fmt.Sprintf("total distance %.2f, %d vehicles used", s.TotalDistance(), s.UsedVehicles()))
	case *knapsack.Selection:
		return []string{fmt.Sprintf("items %v, value %v, weight %v", s.Items, s.Value, s.Weight)}
	case *portfolio.Portfolio:
		return []string{fmt.Sprintf("projects %v, return %v, investment %v", s.Projects, s.Return, s.Investment)}
	case *production.Plan:
		lines := make([]string, 0, len(s.Production)+1)
		for i := range s.Production {
			lines = append(lines, fmt.Sprintf("product %d: produce %v, hold %v", i, s.Production[i], s.Inventory[i]))
		}
		return append(lines, fmt.Sprintf("production cost %.2f, holding cost %.2f", s.ProductionCost, s.HoldingCost))
	case *productmix.Mix:
		return []string{fmt.Sprintf("quantities %v, resources used %v", s.Quantities, s.Used)}
	}
	return []string{strings.TrimSpace(fmt.Sprint(sol))}
}
