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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mipkit/mip-kit/internal/config"
	"github.com/mipkit/mip-kit/internal/pipeline"
	"github.com/mipkit/mip-kit/mipkit/mpmodel"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	got, err := run(t, "version")
	if err != nil {
		t.Fatalf("mipkit version returned unexpected error %v", err)
	}
	if !strings.HasPrefix(got, "mipkit dev (go") {
		t.Errorf("mipkit version = %q, want it to start with \"mipkit dev (go\"", got)
	}
}

func TestKindsCmd(t *testing.T) {
	got, err := run(t, "kinds")
	if err != nil {
		t.Fatalf("mipkit kinds returned unexpected error %v", err)
	}
	if want := "cvrp\nknapsack\nportfolio\nproduction\nproductmix\n"; got != want {
		t.Errorf("mipkit kinds = %q, want %q", got, want)
	}
}

func TestSolveCmd_Reference(t *testing.T) {
	got, err := run(t, "solve", "knapsack")
	if err != nil {
		t.Fatalf("mipkit solve knapsack returned unexpected error %v", err)
	}
	if !strings.HasPrefix(got, "knapsack: optimal, objective") || !strings.Contains(got, "items [0 3 4]") {
		t.Errorf("mipkit solve knapsack = %q, want the optimal selection [0 3 4]", got)
	}
}

func TestSolveCmd_Instance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mix.yaml")
	instance := `
products:
  - {name: P, profit: 1, usage: [2]}
resources:
  - {name: R, available: 5}
`
	if err := os.WriteFile(path, []byte(instance), 0o644); err != nil {
		t.Fatalf("WriteFile() returned unexpected error %v", err)
	}
	got, err := run(t, "solve", "productmix", "--instance", path)
	if err != nil {
		t.Fatalf("mipkit solve productmix returned unexpected error %v", err)
	}
	if !strings.Contains(got, "quantities [2], resources used [4]") {
		t.Errorf("mipkit solve productmix = %q, want 2 units using 4", got)
	}
}

func TestSolveCmd_JSON(t *testing.T) {
	got, err := run(t, "solve", "portfolio", "--json")
	if err != nil {
		t.Fatalf("mipkit solve portfolio --json returned unexpected error %v", err)
	}
	var results []struct {
		Kind   string `json:"kind"`
		Status string `json:"status"`
		Result struct {
			Projects []int
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(got), &results); err != nil {
		t.Fatalf("decoding %q returned unexpected error %v", got, err)
	}
	if len(results) != 1 || results[0].Kind != "portfolio" || results[0].Status != "optimal" || len(results[0].Result.Projects) != 2 {
		t.Errorf("mipkit solve portfolio --json = %+v, want one optimal portfolio of two projects", results)
	}
}

func TestSolveCmd_Export(t *testing.T) {
	path := filepath.Join(t.TempDir(), "production.bin")
	if _, err := run(t, "solve", "production", "--export", path); err != nil {
		t.Fatalf("mipkit solve production --export returned unexpected error %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() returned unexpected error %v", err)
	}
	var m mpmodel.Model
	if err := m.UnmarshalBinary(b); err != nil {
		t.Fatalf("UnmarshalBinary() returned unexpected error %v", err)
	}
	if m.Name != "production_planning" || m.NumVariables() != 24 {
		t.Errorf("exported model %q has %d variables, want production_planning with 24", m.Name, m.NumVariables())
	}
}

func TestSolveCmd_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{name: "NoKind", args: []string{"solve"}},
		{name: "UnknownKind", args: []string{"solve", "tsp"}, wantErr: pipeline.ErrUnknownKind},
		{name: "AllWithKind", args: []string{"solve", "--all", "knapsack"}},
		{name: "MissingInstance", args: []string{"solve", "knapsack", "--instance", "/nonexistent/instance.yaml"}, wantErr: os.ErrNotExist},
		{name: "UnknownBackend", args: []string{"solve", "knapsack", "--backend", "cplex"}},
		{name: "BadConfig", args: []string{"--config", "/nonexistent/mipkit.yaml", "solve", "knapsack"}, wantErr: os.ErrNotExist},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := run(t, tc.args...)
			if err == nil {
				t.Fatalf("mipkit %v returned no error, want one", tc.args)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Errorf("mipkit %v = %v, want an error wrapping %v", tc.args, err, tc.wantErr)
			}
		})
	}
}

func TestSolveKinds(t *testing.T) {
	var out bytes.Buffer
	runner := pipeline.NewRunner(config.Default().Solver)
	kinds := []pipeline.Kind{pipeline.Knapsack, pipeline.Portfolio, pipeline.ProductMix}
	if err := solveKinds(context.Background(), runner, kinds, 2, false, &out); err != nil {
		t.Fatalf("solveKinds() returned unexpected error %v", err)
	}
	var heads []string
	for _, line := range strings.Split(out.String(), "\n") {
		if line != "" && !strings.HasPrefix(line, "  ") {
			heads = append(heads, line[:strings.Index(line, ":")])
		}
	}
	if got, want := strings.Join(heads, ","), "knapsack,portfolio,productmix"; got != want {
		t.Errorf("solveKinds() printed kinds %q, want %q", got, want)
	}
}
