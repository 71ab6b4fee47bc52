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
	"flag"
	"io"

	"github.com/mipkit/mip-kit/internal/config"
	"github.com/spf13/cobra"
)

// version is set at link time with -ldflags "-X main.version=...".
var version = "dev"

type options struct {
	configPath string
	cfg        *config.Config
	out        io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	o := &options{out: out}
	root := &cobra.Command{
		Use:   "mipkit",
		Short: "Formulate and solve mixed-integer programs",
		Long: `mipkit builds mixed-integer models for a set of classic problems (capacitated vehicle
routing, knapsack, project portfolio, production planning and product mix), solves them
in-process or on a ReMIP server, and checks the solutions it gets back.

Configuration comes from --config, a .env file and MIPKIT_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(o.configPath)
			if err != nil {
				return err
			}
			o.cfg = cfg
			return nil
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&o.configPath, "config", "", "YAML configuration file")
	// glog flags such as -v and -logtostderr.
	root.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	root.AddCommand(newSolveCmd(o), newServeCmd(o), newKindsCmd(o), newVersionCmd(o))
	return root
}
