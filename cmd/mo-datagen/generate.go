// Copyright 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/matrixorigin/benchdata/pkg/datagen"
	"github.com/matrixorigin/benchdata/pkg/logutil"
)

func generateCommand() *cobra.Command {
	var (
		configFile string
		outputDir  string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the datasets of a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := datagen.ParseConfigFromFile(ctx, configFile)
			if err != nil {
				return err
			}
			if outputDir != "" {
				cfg.Generator.OutputDir = outputDir
			}
			logutil.SetupMOLogger(&cfg.Log)
			return generate(ctx, cfg, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&configFile, "cfg", "./datagen.toml", "toml configuration used to generate datasets")
	cmd.Flags().StringVar(&outputDir, "output", "", "output directory, overrides generator.output-dir")
	return cmd
}

func generate(ctx context.Context, cfg *datagen.Config, w io.Writer) error {
	r, err := datagen.NewRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	results, err := r.Run(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run %s\n", r.RunID())
	fmt.Fprintln(tw, "NAME\tKIND\tCOUNT\tFILE\tCHECKSUM\tDURATION")
	for _, res := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%016x\t%s\n",
			res.Name, res.Kind, res.Header.Count, res.File, res.Header.Checksum, res.Duration)
	}
	return tw.Flush()
}
