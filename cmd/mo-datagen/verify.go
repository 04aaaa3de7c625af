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

	"github.com/spf13/cobra"

	"github.com/matrixorigin/benchdata/pkg/datagen/dataset"
)

func verifyCommand() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check every dataset listed in a manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return verify(cmd.Context(), dir, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "./datasets", "directory holding manifest.toml")
	return cmd
}

func verify(ctx context.Context, dir string, w io.Writer) error {
	m, err := dataset.ReadManifest(ctx, dir)
	if err != nil {
		return err
	}
	for _, e := range m.Datasets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := dataset.VerifyEntry(ctx, dir, e); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s ok\n", e.Name)
	}
	fmt.Fprintf(w, "run %s: %d datasets verified\n", m.RunID, len(m.Datasets))
	return nil
}
