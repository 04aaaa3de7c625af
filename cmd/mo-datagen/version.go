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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matrixorigin/benchdata/pkg/version"
)

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "MatrixOne datagen build info:\n")
			fmt.Fprintf(w, "  The golang version used to build this binary: %s\n", version.GoVersion)
			fmt.Fprintf(w, "  Git branch name: %s\n", version.BranchName)
			fmt.Fprintf(w, "  Last git commit ID: %s\n", version.CommitID)
			fmt.Fprintf(w, "  Buildtime: %s\n", version.BuildTime)
			fmt.Fprintf(w, "  Version: %s\n", version.Version)
		},
	}
}
