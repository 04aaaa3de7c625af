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
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/benchdata/pkg/common/moerr"
	"github.com/matrixorigin/benchdata/pkg/datagen/dataset"
)

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	root := rootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestGenerateAndVerify(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	cfgFile := filepath.Join(dir, "datagen.toml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(fmt.Sprintf(`
[log]
level = "error"

[generator]
entropy = "seeded"
seed = 1
allocator = "go"
tracker = "sparse"
output-dir = %q

[[dataset]]
name = "keys"
kind = "unique32"
count = 5000

[[dataset]]
name = "noise"
kind = "uniform32"
count = 5000

[[dataset]]
name = "probe"
kind = "mixin32"
base = "noise"
donor = "keys"
probability = 0.5
`, filepath.Join(dir, "ignored"))), 0644))

	stdout, err := execute("generate", "--cfg", cfgFile, "--output", out)
	require.NoError(t, err)
	require.Contains(t, stdout, "probe")
	require.FileExists(t, filepath.Join(out, dataset.ManifestName))
	require.NoDirExists(t, filepath.Join(dir, "ignored"))

	stdout, err = execute("verify", "--dir", out)
	require.NoError(t, err)
	require.Contains(t, stdout, "3 datasets verified")

	noise := filepath.Join(out, "noise.mods")
	data, err := os.ReadFile(noise)
	require.NoError(t, err)
	data[dataset.HeaderSize+1] ^= 0x10
	require.NoError(t, os.WriteFile(noise, data, 0644))

	_, err = execute("verify", "--dir", out)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrChecksumMismatch))
}

func TestGenerateBadConfig(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "datagen.toml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("[[dataset]]\nname = \"x\"\nkind = \"nope\"\n"), 0644))
	_, err := execute("generate", "--cfg", cfgFile)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig))
}

func TestVersion(t *testing.T) {
	stdout, err := execute("version")
	require.NoError(t, err)
	require.Contains(t, stdout, "Version: dev")
}
