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

package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matrixorigin/benchdata/pkg/common/moerr"
)

const ManifestName = "manifest.toml"

// Manifest lists the datasets produced by one generator run.
type Manifest struct {
	RunID    string    `toml:"run-id"`
	Created  time.Time `toml:"created"`
	Entropy  string    `toml:"entropy"`
	Seed     uint64    `toml:"seed,omitempty"`
	Datasets []Entry   `toml:"dataset"`
}

type Entry struct {
	Name       string `toml:"name"`
	Kind       string `toml:"kind"`
	Count      uint64 `toml:"count"`
	Width      uint8  `toml:"width"`
	File       string `toml:"file"`
	Compressed bool   `toml:"compressed"`
	// Checksum is hex encoded, toml integers cannot hold every uint64.
	Checksum string `toml:"checksum"`
}

func NewEntry(name, kind, file string, h Header) Entry {
	return Entry{
		Name:       name,
		Kind:       kind,
		Count:      h.Count,
		Width:      h.Width,
		File:       file,
		Compressed: h.Compressed(),
		Checksum:   FormatChecksum(h.Checksum),
	}
}

func FormatChecksum(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}

func ParseChecksum(ctx context.Context, s string) (uint64, error) {
	sum, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, moerr.NewInvalidInput(ctx, "checksum %q", s)
	}
	return sum, nil
}

// WriteManifest writes m to dir/manifest.toml, replacing an older one.
func WriteManifest(ctx context.Context, dir string, m *Manifest) error {
	path := filepath.Join(dir, ManifestName)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return moerr.ConvertGoError(ctx, err)
	}
	err = toml.NewEncoder(f).Encode(m)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return moerr.ConvertGoError(ctx, err)
	}
	return nil
}

func ReadManifest(ctx context.Context, dir string) (*Manifest, error) {
	m := &Manifest{}
	if _, err := toml.DecodeFile(filepath.Join(dir, ManifestName), m); err != nil {
		return nil, moerr.ConvertGoError(ctx, err)
	}
	return m, nil
}

// Verify re-reads every dataset listed in m from dir and checks it against
// the recorded count, width and checksum.
func Verify(ctx context.Context, dir string, m *Manifest) error {
	for _, e := range m.Datasets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := VerifyEntry(ctx, dir, e); err != nil {
			return err
		}
	}
	return nil
}

func VerifyEntry(ctx context.Context, dir string, e Entry) error {
	want, err := ParseChecksum(ctx, e.Checksum)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, e.File)
	f, err := ReadFile(ctx, path)
	if err != nil {
		return err
	}
	if f.Width != e.Width || f.Count != e.Count {
		return moerr.NewSizeNotMatch(ctx, path)
	}
	if f.Checksum != want {
		return moerr.NewChecksumMismatch(ctx, "%s: manifest %016x, file %016x", path, want, f.Checksum)
	}
	return nil
}
