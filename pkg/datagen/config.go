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

package datagen

import (
	"context"
	"math"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matrixorigin/benchdata/pkg/common/bitmap"
	"github.com/matrixorigin/benchdata/pkg/common/entropy"
	"github.com/matrixorigin/benchdata/pkg/common/malloc"
	"github.com/matrixorigin/benchdata/pkg/common/moerr"
	"github.com/matrixorigin/benchdata/pkg/logutil"
)

type Kind string

const (
	KindUniform32 Kind = "uniform32"
	KindUniform64 Kind = "uniform64"
	KindUnique32  Kind = "unique32"
	KindMixIn32   Kind = "mixin32"
	KindMixIn64   Kind = "mixin64"
)

// Width is the element size in bytes of datasets of this kind, 0 for an
// unknown kind.
func (k Kind) Width() int {
	switch k {
	case KindUniform32, KindUnique32, KindMixIn32:
		return 4
	case KindUniform64, KindMixIn64:
		return 8
	}
	return 0
}

func (k Kind) IsMixIn() bool {
	return k == KindMixIn32 || k == KindMixIn64
}

// Config is the toml configuration of mo-datagen.
type Config struct {
	Log       logutil.LogConfig `toml:"log"`
	Generator GeneratorConfig   `toml:"generator"`
	Datasets  []DatasetConfig   `toml:"dataset"`
}

type GeneratorConfig struct {
	// Entropy is device or seeded.
	Entropy string `toml:"entropy"`
	Seed    uint64 `toml:"seed"`
	// Workers bounds the datasets generated at the same time.
	Workers int `toml:"workers"`
	// Allocator backs mixed datasets, numa or go.
	Allocator string `toml:"allocator"`
	// Tracker backs unique32 datasets, dense or sparse.
	Tracker   string `toml:"tracker"`
	OutputDir string `toml:"output-dir"`
	Compress  bool   `toml:"compress"`
}

type DatasetConfig struct {
	Name  string `toml:"name"`
	Kind  Kind   `toml:"kind"`
	Count int    `toml:"count"`
	// Base and Donor name earlier datasets, mixin kinds only.
	Base        string  `toml:"base"`
	Donor       string  `toml:"donor"`
	Probability float64 `toml:"probability"`
}

// ParseConfigFromFile decodes path, fills defaults and validates the result.
func ParseConfigFromFile(ctx context.Context, path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if moerr.IsMoErrCode(moerr.ConvertGoError(ctx, err), moerr.ErrFileNotFound) {
			return nil, moerr.NewFileNotFound(ctx, path)
		}
		return nil, moerr.NewBadConfig(ctx, "%s: %v", path, err)
	}
	cfg.SetDefaultValues()
	if err := cfg.Validate(ctx); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) SetDefaultValues() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	g := &c.Generator
	if g.Entropy == "" {
		g.Entropy = string(entropy.KindDevice)
	}
	if g.Workers <= 0 {
		g.Workers = runtime.NumCPU()
	}
	if g.Allocator == "" {
		g.Allocator = string(malloc.KindNumaLocal)
	}
	if g.Tracker == "" {
		g.Tracker = string(bitmap.TrackerDense)
	}
	if g.OutputDir == "" {
		g.OutputDir = "./datasets"
	}
	for i := range c.Datasets {
		c.Datasets[i].Kind = Kind(strings.ToLower(string(c.Datasets[i].Kind)))
	}
}

// Validate checks the generator options and that every dataset only refers
// to datasets declared before it, with a matching element width.
func (c *Config) Validate(ctx context.Context) error {
	g := c.Generator
	if _, err := entropy.ParseKind(ctx, g.Entropy); err != nil {
		return err
	}
	if _, err := malloc.ParseKind(ctx, g.Allocator); err != nil {
		return err
	}
	if _, err := bitmap.ParseTrackerKind(ctx, g.Tracker); err != nil {
		return err
	}
	if g.Workers <= 0 {
		return moerr.NewBadConfig(ctx, "workers must be positive, got %d", g.Workers)
	}
	if len(c.Datasets) == 0 {
		return moerr.NewBadConfig(ctx, "no dataset configured")
	}

	seen := make(map[string]Kind, len(c.Datasets))
	for _, d := range c.Datasets {
		if d.Name == "" {
			return moerr.NewBadConfig(ctx, "dataset without name")
		}
		if strings.ContainsAny(d.Name, `/\`) || d.Name == "." || d.Name == ".." {
			return moerr.NewBadConfig(ctx, "dataset name %q is not a file name", d.Name)
		}
		if _, ok := seen[d.Name]; ok {
			return moerr.NewBadConfig(ctx, "dataset %q declared twice", d.Name)
		}
		if d.Kind.Width() == 0 {
			return moerr.NewBadConfig(ctx, "dataset %q: unknown kind %q", d.Name, d.Kind)
		}

		if d.Kind.IsMixIn() {
			for _, ref := range []string{d.Base, d.Donor} {
				k, ok := seen[ref]
				if !ok {
					return moerr.NewBadConfig(ctx, "dataset %q: %q is not declared before it", d.Name, ref)
				}
				if k.Width() != d.Kind.Width() {
					return moerr.NewBadConfig(ctx, "dataset %q: %q is %s", d.Name, ref, k)
				}
			}
			p := d.Probability
			if math.IsNaN(p) || p < 0 || p > 1 {
				return moerr.NewBadConfig(ctx, "dataset %q: probability %v outside [0, 1]", d.Name, p)
			}
		} else {
			if d.Count < 0 {
				return moerr.NewBadConfig(ctx, "dataset %q: negative count %d", d.Name, d.Count)
			}
			if d.Base != "" || d.Donor != "" {
				return moerr.NewBadConfig(ctx, "dataset %q: base and donor only apply to mixin kinds", d.Name)
			}
		}
		seen[d.Name] = d.Kind
	}
	return nil
}
