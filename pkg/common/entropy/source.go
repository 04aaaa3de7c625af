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

// Package entropy provides the random draws used to build benchmark inputs.
//
// Keys are drawn from the operating system entropy pool rather than from a
// cheap pseudo-random generator: linear congruential generators and their
// relatives behave non-randomly under hash families like Dietzfelbinger's
// multiply-shift, which skews probe distributions in the tables under test.
// A seeded source exists for reproducible unit tests only.
package entropy

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"strings"

	xrand "golang.org/x/exp/rand"

	"github.com/matrixorigin/benchdata/pkg/common/moerr"
)

// Source is a single 32-bit random draw.
// Implementations are not safe for concurrent use.
type Source interface {
	Uint32() uint32
}

type Kind string

const (
	KindDevice Kind = "device"
	KindSeeded Kind = "seeded"
)

func ParseKind(ctx context.Context, s string) (Kind, error) {
	switch Kind(strings.ToLower(s)) {
	case KindDevice, "":
		return KindDevice, nil
	case KindSeeded:
		return KindSeeded, nil
	default:
		return "", moerr.NewBadConfig(ctx, "unknown entropy source %q", s)
	}
}

// Factory returns a constructor for fresh sources of the given kind.
// Seeded sources derive one independent stream per stream number, so a run
// is reproducible no matter in which order the streams are opened.
func Factory(kind Kind, seed uint64) func(stream uint64) Source {
	if kind == KindSeeded {
		return func(stream uint64) Source {
			return NewSeeded(seed + (stream+1)*0x9e3779b97f4a7c15)
		}
	}
	return func(uint64) Source {
		return NewDevice()
	}
}

const deviceBufferSize = 4096

type deviceSource struct {
	buf [deviceBufferSize]byte
	off int
}

var _ Source = new(deviceSource)

// NewDevice returns a source backed by the operating system entropy pool.
// Reads are batched; each call of Uint32 consumes four buffered bytes.
func NewDevice() Source {
	return &deviceSource{
		off: deviceBufferSize,
	}
}

func (d *deviceSource) Uint32() uint32 {
	if d.off+4 > len(d.buf) {
		if _, err := rand.Read(d.buf[:]); err != nil {
			// getrandom(2) does not fail once the pool is initialized
			panic(moerr.ConvertGoError(moerr.Context(), err))
		}
		d.off = 0
	}
	v := binary.LittleEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v
}

type seededSource struct {
	rnd *xrand.Rand
}

var _ Source = new(seededSource)

// NewSeeded returns a deterministic PCG-backed source.
func NewSeeded(seed uint64) Source {
	return &seededSource{
		rnd: xrand.New(xrand.NewSource(seed)),
	}
}

func (s *seededSource) Uint32() uint32 {
	return s.rnd.Uint32()
}

// FuncSource adapts a function to Source.
type FuncSource func() uint32

func (f FuncSource) Uint32() uint32 {
	return f()
}
