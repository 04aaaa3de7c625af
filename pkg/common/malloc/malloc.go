// Copyright 2022 - 2024 Matrix Origin
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

package malloc

import (
	"context"
	"strings"
	"unsafe"

	"golang.org/x/exp/constraints"

	"github.com/matrixorigin/benchdata/pkg/common/moerr"
)

const (
	KB = 1 << 10
	MB = 1 << 20
	GB = 1 << 30
)

type Hints uint64

const (
	// NoPrefault skips touching the pages of a fresh mapping before it is
	// returned. Pages are then placed by whichever thread writes them first.
	NoPrefault Hints = 1 << iota
)

// Allocator hands out zeroed byte slices together with their release handle.
type Allocator interface {
	Allocate(size uint64, hints Hints) ([]byte, Deallocator, error)
}

type Deallocator interface {
	Deallocate(hints Hints)
}

// FuncDeallocator adapts a function to Deallocator.
type FuncDeallocator func(hints Hints)

var _ Deallocator = FuncDeallocator(nil)

func (f FuncDeallocator) Deallocate(hints Hints) {
	if f != nil {
		f(hints)
	}
}

// NoopDeallocator releases nothing.
var NoopDeallocator Deallocator = FuncDeallocator(nil)

type chainDeallocator []Deallocator

// ChainDeallocator runs the given deallocators in order.
func ChainDeallocator(decs ...Deallocator) Deallocator {
	return chainDeallocator(decs)
}

func (c chainDeallocator) Deallocate(hints Hints) {
	for _, dec := range c {
		dec.Deallocate(hints)
	}
}

// Number is every element type that may live in memory the Go garbage
// collector does not scan.
type Number interface {
	constraints.Integer | constraints.Float
}

// MakeSlice allocates a zeroed []T of length n from alloc.
func MakeSlice[T Number](alloc Allocator, n int, hints Hints) ([]T, Deallocator, error) {
	if n == 0 {
		return []T{}, NoopDeallocator, nil
	}
	var zero T
	size := uint64(n) * uint64(unsafe.Sizeof(zero))
	bs, dec, err := alloc.Allocate(size, hints)
	if err != nil {
		return nil, nil, err
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(bs))), n), dec, nil
}

type Kind string

const (
	KindNumaLocal Kind = "numa"
	KindGo        Kind = "go"
)

func ParseKind(ctx context.Context, s string) (Kind, error) {
	switch Kind(strings.ToLower(s)) {
	case KindNumaLocal, "":
		return KindNumaLocal, nil
	case KindGo:
		return KindGo, nil
	default:
		return "", moerr.NewBadConfig(ctx, "unknown allocator %q", s)
	}
}

func NewAllocator(kind Kind) Allocator {
	if kind == KindGo {
		return NewGoAllocator()
	}
	return NewNumaLocalAllocator()
}
