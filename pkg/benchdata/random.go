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

// Package benchdata builds the key sets that drive hash table, filter and
// index benchmarks: uniform keys, unique keys and blends of two key sets.
package benchdata

import (
	"unsafe"

	"github.com/matrixorigin/benchdata/pkg/common/entropy"
)

// Word is a fixed-width key type.
type Word interface {
	~uint32 | ~uint64
}

// GenerateRandom returns count values drawn uniformly over the whole range
// of T. 64-bit values are built from two draws, the first one in the low
// half, so the upper bits are as random as the lower ones.
func GenerateRandom[T Word](src entropy.Source, count int) []T {
	result := make([]T, count)
	FillRandom(src, result)
	return result
}

// FillRandom overwrites dst with values drawn like GenerateRandom.
func FillRandom[T Word](src entropy.Source, dst []T) {
	var zero T
	if unsafe.Sizeof(zero) == 8 {
		for i := range dst {
			dst[i] = T(entropy.Uint64(src))
		}
		return
	}
	for i := range dst {
		dst[i] = T(src.Uint32())
	}
}

func GenerateRandom32(count int) []uint32 {
	return GenerateRandom[uint32](entropy.NewDevice(), count)
}

func GenerateRandom64(count int) []uint64 {
	return GenerateRandom[uint64](entropy.NewDevice(), count)
}
