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

package entropy

import "math/bits"

// Uint64 combines two draws, the first one in the low half.
func Uint64(src Source) uint64 {
	lo := src.Uint32()
	hi := src.Uint32()
	return uint64(lo) | uint64(hi)<<32
}

// Scale32 maps one draw onto [0, n) by taking the high bits of draw*n.
// n must not exceed 1<<32. The mapping is slightly biased unless n is a
// power of two, which is acceptable for picking donor elements.
func Scale32(src Source, n uint64) uint64 {
	return (uint64(src.Uint32()) * n) >> 32
}

// Uint32n returns an unbiased value in [0, n). n must be positive.
// Lemire, "Fast Random Integer Generation in an Interval", 2019.
func Uint32n(src Source, n uint32) uint32 {
	m := uint64(src.Uint32()) * uint64(n)
	if low := uint32(m); low < n {
		threshold := -n % n
		for low < threshold {
			m = uint64(src.Uint32()) * uint64(n)
			low = uint32(m)
		}
	}
	return uint32(m >> 32)
}

// Uint64n returns an unbiased value in [0, n). n must be positive.
func Uint64n(src Source, n uint64) uint64 {
	if n <= 1<<32 {
		if n == 1<<32 {
			return uint64(src.Uint32())
		}
		return uint64(Uint32n(src, uint32(n)))
	}
	hi, lo := bits.Mul64(Uint64(src), n)
	if lo < n {
		threshold := -n % n
		for lo < threshold {
			hi, lo = bits.Mul64(Uint64(src), n)
		}
	}
	return hi
}

// Shuffle permutes n elements in place with Fisher-Yates, drawing every
// index from src.
func Shuffle(src Source, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := int(Uint64n(src, uint64(i)+1))
		swap(i, j)
	}
}
