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

package benchdata

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/benchdata/pkg/common/entropy"
)

func scripted(draws ...uint32) entropy.Source {
	i := 0
	return entropy.FuncSource(func() uint32 {
		v := draws[i%len(draws)]
		i++
		return v
	})
}

func TestGenerateRandomLength(t *testing.T) {
	for _, count := range []int{0, 1, 2, 17, 1000} {
		r32 := GenerateRandom32(count)
		require.Len(t, r32, count)
		require.NotNil(t, r32)
		r64 := GenerateRandom64(count)
		require.Len(t, r64, count)
		require.NotNil(t, r64)
	}
}

func TestGenerateRandom64Layout(t *testing.T) {
	got := GenerateRandom[uint64](scripted(0xdeadbeef, 0x01234567, 1, 0xffffffff), 2)
	require.Equal(t, []uint64{0x01234567deadbeef, 0xffffffff00000001}, got)

	got32 := GenerateRandom[uint32](scripted(5, 6, 7), 3)
	require.Equal(t, []uint32{5, 6, 7}, got32)
}

func TestFillRandom(t *testing.T) {
	dst := make([]uint64, 3)
	FillRandom(scripted(1, 2, 3, 4, 5, 6), dst[1:])
	require.Equal(t, []uint64{0, 2<<32 | 1, 4<<32 | 3}, dst)

	FillRandom(scripted(1), []uint32{})
}

type key32 uint32

func TestGenerateRandomNamedType(t *testing.T) {
	got := GenerateRandom[key32](scripted(9), 2)
	require.Equal(t, []key32{9, 9}, got)
}

func TestGenerateRandomSeededReproducible(t *testing.T) {
	a := GenerateRandom[uint64](entropy.NewSeeded(11), 64)
	b := GenerateRandom[uint64](entropy.NewSeeded(11), 64)
	require.Equal(t, a, b)
}

// per-bit frequency must stay near 50% for every bit position
func TestGenerateRandomBitFrequency(t *testing.T) {
	const n = 1 << 15
	// mean n/2, stddev sqrt(n)/2 ~ 90.5; allow 6 sigma
	delta := 6 * math.Sqrt(n) / 2

	vals64 := GenerateRandom64(n)
	var counts64 [64]int
	for _, v := range vals64 {
		for b := 0; b < 64; b++ {
			counts64[b] += int(v >> b & 1)
		}
	}
	for b, c := range counts64 {
		require.InDelta(t, n/2, c, delta, "bit %d of 64", b)
	}

	vals32 := GenerateRandom32(n)
	var counts32 [32]int
	for _, v := range vals32 {
		for b := 0; b < 32; b++ {
			counts32[b] += int(v >> b & 1)
		}
	}
	for b, c := range counts32 {
		require.InDelta(t, n/2, c, delta, "bit %d of 32", b)
	}
}

// chi-square over the top byte of 64-bit keys
func TestGenerateRandomChiSquare(t *testing.T) {
	const buckets = 256
	const n = buckets * 256
	var hist [buckets]float64
	for _, v := range GenerateRandom64(n) {
		hist[v>>56]++
	}
	expected := float64(n) / buckets
	var chi2 float64
	for _, c := range hist {
		d := c - expected
		chi2 += d * d / expected
	}
	// 255 degrees of freedom, p = 1e-6 critical value is about 390
	require.Less(t, chi2, 390.0)
}
