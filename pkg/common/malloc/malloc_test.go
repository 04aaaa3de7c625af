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

package malloc

import (
	"context"
	"testing"
	"unsafe"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/benchdata/pkg/common/moerr"
)

func testAllocators() map[string]Allocator {
	return map[string]Allocator{
		"numa": NewNumaLocalAllocator(),
		"go":   NewGoAllocator(),
	}
}

func TestAllocate(t *testing.T) {
	for name, alloc := range testAllocators() {
		t.Run(name, func(t *testing.T) {
			for _, size := range []uint64{1, 7, 4096, 4097, 3 * MB} {
				for _, hints := range []Hints{0, NoPrefault} {
					bs, dec, err := alloc.Allocate(size, hints)
					require.NoError(t, err)
					require.Equal(t, int(size), len(bs))
					require.Equal(t, uintptr(0), uintptr(unsafe.Pointer(unsafe.SliceData(bs)))%8)
					nonZero := 0
					for _, b := range bs {
						if b != 0 {
							nonZero++
						}
					}
					require.Zero(t, nonZero)
					bs[0], bs[len(bs)-1] = 1, 2
					dec.Deallocate(0)
				}
			}

			bs, dec, err := alloc.Allocate(0, 0)
			require.NoError(t, err)
			require.Empty(t, bs)
			dec.Deallocate(0)
		})
	}
}

func TestMakeSlice(t *testing.T) {
	for name, alloc := range testAllocators() {
		t.Run(name, func(t *testing.T) {
			u64, dec, err := MakeSlice[uint64](alloc, 1000, 0)
			require.NoError(t, err)
			require.Len(t, u64, 1000)
			for i := range u64 {
				u64[i] = uint64(i) << 40
			}
			require.Equal(t, uint64(999)<<40, u64[999])
			dec.Deallocate(0)

			f32, dec, err := MakeSlice[float32](alloc, 3, 0)
			require.NoError(t, err)
			require.Equal(t, []float32{0, 0, 0}, f32)
			dec.Deallocate(0)

			empty, dec, err := MakeSlice[uint32](alloc, 0, 0)
			require.NoError(t, err)
			require.NotNil(t, empty)
			require.Len(t, empty, 0)
			dec.Deallocate(0)
		})
	}
}

func TestChainDeallocator(t *testing.T) {
	var order []int
	dec := ChainDeallocator(
		FuncDeallocator(func(Hints) { order = append(order, 1) }),
		NoopDeallocator,
		FuncDeallocator(func(Hints) { order = append(order, 2) }),
	)
	dec.Deallocate(0)
	require.Equal(t, []int{1, 2}, order)
}

func TestParseKind(t *testing.T) {
	ctx := context.Background()
	k, err := ParseKind(ctx, "")
	require.NoError(t, err)
	require.Equal(t, KindNumaLocal, k)
	_, ok := NewAllocator(k).(*NumaLocalAllocator)
	require.True(t, ok)

	k, err = ParseKind(ctx, "GO")
	require.NoError(t, err)
	_, ok = NewAllocator(k).(*GoAllocator)
	require.True(t, ok)

	_, err = ParseKind(ctx, "jemalloc")
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig))
}

func TestMetricsAllocator(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg, "test")
	require.NoError(t, err)

	alloc := NewMetricsAllocator(
		NewGoAllocator(),
		metrics.AllocateBytes,
		metrics.InuseBytes,
		metrics.AllocateObjects,
		metrics.InuseObjects,
	)

	_, dec1, err := alloc.Allocate(100, 0)
	require.NoError(t, err)
	_, dec2, err := alloc.Allocate(50, 0)
	require.NoError(t, err)

	require.Equal(t, float64(150), testutil.ToFloat64(metrics.AllocateBytes))
	require.Equal(t, float64(150), testutil.ToFloat64(metrics.InuseBytes))
	require.Equal(t, float64(2), testutil.ToFloat64(metrics.InuseObjects))
	require.Equal(t, uint64(150), alloc.InuseBytes())

	dec1.Deallocate(0)
	// releasing twice only counts once
	dec1.Deallocate(0)
	require.Equal(t, float64(50), testutil.ToFloat64(metrics.InuseBytes))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.InuseObjects))

	dec2.Deallocate(0)
	require.Equal(t, uint64(0), alloc.InuseBytes())
	require.Equal(t, float64(2), testutil.ToFloat64(metrics.AllocateObjects))

	peak, at := alloc.Peak()
	require.Equal(t, uint64(150), peak)
	require.False(t, at.IsZero())

	// a second registration under the same namespace collides
	_, err = NewMetrics(reg, "test")
	require.Error(t, err)
}

func TestPeakInuseTracker(t *testing.T) {
	var p PeakInuseTracker
	v, _ := p.Load()
	require.Equal(t, uint64(0), v)
	p.Update(10)
	p.Update(5)
	p.Update(20)
	v, _ = p.Load()
	require.Equal(t, uint64(20), v)
}
