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

package bitmap

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/benchdata/pkg/common/moerr"
)

func newTrackers(t *testing.T) map[string]Tracker {
	dense, err := NewDenseTracker(context.Background(), Domain32)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, dense.Close())
	})
	return map[string]Tracker{
		"dense":  dense,
		"sparse": NewSparseTracker(),
	}
}

func TestDenseTrackerDomain(t *testing.T) {
	ctx := context.Background()
	for _, domain := range []uint64{0, 1 << 16, Domain32 - 1, Domain32 + 1} {
		_, err := NewDenseTracker(ctx, domain)
		require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidArg), "domain %d", domain)
	}
}

func TestTrackerTestAndSet(t *testing.T) {
	for name, tr := range newTrackers(t) {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, uint64(0), tr.Count())
			require.Equal(t, Domain32, tr.Remaining())

			for _, v := range []uint32{0, 1, 63, 64, math.MaxUint32, 1 << 31} {
				require.False(t, tr.Contains(v))
				require.True(t, tr.TestAndSet(v))
				require.True(t, tr.Contains(v))
				require.False(t, tr.TestAndSet(v))
			}
			require.Equal(t, uint64(6), tr.Count())
			require.Equal(t, Domain32-6, tr.Remaining())
			require.False(t, tr.Contains(2))
			require.False(t, tr.Contains(math.MaxUint32-1))

			tr.Reset()
			require.Equal(t, uint64(0), tr.Count())
			require.False(t, tr.Contains(63))
			require.True(t, tr.TestAndSet(63))
		})
	}
}

func TestDenseTrackerRecount(t *testing.T) {
	tr, err := NewDenseTracker(context.Background(), Domain32)
	require.NoError(t, err)
	defer tr.Close()

	require.True(t, tr.IsEmpty())
	for v := uint32(0); v < 1000; v += 3 {
		tr.Add(v)
	}
	tr.Add(3)
	require.Equal(t, uint64(334), tr.Count())
	require.Equal(t, tr.Count(), tr.Recount())
	require.False(t, tr.IsEmpty())

	tr.Reset()
	require.Equal(t, uint64(0), tr.Recount())
}

func TestDenseTrackerCloseTwice(t *testing.T) {
	tr, err := NewDenseTracker(context.Background(), Domain32)
	require.NoError(t, err)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
}

func TestNewTracker(t *testing.T) {
	ctx := context.Background()

	kind, err := ParseTrackerKind(ctx, "")
	require.NoError(t, err)
	require.Equal(t, TrackerDense, kind)

	kind, err = ParseTrackerKind(ctx, "SPARSE")
	require.NoError(t, err)
	tr, err := NewTracker(ctx, kind)
	require.NoError(t, err)
	_, ok := tr.(*SparseTracker)
	require.True(t, ok)

	_, err = ParseTrackerKind(ctx, "hash")
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrBadConfig))

	_, err = NewTracker(ctx, "hash")
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidArg))
}

func TestSparseTrackerSize(t *testing.T) {
	tr := NewSparseTracker()
	for v := uint32(0); v < 1<<16; v++ {
		tr.TestAndSet(v)
	}
	// a full container collapses into a run or bitmap container
	require.Less(t, tr.SizeInBytes(), uint64(1<<14))
	require.NoError(t, tr.Close())
	require.Equal(t, uint64(0), tr.Count())
}

func TestIsNil(t *testing.T) {
	var dense *DenseTracker
	var sparse *SparseTracker
	require.True(t, IsNil(nil))
	require.True(t, IsNil(dense))
	require.True(t, IsNil(sparse))
	for name, tr := range newTrackers(t) {
		require.False(t, IsNil(tr), name)
	}
}
