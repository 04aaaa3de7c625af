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
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/benchdata/pkg/common/bitmap"
	"github.com/matrixorigin/benchdata/pkg/common/entropy"
	"github.com/matrixorigin/benchdata/pkg/common/moerr"
)

func newTrackers(t *testing.T) map[string]bitmap.Tracker {
	dense, err := bitmap.NewDenseTracker(context.Background(), bitmap.Domain32)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, dense.Close())
	})
	return map[string]bitmap.Tracker{
		"dense":  dense,
		"sparse": bitmap.NewSparseTracker(),
	}
}

func TestGenerateRandomUnique32AcrossCalls(t *testing.T) {
	ctx := context.Background()
	for name, tracker := range newTrackers(t) {
		t.Run(name, func(t *testing.T) {
			seen := make(map[uint32]struct{})
			for _, count := range []int{0, 1, 1000, 5000} {
				vals, err := GenerateRandomUnique32WithTracker(ctx, count, tracker)
				require.NoError(t, err)
				require.Len(t, vals, count)
				for _, v := range vals {
					_, dup := seen[v]
					require.False(t, dup, "value %d returned twice", v)
					seen[v] = struct{}{}
					require.True(t, tracker.Contains(v))
				}
			}
			require.Equal(t, uint64(len(seen)), tracker.Count())
		})
	}
}

func TestGenerateRandomUnique32SkipsMarked(t *testing.T) {
	ctx := context.Background()
	for name, tracker := range newTrackers(t) {
		t.Run(name, func(t *testing.T) {
			tracker.TestAndSet(5)
			tracker.TestAndSet(8)

			vals, err := GenerateRandomUnique32(ctx, scripted(5, 7, 5, 8, 7, 9), 2, tracker)
			require.NoError(t, err)
			require.Equal(t, []uint32{7, 9}, vals)
			require.True(t, tracker.Contains(9))
			require.Equal(t, uint64(4), tracker.Count())
		})
	}
}

// a duplicate draw inside one call is rejected as well
func TestGenerateRandomUnique32DuplicateDraws(t *testing.T) {
	ctx := context.Background()
	tracker := bitmap.NewSparseTracker()
	vals, err := GenerateRandomUnique32(ctx, scripted(3, 3, 3, 4), 2, tracker)
	require.NoError(t, err)
	require.Equal(t, []uint32{3, 4}, vals)
}

func TestGenerateRandomUnique32Seeded(t *testing.T) {
	ctx := context.Background()
	a, err := GenerateRandomUnique32(ctx, entropy.NewSeeded(3), 100, bitmap.NewSparseTracker())
	require.NoError(t, err)
	b, err := GenerateRandomUnique32(ctx, entropy.NewSeeded(3), 100, bitmap.NewSparseTracker())
	require.NoError(t, err)
	require.Equal(t, a, b)
}

type nearlyFullTracker struct {
	bitmap.Tracker
	remaining uint64
}

func (n *nearlyFullTracker) Remaining() uint64 {
	return n.remaining
}

func TestGenerateRandomUnique32Saturated(t *testing.T) {
	ctx := context.Background()
	inner := bitmap.NewSparseTracker()
	tracker := &nearlyFullTracker{Tracker: inner, remaining: 3}

	_, err := GenerateRandomUnique32(ctx, entropy.NewSeeded(1), 4, tracker)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrTrackerSaturated))
	require.Equal(t, uint64(0), inner.Count())

	vals, err := GenerateRandomUnique32(ctx, entropy.NewSeeded(1), 3, tracker)
	require.NoError(t, err)
	require.Len(t, vals, 3)
}

func TestGenerateRandomUnique32BadInput(t *testing.T) {
	ctx := context.Background()
	_, err := GenerateRandomUnique32(ctx, entropy.NewSeeded(1), -1, bitmap.NewSparseTracker())
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidArg))

	_, err = GenerateRandomUnique32(ctx, entropy.NewSeeded(1), 1, nil)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))

	var sparse *bitmap.SparseTracker
	_, err = GenerateRandomUnique32(ctx, entropy.NewSeeded(1), 1, sparse)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))

	var dense *bitmap.DenseTracker
	_, err = GenerateRandomUnique32(ctx, entropy.NewSeeded(1), 0, dense)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))
}
