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

	"go.uber.org/zap"

	"github.com/matrixorigin/benchdata/pkg/common/bitmap"
	"github.com/matrixorigin/benchdata/pkg/common/entropy"
	"github.com/matrixorigin/benchdata/pkg/common/moerr"
	"github.com/matrixorigin/benchdata/pkg/logutil"
)

// GenerateRandomUnique32 returns count distinct values that were not marked
// in tracker, and marks each of them. Candidates already marked are dropped
// and redrawn.
//
// The request is refused up front when tracker has fewer than count unmarked
// values left; otherwise the loop ends almost surely, though it slows down
// as the tracker fills up.
func GenerateRandomUnique32(ctx context.Context, src entropy.Source, count int, tracker bitmap.Tracker) ([]uint32, error) {
	if count < 0 {
		return nil, moerr.NewInvalidArg(ctx, "count", count)
	}
	if bitmap.IsNil(tracker) {
		return nil, moerr.NewInvalidInput(ctx, "nil tracker")
	}
	if remaining := tracker.Remaining(); uint64(count) > remaining {
		return nil, moerr.NewTrackerSaturated(ctx, uint64(count), remaining)
	}

	result := make([]uint32, count)
	var rejected uint64
	for i := range result {
		r := src.Uint32()
		for !tracker.TestAndSet(r) {
			rejected++
			r = src.Uint32()
		}
		result[i] = r
	}

	logutil.Debug("benchdata: unique keys generated",
		zap.Int("count", count),
		zap.Uint64("rejected", rejected),
		zap.Uint64("marked", tracker.Count()),
	)
	return result, nil
}

func GenerateRandomUnique32WithTracker(ctx context.Context, count int, tracker bitmap.Tracker) ([]uint32, error) {
	return GenerateRandomUnique32(ctx, entropy.NewDevice(), count, tracker)
}
