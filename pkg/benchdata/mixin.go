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
	"math"

	"go.uber.org/zap"

	"github.com/matrixorigin/benchdata/pkg/common/entropy"
	"github.com/matrixorigin/benchdata/pkg/common/malloc"
	"github.com/matrixorigin/benchdata/pkg/common/moerr"
	"github.com/matrixorigin/benchdata/pkg/logutil"
)

// MaxDonorSize is the largest donor that one 32-bit draw can index.
const MaxDonorSize uint64 = 1 << 32

// MixIn returns a copy of x, allocated from alloc, in which the first
// floor(p*len(x)) elements are replaced by elements picked uniformly from y,
// shuffled afterwards so positions say nothing about origin.
//
// The result must be released with the returned Deallocator. MixIn fails
// with an out of range error when y holds more than MaxDonorSize elements,
// and allocates nothing in that case.
func MixIn[T malloc.Number](
	ctx context.Context,
	alloc malloc.Allocator,
	src entropy.Source,
	x, y []T,
	p float64,
) ([]T, malloc.Deallocator, error) {
	ySize := uint64(len(y))
	if err := checkDonorSize(ctx, ySize); err != nil {
		return nil, nil, err
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return nil, nil, moerr.NewInvalidArg(ctx, "mix probability", p)
	}

	mixed := uint64(p * float64(len(x)))
	if mixed > uint64(len(x)) {
		mixed = uint64(len(x))
	}
	if mixed > 0 && ySize == 0 {
		return nil, nil, moerr.NewInvalidInput(ctx, "empty donor for %d mixed positions", mixed)
	}

	result, dec, err := malloc.MakeSlice[T](alloc, len(x), 0)
	if err != nil {
		return nil, nil, err
	}
	copy(result, x)

	for i := uint64(0); i < mixed; i++ {
		result[i] = y[entropy.Scale32(src, ySize)]
	}
	entropy.Shuffle(src, len(result), func(i, j int) {
		result[i], result[j] = result[j], result[i]
	})

	logutil.Debug("benchdata: mixed in donor",
		zap.Int("base", len(x)),
		zap.Uint64("donor", ySize),
		zap.Float64("probability", p),
		zap.Uint64("mixed", mixed),
	)
	return result, dec, nil
}

// MixInLocal mixes with fresh device entropy into NUMA-local memory.
func MixInLocal[T malloc.Number](ctx context.Context, x, y []T, p float64) ([]T, malloc.Deallocator, error) {
	return MixIn(ctx, malloc.NewNumaLocalAllocator(), entropy.NewDevice(), x, y, p)
}

func checkDonorSize(ctx context.Context, n uint64) error {
	if n > MaxDonorSize {
		return moerr.NewOutOfRange(ctx, "donor", "%d elements exceed %d", n, MaxDonorSize)
	}
	return nil
}
