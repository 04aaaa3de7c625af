// Copyright 2021 Matrix Origin
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

package concurrent

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ThreadPoolExecutor runs a function over fixed size chunks of an index
// range on a bounded number of goroutines.
type ThreadPoolExecutor struct {
	nthreads int
}

func NewThreadPoolExecutor(nthreads int) ThreadPoolExecutor {
	if nthreads <= 0 {
		nthreads = runtime.NumCPU()
	}
	return ThreadPoolExecutor{nthreads: nthreads}
}

func (e ThreadPoolExecutor) Threads() int {
	return e.nthreads
}

// Execute calls fn once per chunk [start, end) of [0, nitems). Chunk
// boundaries depend only on nitems and chunkSize, never on the thread count,
// so chunk ids are stable across executors. The first error cancels the
// remaining chunks and is returned.
func (e ThreadPoolExecutor) Execute(
	ctx context.Context,
	nitems int,
	chunkSize int,
	fn func(ctx context.Context, chunk int, start, end int) error) error {

	if chunkSize <= 0 {
		chunkSize = nitems
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.nthreads)

	for chunk, start := 0, 0; start < nitems; chunk, start = chunk+1, start+chunkSize {
		if gctx.Err() != nil {
			break
		}
		end := min(start+chunkSize, nitems)
		g.Go(func() error {
			return fn(gctx, chunk, start, end)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
