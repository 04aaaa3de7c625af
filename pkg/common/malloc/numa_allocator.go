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

//go:build unix

package malloc

import (
	"context"
	"errors"
	"math"
	"os"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/matrixorigin/benchdata/pkg/common/moerr"
	"github.com/matrixorigin/benchdata/pkg/logutil"
)

// NumaLocalAllocator maps fresh anonymous memory for every allocation and
// places it on the memory node of the calling thread.
type NumaLocalAllocator struct {
	pageSize uint64
}

var _ Allocator = new(NumaLocalAllocator)

func NewNumaLocalAllocator() *NumaLocalAllocator {
	return &NumaLocalAllocator{
		pageSize: uint64(os.Getpagesize()),
	}
}

func (n *NumaLocalAllocator) Allocate(size uint64, hints Hints) ([]byte, Deallocator, error) {
	if size == 0 {
		return []byte{}, NoopDeallocator, nil
	}
	if size > math.MaxInt-n.pageSize {
		return nil, nil, moerr.NewOOM(context.TODO())
	}
	length := (size + n.pageSize - 1) / n.pageSize * n.pageSize

	// keep mapping, binding and first touch on one thread
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	slice, err := unix.Mmap(
		-1, 0,
		int(length),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS,
	)
	if err != nil {
		if errors.Is(err, unix.ENOMEM) {
			return nil, nil, moerr.NewOOM(context.TODO())
		}
		return nil, nil, moerr.ConvertGoError(context.TODO(), err)
	}

	if err := bindLocal(slice); err != nil {
		// kernels without NUMA support reject mbind
		logutil.Debug("malloc: local memory policy unavailable",
			zap.Uint64("length", length),
			zap.Error(err),
		)
	}

	if hints&NoPrefault == 0 {
		for off := uint64(0); off < length; off += n.pageSize {
			slice[off] = 0
		}
	}

	return slice[:size:size], FuncDeallocator(func(Hints) {
		if err := unix.Munmap(slice); err != nil {
			panic(err)
		}
	}), nil
}
