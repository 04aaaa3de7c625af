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

package bitmap

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

func allocWords(n uint64) ([]bitmask, error) {
	slice, err := unix.Mmap(
		-1, 0,
		int(n*8),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS|mapNoReserve,
	)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*bitmask)(unsafe.Pointer(unsafe.SliceData(slice))), n), nil
}

func freeWords(data []bitmask) error {
	return unix.Munmap(
		unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(data))), len(data)*8),
	)
}
