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
	"unsafe"

	"golang.org/x/sys/unix"
)

const mapNoReserve = unix.MAP_NORESERVE

func zeroWords(data []bitmask) {
	// re-visiting a MADV_DONTNEED-advised private anonymous page will zero it
	if err := unix.Madvise(
		unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(data))), len(data)*8),
		unix.MADV_DONTNEED,
	); err != nil {
		clear(data)
	}
}
