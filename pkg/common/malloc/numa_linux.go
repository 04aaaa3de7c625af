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
	"unsafe"

	"golang.org/x/sys/unix"
)

// MPOL_LOCAL from linux/mempolicy.h, allocate on the node of the CPU that
// triggers the page fault.
const mpolLocal = 4

func bindLocal(slice []byte) error {
	_, _, errno := unix.Syscall6(
		unix.SYS_MBIND,
		uintptr(unsafe.Pointer(unsafe.SliceData(slice))),
		uintptr(len(slice)),
		mpolLocal,
		0, 0, 0,
	)
	if errno != 0 {
		return errno
	}
	return nil
}
