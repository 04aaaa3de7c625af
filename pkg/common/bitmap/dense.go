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
	"math/bits"

	"github.com/matrixorigin/benchdata/pkg/common/moerr"
)

type bitmask = uint64

const numWords32 = Domain32 / 64

// DenseTracker keeps one bit per possible 32-bit value, 512 MiB in total.
// On unix the words live in an anonymous private mapping, so only pages
// that were actually touched cost physical memory.
type DenseTracker struct {
	data  []bitmask
	count uint64
}

var _ Tracker = new(DenseTracker)

// NewDenseTracker allocates a tracker for domain values. domain must be the
// full 32-bit domain; anything else is rejected so that a truncated tracker
// can never be passed to the unique generator.
func NewDenseTracker(ctx context.Context, domain uint64) (*DenseTracker, error) {
	if domain != Domain32 {
		return nil, moerr.NewInvalidArg(ctx, "tracker domain", domain)
	}
	data, err := allocWords(numWords32)
	if err != nil {
		return nil, moerr.ConvertGoError(ctx, err)
	}
	return &DenseTracker{
		data: data,
	}, nil
}

func (n *DenseTracker) TestAndSet(v uint32) bool {
	w, mask := v>>6, bitmask(1)<<(v&0x3F)
	if n.data[w]&mask != 0 {
		return false
	}
	n.data[w] |= mask
	n.count++
	return true
}

func (n *DenseTracker) Contains(v uint32) bool {
	return n.data[v>>6]&(bitmask(1)<<(v&0x3F)) != 0
}

// Add marks v without reporting whether it was set.
func (n *DenseTracker) Add(v uint32) {
	n.TestAndSet(v)
}

func (n *DenseTracker) Count() uint64 {
	return n.count
}

func (n *DenseTracker) Remaining() uint64 {
	return Domain32 - n.count
}

// Recount walks every word and recomputes the marked count.
func (n *DenseTracker) Recount() uint64 {
	var cnt uint64
	for _, w := range n.data {
		if w != 0 {
			cnt += uint64(bits.OnesCount64(w))
		}
	}
	return cnt
}

// IsEmpty returns true if no value is marked.
func (n *DenseTracker) IsEmpty() bool {
	return n.count == 0
}

// Reset clears every mark.
func (n *DenseTracker) Reset() {
	if n.count == 0 {
		return
	}
	zeroWords(n.data)
	n.count = 0
}

func (n *DenseTracker) Close() error {
	if n.data == nil {
		return nil
	}
	data := n.data
	n.data = nil
	n.count = 0
	return freeWords(data)
}
