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
	"github.com/RoaringBitmap/roaring"
)

// SparseTracker is a compressed tracker for runs that only mark a small
// fraction of the 32-bit domain.
type SparseTracker struct {
	bmp *roaring.Bitmap
}

var _ Tracker = new(SparseTracker)

func NewSparseTracker() *SparseTracker {
	return &SparseTracker{
		bmp: roaring.New(),
	}
}

func (s *SparseTracker) TestAndSet(v uint32) bool {
	return s.bmp.CheckedAdd(v)
}

func (s *SparseTracker) Contains(v uint32) bool {
	return s.bmp.Contains(v)
}

func (s *SparseTracker) Count() uint64 {
	return s.bmp.GetCardinality()
}

func (s *SparseTracker) Remaining() uint64 {
	return Domain32 - s.bmp.GetCardinality()
}

func (s *SparseTracker) Reset() {
	s.bmp.Clear()
}

// SizeInBytes estimates the memory used by the marks.
func (s *SparseTracker) SizeInBytes() uint64 {
	return s.bmp.GetSizeInBytes()
}

func (s *SparseTracker) Close() error {
	s.bmp.Clear()
	return nil
}
