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
	"strings"

	"github.com/matrixorigin/benchdata/pkg/common/moerr"
)

// Domain32 is the number of distinct 32-bit values.
const Domain32 uint64 = 1 << 32

// Tracker records which 32-bit values were already handed out.
//
// A Tracker is owned by the caller and may be shared by several generator
// calls to accumulate exclusions. It is not safe for concurrent use.
type Tracker interface {
	// TestAndSet marks v and reports whether it was unmarked before.
	TestAndSet(v uint32) bool
	Contains(v uint32) bool
	// Count returns the number of marked values.
	Count() uint64
	// Remaining returns the number of values still unmarked.
	Remaining() uint64
	Reset()
	Close() error
}

// IsNil reports whether t is nil or wraps a nil tracker of this package.
func IsNil(t Tracker) bool {
	switch v := t.(type) {
	case nil:
		return true
	case *DenseTracker:
		return v == nil
	case *SparseTracker:
		return v == nil
	}
	return false
}

type TrackerKind string

const (
	TrackerDense  TrackerKind = "dense"
	TrackerSparse TrackerKind = "sparse"
)

func ParseTrackerKind(ctx context.Context, s string) (TrackerKind, error) {
	switch TrackerKind(strings.ToLower(s)) {
	case TrackerDense, "":
		return TrackerDense, nil
	case TrackerSparse:
		return TrackerSparse, nil
	default:
		return "", moerr.NewBadConfig(ctx, "unknown tracker %q", s)
	}
}

// NewTracker builds a tracker of the given kind over the full 32-bit domain.
func NewTracker(ctx context.Context, kind TrackerKind) (Tracker, error) {
	switch kind {
	case TrackerDense:
		return NewDenseTracker(ctx, Domain32)
	case TrackerSparse:
		return NewSparseTracker(), nil
	default:
		return nil, moerr.NewInvalidArg(ctx, "tracker kind", kind)
	}
}
