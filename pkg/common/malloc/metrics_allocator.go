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
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type MetricsAllocator[U Allocator] struct {
	upstream U

	allocateBytesCounter   prometheus.Counter
	inuseBytesGauge        prometheus.Gauge
	allocateObjectsCounter prometheus.Counter
	inuseObjectsGauge      prometheus.Gauge

	inuseBytes atomic.Int64
	peak       PeakInuseTracker
}

func NewMetricsAllocator[U Allocator](
	upstream U,
	allocateBytesCounter prometheus.Counter,
	inuseBytesGauge prometheus.Gauge,
	allocateObjectsCounter prometheus.Counter,
	inuseObjectsGauge prometheus.Gauge,
) *MetricsAllocator[U] {
	return &MetricsAllocator[U]{
		upstream:               upstream,
		allocateBytesCounter:   allocateBytesCounter,
		inuseBytesGauge:        inuseBytesGauge,
		allocateObjectsCounter: allocateObjectsCounter,
		inuseObjectsGauge:      inuseObjectsGauge,
	}
}

// Metrics holds the collectors of a MetricsAllocator.
type Metrics struct {
	AllocateBytes   prometheus.Counter
	InuseBytes      prometheus.Gauge
	AllocateObjects prometheus.Counter
	InuseObjects    prometheus.Gauge
}

// NewMetrics creates the allocator collectors under namespace and registers
// them with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		AllocateBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "malloc",
			Name:      "allocate_bytes_total",
			Help:      "Total bytes allocated.",
		}),
		InuseBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "malloc",
			Name:      "inuse_bytes",
			Help:      "Bytes allocated and not yet released.",
		}),
		AllocateObjects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "malloc",
			Name:      "allocate_objects_total",
			Help:      "Total number of allocations.",
		}),
		InuseObjects: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "malloc",
			Name:      "inuse_objects",
			Help:      "Allocations not yet released.",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.AllocateBytes, m.InuseBytes, m.AllocateObjects, m.InuseObjects,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

var _ Allocator = new(MetricsAllocator[Allocator])

func (m *MetricsAllocator[U]) Allocate(size uint64, hints Hints) ([]byte, Deallocator, error) {
	ptr, dec, err := m.upstream.Allocate(size, hints)
	if err != nil {
		return nil, nil, err
	}
	m.allocateBytesCounter.Add(float64(size))
	m.inuseBytesGauge.Add(float64(size))
	m.allocateObjectsCounter.Inc()
	m.inuseObjectsGauge.Inc()
	m.peak.Update(uint64(m.inuseBytes.Add(int64(size))))

	var released atomic.Bool
	return ptr, ChainDeallocator(
		dec,
		FuncDeallocator(func(Hints) {
			if !released.CompareAndSwap(false, true) {
				return
			}
			m.inuseBytes.Add(-int64(size))
			m.inuseBytesGauge.Sub(float64(size))
			m.inuseObjectsGauge.Dec()
		}),
	), nil
}

// InuseBytes returns the bytes currently handed out.
func (m *MetricsAllocator[U]) InuseBytes() uint64 {
	return uint64(m.inuseBytes.Load())
}

// Peak returns the highest in-use value seen and when it was reached.
func (m *MetricsAllocator[U]) Peak() (uint64, time.Time) {
	return m.peak.Load()
}

type PeakInuseTracker struct {
	ptr atomic.Pointer[peakInuseValue]
}

type peakInuseValue struct {
	Value uint64
	Time  time.Time
}

func (p *PeakInuseTracker) Update(n uint64) {
	for {
		// read
		ptr := p.ptr.Load()
		if ptr != nil && n <= ptr.Value {
			return
		}
		// update
		if p.ptr.CompareAndSwap(ptr, &peakInuseValue{
			Value: n,
			Time:  time.Now(),
		}) {
			return
		}
	}
}

func (p *PeakInuseTracker) Load() (uint64, time.Time) {
	ptr := p.ptr.Load()
	if ptr == nil {
		return 0, time.Time{}
	}
	return ptr.Value, ptr.Time
}
