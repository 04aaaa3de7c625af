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

// Package datagen generates the datasets described by a Config and stores
// them with a manifest.
package datagen

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/matrixorigin/benchdata/pkg/benchdata"
	"github.com/matrixorigin/benchdata/pkg/common/bitmap"
	"github.com/matrixorigin/benchdata/pkg/common/concurrent"
	"github.com/matrixorigin/benchdata/pkg/common/entropy"
	"github.com/matrixorigin/benchdata/pkg/common/malloc"
	"github.com/matrixorigin/benchdata/pkg/common/moerr"
	"github.com/matrixorigin/benchdata/pkg/datagen/dataset"
	"github.com/matrixorigin/benchdata/pkg/logutil"
)

const (
	metricsNamespace = "benchdata"
	fileExt          = ".mods"
	releaseTimeout   = 5 * time.Second
	// uniformChunk values of a uniform dataset share one entropy stream
	uniformChunk = 1 << 20
)

type Option func(*Runner)

// WithLogger set logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithAllocator replaces the allocator configured for mixed datasets.
func WithAllocator(alloc malloc.Allocator) Option {
	return func(r *Runner) {
		r.upstream = alloc
	}
}

// Result describes one generated dataset.
type Result struct {
	Name     string
	Kind     Kind
	File     string
	Header   dataset.Header
	Duration time.Duration
}

type Runner struct {
	cfg      *Config
	runID    uuid.UUID
	logger   *zap.Logger
	sources  func(stream uint64) entropy.Source
	upstream malloc.Allocator
	alloc    *malloc.MetricsAllocator[malloc.Allocator]
	tracker  bitmap.Tracker
	pool     *ants.Pool
	executor concurrent.ThreadPoolExecutor

	registry  *prometheus.Registry
	generated *prometheus.CounterVec
	elapsed   *prometheus.HistogramVec

	mu struct {
		sync.Mutex
		ran      bool
		err      error
		values   map[string]any
		deallocs []malloc.Deallocator
	}
}

// NewRunner prepares a run of cfg. The caller must Close the runner to
// release mixed datasets, the tracker and the worker pool.
func NewRunner(ctx context.Context, cfg *Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(ctx); err != nil {
		return nil, err
	}
	r := &Runner{
		cfg:   cfg,
		runID: uuid.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logutil.Adjust(r.logger).Named("datagen").With(zap.String("run-id", r.runID.String()))
	r.mu.values = make(map[string]any, len(cfg.Datasets))

	g := cfg.Generator
	kind, err := entropy.ParseKind(ctx, g.Entropy)
	if err != nil {
		return nil, err
	}
	r.sources = entropy.Factory(kind, g.Seed)
	r.executor = concurrent.NewThreadPoolExecutor(g.Workers)

	if r.upstream == nil {
		ak, err := malloc.ParseKind(ctx, g.Allocator)
		if err != nil {
			return nil, err
		}
		r.upstream = malloc.NewAllocator(ak)
	}
	if err := r.initMetrics(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(g.OutputDir, 0755); err != nil {
		return nil, moerr.ConvertGoError(ctx, err)
	}

	for _, d := range cfg.Datasets {
		if d.Kind != KindUnique32 {
			continue
		}
		tk, err := bitmap.ParseTrackerKind(ctx, g.Tracker)
		if err != nil {
			return nil, err
		}
		if r.tracker, err = bitmap.NewTracker(ctx, tk); err != nil {
			return nil, err
		}
		break
	}

	r.pool, err = ants.NewPool(g.Workers)
	if err != nil {
		r.Close()
		return nil, moerr.NewInternalError(ctx, "create worker pool: %v", err)
	}
	return r, nil
}

func (r *Runner) initMetrics() error {
	r.registry = prometheus.NewRegistry()
	m, err := malloc.NewMetrics(r.registry, metricsNamespace)
	if err != nil {
		return err
	}
	r.alloc = malloc.NewMetricsAllocator(
		r.upstream,
		m.AllocateBytes,
		m.InuseBytes,
		m.AllocateObjects,
		m.InuseObjects,
	)
	r.generated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "datagen",
		Name:      "values_total",
		Help:      "Values generated, by dataset kind.",
	}, []string{"kind"})
	r.elapsed = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "datagen",
		Name:      "dataset_duration_seconds",
		Help:      "Time to generate and store one dataset.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"kind"})
	if err := r.registry.Register(r.generated); err != nil {
		return err
	}
	return r.registry.Register(r.elapsed)
}

func (r *Runner) RunID() uuid.UUID {
	return r.runID
}

func (r *Runner) Registry() *prometheus.Registry {
	return r.registry
}

// Values returns the generated values of dataset name, a []uint32 or a
// []uint64, or nil when it does not exist yet. Mixed datasets stay valid
// until Close.
func (r *Runner) Values(name string) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mu.values[name]
}

// Run generates every dataset, writes them to the output directory and
// records them in the manifest. Datasets are generated in stages: first all
// uniform and unique datasets, then mixed datasets once their base and donor
// exist. Unique datasets share the tracker and are generated one after the
// other in declaration order, so a seeded run is reproducible.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	r.mu.Lock()
	if r.mu.ran {
		r.mu.Unlock()
		return nil, moerr.NewInvalidState(ctx, "runner %s already ran", r.runID)
	}
	r.mu.ran = true
	r.mu.Unlock()

	start := time.Now()
	results := make([]Result, len(r.cfg.Datasets))
	for _, stage := range r.stages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var wg sync.WaitGroup
		for _, job := range stage {
			wg.Add(1)
			err := r.pool.Submit(func() {
				defer wg.Done()
				r.runJob(ctx, job, results)
			})
			if err != nil {
				wg.Done()
				r.setError(moerr.NewInternalError(ctx, "submit dataset job: %v", err))
			}
		}
		wg.Wait()
		if err := r.firstError(); err != nil {
			return nil, err
		}
	}

	if err := r.writeManifest(ctx, start, results); err != nil {
		return nil, err
	}
	peak, _ := r.alloc.Peak()
	r.logger.Info("datagen finished",
		zap.Int("datasets", len(results)),
		zap.Duration("duration", time.Since(start)),
		zap.Uint64("mixin-inuse-bytes", r.alloc.InuseBytes()),
		zap.Uint64("mixin-peak-bytes", peak),
	)
	return results, nil
}

// runJob generates the datasets of job in order and stops at the first
// failure. A panic fails the run instead of the process.
func (r *Runner) runJob(ctx context.Context, job []int, results []Result) {
	defer func() {
		if v := recover(); v != nil {
			r.setError(moerr.ConvertPanicError(ctx, v))
		}
	}()
	for _, i := range job {
		if err := ctx.Err(); err != nil {
			r.setError(err)
			return
		}
		res, err := r.generate(ctx, i)
		if err != nil {
			r.setError(err)
			return
		}
		results[i] = res
	}
}

// stages groups dataset indexes into jobs. Jobs of one stage run
// concurrently, the indexes of one job run in order.
func (r *Runner) stages() [][][]int {
	level := make(map[string]int, len(r.cfg.Datasets))
	var stages [][][]int
	var unique []int
	for i, d := range r.cfg.Datasets {
		l := 0
		if d.Kind.IsMixIn() {
			l = max(level[d.Base], level[d.Donor]) + 1
		}
		level[d.Name] = l
		for len(stages) <= l {
			stages = append(stages, nil)
		}
		if d.Kind == KindUnique32 {
			unique = append(unique, i)
			continue
		}
		stages[l] = append(stages[l], []int{i})
	}
	if len(unique) > 0 {
		stages[0] = append(stages[0], unique)
	}
	return stages
}

func (r *Runner) generate(ctx context.Context, i int) (Result, error) {
	d := r.cfg.Datasets[i]
	start := time.Now()
	src := r.sources(uint64(i))
	file := d.Name + fileExt
	path := filepath.Join(r.cfg.Generator.OutputDir, file)

	var h dataset.Header
	var err error
	switch d.Kind {
	case KindUniform32:
		h, err = uniform[uint32](ctx, r, i, d, path)
	case KindUniform64:
		h, err = uniform[uint64](ctx, r, i, d, path)
	case KindUnique32:
		var vs []uint32
		if vs, err = benchdata.GenerateRandomUnique32(ctx, src, d.Count, r.tracker); err == nil {
			h, err = storeValues(ctx, r, d.Name, path, vs, nil)
		}
	case KindMixIn32:
		h, err = mixIn[uint32](ctx, r, src, d, path)
	case KindMixIn64:
		h, err = mixIn[uint64](ctx, r, src, d, path)
	default:
		err = moerr.NewBadConfig(ctx, "dataset %q: unknown kind %q", d.Name, d.Kind)
	}
	if err != nil {
		r.logger.Error("generate dataset failed",
			zap.String("dataset", d.Name),
			zap.String("kind", string(d.Kind)),
			zap.Error(err),
		)
		return Result{}, err
	}

	elapsed := time.Since(start)
	r.generated.WithLabelValues(string(d.Kind)).Add(float64(h.Count))
	r.elapsed.WithLabelValues(string(d.Kind)).Observe(elapsed.Seconds())
	r.logger.Info("dataset generated",
		zap.String("dataset", d.Name),
		zap.String("kind", string(d.Kind)),
		zap.Uint64("count", h.Count),
		zap.String("file", file),
		zap.Bool("compressed", h.Compressed()),
		zap.Duration("duration", elapsed),
	)
	return Result{
		Name:     d.Name,
		Kind:     d.Kind,
		File:     file,
		Header:   h,
		Duration: elapsed,
	}, nil
}

// uniform fills dataset i chunk by chunk on the executor. Each chunk draws
// from its own stream, so seeded output does not depend on the worker count.
func uniform[T uint32 | uint64](
	ctx context.Context,
	r *Runner,
	i int,
	d DatasetConfig,
	path string,
) (dataset.Header, error) {
	vs := make([]T, d.Count)
	err := r.executor.Execute(ctx, len(vs), uniformChunk, func(_ context.Context, chunk, start, end int) error {
		benchdata.FillRandom(r.sources(uniformStream(i, chunk)), vs[start:end])
		return nil
	})
	if err != nil {
		return dataset.Header{}, err
	}
	return storeValues(ctx, r, d.Name, path, vs, nil)
}

// uniformStream keeps chunk streams apart from the per-dataset streams,
// which are below 1<<32.
func uniformStream(idx, chunk int) uint64 {
	return uint64(idx+1)<<32 | uint64(chunk)
}

func mixIn[T uint32 | uint64](
	ctx context.Context,
	r *Runner,
	src entropy.Source,
	d DatasetConfig,
	path string,
) (dataset.Header, error) {
	x, ok := r.Values(d.Base).([]T)
	if !ok {
		return dataset.Header{}, moerr.NewInvalidState(ctx, "dataset %q: base %q not generated", d.Name, d.Base)
	}
	y, ok := r.Values(d.Donor).([]T)
	if !ok {
		return dataset.Header{}, moerr.NewInvalidState(ctx, "dataset %q: donor %q not generated", d.Name, d.Donor)
	}
	vs, dec, err := benchdata.MixIn(ctx, r.alloc, src, x, y, d.Probability)
	if err != nil {
		return dataset.Header{}, err
	}
	return storeValues(ctx, r, d.Name, path, vs, dec)
}

// storeValues keeps vs for later stages and writes it to path. The runner
// owns dec from here on.
func storeValues[T uint32 | uint64](
	ctx context.Context,
	r *Runner,
	name, path string,
	vs []T,
	dec malloc.Deallocator,
) (dataset.Header, error) {
	r.mu.Lock()
	r.mu.values[name] = vs
	if dec != nil {
		r.mu.deallocs = append(r.mu.deallocs, dec)
	}
	r.mu.Unlock()
	return dataset.WriteFile(ctx, path, vs, r.cfg.Generator.Compress)
}

func (r *Runner) writeManifest(ctx context.Context, start time.Time, results []Result) error {
	g := r.cfg.Generator
	m := &dataset.Manifest{
		RunID:    r.runID.String(),
		Created:  start.UTC(),
		Entropy:  g.Entropy,
		Datasets: make([]dataset.Entry, 0, len(results)),
	}
	if g.Entropy == string(entropy.KindSeeded) {
		m.Seed = g.Seed
	}
	for _, res := range results {
		m.Datasets = append(m.Datasets, dataset.NewEntry(res.Name, string(res.Kind), res.File, res.Header))
	}
	return dataset.WriteManifest(ctx, g.OutputDir, m)
}

func (r *Runner) setError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mu.err == nil {
		r.mu.err = err
	}
}

func (r *Runner) firstError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mu.err
}

// Close releases mixed datasets, the tracker and the worker pool. Values
// returned for mixed datasets must not be used afterwards.
func (r *Runner) Close() {
	r.mu.Lock()
	for _, dec := range r.mu.deallocs {
		dec.Deallocate(0)
	}
	r.mu.deallocs = nil
	r.mu.values = make(map[string]any)
	r.mu.Unlock()

	if r.tracker != nil {
		if err := r.tracker.Close(); err != nil {
			r.logger.Warn("close tracker failed", zap.Error(err))
		}
		r.tracker = nil
	}
	if r.pool != nil {
		if err := r.pool.ReleaseTimeout(releaseTimeout); err != nil {
			r.logger.Warn("release worker pool failed", zap.Error(err))
		}
		r.pool = nil
	}
}
