// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pbr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/gogpu/pbr/internal/parallel"
)

// Generator is one map generation session. It fans a base image out to
// the converters of a workflow, joins their completions and publishes the
// finished map set to its MapSetCache exactly once per run.
//
// Generator is safe for concurrent use.
type Generator struct {
	exec       *Executor
	converters *ConverterSet
	pool       *parallel.WorkerPool
	cache      *MapSetCache
	log        *slog.Logger
	ownedAccel Accelerator
	runs       atomic.Uint64

	mu       sync.Mutex
	workflow Workflow
	base     *Raster
	subs     []func(Workflow, MapSet)
	closed   bool
}

// NewGenerator creates a generation session.
//
// An accelerator passed with WithAccelerator is initialized here; if Init
// fails the session runs on the CPU path only.
func NewGenerator(opts ...Option) *Generator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	g := &Generator{
		pool:  parallel.NewWorkerPool(o.workers),
		cache: NewMapSetCache(),
		log:   o.logger,
	}

	capability, accel := o.capability, o.accel
	if capability == nil && accel == nil {
		capability = defaultCapability.Derive()
	}
	if accel != nil {
		if err := accel.Init(); err != nil {
			g.logger().Warn("pbr: accelerator init failed, using CPU", "name", accel.Name(), "err", err)
			accel = nil
			capability = NewCapability(nil)
		} else {
			if o.logger != nil {
				propagateLogger(accel, o.logger)
			}
			g.ownedAccel = accel
			if capability == nil {
				capability = NewCapability(func() bool { return true })
			}
		}
	}
	g.exec = NewExecutor(capability, accel)
	g.converters = NewConverterSet(g.exec, o.settings)
	return g
}

func (g *Generator) logger() *slog.Logger {
	if g.log != nil {
		return g.log
	}
	return Logger()
}

// Executor returns the executor the session's converters run on.
func (g *Generator) Executor() *Executor { return g.exec }

// Converters returns the session's converters.
func (g *Generator) Converters() *ConverterSet { return g.converters }

// Cache returns the session's map set cache.
func (g *Generator) Cache() *MapSetCache { return g.cache }

// SetAcceleration enables or disables the accelerated path for this
// session only. By default a session derives its detector from the
// process-wide one, so SetAcceleration(false) at package level still turns
// every session off. A detector passed with WithCapability is shared with
// whoever else holds it.
func (g *Generator) SetAcceleration(enable bool) {
	g.exec.Capability().SetAcceleration(enable)
}

// OnMapSetReady registers fn to be called after every publish: once per
// completed run, and when SwitchWorkflow presents a set entirely from the
// cache. Callbacks run on the goroutine that completed the run.
func (g *Generator) OnMapSetReady(fn func(Workflow, MapSet)) {
	if fn == nil {
		return
	}
	g.mu.Lock()
	g.subs = append(g.subs, fn)
	g.mu.Unlock()
}

// Workflow returns the workflow currently presented.
func (g *Generator) Workflow() Workflow {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.workflow
}

// Cached returns the most recent map of the given kind.
func (g *Generator) Cached(kind MapKind) (*Raster, bool) {
	return g.cache.Get(kind)
}

// SetBase records the base image used when SwitchWorkflow needs to
// generate missing maps, without generating anything.
func (g *Generator) SetBase(base *Raster) error {
	if err := base.Validate(); err != nil {
		return err
	}
	g.mu.Lock()
	g.base = base
	g.mu.Unlock()
	return nil
}

// GenerateAll starts one run that derives every map the workflow requires
// from base. It returns immediately; the run publishes when its last unit
// completes, whether units succeed or fail. Base is treated as a new image:
// the publish drops every cached map the run did not produce, including
// maps of failed units.
func (g *Generator) GenerateAll(ctx context.Context, base *Raster, workflow Workflow) (*Run, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, ErrGeneratorClosed
	}
	g.base = base
	g.workflow = workflow
	g.mu.Unlock()

	return g.start(ctx, base, workflow, workflow.Required(), nil, true), nil
}

// SwitchWorkflow changes the presented workflow and returns the maps of it
// that are already cached. Nothing is regenerated when every required map
// is cached; the cached set is re-published instead. Otherwise a run for
// exactly the missing kinds is started from the last base image and
// returned. The run is nil when nothing needs generating or no base is known.
func (g *Generator) SwitchWorkflow(ctx context.Context, workflow Workflow) (MapSet, *Run) {
	g.mu.Lock()
	g.workflow = workflow
	base, closed := g.base, g.closed
	g.mu.Unlock()

	present, missing := g.cache.Select(workflow.Required())
	set := MapSet{Workflow: workflow, Maps: present, Failures: map[MapKind]error{}}
	if len(missing) == 0 {
		g.logger().Debug("pbr: workflow presented from cache", "workflow", workflow)
		g.notify(workflow, set)
		return set, nil
	}
	if base == nil || closed {
		return set, nil
	}
	g.logger().Debug("pbr: workflow missing maps", "workflow", workflow, "missing", missing)
	return set, g.start(ctx, base, workflow, missing, present, false)
}

// Convert derives a single map from base, waiting for the result, and
// stores it in the cache. It is the way to produce kinds no workflow
// requires, such as Diffuse.
func (g *Generator) Convert(ctx context.Context, kind MapKind, base *Raster) (*Raster, error) {
	conv := g.converters.Get(kind)
	if conv == nil {
		return nil, fmt.Errorf("pbr: unknown map kind %d", uint8(kind))
	}
	r := await(ctx, conv.ConvertAccelerated(ctx, base))
	if r.Err != nil {
		return nil, wrapKind(kind, r.Err)
	}
	g.cache.Publish(map[MapKind]*Raster{kind: r.Raster})
	return r.Raster, nil
}

// ExportAll writes every cached map to dir as "<baseName>_<Label>.png"
// and returns the written paths in map kind order.
func (g *Generator) ExportAll(dir, baseName string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	snap := g.cache.Snapshot()
	var paths []string
	for _, k := range AllMapKinds() {
		r, ok := snap[k]
		if !ok {
			continue
		}
		path := filepath.Join(dir, ExportName(baseName, k))
		if err := r.SavePNG(path); err != nil {
			return paths, fmt.Errorf("pbr: export %s: %w", k, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ExportName returns the file name of an exported map.
func ExportName(baseName string, kind MapKind) string {
	return baseName + "_" + kind.FileSuffix() + ".png"
}

// Close stops the session. Units already queued still complete and
// publish. An accelerator passed with WithAccelerator is closed.
func (g *Generator) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.mu.Unlock()

	g.pool.Close()
	if g.ownedAccel != nil {
		g.ownedAccel.Close()
	}
}

// start launches one unit per kind. Normal and Glossiness are single
// units that await their dependency internally. A replacing run belongs to
// a new base image: on publish every cached map it did not produce is
// dropped.
func (g *Generator) start(ctx context.Context, base *Raster, workflow Workflow, kinds []MapKind,
	carried map[MapKind]*Raster, replace bool,
) *Run {
	run := newRun(g.runs.Add(1), workflow, kinds, carried)
	run.replace = replace
	g.logger().Info("pbr: generate", "run", run.id, "workflow", workflow, "units", len(kinds),
		"accelerated", g.exec.Capability().Enabled())

	if len(kinds) == 0 {
		g.publish(run)
		return run
	}
	for _, kind := range kinds {
		conv := g.converters.Get(kind)
		ok := g.pool.Submit(func() {
			g.finish(run, kind, await(ctx, conv.ConvertAccelerated(ctx, base)))
		})
		if !ok {
			g.finish(run, kind, Result{Err: wrapKind(kind, ErrGeneratorClosed)})
		}
	}
	return run
}

// finish records one unit and publishes if it was the last.
func (g *Generator) finish(run *Run, kind MapKind, r Result) {
	if r.Err == nil && r.Raster == nil {
		r.Err = wrapKind(kind, fmt.Errorf("%w: empty result", ErrReadbackFailed))
	}
	if r.Err != nil {
		g.logger().Warn("pbr: map failed", "run", run.id, "kind", kind, "err", r.Err)
	}
	run.record(kind, r)
	if run.join.Complete() {
		g.publish(run)
	}
}

func (g *Generator) publish(run *Run) {
	produced, set := run.seal()
	var stale []MapKind
	if run.replace {
		for _, k := range AllMapKinds() {
			if _, ok := produced[k]; !ok {
				stale = append(stale, k)
			}
		}
	}
	g.cache.Publish(produced, stale...)
	g.logger().Info("pbr: map set published", "run", run.id, "workflow", run.workflow,
		"maps", len(set.Maps), "failed", len(set.Failures))
	g.notify(run.workflow, set)
	close(run.done)
}

func (g *Generator) notify(workflow Workflow, set MapSet) {
	g.mu.Lock()
	subs := slices.Clone(g.subs)
	g.mu.Unlock()
	for _, fn := range subs {
		fn(workflow, set)
	}
}

// Run is one in-flight or completed generation run.
type Run struct {
	id       uint64
	workflow Workflow
	kinds    []MapKind
	join     *JoinState
	done     chan struct{}
	replace  bool

	mu       sync.Mutex
	carried  map[MapKind]*Raster
	maps     map[MapKind]*Raster
	failures map[MapKind]error
	set      MapSet
}

func newRun(id uint64, workflow Workflow, kinds []MapKind, carried map[MapKind]*Raster) *Run {
	return &Run{
		id:       id,
		workflow: workflow,
		kinds:    append([]MapKind(nil), kinds...),
		join:     NewJoinState(len(kinds)),
		done:     make(chan struct{}),
		carried:  carried,
		maps:     make(map[MapKind]*Raster, len(kinds)),
		failures: make(map[MapKind]error),
	}
}

func (r *Run) record(kind MapKind, res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res.Err != nil {
		r.failures[kind] = res.Err
		return
	}
	r.maps[kind] = res.Raster
}

// seal freezes the run and returns the maps it produced and the set it
// presents, which also holds the cached maps it was started with.
func (r *Run) seal() (map[MapKind]*Raster, MapSet) {
	r.mu.Lock()
	defer r.mu.Unlock()

	produced := make(map[MapKind]*Raster, len(r.maps))
	presented := make(map[MapKind]*Raster, len(r.maps)+len(r.carried))
	for k, m := range r.carried {
		presented[k] = m
	}
	for k, m := range r.maps {
		produced[k] = m
		presented[k] = m
	}
	failures := make(map[MapKind]error, len(r.failures))
	for k, err := range r.failures {
		failures[k] = err
	}
	r.set = MapSet{Workflow: r.workflow, Maps: presented, Failures: failures}
	return produced, r.set
}

// ID returns the run's sequence number within its Generator, starting at 1.
func (r *Run) ID() uint64 { return r.id }

// Workflow returns the workflow the run generates for.
func (r *Run) Workflow() Workflow { return r.workflow }

// Kinds returns the kinds the run launched units for.
func (r *Run) Kinds() []MapKind { return append([]MapKind(nil), r.kinds...) }

// Done is closed after the run has published.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run has published and returns its map set.
func (r *Run) Wait(ctx context.Context) (MapSet, error) {
	select {
	case <-r.done:
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.set, nil
	case <-ctx.Done():
		return MapSet{}, ctx.Err()
	}
}
