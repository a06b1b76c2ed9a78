// Package stream meshes schematics that are too large to hold in memory at once.
package stream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/astei/schem2mesh/mesh"
	"github.com/astei/schem2mesh/schematic"
)

const (
	DefaultThresholdCells = 1 << 24
	DefaultChunkLayers    = 16
)

// Config controls when and how a volume is split. Zero values select the defaults.
type Config struct {
	// Volumes with more cells than this are meshed in chunks.
	ThresholdCells int
	// Layers per chunk.
	ChunkLayers int
	// Chunks meshed concurrently.
	Workers int
}

func (c Config) withDefaults() Config {
	if c.ThresholdCells <= 0 {
		c.ThresholdCells = DefaultThresholdCells
	}
	if c.ChunkLayers <= 0 {
		c.ChunkLayers = DefaultChunkLayers
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	return c
}

// Observer is told about progress. Calls may come from several goroutines.
type Observer interface {
	ChunkMeshed(layers, quads int, elapsed time.Duration)
	BatchEmitted(mesh.MeshBatch)
}

type nopObserver struct{}

func (nopObserver) ChunkMeshed(int, int, time.Duration) {}
func (nopObserver) BatchEmitted(mesh.MeshBatch)         {}

type Option func(*Controller)

func WithProvider(p mesh.GeometryProvider) Option {
	return func(c *Controller) { c.provider = p }
}

func WithMeshOptions(opts ...mesh.Option) Option {
	return func(c *Controller) { c.meshOpts = append(c.meshOpts, opts...) }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// Mode is how a run processed its volume.
type Mode string

const (
	ModeFull    Mode = "full"
	ModeChunked Mode = "chunked"
)

type Stats struct {
	Mode      Mode
	Chunks    int
	Batches   uint64
	Quads     uint64
	UnitFaces uint64
	Fallbacks uint64
	// PeakLayers is the largest number of layers held in memory at once.
	PeakLayers int
}

// Controller runs the decode and mesh pipeline for one source at a time.
type Controller struct {
	cfg      Config
	provider mesh.GeometryProvider
	meshOpts []mesh.Option
	logger   *slog.Logger
	observer Observer
}

func New(cfg Config, opts ...Option) *Controller {
	c := &Controller{
		cfg:      cfg.withDefaults(),
		provider: mesh.DefaultProvider{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Config() Config { return c.cfg }

// Run reads src and hands its mesh to sink. Volumes up to the threshold are loaded whole and meshed
// in one pass. Larger ones are processed in chunks of layers by concurrent workers; batches still
// reach the sink in chunk order. Random-access sources are read by the workers themselves,
// sequential ones by a single reader that never holds more than a few chunks. Greedy merging does
// not cross chunk boundaries.
func (c *Controller) Run(ctx context.Context, src schematic.LayerSource, sink mesh.Sink) (Stats, error) {
	dims := src.Dimensions()
	engine := mesh.NewEngine(src.Palette(), c.provider, append([]mesh.Option{mesh.WithLogger(c.logger)}, c.meshOpts...)...)
	r := &run{Controller: c, src: src, sink: sink, engine: engine}

	var err error
	if dims.Volume() <= c.cfg.ThresholdCells {
		r.stats.Mode = ModeFull
		err = r.full(ctx)
	} else {
		r.stats.Mode = ModeChunked
		err = r.chunked(ctx)
	}

	es := engine.Stats()
	r.stats.Quads, r.stats.UnitFaces, r.stats.Fallbacks = es.Quads, es.UnitFaces, es.Fallbacks
	r.stats.PeakLayers = int(r.peak.Load())
	if err != nil {
		return r.stats, err
	}
	c.logger.Debug("mesh finished", "mode", r.stats.Mode, "chunks", r.stats.Chunks, "quads", r.stats.Quads)
	return r.stats, nil
}

type run struct {
	*Controller
	src    schematic.LayerSource
	sink   mesh.Sink
	engine *mesh.Engine
	stats  Stats

	resident atomic.Int64
	peak     atomic.Int64
}

func (r *run) hold(layers int) {
	n := r.resident.Add(int64(layers))
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

func (r *run) release(layers int) { r.resident.Add(-int64(layers)) }

func (r *run) emit(batches []mesh.MeshBatch) error {
	for _, b := range batches {
		if err := r.sink.Accept(b); err != nil {
			return fmt.Errorf("sink: %w", err)
		}
		r.stats.Batches++
		r.observer.BatchEmitted(b)
	}
	return nil
}

func (r *run) full(ctx context.Context) error {
	dims := r.src.Dimensions()
	area := dims.LayerArea()
	cells := make([]schematic.PaletteIndex, dims.Volume())
	for y := range dims.Height {
		if err := r.src.ReadLayer(y, cells[y*area:(y+1)*area]); err != nil {
			return fmt.Errorf("read layer %d: %w", y, err)
		}
	}
	r.hold(dims.Height)
	defer r.release(dims.Height)

	grid, err := schematic.NewGrid(dims, r.src.Palette(), cells)
	if err != nil {
		return err
	}
	start := time.Now()
	batches, err := r.engine.Mesh(ctx, grid, 0, dims.Height)
	if err != nil {
		return err
	}
	r.stats.Chunks = 1
	r.observer.ChunkMeshed(dims.Height, countQuads(batches), time.Since(start))
	return r.emit(batches)
}

type job struct {
	y0, y1 int
	win    *window
	done   chan result
}

type result struct {
	batches []mesh.MeshBatch
}

func (r *run) chunked(ctx context.Context) error {
	dims := r.src.Dimensions()
	n := r.cfg.ChunkLayers
	jobs := make(chan job)
	pending := make(chan chan result, r.cfg.Workers)
	g, ctx := errgroup.WithContext(ctx)

	// producer: schedules chunks in order, reading them first if the source is sequential
	g.Go(func() error {
		defer close(jobs)
		defer close(pending)
		seq := &sequentialReader{src: r.src}
		for y0 := 0; y0 < dims.Height; y0 += n {
			if err := ctx.Err(); err != nil {
				return err
			}
			j := job{y0: y0, y1: min(y0+n, dims.Height), done: make(chan result, 1)}
			if !r.src.RandomAccess() {
				w, err := seq.window(j.y0, j.y1)
				if err != nil {
					return fmt.Errorf("read layers %d-%d: %w", j.y0, j.y1, err)
				}
				j.win = w
				r.hold(len(w.layers))
			}
			select {
			case pending <- j.done:
			case <-ctx.Done():
				return ctx.Err()
			}
			select {
			case jobs <- j:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for range r.cfg.Workers {
		g.Go(func() error {
			for j := range jobs {
				res, err := r.mesh(ctx, j)
				if err != nil {
					return err
				}
				j.done <- res
			}
			return nil
		})
	}

	// emitter: hands results to the sink in chunk order
	g.Go(func() error {
		for done := range pending {
			var res result
			select {
			case res = <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
			if err := r.emit(res.batches); err != nil {
				return err
			}
			r.stats.Chunks++
			r.logger.Debug("chunk emitted", "chunk", r.stats.Chunks, "batches", len(res.batches))
		}
		return nil
	})

	return g.Wait()
}

func (r *run) mesh(ctx context.Context, j job) (result, error) {
	w := j.win
	if w == nil {
		var err error
		if w, err = readWindow(r.src, j.y0, j.y1); err != nil {
			return result{}, fmt.Errorf("read layers %d-%d: %w", j.y0, j.y1, err)
		}
		r.hold(len(w.layers))
	}
	defer r.release(len(w.layers))

	start := time.Now()
	batches, err := r.engine.Mesh(ctx, w, j.y0, j.y1)
	if err != nil {
		return result{}, err
	}
	r.observer.ChunkMeshed(j.y1-j.y0, countQuads(batches), time.Since(start))
	return result{batches: batches}, nil
}

func countQuads(bs []mesh.MeshBatch) int {
	n := 0
	for _, b := range bs {
		n += len(b.Quads)
	}
	return n
}
