package mesh

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/astei/schem2mesh/schematic"
)

// Volume is the read side of a block grid. IndexAt reports false outside the volume.
type Volume interface {
	Dimensions() schematic.Dimensions
	IndexAt(x, y, z int) (schematic.PaletteIndex, bool)
}

type Option func(*Engine)

// WithGreedy toggles face merging. Without it every visible cube face is its own quad.
func WithGreedy(on bool) Option {
	return func(e *Engine) { e.greedy = on }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithChunkLayers makes Batches mesh n layers per step instead of the whole volume at once. Faces are
// not merged across steps.
func WithChunkLayers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.chunkLayers = n
		}
	}
}

// Stats are running totals over every Mesh call of an engine.
type Stats struct {
	Quads     uint64
	UnitFaces uint64 // visible full-cube faces before merging
	Batches   uint64
	Fallbacks uint64 // palette entries drawn as cubes because the provider failed
}

// Engine turns block volumes into quads. Geometry is resolved once per palette entry when the
// engine is built, so an engine belongs to one palette. Mesh may be called concurrently.
type Engine struct {
	geoms       []Geometry
	greedy      bool
	chunkLayers int
	logger      *slog.Logger

	fallbacks uint64
	quads     atomic.Uint64
	faces     atomic.Uint64
	batches   atomic.Uint64
}

func NewEngine(palette *schematic.Palette, provider GeometryProvider, opts ...Option) *Engine {
	e := &Engine{
		greedy: true,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	if provider == nil {
		provider = DefaultProvider{}
	}

	states := palette.States()
	e.geoms = make([]Geometry, len(states))
	for i, st := range states {
		g, err := provider.Resolve(st)
		if err != nil {
			e.fallbacks++
			e.logger.Debug("geometry fallback", "state", st.String(), "err", err)
			g = Cube
		}
		e.geoms[i] = g
	}
	if e.fallbacks > 0 {
		e.logger.Warn("block states drawn as plain cubes", "count", e.fallbacks)
	}
	return e
}

func (e *Engine) Stats() Stats {
	return Stats{
		Quads:     e.quads.Load(),
		UnitFaces: e.faces.Load(),
		Batches:   e.batches.Load(),
		Fallbacks: e.fallbacks,
	}
}

// Geometry returns what the engine draws for idx. Indices the palette did not have when the engine
// was built are drawn as cubes.
func (e *Engine) Geometry(idx schematic.PaletteIndex) Geometry {
	if int(idx) < len(e.geoms) {
		return e.geoms[idx]
	}
	return Cube
}

// Mesh emits the faces of every cell in layers [y0, y1). The volume must answer for layers y0-1 and
// y1 as well where they exist, since culling looks at them. The six cube directions and the
// partial shapes are meshed concurrently; the result is the same for every run.
func (e *Engine) Mesh(ctx context.Context, vol Volume, y0, y1 int) ([]MeshBatch, error) {
	dims := vol.Dimensions()
	y0, y1 = max(y0, 0), min(y1, dims.Height)
	if y0 >= y1 {
		return nil, nil
	}
	m := &mesher{
		vol:    vol,
		geom:   e.Geometry,
		greedy: e.greedy,
		lo:     [3]int{0, y0, 0},
		hi:     [3]int{dims.Width, y1, dims.Length},
	}

	sets := make([]quadSet, len(Faces)+1)
	g, ctx := errgroup.WithContext(ctx)
	for i, f := range Faces {
		sets[i] = make(quadSet)
		g.Go(func() error { return m.sweep(ctx, f, sets[i]) })
	}
	last := len(Faces)
	sets[last] = make(quadSet)
	g.Go(func() error { return m.shapes(ctx, sets[last]) })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("mesh layers %d-%d: %w", y0, y1, err)
	}

	out := batches(sets)
	var quads, faces uint64
	for _, b := range out {
		quads += uint64(len(b.Quads))
		for _, q := range b.Quads {
			if e.Geometry(q.Material).Kind == KindCube {
				faces += uint64(q.Area() + 0.5)
			}
		}
	}
	e.quads.Add(quads)
	e.faces.Add(faces)
	e.batches.Add(uint64(len(out)))
	e.logger.Debug("meshed layers", "from", y0, "to", y1, "batches", len(out), "quads", quads)
	return out, nil
}

// Batches yields the batches of vol as they are produced. By default the volume is meshed in one
// pass; with WithChunkLayers it is meshed a few layers at a time so the full output is never held at
// once. Iteration stops at the first error.
func (e *Engine) Batches(ctx context.Context, vol Volume) iter.Seq2[MeshBatch, error] {
	return func(yield func(MeshBatch, error) bool) {
		height := vol.Dimensions().Height
		n := e.chunkLayers
		if n <= 0 || n > height {
			n = max(height, 1)
		}
		for y := 0; y < height; y += n {
			out, err := e.Mesh(ctx, vol, y, y+n)
			if err != nil {
				yield(MeshBatch{}, err)
				return
			}
			for _, b := range out {
				if !yield(b, nil) {
					return
				}
			}
		}
	}
}

// Emit meshes vol and hands every batch to sink.
func (e *Engine) Emit(ctx context.Context, vol Volume, sink Sink) error {
	for b, err := range e.Batches(ctx, vol) {
		if err != nil {
			return err
		}
		if err := sink.Accept(b); err != nil {
			return err
		}
	}
	return nil
}

// mesher is the state of one Mesh call. It is shared read-only by the concurrent tasks.
type mesher struct {
	vol    Volume
	geom   func(schematic.PaletteIndex) Geometry
	greedy bool
	lo, hi [3]int
}

func (m *mesher) at(c [3]int) (schematic.PaletteIndex, Geometry) {
	idx, ok := m.vol.IndexAt(c[0], c[1], c[2])
	if !ok {
		return 0, Empty
	}
	return idx, m.geom(idx)
}

func step(c [3]int, f Face) [3]int {
	dx, dy, dz := f.Step()
	return [3]int{c[0] + dx, c[1] + dy, c[2] + dz}
}

func indexOf(mask uint32) schematic.PaletteIndex {
	return schematic.PaletteIndex(mask - 1)
}
