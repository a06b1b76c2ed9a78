package stream

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astei/schem2mesh/internal/schemtest"
	"github.com/astei/schem2mesh/mesh"
	"github.com/astei/schem2mesh/nbt"
	"github.com/astei/schem2mesh/schematic"
)

var cubes = []schematic.BlockState{
	schematic.Air(),
	{Name: "minecraft:stone"},
	{Name: "minecraft:dirt"},
	{Name: "minecraft:glass"},
}

type unitFace struct {
	x, y, z int
	f       mesh.Face
}

// faces expands cube quads into unit faces keyed by position, so runs that split quads
// differently can be compared.
func faces(t *testing.T, quads []mesh.Quad) map[unitFace]schematic.PaletteIndex {
	t.Helper()
	out := make(map[unitFace]schematic.PaletteIndex)
	for _, q := range quads {
		a := q.Face.Axis()
		u, v := (a+1)%3, (a+2)%3
		lo, hi := q.V[0], q.V[0]
		for _, p := range q.V[1:] {
			for i := range 3 {
				lo[i], hi[i] = min(lo[i], p[i]), max(hi[i], p[i])
			}
		}
		var c [3]int
		c[a] = int(lo[a])
		if q.Face.Positive() {
			c[a]--
		}
		for cu := int(lo[u]); cu < int(hi[u]); cu++ {
			for cv := int(lo[v]); cv < int(hi[v]); cv++ {
				c[u], c[v] = cu, cv
				k := unitFace{c[0], c[1], c[2], q.Face}
				_, dup := out[k]
				require.Falsef(t, dup, "face %+v emitted twice", k)
				out[k] = q.Material
			}
		}
	}
	return out
}

// cellY is the layer a quad was generated for.
func cellY(q mesh.Quad) int {
	y := min(q.V[0][1], q.V[1][1], q.V[2][1], q.V[3][1])
	if q.Face == mesh.Up {
		y--
	}
	return int(y)
}

func open(t *testing.T, root *nbt.Compound) *schematic.Source {
	t.Helper()
	src, err := schematic.Open(root)
	require.NoError(t, err)
	return src
}

func legacyRoot(rng *rand.Rand, dims schematic.Dimensions) *nbt.Compound {
	choices := []int{0, 1, 3, 20}
	ids := make([]int, dims.Volume())
	for i := range ids {
		ids[i] = choices[rng.IntN(len(choices))]
	}
	return schemtest.Legacy(dims, ids, make([]uint8, len(ids)))
}

func TestChunkedMatchesFull(t *testing.T) {
	dims := schematic.Dimensions{Width: 5, Height: 23, Length: 4}
	rng := rand.New(rand.NewPCG(5, 8))
	v := schemtest.Random(rng, dims, cubes)
	roots := map[string]func() *nbt.Compound{
		"sponge v2":  func() *nbt.Compound { return schemtest.Sponge(v, 2) },
		"sponge v3":  func() *nbt.Compound { return schemtest.Sponge(v, 3) },
		"litematica": func() *nbt.Compound { return schemtest.LitematicaVolume(v) },
		"legacy": func() *nbt.Compound {
			return legacyRoot(rand.New(rand.NewPCG(9, 9)), dims)
		},
	}
	for name, root := range roots {
		t.Run(name, func(t *testing.T) {
			var full mesh.CollectSink
			stats, err := New(Config{}).Run(context.Background(), open(t, root()), &full)
			require.NoError(t, err)
			assert.Equal(t, ModeFull, stats.Mode)
			assert.Equal(t, 1, stats.Chunks)

			for _, workers := range []int{1, 3} {
				var chunked mesh.CollectSink
				cfg := Config{ThresholdCells: 1, ChunkLayers: 4, Workers: workers}
				stats, err := New(cfg).Run(context.Background(), open(t, root()), &chunked)
				require.NoError(t, err)
				assert.Equal(t, ModeChunked, stats.Mode)
				assert.Equal(t, 6, stats.Chunks)
				assert.Equal(t, uint64(len(chunked.Batches)), stats.Batches)

				if diff := cmp.Diff(faces(t, full.Quads()), faces(t, chunked.Quads())); diff != "" {
					t.Fatalf("chunked output differs (-full +chunked):\n%s", diff)
				}
			}
		})
	}
}

func TestChunkedEmitsInLayerOrder(t *testing.T) {
	dims := schematic.Dimensions{Width: 3, Height: 40, Length: 3}
	v := schemtest.Random(rand.New(rand.NewPCG(2, 3)), dims, cubes)
	var sink mesh.CollectSink
	cfg := Config{ThresholdCells: 1, ChunkLayers: 3, Workers: 4}
	_, err := New(cfg).Run(context.Background(), open(t, schemtest.LitematicaVolume(v)), &sink)
	require.NoError(t, err)

	last := 0
	for _, b := range sink.Batches {
		chunk := -1
		for _, q := range b.Quads {
			c := cellY(q) / cfg.ChunkLayers
			if chunk < 0 {
				chunk = c
			}
			require.Equal(t, chunk, c, "batch mixes chunks")
		}
		require.GreaterOrEqual(t, chunk, last)
		last = chunk
	}
}

// recordingSource wraps a grid and records the layers read from it.
type recordingSource struct {
	grid   *schematic.Grid
	random bool
	fail   int

	mu    sync.Mutex
	reads []int
}

func (s *recordingSource) Dimensions() schematic.Dimensions { return s.grid.Dimensions() }
func (s *recordingSource) Palette() *schematic.Palette      { return s.grid.Palette() }
func (s *recordingSource) RandomAccess() bool               { return s.random }

func (s *recordingSource) ReadLayer(y int, dst []schematic.PaletteIndex) error {
	s.mu.Lock()
	s.reads = append(s.reads, y)
	s.mu.Unlock()
	if s.fail > 0 && y == s.fail {
		return schematic.ErrTruncatedStream
	}
	copy(dst, s.grid.Layer(y))
	return nil
}

func solidGrid(t *testing.T, dims schematic.Dimensions) *schematic.Grid {
	t.Helper()
	p := schematic.NewPalette()
	stone := p.Intern(schematic.BlockState{Name: "minecraft:stone"})
	cells := make([]schematic.PaletteIndex, dims.Volume())
	for i := range cells {
		cells[i] = stone
	}
	g, err := schematic.NewGrid(dims, p, cells)
	require.NoError(t, err)
	return g
}

func TestSequentialSourceIsReadOnceInOrder(t *testing.T) {
	dims := schematic.Dimensions{Width: 4, Height: 64, Length: 4}
	src := &recordingSource{grid: solidGrid(t, dims)}
	cfg := Config{ThresholdCells: 1, ChunkLayers: 2, Workers: 2}
	var sink mesh.CollectSink
	stats, err := New(cfg).Run(context.Background(), src, &sink)
	require.NoError(t, err)

	want := make([]int, dims.Height)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, src.reads)
	assert.LessOrEqual(t, stats.PeakLayers, (cfg.Workers+2)*(cfg.ChunkLayers+2))
	assert.Len(t, faces(t, sink.Quads()), 2*(4*64*2+4*4))
}

func TestRandomAccessPeakLayers(t *testing.T) {
	dims := schematic.Dimensions{Width: 4, Height: 64, Length: 4}
	src := &recordingSource{grid: solidGrid(t, dims), random: true}
	cfg := Config{ThresholdCells: 1, ChunkLayers: 4, Workers: 3}
	stats, err := New(cfg).Run(context.Background(), src, &mesh.CollectSink{})
	require.NoError(t, err)
	assert.LessOrEqual(t, stats.PeakLayers, cfg.Workers*(cfg.ChunkLayers+2))

	full, err := New(Config{}).Run(context.Background(), &recordingSource{grid: solidGrid(t, dims)}, &mesh.CollectSink{})
	require.NoError(t, err)
	assert.Equal(t, dims.Height, full.PeakLayers)

	seen := slices.Clone(src.reads)
	slices.Sort(seen)
	assert.Equal(t, 0, seen[0])
	assert.Equal(t, dims.Height-1, seen[len(seen)-1])
}

func TestRunStopsOnErrors(t *testing.T) {
	dims := schematic.Dimensions{Width: 4, Height: 32, Length: 4}
	cfg := Config{ThresholdCells: 1, ChunkLayers: 4, Workers: 2}

	t.Run("source", func(t *testing.T) {
		for _, random := range []bool{false, true} {
			src := &recordingSource{grid: solidGrid(t, dims), random: random, fail: 17}
			_, err := New(cfg).Run(context.Background(), src, &mesh.CollectSink{})
			assert.ErrorIs(t, err, schematic.ErrTruncatedStream)
		}
	})

	t.Run("sink", func(t *testing.T) {
		boom := errors.New("disk full")
		calls := 0
		sink := mesh.SinkFunc(func(mesh.MeshBatch) error {
			calls++
			if calls == 3 {
				return boom
			}
			return nil
		})
		_, err := New(cfg).Run(context.Background(), &recordingSource{grid: solidGrid(t, dims)}, sink)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 3, calls)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		for _, c := range []Config{cfg, {}} {
			_, err := New(c).Run(ctx, &recordingSource{grid: solidGrid(t, dims), random: true}, &mesh.CollectSink{})
			assert.ErrorIs(t, err, context.Canceled)
		}
	})

	t.Run("truncated sponge", func(t *testing.T) {
		v := schemtest.Random(rand.New(rand.NewPCG(1, 1)), dims, cubes)
		root := schemtest.Sponge(v, 2)
		data, _ := root.ByteArray("BlockData")
		root.Set("BlockData", data[:len(data)/2])
		_, err := New(cfg).Run(context.Background(), open(t, root), &mesh.CollectSink{})
		assert.ErrorIs(t, err, schematic.ErrTruncatedStream)
	})
}

type countingObserver struct {
	mu      sync.Mutex
	layers  int
	quads   int
	batches int
}

func (o *countingObserver) ChunkMeshed(layers, quads int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.layers += layers
	o.quads += quads
}

func (o *countingObserver) BatchEmitted(mesh.MeshBatch) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.batches++
}

func TestObserverSeesEveryChunk(t *testing.T) {
	dims := schematic.Dimensions{Width: 2, Height: 10, Length: 2}
	obs := &countingObserver{}
	var sink mesh.CollectSink
	c := New(Config{ThresholdCells: 1, ChunkLayers: 3, Workers: 2}, WithObserver(obs), WithMeshOptions(mesh.WithGreedy(false)))
	stats, err := c.Run(context.Background(), &recordingSource{grid: solidGrid(t, dims)}, &sink)
	require.NoError(t, err)
	assert.Equal(t, dims.Height, obs.layers)
	assert.Equal(t, len(sink.Quads()), obs.quads)
	assert.Equal(t, len(sink.Batches), obs.batches)
	assert.EqualValues(t, obs.quads, stats.Quads)
	assert.EqualValues(t, 2*(2*10*2+2*2), stats.Quads)
}

func TestConfigDefaults(t *testing.T) {
	cfg := New(Config{}).Config()
	assert.Equal(t, DefaultThresholdCells, cfg.ThresholdCells)
	assert.Equal(t, DefaultChunkLayers, cfg.ChunkLayers)
	assert.Positive(t, cfg.Workers)
}

func TestWindowBounds(t *testing.T) {
	dims := schematic.Dimensions{Width: 2, Height: 10, Length: 2}
	src := &recordingSource{grid: solidGrid(t, dims), random: true}
	w, err := readWindow(src, 4, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, w.base)
	assert.Len(t, w.layers, 5)

	_, ok := w.IndexAt(0, 2, 0)
	assert.False(t, ok)
	_, ok = w.IndexAt(0, 8, 0)
	assert.False(t, ok)
	_, ok = w.IndexAt(1, 7, 1)
	assert.True(t, ok)
	_, ok = w.IndexAt(2, 5, 0)
	assert.False(t, ok)

	first, err := readWindow(src, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, first.base)
	assert.Len(t, first.layers, 10)
}
