package mesh

import (
	"bytes"
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astei/schem2mesh/internal/schemtest"
	"github.com/astei/schem2mesh/schematic"
)

func block(name string, kv ...string) schematic.BlockState {
	props := make(map[string]string)
	for i := 0; i+1 < len(kv); i += 2 {
		props[kv[i]] = kv[i+1]
	}
	return schematic.NewBlockState("minecraft:"+name, props)
}

var (
	air   = schematic.Air()
	stone = block("stone")
	dirt  = block("dirt")
	glass = block("glass")
	leaf  = block("oak_leaves")
	water = block("water", "level", "0")
	lava  = block("lava", "level", "0")
)

// gridOf builds a grid from states given in scan order.
func gridOf(t *testing.T, dims schematic.Dimensions, states ...schematic.BlockState) *schematic.Grid {
	t.Helper()
	require.Len(t, states, dims.Volume())
	p := schematic.NewPalette()
	p.Intern(air)
	cells := make([]schematic.PaletteIndex, len(states))
	for i, st := range states {
		cells[i] = p.Intern(st)
	}
	g, err := schematic.NewGrid(dims, p, cells)
	require.NoError(t, err)
	return g
}

func fill(n int, st schematic.BlockState) []schematic.BlockState {
	out := make([]schematic.BlockState, n)
	for i := range out {
		out[i] = st
	}
	return out
}

func meshAll(t *testing.T, g *schematic.Grid, opts ...Option) (*Engine, []MeshBatch) {
	t.Helper()
	e := NewEngine(g.Palette(), DefaultProvider{}, opts...)
	out, err := e.Mesh(context.Background(), g, 0, g.Dimensions().Height)
	require.NoError(t, err)
	return e, out
}

func allQuads(bs []MeshBatch) []Quad {
	var out []Quad
	for _, b := range bs {
		out = append(out, b.Quads...)
	}
	return out
}

func TestSolidCubeYieldsSixQuads(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		dims := schematic.Dimensions{Width: n, Height: n, Length: n}
		e, out := meshAll(t, gridOf(t, dims, fill(dims.Volume(), stone)...))
		quads := allQuads(out)
		require.Len(t, quads, 6)
		for _, q := range quads {
			assert.InDelta(t, float64(n*n), float64(q.Area()), 1e-6)
		}
		assert.EqualValues(t, 6*n*n, e.Stats().UnitFaces)
	}
}

type unitFace struct {
	x, y, z int
	f       Face
}

// coveredFaces expands cube quads back into the unit faces they cover.
func coveredFaces(t *testing.T, quads []Quad) map[unitFace]schematic.PaletteIndex {
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

// visibleFaces enumerates every cube face cell by cell.
func visibleFaces(g *schematic.Grid, e *Engine) map[unitFace]schematic.PaletteIndex {
	out := make(map[unitFace]schematic.PaletteIndex)
	d := g.Dimensions()
	for y := range d.Height {
		for z := range d.Length {
			for x := range d.Width {
				idx, _ := g.IndexAt(x, y, z)
				if e.Geometry(idx).Kind != KindCube {
					continue
				}
				for _, f := range Faces {
					dx, dy, dz := f.Step()
					n, ok := g.IndexAt(x+dx, y+dy, z+dz)
					if ok {
						ng := e.Geometry(n)
						if ng.Kind == KindCube && (ng.Transparency == Opaque || n == idx) {
							continue
						}
					}
					out[unitFace{x, y, z, f}] = idx
				}
			}
		}
	}
	return out
}

func TestGreedyPartitionMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	palette := []schematic.BlockState{air, stone, dirt, glass, leaf}
	for round := range 25 {
		dims := schematic.Dimensions{Width: 1 + rng.IntN(7), Height: 1 + rng.IntN(7), Length: 1 + rng.IntN(7)}
		v := schemtest.Random(rng, dims, palette)
		states := make([]schematic.BlockState, len(v.Cells))
		for i, c := range v.Cells {
			states[i] = palette[c]
		}
		g := gridOf(t, dims, states...)
		for _, greedy := range []bool{true, false} {
			e, out := meshAll(t, g, WithGreedy(greedy))
			got := coveredFaces(t, allQuads(out))
			want := visibleFaces(g, e)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("round %d (%s, greedy=%v): faces differ (-want +got):\n%s", round, dims, greedy, diff)
			}
			assert.EqualValues(t, len(want), e.Stats().UnitFaces)
		}
	}
}

func TestMeshIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	palette := []schematic.BlockState{air, stone, glass, water, block("oak_slab", "type", "top")}
	dims := schematic.Dimensions{Width: 6, Height: 6, Length: 6}
	v := schemtest.Random(rng, dims, palette)
	states := make([]schematic.BlockState, len(v.Cells))
	for i, c := range v.Cells {
		states[i] = palette[c]
	}
	g := gridOf(t, dims, states...)
	_, first := meshAll(t, g)
	for range 5 {
		_, again := meshAll(t, g)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("mesh output changed between runs:\n%s", diff)
		}
	}
	for i := 1; i < len(first); i++ {
		prev, cur := first[i-1], first[i]
		assert.True(t, prev.Material < cur.Material ||
			(prev.Material == cur.Material && prev.Transparency < cur.Transparency))
	}
}

func TestQuadWinding(t *testing.T) {
	g := gridOf(t, schematic.Dimensions{Width: 3, Height: 2, Length: 1},
		stone, glass, block("oak_stairs", "facing", "east"),
		water, block("oak_fence"), block("water_cauldron", "level", "2"))
	_, out := meshAll(t, g)
	for _, q := range allQuads(out) {
		var e1, e2 [3]float32
		for i := range 3 {
			e1[i] = q.V[1][i] - q.V[0][i]
			e2[i] = q.V[2][i] - q.V[0][i]
		}
		n := [3]float32{e1[1]*e2[2] - e1[2]*e2[1], e1[2]*e2[0] - e1[0]*e2[2], e1[0]*e2[1] - e1[1]*e2[0]}
		want := q.Normal()
		for i := range 3 {
			if want[i] != 0 {
				assert.Equal(t, math.Signbit(float64(want[i])), math.Signbit(float64(n[i])), "quad %+v", q)
			} else {
				assert.InDelta(t, 0, n[i], 1e-6)
			}
		}
	}
}

func TestLegacyEndToEndMesh(t *testing.T) {
	dims := schematic.Dimensions{Width: 2, Height: 1, Length: 1}
	raw, err := schemtest.Encode(schemtest.Legacy(dims, []int{1, 35}, []uint8{0, 14}), true)
	require.NoError(t, err)
	s, err := schematic.Load(bytes.NewReader(raw))
	require.NoError(t, err)

	e, out := meshAll(t, s.Grid)
	quads := allQuads(out)
	assert.Len(t, quads, 10)
	assert.EqualValues(t, 10, e.Stats().UnitFaces)
	assert.Len(t, out, 2)

	for _, q := range quads {
		if q.Face == East || q.Face == West {
			x := q.V[0][0]
			assert.NotEqual(t, float32(1), x, "internal face emitted: %+v", q)
		}
	}
}

func TestDifferentMaterialsAreNotMerged(t *testing.T) {
	g := gridOf(t, schematic.Dimensions{Width: 2, Height: 1, Length: 1}, stone, dirt)
	_, out := meshAll(t, g)
	ups := 0
	for _, q := range allQuads(out) {
		if q.Face == Up {
			ups++
			assert.InDelta(t, 1, float64(q.Area()), 1e-6)
		}
	}
	assert.Equal(t, 2, ups)
}

func TestTransparentCulling(t *testing.T) {
	tests := []struct {
		name      string
		a, b      schematic.BlockState
		quads     int
		unitFaces int
	}{
		{"same glass", glass, glass, 6, 10},
		{"glass and leaves", glass, leaf, 12, 12},
		{"glass against stone", glass, stone, 11, 11},
		{"stone against glass", stone, glass, 11, 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := gridOf(t, schematic.Dimensions{Width: 2, Height: 1, Length: 1}, tt.a, tt.b)
			e, out := meshAll(t, g)
			assert.Len(t, allQuads(out), tt.quads)
			assert.EqualValues(t, tt.unitFaces, e.Stats().UnitFaces)
			for _, b := range out {
				st, _ := g.Palette().State(b.Material)
				assert.Equal(t, transparency(st.DisplayName()), b.Transparency)
			}
		})
	}
}

func facesOf(bs []MeshBatch, mat schematic.PaletteIndex) map[Face]int {
	out := make(map[Face]int)
	for _, b := range bs {
		if b.Material != mat {
			continue
		}
		for _, q := range b.Quads {
			out[q.Face]++
		}
	}
	return out
}

func TestPartialCulling(t *testing.T) {
	column := schematic.Dimensions{Width: 1, Height: 2, Length: 1}

	t.Run("bottom slab on stone", func(t *testing.T) {
		g := gridOf(t, column, stone, block("oak_slab", "type", "bottom"))
		_, out := meshAll(t, g)
		slab, _ := g.IndexAt(0, 1, 0)
		base, _ := g.IndexAt(0, 0, 0)
		assert.Zero(t, facesOf(out, slab)[Down])
		assert.Equal(t, 5, len(facesOf(out, slab)))
		assert.Zero(t, facesOf(out, base)[Up])
	})

	t.Run("top slab on stone", func(t *testing.T) {
		g := gridOf(t, column, stone, block("oak_slab", "type", "top"))
		_, out := meshAll(t, g)
		slab, _ := g.IndexAt(0, 1, 0)
		base, _ := g.IndexAt(0, 0, 0)
		assert.Equal(t, 1, facesOf(out, slab)[Down])
		assert.Equal(t, 1, facesOf(out, base)[Up])
	})

	t.Run("fence between stones", func(t *testing.T) {
		g := gridOf(t, schematic.Dimensions{Width: 1, Height: 3, Length: 1}, stone, block("oak_fence"), stone)
		_, out := meshAll(t, g)
		fence, _ := g.IndexAt(0, 1, 0)
		faces := facesOf(out, fence)
		assert.Zero(t, faces[Up])
		assert.Zero(t, faces[Down])
		for _, f := range []Face{West, East, North, South} {
			assert.Equal(t, 1, faces[f], f.String())
		}
		assert.Len(t, allQuads(out), 16)
	})

	t.Run("fence beside stone keeps its faces", func(t *testing.T) {
		g := gridOf(t, schematic.Dimensions{Width: 2, Height: 1, Length: 1}, stone, block("oak_fence"))
		_, out := meshAll(t, g)
		fence, _ := g.IndexAt(1, 0, 0)
		base, _ := g.IndexAt(0, 0, 0)
		assert.Equal(t, 6, len(facesOf(out, fence)))
		assert.Equal(t, 1, facesOf(out, base)[East])
	})
}

func topOf(q Quad) float32 {
	return max(q.V[0][1], q.V[1][1], q.V[2][1], q.V[3][1])
}

func TestLiquids(t *testing.T) {
	row := schematic.Dimensions{Width: 2, Height: 1, Length: 1}

	t.Run("same fluid hides shared face", func(t *testing.T) {
		g := gridOf(t, row, water, block("water", "level", "3"))
		_, out := meshAll(t, g)
		quads := allQuads(out)
		assert.Len(t, quads, 11)
		for _, b := range out {
			assert.Equal(t, Water, b.Transparency)
		}
		for _, q := range quads {
			if q.Face == Up {
				st, _ := g.Palette().State(q.Material)
				want := LiquidHeight(0, false)
				if st.Property("level") == "3" {
					want = LiquidHeight(3, false)
				}
				assert.InDelta(t, want, topOf(q), 1e-6)
			}
		}
	})

	t.Run("higher level covers the step to a lower one", func(t *testing.T) {
		g := gridOf(t, row, water, block("water", "level", "7"))
		_, out := meshAll(t, g)
		full, _ := g.IndexAt(0, 0, 0)
		low, _ := g.IndexAt(1, 0, 0)
		assert.Zero(t, facesOf(out, low)[West])

		var steps []Quad
		for _, q := range allQuads(out) {
			if q.Material == full && q.Face == East {
				steps = append(steps, q)
			}
		}
		require.Len(t, steps, 1)
		bottom := min(steps[0].V[0][1], steps[0].V[1][1], steps[0].V[2][1], steps[0].V[3][1])
		assert.InDelta(t, 1, steps[0].V[0][0], 1e-6)
		assert.InDelta(t, LiquidHeight(7, false), bottom, 1e-6)
		assert.InDelta(t, LiquidHeight(0, false), topOf(steps[0]), 1e-6)
	})

	t.Run("equal levels hide the shared face", func(t *testing.T) {
		g := gridOf(t, row, water, water)
		_, out := meshAll(t, g)
		assert.Len(t, allQuads(out), 10)
	})

	t.Run("water against stone keeps both faces", func(t *testing.T) {
		g := gridOf(t, row, water, stone)
		_, out := meshAll(t, g)
		w, _ := g.IndexAt(0, 0, 0)
		s, _ := g.IndexAt(1, 0, 0)
		assert.Equal(t, 1, facesOf(out, w)[East])
		assert.Equal(t, 1, facesOf(out, s)[West])
	})

	t.Run("water against lava keeps both faces", func(t *testing.T) {
		g := gridOf(t, row, water, lava)
		_, out := meshAll(t, g)
		assert.Len(t, allQuads(out), 12)
	})

	t.Run("water under water fills the cell", func(t *testing.T) {
		g := gridOf(t, schematic.Dimensions{Width: 1, Height: 2, Length: 1}, water, water)
		_, out := meshAll(t, g)
		quads := allQuads(out)
		assert.Len(t, quads, 10)
		for _, q := range quads {
			bottom := min(q.V[0][1], q.V[1][1], q.V[2][1], q.V[3][1])
			if q.Face == West && bottom == 0 {
				assert.InDelta(t, 1, topOf(q), 1e-6)
			}
		}
	})
}

func TestLiquidHeight(t *testing.T) {
	assert.InDelta(t, 8.0/9, LiquidHeight(0, false), 1e-6)
	assert.InDelta(t, 7.0/9, LiquidHeight(1, false), 1e-6)
	assert.InDelta(t, 1.0/9, LiquidHeight(7, false), 1e-6)
	assert.InDelta(t, 1, LiquidHeight(8, false), 1e-6)
	assert.InDelta(t, 1, LiquidHeight(12, false), 1e-6)
	assert.InDelta(t, 1, LiquidHeight(0, true), 1e-6)
}

func TestCauldronFill(t *testing.T) {
	g := gridOf(t, schematic.Dimensions{Width: 1, Height: 1, Length: 1}, block("water_cauldron", "level", "3"))
	_, out := meshAll(t, g)
	var fills []Quad
	for _, b := range out {
		if b.Transparency == Water {
			fills = append(fills, b.Quads...)
		}
	}
	require.Len(t, fills, 1)
	assert.Equal(t, Up, fills[0].Face)
	assert.InDelta(t, 15.0/16, fills[0].V[0][1], 1e-6)
}

func TestProviderFailureFallsBackToCube(t *testing.T) {
	p := schematic.NewPalette()
	idx := p.Intern(schematic.Unknown("4000:0"))
	g, err := schematic.NewGrid(schematic.Dimensions{Width: 1, Height: 1, Length: 1}, p, []schematic.PaletteIndex{idx})
	require.NoError(t, err)

	broken := ProviderFunc(func(schematic.BlockState) (Geometry, error) {
		return Geometry{}, errors.New("resource pack missing")
	})
	for _, provider := range []GeometryProvider{DefaultProvider{}, broken} {
		e := NewEngine(p, provider)
		out, err := e.Mesh(context.Background(), g, 0, 1)
		require.NoError(t, err)
		assert.Len(t, allQuads(out), 6)
		assert.EqualValues(t, 1, e.Stats().Fallbacks)
	}
}

func TestMeshHonorsCancellation(t *testing.T) {
	dims := schematic.Dimensions{Width: 4, Height: 4, Length: 4}
	g := gridOf(t, dims, fill(dims.Volume(), stone)...)
	e := NewEngine(g.Palette(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Mesh(ctx, g, 0, 4)
	assert.ErrorIs(t, err, context.Canceled)

	for _, err := range e.Batches(ctx, g) {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestEmitMergesWholeVolumeByDefault(t *testing.T) {
	const n = 17
	dims := schematic.Dimensions{Width: n, Height: n, Length: n}
	g := gridOf(t, dims, fill(dims.Volume(), stone)...)
	e := NewEngine(g.Palette(), nil)
	var sink CollectSink
	require.NoError(t, e.Emit(context.Background(), g, &sink))

	quads := sink.Quads()
	require.Len(t, quads, 6)
	for _, q := range quads {
		assert.InDelta(t, float64(n*n), float64(q.Area()), 1e-6)
	}
}

func TestBatchesCoverEveryLayer(t *testing.T) {
	dims := schematic.Dimensions{Width: 3, Height: 7, Length: 3}
	g := gridOf(t, dims, fill(dims.Volume(), stone)...)
	e := NewEngine(g.Palette(), nil, WithChunkLayers(2))
	var sink CollectSink
	require.NoError(t, e.Emit(context.Background(), g, &sink))

	faces := coveredFaces(t, sink.Quads())
	assert.Len(t, faces, 2*(3*7+3*7+3*3))
	ups := 0
	for _, q := range sink.Quads() {
		if q.Face == Up || q.Face == Down {
			ups++
		}
	}
	assert.Equal(t, 2, ups)
}

func TestMeshLayerWindow(t *testing.T) {
	dims := schematic.Dimensions{Width: 2, Height: 4, Length: 2}
	g := gridOf(t, dims, fill(dims.Volume(), stone)...)
	e := NewEngine(g.Palette(), nil)
	out, err := e.Mesh(context.Background(), g, 1, 3)
	require.NoError(t, err)
	for _, q := range allQuads(out) {
		assert.NotEqual(t, Up, q.Face)
		assert.NotEqual(t, Down, q.Face)
		assert.InDelta(t, 4, float64(q.Area()), 1e-6)
	}
	out, err = e.Mesh(context.Background(), g, 5, 9)
	require.NoError(t, err)
	assert.Empty(t, out)
}
