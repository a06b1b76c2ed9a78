package mesh

import (
	"cmp"
	"slices"
	"sync"

	"github.com/astei/schem2mesh/schematic"
)

// Quad is one textured rectangle. Vertices wind counter-clockwise seen from the side the face
// points to. UVs are in block units, so a merged 3x2 quad tiles its texture 3x2 times.
type Quad struct {
	V        [4][3]float32
	UV       [4][2]float32
	Face     Face
	Material schematic.PaletteIndex
}

func (q Quad) Normal() [3]float32 { return q.Face.Normal() }

// Area is the surface of the quad in block faces.
func (q Quad) Area() float32 {
	a := q.Face.Axis()
	var ext [2]float32
	for i, axis := range [2]int{(a + 1) % 3, (a + 2) % 3} {
		lo, hi := q.V[0][axis], q.V[0][axis]
		for _, v := range q.V[1:] {
			lo, hi = min(lo, v[axis]), max(hi, v[axis])
		}
		ext[i] = hi - lo
	}
	return ext[0] * ext[1]
}

// MeshBatch groups the quads of one material and transparency class.
type MeshBatch struct {
	Material     schematic.PaletteIndex
	Transparency Transparency
	Quads        []Quad
}

// Sink consumes batches in emission order. Batches of one material may arrive more than once.
type Sink interface {
	Accept(MeshBatch) error
}

type SinkFunc func(MeshBatch) error

func (f SinkFunc) Accept(b MeshBatch) error { return f(b) }

// CollectSink keeps every batch in memory. It is meant for tests and small volumes.
type CollectSink struct {
	mu      sync.Mutex
	Batches []MeshBatch
}

func (s *CollectSink) Accept(b MeshBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Batches = append(s.Batches, b)
	return nil
}

// Quads flattens all collected batches.
func (s *CollectSink) Quads() []Quad {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Quad
	for _, b := range s.Batches {
		out = append(out, b.Quads...)
	}
	return out
}

type batchKey struct {
	material     schematic.PaletteIndex
	transparency Transparency
}

// quadSet collects the output of one meshing task.
type quadSet map[batchKey][]Quad

func (s quadSet) add(key batchKey, q Quad) {
	s[key] = append(s[key], q)
}

// batches merges task outputs, keeping task order within a key, and sorts them by material.
func batches(sets []quadSet) []MeshBatch {
	merged := make(map[batchKey][]Quad)
	for _, s := range sets {
		for k, qs := range s {
			merged[k] = append(merged[k], qs...)
		}
	}
	keys := make([]batchKey, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b batchKey) int {
		if c := cmp.Compare(a.material, b.material); c != 0 {
			return c
		}
		return cmp.Compare(a.transparency, b.transparency)
	})
	out := make([]MeshBatch, len(keys))
	for i, k := range keys {
		out[i] = MeshBatch{Material: k.material, Transparency: k.transparency, Quads: merged[k]}
	}
	return out
}

// rect builds the quad of face f lying on plane, spanning [u0,u1]x[v0,v1] on the face's two other
// axes.
func rect(f Face, plane, u0, u1, v0, v1 float32, uv [4][2]float32, mat schematic.PaletteIndex) Quad {
	a := f.Axis()
	u, v := (a+1)%3, (a+2)%3
	corners := [4][2]float32{{u0, v0}, {u1, v0}, {u1, v1}, {u0, v1}}
	q := Quad{UV: uv, Face: f, Material: mat}
	for i, c := range corners {
		q.V[i][a] = plane
		q.V[i][u] = c[0]
		q.V[i][v] = c[1]
	}
	if !f.Positive() {
		q.V[1], q.V[3] = q.V[3], q.V[1]
		q.UV[1], q.UV[3] = q.UV[3], q.UV[1]
	}
	return q
}

func tiledUV(w, h float32) [4][2]float32 {
	return [4][2]float32{{0, 0}, {w, 0}, {w, h}, {0, h}}
}
