package mesh

import (
	"errors"

	"github.com/astei/schem2mesh/schematic"
)

// Face is one of the six axis-aligned directions.
type Face uint8

const (
	West  Face = iota // -X
	East              // +X
	Down              // -Y
	Up                // +Y
	North             // -Z
	South             // +Z
)

var Faces = [6]Face{West, East, Down, Up, North, South}

func (f Face) String() string {
	return [...]string{"west", "east", "down", "up", "north", "south"}[f]
}

// Axis is 0 for X, 1 for Y and 2 for Z.
func (f Face) Axis() int      { return int(f) / 2 }
func (f Face) Positive() bool { return f%2 == 1 }
func (f Face) Opposite() Face { return f ^ 1 }

// Step is the offset to the neighboring cell in this direction.
func (f Face) Step() (dx, dy, dz int) {
	var d [3]int
	d[f.Axis()] = -1
	if f.Positive() {
		d[f.Axis()] = 1
	}
	return d[0], d[1], d[2]
}

func (f Face) Normal() [3]float32 {
	dx, dy, dz := f.Step()
	return [3]float32{float32(dx), float32(dy), float32(dz)}
}

const epsilon = 0.001

// Box is an axis-aligned box in cell space, each coordinate in [0, 1].
type Box struct {
	Min, Max [3]float32
}

var FullBox = Box{Max: [3]float32{1, 1, 1}}

// px builds a box from coordinates given in sixteenths of a block.
func px(x0, y0, z0, x1, y1, z1 float32) Box {
	return Box{Min: [3]float32{x0 / 16, y0 / 16, z0 / 16}, Max: [3]float32{x1 / 16, y1 / 16, z1 / 16}}
}

// OnBoundary reports whether the box's face f lies on the cell boundary.
func (b Box) OnBoundary(f Face) bool {
	a := f.Axis()
	if f.Positive() {
		return b.Max[a] >= 1-epsilon
	}
	return b.Min[a] <= epsilon
}

// Covers reports whether the box fills the whole cell face f.
func (b Box) Covers(f Face) bool {
	if !b.OnBoundary(f) {
		return false
	}
	a := f.Axis()
	for i := range 3 {
		if i != a && (b.Min[i] > epsilon || b.Max[i] < 1-epsilon) {
			return false
		}
	}
	return true
}

// Kind selects how a block is meshed.
type Kind uint8

const (
	KindEmpty   Kind = iota // nothing to draw
	KindCube                // full cube, greedy merged
	KindPartial             // explicit boxes, emitted per instance
	KindLiquid              // fluid volume with a level-dependent height
)

func (k Kind) String() string {
	return [...]string{"empty", "cube", "partial", "liquid"}[k]
}

// Transparency is the class tag handed to the sink; it does not change geometry.
type Transparency uint8

const (
	Opaque Transparency = iota
	Glass
	Leaves
	Ice
	Water
)

func (t Transparency) String() string {
	return [...]string{"opaque", "glass", "leaves", "ice", "water"}[t]
}

// Alpha is the suggested opacity for the class.
func (t Transparency) Alpha() float32 {
	switch t {
	case Glass:
		return 0.30
	case Leaves:
		return 0.90
	case Ice:
		return 0.70
	case Water:
		return 0.40
	}
	return 1
}

// Liquid describes a fluid volume, or the contents of a filled cauldron.
type Liquid struct {
	Fluid        string
	Height       float32
	Transparency Transparency
}

// Geometry is what a provider knows about one block state.
type Geometry struct {
	Kind         Kind
	Boxes        []Box
	Transparency Transparency
	Liquid       *Liquid
}

var (
	Cube  = Geometry{Kind: KindCube}
	Empty = Geometry{Kind: KindEmpty}
)

// Opaque reports whether the block hides what is behind it.
func (g Geometry) Opaque() bool {
	switch g.Kind {
	case KindCube, KindPartial:
		return g.Transparency == Opaque
	}
	return false
}

// CoversFace reports whether the block fills the cell face f. Liquids never do.
func (g Geometry) CoversFace(f Face) bool {
	switch g.Kind {
	case KindCube:
		return true
	case KindPartial:
		for _, b := range g.Boxes {
			if b.Covers(f) {
				return true
			}
		}
	}
	return false
}

var ErrNoGeometry = errors.New("mesh: no geometry for block state")

// GeometryProvider resolves block states to geometry. Errors are not fatal: the engine falls back
// to a full cube.
type GeometryProvider interface {
	Resolve(schematic.BlockState) (Geometry, error)
}

type ProviderFunc func(schematic.BlockState) (Geometry, error)

func (f ProviderFunc) Resolve(s schematic.BlockState) (Geometry, error) { return f(s) }
