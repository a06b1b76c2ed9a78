package mesh

import (
	"context"

	"github.com/astei/schem2mesh/schematic"
)

// cauldron fill spans the inside of the shell
var fillBox = px(2, 0, 2, 14, 16, 14)

// shapes emits everything that is not merged: partial boxes, liquids and cauldron fills, per cell
// in scan order.
func (m *mesher) shapes(ctx context.Context, out quadSet) error {
	var c [3]int
	for c[1] = m.lo[1]; c[1] < m.hi[1]; c[1]++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for c[2] = m.lo[2]; c[2] < m.hi[2]; c[2]++ {
			for c[0] = m.lo[0]; c[0] < m.hi[0]; c[0]++ {
				idx, g := m.at(c)
				switch g.Kind {
				case KindPartial:
					m.partial(c, idx, g, out)
				case KindLiquid:
					m.liquid(c, idx, g, out)
				}
			}
		}
	}
	return nil
}

func (m *mesher) partial(c [3]int, idx schematic.PaletteIndex, g Geometry, out quadSet) {
	key := batchKey{material: idx, transparency: g.Transparency}
	var neighbors [6]Geometry
	for _, f := range Faces {
		_, neighbors[f] = m.at(step(c, f))
	}
	for _, b := range g.Boxes {
		for _, f := range Faces {
			if boxFaceHidden(b, f, neighbors[f]) {
				continue
			}
			out.add(key, boxFace(c, b, f, idx))
		}
	}
	if l := g.Liquid; l != nil {
		fill := fillBox
		fill.Max[1] = l.Height
		out.add(batchKey{material: idx, transparency: l.Transparency}, boxFace(c, fill, Up, idx))
	}
}

func (m *mesher) liquid(c [3]int, idx schematic.PaletteIndex, g Geometry, out quadSet) {
	l := g.Liquid
	if l == nil {
		return
	}
	box := FullBox
	box.Max[1] = m.liquidTop(c, l)
	key := batchKey{material: idx, transparency: l.Transparency}
	for _, f := range Faces {
		nc := step(c, f)
		_, n := m.at(nc)
		if !liquidFaceHidden(l.Fluid, n) {
			out.add(key, boxFace(c, box, f, idx))
			continue
		}
		if f.Axis() == 1 {
			continue
		}
		// a lower neighbor of the same fluid only covers the side up to its own surface
		if nt := m.liquidTop(nc, n.Liquid); nt < box.Max[1] {
			strip := box
			strip.Min[1] = nt
			out.add(key, boxFace(c, strip, f, idx))
		}
	}
}

// liquidTop is the surface height of the liquid in cell c. The same fluid above fills the cell.
func (m *mesher) liquidTop(c [3]int, l *Liquid) float32 {
	if _, above := m.at(step(c, Up)); liquidFaceHidden(l.Fluid, above) {
		return 1
	}
	return l.Height
}

// boxFace is face f of box b placed in cell c. UVs are the box's extent in the cell.
func boxFace(c [3]int, b Box, f Face, mat schematic.PaletteIndex) Quad {
	a := f.Axis()
	u, v := (a+1)%3, (a+2)%3
	plane := float32(c[a]) + b.Min[a]
	if f.Positive() {
		plane = float32(c[a]) + b.Max[a]
	}
	uv := [4][2]float32{
		{b.Min[u], b.Min[v]}, {b.Max[u], b.Min[v]}, {b.Max[u], b.Max[v]}, {b.Min[u], b.Max[v]},
	}
	return rect(f, plane,
		float32(c[u])+b.Min[u], float32(c[u])+b.Max[u],
		float32(c[v])+b.Min[v], float32(c[v])+b.Max[v],
		uv, mat)
}
