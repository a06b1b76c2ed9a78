package mesh

import "github.com/astei/schem2mesh/schematic"

// cubeFaceHidden reports whether face f of a full cube is hidden by the neighbor n in that
// direction. Opaque cubes hide everything regardless of material, transparent cubes only hide
// their own kind, so glass walls lose their inner faces but stay visible against leaves. Liquids
// never hide a solid face.
func cubeFaceHidden(idx schematic.PaletteIndex, f Face, nIdx schematic.PaletteIndex, n Geometry) bool {
	switch n.Kind {
	case KindCube:
		return n.Transparency == Opaque || nIdx == idx
	case KindPartial:
		return n.Opaque() && n.CoversFace(f.Opposite())
	}
	return false
}

// boxFaceHidden reports whether face f of a partial-shape box is hidden. Only faces on the cell
// boundary can be, and only by an opaque neighbor filling the touching face.
func boxFaceHidden(b Box, f Face, n Geometry) bool {
	return b.OnBoundary(f) && n.Opaque() && n.CoversFace(f.Opposite())
}

// liquidFaceHidden reports whether a liquid face is hidden: only the same fluid does that.
func liquidFaceHidden(fluid string, n Geometry) bool {
	return n.Kind == KindLiquid && n.Liquid != nil && n.Liquid.Fluid == fluid
}
