package schematic

// Region is a Litematica sub-volume: Position is one corner and Size may be negative on any axis,
// in which case the blocks along that axis run from Position+Size+1 up to Position.
type Region struct {
	Position Pos
	Size     Pos
}

func axisMin(pos, size int) int {
	if size < 0 {
		return pos + size + 1
	}
	return pos
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Min is the smallest covered corner.
func (r Region) Min() Pos {
	return Pos{
		axisMin(r.Position.X, r.Size.X),
		axisMin(r.Position.Y, r.Size.Y),
		axisMin(r.Position.Z, r.Size.Z),
	}
}

// Max is the largest covered corner, inclusive.
func (r Region) Max() Pos {
	lo, d := r.Min(), r.Dimensions()
	return Pos{lo.X + d.Width - 1, lo.Y + d.Height - 1, lo.Z + d.Length - 1}
}

func (r Region) Dimensions() Dimensions {
	return Dimensions{Width: abs(r.Size.X), Height: abs(r.Size.Y), Length: abs(r.Size.Z)}
}

// ToGlobal maps a region-local coordinate, as addressed by the region's packed array, to the
// schematic coordinate it occupies.
func (r Region) ToGlobal(local Pos) Pos {
	lo := r.Min()
	return Pos{lo.X + local.X, lo.Y + local.Y, lo.Z + local.Z}
}
