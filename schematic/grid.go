package schematic

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
	"sync"
)

// Dimensions are the X (width), Y (height) and Z (length) extents of a grid.
type Dimensions struct {
	Width, Height, Length int
}

func (d Dimensions) Volume() int    { return d.Width * d.Height * d.Length }
func (d Dimensions) LayerArea() int { return d.Width * d.Length }

func (d Dimensions) Contains(x, y, z int) bool {
	return x >= 0 && x < d.Width && y >= 0 && y < d.Height && z >= 0 && z < d.Length
}

// Index is the scan-order position of (x, y, z): Y-major, then Z, then X.
func (d Dimensions) Index(x, y, z int) int {
	return (y*d.Length+z)*d.Width + x
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%dx%d", d.Width, d.Height, d.Length)
}

func (d Dimensions) validate() error {
	if d.Width <= 0 || d.Height <= 0 || d.Length <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDimensions, d)
	}
	return nil
}

type Pos struct {
	X, Y, Z int
}

// BlockCount is one row of Grid.Counts.
type BlockCount struct {
	Index PaletteIndex
	State BlockState
	Count uint64
}

// Grid is the decoded block model: a palette plus a dense index array in scan order. It is
// read-only once built and safe for concurrent use.
type Grid struct {
	dims    Dimensions
	palette *Palette
	cells   []PaletteIndex

	countsOnce sync.Once
	counts     []BlockCount
}

// NewGrid wraps cells, which must hold exactly dims.Volume() indices into palette. The grid takes
// ownership of cells.
func NewGrid(dims Dimensions, palette *Palette, cells []PaletteIndex) (*Grid, error) {
	if err := dims.validate(); err != nil {
		return nil, err
	}
	if len(cells) != dims.Volume() {
		return nil, fmt.Errorf("%w: %d cells for %s", ErrDimensionMismatch, len(cells), dims)
	}
	n := PaletteIndex(palette.Len())
	for i, c := range cells {
		if c >= n {
			return nil, fmt.Errorf("%w: cell %d references %d, palette has %d entries", ErrPaletteIndex, i, c, n)
		}
	}
	return &Grid{dims: dims, palette: palette, cells: cells}, nil
}

func (g *Grid) Dimensions() Dimensions { return g.dims }
func (g *Grid) Palette() *Palette      { return g.palette }

// IndexAt returns the palette index at (x, y, z), or false outside the grid.
func (g *Grid) IndexAt(x, y, z int) (PaletteIndex, bool) {
	if !g.dims.Contains(x, y, z) {
		return 0, false
	}
	return g.cells[g.dims.Index(x, y, z)], true
}

// Get returns the block state at (x, y, z), or false outside the grid.
func (g *Grid) Get(x, y, z int) (BlockState, bool) {
	idx, ok := g.IndexAt(x, y, z)
	if !ok {
		return BlockState{}, false
	}
	return g.palette.State(idx)
}

// Layer returns the scan-order indices of layer y. The slice aliases the grid and must not be
// modified.
func (g *Grid) Layer(y int) []PaletteIndex {
	if y < 0 || y >= g.dims.Height {
		return nil
	}
	area := g.dims.LayerArea()
	return g.cells[y*area : (y+1)*area : (y+1)*area]
}

// All yields every cell in scan order. The sequence can be ranged over any number of times.
func (g *Grid) All() iter.Seq2[Pos, BlockState] {
	return func(yield func(Pos, BlockState) bool) {
		states := g.palette.States()
		i := 0
		for y := 0; y < g.dims.Height; y++ {
			for z := 0; z < g.dims.Length; z++ {
				for x := 0; x < g.dims.Width; x++ {
					if !yield(Pos{x, y, z}, states[g.cells[i]]) {
						return
					}
					i++
				}
			}
		}
	}
}

// Counts returns per-state cell counts, most common first. It is computed on first use.
func (g *Grid) Counts() []BlockCount {
	g.countsOnce.Do(func() {
		tally := make([]uint64, g.palette.Len())
		for _, c := range g.cells {
			tally[c]++
		}
		for i, n := range tally {
			if n == 0 {
				continue
			}
			st, _ := g.palette.State(PaletteIndex(i))
			g.counts = append(g.counts, BlockCount{Index: PaletteIndex(i), State: st, Count: n})
		}
		slices.SortStableFunc(g.counts, func(a, b BlockCount) int {
			if c := cmp.Compare(b.Count, a.Count); c != 0 {
				return c
			}
			return cmp.Compare(a.State.Key(), b.State.Key())
		})
	})
	return g.counts
}

// Solid is the number of non-air cells.
func (g *Grid) Solid() uint64 {
	var n uint64
	for _, c := range g.Counts() {
		if !c.State.IsAir() {
			n += c.Count
		}
	}
	return n
}

// Unique is the number of distinct states that occur in at least one cell.
func (g *Grid) Unique() int {
	return len(g.Counts())
}
