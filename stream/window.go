package stream

import "github.com/astei/schem2mesh/schematic"

// window holds a run of consecutive layers of a larger volume and answers queries in the volume's
// coordinates. Layers outside the run read as outside the volume.
type window struct {
	dims   schematic.Dimensions
	base   int
	layers [][]schematic.PaletteIndex
}

func (w *window) Dimensions() schematic.Dimensions { return w.dims }

func (w *window) IndexAt(x, y, z int) (schematic.PaletteIndex, bool) {
	i := y - w.base
	if !w.dims.Contains(x, y, z) || i < 0 || i >= len(w.layers) {
		return 0, false
	}
	return w.layers[i][z*w.dims.Width+x], true
}

// layer returns resident layer y, or nil.
func (w *window) layer(y int) []schematic.PaletteIndex {
	if w == nil {
		return nil
	}
	i := y - w.base
	if i < 0 || i >= len(w.layers) {
		return nil
	}
	return w.layers[i]
}

// span is the run of layers needed to mesh [y0, y1): one extra layer on each side for culling.
func span(dims schematic.Dimensions, y0, y1 int) (lo, hi int) {
	return max(y0-1, 0), min(y1, dims.Height-1)
}

// readWindow reads the layers around [y0, y1) from a random-access source.
func readWindow(src schematic.LayerSource, y0, y1 int) (*window, error) {
	dims := src.Dimensions()
	lo, hi := span(dims, y0, y1)
	w := &window{dims: dims, base: lo, layers: make([][]schematic.PaletteIndex, 0, hi-lo+1)}
	for y := lo; y <= hi; y++ {
		l := make([]schematic.PaletteIndex, dims.LayerArea())
		if err := src.ReadLayer(y, l); err != nil {
			return nil, err
		}
		w.layers = append(w.layers, l)
	}
	return w, nil
}

// sequentialReader reads a sequential source once, front to back, handing out overlapping windows.
// Layers shared by consecutive windows are read once and shared; nothing writes to them afterwards.
type sequentialReader struct {
	src  schematic.LayerSource
	next int
	prev *window
}

func (r *sequentialReader) window(y0, y1 int) (*window, error) {
	dims := r.src.Dimensions()
	lo, hi := span(dims, y0, y1)
	w := &window{dims: dims, base: lo, layers: make([][]schematic.PaletteIndex, 0, hi-lo+1)}
	for y := lo; y <= hi; y++ {
		if y < r.next {
			l := r.prev.layer(y)
			if l == nil {
				return nil, schematic.ErrLayerOrder
			}
			w.layers = append(w.layers, l)
			continue
		}
		l := make([]schematic.PaletteIndex, dims.LayerArea())
		if err := r.src.ReadLayer(y, l); err != nil {
			return nil, err
		}
		r.next = y + 1
		w.layers = append(w.layers, l)
	}
	r.prev = w
	return w, nil
}
