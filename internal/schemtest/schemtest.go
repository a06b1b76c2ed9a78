// Package schemtest builds synthetic schematics in every supported dialect for tests.
package schemtest

import (
	"bytes"
	"math/rand/v2"

	"github.com/astei/schem2mesh/nbt"
	"github.com/astei/schem2mesh/schematic"
	"github.com/klauspost/compress/gzip"
)

// Volume is a grid described by its own palette and scan-order cells.
type Volume struct {
	Dims    schematic.Dimensions
	Palette []schematic.BlockState
	Cells   []int
}

// Random fills dims with states drawn from palette.
func Random(rng *rand.Rand, dims schematic.Dimensions, palette []schematic.BlockState) Volume {
	cells := make([]int, dims.Volume())
	for i := range cells {
		cells[i] = rng.IntN(len(palette))
	}
	return Volume{Dims: dims, Palette: palette, Cells: cells}
}

// At returns the state stored at (x, y, z).
func (v Volume) At(x, y, z int) schematic.BlockState {
	return v.Palette[v.Cells[v.Dims.Index(x, y, z)]]
}

func mustList(elem nbt.TagType, items ...nbt.Tag) *nbt.List {
	l, err := nbt.NewList(elem, items...)
	if err != nil {
		panic(err)
	}
	return l
}

func vec(p schematic.Pos) *nbt.Compound {
	c := nbt.NewCompound()
	c.Set("x", nbt.Int(p.X))
	c.Set("y", nbt.Int(p.Y))
	c.Set("z", nbt.Int(p.Z))
	return c
}

// AppendVarint appends v as unsigned LEB128.
func AppendVarint(dst nbt.ByteArray, v uint32) nbt.ByteArray {
	for v >= 0x80 {
		dst = append(dst, int8(byte(v)|0x80))
		v >>= 7
	}
	return append(dst, int8(byte(v)))
}

// Pack stores values at the given width, low bit first across 64-bit words.
func Pack(values []uint32, width int) nbt.LongArray {
	words := make([]uint64, (len(values)*width+63)/64)
	for i, v := range values {
		bit := i * width
		w, off := bit/64, uint(bit%64)
		words[w] |= uint64(v) << off
		if int(off)+width > 64 {
			words[w+1] |= uint64(v) >> (64 - off)
		}
	}
	out := make(nbt.LongArray, len(words))
	for i, w := range words {
		out[i] = int64(w)
	}
	return out
}

// Sponge writes v as a Sponge schematic. Version 3 nests the blocks under a Schematic wrapper.
func Sponge(v Volume, version int) *nbt.Compound {
	palette := nbt.NewCompound()
	for i, st := range v.Palette {
		palette.Set(st.Key(), nbt.Int(i))
	}
	var data nbt.ByteArray
	for _, c := range v.Cells {
		data = AppendVarint(data, uint32(c))
	}

	body := nbt.NewCompound()
	body.Set("Version", nbt.Int(version))
	body.Set("DataVersion", nbt.Int(3465))
	body.Set("Width", nbt.Short(v.Dims.Width))
	body.Set("Height", nbt.Short(v.Dims.Height))
	body.Set("Length", nbt.Short(v.Dims.Length))
	body.Set("Offset", nbt.IntArray{0, 0, 0})
	if version < 3 {
		body.Set("PaletteMax", nbt.Int(len(v.Palette)))
		body.Set("Palette", palette)
		body.Set("BlockData", data)
		body.Set("BlockEntities", &nbt.List{})
		return body
	}
	blocks := nbt.NewCompound()
	blocks.Set("Palette", palette)
	blocks.Set("Data", data)
	blocks.Set("BlockEntities", &nbt.List{})
	body.Set("Blocks", blocks)
	root := nbt.NewCompound()
	root.Set("Schematic", body)
	return root
}

// Legacy writes a byte-array schematic from raw ids (up to 12 bits) and data values. AddBlocks is
// only written when an id needs it.
func Legacy(dims schematic.Dimensions, ids []int, data []uint8) *nbt.Compound {
	blocks := make(nbt.ByteArray, len(ids))
	add := make(nbt.ByteArray, (len(ids)+1)/2)
	needAdd := false
	for i, id := range ids {
		blocks[i] = int8(byte(id))
		if hi := byte(id >> 8 & 0xf); hi != 0 {
			needAdd = true
			if i%2 == 0 {
				add[i/2] |= int8(hi)
			} else {
				add[i/2] |= int8(hi << 4)
			}
		}
	}
	d := make(nbt.ByteArray, len(data))
	for i, v := range data {
		d[i] = int8(v)
	}

	root := nbt.NewCompound()
	root.Set("Width", nbt.Short(dims.Width))
	root.Set("Height", nbt.Short(dims.Height))
	root.Set("Length", nbt.Short(dims.Length))
	root.Set("Materials", nbt.String("Alpha"))
	root.Set("Blocks", blocks)
	root.Set("Data", d)
	if needAdd {
		root.Set("AddBlocks", add)
	}
	root.Set("Entities", &nbt.List{})
	root.Set("TileEntities", &nbt.List{})
	return root
}

// Region is one Litematica region. Cells are in the region's own scan order over |Size|.
type Region struct {
	Name     string
	Position schematic.Pos
	Size     schematic.Pos
	Palette  []schematic.BlockState
	Cells    []int
}

func paletteEntry(st schematic.BlockState) *nbt.Compound {
	c := nbt.NewCompound()
	c.Set("Name", nbt.String(st.Name))
	if len(st.Properties) > 0 {
		props := nbt.NewCompound()
		for k, v := range st.Properties {
			props.Set(k, nbt.String(v))
		}
		c.Set("Properties", props)
	}
	return c
}

// Litematica writes the given regions. enclosing may be the zero Pos to leave it out.
func Litematica(enclosing schematic.Pos, regions ...Region) *nbt.Compound {
	regionsTag := nbt.NewCompound()
	for _, r := range regions {
		entries := make([]nbt.Tag, len(r.Palette))
		for i, st := range r.Palette {
			entries[i] = paletteEntry(st)
		}
		values := make([]uint32, len(r.Cells))
		for i, c := range r.Cells {
			values[i] = uint32(c)
		}
		width := 1
		for 1<<width < len(r.Palette) {
			width++
		}

		c := nbt.NewCompound()
		c.Set("Position", vec(r.Position))
		c.Set("Size", vec(r.Size))
		c.Set("BlockStatePalette", mustList(nbt.TagCompound, entries...))
		c.Set("BlockStates", Pack(values, width))
		c.Set("TileEntities", &nbt.List{})
		c.Set("Entities", &nbt.List{})
		regionsTag.Set(r.Name, c)
	}

	meta := nbt.NewCompound()
	meta.Set("Name", nbt.String("synthetic"))
	meta.Set("Author", nbt.String("schemtest"))
	meta.Set("RegionCount", nbt.Int(len(regions)))
	meta.Set("TimeCreated", nbt.Long(1700000000000))
	if enclosing != (schematic.Pos{}) {
		meta.Set("EnclosingSize", vec(enclosing))
	}

	root := nbt.NewCompound()
	root.Set("Version", nbt.Int(6))
	root.Set("MinecraftDataVersion", nbt.Int(3465))
	root.Set("Metadata", meta)
	root.Set("Regions", regionsTag)
	return root
}

// LitematicaVolume writes v as a single region at the origin.
func LitematicaVolume(v Volume) *nbt.Compound {
	return Litematica(schematic.Pos{}, Region{
		Name:    "main",
		Size:    schematic.Pos{X: v.Dims.Width, Y: v.Dims.Height, Z: v.Dims.Length},
		Palette: v.Palette,
		Cells:   v.Cells,
	})
}

// Encode serializes root, gzip-compressed when gz is set.
func Encode(root *nbt.Compound, gz bool) ([]byte, error) {
	var buf bytes.Buffer
	if !gz {
		err := nbt.Encode(&buf, "", root)
		return buf.Bytes(), err
	}
	zw := gzip.NewWriter(&buf)
	if err := nbt.Encode(zw, "", root); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
