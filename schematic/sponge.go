package schematic

import (
	"fmt"
	"strings"

	"github.com/astei/schem2mesh/nbt"
)

// spongeSource decodes the varint block stream of a Sponge schematic. The stream has no index, so
// layers are produced strictly in order.
type spongeSource struct {
	dims    Dimensions
	palette *Palette
	field   string
	stream  varintReader
	next    int

	// inverse maps a stored palette id to the interned index
	inverse []PaletteIndex
	// unknown holds, per stored id, what to report when a cell references an unresolvable entry
	unknown  []string
	warnings *Warnings
}

func openSponge(root *nbt.Compound, h *Header, o *options, w *Warnings) (LayerSource, error) {
	body := root
	if inner, ok := root.Compound("Schematic"); ok {
		body = inner
	}
	version, ok := body.Int("Version")
	if !ok {
		return nil, missing("Version")
	}
	h.Version = int(version)
	if h.Version >= 3 {
		h.Format = FormatSpongeV3
	} else {
		h.Format = FormatSpongeV2
	}
	dv, _ := body.Int("DataVersion")
	h.DataVersion = int(dv)

	dims, err := readDimensions(body)
	if err != nil {
		return nil, err
	}

	// v3 nests the palette and stream under Blocks; v2 keeps them at the top level.
	palette, data := "Palette", "BlockData"
	container := body
	entities := "BlockEntities"
	if blocks, ok := body.Compound("Blocks"); ok {
		container = blocks
		palette, data = "Blocks.Palette", "Blocks.Data"
		entities = "Blocks.BlockEntities"
	} else if !body.Has("BlockEntities", nbt.TagList) {
		entities = "TileEntities"
	}
	paletteTag, ok := container.Compound(lastSegment(palette))
	if !ok {
		return nil, missing(palette)
	}
	stream, ok := container.ByteArray(lastSegment(data))
	if !ok {
		return nil, missing(data)
	}

	s := &spongeSource{
		dims:     dims,
		palette:  NewPalette(),
		field:    data,
		stream:   varintReader{data: stream},
		warnings: w,
	}
	if err := s.buildPalette(paletteTag, palette); err != nil {
		return nil, err
	}

	if off, ok := body.IntArray("Offset"); ok && len(off) >= 3 {
		h.Offset = Pos{int(off[0]), int(off[1]), int(off[2])}
	}
	if meta, ok := body.Compound("Metadata"); ok {
		h.Metadata.Raw = meta
		h.Metadata.Name, _ = meta.String("Name")
		h.Metadata.Author, _ = meta.String("Author")
		h.Metadata.Created = millis(meta, "Date")
		mods, _ := meta.List("RequiredMods")
		h.Metadata.RequiredMods = readStringList(mods)
	}
	bes, _ := container.List(lastSegment(entities))
	h.BlockEntities = readBlockEntities(bes, Pos{})
	ents, _ := body.List("Entities")
	h.Entities = readEntities(ents, Pos{})
	if h.Biomes, err = readBiomes(body, dims); err != nil {
		return nil, err
	}
	return s, nil
}

func lastSegment(field string) string {
	return field[strings.LastIndexByte(field, '.')+1:]
}

// buildPalette interns entries in stored-id order. Ids the palette skips map to the placeholder.
func (s *spongeSource) buildPalette(c *nbt.Compound, field string) error {
	byID := make(map[int]string, c.Len())
	maxID := -1
	var err error
	c.Each(func(name string, _ nbt.Tag) bool {
		id, ok := c.Int(name)
		if !ok || id < 0 {
			err = fieldErr(field+"."+name, fmt.Errorf("%w: id %d", ErrPaletteIndex, id))
			return false
		}
		if prev, dup := byID[int(id)]; dup {
			err = fieldErr(field+"."+name, fmt.Errorf("%w: id %d also used by %q", ErrPaletteIndex, id, prev))
			return false
		}
		byID[int(id)] = name
		maxID = max(maxID, int(id))
		return true
	})
	if err != nil {
		return err
	}

	s.inverse = make([]PaletteIndex, maxID+1)
	s.unknown = make([]string, maxID+1)
	for id := range s.inverse {
		name, ok := byID[id]
		var state BlockState
		switch {
		case !ok:
			s.unknown[id] = fmt.Sprintf("palette id %d", id)
			state = Unknown(s.unknown[id])
		default:
			parsed, perr := ParseBlockState(name)
			if perr != nil {
				s.unknown[id] = name
				state = Unknown(name)
			} else {
				state = parsed
			}
		}
		s.inverse[id] = s.palette.Intern(state)
	}
	return nil
}

func (s *spongeSource) Dimensions() Dimensions { return s.dims }
func (s *spongeSource) Palette() *Palette      { return s.palette }
func (s *spongeSource) RandomAccess() bool     { return false }

func (s *spongeSource) ReadLayer(y int, dst []PaletteIndex) error {
	if err := checkLayer(s.dims, y, dst); err != nil {
		return err
	}
	if y != s.next {
		return fmt.Errorf("%w: asked for layer %d, next is %d", ErrLayerOrder, y, s.next)
	}
	base := y * s.dims.LayerArea()
	for j := range dst {
		v, err := s.stream.next()
		if err != nil {
			return fieldErr(s.field, fmt.Errorf("%w: after %d of %d values", err, base+j, s.dims.Volume()))
		}
		if int(v) >= len(s.inverse) {
			return fieldErr(s.field, fmt.Errorf("%w: cell %d references id %d, palette has %d", ErrPaletteIndex, base+j, v, len(s.inverse)))
		}
		if s.unknown[v] != "" {
			s.warnings.addUnknown(s.unknown[v], 1)
		}
		dst[j] = s.inverse[v]
	}
	s.next++
	return nil
}

// readBiomes reads v3 Biomes{Palette, Data} (one entry per cell) or v2 BiomePalette/BiomeData (one
// entry per column). Absent biomes are not an error.
func readBiomes(body *nbt.Compound, dims Dimensions) (*Biomes, error) {
	var (
		palette *nbt.Compound
		data    nbt.ByteArray
		perCell bool
		field   string
	)
	if b, ok := body.Compound("Biomes"); ok {
		palette, _ = b.Compound("Palette")
		data, _ = b.ByteArray("Data")
		perCell, field = true, "Biomes.Data"
	} else {
		palette, _ = body.Compound("BiomePalette")
		data, _ = body.ByteArray("BiomeData")
		field = "BiomeData"
	}
	if palette == nil || data == nil {
		return nil, nil
	}
	n := dims.LayerArea()
	if perCell {
		n = dims.Volume()
	}
	values, err := readVarints(data, n)
	if err != nil {
		return nil, fieldErr(field, err)
	}
	b := &Biomes{Data: values, PerCell: perCell}
	palette.Each(func(name string, _ nbt.Tag) bool {
		id, ok := palette.Int(name)
		if !ok || id < 0 {
			return true
		}
		for int(id) >= len(b.Palette) {
			b.Palette = append(b.Palette, "")
		}
		b.Palette[id] = name
		return true
	})
	for i, v := range values {
		if int(v) >= len(b.Palette) {
			return nil, fieldErr(field, fmt.Errorf("%w: entry %d references biome %d", ErrPaletteIndex, i, v))
		}
	}
	return b, nil
}
