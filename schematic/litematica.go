package schematic

import (
	"fmt"

	"github.com/astei/schem2mesh/nbt"
)

type litematicaRegion struct {
	name string
	dims Dimensions
	// lo is the region's smallest corner in grid coordinates
	lo     Pos
	remap  []PaletteIndex
	cursor *bitCursor
}

// litematicaSource composites every region into one grid. Index 0 of the shared palette is always
// air, which is what cells outside all regions hold.
type litematicaSource struct {
	dims    Dimensions
	palette *Palette
	regions []*litematicaRegion
}

func readVec(c *nbt.Compound, field string) (Pos, error) {
	v, ok := c.Compound(field)
	if !ok {
		return Pos{}, missing(field)
	}
	x, okx := v.Int("x")
	y, oky := v.Int("y")
	z, okz := v.Int("z")
	if !okx || !oky || !okz {
		return Pos{}, missing(field + ".{x,y,z}")
	}
	return Pos{int(x), int(y), int(z)}, nil
}

func openLitematica(root *nbt.Compound, h *Header, o *options, w *Warnings) (LayerSource, error) {
	version, _ := root.Int("Version")
	h.Version = int(version)
	dv, _ := root.Int("MinecraftDataVersion")
	h.DataVersion = int(dv)

	var enclosing Pos
	if meta, ok := root.Compound("Metadata"); ok {
		h.Metadata.Raw = meta
		h.Metadata.Name, _ = meta.String("Name")
		h.Metadata.Author, _ = meta.String("Author")
		h.Metadata.Description, _ = meta.String("Description")
		h.Metadata.Created = millis(meta, "TimeCreated")
		h.Metadata.Modified = millis(meta, "TimeModified")
		if size, err := readVec(meta, "EnclosingSize"); err == nil {
			enclosing = Pos{abs(size.X), abs(size.Y), abs(size.Z)}
		}
	}

	regionsTag, ok := root.Compound("Regions")
	if !ok {
		return nil, missing("Regions")
	}
	s := &litematicaSource{palette: NewPalette()}
	s.palette.Intern(Air())

	type placed struct {
		region  Region
		tag     *nbt.Compound
		entries []*nbt.Compound
	}
	var all []placed
	var err error
	regionsTag.Each(func(name string, t nbt.Tag) bool {
		field := "Regions." + name
		c, ok := t.(*nbt.Compound)
		if !ok {
			err = fieldErr(field, fmt.Errorf("unexpected %s", t.Type()))
			return false
		}
		var r Region
		if r.Position, err = readVec(c, "Position"); err != nil {
			err = fieldErr(field, err)
			return false
		}
		if r.Size, err = readVec(c, "Size"); err != nil {
			err = fieldErr(field, err)
			return false
		}
		if err = r.Dimensions().validate(); err != nil {
			err = fieldErr(field+".Size", err)
			return false
		}
		list, ok := c.List("BlockStatePalette")
		if !ok || list.Len() == 0 {
			err = missing(field + ".BlockStatePalette")
			return false
		}
		all = append(all, placed{region: r, tag: c, entries: list.Compounds()})
		return true
	})
	if err != nil {
		return nil, err
	}

	var origin, top Pos
	for i, p := range all {
		lo, hi := p.region.Min(), p.region.Max()
		if i == 0 {
			top = hi
		}
		origin = Pos{min(origin.X, lo.X), min(origin.Y, lo.Y), min(origin.Z, lo.Z)}
		top = Pos{max(top.X, hi.X), max(top.Y, hi.Y), max(top.Z, hi.Z)}
	}
	s.dims = Dimensions{
		Width:  max(enclosing.X, top.X-origin.X+1),
		Height: max(enclosing.Y, top.Y-origin.Y+1),
		Length: max(enclosing.Z, top.Z-origin.Z+1),
	}
	if len(all) == 0 {
		s.dims = Dimensions{enclosing.X, enclosing.Y, enclosing.Z}
	}
	if err := s.dims.validate(); err != nil {
		return nil, err
	}
	h.Offset = origin

	names := regionsTag.Names()
	for i, p := range all {
		field := "Regions." + names[i]
		reg := &litematicaRegion{name: names[i], dims: p.region.Dimensions()}
		lo := p.region.Min()
		reg.lo = Pos{lo.X - origin.X, lo.Y - origin.Y, lo.Z - origin.Z}

		reg.remap = make([]PaletteIndex, len(p.entries))
		for j, e := range p.entries {
			name, ok := e.String("Name")
			if !ok {
				return nil, missing(fmt.Sprintf("%s.BlockStatePalette.%d.Name", field, j))
			}
			var props map[string]string
			if pc, ok := e.Compound("Properties"); ok {
				props = make(map[string]string, pc.Len())
				pc.Each(func(k string, v nbt.Tag) bool {
					if sv, ok := v.(nbt.String); ok {
						props[k] = string(sv)
					}
					return true
				})
			}
			reg.remap[j] = s.palette.Intern(NewBlockState(name, props))
		}

		states, ok := p.tag.LongArray("BlockStates")
		if !ok {
			return nil, missing(field + ".BlockStates")
		}
		reg.cursor, err = newBitCursor(states, bitsPerEntry(len(p.entries)), reg.dims.Volume())
		if err != nil {
			return nil, fieldErr(field+".BlockStates", err)
		}
		s.regions = append(s.regions, reg)

		tiles, _ := p.tag.List("TileEntities")
		h.BlockEntities = append(h.BlockEntities, readBlockEntities(tiles, reg.lo)...)
		ents, _ := p.tag.List("Entities")
		h.Entities = append(h.Entities, readEntities(ents, reg.lo)...)
	}
	return s, nil
}

func (s *litematicaSource) Dimensions() Dimensions { return s.dims }
func (s *litematicaSource) Palette() *Palette      { return s.palette }
func (s *litematicaSource) RandomAccess() bool     { return true }

// ReadLayer composites layer y. Regions are applied in file order, so a later region wins where
// two overlap.
func (s *litematicaSource) ReadLayer(y int, dst []PaletteIndex) error {
	if err := checkLayer(s.dims, y, dst); err != nil {
		return err
	}
	clear(dst)
	for _, r := range s.regions {
		ly := y - r.lo.Y
		if ly < 0 || ly >= r.dims.Height {
			continue
		}
		cur := *r.cursor
		for lz := 0; lz < r.dims.Length; lz++ {
			cur.seek((ly*r.dims.Length+lz)*r.dims.Width)
			row := (r.lo.Z+lz)*s.dims.Width + r.lo.X
			for lx := 0; lx < r.dims.Width; lx++ {
				v := cur.next()
				if int(v) >= len(r.remap) {
					return fieldErr("Regions."+r.name+".BlockStates",
						fmt.Errorf("%w: value %d, palette has %d entries", ErrPaletteIndex, v, len(r.remap)))
				}
				dst[row+lx] = r.remap[v]
			}
		}
	}
	return nil
}
