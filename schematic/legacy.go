package schematic

import (
	"fmt"

	"github.com/astei/schem2mesh/nbt"
)

// legacyKeys is the number of distinct (12-bit id, 4-bit data) pairs.
const legacyKeys = 1 << 16

// legacySource serves the MCEdit byte-array layout. The whole array is resolved while opening, so
// layers can be read in any order and concurrently.
type legacySource struct {
	dims    Dimensions
	palette *Palette
	blocks  nbt.ByteArray
	add     nbt.ByteArray
	data    nbt.ByteArray
	// resolved maps id<<4|data to a palette index plus one; zero means the pair does not occur.
	resolved []PaletteIndex
}

func openLegacy(root *nbt.Compound, h *Header, o *options, w *Warnings) (LayerSource, error) {
	dims, err := readDimensions(root)
	if err != nil {
		return nil, err
	}
	s := &legacySource{dims: dims, palette: NewPalette(), resolved: make([]PaletteIndex, legacyKeys)}
	volume := dims.Volume()

	var ok bool
	if s.blocks, ok = root.ByteArray("Blocks"); !ok {
		return nil, missing("Blocks")
	}
	if s.data, ok = root.ByteArray("Data"); !ok {
		return nil, missing("Data")
	}
	if len(s.blocks) != volume {
		return nil, fieldErr("Blocks", fmt.Errorf("%w: %d bytes for %s", ErrDimensionMismatch, len(s.blocks), dims))
	}
	if len(s.data) != volume {
		return nil, fieldErr("Data", fmt.Errorf("%w: %d bytes for %s", ErrDimensionMismatch, len(s.data), dims))
	}
	if s.add, ok = root.ByteArray("AddBlocks"); ok && len(s.add) < (volume+1)/2 {
		return nil, fieldErr("AddBlocks", fmt.Errorf("%w: %d bytes for %d cells", ErrDimensionMismatch, len(s.add), volume))
	}

	table := o.legacy
	if mapping, ok := root.Compound("SchematicaMapping"); ok {
		names := make(map[int]string, mapping.Len())
		mapping.Each(func(name string, _ nbt.Tag) bool {
			if id, ok := mapping.Int(name); ok {
				names[int(id)] = name
			}
			return true
		})
		table = mappedLegacyTable{names: names, fallback: table}
	}

	cells := make([]uint64, legacyKeys)
	for i := 0; i < volume; i++ {
		cells[s.key(i)]++
	}
	for key, n := range cells {
		if n == 0 {
			continue
		}
		id, data := key>>4, uint8(key&0xf)
		state, ok := table.Resolve(id, data)
		if !ok {
			source := fmt.Sprintf("%d:%d", id, data)
			state = Unknown(source)
			w.addUnknown(source, n)
		}
		s.resolved[key] = s.palette.Intern(state) + 1
	}

	x, _ := root.Int("WEOffsetX")
	y, _ := root.Int("WEOffsetY")
	z, _ := root.Int("WEOffsetZ")
	h.Offset = Pos{int(x), int(y), int(z)}
	if materials, ok := root.String("Materials"); ok {
		h.Metadata.Description = materials
	}
	tiles, _ := root.List("TileEntities")
	h.BlockEntities = readBlockEntities(tiles, Pos{})
	entities, _ := root.List("Entities")
	h.Entities = readEntities(entities, Pos{})
	return s, nil
}

// key combines the 12-bit block id and the data nibble of cell i.
func (s *legacySource) key(i int) int {
	id := int(uint8(s.blocks[i]))
	if s.add != nil {
		nibble := uint8(s.add[i/2])
		if i%2 == 0 {
			nibble &= 0x0f
		} else {
			nibble >>= 4
		}
		id |= int(nibble) << 8
	}
	return id<<4 | int(uint8(s.data[i])&0x0f)
}

func (s *legacySource) Dimensions() Dimensions { return s.dims }
func (s *legacySource) Palette() *Palette      { return s.palette }
func (s *legacySource) RandomAccess() bool     { return true }

func (s *legacySource) ReadLayer(y int, dst []PaletteIndex) error {
	if err := checkLayer(s.dims, y, dst); err != nil {
		return err
	}
	base := y * s.dims.LayerArea()
	for j := range dst {
		dst[j] = s.resolved[s.key(base+j)] - 1
	}
	return nil
}
