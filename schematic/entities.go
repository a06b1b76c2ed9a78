package schematic

import (
	"time"

	"github.com/astei/schem2mesh/nbt"
)

// BlockEntity is the extra data attached to one cell (chest contents, sign text, ...).
type BlockEntity struct {
	ID   string
	Pos  Pos
	Data *nbt.Compound
}

type Entity struct {
	ID   string
	Pos  [3]float64
	Data *nbt.Compound
}

type Metadata struct {
	Name         string
	Author       string
	Description  string
	Created      time.Time
	Modified     time.Time
	RequiredMods []string
	// Raw is the metadata compound as stored, nil when the file has none.
	Raw *nbt.Compound
}

// Biomes holds a Sponge biome palette and one palette id per column (v2) or per cell (v3).
type Biomes struct {
	Palette []string
	Data    []uint32
	PerCell bool
}

func entityID(c *nbt.Compound) string {
	for _, key := range []string{"Id", "id"} {
		if s, ok := c.String(key); ok {
			return s
		}
	}
	return "unknown"
}

// readBlockEntities reads a list of block entity compounds. Positions come from a Pos int array or
// from separate x/y/z ints; shift is added to each.
func readBlockEntities(list *nbt.List, shift Pos) []BlockEntity {
	var out []BlockEntity
	for _, c := range list.Compounds() {
		be := BlockEntity{ID: entityID(c), Data: c}
		if pos, ok := c.IntArray("Pos"); ok && len(pos) >= 3 {
			be.Pos = Pos{int(pos[0]), int(pos[1]), int(pos[2])}
		} else {
			x, _ := c.Int("x")
			y, _ := c.Int("y")
			z, _ := c.Int("z")
			be.Pos = Pos{int(x), int(y), int(z)}
		}
		if data, ok := c.Compound("Data"); ok {
			be.Data = data
		}
		be.Pos = Pos{be.Pos.X + shift.X, be.Pos.Y + shift.Y, be.Pos.Z + shift.Z}
		out = append(out, be)
	}
	return out
}

// readEntities keeps entities that carry a usable position; others are dropped.
func readEntities(list *nbt.List, shift Pos) []Entity {
	var out []Entity
	for _, c := range list.Compounds() {
		pos, ok := c.List("Pos")
		if !ok || pos.Len() < 3 || pos.ElemType() != nbt.TagDouble {
			continue
		}
		e := Entity{ID: entityID(c), Data: c}
		for i := range 3 {
			e.Pos[i] = float64(pos.At(i).(nbt.Double))
		}
		e.Pos[0] += float64(shift.X)
		e.Pos[1] += float64(shift.Y)
		e.Pos[2] += float64(shift.Z)
		out = append(out, e)
	}
	return out
}

func readStringList(list *nbt.List) []string {
	if list == nil || list.ElemType() != nbt.TagString {
		return nil
	}
	out := make([]string, 0, list.Len())
	for _, it := range list.Items() {
		out = append(out, string(it.(nbt.String)))
	}
	return out
}

func millis(c *nbt.Compound, name string) time.Time {
	if ms, ok := c.Int(name); ok && ms > 0 {
		return time.UnixMilli(ms).UTC()
	}
	return time.Time{}
}
