package mesh

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/astei/schem2mesh/schematic"
)

var (
	slabBottom = px(0, 0, 0, 16, 8, 16)
	slabTop    = px(0, 8, 0, 16, 16, 16)
	fencePost  = px(6, 0, 6, 10, 16, 10)
	wallPost   = px(4, 0, 4, 12, 16, 12)
	panePost   = px(7, 0, 7, 9, 16, 9)
	paneNS     = px(7, 0, 0, 9, 16, 16)
	paneEW     = px(0, 0, 7, 16, 16, 9)
	carpet     = px(0, 0, 0, 16, 1, 16)
	plate      = px(1, 0, 1, 15, 1, 15)
	rail       = px(0, 0, 0, 16, 2, 16)
	repeater   = px(0, 0, 0, 16, 2, 16)
	bed        = px(0, 0, 0, 16, 9, 16)
	chest      = px(1, 0, 1, 15, 14, 15)
	torch      = px(7, 0, 7, 9, 10, 9)
	candle     = px(7, 0, 7, 9, 6, 9)
	rod        = px(6, 0, 6, 10, 16, 10)
	chain      = px(6.5, 0, 6.5, 9.5, 16, 9.5)
	head       = px(4, 0, 4, 12, 8, 12)
	flowerPot  = px(5, 0, 5, 11, 6, 11)
	anvil      = px(2, 0, 0, 14, 16, 16)
	bell       = px(4, 4, 4, 12, 16, 12)

	// thin slabs hugging one side of the cell, used by doors, ladders and open trapdoors
	sideNorth = px(0, 0, 0, 16, 16, 3)
	sideSouth = px(0, 0, 13, 16, 16, 16)
	sideWest  = px(0, 0, 0, 3, 16, 16)
	sideEast  = px(13, 0, 0, 16, 16, 16)

	cauldronShell = []Box{
		px(0, 0, 0, 16, 4, 16),
		px(0, 4, 0, 2, 16, 16),
		px(14, 4, 0, 16, 16, 16),
		px(2, 4, 0, 14, 16, 2),
		px(2, 4, 14, 14, 16, 16),
	}
)

func side(facing string) Box {
	switch facing {
	case "south":
		return sideSouth
	case "west":
		return sideWest
	case "east":
		return sideEast
	}
	return sideNorth
}

func partial(boxes ...Box) Geometry {
	return Geometry{Kind: KindPartial, Boxes: boxes}
}

func prop(s schematic.BlockState, key, def string) string {
	if v, ok := s.Properties[key]; ok {
		return v
	}
	return def
}

// DefaultProvider knows the shapes of common non-cube blocks, liquids and transparency classes.
// Anything it does not recognize is a full opaque cube. The placeholder for unresolved states has
// no geometry.
type DefaultProvider struct{}

func (DefaultProvider) Resolve(s schematic.BlockState) (Geometry, error) {
	if s.IsUnknown() {
		return Geometry{}, fmt.Errorf("%w: %s", ErrNoGeometry, s)
	}
	if s.IsAir() {
		return Empty, nil
	}
	name := s.DisplayName()
	g := shape(name, s)
	if g.Kind == KindCube || g.Kind == KindPartial {
		g.Transparency = transparency(name)
	}
	return g, nil
}

func transparency(name string) Transparency {
	switch {
	case strings.Contains(name, "glass"):
		return Glass
	case strings.HasSuffix(name, "leaves"):
		return Leaves
	case name == "ice" || name == "frosted_ice":
		return Ice
	}
	return Opaque
}

// LiquidHeight is the surface height of a fluid cell: a source is 8/9 of a block, flowing levels
// 1-7 drop by a ninth each, and falling fluid (level 8+) or fluid under the same fluid fills the
// cell.
func LiquidHeight(level int, sameAbove bool) float32 {
	switch {
	case sameAbove || level >= 8:
		return 1
	case level <= 0:
		return 8.0 / 9
	}
	return float32(8-level) / 9
}

func liquid(fluid string, s schematic.BlockState) Geometry {
	level, _ := strconv.Atoi(prop(s, "level", "0"))
	t := Opaque
	if fluid == "water" {
		t = Water
	}
	return Geometry{
		Kind:         KindLiquid,
		Transparency: t,
		Liquid:       &Liquid{Fluid: fluid, Height: LiquidHeight(level, false), Transparency: t},
	}
}

func cauldron(name string, s schematic.BlockState) Geometry {
	g := partial(cauldronShell...)
	switch name {
	case "water_cauldron", "powder_snow_cauldron":
		level, _ := strconv.Atoi(prop(s, "level", "1"))
		level = max(1, min(level, 3))
		fluid, t := "water", Water
		if name == "powder_snow_cauldron" {
			fluid, t = "powder_snow", Opaque
		}
		g.Liquid = &Liquid{Fluid: fluid, Height: float32(6+3*level) / 16, Transparency: t}
	case "lava_cauldron":
		g.Liquid = &Liquid{Fluid: "lava", Height: 15.0 / 16, Transparency: Opaque}
	}
	return g
}

func stairs(s schematic.BlockState) Geometry {
	top := prop(s, "half", "bottom") == "top"
	base, lo, hi := slabBottom, float32(8), float32(16)
	if top {
		base, lo, hi = slabTop, 0, 8
	}
	var step Box
	switch prop(s, "facing", "north") {
	case "south":
		step = px(0, lo, 8, 16, hi, 16)
	case "west":
		step = px(0, lo, 0, 8, hi, 16)
	case "east":
		step = px(8, lo, 0, 16, hi, 16)
	default:
		step = px(0, lo, 0, 16, hi, 8)
	}
	return partial(base, step)
}

var doorSwing = map[[2]string]string{
	{"north", "left"}: "west", {"north", "right"}: "east",
	{"south", "left"}: "east", {"south", "right"}: "west",
	{"west", "left"}: "south", {"west", "right"}: "north",
	{"east", "left"}: "north", {"east", "right"}: "south",
}

func door(s schematic.BlockState) Geometry {
	facing := prop(s, "facing", "north")
	if prop(s, "open", "false") == "true" {
		if swung, ok := doorSwing[[2]string{facing, prop(s, "hinge", "left")}]; ok {
			facing = swung
		}
	}
	return partial(side(facing))
}

func trapdoor(s schematic.BlockState) Geometry {
	if prop(s, "open", "false") == "true" {
		opposite := map[string]string{"north": "south", "south": "north", "west": "east", "east": "west"}
		return partial(side(opposite[prop(s, "facing", "north")]))
	}
	if prop(s, "half", "bottom") == "top" {
		return partial(px(0, 13, 0, 16, 16, 16))
	}
	return partial(px(0, 0, 0, 16, 3, 16))
}

func button(s schematic.BlockState) Geometry {
	switch prop(s, "face", "wall") {
	case "floor":
		return partial(px(5, 0, 6, 11, 2, 10))
	case "ceiling":
		return partial(px(5, 14, 6, 11, 16, 10))
	}
	switch prop(s, "facing", "north") {
	case "south":
		return partial(px(5, 6, 0, 11, 10, 2))
	case "west":
		return partial(px(14, 6, 5, 16, 10, 11))
	case "east":
		return partial(px(0, 6, 5, 2, 10, 11))
	}
	return partial(px(5, 6, 14, 11, 10, 16))
}

func lever(s schematic.BlockState) Geometry {
	switch prop(s, "face", "wall") {
	case "floor":
		return partial(px(5, 0, 4, 11, 10, 12))
	case "ceiling":
		return partial(px(5, 6, 4, 11, 16, 12))
	}
	switch prop(s, "facing", "north") {
	case "south":
		return partial(px(5, 4, 0, 11, 12, 6))
	case "west":
		return partial(px(10, 4, 5, 16, 12, 11))
	case "east":
		return partial(px(0, 4, 5, 6, 12, 11))
	}
	return partial(px(5, 4, 10, 11, 12, 16))
}

func wallTorch(s schematic.BlockState) Geometry {
	switch prop(s, "facing", "north") {
	case "north":
		return partial(px(7, 3, 9, 9, 13, 16))
	case "south":
		return partial(px(7, 3, 0, 9, 13, 7))
	case "west":
		return partial(px(9, 3, 7, 16, 13, 9))
	case "east":
		return partial(px(0, 3, 7, 7, 13, 9))
	}
	return partial(torch)
}

var plantWords = []string{
	"flower", "tulip", "orchid", "allium", "bluet", "dandelion", "poppy", "rose", "lily", "sapling",
	"fern", "crop", "wheat", "carrot", "potato", "beetroot", "melon_stem", "pumpkin_stem", "vine",
	"kelp", "seagrass", "bush", "sugar_cane",
}

func isPlant(name string) bool {
	if strings.HasSuffix(name, "_block") || strings.HasSuffix(name, "leaves") {
		return false
	}
	for _, w := range plantWords {
		if strings.Contains(name, w) {
			return true
		}
	}
	switch {
	case strings.Contains(name, "grass"), strings.Contains(name, "coral"):
		return true
	case strings.Contains(name, "bamboo"):
		return !strings.Contains(name, "planks") && !strings.Contains(name, "mosaic")
	case strings.Contains(name, "mushroom"):
		return name != "mushroom_stem"
	}
	return false
}

// shape maps a namespace-less block name to its geometry.
func shape(name string, s schematic.BlockState) Geometry {
	switch name {
	case "water", "bubble_column":
		return liquid("water", s)
	case "lava":
		return liquid("lava", s)
	case "snow":
		layers, err := strconv.Atoi(prop(s, "layers", "1"))
		if err != nil || layers < 1 {
			layers = 1
		}
		return partial(px(0, 0, 0, 16, float32(min(layers, 8)*2), 16))
	case "lever":
		return lever(s)
	case "ladder":
		return partial(side(map[string]string{"north": "south", "south": "north", "west": "east", "east": "west"}[prop(s, "facing", "north")]))
	case "enchanting_table":
		return partial(px(0, 0, 0, 16, 12, 16))
	case "end_portal_frame":
		return partial(px(0, 0, 0, 16, 13, 16))
	case "hopper":
		return partial(px(0, 10, 0, 16, 16, 16), px(4, 4, 4, 12, 10, 12), px(6, 0, 6, 10, 4, 10))
	case "lectern":
		return partial(px(0, 0, 0, 16, 2, 16), px(4, 2, 4, 12, 14, 12), px(0, 14, 0, 16, 16, 16))
	case "brewing_stand":
		return partial(px(0, 0, 0, 16, 14, 16))
	case "bell":
		return partial(bell)
	case "flower_pot":
		return partial(flowerPot)
	case "chain":
		return partial(chain)
	case "end_rod", "lightning_rod":
		return partial(rod)
	case "redstone_wire", "tripwire", "fire", "soul_fire", "nether_portal", "structure_void":
		return Empty
	case "iron_bars":
		return partial(panePost)
	}

	switch {
	case strings.HasSuffix(name, "cauldron"):
		return cauldron(name, s)
	case strings.Contains(name, "slab"):
		switch prop(s, "type", "bottom") {
		case "top":
			return partial(slabTop)
		case "double":
			return Cube
		}
		return partial(slabBottom)
	case strings.Contains(name, "stairs"):
		return stairs(s)
	case strings.Contains(name, "trapdoor"):
		return trapdoor(s)
	case strings.Contains(name, "door"):
		return door(s)
	case strings.Contains(name, "fence_gate"):
		if prop(s, "open", "false") == "true" {
			return Empty
		}
		if f := prop(s, "facing", "north"); f == "north" || f == "south" {
			return partial(paneEW)
		}
		return partial(paneNS)
	case strings.Contains(name, "fence"):
		return partial(fencePost)
	case strings.Contains(name, "sign"), strings.Contains(name, "banner"):
		return Empty
	case strings.HasSuffix(name, "_wall") && !strings.Contains(name, "torch") && !strings.Contains(name, "head") && !strings.Contains(name, "skull"):
		return partial(wallPost)
	case strings.Contains(name, "pane"):
		return partial(panePost)
	case strings.Contains(name, "carpet"):
		return partial(carpet)
	case strings.Contains(name, "pressure_plate"):
		return partial(plate)
	case strings.Contains(name, "button"):
		return button(s)
	case strings.Contains(name, "wall_torch"):
		return wallTorch(s)
	case strings.Contains(name, "torch"):
		return partial(torch)
	case strings.Contains(name, "lantern") && name != "sea_lantern" && name != "jack_o_lantern":
		if prop(s, "hanging", "false") == "true" {
			return partial(px(5, 1, 5, 11, 8, 11))
		}
		return partial(px(5, 0, 5, 11, 7, 11))
	case strings.Contains(name, "candle"):
		return partial(candle)
	case strings.Contains(name, "rail"):
		return partial(rail)
	case strings.Contains(name, "repeater"), strings.Contains(name, "comparator"):
		return partial(repeater)
	case strings.HasSuffix(name, "_bed"):
		return partial(bed)
	case strings.Contains(name, "chest"):
		return partial(chest)
	case strings.Contains(name, "anvil"):
		return partial(anvil)
	case strings.HasPrefix(name, "potted_"):
		return partial(flowerPot)
	case strings.Contains(name, "head"), strings.Contains(name, "skull"):
		return partial(head)
	case isPlant(name):
		return Empty
	}
	return Cube
}
