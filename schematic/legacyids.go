package schematic

import "strconv"

var colors = [16]string{
	"white", "orange", "magenta", "light_blue", "yellow", "lime", "pink", "gray",
	"light_gray", "cyan", "purple", "blue", "brown", "green", "red", "black",
}

// legacyNames covers ids whose name does not depend on the data value.
var legacyNames = map[int]string{
	0: "air", 2: "grass_block", 4: "cobblestone", 7: "bedrock", 8: "water", 9: "water",
	10: "lava", 11: "lava", 13: "gravel", 14: "gold_ore", 15: "iron_ore", 16: "coal_ore",
	20: "glass", 21: "lapis_ore", 22: "lapis_block", 23: "dispenser", 24: "sandstone",
	25: "note_block", 29: "sticky_piston", 33: "piston", 41: "gold_block", 42: "iron_block",
	45: "bricks", 46: "tnt", 47: "bookshelf", 48: "mossy_cobblestone", 49: "obsidian",
	50: "torch", 52: "spawner", 53: "oak_stairs", 54: "chest", 55: "redstone_wire",
	56: "diamond_ore", 57: "diamond_block", 58: "crafting_table", 61: "furnace", 62: "furnace",
	63: "oak_sign", 64: "oak_door", 65: "ladder", 66: "rail", 67: "cobblestone_stairs",
	69: "lever", 70: "stone_pressure_plate", 72: "oak_pressure_plate", 73: "redstone_ore",
	74: "redstone_ore", 75: "redstone_torch", 76: "redstone_torch", 77: "stone_button",
	79: "ice", 80: "snow_block", 81: "cactus", 82: "clay", 84: "jukebox", 85: "oak_fence",
	86: "pumpkin", 87: "netherrack", 88: "soul_sand", 89: "glowstone", 90: "nether_portal",
	91: "jack_o_lantern", 93: "repeater", 94: "repeater", 109: "stone_brick_stairs",
	110: "mycelium", 112: "nether_bricks", 121: "end_stone", 123: "redstone_lamp",
	124: "redstone_lamp", 129: "emerald_ore", 130: "ender_chest",
	131: "tripwire_hook", 133: "emerald_block", 134: "spruce_stairs", 135: "birch_stairs",
	136: "jungle_stairs", 137: "command_block", 138: "beacon", 139: "cobblestone_wall",
	143: "oak_button", 145: "anvil", 146: "trapped_chest", 147: "light_weighted_pressure_plate",
	148: "heavy_weighted_pressure_plate", 149: "comparator", 150: "comparator",
	151: "daylight_detector", 152: "redstone_block", 153: "nether_quartz_ore", 154: "hopper",
	155: "quartz_block", 156: "quartz_stairs", 157: "activator_rail", 158: "dropper",
	165: "slime_block", 166: "barrier", 169: "sea_lantern",
	170: "hay_block", 172: "terracotta", 173: "coal_block", 174: "packed_ice",
	178: "daylight_detector", 179: "red_sandstone", 180: "red_sandstone_stairs",
	183: "spruce_fence_gate", 184: "birch_fence_gate", 185: "jungle_fence_gate",
	186: "dark_oak_fence_gate", 187: "acacia_fence_gate", 188: "spruce_fence", 189: "birch_fence",
	190: "jungle_fence", 191: "dark_oak_fence", 192: "acacia_fence", 198: "end_rod",
	199: "chorus_plant", 200: "chorus_flower", 201: "purpur_block", 202: "purpur_pillar",
	203: "purpur_stairs", 206: "end_stone_bricks", 210: "repeating_command_block",
	211: "chain_command_block", 213: "magma_block", 214: "nether_wart_block",
	215: "red_nether_bricks", 216: "bone_block", 218: "observer",
}

// legacyVariants covers ids whose name is picked by the data value. Out of range data falls back
// to the first entry.
var legacyVariants = map[int][]string{
	1:   {"stone", "granite", "polished_granite", "diorite", "polished_diorite", "andesite", "polished_andesite"},
	3:   {"dirt", "coarse_dirt", "podzol"},
	5:   {"oak_planks", "spruce_planks", "birch_planks", "jungle_planks", "acacia_planks", "dark_oak_planks"},
	12:  {"sand", "red_sand"},
	17:  {"oak_log", "spruce_log", "birch_log", "jungle_log"},
	18:  {"oak_leaves", "spruce_leaves", "birch_leaves", "jungle_leaves"},
	98:  {"stone_bricks", "mossy_stone_bricks", "cracked_stone_bricks", "chiseled_stone_bricks"},
	126: {"oak_slab", "spruce_slab", "birch_slab", "jungle_slab", "acacia_slab", "dark_oak_slab"},
}

// colored ids take their color from the data value.
var legacyColored = map[int]string{
	35:  "wool",
	95:  "stained_glass",
	159: "terracotta",
	160: "stained_glass_pane",
	251: "concrete",
	252: "concrete_powder",
}

func legacyName(id int, data uint8) (string, bool) {
	if n, ok := legacyNames[id]; ok {
		return n, true
	}
	if v, ok := legacyVariants[id]; ok {
		if id == 17 || id == 18 {
			// upper bits are axis or decay flags
			data &= 3
		}
		if int(data) < len(v) {
			return v[data], true
		}
		return v[0], true
	}
	if suffix, ok := legacyColored[id]; ok {
		return colors[data&0xf] + "_" + suffix, true
	}
	switch {
	case id >= 219 && id <= 234:
		return colors[id-219] + "_shulker_box", true
	case id >= 235 && id <= 250:
		return colors[id-235] + "_glazed_terracotta", true
	}
	return "", false
}

var (
	stairIDs = map[int]bool{53: true, 67: true, 108: true, 109: true, 114: true, 128: true, 134: true,
		135: true, 136: true, 156: true, 163: true, 164: true, 180: true, 203: true}
	railShapes = [...]string{"north_south", "east_west", "ascending_east", "ascending_west",
		"ascending_north", "ascending_south", "south_east", "south_west", "north_west", "north_east"}
	sixFacings = [...]string{"down", "up", "north", "south", "west", "east"}
)

func boolProp(b bool) string { return strconv.FormatBool(b) }

// legacyProperties derives modern state properties from a legacy data value.
func legacyProperties(id int, data uint8) map[string]string {
	p := make(map[string]string)
	switch {
	case id == 17 || id == 162:
		p["axis"] = [...]string{"y", "x", "z", "y"}[(data>>2)&3]
	case stairIDs[id]:
		p["facing"] = [...]string{"east", "west", "south", "north"}[data&3]
		p["half"] = "bottom"
		if data&4 != 0 {
			p["half"] = "top"
		}
	case id == 50 || id == 75 || id == 76:
		if data >= 1 && data <= 4 {
			p["facing"] = [...]string{"east", "west", "south", "north"}[data-1]
		}
	case id == 69:
		switch data & 7 {
		case 0, 7:
			p["face"] = "ceiling"
		case 5, 6:
			p["face"] = "floor"
		default:
			p["face"] = "wall"
		}
		p["powered"] = boolProp(data&8 != 0)
	case id == 77 || id == 143:
		switch data & 7 {
		case 0:
			p["face"] = "ceiling"
		case 5:
			p["face"] = "floor"
		default:
			p["face"] = "wall"
		}
		p["powered"] = boolProp(data&8 != 0)
	case id == 93 || id == 94:
		p["facing"] = [...]string{"south", "west", "north", "east"}[data&3]
		p["delay"] = strconv.Itoa(int((data>>2)&3) + 1)
		p["powered"] = boolProp(id == 94)
	case id == 149 || id == 150:
		p["facing"] = [...]string{"south", "west", "north", "east"}[data&3]
		p["mode"] = "compare"
		if data&4 != 0 {
			p["mode"] = "subtract"
		}
		p["powered"] = boolProp(data&8 != 0)
	case id == 29 || id == 33:
		p["facing"] = "up"
		if d := data & 7; int(d) < len(sixFacings) {
			p["facing"] = sixFacings[d]
		}
		p["extended"] = boolProp(data&8 != 0)
	case id == 23 || id == 158 || id == 218:
		p["facing"] = "north"
		if d := data & 7; int(d) < len(sixFacings) {
			p["facing"] = sixFacings[d]
		}
		if id != 218 {
			p["triggered"] = boolProp(data&8 != 0)
		}
	case id == 154:
		p["facing"] = "down"
		if d := data & 7; d >= 2 && int(d) < len(sixFacings) {
			p["facing"] = sixFacings[d]
		}
		p["enabled"] = boolProp(data&8 == 0)
	case id == 55:
		p["power"] = strconv.Itoa(int(data & 0xf))
	case id == 66:
		p["shape"] = "north_south"
		if int(data) < len(railShapes) {
			p["shape"] = railShapes[data]
		}
	case id == 8 || id == 9 || id == 10 || id == 11:
		p["level"] = strconv.Itoa(int(data & 0xf))
	}
	if len(p) == 0 {
		return nil
	}
	return p
}

type builtinLegacyTable struct{}

// DefaultLegacyTable maps the pre-flattening numeric ids to modern block states.
var DefaultLegacyTable LegacyTable = builtinLegacyTable{}

func (builtinLegacyTable) Resolve(id int, data uint8) (BlockState, bool) {
	name, ok := legacyName(id, data&0xf)
	if !ok {
		return BlockState{}, false
	}
	return NewBlockState("minecraft:"+name, legacyProperties(id, data&0xf)), true
}

// mappedLegacyTable resolves through a file's own name->id mapping first.
type mappedLegacyTable struct {
	names    map[int]string
	fallback LegacyTable
}

func (t mappedLegacyTable) Resolve(id int, data uint8) (BlockState, bool) {
	if name, ok := t.names[id]; ok {
		return BlockState{Name: name}, true
	}
	return t.fallback.Resolve(id, data)
}
