package schematic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLegacyTable(t *testing.T) {
	tests := []struct {
		id   int
		data uint8
		want string
	}{
		{0, 0, "minecraft:air"},
		{1, 0, "minecraft:stone"},
		{1, 3, "minecraft:diorite"},
		{1, 9, "minecraft:stone"},
		{35, 14, "minecraft:red_wool"},
		{95, 3, "minecraft:light_blue_stained_glass"},
		{17, 5, "minecraft:spruce_log[axis=x]"},
		{18, 9, "minecraft:spruce_leaves"},
		{233, 0, "minecraft:red_shulker_box"},
		{250, 0, "minecraft:black_glazed_terracotta"},
		{64, 0, "minecraft:oak_door"},
		{69, 13, "minecraft:lever[face=floor,powered=true]"},
		{94, 5, "minecraft:repeater[delay=2,facing=west,powered=true]"},
		{154, 8, "minecraft:hopper[enabled=false,facing=down]"},
		{66, 7, "minecraft:rail[shape=south_west]"},
		{50, 5, "minecraft:torch"},
		{8, 3, "minecraft:water[level=3]"},
	}
	for _, tt := range tests {
		st, ok := DefaultLegacyTable.Resolve(tt.id, tt.data)
		require.Truef(t, ok, "%d:%d", tt.id, tt.data)
		assert.Equalf(t, tt.want, st.Key(), "%d:%d", tt.id, tt.data)
	}

	_, ok := DefaultLegacyTable.Resolve(253, 0)
	assert.False(t, ok)
	_, ok = DefaultLegacyTable.Resolve(4000, 0)
	assert.False(t, ok)
}
