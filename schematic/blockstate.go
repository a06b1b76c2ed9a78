package schematic

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

const (
	AirName     = "minecraft:air"
	UnknownName = "schem2mesh:unknown"
)

// BlockState is a block name plus its state properties. Two states with the same name and
// property set are the same state regardless of property order.
type BlockState struct {
	Name       string
	Properties map[string]string
}

func NewBlockState(name string, props map[string]string) BlockState {
	if len(props) == 0 {
		props = nil
	}
	return BlockState{Name: name, Properties: props}
}

func Air() BlockState {
	return BlockState{Name: AirName}
}

// Unknown is the placeholder for states that could not be resolved. source names what was
// actually stored in the file so distinct unresolved inputs stay distinct.
func Unknown(source string) BlockState {
	return BlockState{Name: UnknownName, Properties: map[string]string{"source": source}}
}

// Key is the canonical form name[k=v,...] with sorted keys. It is what palettes intern on.
func (b BlockState) Key() string {
	if len(b.Properties) == 0 {
		return b.Name
	}
	var sb strings.Builder
	sb.WriteString(b.Name)
	sb.WriteByte('[')
	for i, k := range slices.Sorted(maps.Keys(b.Properties)) {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(b.Properties[k])
	}
	sb.WriteByte(']')
	return sb.String()
}

func (b BlockState) String() string { return b.Key() }

func (b BlockState) Equal(o BlockState) bool {
	return b.Name == o.Name && maps.Equal(b.Properties, o.Properties)
}

func (b BlockState) IsAir() bool {
	switch b.Name {
	case "minecraft:air", "minecraft:cave_air", "minecraft:void_air", "air":
		return true
	}
	return false
}

func (b BlockState) IsUnknown() bool {
	return b.Name == UnknownName
}

// DisplayName is the name without the minecraft: namespace.
func (b BlockState) DisplayName() string {
	return strings.TrimPrefix(b.Name, "minecraft:")
}

// Property returns a state property, or "" when it is not set.
func (b BlockState) Property(key string) string {
	return b.Properties[key]
}

// ParseBlockState reads the name[key=value,...] form used by Sponge palettes. Property order
// does not matter. A missing closing bracket or a pair without '=' is an error.
func ParseBlockState(s string) (BlockState, error) {
	name, rest, hasProps := strings.Cut(s, "[")
	if name == "" {
		return BlockState{}, fmt.Errorf("schematic: block state %q has no name", s)
	}
	if !hasProps {
		return BlockState{Name: name}, nil
	}
	body, ok := strings.CutSuffix(rest, "]")
	if !ok {
		return BlockState{}, fmt.Errorf("schematic: block state %q is missing ']'", s)
	}
	if body == "" {
		return BlockState{Name: name}, nil
	}
	props := make(map[string]string)
	for _, pair := range strings.Split(body, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return BlockState{}, fmt.Errorf("schematic: block state %q has malformed property %q", s, pair)
		}
		props[k] = v
	}
	return BlockState{Name: name, Properties: props}, nil
}
