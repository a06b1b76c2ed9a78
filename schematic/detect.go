package schematic

import (
	"fmt"

	"github.com/astei/schem2mesh/nbt"
)

// Format is one of the supported on-disk dialects.
type Format int

const (
	FormatUnknown Format = iota
	FormatLegacy
	FormatSpongeV2
	FormatSpongeV3
	FormatLitematica
)

func (f Format) String() string {
	switch f {
	case FormatLegacy:
		return "legacy"
	case FormatSpongeV2:
		return "sponge-v2"
	case FormatSpongeV3:
		return "sponge-v3"
	case FormatLitematica:
		return "litematica"
	}
	return "unknown"
}

// Detect classifies a decoded root compound by its shape. File names play no part.
func Detect(root *nbt.Compound) (Format, error) {
	if root == nil {
		return FormatUnknown, ErrUnrecognizedFormat
	}
	if root.Has("Schematic", nbt.TagCompound) {
		return FormatSpongeV3, nil
	}
	if version, ok := root.Int("Version"); ok {
		switch {
		case root.Has("Regions", nbt.TagCompound):
			return FormatLitematica, nil
		case root.Has("Palette", nbt.TagCompound) && root.Has("BlockData", nbt.TagByteArray):
			return FormatSpongeV2, nil
		case version >= 3 && root.Has("Blocks", nbt.TagCompound):
			return FormatSpongeV3, nil
		}
	}
	if root.Has("Blocks", nbt.TagByteArray) && root.Has("Data", nbt.TagByteArray) {
		return FormatLegacy, nil
	}
	return FormatUnknown, fmt.Errorf("%w: root has fields %v", ErrUnrecognizedFormat, root.Names())
}
