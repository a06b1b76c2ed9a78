package schematic

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/astei/schem2mesh/nbt"
)

// LayerSource yields a schematic's block array one horizontal layer at a time. ReadLayer fills dst,
// which must hold Dimensions().LayerArea() entries, with layer y in Z-then-X order.
//
// Sources that are not RandomAccess must be read from y = 0 upwards, each layer exactly once.
// RandomAccess sources may be read in any order and from several goroutines at once.
type LayerSource interface {
	Dimensions() Dimensions
	Palette() *Palette
	ReadLayer(y int, dst []PaletteIndex) error
	RandomAccess() bool
}

// Header is everything a schematic carries besides its block array.
type Header struct {
	Format        Format
	Name          string
	Version       int
	DataVersion   int
	Offset        Pos
	Metadata      Metadata
	BlockEntities []BlockEntity
	Entities      []Entity
	Biomes        *Biomes
}

// Source is an opened schematic whose block array has not been expanded yet.
type Source struct {
	Header
	LayerSource
	warnings *Warnings
}

// Warnings is complete once every layer has been read.
func (s *Source) Warnings() *Warnings { return s.warnings }

// Schematic is a fully loaded schematic.
type Schematic struct {
	Header
	Grid     *Grid
	Warnings Warnings
}

// LegacyTable resolves numeric legacy block ids and data values.
type LegacyTable interface {
	Resolve(id int, data uint8) (BlockState, bool)
}

type Option func(*options)

type options struct {
	legacy LegacyTable
	logger *slog.Logger
}

// WithLegacyTable replaces the built-in legacy id table.
func WithLegacyTable(t LegacyTable) Option {
	return func(o *options) { o.legacy = t }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func newOptions(opts []Option) *options {
	o := &options{legacy: DefaultLegacyTable}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// dialect reads one on-disk layout: it fills the header and returns the layer source for the
// block array.
type dialect func(root *nbt.Compound, h *Header, o *options, w *Warnings) (LayerSource, error)

var dialects = map[Format]dialect{
	FormatLegacy:     openLegacy,
	FormatSpongeV2:   openSponge,
	FormatSpongeV3:   openSponge,
	FormatLitematica: openLitematica,
}

// Open detects the dialect of root and prepares its block array for reading.
func Open(root *nbt.Compound, opts ...Option) (*Source, error) {
	o := newOptions(opts)
	format, err := Detect(root)
	if err != nil {
		return nil, err
	}
	src := &Source{warnings: &Warnings{}}
	src.Format = format
	layers, err := dialects[format](root, &src.Header, o, src.warnings)
	if err != nil {
		return nil, fmt.Errorf("open %s schematic: %w", format, err)
	}
	src.LayerSource = layers
	o.logger.Debug("opened schematic",
		"format", format.String(),
		"dimensions", layers.Dimensions().String(),
		"palette", layers.Palette().Len(),
		"random_access", layers.RandomAccess())
	return src, nil
}

// OpenReader decodes the tag tree from r (gzip, zlib or raw) and opens it.
func OpenReader(r io.Reader, opts ...Option) (*Source, error) {
	name, root, err := nbt.DecodeCompound(r)
	if err != nil {
		return nil, err
	}
	src, err := Open(root, opts...)
	if err != nil {
		return nil, err
	}
	src.Name = name
	return src, nil
}

func OpenFile(path string, opts ...Option) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return OpenReader(f, opts...)
}

// ReadAll expands every layer into a Grid. A source can only be read once.
func (s *Source) ReadAll() (*Schematic, error) {
	dims := s.Dimensions()
	area := dims.LayerArea()
	cells := make([]PaletteIndex, dims.Volume())
	for y := 0; y < dims.Height; y++ {
		if err := s.ReadLayer(y, cells[y*area:(y+1)*area]); err != nil {
			return nil, err
		}
	}
	grid, err := NewGrid(dims, s.Palette(), cells)
	if err != nil {
		return nil, err
	}
	return &Schematic{Header: s.Header, Grid: grid, Warnings: *s.warnings}, nil
}

// Load reads and fully decodes a schematic.
func Load(r io.Reader, opts ...Option) (*Schematic, error) {
	src, err := OpenReader(r, opts...)
	if err != nil {
		return nil, err
	}
	return src.ReadAll()
}

func LoadFile(path string, opts ...Option) (*Schematic, error) {
	src, err := OpenFile(path, opts...)
	if err != nil {
		return nil, err
	}
	return src.ReadAll()
}

// readDimension reads a size field. Shorts are unsigned on disk; wider ints are taken as is.
func readDimension(c *nbt.Compound, field string) (int, error) {
	t, ok := c.Get(field)
	if !ok {
		return 0, missing(field)
	}
	switch v := t.(type) {
	case nbt.Short:
		return int(uint16(v)), nil
	case nbt.Byte, nbt.Int, nbt.Long:
		n, _ := c.Int(field)
		return int(n), nil
	}
	return 0, fieldErr(field, fmt.Errorf("unexpected %s", t.Type()))
}

func readDimensions(c *nbt.Compound) (Dimensions, error) {
	var d Dimensions
	var err error
	if d.Width, err = readDimension(c, "Width"); err != nil {
		return d, err
	}
	if d.Height, err = readDimension(c, "Height"); err != nil {
		return d, err
	}
	if d.Length, err = readDimension(c, "Length"); err != nil {
		return d, err
	}
	return d, d.validate()
}

func checkLayer(d Dimensions, y int, dst []PaletteIndex) error {
	if y < 0 || y >= d.Height {
		return fmt.Errorf("schematic: layer %d outside 0..%d", y, d.Height-1)
	}
	if len(dst) != d.LayerArea() {
		return fmt.Errorf("schematic: layer buffer holds %d cells, want %d", len(dst), d.LayerArea())
	}
	return nil
}
