package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/astei/schem2mesh/internal/metrics"
	"github.com/astei/schem2mesh/mesh"
	"github.com/astei/schem2mesh/schematic"
	"github.com/astei/schem2mesh/stream"
)

var errUsage = errors.New("missing arguments")

func loadArg(c *cli.Context) (*schematic.Schematic, error) {
	if c.NArg() == 0 {
		return nil, fmt.Errorf("%w: need a schematic to work with", errUsage)
	}
	logger := appLogger(c)
	s, err := schematic.LoadFile(c.Args().First(), schematic.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if !s.Warnings.Empty() {
		logger.Warn("schematic loaded with unresolved blocks", "summary", s.Warnings.String())
	}
	return s, nil
}

var infoCommand = &cli.Command{
	Name:      "info",
	Usage:     "prints what a schematic contains",
	ArgsUsage: "<file>",
	Action: func(c *cli.Context) error {
		s, err := loadArg(c)
		if err != nil {
			return err
		}
		w := c.App.Writer
		d := s.Grid.Dimensions()
		_, _ = fmt.Fprintf(w, "format:      %s (version %d, data version %d)\n", s.Format, s.Version, s.DataVersion)
		if name := s.Metadata.Name; name != "" {
			_, _ = fmt.Fprintf(w, "name:        %s\n", name)
		}
		if s.Metadata.Author != "" {
			_, _ = fmt.Fprintf(w, "author:      %s\n", s.Metadata.Author)
		}
		if !s.Metadata.Created.IsZero() {
			_, _ = fmt.Fprintf(w, "created:     %s (%s)\n", s.Metadata.Created.Format("2006-01-02 15:04"), humanize.Time(s.Metadata.Created))
		}
		_, _ = fmt.Fprintf(w, "dimensions:  %s (%s cells)\n", d, humanize.Comma(int64(d.Volume())))
		_, _ = fmt.Fprintf(w, "offset:      %d %d %d\n", s.Offset.X, s.Offset.Y, s.Offset.Z)
		_, _ = fmt.Fprintf(w, "blocks:      %s solid, %d distinct\n", humanize.Comma(int64(s.Grid.Solid())), s.Grid.Unique())
		_, _ = fmt.Fprintf(w, "palette:     %d entries\n", s.Grid.Palette().Len())
		_, _ = fmt.Fprintf(w, "entities:    %d block entities, %d entities\n", len(s.BlockEntities), len(s.Entities))
		if len(s.Metadata.RequiredMods) > 0 {
			_, _ = fmt.Fprintf(w, "mods:        %s\n", strings.Join(s.Metadata.RequiredMods, ", "))
		}
		if !s.Warnings.Empty() {
			_, _ = fmt.Fprintf(w, "warnings:    %s\n", s.Warnings.String())
		}
		return nil
	},
}

var blocksCommand = &cli.Command{
	Name:      "blocks",
	Usage:     "lists block counts, most common first",
	ArgsUsage: "<file>",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "limit", Usage: "show at most this many rows (0 for all)"},
		&cli.BoolFlag{Name: "air", Usage: "include air"},
	},
	Action: func(c *cli.Context) error {
		s, err := loadArg(c)
		if err != nil {
			return err
		}
		limit := c.Int("limit")
		shown := 0
		for _, bc := range s.Grid.Counts() {
			if bc.State.IsAir() && !c.Bool("air") {
				continue
			}
			if limit > 0 && shown == limit {
				break
			}
			_, _ = fmt.Fprintf(c.App.Writer, "%12s  %s\n", humanize.Comma(int64(bc.Count)), bc.State)
			shown++
		}
		return nil
	},
}

var paletteCommand = &cli.Command{
	Name:      "palette",
	Usage:     "prints the palette in index order",
	ArgsUsage: "<file>",
	Action: func(c *cli.Context) error {
		s, err := loadArg(c)
		if err != nil {
			return err
		}
		for i, st := range s.Grid.Palette().States() {
			_, _ = fmt.Fprintf(c.App.Writer, "%5d  %s\n", i, st)
		}
		return nil
	},
}

var getCommand = &cli.Command{
	Name:      "get",
	Usage:     "prints the block at a position",
	ArgsUsage: "<file> <x> <y> <z>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 4 {
			return fmt.Errorf("%w: need a schematic and three coordinates", errUsage)
		}
		var pos [3]int
		for i := range pos {
			n, err := strconv.Atoi(c.Args().Get(i + 1))
			if err != nil {
				return fmt.Errorf("coordinate %q: %w", c.Args().Get(i+1), err)
			}
			pos[i] = n
		}
		s, err := loadArg(c)
		if err != nil {
			return err
		}
		st, ok := s.Grid.Get(pos[0], pos[1], pos[2])
		if !ok {
			return fmt.Errorf("%d %d %d is outside %s", pos[0], pos[1], pos[2], s.Grid.Dimensions())
		}
		_, _ = fmt.Fprintln(c.App.Writer, st)
		for _, be := range s.BlockEntities {
			if be.Pos == (schematic.Pos{X: pos[0], Y: pos[1], Z: pos[2]}) {
				_, _ = fmt.Fprintf(c.App.Writer, "block entity: %s\n", be.ID)
			}
		}
		return nil
	},
}

var meshCommand = &cli.Command{
	Name:      "mesh",
	Usage:     "converts a schematic to quads",
	ArgsUsage: "<file>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (zstd compressed JSON lines)", Required: true},
		&cli.IntFlag{Name: "threshold", Usage: "mesh in chunks above this many cells"},
		&cli.IntFlag{Name: "chunk-layers", Usage: "layers per chunk"},
		&cli.IntFlag{Name: "workers", Usage: "chunks meshed concurrently"},
		&cli.BoolFlag{Name: "no-greedy", Usage: "emit one quad per block face"},
		&cli.StringFlag{Name: "metrics", Usage: "write pipeline metrics in Prometheus text format to this file"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() == 0 {
			return fmt.Errorf("%w: need a schematic to work with", errUsage)
		}
		cfg := appConfig(c)
		logger := appLogger(c)
		sc := cfg.StreamConfig()
		if c.IsSet("threshold") {
			sc.ThresholdCells = c.Int("threshold")
		}
		if c.IsSet("chunk-layers") {
			sc.ChunkLayers = c.Int("chunk-layers")
		}
		if c.IsSet("workers") {
			sc.Workers = c.Int("workers")
		}
		greedy := cfg.Greedy() && !c.Bool("no-greedy")

		src, err := schematic.OpenFile(c.Args().First(), schematic.WithLogger(logger))
		if err != nil {
			return err
		}
		out, err := os.OpenFile(c.String("out"), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return err
		}
		defer out.Close()
		sink, err := newQuadWriter(out, src.Metadata.Name, src.Dimensions(), src.Palette())
		if err != nil {
			return err
		}

		obs := metrics.New()
		ctrl := stream.New(sc,
			stream.WithLogger(logger),
			stream.WithObserver(obs),
			stream.WithMeshOptions(mesh.WithGreedy(greedy)))
		stats, err := ctrl.Run(c.Context, src, sink)
		if err != nil {
			_ = sink.Close()
			return err
		}
		if err := sink.Close(); err != nil {
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}

		warnings := src.Warnings()
		obs.Decoded(uint64(src.Dimensions().Volume()), warnings.UnknownCells())
		if !warnings.Empty() {
			logger.Warn("schematic has unresolved blocks", "summary", warnings.String())
		}
		if path := c.String("metrics"); path != "" {
			if err := writeMetrics(obs, path); err != nil {
				return err
			}
		}

		_, _ = fmt.Fprintf(c.App.Writer, "%s quads in %s batches (%s mode, %d chunks)",
			humanize.Comma(int64(stats.Quads)), humanize.Comma(int64(stats.Batches)), stats.Mode, stats.Chunks)
		if stats.Quads > 0 && stats.UnitFaces > 0 {
			_, _ = fmt.Fprintf(c.App.Writer, ", %s cube faces merged", humanize.Comma(int64(stats.UnitFaces)))
		}
		_, _ = fmt.Fprintln(c.App.Writer)
		if stats.Fallbacks > 0 {
			_, _ = fmt.Fprintf(c.App.Writer, "%d block states without geometry were drawn as cubes\n", stats.Fallbacks)
		}
		if fi, err := os.Stat(c.String("out")); err == nil {
			_, _ = fmt.Fprintf(c.App.Writer, "wrote %s (%s)\n", c.String("out"), humanize.Bytes(uint64(fi.Size())))
		}
		return nil
	},
}

func writeMetrics(obs *metrics.Pipeline, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := obs.WriteText(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
