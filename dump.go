package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/astei/schem2mesh/nbt"
)

var dumpCommand = &cli.Command{
	Name:      "dump",
	Usage:     "prints the raw tag tree of a file",
	ArgsUsage: "<file>",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "depth", Usage: "stop descending below this depth (0 for no limit)"},
		&cli.BoolFlag{Name: "check", Usage: "re-encode the tree and verify it matches the input byte for byte"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() == 0 {
			return fmt.Errorf("%w: need a file to dump", errUsage)
		}
		f, err := os.Open(c.Args().First())
		if err != nil {
			return err
		}
		defer f.Close()
		r, closer, comp, err := nbt.Decompress(f)
		if err != nil {
			return err
		}
		defer closer.Close()
		raw, err := io.ReadAll(r)
		if err != nil {
			return err
		}

		name, root, err := nbt.NewDecoder(bytes.NewReader(raw)).Decode()
		if err != nil {
			return err
		}
		appLogger(c).Debug("decoded tag tree", "compression", comp.String(), "bytes", len(raw))
		d := &dumper{w: c.App.Writer, maxDepth: c.Int("depth")}
		d.tag(name, root, 0)
		if d.err != nil {
			return d.err
		}

		if c.Bool("check") {
			if err := checkRoundTrip(raw, name, root); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.App.Writer, "round trip ok (%s, %s uncompressed)\n", comp, humanize.Bytes(uint64(len(raw))))
		}
		return nil
	},
}

// checkRoundTrip encodes root again and compares it with the bytes it was decoded from.
func checkRoundTrip(raw []byte, name string, root nbt.Tag) error {
	var buf bytes.Buffer
	if err := nbt.Encode(&buf, name, root); err != nil {
		return err
	}
	got := buf.Bytes()
	if bytes.Equal(raw, got) {
		return nil
	}
	n := min(len(raw), len(got))
	i := 0
	for i < n && raw[i] == got[i] {
		i++
	}
	return fmt.Errorf("round trip differs at offset %d (%d bytes in, %d bytes out)", i, len(raw), len(got))
}

const arrayPreview = 8

type dumper struct {
	w        io.Writer
	maxDepth int
	err      error
}

func (d *dumper) printf(depth int, format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, strings.Repeat("  ", depth)+format+"\n", args...)
}

func (d *dumper) tag(name string, t nbt.Tag, depth int) {
	label := t.Type().String()
	if name != "" {
		label = fmt.Sprintf("%s(%q)", label, name)
	}
	deeper := d.maxDepth == 0 || depth < d.maxDepth
	switch v := t.(type) {
	case *nbt.Compound:
		d.printf(depth, "%s: %d entries", label, v.Len())
		if deeper {
			v.Each(func(n string, child nbt.Tag) bool {
				d.tag(n, child, depth+1)
				return d.err == nil
			})
		}
	case *nbt.List:
		d.printf(depth, "%s: %d entries of %s", label, v.Len(), v.ElemType())
		if deeper {
			for _, it := range v.Items() {
				d.tag("", it, depth+1)
			}
		}
	case nbt.ByteArray:
		d.printf(depth, "%s: [%d bytes] %v", label, len(v), preview(v))
	case nbt.IntArray:
		d.printf(depth, "%s: [%d ints] %v", label, len(v), preview(v))
	case nbt.LongArray:
		d.printf(depth, "%s: [%d longs] %v", label, len(v), preview(v))
	case nbt.String:
		d.printf(depth, "%s: %q", label, string(v))
	default:
		d.printf(depth, "%s: %v", label, v)
	}
}

func preview[T any](s []T) string {
	if len(s) <= arrayPreview {
		return fmt.Sprint(s)
	}
	return strings.TrimSuffix(fmt.Sprint(s[:arrayPreview]), "]") + " ...]"
}
