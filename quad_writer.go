package main

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/astei/schem2mesh/mesh"
	"github.com/astei/schem2mesh/schematic"
)

const (
	quadFormat        = "schem2mesh-quads"
	quadLatestVersion = 1
)

type quadHeader struct {
	Format     string `json:"format"`
	Version    int    `json:"version"`
	Name       string `json:"name,omitempty"`
	Dimensions [3]int `json:"dimensions"`
	Palette    int    `json:"palette"`
}

type quadRecord struct {
	Face string        `json:"face"`
	V    [4][3]float32 `json:"v"`
	UV   [4][2]float32 `json:"uv"`
}

type batchRecord struct {
	Material     string       `json:"material"`
	Index        uint32       `json:"index"`
	Transparency string       `json:"transparency"`
	Alpha        float32      `json:"alpha"`
	Quads        []quadRecord `json:"quads"`
}

// quadWriter is a mesh.Sink writing one JSON line per batch into a zstd stream, after a header
// line describing the schematic.
type quadWriter struct {
	palette *schematic.Palette

	mu  sync.Mutex
	enc *zstd.Encoder
	w   *bufio.Writer
}

func newQuadWriter(out io.Writer, name string, dims schematic.Dimensions, palette *schematic.Palette) (*quadWriter, error) {
	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	w := &quadWriter{palette: palette, enc: enc, w: bufio.NewWriterSize(enc, 128*1024)}
	header := quadHeader{
		Format:     quadFormat,
		Version:    quadLatestVersion,
		Name:       name,
		Dimensions: [3]int{dims.Width, dims.Height, dims.Length},
		Palette:    palette.Len(),
	}
	if err := w.writeLine(header); err != nil {
		_ = enc.Close()
		return nil, err
	}
	return w, nil
}

func (w *quadWriter) Accept(b mesh.MeshBatch) error {
	st, _ := w.palette.State(b.Material)
	rec := batchRecord{
		Material:     st.String(),
		Index:        uint32(b.Material),
		Transparency: b.Transparency.String(),
		Alpha:        b.Transparency.Alpha(),
		Quads:        make([]quadRecord, len(b.Quads)),
	}
	for i, q := range b.Quads {
		rec.Quads[i] = quadRecord{Face: q.Face.String(), V: q.V, UV: q.UV}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeLine(rec)
}

func (w *quadWriter) writeLine(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Close flushes and finishes the zstd stream. It does not close the underlying writer.
func (w *quadWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.w.Flush(); err != nil {
		_ = w.enc.Close()
		return err
	}
	return w.enc.Close()
}
