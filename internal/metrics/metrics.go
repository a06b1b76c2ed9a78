// Package metrics records pipeline counters in a private Prometheus registry.
package metrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/astei/schem2mesh/mesh"
)

const namespace = "schem2mesh"

// Pipeline implements stream.Observer.
type Pipeline struct {
	registry *prometheus.Registry

	chunks        prometheus.Counter
	layers        prometheus.Counter
	quads         prometheus.Counter
	batches       *prometheus.CounterVec
	chunkDuration prometheus.Histogram
	cells         prometheus.Counter
	unknownCells  prometheus.Counter
}

func New() *Pipeline {
	p := &Pipeline{
		registry: prometheus.NewRegistry(),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_meshed_total",
			Help:      "Layer chunks meshed.",
		}),
		layers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layers_meshed_total",
			Help:      "Layers meshed.",
		}),
		quads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quads_emitted_total",
			Help:      "Quads handed to the sink.",
		}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_emitted_total",
			Help:      "Mesh batches handed to the sink, by transparency class.",
		}, []string{"transparency"}),
		chunkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_mesh_seconds",
			Help:      "Time spent meshing one chunk.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		cells: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cells_decoded_total",
			Help:      "Cells decoded from schematics.",
		}),
		unknownCells: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_cells_total",
			Help:      "Cells whose block state could not be resolved.",
		}),
	}
	p.registry.MustRegister(p.chunks, p.layers, p.quads, p.batches, p.chunkDuration, p.cells, p.unknownCells)
	return p
}

func (p *Pipeline) Registry() *prometheus.Registry { return p.registry }

func (p *Pipeline) ChunkMeshed(layers, quads int, elapsed time.Duration) {
	p.chunks.Inc()
	p.layers.Add(float64(layers))
	p.chunkDuration.Observe(elapsed.Seconds())
}

func (p *Pipeline) BatchEmitted(b mesh.MeshBatch) {
	p.batches.WithLabelValues(b.Transparency.String()).Inc()
	p.quads.Add(float64(len(b.Quads)))
}

// Decoded records a finished load.
func (p *Pipeline) Decoded(cells, unknown uint64) {
	p.cells.Add(float64(cells))
	p.unknownCells.Add(float64(unknown))
}

// WriteText writes every metric in the Prometheus text format.
func (p *Pipeline) WriteText(w io.Writer) error {
	families, err := p.registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
