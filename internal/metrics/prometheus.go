// Package metrics exposes decode counters through a private Prometheus registry.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"etmdecode/etmv4"
	"etmdecode/frame"
)

// Stream outcomes
const (
	OutcomeDecoded = "decoded"
	OutcomeNoData  = "no_data"
	OutcomeFailed  = "failed"
)

// Metrics contains the Prometheus metrics of one lister run
type Metrics struct {
	registry *prometheus.Registry

	// Demultiplexer metrics
	DemuxFrames    prometheus.Counter
	DemuxBytes     prometheus.Counter
	TruncatedBytes prometheus.Counter

	// Decoder metrics
	Packets         *prometheus.CounterVec
	DecodeErrors    *prometheus.CounterVec
	UnknownHeaders  prometheus.Counter
	Streams         *prometheus.CounterVec
	StreamDecodeDur prometheus.Histogram
}

// NewMetrics creates the metrics on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		DemuxFrames: factory.NewCounter(prometheus.CounterOpts{
			Name: "etb_frames_total",
			Help: "Total number of ETB frames unpacked",
		}),
		DemuxBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "etb_demuxed_bytes_total",
			Help: "Total number of trace bytes routed to a source",
		}),
		TruncatedBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "etb_truncated_bytes_total",
			Help: "Bytes of trailing partial frames that were ignored",
		}),

		Packets: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "etmv4_packets_decoded_total",
			Help: "Total number of packets decoded, by packet table entry",
		}, []string{"type"}),
		DecodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "etmv4_decode_errors_total",
			Help: "Total number of decode errors, by error code",
		}, []string{"code"}),
		UnknownHeaders: factory.NewCounter(prometheus.CounterOpts{
			Name: "etmv4_unknown_headers_total",
			Help: "Total number of bytes that matched no packet header",
		}),
		Streams: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "etmv4_streams_total",
			Help: "Total number of trace streams, by outcome",
		}, []string{"outcome"}),
		StreamDecodeDur: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "etmv4_stream_decode_duration_seconds",
			Help:    "Time spent decoding one trace stream",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 100us to ~26s
		}),
	}
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveDemux records a demultiplexing result.
func (m *Metrics) ObserveDemux(res *frame.Result) {
	m.DemuxFrames.Add(float64(res.Frames))
	m.TruncatedBytes.Add(float64(res.TruncatedBytes))
	for _, src := range res.Sources {
		m.DemuxBytes.Add(float64(len(src.Data)))
	}
}

// ObserveStream records the statistics and outcome of one stream.
func (m *Metrics) ObserveStream(stats etmv4.Stats, outcome string, elapsed time.Duration) {
	for name, n := range stats.Packets {
		m.Packets.WithLabelValues(name).Add(float64(n))
	}
	for code, n := range stats.Errors {
		m.DecodeErrors.WithLabelValues(code.Name()).Add(float64(n))
	}
	m.UnknownHeaders.Add(float64(stats.UnknownHeaders))
	m.Streams.WithLabelValues(outcome).Inc()
	if outcome != OutcomeNoData {
		m.StreamDecodeDur.Observe(elapsed.Seconds())
	}
}

// WriteTextfile writes the metrics in the node exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
