package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etmdecode/common"
	"etmdecode/etmv4"
	"etmdecode/frame"
)

func TestObserveDemux(t *testing.T) {
	m := NewMetrics()
	m.ObserveDemux(&frame.Result{
		Sources:        []frame.Source{{ID: 1, Data: make([]byte, 10)}, {ID: 2, Data: make([]byte, 4)}},
		Frames:         2,
		TruncatedBytes: 5,
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DemuxFrames))
	assert.Equal(t, 14.0, testutil.ToFloat64(m.DemuxBytes))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.TruncatedBytes))
}

func TestObserveStream(t *testing.T) {
	m := NewMetrics()
	m.ObserveStream(etmv4.Stats{
		Packets:        map[string]int{"extension": 1, "atom_format_1": 3},
		UnknownHeaders: 2,
		Errors:         map[common.ErrCode]int{common.ErrInvalidPcktHdr: 2, common.ErrTruncatedPacket: 1},
	}, OutcomeDecoded, 3*time.Millisecond)
	m.ObserveStream(etmv4.Stats{
		Packets: map[string]int{"atom_format_1": 1},
		Errors:  map[common.ErrCode]int{common.ErrNoSync: 1},
	}, OutcomeFailed, time.Millisecond)
	m.ObserveStream(etmv4.Stats{}, OutcomeNoData, 0)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.Packets.WithLabelValues("atom_format_1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Packets.WithLabelValues("extension")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DecodeErrors.WithLabelValues(common.ErrInvalidPcktHdr.Name())))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeErrors.WithLabelValues(common.ErrNoSync.Name())))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.UnknownHeaders))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Streams.WithLabelValues(OutcomeDecoded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Streams.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Streams.WithLabelValues(OutcomeNoData)))
	assert.Equal(t, 3, testutil.CollectAndCount(m.Streams))
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.UnknownHeaders.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.UnknownHeaders))
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.Streams.WithLabelValues(OutcomeDecoded).Inc()

	path := filepath.Join(t.TempDir(), "decode.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `etmv4_streams_total{outcome="decoded"} 1`), string(data))

	err = m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "decode.prom"))
	assert.Error(t, err)
}
