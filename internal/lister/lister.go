// Package lister runs a complete decode: ETB demultiplexing, ETMv4 decode of
// every trace stream and the final report.
package lister

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"etmdecode/common"
	"etmdecode/etmv4"
	"etmdecode/frame"
	"etmdecode/internal/config"
	"etmdecode/internal/metrics"
	"etmdecode/internal/printers"
)

// StreamReport is the outcome of one trace stream.
type StreamReport struct {
	ID         uint8                 `json:"id"`
	Status     printers.StreamStatus `json:"status"`
	Bytes      int                   `json:"bytes"`
	SyncOffset int                   `json:"sync_offset"`
	Packets    int                   `json:"packets"`
	Errors     int                   `json:"errors"`
	Error      string                `json:"error,omitempty"`
}

// Report summarises a run.
type Report struct {
	RunID          string         `json:"run_id"`
	Input          string         `json:"input"`
	Frames         int            `json:"frames"`
	FSyncs         int            `json:"fsyncs"`
	TruncatedBytes int            `json:"truncated_bytes"`
	Stopped        bool           `json:"stopped"`
	Streams        []StreamReport `json:"streams"`
}

// Failed reports whether any stream with data failed to decode.
func (r *Report) Failed() bool {
	for _, s := range r.Streams {
		if s.Status == printers.StatusFailed {
			return true
		}
	}
	return false
}

// Lister decodes ETB captures according to a run configuration.
type Lister struct {
	cfg     *config.Config
	out     io.Writer
	logger  common.Logger
	metrics *metrics.Metrics
	newID   func() string
}

// New creates a lister writing its report to out. A nil logger disables logging.
func New(cfg *config.Config, out io.Writer, logger common.Logger) *Lister {
	if logger == nil {
		logger = common.NewNoOpLogger()
	}
	if out == nil {
		out = os.Stdout
	}
	return &Lister{
		cfg:     cfg,
		out:     out,
		logger:  logger,
		metrics: metrics.NewMetrics(),
		newID:   uuid.NewString,
	}
}

// Metrics returns the metrics collected by the lister.
func (l *Lister) Metrics() *metrics.Metrics { return l.metrics }

// Run reads the input capture and decodes every trace stream in it.
// Stream failures are part of the report; the returned error covers
// problems with the input, device files and output only.
func (l *Lister) Run() (*Report, error) {
	if err := l.cfg.Validate(); err != nil {
		return nil, err
	}
	if l.cfg.Input == "" {
		return nil, common.NewErrorMsg(common.ErrSevError, common.ErrInvalidParamVal, "no input capture given")
	}

	runID := l.newID()
	logger := l.logger.WithPrefix("run " + runID)

	devices, err := loadDevices(l.cfg.Decode.Devices, logger)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(l.cfg.Input)
	if err != nil {
		return nil, common.NewErrorMsg(common.ErrSevError, common.ErrFileError, fmt.Sprintf("read capture: %v", err))
	}
	logger.Info(fmt.Sprintf("read %d bytes from %s", len(data), l.cfg.Input))

	demux := frame.NewDemuxer()
	demux.SetLogger(logger.WithPrefix("etb"))
	res := demux.Process(data)
	l.metrics.ObserveDemux(&res)

	report := &Report{
		RunID:          runID,
		Input:          l.cfg.Input,
		Frames:         res.Frames,
		FSyncs:         res.FSyncs,
		TruncatedBytes: res.TruncatedBytes,
		Stopped:        res.Stopped,
		Streams:        make([]StreamReport, len(res.Sources)),
	}

	textOut := l.cfg.Output.Format == config.FormatText
	if textOut {
		fmt.Fprintln(l.out, "Trace Packet Lister: ETMv4 trace decode")
		fmt.Fprintln(l.out, "---------------------------------------")
		fmt.Fprintf(l.out, "Run ID : %s\n", runID)
		fmt.Fprintf(l.out, "Input  : %s (%d frames, %d trace sources)\n\n", l.cfg.Input, res.Frames, len(res.Sources))
		if l.cfg.Output.RawSources {
			printers.NewSourcePrinter(l.out).PrintResult(&res)
			fmt.Fprintln(l.out)
		}
	}

	outputs := make([]bytes.Buffer, len(res.Sources))

	var g errgroup.Group
	g.SetLimit(l.cfg.Decode.Workers)
	for i := range res.Sources {
		src := res.Sources[i]
		g.Go(func() error {
			cfg, hasCfg := devices[src.ID]
			var devCfg *etmv4.Config
			if hasCfg {
				devCfg = &cfg
			}
			report.Streams[i] = l.decodeStream(src, devCfg, runID, &outputs[i], logger)
			return nil
		})
	}
	// workers never fail; outcomes are in the report
	_ = g.Wait()

	for i := range outputs {
		if _, err := outputs[i].WriteTo(l.out); err != nil {
			return report, common.NewErrorMsg(common.ErrSevError, common.ErrFileError, fmt.Sprintf("write report: %v", err))
		}
	}

	if textOut {
		writeSummary(l.out, report)
	} else if err := json.NewEncoder(l.out).Encode(struct {
		Summary *Report `json:"summary"`
	}{report}); err != nil {
		return report, common.NewErrorMsg(common.ErrSevError, common.ErrFileError, fmt.Sprintf("write report: %v", err))
	}

	if l.cfg.Metrics.File != "" {
		if err := l.metrics.WriteTextfile(l.cfg.Metrics.File); err != nil {
			return report, err
		}
		logger.Debug("metrics written to " + l.cfg.Metrics.File)
	}
	return report, nil
}

// decodeStream decodes one source into out. It runs on a worker goroutine
// and touches nothing shared apart from the logger and metrics.
func (l *Lister) decodeStream(src frame.Source, devCfg *etmv4.Config, runID string, out io.Writer, logger common.Logger) StreamReport {
	rep := StreamReport{ID: src.ID, Bytes: len(src.Data), SyncOffset: -1}
	logger = logger.WithPrefix(fmt.Sprintf("ID 0x%02X", src.ID))

	var p printers.StreamPrinter
	var text *printers.EventPrinter
	var js *printers.JSONPrinter
	if l.cfg.Output.Format == config.FormatJSON {
		js = printers.NewJSONPrinter(out, runID)
		js.SetMute(l.cfg.Output.Quiet)
		p = js
	} else {
		text = printers.NewEventPrinter(out)
		text.SetLogger(logger)
		text.SetMute(l.cfg.Output.Quiet)
		text.MuteIDPrint(l.cfg.Output.HideIDs)
		if l.cfg.Output.Stats {
			text.SetCollectStats()
		}
		p = text
	}

	if len(src.Data) == 0 {
		rep.Status = printers.StatusNoData
		p.StreamStart(src.ID, false)
		p.StreamEnd(src.ID, rep.Status, nil)
		l.metrics.ObserveStream(etmv4.Stats{}, metrics.OutcomeNoData, 0)
		return rep
	}

	p.StreamStart(src.ID, true)
	s := etmv4.NewStream(src.ID, src.Data, p)
	s.SetLogger(logger)
	if devCfg != nil {
		if err := s.SetConfig(*devCfg); err != nil {
			logger.Error(err)
		}
	}

	start := time.Now()
	err := s.Decode()
	elapsed := time.Since(start)

	stats := s.Stats()
	rep.SyncOffset = stats.SyncOffset
	for _, n := range stats.Packets {
		rep.Packets += n
	}
	for _, n := range stats.Errors {
		rep.Errors += n
	}

	outcome := metrics.OutcomeDecoded
	rep.Status = printers.StatusDecoded
	if err != nil {
		outcome = metrics.OutcomeFailed
		rep.Status = printers.StatusFailed
		rep.Error = err.Error()
		if errors.Is(err, common.NewError(common.ErrSevError, common.ErrNoSync)) {
			logger.Warning("no synchronisation point in the stream, nothing decoded")
		} else {
			logger.Error(err)
		}
	} else {
		logger.Debug(fmt.Sprintf("decoded %d packets in %s", rep.Packets, elapsed))
	}
	p.StreamEnd(src.ID, rep.Status, err)
	if text != nil && l.cfg.Output.Stats {
		text.PrintStats()
	}
	if js != nil && js.Err() != nil {
		logger.Warning(fmt.Sprintf("JSON output incomplete: %v", js.Err()))
	}

	l.metrics.ObserveStream(stats, outcome, elapsed)
	return rep
}

// loadDevices reads the register files and indexes them by trace ID.
func loadDevices(paths []string, logger common.Logger) (map[uint8]etmv4.Config, error) {
	devices := make(map[uint8]etmv4.Config, len(paths))
	for _, path := range paths {
		cfg, err := etmv4.LoadConfig(path)
		if err != nil {
			return nil, common.NewErrorMsg(common.ErrSevError, common.ErrFileError, err.Error())
		}
		id := cfg.TraceID()
		if _, dup := devices[id]; dup {
			logger.Warning(fmt.Sprintf("%s replaces an earlier register set for trace ID 0x%02X", path, id))
		}
		devices[id] = cfg
		logger.Debug(fmt.Sprintf("register set %s applies to trace ID 0x%02X", path, id))
	}
	return devices, nil
}

func writeSummary(w io.Writer, r *Report) {
	fmt.Fprintln(w, "Summary")
	fmt.Fprintf(w, "%-6s %-8s %10s %8s %8s %7s\n", "ID", "Status", "Bytes", "Sync", "Packets", "Errors")
	for _, s := range r.Streams {
		sync := "-"
		if s.SyncOffset >= 0 {
			sync = fmt.Sprintf("%d", s.SyncOffset)
		}
		fmt.Fprintf(w, "0x%02X   %-8s %10d %8s %8d %7d\n", s.ID, s.Status, s.Bytes, sync, s.Packets, s.Errors)
	}
	if r.TruncatedBytes > 0 {
		fmt.Fprintf(w, "%d trailing bytes of a partial frame ignored\n", r.TruncatedBytes)
	}
}
