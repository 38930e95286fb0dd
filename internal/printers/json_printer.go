package printers

import (
	"encoding/json"
	"io"

	"etmdecode/etmv4"
)

type eventRecord struct {
	RunID string `json:"run_id,omitempty"`
	SrcID uint8  `json:"src_id"`
	*etmv4.Event
	Text string `json:"text"`
}

type streamRecord struct {
	RunID   string `json:"run_id,omitempty"`
	SrcID   uint8  `json:"src_id"`
	Stream  string `json:"stream"`
	HasData *bool  `json:"has_data,omitempty"`
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JSONPrinter writes one JSON object per line for every event and stream boundary.
type JSONPrinter struct {
	enc   *json.Encoder
	runID string
	muted bool
	err   error
}

// NewJSONPrinter creates a JSON lines printer. runID is added to every record when not empty.
func NewJSONPrinter(writer io.Writer, runID string) *JSONPrinter {
	return &JSONPrinter{enc: json.NewEncoder(writer), runID: runID}
}

func (p *JSONPrinter) SetMute(mute bool) { p.muted = mute }

// Err returns the first write error.
func (p *JSONPrinter) Err() error { return p.err }

func (p *JSONPrinter) write(v any) {
	if p.muted || p.err != nil {
		return
	}
	p.err = p.enc.Encode(v)
}

// TraceEventIn implements etmv4.Sink.
func (p *JSONPrinter) TraceEventIn(srcID uint8, ev *etmv4.Event) {
	p.write(eventRecord{RunID: p.runID, SrcID: srcID, Event: ev, Text: ev.String()})
}

func (p *JSONPrinter) StreamStart(srcID uint8, hasData bool) {
	p.write(streamRecord{RunID: p.runID, SrcID: srcID, Stream: "start", HasData: &hasData})
}

func (p *JSONPrinter) StreamEnd(srcID uint8, status StreamStatus, err error) {
	rec := streamRecord{RunID: p.runID, SrcID: srcID, Stream: "end", Status: status.String()}
	if err != nil {
		rec.Error = err.Error()
	}
	p.write(rec)
}
