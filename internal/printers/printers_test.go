package printers

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"etmdecode/common"
	"etmdecode/etmv4"
	"etmdecode/frame"
)

func TestItemPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewItemPrinter(&buf)

	p.SetMute(true)
	if !p.IsMuted() {
		t.Error("expected muted")
	}

	p.MuteIDPrint(true)
	if !p.IDPrintMuted() {
		t.Error("expected id print muted")
	}

	var logBuf bytes.Buffer
	p.SetLogger(common.NewStdLoggerWithWriter(&logBuf, common.SeverityDebug))

	p.ItemPrintLine("Hello Test\n")
	if buf.String() != "Hello Test\n" {
		t.Errorf("buf string mismatch: %q", buf.String())
	}
	if !strings.Contains(logBuf.String(), "Hello Test") {
		t.Errorf("logger output mismatch: %q", logBuf.String())
	}
}

func TestSourcePrinter(t *testing.T) {
	var buf bytes.Buffer
	sp := NewSourcePrinter(&buf)

	sp.SetMute(true)
	sp.PrintSource(frame.Source{ID: 1, Data: []byte{0x01}})
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
	sp.SetMute(false)

	tests := []struct {
		desc    string
		src     frame.Source
		exptStr string
	}{
		{
			desc:    "empty",
			src:     frame.Source{ID: 0x1A},
			exptStr: "Source Data; Size      0;   ID_DATA[0x1a]; \n",
		},
		{
			desc:    "null id",
			src:     frame.Source{ID: frame.NullSourceID, Data: []byte{0xab}},
			exptStr: "Source Data; Size      1;   ID_DATA[????]; ab \n",
		},
		{
			desc:    "with data",
			src:     frame.Source{ID: 2, Data: []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff, 0x12, 0x34}},
			exptStr: "Source Data; Size     18;   ID_DATA[0x02]; 00 11 22 33 44 55 66 77 88 99 aa bb cc dd ee ff \n12 34 \n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			buf.Reset()
			sp.PrintSource(tc.src)
			if buf.String() != tc.exptStr {
				t.Errorf("\nexpected:\n%q\nactual:\n%q", tc.exptStr, buf.String())
			}
		})
	}

	buf.Reset()
	sp.PrintResult(&frame.Result{Sources: []frame.Source{{ID: 1}, {ID: 2}}})
	if got := strings.Count(buf.String(), "Source Data;"); got != 2 {
		t.Errorf("expected 2 sources, got %d:\n%s", got, buf.String())
	}
}

func TestEventPrinter(t *testing.T) {
	var buf bytes.Buffer
	ep := NewEventPrinter(&buf)
	traceOn := &etmv4.Event{Kind: etmv4.EvTraceOn, Offset: 200}

	ep.SetMute(true)
	ep.TraceEventIn(0x10, traceOn)
	ep.StreamStart(0x10, true)
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
	ep.SetMute(false)

	ep.MuteIDPrint(true)
	ep.TraceEventIn(0x11, traceOn)
	if strings.Contains(buf.String(), "Idx:200; ID:11;") {
		t.Errorf("did not expect id output, got %q", buf.String())
	}
	ep.MuteIDPrint(false)
	buf.Reset()

	ep.TraceEventIn(0x22, traceOn)
	expt := "Idx:200; ID:22; TraceOn - A discontinuity in the trace stream\n"
	if buf.String() != expt {
		t.Errorf("expected %q, got %q", expt, buf.String())
	}

	ep.SetCollectStats()
	ep.TraceEventIn(0x22, &etmv4.Event{Kind: etmv4.EvAtom, Atom: etmv4.AtomE})
	ep.TraceEventIn(0x22, &etmv4.Event{Kind: etmv4.EvAtom, Atom: etmv4.AtomN})

	buf.Reset()
	ep.PrintStats()
	if !strings.Contains(buf.String(), "TraceOn : 0") {
		t.Errorf("expected trace on count 0, got %s", buf.String())
	}
	if !strings.Contains(buf.String(), "Atom : 2") {
		t.Errorf("expected atom count 2, got %s", buf.String())
	}
}

func TestEventPrinterStreamFraming(t *testing.T) {
	tests := []struct {
		desc    string
		run     func(p *EventPrinter)
		exptStr string
	}{
		{
			desc: "decoded",
			run: func(p *EventPrinter) {
				p.StreamStart(0x13, true)
				p.StreamEnd(0x13, StatusDecoded, nil)
			},
			exptStr: "Decode trace stream of ID 0x13\nComplete decode of the trace stream of ID 0x13\n\n",
		},
		{
			desc: "no data",
			run: func(p *EventPrinter) {
				p.StreamStart(0x02, false)
				p.StreamEnd(0x02, StatusNoData, nil)
			},
			exptStr: "There is no valid data in the stream of ID 0x02\n",
		},
		{
			desc: "failed",
			run: func(p *EventPrinter) {
				p.StreamStart(0x01, true)
				p.StreamEnd(0x01, StatusFailed, errors.New("no sync"))
			},
			exptStr: "Decode trace stream of ID 0x01\nFailed to decode the trace stream of ID 0x01: no sync\n\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			var buf bytes.Buffer
			tc.run(NewEventPrinter(&buf))
			if buf.String() != tc.exptStr {
				t.Errorf("\nexpected:\n%q\nactual:\n%q", tc.exptStr, buf.String())
			}
		})
	}
}

func TestJSONPrinter(t *testing.T) {
	var buf bytes.Buffer
	jp := NewJSONPrinter(&buf, "run-1")

	jp.StreamStart(2, true)
	jp.TraceEventIn(2, &etmv4.Event{Kind: etmv4.EvAtom, Offset: 14, Atom: etmv4.AtomE})
	jp.TraceEventIn(2, &etmv4.Event{Kind: etmv4.EvAddress, Offset: 15, Address: 0x40, ISA: etmv4.ISA1})
	jp.StreamEnd(2, StatusFailed, errors.New("boom"))
	if jp.Err() != nil {
		t.Fatalf("unexpected write error: %v", jp.Err())
	}

	var records []map[string]any
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("invalid JSON line %q: %v", sc.Text(), err)
		}
		records = append(records, rec)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}

	checks := []struct {
		rec   int
		key   string
		value any
	}{
		{0, "stream", "start"},
		{0, "has_data", true},
		{1, "run_id", "run-1"},
		{1, "src_id", float64(2)},
		{1, "kind", "Atom"},
		{1, "offset", float64(14)},
		{1, "atom", "E"},
		{1, "text", "ATOM - E"},
		{2, "isa", "IS1"},
		{2, "address", float64(0x40)},
		{3, "status", "failed"},
		{3, "error", "boom"},
	}
	for _, c := range checks {
		if got := records[c.rec][c.key]; got != c.value {
			t.Errorf("record %d: %s = %v, want %v", c.rec, c.key, got, c.value)
		}
	}
	if _, ok := records[1]["timestamp"]; ok {
		t.Error("zero fields should be omitted")
	}
}

func TestStreamStatusString(t *testing.T) {
	for status, want := range map[StreamStatus]string{
		StatusDecoded:   "decoded",
		StatusNoData:    "no_data",
		StatusFailed:    "failed",
		StreamStatus(9): "unknown",
	} {
		if got := status.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(status), got, want)
		}
	}
}

var (
	_ StreamPrinter = (*EventPrinter)(nil)
	_ StreamPrinter = (*JSONPrinter)(nil)
)
