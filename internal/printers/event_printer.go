package printers

import (
	"fmt"
	"io"
	"strings"

	"etmdecode/etmv4"
)

// EventPrinter renders decoded trace events as text lines.
type EventPrinter struct {
	ItemPrinter
	collectStats bool
	eventCounts  map[etmv4.EventKind]int
}

// NewEventPrinter creates a new text event printer.
func NewEventPrinter(writer io.Writer) *EventPrinter {
	return &EventPrinter{
		ItemPrinter: *NewItemPrinter(writer),
		eventCounts: make(map[etmv4.EventKind]int),
	}
}

// TraceEventIn implements etmv4.Sink.
func (p *EventPrinter) TraceEventIn(srcID uint8, ev *etmv4.Event) {
	if p.collectStats {
		p.eventCounts[ev.Kind]++
	}

	if p.IsMuted() {
		return
	}

	var sb strings.Builder
	if !p.IDPrintMuted() {
		sb.WriteString(fmt.Sprintf("Idx:%d; ID:%x; ", ev.Offset, srcID))
	}
	sb.WriteString(ev.String())
	sb.WriteString("\n")

	p.ItemPrintLine(sb.String())
}

// StreamStart prints the stream header.
func (p *EventPrinter) StreamStart(srcID uint8, hasData bool) {
	if p.IsMuted() {
		return
	}
	if hasData {
		p.ItemPrintLine(fmt.Sprintf("Decode trace stream of ID 0x%02X\n", srcID))
	} else {
		p.ItemPrintLine(fmt.Sprintf("There is no valid data in the stream of ID 0x%02X\n", srcID))
	}
}

// StreamEnd prints the outcome line of a stream with data.
func (p *EventPrinter) StreamEnd(srcID uint8, status StreamStatus, err error) {
	if p.IsMuted() {
		return
	}
	switch status {
	case StatusDecoded:
		p.ItemPrintLine(fmt.Sprintf("Complete decode of the trace stream of ID 0x%02X\n\n", srcID))
	case StatusFailed:
		p.ItemPrintLine(fmt.Sprintf("Failed to decode the trace stream of ID 0x%02X: %v\n\n", srcID, err))
	}
}

// SetCollectStats turns on statistics collection.
func (p *EventPrinter) SetCollectStats() { p.collectStats = true }

// PrintStats outputs statistics about the events processed.
func (p *EventPrinter) PrintStats() {
	var sb strings.Builder

	sb.WriteString("Trace elements processed:-\n")
	for k := etmv4.EvTraceInfo; k <= etmv4.EvAtom; k++ {
		sb.WriteString(fmt.Sprintf("%s : %d\n", k, p.eventCounts[k]))
	}
	sb.WriteString("\n")

	p.ItemPrintLine(sb.String())
}
