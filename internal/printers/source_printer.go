package printers

import (
	"fmt"
	"io"
	"strings"

	"etmdecode/frame"
)

// SourcePrinter dumps the demultiplexed bytes of each trace source.
type SourcePrinter struct {
	ItemPrinter
}

// NewSourcePrinter creates a new printer for demultiplexed sources.
func NewSourcePrinter(writer io.Writer) *SourcePrinter {
	return &SourcePrinter{
		ItemPrinter: *NewItemPrinter(writer),
	}
}

// PrintSource writes one source as a header followed by 16 bytes per line.
func (p *SourcePrinter) PrintSource(src frame.Source) {
	if p.IsMuted() {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Source Data; Size%7d; ", len(src.Data)))
	sb.WriteString(fmt.Sprintf("%10s", "ID_DATA["))
	if src.ID == frame.NullSourceID {
		sb.WriteString("????")
	} else {
		sb.WriteString(fmt.Sprintf("0x%02x", src.ID))
	}
	sb.WriteString("]; ")

	lineBytes := 0
	for _, b := range src.Data {
		if lineBytes == 16 {
			sb.WriteString("\n")
			lineBytes = 0
		}
		sb.WriteString(fmt.Sprintf("%02x ", b))
		lineBytes++
	}
	sb.WriteString("\n")
	p.ItemPrintLine(sb.String())
}

// PrintResult writes every source of a demultiplexing result in ID order.
func (p *SourcePrinter) PrintResult(res *frame.Result) {
	for _, src := range res.Sources {
		p.PrintSource(src)
	}
}
