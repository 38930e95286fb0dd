package printers

import (
	"etmdecode/etmv4"
)

// StreamStatus is the outcome of decoding one trace stream.
type StreamStatus int

const (
	StatusDecoded StreamStatus = iota
	StatusNoData
	StatusFailed
)

func (s StreamStatus) String() string {
	switch s {
	case StatusDecoded:
		return "decoded"
	case StatusNoData:
		return "no_data"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

func (s StreamStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StreamPrinter receives the events of one stream framed by a header and an outcome.
// A printer instance serves a single stream at a time.
type StreamPrinter interface {
	etmv4.Sink
	StreamStart(srcID uint8, hasData bool)
	StreamEnd(srcID uint8, status StreamStatus, err error)
}
