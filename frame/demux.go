// Package frame implements ETB trace frame demultiplexing.
// An ETB capture interleaves bytes from several trace sources in 16-byte
// frames with embedded source ID bytes. This package splits a capture into
// one byte stream per source ID.
package frame

import (
	"bytes"
	"fmt"

	"etmdecode/common"
)

// FrameSize is the size of an ETB frame in bytes
const FrameSize = 16

// NullSourceID is the ID that terminates demultiplexing.
const NullSourceID = 0x00

// fsync is the frame-sync marker that may precede a frame.
var fsync = []byte{0xFF, 0xFF, 0xFF, 0x7F}

// Source is the demultiplexed data of one trace source.
type Source struct {
	ID   uint8 // trace source ID (dense index + 1)
	Data []byte
}

// Result is the outcome of one Process call.
type Result struct {
	// Sources is dense: Sources[i] holds the bytes of source ID i+1.
	Sources []Source
	// Stopped is set when a null ID byte ended demultiplexing.
	Stopped bool
	// Frames counts the complete frames unpacked.
	Frames int
	// FSyncs counts the frame-sync markers skipped.
	FSyncs int
	// TruncatedBytes is the length of a trailing partial frame.
	TruncatedBytes int
}

// Source returns the stream for trace ID id, or nil when the capture never referenced it.
func (r *Result) Source(id uint8) *Source {
	if id == NullSourceID || int(id) > len(r.Sources) {
		return nil
	}
	return &r.Sources[id-1]
}

// Demuxer extracts per-ID trace data from an ETB capture.
type Demuxer struct {
	logger common.Logger

	// State
	curIdx  int // dense index of the current ID, -1 if none
	preIdx  int // dense index of the previous ID, -1 if none
	stopped bool
	sources []Source
}

// NewDemuxer creates a new frame demuxer.
func NewDemuxer() *Demuxer {
	d := &Demuxer{logger: common.NewNoOpLogger()}
	d.Reset()
	return d
}

// SetLogger sets the logger used for capture warnings.
func (d *Demuxer) SetLogger(logger common.Logger) {
	if logger == nil {
		logger = common.NewNoOpLogger()
	}
	d.logger = logger
}

// Reset clears demuxer state.
func (d *Demuxer) Reset() {
	d.curIdx = -1
	d.preIdx = -1
	d.stopped = false
	// the first stream always exists
	d.sources = []Source{{ID: 1}}
}

// Process demultiplexes a complete ETB capture.
func (d *Demuxer) Process(data []byte) Result {
	d.Reset()
	res := Result{}

	offset := 0
	for offset < len(data) && !d.stopped {
		if offset+len(fsync) <= len(data) && bytes.Equal(data[offset:offset+len(fsync)], fsync) {
			offset += len(fsync)
			res.FSyncs++
		}
		if offset+FrameSize > len(data) {
			res.TruncatedBytes = len(data) - offset
			if res.TruncatedBytes > 0 {
				d.logger.Warning(fmt.Sprintf("ignoring %d trailing bytes of a partial ETB frame at offset %d",
					res.TruncatedBytes, offset))
			}
			break
		}

		d.unpackFrame(data[offset : offset+FrameSize])
		res.Frames++
		offset += FrameSize
	}

	res.Sources = d.sources
	res.Stopped = d.stopped
	return res
}

// unpackFrame distributes the 15 payload bytes of one frame.
// Frame format:
// - Bytes 0-14: ID or data bytes
// - Byte 15: flag bits, bit k for lane k (bytes 2k and 2k+1)
//
// Even byte with LSB=1 is an ID byte, bits[7:1] = trace ID.
// Even byte with LSB=0 is data, its LSB restored from the lane flag.
// Odd bytes are always data.
func (d *Demuxer) unpackFrame(frame []byte) {
	flags := frame[FrameSize-1]

	for i := 0; i < FrameSize-1; i++ {
		c := frame[i]
		laneFlag := (flags >> (i / 2)) & 0x01

		if i&1 != 0 {
			// data following an ID byte belongs to the previous ID when the lane flag is set
			if frame[i-1]&0x01 != 0 && laneFlag != 0 {
				d.appendTo(d.preIdx, c)
			} else {
				d.appendTo(d.curIdx, c)
			}
			continue
		}

		if c&0x01 != 0 {
			id := (c >> 1) & 0x7F
			if id == NullSourceID {
				d.stopped = true
				return
			}
			d.preIdx = d.curIdx
			d.curIdx = int(id) - 1
			d.grow(d.curIdx)
			continue
		}

		d.appendTo(d.curIdx, c|laneFlag)
	}
}

// grow extends the dense source list so idx is valid.
func (d *Demuxer) grow(idx int) {
	for n := len(d.sources); n <= idx; n++ {
		d.sources = append(d.sources, Source{ID: uint8(n + 1)})
	}
}

func (d *Demuxer) appendTo(idx int, b byte) {
	if idx < 0 {
		// no ID seen yet
		return
	}
	d.sources[idx].Data = append(d.sources[idx].Data, b)
}
