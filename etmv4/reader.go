package etmv4

import (
	"fmt"

	"etmdecode/common"
)

// continuation bit of variable length packet fields
const cBit = 0x80

// reader walks the bytes of one packet. Every access is bounds checked;
// running off the end of the stream yields ErrTruncatedPacket.
type reader struct {
	buf   []byte
	start int // offset of the header byte
	pos   int // offset of the next unread byte
	src   uint8
}

// newReader positions a reader on the header at offset; the header counts as consumed.
func newReader(buf []byte, offset int, src uint8) *reader {
	return &reader{buf: buf, start: offset, pos: offset + 1, src: src}
}

func (r *reader) header() byte {
	return r.buf[r.start]
}

func (r *reader) consumed() int {
	return r.pos - r.start
}

func (r *reader) errorf(code common.ErrCode, format string, args ...any) *common.Error {
	return common.NewErrorWithIdxChanMsg(common.ErrSevError, code, r.start, r.src, fmt.Sprintf(format, args...))
}

func (r *reader) peek(field string) (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, r.errorf(common.ErrTruncatedPacket, "%s: need byte at offset %d, stream has %d bytes", field, r.pos, len(r.buf))
	}
	return r.buf[r.pos], nil
}

func (r *reader) next(field string) (byte, error) {
	b, err := r.peek(field)
	if err != nil {
		return 0, err
	}
	r.pos++
	return b, nil
}

// varint reads a little-endian field of 7-bit groups of at most maxBytes bytes.
func (r *reader) varint(field string, maxBytes int) (uint32, error) {
	var v uint32
	for i := 0; i < maxBytes; i++ {
		b, err := r.next(field)
		if err != nil {
			return 0, err
		}
		v |= uint32(b&^cBit) << (7 * i)
		if b&cBit == 0 {
			return v, nil
		}
	}
	return 0, r.errorf(common.ErrFieldTooLong, "%s field longer than %d bytes", field, maxBytes)
}

// sub returns a reader for the packet that starts at the cursor.
func (r *reader) sub() *reader {
	return &reader{buf: r.buf, start: r.pos, pos: r.pos + 1, src: r.src}
}

// skip advances past the bytes consumed by a sub reader.
func (r *reader) skip(s *reader) {
	r.pos = s.pos
}
