package etmv4

import (
	"etmdecode/common"
)

// longAddrForm maps a long address or address+context header to its
// instruction set and width.
func longAddrForm(hdr byte) (isa ISA, wide bool, ok bool) {
	switch hdr {
	case 0x9a, 0x82:
		return ISA0, false, true
	case 0x9b, 0x83:
		return ISA1, false, true
	case 0x9d, 0x85:
		return ISA0, true, true
	case 0x9e, 0x86:
		return ISA1, true, true
	}
	return ISAUnknown, false, false
}

func (s *Stream) decodeShortAddress(r *reader) error {
	addr := s.tracer.AddrRegs[0].Address

	b1, err := r.next("short address")
	if err != nil {
		return err
	}

	var isa ISA
	if r.header() == 0x95 {
		isa = ISA0
		addr &^= 0x1FF
		addr |= uint64(b1&0x7F) << 2
		if b1&cBit != 0 {
			b2, err := r.next("short address")
			if err != nil {
				return err
			}
			addr &^= 0x1FE00
			addr |= uint64(b2) << 9
		}
	} else {
		isa = ISA1
		addr &^= 0xFF
		addr |= uint64(b1&0x7F) << 1
		if b1&cBit != 0 {
			b2, err := r.next("short address")
			if err != nil {
				return err
			}
			addr &^= 0xFF00
			addr |= uint64(b2) << 8
		}
	}

	s.tracer.pushAddress(addr, isa)
	s.tracer.address()
	return nil
}

// readLongAddress reads the 4 or 8 address bytes of a long address.
// A 32-bit address keeps the upper half of prev.
func readLongAddress(r *reader, isa ISA, wide bool, prev uint64) (uint64, error) {
	n := 4
	if wide {
		n = 8
	}
	var b [8]byte
	for i := 0; i < n; i++ {
		v, err := r.next("long address")
		if err != nil {
			return 0, err
		}
		b[i] = v
	}

	var addr uint64
	if isa == ISA0 {
		addr = uint64(b[0]&0x7F)<<2 | uint64(b[1]&0x7F)<<9
	} else {
		addr = uint64(b[0]&0x7F)<<1 | uint64(b[1])<<8
	}
	for i := 2; i < n; i++ {
		addr |= uint64(b[i]) << (8 * i)
	}
	if !wide {
		addr |= prev &^ 0xFFFFFFFF
	}
	return addr, nil
}

func (s *Stream) decodeLongAddress(r *reader) error {
	isa, wide, ok := longAddrForm(r.header())
	if !ok {
		return r.errorf(common.ErrInvalidPcktHdr, "not a long address header 0x%02x", r.header())
	}
	s.checkWideAddress(r, wide)
	addr, err := readLongAddress(r, isa, wide, s.tracer.AddrRegs[0].Address)
	if err != nil {
		return err
	}
	s.tracer.pushAddress(addr, isa)
	s.tracer.address()
	return nil
}

func (s *Stream) decodeExactMatch(r *reader) error {
	qe := r.header() & 0x03
	if qe > 2 {
		return r.errorf(common.ErrBadPacket, "exact match index %d out of range", qe)
	}
	reg := s.tracer.AddrRegs[qe]
	s.tracer.pushAddress(reg.Address, reg.ISA)
	s.tracer.address()
	return nil
}

func (s *Stream) decodeAddressContext(r *reader) error {
	isa, wide, ok := longAddrForm(r.header())
	if !ok {
		return r.errorf(common.ErrInvalidPcktHdr, "not an address+context header 0x%02x", r.header())
	}
	s.checkWideAddress(r, wide)
	addr, err := readLongAddress(r, isa, wide, s.tracer.AddrRegs[0].Address)
	if err != nil {
		return err
	}
	ctx, err := parseContextInfo(r)
	if err != nil {
		return err
	}

	s.tracer.pushAddress(addr, isa)
	s.tracer.context(ctx)
	s.tracer.address()
	return nil
}
