package etmv4

import (
	"fmt"

	"etmdecode/common"
)

// A-Sync packet: header 0x00, ten more 0x00 bytes, then 0x80.
const (
	asyncLen     = 12
	asyncEndByte = 0x80
)

// extension packet sub-types
const (
	extAsync    = 0x00
	extDiscard  = 0x03
	extOverflow = 0x05
)

// PLCTL presence bits of the trace info packet
const (
	plctlInfo = 0x1
	plctlKey  = 0x2
	plctlSpec = 0x4
	plctlCyct = 0x8
)

// maximum field lengths in bytes
const (
	plctlMaxBytes     = 1
	infoMaxBytes      = 1
	keyMaxBytes       = 4
	specMaxBytes      = 4
	cyctMaxBytes      = 2
	tsMaxBytes        = 9
	tsCycleCountBytes = 3
)

type traceInfo struct {
	plctl uint32
	info  uint32
	key   uint32
	spec  uint32
	cyct  uint32
}

type contextInfo struct {
	updated   bool
	el        uint8
	sf        bool
	ns        bool
	hasVMID   bool
	vmid      uint8
	hasCtxtID bool
	ctxtID    uint32
}

// decodePacket runs the handler for the packet family of desc.
func (s *Stream) decodePacket(desc Descriptor, r *reader) error {
	switch desc.Type {
	case PktExtension:
		return s.decodeExtension(r)
	case PktTraceInfo:
		return s.decodeTraceInfo(r)
	case PktTraceOn:
		s.tracer.traceOn()
		return nil
	case PktTimestamp:
		return s.decodeTimestamp(r)
	case PktExcept:
		return s.decodeException(r)
	case PktAddrShort:
		return s.decodeShortAddress(r)
	case PktAddrLong:
		return s.decodeLongAddress(r)
	case PktAddrMatch:
		return s.decodeExactMatch(r)
	case PktCtxt:
		return s.decodeContext(r)
	case PktAddrCtxt:
		return s.decodeAddressContext(r)
	case PktAtomF1, PktAtomF2, PktAtomF3, PktAtomF4, PktAtomF5, PktAtomF6:
		return s.decodeAtom(desc.Type, r)
	default:
		return r.errorf(common.ErrUnsuppDecodePkt, "packet %s (%s) not supported", desc.Name, desc.Type)
	}
}

// parseAsync checks the A-Sync payload following an extension header.
func parseAsync(r *reader) error {
	for i := 1; i < asyncLen; i++ {
		b, err := r.next("a-sync")
		if err != nil {
			return err
		}
		want := byte(0x00)
		if i == asyncLen-1 {
			want = asyncEndByte
		}
		if b != want {
			return r.errorf(common.ErrBadPacket, "invalid a-sync payload byte 0x%02x at offset %d", b, r.pos-1)
		}
	}
	return nil
}

func (s *Stream) decodeExtension(r *reader) error {
	sub, err := r.peek("extension")
	if err != nil {
		return err
	}
	switch sub {
	case extAsync:
		return parseAsync(r)
	case extDiscard:
		r.pos++
		s.tracer.discard()
	case extOverflow:
		r.pos++
		s.tracer.overflow()
	default:
		return r.errorf(common.ErrBadPacket, "invalid extension payload byte 0x%02x", sub)
	}
	return nil
}

// parseTraceInfo reads a trace info packet without touching tracer state.
func parseTraceInfo(r *reader) (traceInfo, error) {
	var ti traceInfo
	var err error

	if ti.plctl, err = r.varint("PLCTL", plctlMaxBytes); err != nil {
		return ti, err
	}
	if ti.plctl&plctlInfo != 0 {
		if ti.info, err = r.varint("INFO", infoMaxBytes); err != nil {
			return ti, err
		}
	}
	if ti.plctl&plctlKey != 0 {
		if ti.key, err = r.varint("KEY", keyMaxBytes); err != nil {
			return ti, err
		}
	}
	if ti.plctl&plctlSpec != 0 {
		if ti.spec, err = r.varint("SPEC", specMaxBytes); err != nil {
			return ti, err
		}
	}
	if ti.plctl&plctlCyct != 0 {
		if ti.cyct, err = r.varint("CYCT", cyctMaxBytes); err != nil {
			return ti, err
		}
	}
	return ti, nil
}

func (s *Stream) decodeTraceInfo(r *reader) error {
	ti, err := parseTraceInfo(r)
	if err != nil {
		return err
	}
	// before sync the packet is only measured
	if s.state >= StateInSync {
		if ti.plctl&plctlCyct != 0 && s.cfg != nil && !s.cfg.HasCycleCountI() {
			s.logger.Warning(fmt.Sprintf("trace info at offset %d sets a cycle count threshold but the trace unit has no cycle counting", r.start))
		}
		s.tracer.traceInfo(ti)
	}
	return nil
}

func (s *Stream) decodeTimestamp(r *reader) error {
	var ts uint64
	nrReplace := 0
	for i := 0; i < tsMaxBytes; i++ {
		b, err := r.next("timestamp")
		if err != nil {
			return err
		}
		if i == tsMaxBytes-1 {
			// last byte carries a full 8 bits
			ts |= uint64(b) << (7 * i)
			nrReplace += 8
			break
		}
		ts |= uint64(b&^cBit) << (7 * i)
		nrReplace += 7
		if b&cBit == 0 {
			break
		}
	}

	haveCC := r.header()&0x01 != 0
	var cc uint32
	if haveCC {
		for i := 0; i < tsCycleCountBytes; i++ {
			b, err := r.next("timestamp cycle count")
			if err != nil {
				return err
			}
			cc |= uint32(b&^cBit) << (7 * i)
			if b&cBit == 0 {
				break
			}
		}
	}

	s.tracer.timestamp(ts, nrReplace, haveCC, cc)
	return nil
}

func (s *Stream) decodeException(r *reader) error {
	if r.header()&0x01 != 0 {
		s.tracer.exceptionReturn()
		return nil
	}

	d1, err := r.next("exception info")
	if err != nil {
		return err
	}
	var d2 byte
	if d1&cBit != 0 {
		if d2, err = r.next("exception info"); err != nil {
			return err
		}
	}
	ee := (d1&0x40)>>5 | d1&0x01
	excType := uint16(d1&0x3E)>>1 | uint16(d2&0x1F)<<5

	switch ee {
	case 1:
	case 2:
		// the preferred return address follows as an address packet
		if err := s.decodeNestedAddress(r); err != nil {
			return err
		}
	default:
		return r.errorf(common.ErrBadPacket, "invalid EE value %d in exception packet", ee)
	}

	s.tracer.exception(excType)
	return nil
}

func (s *Stream) decodeNestedAddress(r *reader) error {
	c, err := r.peek("exception address")
	if err != nil {
		return err
	}
	desc, ok := Classify(c)
	if !ok || !desc.Type.IsAddress() {
		return r.errorf(common.ErrBadPacket, "exception packet followed by header 0x%02x, not an address packet", c)
	}
	sub := r.sub()
	if err := s.decodePacket(desc, sub); err != nil {
		return r.errorf(common.CodeOf(err), "invalid address packet in exception packet: %v", err)
	}
	r.skip(sub)
	return nil
}

// parseContextInfo reads the context info byte and the VMID and context ID that it flags.
func parseContextInfo(r *reader) (contextInfo, error) {
	ctx := contextInfo{updated: true}
	info, err := r.next("context info")
	if err != nil {
		return ctx, err
	}
	ctx.el = info & 0x03
	ctx.sf = info&0x10 != 0
	ctx.ns = info&0x20 != 0

	if info&0x40 != 0 {
		ctx.hasVMID = true
		if ctx.vmid, err = r.next("VMID"); err != nil {
			return ctx, err
		}
	}
	if info&0x80 != 0 {
		ctx.hasCtxtID = true
		for i := 0; i < 4; i++ {
			b, err := r.next("context ID")
			if err != nil {
				return ctx, err
			}
			ctx.ctxtID |= uint32(b) << (8 * i)
		}
	}
	return ctx, nil
}

func (s *Stream) decodeContext(r *reader) error {
	ctx := contextInfo{}
	if r.header()&0x01 != 0 {
		var err error
		if ctx, err = parseContextInfo(r); err != nil {
			return err
		}
	}
	s.tracer.context(ctx)
	return nil
}
