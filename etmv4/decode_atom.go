package etmv4

import (
	"etmdecode/common"
)

var (
	atomF4Patterns = [4][]AtomType{
		{AtomN, AtomE, AtomE, AtomE},
		{AtomN, AtomN, AtomN, AtomN},
		{AtomN, AtomE, AtomN, AtomE},
		{AtomE, AtomN, AtomE, AtomN},
	}
	// indexed by header bit 5 (as bit 2) and bits [1:0]
	// nil entries are codes with no atom pattern
	atomF5Patterns = [8][]AtomType{
		5: {AtomN, AtomE, AtomE, AtomE, AtomE},
		1: {AtomN, AtomN, AtomN, AtomN, AtomN},
		2: {AtomN, AtomE, AtomN, AtomE, AtomN},
		3: {AtomE, AtomN, AtomE, AtomN, AtomE},
	}
)

func atomBit(hdr byte, bit uint) AtomType {
	if hdr>>bit&0x01 != 0 {
		return AtomE
	}
	return AtomN
}

// atoms unpacks the atom sequence carried by an atom header, oldest first.
func atoms(pt PktType, hdr byte) ([]AtomType, bool) {
	switch pt {
	case PktAtomF1:
		return []AtomType{atomBit(hdr, 0)}, true
	case PktAtomF2:
		return []AtomType{atomBit(hdr, 0), atomBit(hdr, 1)}, true
	case PktAtomF3:
		return []AtomType{atomBit(hdr, 0), atomBit(hdr, 1), atomBit(hdr, 2)}, true
	case PktAtomF4:
		return atomF4Patterns[hdr&0x03], true
	case PktAtomF5:
		p := atomF5Patterns[(hdr>>3)&0x04|hdr&0x03]
		return p, p != nil
	case PktAtomF6:
		n := int(hdr&0x1F) + 3
		out := make([]AtomType, n, n+1)
		for i := range out {
			out[i] = AtomE
		}
		if hdr&0x20 != 0 {
			return append(out, AtomN), true
		}
		return append(out, AtomE), true
	}
	return nil, false
}

func (s *Stream) decodeAtom(pt PktType, r *reader) error {
	seq, ok := atoms(pt, r.header())
	if !ok {
		return r.errorf(common.ErrBadPacket, "no atom pattern for header 0x%02x", r.header())
	}
	for _, a := range seq {
		s.tracer.atom(a)
	}
	return nil
}
