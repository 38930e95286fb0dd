package etmv4

import (
	"fmt"
)

// PktType is the ETMv4 instruction trace packet family selected by a header byte.
type PktType int

const (
	PktExtension PktType = iota // b00000000, A-Sync / discard / overflow
	PktTraceInfo                // b00000001
	PktTraceOn                  // b00000100
	PktTimestamp                // b0000001x
	PktExcept                   // b0000011x, exception and exception return

	// cycle count packets
	PktCcntF1 // b0000111x
	PktCcntF2 // b0000110x
	PktCcntF3 // b0001xxxx

	PktDataSyncMarker // b0010xxxx

	// commit / cancel
	PktCommit     // b00101101
	PktCancel     // b0010111x, b001101xx, b00111xxx
	PktMispredict // b001100xx

	// conditional
	PktCondInstrF1 // b01101100
	PktCondInstrF2 // b010000xx
	PktCondInstrF3 // b01101101
	PktCondFlush   // b01000011
	PktCondResF1   // b01101xxx
	PktCondResF2   // b01001xxx
	PktCondResF3   // b0101xxxx
	PktCondResF4   // b010001xx

	PktEvent // b0111xxxx

	// address / context
	PktAddrShort     // b10010101, b10010110
	PktAddrLong      // b10011010, b10011011, b10011101, b10011110
	PktAddrMatch     // b100100xx
	PktCtxt          // b1000000x
	PktAddrCtxt      // b10000010, b10000011, b10000101, b10000110

	// atoms
	PktAtomF1 // b1111011x
	PktAtomF2 // b110110xx
	PktAtomF3 // b11111xxx
	PktAtomF4 // b110111xx
	PktAtomF5 // b11110101, b110101xx
	PktAtomF6 // b11010000 - b11010100, b11110000 - b11110100, b1100xxxx, b1110xxxx

	PktQ // b1010xxxx
)

// ensure PktType meets Stringer requirements
var _ fmt.Stringer = PktType(0)

func (t PktType) String() string {
	switch t {
	case PktExtension:
		return "I_EXTENSION"
	case PktTraceInfo:
		return "I_TRACE_INFO"
	case PktTraceOn:
		return "I_TRACE_ON"
	case PktTimestamp:
		return "I_TIMESTAMP"
	case PktExcept:
		return "I_EXCEPT"
	case PktCcntF1:
		return "I_CCNT_F1"
	case PktCcntF2:
		return "I_CCNT_F2"
	case PktCcntF3:
		return "I_CCNT_F3"
	case PktDataSyncMarker:
		return "I_DS_MKR"
	case PktCommit:
		return "I_COMMIT"
	case PktCancel:
		return "I_CANCEL"
	case PktMispredict:
		return "I_MISPREDICT"
	case PktCondInstrF1:
		return "I_COND_I_F1"
	case PktCondInstrF2:
		return "I_COND_I_F2"
	case PktCondInstrF3:
		return "I_COND_I_F3"
	case PktCondFlush:
		return "I_COND_FLUSH"
	case PktCondResF1:
		return "I_COND_RES_F1"
	case PktCondResF2:
		return "I_COND_RES_F2"
	case PktCondResF3:
		return "I_COND_RES_F3"
	case PktCondResF4:
		return "I_COND_RES_F4"
	case PktEvent:
		return "I_EVENT"
	case PktAddrShort:
		return "I_ADDR_S"
	case PktAddrLong:
		return "I_ADDR_L"
	case PktAddrMatch:
		return "I_ADDR_MATCH"
	case PktCtxt:
		return "I_CTXT"
	case PktAddrCtxt:
		return "I_ADDR_CTXT_L"
	case PktAtomF1:
		return "I_ATOM_F1"
	case PktAtomF2:
		return "I_ATOM_F2"
	case PktAtomF3:
		return "I_ATOM_F3"
	case PktAtomF4:
		return "I_ATOM_F4"
	case PktAtomF5:
		return "I_ATOM_F5"
	case PktAtomF6:
		return "I_ATOM_F6"
	case PktQ:
		return "I_Q"
	default:
		return fmt.Sprintf("I_UNKNOWN(%d)", int(t))
	}
}

// IsAddress reports whether the family loads the address register ring.
func (t PktType) IsAddress() bool {
	switch t {
	case PktAddrShort, PktAddrLong, PktAddrMatch, PktAddrCtxt:
		return true
	}
	return false
}

// Descriptor is one header classification rule.
type Descriptor struct {
	Name  string
	Mask  byte
	Value byte
	Type  PktType
}

// Matches reports whether header byte c satisfies the rule.
func (d Descriptor) Matches(c byte) bool {
	return c&d.Mask == d.Value
}

// packetTable is ordered: the first matching entry classifies a header,
// so narrower masks precede broader ones that overlap them.
var packetTable = [...]Descriptor{
	{"extension", 0xff, 0x00, PktExtension},
	{"trace_info", 0xff, 0x01, PktTraceInfo},
	{"trace_on", 0xff, 0x04, PktTraceOn},
	{"timestamp", 0xfe, 0x02, PktTimestamp},
	{"exception", 0xfe, 0x06, PktExcept},
	{"cc_format_1", 0xfe, 0x0e, PktCcntF1},
	{"cc_format_2", 0xfe, 0x0c, PktCcntF2},
	{"cc_format_3", 0xf0, 0x10, PktCcntF3},
	{"data_sync_marker", 0xf0, 0x20, PktDataSyncMarker},
	{"commit", 0xff, 0x2d, PktCommit},
	{"cancel_format_1", 0xfe, 0x2e, PktCancel},
	{"cancel_format_2", 0xfc, 0x34, PktCancel},
	{"cancel_format_3", 0xf8, 0x38, PktCancel},
	{"mispredict", 0xfc, 0x30, PktMispredict},
	{"cond_inst_format_1", 0xff, 0x6c, PktCondInstrF1},
	{"cond_inst_format_2", 0xfc, 0x40, PktCondInstrF2},
	{"cond_inst_format_3", 0xff, 0x6d, PktCondInstrF3},
	{"cond_flush", 0xff, 0x43, PktCondFlush},
	{"cond_result_format_1", 0xf8, 0x68, PktCondResF1},
	{"cond_result_format_2", 0xf8, 0x48, PktCondResF2},
	{"cond_result_format_3", 0xf0, 0x50, PktCondResF3},
	{"cond_result_format_4", 0xfc, 0x44, PktCondResF4},
	{"event", 0xf0, 0x70, PktEvent},
	{"short_address_is0", 0xff, 0x95, PktAddrShort},
	{"short_address_is1", 0xff, 0x96, PktAddrShort},
	{"long_address_32bit_is0", 0xff, 0x9a, PktAddrLong},
	{"long_address_32bit_is1", 0xff, 0x9b, PktAddrLong},
	{"long_address_64bit_is0", 0xff, 0x9d, PktAddrLong},
	{"long_address_64bit_is1", 0xff, 0x9e, PktAddrLong},
	{"exact_match_address", 0xfc, 0x90, PktAddrMatch},
	{"context", 0xfe, 0x80, PktCtxt},
	{"address_context_32bit_is0", 0xff, 0x82, PktAddrCtxt},
	{"address_context_32bit_is1", 0xff, 0x83, PktAddrCtxt},
	{"address_context_64bit_is0", 0xff, 0x85, PktAddrCtxt},
	{"address_context_64bit_is1", 0xff, 0x86, PktAddrCtxt},
	{"atom_format_1", 0xfe, 0xf6, PktAtomF1},
	{"atom_format_2", 0xfc, 0xd8, PktAtomF2},
	{"atom_format_3", 0xf8, 0xf8, PktAtomF3},
	{"atom_format_4", 0xfc, 0xdc, PktAtomF4},
	{"atom_format_5_1", 0xff, 0xf5, PktAtomF5},
	{"atom_format_5_2", 0xff, 0xd5, PktAtomF5},
	{"atom_format_5_3", 0xff, 0xd6, PktAtomF5},
	{"atom_format_5_4", 0xff, 0xd7, PktAtomF5},
	{"atom_format_6_1", 0xff, 0xd0, PktAtomF6},
	{"atom_format_6_2", 0xff, 0xd1, PktAtomF6},
	{"atom_format_6_3", 0xff, 0xd2, PktAtomF6},
	{"atom_format_6_4", 0xff, 0xd3, PktAtomF6},
	{"atom_format_6_5", 0xff, 0xd4, PktAtomF6},
	{"atom_format_6_6", 0xff, 0xf0, PktAtomF6},
	{"atom_format_6_7", 0xff, 0xf1, PktAtomF6},
	{"atom_format_6_8", 0xff, 0xf2, PktAtomF6},
	{"atom_format_6_9", 0xff, 0xf3, PktAtomF6},
	{"atom_format_6_10", 0xff, 0xf4, PktAtomF6},
	{"atom_format_6_11", 0xf0, 0xc0, PktAtomF6},
	{"atom_format_6_12", 0xf0, 0xe0, PktAtomF6},
	{"q", 0xf0, 0xa0, PktQ},
}

// PacketTable returns a copy of the ordered classification table.
func PacketTable() []Descriptor {
	out := make([]Descriptor, len(packetTable))
	copy(out, packetTable[:])
	return out
}

// Classify returns the first table entry matching header byte c.
func Classify(c byte) (Descriptor, bool) {
	for _, d := range packetTable {
		if d.Matches(c) {
			return d, true
		}
	}
	return Descriptor{}, false
}
