package etmv4

import (
	"fmt"
	"strings"
)

// EventKind identifies the trace element an Event reports.
type EventKind int

const (
	EvTraceInfo EventKind = iota
	EvTraceOn
	EvDiscard
	EvOverflow
	EvTimestamp
	EvException
	EvExceptionReturn
	EvCondFlush
	EvCommit
	EvAddress
	EvContext
	EvAtom
)

var eventKindNames = [...]string{
	EvTraceInfo:       "TraceInfo",
	EvTraceOn:         "TraceOn",
	EvDiscard:         "Discard",
	EvOverflow:        "Overflow",
	EvTimestamp:       "Timestamp",
	EvException:       "Exception",
	EvExceptionReturn: "ExceptionReturn",
	EvCondFlush:       "CondFlush",
	EvCommit:          "Commit",
	EvAddress:         "Address",
	EvContext:         "Context",
	EvAtom:            "Atom",
}

func (k EventKind) String() string {
	if k >= 0 && int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// AtomType is the outcome of one P0 element.
type AtomType uint8

const (
	AtomE AtomType = iota + 1 // executed
	AtomN                     // not executed
)

func (a AtomType) String() string {
	switch a {
	case AtomE:
		return "E"
	case AtomN:
		return "N"
	}
	return ""
}

func (a AtomType) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Event is one decoded trace element. Only the fields relevant to Kind are set.
type Event struct {
	Kind   EventKind `json:"kind"`
	Offset int       `json:"offset"`

	// TraceInfo
	Info        uint32 `json:"info,omitempty"`
	P0Key       uint32 `json:"p0_key,omitempty"`
	SpecDepth   uint32 `json:"spec_depth,omitempty"`
	CCThreshold uint32 `json:"cc_threshold,omitempty"`

	// Timestamp
	Timestamp  uint64 `json:"timestamp,omitempty"`
	HaveCC     bool   `json:"have_cc,omitempty"`
	CycleCount uint32 `json:"cycle_count,omitempty"`

	// Exception
	ExceptionType uint16 `json:"exception_type,omitempty"`

	// Address, Exception
	Address      uint64 `json:"address,omitempty"`
	ISA          ISA    `json:"isa,omitempty"`
	SixtyFourBit bool   `json:"sixty_four_bit,omitempty"`

	// Context
	ContextID uint32 `json:"context_id,omitempty"`
	VMID      uint8  `json:"vmid,omitempty"`
	ExLevel   uint8  `json:"ex_level,omitempty"`
	Secure    bool   `json:"secure,omitempty"`

	Atom   AtomType `json:"atom,omitempty"`
	Commit uint32   `json:"commit,omitempty"`
}

// Sink receives the events decoded from one trace source.
type Sink interface {
	TraceEventIn(srcID uint8, ev *Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(srcID uint8, ev *Event)

func (f SinkFunc) TraceEventIn(srcID uint8, ev *Event) { f(srcID, ev) }

var exceptionNames = [16]string{
	"PE reset",
	"Debug halt",
	"Call",
	"Trap",
	"System error",
	"",
	"Inst debug",
	"Data debug",
	"",
	"",
	"Alignment",
	"Inst fault",
	"Data fault",
	"",
	"IRQ",
	"FIQ",
}

// ExceptionName returns the architectural name of an exception type.
func ExceptionName(excType uint16) string {
	if int(excType) < len(exceptionNames) && exceptionNames[excType] != "" {
		return exceptionNames[excType]
	}
	return "Reserved"
}

// String renders the event as report text.
func (e *Event) String() string {
	switch e.Kind {
	case EvTraceInfo:
		var sb strings.Builder
		sb.WriteString("TraceInfo - ")
		sb.WriteString(pick(e.Info&0x01 != 0, "Cycle count enabled", "Cycle count disabled"))
		sb.WriteString(",\n            ")
		sb.WriteString(pick(e.Info&0x0E != 0,
			"Tracing of conditional non-branch instruction enabled",
			"Tracing of conditional non-branch instruction disabled"))
		sb.WriteString(",\n            ")
		sb.WriteString(pick(e.Info&0x10 != 0,
			"Explicit tracing of load instructions",
			"No explicit tracing of load instructions"))
		sb.WriteString(",\n            ")
		sb.WriteString(pick(e.Info&0x20 != 0,
			"Explicit tracing of store instructions",
			"No explicit tracing of store instructions"))
		fmt.Fprintf(&sb, ",\n            p0_key = 0x%X,", e.P0Key)
		fmt.Fprintf(&sb, "\n            curr_spec_depth = %d,", e.SpecDepth)
		fmt.Fprintf(&sb, "\n            cc_threshold = 0x%X", e.CCThreshold)
		return sb.String()
	case EvTraceOn:
		return "TraceOn - A discontinuity in the trace stream"
	case EvDiscard:
		return "Discard - speculative trace elements cancelled"
	case EvOverflow:
		return "Overflow - trace unit buffer overflow"
	case EvTimestamp:
		s := fmt.Sprintf("Timestamp - %d", e.Timestamp)
		if e.HaveCC {
			s += fmt.Sprintf("\n            (number of cycles between the most recent Cycle Count element %d)", e.CycleCount)
		}
		return s
	case EvException:
		return fmt.Sprintf("Exception - exception type %s, address 0x%016x", ExceptionName(e.ExceptionType), e.Address)
	case EvExceptionReturn:
		return "Exception return"
	case EvCondFlush:
		return "Conditional flush"
	case EvCommit:
		return fmt.Sprintf("Commit - %d", e.Commit)
	case EvAddress:
		return fmt.Sprintf("Address - Instruction address 0x%016x, Instruction set %s", e.Address, isaName(e.ISA, e.SixtyFourBit))
	case EvContext:
		return fmt.Sprintf("Context - Context ID = 0x%X,\n"+
			"          VMID = 0x%X,\n"+
			"          Exception level = EL%d,\n"+
			"          Security = %s,\n"+
			"          %d-bit instruction",
			e.ContextID, e.VMID, e.ExLevel, pick(e.Secure, "S", "NS"), pickInt(e.SixtyFourBit, 64, 32))
	case EvAtom:
		return "ATOM - " + e.Atom.String()
	}
	return e.Kind.String()
}

func isaName(isa ISA, sixtyFour bool) string {
	if sixtyFour {
		return "Aarch64"
	}
	switch isa {
	case ISA0:
		return "Aarch32 (ARM)"
	case ISA1:
		return "Aarch32 (Thumb)"
	}
	return "Aarch32 (unknown)"
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}

func pickInt(cond bool, a, b int) int {
	if cond {
		return a
	}
	return b
}
