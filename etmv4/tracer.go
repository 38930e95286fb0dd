package etmv4

// ISA is the instruction set tag carried by an address register.
type ISA uint8

const (
	ISAUnknown ISA = iota
	ISA0           // A32 in AArch32 state
	ISA1           // T32 in AArch32 state
)

func (i ISA) String() string {
	switch i {
	case ISA0:
		return "IS0"
	case ISA1:
		return "IS1"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the tag by name in structured output.
func (i ISA) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// AddrReg is one entry of the address register history.
type AddrReg struct {
	Address uint64
	ISA     ISA
}

// Tracer is the architectural decode context of one trace stream.
// Packet handlers change it through the helpers below and report each
// change to the sink as an Event.
type Tracer struct {
	Info uint32 // INFO field of the last accepted trace info packet

	P0Key          uint32
	P0KeyMax       uint32 // 0: the trace unit uses no P0 keys
	CondCKey       uint32
	CondRKey       uint32
	CondKeyMaxIncr uint32

	CurrSpecDepth uint32
	MaxSpecDepth  uint32
	CCThreshold   uint32

	Timestamp uint64

	// AddrRegs[0] is the most recent address.
	AddrRegs [3]AddrReg

	ContextID    uint32
	VMID         uint8
	ExLevel      uint8
	Secure       bool
	SixtyFourBit bool

	srcID  uint8
	sink   Sink
	offset int // offset of the packet being decoded
}

// NewTracer creates a reset tracer reporting to sink, which may be nil.
func NewTracer(srcID uint8, sink Sink) *Tracer {
	return &Tracer{srcID: srcID, sink: sink}
}

// ApplyConfig loads the register derived limits.
func (t *Tracer) ApplyConfig(cfg Config) {
	t.MaxSpecDepth = cfg.MaxSpecDepth()
	t.P0KeyMax = cfg.P0KeyMax()
	t.CondKeyMaxIncr = cfg.CondKeyMaxIncr()
}

// ResetAddrRegs clears the address history.
func (t *Tracer) ResetAddrRegs() {
	t.AddrRegs = [3]AddrReg{}
}

func (t *Tracer) emit(ev Event) {
	if t.sink == nil {
		return
	}
	ev.Offset = t.offset
	t.sink.TraceEventIn(t.srcID, &ev)
}

// pushAddress shifts the history down and loads addr into AddrRegs[0].
func (t *Tracer) pushAddress(addr uint64, isa ISA) {
	t.AddrRegs[2] = t.AddrRegs[1]
	t.AddrRegs[1] = t.AddrRegs[0]
	t.AddrRegs[0] = AddrReg{Address: addr, ISA: isa}
}

// mergeTimestamp replaces the low nrReplace bits of the running timestamp.
// A zero value leaves the timestamp unchanged.
func (t *Tracer) mergeTimestamp(ts uint64, nrReplace int) {
	if ts == 0 {
		return
	}
	if nrReplace >= 64 {
		t.Timestamp = ts
		return
	}
	t.Timestamp = t.Timestamp&^(uint64(1)<<nrReplace-1) | ts
}

// applyTraceInfo resets the address history and loads the sections
// flagged present in plctl, zeroing the others.
func (t *Tracer) applyTraceInfo(ti traceInfo) {
	t.ResetAddrRegs()
	t.Info, t.P0Key, t.CurrSpecDepth, t.CCThreshold = 0, 0, 0, 0
	if ti.plctl&plctlInfo != 0 {
		t.Info = ti.info
	}
	if ti.plctl&plctlKey != 0 {
		t.P0Key = ti.key
	}
	if ti.plctl&plctlSpec != 0 {
		t.CurrSpecDepth = ti.spec
	}
	if ti.plctl&plctlCyct != 0 {
		t.CCThreshold = ti.cyct
	}
}

func (t *Tracer) applyContext(ctx contextInfo) {
	if !ctx.updated {
		return
	}
	t.ExLevel = ctx.el
	t.SixtyFourBit = ctx.sf
	t.Secure = !ctx.ns
	if ctx.hasVMID {
		t.VMID = ctx.vmid
	}
	if ctx.hasCtxtID {
		t.ContextID = ctx.ctxtID
	}
}

// p0Element accounts for one P0 element and reports whether it was
// committed straight away.
func (t *Tracer) p0Element() bool {
	if t.P0KeyMax != 0 {
		t.P0Key = (t.P0Key + 1) % t.P0KeyMax
	}
	t.CurrSpecDepth++
	if t.MaxSpecDepth == 0 || t.CurrSpecDepth > t.MaxSpecDepth {
		t.CurrSpecDepth--
		return true
	}
	return false
}

func (t *Tracer) traceInfo(ti traceInfo) {
	t.applyTraceInfo(ti)
	t.emit(Event{
		Kind:        EvTraceInfo,
		Info:        t.Info,
		P0Key:       t.P0Key,
		SpecDepth:   t.CurrSpecDepth,
		CCThreshold: t.CCThreshold,
	})
}

func (t *Tracer) traceOn() {
	t.emit(Event{Kind: EvTraceOn})
}

// discard cancels every speculative element.
func (t *Tracer) discard() {
	t.CurrSpecDepth = 0
	t.emit(Event{Kind: EvDiscard})
}

func (t *Tracer) overflow() {
	t.emit(Event{Kind: EvOverflow})
}

func (t *Tracer) timestamp(ts uint64, nrReplace int, haveCC bool, cc uint32) {
	t.mergeTimestamp(ts, nrReplace)
	t.emit(Event{Kind: EvTimestamp, Timestamp: t.Timestamp, HaveCC: haveCC, CycleCount: cc})
}

func (t *Tracer) exception(excType uint16) {
	t.emit(Event{Kind: EvException, ExceptionType: excType, Address: t.AddrRegs[0].Address})
	t.emit(Event{Kind: EvCondFlush})
	t.element()
}

func (t *Tracer) exceptionReturn() {
	t.emit(Event{Kind: EvExceptionReturn})
}

func (t *Tracer) address() {
	t.emit(Event{
		Kind:         EvAddress,
		Address:      t.AddrRegs[0].Address,
		ISA:          t.AddrRegs[0].ISA,
		SixtyFourBit: t.SixtyFourBit,
	})
}

func (t *Tracer) context(ctx contextInfo) {
	t.applyContext(ctx)
	t.emit(Event{
		Kind:         EvContext,
		ContextID:    t.ContextID,
		VMID:         t.VMID,
		ExLevel:      t.ExLevel,
		Secure:       t.Secure,
		SixtyFourBit: t.SixtyFourBit,
	})
}

func (t *Tracer) atom(a AtomType) {
	t.emit(Event{Kind: EvAtom, Atom: a})
	t.element()
}

func (t *Tracer) element() {
	if t.p0Element() {
		t.emit(Event{Kind: EvCommit, Commit: 1})
	}
}
