package etmv4

import (
	"fmt"

	"etmdecode/common"
)

// State is the decode progress of a stream. It only moves forward.
type State int

const (
	StateReading State = iota
	StateSyncing
	StateInSync
	StateDecoding
	StateDecoded
)

func (s State) String() string {
	switch s {
	case StateReading:
		return "Reading"
	case StateSyncing:
		return "Syncing"
	case StateInSync:
		return "InSync"
	case StateDecoding:
		return "Decoding"
	case StateDecoded:
		return "Decoded"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Stats counts what the dispatch loop saw in one stream.
type Stats struct {
	SyncOffset     int
	Packets        map[string]int // by packet table name
	UnknownHeaders int
	Errors         map[common.ErrCode]int
}

// Stream decodes the ETMv4 trace of one trace source.
type Stream struct {
	id     uint8
	data   []byte
	state  State
	tracer *Tracer
	cfg    *Config
	logger common.Logger
	stats  Stats
}

// NewStream creates a stream over data, which must not change while decoding.
// Events go to sink, which may be nil.
func NewStream(id uint8, data []byte, sink Sink) *Stream {
	return &Stream{
		id:     id,
		data:   data,
		state:  StateReading,
		tracer: NewTracer(id, sink),
		logger: common.NewNoOpLogger(),
		stats: Stats{
			SyncOffset: -1,
			Packets:    make(map[string]int),
			Errors:     make(map[common.ErrCode]int),
		},
	}
}

// SetLogger sets the logger used for decode diagnostics.
func (s *Stream) SetLogger(logger common.Logger) {
	if logger == nil {
		logger = common.NewNoOpLogger()
	}
	s.logger = logger
}

// SetConfig applies trace unit register values. Only valid before Decode.
func (s *Stream) SetConfig(cfg Config) error {
	if s.state != StateReading {
		return s.stateError("cannot configure")
	}
	if cfg.MajVersion() != 4 {
		s.logger.Warning(fmt.Sprintf("register set reports trace architecture %d.%d, decoding as ETMv4", cfg.MajVersion(), cfg.MinVersion()))
	} else {
		s.logger.Debug(fmt.Sprintf("trace unit is ETMv4.%d, %d-bit addresses", cfg.MinVersion(), cfg.IASizeMax()))
	}
	s.cfg = &cfg
	s.tracer.ApplyConfig(cfg)
	return nil
}

// checkWideAddress warns about a 64-bit address from a unit configured
// for 32-bit addresses. The packet is still decoded.
func (s *Stream) checkWideAddress(r *reader, wide bool) {
	if wide && s.cfg != nil && s.cfg.IASizeMax() == 32 {
		s.logger.Warning(fmt.Sprintf("64-bit address packet 0x%02x at offset %d from a trace unit with 32-bit addresses", r.header(), r.start))
	}
}

func (s *Stream) ID() uint8       { return s.id }
func (s *Stream) State() State    { return s.state }
func (s *Stream) Tracer() *Tracer { return s.tracer }
func (s *Stream) Stats() Stats    { return s.stats }
func (s *Stream) Len() int        { return len(s.data) }

func (s *Stream) stateError(op string) *common.Error {
	return common.NewErrorWithIdxChanMsg(common.ErrSevError, common.ErrInvalidState, common.NoIdx, s.id,
		fmt.Sprintf("%s: stream is in state %s", op, s.state))
}

func (s *Stream) setState(next State) error {
	if next < s.state {
		return s.stateError(fmt.Sprintf("illegal transition to %s", next))
	}
	s.state = next
	return nil
}

// Decode synchronizes the stream and decodes it to the end.
// A stream can be decoded once.
func (s *Stream) Decode() error {
	if s.state != StateReading {
		return s.stateError("cannot decode")
	}
	if err := s.setState(StateSyncing); err != nil {
		return err
	}

	s.logger.Debug("syncing the trace stream")
	cur, err := s.synchronize()
	if err != nil {
		s.stats.Errors[common.CodeOf(err)]++
		return err
	}
	s.stats.SyncOffset = cur

	if err := s.setState(StateDecoding); err != nil {
		return err
	}
	s.logger.Debug(fmt.Sprintf("decoding the trace stream from offset %d", cur))

	for cur < len(s.data) {
		n, desc, err := s.dispatch(cur)
		if err != nil {
			s.stats.Errors[common.CodeOf(err)]++
			if common.CodeOf(err) == common.ErrInvalidPcktHdr {
				s.stats.UnknownHeaders++
				s.logger.Warning(fmt.Sprintf("cannot recognize a packet header 0x%02x at offset %d, proceed on guesswork", s.data[cur], cur))
			} else {
				s.logger.Warning(fmt.Sprintf("cannot decode a packet of type %s at offset %d, proceed on guesswork: %v", desc.Name, cur, err))
			}
			cur++
			continue
		}
		s.stats.Packets[desc.Name]++
		cur += n
	}

	return s.setState(StateDecoded)
}

// dispatch decodes the packet at offset and returns its length.
func (s *Stream) dispatch(offset int) (int, Descriptor, error) {
	c := s.data[offset]
	desc, ok := Classify(c)
	if !ok {
		return 0, desc, common.NewErrorWithIdxChanMsg(common.ErrSevError, common.ErrInvalidPcktHdr, offset, s.id,
			fmt.Sprintf("no packet matches header 0x%02x", c))
	}
	r := newReader(s.data, offset, s.id)
	s.tracer.offset = offset
	if err := s.decodePacket(desc, r); err != nil {
		return 0, desc, err
	}
	return r.consumed(), desc, nil
}
