package etmv4

import (
	"fmt"

	"etmdecode/common"
)

// synchronize finds the first A-Sync packet immediately followed by a
// trace info packet and returns its offset. The trace info is parsed in
// Syncing state, so it does not change the tracer.
func (s *Stream) synchronize() (int, error) {
	for i := 0; i < len(s.data); i++ {
		desc, ok := Classify(s.data[i])
		if !ok || desc.Type != PktExtension {
			continue
		}
		r := newReader(s.data, i, s.id)
		if err := parseAsync(r); err != nil {
			continue
		}

		tiOffset := i + asyncLen
		if tiOffset >= len(s.data) {
			s.logger.Debug(fmt.Sprintf("a-sync at offset %d ends the stream", i))
			break
		}
		if desc, ok := Classify(s.data[tiOffset]); !ok || desc.Type != PktTraceInfo {
			s.logger.Debug(fmt.Sprintf("a-sync at offset %d not followed by trace info (header 0x%02x)", i, s.data[tiOffset]))
			continue
		}
		if _, err := parseTraceInfo(newReader(s.data, tiOffset, s.id)); err != nil {
			s.logger.Debug(fmt.Sprintf("a-sync at offset %d: %v", i, err))
			continue
		}

		if err := s.setState(StateInSync); err != nil {
			return 0, err
		}
		s.tracer.ResetAddrRegs()
		return i, nil
	}

	// Trace info is expected directly after an A-Sync packet.
	return 0, common.NewErrorWithIdxChanMsg(common.ErrSevError, common.ErrNoSync, common.NoIdx, s.id,
		"no trace info packet right after an a-sync packet")
}
