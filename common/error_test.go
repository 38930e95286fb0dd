package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorStrings(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "Invalid SevNone",
			err:      NewError(ErrSevNone, OK),
			expected: "LIBRARY INTERNAL ERROR: Invalid Error Object",
		},
		{
			name:     "Invalid Sev Out of Bounds",
			err:      NewError(ErrSeverity(99), OK),
			expected: "LIBRARY INTERNAL ERROR: Invalid Error Object",
		},
		{
			name:     "Error Basic",
			err:      NewError(ErrSevError, ErrFail),
			expected: "ERROR:0x0001 (ERR_FAIL) [General failure.]; ",
		},
		{
			name:     "Warning with msg",
			err:      NewErrorMsg(ErrSevWarn, ErrInvalidState, "stream already decoded"),
			expected: "WARN :0x0003 (ERR_INVALID_STATE) [Operation not valid in the current stream state.]; stream already decoded",
		},
		{
			name:     "Error with Idx Msg",
			err:      NewErrorWithIdxChanMsg(ErrSevError, ErrInvalidPcktHdr, 42, NoChanID, "header 0x0b"),
			expected: "ERROR:0x0005 (ERR_INVALID_PCKT_HDR) [Invalid packet header]; TrcIdx=42; header 0x0b",
		},
		{
			name:     "Info with Idx Chan Msg",
			err:      NewErrorWithIdxChanMsg(ErrSevInfo, ErrNoSync, 10, 0x22, "no a-sync"),
			expected: "INFO :0x000a (ERR_NO_SYNC) [No synchronisation point found in stream]; TrcIdx=10; CS ID=22; no a-sync",
		},
		{
			name:     "Truncated at Idx",
			err:      NewErrorWithIdxChanMsg(ErrSevError, ErrTruncatedPacket, 7, NoChanID, "need 3 bytes"),
			expected: "ERROR:0x0007 (ERR_TRUNCATED_PACKET) [Packet runs past the end of the stream]; TrcIdx=7; need 3 bytes",
		},
		{
			name:     "Unknown error code",
			err:      NewError(ErrSevError, 9999),
			expected: "ERROR:0x270f (unknown); ",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.err.Error()
			if got != tc.expected {
				t.Errorf("Expected string: %q, got: %q", tc.expected, got)
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrCode
	}{
		{"nil", nil, OK},
		{"direct", NewErrorMsg(ErrSevError, ErrBadPacket, "x"), ErrBadPacket},
		{"wrapped", fmt.Errorf("stream 1: %w", NewErrorWithIdxChanMsg(ErrSevError, ErrFieldTooLong, 3, 1, "key")), ErrFieldTooLong},
		{"foreign", errors.New("boom"), ErrFail},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CodeOf(tc.err); got != tc.want {
				t.Errorf("CodeOf() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("decode: %w", NewErrorMsg(ErrSevError, ErrNoSync, "no trace info"))
	if !errors.Is(err, NewError(ErrSevError, ErrNoSync)) {
		t.Error("errors.Is should match on code")
	}
	if errors.Is(err, NewError(ErrSevError, ErrBadPacket)) {
		t.Error("errors.Is should not match a different code")
	}
}

func TestErrCodeName(t *testing.T) {
	if got := ErrUnsuppDecodePkt.Name(); got != "ERR_UNSUPP_DECODE_PKT" {
		t.Errorf("Name() = %q", got)
	}
	if got := ErrCode(500).String(); got != "ERR_UNKNOWN" {
		t.Errorf("String() = %q", got)
	}
}

func TestErrCodesTable(t *testing.T) {
	codes := ErrCodes()
	if len(codes) != 11 || codes[0] != OK || codes[len(codes)-1] != ErrNoSync {
		t.Fatalf("unexpected code list %v", codes)
	}
	for _, c := range codes {
		if c.Name() == "ERR_UNKNOWN" || c.Description() == "Unknown error code." {
			t.Errorf("code %d has no table entry", uint32(c))
		}
	}
	if got := ErrCode(500).Description(); got != "Unknown error code." {
		t.Errorf("Description() = %q", got)
	}
}
