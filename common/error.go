package common

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCode is the decoder error code.
type ErrCode uint32

const (
	OK                 ErrCode = 0
	ErrFail            ErrCode = 1
	ErrInvalidParamVal ErrCode = 2
	ErrInvalidState    ErrCode = 3
	ErrFileError       ErrCode = 4
	ErrInvalidPcktHdr  ErrCode = 5
	ErrBadPacket       ErrCode = 6
	ErrTruncatedPacket ErrCode = 7
	ErrFieldTooLong    ErrCode = 8
	ErrUnsuppDecodePkt ErrCode = 9
	ErrNoSync          ErrCode = 10
)

// ErrSeverity grades an error object.
type ErrSeverity int

const (
	ErrSevNone ErrSeverity = iota
	ErrSevError
	ErrSevWarn
	ErrSevInfo
)

const (
	// NoIdx marks an error not tied to a buffer offset.
	NoIdx = -1
	// NoChanID marks an error not tied to a trace source.
	NoChanID uint8 = 0xFF
)

// Error represents the library error object.
type Error struct {
	Code    ErrCode
	Sev     ErrSeverity
	Idx     int
	ChanID  uint8
	Message string
}

func NewError(sev ErrSeverity, code ErrCode) *Error {
	return &Error{Code: code, Sev: sev, Idx: NoIdx, ChanID: NoChanID}
}

func NewErrorMsg(sev ErrSeverity, code ErrCode, msg string) *Error {
	return &Error{Code: code, Sev: sev, Idx: NoIdx, ChanID: NoChanID, Message: msg}
}

func NewErrorWithIdxChanMsg(sev ErrSeverity, code ErrCode, idx int, chanID uint8, msg string) *Error {
	return &Error{Code: code, Sev: sev, Idx: idx, ChanID: chanID, Message: msg}
}

// Error implements the standard error interface.
func (e *Error) Error() string {
	var sb strings.Builder

	switch e.Sev {
	case ErrSevError:
		sb.WriteString("ERROR:")
	case ErrSevWarn:
		sb.WriteString("WARN :")
	case ErrSevInfo:
		sb.WriteString("INFO :")
	default:
		return "LIBRARY INTERNAL ERROR: Invalid Error Object"
	}

	sb.WriteString(fmt.Sprintf("0x%04x ", uint32(e.Code)))

	if desc, ok := errorCodeDesc[e.Code]; ok {
		sb.WriteString(fmt.Sprintf("(%s) [%s]; ", desc.name, desc.msg))
	} else {
		sb.WriteString("(unknown); ")
	}

	if e.Idx != NoIdx {
		sb.WriteString(fmt.Sprintf("TrcIdx=%d; ", e.Idx))
	}

	if e.ChanID != NoChanID {
		sb.WriteString(fmt.Sprintf("CS ID=%02x; ", e.ChanID))
	}

	sb.WriteString(e.Message)
	return sb.String()
}

// Is reports a match on error code so errors.Is works against a bare NewError(…, code).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf returns the code of the first *Error in err's chain, OK for nil
// and ErrFail for foreign errors.
func CodeOf(err error) ErrCode {
	if err == nil {
		return OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrFail
}

// Name returns the short symbolic name of the code.
func (c ErrCode) Name() string {
	if d, ok := errorCodeDesc[c]; ok {
		return d.name
	}
	return "ERR_UNKNOWN"
}

func (c ErrCode) String() string { return c.Name() }

// Description returns the one line explanation of the code.
func (c ErrCode) Description() string {
	if d, ok := errorCodeDesc[c]; ok {
		return d.msg
	}
	return "Unknown error code."
}

// ErrCodes lists every defined code in ascending order.
func ErrCodes() []ErrCode {
	codes := make([]ErrCode, 0, len(errorCodeDesc))
	for c := OK; c <= ErrNoSync; c++ {
		codes = append(codes, c)
	}
	return codes
}

type errDesc struct {
	name string
	msg  string
}

var errorCodeDesc = map[ErrCode]errDesc{
	OK:                 {"OK", "No Error."},
	ErrFail:            {"ERR_FAIL", "General failure."},
	ErrInvalidParamVal: {"ERR_INVALID_PARAM_VAL", "Invalid value parameter passed to component."},
	ErrInvalidState:    {"ERR_INVALID_STATE", "Operation not valid in the current stream state."},
	ErrFileError:       {"ERR_FILE_ERROR", "File access error"},
	ErrInvalidPcktHdr:  {"ERR_INVALID_PCKT_HDR", "Invalid packet header"},
	ErrBadPacket:       {"ERR_BAD_PACKET", "Malformed packet payload"},
	ErrTruncatedPacket: {"ERR_TRUNCATED_PACKET", "Packet runs past the end of the stream"},
	ErrFieldTooLong:    {"ERR_FIELD_TOO_LONG", "Packet field exceeds its maximum length"},
	ErrUnsuppDecodePkt: {"ERR_UNSUPP_DECODE_PKT", "Packet not supported in decoder"},
	ErrNoSync:          {"ERR_NO_SYNC", "No synchronisation point found in stream"},
}
