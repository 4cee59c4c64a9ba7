// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package arducomm

// Frame is a decoded ArduComm frame: either a *DataFrame or an *AckFrame
type Frame interface {
	Seq() uint8
	Cmd() uint8
	Kind() FrameKind
}

// DataFrame carries one application message
type DataFrame struct {
	Sequence uint8
	Command  uint8
	Payload  []byte

	checksum uint16 // as received; zero for locally built frames
}

// NewDataFrame builds a data frame, rejecting oversized payloads and the
// reserved ACK command.
func NewDataFrame(seq, cmd uint8, payload []byte) (*DataFrame, error) {
	if len(payload) > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}
	if cmd == AckCommand {
		return nil, ErrReservedCommand
	}
	return &DataFrame{Sequence: seq, Command: cmd, Payload: payload}, nil
}

func (f *DataFrame) Seq() uint8      { return f.Sequence }
func (f *DataFrame) Cmd() uint8      { return f.Command }
func (f *DataFrame) Kind() FrameKind { return FrameKindData }

// PayloadLength returns the length byte, always derived from the payload
func (f *DataFrame) PayloadLength() uint8 {
	return uint8(len(f.Payload))
}

// Checksum computes the frame check value with fn (Fletcher16 when nil)
func (f *DataFrame) Checksum(fn ChecksumFunc) uint16 {
	if fn == nil {
		fn = FletcherChecksum
	}
	return fn(f.Sequence, f.Command, f.PayloadLength(), f.Payload)
}

// ReceivedChecksum returns the check value carried by a parsed frame
func (f *DataFrame) ReceivedChecksum() uint16 {
	return f.checksum
}

// Encode returns the wire form of the frame, delimiters included.
func (f *DataFrame) Encode(fn ChecksumFunc) []byte {
	crc := f.Checksum(fn)

	// Worst case every logical byte is escaped
	out := make([]byte, 0, 2+2*(DataFrameOverhead+len(f.Payload)))
	out = append(out, DelimiterByte)
	out = appendEscaped(out, f.Sequence)
	out = appendEscaped(out, f.Command)
	out = appendEscaped(out, f.PayloadLength())
	out = StuffBytes(out, f.Payload)
	out = appendEscaped(out, byte(crc>>8))
	out = appendEscaped(out, byte(crc&0xFF))
	out = append(out, DelimiterByte)

	return out
}

// AckFrame acknowledges a data frame. Its sequence either confirms receipt
// (sent sequence + 1) or asks for a retransmission (sent sequence unchanged).
type AckFrame struct {
	Sequence uint8
}

func (a *AckFrame) Seq() uint8      { return a.Sequence }
func (a *AckFrame) Cmd() uint8      { return AckCommand }
func (a *AckFrame) Kind() FrameKind { return FrameKindAck }

// Encode returns the wire form of the ACK. Only the sequence can collide
// with a framing byte; the command byte 0x01 never does.
func (a *AckFrame) Encode() []byte {
	out := make([]byte, 0, 5)
	out = append(out, DelimiterByte)
	out = appendEscaped(out, a.Sequence)
	out = append(out, AckCommand, DelimiterByte)
	return out
}

// IsSuccessFor reports whether this ACK confirms the frame sent with seq
func (a *AckFrame) IsSuccessFor(seq uint8) bool {
	return a.Sequence == seq+1
}

// IsRetryFor reports whether this ACK requests retransmission of seq
func (a *AckFrame) IsRetryFor(seq uint8) bool {
	return a.Sequence == seq
}

// ParseFrame decodes the raw, still escaped bytes found between two
// delimiters. Integrity failures are returned as *FrameError.
func ParseFrame(body []byte, fn ChecksumFunc) (Frame, error) {
	if fn == nil {
		fn = FletcherChecksum
	}

	data, err := UnstuffBytes(body)
	if err != nil {
		return nil, malformed(body, err)
	}
	if len(data) < AckFrameSize {
		return nil, &FrameError{Err: ErrMalformedFrame}
	}

	seq := data[offsetSequence]
	cmd := data[offsetCommand]

	if cmd == AckCommand {
		return &AckFrame{Sequence: seq}, nil
	}

	if len(data) < DataFrameOverhead {
		return nil, &FrameError{Kind: FrameKindData, Sequence: seq, HasSequence: true, Err: ErrMalformedFrame}
	}

	length := data[offsetLength]
	payload := data[offsetPayload : len(data)-2]
	if len(payload) != int(length) {
		return nil, &FrameError{Kind: FrameKindData, Sequence: seq, HasSequence: true, Err: ErrLengthMismatch}
	}

	received := uint16(data[len(data)-2])<<8 | uint16(data[len(data)-1])
	computed := fn(seq, cmd, length, payload)
	if received != computed {
		return nil, &FrameError{Kind: FrameKindData, Sequence: seq, HasSequence: true, Err: ErrChecksumMismatch}
	}

	return &DataFrame{Sequence: seq, Command: cmd, Payload: payload, checksum: received}, nil
}

// malformed builds the error for a body whose escaping is broken. The
// sequence is still recoverable when the breakage is past the header.
func malformed(body []byte, cause error) *FrameError {
	fe := &FrameError{Err: ErrMalformedFrame}
	if len(body) >= 3 && !needsEscape(body[0]) && body[1] != AckCommand && !needsEscape(body[1]) {
		fe.Kind = FrameKindData
		fe.Sequence = body[0]
		fe.HasSequence = true
	}
	if cause != nil {
		fe.Err = &wrappedCause{ErrMalformedFrame, cause}
	}
	return fe
}

// wrappedCause matches both the category and the underlying cause with errors.Is
type wrappedCause struct {
	category error
	cause    error
}

func (w *wrappedCause) Error() string   { return w.category.Error() + ": " + w.cause.Error() }
func (w *wrappedCause) Unwrap() []error { return []error{w.category, w.cause} }
