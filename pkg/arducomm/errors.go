// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package arducomm

import (
	"errors"
	"fmt"
)

// Construction errors, returned before any I/O and never retried.
var (
	ErrCommandOutOfRange = errors.New("command out of range (0-255)")
	ErrReservedCommand   = errors.New("command 0x01 is reserved for ACK frames")
	ErrPayloadTooLarge   = fmt.Errorf("payload exceeds %d bytes", MaxPayloadSize)
)

// Acknowledgment and lifecycle errors.
var (
	ErrTimeout          = errors.New("timed out waiting for ACK")
	ErrRetriesExhausted = errors.New("retries exhausted")
	ErrLinkClosed       = errors.New("link closed")
	ErrAlreadyStarted   = errors.New("link already started")
)

// Framing and integrity errors. These never reach the caller of Send; the
// receiver answers them with a retry ACK.
var (
	ErrMalformedFrame   = errors.New("malformed frame")
	ErrIncompleteEscape = errors.New("incomplete escape sequence at end of data")
	ErrLengthMismatch   = errors.New("payload length mismatch")
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// SendError reports why a message could not be delivered.
type SendError struct {
	Command  int
	Sequence uint8
	Attempts int
	Err      error
}

func (e *SendError) Error() string {
	if e.Attempts == 0 {
		return fmt.Sprintf("send command 0x%02X: %v", e.Command&0xFF, e.Err)
	}
	return fmt.Sprintf("send command 0x%02X seq %d (attempt %d): %v", e.Command&0xFF, e.Sequence, e.Attempts, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// FrameKind identifies the frame variant an error refers to
type FrameKind int

const (
	FrameKindUnknown FrameKind = iota
	FrameKindData
	FrameKindAck
)

func (k FrameKind) String() string {
	switch k {
	case FrameKindData:
		return "DATA"
	case FrameKindAck:
		return "ACK"
	default:
		return "UNKNOWN"
	}
}

// FrameError describes an inbound frame that failed validation.
// HasSequence is set when the sequence byte could be recovered, which is
// what allows the receiver to request a retransmission.
type FrameError struct {
	Kind        FrameKind
	Sequence    uint8
	HasSequence bool
	Err         error
}

func (e *FrameError) Error() string {
	if e.HasSequence {
		return fmt.Sprintf("%s frame seq %d: %v", e.Kind, e.Sequence, e.Err)
	}
	return fmt.Sprintf("%s frame: %v", e.Kind, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}
