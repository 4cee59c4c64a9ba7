// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package arducomm provides a Go implementation of the ArduComm serial link protocol.
//
// ArduComm is a point-to-point link layer for exchanging command/payload
// messages between a host and a microcontroller over a serial line. Frames are
// delimited and byte-stuffed HDLC style, protected by a Fletcher-style 16-bit
// checksum, and delivered with Stop-and-Wait ARQ: every data frame is answered
// by an ACK frame that either confirms it or asks for a retransmission.
//
// Wire format (before byte stuffing):
//
//	Data: 0x7E | seq | cmd | len | payload[len] | ck_hi | ck_lo | 0x7E
//	ACK:  0x7E | seq | 0x01 | 0x7E
package arducomm

import "time"

// Protocol framing bytes
const (
	DelimiterByte = 0x7E
	EscByte       = 0x7D
	EscXor        = 0x20
)

// AckCommand is the reserved command byte of ACK frames. Applications must
// never use it as a message command.
const AckCommand = 0x01

// Frame size limits
const (
	MaxPayloadSize    = 255
	DataFrameOverhead = 5 // seq + cmd + len + ck_hi + ck_lo
	AckFrameSize      = 2 // seq + cmd

	// MinFrameBodySize is the smallest raw body between two delimiters that
	// can hold a frame (an unescaped ACK). Anything shorter is a ghost frame.
	MinFrameBodySize = AckFrameSize

	// MaxFrameBodySize is the largest raw body a legal frame can produce,
	// with every logical byte escaped.
	MaxFrameBodySize = 2 * (DataFrameOverhead + MaxPayloadSize)
)

// Logical byte offsets inside an unescaped frame body
const (
	offsetSequence = 0
	offsetCommand  = 1
	offsetLength   = 2
	offsetPayload  = 3
)

// Link defaults
const (
	DefaultBaudRate     = 57600
	DefaultMaxRetries   = 3
	DefaultAckTimeout   = 3 * time.Second
	DefaultPollInterval = 10 * time.Millisecond
	DefaultChunkSize    = 64
	DefaultChunkDelay   = 50 * time.Millisecond
)
