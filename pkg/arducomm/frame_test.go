// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package arducomm

import (
	"bytes"
	"errors"
	"testing"
)

// ============================================================
// Escaping Tests
// ============================================================

func TestStuffBytes_AllByteValues(t *testing.T) {
	for v := 0; v < 256; v++ {
		b := byte(v)
		stuffed := StuffBytes(nil, []byte{b})

		switch b {
		case DelimiterByte:
			if !bytes.Equal(stuffed, []byte{0x7D, 0x5E}) {
				t.Errorf("0x7E stuffed to % X, want 7D 5E", stuffed)
			}
		case EscByte:
			if !bytes.Equal(stuffed, []byte{0x7D, 0x5D}) {
				t.Errorf("0x7D stuffed to % X, want 7D 5D", stuffed)
			}
		default:
			if !bytes.Equal(stuffed, []byte{b}) {
				t.Errorf("0x%02X stuffed to % X, want unchanged", b, stuffed)
			}
		}

		unstuffed, err := UnstuffBytes(stuffed)
		if err != nil {
			t.Fatalf("UnstuffBytes(% X): %v", stuffed, err)
		}
		if !bytes.Equal(unstuffed, []byte{b}) {
			t.Errorf("round trip 0x%02X gave % X", b, unstuffed)
		}
	}
}

func TestStuffBytes_NoDelimiterInOutput(t *testing.T) {
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	if bytes.IndexByte(StuffBytes(nil, all), DelimiterByte) >= 0 {
		t.Error("stuffed data contains a raw delimiter")
	}
}

func TestStuffBytes_AppendsToDst(t *testing.T) {
	out := StuffBytes([]byte{0xAA}, []byte{0x7E, 0x01})
	if !bytes.Equal(out, []byte{0xAA, 0x7D, 0x5E, 0x01}) {
		t.Errorf("StuffBytes = % X", out)
	}
}

func TestUnstuffBytes_IncompleteEscape(t *testing.T) {
	_, err := UnstuffBytes([]byte{0x01, 0x7D})
	if !errors.Is(err, ErrIncompleteEscape) {
		t.Errorf("err = %v, want ErrIncompleteEscape", err)
	}
}

// ============================================================
// Frame Construction Tests
// ============================================================

func TestNewDataFrame_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cmd     uint8
		size    int
		wantErr error
	}{
		{"empty payload", 0x10, 0, nil},
		{"max payload", 0x10, MaxPayloadSize, nil},
		{"oversized payload", 0x10, MaxPayloadSize + 1, ErrPayloadTooLarge},
		{"reserved command", AckCommand, 1, ErrReservedCommand},
		{"command zero", 0x00, 1, nil},
		{"command 255", 0xFF, 1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDataFrame(1, tt.cmd, make([]byte, tt.size))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDataFrame_EncodeLayout(t *testing.T) {
	f := &DataFrame{Sequence: 1, Command: 5, Payload: []byte{0, 1, 2, 3, 4}}
	want := []byte{0x7E, 0x01, 0x05, 0x05, 0x00, 0x01, 0x02, 0x03, 0x04, 0x5D, 0x15, 0x7E}
	if got := f.Encode(FletcherChecksum); !bytes.Equal(got, want) {
		t.Errorf("Encode = % X\nwant     % X", got, want)
	}
}

func TestDataFrame_EncodeEscapesHeaderAndChecksum(t *testing.T) {
	f := &DataFrame{Sequence: 0x7E, Command: 0x7D, Payload: []byte{0x7E}}
	wire := f.Encode(FletcherChecksum)

	want := []byte{0x7E, 0x7D, 0x5E, 0x7D, 0x5D, 0x01, 0x7D, 0x5E, 0xF2, 0x7B, 0x7E}
	if !bytes.Equal(wire, want) {
		t.Errorf("Encode = % X\nwant     % X", wire, want)
	}
	if bytes.IndexByte(wire[1:len(wire)-1], DelimiterByte) >= 0 {
		t.Error("interior delimiter in encoded frame")
	}
}

func TestDataFrame_EmptyPayload(t *testing.T) {
	f := &DataFrame{Sequence: 0, Command: 2}
	want := []byte{0x7E, 0x00, 0x02, 0x00, 0x04, 0x02, 0x7E}
	if got := f.Encode(nil); !bytes.Equal(got, want) {
		t.Errorf("Encode = % X, want % X", got, want)
	}
}

func TestAckFrame_Encode(t *testing.T) {
	tests := []struct {
		seq  uint8
		want []byte
	}{
		{0x05, []byte{0x7E, 0x05, 0x01, 0x7E}},
		{0x7E, []byte{0x7E, 0x7D, 0x5E, 0x01, 0x7E}},
		{0x7D, []byte{0x7E, 0x7D, 0x5D, 0x01, 0x7E}},
	}
	for _, tt := range tests {
		a := &AckFrame{Sequence: tt.seq}
		if got := a.Encode(); !bytes.Equal(got, tt.want) {
			t.Errorf("AckFrame{%d}.Encode = % X, want % X", tt.seq, got, tt.want)
		}
	}
}

func TestAckFrame_Matching(t *testing.T) {
	tests := []struct {
		ack, sent      uint8
		success, retry bool
	}{
		{6, 5, true, false},
		{5, 5, false, true},
		{0, 255, true, false},
		{255, 255, false, true},
		{9, 5, false, false},
	}
	for _, tt := range tests {
		a := &AckFrame{Sequence: tt.ack}
		if a.IsSuccessFor(tt.sent) != tt.success || a.IsRetryFor(tt.sent) != tt.retry {
			t.Errorf("ACK %d for sent %d: success=%v retry=%v", tt.ack, tt.sent, a.IsSuccessFor(tt.sent), a.IsRetryFor(tt.sent))
		}
	}
}

// ============================================================
// Parse Tests
// ============================================================

func body(wire []byte) []byte {
	return wire[1 : len(wire)-1]
}

func TestParseFrame_Data(t *testing.T) {
	payload := []byte{0x7E, 0x7D, 0x00, 0xFF}
	f := &DataFrame{Sequence: 42, Command: 0x30, Payload: payload}

	got, err := ParseFrame(body(f.Encode(nil)), nil)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	df, ok := got.(*DataFrame)
	if !ok {
		t.Fatalf("got %T, want *DataFrame", got)
	}
	if df.Sequence != 42 || df.Command != 0x30 || !bytes.Equal(df.Payload, payload) {
		t.Errorf("parsed %+v", df)
	}
	if df.ReceivedChecksum() != f.Checksum(nil) {
		t.Errorf("ReceivedChecksum = 0x%04X, want 0x%04X", df.ReceivedChecksum(), f.Checksum(nil))
	}
}

func TestParseFrame_Ack(t *testing.T) {
	got, err := ParseFrame(body((&AckFrame{Sequence: 0x7E}).Encode()), nil)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if a, ok := got.(*AckFrame); !ok || a.Sequence != 0x7E {
		t.Errorf("got %#v, want ACK 0x7E", got)
	}
}

func TestParseFrame_Errors(t *testing.T) {
	good := body((&DataFrame{Sequence: 9, Command: 0x22, Payload: []byte{1, 2, 3}}).Encode(nil))

	badChecksum := append([]byte(nil), good...)
	badChecksum[len(badChecksum)-1] ^= 0x01

	badLength := append([]byte(nil), good...)
	badLength[2] = 4

	truncated := good[:4]

	tests := []struct {
		name    string
		body    []byte
		wantErr error
		wantSeq bool
	}{
		{"checksum", badChecksum, ErrChecksumMismatch, true},
		{"length", badLength, ErrLengthMismatch, true},
		{"too short for data", truncated, ErrMalformedFrame, true},
		{"single byte", []byte{0x09}, ErrMalformedFrame, false},
		{"dangling escape", []byte{0x09, 0x22, 0x7D}, ErrMalformedFrame, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFrame(tt.body, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			var fe *FrameError
			if !errors.As(err, &fe) {
				t.Fatalf("err %T is not *FrameError", err)
			}
			if fe.HasSequence != tt.wantSeq {
				t.Errorf("HasSequence = %v, want %v", fe.HasSequence, tt.wantSeq)
			}
			if fe.HasSequence && fe.Sequence != 9 {
				t.Errorf("Sequence = %d, want 9", fe.Sequence)
			}
		})
	}
}

func TestParseFrame_DanglingEscapeKeepsCause(t *testing.T) {
	_, err := ParseFrame([]byte{0x09, 0x22, 0x00, 0x7D}, nil)
	if !errors.Is(err, ErrIncompleteEscape) || !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("err = %v, want both ErrMalformedFrame and ErrIncompleteEscape", err)
	}
}

func TestParseFrame_ChecksumStrategy(t *testing.T) {
	f := &DataFrame{Sequence: 3, Command: 0x40, Payload: []byte("crc")}
	b := body(f.Encode(CRC16Checksum))

	if _, err := ParseFrame(b, CRC16Checksum); err != nil {
		t.Errorf("CRC16 frame rejected by CRC16 parser: %v", err)
	}
	if _, err := ParseFrame(b, FletcherChecksum); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("CRC16 frame with Fletcher parser: err = %v, want checksum mismatch", err)
	}
}
