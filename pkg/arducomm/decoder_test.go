// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package arducomm

import (
	"errors"
	"testing"
)

func TestDecoder_DecodeByte(t *testing.T) {
	d := NewDecoder(nil)
	stream := append([]byte{0x00, 0x11}, (&DataFrame{Sequence: 2, Command: 0x30, Payload: []byte{7}}).Encode(nil)...)
	stream = append(stream, (&AckFrame{Sequence: 3}).Encode()...)

	var frames []Frame
	for _, b := range stream {
		f, err := d.DecodeByte(b)
		if err != nil {
			t.Fatalf("DecodeByte: %v", err)
		}
		if f != nil {
			frames = append(frames, f)
		}
	}

	if len(frames) != 2 || frames[0].Kind() != FrameKindData || frames[1].Kind() != FrameKindAck {
		t.Fatalf("decoded %d frames", len(frames))
	}
	if d.Skipped() != 2 || !d.Synchronized() {
		t.Errorf("Skipped=%d Synchronized=%v", d.Skipped(), d.Synchronized())
	}
}

func TestDecoder_ReportsIntegrityErrors(t *testing.T) {
	d := NewDecoder(nil)
	wire := (&DataFrame{Sequence: 2, Command: 0x30, Payload: []byte{7}}).Encode(nil)
	wire[len(wire)-2] ^= 0x10

	var lastErr error
	for _, b := range wire {
		if _, err := d.DecodeByte(b); err != nil {
			lastErr = err
		}
	}
	if !errors.Is(lastErr, ErrChecksumMismatch) {
		t.Errorf("err = %v, want ErrChecksumMismatch", lastErr)
	}
}
