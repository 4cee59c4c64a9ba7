// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package arducomm

import (
	"bytes"
	"testing"
)

func TestReassembler_SingleFrame(t *testing.T) {
	r := NewReassembler()
	wire := (&DataFrame{Sequence: 1, Command: 5, Payload: []byte{0, 1, 2, 3, 4}}).Encode(nil)

	bodies := feedAll(r, wire)
	if len(bodies) != 1 {
		t.Fatalf("got %d bodies, want 1", len(bodies))
	}
	if !bytes.Equal(bodies[0], wire[1:len(wire)-1]) {
		t.Errorf("body = % X", bodies[0])
	}
}

func TestReassembler_DropsLeadingGarbage(t *testing.T) {
	r := NewReassembler()
	stream := append([]byte{0x11, 0x22, 0x33}, (&AckFrame{Sequence: 4}).Encode()...)

	bodies := feedAll(r, stream)
	if len(bodies) != 1 {
		t.Fatalf("got %d bodies, want 1", len(bodies))
	}
	if r.Skipped() != 3 {
		t.Errorf("Skipped = %d, want 3", r.Skipped())
	}
}

func TestReassembler_SharedDelimiter(t *testing.T) {
	a := (&AckFrame{Sequence: 1}).Encode()
	b := (&AckFrame{Sequence: 2}).Encode()

	// A single delimiter both closes a and opens b
	stream := append(append([]byte(nil), a...), b[1:]...)

	bodies := feedAll(NewReassembler(), stream)
	if len(bodies) != 2 {
		t.Fatalf("got %d bodies, want 2", len(bodies))
	}
	if bodies[0][0] != 1 || bodies[1][0] != 2 {
		t.Errorf("bodies = % X / % X", bodies[0], bodies[1])
	}
}

func TestReassembler_GhostFrames(t *testing.T) {
	tests := []struct {
		name       string
		stream     []byte
		wantGhosts uint64
	}{
		{"back to back delimiters", []byte{0x7E, 0x7E, 0x7E, 0x7E}, 0},
		{"one byte body", []byte{0x7E, 0x42, 0x7E}, 1},
		{"two short bodies", []byte{0x7E, 0x01, 0x7E, 0x02, 0x7E}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReassembler()
			if bodies := feedAll(r, tt.stream); len(bodies) != 0 {
				t.Errorf("got %d bodies, want none", len(bodies))
			}
			if r.Ghosts() != tt.wantGhosts {
				t.Errorf("Ghosts = %d, want %d", r.Ghosts(), tt.wantGhosts)
			}
		})
	}
}

func TestReassembler_GhostsDoNotDisturbNextFrame(t *testing.T) {
	stream := []byte{0x7E, 0x7E, 0x33, 0x7E}
	stream = append(stream, (&AckFrame{Sequence: 8}).Encode()[1:]...)

	bodies := feedAll(NewReassembler(), stream)
	if len(bodies) != 1 || !bytes.Equal(bodies[0], []byte{8, AckCommand}) {
		t.Errorf("bodies = %v, want one ACK body", bodies)
	}
}

func TestReassembler_Overflow(t *testing.T) {
	r := NewReassembler()
	r.Feed(DelimiterByte)
	for i := 0; i <= MaxFrameBodySize; i++ {
		if _, ok := r.Feed(0x55); ok {
			t.Fatal("overlong body completed a frame")
		}
	}
	if r.Overflows() != 1 {
		t.Errorf("Overflows = %d, want 1", r.Overflows())
	}
	if r.Synchronized() {
		t.Error("reassembler should resynchronize after overflow")
	}

	// Next delimiter resynchronizes, the following frame is intact
	bodies := feedAll(r, append([]byte{0x7E}, (&AckFrame{Sequence: 3}).Encode()...))
	if len(bodies) != 1 {
		t.Errorf("got %d bodies after overflow, want 1", len(bodies))
	}
}

func TestReassembler_BodyIsCopy(t *testing.T) {
	r := NewReassembler()
	first := feedAll(r, (&AckFrame{Sequence: 1}).Encode())[0]
	feedAll(r, []byte{0x09, 0x01, 0x7E})
	if first[0] != 1 {
		t.Errorf("first body overwritten: % X", first)
	}
}

func TestReassembler_Reset(t *testing.T) {
	r := NewReassembler()
	r.Feed(DelimiterByte)
	r.Feed(0x01)
	r.Reset()

	if r.Synchronized() {
		t.Error("Synchronized after Reset")
	}
	if _, ok := r.Feed(DelimiterByte); ok {
		t.Error("partial frame survived Reset")
	}
}
