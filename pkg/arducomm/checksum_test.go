// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package arducomm

import "testing"

func TestFletcher16_KnownValues(t *testing.T) {
	tests := []struct {
		name    string
		seq     uint8
		cmd     uint8
		payload []byte
		hi, lo  uint8
	}{
		{"empty payload", 0, 2, nil, 0x04, 0x02},
		{"short payload", 1, 5, []byte{0, 1, 2, 3, 4}, 0x5D, 0x15},
		{"framing bytes", 0x7E, 0x7D, []byte{0x7E}, 0xF2, 0x7B},
		{"all ones", 0xFF, 0xFF, repeat(0xFF, 255), 0xFF, 0xFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hi, lo := Fletcher16(tt.seq, tt.cmd, uint8(len(tt.payload)), tt.payload)
			if hi != tt.hi || lo != tt.lo {
				t.Errorf("Fletcher16 = %02X %02X, want %02X %02X", hi, lo, tt.hi, tt.lo)
			}
			if got := FletcherChecksum(tt.seq, tt.cmd, uint8(len(tt.payload)), tt.payload); got != uint16(tt.hi)<<8|uint16(tt.lo) {
				t.Errorf("FletcherChecksum = 0x%04X", got)
			}
		})
	}
}

// reduce255 maps a plain sum onto the 1..255 range the end-around carry
// produces, keeping zero for an all-zero input.
func reduce255(s uint64) uint8 {
	if s == 0 {
		return 0
	}
	return uint8((s-1)%255 + 1)
}

func TestFletcher16_MatchesUnboundedSums(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		payload := randomPayload(rng)
		seq, cmd := uint8(rng.Intn(256)), uint8(rng.Intn(256))

		var lo, hi uint64
		for _, b := range append([]byte{seq, cmd, uint8(len(payload))}, payload...) {
			lo += uint64(b)
			hi += lo
		}

		gotHi, gotLo := Fletcher16(seq, cmd, uint8(len(payload)), payload)
		if gotHi != reduce255(hi) || gotLo != reduce255(lo) {
			t.Fatalf("round %d: Fletcher16 = %02X %02X, want %02X %02X (len=%d)",
				i, gotHi, gotLo, reduce255(hi), reduce255(lo), len(payload))
		}
	}
}

func TestFletcher16_Deterministic(t *testing.T) {
	payload := []byte("hello, arducomm")
	a := FletcherChecksum(7, 0x20, uint8(len(payload)), payload)
	b := FletcherChecksum(7, 0x20, uint8(len(payload)), payload)
	if a != b {
		t.Errorf("checksum not deterministic: 0x%04X vs 0x%04X", a, b)
	}
}

func TestFletcher16_SingleBitFlip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		payload := randomPayload(rng)
		if len(payload) == 0 {
			continue
		}
		base := FletcherChecksum(1, 0x10, uint8(len(payload)), payload)

		flipped := append([]byte(nil), payload...)
		pos := rng.Intn(len(flipped))
		flipped[pos] ^= 1 << uint(rng.Intn(8))

		if got := FletcherChecksum(1, 0x10, uint8(len(flipped)), flipped); got == base {
			t.Fatalf("round %d: bit flip at %d (%02X -> %02X) not detected", i, pos, payload[pos], flipped[pos])
		}
	}
}

func TestFletcher16_HeaderCovered(t *testing.T) {
	payload := []byte{1, 2, 3}
	base := FletcherChecksum(1, 0x10, 3, payload)
	if FletcherChecksum(2, 0x10, 3, payload) == base {
		t.Error("sequence byte not covered by checksum")
	}
	if FletcherChecksum(1, 0x11, 3, payload) == base {
		t.Error("command byte not covered by checksum")
	}
	if FletcherChecksum(1, 0x10, 2, payload[:2]) == base {
		t.Error("length byte not covered by checksum")
	}
}

func TestCRC16Checksum_CheckValue(t *testing.T) {
	// "123456789" split across the header fields and the payload
	got := CRC16Checksum('1', '2', '3', []byte("456789"))
	if got != 0x29B1 {
		t.Errorf("CRC16Checksum(\"123456789\") = 0x%04X, want 0x29B1", got)
	}
}

func TestCRC16Checksum_DiffersFromFletcher(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if CRC16Checksum(3, 0x42, 4, payload) == FletcherChecksum(3, 0x42, 4, payload) {
		t.Error("strategies unexpectedly agree")
	}
}

func repeat(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
