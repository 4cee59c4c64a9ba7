// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package arducomm

// Decoder turns a byte stream into frames without taking part in the
// exchange: it never sends ACKs. Used by passive tools.
type Decoder struct {
	reassembler *Reassembler
	checksum    ChecksumFunc
}

// NewDecoder creates a decoder checking frames with fn (Fletcher16 when nil)
func NewDecoder(fn ChecksumFunc) *Decoder {
	if fn == nil {
		fn = FletcherChecksum
	}
	return &Decoder{
		reassembler: NewReassembler(),
		checksum:    fn,
	}
}

// Reset drops any partial frame
func (d *Decoder) Reset() {
	d.reassembler.Reset()
}

// DecodeByte processes a single byte.
// Returns a completed frame, or nil if the frame is incomplete.
// Returns a *FrameError if the completed frame fails validation.
func (d *Decoder) DecodeByte(b byte) (Frame, error) {
	body, ok := d.reassembler.Feed(b)
	if !ok {
		return nil, nil
	}
	return ParseFrame(body, d.checksum)
}

// Synchronized reports whether a delimiter has been seen
func (d *Decoder) Synchronized() bool {
	return d.reassembler.Synchronized()
}

// Skipped returns the number of bytes dropped before synchronization
func (d *Decoder) Skipped() uint64 {
	return d.reassembler.Skipped()
}

// Ghosts returns the number of ghost frames discarded
func (d *Decoder) Ghosts() uint64 {
	return d.reassembler.Ghosts()
}
