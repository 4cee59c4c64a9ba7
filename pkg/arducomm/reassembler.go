// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package arducomm

// Reassembler splits a continuous byte stream into candidate frame bodies.
//
// A delimiter both terminates the previous frame and starts the next one, so
// a single 0x7E between two frames is enough. Runs of delimiters produce
// ghost frames with an empty or too-short body; those are dropped silently.
type Reassembler struct {
	buffer       []byte
	synchronized bool

	skipped   uint64 // bytes dropped before the first delimiter
	ghosts    uint64
	overflows uint64
}

// NewReassembler creates a reassembler waiting for its first delimiter
func NewReassembler() *Reassembler {
	return &Reassembler{
		buffer: make([]byte, 0, MaxFrameBodySize),
	}
}

// Reset drops any partial frame and waits for a delimiter again
func (r *Reassembler) Reset() {
	r.buffer = r.buffer[:0]
	r.synchronized = false
}

// Feed processes a single byte. When the byte closes a frame, the raw
// (still escaped) body between the delimiters is returned with ok set.
// The returned slice is owned by the caller.
func (r *Reassembler) Feed(b byte) (body []byte, ok bool) {
	if b != DelimiterByte {
		if !r.synchronized {
			r.skipped++
			return nil, false
		}
		if len(r.buffer) >= MaxFrameBodySize {
			// No legal frame is this long; wait for the next delimiter
			r.overflows++
			r.synchronized = false
			r.buffer = r.buffer[:0]
			return nil, false
		}
		r.buffer = append(r.buffer, b)
		return nil, false
	}

	if !r.synchronized {
		r.synchronized = true
		r.buffer = r.buffer[:0]
		return nil, false
	}

	if len(r.buffer) < MinFrameBodySize {
		if len(r.buffer) > 0 {
			r.ghosts++
		}
		r.buffer = r.buffer[:0]
		return nil, false
	}

	body = make([]byte, len(r.buffer))
	copy(body, r.buffer)
	r.buffer = r.buffer[:0]
	return body, true
}

// Synchronized reports whether a delimiter has been seen since the last reset
func (r *Reassembler) Synchronized() bool {
	return r.synchronized
}

// Skipped returns the number of bytes dropped while unsynchronized
func (r *Reassembler) Skipped() uint64 {
	return r.skipped
}

// Ghosts returns the number of non-empty bodies too short to be a frame
func (r *Reassembler) Ghosts() uint64 {
	return r.ghosts
}

// Overflows returns the number of bodies dropped for exceeding MaxFrameBodySize
func (r *Reassembler) Overflows() uint64 {
	return r.overflows
}
