// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"io"
	"sync"
)

// PipeEnd is one side of an in-memory duplex byte channel
type PipeEnd struct {
	in   *pipeBuffer
	out  *pipeBuffer
	once sync.Once

	filterMu sync.Mutex
	filter   func([]byte) []byte
}

// NewPipe returns two connected ends. Bytes written to one are read from
// the other.
func NewPipe() (*PipeEnd, *PipeEnd) {
	ab := &pipeBuffer{}
	ba := &pipeBuffer{}
	return &PipeEnd{in: ba, out: ab}, &PipeEnd{in: ab, out: ba}
}

// SetFilter installs fn on the write path of this end. fn receives a copy of
// every write and returns the bytes actually delivered, which lets tests
// corrupt or drop traffic. A nil fn removes the filter.
func (p *PipeEnd) SetFilter(fn func([]byte) []byte) {
	p.filterMu.Lock()
	p.filter = fn
	p.filterMu.Unlock()
}

// Write delivers p to the other end
func (p *PipeEnd) Write(b []byte) (int, error) {
	data := make([]byte, len(b))
	copy(data, b)

	p.filterMu.Lock()
	fn := p.filter
	p.filterMu.Unlock()
	if fn != nil {
		data = fn(data)
	}

	if err := p.out.write(data); err != nil {
		return 0, err
	}
	return len(b), nil
}

// TryReadByte returns the next byte from the other end without blocking
func (p *PipeEnd) TryReadByte() (byte, bool, error) {
	return p.in.readByte()
}

// Close closes both directions. The other end reads io.EOF once drained.
func (p *PipeEnd) Close() error {
	p.once.Do(func() {
		p.in.close()
		p.out.close()
	})
	return nil
}

type pipeBuffer struct {
	mu     sync.Mutex
	data   []byte
	closed bool
}

func (b *pipeBuffer) write(p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrConnectionClosed
	}
	b.data = append(b.data, p...)
	return nil
}

func (b *pipeBuffer) readByte() (byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.data) == 0 {
		if b.closed {
			return 0, false, io.EOF
		}
		return 0, false, nil
	}
	c := b.data[0]
	b.data = b.data[1:]
	return c, true, nil
}

func (b *pipeBuffer) close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}
