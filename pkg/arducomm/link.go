// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package arducomm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// Channel is the duplex byte channel a Link runs on (serial port,
// WebSocket bridge, in-memory pipe).
//
// TryReadByte returns ok=false when no byte is available right now. It may
// block for a short read timeout, but must not block indefinitely. io.EOF
// means the channel is gone and ends the reception loop.
type Channel interface {
	Write(p []byte) (int, error)
	TryReadByte() (b byte, ok bool, err error)
	Close() error
}

// Link owns a Channel, runs the reception loop and exposes Send and the
// message handlers to the application.
type Link struct {
	ch  Channel
	cfg config

	engine      *Engine
	dispatcher  *dispatcher
	reassembler *Reassembler
	stats       *statsRecorder

	writeMu sync.Mutex // shared by data frames and ACK replies

	mu       sync.Mutex
	started  bool
	stopped  bool
	done     chan struct{}
	loopDone chan struct{}
}

// NewLink wraps ch. Call Start to begin receiving.
func NewLink(ch Channel, opts ...Option) *Link {
	cfg := newConfig(opts)
	l := &Link{
		ch:          ch,
		cfg:         cfg,
		dispatcher:  newDispatcher(cfg.handlerConcurrency, cfg.log),
		reassembler: NewReassembler(),
		stats:       &statsRecorder{s: NewStatistics()},
		done:        make(chan struct{}),
		loopDone:    make(chan struct{}),
	}
	l.engine = newEngine(l, l.dispatcher.dispatch, cfg, l.stats)
	return l
}

// Start launches the reception loop
func (l *Link) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return ErrLinkClosed
	}
	if l.started {
		return ErrAlreadyStarted
	}
	l.started = true

	go l.receiveLoop()
	return nil
}

// Stop ends the reception loop, fails any pending Send with ErrLinkClosed
// and closes the channel. Handlers already running are left to finish on
// their own; they are not cancelled.
func (l *Link) Stop() error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil
	}
	l.stopped = true
	started := l.started
	l.mu.Unlock()

	close(l.done)
	l.engine.Close()

	err := l.ch.Close()
	if started {
		<-l.loopDone
	}
	return err
}

// Wait blocks until all dispatched handlers have returned
func (l *Link) Wait() {
	l.dispatcher.wait()
}

// Send transmits a message and waits for the peer to acknowledge it.
// See Engine.Send for the error contract.
func (l *Link) Send(ctx context.Context, command int, payload []byte) error {
	return l.engine.Send(ctx, command, payload)
}

// RegisterHandler sets the handler for every command without a subscriber
func (l *Link) RegisterHandler(h Handler) {
	l.dispatcher.setFallback(h)
}

// Subscribe sets the handler for a single command. A nil handler removes it.
func (l *Link) Subscribe(command uint8, h Handler) {
	l.dispatcher.subscribe(command, h)
}

// Sequence returns the sequence number of the last data frame sent
func (l *Link) Sequence() uint8 {
	return l.engine.Sequence()
}

// Statistics returns a snapshot of the link counters
func (l *Link) Statistics() Statistics {
	return l.stats.snapshot()
}

// WriteFrame writes one encoded frame, in chunks of at most chunkSize bytes
// with chunkDelay between them. Frames never interleave on the wire.
func (l *Link) WriteFrame(wire []byte) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	total := len(wire)
	for len(wire) > l.cfg.chunkSize {
		if _, err := l.ch.Write(wire[:l.cfg.chunkSize]); err != nil {
			return fmt.Errorf("write chunk: %w", err)
		}
		wire = wire[l.cfg.chunkSize:]
		if l.cfg.chunkDelay > 0 {
			time.Sleep(l.cfg.chunkDelay)
		}
	}
	if _, err := l.ch.Write(wire); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	l.stats.update(func(s *Statistics) {
		s.FramesSent++
		s.BytesSent += uint64(total)
	})
	return nil
}

// receiveLoop feeds channel bytes to the reassembler until Stop
func (l *Link) receiveLoop() {
	defer close(l.loopDone)

	var ghosts uint64
	for {
		select {
		case <-l.done:
			return
		default:
		}

		b, ok, err := l.ch.TryReadByte()
		if err != nil {
			if l.isStopping() {
				return
			}
			if errors.Is(err, io.EOF) {
				l.cfg.log.Errorf("Channel closed by peer: %v", err)
				l.engine.Close()
				return
			}
			l.cfg.log.Errorf("Read error: %v", err)
			l.stats.update(func(s *Statistics) { s.ReadErrors++ })
			time.Sleep(l.cfg.pollInterval)
			continue
		}
		if !ok {
			time.Sleep(l.cfg.pollInterval)
			continue
		}

		l.stats.update(func(s *Statistics) { s.BytesReceived++ })

		body, complete := l.reassembler.Feed(b)
		if g := l.reassembler.Ghosts(); g != ghosts {
			ghosts = g
			l.stats.update(func(s *Statistics) { s.GhostFrames = g })
		}
		if complete {
			l.engine.HandleBody(body)
		}
	}
}

func (l *Link) isStopping() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}
