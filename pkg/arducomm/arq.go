// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package arducomm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getlantern/golog"
)

// FrameWriter puts an encoded frame on the wire. Implementations must not
// interleave concurrent frames.
type FrameWriter interface {
	WriteFrame(wire []byte) error
}

// SendState is the lifecycle of one outbound message
type SendState int

const (
	SendIdle SendState = iota
	SendSent
	SendAwaitingAck
	SendRetrying
	SendAcked
	SendFailed
)

func (s SendState) String() string {
	switch s {
	case SendIdle:
		return "IDLE"
	case SendSent:
		return "SENT"
	case SendAwaitingAck:
		return "AWAITING_ACK"
	case SendRetrying:
		return "RETRYING"
	case SendAcked:
		return "ACKED"
	case SendFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

type ackResult int

const (
	ackSuccess ackResult = iota
	ackRetry
)

// Engine implements Stop-and-Wait ARQ over a FrameWriter.
//
// Send runs on the caller's goroutine; HandleBody runs on the reception
// path. The two meet only at the last-ACK slot.
type Engine struct {
	w          FrameWriter
	checksum   ChecksumFunc
	maxRetries int
	ackTimeout time.Duration
	deliver    func(Message) bool
	stats      *statsRecorder
	log        golog.Logger

	sendMu sync.Mutex // one data frame in flight
	seq    atomic.Uint32

	ackMu    sync.Mutex
	ack      uint8
	hasAck   bool
	ackReady chan struct{}

	closed    chan struct{}
	closeOnce sync.Once

	stateMu sync.Mutex
	state   SendState
}

// NewEngine creates an engine writing through w. Validated inbound messages
// are passed to deliver, which must not block.
func NewEngine(w FrameWriter, deliver func(Message) bool, opts ...Option) *Engine {
	return newEngine(w, deliver, newConfig(opts), &statsRecorder{s: NewStatistics()})
}

func newEngine(w FrameWriter, deliver func(Message) bool, cfg config, stats *statsRecorder) *Engine {
	if deliver == nil {
		deliver = func(Message) bool { return false }
	}
	return &Engine{
		w:          w,
		checksum:   cfg.checksum,
		maxRetries: cfg.maxRetries,
		ackTimeout: cfg.ackTimeout,
		deliver:    deliver,
		stats:      stats,
		log:        cfg.log,
		ackReady:   make(chan struct{}, 1),
		closed:     make(chan struct{}),
	}
}

// Sequence returns the sequence number of the last data frame sent
func (e *Engine) Sequence() uint8 {
	return uint8(e.seq.Load())
}

// State returns the state of the current (or last) outbound message
func (e *Engine) State() SendState {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.state
}

func (e *Engine) setState(s SendState) {
	e.stateMu.Lock()
	e.state = s
	e.stateMu.Unlock()
}

// Statistics returns a snapshot of the engine counters
func (e *Engine) Statistics() Statistics {
	return e.stats.snapshot()
}

// Close unblocks any pending Send with ErrLinkClosed
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.closed)
	})
}

// Send transmits one message and blocks until the peer confirms it, the ACK
// timeout expires, the retry budget is spent, ctx is done or the engine is
// closed. Concurrent callers are serialized.
func (e *Engine) Send(ctx context.Context, command int, payload []byte) error {
	if command < 0 || command > 0xFF {
		return &SendError{Command: command, Err: ErrCommandOutOfRange}
	}
	if command == AckCommand {
		return &SendError{Command: command, Err: ErrReservedCommand}
	}
	if len(payload) > MaxPayloadSize {
		return &SendError{Command: command, Err: ErrPayloadTooLarge}
	}

	select {
	case <-e.closed:
		return &SendError{Command: command, Err: ErrLinkClosed}
	default:
	}

	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	seq := uint8(e.seq.Add(1))
	frame := &DataFrame{Sequence: seq, Command: uint8(command), Payload: payload}
	wire := frame.Encode(e.checksum)

	err := e.transmit(ctx, frame, wire)
	if err != nil {
		e.setState(SendFailed)
	} else {
		e.setState(SendAcked)
	}
	e.stats.update(func(s *Statistics) { s.RecordSendResult(err) })
	return err
}

// transmit writes the identical wire bytes until the peer confirms them.
func (e *Engine) transmit(ctx context.Context, frame *DataFrame, wire []byte) error {
	fail := func(attempt int, err error) error {
		return &SendError{Command: int(frame.Command), Sequence: frame.Sequence, Attempts: attempt, Err: err}
	}

	for attempt := 1; ; attempt++ {
		e.clearAck()

		if attempt > 1 {
			e.stats.update(func(s *Statistics) { s.Retransmissions++ })
		}
		e.setState(SendSent)
		if err := e.w.WriteFrame(wire); err != nil {
			return fail(attempt, fmt.Errorf("write frame: %w", err))
		}
		e.setState(SendAwaitingAck)

		result, err := e.awaitAck(ctx, frame.Sequence)
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				e.log.Debugf("No ACK for seq %d (command 0x%02X) within %v", frame.Sequence, frame.Command, e.ackTimeout)
			}
			return fail(attempt, err)
		}

		if result == ackSuccess {
			return nil
		}

		if attempt >= e.maxRetries {
			e.log.Debugf("Giving up on seq %d (command 0x%02X) after %d attempts", frame.Sequence, frame.Command, attempt)
			return fail(attempt, ErrRetriesExhausted)
		}
		e.setState(SendRetrying)
		e.log.Debugf("Retry requested for seq %d, resending (attempt %d)", frame.Sequence, attempt+1)
	}
}

// awaitAck waits for an ACK that matches seq, either as success or as retry
// code. ACKs carrying any other value are stale and ignored.
func (e *Engine) awaitAck(ctx context.Context, seq uint8) (ackResult, error) {
	timer := time.NewTimer(e.ackTimeout)
	defer timer.Stop()

	for {
		select {
		case <-e.ackReady:
			ack, ok := e.takeAck()
			if !ok {
				continue
			}
			a := AckFrame{Sequence: ack}
			switch {
			case a.IsSuccessFor(seq):
				return ackSuccess, nil
			case a.IsRetryFor(seq):
				return ackRetry, nil
			default:
				e.log.Debugf("Ignoring stale ACK %d while waiting for seq %d", ack, seq)
			}

		case <-timer.C:
			return 0, ErrTimeout

		case <-ctx.Done():
			return 0, ctx.Err()

		case <-e.closed:
			return 0, ErrLinkClosed
		}
	}
}

// clearAck forgets any acknowledgment left over from a previous frame
func (e *Engine) clearAck() {
	e.ackMu.Lock()
	defer e.ackMu.Unlock()
	e.hasAck = false
	select {
	case <-e.ackReady:
	default:
	}
}

func (e *Engine) takeAck() (uint8, bool) {
	e.ackMu.Lock()
	defer e.ackMu.Unlock()
	ack, ok := e.ack, e.hasAck
	e.hasAck = false
	return ack, ok
}

// recordAck stores the latest acknowledgment and wakes a waiting sender
func (e *Engine) recordAck(seq uint8) {
	e.ackMu.Lock()
	e.ack = seq
	e.hasAck = true
	e.ackMu.Unlock()

	select {
	case e.ackReady <- struct{}{}:
	default:
	}
}

// HandleBody processes one raw frame body from the reassembler.
func (e *Engine) HandleBody(body []byte) {
	frame, err := ParseFrame(body, e.checksum)
	e.stats.update(func(s *Statistics) { s.RecordFrame(frame, err) })

	if err != nil {
		var fe *FrameError
		if errors.As(err, &fe) && fe.HasSequence && fe.Kind == FrameKindData {
			e.log.Debugf("Corrupted frame (%v), requesting retransmission", err)
			e.sendAck(fe.Sequence, true)
			return
		}
		e.log.Debugf("Dropping frame: %v", err)
		return
	}

	switch f := frame.(type) {
	case *AckFrame:
		e.recordAck(f.Sequence)

	case *DataFrame:
		e.sendAck(f.Sequence+1, false)
		e.stats.update(func(s *Statistics) { s.MessagesDelivered++ })
		e.deliver(Message{
			Command:  f.Command,
			Payload:  f.Payload,
			Sequence: f.Sequence,
			Received: time.Now(),
		})
	}
}

// sendAck writes an ACK frame. ACKs are never acknowledged themselves.
func (e *Engine) sendAck(seq uint8, retry bool) {
	ack := &AckFrame{Sequence: seq}
	if err := e.w.WriteFrame(ack.Encode()); err != nil {
		e.log.Errorf("Failed to send ACK %d: %v", seq, err)
		return
	}
	e.stats.update(func(s *Statistics) {
		s.AcksSent++
		if retry {
			s.RetryRequestsSent++
		}
	})
}

// statsRecorder guards a Statistics value shared by the link goroutines
type statsRecorder struct {
	mu sync.Mutex
	s  *Statistics
}

func (r *statsRecorder) update(fn func(*Statistics)) {
	r.mu.Lock()
	fn(r.s)
	r.mu.Unlock()
}

func (r *statsRecorder) snapshot() Statistics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.s
}
