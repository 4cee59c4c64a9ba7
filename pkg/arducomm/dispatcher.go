// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package arducomm

import (
	"fmt"
	"sync"
	"time"

	"github.com/getlantern/golog"
)

// Message is a validated application message received from the peer
type Message struct {
	Command  uint8
	Payload  []byte
	Sequence uint8
	Received time.Time
}

// Handler processes received messages. Handlers run on their own goroutine
// and may block without stalling the link.
type Handler interface {
	HandleMessage(Message)
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(Message)

// HandleMessage calls f(msg)
func (f HandlerFunc) HandleMessage(msg Message) {
	f(msg)
}

// dispatcher runs handlers off the reception path
type dispatcher struct {
	mu          sync.RWMutex
	subscribers map[uint8]Handler
	fallback    Handler

	sem chan struct{} // nil when unbounded
	wg  sync.WaitGroup
	log golog.Logger
}

func newDispatcher(concurrency int, l golog.Logger) *dispatcher {
	d := &dispatcher{
		subscribers: make(map[uint8]Handler),
		log:         l,
	}
	if concurrency > 0 {
		d.sem = make(chan struct{}, concurrency)
	}
	return d
}

func (d *dispatcher) setFallback(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fallback = h
}

func (d *dispatcher) subscribe(command uint8, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if h == nil {
		delete(d.subscribers, command)
		return
	}
	d.subscribers[command] = h
}

func (d *dispatcher) lookup(command uint8) Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if h, ok := d.subscribers[command]; ok {
		return h
	}
	return d.fallback
}

// dispatch hands msg to its handler on a new goroutine. It never blocks:
// the concurrency slot is acquired by the spawned goroutine.
func (d *dispatcher) dispatch(msg Message) bool {
	h := d.lookup(msg.Command)
	if h == nil {
		d.log.Debugf("No handler for command 0x%02X, message dropped", msg.Command)
		return false
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if d.sem != nil {
			d.sem <- struct{}{}
			defer func() { <-d.sem }()
		}
		defer func() {
			if r := recover(); r != nil {
				d.log.Error(fmt.Errorf("handler for command 0x%02X panicked: %v", msg.Command, r))
			}
		}()
		h.HandleMessage(msg)
	}()
	return true
}

// wait blocks until every dispatched handler has returned
func (d *dispatcher) wait() {
	d.wg.Wait()
}
