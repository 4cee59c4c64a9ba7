// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

// DefaultReadTimeout bounds a single TryReadByte on a serial port
const DefaultReadTimeout = 10 * time.Millisecond

// Serial is a serial port channel (8N1)
type Serial struct {
	port serial.Port
	name string

	mu     sync.Mutex
	buf    [64]byte
	start  int
	end    int
	closed bool
}

// OpenSerial opens portName at baudRate. Reads block for at most readTimeout.
func OpenSerial(portName string, baudRate int, readTimeout time.Duration) (*Serial, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
	}

	log.Debugf("Opened %s at %d baud", portName, baudRate)
	return &Serial{port: port, name: portName}, nil
}

// Name returns the device path
func (s *Serial) Name() string {
	return s.name
}

// Write writes p to the port
func (s *Serial) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

// TryReadByte returns the next received byte. ok is false when the read
// timeout expired with nothing received.
func (s *Serial) TryReadByte() (byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, false, io.EOF
	}

	if s.start == s.end {
		n, err := s.port.Read(s.buf[:])
		if err != nil {
			return 0, false, fmt.Errorf("read %s: %w", s.name, err)
		}
		if n == 0 {
			return 0, false, nil
		}
		s.start, s.end = 0, n
	}

	b := s.buf[s.start]
	s.start++
	return b, true, nil
}

// Close closes the port
func (s *Serial) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.port.Close()
}

// ListPorts returns the serial ports present on the system
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
