// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package arducomm

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks link traffic and error counters
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Receive side
	BytesReceived     uint64
	FramesReceived    uint64
	DataFrames        uint64
	AckFrames         uint64
	GhostFrames       uint64
	MalformedFrames   uint64
	LengthMismatches  uint64
	ChecksumErrors    uint64
	MessagesDelivered uint64
	ReadErrors        uint64

	// Send side
	BytesSent         uint64
	FramesSent        uint64
	AcksSent          uint64
	RetryRequestsSent uint64
	Retransmissions   uint64
	Timeouts          uint64
	RetriesExhausted  uint64
	MessagesSent      uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// RecordFrame updates counters for one received frame body and its parse result
func (s *Statistics) RecordFrame(frame Frame, parseErr error) {
	s.FramesReceived++
	s.LastUpdateTime = time.Now()

	if parseErr != nil {
		switch {
		case errors.Is(parseErr, ErrChecksumMismatch):
			s.ChecksumErrors++
		case errors.Is(parseErr, ErrLengthMismatch):
			s.LengthMismatches++
		default:
			s.MalformedFrames++
		}
		return
	}

	switch frame.Kind() {
	case FrameKindAck:
		s.AckFrames++
	case FrameKindData:
		s.DataFrames++
	}
}

// RecordSendResult updates counters for a completed Send call
func (s *Statistics) RecordSendResult(err error) {
	s.LastUpdateTime = time.Now()
	switch {
	case err == nil:
		s.MessagesSent++
	case errors.Is(err, ErrTimeout):
		s.Timeouts++
	case errors.Is(err, ErrRetriesExhausted):
		s.RetriesExhausted++
	}
}

// IntegrityErrors returns the number of received frames that failed validation
func (s *Statistics) IntegrityErrors() uint64 {
	return s.ChecksumErrors + s.LengthMismatches + s.MalformedFrames
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.FramesReceived) / elapsed
		errorCount := s.IntegrityErrors() + s.Timeouts + s.RetriesExhausted
		s.ErrorRate = float64(errorCount) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent float64
	if s.FramesReceived > 0 {
		valid := s.FramesReceived - s.IntegrityErrors()
		validPercent = float64(valid) * 100.0 / float64(s.FramesReceived)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Frames Received: %8d (%.1f%% valid)\n", s.FramesReceived, validPercent)
	result += fmt.Sprintf("  Data / ACK:    %8d / %d\n", s.DataFrames, s.AckFrames)
	result += fmt.Sprintf("Messages In:     %8d\n", s.MessagesDelivered)
	result += fmt.Sprintf("Messages Out:    %8d\n", s.MessagesSent)

	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d\n", s.ChecksumErrors)
	}
	if s.LengthMismatches > 0 {
		result += fmt.Sprintf("Length Mismatch: %8d\n", s.LengthMismatches)
	}
	if s.MalformedFrames > 0 {
		result += fmt.Sprintf("Malformed:       %8d\n", s.MalformedFrames)
	}
	if s.GhostFrames > 0 {
		result += fmt.Sprintf("Ghost Frames:    %8d\n", s.GhostFrames)
	}
	if s.Retransmissions > 0 {
		result += fmt.Sprintf("Retransmissions: %8d\n", s.Retransmissions)
	}
	if s.RetryRequestsSent > 0 {
		result += fmt.Sprintf("Retry Requests:  %8d\n", s.RetryRequestsSent)
	}
	if s.Timeouts > 0 {
		result += fmt.Sprintf("Timeouts:        %8d\n", s.Timeouts)
	}
	if s.RetriesExhausted > 0 {
		result += fmt.Sprintf("Retries Failed:  %8d\n", s.RetriesExhausted)
	}
	if s.ReadErrors > 0 {
		result += fmt.Sprintf("Read Errors:     %8d\n", s.ReadErrors)
	}

	result += fmt.Sprintf("Bytes In / Out:  %8d / %d\n", s.BytesReceived, s.BytesSent)
	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
