// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package arducomm

import (
	"errors"
	"fmt"
)

// AnomalyType represents different kinds of protocol anomalies
type AnomalyType int

const (
	AnomalySequenceGap AnomalyType = iota
	AnomalyRetransmission
	AnomalyRetryRequest
	AnomalyUnexpectedAck
	AnomalyReservedCommand
	AnomalyChecksumError
	AnomalyLengthMismatch
	AnomalyMalformed
)

func (a AnomalyType) String() string {
	switch a {
	case AnomalySequenceGap:
		return "SEQUENCE_GAP"
	case AnomalyRetransmission:
		return "RETRANSMISSION"
	case AnomalyRetryRequest:
		return "RETRY_REQUEST"
	case AnomalyUnexpectedAck:
		return "UNEXPECTED_ACK"
	case AnomalyReservedCommand:
		return "RESERVED_COMMAND"
	case AnomalyChecksumError:
		return "CHECKSUM_ERROR"
	case AnomalyLengthMismatch:
		return "LENGTH_MISMATCH"
	case AnomalyMalformed:
		return "MALFORMED"
	default:
		return "UNKNOWN"
	}
}

// ValidationError represents a single anomaly seen on the wire
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// Validator tracks the sequence numbers of one direction of sniffed
// traffic. It never writes to the link.
type Validator struct {
	lastData    uint8
	hasData     bool
	awaitingAck bool
}

// NewValidator creates a validator with no history
func NewValidator() *Validator {
	return &Validator{}
}

// Observe checks a decoded frame against the traffic seen so far.
// Returns a slice of anomalies (empty if the frame is unremarkable).
func (v *Validator) Observe(f Frame) []ValidationError {
	errs := []ValidationError{}

	switch f := f.(type) {
	case *DataFrame:
		if f.Command == AckCommand {
			errs = append(errs, ValidationError{
				Type:    AnomalyReservedCommand,
				Message: fmt.Sprintf("Data frame seq=%d uses reserved command 0x01", f.Sequence),
				Details: map[string]interface{}{"seq": f.Sequence},
			})
		}
		if v.hasData {
			switch f.Sequence {
			case v.lastData:
				errs = append(errs, ValidationError{
					Type:    AnomalyRetransmission,
					Message: fmt.Sprintf("Retransmission of seq=%d", f.Sequence),
					Details: map[string]interface{}{"seq": f.Sequence},
				})
			case v.lastData + 1:
			default:
				errs = append(errs, ValidationError{
					Type:    AnomalySequenceGap,
					Message: fmt.Sprintf("Sequence gap: expected %d, got %d", v.lastData+1, f.Sequence),
					Details: map[string]interface{}{"expected": v.lastData + 1, "seq": f.Sequence},
				})
			}
		}
		v.lastData = f.Sequence
		v.hasData = true
		v.awaitingAck = true

	case *AckFrame:
		if !v.hasData || !v.awaitingAck {
			errs = append(errs, ValidationError{
				Type:    AnomalyUnexpectedAck,
				Message: fmt.Sprintf("ACK %d with no data frame outstanding", f.Sequence),
				Details: map[string]interface{}{"ack": f.Sequence},
			})
			return errs
		}
		switch {
		case f.IsRetryFor(v.lastData):
			errs = append(errs, ValidationError{
				Type:    AnomalyRetryRequest,
				Message: fmt.Sprintf("Retry requested for seq=%d", f.Sequence),
				Details: map[string]interface{}{"seq": f.Sequence},
			})
		case f.IsSuccessFor(v.lastData):
			v.awaitingAck = false
		default:
			errs = append(errs, ValidationError{
				Type:    AnomalyUnexpectedAck,
				Message: fmt.Sprintf("ACK %d does not match seq=%d", f.Sequence, v.lastData),
				Details: map[string]interface{}{"ack": f.Sequence, "seq": v.lastData},
			})
		}
	}

	return errs
}

// Reset forgets all sequence history
func (v *Validator) Reset() {
	*v = Validator{}
}

// Classify turns a ParseFrame error into a ValidationError
func Classify(err error) ValidationError {
	details := map[string]interface{}{}
	var fe *FrameError
	if errors.As(err, &fe) && fe.HasSequence {
		details["seq"] = fe.Sequence
	}

	switch {
	case errors.Is(err, ErrChecksumMismatch):
		return ValidationError{Type: AnomalyChecksumError, Message: err.Error(), Details: details}
	case errors.Is(err, ErrLengthMismatch):
		return ValidationError{Type: AnomalyLengthMismatch, Message: err.Error(), Details: details}
	default:
		return ValidationError{Type: AnomalyMalformed, Message: err.Error(), Details: details}
	}
}
