// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package types

import (
	"context"
	"encoding"
	"fmt"

	"github.com/getlantern/golog"

	"github.com/Thermoquad/arducomm/pkg/arducomm"
)

var log = golog.LoggerFor("arducomm.types")

// Subscriber is satisfied by *arducomm.Link
type Subscriber interface {
	Subscribe(command uint8, h arducomm.Handler)
}

// Sender is satisfied by *arducomm.Link and *arducomm.Engine
type Sender interface {
	Send(ctx context.Context, command int, payload []byte) error
}

// Subscribe registers fn for command. Each payload is decoded into a T
// before fn is called; payloads that fail to decode are logged and dropped.
func Subscribe[T any, PT interface {
	*T
	encoding.BinaryUnmarshaler
}](s Subscriber, command uint8, fn func(T)) {
	s.Subscribe(command, arducomm.HandlerFunc(func(msg arducomm.Message) {
		var v T
		if err := PT(&v).UnmarshalBinary(msg.Payload); err != nil {
			log.Errorf("Dropping command 0x%02X: %v", command, err)
			return
		}
		fn(v)
	}))
}

// SubscribeValue registers fn for command, decoding each payload as kind
func SubscribeValue(s Subscriber, command uint8, kind Kind, fn func(any)) {
	s.Subscribe(command, arducomm.HandlerFunc(func(msg arducomm.Message) {
		v, err := DecodeValue(kind, msg.Payload)
		if err != nil {
			log.Errorf("Dropping command 0x%02X: %v", command, err)
			return
		}
		fn(v)
	}))
}

// Send marshals v and sends it as command
func Send(ctx context.Context, s Sender, command int, v encoding.BinaryMarshaler) error {
	payload, err := v.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return s.Send(ctx, command, payload)
}

// SendValue encodes v as kind and sends it as command
func SendValue(ctx context.Context, s Sender, command int, kind Kind, v any) error {
	payload, err := EncodeValue(kind, v)
	if err != nil {
		return err
	}
	return s.Send(ctx, command, payload)
}
