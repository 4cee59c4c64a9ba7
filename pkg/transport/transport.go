// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport provides the byte channels an ArduComm link runs on:
// a serial port, a WebSocket serial bridge and an in-memory pipe.
package transport

import (
	"errors"

	"github.com/getlantern/golog"
)

var log = golog.LoggerFor("arducomm.transport")

// ErrConnectionClosed is returned once a channel has been closed
var ErrConnectionClosed = errors.New("connection closed")
