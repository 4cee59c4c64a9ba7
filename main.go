// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// ArduComm - point-to-point serial link tool
//
// Sends, receives and analyzes ArduComm frames over a serial port or a
// WebSocket bridge.

package main

import (
	"os"

	"github.com/Thermoquad/arducomm/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
