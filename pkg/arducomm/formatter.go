// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package arducomm

import (
	"fmt"
	"strings"
	"time"
)

// FormatFrame formats a decoded frame into a human-readable string
func FormatFrame(f Frame, at time.Time) string {
	timestamp := at.Format("15:04:05.000")

	switch f := f.(type) {
	case *AckFrame:
		return fmt.Sprintf("[%s] ACK seq=%d\n", timestamp, f.Sequence)
	case *DataFrame:
		result := fmt.Sprintf("[%s] %s (0x%02X) seq=%d len=%d\n",
			timestamp, FormatCommand(f.Command), f.Command, f.Sequence, f.PayloadLength())
		return result + FormatPayload(f.Payload)
	}
	return fmt.Sprintf("[%s] %s frame\n", timestamp, f.Kind())
}

// FormatMessage formats a delivered message
func FormatMessage(m Message) string {
	timestamp := m.Received.Format("15:04:05.000")
	result := fmt.Sprintf("[%s] %s (0x%02X) seq=%d len=%d\n",
		timestamp, FormatCommand(m.Command), m.Command, m.Sequence, len(m.Payload))
	return result + FormatPayload(m.Payload)
}

// FormatCommand returns a display name for a command byte
func FormatCommand(cmd uint8) string {
	if cmd == AckCommand {
		return "ACK"
	}
	return fmt.Sprintf("CMD_%d", cmd)
}

// FormatPayload renders a payload as a hex dump, 16 bytes per line
func FormatPayload(payload []byte) string {
	if len(payload) == 0 {
		return "  Payload: (empty)\n"
	}

	var sb strings.Builder
	sb.WriteString("  Payload: ")
	for i, b := range payload {
		if i > 0 && i%16 == 0 {
			sb.WriteString("\n           ")
		}
		fmt.Fprintf(&sb, "%02X ", b)
	}
	sb.WriteString("\n")
	return sb.String()
}
