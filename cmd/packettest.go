// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/arducomm/pkg/arducomm"
)

var packetTestTimeout int

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid ArduComm frame",
	Long: `Wait for a valid ArduComm frame on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any valid
frame, data or ACK. It ignores bytes before the first delimiter and frames
that fail the checksum. No acknowledgments are sent.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "wait", 10, "Seconds to wait for a frame")
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	ch, connInfo, err := OpenChannel(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer ch.Close()

	fmt.Printf("ArduComm - Frame Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for valid ArduComm frame...\n\n")

	decoder := arducomm.NewDecoder(checksumFunc())
	frameChan := make(chan arducomm.Frame, 1)
	errChan := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		invalidFrames := 0
		for {
			select {
			case <-done:
				return
			default:
			}

			b, ok, err := ch.TryReadByte()
			if err != nil {
				errChan <- err
				return
			}
			if !ok {
				time.Sleep(arducomm.DefaultPollInterval)
				continue
			}

			frame, decodeErr := decoder.DecodeByte(b)
			if decodeErr != nil {
				invalidFrames++
				continue
			}
			if frame != nil {
				if skipped := decoder.Skipped(); skipped > 0 || invalidFrames > 0 {
					fmt.Printf("(skipped %d bytes before sync, %d invalid frames)\n", skipped, invalidFrames)
				}
				frameChan <- frame
				return
			}
		}
	}()

	select {
	case frame := <-frameChan:
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Kind: %s\n", frame.Kind())
		fmt.Printf("  Sequence: %d\n", frame.Seq())
		if df, ok := frame.(*arducomm.DataFrame); ok {
			fmt.Printf("  Command: %s (0x%02X)\n", arducomm.FormatCommand(df.Command), df.Command)
			fmt.Printf("  Length: %d bytes\n", df.PayloadLength())
			fmt.Printf("  Checksum: 0x%04X\n", df.ReceivedChecksum())
		}
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(packetTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", packetTestTimeout)
		os.Exit(1)
	}

	return nil
}
