// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/arducomm/pkg/arducomm"
)

var rawLogAnomalies bool

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw frame log in human-readable format",
	Long: `Continuously decode and display ArduComm frames as they arrive.

This command is passive: it never sends acknowledgments, so it can watch a
line without disturbing the exchange. Each frame is shown with timestamp,
command, sequence and a hex dump of the payload.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogAnomalies, "anomalies", false, "Also report sequence anomalies (gaps, retransmissions, retry requests)")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	ch, connInfo, err := OpenChannel(cmd.Context())
	if err != nil {
		return err
	}
	defer ch.Close()

	fmt.Printf("ArduComm - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	decoder := arducomm.NewDecoder(checksumFunc())
	validator := arducomm.NewValidator()

	for {
		b, ok, err := ch.TryReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Println("Connection closed")
				return nil
			}
			fmt.Printf("[ERROR] read: %v\n", err)
			time.Sleep(arducomm.DefaultPollInterval)
			continue
		}
		if !ok {
			time.Sleep(arducomm.DefaultPollInterval)
			continue
		}

		frame, err := decoder.DecodeByte(b)
		if err != nil {
			fmt.Printf("[ERROR] %v\n", err)
			continue
		}
		if frame == nil {
			continue
		}

		fmt.Print(arducomm.FormatFrame(frame, time.Now()))
		if rawLogAnomalies {
			for _, a := range validator.Observe(frame) {
				fmt.Printf("  [%s] %s\n", a.Type, a.Message)
			}
		}
	}
}
