// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/arducomm/pkg/arducomm"
)

var (
	pingCount   int
	pingCommand int
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure acknowledgment round trip to the peer",
	Long: `Send empty messages and time how long the peer takes to acknowledge them.

Any ArduComm peer acknowledges every valid data frame, whether or not it has a
callback for the command, so this works against stock firmware.

Exit codes:
  0 - All pings acknowledged
  1 - One or more pings failed
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
	pingCmd.Flags().IntVar(&pingCommand, "command", 0xFF, "Command byte used for the ping")
}

func runPing(cmd *cobra.Command, args []string) error {
	link, connInfo, err := OpenLink(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer link.Stop()

	fmt.Printf("ArduComm - Ping\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %v per ping, command 0x%02X\n\n", ackTimeout, pingCommand&0xFF)

	successCount := 0
	var total time.Duration

	for i := 1; i <= pingCount; i++ {
		fmt.Printf("Ping %d/%d: ", i, pingCount)

		start := time.Now()
		err := link.Send(context.Background(), pingCommand, nil)
		rtt := time.Since(start)

		switch {
		case err == nil:
			fmt.Printf("ACK seq=%d rtt=%v\n", link.Sequence(), rtt.Round(time.Millisecond))
			successCount++
			total += rtt
		case errors.Is(err, arducomm.ErrTimeout):
			fmt.Printf("TIMEOUT (no ACK in %v)\n", ackTimeout)
		default:
			fmt.Printf("FAILED: %v\n", err)
		}

		if i < pingCount {
			time.Sleep(100 * time.Millisecond)
		}
	}

	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d pings sent, %d acknowledged, %.0f%% loss\n",
		pingCount, successCount, float64(pingCount-successCount)/float64(pingCount)*100)
	if successCount > 0 {
		fmt.Printf("average rtt %v\n", (total / time.Duration(successCount)).Round(time.Millisecond))
	}

	if successCount < pingCount {
		os.Exit(1)
	}
	return nil
}
