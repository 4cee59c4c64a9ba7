// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/arducomm/pkg/arducomm"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Link flags
	ackTimeout   time.Duration
	maxRetries   int
	chunkSize    int
	chunkDelay   time.Duration
	useCRC16     bool
	verboseDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "arducomm",
	Short: "ArduComm serial link tool",
	Long: `ArduComm - send, receive and analyze ArduComm frames.

ArduComm is a point-to-point link protocol for microcontrollers: byte-stuffed
frames with a Fletcher checksum and Stop-and-Wait acknowledgments.

Connection modes:
  Serial:    --port /dev/ttyACM0 [--baud 57600]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the ARDUCOMM_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version: "1.0.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configureLogging(verboseDebug)
	},
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", arducomm.DefaultBaudRate, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Link flags
	rootCmd.PersistentFlags().DurationVar(&ackTimeout, "timeout", arducomm.DefaultAckTimeout, "Time to wait for an ACK")
	rootCmd.PersistentFlags().IntVar(&maxRetries, "retries", arducomm.DefaultMaxRetries, "Transmissions per frame when the peer requests a retry")
	rootCmd.PersistentFlags().IntVar(&chunkSize, "chunk-size", arducomm.DefaultChunkSize, "Largest single write to the channel")
	rootCmd.PersistentFlags().DurationVar(&chunkDelay, "chunk-delay", arducomm.DefaultChunkDelay, "Pause between chunks of a large frame")
	rootCmd.PersistentFlags().BoolVar(&useCRC16, "crc16", false, "Use CRC-16/CCITT-FALSE instead of the Fletcher checksum (peer must agree)")
	rootCmd.PersistentFlags().BoolVarP(&verboseDebug, "verbose", "v", false, "Enable protocol debug logging")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// linkOptions builds the link configuration from the command line flags
func linkOptions(extra ...arducomm.Option) []arducomm.Option {
	opts := []arducomm.Option{
		arducomm.WithAckTimeout(ackTimeout),
		arducomm.WithMaxRetries(maxRetries),
		arducomm.WithChunkSize(chunkSize),
		arducomm.WithChunkDelay(chunkDelay),
		arducomm.WithChecksum(checksumFunc()),
	}
	return append(opts, extra...)
}

func checksumFunc() arducomm.ChecksumFunc {
	if useCRC16 {
		return arducomm.CRC16Checksum
	}
	return arducomm.FletcherChecksum
}
