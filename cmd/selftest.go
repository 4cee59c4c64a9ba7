// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/arducomm/pkg/arducomm"
	"github.com/Thermoquad/arducomm/pkg/transport"
)

var (
	selftestCount   int
	selftestCorrupt float64
	selftestSeed    int64
)

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Run two links against each other in memory",
	Long: `Connect two ArduComm links through an in-memory pipe and exchange messages.

With --corrupt P each write from the sender has probability P of getting one
byte flipped, which exercises the retry path end to end. No hardware needed.

Exit codes:
  0 - Every message delivered intact
  1 - One or more messages lost or damaged`,
	RunE: runSelftest,
}

func init() {
	rootCmd.AddCommand(selftestCmd)
	selftestCmd.Flags().IntVar(&selftestCount, "count", 100, "Number of messages to send")
	selftestCmd.Flags().Float64Var(&selftestCorrupt, "corrupt", 0, "Probability (0-1) of corrupting a sender write")
	selftestCmd.Flags().Int64Var(&selftestSeed, "seed", 0, "Random seed (0 uses the current time)")
}

func runSelftest(cmd *cobra.Command, args []string) error {
	seed := selftestSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	var rngMu sync.Mutex

	sendEnd, recvEnd := transport.NewPipe()
	if selftestCorrupt > 0 {
		sendEnd.SetFilter(func(p []byte) []byte {
			rngMu.Lock()
			defer rngMu.Unlock()
			if len(p) > 4 && rng.Float64() < selftestCorrupt {
				// Flip a bit inside the frame, never a delimiter
				i := 1 + rng.Intn(len(p)-2)
				p[i] ^= 1 << uint(rng.Intn(8))
				if p[i] == arducomm.DelimiterByte {
					p[i] ^= 0x01
				}
			}
			return p
		})
	}

	opts := []arducomm.Option{
		arducomm.WithAckTimeout(500 * time.Millisecond),
		arducomm.WithPollInterval(time.Millisecond),
		arducomm.WithChunkDelay(0),
		arducomm.WithMaxRetries(maxRetries),
		arducomm.WithChecksum(checksumFunc()),
	}
	sender := arducomm.NewLink(sendEnd, opts...)
	receiver := arducomm.NewLink(recvEnd, opts...)

	var mu sync.Mutex
	received := make(map[uint8][]byte)
	receiver.RegisterHandler(arducomm.HandlerFunc(func(msg arducomm.Message) {
		mu.Lock()
		received[msg.Command] = msg.Payload
		mu.Unlock()
	}))

	sender.Start()
	receiver.Start()
	defer sender.Stop()
	defer receiver.Stop()

	fmt.Printf("ArduComm - Self Test\n")
	fmt.Printf("Messages: %d, corruption: %.0f%%, seed: %d\n\n", selftestCount, selftestCorrupt*100, seed)

	start := time.Now()
	failed := 0
	for i := 0; i < selftestCount; i++ {
		rngMu.Lock()
		command := 2 + rng.Intn(254)
		payload := make([]byte, rng.Intn(arducomm.MaxPayloadSize+1))
		rng.Read(payload)
		rngMu.Unlock()

		if err := sender.Send(context.Background(), command, payload); err != nil {
			fmt.Printf("message %d: %v\n", i, err)
			failed++
			continue
		}

		// Stop-and-Wait: the receiver has dispatched before the ACK returned,
		// so poll briefly for the handler
		deadline := time.Now().Add(time.Second)
		for {
			mu.Lock()
			got, ok := received[uint8(command)]
			if ok {
				delete(received, uint8(command))
			}
			mu.Unlock()
			if ok {
				if !bytes.Equal(got, payload) {
					fmt.Printf("message %d: payload damaged\n", i)
					failed++
				}
				break
			}
			if time.Now().After(deadline) {
				fmt.Printf("message %d: acknowledged but never delivered\n", i)
				failed++
				break
			}
			time.Sleep(time.Millisecond)
		}
	}
	elapsed := time.Since(start)

	sstats := sender.Statistics()
	rstats := receiver.Statistics()
	fmt.Printf("Sender\n%s", sstats.String())
	fmt.Printf("Receiver\n%s", rstats.String())
	fmt.Printf("%d/%d messages delivered intact in %v\n", selftestCount-failed, selftestCount, elapsed.Round(time.Millisecond))

	if failed > 0 {
		sender.Stop()
		receiver.Stop()
		os.Exit(1)
	}
	return nil
}
