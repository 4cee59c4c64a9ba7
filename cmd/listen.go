// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/arducomm/pkg/arducomm"
	"github.com/Thermoquad/arducomm/pkg/arducomm/types"
)

var (
	listenEcho          bool
	listenStatsInterval int
	listenDecode        string
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Receive and acknowledge messages",
	Long: `Take part in the link as a receiver: every valid message is acknowledged
and printed. Corrupted frames are answered with a retry request.

With --echo each received message is sent back to the peer with the same
command and payload. With --decode the payload is also shown as the given
type (uint8, int16, float, str, vector3, quaternion, pose, pose2d, imu,
float_array, cbor).

Press Ctrl+C to exit; statistics are printed on exit.`,
	RunE: runListen,
}

func init() {
	rootCmd.AddCommand(listenCmd)
	listenCmd.Flags().BoolVar(&listenEcho, "echo", false, "Send every received message back")
	listenCmd.Flags().IntVar(&listenStatsInterval, "stats-interval", 0, "Print statistics every N seconds (0 disables)")
	listenCmd.Flags().StringVar(&listenDecode, "decode", "", "Decode payloads as this type")
}

// decodePayload renders payload as the type named by --decode
func decodePayload(name string, payload []byte) (string, error) {
	var v types.Serializable
	switch name {
	case "vector2":
		v = &types.Vector2{}
	case "vector3":
		v = &types.Vector3{}
	case "quaternion":
		v = &types.Quaternion{}
	case "pose":
		v = &types.Pose{}
	case "pose2d":
		v = &types.Pose2D{}
	case "imu":
		v = &types.Imu{}
	case "float_array":
		v = &types.FloatArray{}
	case "cbor":
		m, err := types.DecodeMap(payload)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%v", m), nil
	default:
		kind, err := types.ParseKind(name)
		if err != nil {
			return "", err
		}
		val, err := types.DecodeValue(kind, payload)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%v", val), nil
	}

	if err := v.UnmarshalBinary(payload); err != nil {
		return "", err
	}
	return fmt.Sprintf("%+v", v), nil
}

func runListen(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	link, connInfo, err := OpenLink(ctx)
	if err != nil {
		return err
	}
	defer link.Stop()

	fmt.Printf("ArduComm - Listen\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	link.RegisterHandler(arducomm.HandlerFunc(func(msg arducomm.Message) {
		out := arducomm.FormatMessage(msg)
		if listenDecode != "" {
			if s, err := decodePayload(listenDecode, msg.Payload); err != nil {
				out += fmt.Sprintf("  Decode (%s) failed: %v\n", listenDecode, err)
			} else {
				out += fmt.Sprintf("  %s: %s\n", listenDecode, s)
			}
		}
		fmt.Print(out)

		if listenEcho {
			if err := link.Send(ctx, int(msg.Command), msg.Payload); err != nil {
				fmt.Printf("  Echo failed: %v\n", err)
			}
		}
	}))

	var tick <-chan time.Time
	if listenStatsInterval > 0 {
		ticker := time.NewTicker(time.Duration(listenStatsInterval) * time.Second)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			stats := link.Statistics()
			fmt.Printf("\n%s", stats.String())
			return nil
		case <-tick:
			stats := link.Statistics()
			fmt.Print(stats.String())
		}
	}
}
