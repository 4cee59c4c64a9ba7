// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/arducomm/pkg/arducomm"
	"github.com/Thermoquad/arducomm/pkg/arducomm/types"
)

var (
	sendHex    string
	sendString string
	sendFloats []float64
	sendType   string
	sendValue  string
	sendCBOR   string
	sendStats  bool
)

var sendCmd = &cobra.Command{
	Use:   "send <command>",
	Short: "Send one message and wait for the acknowledgment",
	Long: `Send a single ArduComm message and wait until the peer acknowledges it.

The command byte is 0-255 (decimal or 0x hex); 1 is reserved for ACK frames.
At most one payload flag may be given:

  --hex 01020A           raw bytes
  --string "led on"      NUL terminated string
  --float 1.5 --float 2  float array (little-endian float32)
  --type int16 --value -300
                         one primitive (uint8, int8, uint16, int16,
                         uint32, int32, float, char, str)
  --cbor '{"0": 1}'      CBOR map with integer keys (host to host only)

Exit codes:
  0 - Message acknowledged
  1 - Peer did not acknowledge (timeout or retries exhausted)
  2 - Connection or argument error`,
	Args: cobra.ExactArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVar(&sendHex, "hex", "", "Payload as hex bytes")
	sendCmd.Flags().StringVar(&sendString, "string", "", "Payload as NUL terminated string")
	sendCmd.Flags().Float64SliceVar(&sendFloats, "float", nil, "Payload as float array (repeatable)")
	sendCmd.Flags().StringVar(&sendType, "type", "", "Primitive type of --value")
	sendCmd.Flags().StringVar(&sendValue, "value", "", "Primitive value, encoded as --type")
	sendCmd.Flags().StringVar(&sendCBOR, "cbor", "", "Payload as CBOR map, given as JSON object")
	sendCmd.Flags().BoolVar(&sendStats, "stats", false, "Print link statistics after sending")
}

// parseCommand accepts decimal or 0x-prefixed hex
func parseCommand(s string) (int, error) {
	n, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid command %q: %w", s, err)
	}
	return int(n), nil
}

// buildPayload encodes the payload selected by the send flags
func buildPayload(cmd *cobra.Command) ([]byte, error) {
	set := 0
	for _, name := range []string{"hex", "string", "float", "type", "cbor"} {
		if cmd.Flags().Changed(name) {
			set++
		}
	}
	if set > 1 {
		return nil, errors.New("only one of --hex, --string, --float, --type, --cbor may be given")
	}

	switch {
	case cmd.Flags().Changed("hex"):
		return parseHex(sendHex)

	case cmd.Flags().Changed("string"):
		return types.EncodeString(sendString), nil

	case cmd.Flags().Changed("float"):
		arr := make(types.FloatArray, len(sendFloats))
		for i, f := range sendFloats {
			arr[i] = float32(f)
		}
		return arr.MarshalBinary()

	case cmd.Flags().Changed("type"):
		kind, err := types.ParseKind(sendType)
		if err != nil {
			return nil, err
		}
		v, err := parseValue(kind, sendValue)
		if err != nil {
			return nil, err
		}
		return types.EncodeValue(kind, v)

	case cmd.Flags().Changed("cbor"):
		return parseCBORJSON(sendCBOR)
	}

	return nil, nil
}

func parseHex(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", ":", "", "0x", "").Replace(s)
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload: %w", err)
	}
	return data, nil
}

func parseValue(kind types.Kind, s string) (any, error) {
	switch kind {
	case types.KindString, types.KindChar:
		return s, nil
	case types.KindFloat:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q: %w", s, err)
		}
		return f, nil
	default:
		n, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", s, err)
		}
		return n, nil
	}
}

// parseCBORJSON converts a JSON object with integer keys into a CBOR map
func parseCBORJSON(s string) ([]byte, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	m := make(map[int]interface{}, len(raw))
	for k, v := range raw {
		key, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("CBOR map keys must be integers, got %q", k)
		}
		// JSON numbers arrive as float64; keep integral values as integers
		if f, ok := v.(float64); ok && f == float64(int64(f)) {
			v = int64(f)
		}
		m[key] = v
	}
	return types.EncodeMap(m)
}

func runSend(cmd *cobra.Command, args []string) error {
	command, err := parseCommand(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	payload, err := buildPayload(cmd)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	link, connInfo, err := OpenLink(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer link.Stop()

	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Sending %s (0x%02X), %d byte payload\n", arducomm.FormatCommand(uint8(command)), command&0xFF, len(payload))

	err = link.Send(context.Background(), command, payload)
	if sendStats {
		stats := link.Statistics()
		fmt.Print(stats.String())
	}

	switch {
	case err == nil:
		fmt.Printf("ACK received (seq=%d)\n", link.Sequence())
		return nil
	case errors.Is(err, arducomm.ErrCommandOutOfRange),
		errors.Is(err, arducomm.ErrReservedCommand),
		errors.Is(err, arducomm.ErrPayloadTooLarge):
		fmt.Fprintf(os.Stderr, "Invalid message: %v\n", err)
		link.Stop()
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "FAILED: %v\n", err)
		link.Stop()
		os.Exit(1)
	}
	return nil
}
