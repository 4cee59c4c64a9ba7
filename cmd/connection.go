// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Thermoquad/arducomm/pkg/arducomm"
	"github.com/Thermoquad/arducomm/pkg/transport"
)

// passwordEnv holds the WebSocket password for non-interactive use
const passwordEnv = "ARDUCOMM_PASSWORD"

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// OpenChannel opens either a serial or WebSocket channel based on flags
func OpenChannel(ctx context.Context) (arducomm.Channel, string, error) {
	if wsURL != "" {
		password := ""
		if wsUsername != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		ws, err := transport.OpenWebSocket(ctx, wsURL, transport.WebSocketOptions{
			Username:      wsUsername,
			Password:      password,
			SkipSSLVerify: wsNoSSLVerify,
		})
		if err != nil {
			return nil, "", err
		}
		return ws, fmt.Sprintf("WebSocket: %s", wsURL), nil
	}

	if portName != "" {
		port, err := transport.OpenSerial(portName, baudRate, transport.DefaultReadTimeout)
		if err != nil {
			return nil, "", err
		}
		return port, fmt.Sprintf("Serial: %s @ %d baud", portName, baudRate), nil
	}

	return nil, "", fmt.Errorf("either --port or --url must be specified")
}

// OpenLink opens the channel selected by the flags and starts a link on it
func OpenLink(ctx context.Context, extra ...arducomm.Option) (*arducomm.Link, string, error) {
	ch, info, err := OpenChannel(ctx)
	if err != nil {
		return nil, "", err
	}

	link := arducomm.NewLink(ch, linkOptions(extra...)...)
	if err := link.Start(); err != nil {
		ch.Close()
		return nil, "", err
	}
	return link, info, nil
}
