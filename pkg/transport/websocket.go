// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket carries the raw serial byte stream of a remote bridge in binary
// WebSocket messages.
type WebSocket struct {
	conn *websocket.Conn

	incoming chan []byte
	pending  []byte
	readErr  error
	errOnce  sync.Once
	done     chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// WebSocketOptions controls the WebSocket dial
type WebSocketOptions struct {
	Username      string
	Password      string
	SkipSSLVerify bool
	DialTimeout   time.Duration
}

// OpenWebSocket connects to wsURL with optional HTTP Basic auth
func OpenWebSocket(ctx context.Context, wsURL string, opts WebSocketOptions) (*WebSocket, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: opts.SkipSSLVerify,
		}
	}

	headers := http.Header{}
	if opts.Username != "" && opts.Password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(opts.Username + ":" + opts.Password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	timeout := opts.DialTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return NewWebSocket(conn), nil
}

// NewWebSocket wraps an established connection and starts its reader
func NewWebSocket(conn *websocket.Conn) *WebSocket {
	w := &WebSocket{
		conn:     conn,
		incoming: make(chan []byte, 64),
		done:     make(chan struct{}),
	}
	go w.readLoop()
	return w
}

func (w *WebSocket) readLoop() {
	defer close(w.incoming)
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.setErr(err)
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		select {
		case w.incoming <- data:
		case <-w.done:
			w.setErr(io.EOF)
			return
		}
	}
}

func (w *WebSocket) setErr(err error) {
	w.errOnce.Do(func() {
		select {
		case <-w.done:
			w.readErr = io.EOF
		default:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				w.readErr = io.EOF
			} else {
				log.Debugf("WebSocket read failed: %v", err)
				w.readErr = fmt.Errorf("%w: %v", io.EOF, err)
			}
		}
	})
}

// TryReadByte returns the next byte of the stream without blocking
func (w *WebSocket) TryReadByte() (byte, bool, error) {
	if len(w.pending) == 0 {
		select {
		case data, ok := <-w.incoming:
			if !ok {
				return 0, false, w.readErr
			}
			w.pending = data
		default:
			return 0, false, nil
		}
		if len(w.pending) == 0 {
			return 0, false, nil
		}
	}

	b := w.pending[0]
	w.pending = w.pending[1:]
	return b, true, nil
}

// Write sends p as one binary message
func (w *WebSocket) Write(p []byte) (int, error) {
	select {
	case <-w.done:
		return 0, ErrConnectionClosed
	default:
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close closes the connection and stops the reader
func (w *WebSocket) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		w.writeMu.Lock()
		_ = w.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		w.writeMu.Unlock()
		err = w.conn.Close()
	})
	return err
}
