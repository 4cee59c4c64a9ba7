// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package arducomm

import (
	"time"

	"github.com/getlantern/golog"
)

var log = golog.LoggerFor("arducomm")

// Option configures a Link and its ARQ engine.
type Option func(*config)

type config struct {
	maxRetries         int
	ackTimeout         time.Duration
	pollInterval       time.Duration
	chunkSize          int
	chunkDelay         time.Duration
	checksum           ChecksumFunc
	handlerConcurrency int
	log                golog.Logger
}

func defaultConfig() config {
	return config{
		maxRetries:   DefaultMaxRetries,
		ackTimeout:   DefaultAckTimeout,
		pollInterval: DefaultPollInterval,
		chunkSize:    DefaultChunkSize,
		chunkDelay:   DefaultChunkDelay,
		checksum:     FletcherChecksum,
		log:          log,
	}
}

func newConfig(opts []Option) config {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// WithMaxRetries sets how many transmissions a frame gets when the peer keeps
// answering with the retry code. Values < 1 keep the default.
func WithMaxRetries(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithAckTimeout sets how long Send waits for any ACK before giving up.
func WithAckTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.ackTimeout = d
		}
	}
}

// WithPollInterval sets the reception loop back-off when no byte is available.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithChunkSize sets the largest single write to the channel.
func WithChunkSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithChunkDelay sets the pause between chunks of a large frame, giving a
// small peer time to drain its receive buffer. Zero disables pacing.
func WithChunkDelay(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.chunkDelay = d
		}
	}
}

// WithChecksum replaces the frame checksum. Both peers must agree.
func WithChecksum(fn ChecksumFunc) Option {
	return func(c *config) {
		if fn != nil {
			c.checksum = fn
		}
	}
}

// WithHandlerConcurrency bounds the number of handlers running at once.
// Zero (the default) means unbounded. Reception never waits for a slot.
func WithHandlerConcurrency(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.handlerConcurrency = n
		}
	}
}

// WithLogger replaces the package logger for one link.
func WithLogger(l golog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}
