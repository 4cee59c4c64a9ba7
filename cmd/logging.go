// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"io"
	"os"

	"github.com/getlantern/golog"
)

// configureLogging routes library logs to stderr so they never mix with
// decoded frames on stdout. Debug output is dropped unless verbose is set.
func configureLogging(verbose bool) {
	debugOut := io.Discard
	if verbose {
		debugOut = os.Stderr
	}
	golog.SetOutputs(os.Stderr, debugOut)
}
