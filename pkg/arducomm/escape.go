// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package arducomm

// needsEscape reports whether b collides with a framing byte
func needsEscape(b byte) bool {
	return b == DelimiterByte || b == EscByte
}

// StuffBytes appends the byte-stuffed form of data to dst and returns the
// extended slice. Framing bytes are replaced with ESC + (byte XOR EscXor).
func StuffBytes(dst, data []byte) []byte {
	for _, b := range data {
		dst = appendEscaped(dst, b)
	}
	return dst
}

func appendEscaped(dst []byte, b byte) []byte {
	if needsEscape(b) {
		return append(dst, EscByte, b^EscXor)
	}
	return append(dst, b)
}

// UnstuffBytes removes byte stuffing from escaped data.
// This is the inverse of StuffBytes.
func UnstuffBytes(data []byte) ([]byte, error) {
	result := make([]byte, 0, len(data))
	escapeNext := false

	for _, b := range data {
		if escapeNext {
			result = append(result, b^EscXor)
			escapeNext = false
		} else if b == EscByte {
			escapeNext = true
		} else {
			result = append(result, b)
		}
	}

	if escapeNext {
		return nil, ErrIncompleteEscape
	}

	return result, nil
}
