// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package arducomm

import "github.com/sigurn/crc16"

// ChecksumFunc computes the frame check value over the logical (unescaped)
// bytes [seq, cmd, len] ++ payload. The high byte is sent first.
type ChecksumFunc func(seq, cmd, length uint8, payload []byte) uint16

// Fletcher16 computes the ArduComm Fletcher-style checksum.
//
// Both accumulators are 16 bits wide. The carry is folded back after every
// payload byte whose index is a multiple of 16, and twice more at the end,
// exactly as the microcontroller firmware does. Folding preserves the value
// modulo 255, so the reduction points never change the result.
func Fletcher16(seq, cmd, length uint8, payload []byte) (hi, lo uint8) {
	var sumLo, sumHi uint16

	for _, b := range [...]uint8{seq, cmd, length} {
		sumLo += uint16(b)
		sumHi += sumLo
	}

	for i := 0; i < int(length) && i < len(payload); i++ {
		sumLo += uint16(payload[i])
		sumHi += sumLo
		if i%16 == 0 {
			sumLo = fold(sumLo)
			sumHi = fold(sumHi)
		}
	}

	sumLo = fold(fold(sumLo))
	sumHi = fold(fold(sumHi))

	return uint8(sumHi), uint8(sumLo)
}

func fold(acc uint16) uint16 {
	return (acc & 0xFF) + (acc >> 8)
}

// FletcherChecksum is the default ChecksumFunc, compatible with stock firmware.
func FletcherChecksum(seq, cmd, length uint8, payload []byte) uint16 {
	hi, lo := Fletcher16(seq, cmd, length, payload)
	return uint16(hi)<<8 | uint16(lo)
}

var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// CRC16Checksum computes CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF) over
// the same logical bytes. Stronger than Fletcher16 but not understood by
// stock firmware: both peers have to be configured with it.
func CRC16Checksum(seq, cmd, length uint8, payload []byte) uint16 {
	crc := crc16.Init(crcTable)
	crc = crc16.Update(crc, []byte{seq, cmd, length}, crcTable)
	if int(length) < len(payload) {
		payload = payload[:length]
	}
	crc = crc16.Update(crc, payload, crcTable)
	return crc16.Complete(crc, crcTable)
}
