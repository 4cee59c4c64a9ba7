// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package types encodes typed values into ArduComm payloads using the
// little-endian layouts of the microcontroller library.
package types

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrShortBuffer is returned when a payload is smaller than the decoded type
var ErrShortBuffer = errors.New("payload too short")

// Kind selects a primitive wire type
type Kind int

const (
	KindUint8 Kind = iota
	KindInt8
	KindUint16
	KindInt16
	KindUint32
	KindInt32
	KindFloat
	KindChar
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindUint8:
		return "uint8"
	case KindInt8:
		return "int8"
	case KindUint16:
		return "uint16"
	case KindInt16:
		return "int16"
	case KindUint32:
		return "uint32"
	case KindInt32:
		return "int32"
	case KindFloat:
		return "float"
	case KindChar:
		return "char"
	case KindString:
		return "str"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Size returns the encoded size in bytes, or 0 for variable-length kinds
func (k Kind) Size() int {
	switch k {
	case KindUint8, KindInt8, KindChar:
		return 1
	case KindUint16, KindInt16:
		return 2
	case KindUint32, KindInt32, KindFloat:
		return 4
	default:
		return 0
	}
}

// ParseKind maps a type name ("uint8", "float", "str", ...) to its Kind
func ParseKind(name string) (Kind, error) {
	for k := KindUint8; k <= KindString; k++ {
		if k.String() == name {
			return k, nil
		}
	}
	if name == "string" {
		return KindString, nil
	}
	return 0, fmt.Errorf("unknown type %q", name)
}

// EncodeValue serializes v as kind. Integer kinds accept any Go integer
// type whose value fits; KindFloat accepts float32 and float64.
func EncodeValue(kind Kind, v any) ([]byte, error) {
	switch kind {
	case KindString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s: expected string, got %T", kind, v)
		}
		return EncodeString(s), nil

	case KindChar:
		switch c := v.(type) {
		case byte:
			return []byte{c}, nil
		case rune:
			if c > 0x7F {
				return nil, fmt.Errorf("%s: %q is not a single byte", kind, c)
			}
			return []byte{byte(c)}, nil
		case string:
			if len(c) != 1 {
				return nil, fmt.Errorf("%s: expected one byte, got %d", kind, len(c))
			}
			return []byte(c), nil
		}
		return nil, fmt.Errorf("%s: unsupported value %T", kind, v)

	case KindFloat:
		var f float64
		switch x := v.(type) {
		case float32:
			f = float64(x)
		case float64:
			f = x
		default:
			return nil, fmt.Errorf("%s: expected float, got %T", kind, v)
		}
		return binary.LittleEndian.AppendUint32(nil, math.Float32bits(float32(f))), nil
	}

	n, err := toInt64(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}

	switch kind {
	case KindUint8:
		if n < 0 || n > math.MaxUint8 {
			return nil, fmt.Errorf("%s: %d out of range", kind, n)
		}
		return []byte{uint8(n)}, nil
	case KindInt8:
		if n < math.MinInt8 || n > math.MaxInt8 {
			return nil, fmt.Errorf("%s: %d out of range", kind, n)
		}
		return []byte{byte(int8(n))}, nil
	case KindUint16:
		if n < 0 || n > math.MaxUint16 {
			return nil, fmt.Errorf("%s: %d out of range", kind, n)
		}
		return binary.LittleEndian.AppendUint16(nil, uint16(n)), nil
	case KindInt16:
		if n < math.MinInt16 || n > math.MaxInt16 {
			return nil, fmt.Errorf("%s: %d out of range", kind, n)
		}
		return binary.LittleEndian.AppendUint16(nil, uint16(int16(n))), nil
	case KindUint32:
		if n < 0 || n > math.MaxUint32 {
			return nil, fmt.Errorf("%s: %d out of range", kind, n)
		}
		return binary.LittleEndian.AppendUint32(nil, uint32(n)), nil
	case KindInt32:
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("%s: %d out of range", kind, n)
		}
		return binary.LittleEndian.AppendUint32(nil, uint32(int32(n))), nil
	}

	return nil, fmt.Errorf("unknown kind %s", kind)
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("%d out of range", x)
		}
		return int64(x), nil
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}

// DecodeValue parses the leading bytes of buf as kind. Integer kinds decode
// to their exact Go type (uint8, int16, ...), KindFloat to float32, KindChar
// to byte and KindString to string.
func DecodeValue(kind Kind, buf []byte) (any, error) {
	if kind == KindString {
		return DecodeString(buf), nil
	}
	if size := kind.Size(); size == 0 {
		return nil, fmt.Errorf("unknown kind %s", kind)
	} else if len(buf) < size {
		return nil, fmt.Errorf("%s: %w (%d < %d)", kind, ErrShortBuffer, len(buf), size)
	}

	switch kind {
	case KindUint8:
		return buf[0], nil
	case KindInt8:
		return int8(buf[0]), nil
	case KindChar:
		return buf[0], nil
	case KindUint16:
		return binary.LittleEndian.Uint16(buf), nil
	case KindInt16:
		return int16(binary.LittleEndian.Uint16(buf)), nil
	case KindUint32:
		return binary.LittleEndian.Uint32(buf), nil
	case KindInt32:
		return int32(binary.LittleEndian.Uint32(buf)), nil
	default:
		return math.Float32frombits(binary.LittleEndian.Uint32(buf)), nil
	}
}

// EncodeString returns s as a NUL terminated byte string
func EncodeString(s string) []byte {
	if strings.HasSuffix(s, "\x00") {
		return []byte(s)
	}
	return append([]byte(s), 0)
}

// DecodeString returns buf as a string with trailing NULs removed. The
// terminator is optional.
func DecodeString(buf []byte) string {
	return strings.TrimRight(string(buf), "\x00")
}

// float32 helpers shared by the composite types

func putFloats(dst []byte, vals ...float32) []byte {
	for _, v := range vals {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

func readFloats(buf []byte, name string, dst ...*float32) error {
	if len(buf) < 4*len(dst) {
		return fmt.Errorf("%s: %w (%d < %d)", name, ErrShortBuffer, len(buf), 4*len(dst))
	}
	for i, p := range dst {
		*p = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return nil
}
