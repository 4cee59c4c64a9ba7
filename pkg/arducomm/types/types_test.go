// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package types

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/Thermoquad/arducomm/pkg/arducomm"
)

// ============================================================
// Primitive Tests
// ============================================================

func TestEncodeValue_Layouts(t *testing.T) {
	tests := []struct {
		kind Kind
		v    any
		want []byte
	}{
		{KindUint8, 200, []byte{0xC8}},
		{KindInt8, -1, []byte{0xFF}},
		{KindUint16, 0x1234, []byte{0x34, 0x12}},
		{KindInt16, int16(-2), []byte{0xFE, 0xFF}},
		{KindUint32, uint32(0xDEADBEEF), []byte{0xEF, 0xBE, 0xAD, 0xDE}},
		{KindInt32, -100000, []byte{0x60, 0x79, 0xFE, 0xFF}},
		{KindFloat, float32(1.0), []byte{0x00, 0x00, 0x80, 0x3F}},
		{KindFloat, -2.5, []byte{0x00, 0x00, 0x20, 0xC0}},
		{KindChar, "A", []byte{0x41}},
		{KindString, "hi", []byte{'h', 'i', 0}},
		{KindString, "hi\x00", []byte{'h', 'i', 0}},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			got, err := EncodeValue(tt.kind, tt.v)
			if err != nil {
				t.Fatalf("EncodeValue: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeValue(%v) = % X, want % X", tt.v, got, tt.want)
			}
			if size := tt.kind.Size(); size != 0 && len(got) != size {
				t.Errorf("encoded %d bytes, Size() = %d", len(got), size)
			}
		})
	}
}

func TestEncodeValue_Errors(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		v    any
	}{
		{"uint8 overflow", KindUint8, 256},
		{"uint8 negative", KindUint8, -1},
		{"int16 overflow", KindInt16, 40000},
		{"float from string", KindFloat, "1.0"},
		{"string from int", KindString, 5},
		{"char too long", KindChar, "ab"},
		{"unknown kind", Kind(42), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EncodeValue(tt.kind, tt.v); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDecodeValue_RoundTrip(t *testing.T) {
	tests := []struct {
		kind Kind
		v    any
	}{
		{KindUint8, uint8(7)},
		{KindInt8, int8(-7)},
		{KindUint16, uint16(65535)},
		{KindInt16, int16(-32768)},
		{KindUint32, uint32(4000000000)},
		{KindInt32, int32(-2000000000)},
		{KindFloat, float32(3.25)},
		{KindChar, byte('z')},
		{KindString, "arducomm"},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			enc, err := EncodeValue(tt.kind, tt.v)
			if err != nil {
				t.Fatalf("EncodeValue: %v", err)
			}
			got, err := DecodeValue(tt.kind, enc)
			if err != nil {
				t.Fatalf("DecodeValue: %v", err)
			}
			if got != tt.v {
				t.Errorf("round trip = %#v, want %#v", got, tt.v)
			}
		})
	}
}

func TestDecodeValue_ShortBuffer(t *testing.T) {
	if _, err := DecodeValue(KindUint32, []byte{1, 2}); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("err = %v, want ErrShortBuffer", err)
	}
}

func TestDecodeString_OptionalTerminator(t *testing.T) {
	for _, in := range [][]byte{[]byte("led"), []byte("led\x00"), []byte("led\x00\x00")} {
		if got := DecodeString(in); got != "led" {
			t.Errorf("DecodeString(%q) = %q", in, got)
		}
	}
}

func TestParseKind(t *testing.T) {
	for k := KindUint8; k <= KindString; k++ {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseKind("double"); err == nil {
		t.Error("ParseKind accepted an unknown type")
	}
}

// ============================================================
// Composite Type Tests
// ============================================================

func TestComposite_Sizes(t *testing.T) {
	tests := []struct {
		name string
		v    Serializable
		size int
	}{
		{"Vector2", &Vector2{1, 2}, Vector2Size},
		{"Vector3", &Vector3{1, 2, 3}, Vector3Size},
		{"Quaternion", &Quaternion{0, 0, 0, 1}, QuaternionSize},
		{"Pose2D", &Pose2D{1, 2, 0.5}, Pose2DSize},
		{"Pose", &Pose{}, 28},
		{"Imu", &Imu{}, 40},
	}
	for _, tt := range tests {
		data, err := tt.v.MarshalBinary()
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if len(data) != tt.size {
			t.Errorf("%s encoded to %d bytes, want %d", tt.name, len(data), tt.size)
		}
	}
}

func TestQuaternion_IdentityLayout(t *testing.T) {
	data, _ := IdentityQuaternion().MarshalBinary()
	want := []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x00, 0x00, 0x80, 0x3F}
	if !bytes.Equal(data, want) {
		t.Errorf("identity = % X", data)
	}
}

func TestPose_RoundTrip(t *testing.T) {
	in := Pose{Position: Vector3{1.5, -2, 3}, Orientation: Quaternion{0.1, 0.2, 0.3, 0.9}}
	data, _ := in.MarshalBinary()

	var out Pose
	if err := out.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if out != in {
		t.Errorf("round trip = %v, want %v", out, in)
	}
	if NewPose().Orientation.W != 1 {
		t.Error("NewPose orientation is not identity")
	}
}

func TestImu_RoundTrip(t *testing.T) {
	in := Imu{
		Orientation:        IdentityQuaternion(),
		AngularVelocity:    Vector3{0.01, 0.02, 0.03},
		LinearAcceleration: Vector3{0, 0, 9.81},
	}
	data, _ := in.MarshalBinary()

	var out Imu
	if err := out.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if out != in {
		t.Errorf("round trip = %v, want %v", out, in)
	}
	if err := out.UnmarshalBinary(data[:39]); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("short Imu: err = %v", err)
	}
}

func TestFloatArray(t *testing.T) {
	in := FloatArray{1, 2.5, -3}
	data, _ := in.MarshalBinary()
	if len(data) != 12 {
		t.Fatalf("encoded %d bytes, want 12", len(data))
	}

	var out FloatArray
	if err := out.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if len(out) != 3 || out[0] != 1 || out[1] != 2.5 || out[2] != -3 {
		t.Errorf("round trip = %v", out)
	}
	if err := out.UnmarshalBinary(data[:5]); err == nil {
		t.Error("accepted a length that is not a multiple of 4")
	}

	var empty FloatArray
	if err := empty.UnmarshalBinary(nil); err != nil || len(empty) != 0 {
		t.Errorf("empty array: %v %v", empty, err)
	}
}

// ============================================================
// CBOR Tests
// ============================================================

func TestCBORMap_RoundTrip(t *testing.T) {
	in := map[int]interface{}{
		0: uint64(42),
		1: int64(-7),
		2: 1.5,
		3: true,
		4: []byte{0x7E, 0x7D},
		5: "name",
	}
	data, err := EncodeMap(in)
	if err != nil {
		t.Fatalf("EncodeMap: %v", err)
	}
	m, err := DecodeMap(data)
	if err != nil {
		t.Fatalf("DecodeMap: %v", err)
	}

	if v, ok := GetMapUint(m, 0); !ok || v != 42 {
		t.Errorf("uint = %v %v", v, ok)
	}
	if v, ok := GetMapInt(m, 1); !ok || v != -7 {
		t.Errorf("int = %v %v", v, ok)
	}
	if v, ok := GetMapFloat(m, 2); !ok || v != 1.5 {
		t.Errorf("float = %v %v", v, ok)
	}
	if v, ok := GetMapBool(m, 3); !ok || !v {
		t.Errorf("bool = %v %v", v, ok)
	}
	if v, ok := GetMapBytes(m, 4); !ok || !bytes.Equal(v, []byte{0x7E, 0x7D}) {
		t.Errorf("bytes = %v %v", v, ok)
	}
	if v, ok := GetMapString(m, 5); !ok || v != "name" {
		t.Errorf("string = %v %v", v, ok)
	}
	if _, ok := GetMapUint(m, 99); ok {
		t.Error("missing key reported present")
	}
	if _, ok := GetMapUint(nil, 0); ok {
		t.Error("nil map reported a value")
	}
}

func TestDecodeMap_Errors(t *testing.T) {
	if _, err := DecodeMap(nil); err == nil {
		t.Error("empty payload accepted")
	}
	if _, err := DecodeMap([]byte{0x01}); err == nil {
		t.Error("non-map payload accepted")
	}
}

// ============================================================
// Subscription Tests
// ============================================================

type fakeLink struct {
	handlers map[uint8]arducomm.Handler
	sent     [][]byte
}

func (f *fakeLink) Subscribe(command uint8, h arducomm.Handler) {
	if f.handlers == nil {
		f.handlers = map[uint8]arducomm.Handler{}
	}
	f.handlers[command] = h
}

func (f *fakeLink) Send(_ context.Context, command int, payload []byte) error {
	f.sent = append(f.sent, payload)
	return nil
}

func TestSubscribe_Decodes(t *testing.T) {
	l := &fakeLink{}
	var got []Vector3
	Subscribe(l, 0x20, func(v Vector3) { got = append(got, v) })

	data, _ := Vector3{1, 2, 3}.MarshalBinary()
	l.handlers[0x20].HandleMessage(arducomm.Message{Command: 0x20, Payload: data})
	l.handlers[0x20].HandleMessage(arducomm.Message{Command: 0x20, Payload: data[:4]})

	if len(got) != 1 || got[0] != (Vector3{1, 2, 3}) {
		t.Errorf("delivered %v, want one Vector3", got)
	}
}

func TestSubscribeValue(t *testing.T) {
	l := &fakeLink{}
	var got any
	SubscribeValue(l, 0x21, KindInt16, func(v any) { got = v })

	l.handlers[0x21].HandleMessage(arducomm.Message{Payload: []byte{0xFE, 0xFF}})
	if got != int16(-2) {
		t.Errorf("got %#v, want int16(-2)", got)
	}
}

func TestSendHelpers(t *testing.T) {
	l := &fakeLink{}
	if err := Send(context.Background(), l, 0x30, Pose2D{1, 2, 3}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := SendValue(context.Background(), l, 0x31, KindUint16, 513); err != nil {
		t.Fatalf("SendValue: %v", err)
	}
	if len(l.sent) != 2 || len(l.sent[0]) != Pose2DSize || !bytes.Equal(l.sent[1], []byte{0x01, 0x02}) {
		t.Errorf("sent %v", l.sent)
	}
	if err := SendValue(context.Background(), l, 0x31, KindUint8, 300); err == nil {
		t.Error("out of range value was sent")
	}
}
