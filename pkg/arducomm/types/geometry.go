// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package types

import (
	"encoding"
	"fmt"
)

// Serializable is implemented by every composite payload type
type Serializable interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// Encoded sizes of the composite types
const (
	Vector2Size    = 8
	Vector3Size    = 12
	QuaternionSize = 16
	Pose2DSize     = 12
	PoseSize       = Vector3Size + QuaternionSize
	ImuSize        = QuaternionSize + 2*Vector3Size
)

// Vector2 is a planar vector
type Vector2 struct {
	X, Y float32
}

func (v Vector2) MarshalBinary() ([]byte, error) {
	return putFloats(make([]byte, 0, Vector2Size), v.X, v.Y), nil
}

func (v *Vector2) UnmarshalBinary(data []byte) error {
	return readFloats(data, "Vector2", &v.X, &v.Y)
}

func (v Vector2) String() string {
	return fmt.Sprintf("[%g, %g]", v.X, v.Y)
}

// Vector3 is a spatial vector
type Vector3 struct {
	X, Y, Z float32
}

func (v Vector3) MarshalBinary() ([]byte, error) {
	return putFloats(make([]byte, 0, Vector3Size), v.X, v.Y, v.Z), nil
}

func (v *Vector3) UnmarshalBinary(data []byte) error {
	return readFloats(data, "Vector3", &v.X, &v.Y, &v.Z)
}

func (v Vector3) String() string {
	return fmt.Sprintf("[%g, %g, %g]", v.X, v.Y, v.Z)
}

// Quaternion is an orientation, encoded x, y, z, w
type Quaternion struct {
	X, Y, Z, W float32
}

// IdentityQuaternion returns the zero rotation
func IdentityQuaternion() Quaternion {
	return Quaternion{W: 1}
}

func (q Quaternion) MarshalBinary() ([]byte, error) {
	return putFloats(make([]byte, 0, QuaternionSize), q.X, q.Y, q.Z, q.W), nil
}

func (q *Quaternion) UnmarshalBinary(data []byte) error {
	return readFloats(data, "Quaternion", &q.X, &q.Y, &q.Z, &q.W)
}

func (q Quaternion) String() string {
	return fmt.Sprintf("[%g, %g, %g, %g]", q.X, q.Y, q.Z, q.W)
}

// Pose2D is a planar position and heading
type Pose2D struct {
	X, Y, Theta float32
}

func (p Pose2D) MarshalBinary() ([]byte, error) {
	return putFloats(make([]byte, 0, Pose2DSize), p.X, p.Y, p.Theta), nil
}

func (p *Pose2D) UnmarshalBinary(data []byte) error {
	return readFloats(data, "Pose2D", &p.X, &p.Y, &p.Theta)
}

// Pose is a position followed by an orientation
type Pose struct {
	Position    Vector3
	Orientation Quaternion
}

// NewPose returns a pose at the origin with identity orientation
func NewPose() Pose {
	return Pose{Orientation: IdentityQuaternion()}
}

func (p Pose) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, PoseSize)
	out = putFloats(out, p.Position.X, p.Position.Y, p.Position.Z)
	return putFloats(out, p.Orientation.X, p.Orientation.Y, p.Orientation.Z, p.Orientation.W), nil
}

func (p *Pose) UnmarshalBinary(data []byte) error {
	if len(data) < PoseSize {
		return fmt.Errorf("Pose: %w (%d < %d)", ErrShortBuffer, len(data), PoseSize)
	}
	if err := p.Position.UnmarshalBinary(data[:Vector3Size]); err != nil {
		return err
	}
	return p.Orientation.UnmarshalBinary(data[Vector3Size:])
}

func (p Pose) String() string {
	return fmt.Sprintf("%s | %s", p.Position, p.Orientation)
}

// Imu is an inertial measurement: orientation, angular velocity and
// linear acceleration.
type Imu struct {
	Orientation        Quaternion
	AngularVelocity    Vector3
	LinearAcceleration Vector3
}

// NewImu returns a zero reading with identity orientation
func NewImu() Imu {
	return Imu{Orientation: IdentityQuaternion()}
}

func (m Imu) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, ImuSize)
	out = putFloats(out, m.Orientation.X, m.Orientation.Y, m.Orientation.Z, m.Orientation.W)
	out = putFloats(out, m.AngularVelocity.X, m.AngularVelocity.Y, m.AngularVelocity.Z)
	return putFloats(out, m.LinearAcceleration.X, m.LinearAcceleration.Y, m.LinearAcceleration.Z), nil
}

func (m *Imu) UnmarshalBinary(data []byte) error {
	if len(data) < ImuSize {
		return fmt.Errorf("Imu: %w (%d < %d)", ErrShortBuffer, len(data), ImuSize)
	}
	if err := m.Orientation.UnmarshalBinary(data[:QuaternionSize]); err != nil {
		return err
	}
	if err := m.AngularVelocity.UnmarshalBinary(data[QuaternionSize : QuaternionSize+Vector3Size]); err != nil {
		return err
	}
	return m.LinearAcceleration.UnmarshalBinary(data[QuaternionSize+Vector3Size:])
}

func (m Imu) String() string {
	return fmt.Sprintf("%s | %s | %s", m.Orientation, m.AngularVelocity, m.LinearAcceleration)
}

// FloatArray is a variable-length list of float32 values. It has no count
// prefix; the payload length determines the number of elements.
type FloatArray []float32

func (a FloatArray) MarshalBinary() ([]byte, error) {
	return putFloats(make([]byte, 0, 4*len(a)), a...), nil
}

func (a *FloatArray) UnmarshalBinary(data []byte) error {
	if len(data)%4 != 0 {
		return fmt.Errorf("FloatArray: length %d is not a multiple of 4", len(data))
	}
	out := make(FloatArray, len(data)/4)
	ptrs := make([]*float32, len(out))
	for i := range out {
		ptrs[i] = &out[i]
	}
	if err := readFloats(data, "FloatArray", ptrs...); err != nil {
		return err
	}
	*a = out
	return nil
}
