// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package camera provides the two standard interactive cameras, orbit
// and fly, producing view / projection matrices ready for uniform
// upload.
package camera

import (
	"cogentcore.org/core/math32"
)

// Matrices is the view and projection pair a camera produces each
// frame, laid out for direct uniform upload.
type Matrices struct {
	View       math32.Matrix4
	Projection math32.Matrix4
}

const (
	// mouseSensitivity converts pixels of mouse motion to radians.
	mouseSensitivity = 0.0007

	// pitchLimit keeps the pitch just short of straight up / down,
	// where the view basis degenerates.
	pitchLimit = math32.Pi/2 - 0.01
)

// viewMat is the camera view matrix for a camera at pos looking at
// target: the inverse of the camera's world transform.
func viewMat(pos, target, up math32.Vector3) math32.Matrix4 {
	var lookq math32.Quat
	lookq.SetFromRotationMatrix(math32.NewLookAt(pos, target, up))
	var world math32.Matrix4
	world.SetTransform(pos, lookq, math32.Vec3(1, 1, 1))
	view, _ := world.Inverse()
	return *view
}

func projectionMat(aspect float32) math32.Matrix4 {
	var proj math32.Matrix4
	proj.SetPerspective(45, aspect, 0.1, 100)
	return proj
}

// front is the unit view direction for given yaw and pitch.
func front(yaw, pitch float32) math32.Vector3 {
	return math32.Vec3(
		math32.Cos(pitch)*math32.Cos(yaw),
		math32.Sin(pitch),
		math32.Cos(pitch)*math32.Sin(yaw),
	)
}

// OrbitCamera circles a center point at fixed distance, driven by
// mouse motion.
type OrbitCamera struct {
	// Center is the point orbited and looked at.
	Center math32.Vector3

	// Distance is the orbit radius.
	Distance float32

	yaw   float32
	pitch float32
}

// NewOrbitCamera returns an orbit camera around the origin at the
// default distance, looking along +Z.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance: 4,
		yaw:      math32.Pi / 2,
	}
}

// HandleMouse applies a relative mouse motion in pixels.
func (oc *OrbitCamera) HandleMouse(dx, dy float32) {
	oc.yaw += dx * mouseSensitivity
	oc.pitch = math32.Clamp(oc.pitch+dy*mouseSensitivity, -pitchLimit, pitchLimit)
}

// Position returns the camera's world position on the orbit sphere.
func (oc *OrbitCamera) Position() math32.Vector3 {
	return oc.Center.Sub(front(oc.yaw, oc.pitch).MulScalar(oc.Distance))
}

// Matrices returns the frame's view and projection for given aspect
// ratio.
func (oc *OrbitCamera) Matrices(aspect float32) Matrices {
	return Matrices{
		View:       viewMat(oc.Position(), oc.Center, math32.Vec3(0, 1, 0)),
		Projection: projectionMat(aspect),
	}
}

// FlyCamera is a free camera: mouse motion turns it, Move translates
// it along its own axes.
type FlyCamera struct {
	// Position is the camera's world position.
	Position math32.Vector3

	// Speed is the movement speed in world units per second.
	Speed float32

	yaw   float32
	pitch float32
}

// NewFlyCamera returns a fly camera at the origin looking along +Z at
// the default speed.
func NewFlyCamera() *FlyCamera {
	return &FlyCamera{
		Speed: 20,
		yaw:   math32.Pi / 2,
	}
}

// HandleMouse applies a relative mouse motion in pixels.
func (fc *FlyCamera) HandleMouse(dx, dy float32) {
	fc.yaw += dx * mouseSensitivity
	fc.pitch = math32.Clamp(fc.pitch+dy*mouseSensitivity, -pitchLimit, pitchLimit)
}

// Move translates the camera by forward / right / up amounts in the
// range -1..1 (typically WASD key state) over dt seconds.
func (fc *FlyCamera) Move(forward, right, up, dt float32) {
	fw := front(fc.yaw, fc.pitch)
	rt := fw.Cross(math32.Vec3(0, 1, 0)).Normal()
	step := fc.Speed * dt
	fc.Position = fc.Position.
		Add(fw.MulScalar(forward * step)).
		Add(rt.MulScalar(right * step)).
		Add(math32.Vec3(0, up*step, 0))
}

// Matrices returns the frame's view and projection for given aspect
// ratio.
func (fc *FlyCamera) Matrices(aspect float32) Matrices {
	target := fc.Position.Add(front(fc.yaw, fc.pitch))
	return Matrices{
		View:       viewMat(fc.Position, target, math32.Vec3(0, 1, 0)),
		Projection: projectionMat(aspect),
	}
}
