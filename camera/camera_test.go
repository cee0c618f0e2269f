// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package camera

import (
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
)

func TestOrbitPosition(t *testing.T) {
	oc := NewOrbitCamera()
	pos := oc.Position()
	assert.InDelta(t, 0, pos.X, 1e-5)
	assert.InDelta(t, 0, pos.Y, 1e-5)
	assert.InDelta(t, -4, pos.Z, 1e-5)

	// the position stays on the orbit sphere under any mouse motion
	oc.HandleMouse(300, -150)
	assert.InDelta(t, 4, oc.Position().Sub(oc.Center).Length(), 1e-4)
}

func TestPitchClamp(t *testing.T) {
	oc := NewOrbitCamera()
	oc.HandleMouse(0, 1e9)
	assert.InDelta(t, math32.Pi/2-0.01, oc.pitch, 1e-5)
	oc.HandleMouse(0, -1e9)
	assert.InDelta(t, -(math32.Pi/2 - 0.01), oc.pitch, 1e-5)

	fc := NewFlyCamera()
	fc.HandleMouse(0, 1e9)
	assert.InDelta(t, math32.Pi/2-0.01, fc.pitch, 1e-5)
}

func TestFlyMove(t *testing.T) {
	fc := NewFlyCamera()
	fc.Move(1, 0, 0, 0.5)
	assert.InDelta(t, 0, fc.Position.X, 1e-4)
	assert.InDelta(t, 0, fc.Position.Y, 1e-4)
	assert.InDelta(t, 10, fc.Position.Z, 1e-4)

	// strafing is orthogonal to the view direction
	fc = NewFlyCamera()
	fc.Move(0, 1, 0, 0.1)
	assert.InDelta(t, -2, fc.Position.X, 1e-4)
	assert.InDelta(t, 0, fc.Position.Z, 1e-4)
}

func TestViewLooksAtCenter(t *testing.T) {
	oc := NewOrbitCamera()
	oc.HandleMouse(512, 256)
	ms := oc.Matrices(16.0 / 9)

	// the orbit center lands on the view axis, Distance in front of
	// the camera
	ctr := oc.Center.MulMatrix4(&ms.View)
	assert.InDelta(t, 0, ctr.X, 1e-3)
	assert.InDelta(t, 0, ctr.Y, 1e-3)
	assert.InDelta(t, -4, ctr.Z, 1e-3)
}
