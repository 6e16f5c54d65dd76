package skeleton

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/nifkit/pkg/math"
)

// Axis is the dominant direction a bone points along in its own space.
type Axis int

const (
	PosX Axis = iota
	PosY
	PosZ
	NegX
	NegY
	NegZ
)

var axisNames = [...]string{"+X", "+Y", "+Z", "-X", "-Y", "-Z"}

func (a Axis) String() string {
	if a < PosX || a > NegZ {
		return "?"
	}
	return axisNames[a]
}

// corrections rotate each dominant axis onto the editor's bone axis (+Y).
// Stored the way the document stores rotations, so Mgl yields column form.
var corrections = [...]math.Mat3{
	PosX: {0, -1, 0, 1, 0, 0, 0, 0, 1},
	PosY: {1, 0, 0, 0, 1, 0, 0, 0, 1},
	PosZ: {1, 0, 0, 0, 0, 1, 0, -1, 0},
	NegX: {0, 1, 0, -1, 0, 0, 0, 0, 1},
	NegY: {-1, 0, 0, 0, -1, 0, 0, 0, 1},
	NegZ: {1, 0, 0, 0, 0, -1, 0, 1, 0},
}

// Matrix returns the correction rotation for a, in column form.
func (a Axis) Matrix() mgl64.Mat3 {
	return corrections[a].Mgl()
}

const (
	// axisResolution quantizes direction components before comparison.
	axisResolution = 200
	// maxAxisOffset is the largest off-axis share still classified as aligned.
	maxAxisOffset = 0.25
)

// ClassifyAxis returns the axis v is aligned with. Ties go to the first axis
// in PosX..NegZ order. ok is false when v is too far off every axis.
func ClassifyAxis(v mgl64.Vec3) (axis Axis, ok bool) {
	q := [6]int{
		int(v[0] * axisResolution), int(v[1] * axisResolution), int(v[2] * axisResolution),
		int(-v[0] * axisResolution), int(-v[1] * axisResolution), int(-v[2] * axisResolution),
	}
	for i, c := range q {
		if c > q[axis] {
			axis = Axis(i)
		}
	}
	main := gomath.Abs(float64(q[axis]))
	var rest float64
	for i := 0; i < 3; i++ {
		if i != int(axis)%3 {
			rest += gomath.Abs(float64(q[i]))
		}
	}
	offset := 0.0
	if main > 0 {
		offset = rest / main
	}
	return axis, offset < maxAxisOffset
}

// Correction returns the rotation aligning a bone whose children sit at sum
// (relative to the bone) with the editor bone axis, or identity when the
// direction is not clearly along one axis.
func Correction(sum mgl64.Vec3) mgl64.Mat3 {
	axis, ok := ClassifyAxis(sum)
	if !ok {
		return mgl64.Ident3()
	}
	return axis.Matrix()
}
