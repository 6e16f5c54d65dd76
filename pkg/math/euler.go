package math

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"
)

// EulerToQuat builds the rotation X, then Y, then Z (R = Rz * Ry * Rx) from
// per-axis angles in radians.
func EulerToQuat(x, y, z float64) mgl64.Quat {
	qx := mgl64.QuatRotate(x, mgl64.Vec3{1, 0, 0})
	qy := mgl64.QuatRotate(y, mgl64.Vec3{0, 1, 0})
	qz := mgl64.QuatRotate(z, mgl64.Vec3{0, 0, 1})
	return qz.Mul(qy).Mul(qx)
}

// QuatToEuler is the inverse of EulerToQuat. At the gimbal pole the Z angle
// is folded into X.
func QuatToEuler(q mgl64.Quat) (x, y, z float64) {
	m := q.Normalize().Mat4().Mat3()
	// column-major: element (r, c) is m[c*3+r]
	r00, r10, r20 := m[0], m[1], m[2]
	r21, r22 := m[5], m[8]
	r01, r11 := m[3], m[4]

	sy := -r20
	if sy > 1 {
		sy = 1
	} else if sy < -1 {
		sy = -1
	}
	y = gomath.Asin(sy)
	if gomath.Abs(sy) > 0.999999 {
		x = gomath.Atan2(r01*sy, r11)
		return x, y, 0
	}
	x = gomath.Atan2(r21, r22)
	z = gomath.Atan2(r10, r00)
	return x, y, z
}
