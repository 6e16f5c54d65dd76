package math

import "github.com/go-gl/mathgl/mgl64"

// Mat4 is a 4x4 affine matrix as the document stores it: row-major for row
// vectors, translation in the last row.
// Layout: [m0  m1  m2  m3 ]
//
//	[m4  m5  m6  m7 ]
//	[m8  m9  m10 m11]
//	[m12 m13 m14 m15]
//
// Like Mat3, the storage doubles as a column-major column-vector matrix.
type Mat4 [16]float32

// Identity returns an identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translation returns the translation part.
func (m Mat4) Translation() Vec3 {
	return Vec3{m[12], m[13], m[14]}
}

// Mgl returns the column-vector equivalent as a mathgl matrix.
func (m Mat4) Mgl() mgl64.Mat4 {
	var out mgl64.Mat4
	for i, v := range m {
		out[i] = float64(v)
	}
	return out
}

// Mat4From narrows a column-vector mathgl matrix into document storage.
func Mat4From(m mgl64.Mat4) Mat4 {
	var out Mat4
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}
