package math

import "github.com/go-gl/mathgl/mgl64"

// Mat3 is a 3x3 rotation matrix as the document stores it: row-major, for
// row vectors (v' = v * M).
//
// Read column-major, the same nine floats are the transpose, which is the
// column-vector matrix mathgl expects. Mgl and Mat3From rely on that.
type Mat3 [9]float32

// Mat3Identity returns the identity rotation.
func Mat3Identity() Mat3 {
	return Mat3{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

// At returns the element in row r, column c of the stored matrix.
func (m Mat3) At(r, c int) float32 {
	return m[r*3+c]
}

// Mgl returns the column-vector equivalent as a mathgl matrix.
func (m Mat3) Mgl() mgl64.Mat3 {
	var out mgl64.Mat3
	for i, v := range m {
		out[i] = float64(v)
	}
	return out
}

// Mat3From narrows a column-vector mathgl matrix into document storage.
func Mat3From(m mgl64.Mat3) Mat3 {
	var out Mat3
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}
