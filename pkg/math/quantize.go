package math

import "github.com/chewxy/math32"

// Quantize snaps v onto an integer grid of the given resolution
// (cells per unit). Values that differ by float noise share a cell.
func Quantize(v float32, resolution float32) int32 {
	return int32(math32.Round(v * resolution))
}

// QuantizeVec3 quantizes all three components.
func QuantizeVec3(v Vec3, resolution float32) [3]int32 {
	return [3]int32{
		Quantize(v.X, resolution),
		Quantize(v.Y, resolution),
		Quantize(v.Z, resolution),
	}
}

