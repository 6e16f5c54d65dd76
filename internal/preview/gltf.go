package preview

import "github.com/go-gl/mathgl/mgl64"

// Index and number fields of the glTF model are set through these helpers
// so the builder does not depend on the library's exact field types.

type index interface{ ~int | ~uint32 }

type number interface{ ~float32 | ~float64 }

func setIndex[T index](dst **T, i int) {
	v := T(i)
	*dst = &v
}

func appendIndex[T index](s []T, i int) []T {
	return append(s, T(i))
}

// setMatrix stores m column-major, the layout both sides use.
func setMatrix[T number](dst *[16]T, m mgl64.Mat4) {
	for i, v := range m {
		dst[i] = T(v)
	}
}

func setFactor[T number](dst **[4]T, c mgl64.Vec4) {
	var f [4]T
	for i, v := range c {
		f[i] = T(v)
	}
	*dst = &f
}

func setVec3[T number](dst *[3]T, v mgl64.Vec3) {
	for i, x := range v {
		dst[i] = T(x)
	}
}
