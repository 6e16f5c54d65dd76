package math

import (
	gomath "math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3Normalize(t *testing.T) {
	v := Vec3{3, 4, 0}
	l := v.Normalize().Length()
	if l < 0.999 || l > 1.001 {
		t.Errorf("Vec3.Normalize().Length() = %v, want ~1", l)
	}
	if (Vec3{}).Normalize() != (Vec3{}) {
		t.Errorf("zero vector should normalize to zero")
	}
}

func TestQuatNormalize(t *testing.T) {
	q := Quat{X: 1, Y: 2, Z: 3, W: 4}
	n := q.Normalize()

	length := gomath.Sqrt(float64(n.Dot(n)))
	if gomath.Abs(length-1.0) > 0.0001 {
		t.Errorf("Normalized quaternion length should be 1, got %v", length)
	}
	if (Quat{}).Normalize() != QuatIdentity() {
		t.Errorf("degenerate quaternion should normalize to identity")
	}
}

func TestMat3RowStorage(t *testing.T) {
	// rotation of +90 degrees about Z for row vectors: x axis maps to y
	m := Mat3{
		0, 1, 0,
		-1, 0, 0,
		0, 0, 1,
	}
	got := m.Mgl().Mul3x1(mgl64.Vec3{1, 0, 0})
	want := mgl64.Vec3{0, 1, 0}
	if !got.ApproxEqual(want) {
		t.Errorf("Mgl().Mul3x1(x) = %v, want %v", got, want)
	}
	if Mat3From(m.Mgl()) != m {
		t.Errorf("Mat3From(Mgl()) changed the matrix")
	}
}

func TestMat4Translation(t *testing.T) {
	m := Identity()
	m[12], m[13], m[14] = 1, 2, 3
	if got := m.Translation(); got != (Vec3{1, 2, 3}) {
		t.Errorf("Translation() = %v", got)
	}
	p := m.Mgl().Mul4x1(mgl64.Vec4{0, 0, 0, 1})
	if !p.Vec3().ApproxEqual(mgl64.Vec3{1, 2, 3}) {
		t.Errorf("column-vector translation = %v", p)
	}
}

func TestEulerRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		x, y, z float64
	}{
		{"zero", 0, 0, 0},
		{"x only", 0.5, 0, 0},
		{"mixed", 0.3, -0.7, 1.2},
		{"negative", -2.0, 0.4, -0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := EulerToQuat(tt.x, tt.y, tt.z)
			x, y, z := QuatToEuler(q)
			back := EulerToQuat(x, y, z)
			if gomath.Abs(gomath.Abs(q.Dot(back))-1) > 1e-9 {
				t.Errorf("round trip (%v,%v,%v) -> (%v,%v,%v)", tt.x, tt.y, tt.z, x, y, z)
			}
		})
	}
}

func TestEulerGimbal(t *testing.T) {
	q := EulerToQuat(0.4, gomath.Pi/2, 0)
	x, y, z := QuatToEuler(q)
	back := EulerToQuat(x, y, z)
	if gomath.Abs(gomath.Abs(q.Dot(back))-1) > 1e-6 {
		t.Errorf("gimbal round trip gave (%v,%v,%v)", x, y, z)
	}
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		v    float32
		want int32
	}{
		{0, 0},
		{0.0049, 1},
		{0.0026, 1},
		{0.0024, 0},
		{-0.0026, -1},
		{1, 200},
	}
	for _, tt := range tests {
		if got := Quantize(tt.v, 200); got != tt.want {
			t.Errorf("Quantize(%v) = %d, want %d", tt.v, got, tt.want)
		}
	}
}
