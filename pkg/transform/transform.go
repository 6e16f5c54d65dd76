// Package transform splits affine matrices into the uniform scale, rotation and
// translation channels the block graph stores, and composes them back.
//
// All arithmetic uses column vectors (p' = M * p). Block storage is converted
// at the boundary by FromNode and ToNode.
package transform

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/nifkit/pkg/fault"
	"github.com/Faultbox/nifkit/pkg/math"
	"github.com/Faultbox/nifkit/pkg/nif"
)

// ScaleEpsilon is the largest tolerated difference between axis scales.
const ScaleEpsilon = 0.005

// Transform is a similarity transform: p' = Translation + Scale * Rotation * p.
type Transform struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Mat3
	Scale       float64
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Rotation: mgl64.Ident3(), Scale: 1}
}

// Compose returns the 4x4 matrix of t.
func Compose(t Transform) mgl64.Mat4 {
	var m mgl64.Mat4
	for c := 0; c < 3; c++ {
		for r := 0; r < 3; r++ {
			m.Set(r, c, t.Rotation.At(r, c)*t.Scale)
		}
	}
	m.SetCol(3, mgl64.Vec4{t.Translation[0], t.Translation[1], t.Translation[2], 1})
	return m
}

// Decompose splits m into translation, rotation and uniform scale.
//
// The linear part M satisfies Mᵗ·M = S² for a similarity transform, so the
// axis scales are the column norms of M, negated together when det(M) < 0 so
// the rotation stays proper. Axis scales that differ by more than
// ScaleEpsilon fail with *fault.NonUniformScaleError.
func Decompose(m mgl64.Mat4) (Transform, error) {
	lin := m.Mat3()
	var scale [3]float64
	for c := 0; c < 3; c++ {
		scale[c] = lin.Col(c).Len()
	}
	if lin.Det() < 0 {
		for c := range scale {
			scale[c] = -scale[c]
		}
	}
	if gomath.Abs(scale[0]-scale[1]) > ScaleEpsilon ||
		gomath.Abs(scale[1]-scale[2]) > ScaleEpsilon ||
		gomath.Abs(scale[0]-scale[2]) > ScaleEpsilon {
		return Transform{}, &fault.NonUniformScaleError{Scale: scale}
	}

	t := Transform{
		Translation: m.Col(3).Vec3(),
		Scale:       scale[0],
	}
	if scale[0] == 0 {
		t.Rotation = mgl64.Ident3()
		return t, nil
	}
	for c := 0; c < 3; c++ {
		t.Rotation.SetCol(c, lin.Col(c).Mul(1/scale[c]))
	}
	return t, nil
}

// Mul returns a ∘ b: the transform applying b first, then a.
func (a Transform) Mul(b Transform) Transform {
	return Transform{
		Translation: a.Translation.Add(a.Rotation.Mul3x1(b.Translation).Mul(a.Scale)),
		Rotation:    a.Rotation.Mul3(b.Rotation),
		Scale:       a.Scale * b.Scale,
	}
}

// Inverse returns the inverse transform. A zero scale inverts to zero.
func (a Transform) Inverse() Transform {
	rt := a.Rotation.Transpose()
	inv := 0.0
	if a.Scale != 0 {
		inv = 1 / a.Scale
	}
	return Transform{
		Translation: rt.Mul3x1(a.Translation).Mul(-inv),
		Rotation:    rt,
		Scale:       inv,
	}
}

// Apply transforms a point.
func (a Transform) Apply(p mgl64.Vec3) mgl64.Vec3 {
	return a.Translation.Add(a.Rotation.Mul3x1(p).Mul(a.Scale))
}

// ApplyDir transforms a direction, ignoring translation and scale.
func (a Transform) ApplyDir(d mgl64.Vec3) mgl64.Vec3 {
	return a.Rotation.Mul3x1(d)
}

// ApproxEqual compares two transforms component-wise within eps.
func (a Transform) ApproxEqual(b Transform, eps float64) bool {
	return a.Translation.ApproxEqualThreshold(b.Translation, eps) &&
		a.Rotation.ApproxEqualThreshold(b.Rotation, eps) &&
		gomath.Abs(a.Scale-b.Scale) <= eps
}

// IsIdentity reports whether a is the identity within eps.
func (a Transform) IsIdentity(eps float64) bool {
	return a.ApproxEqual(Identity(), eps)
}

// Quat returns the rotation as a quaternion.
func (a Transform) Quat() mgl64.Quat {
	return mgl64.Mat4ToQuat(a.Rotation.Mat4())
}

// FromNode reads the local transform stored on a tree block.
func FromNode(av *nif.AVObject) Transform {
	return Transform{
		Translation: av.Translation.Mgl(),
		Rotation:    av.Rotation.Mgl(),
		Scale:       float64(av.Scale),
	}
}

// ToNode stores t on a tree block.
func ToNode(t Transform, av *nif.AVObject) {
	av.Translation = math.Vec3From(t.Translation)
	av.Rotation = math.Mat3From(t.Rotation)
	av.Scale = float32(t.Scale)
}

// FromSkin converts a skin bind offset.
func FromSkin(s nif.SkinTransform) Transform {
	return Transform{Translation: s.Translation.Mgl(), Rotation: s.Rotation.Mgl(), Scale: float64(s.Scale)}
}

// ToSkin converts t into a skin bind offset.
func ToSkin(t Transform) nif.SkinTransform {
	return nif.SkinTransform{
		Rotation:    math.Mat3From(t.Rotation),
		Translation: math.Vec3From(t.Translation),
		Scale:       float32(t.Scale),
	}
}

// Local returns the local transform of ref, or identity for blocks that
// are not placed in the tree.
func Local(doc *nif.Document, ref nif.Ref) Transform {
	av, ok := nif.Lookup[nif.AVBlock](doc, ref)
	if !ok {
		return Identity()
	}
	return FromNode(av.AV())
}

// LocalFunc supplies the local transform of a block. Importers use it to
// substitute overridden poses.
type LocalFunc func(nif.Ref) Transform

// Relative returns the transform of ref relative to ancestor, composing local
// transforms up the parent table. With ancestor None (or not an ancestor) the
// result is relative to the tree root.
func Relative(local LocalFunc, parents nif.ParentTable, ref, ancestor nif.Ref) Transform {
	t := Identity()
	for cur := ref; cur != nif.None && cur != ancestor; cur = parents.Parent(cur) {
		t = local(cur).Mul(t)
	}
	return t
}

// DocLocal adapts Local to a LocalFunc over doc.
func DocLocal(doc *nif.Document) LocalFunc {
	return func(ref nif.Ref) Transform { return Local(doc, ref) }
}
