package anim

import (
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/nifkit/pkg/math"
	"github.com/Faultbox/nifkit/pkg/nif"
	"github.com/Faultbox/nifkit/pkg/transform"
)

// ScalarFrame is a keyed scalar at a frame.
type ScalarFrame struct {
	Frame int
	Value float64
}

// VecFrame is a keyed vector at a frame.
type VecFrame struct {
	Frame int
	Value mgl64.Vec3
}

// QuatFrame is a keyed rotation at a frame.
type QuatFrame struct {
	Frame int
	Value mgl64.Quat
}

// Channel is the frame-keyed animation of one object relative to its rest
// pose. RotationType is KeyXYZ when Euler holds the rotation.
type Channel struct {
	Name         string
	RotationType nif.KeyType
	Rotations    []QuatFrame
	Euler        [3][]ScalarFrame
	Translations []VecFrame
	Scales       []ScalarFrame
}

// IsEuler reports whether rotation is keyed per axis.
func (c *Channel) IsEuler() bool {
	return c.RotationType == nif.KeyXYZ
}

// Frames returns every keyed frame, sorted and deduplicated.
func (c *Channel) Frames() []int {
	var out []int
	for _, k := range c.Rotations {
		out = append(out, k.Frame)
	}
	for _, axis := range c.Euler {
		for _, k := range axis {
			out = append(out, k.Frame)
		}
	}
	for _, k := range c.Translations {
		out = append(out, k.Frame)
	}
	for _, k := range c.Scales {
		out = append(out, k.Frame)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// rotationEpsilon decides when bind rotation and correction count as identity.
const rotationEpsilon = 1e-6

// Retargeter converts the track of one node to and from a channel relative to
// the node's bind transform, conjugated by the bone axis correction.
//
// With bind B and correction X the channel is X⁻¹ ∘ B⁻¹ ∘ K ∘ X for an
// absolute key K, all in column form.
type Retargeter struct {
	FPS        int
	Bind       transform.Transform
	Correction mgl64.Mat3
}

// NewRetargeter returns a retargeter without axis correction.
func NewRetargeter(fps int, bind transform.Transform) Retargeter {
	return Retargeter{FPS: fps, Bind: bind, Correction: mgl64.Ident3()}
}

// direct reports whether channel rotations equal document rotations.
func (r Retargeter) direct() bool {
	id := mgl64.Ident3()
	return r.Bind.Rotation.ApproxEqualThreshold(id, rotationEpsilon) &&
		r.Correction.ApproxEqualThreshold(id, rotationEpsilon)
}

// Rotation maps an absolute rotation to a channel rotation.
func (r Retargeter) Rotation(q mgl64.Quat) mgl64.Quat {
	m := r.Correction.Transpose().Mul3(r.Bind.Rotation.Transpose()).Mul3(q.Mat4().Mat3()).Mul3(r.Correction)
	return mgl64.Mat4ToQuat(m.Mat4()).Normalize()
}

// Translation maps an absolute translation to a channel translation.
func (r Retargeter) Translation(v mgl64.Vec3) mgl64.Vec3 {
	d := r.Bind.Rotation.Transpose().Mul3x1(v.Sub(r.Bind.Translation)).Mul(1 / r.Bind.Scale)
	return r.Correction.Transpose().Mul3x1(d)
}

// Scale maps an absolute scale to a channel scale.
func (r Retargeter) Scale(s float64) float64 {
	return s / r.Bind.Scale
}

// AbsRotation is the inverse of Rotation.
func (r Retargeter) AbsRotation(q mgl64.Quat) mgl64.Quat {
	m := r.Bind.Rotation.Mul3(r.Correction).Mul3(q.Mat4().Mat3()).Mul3(r.Correction.Transpose())
	return mgl64.Mat4ToQuat(m.Mat4()).Normalize()
}

// AbsTranslation is the inverse of Translation.
func (r Retargeter) AbsTranslation(v mgl64.Vec3) mgl64.Vec3 {
	d := r.Correction.Mul3x1(v).Mul(r.Bind.Scale)
	return r.Bind.Translation.Add(r.Bind.Rotation.Mul3x1(d))
}

// AbsScale is the inverse of Scale.
func (r Retargeter) AbsScale(s float64) float64 {
	return s * r.Bind.Scale
}

// ToChannel converts an absolute track. Euler keys stay per axis when the
// rotation maps directly, and are resampled into quaternions otherwise.
func (r Retargeter) ToChannel(name string, t Track) Channel {
	ch := Channel{Name: name, RotationType: t.RotationType}
	switch {
	case t.IsEuler() && r.direct():
		for axis, keys := range t.Euler {
			for _, k := range keys {
				ch.Euler[axis] = append(ch.Euler[axis], ScalarFrame{Frame: Frame(k.Time, r.FPS), Value: k.Value})
			}
		}
	case t.IsEuler():
		ch.RotationType = nif.KeyLinear
		for _, k := range resampleEuler(t.Euler, r.FPS) {
			ch.Rotations = append(ch.Rotations, QuatFrame{Frame: k.Frame, Value: r.Rotation(k.Value)})
		}
	default:
		for _, k := range t.Rotations {
			ch.Rotations = append(ch.Rotations, QuatFrame{Frame: Frame(k.Time, r.FPS), Value: r.Rotation(k.Value)})
		}
	}
	for _, k := range t.Translations {
		ch.Translations = append(ch.Translations, VecFrame{Frame: Frame(k.Time, r.FPS), Value: r.Translation(k.Value)})
	}
	for _, k := range t.Scales {
		ch.Scales = append(ch.Scales, ScalarFrame{Frame: Frame(k.Time, r.FPS), Value: r.Scale(k.Value)})
	}
	return ch
}

// ToTrack is the inverse of ToChannel.
func (r Retargeter) ToTrack(ch Channel) Track {
	t := Track{RotationType: ch.RotationType, TranslationType: nif.KeyLinear, ScaleType: nif.KeyLinear}
	if t.RotationType == 0 {
		t.RotationType = nif.KeyLinear
	}
	switch {
	case ch.IsEuler() && r.direct():
		for axis, keys := range ch.Euler {
			for _, k := range keys {
				t.Euler[axis] = append(t.Euler[axis], ScalarKey{Time: Time(k.Frame, r.FPS), Value: k.Value})
			}
		}
	case ch.IsEuler():
		t.RotationType = nif.KeyLinear
		for _, k := range resampleEulerFrames(ch.Euler) {
			t.Rotations = append(t.Rotations, QuatKey{Time: Time(k.Frame, r.FPS), Value: r.AbsRotation(k.Value)})
		}
	default:
		for _, k := range ch.Rotations {
			t.Rotations = append(t.Rotations, QuatKey{Time: Time(k.Frame, r.FPS), Value: r.AbsRotation(k.Value)})
		}
	}
	for _, k := range ch.Translations {
		t.Translations = append(t.Translations, VecKey{Time: Time(k.Frame, r.FPS), Value: r.AbsTranslation(k.Value)})
	}
	for _, k := range ch.Scales {
		t.Scales = append(t.Scales, ScalarKey{Time: Time(k.Frame, r.FPS), Value: r.AbsScale(k.Value)})
	}
	return t
}

// resampleEuler converts per-axis time keys to quaternion frame keys.
func resampleEuler(euler [3][]ScalarKey, fps int) []QuatFrame {
	var frames [3][]ScalarFrame
	for axis, keys := range euler {
		for _, k := range keys {
			frames[axis] = append(frames[axis], ScalarFrame{Frame: Frame(k.Time, fps), Value: k.Value})
		}
	}
	return resampleEulerFrames(frames)
}

// resampleEulerFrames samples all three axes at every frame any of them is
// keyed on. An axis without a key at that frame holds its previous value.
func resampleEulerFrames(euler [3][]ScalarFrame) []QuatFrame {
	var caches [3]*frameCache[float64]
	var all []int
	for axis, keys := range euler {
		caches[axis] = newFrameCache(keys, func(k ScalarFrame) (int, float64) { return k.Frame, k.Value }, 0)
		all = append(all, caches[axis].frames...)
	}
	slices.Sort(all)
	all = slices.Compact(all)
	out := make([]QuatFrame, 0, len(all))
	for _, f := range all {
		q := math.EulerToQuat(caches[0].at(f), caches[1].at(f), caches[2].at(f))
		out = append(out, QuatFrame{Frame: f, Value: q})
	}
	return out
}
