package anim

import (
	gomath "math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/nifkit/pkg/math"
	"github.com/Faultbox/nifkit/pkg/nif"
	"github.com/Faultbox/nifkit/pkg/skeleton"
	"github.com/Faultbox/nifkit/pkg/transform"
)

func TestEstimateFPS(t *testing.T) {
	tests := []struct {
		name  string
		times []float64
		want  int
	}{
		{"25 fps spacing", []float64{0, 0.04, 0.08, 0.12}, 25},
		{"30 fps spacing", []float64{0, 1.0 / 30, 2.0 / 30}, 30},
		{"20 fps spacing", []float64{0, 0.05, 0.1}, 20},
		{"whole seconds tie keeps default", []float64{0, 1, 2}, 30},
		{"no keys", nil, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateFPS(tt.times))
		})
	}
}

func TestFrameTime(t *testing.T) {
	assert.Equal(t, 1, Frame(0, 25))
	assert.Equal(t, 2, Frame(0.04, 25))
	assert.Equal(t, 26, Frame(0.999, 25))
	assert.InDelta(t, 0.04, Time(2, 25), 1e-12)
	assert.InDelta(t, 0, Time(1, 30), 1e-12)
}

func sameRotation(t *testing.T, want, got mgl64.Quat) {
	t.Helper()
	assert.InDelta(t, 1, gomath.Abs(want.Normalize().Dot(got.Normalize())), 1e-9, "want %v got %v", want, got)
}

func TestRetargeterBindRelative(t *testing.T) {
	r := NewRetargeter(25, transform.Transform{
		Translation: mgl64.Vec3{1, 0, 0},
		Rotation:    mgl64.Rotate3DZ(gomath.Pi / 2),
		Scale:       2,
	})

	assert.True(t, r.Translation(mgl64.Vec3{1, 2, 0}).ApproxEqual(mgl64.Vec3{1, 0, 0}))
	assert.InDelta(t, 2, r.Scale(4), 1e-12)
	sameRotation(t, mgl64.QuatIdent(), r.Rotation(mgl64.QuatRotate(gomath.Pi/2, mgl64.Vec3{0, 0, 1})))
}

func TestRetargeterInverse(t *testing.T) {
	r := Retargeter{
		FPS: 30,
		Bind: transform.Transform{
			Translation: mgl64.Vec3{0.5, -2, 3},
			Rotation:    mgl64.Rotate3DX(0.3).Mul3(mgl64.Rotate3DY(-1.1)),
			Scale:       1.5,
		},
		Correction: skeleton.NegZ.Matrix(),
	}
	q := mgl64.QuatRotate(0.7, mgl64.Vec3{1, 2, 3}.Normalize())
	v := mgl64.Vec3{4, -1, 2}

	sameRotation(t, q, r.AbsRotation(r.Rotation(q)))
	sameRotation(t, q, r.Rotation(r.AbsRotation(q)))
	assert.True(t, r.AbsTranslation(r.Translation(v)).ApproxEqualThreshold(v, 1e-9))
	assert.InDelta(t, 3.0, r.AbsScale(r.Scale(3)), 1e-12)

	// conjugating by the correction matches composing full transforms
	key := transform.Transform{Translation: v, Rotation: q.Mat4().Mat3(), Scale: 1.5}
	x := transform.Transform{Rotation: r.Correction, Scale: 1}
	want := x.Inverse().Mul(r.Bind.Inverse()).Mul(key).Mul(x)
	assert.True(t, r.Translation(v).ApproxEqualThreshold(want.Translation, 1e-9))
	sameRotation(t, mgl64.Mat4ToQuat(want.Rotation.Mat4()), r.Rotation(q))
}

func TestTrackRoundTrip(t *testing.T) {
	track := Track{
		RotationType: nif.KeyLinear,
		Rotations: []QuatKey{
			{Time: 0, Value: mgl64.QuatIdent()},
			{Time: 0.5, Value: mgl64.QuatRotate(1, mgl64.Vec3{0, 1, 0})},
		},
		TranslationType: nif.KeyLinear,
		Translations:    []VecKey{{Time: 0, Value: mgl64.Vec3{1, 2, 3}}, {Time: 1, Value: mgl64.Vec3{3, 2, 1}}},
		ScaleType:       nif.KeyLinear,
		Scales:          []ScalarKey{{Time: 1, Value: 2}},
	}
	r := Retargeter{
		FPS:        30,
		Bind:       transform.Transform{Translation: mgl64.Vec3{0, 1, 0}, Rotation: mgl64.Rotate3DZ(0.4), Scale: 1},
		Correction: skeleton.PosX.Matrix(),
	}
	ch := r.ToChannel("Bip01 Head", track)
	require.Len(t, ch.Rotations, 2)
	assert.Equal(t, []int{1, 16, 31}, ch.Frames())

	back := r.ToTrack(ch)
	require.Len(t, back.Rotations, 2)
	for i := range track.Rotations {
		assert.InDelta(t, track.Rotations[i].Time, back.Rotations[i].Time, 1e-9)
		sameRotation(t, track.Rotations[i].Value, back.Rotations[i].Value)
	}
	for i := range track.Translations {
		assert.True(t, back.Translations[i].Value.ApproxEqualThreshold(track.Translations[i].Value, 1e-9))
	}
	assert.InDelta(t, 2, back.Scales[0].Value, 1e-12)
}

func TestEulerKeys(t *testing.T) {
	track := Track{RotationType: nif.KeyXYZ}
	track.Euler[0] = []ScalarKey{{Time: 0, Value: 0.1}, {Time: 1, Value: 0.2}}
	track.Euler[2] = []ScalarKey{{Time: 0.5, Value: -0.3}}

	t.Run("kept when rotation maps directly", func(t *testing.T) {
		r := NewRetargeter(30, transform.Identity())
		ch := r.ToChannel("door", track)
		assert.True(t, ch.IsEuler())
		assert.Empty(t, ch.Rotations)
		assert.Equal(t, []ScalarFrame{{Frame: 1, Value: 0.1}, {Frame: 31, Value: 0.2}}, ch.Euler[0])
		assert.Equal(t, []ScalarFrame{{Frame: 16, Value: -0.3}}, ch.Euler[2])

		back := r.ToTrack(ch)
		assert.True(t, back.IsEuler())
		assert.InDelta(t, 1.0, back.Euler[0][1].Time, 1e-9)
	})

	t.Run("resampled under a bind rotation", func(t *testing.T) {
		bind := transform.Identity()
		bind.Rotation = mgl64.Rotate3DY(0.5)
		r := NewRetargeter(30, bind)
		ch := r.ToChannel("door", track)
		assert.False(t, ch.IsEuler())
		require.Len(t, ch.Rotations, 3)
		assert.Equal(t, []int{1, 16, 31}, []int{ch.Rotations[0].Frame, ch.Rotations[1].Frame, ch.Rotations[2].Frame})

		// frame 16: x holds 0.1 from frame 1, z is keyed
		abs := r.AbsRotation(ch.Rotations[1].Value)
		sameRotation(t, math.EulerToQuat(0.1, 0, -0.3), abs)
	})
}

func TestSamplerFallback(t *testing.T) {
	bind := transform.Transform{Translation: mgl64.Vec3{1, 0, 0}, Rotation: mgl64.Rotate3DZ(0.2), Scale: 1}
	r := NewRetargeter(30, bind)
	ch := Channel{
		RotationType: nif.KeyLinear,
		Rotations: []QuatFrame{
			{Frame: 10, Value: mgl64.QuatRotate(0.5, mgl64.Vec3{0, 0, 1})},
			{Frame: 1, Value: mgl64.QuatIdent()},
		},
		Translations: []VecFrame{{Frame: 5, Value: mgl64.Vec3{0, 1, 0}}},
	}
	s := r.Sampler(ch)

	before := s.At(3)
	assert.True(t, before.Translation.ApproxEqual(bind.Translation), "no translation key yet: bind")
	assert.True(t, before.Rotation.ApproxEqualThreshold(bind.Rotation, 1e-9))
	assert.InDelta(t, 1, before.Scale, 1e-12)

	held := s.At(9)
	assert.True(t, held.Rotation.ApproxEqualThreshold(bind.Rotation, 1e-9), "frame 9 holds frame 1")
	assert.True(t, held.Translation.ApproxEqualThreshold(r.AbsTranslation(mgl64.Vec3{0, 1, 0}), 1e-9))

	last := s.At(40)
	assert.True(t, last.Rotation.ApproxEqualThreshold(mgl64.Rotate3DZ(0.7), 1e-9))

	// memoised answers are stable
	assert.Equal(t, held, s.At(9))
}

func TestTrackData(t *testing.T) {
	kd := &nif.KeyframeData{
		RotationType: nif.KeyLinear,
		QuatKeys: []nif.QuatKey{
			{Time: 0, Value: math.QuatIdentity()},
			{Time: 1, Value: math.QuatFrom(mgl64.QuatRotate(0.5, mgl64.Vec3{1, 0, 0}))},
		},
		Translations: nif.VecKeys{Interpolation: nif.KeyQuadratic, Keys: []nif.VecKey{{Time: 0.5, Value: math.Vec3{X: 2}}}},
	}
	track := TrackFromData(kd)
	assert.False(t, track.IsEuler())
	assert.Equal(t, nif.KeyQuadratic, track.TranslationType)
	assert.Equal(t, []float64{0, 0.5, 1}, track.Times())

	out := track.Data()
	assert.Equal(t, nif.KeyLinear, out.RotationType)
	require.Len(t, out.QuatKeys, 2)
	assert.InDelta(t, kd.QuatKeys[1].Value.X, out.QuatKeys[1].Value.X, 1e-6)
	assert.Equal(t, nif.KeyQuadratic, out.Translations.Interpolation)
	assert.Empty(t, out.Scales.Keys)
}
