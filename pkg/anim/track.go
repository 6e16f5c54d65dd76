package anim

import (
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/nifkit/pkg/math"
	"github.com/Faultbox/nifkit/pkg/nif"
)

// ScalarKey is a keyed scalar at a time in seconds.
type ScalarKey struct {
	Time  float64
	Value float64
}

// VecKey is a keyed vector at a time in seconds.
type VecKey struct {
	Time  float64
	Value mgl64.Vec3
}

// QuatKey is a keyed rotation at a time in seconds.
type QuatKey struct {
	Time  float64
	Value mgl64.Quat
}

// Track is the absolute keyframe animation of one node.
// Rotations and Euler are mutually exclusive; RotationType says which is used.
type Track struct {
	RotationType    nif.KeyType
	Rotations       []QuatKey
	Euler           [3][]ScalarKey
	TranslationType nif.KeyType
	Translations    []VecKey
	ScaleType       nif.KeyType
	Scales          []ScalarKey
}

// IsEuler reports whether rotation is keyed per axis.
func (t *Track) IsEuler() bool {
	return t.RotationType == nif.KeyXYZ
}

// Empty reports whether the track has no keys at all.
func (t *Track) Empty() bool {
	return len(t.Rotations) == 0 && len(t.Translations) == 0 && len(t.Scales) == 0 &&
		len(t.Euler[0]) == 0 && len(t.Euler[1]) == 0 && len(t.Euler[2]) == 0
}

// Times returns every key time of the track, sorted and deduplicated.
func (t *Track) Times() []float64 {
	var out []float64
	for _, k := range t.Rotations {
		out = append(out, k.Time)
	}
	for _, axis := range t.Euler {
		for _, k := range axis {
			out = append(out, k.Time)
		}
	}
	for _, k := range t.Translations {
		out = append(out, k.Time)
	}
	for _, k := range t.Scales {
		out = append(out, k.Time)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// TrackFromData reads keyframe data into a track. Tangents and TBC
// parameters are not carried over.
func TrackFromData(kd *nif.KeyframeData) Track {
	t := Track{
		RotationType:    kd.RotationType,
		TranslationType: kd.Translations.Interpolation,
		ScaleType:       kd.Scales.Interpolation,
	}
	if kd.Euler() {
		for axis, g := range kd.XYZ {
			for _, k := range g.Keys {
				t.Euler[axis] = append(t.Euler[axis], ScalarKey{Time: float64(k.Time), Value: float64(k.Value)})
			}
		}
	} else {
		for _, k := range kd.QuatKeys {
			t.Rotations = append(t.Rotations, QuatKey{Time: float64(k.Time), Value: k.Value.Mgl()})
		}
	}
	for _, k := range kd.Translations.Keys {
		t.Translations = append(t.Translations, VecKey{Time: float64(k.Time), Value: k.Value.Mgl()})
	}
	for _, k := range kd.Scales.Keys {
		t.Scales = append(t.Scales, ScalarKey{Time: float64(k.Time), Value: float64(k.Value)})
	}
	return t
}

// Data builds keyframe data holding the keys of t.
func (t *Track) Data() *nif.KeyframeData {
	kd := &nif.KeyframeData{RotationType: orLinear(t.RotationType)}
	if t.IsEuler() {
		for axis, keys := range t.Euler {
			kd.XYZ[axis].Interpolation = nif.KeyLinear
			for _, k := range keys {
				kd.XYZ[axis].Keys = append(kd.XYZ[axis].Keys, nif.FloatKey{Time: float32(k.Time), Value: float32(k.Value)})
			}
		}
	} else {
		for _, k := range t.Rotations {
			kd.QuatKeys = append(kd.QuatKeys, nif.QuatKey{Time: float32(k.Time), Value: math.QuatFrom(k.Value)})
		}
	}
	if len(t.Translations) > 0 {
		kd.Translations.Interpolation = orLinear(t.TranslationType)
		for _, k := range t.Translations {
			kd.Translations.Keys = append(kd.Translations.Keys, nif.VecKey{Time: float32(k.Time), Value: math.Vec3From(k.Value)})
		}
	}
	if len(t.Scales) > 0 {
		kd.Scales.Interpolation = orLinear(t.ScaleType)
		for _, k := range t.Scales {
			kd.Scales.Keys = append(kd.Scales.Keys, nif.FloatKey{Time: float32(k.Time), Value: float32(k.Value)})
		}
	}
	return kd
}

func orLinear(k nif.KeyType) nif.KeyType {
	if k == 0 {
		return nif.KeyLinear
	}
	return k
}
