package nif

import (
	"fmt"

	"github.com/Faultbox/nifkit/pkg/math"
)

// KeyType is the interpolation of a key group, or the rotation layout.
type KeyType uint32

const (
	KeyLinear    KeyType = 1
	KeyQuadratic KeyType = 2
	KeyTBC       KeyType = 3
	KeyXYZ       KeyType = 4 // rotation only: three independent Euler float groups
)

// String returns the interpolation name.
func (k KeyType) String() string {
	switch k {
	case KeyLinear:
		return "Linear"
	case KeyQuadratic:
		return "Quadratic"
	case KeyTBC:
		return "TBC"
	case KeyXYZ:
		return "XYZ"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(k))
	}
}

func (k KeyType) valid() bool {
	return k >= KeyLinear && k <= KeyXYZ
}

// TBC holds tension, bias, continuity parameters.
type TBC struct {
	Tension, Bias, Continuity float32
}

// FloatKey is a keyed scalar.
type FloatKey struct {
	Time     float32
	Value    float32
	Forward  float32 // Quadratic only
	Backward float32 // Quadratic only
	TBC      TBC     // TBC only
}

// FloatKeys is a group of scalar keys sharing one interpolation.
type FloatKeys struct {
	Interpolation KeyType
	Keys          []FloatKey
}

// VecKey is a keyed vector.
type VecKey struct {
	Time     float32
	Value    math.Vec3
	Forward  math.Vec3
	Backward math.Vec3
	TBC      TBC
}

// VecKeys is a group of vector keys sharing one interpolation.
type VecKeys struct {
	Interpolation KeyType
	Keys          []VecKey
}

// QuatKey is a keyed rotation.
type QuatKey struct {
	Time  float32
	Value math.Quat
	TBC   TBC
}

func (r *reader) floatKeys() FloatKeys {
	var g FloatKeys
	n := r.count(8)
	if n == 0 {
		return g
	}
	g.Interpolation = KeyType(r.u32())
	if !g.Interpolation.valid() || g.Interpolation == KeyXYZ {
		r.fail(fmt.Errorf("float key interpolation %d", g.Interpolation))
		return g
	}
	g.Keys = make([]FloatKey, n)
	for i := range g.Keys {
		k := &g.Keys[i]
		k.Time = r.f32()
		k.Value = r.f32()
		switch g.Interpolation {
		case KeyQuadratic:
			k.Forward = r.f32()
			k.Backward = r.f32()
		case KeyTBC:
			k.TBC = r.tbc()
		}
	}
	return g
}

func (w *writer) floatKeys(g FloatKeys) {
	w.count(len(g.Keys))
	if len(g.Keys) == 0 {
		return
	}
	w.u32(uint32(g.Interpolation))
	for _, k := range g.Keys {
		w.f32(k.Time)
		w.f32(k.Value)
		switch g.Interpolation {
		case KeyQuadratic:
			w.f32(k.Forward)
			w.f32(k.Backward)
		case KeyTBC:
			w.tbc(k.TBC)
		}
	}
}

func (r *reader) vecKeys() VecKeys {
	var g VecKeys
	n := r.count(16)
	if n == 0 {
		return g
	}
	g.Interpolation = KeyType(r.u32())
	if !g.Interpolation.valid() || g.Interpolation == KeyXYZ {
		r.fail(fmt.Errorf("vector key interpolation %d", g.Interpolation))
		return g
	}
	g.Keys = make([]VecKey, n)
	for i := range g.Keys {
		k := &g.Keys[i]
		k.Time = r.f32()
		k.Value = r.vec3()
		switch g.Interpolation {
		case KeyQuadratic:
			k.Forward = r.vec3()
			k.Backward = r.vec3()
		case KeyTBC:
			k.TBC = r.tbc()
		}
	}
	return g
}

func (w *writer) vecKeys(g VecKeys) {
	w.count(len(g.Keys))
	if len(g.Keys) == 0 {
		return
	}
	w.u32(uint32(g.Interpolation))
	for _, k := range g.Keys {
		w.f32(k.Time)
		w.vec3(k.Value)
		switch g.Interpolation {
		case KeyQuadratic:
			w.vec3(k.Forward)
			w.vec3(k.Backward)
		case KeyTBC:
			w.tbc(k.TBC)
		}
	}
}

func (r *reader) tbc() TBC {
	return TBC{Tension: r.f32(), Bias: r.f32(), Continuity: r.f32()}
}

func (w *writer) tbc(t TBC) {
	w.f32(t.Tension)
	w.f32(t.Bias)
	w.f32(t.Continuity)
}

// KeyframeController animates the transform of its target.
type KeyframeController struct {
	ControllerBase
	Data Ref // KeyframeData
}

// NewKeyframeController returns an active, looping controller.
func NewKeyframeController() *KeyframeController {
	return &KeyframeController{ControllerBase: newControllerBase(), Data: None}
}

func (*KeyframeController) Kind() Kind       { return KindKeyframeController }
func (*KeyframeController) TypeName() string { return KindKeyframeController.String() }

// DataRef returns the keyframe data slot.
func (c *KeyframeController) DataRef() *Ref { return &c.Data }

func (c *KeyframeController) refs() []*Ref {
	return []*Ref{&c.Next, &c.Target, &c.Data}
}

func (c *KeyframeController) decode(r *reader) {
	c.decodeCtrl(r)
	c.Data = r.ref()
}

func (c *KeyframeController) encode(w *writer) {
	c.encodeCtrl(w)
	w.ref(c.Data)
}

// KeyframeData holds time-stamped transform tracks. Rotation keys are either
// quaternions (RotationType Linear, Quadratic or TBC) or three Euler groups
// (RotationType XYZ), never both.
type KeyframeData struct {
	RotationType KeyType
	QuatKeys     []QuatKey
	XYZ          [3]FloatKeys // Euler angles in radians about X, Y, Z
	Translations VecKeys
	Scales       FloatKeys
}

func (*KeyframeData) Kind() Kind       { return KindKeyframeData }
func (*KeyframeData) TypeName() string { return KindKeyframeData.String() }
func (*KeyframeData) refs() []*Ref     { return nil }

// Euler reports whether rotation is stored as per-axis groups.
func (d *KeyframeData) Euler() bool {
	return d.RotationType == KeyXYZ
}

func (d *KeyframeData) decode(r *reader) {
	n := r.count(0)
	if n > 0 {
		d.RotationType = KeyType(r.u32())
		if !d.RotationType.valid() {
			r.fail(fmt.Errorf("rotation type %d", d.RotationType))
			return
		}
		if d.RotationType == KeyXYZ {
			for i := range d.XYZ {
				d.XYZ[i] = r.floatKeys()
			}
		} else if r.fits(n, 20) {
			d.QuatKeys = make([]QuatKey, n)
			for i := range d.QuatKeys {
				k := &d.QuatKeys[i]
				k.Time = r.f32()
				k.Value = r.quat()
				if d.RotationType == KeyTBC {
					k.TBC = r.tbc()
				}
			}
		}
	}
	d.Translations = r.vecKeys()
	d.Scales = r.floatKeys()
}

func (d *KeyframeData) encode(w *writer) {
	switch {
	case d.RotationType == KeyXYZ:
		// the count is a marker only; each axis carries its own
		w.count(1)
		w.u32(uint32(KeyXYZ))
		for _, g := range d.XYZ {
			w.floatKeys(g)
		}
	case len(d.QuatKeys) > 0:
		w.count(len(d.QuatKeys))
		w.u32(uint32(d.RotationType))
		for _, k := range d.QuatKeys {
			w.f32(k.Time)
			w.quat(k.Value)
			if d.RotationType == KeyTBC {
				w.tbc(k.TBC)
			}
		}
	default:
		w.count(0)
	}
	w.vecKeys(d.Translations)
	w.floatKeys(d.Scales)
}

// GeomMorpherController drives vertex morphs of its target shape.
type GeomMorpherController struct {
	ControllerBase
	Data Ref // MorphData
}

// NewGeomMorpherController returns an active, looping controller.
func NewGeomMorpherController() *GeomMorpherController {
	return &GeomMorpherController{ControllerBase: newControllerBase(), Data: None}
}

func (*GeomMorpherController) Kind() Kind       { return KindGeomMorpherController }
func (*GeomMorpherController) TypeName() string { return KindGeomMorpherController.String() }

// DataRef returns the morph data slot.
func (c *GeomMorpherController) DataRef() *Ref { return &c.Data }

func (c *GeomMorpherController) refs() []*Ref {
	return []*Ref{&c.Next, &c.Target, &c.Data}
}

func (c *GeomMorpherController) decode(r *reader) {
	c.decodeCtrl(r)
	c.Data = r.ref()
}

func (c *GeomMorpherController) encode(w *writer) {
	c.encodeCtrl(w)
	w.ref(c.Data)
}

// Morph is one morph target. The first morph of MorphData is the base shape.
type Morph struct {
	Name    string
	Keys    FloatKeys   // Influence over time
	Vectors []math.Vec3 // One per vertex: absolute for the base, offsets for relative targets
}

// MorphData holds the morph targets of one shape.
type MorphData struct {
	NumVertices     int
	RelativeTargets bool
	Morphs          []Morph
}

func (*MorphData) Kind() Kind       { return KindMorphData }
func (*MorphData) TypeName() string { return KindMorphData.String() }
func (*MorphData) refs() []*Ref     { return nil }

func (d *MorphData) decode(r *reader) {
	morphs := r.count(8)
	d.NumVertices = r.count(0)
	d.RelativeTargets = r.bool()
	d.Morphs = make([]Morph, morphs)
	for i := range d.Morphs {
		m := &d.Morphs[i]
		m.Name = r.str()
		m.Keys = r.floatKeys()
		if !r.fits(d.NumVertices, 12) {
			return
		}
		m.Vectors = make([]math.Vec3, d.NumVertices)
		for v := range m.Vectors {
			m.Vectors[v] = r.vec3()
		}
	}
}

func (d *MorphData) encode(w *writer) {
	w.count(len(d.Morphs))
	w.count(d.NumVertices)
	w.bool(d.RelativeTargets)
	for _, m := range d.Morphs {
		w.str(m.Name)
		w.floatKeys(m.Keys)
		for v := 0; v < d.NumVertices; v++ {
			var vec math.Vec3
			if v < len(m.Vectors) {
				vec = m.Vectors[v]
			}
			w.vec3(vec)
		}
	}
}

// TextKey is a named time marker.
type TextKey struct {
	Time float32
	Text string
}

// TextKeyExtraData holds the animation text keys of a scene.
type TextKeyExtraData struct {
	ExtraBase
	Keys []TextKey
}

func (*TextKeyExtraData) Kind() Kind       { return KindTextKeyExtraData }
func (*TextKeyExtraData) TypeName() string { return KindTextKeyExtraData.String() }
func (e *TextKeyExtraData) refs() []*Ref   { return []*Ref{&e.Next} }

func (e *TextKeyExtraData) decode(r *reader) {
	e.decodeExtra(r)
	e.Keys = make([]TextKey, r.count(8))
	for i := range e.Keys {
		e.Keys[i] = TextKey{Time: r.f32(), Text: r.str()}
	}
}

func (e *TextKeyExtraData) encode(w *writer) {
	e.encodeExtra(w)
	w.count(len(e.Keys))
	for _, k := range e.Keys {
		w.f32(k.Time)
		w.str(k.Text)
	}
}

// NewTextKeys returns an unlinked text key block.
func NewTextKeys(keys []TextKey) *TextKeyExtraData {
	return &TextKeyExtraData{ExtraBase: ExtraBase{Next: None}, Keys: keys}
}

// StringExtraData holds one string, e.g. the name of an animated node.
type StringExtraData struct {
	ExtraBase
	Value string
}

// NewStringExtra returns an unlinked string block.
func NewStringExtra(value string) *StringExtraData {
	return &StringExtraData{ExtraBase: ExtraBase{Next: None}, Value: value}
}

func (*StringExtraData) Kind() Kind       { return KindStringExtraData }
func (*StringExtraData) TypeName() string { return KindStringExtraData.String() }
func (e *StringExtraData) refs() []*Ref   { return []*Ref{&e.Next} }

func (e *StringExtraData) decode(r *reader) {
	e.decodeExtra(r)
	e.Value = r.str()
}

func (e *StringExtraData) encode(w *writer) {
	e.encodeExtra(w)
	w.str(e.Value)
}

// SequenceStreamHelper is the root of an animation-only companion document.
type SequenceStreamHelper struct {
	ObjectNET
}

// NewSequenceStreamHelper returns an empty helper root.
func NewSequenceStreamHelper() *SequenceStreamHelper {
	return &SequenceStreamHelper{ObjectNET: newObjectNET("")}
}

func (*SequenceStreamHelper) Kind() Kind       { return KindSequenceStreamHelper }
func (*SequenceStreamHelper) TypeName() string { return KindSequenceStreamHelper.String() }
func (h *SequenceStreamHelper) refs() []*Ref   { return h.netRefs() }
func (h *SequenceStreamHelper) decode(r *reader) {
	h.decodeNet(r)
}
func (h *SequenceStreamHelper) encode(w *writer) {
	h.encodeNet(w)
}
