package nif

import "github.com/Faultbox/nifkit/pkg/math"

// SkinInstance binds a shape to a skeleton.
type SkinInstance struct {
	Data         Ref   // SkinData
	SkeletonRoot Ref   // Node the bone transforms are relative to
	Bones        []Ref // Bone nodes, parallel to SkinData.Bones
}

// NewSkinInstance returns an unbound skin instance.
func NewSkinInstance() *SkinInstance {
	return &SkinInstance{Data: None, SkeletonRoot: None}
}

func (*SkinInstance) Kind() Kind       { return KindSkinInstance }
func (*SkinInstance) TypeName() string { return KindSkinInstance.String() }

// DataRef returns the skin data slot.
func (s *SkinInstance) DataRef() *Ref { return &s.Data }

func (s *SkinInstance) refs() []*Ref {
	out := []*Ref{&s.Data, &s.SkeletonRoot}
	for i := range s.Bones {
		out = append(out, &s.Bones[i])
	}
	return out
}

func (s *SkinInstance) decode(r *reader) {
	s.Data = r.ref()
	s.SkeletonRoot = r.ref()
	s.Bones = r.refList()
}

func (s *SkinInstance) encode(w *writer) {
	w.ref(s.Data)
	w.ref(s.SkeletonRoot)
	w.refList(s.Bones)
}

// SkinWeight is the influence of one bone on one vertex.
type SkinWeight struct {
	Index  uint16
	Weight float32
}

// SkinTransform is a similarity transform in document storage.
type SkinTransform struct {
	Rotation    math.Mat3
	Translation math.Vec3
	Scale       float32
}

// IdentitySkinTransform returns the identity.
func IdentitySkinTransform() SkinTransform {
	return SkinTransform{Rotation: math.Mat3Identity(), Scale: 1}
}

// SkinBone holds the bind offset and weights of one bone.
type SkinBone struct {
	Transform SkinTransform // Skin space to bone space at bind time
	Center    math.Vec3
	Radius    float32
	Weights   []SkinWeight
}

// SkinData holds per-bone bind offsets and vertex weights.
type SkinData struct {
	Transform SkinTransform // Geometry space to skin space
	Bones     []SkinBone
}

func (*SkinData) Kind() Kind       { return KindSkinData }
func (*SkinData) TypeName() string { return KindSkinData.String() }
func (*SkinData) refs() []*Ref     { return nil }

func (r *reader) skinTransform() SkinTransform {
	return SkinTransform{Rotation: r.mat3(), Translation: r.vec3(), Scale: r.f32()}
}

func (w *writer) skinTransform(t SkinTransform) {
	w.mat3(t.Rotation)
	w.vec3(t.Translation)
	w.f32(t.Scale)
}

// skinBoneSize is the encoded size of a bone without weights.
const skinBoneSize = 36 + 12 + 4 + 12 + 4 + 4

func (d *SkinData) decode(r *reader) {
	d.Transform = r.skinTransform()
	d.Bones = make([]SkinBone, r.count(skinBoneSize))
	for i := range d.Bones {
		b := &d.Bones[i]
		b.Transform = r.skinTransform()
		b.Center = r.vec3()
		b.Radius = r.f32()
		b.Weights = make([]SkinWeight, r.count(6))
		for j := range b.Weights {
			b.Weights[j] = SkinWeight{Index: r.u16(), Weight: r.f32()}
		}
	}
}

func (d *SkinData) encode(w *writer) {
	w.skinTransform(d.Transform)
	w.count(len(d.Bones))
	for _, b := range d.Bones {
		w.skinTransform(b.Transform)
		w.vec3(b.Center)
		w.f32(b.Radius)
		w.count(len(b.Weights))
		for _, sw := range b.Weights {
			w.u16(sw.Index)
			w.f32(sw.Weight)
		}
	}
}
