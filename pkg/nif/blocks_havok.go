package nif

import "github.com/Faultbox/nifkit/pkg/math"

// Havok shape blocks store lengths in physics units. One physics unit is
// seven document units.

// CollisionObject attaches a rigid body to a node.
type CollisionObject struct {
	Target Ref
	Flags  uint16
	Body   Ref
}

// NewCollisionObject returns an unattached collision object.
func NewCollisionObject() *CollisionObject {
	return &CollisionObject{Target: None, Flags: 1, Body: None}
}

func (*CollisionObject) Kind() Kind       { return KindCollisionObject }
func (*CollisionObject) TypeName() string { return KindCollisionObject.String() }
func (c *CollisionObject) refs() []*Ref   { return []*Ref{&c.Target, &c.Body} }

func (c *CollisionObject) decode(r *reader) {
	c.Target = r.ref()
	c.Flags = r.u16()
	c.Body = r.ref()
}

func (c *CollisionObject) encode(w *writer) {
	w.ref(c.Target)
	w.u16(c.Flags)
	w.ref(c.Body)
}

// RigidBody wraps a shape. With HasTransform set (bhkRigidBodyT) the
// rotation and translation place the shape.
type RigidBody struct {
	Shape        Ref
	Layer        uint8
	HasTransform bool
	Translation  math.Vec4 // Physics units
	Rotation     math.Quat
	Mass         float32
	Friction     float32
	Restitution  float32
	MotionSystem uint8
}

// NewRigidBody returns a static body for shape.
func NewRigidBody(shape Ref) *RigidBody {
	return &RigidBody{Shape: shape, Layer: 1, Rotation: math.QuatIdentity(), Friction: 0.3, Restitution: 0.3, MotionSystem: 7}
}

func (*RigidBody) Kind() Kind { return KindRigidBody }

func (b *RigidBody) TypeName() string {
	if b.HasTransform {
		return "bhkRigidBodyT"
	}
	return KindRigidBody.String()
}

func (b *RigidBody) refs() []*Ref { return []*Ref{&b.Shape} }

func (b *RigidBody) decode(r *reader) {
	b.Shape = r.ref()
	b.Layer = r.u8()
	b.Translation = r.vec4()
	b.Rotation = r.quat()
	b.Mass = r.f32()
	b.Friction = r.f32()
	b.Restitution = r.f32()
	b.MotionSystem = r.u8()
}

func (b *RigidBody) encode(w *writer) {
	w.ref(b.Shape)
	w.u8(b.Layer)
	w.vec4(b.Translation)
	w.quat(b.Rotation)
	w.f32(b.Mass)
	w.f32(b.Friction)
	w.f32(b.Restitution)
	w.u8(b.MotionSystem)
}

// BoxShape is an axis-aligned box given by half extents.
type BoxShape struct {
	Material   uint32
	Radius     float32
	Dimensions math.Vec3 // Half extents
}

func (*BoxShape) Kind() Kind       { return KindBoxShape }
func (*BoxShape) TypeName() string { return KindBoxShape.String() }
func (*BoxShape) refs() []*Ref     { return nil }

func (s *BoxShape) decode(r *reader) {
	s.Material = r.u32()
	s.Radius = r.f32()
	s.Dimensions = r.vec3()
}

func (s *BoxShape) encode(w *writer) {
	w.u32(s.Material)
	w.f32(s.Radius)
	w.vec3(s.Dimensions)
}

// SphereShape is a sphere around the origin.
type SphereShape struct {
	Material uint32
	Radius   float32
}

func (*SphereShape) Kind() Kind       { return KindSphereShape }
func (*SphereShape) TypeName() string { return KindSphereShape.String() }
func (*SphereShape) refs() []*Ref     { return nil }

func (s *SphereShape) decode(r *reader) {
	s.Material = r.u32()
	s.Radius = r.f32()
}

func (s *SphereShape) encode(w *writer) {
	w.u32(s.Material)
	w.f32(s.Radius)
}

// CapsuleShape is a swept sphere between two points.
type CapsuleShape struct {
	Material     uint32
	Radius       float32
	First        math.Vec3
	FirstRadius  float32
	Second       math.Vec3
	SecondRadius float32
}

func (*CapsuleShape) Kind() Kind       { return KindCapsuleShape }
func (*CapsuleShape) TypeName() string { return KindCapsuleShape.String() }
func (*CapsuleShape) refs() []*Ref     { return nil }

func (s *CapsuleShape) decode(r *reader) {
	s.Material = r.u32()
	s.Radius = r.f32()
	s.First = r.vec3()
	s.FirstRadius = r.f32()
	s.Second = r.vec3()
	s.SecondRadius = r.f32()
}

func (s *CapsuleShape) encode(w *writer) {
	w.u32(s.Material)
	w.f32(s.Radius)
	w.vec3(s.First)
	w.f32(s.FirstRadius)
	w.vec3(s.Second)
	w.f32(s.SecondRadius)
}

// ConvexVerticesShape is the convex hull of a point set.
type ConvexVerticesShape struct {
	Material uint32
	Radius   float32
	Vertices []math.Vec4
	Normals  []math.Vec4 // Face planes: normal and distance
}

func (*ConvexVerticesShape) Kind() Kind       { return KindConvexVerticesShape }
func (*ConvexVerticesShape) TypeName() string { return KindConvexVerticesShape.String() }
func (*ConvexVerticesShape) refs() []*Ref     { return nil }

func (s *ConvexVerticesShape) decode(r *reader) {
	s.Material = r.u32()
	s.Radius = r.f32()
	s.Vertices = make([]math.Vec4, r.count(16))
	for i := range s.Vertices {
		s.Vertices[i] = r.vec4()
	}
	s.Normals = make([]math.Vec4, r.count(16))
	for i := range s.Normals {
		s.Normals[i] = r.vec4()
	}
}

func (s *ConvexVerticesShape) encode(w *writer) {
	w.u32(s.Material)
	w.f32(s.Radius)
	w.count(len(s.Vertices))
	for _, v := range s.Vertices {
		w.vec4(v)
	}
	w.count(len(s.Normals))
	for _, n := range s.Normals {
		w.vec4(n)
	}
}

// PackedTriStripsShape is a triangle soup shape.
type PackedTriStripsShape struct {
	Material uint32
	Scale    math.Vec4
	Data     Ref // PackedTriStripsData
}

// NewPackedTriStripsShape returns a shape without data.
func NewPackedTriStripsShape() *PackedTriStripsShape {
	return &PackedTriStripsShape{Scale: math.Vec4{X: 1, Y: 1, Z: 1}, Data: None}
}

func (*PackedTriStripsShape) Kind() Kind       { return KindPackedTriStripsShape }
func (*PackedTriStripsShape) TypeName() string { return KindPackedTriStripsShape.String() }

// DataRef returns the triangle data slot.
func (s *PackedTriStripsShape) DataRef() *Ref { return &s.Data }
func (s *PackedTriStripsShape) refs() []*Ref  { return []*Ref{&s.Data} }

func (s *PackedTriStripsShape) decode(r *reader) {
	s.Material = r.u32()
	s.Scale = r.vec4()
	s.Data = r.ref()
}

func (s *PackedTriStripsShape) encode(w *writer) {
	w.u32(s.Material)
	w.vec4(s.Scale)
	w.ref(s.Data)
}

// PackedTriangle is a triangle with its stored face normal.
type PackedTriangle struct {
	Triangle Triangle
	WeldInfo uint16
	Normal   math.Vec3
}

// PackedTriStripsData holds the triangles of a PackedTriStripsShape.
type PackedTriStripsData struct {
	Triangles []PackedTriangle
	Vertices  []math.Vec3
}

func (*PackedTriStripsData) Kind() Kind       { return KindPackedTriStripsData }
func (*PackedTriStripsData) TypeName() string { return KindPackedTriStripsData.String() }
func (*PackedTriStripsData) refs() []*Ref     { return nil }

func (d *PackedTriStripsData) decode(r *reader) {
	d.Triangles = make([]PackedTriangle, r.count(20))
	for i := range d.Triangles {
		t := &d.Triangles[i]
		t.Triangle = Triangle{r.u16(), r.u16(), r.u16()}
		t.WeldInfo = r.u16()
		t.Normal = r.vec3()
	}
	d.Vertices = make([]math.Vec3, r.count(12))
	for i := range d.Vertices {
		d.Vertices[i] = r.vec3()
	}
}

func (d *PackedTriStripsData) encode(w *writer) {
	w.count(len(d.Triangles))
	for _, t := range d.Triangles {
		w.u16(t.Triangle[0])
		w.u16(t.Triangle[1])
		w.u16(t.Triangle[2])
		w.u16(t.WeldInfo)
		w.vec3(t.Normal)
	}
	w.count(len(d.Vertices))
	for _, v := range d.Vertices {
		w.vec3(v)
	}
}

// TransformShape places its child shape with a 4x4 transform.
type TransformShape struct {
	Shape     Ref
	Material  uint32
	Radius    float32
	Transform math.Mat4 // Translation in physics units
}

func (*TransformShape) Kind() Kind       { return KindTransformShape }
func (*TransformShape) TypeName() string { return KindTransformShape.String() }
func (s *TransformShape) refs() []*Ref   { return []*Ref{&s.Shape} }

func (s *TransformShape) decode(r *reader) {
	s.Shape = r.ref()
	s.Material = r.u32()
	s.Radius = r.f32()
	s.Transform = r.mat4()
}

func (s *TransformShape) encode(w *writer) {
	w.ref(s.Shape)
	w.u32(s.Material)
	w.f32(s.Radius)
	w.mat4(s.Transform)
}

// ListShape combines several shapes.
type ListShape struct {
	Material uint32
	Shapes   []Ref
}

func (*ListShape) Kind() Kind       { return KindListShape }
func (*ListShape) TypeName() string { return KindListShape.String() }

func (s *ListShape) refs() []*Ref {
	out := make([]*Ref, len(s.Shapes))
	for i := range s.Shapes {
		out[i] = &s.Shapes[i]
	}
	return out
}

func (s *ListShape) decode(r *reader) {
	s.Material = r.u32()
	s.Shapes = r.refList()
}

func (s *ListShape) encode(w *writer) {
	w.u32(s.Material)
	w.refList(s.Shapes)
}

// MoppBvTreeShape is an acceleration structure around a single shape.
// The MOPP code is carried opaquely.
type MoppBvTreeShape struct {
	Shape    Ref
	Material uint32
	Origin   math.Vec3
	Scale    float32
	Code     []byte
}

func (*MoppBvTreeShape) Kind() Kind       { return KindMoppBvTreeShape }
func (*MoppBvTreeShape) TypeName() string { return KindMoppBvTreeShape.String() }
func (s *MoppBvTreeShape) refs() []*Ref   { return []*Ref{&s.Shape} }

func (s *MoppBvTreeShape) decode(r *reader) {
	s.Shape = r.ref()
	s.Material = r.u32()
	s.Origin = r.vec3()
	s.Scale = r.f32()
	s.Code = r.bytes()
}

func (s *MoppBvTreeShape) encode(w *writer) {
	w.ref(s.Shape)
	w.u32(s.Material)
	w.vec3(s.Origin)
	w.f32(s.Scale)
	w.bytes(s.Code)
}

// Sphere is one sphere of a MultiSphereShape.
type Sphere struct {
	Center math.Vec3
	Radius float32
}

// MultiSphereShape is a union of spheres. It is decoded but not converted.
type MultiSphereShape struct {
	Material uint32
	Spheres  []Sphere
}

func (*MultiSphereShape) Kind() Kind       { return KindMultiSphereShape }
func (*MultiSphereShape) TypeName() string { return KindMultiSphereShape.String() }
func (*MultiSphereShape) refs() []*Ref     { return nil }

func (s *MultiSphereShape) decode(r *reader) {
	s.Material = r.u32()
	s.Spheres = make([]Sphere, r.count(16))
	for i := range s.Spheres {
		s.Spheres[i] = Sphere{Center: r.vec3(), Radius: r.f32()}
	}
}

func (s *MultiSphereShape) encode(w *writer) {
	w.u32(s.Material)
	w.count(len(s.Spheres))
	for _, sp := range s.Spheres {
		w.vec3(sp.Center)
		w.f32(sp.Radius)
	}
}
