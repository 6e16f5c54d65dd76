package nif

import (
	"fmt"

	"github.com/Faultbox/nifkit/pkg/math"
)

// NodeType distinguishes node flavours that share one layout.
type NodeType uint8

const (
	NodePlain         NodeType = iota // NiNode
	NodeAnimation                     // NiBSAnimationNode
	NodeRootCollision                 // RootCollisionNode
	NodeBillboard                     // NiBillboardNode
)

var nodeTypeNames = [...]string{
	NodePlain:         "NiNode",
	NodeAnimation:     "NiBSAnimationNode",
	NodeRootCollision: "RootCollisionNode",
	NodeBillboard:     "NiBillboardNode",
}

// String returns the block type name of the flavour.
func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return fmt.Sprintf("Unknown(%d)", t)
}

// Node flag presets written on export.
const (
	FlagsNode          uint16 = 0x000C
	FlagsAnimationNode uint16 = 0x006A
	FlagsCollisionNode uint16 = 0x0003
	FlagsShape         uint16 = 0x0004
	// FlagsTextKeyNode replaces FlagsAnimationNode in scenes with text keys.
	FlagsTextKeyNode uint16 = 0x000A
)

// Node is a grouping block of the scene tree.
type Node struct {
	AVObject
	Type     NodeType
	Children []Ref
	Effects  []Ref
}

// NewNode returns a node with identity transform and empty links.
func NewNode(name string) *Node {
	return &Node{AVObject: newAVObject(name)}
}

func (*Node) Kind() Kind { return KindNode }

func (n *Node) TypeName() string { return n.Type.String() }

func (n *Node) decode(r *reader) {
	n.decodeAV(r)
	n.Children = r.refList()
	n.Effects = r.refList()
}

func (n *Node) encode(w *writer) {
	n.encodeAV(w)
	w.refList(n.Children)
	w.refList(n.Effects)
}

func (n *Node) refs() []*Ref {
	out := n.avRefs()
	for i := range n.Children {
		out = append(out, &n.Children[i])
	}
	for i := range n.Effects {
		out = append(out, &n.Effects[i])
	}
	return out
}

// TriShape is a triangle geometry placed in the tree.
type TriShape struct {
	AVObject
	Data Ref // TriShapeData
	Skin Ref // SkinInstance
}

// NewTriShape returns a shape with no data.
func NewTriShape(name string) *TriShape {
	return &TriShape{AVObject: newAVObject(name), Data: None, Skin: None}
}

func (*TriShape) Kind() Kind       { return KindTriShape }
func (*TriShape) TypeName() string { return KindTriShape.String() }

// DataRef returns the geometry data slot.
func (s *TriShape) DataRef() *Ref { return &s.Data }

func (s *TriShape) decode(r *reader) {
	s.decodeAV(r)
	s.Data = r.ref()
	s.Skin = r.ref()
}

func (s *TriShape) encode(w *writer) {
	s.encodeAV(w)
	w.ref(s.Data)
	w.ref(s.Skin)
}

func (s *TriShape) refs() []*Ref {
	return append(s.avRefs(), &s.Data, &s.Skin)
}

// Triangle holds three vertex indices.
type Triangle [3]uint16

// TriShapeData holds indexed triangle geometry.
type TriShapeData struct {
	Vertices  []math.Vec3
	Normals   []math.Vec3   // Empty or one per vertex
	Center    math.Vec3     // Bounding sphere center
	Radius    float32       // Bounding sphere radius
	Colors    []math.Color4 // Empty or one per vertex
	UVSets    [][]math.Vec2 // Each set has one entry per vertex
	Triangles []Triangle
}

func (*TriShapeData) Kind() Kind       { return KindTriShapeData }
func (*TriShapeData) TypeName() string { return KindTriShapeData.String() }
func (*TriShapeData) refs() []*Ref     { return nil }

func (d *TriShapeData) decode(r *reader) {
	n := r.count(12)
	d.Vertices = make([]math.Vec3, n)
	for i := range d.Vertices {
		d.Vertices[i] = r.vec3()
	}
	if r.bool() && r.fits(n, 12) {
		d.Normals = make([]math.Vec3, n)
		for i := range d.Normals {
			d.Normals[i] = r.vec3()
		}
	}
	d.Center = r.vec3()
	d.Radius = r.f32()
	if r.bool() && r.fits(n, 16) {
		d.Colors = make([]math.Color4, n)
		for i := range d.Colors {
			d.Colors[i] = r.color4()
		}
	}
	sets := r.count(max(8*n, 1))
	d.UVSets = make([][]math.Vec2, sets)
	for s := range d.UVSets {
		d.UVSets[s] = make([]math.Vec2, n)
		for i := range d.UVSets[s] {
			d.UVSets[s][i] = r.vec2()
		}
	}
	tris := r.count(6)
	d.Triangles = make([]Triangle, tris)
	for i := range d.Triangles {
		d.Triangles[i] = Triangle{r.u16(), r.u16(), r.u16()}
	}
}

func (d *TriShapeData) encode(w *writer) {
	w.count(len(d.Vertices))
	for _, v := range d.Vertices {
		w.vec3(v)
	}
	w.bool(len(d.Normals) > 0)
	for _, v := range d.Normals {
		w.vec3(v)
	}
	w.vec3(d.Center)
	w.f32(d.Radius)
	w.bool(len(d.Colors) > 0)
	for _, c := range d.Colors {
		w.color4(c)
	}
	w.count(len(d.UVSets))
	for _, set := range d.UVSets {
		for _, uv := range set {
			w.vec2(uv)
		}
	}
	w.count(len(d.Triangles))
	for _, t := range d.Triangles {
		w.u16(t[0])
		w.u16(t[1])
		w.u16(t[2])
	}
}

// validate checks per-vertex arrays against the vertex count.
func (d *TriShapeData) validate() error {
	n := len(d.Vertices)
	if len(d.Normals) != 0 && len(d.Normals) != n {
		return fmt.Errorf("%d normals for %d vertices", len(d.Normals), n)
	}
	if len(d.Colors) != 0 && len(d.Colors) != n {
		return fmt.Errorf("%d colors for %d vertices", len(d.Colors), n)
	}
	for s, set := range d.UVSets {
		if len(set) != n {
			return fmt.Errorf("uv set %d has %d entries for %d vertices", s, len(set), n)
		}
	}
	for i, t := range d.Triangles {
		for _, v := range t {
			if int(v) >= n {
				return fmt.Errorf("triangle %d references vertex %d of %d", i, v, n)
			}
		}
	}
	return nil
}

// MaterialProperty holds the surface colours of a shape.
type MaterialProperty struct {
	ObjectNET
	Flags      uint16
	Ambient    math.Color3
	Diffuse    math.Color3
	Specular   math.Color3
	Emissive   math.Color3
	Glossiness float32
	Alpha      float32
}

// NewMaterial returns a named material with engine defaults.
func NewMaterial(name string) *MaterialProperty {
	return &MaterialProperty{
		ObjectNET:  newObjectNET(name),
		Ambient:    math.Color3{R: 1, G: 1, B: 1},
		Diffuse:    math.Color3{R: 1, G: 1, B: 1},
		Glossiness: 10,
		Alpha:      1,
	}
}

func (*MaterialProperty) Kind() Kind       { return KindMaterial }
func (*MaterialProperty) TypeName() string { return KindMaterial.String() }
func (m *MaterialProperty) refs() []*Ref   { return m.netRefs() }

func (m *MaterialProperty) decode(r *reader) {
	m.decodeNet(r)
	m.Flags = r.u16()
	m.Ambient = r.color3()
	m.Diffuse = r.color3()
	m.Specular = r.color3()
	m.Emissive = r.color3()
	m.Glossiness = r.f32()
	m.Alpha = r.f32()
}

func (m *MaterialProperty) encode(w *writer) {
	m.encodeNet(w)
	w.u16(m.Flags)
	w.color3(m.Ambient)
	w.color3(m.Diffuse)
	w.color3(m.Specular)
	w.color3(m.Emissive)
	w.f32(m.Glossiness)
	w.f32(m.Alpha)
}

// TextureSlot indexes TexturingProperty.Textures.
type TextureSlot int

const (
	SlotBase TextureSlot = iota
	SlotDark
	SlotDetail
	SlotGloss
	SlotGlow
	SlotBump
	NumTextureSlots
)

// String returns the slot name.
func (s TextureSlot) String() string {
	switch s {
	case SlotBase:
		return "Base"
	case SlotDark:
		return "Dark"
	case SlotDetail:
		return "Detail"
	case SlotGloss:
		return "Gloss"
	case SlotGlow:
		return "Glow"
	case SlotBump:
		return "Bump"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// ApplyMode values of TexturingProperty.
const (
	ApplyReplace  uint32 = 0
	ApplyDecal    uint32 = 1
	ApplyModulate uint32 = 2
	ApplyHilight  uint32 = 3
	ApplyHilight2 uint32 = 4
)

// TexDesc describes one texture slot. Source == None means the slot is empty.
type TexDesc struct {
	Source     Ref
	ClampMode  uint32
	FilterMode uint32
	UVSet      uint32
}

// TexturingProperty binds source textures to slots.
type TexturingProperty struct {
	ObjectNET
	Flags     uint16
	ApplyMode uint32
	Textures  [NumTextureSlots]TexDesc
}

// NewTexturing returns a property with all slots empty.
func NewTexturing() *TexturingProperty {
	t := &TexturingProperty{ObjectNET: newObjectNET(""), ApplyMode: ApplyModulate}
	for i := range t.Textures {
		t.Textures[i] = TexDesc{Source: None, ClampMode: 3, FilterMode: 2}
	}
	return t
}

func (*TexturingProperty) Kind() Kind       { return KindTexturing }
func (*TexturingProperty) TypeName() string { return KindTexturing.String() }

func (t *TexturingProperty) refs() []*Ref {
	out := t.netRefs()
	for i := range t.Textures {
		out = append(out, &t.Textures[i].Source)
	}
	return out
}

func (t *TexturingProperty) decode(r *reader) {
	t.decodeNet(r)
	t.Flags = r.u16()
	t.ApplyMode = r.u32()
	for i := range t.Textures {
		t.Textures[i] = TexDesc{Source: r.ref(), ClampMode: r.u32(), FilterMode: r.u32(), UVSet: r.u32()}
	}
}

func (t *TexturingProperty) encode(w *writer) {
	t.encodeNet(w)
	w.u16(t.Flags)
	w.u32(t.ApplyMode)
	for _, d := range t.Textures {
		w.ref(d.Source)
		w.u32(d.ClampMode)
		w.u32(d.FilterMode)
		w.u32(d.UVSet)
	}
}

// AlphaProperty enables blending on a shape.
type AlphaProperty struct {
	ObjectNET
	Flags     uint16
	Threshold uint8
}

// NewAlpha returns a property with standard src-alpha blending.
func NewAlpha() *AlphaProperty {
	return &AlphaProperty{ObjectNET: newObjectNET(""), Flags: 0x00ED}
}

func (*AlphaProperty) Kind() Kind       { return KindAlpha }
func (*AlphaProperty) TypeName() string { return KindAlpha.String() }
func (a *AlphaProperty) refs() []*Ref   { return a.netRefs() }

func (a *AlphaProperty) decode(r *reader) {
	a.decodeNet(r)
	a.Flags = r.u16()
	a.Threshold = r.u8()
}

func (a *AlphaProperty) encode(w *writer) {
	a.encodeNet(w)
	w.u16(a.Flags)
	w.u8(a.Threshold)
}

// SpecularProperty enables specular highlights on a shape.
type SpecularProperty struct {
	ObjectNET
	Flags uint16
}

// NewSpecular returns an enabled specular property.
func NewSpecular() *SpecularProperty {
	return &SpecularProperty{ObjectNET: newObjectNET(""), Flags: 1}
}

func (*SpecularProperty) Kind() Kind       { return KindSpecular }
func (*SpecularProperty) TypeName() string { return KindSpecular.String() }
func (s *SpecularProperty) refs() []*Ref   { return s.netRefs() }

func (s *SpecularProperty) decode(r *reader) {
	s.decodeNet(r)
	s.Flags = r.u16()
}

func (s *SpecularProperty) encode(w *writer) {
	s.encodeNet(w)
	w.u16(s.Flags)
}

// SourceTexture names an image file. Pixel data is never embedded.
type SourceTexture struct {
	ObjectNET
	External    bool
	FileName    string
	PixelLayout uint32
	UseMipmaps  uint32
	AlphaFormat uint32
}

// NewSourceTexture returns an external texture reference.
func NewSourceTexture(fileName string) *SourceTexture {
	return &SourceTexture{
		ObjectNET:   newObjectNET(""),
		External:    true,
		FileName:    fileName,
		PixelLayout: 5,
		UseMipmaps:  2,
		AlphaFormat: 3,
	}
}

func (*SourceTexture) Kind() Kind       { return KindSourceTexture }
func (*SourceTexture) TypeName() string { return KindSourceTexture.String() }
func (s *SourceTexture) refs() []*Ref   { return s.netRefs() }

func (s *SourceTexture) decode(r *reader) {
	s.decodeNet(r)
	s.External = r.bool()
	s.FileName = r.str()
	s.PixelLayout = r.u32()
	s.UseMipmaps = r.u32()
	s.AlphaFormat = r.u32()
}

func (s *SourceTexture) encode(w *writer) {
	s.encodeNet(w)
	w.bool(s.External)
	w.str(s.FileName)
	w.u32(s.PixelLayout)
	w.u32(s.UseMipmaps)
	w.u32(s.AlphaFormat)
}

// Camera is a camera placed in the tree. It is never converted.
type Camera struct {
	AVObject
	FrustumLeft, FrustumRight, FrustumTop, FrustumBottom float32
	FrustumNear, FrustumFar                              float32
}

func (*Camera) Kind() Kind       { return KindCamera }
func (*Camera) TypeName() string { return KindCamera.String() }
func (c *Camera) refs() []*Ref   { return c.avRefs() }

func (c *Camera) decode(r *reader) {
	c.decodeAV(r)
	c.FrustumLeft = r.f32()
	c.FrustumRight = r.f32()
	c.FrustumTop = r.f32()
	c.FrustumBottom = r.f32()
	c.FrustumNear = r.f32()
	c.FrustumFar = r.f32()
}

func (c *Camera) encode(w *writer) {
	c.encodeAV(w)
	w.f32(c.FrustumLeft)
	w.f32(c.FrustumRight)
	w.f32(c.FrustumTop)
	w.f32(c.FrustumBottom)
	w.f32(c.FrustumNear)
	w.f32(c.FrustumFar)
}
