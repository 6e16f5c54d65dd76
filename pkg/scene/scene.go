// Package scene is the editable scene model on the editor side of a
// translation: objects with matrices, meshes with face corners, armatures
// with rest bones and frame-keyed actions.
package scene

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/nifkit/pkg/anim"
	"github.com/Faultbox/nifkit/pkg/collision"
	"github.com/Faultbox/nifkit/pkg/nif"
)

// Kind is the type of an object.
type Kind int

const (
	KindEmpty Kind = iota
	KindMesh
	KindArmature
	KindCollision
)

func (k Kind) String() string {
	switch k {
	case KindMesh:
		return "mesh"
	case KindArmature:
		return "armature"
	case KindCollision:
		return "collision"
	default:
		return "empty"
	}
}

// Scene is a set of object trees plus scene-wide animation settings.
type Scene struct {
	Roots      []*Object
	FPS        int
	StartFrame int
	EndFrame   int
	TextKeys   []TextKey

	// BoneExtra holds, per bone name, the matrix mapping the original node
	// transform onto the bone's rest matrix: rest = node * extra.
	BoneExtra map[string]mgl64.Mat4
	// FullNames maps shortened object and bone names to the originals.
	FullNames map[string]string
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{
		FPS:        anim.DefaultFPS,
		StartFrame: 1,
		EndFrame:   1,
		BoneExtra:  make(map[string]mgl64.Mat4),
		FullNames:  make(map[string]string),
	}
}

// TextKey is a named marker on the timeline.
type TextKey struct {
	Frame int
	Text  string
}

// Object is one node of the scene tree.
type Object struct {
	Name string
	Kind Kind
	// Matrix is relative to the parent object, or to ParentBone's rest
	// matrix when set.
	Matrix     mgl64.Mat4
	Hidden     bool
	ParentBone string
	Children   []*Object

	Mesh      *Mesh
	Armature  *Armature
	Action    *Action
	Collision *collision.Primitive
}

// NewObject returns an object with identity matrix.
func NewObject(name string, kind Kind) *Object {
	return &Object{Name: name, Kind: kind, Matrix: mgl64.Ident4()}
}

// Add appends child to o.
func (o *Object) Add(child *Object) {
	o.Children = append(o.Children, child)
}

// Walk visits o and its descendants depth first. Returning false from fn
// skips the children of that object.
func (o *Object) Walk(fn func(obj, parent *Object) bool) {
	o.walk(nil, fn)
}

func (o *Object) walk(parent *Object, fn func(obj, parent *Object) bool) {
	if !fn(o, parent) {
		return
	}
	for _, c := range o.Children {
		c.walk(o, fn)
	}
}

// Walk visits every object of the scene.
func (s *Scene) Walk(fn func(obj, parent *Object) bool) {
	for _, r := range s.Roots {
		r.Walk(fn)
	}
}

// Find returns the first object named name, or nil.
func (s *Scene) Find(name string) *Object {
	var found *Object
	s.Walk(func(o, _ *Object) bool {
		if found == nil && o.Name == name {
			found = o
		}
		return found == nil
	})
	return found
}

// FullName returns the original name of a possibly shortened name.
func (s *Scene) FullName(name string) string {
	if full, ok := s.FullNames[name]; ok {
		return full
	}
	return name
}

// Armature is the rest skeleton of an armature object.
type Armature struct {
	Bones []*Bone
}

// Bone is a rest bone in armature space.
type Bone struct {
	Name   string
	Parent string
	Head   mgl64.Vec3
	Tail   mgl64.Vec3
	Matrix mgl64.Mat4
}

// Bone returns the bone named name, or nil.
func (a *Armature) Bone(name string) *Bone {
	for _, b := range a.Bones {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// Children returns the bones whose parent is name; "" gives the top bones.
func (a *Armature) Children(name string) []*Bone {
	var out []*Bone
	for _, b := range a.Bones {
		if b.Parent == name {
			out = append(out, b)
		}
	}
	return out
}

// Action is the animation of an object, or of the bones of an armature.
// Channels are keyed by object or bone name.
type Action struct {
	Channels []anim.Channel
}

// Channel returns the channel for name, or nil.
func (a *Action) Channel(name string) *anim.Channel {
	for i := range a.Channels {
		if a.Channels[i].Name == name {
			return &a.Channels[i]
		}
	}
	return nil
}

// Mesh is face-corner geometry.
type Mesh struct {
	Vertices  []mgl64.Vec3
	Normals   []mgl64.Vec3 // per vertex
	Faces     []Face
	Materials []*Material
	UVLayers  []string
	HasColors bool
	Groups    []VertexGroup
	// ShapeKeys[0] is the basis when present.
	ShapeKeys []ShapeKey
}

// Face is a polygon of three or four vertices.
type Face struct {
	Verts    []int
	Material int
	Smooth   bool
	UV       [][]mgl64.Vec2 // per UV layer, per corner
	Colors   []mgl64.Vec4   // per corner, when the mesh has colours
}

// VertexGroup holds the weights of one bone.
type VertexGroup struct {
	Name    string
	Weights []GroupWeight
}

// GroupWeight is the weight of a vertex in a group.
type GroupWeight struct {
	Vertex int
	Weight float64
}

// ShapeKey is a morph target with its influence curve.
type ShapeKey struct {
	Name     string
	Vertices []mgl64.Vec3
	Keys     []anim.ScalarFrame
}

// Group returns the vertex group named name, creating it if needed.
func (m *Mesh) Group(name string) *VertexGroup {
	for i := range m.Groups {
		if m.Groups[i].Name == name {
			return &m.Groups[i]
		}
	}
	m.Groups = append(m.Groups, VertexGroup{Name: name})
	return &m.Groups[len(m.Groups)-1]
}

// Material is the shading description of a set of faces.
type Material struct {
	Name     string
	Diffuse  mgl64.Vec3
	Ambient  float64 // share of diffuse
	Emit     float64 // share of diffuse
	Specular mgl64.Vec3
	Spec     float64 // specular intensity, 0 when off
	Hardness int
	Alpha    float64
	Textures []Texture
}

// NewMaterial returns an opaque white material.
func NewMaterial(name string) *Material {
	return &Material{Name: name, Diffuse: mgl64.Vec3{1, 1, 1}, Ambient: 1, Hardness: 50, Alpha: 1}
}

// Texture maps an image file onto a material slot.
type Texture struct {
	Slot    nif.TextureSlot
	Path    string
	UVLayer string
}

// Texture returns the texture in slot, or nil.
func (m *Material) Texture(slot nif.TextureSlot) *Texture {
	for i := range m.Textures {
		if m.Textures[i].Slot == slot {
			return &m.Textures[i]
		}
	}
	return nil
}
