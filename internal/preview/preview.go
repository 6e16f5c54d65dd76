// Package preview writes an imported scene as a binary glTF file so it can
// be inspected in any glTF viewer. Geometry, materials, object placement and
// bones are written; textures and animation are not.
package preview

import (
	"fmt"
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/nifkit/pkg/collision"
	"github.com/Faultbox/nifkit/pkg/scene"
)

// Options select what goes into a preview.
type Options struct {
	Collision bool // collision shapes as meshes
	Skeleton  bool // bones as empty nodes
	Logger    *zap.Logger
}

// Build converts sc into a glTF document.
func Build(sc *scene.Scene, opts Options) (*gltf.Document, error) {
	b := &builder{doc: gltf.NewDocument(), opts: opts, log: opts.Logger}
	if b.log == nil {
		b.log = zap.NewNop()
	}
	b.doc.Asset.Generator = "niftool preview"

	// The editor is Z-up, glTF is Y-up.
	root := b.addNode(&gltf.Node{Name: "Scene"}, mgl64.HomogRotate3DX(-gomath.Pi/2))
	b.doc.Scenes[0].Nodes = appendIndex(b.doc.Scenes[0].Nodes, root)
	for _, obj := range sc.Roots {
		if err := b.object(obj, root, obj.Matrix); err != nil {
			return nil, err
		}
	}
	b.log.Debug("built preview",
		zap.Int("nodes", len(b.doc.Nodes)),
		zap.Int("meshes", len(b.doc.Meshes)),
		zap.Int("materials", len(b.doc.Materials)))
	return b.doc, nil
}

// Write builds the preview of sc and saves it as a .glb file.
func Write(sc *scene.Scene, path string, opts Options) error {
	doc, err := Build(sc, opts)
	if err != nil {
		return err
	}
	if err := gltf.SaveBinary(doc, path); err != nil {
		return fmt.Errorf("writing preview %s: %w", path, err)
	}
	return nil
}

type builder struct {
	doc       *gltf.Document
	opts      Options
	log       *zap.Logger
	materials map[*scene.Material]int
}

func (b *builder) addNode(n *gltf.Node, m mgl64.Mat4) int {
	if m != mgl64.Ident4() {
		setMatrix(&n.Matrix, m)
	}
	b.doc.Nodes = append(b.doc.Nodes, n)
	return len(b.doc.Nodes) - 1
}

func (b *builder) link(parent, child int) {
	p := b.doc.Nodes[parent]
	p.Children = appendIndex(p.Children, child)
}

// object adds obj below parent with local matrix m.
func (b *builder) object(obj *scene.Object, parent int, m mgl64.Mat4) error {
	if obj.Kind == scene.KindCollision && !b.opts.Collision {
		return nil
	}
	if obj.Collision != nil {
		m = m.Mul4(obj.Collision.Matrix)
	}
	ref := b.addNode(&gltf.Node{Name: obj.Name}, m)
	b.link(parent, ref)

	switch {
	case obj.Collision != nil:
		if err := b.mesh(ref, obj.Name, collisionMesh(obj.Collision)); err != nil {
			return err
		}
	case obj.Mesh != nil:
		if err := b.mesh(ref, obj.Name, obj.Mesh); err != nil {
			return err
		}
	}

	var tails map[string]mgl64.Mat4
	if obj.Armature != nil {
		tails = b.bones(obj.Armature, ref)
	}
	for _, c := range obj.Children {
		local := c.Matrix
		if c.ParentBone != "" {
			tail, ok := tails[c.ParentBone]
			if !ok {
				return fmt.Errorf("object %q: parent bone %q not found", c.Name, c.ParentBone)
			}
			local = tail.Mul4(local)
		}
		if err := b.object(c, ref, local); err != nil {
			return err
		}
	}
	return nil
}

// bones adds the bones of arm below the armature node and returns, per bone,
// the rest matrix moved to the bone tail in armature space.
func (b *builder) bones(arm *scene.Armature, armNode int) map[string]mgl64.Mat4 {
	tails := make(map[string]mgl64.Mat4, len(arm.Bones))
	for _, bone := range arm.Bones {
		tail := bone.Matrix
		tail.SetCol(3, bone.Tail.Vec4(1))
		tails[bone.Name] = tail
	}
	if !b.opts.Skeleton {
		return tails
	}

	var add func(parentName string, parentNode int, parentMatrix mgl64.Mat4)
	add = func(parentName string, parentNode int, parentMatrix mgl64.Mat4) {
		for _, bone := range arm.Children(parentName) {
			n := b.addNode(&gltf.Node{Name: bone.Name}, parentMatrix.Inv().Mul4(bone.Matrix))
			b.link(parentNode, n)
			add(bone.Name, n, bone.Matrix)
		}
	}
	add("", armNode, mgl64.Ident4())
	return tails
}

// mesh writes m as one glTF mesh with a primitive per material and attaches
// it to node. Corners are written unshared.
func (b *builder) mesh(node int, name string, m *scene.Mesh) error {
	type prim struct {
		positions [][3]float32
		normals   [][3]float32
		uvs       [][2]float32
	}
	byMaterial := make(map[int]*prim)
	var order []int

	for fi, f := range m.Faces {
		if len(f.Verts) < 3 {
			continue
		}
		for _, v := range f.Verts {
			if v < 0 || v >= len(m.Vertices) {
				return fmt.Errorf("mesh %q: face %d uses vertex %d of %d", name, fi, v, len(m.Vertices))
			}
		}
		p, ok := byMaterial[f.Material]
		if !ok {
			p = &prim{}
			byMaterial[f.Material] = p
			order = append(order, f.Material)
		}
		a, c := m.Vertices[f.Verts[0]], m.Vertices[f.Verts[1]]
		flat := c.Sub(a).Cross(m.Vertices[f.Verts[2]].Sub(a))
		if l := flat.Len(); l > 0 {
			flat = flat.Mul(1 / l)
		}
		for j := 1; j+1 < len(f.Verts); j++ {
			for _, k := range [3]int{0, j, j + 1} {
				v := f.Verts[k]
				p.positions = append(p.positions, vec3(m.Vertices[v]))
				n := flat
				if f.Smooth && v < len(m.Normals) {
					n = m.Normals[v]
				}
				p.normals = append(p.normals, vec3(n))
				var uv [2]float32
				if len(f.UV) > 0 && k < len(f.UV[0]) {
					uv = [2]float32{float32(f.UV[0][k][0]), float32(1 - f.UV[0][k][1])}
				}
				p.uvs = append(p.uvs, uv)
			}
		}
	}
	if len(order) == 0 {
		return nil
	}

	mesh := &gltf.Mesh{Name: name}
	for _, mi := range order {
		p := byMaterial[mi]
		indices := make([]uint32, len(p.positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
		attrs := modeler.Attributes{Position: p.positions, Normal: p.normals}
		if len(m.UVLayers) > 0 {
			attrs.TextureCoord_0 = p.uvs
		}
		written, err := modeler.WriteAttributesInterleaved(b.doc, attrs)
		if err != nil {
			return fmt.Errorf("mesh %q: %w", name, err)
		}
		gp := &gltf.Primitive{
			Attributes: written,
			Indices:    gltf.Index(modeler.WriteIndices(b.doc, indices)),
		}
		if mi >= 0 && mi < len(m.Materials) && m.Materials[mi] != nil {
			setIndex(&gp.Material, b.material(m.Materials[mi]))
		}
		mesh.Primitives = append(mesh.Primitives, gp)
	}
	b.doc.Meshes = append(b.doc.Meshes, mesh)
	setIndex(&b.doc.Nodes[node].Mesh, len(b.doc.Meshes)-1)
	return nil
}

// material returns the glTF material of mat, adding it on first use.
func (b *builder) material(mat *scene.Material) int {
	if i, ok := b.materials[mat]; ok {
		return i
	}
	if b.materials == nil {
		b.materials = make(map[*scene.Material]int)
	}
	pbr := &gltf.PBRMetallicRoughness{
		MetallicFactor:  gltf.Float(0),
		RoughnessFactor: gltf.Float(1),
	}
	setFactor(&pbr.BaseColorFactor, mat.Diffuse.Vec4(mat.Alpha))
	gm := &gltf.Material{Name: mat.Name, PBRMetallicRoughness: pbr, AlphaMode: gltf.AlphaOpaque}
	if mat.Alpha < 1 {
		gm.AlphaMode = gltf.AlphaBlend
	}
	if mat.Emit > 0 {
		setVec3(&gm.EmissiveFactor, mat.Diffuse.Mul(mat.Emit))
	}
	b.doc.Materials = append(b.doc.Materials, gm)
	b.materials[mat] = len(b.doc.Materials) - 1
	return b.materials[mat]
}

// collisionMesh returns the faces of p as a flat-shaded mesh.
func collisionMesh(p *collision.Primitive) *scene.Mesh {
	m := &scene.Mesh{Vertices: p.Vertices}
	for _, f := range p.Faces {
		m.Faces = append(m.Faces, scene.Face{Verts: f})
	}
	return m
}

func vec3(v mgl64.Vec3) [3]float32 {
	return [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
}
