package convert

import (
	"fmt"
	gomath "math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/nifkit/pkg/anim"
	"github.com/Faultbox/nifkit/pkg/fault"
	"github.com/Faultbox/nifkit/pkg/math"
	"github.com/Faultbox/nifkit/pkg/nif"
	"github.com/Faultbox/nifkit/pkg/scene"
	"github.com/Faultbox/nifkit/pkg/weld"
)

// Limits of the geometry format.
const (
	maxShapeVertices = 1 << 16
	propertyEpsilon  = 1e-4
)

// mesh exports the mesh of obj as one shape per material below node.
// Vertices are multiplied by scale.
func (ex *exporter) mesh(obj *scene.Object, node nif.Ref, scale float64, st *skinTarget) error {
	m := obj.Mesh
	byMaterial := make(map[int][]int)
	for i, f := range m.Faces {
		byMaterial[f.Material] = append(byMaterial[f.Material], i)
	}
	indices := make([]int, 0, len(byMaterial))
	for mi := range byMaterial {
		indices = append(indices, mi)
	}
	slices.Sort(indices)

	for _, mi := range indices {
		var mat *scene.Material
		if mi >= 0 && mi < len(m.Materials) {
			mat = m.Materials[mi]
		}
		if mat != nil && len(mat.Textures) > 0 && len(m.UVLayers) == 0 {
			return &fault.ObjectError{
				Object:   obj.Name,
				Material: mat.Name,
				Err:      fault.Constraintf("textured material needs a UV layer"),
			}
		}
		if err := ex.shape(obj, node, scale, mat, byMaterial[mi], st); err != nil {
			return err
		}
	}
	return nil
}

// shape exports faces of obj's mesh as one TriShape.
func (ex *exporter) shape(obj *scene.Object, node nif.Ref, scale float64, mat *scene.Material, faces []int, st *skinTarget) error {
	m := obj.Mesh
	src := weld.Source{Positions: make([]math.Vec3, len(m.Vertices)), HasColors: m.HasColors}
	for i, v := range m.Vertices {
		src.Positions[i] = math.Vec3From(v.Mul(scale))
	}
	for _, fi := range faces {
		f := m.Faces[fi]
		if len(f.Verts) < 3 {
			continue
		}
		normal := faceNormal(m, f)
		for j := 1; j+1 < len(f.Verts); j++ {
			corners := [3]int{0, j, j + 1}
			if scale < 0 {
				corners[1], corners[2] = corners[2], corners[1]
			}
			var tri [3]weld.Corner
			for c, k := range corners {
				tri[c] = corner(m, f, k, normal)
			}
			src.Faces = append(src.Faces, tri)
		}
	}
	w := weld.Weld(src, weld.Options{KeyUV: true, KeyColor: m.HasColors})
	if len(w.Faces) == 0 {
		return nil
	}
	if len(w.Vertices) > maxShapeVertices {
		return fault.InObject(obj.Name, fault.Constraintf("%d vertices exceed the %d one shape can index", len(w.Vertices), maxShapeVertices))
	}

	data := &nif.TriShapeData{Vertices: w.Positions()}
	if len(m.Normals) > 0 {
		data.Normals = w.Normals()
	}
	for s := range m.UVLayers {
		data.UVSets = append(data.UVSets, w.UVSet(s))
	}
	if m.HasColors {
		data.Colors = w.Colors()
	}
	for _, tri := range w.Faces {
		data.Triangles = append(data.Triangles, nif.Triangle{uint16(tri[0]), uint16(tri[1]), uint16(tri[2])})
	}
	data.Center, data.Radius = weld.Bounds(data.Vertices)

	name := ""
	if owner := ex.doc.Name(node); owner != "" {
		name = fmt.Sprintf("Tri %s %d", owner, len(ex.doc.Children(node)))
	}
	shape := nif.NewTriShape(name)
	shape.Flags = nif.FlagsShape
	ref := ex.doc.Append(shape)
	if err := ex.doc.LinkChild(node, ref); err != nil {
		return err
	}
	if err := ex.doc.LinkData(ref, ex.doc.Append(data)); err != nil {
		return err
	}
	if mat != nil {
		if err := ex.materialProperties(ref, m, mat); err != nil {
			return fault.InObject(obj.Name, err)
		}
	}
	if st != nil {
		if err := ex.skin(ref, w, m, st); err != nil {
			return fault.InObject(obj.Name, err)
		}
	}
	if len(m.ShapeKeys) > 1 {
		if err := ex.morphs(obj, ref, w, scale); err != nil {
			return err
		}
	}
	return nil
}

func faceNormal(m *scene.Mesh, f scene.Face) mgl64.Vec3 {
	a, b, c := m.Vertices[f.Verts[0]], m.Vertices[f.Verts[1]], m.Vertices[f.Verts[2]]
	return unit(b.Sub(a).Cross(c.Sub(a)))
}

// corner returns corner k of face f as a weld corner.
func corner(m *scene.Mesh, f scene.Face, k int, flat mgl64.Vec3) weld.Corner {
	v := f.Verts[k]
	c := weld.Corner{Vertex: v, Normal: math.Vec3From(flat)}
	if f.Smooth && v < len(m.Normals) {
		c.Normal = math.Vec3From(m.Normals[v])
	}
	if len(m.Normals) == 0 {
		c.Normal = math.Vec3{}
	}
	c.UV = make([]math.Vec2, len(m.UVLayers))
	for s := range m.UVLayers {
		if s < len(f.UV) && k < len(f.UV[s]) {
			uv := f.UV[s][k]
			c.UV[s] = math.Vec2{X: float32(uv[0]), Y: float32(uv[1])}.FlipV()
		}
	}
	if m.HasColors && k < len(f.Colors) {
		col := f.Colors[k]
		c.Color = math.Color4{R: float32(col[0]), G: float32(col[1]), B: float32(col[2]), A: float32(col[3])}
	}
	return c
}

// materialProperties links the property blocks of mat to shape. Blocks are
// shared by every shape using the same material.
func (ex *exporter) materialProperties(shape nif.Ref, m *scene.Mesh, mat *scene.Material) error {
	props, ok := ex.properties[mat]
	if !ok {
		props = ex.newProperties(m, mat)
		ex.properties[mat] = props
	}
	for _, p := range props {
		if err := ex.doc.LinkProperty(shape, p); err != nil {
			return err
		}
	}
	return nil
}

func (ex *exporter) newProperties(m *scene.Mesh, mat *scene.Material) []nif.Ref {
	var props []nif.Ref
	if len(mat.Textures) > 0 {
		tp := nif.NewTexturing()
		tp.Flags = 1
		for _, t := range mat.Textures {
			if t.Slot < 0 || t.Slot >= nif.NumTextureSlots {
				ex.warn(mat.Name, "texture slot %d is not exported", t.Slot)
				continue
			}
			uv := max(slices.Index(m.UVLayers, t.UVLayer), 0)
			tp.Textures[t.Slot].Source = ex.doc.Append(nif.NewSourceTexture(storedTexture(t.Path)))
			tp.Textures[t.Slot].UVSet = uint32(uv)
		}
		props = append(props, ex.doc.Append(tp))
	}
	if gomath.Abs(mat.Alpha-1) > propertyEpsilon {
		props = append(props, ex.doc.Append(nif.NewAlpha()))
	}
	if mat.Spec > propertyEpsilon {
		props = append(props, ex.doc.Append(nif.NewSpecular()))
	}
	mp := nif.NewMaterial(mat.Name)
	mp.Diffuse = colorOf(mat.Diffuse)
	mp.Ambient = colorOf(mat.Diffuse.Mul(mat.Ambient))
	mp.Emissive = colorOf(mat.Diffuse.Mul(mat.Emit))
	mp.Specular = colorOf(mat.Specular)
	mp.Glossiness = float32(mat.Hardness) / 4
	mp.Alpha = float32(mat.Alpha)
	props = append(props, ex.doc.Append(mp))
	return props
}

func colorOf(c mgl64.Vec3) math.Color3 {
	return math.Color3{R: float32(c[0]), G: float32(c[1]), B: float32(c[2])}
}

// morphs writes the shape keys of obj as a morph controller on shape. The
// first key is the basis; the others are stored relative to it.
func (ex *exporter) morphs(obj *scene.Object, shape nif.Ref, w *weld.Mesh, scale float64) error {
	m := obj.Mesh
	basis := m.ShapeKeys[0].Vertices
	md := &nif.MorphData{NumVertices: len(w.Vertices), RelativeTargets: true}
	for i, sk := range m.ShapeKeys {
		if len(sk.Vertices) != len(m.Vertices) || len(basis) != len(m.Vertices) {
			return fault.InObject(obj.Name, fault.Constraintf("shape key %q has %d vertices, mesh has %d", sk.Name, len(sk.Vertices), len(m.Vertices)))
		}
		mo := nif.Morph{Name: sk.Name, Keys: nif.FloatKeys{Interpolation: nif.KeyLinear}, Vectors: make([]math.Vec3, len(w.Vertices))}
		for vi, v := range w.Vertices {
			p := sk.Vertices[v.Source]
			if i > 0 {
				p = p.Sub(basis[v.Source])
			}
			mo.Vectors[vi] = math.Vec3From(p.Mul(scale))
		}
		for _, k := range sk.Keys {
			mo.Keys.Keys = append(mo.Keys.Keys, nif.FloatKey{Time: float32(anim.Time(k.Frame, ex.fps)), Value: float32(k.Value)})
		}
		md.Morphs = append(md.Morphs, mo)
	}
	ctrl := nif.NewGeomMorpherController()
	ctrl.StartTime = float32(anim.Time(ex.sc.StartFrame, ex.fps))
	ctrl.StopTime = float32(anim.Time(ex.sc.EndFrame, ex.fps))
	cref := ex.doc.Append(ctrl)
	if err := ex.doc.LinkController(shape, cref); err != nil {
		return err
	}
	return ex.doc.LinkData(cref, ex.doc.Append(md))
}
