package convert

import (
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/nifkit/pkg/anim"
	"github.com/Faultbox/nifkit/pkg/fault"
	"github.com/Faultbox/nifkit/pkg/math"
	"github.com/Faultbox/nifkit/pkg/nif"
	"github.com/Faultbox/nifkit/pkg/scene"
	"github.com/Faultbox/nifkit/pkg/transform"
	"github.com/Faultbox/nifkit/pkg/weld"
)

// colorEpsilon is the smallest diffuse channel used for colour ratios.
const colorEpsilon = 1e-4

// uvLayerName names the editor layer of UV set n.
func uvLayerName(n int) string {
	if n == 0 {
		return "UVTex"
	}
	return fmt.Sprintf("UVTex.%03d", n)
}

// morphSource is a shape with morph targets inside a joined mesh.
type morphSource struct {
	offset int
	weld   *weld.Mesh
	place  transform.Transform
	data   *nif.MorphData
}

// mesh joins the geometry of shapes, placed relative to space.
func (im *importer) mesh(object string, shapes []nif.Ref, space nif.Ref) (*scene.Mesh, error) {
	m := &scene.Mesh{}
	var morphs []morphSource
	normals := false
	for _, ref := range shapes {
		has, err := im.appendShape(m, ref, space, &morphs)
		if err != nil {
			return nil, fault.InObject(object, err)
		}
		normals = normals || has
	}
	if !normals {
		m.Normals = nil
	}
	for i := range m.Faces {
		f := &m.Faces[i]
		for len(f.UV) < len(m.UVLayers) {
			f.UV = append(f.UV, make([]mgl64.Vec2, len(f.Verts)))
		}
		if m.HasColors && len(f.Colors) == 0 {
			f.Colors = make([]mgl64.Vec4, len(f.Verts))
			for c := range f.Colors {
				f.Colors[c] = mgl64.Vec4{1, 1, 1, 1}
			}
		}
	}
	im.shapeKeys(object, m, morphs)
	return m, nil
}

// appendShape welds the shape at ref into m and reports whether it had normals.
func (im *importer) appendShape(m *scene.Mesh, ref, space nif.Ref, morphs *[]morphSource) (bool, error) {
	shape, err := nif.Get[*nif.TriShape](im.doc, ref)
	if err != nil {
		return false, err
	}
	data, err := nif.Get[*nif.TriShapeData](im.doc, shape.Data)
	if err != nil {
		return false, fmt.Errorf("shape %q: %w", shape.Name, err)
	}

	verts := make([]mgl64.Vec3, len(data.Vertices))
	for i, v := range data.Vertices {
		verts[i] = v.Mgl()
	}
	norms := make([]mgl64.Vec3, len(data.Normals))
	for i, n := range data.Normals {
		norms[i] = n.Mgl()
	}
	if d, ok := im.deformed[ref]; ok {
		verts, norms = d.verts, d.norms
	}
	if len(norms) != 0 && len(norms) != len(verts) {
		return false, fault.Formatf("shape %q: %d normals for %d vertices", shape.Name, len(norms), len(verts))
	}
	for s, set := range data.UVSets {
		if len(set) != len(verts) {
			return false, fault.Formatf("shape %q: UV set %d has %d entries for %d vertices", shape.Name, s, len(set), len(verts))
		}
	}
	hasColors := len(data.Colors) == len(verts) && len(verts) > 0

	place := transform.Relative(im.local, im.parents, ref, space)
	src := weld.Source{Positions: make([]math.Vec3, len(verts)), HasColors: hasColors}
	for i, v := range verts {
		src.Positions[i] = math.Vec3From(place.Apply(v.Mul(im.k)))
	}
	for ti, tri := range data.Triangles {
		var face [3]weld.Corner
		for c, vi := range tri {
			idx := int(vi)
			if idx >= len(verts) {
				return false, fault.Formatf("shape %q: triangle %d uses vertex %d of %d", shape.Name, ti, idx, len(verts))
			}
			face[c] = weld.Corner{Vertex: idx}
			if len(norms) > 0 {
				face[c].Normal = math.Vec3From(unit(place.ApplyDir(norms[idx])))
			}
		}
		src.Faces = append(src.Faces, face)
	}
	w := weld.Weld(src, weld.Options{})

	offset := len(m.Vertices)
	for _, v := range w.Vertices {
		m.Vertices = append(m.Vertices, v.Position.Mgl())
		m.Normals = append(m.Normals, v.Normal.Mgl())
	}
	for len(m.UVLayers) < len(data.UVSets) {
		m.UVLayers = append(m.UVLayers, uvLayerName(len(m.UVLayers)))
	}
	m.HasColors = m.HasColors || hasColors

	material := im.materialIndex(m, ref, len(data.UVSets) > 0)
	for fi, ef := range w.FaceMap {
		if ef < 0 {
			continue
		}
		tri := data.Triangles[fi]
		f := scene.Face{Verts: make([]int, 3), Material: material, Smooth: len(norms) > 0}
		f.UV = make([][]mgl64.Vec2, len(data.UVSets))
		for c, vi := range w.Faces[ef] {
			f.Verts[c] = offset + vi
			sv := int(tri[c])
			for s, set := range data.UVSets {
				uv := set[sv].FlipV()
				f.UV[s] = append(f.UV[s], mgl64.Vec2{float64(uv.X), float64(uv.Y)})
			}
			if hasColors {
				col := data.Colors[sv]
				f.Colors = append(f.Colors, mgl64.Vec4{float64(col.R), float64(col.G), float64(col.B), float64(col.A)})
			}
		}
		m.Faces = append(m.Faces, f)
	}
	if w.Degenerate+w.Duplicate > 0 {
		im.log.Debug("dropped faces",
			zap.String("shape", shape.Name),
			zap.Int("degenerate", w.Degenerate),
			zap.Int("duplicate", w.Duplicate))
	}

	if err := im.skinGroups(m, shape, w, offset); err != nil {
		return false, err
	}
	if im.opts.ImportAnimation {
		if _, ctrl, ok := nif.FindController[*nif.GeomMorpherController](im.doc, ref); ok {
			if md, err := nif.Get[*nif.MorphData](im.doc, ctrl.Data); err == nil && len(md.Morphs) > 0 {
				*morphs = append(*morphs, morphSource{offset: offset, weld: w, place: place, data: md})
			}
		}
	}
	return len(norms) > 0, nil
}

// skinGroups adds the skin weights of shape as vertex groups named after
// the bones.
func (im *importer) skinGroups(m *scene.Mesh, shape *nif.TriShape, w *weld.Mesh, offset int) error {
	if shape.Skin == nif.None {
		return nil
	}
	skin, err := nif.Get[*nif.SkinInstance](im.doc, shape.Skin)
	if err != nil {
		return err
	}
	sd, err := nif.Get[*nif.SkinData](im.doc, skin.Data)
	if err != nil {
		return err
	}
	for i, bone := range skin.Bones {
		if i >= len(sd.Bones) {
			break
		}
		g := m.Group(im.name(bone, maxBoneName))
		for _, sw := range sd.Bones[i].Weights {
			if int(sw.Index) >= len(w.VertexMap) {
				continue
			}
			for _, v := range w.VertexMap[sw.Index] {
				g.Weights = append(g.Weights, scene.GroupWeight{Vertex: offset + v, Weight: float64(sw.Weight)})
			}
		}
	}
	return nil
}

// shapeKeys turns morph targets into shape keys over the whole mesh. Shapes
// whose morph count differs from the first are skipped.
func (im *importer) shapeKeys(object string, m *scene.Mesh, morphs []morphSource) {
	if len(morphs) == 0 {
		return
	}
	first := morphs[0].data
	keys := make([]scene.ShapeKey, len(first.Morphs))
	for i, mo := range first.Morphs {
		keys[i].Name = mo.Name
		if keys[i].Name == "" {
			keys[i].Name = fmt.Sprintf("Key %d", i)
			if i == 0 {
				keys[i].Name = "Basis"
			}
		}
		keys[i].Vertices = slices.Clone(m.Vertices)
		for _, k := range mo.Keys.Keys {
			keys[i].Keys = append(keys[i].Keys, anim.ScalarFrame{Frame: anim.Frame(float64(k.Time), im.fps), Value: float64(k.Value)})
		}
	}
	for _, ms := range morphs {
		if len(ms.data.Morphs) != len(keys) {
			im.warn(object, "morph targets of joined shapes differ, skipping %d targets", len(ms.data.Morphs))
			continue
		}
		base := ms.data.Morphs[0].Vectors
		for i, mo := range ms.data.Morphs {
			for vi, v := range ms.weld.Vertices {
				if v.Source >= len(base) || v.Source >= len(mo.Vectors) {
					continue
				}
				p := base[v.Source].Mgl()
				if i > 0 {
					if ms.data.RelativeTargets {
						p = p.Add(mo.Vectors[v.Source].Mgl())
					} else {
						p = mo.Vectors[v.Source].Mgl()
					}
				}
				keys[i].Vertices[ms.offset+vi] = ms.place.Apply(p.Mul(im.k))
			}
		}
	}
	m.ShapeKeys = keys
}

// materialKey identifies the property combination of one material.
type materialKey struct {
	mat, tex, alpha, spec nif.Ref
}

// materialIndex returns the index in m of the material of shape ref, adding
// it when new. Shapes without a material use index 0.
func (im *importer) materialIndex(m *scene.Mesh, ref nif.Ref, hasUV bool) int {
	key := materialKey{
		mat:   im.doc.PropertyOfKind(ref, nif.KindMaterial),
		tex:   nif.None,
		alpha: im.doc.PropertyOfKind(ref, nif.KindAlpha),
		spec:  im.doc.PropertyOfKind(ref, nif.KindSpecular),
	}
	if key.mat == nif.None {
		return 0
	}
	if hasUV {
		key.tex = im.doc.PropertyOfKind(ref, nif.KindTexturing)
	}
	mat, ok := im.materials[key]
	if !ok {
		mat = im.material(key)
		im.materials[key] = mat
	}
	if i := slices.Index(m.Materials, mat); i >= 0 {
		return i
	}
	m.Materials = append(m.Materials, mat)
	return len(m.Materials) - 1
}

// importSlots are read in this order.
var importSlots = []nif.TextureSlot{nif.SlotBase, nif.SlotGlow, nif.SlotBump, nif.SlotGloss, nif.SlotDark, nif.SlotDetail}

func (im *importer) material(key materialKey) *scene.Material {
	mp, _ := nif.Lookup[*nif.MaterialProperty](im.doc, key.mat)
	name := mp.Name
	if name == "" {
		name = "noname"
	}
	mat := scene.NewMaterial(im.matNames.unique(name, maxObjectName))
	mat.Diffuse = color3(mp.Diffuse)
	mat.Specular = color3(mp.Specular)
	mat.Ambient = ratio(mp.Ambient, mp.Diffuse)
	mat.Emit = ratio(mp.Emissive, mp.Diffuse)
	mat.Hardness = min(max(int(mp.Glossiness*4), 1), 511)
	mat.Alpha = 1
	if key.alpha != nif.None {
		mat.Alpha = float64(mp.Alpha)
	}
	if key.spec != nif.None {
		mat.Spec = 1
	}

	tp, ok := nif.Lookup[*nif.TexturingProperty](im.doc, key.tex)
	if !ok {
		return mat
	}
	for _, slot := range importSlots {
		desc := tp.Textures[slot]
		if desc.Source == nif.None {
			continue
		}
		file, ok := im.texture(desc.Source, mat.Name)
		if !ok {
			continue
		}
		mat.Textures = append(mat.Textures, scene.Texture{Slot: slot, Path: file, UVLayer: uvLayerName(int(desc.UVSet))})
	}
	return mat
}

// texture returns the file of a source texture block.
func (im *importer) texture(ref nif.Ref, material string) (string, bool) {
	if file, ok := im.textures[ref]; ok {
		return file, file != ""
	}
	st, err := nif.Get[*nif.SourceTexture](im.doc, ref)
	switch {
	case err != nil:
		im.warn(material, "texture %d: %v", ref, err)
		im.textures[ref] = ""
	case !st.External:
		im.warn(material, "embedded texture data is not imported")
		im.textures[ref] = ""
	default:
		im.textures[ref] = im.findTexture(st.FileName)
	}
	return im.textures[ref], im.textures[ref] != ""
}

func unit(v mgl64.Vec3) mgl64.Vec3 {
	if v.Len() == 0 {
		return v
	}
	return v.Normalize()
}

func color3(c math.Color3) mgl64.Vec3 {
	return mgl64.Vec3{float64(c.R), float64(c.G), float64(c.B)}
}

// ratio is the average share of c in the diffuse channels that are lit,
// at most 1.
func ratio(c, diffuse math.Color3) float64 {
	cs := [3]float32{c.R, c.G, c.B}
	var sum float64
	var n int
	for i, d := range [3]float32{diffuse.R, diffuse.G, diffuse.B} {
		if d > colorEpsilon {
			sum += float64(cs[i] / d)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return min(sum/float64(n), 1)
}
