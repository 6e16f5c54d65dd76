package skeleton

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/nifkit/pkg/nif"
	"github.com/Faultbox/nifkit/pkg/transform"
)

// Realign selects how bone rest matrices are derived from node transforms.
type Realign int

const (
	// RealignNone keeps the node's armature-space matrix.
	RealignNone Realign = iota
	// RealignKeepRest uses an unrotated rest matrix at the bone head.
	RealignKeepRest
	// RealignAuto rotates each bone so it points along its children.
	RealignAuto
)

func (r Realign) String() string {
	switch r {
	case RealignNone:
		return "none"
	case RealignKeepRest:
		return "keep"
	case RealignAuto:
		return "auto"
	default:
		return fmt.Sprintf("Unknown(%d)", int(r))
	}
}

// ParseRealign parses a realign mode name.
func ParseRealign(s string) (Realign, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return RealignNone, nil
	case "keep":
		return RealignKeepRest, nil
	case "auto":
		return RealignAuto, nil
	}
	return 0, fmt.Errorf("unknown realign mode %q", s)
}

const (
	// nubLength is the length given to bones without child bones.
	nubLength = 5
	// zeroLengthEpsilon decides when a bone collapsed onto its head.
	zeroLengthEpsilon = 0.005
)

// BoneRest is the rest pose of one bone in armature space.
type BoneRest struct {
	Ref    nif.Ref
	Parent nif.Ref // parent bone, None when attached to the armature
	Head   mgl64.Vec3
	Tail   mgl64.Vec3

	// Matrix is the editor rest matrix.
	Matrix transform.Transform
	// Extra maps the node transform onto the rest matrix: Matrix = node ∘ Extra.
	Extra transform.Transform
	// Correction is the axis rotation included in Extra.
	Correction mgl64.Mat3
}

// Rest computes the rest pose of every bone of armature, parents first.
func (m *Mapper) Rest(local transform.LocalFunc, armature nif.Ref, realign Realign) []BoneRest {
	var out []BoneRest
	tails := make(map[nif.Ref]BoneRest)

	var visit func(bone, parent nif.Ref)
	visit = func(bone, parent nif.Ref) {
		rest := m.restOf(local, armature, bone, parent, realign, tails)
		tails[bone] = rest
		out = append(out, rest)
		for _, c := range m.ChildBones(bone) {
			visit(c, bone)
		}
	}
	for _, c := range m.ChildBones(armature) {
		visit(c, nif.None)
	}
	return out
}

func (m *Mapper) restOf(local transform.LocalFunc, armature, bone, parent nif.Ref, realign Realign, done map[nif.Ref]BoneRest) BoneRest {
	old := transform.Relative(local, m.parents, bone, armature)
	rest := BoneRest{Ref: bone, Parent: parent, Head: old.Translation, Correction: mgl64.Ident3()}

	children := m.ChildBones(bone)
	if len(children) > 0 {
		var sum mgl64.Vec3
		for _, c := range children {
			sum = sum.Add(transform.Relative(local, m.parents, c, armature).Translation)
		}
		rest.Tail = sum.Mul(1 / float64(len(children)))
	} else {
		rest.Tail = rest.Head
	}

	if realign == RealignAuto {
		rest.Correction = m.correctionOf(local, bone)
	}

	if rest.Tail.Sub(rest.Head).Len()*axisResolution < zeroLengthEpsilon {
		dir := mgl64.Vec3{1, 0, 0}
		if p, ok := done[parent]; ok && realign != RealignAuto {
			dir = rest.Head.Sub(p.Tail)
			if dir.Len() < zeroLengthEpsilon {
				dir = p.Tail.Sub(p.Head)
			}
			if dir.Len() < zeroLengthEpsilon {
				dir = mgl64.Vec3{1, 0, 0}
			}
			dir = dir.Normalize()
		}
		rest.Tail = rest.Head.Add(dir.Mul(nubLength * old.Scale))
	}

	switch realign {
	case RealignKeepRest:
		rest.Matrix = transform.Identity()
		rest.Matrix.Translation = rest.Head
	case RealignAuto:
		rest.Matrix = old
		rest.Matrix.Rotation = old.Rotation.Mul3(rest.Correction)
	default:
		rest.Matrix = old
	}
	rest.Extra = old.Inverse().Mul(rest.Matrix)
	return rest
}

// correctionOf classifies the direction of the child bones of bone. Bones
// without child bones take the correction of their parent bone.
func (m *Mapper) correctionOf(local transform.LocalFunc, bone nif.Ref) mgl64.Mat3 {
	if !m.IsBone(bone) {
		return mgl64.Ident3()
	}
	children := m.ChildBones(bone)
	if len(children) == 0 {
		parent := m.parents.Parent(bone)
		if !m.IsBone(parent) {
			return mgl64.Ident3()
		}
		bone = parent
		children = m.ChildBones(bone)
	}
	var sum mgl64.Vec3
	for _, c := range children {
		sum = sum.Add(local(c).Translation)
	}
	return Correction(sum)
}

// BindPose returns local transform overrides that move the bones of the skin
// on geom into the pose they had when the skin was bound.
//
// A bone's pose relative to the skeleton root is G ∘ O⁻¹ ∘ B⁻¹, where G places
// the geometry under the skeleton root, O is the skin's overall offset and B
// the bone's bind offset.
func BindPose(doc *nif.Document, local transform.LocalFunc, parents nif.ParentTable, geom nif.Ref) (map[nif.Ref]transform.Transform, error) {
	shape, err := nif.Get[*nif.TriShape](doc, geom)
	if err != nil {
		return nil, err
	}
	skin, err := nif.Get[*nif.SkinInstance](doc, shape.Skin)
	if err != nil {
		return nil, err
	}
	data, err := nif.Get[*nif.SkinData](doc, skin.Data)
	if err != nil {
		return nil, err
	}
	if len(data.Bones) != len(skin.Bones) {
		return nil, fmt.Errorf("skin of %q: %d bones but %d bind offsets", shape.Name, len(skin.Bones), len(data.Bones))
	}

	overrides := make(map[nif.Ref]transform.Transform)
	posed := func(ref nif.Ref) transform.Transform {
		if t, ok := overrides[ref]; ok {
			return t
		}
		return local(ref)
	}

	g := transform.Relative(local, parents, geom, skin.SkeletonRoot)
	overall := transform.FromSkin(data.Transform).Inverse()

	order := make([]int, len(skin.Bones))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return len(parents.Ancestors(skin.Bones[a])) - len(parents.Ancestors(skin.Bones[b]))
	})
	for _, i := range order {
		bone := skin.Bones[i]
		world := g.Mul(overall).Mul(transform.FromSkin(data.Bones[i].Transform).Inverse())
		parentWorld := transform.Relative(posed, parents, parents.Parent(bone), skin.SkeletonRoot)
		overrides[bone] = parentWorld.Inverse().Mul(world)
	}
	return overrides, nil
}

// DeformVertices returns the vertices and normals of a skinned geometry
// posed by local, in the geometry's own space.
func DeformVertices(doc *nif.Document, local transform.LocalFunc, parents nif.ParentTable, geom nif.Ref) ([]mgl64.Vec3, []mgl64.Vec3, error) {
	shape, err := nif.Get[*nif.TriShape](doc, geom)
	if err != nil {
		return nil, nil, err
	}
	data, err := nif.Get[*nif.TriShapeData](doc, shape.Data)
	if err != nil {
		return nil, nil, err
	}
	verts := make([]mgl64.Vec3, len(data.Vertices))
	for i, v := range data.Vertices {
		verts[i] = v.Mgl()
	}
	norms := make([]mgl64.Vec3, len(data.Normals))
	for i, n := range data.Normals {
		norms[i] = n.Mgl()
	}
	if shape.Skin == nif.None {
		return verts, norms, nil
	}
	skin, err := nif.Get[*nif.SkinInstance](doc, shape.Skin)
	if err != nil {
		return nil, nil, err
	}
	sd, err := nif.Get[*nif.SkinData](doc, skin.Data)
	if err != nil {
		return nil, nil, err
	}

	geomInv := transform.Relative(local, parents, geom, skin.SkeletonRoot).Inverse()
	overall := transform.FromSkin(sd.Transform)

	outV := make([]mgl64.Vec3, len(verts))
	outN := make([]mgl64.Vec3, len(norms))
	total := make([]float64, len(verts))
	for i, bone := range skin.Bones {
		if i >= len(sd.Bones) {
			break
		}
		world := transform.Relative(local, parents, bone, skin.SkeletonRoot)
		m := geomInv.Mul(world).Mul(transform.FromSkin(sd.Bones[i].Transform)).Mul(overall)
		for _, w := range sd.Bones[i].Weights {
			vi := int(w.Index)
			if vi >= len(verts) {
				continue
			}
			wt := float64(w.Weight)
			outV[vi] = outV[vi].Add(m.Apply(verts[vi]).Mul(wt))
			if vi < len(norms) {
				outN[vi] = outN[vi].Add(m.Rotation.Mul3x1(norms[vi]).Mul(wt))
			}
			total[vi] += wt
		}
	}
	for i := range outV {
		if total[i] == 0 {
			outV[i] = verts[i]
			if i < len(norms) {
				outN[i] = norms[i]
			}
			continue
		}
		if i < len(norms) && outN[i].Len() > 0 {
			outN[i] = outN[i].Normalize()
		}
	}
	return outV, outN, nil
}
