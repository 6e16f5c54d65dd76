package convert

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/nifkit/pkg/anim"
	"github.com/Faultbox/nifkit/pkg/fault"
	"github.com/Faultbox/nifkit/pkg/math"
	"github.com/Faultbox/nifkit/pkg/nif"
	"github.com/Faultbox/nifkit/pkg/scene"
	"github.com/Faultbox/nifkit/pkg/transform"
	"github.com/Faultbox/nifkit/pkg/weld"
)

// skinTarget is an exported armature that meshes can be skinned to.
type skinTarget struct {
	root  nif.Ref
	bones map[string]nif.Ref
	rest  map[string]transform.Transform // rest matrix, armature space
	node  map[string]transform.Transform // node transform, armature space
	tail  map[string]mgl64.Vec3
}

// armature exports obj as a node with one child node per bone. Bone nodes
// get the rest matrix with the extra matrix undone.
func (ex *exporter) armature(obj *scene.Object, parent nif.Ref, scale float64, t transform.Transform) error {
	ref, err := ex.node(obj, parent, scale, t)
	if err != nil {
		return err
	}
	if ch := ex.channel(obj, obj.Name); ch != nil {
		if err := ex.keyframes(ref, *ch, anim.NewRetargeter(ex.fps, transform.Identity()), scale); err != nil {
			return err
		}
	}
	inner := scale * t.Scale
	st := &skinTarget{
		root:  ref,
		bones: make(map[string]nif.Ref),
		rest:  make(map[string]transform.Transform),
		node:  make(map[string]transform.Transform),
		tail:  make(map[string]mgl64.Vec3),
	}
	if obj.Armature != nil {
		if err := ex.bones(obj, st, "", ref, transform.Identity(), inner); err != nil {
			return err
		}
	}

	for _, c := range obj.Children {
		if c.ParentBone == "" || (c.Kind == scene.KindCollision && c.Collision != nil) {
			continue
		}
		bone, ok := st.bones[c.ParentBone]
		if !ok {
			return fault.InObject(c.Name, fmt.Errorf("%w: parent bone %q is not in armature %q", fault.ErrStructural, c.ParentBone, obj.Name))
		}
		tail := st.rest[c.ParentBone]
		tail.Translation = st.tail[c.ParentBone]
		rel := st.node[c.ParentBone].Inverse().Mul(tail)
		if err := ex.object(c, bone, inner, transform.Compose(rel).Mul4(c.Matrix), st); err != nil {
			return err
		}
	}
	var loose []*scene.Object
	for _, c := range obj.Children {
		if c.ParentBone == "" || (c.Kind == scene.KindCollision && c.Collision != nil) {
			loose = append(loose, c)
		}
	}
	return ex.children(ref, obj.Name, loose, inner, st)
}

// bones exports the bones whose parent is parentName below parentRef.
// parentNode is the parent's node transform in armature space.
func (ex *exporter) bones(obj *scene.Object, st *skinTarget, parentName string, parentRef nif.Ref, parentNode transform.Transform, scale float64) error {
	for _, b := range obj.Armature.Children(parentName) {
		rest, err := transform.Decompose(b.Matrix)
		if err != nil {
			return fault.InObject(b.Name, err)
		}
		extra := transform.Identity()
		if m, ok := ex.sc.BoneExtra[b.Name]; ok {
			if extra, err = transform.Decompose(m); err != nil {
				return fault.InObject(b.Name, err)
			}
		}
		node := rest.Mul(extra.Inverse())
		local := parentNode.Inverse().Mul(node)

		n := nif.NewNode(ex.sc.FullName(b.Name))
		n.Flags = nif.FlagsNode
		ch := ex.channel(obj, b.Name)
		if ch != nil {
			n.Type = nif.NodeAnimation
			n.Flags = ex.animationFlags()
		}
		stored := local
		stored.Translation = stored.Translation.Mul(scale)
		transform.ToNode(stored, &n.AVObject)
		ref := ex.doc.Append(n)
		if err := ex.doc.LinkChild(parentRef, ref); err != nil {
			return err
		}
		if ch != nil {
			r := anim.Retargeter{FPS: ex.fps, Bind: local, Correction: extra.Rotation}
			if err := ex.keyframes(ref, *ch, r, scale); err != nil {
				return err
			}
		}

		st.bones[b.Name] = ref
		st.rest[b.Name] = rest
		st.node[b.Name] = node
		st.tail[b.Name] = b.Tail
		if err := ex.bones(obj, st, b.Name, ref, node, scale); err != nil {
			return err
		}
	}
	return nil
}

// skin binds shape to the bones named by the vertex groups of m. The skin
// offset is the identity, so each bone's bind offset is W⁻¹ ∘ G with W the
// bone and G the shape relative to the armature node.
func (ex *exporter) skin(shape nif.Ref, w *weld.Mesh, m *scene.Mesh, st *skinTarget) error {
	var names []string
	influences := make([][]weld.Influence, len(m.Vertices))
	for _, g := range m.Groups {
		if _, ok := st.bones[g.Name]; !ok {
			continue
		}
		bi := len(names)
		names = append(names, g.Name)
		for _, gw := range g.Weights {
			if gw.Vertex < 0 || gw.Vertex >= len(influences) {
				continue
			}
			influences[gw.Vertex] = append(influences[gw.Vertex], weld.Influence{Bone: bi, Weight: float32(gw.Weight)})
		}
	}
	if len(names) == 0 {
		return nil
	}

	parents := nif.Parents(ex.doc, nif.None)
	local := transform.DocLocal(ex.doc)
	g := transform.Relative(local, parents, shape, st.root)
	positions := w.Positions()

	inst := nif.NewSkinInstance()
	inst.SkeletonRoot = st.root
	data := &nif.SkinData{Transform: nif.IdentitySkinTransform()}
	for bi, weights := range w.TransferWeights(influences, len(names)) {
		bone := st.bones[names[bi]]
		inst.Bones = append(inst.Bones, bone)
		offset := transform.Relative(local, parents, bone, st.root).Inverse().Mul(g)
		sb := nif.SkinBone{Transform: transform.ToSkin(offset)}
		pts := make([]math.Vec3, 0, len(weights))
		for _, bw := range weights {
			sb.Weights = append(sb.Weights, nif.SkinWeight{Index: uint16(bw.Vertex), Weight: bw.Weight})
			pts = append(pts, math.Vec3From(offset.Apply(positions[bw.Vertex].Mgl())))
		}
		sb.Center, sb.Radius = weld.Bounds(pts)
		data.Bones = append(data.Bones, sb)
	}

	ref := ex.doc.Append(inst)
	if err := ex.doc.LinkData(ref, ex.doc.Append(data)); err != nil {
		return err
	}
	return ex.doc.LinkSkin(shape, ref)
}
