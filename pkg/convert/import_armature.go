package convert

import (
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/nifkit/pkg/anim"
	"github.com/Faultbox/nifkit/pkg/nif"
	"github.com/Faultbox/nifkit/pkg/scene"
	"github.com/Faultbox/nifkit/pkg/skeleton"
	"github.com/Faultbox/nifkit/pkg/transform"
)

// extraEpsilon decides when a bone's extra matrix is worth keeping.
const extraEpsilon = 1e-6

// armatureCtx is an armature being imported.
type armatureCtx struct {
	root nif.Ref
	obj  *scene.Object
}

// armature imports the armature rooted at ref with its bones, their
// animation and everything parented below it.
func (im *importer) armature(ref nif.Ref) (*scene.Object, error) {
	node, err := nif.Get[*nif.Node](im.doc, ref)
	if err != nil {
		return nil, err
	}
	obj := scene.NewObject(im.name(ref, maxObjectName), scene.KindArmature)
	obj.Matrix = transform.Compose(im.local(ref))
	obj.Hidden = node.Hidden()
	obj.Armature = &scene.Armature{}

	var action scene.Action
	if t, ok := im.track(ref); ok {
		r := anim.NewRetargeter(im.fps, transform.Identity())
		action.Channels = append(action.Channels, r.ToChannel(obj.Name, t))
	}

	rests := im.bones.Rest(im.local, ref, im.opts.Realign)
	im.log.Debug("importing armature", zap.String("name", obj.Name), zap.Int("bones", len(rests)))
	for _, r := range rests {
		im.rests[r.Ref] = r
		name := im.name(r.Ref, maxBoneName)
		bone := &scene.Bone{Name: name, Head: r.Head, Tail: r.Tail, Matrix: transform.Compose(r.Matrix)}
		if r.Parent != nif.None {
			bone.Parent = im.name(r.Parent, maxBoneName)
		}
		obj.Armature.Bones = append(obj.Armature.Bones, bone)
		if !r.Extra.IsIdentity(extraEpsilon) {
			im.sc.BoneExtra[name] = transform.Compose(r.Extra)
		}
		if t, ok := im.track(r.Ref); ok {
			rt := anim.Retargeter{FPS: im.fps, Bind: im.local(r.Ref), Correction: r.Extra.Rotation}
			action.Channels = append(action.Channels, rt.ToChannel(name, t))
		}
	}
	if len(action.Channels) > 0 {
		obj.Action = &action
	}

	arm := &armatureCtx{root: ref, obj: obj}
	if err := im.armatureBranch(arm, ref); err != nil {
		return nil, err
	}
	im.collision(obj, node.Collision)
	im.textKeys(ref)
	return obj, nil
}

// armatureBranch imports the geometry below ref, placing each object on its
// closest bone.
func (im *importer) armatureBranch(arm *armatureCtx, ref nif.Ref) error {
	if ref != arm.root && im.bones.IsArmatureRoot(ref) {
		sub, err := im.armature(ref)
		if err != nil {
			return err
		}
		parent := im.branchParent(arm, ref)
		im.placeInArmature(arm, sub, parent, transform.Relative(im.local, im.parents, ref, parent))
		return nil
	}

	blk, err := im.doc.Resolve(ref)
	if err != nil {
		return err
	}
	switch b := blk.(type) {
	case *nif.TriShape:
		if im.opts.SkeletonMode == skeleton.SkeletonOnly {
			return nil
		}
		parent := im.branchParent(arm, ref)
		obj := scene.NewObject(im.name(ref, maxObjectName), scene.KindMesh)
		if obj.Mesh, err = im.mesh(obj.Name, []nif.Ref{ref}, parent); err != nil {
			return err
		}
		obj.Hidden = b.Hidden()
		im.placeInArmature(arm, obj, parent, transform.Identity())

	case *nif.Node:
		var group []nif.Ref
		if im.opts.SkeletonMode != skeleton.SkeletonOnly {
			group = skeleton.Grouped(im.doc, ref)
		}
		if len(group) > 0 {
			parent := im.branchParent(arm, group[0])
			obj, _, err := im.groupObject(ref, b, parent)
			if err != nil {
				return err
			}
			obj.Hidden = b.Hidden()
			im.placeInArmature(arm, obj, parent, transform.Identity())
		}
		for _, c := range b.Children {
			if slices.Contains(group, c) {
				continue
			}
			if err := im.armatureBranch(arm, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// branchParent is the closest bone above ref, or the armature root.
func (im *importer) branchParent(arm *armatureCtx, ref nif.Ref) nif.Ref {
	if b := im.bones.ClosestBone(ref, arm.root); b != nif.None {
		return b
	}
	return arm.root
}

// placeInArmature parents obj to the armature or to bone parent. place is
// the object's transform relative to parent.
//
// Bone children are placed relative to the bone's rest matrix moved to the
// bone tail: matrix = tail⁻¹ ∘ bone ∘ place, with bone the armature-space
// node transform of the bone.
func (im *importer) placeInArmature(arm *armatureCtx, obj *scene.Object, parent nif.Ref, place transform.Transform) {
	defer arm.obj.Add(obj)
	if parent == arm.root {
		obj.Matrix = transform.Compose(place)
		return
	}
	rest, ok := im.rests[parent]
	if !ok {
		bone := transform.Relative(im.local, im.parents, parent, arm.root)
		obj.Matrix = transform.Compose(bone.Mul(place))
		return
	}
	tail := rest.Matrix
	tail.Translation = rest.Tail
	bone := transform.Relative(im.local, im.parents, parent, arm.root)
	obj.Matrix = transform.Compose(tail.Inverse().Mul(bone).Mul(place))
	obj.ParentBone = im.name(parent, maxBoneName)
}
