package convert

import (
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/nifkit/pkg/anim"
	"github.com/Faultbox/nifkit/pkg/collision"
	"github.com/Faultbox/nifkit/pkg/fault"
	"github.com/Faultbox/nifkit/pkg/math"
	"github.com/Faultbox/nifkit/pkg/nif"
	"github.com/Faultbox/nifkit/pkg/scene"
	"github.com/Faultbox/nifkit/pkg/transform"
)

// SceneToDocument builds a document from sc. On error no document is
// returned.
func SceneToDocument(sc *scene.Scene, opts Options) (*nif.Document, []fault.Warning, error) {
	if err := nif.CheckVersion(opts.Version, opts.UserVersion); err != nil {
		return nil, nil, err
	}
	ex := newExporter(sc, opts)
	if err := ex.run(); err != nil {
		return nil, nil, err
	}
	return ex.doc, ex.warnings, nil
}

type exporter struct {
	*session
	sc  *scene.Scene
	doc *nif.Document
	fps int

	properties map[*scene.Material][]nif.Ref
}

func newExporter(sc *scene.Scene, opts Options) *exporter {
	fps := opts.FPS
	if fps <= 0 {
		fps = sc.FPS
	}
	if fps <= 0 {
		fps = anim.DefaultFPS
	}
	return &exporter{
		session:    newSession(opts),
		sc:         sc,
		doc:        nif.New(opts.Version, opts.UserVersion),
		fps:        fps,
		properties: make(map[*scene.Material][]nif.Ref),
	}
}

func (ex *exporter) run() error {
	root := nif.NewNode(ex.opts.RootName)
	root.Flags = nif.FlagsNode
	ref := ex.doc.Append(root)
	if err := ex.doc.AddRoot(ref); err != nil {
		return err
	}
	if err := ex.children(ref, root.Name, ex.sc.Roots, 1/ex.k, nil); err != nil {
		return err
	}
	if len(ex.sc.TextKeys) > 0 {
		keys := make([]nif.TextKey, len(ex.sc.TextKeys))
		for i, k := range ex.sc.TextKeys {
			keys[i] = nif.TextKey{Time: float32(anim.Time(k.Frame, ex.fps)), Text: k.Text}
		}
		if err := ex.doc.LinkExtraData(ref, ex.doc.Append(nif.NewTextKeys(keys))); err != nil {
			return err
		}
	}
	ex.log.Debug("exported scene", zap.Int("blocks", ex.doc.Len()), zap.Int("fps", ex.fps))
	return nil
}

// children exports objs below parent. Collision primitives are gathered into
// one collision object on parent.
func (ex *exporter) children(parent nif.Ref, owner string, objs []*scene.Object, scale float64, st *skinTarget) error {
	var prims []collision.Primitive
	for _, c := range objs {
		if c.Kind == scene.KindCollision && c.Collision != nil {
			prims = append(prims, placedPrimitive(c, scale))
			continue
		}
		if err := ex.object(c, parent, scale, c.Matrix, st); err != nil {
			return err
		}
	}
	if len(prims) == 0 {
		return nil
	}
	if _, err := collision.AppendObject(ex.doc, parent, prims); err != nil {
		return fault.InObject(owner, err)
	}
	return nil
}

// placedPrimitive returns the primitive of c placed by c's matrix and scaled
// into document units.
func placedPrimitive(c *scene.Object, scale float64) collision.Primitive {
	p := *c.Collision
	p.Matrix = c.Matrix.Mul4(p.Matrix)
	p.Matrix.SetCol(3, p.Matrix.Col(3).Vec3().Mul(scale).Vec4(1))
	p.Vertices = scaled(p.Vertices, scale)
	return p
}

// node appends a tree node for obj placed by t. Node scale is written as 1;
// the caller folds t.Scale into what lies below.
func (ex *exporter) node(obj *scene.Object, parent nif.Ref, scale float64, t transform.Transform) (nif.Ref, error) {
	n := nif.NewNode(ex.sc.FullName(obj.Name))
	n.Flags = nif.FlagsNode
	if ex.channel(obj, obj.Name) != nil {
		n.Type = nif.NodeAnimation
		n.Flags = ex.animationFlags()
	}
	if obj.Hidden {
		n.Flags |= 1
	}
	n.Translation = math.Vec3From(t.Translation.Mul(scale))
	n.Rotation = math.Mat3From(t.Rotation)
	n.Scale = 1
	ref := ex.doc.Append(n)
	if err := ex.doc.LinkChild(parent, ref); err != nil {
		return nif.None, err
	}
	return ref, nil
}

func (ex *exporter) animationFlags() uint16 {
	if len(ex.sc.TextKeys) > 0 {
		return nif.FlagsTextKeyNode
	}
	return nif.FlagsAnimationNode
}

// channel returns the channel of name in obj's action, or nil.
func (ex *exporter) channel(obj *scene.Object, name string) *anim.Channel {
	if obj.Action == nil {
		return nil
	}
	return obj.Action.Channel(name)
}

// object exports obj and its subtree below parent. placement is obj's
// matrix relative to parent in scene units.
func (ex *exporter) object(obj *scene.Object, parent nif.Ref, scale float64, placement mgl64.Mat4, st *skinTarget) error {
	t, err := transform.Decompose(placement)
	if err != nil {
		return fault.InObject(obj.Name, err)
	}
	switch {
	case obj.Kind == scene.KindArmature:
		return ex.armature(obj, parent, scale, t)
	case obj.Kind == scene.KindCollision:
		return ex.collisionNode(obj, parent, scale, t)
	}

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
	if obj.Mesh != nil {
		if err := ex.mesh(obj, ref, inner, st); err != nil {
			return err
		}
	}
	return ex.children(ref, obj.Name, obj.Children, inner, nil)
}

// collisionNode exports a collision mesh as a RootCollisionNode.
func (ex *exporter) collisionNode(obj *scene.Object, parent nif.Ref, scale float64, t transform.Transform) error {
	n := nif.NewNode("")
	n.Type = nif.NodeRootCollision
	n.Flags = nif.FlagsCollisionNode
	n.Translation = math.Vec3From(t.Translation.Mul(scale))
	n.Rotation = math.Mat3From(t.Rotation)
	n.Scale = 1
	ref := ex.doc.Append(n)
	if err := ex.doc.LinkChild(parent, ref); err != nil {
		return err
	}
	inner := scale * t.Scale
	if obj.Mesh != nil {
		if err := ex.mesh(obj, ref, inner, nil); err != nil {
			return err
		}
	}
	return ex.children(ref, obj.Name, obj.Children, inner, nil)
}

// keyframes writes ch as a keyframe controller on ref. Translations are
// multiplied by scale.
func (ex *exporter) keyframes(ref nif.Ref, ch anim.Channel, r anim.Retargeter, scale float64) error {
	track := r.ToTrack(ch)
	for i := range track.Translations {
		track.Translations[i].Value = track.Translations[i].Value.Mul(scale)
	}
	ctrl := nif.NewKeyframeController()
	ctrl.StartTime = float32(anim.Time(ex.sc.StartFrame, ex.fps))
	ctrl.StopTime = float32(anim.Time(ex.sc.EndFrame, ex.fps))
	cref := ex.doc.Append(ctrl)
	if err := ex.doc.LinkController(ref, cref); err != nil {
		return err
	}
	return ex.doc.LinkData(cref, ex.doc.Append(track.Data()))
}
