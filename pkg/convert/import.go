package convert

import (
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/nifkit/pkg/anim"
	"github.com/Faultbox/nifkit/pkg/collision"
	"github.com/Faultbox/nifkit/pkg/fault"
	"github.com/Faultbox/nifkit/pkg/nif"
	"github.com/Faultbox/nifkit/pkg/scene"
	"github.com/Faultbox/nifkit/pkg/skeleton"
	"github.com/Faultbox/nifkit/pkg/transform"
)

// collisionWeld merges vertices of RootCollisionNode meshes.
const collisionWeld = 0.005

// DocumentToScene builds the editor scene of doc. Unsupported content is
// skipped and reported in the returned warnings.
func DocumentToScene(doc *nif.Document, opts Options) (*scene.Scene, []fault.Warning, error) {
	im := newImporter(doc, opts)
	if err := im.run(); err != nil {
		return nil, nil, err
	}
	return im.sc, im.warnings, nil
}

type importer struct {
	*session
	doc     *nif.Document
	sc      *scene.Scene
	parents nif.ParentTable
	bones   *skeleton.Mapper
	shapes  *collision.Builder
	fps     int

	names     nameTable
	matNames  nameTable
	named     map[nif.Ref]string
	overrides map[nif.Ref]transform.Transform
	deformed  map[nif.Ref]deformation
	rests     map[nif.Ref]skeleton.BoneRest
	materials map[materialKey]*scene.Material
	textures  map[nif.Ref]string
}

type deformation struct {
	verts, norms []mgl64.Vec3
}

func newImporter(doc *nif.Document, opts Options) *importer {
	return &importer{
		session:   newSession(opts),
		doc:       doc,
		sc:        scene.New(),
		shapes:    collision.NewBuilder(doc),
		names:     make(nameTable),
		matNames:  make(nameTable),
		named:     make(map[nif.Ref]string),
		overrides: make(map[nif.Ref]transform.Transform),
		deformed:  make(map[nif.Ref]deformation),
		rests:     make(map[nif.Ref]skeleton.BoneRest),
		materials: make(map[materialKey]*scene.Material),
		textures:  make(map[nif.Ref]string),
	}
}

// rawLocal is the document transform of ref with bind pose overrides.
func (im *importer) rawLocal(ref nif.Ref) transform.Transform {
	if t, ok := im.overrides[ref]; ok {
		return t
	}
	return transform.Local(im.doc, ref)
}

// local is rawLocal in scene units.
func (im *importer) local(ref nif.Ref) transform.Transform {
	t := im.rawLocal(ref)
	t.Translation = t.Translation.Mul(im.k)
	return t
}

func (im *importer) run() error {
	if len(im.doc.Roots) == 0 {
		return fault.Formatf("document has no roots")
	}
	for _, root := range im.doc.Roots {
		if _, ok := nif.Lookup[*nif.SequenceStreamHelper](im.doc, root); ok {
			return fault.Formatf("block %d is an animation stream root, not a scene", root)
		}
	}

	im.parents = nif.Parents(im.doc, nif.None)
	im.fps = anim.EstimateFPS(keyTimes(im.doc))
	im.sc.FPS = im.fps
	im.log.Debug("importing document",
		zap.Stringer("version", im.doc.Version),
		zap.Int("blocks", im.doc.Len()),
		zap.Int("fps", im.fps))

	if err := im.prepareSkins(); err != nil {
		return err
	}
	im.bones = skeleton.NewMapper(im.doc, im.parents)
	for _, root := range im.doc.Roots {
		if err := im.bones.Scan(root, im.opts.SkeletonMode, im.opts.Attach); err != nil {
			return err
		}
	}

	for _, root := range im.doc.Roots {
		im.textKeys(root)
		if err := im.root(root); err != nil {
			return err
		}
	}
	im.frameRange()
	return nil
}

// keyTimes collects the key times of every keyframe data block.
func keyTimes(doc *nif.Document) []float64 {
	var times []float64
	for _, b := range doc.Blocks() {
		if kd, ok := b.(*nif.KeyframeData); ok {
			t := anim.TrackFromData(kd)
			times = append(times, t.Times()...)
		}
	}
	return times
}

// prepareSkins applies the bind pose and skin deform settings.
func (im *importer) prepareSkins() error {
	var skinned []nif.Ref
	for ref, b := range im.doc.Blocks() {
		if s, ok := b.(*nif.TriShape); ok && s.Skin != nif.None {
			skinned = append(skinned, ref)
		}
	}
	if im.opts.SendBonesToBindPose {
		for _, ref := range skinned {
			poses, err := skeleton.BindPose(im.doc, im.rawLocal, im.parents, ref)
			if err != nil {
				return err
			}
			for bone, t := range poses {
				im.overrides[bone] = t
			}
		}
	}
	if im.opts.ApplySkinDeformToRest {
		for _, ref := range skinned {
			v, n, err := skeleton.DeformVertices(im.doc, im.rawLocal, im.parents, ref)
			if err != nil {
				return err
			}
			im.deformed[ref] = deformation{verts: v, norms: n}
		}
	}
	return nil
}

func (im *importer) root(ref nif.Ref) error {
	blk, err := im.doc.Resolve(ref)
	if err != nil {
		return err
	}
	switch b := blk.(type) {
	case *nif.Node:
		if im.bones.IsArmatureRoot(ref) || skeleton.Grouped(im.doc, ref) != nil {
			return im.addRoot(im.branch(ref))
		}
		// A plain root node only carries its children.
		place := transform.Compose(im.local(ref))
		for _, c := range b.Children {
			obj, err := im.branch(c)
			if err != nil {
				return err
			}
			if obj != nil {
				obj.Matrix = place.Mul4(obj.Matrix)
				im.sc.Roots = append(im.sc.Roots, obj)
			}
		}
		for _, obj := range im.collisionObjects(b.Name, b.Collision) {
			obj.Matrix = place.Mul4(obj.Matrix)
			im.sc.Roots = append(im.sc.Roots, obj)
		}
		return nil
	case *nif.TriShape:
		return im.addRoot(im.branch(ref))
	case *nif.Camera:
		im.warn(b.Name, "camera roots are not imported")
	default:
		im.warn(im.doc.Name(ref), "%s roots are not imported", blk.TypeName())
	}
	return nil
}

func (im *importer) addRoot(obj *scene.Object, err error) error {
	if err != nil {
		return err
	}
	if obj != nil {
		im.sc.Roots = append(im.sc.Roots, obj)
	}
	return nil
}

// name returns the editor name of ref, allocating it on first use.
func (im *importer) name(ref nif.Ref, max int) string {
	if n, ok := im.named[ref]; ok {
		return n
	}
	full := im.doc.Name(ref)
	name := full
	if name == "" {
		name = "noname"
		if n, ok := nif.Lookup[*nif.Node](im.doc, ref); ok && n.Type == nif.NodeRootCollision {
			name = "collision"
		}
	}
	short := im.names.unique(name, max)
	if full != "" && short != full {
		im.sc.FullNames[short] = full
	}
	im.named[ref] = short
	return short
}

// branch imports the subtree at ref. It returns nil for blocks that carry
// nothing the editor can show.
func (im *importer) branch(ref nif.Ref) (*scene.Object, error) {
	blk, err := im.doc.Resolve(ref)
	if err != nil {
		return nil, err
	}
	switch b := blk.(type) {
	case *nif.TriShape:
		if im.opts.SkeletonMode == skeleton.SkeletonOnly {
			return nil, nil
		}
		obj := scene.NewObject(im.name(ref, maxObjectName), scene.KindMesh)
		if obj.Mesh, err = im.mesh(obj.Name, []nif.Ref{ref}, ref); err != nil {
			return nil, err
		}
		obj.Matrix = transform.Compose(im.local(ref))
		obj.Hidden = b.Hidden()
		return obj, nil

	case *nif.Node:
		if im.bones.IsArmatureRoot(ref) {
			return im.armature(ref)
		}
		if len(b.Children) == 0 && b.Collision == nif.None {
			return nil, nil
		}
		obj, group, err := im.groupObject(ref, b, ref)
		if err != nil {
			return nil, err
		}
		for _, c := range b.Children {
			if slices.Contains(group, c) {
				continue
			}
			child, err := im.branch(c)
			if err != nil {
				return nil, err
			}
			if child != nil {
				obj.Add(child)
			}
		}
		im.collision(obj, b.Collision)
		obj.Matrix = transform.Compose(im.local(ref))
		obj.Hidden = b.Hidden()
		im.animate(obj, ref)
		im.textKeys(ref)
		return obj, nil
	}
	im.warn(im.doc.Name(ref), "%s blocks are not imported", blk.TypeName())
	return nil, nil
}

// groupObject returns the object of node ref: a mesh joining its grouped
// geometry, in the space of ref, or an empty.
func (im *importer) groupObject(ref nif.Ref, node *nif.Node, space nif.Ref) (*scene.Object, []nif.Ref, error) {
	name := im.name(ref, maxObjectName)
	var group []nif.Ref
	if im.opts.SkeletonMode != skeleton.SkeletonOnly {
		group = skeleton.Grouped(im.doc, ref)
	}
	if len(group) == 0 {
		return scene.NewObject(name, scene.KindEmpty), nil, nil
	}
	mesh, err := im.mesh(name, group, space)
	if err != nil {
		return nil, nil, err
	}
	obj := scene.NewObject(name, scene.KindMesh)
	if node.Type == nif.NodeRootCollision {
		obj.Kind = scene.KindCollision
		collisionMesh(mesh)
	}
	obj.Mesh = mesh
	return obj, group, nil
}

// collisionMesh reduces m to welded positions and plain faces.
func collisionMesh(m *scene.Mesh) {
	faces := make([][]int, len(m.Faces))
	for i, f := range m.Faces {
		faces[i] = f.Verts
	}
	verts, faces := collision.RemoveDoubles(m.Vertices, faces, collisionWeld)
	*m = scene.Mesh{Vertices: verts}
	for _, f := range faces {
		m.Faces = append(m.Faces, scene.Face{Verts: f})
	}
}

// collision adds the primitives of col as children of obj.
func (im *importer) collision(obj *scene.Object, col nif.Ref) {
	for _, c := range im.collisionObjects(obj.Name, col) {
		obj.Add(c)
	}
}

// collisionObjects returns one collision object per primitive of col.
// Builder warnings are reported against owner.
func (im *importer) collisionObjects(owner string, col nif.Ref) []*scene.Object {
	if col == nif.None {
		return nil
	}
	prims := im.shapes.Object(col)
	for _, w := range im.shapes.Warnings {
		w.Object = owner
		im.addWarning(w)
	}
	im.shapes.Warnings = nil

	objs := make([]*scene.Object, 0, len(prims))
	for _, p := range prims {
		p.Vertices = scaled(p.Vertices, im.k)
		p.Matrix.SetCol(3, p.Matrix.Col(3).Vec3().Mul(im.k).Vec4(1))
		c := scene.NewObject(im.names.unique(p.Name, maxObjectName), scene.KindCollision)
		c.Collision = &p
		objs = append(objs, c)
	}
	return objs
}

func scaled(vs []mgl64.Vec3, k float64) []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(vs))
	for i, v := range vs {
		out[i] = v.Mul(k)
	}
	return out
}

// track returns the keyframes on ref in scene units.
func (im *importer) track(ref nif.Ref) (anim.Track, bool) {
	if !im.opts.ImportAnimation {
		return anim.Track{}, false
	}
	_, ctrl, ok := nif.FindController[*nif.KeyframeController](im.doc, ref)
	if !ok {
		return anim.Track{}, false
	}
	kd, err := nif.Get[*nif.KeyframeData](im.doc, ctrl.Data)
	if err != nil {
		im.warn(im.doc.Name(ref), "keyframe controller without data")
		return anim.Track{}, false
	}
	t := anim.TrackFromData(kd)
	for i := range t.Translations {
		t.Translations[i].Value = t.Translations[i].Value.Mul(im.k)
	}
	return t, !t.Empty()
}

// animate attaches the absolute keyframes of ref to obj.
func (im *importer) animate(obj *scene.Object, ref nif.Ref) {
	t, ok := im.track(ref)
	if !ok {
		return
	}
	r := anim.NewRetargeter(im.fps, transform.Identity())
	obj.Action = &scene.Action{Channels: []anim.Channel{r.ToChannel(obj.Name, t)}}
}

// textKeys reads the first text key block found in the scene.
func (im *importer) textKeys(ref nif.Ref) {
	if !im.opts.ImportAnimation || len(im.sc.TextKeys) > 0 {
		return
	}
	_, tk, ok := nif.FindExtra[*nif.TextKeyExtraData](im.doc, ref)
	if !ok {
		return
	}
	for _, k := range tk.Keys {
		im.sc.TextKeys = append(im.sc.TextKeys, scene.TextKey{
			Frame: anim.Frame(float64(k.Time), im.fps),
			Text:  k.Text,
		})
	}
}

// frameRange sets the scene's end frame to the last keyed frame.
func (im *importer) frameRange() {
	end := 1
	for _, k := range im.sc.TextKeys {
		end = max(end, k.Frame)
	}
	im.sc.Walk(func(o, _ *scene.Object) bool {
		if o.Action != nil {
			for i := range o.Action.Channels {
				if f := o.Action.Channels[i].Frames(); len(f) > 0 {
					end = max(end, f[len(f)-1])
				}
			}
		}
		if o.Mesh != nil {
			for _, sk := range o.Mesh.ShapeKeys {
				for _, k := range sk.Keys {
					end = max(end, k.Frame)
				}
			}
		}
		return true
	})
	im.sc.StartFrame = 1
	im.sc.EndFrame = end
}
