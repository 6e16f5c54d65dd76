package convert

import (
	"errors"
	gomath "math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/nifkit/pkg/anim"
	"github.com/Faultbox/nifkit/pkg/fault"
	"github.com/Faultbox/nifkit/pkg/math"
	"github.com/Faultbox/nifkit/pkg/nif"
	"github.com/Faultbox/nifkit/pkg/scene"
	"github.com/Faultbox/nifkit/pkg/skeleton"
)

const delta = 1e-4

func TestNameTable(t *testing.T) {
	tests := []struct {
		name  string
		taken []string
		in    string
		max   int
		want  string
	}{
		{name: "free", in: "Door", max: 22, want: "Door"},
		{name: "truncated", in: "AVeryLongNodeNameThatOverflows", max: 22, want: "AVeryLongNodeNameThat"},
		{name: "taken", taken: []string{"Door"}, in: "Door", max: 22, want: "Door.00"},
		{name: "taken twice", taken: []string{"Door", "Door.00"}, in: "Door", max: 22, want: "Door.01"},
		{name: "taken and long", taken: []string{"ABCDEFGHIJ"}, in: "ABCDEFGHIJK", max: 11, want: "ABCDEFG.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nt := make(nameTable)
			for _, n := range tt.taken {
				nt[n] = true
			}
			got := nt.unique(tt.in, tt.max)
			assert.Equal(t, tt.want, got)
			assert.True(t, nt[got])
		})
	}
}

// triangleDocument returns a root node holding one triangle shape.
func triangleDocument(t *testing.T) *nif.Document {
	t.Helper()
	doc := nif.New(nif.V4_0_0_2, 0)
	root := doc.Append(nif.NewNode("Scene Root"))
	require.NoError(t, doc.AddRoot(root))
	shape := doc.Append(nif.NewTriShape("Tri"))
	require.NoError(t, doc.LinkChild(root, shape))
	require.NoError(t, doc.LinkData(shape, doc.Append(&nif.TriShapeData{
		Vertices:  []math.Vec3{{X: 0}, {X: 1}, {Y: 1}},
		Normals:   []math.Vec3{{Z: 1}, {Z: 1}, {Z: 1}},
		UVSets:    [][]math.Vec2{{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}},
		Triangles: []nif.Triangle{{0, 1, 2}},
	})))
	return doc
}

func TestImportTriangle(t *testing.T) {
	sc, warnings, err := DocumentToScene(triangleDocument(t), DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, sc.Roots, 1)

	// A root holding geometry becomes the mesh object itself.
	obj := sc.Roots[0]
	assert.Equal(t, "Scene Root", obj.Name)
	assert.Equal(t, scene.KindMesh, obj.Kind)
	require.NotNil(t, obj.Mesh)
	assert.Len(t, obj.Mesh.Vertices, 3)
	assert.Len(t, obj.Mesh.Normals, 3)
	require.Len(t, obj.Mesh.Faces, 1)
	assert.Equal(t, []string{"UVTex"}, obj.Mesh.UVLayers)

	f := obj.Mesh.Faces[0]
	assert.True(t, f.Smooth)
	require.Len(t, f.UV, 1)
	// V is flipped on the editor side.
	assert.InDelta(t, 1, f.UV[0][0][1], delta)
	assert.InDelta(t, 0, f.UV[0][2][1], delta)
}

func TestImportScaleCorrection(t *testing.T) {
	opts := DefaultOptions()
	opts.ScaleCorrection = 2
	sc, _, err := DocumentToScene(triangleDocument(t), opts)
	require.NoError(t, err)
	require.Len(t, sc.Roots, 1)

	verts := sc.Roots[0].Mesh.Vertices
	require.Len(t, verts, 3)
	assert.InDelta(t, 2, verts[1][0], delta)
	assert.InDelta(t, 2, verts[2][1], delta)
}

func TestImportRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  func() *nif.Document
	}{
		{
			name: "no roots",
			doc:  func() *nif.Document { return nif.New(nif.V4_0_0_2, 0) },
		},
		{
			name: "animation stream",
			doc: func() *nif.Document {
				doc := nif.New(nif.V4_0_0_2, 0)
				ref := doc.Append(nif.NewSequenceStreamHelper())
				require.NoError(t, doc.AddRoot(ref))
				return doc
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, _, err := DocumentToScene(tt.doc(), DefaultOptions())
			assert.Nil(t, sc)
			assert.ErrorIs(t, err, fault.ErrFormat)
		})
	}
}

func TestImportCameraRootWarns(t *testing.T) {
	doc := nif.New(nif.V4_0_0_2, 0)
	cam := &nif.Camera{}
	cam.Name = "Camera01"
	cam.ExtraData = nif.None
	cam.Controller = nif.None
	cam.Collision = nif.None
	cam.Rotation = math.Mat3Identity()
	cam.Scale = 1
	require.NoError(t, doc.AddRoot(doc.Append(cam)))

	sc, warnings, err := DocumentToScene(doc, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, sc.Roots)
	require.Len(t, warnings, 1)
	assert.Equal(t, "Camera01", warnings[0].Object)
	assert.ErrorIs(t, warnings[0], fault.ErrUnsupported)
}

func TestImportRootCollision(t *testing.T) {
	doc := nif.New(nif.V20_0_0_5, 0)
	n := nif.NewNode("Scene Root")
	n.Translation = math.Vec3{Z: 1}
	root := doc.Append(n)
	require.NoError(t, doc.AddRoot(root))
	col := nif.NewCollisionObject()
	col.Body = doc.Append(nif.NewRigidBody(doc.Append(&nif.BoxShape{Dimensions: math.Vec3{X: 1, Y: 1, Z: 1}})))
	require.NoError(t, doc.LinkCollision(root, doc.Append(col)))

	// world position of the single collision object in sc
	placed := func(t *testing.T, sc *scene.Scene) mgl64.Vec3 {
		t.Helper()
		var found []*scene.Object
		for _, obj := range sc.Roots {
			if obj.Kind == scene.KindCollision {
				found = append(found, obj)
			}
		}
		require.Len(t, found, 1)
		require.NotNil(t, found[0].Collision)
		assert.Len(t, found[0].Collision.Vertices, 8)
		return found[0].Matrix.Mul4(found[0].Collision.Matrix).Col(3).Vec3()
	}

	sc, warnings, err := DocumentToScene(doc, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.InDelta(t, 1, placed(t, sc)[2], delta)

	_, back := roundTrip(t, sc, DefaultOptions())
	assert.InDelta(t, 1, placed(t, back)[2], delta)
}

func TestImportEstimatesFPS(t *testing.T) {
	doc := nif.New(nif.V4_0_0_2, 0)
	root := doc.Append(nif.NewNode("Scene Root"))
	require.NoError(t, doc.AddRoot(root))
	n := nif.NewNode("Door")
	n.Type = nif.NodeAnimation
	n.Flags = nif.FlagsAnimationNode
	door := doc.Append(n)
	require.NoError(t, doc.LinkChild(root, door))
	shape := doc.Append(nif.NewTriShape("Tri Door"))
	require.NoError(t, doc.LinkChild(door, shape))
	require.NoError(t, doc.LinkData(shape, doc.Append(&nif.TriShapeData{
		Vertices:  []math.Vec3{{X: 0}, {X: 1}, {Y: 1}},
		Triangles: []nif.Triangle{{0, 1, 2}},
	})))

	var keys []nif.VecKey
	for i := range 5 {
		keys = append(keys, nif.VecKey{Time: float32(i) * 0.04, Value: math.Vec3{X: float32(i)}})
	}
	ctrl := doc.Append(nif.NewKeyframeController())
	require.NoError(t, doc.LinkController(door, ctrl))
	require.NoError(t, doc.LinkData(ctrl, doc.Append(&nif.KeyframeData{
		Translations: nif.VecKeys{Interpolation: nif.KeyLinear, Keys: keys},
	})))

	sc, _, err := DocumentToScene(doc, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 25, sc.FPS)
	assert.Equal(t, 5, sc.EndFrame)

	obj := sc.Find("Door")
	require.NotNil(t, obj)
	require.NotNil(t, obj.Action)
	ch := obj.Action.Channel("Door")
	require.NotNil(t, ch)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ch.Frames())
}

func TestFindTexture(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "textures")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "wood.tga"), []byte("tga"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stone.dds"), []byte("dds"), 0o644))

	opts := DefaultOptions()
	opts.DocumentDir = dir
	s := newSession(opts)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "other extension", in: `textures\wood.dds`, want: filepath.Join(sub, "wood.tga")},
		{name: "base name", in: `data\stone.dds`, want: filepath.Join(dir, "stone.dds")},
		{name: "missing", in: "missing.dds", want: "missing.dds"},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.findTexture(tt.in))
		})
	}
}

// cubeScene returns a textured, animated cube with text keys.
func cubeScene() *scene.Scene {
	sc := scene.New()
	sc.FPS = 30
	sc.EndFrame = 11
	sc.TextKeys = []scene.TextKey{{Frame: 1, Text: "start"}, {Frame: 11, Text: "end"}}

	m := &scene.Mesh{UVLayers: []string{"UVTex"}}
	for i := range 8 {
		m.Vertices = append(m.Vertices, mgl64.Vec3{
			float64(i & 1), float64(i >> 1 & 1), float64(i >> 2 & 1),
		})
	}
	quads := [][]int{
		{0, 2, 3, 1}, {4, 5, 7, 6}, {0, 1, 5, 4},
		{2, 6, 7, 3}, {0, 4, 6, 2}, {1, 3, 7, 5},
	}
	square := []mgl64.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	for _, q := range quads {
		m.Faces = append(m.Faces, scene.Face{Verts: q, UV: [][]mgl64.Vec2{square}})
	}
	mat := scene.NewMaterial("Crate")
	mat.Textures = []scene.Texture{{Slot: nif.SlotBase, Path: "crate.dds", UVLayer: "UVTex"}}
	m.Materials = []*scene.Material{mat}

	cube := scene.NewObject("Cube", scene.KindMesh)
	cube.Matrix = mgl64.Translate3D(0, 0, 2)
	cube.Mesh = m
	cube.Action = &scene.Action{Channels: []anim.Channel{{
		Name:         "Cube",
		RotationType: nif.KeyLinear,
		Rotations: []anim.QuatFrame{
			{Frame: 1, Value: mgl64.QuatIdent()},
			{Frame: 11, Value: mgl64.QuatRotate(gomath.Pi/2, mgl64.Vec3{0, 0, 1})},
		},
		Translations: []anim.VecFrame{
			{Frame: 1, Value: mgl64.Vec3{}},
			{Frame: 11, Value: mgl64.Vec3{1, 0, 0}},
		},
	}}}

	holder := scene.NewObject("Holder", scene.KindEmpty)
	holder.Add(cube)
	sc.Roots = []*scene.Object{holder}
	return sc
}

func roundTrip(t *testing.T, sc *scene.Scene, opts Options) (*nif.Document, *scene.Scene) {
	t.Helper()
	doc, _, err := SceneToDocument(sc, opts)
	require.NoError(t, err)
	require.NoError(t, nif.Verify(doc))
	data, err := nif.Marshal(doc)
	require.NoError(t, err)
	back, err := nif.Unmarshal(data)
	require.NoError(t, err)
	out, _, err := DocumentToScene(back, opts)
	require.NoError(t, err)
	return doc, out
}

func TestRoundTripStable(t *testing.T) {
	opts := DefaultOptions()
	doc1, sc2 := roundTrip(t, cubeScene(), opts)
	doc2, sc3 := roundTrip(t, sc2, opts)

	assert.Equal(t, doc1.CountByType(), doc2.CountByType())
	assertScenesClose(t, sc2, sc3)

	assert.Equal(t, 30, sc2.FPS)
	assert.Equal(t, 11, sc2.EndFrame)
	assert.Equal(t, []scene.TextKey{{Frame: 1, Text: "start"}, {Frame: 11, Text: "end"}}, sc2.TextKeys)

	cube := sc2.Find("Cube")
	require.NotNil(t, cube)
	require.NotNil(t, cube.Mesh)
	assert.Len(t, cube.Mesh.Vertices, 8)
	assert.Len(t, cube.Mesh.Faces, 12)
	require.Len(t, cube.Mesh.Materials, 1)
	mat := cube.Mesh.Materials[0]
	assert.Equal(t, "Crate", mat.Name)
	require.NotNil(t, mat.Texture(nif.SlotBase))
	assert.Equal(t, "crate.dds", mat.Texture(nif.SlotBase).Path)

	require.NotNil(t, cube.Action)
	ch := cube.Action.Channel("Cube")
	require.NotNil(t, ch)
	assert.Equal(t, []int{1, 11}, ch.Frames())
}

func assertScenesClose(t *testing.T, want, got *scene.Scene) {
	t.Helper()
	assert.Equal(t, want.FPS, got.FPS)
	assert.Equal(t, want.StartFrame, got.StartFrame)
	assert.Equal(t, want.EndFrame, got.EndFrame)
	assert.Equal(t, want.TextKeys, got.TextKeys)
	require.Len(t, got.Roots, len(want.Roots))
	for i := range want.Roots {
		assertObjectsClose(t, want.Roots[i], got.Roots[i])
	}
}

func assertObjectsClose(t *testing.T, want, got *scene.Object) {
	t.Helper()
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Kind, got.Kind, want.Name)
	assert.Equal(t, want.ParentBone, got.ParentBone, want.Name)
	assert.True(t, want.Matrix.ApproxEqualThreshold(got.Matrix, delta), "%s: %v != %v", want.Name, want.Matrix, got.Matrix)

	if want.Mesh != nil {
		require.NotNil(t, got.Mesh, want.Name)
		assertMeshesClose(t, want.Name, want.Mesh, got.Mesh)
	}
	if want.Action != nil {
		require.NotNil(t, got.Action, want.Name)
		require.Len(t, got.Action.Channels, len(want.Action.Channels))
		for i, ch := range want.Action.Channels {
			assert.Equal(t, ch.Name, got.Action.Channels[i].Name)
			assert.Equal(t, ch.Frames(), got.Action.Channels[i].Frames())
		}
	}
	require.Len(t, got.Children, len(want.Children), want.Name)
	for i := range want.Children {
		assertObjectsClose(t, want.Children[i], got.Children[i])
	}
}

func assertMeshesClose(t *testing.T, name string, want, got *scene.Mesh) {
	t.Helper()
	require.Len(t, got.Vertices, len(want.Vertices), name)
	for i := range want.Vertices {
		assert.True(t, want.Vertices[i].ApproxEqualThreshold(got.Vertices[i], delta), "%s vertex %d", name, i)
	}
	assert.Equal(t, want.UVLayers, got.UVLayers)
	require.Len(t, got.Faces, len(want.Faces), name)
	for i := range want.Faces {
		assert.Equal(t, want.Faces[i].Verts, got.Faces[i].Verts, "%s face %d", name, i)
		assert.Equal(t, want.Faces[i].Material, got.Faces[i].Material)
		for s := range want.Faces[i].UV {
			for c := range want.Faces[i].UV[s] {
				assert.True(t, want.Faces[i].UV[s][c].ApproxEqualThreshold(got.Faces[i].UV[s][c], delta))
			}
		}
	}
	require.Len(t, got.Materials, len(want.Materials))
	for i := range want.Materials {
		assert.Equal(t, want.Materials[i].Name, got.Materials[i].Name)
		assert.Equal(t, want.Materials[i].Textures, got.Materials[i].Textures)
	}
	require.Len(t, got.Groups, len(want.Groups))
	for i := range want.Groups {
		assert.Equal(t, want.Groups[i].Name, got.Groups[i].Name)
		assert.Len(t, got.Groups[i].Weights, len(want.Groups[i].Weights))
	}
}

func TestExportErrors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(sc *scene.Scene)
		category error
		object   string
		material string
	}{
		{
			name: "texture without uv layer",
			mutate: func(sc *scene.Scene) {
				m := sc.Find("Cube").Mesh
				m.UVLayers = nil
				for i := range m.Faces {
					m.Faces[i].UV = nil
				}
			},
			category: fault.ErrConstraint,
			object:   "Cube",
			material: "Crate",
		},
		{
			name: "non-uniform scale",
			mutate: func(sc *scene.Scene) {
				sc.Find("Cube").Matrix = mgl64.Scale3D(1, 2, 1)
			},
			category: fault.ErrConstraint,
			object:   "Cube",
		},
		{
			name: "missing parent bone",
			mutate: func(sc *scene.Scene) {
				arm := scene.NewObject("Armature", scene.KindArmature)
				arm.Armature = &scene.Armature{}
				cube := sc.Find("Cube")
				cube.ParentBone = "Hand"
				arm.Add(cube)
				sc.Roots = []*scene.Object{arm}
			},
			category: fault.ErrStructural,
			object:   "Cube",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := cubeScene()
			tt.mutate(sc)
			doc, _, err := SceneToDocument(sc, DefaultOptions())
			require.Error(t, err)
			assert.Nil(t, doc)
			assert.ErrorIs(t, err, tt.category)

			var oe *fault.ObjectError
			require.ErrorAs(t, err, &oe)
			assert.Equal(t, tt.object, oe.Object)
			assert.Equal(t, tt.material, oe.Material)
		})
	}
}

func TestExportUnsupportedVersion(t *testing.T) {
	opts := DefaultOptions()
	opts.Version = nif.Version(0x01020304)
	doc, _, err := SceneToDocument(cubeScene(), opts)
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, fault.ErrFormat)
}

func TestExportLayout(t *testing.T) {
	doc, warnings, err := SceneToDocument(cubeScene(), DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, warnings)

	root := doc.Root()
	assert.Equal(t, "Scene Root", doc.Name(root))
	_, keys, ok := nif.FindExtra[*nif.TextKeyExtraData](doc, root)
	require.True(t, ok)
	require.Len(t, keys.Keys, 2)
	assert.InDelta(t, 1.0/3, keys.Keys[1].Time, delta)

	cube := doc.FindByName("Cube")
	require.NotEqual(t, nif.None, cube)
	node, err := nif.Get[*nif.Node](doc, cube)
	require.NoError(t, err)
	assert.Equal(t, nif.NodeAnimation, node.Type)
	assert.Equal(t, nif.FlagsTextKeyNode, node.Flags)
	assert.InDelta(t, 2, node.Translation.Z, delta)

	shape := doc.FindByName("Tri Cube 0")
	require.NotEqual(t, nif.None, shape)
	counts := doc.CountByType()
	assert.Equal(t, 1, counts["NiTriShape"])
	assert.Equal(t, 1, counts["NiTexturingProperty"])
	assert.Equal(t, 1, counts["NiMaterialProperty"])
	assert.Equal(t, 1, counts["NiKeyframeController"])
}

func TestExportScaleCorrection(t *testing.T) {
	opts := DefaultOptions()
	opts.ScaleCorrection = 2
	doc, _, err := SceneToDocument(cubeScene(), opts)
	require.NoError(t, err)

	node, err := nif.Get[*nif.Node](doc, doc.FindByName("Cube"))
	require.NoError(t, err)
	assert.InDelta(t, 1, node.Translation.Z, delta)
}

// skinnedScene returns an armature with two bones and a quad skinned to both.
func skinnedScene() *scene.Scene {
	sc := scene.New()
	arm := scene.NewObject("Armature", scene.KindArmature)
	arm.Armature = &scene.Armature{Bones: []*scene.Bone{
		{Name: "Hip", Head: mgl64.Vec3{0, 0, 0}, Tail: mgl64.Vec3{0, 1, 0}, Matrix: mgl64.Ident4()},
		{Name: "Spine", Parent: "Hip", Head: mgl64.Vec3{0, 1, 0}, Tail: mgl64.Vec3{0, 2, 0}, Matrix: mgl64.Translate3D(0, 1, 0)},
	}}

	body := scene.NewObject("Body", scene.KindMesh)
	body.Mesh = &scene.Mesh{
		Vertices: []mgl64.Vec3{{-1, 0, 0}, {1, 0, 0}, {1, 2, 0}, {-1, 2, 0}},
		Faces:    []scene.Face{{Verts: []int{0, 1, 2, 3}}},
		Groups: []scene.VertexGroup{
			{Name: "Hip", Weights: []scene.GroupWeight{{Vertex: 0, Weight: 1}, {Vertex: 1, Weight: 1}}},
			{Name: "Spine", Weights: []scene.GroupWeight{{Vertex: 2, Weight: 1}, {Vertex: 3, Weight: 1}}},
		},
	}
	arm.Add(body)
	sc.Roots = []*scene.Object{arm}
	return sc
}

func TestSkinRoundTrip(t *testing.T) {
	opts := DefaultOptions()
	opts.Realign = skeleton.RealignNone

	doc, sc := roundTrip(t, skinnedScene(), opts)
	counts := doc.CountByType()
	assert.Equal(t, 1, counts["NiSkinInstance"])
	assert.Equal(t, 1, counts["NiSkinData"])

	skinRef := nif.None
	for ref, b := range doc.Blocks() {
		if _, ok := b.(*nif.SkinInstance); ok {
			skinRef = ref
		}
	}
	skin, err := nif.Get[*nif.SkinInstance](doc, skinRef)
	require.NoError(t, err)
	assert.Len(t, skin.Bones, 2)
	assert.Equal(t, doc.FindByName("Armature"), skin.SkeletonRoot)

	arm := sc.Find("Armature")
	require.NotNil(t, arm)
	assert.Equal(t, scene.KindArmature, arm.Kind)
	require.NotNil(t, arm.Armature)
	hip := arm.Armature.Bone("Hip")
	spine := arm.Armature.Bone("Spine")
	require.NotNil(t, hip)
	require.NotNil(t, spine)
	assert.Equal(t, "Hip", spine.Parent)
	assert.True(t, spine.Head.ApproxEqualThreshold(mgl64.Vec3{0, 1, 0}, delta))
	assert.True(t, hip.Tail.ApproxEqualThreshold(mgl64.Vec3{0, 1, 0}, delta))

	body := sc.Find("Body")
	require.NotNil(t, body)
	require.NotNil(t, body.Mesh)
	require.Len(t, body.Mesh.Vertices, 4)
	want := skinnedScene().Roots[0].Children[0].Mesh.Vertices
	for i := range want {
		assert.True(t, want[i].ApproxEqualThreshold(body.Mesh.Vertices[i], delta), "vertex %d", i)
	}

	groups := make(map[string][]int)
	for _, g := range body.Mesh.Groups {
		for _, w := range g.Weights {
			groups[g.Name] = append(groups[g.Name], w.Vertex)
		}
	}
	assert.ElementsMatch(t, []int{0, 1}, groups["Hip"])
	assert.ElementsMatch(t, []int{2, 3}, groups["Spine"])
}

func TestLongNamesSurviveRoundTrip(t *testing.T) {
	sc := cubeScene()
	long := "Holder" + strings.Repeat("X", 30)
	sc.Roots[0].Name = long

	_, back := roundTrip(t, sc, DefaultOptions())
	require.Len(t, back.Roots, 1)
	short := back.Roots[0].Name
	assert.LessOrEqual(t, len(short), maxObjectName-1)
	assert.Equal(t, long, back.FullName(short))

	// Exporting again restores the full name.
	doc, _, err := SceneToDocument(back, DefaultOptions())
	require.NoError(t, err)
	assert.NotEqual(t, nif.None, doc.FindByName(long))
}

func TestWarningsAreReturned(t *testing.T) {
	doc := triangleDocument(t)
	root := doc.Root()
	cam := &nif.Camera{}
	cam.Name = "Cam"
	cam.ExtraData = nif.None
	cam.Controller = nif.None
	cam.Collision = nif.None
	cam.Rotation = math.Mat3Identity()
	cam.Scale = 1
	require.NoError(t, doc.LinkChild(root, doc.Append(cam)))

	_, warnings, err := DocumentToScene(doc, DefaultOptions())
	require.NoError(t, err)
	require.NotEmpty(t, warnings)
	assert.True(t, errors.Is(warnings[0], fault.ErrUnsupported))
	assert.Equal(t, "Cam", warnings[0].Object)
}
