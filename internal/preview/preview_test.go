package preview

import (
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/nifkit/pkg/collision"
	"github.com/Faultbox/nifkit/pkg/scene"
)

func testScene() *scene.Scene {
	sc := scene.New()

	quad := scene.NewObject("Floor", scene.KindMesh)
	quad.Mesh = &scene.Mesh{
		Vertices:  []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		Faces:     []scene.Face{{Verts: []int{0, 1, 2, 3}, UV: [][]mgl64.Vec2{{{0, 0}, {1, 0}, {1, 1}, {0, 1}}}}},
		UVLayers:  []string{"UVTex"},
		Materials: []*scene.Material{scene.NewMaterial("Stone")},
	}

	arm := scene.NewObject("Armature", scene.KindArmature)
	arm.Armature = &scene.Armature{Bones: []*scene.Bone{
		{Name: "Hip", Tail: mgl64.Vec3{0, 1, 0}, Matrix: mgl64.Ident4()},
		{Name: "Spine", Parent: "Hip", Head: mgl64.Vec3{0, 1, 0}, Tail: mgl64.Vec3{0, 2, 0}, Matrix: mgl64.Translate3D(0, 1, 0)},
	}}
	hat := scene.NewObject("Hat", scene.KindMesh)
	hat.ParentBone = "Spine"
	hat.Mesh = &scene.Mesh{
		Vertices: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Faces:    []scene.Face{{Verts: []int{0, 1, 2}}},
	}
	arm.Add(hat)

	box := scene.NewObject("box", scene.KindCollision)
	box.Collision = &collision.Primitive{
		Name:     "box",
		Vertices: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Faces:    [][]int{{0, 1, 2}},
		Matrix:   mgl64.Translate3D(0, 0, 5),
	}
	quad.Add(box)

	sc.Roots = []*scene.Object{quad, arm}
	return sc
}

func nodeByName(doc *gltf.Document, name string) *gltf.Node {
	for _, n := range doc.Nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		nodes     int
		meshes    int
		hasBone   bool
		collision bool
	}{
		{name: "plain", opts: Options{}, nodes: 4, meshes: 2},
		{name: "skeleton", opts: Options{Skeleton: true}, nodes: 6, meshes: 2, hasBone: true},
		{name: "collision", opts: Options{Collision: true}, nodes: 5, meshes: 3, collision: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Build(testScene(), tt.opts)
			require.NoError(t, err)
			assert.Len(t, doc.Nodes, tt.nodes)
			assert.Len(t, doc.Meshes, tt.meshes)
			require.Len(t, doc.Materials, 1)
			assert.Equal(t, "Stone", doc.Materials[0].Name)
			assert.Equal(t, tt.hasBone, nodeByName(doc, "Spine") != nil)
			assert.Equal(t, tt.collision, nodeByName(doc, "box") != nil)

			floor := doc.Meshes[0]
			require.Len(t, floor.Primitives, 1)
			assert.Contains(t, floor.Primitives[0].Attributes, gltf.TEXCOORD_0)
			assert.Contains(t, floor.Primitives[0].Attributes, gltf.POSITION)
		})
	}
}

func TestBonePlacement(t *testing.T) {
	doc, err := Build(testScene(), Options{})
	require.NoError(t, err)
	hat := nodeByName(doc, "Hat")
	require.NotNil(t, hat)
	// Spine's rest matrix moved to its tail.
	assert.InDelta(t, 2, hat.Matrix[13], 1e-9)
}

func TestBuildBadFace(t *testing.T) {
	sc := testScene()
	sc.Roots[0].Mesh.Faces[0].Verts[2] = 9
	_, err := Build(sc, Options{})
	assert.ErrorContains(t, err, "Floor")
}

func TestBuildMissingBone(t *testing.T) {
	sc := testScene()
	sc.Roots[1].Children[0].ParentBone = "Head"
	_, err := Build(sc, Options{})
	assert.ErrorContains(t, err, "Head")
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.glb")
	require.NoError(t, Write(testScene(), path, Options{Skeleton: true}))

	doc, err := gltf.Open(path)
	require.NoError(t, err)
	assert.Len(t, doc.Meshes, 2)
	assert.NotNil(t, nodeByName(doc, "Hip"))
}
