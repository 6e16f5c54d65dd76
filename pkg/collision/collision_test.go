package collision

import (
	"errors"
	gomath "math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/nifkit/pkg/fault"
	"github.com/Faultbox/nifkit/pkg/math"
	"github.com/Faultbox/nifkit/pkg/nif"
)

func build(t *testing.T, doc *nif.Document, ref nif.Ref) []Primitive {
	t.Helper()
	b := NewBuilder(doc)
	prims := b.Build(ref)
	assert.Empty(t, b.Warnings)
	return prims
}

func TestBox(t *testing.T) {
	doc := nif.New(nif.V20_0_0_5, 0)
	ref := doc.Append(&nif.BoxShape{Dimensions: math.Vec3{X: 1, Y: 1, Z: 1}})

	prims := build(t, doc, ref)
	require.Len(t, prims, 1)
	p := prims[0]
	assert.Equal(t, BoundBox, p.Bound)
	require.Len(t, p.Vertices, 8)
	for _, v := range p.Vertices {
		for k := 0; k < 3; k++ {
			assert.InDelta(t, 7, gomath.Abs(v[k]), 1e-9)
		}
	}
	require.Len(t, p.Faces, 6)
	for _, f := range p.Faces {
		assert.Len(t, f, 4)
	}
	assert.Equal(t, mgl64.Ident4(), p.Matrix)
}

func TestSphere(t *testing.T) {
	doc := nif.New(nif.V20_0_0_5, 0)
	ref := doc.Append(&nif.SphereShape{Radius: 2})
	p := build(t, doc, ref)[0]
	assert.Equal(t, BoundSphere, p.Bound)
	assert.Equal(t, mgl64.Vec3{-14, -14, -14}, p.Vertices[0])
	assert.Equal(t, mgl64.Vec3{14, 14, 14}, p.Vertices[7])
}

func TestCapsule(t *testing.T) {
	tests := []struct {
		name          string
		first, second math.Vec3
		axis          mgl64.Vec3
		center        mgl64.Vec3
	}{
		{"along z", math.Vec3{Z: 1}, math.Vec3{Z: -1}, mgl64.Vec3{0, 0, 1}, mgl64.Vec3{}},
		{"along x shifted", math.Vec3{X: 2, Y: 1}, math.Vec3{Y: 1}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{7, 7, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := nif.New(nif.V20_0_0_5, 0)
			ref := doc.Append(&nif.CapsuleShape{Radius: 0.5, First: tt.first, Second: tt.second})
			p := build(t, doc, ref)[0]
			assert.Equal(t, BoundCylinder, p.Bound)
			require.Len(t, p.Vertices, 8)
			assert.InDelta(t, 3.5, p.Vertices[7][0], 1e-9)
			assert.InDelta(t, 10.5, p.Vertices[7][2], 1e-9)

			assert.True(t, p.Matrix.Col(2).Vec3().ApproxEqual(tt.axis))
			assert.True(t, p.Matrix.Col(3).Vec3().ApproxEqual(tt.center))
			rot := p.Matrix.Mat3()
			assert.InDelta(t, 1, rot.Det(), 1e-9, "proper rotation")
		})
	}
}

func TestCapsuleFrameSeed(t *testing.T) {
	doc := nif.New(nif.V20_0_0_5, 0)
	ref := doc.Append(&nif.CapsuleShape{Radius: 1, First: math.Vec3{Z: 1}, Second: math.Vec3{Z: -1}})
	p := build(t, doc, ref)[0]
	// x and y tie for the smallest component; x seeds the frame
	assert.True(t, p.Matrix.Col(0).Vec3().ApproxEqual(mgl64.Vec3{0, 1, 0}))
	assert.True(t, p.Matrix.Col(1).Vec3().ApproxEqual(mgl64.Vec3{-1, 0, 0}))
}

func cubeCorners(scale float64) []r3.Vec {
	var pts []r3.Vec
	for _, x := range []float64{-scale, scale} {
		for _, y := range []float64{-scale, scale} {
			for _, z := range []float64{-scale, scale} {
				pts = append(pts, r3.Vec{X: x, Y: y, Z: z})
			}
		}
	}
	return pts
}

func TestHull(t *testing.T) {
	pts := append(cubeCorners(1), r3.Vec{}, r3.Vec{X: 0.5, Y: -0.2, Z: 0.1})
	verts, tris := Hull(pts)
	assert.Len(t, verts, 8)
	assert.Len(t, tris, 12)
	for _, tri := range tris {
		a, b, c := verts[tri[0]], verts[tri[1]], verts[tri[2]]
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		centroid := r3.Scale(1.0/3, r3.Add(r3.Add(a, b), c))
		assert.Greater(t, r3.Dot(n, centroid), 0.0, "outward winding")
	}

	_, tris = Hull([]r3.Vec{{}, {X: 1}, {Y: 1}, {X: 1, Y: 1}})
	assert.Empty(t, tris, "flat point set")
	_, tris = Hull([]r3.Vec{{}, {X: 1}})
	assert.Empty(t, tris)
}

func TestConvexVertices(t *testing.T) {
	doc := nif.New(nif.V20_0_0_5, 0)
	s := &nif.ConvexVerticesShape{}
	for _, p := range cubeCorners(1) {
		s.Vertices = append(s.Vertices, math.Vec4{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)})
	}
	s.Vertices = append(s.Vertices, math.Vec4{X: 1.0001, Y: 1, Z: 1}, math.Vec4{})
	ref := doc.Append(s)

	p := build(t, doc, ref)[0]
	assert.Equal(t, BoundConvexHull, p.Bound)
	assert.Len(t, p.Vertices, 8, "near duplicate corner merged")
	for _, v := range p.Vertices {
		assert.InDelta(t, 7, gomath.Abs(v[1]), 1e-3)
	}
}

func TestPackedFlip(t *testing.T) {
	doc := nif.New(nif.V20_0_0_5, 0)
	data := doc.Append(&nif.PackedTriStripsData{
		Vertices: []math.Vec3{{}, {X: 1}, {Y: 1}, {X: 1, Y: 1}},
		Triangles: []nif.PackedTriangle{
			{Triangle: nif.Triangle{0, 1, 2}, Normal: math.Vec3{Z: 1}},
			{Triangle: nif.Triangle{1, 3, 2}, Normal: math.Vec3{Z: -1}},
		},
	})
	shape := nif.NewPackedTriStripsShape()
	ref := doc.Append(shape)
	require.NoError(t, doc.LinkData(ref, data))

	p := build(t, doc, ref)[0]
	assert.Equal(t, BoundPolyhedron, p.Bound)
	assert.Equal(t, [][]int{{0, 1, 2}, {3, 1, 2}}, p.Faces)
	assert.Equal(t, mgl64.Vec3{7, 7, 0}, p.Vertices[3])
}

func TestWrappers(t *testing.T) {
	doc := nif.New(nif.V20_0_0_5, 0)
	box := doc.Append(&nif.BoxShape{Dimensions: math.Vec3{X: 1, Y: 1, Z: 1}})
	moved := doc.Append(&nif.TransformShape{Shape: box, Transform: math.Mat4From(mgl64.Translate3D(1, 0, 0))})
	sphere := doc.Append(&nif.SphereShape{Radius: 1})
	list := doc.Append(&nif.ListShape{Shapes: []nif.Ref{moved, sphere}})
	mopp := doc.Append(&nif.MoppBvTreeShape{Shape: list})
	body := nif.NewRigidBody(mopp)
	body.HasTransform = true
	body.Translation = math.Vec4{Y: 2}
	body.Rotation = math.QuatFrom(mgl64.QuatRotate(gomath.Pi/2, mgl64.Vec3{0, 0, 1}))
	bodyRef := doc.Append(body)

	prims := build(t, doc, bodyRef)
	require.Len(t, prims, 2)
	assert.Equal(t, BoundBox, prims[0].Bound)
	assert.Equal(t, BoundSphere, prims[1].Bound)

	// box: rotated body placement applied after the shape's own offset
	origin := mgl64.TransformCoordinate(mgl64.Vec3{}, prims[0].Matrix)
	assert.True(t, origin.ApproxEqualThreshold(mgl64.Vec3{0, 21, 0}, 1e-5), "got %v", origin)
	origin = mgl64.TransformCoordinate(mgl64.Vec3{}, prims[1].Matrix)
	assert.True(t, origin.ApproxEqualThreshold(mgl64.Vec3{0, 14, 0}, 1e-5), "got %v", origin)
}

func TestUnsupportedShape(t *testing.T) {
	doc := nif.New(nif.V20_0_0_5, 0)
	ms := doc.Append(&nif.MultiSphereShape{Spheres: []nif.Sphere{{Radius: 1}}})
	list := doc.Append(&nif.ListShape{Shapes: []nif.Ref{ms, doc.Append(&nif.SphereShape{Radius: 1})}})

	b := NewBuilder(doc)
	prims := b.Build(list)
	assert.Len(t, prims, 1, "supported siblings still build")
	require.Len(t, b.Warnings, 1)
	assert.Contains(t, b.Warnings[0].Msg, "bhkMultiSphereShape")
	assert.True(t, errors.Is(b.Warnings[0], fault.ErrUnsupported))
}

func TestCollisionObject(t *testing.T) {
	doc := nif.New(nif.V20_0_0_5, 0)
	node := doc.Append(nif.NewNode("crate"))
	require.NoError(t, doc.AddRoot(node))
	box := doc.Append(&nif.BoxShape{Dimensions: math.Vec3{X: 1, Y: 2, Z: 3}})
	col := nif.NewCollisionObject()
	col.Body = doc.Append(nif.NewRigidBody(box))
	colRef := doc.Append(col)
	require.NoError(t, doc.LinkCollision(node, colRef))

	b := NewBuilder(doc)
	prims := b.Object(colRef)
	require.Len(t, prims, 1)
	assert.Equal(t, mgl64.Vec3{7, 14, 21}, prims[0].Vertices[7])
}

func TestExportRoundTrip(t *testing.T) {
	src := nif.New(nif.V20_0_0_5, 0)
	box := src.Append(&nif.BoxShape{Material: 3, Dimensions: math.Vec3{X: 1, Y: 2, Z: 0.5}})
	moved := src.Append(&nif.TransformShape{Shape: box, Transform: math.Mat4From(mgl64.Translate3D(0, 1, 0).Mul4(mgl64.HomogRotate3DX(0.5)))})
	capsule := src.Append(&nif.CapsuleShape{Radius: 0.25, First: math.Vec3{X: 1, Y: 1}, Second: math.Vec3{X: -1, Y: 1}})
	sphere := src.Append(&nif.SphereShape{Radius: 1.5})
	list := src.Append(&nif.ListShape{Shapes: []nif.Ref{moved, capsule, sphere}})
	want := build(t, src, list)
	require.Len(t, want, 3)

	dst := nif.New(nif.V20_0_0_5, 0)
	node := dst.Append(nif.NewNode("crate"))
	require.NoError(t, dst.AddRoot(node))
	colRef, err := AppendObject(dst, node, want)
	require.NoError(t, err)

	got := NewBuilder(dst).Object(colRef)
	require.Len(t, got, 3)
	for i := range want {
		assert.Equal(t, want[i].Bound, got[i].Bound)
		assert.Equal(t, want[i].Material, got[i].Material)
		assert.True(t, got[i].Matrix.ApproxEqualThreshold(want[i].Matrix, 1e-5), "%s matrix", want[i].Bound)
		for k := range want[i].Vertices {
			assert.True(t, got[i].Vertices[k].ApproxEqualThreshold(want[i].Vertices[k], 1e-5))
		}
	}
}

func TestExportPolyhedron(t *testing.T) {
	p := Primitive{
		Bound:    BoundPolyhedron,
		Vertices: []mgl64.Vec3{{}, {7, 0, 0}, {7, 7, 0}, {0, 7, 0}},
		Faces:    [][]int{{0, 1, 2, 3}},
		Matrix:   mgl64.Translate3D(0, 0, 7),
	}
	doc := nif.New(nif.V20_0_0_5, 0)
	ref, err := AppendShape(doc, p)
	require.NoError(t, err)
	shape, err := nif.Get[*nif.PackedTriStripsShape](doc, ref)
	require.NoError(t, err)
	data, err := nif.Get[*nif.PackedTriStripsData](doc, shape.Data)
	require.NoError(t, err)
	assert.Len(t, data.Triangles, 2)
	assert.Equal(t, math.Vec3{X: 1, Y: 1, Z: 1}, data.Vertices[2])
	assert.Equal(t, math.Vec3{Z: 1}, data.Triangles[0].Normal)

	_, err = AppendShape(doc, Primitive{Bound: "cone"})
	assert.True(t, errors.Is(err, fault.ErrUnsupported))
}
