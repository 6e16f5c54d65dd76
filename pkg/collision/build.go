// Package collision rebuilds editable primitives from physics shape blocks
// and writes primitives back as shapes.
//
// Shape blocks measure lengths in physics units; PhysicsScale converts them
// to scene units.
package collision

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/nifkit/pkg/fault"
	"github.com/Faultbox/nifkit/pkg/nif"
)

// PhysicsScale is the number of scene units per physics unit.
const PhysicsScale = 7

// weldDistance merges collision vertices closer than this.
const weldDistance = 0.005

// Bound is the rigid body bound type of a primitive.
type Bound string

const (
	BoundBox        Bound = "box"
	BoundSphere     Bound = "sphere"
	BoundCylinder   Bound = "cylinder"
	BoundConvexHull Bound = "convexhull"
	BoundPolyhedron Bound = "polyhedron"
)

// Primitive is one collision mesh in scene units. Matrix places it relative
// to the owner of the collision object.
type Primitive struct {
	Name     string
	Bound    Bound
	Material uint32
	Vertices []mgl64.Vec3
	Faces    [][]int
	Matrix   mgl64.Mat4
}

// boxFaces are the quads of a box whose corners come from nested x, y, z
// loops over {min, max}.
var boxFaces = [][]int{{0, 1, 3, 2}, {6, 7, 5, 4}, {0, 2, 6, 4}, {3, 1, 5, 7}, {4, 5, 1, 0}, {7, 6, 2, 3}}

func box(hx, hy, hz float64) ([]mgl64.Vec3, [][]int) {
	var verts []mgl64.Vec3
	for _, x := range []float64{-hx, hx} {
		for _, y := range []float64{-hy, hy} {
			for _, z := range []float64{-hz, hz} {
				verts = append(verts, mgl64.Vec3{x, y, z})
			}
		}
	}
	faces := make([][]int, len(boxFaces))
	for i, f := range boxFaces {
		faces[i] = append([]int(nil), f...)
	}
	return verts, faces
}

// Builder converts shape blocks of one document. Unsupported shapes are
// skipped and recorded in Warnings.
type Builder struct {
	doc      *nif.Document
	Warnings []fault.Warning
}

// NewBuilder returns a builder over doc.
func NewBuilder(doc *nif.Document) *Builder {
	return &Builder{doc: doc}
}

func (b *Builder) warn(format string, args ...any) {
	b.Warnings = append(b.Warnings, fault.Warning{Msg: fmt.Sprintf(format, args...)})
}

// Object builds the primitives of a collision object.
func (b *Builder) Object(ref nif.Ref) []Primitive {
	col, err := nif.Get[*nif.CollisionObject](b.doc, ref)
	if err != nil {
		b.warn("collision object %d: %v", ref, err)
		return nil
	}
	return b.Build(col.Body)
}

// Build builds the primitives of the shape or rigid body at ref.
func (b *Builder) Build(ref nif.Ref) []Primitive {
	blk, err := b.doc.Resolve(ref)
	if err != nil {
		b.warn("collision shape %d: %v", ref, err)
		return nil
	}

	switch s := blk.(type) {
	case *nif.RigidBody:
		prims := b.Build(s.Shape)
		if !s.HasTransform {
			return prims
		}
		m := s.Rotation.Mgl().Normalize().Mat4()
		m.SetCol(3, s.Translation.XYZ().Mgl().Mul(PhysicsScale).Vec4(1))
		return place(prims, m)

	case *nif.TransformShape:
		m := s.Transform.Mgl()
		m.SetCol(3, m.Col(3).Vec3().Mul(PhysicsScale).Vec4(1))
		return place(b.Build(s.Shape), m)

	case *nif.MoppBvTreeShape:
		return b.Build(s.Shape)

	case *nif.ListShape:
		var out []Primitive
		for _, sub := range s.Shapes {
			out = append(out, b.Build(sub)...)
		}
		return out

	case *nif.BoxShape:
		d := s.Dimensions.Mgl().Mul(PhysicsScale)
		verts, faces := box(d[0], d[1], d[2])
		return []Primitive{{Name: "box", Bound: BoundBox, Material: s.Material, Vertices: verts, Faces: faces, Matrix: mgl64.Ident4()}}

	case *nif.SphereShape:
		r := float64(s.Radius) * PhysicsScale
		verts, faces := box(r, r, r)
		return []Primitive{{Name: "sphere", Bound: BoundSphere, Material: s.Material, Vertices: verts, Faces: faces, Matrix: mgl64.Ident4()}}

	case *nif.CapsuleShape:
		return []Primitive{capsule(s)}

	case *nif.ConvexVerticesShape:
		pts := make([]r3.Vec, len(s.Vertices))
		for i, v := range s.Vertices {
			pts[i] = r3.Vec{X: float64(v.X) * PhysicsScale, Y: float64(v.Y) * PhysicsScale, Z: float64(v.Z) * PhysicsScale}
		}
		hv, ht := Hull(pts)
		if len(ht) == 0 {
			b.warn("convex shape %d spans no volume", ref)
			return nil
		}
		verts := make([]mgl64.Vec3, len(hv))
		for i, p := range hv {
			verts[i] = mgl64.Vec3{p.X, p.Y, p.Z}
		}
		faces := make([][]int, len(ht))
		for i, t := range ht {
			faces[i] = t[:]
		}
		verts, faces = RemoveDoubles(verts, faces, weldDistance)
		return []Primitive{{Name: "convexpoly", Bound: BoundConvexHull, Material: s.Material, Vertices: verts, Faces: faces, Matrix: mgl64.Ident4()}}

	case *nif.PackedTriStripsShape:
		data, err := nif.Get[*nif.PackedTriStripsData](b.doc, s.Data)
		if err != nil {
			b.warn("packed shape %d: %v", ref, err)
			return nil
		}
		return []Primitive{packed(s, data)}
	}

	b.warn("unsupported collision shape %s", blk.TypeName())
	return nil
}

// place left-multiplies the placement of every primitive by m.
func place(prims []Primitive, m mgl64.Mat4) []Primitive {
	for i := range prims {
		prims[i].Matrix = m.Mul4(prims[i].Matrix)
	}
	return prims
}

// capsule approximates a capsule with a box whose Z axis runs between the
// two end points.
func capsule(s *nif.CapsuleShape) Primitive {
	p1, p2 := s.First.Mgl(), s.Second.Mgl()
	length := p1.Sub(p2).Len()
	r := float64(s.Radius)
	half := (length + 2*r) * PhysicsScale / 2
	verts, faces := box(r*PhysicsScale, r*PhysicsScale, half)

	n := mgl64.Vec3{0, 0, 1}
	if length > 0 {
		n = p1.Sub(p2).Mul(1 / length)
	}
	minIndex := 0
	for i := 1; i < 3; i++ {
		if abs(n[i]) < abs(n[minIndex]) {
			minIndex = i
		}
	}
	var orth mgl64.Vec3
	orth[minIndex] = 1
	vec1 := n.Cross(orth).Normalize()
	vec2 := n.Cross(vec1)

	m := mgl64.Ident4()
	m.SetCol(0, vec1.Vec4(0))
	m.SetCol(1, vec2.Vec4(0))
	m.SetCol(2, n.Vec4(0))
	m.SetCol(3, p1.Add(p2).Mul(PhysicsScale/2).Vec4(1))
	return Primitive{Name: "capsule", Bound: BoundCylinder, Material: s.Material, Vertices: verts, Faces: faces, Matrix: m}
}

// packed copies a triangle soup, flipping triangles whose winding disagrees
// with the stored normal.
func packed(s *nif.PackedTriStripsShape, data *nif.PackedTriStripsData) Primitive {
	verts := make([]mgl64.Vec3, len(data.Vertices))
	for i, v := range data.Vertices {
		verts[i] = v.Mgl().Mul(PhysicsScale)
	}
	var faces [][]int
	for _, t := range data.Triangles {
		f := []int{int(t.Triangle[0]), int(t.Triangle[1]), int(t.Triangle[2])}
		if f[0] >= len(verts) || f[1] >= len(verts) || f[2] >= len(verts) {
			continue
		}
		fn := faceNormal(verts[f[0]], verts[f[1]], verts[f[2]])
		want := t.Normal.Mgl()
		plus := fn.Add(want)
		minus := fn.Sub(want)
		if abs(plus[0])+abs(plus[1])+abs(plus[2]) < abs(minus[0])+abs(minus[1])+abs(minus[2]) {
			f[0], f[1] = f[1], f[0]
		}
		faces = append(faces, f)
	}
	verts, faces = RemoveDoubles(verts, faces, weldDistance)
	return Primitive{Name: "poly", Bound: BoundPolyhedron, Material: s.Material, Vertices: verts, Faces: faces, Matrix: mgl64.Ident4()}
}

func faceNormal(a, b, c mgl64.Vec3) mgl64.Vec3 {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Len() == 0 {
		return n
	}
	return n.Normalize()
}

// RemoveDoubles merges vertices closer than dist, keeping the first, and
// drops faces that collapse.
func RemoveDoubles(verts []mgl64.Vec3, faces [][]int, dist float64) ([]mgl64.Vec3, [][]int) {
	remap := make([]int, len(verts))
	var out []mgl64.Vec3
	for i, v := range verts {
		remap[i] = -1
		for j, u := range out {
			if v.Sub(u).Len() < dist {
				remap[i] = j
				break
			}
		}
		if remap[i] < 0 {
			remap[i] = len(out)
			out = append(out, v)
		}
	}
	var kept [][]int
	for _, f := range faces {
		var nf []int
		for _, i := range f {
			j := remap[i]
			if len(nf) > 0 && (nf[len(nf)-1] == j || nf[0] == j) {
				continue
			}
			nf = append(nf, j)
		}
		if len(nf) >= 3 {
			kept = append(kept, nf)
		}
	}
	return out, kept
}
