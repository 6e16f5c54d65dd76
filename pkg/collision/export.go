package collision

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/nifkit/pkg/fault"
	"github.com/Faultbox/nifkit/pkg/math"
	"github.com/Faultbox/nifkit/pkg/nif"
)

// AppendObject writes prims as one collision object attached to target and
// returns its ref.
func AppendObject(doc *nif.Document, target nif.Ref, prims []Primitive) (nif.Ref, error) {
	if len(prims) == 0 {
		return nif.None, fault.Constraintf("collision object without primitives")
	}
	var shapes []nif.Ref
	for _, p := range prims {
		ref, err := AppendShape(doc, p)
		if err != nil {
			return nif.None, err
		}
		shapes = append(shapes, ref)
	}
	shape := shapes[0]
	if len(shapes) > 1 {
		shape = doc.Append(&nif.ListShape{Material: prims[0].Material, Shapes: shapes})
	}
	body := doc.Append(nif.NewRigidBody(shape))
	col := nif.NewCollisionObject()
	col.Body = body
	ref := doc.Append(col)
	if err := doc.LinkCollision(target, ref); err != nil {
		return nif.None, err
	}
	return ref, nil
}

// AppendShape writes one primitive as a shape block, wrapped in a transform
// shape when its placement is not the identity.
func AppendShape(doc *nif.Document, p Primitive) (nif.Ref, error) {
	switch p.Bound {
	case BoundBox, BoundSphere:
		lo, hi := extent(p.Vertices)
		center := lo.Add(hi).Mul(0.5)
		half := hi.Sub(lo).Mul(0.5 / PhysicsScale)
		var inner nif.Ref
		if p.Bound == BoundSphere {
			inner = doc.Append(&nif.SphereShape{Material: p.Material, Radius: float32(half[0])})
		} else {
			inner = doc.Append(&nif.BoxShape{Material: p.Material, Dimensions: math.Vec3From(half)})
		}
		return wrap(doc, inner, p.Material, p.Matrix.Mul4(mgl64.Translate3D(center[0], center[1], center[2]))), nil

	case BoundCylinder:
		lo, hi := extent(p.Vertices)
		r := (hi[0] - lo[0]) / 2 / PhysicsScale
		length := (hi[2]-lo[2])/PhysicsScale - 2*r
		if length < 0 {
			length = 0
		}
		center := lo.Add(hi).Mul(0.5)
		m := p.Matrix.Mul4(mgl64.Translate3D(center[0], center[1], center[2]))
		mid := m.Col(3).Vec3().Mul(1.0 / PhysicsScale)
		axis := m.Col(2).Vec3()
		if axis.Len() > 0 {
			axis = axis.Normalize()
		}
		half := axis.Mul(length / 2)
		return doc.Append(&nif.CapsuleShape{
			Material:     p.Material,
			Radius:       float32(r),
			First:        math.Vec3From(mid.Add(half)),
			FirstRadius:  float32(r),
			Second:       math.Vec3From(mid.Sub(half)),
			SecondRadius: float32(r),
		}), nil

	case BoundConvexHull:
		verts := transformed(p)
		s := &nif.ConvexVerticesShape{Material: p.Material}
		for _, v := range verts {
			s.Vertices = append(s.Vertices, math.Vec4{X: float32(v[0]), Y: float32(v[1]), Z: float32(v[2])})
		}
		for _, f := range p.Faces {
			if len(f) < 3 {
				continue
			}
			n := faceNormal(verts[f[0]], verts[f[1]], verts[f[2]])
			s.Normals = append(s.Normals, math.Vec4{
				X: float32(n[0]), Y: float32(n[1]), Z: float32(n[2]),
				W: float32(-n.Dot(verts[f[0]])),
			})
		}
		return doc.Append(s), nil

	case BoundPolyhedron:
		verts := transformed(p)
		data := &nif.PackedTriStripsData{}
		for _, v := range verts {
			data.Vertices = append(data.Vertices, math.Vec3From(v))
		}
		for _, f := range p.Faces {
			for i := 1; i+1 < len(f); i++ {
				tri := nif.Triangle{uint16(f[0]), uint16(f[i]), uint16(f[i+1])}
				n := faceNormal(verts[f[0]], verts[f[i]], verts[f[i+1]])
				data.Triangles = append(data.Triangles, nif.PackedTriangle{Triangle: tri, Normal: math.Vec3From(n)})
			}
		}
		shape := nif.NewPackedTriStripsShape()
		shape.Material = p.Material
		ref := doc.Append(shape)
		if err := doc.LinkData(ref, doc.Append(data)); err != nil {
			return nif.None, err
		}
		return ref, nil
	}
	return nif.None, fmt.Errorf("%w: collision bound %q", fault.ErrUnsupported, p.Bound)
}

// wrap places inner with m, scaled to physics units, unless m is the identity.
func wrap(doc *nif.Document, inner nif.Ref, material uint32, m mgl64.Mat4) nif.Ref {
	if m.ApproxEqualThreshold(mgl64.Ident4(), 1e-6) {
		return inner
	}
	m.SetCol(3, m.Col(3).Vec3().Mul(1.0/PhysicsScale).Vec4(1))
	return doc.Append(&nif.TransformShape{Shape: inner, Material: material, Transform: math.Mat4From(m)})
}

// transformed returns the vertices of p placed by its matrix, in physics units.
func transformed(p Primitive) []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(p.Vertices))
	for i, v := range p.Vertices {
		out[i] = mgl64.TransformCoordinate(v, p.Matrix).Mul(1.0 / PhysicsScale)
	}
	return out
}

func extent(verts []mgl64.Vec3) (lo, hi mgl64.Vec3) {
	if len(verts) == 0 {
		return
	}
	lo, hi = verts[0], verts[0]
	for _, v := range verts[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = min(lo[k], v[k])
			hi[k] = max(hi[k], v[k])
		}
	}
	return lo, hi
}
