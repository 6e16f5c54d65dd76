package collision

import (
	"gonum.org/v1/gonum/spatial/r3"
)

type hullFace struct {
	v       [3]int
	normal  r3.Vec
	offset  float64
	outside []int
	dead    bool
}

func (f *hullFace) distance(p r3.Vec) float64 {
	return r3.Dot(f.normal, p) - f.offset
}

// Hull returns the convex hull of points as its vertices and triangles wound
// counter-clockwise seen from outside. Fewer than four points, or points
// that span no volume, yield no triangles.
func Hull(points []r3.Vec) ([]r3.Vec, [][3]int) {
	if len(points) < 4 {
		return nil, nil
	}
	eps := hullEpsilon(points)

	simplex, ok := initialSimplex(points, eps)
	if !ok {
		return nil, nil
	}
	var centroid r3.Vec
	for _, i := range simplex {
		centroid = r3.Add(centroid, points[i])
	}
	centroid = r3.Scale(0.25, centroid)

	var faces []*hullFace
	newFace := func(a, b, c int) *hullFace {
		n := r3.Cross(r3.Sub(points[b], points[a]), r3.Sub(points[c], points[a]))
		f := &hullFace{v: [3]int{a, b, c}}
		if r3.Norm(n) > 0 {
			f.normal = r3.Unit(n)
		}
		f.offset = r3.Dot(f.normal, points[a])
		if f.distance(centroid) > 0 {
			f.v[1], f.v[2] = f.v[2], f.v[1]
			f.normal = r3.Scale(-1, f.normal)
			f.offset = -f.offset
		}
		faces = append(faces, f)
		return f
	}
	s := simplex
	initial := []*hullFace{
		newFace(s[0], s[1], s[2]), newFace(s[0], s[1], s[3]),
		newFace(s[0], s[2], s[3]), newFace(s[1], s[2], s[3]),
	}

	inSimplex := map[int]bool{s[0]: true, s[1]: true, s[2]: true, s[3]: true}
	var rest []int
	for i := range points {
		if !inSimplex[i] {
			rest = append(rest, i)
		}
	}
	assign(points, initial, rest, eps)

	for {
		var face *hullFace
		for _, f := range faces {
			if !f.dead && len(f.outside) > 0 {
				face = f
				break
			}
		}
		if face == nil {
			break
		}
		eye, best := -1, 0.0
		for _, i := range face.outside {
			if d := face.distance(points[i]); d > best {
				eye, best = i, d
			}
		}

		edges := make(map[[2]int]bool)
		var visible []*hullFace
		for _, f := range faces {
			if !f.dead && f.distance(points[eye]) > eps {
				visible = append(visible, f)
				f.dead = true
				for k := 0; k < 3; k++ {
					edges[[2]int{f.v[k], f.v[(k+1)%3]}] = true
				}
			}
		}
		var orphans []int
		for _, f := range visible {
			for _, i := range f.outside {
				if i != eye {
					orphans = append(orphans, i)
				}
			}
			f.outside = nil
		}
		var created []*hullFace
		for _, f := range visible {
			for k := 0; k < 3; k++ {
				a, b := f.v[k], f.v[(k+1)%3]
				if edges[[2]int{b, a}] {
					continue
				}
				nf := &hullFace{v: [3]int{a, b, eye}}
				n := r3.Cross(r3.Sub(points[b], points[a]), r3.Sub(points[eye], points[a]))
				if r3.Norm(n) > 0 {
					nf.normal = r3.Unit(n)
				}
				nf.offset = r3.Dot(nf.normal, points[a])
				faces = append(faces, nf)
				created = append(created, nf)
			}
		}
		assign(points, created, orphans, eps)
	}

	remap := make(map[int]int)
	var verts []r3.Vec
	var tris [][3]int
	for _, f := range faces {
		if f.dead {
			continue
		}
		var t [3]int
		for k, i := range f.v {
			j, ok := remap[i]
			if !ok {
				j = len(verts)
				remap[i] = j
				verts = append(verts, points[i])
			}
			t[k] = j
		}
		tris = append(tris, t)
	}
	return verts, tris
}

func assign(points []r3.Vec, faces []*hullFace, candidates []int, eps float64) {
	for _, i := range candidates {
		for _, f := range faces {
			if f.distance(points[i]) > eps {
				f.outside = append(f.outside, i)
				break
			}
		}
	}
}

func hullEpsilon(points []r3.Vec) float64 {
	var extent float64
	for _, p := range points {
		extent = max(extent, abs(p.X), abs(p.Y), abs(p.Z))
	}
	return max(extent, 1) * 1e-9
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// initialSimplex picks four points spanning a tetrahedron.
func initialSimplex(points []r3.Vec, eps float64) ([4]int, bool) {
	var s [4]int
	// farthest pair among the axis extremes
	var extremes []int
	for axis := 0; axis < 3; axis++ {
		lo, hi := 0, 0
		for i, p := range points {
			if component(p, axis) < component(points[lo], axis) {
				lo = i
			}
			if component(p, axis) > component(points[hi], axis) {
				hi = i
			}
		}
		extremes = append(extremes, lo, hi)
	}
	best := -1.0
	for _, i := range extremes {
		for _, j := range extremes {
			if d := r3.Norm(r3.Sub(points[i], points[j])); d > best {
				best, s[0], s[1] = d, i, j
			}
		}
	}
	if best <= eps {
		return s, false
	}

	dir := r3.Unit(r3.Sub(points[s[1]], points[s[0]]))
	best = 0
	for i, p := range points {
		v := r3.Sub(p, points[s[0]])
		if d := r3.Norm(r3.Cross(dir, v)); d > best {
			best, s[2] = d, i
		}
	}
	if best <= eps {
		return s, false
	}

	n := r3.Unit(r3.Cross(r3.Sub(points[s[1]], points[s[0]]), r3.Sub(points[s[2]], points[s[0]])))
	best = 0
	for i, p := range points {
		if d := abs(r3.Dot(n, r3.Sub(p, points[s[0]]))); d > best {
			best, s[3] = d, i
		}
	}
	if best <= eps {
		return s, false
	}
	return s, true
}

func component(p r3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return p.X
	case 1:
		return p.Y
	}
	return p.Z
}
