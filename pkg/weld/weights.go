package weld

import (
	"github.com/Faultbox/nifkit/pkg/math"
)

// Influence is the weight of one bone on one source vertex.
type Influence struct {
	Bone   int
	Weight float32
}

// BoneWeight is the weight of a bone on an emitted vertex.
type BoneWeight struct {
	Vertex int
	Weight float32
}

// TransferWeights regroups per-source-vertex influences into per-bone weight
// lists over emitted vertices. Zero weights are skipped.
func (m *Mesh) TransferWeights(influences [][]Influence, bones int) [][]BoneWeight {
	out := make([][]BoneWeight, bones)
	for vi, v := range m.Vertices {
		if v.Source >= len(influences) {
			continue
		}
		for _, inf := range influences[v.Source] {
			if inf.Bone < 0 || inf.Bone >= bones || inf.Weight == 0 {
				continue
			}
			out[inf.Bone] = append(out[inf.Bone], BoneWeight{Vertex: vi, Weight: inf.Weight})
		}
	}
	return out
}

// Bounds returns the centre of the bounding box of points and the radius of
// the sphere around it that holds them all.
func Bounds(points []math.Vec3) (math.Vec3, float32) {
	if len(points) == 0 {
		return math.Vec3{}, 0
	}
	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		lo = math.Vec3{X: min(lo.X, p.X), Y: min(lo.Y, p.Y), Z: min(lo.Z, p.Z)}
		hi = math.Vec3{X: max(hi.X, p.X), Y: max(hi.Y, p.Y), Z: max(hi.Z, p.Z)}
	}
	center := lo.Add(hi).Scale(0.5)
	var radius float32
	for _, p := range points {
		radius = max(radius, p.Distance(center))
	}
	return center, radius
}
