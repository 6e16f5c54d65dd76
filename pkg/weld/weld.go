// Package weld turns face-corner geometry into the indexed vertex buffers the
// block graph stores, keeping the maps needed to write per-vertex and
// per-face data back.
package weld

import (
	"encoding/binary"

	"github.com/Faultbox/nifkit/pkg/math"
)

// DefaultResolution is the quantisation grid, in cells per unit.
const DefaultResolution = 200

// Corner is one corner of a source face.
type Corner struct {
	Vertex int // index into Source.Positions
	Normal math.Vec3
	UV     []math.Vec2 // one entry per UV set
	Color  math.Color4
}

// Source is triangulated face-corner geometry.
type Source struct {
	Positions []math.Vec3
	Faces     [][3]Corner
	HasColors bool
}

// Options control what separates two corners into different vertices.
// Position and normal always do.
type Options struct {
	Resolution float32
	KeyUV      bool
	KeyColor   bool
}

// Vertex is one emitted vertex.
type Vertex struct {
	Position math.Vec3
	Normal   math.Vec3
	UV       []math.Vec2
	Color    math.Color4
	Source   int // source vertex index
}

// Mesh is the welded result.
type Mesh struct {
	Vertices []Vertex
	Faces    [][3]int
	// FaceMap holds the emitted face of each source face, or -1 if dropped.
	FaceMap []int
	// VertexMap lists the emitted vertices of each source vertex, first
	// emitted first.
	VertexMap  [][]int
	Degenerate int
	Duplicate  int
}

type vertexKey struct {
	pos, normal [3]int32
	uv          string
	color       [4]int32
}

// Weld deduplicates the corners of src.
func Weld(src Source, opts Options) *Mesh {
	res := opts.Resolution
	if res <= 0 {
		res = DefaultResolution
	}
	m := &Mesh{
		FaceMap:   make([]int, len(src.Faces)),
		VertexMap: make([][]int, len(src.Positions)),
	}
	index := make(map[vertexKey]int)
	faces := make(map[[3]int]bool)

	for fi, face := range src.Faces {
		m.FaceMap[fi] = -1

		var keys [3]vertexKey
		for c, corner := range face {
			keys[c] = cornerKey(src, corner, opts, res)
		}
		if keys[0] == keys[1] || keys[1] == keys[2] || keys[0] == keys[2] {
			m.Degenerate++
			continue
		}

		var tri [3]int
		known := true
		for c := range keys {
			i, ok := index[keys[c]]
			if !ok {
				known = false
				break
			}
			tri[c] = i
		}
		if known && faces[canonical(tri)] {
			m.Duplicate++
			continue
		}

		for c, corner := range face {
			if i, ok := index[keys[c]]; ok {
				tri[c] = i
				continue
			}
			tri[c] = len(m.Vertices)
			index[keys[c]] = tri[c]
			m.Vertices = append(m.Vertices, Vertex{
				Position: src.Positions[corner.Vertex],
				Normal:   corner.Normal,
				UV:       corner.UV,
				Color:    corner.Color,
				Source:   corner.Vertex,
			})
			m.VertexMap[corner.Vertex] = append(m.VertexMap[corner.Vertex], tri[c])
		}
		faces[canonical(tri)] = true
		m.FaceMap[fi] = len(m.Faces)
		m.Faces = append(m.Faces, tri)
	}
	return m
}

func cornerKey(src Source, c Corner, opts Options, res float32) vertexKey {
	k := vertexKey{
		pos:    math.QuantizeVec3(src.Positions[c.Vertex], res),
		normal: math.QuantizeVec3(c.Normal, res),
	}
	if opts.KeyUV {
		b := make([]byte, 0, len(c.UV)*8)
		for _, uv := range c.UV {
			b = binary.LittleEndian.AppendUint32(b, uint32(math.Quantize(uv.X, res)))
			b = binary.LittleEndian.AppendUint32(b, uint32(math.Quantize(uv.Y, res)))
		}
		k.uv = string(b)
	}
	if opts.KeyColor && src.HasColors {
		k.color = [4]int32{
			math.Quantize(c.Color.R, res), math.Quantize(c.Color.G, res),
			math.Quantize(c.Color.B, res), math.Quantize(c.Color.A, res),
		}
	}
	return k
}

// canonical rotates tri so its smallest index comes first. Rotation keeps
// the winding, so mirrored faces stay distinct.
func canonical(tri [3]int) [3]int {
	switch {
	case tri[1] < tri[0] && tri[1] < tri[2]:
		return [3]int{tri[1], tri[2], tri[0]}
	case tri[2] < tri[0] && tri[2] < tri[1]:
		return [3]int{tri[2], tri[0], tri[1]}
	}
	return tri
}

// Positions returns the emitted vertex positions.
func (m *Mesh) Positions() []math.Vec3 {
	out := make([]math.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		out[i] = v.Position
	}
	return out
}

// Normals returns the emitted vertex normals.
func (m *Mesh) Normals() []math.Vec3 {
	out := make([]math.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		out[i] = v.Normal
	}
	return out
}

// UVSet returns the coordinates of UV set n, or nil if vertices lack it.
func (m *Mesh) UVSet(n int) []math.Vec2 {
	out := make([]math.Vec2, len(m.Vertices))
	for i, v := range m.Vertices {
		if n >= len(v.UV) {
			return nil
		}
		out[i] = v.UV[n]
	}
	return out
}

// Colors returns the emitted vertex colours.
func (m *Mesh) Colors() []math.Color4 {
	out := make([]math.Color4, len(m.Vertices))
	for i, v := range m.Vertices {
		out[i] = v.Color
	}
	return out
}
