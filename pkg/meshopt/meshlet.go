package meshopt

import (
	"errors"
	"fmt"

	vmath "github.com/Faultbox/midgard-meshprep/pkg/math"
)

// Meshlet limits accepted by BuildMeshlets. Local vertex indices are stored
// in a byte, which caps the vertex count.
const (
	MaxMeshletVertexLimit   = 256
	MaxMeshletTriangleLimit = 512

	DefaultMaxMeshletVertices  = 64
	DefaultMaxMeshletTriangles = 124
)

// ErrMeshletLimits reports meshlet bounds outside the supported range.
var ErrMeshletLimits = errors.New("invalid meshlet limits")

// Meshlet is a bounded cluster of triangles. Vertices index the mesh vertex
// buffer; Primitives index Vertices.
type Meshlet struct {
	Vertices      []uint32
	Primitives    [][3]uint8
	VertexCount   int
	TriangleCount int
}

// Bounds is a meshlet bounding sphere for GPU culling.
type Bounds struct {
	Center [3]float32
	Radius float32
}

// ValidateMeshletLimits checks maxVertices and maxTriangles.
func ValidateMeshletLimits(maxVertices, maxTriangles int) error {
	if maxVertices < 3 || maxVertices > MaxMeshletVertexLimit {
		return fmt.Errorf("%w: %d vertices (want 3..%d)", ErrMeshletLimits, maxVertices, MaxMeshletVertexLimit)
	}
	if maxTriangles < 1 || maxTriangles > MaxMeshletTriangleLimit {
		return fmt.Errorf("%w: %d triangles (want 1..%d)", ErrMeshletLimits, maxTriangles, MaxMeshletTriangleLimit)
	}
	return nil
}

// BuildMeshlets partitions the triangle list, in order, into meshlets of at
// most maxVertices unique vertices and maxTriangles triangles. Every
// triangle lands in exactly one meshlet.
func BuildMeshlets(indices []uint32, vertexCount, maxVertices, maxTriangles int) ([]Meshlet, error) {
	if err := ValidateMeshletLimits(maxVertices, maxTriangles); err != nil {
		return nil, err
	}

	local := make([]int, vertexCount)
	for i := range local {
		local[i] = -1
	}

	var out []Meshlet
	cur := Meshlet{}
	flush := func() {
		if cur.TriangleCount == 0 {
			return
		}
		for _, v := range cur.Vertices {
			local[v] = -1
		}
		out = append(out, cur)
		cur = Meshlet{}
	}

	for f := 0; f < len(indices)/3; f++ {
		tri := indices[3*f : 3*f+3]

		needed := 0
		for k, v := range tri {
			if local[v] < 0 && (k == 0 || v != tri[0]) && (k < 2 || v != tri[1]) {
				needed++
			}
		}
		if cur.VertexCount+needed > maxVertices || cur.TriangleCount+1 > maxTriangles {
			flush()
		}

		var prim [3]uint8
		for k, v := range tri {
			if local[v] < 0 {
				local[v] = cur.VertexCount
				cur.Vertices = append(cur.Vertices, v)
				cur.VertexCount++
			}
			prim[k] = uint8(local[v])
		}
		cur.Primitives = append(cur.Primitives, prim)
		cur.TriangleCount++
	}
	flush()
	return out, nil
}

// ComputeMeshletBounds returns a sphere enclosing every vertex the meshlet
// references: the center of their bounding box and the largest distance
// from it.
func ComputeMeshletBounds(m *Meshlet, positions [][3]float32) Bounds {
	if m.VertexCount == 0 {
		return Bounds{}
	}
	lo := vmath.FromArray(positions[m.Vertices[0]])
	hi := lo
	for _, v := range m.Vertices[1:m.VertexCount] {
		p := vmath.FromArray(positions[v])
		lo = lo.Min(p)
		hi = hi.Max(p)
	}
	center := lo.Add(hi).Scale(0.5)

	var radius float32
	for _, v := range m.Vertices[:m.VertexCount] {
		if d := center.Distance(vmath.FromArray(positions[v])); d > radius {
			radius = d
		}
	}
	return Bounds{Center: center.Array(), Radius: radius}
}
