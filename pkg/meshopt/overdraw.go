package meshopt

import (
	"slices"

	vmath "github.com/Faultbox/midgard-meshprep/pkg/math"
)

// DefaultOverdrawThreshold lets the overdraw pass degrade the vertex cache
// miss ratio by up to 5%.
const DefaultOverdrawThreshold = 1.05

// fifoCache simulates a FIFO post-transform cache with timestamps.
type fifoCache struct {
	size  int
	stamp []uint32
	time  uint32
}

func newFIFOCache(vertexCount, size int) *fifoCache {
	return &fifoCache{size: size, stamp: make([]uint32, vertexCount), time: uint32(size) + 1}
}

// reset invalidates every cached entry.
func (c *fifoCache) reset() {
	c.time += uint32(c.size) + 1
}

// triangle feeds one triangle through the cache and returns its misses.
func (c *fifoCache) triangle(a, b, d uint32) int {
	misses := 0
	for _, v := range [3]uint32{a, b, d} {
		if c.time-c.stamp[v] > uint32(c.size) {
			c.stamp[v] = c.time
			c.time++
			misses++
		}
	}
	return misses
}

// hardBoundaries splits the triangle list where a triangle misses the cache
// on all three vertices, which usually starts a disjoint patch.
func hardBoundaries(indices []uint32, vertexCount, cacheSize int) []int {
	cache := newFIFOCache(vertexCount, cacheSize)
	var out []int
	for f := 0; f < len(indices)/3; f++ {
		m := cache.triangle(indices[3*f], indices[3*f+1], indices[3*f+2])
		if f == 0 || m == 3 {
			out = append(out, f)
		}
	}
	return out
}

// softBoundaries splits each hard cluster further wherever the running miss
// ratio drops to threshold times the cluster's standalone ratio. The tail
// after the last split is merged into the previous cluster.
func softBoundaries(indices []uint32, vertexCount int, hard []int, cacheSize int, threshold float32) []int {
	faceCount := len(indices) / 3
	cache := newFIFOCache(vertexCount, cacheSize)
	var out []int

	for it, start := range hard {
		end := faceCount
		if it+1 < len(hard) {
			end = hard[it+1]
		}

		cache.reset()
		clusterMisses := 0
		for f := start; f < end; f++ {
			clusterMisses += cache.triangle(indices[3*f], indices[3*f+1], indices[3*f+2])
		}
		limit := threshold * float32(clusterMisses) / float32(end-start)

		out = append(out, start)
		cache.reset()
		misses, faces := 0, 0
		for f := start; f < end; f++ {
			misses += cache.triangle(indices[3*f], indices[3*f+1], indices[3*f+2])
			faces++
			if float32(misses)/float32(faces) <= limit {
				out = append(out, f+1)
				cache.reset()
				misses, faces = 0, 0
			}
		}

		if out[len(out)-1] != start {
			out = out[:len(out)-1]
		}
	}
	return out
}

// OptimizeOverdraw reorders clusters of triangles so that likely occluders
// are drawn first. Clusters are cut along the existing order so that the
// vertex cache miss ratio grows by at most threshold (1.05 allows 5%). The
// set of triangles and their windings do not change.
func OptimizeOverdraw(indices []uint32, positions [][3]float32, cacheSize int, threshold float32) []uint32 {
	faceCount := len(indices) / 3
	out := make([]uint32, 0, faceCount*3)
	if faceCount == 0 {
		return out
	}
	if threshold < 1 {
		threshold = 1
	}

	vertexCount := len(positions)
	clusters := softBoundaries(indices, vertexCount, hardBoundaries(indices, vertexCount, cacheSize), cacheSize, threshold)

	var meshCentroid vmath.Vec3
	for _, v := range indices[:faceCount*3] {
		meshCentroid = meshCentroid.Add(vmath.FromArray(positions[v]))
	}
	meshCentroid = meshCentroid.Scale(1 / float32(faceCount*3))

	keys := make([]float32, len(clusters))
	for ci, start := range clusters {
		end := faceCount
		if ci+1 < len(clusters) {
			end = clusters[ci+1]
		}

		var centroid, normal vmath.Vec3
		var area float32
		for f := start; f < end; f++ {
			p0 := vmath.FromArray(positions[indices[3*f]])
			p1 := vmath.FromArray(positions[indices[3*f+1]])
			p2 := vmath.FromArray(positions[indices[3*f+2]])
			a, n := vmath.TriangleArea2(p0, p1, p2)
			centroid = centroid.Add(p0.Add(p1).Add(p2).Scale(a / 3))
			normal = normal.Add(n)
			area += a
		}
		if area > 0 {
			centroid = centroid.Scale(1 / area)
		}
		keys[ci] = centroid.Sub(meshCentroid).Dot(normal.Normalize())
	}

	order := make([]int, len(clusters))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case keys[a] > keys[b]:
			return -1
		case keys[a] < keys[b]:
			return 1
		default:
			return 0
		}
	})

	for _, ci := range order {
		start := clusters[ci]
		end := faceCount
		if ci+1 < len(clusters) {
			end = clusters[ci+1]
		}
		out = append(out, indices[3*start:3*end]...)
	}
	return out
}
