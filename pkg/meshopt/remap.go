// Package meshopt implements the index and vertex buffer transformations used
// to prepare triangle meshes for the GPU: duplicate vertex merging,
// vertex-cache and overdraw ordering, vertex-fetch reordering and meshlet
// clustering.
//
// Index buffers are flat triangle lists (three indices per triangle). Every
// function that takes a vertexCount expects all indices to be below it.
package meshopt

// Unused marks a vertex that a remap table drops.
const Unused = ^uint32(0)

// KeyFunc appends the bytes that identify vertex v to dst. Two vertices with
// equal keys are merged.
type KeyFunc func(dst []byte, v int) []byte

// GenerateVertexRemap builds a table mapping each original vertex to its
// slot in a deduplicated vertex buffer. Vertices are numbered in order of
// first reference; vertices with byte-identical keys share a slot and
// vertices no triangle references map to Unused.
//
// It returns the table and the deduplicated vertex count.
func GenerateVertexRemap(indices []uint32, vertexCount int, key KeyFunc) ([]uint32, int) {
	remap := make([]uint32, vertexCount)
	for i := range remap {
		remap[i] = Unused
	}

	seen := make(map[string]uint32, vertexCount)
	next := uint32(0)
	var buf []byte
	for _, idx := range indices {
		if remap[idx] != Unused {
			continue
		}
		buf = key(buf[:0], int(idx))
		if dst, ok := seen[string(buf)]; ok {
			remap[idx] = dst
			continue
		}
		seen[string(buf)] = next
		remap[idx] = next
		next++
	}
	return remap, int(next)
}

// RemapIndexBuffer translates every index through remap.
func RemapIndexBuffer(indices []uint32, remap []uint32) []uint32 {
	out := make([]uint32, len(indices))
	for i, idx := range indices {
		out[i] = remap[idx]
	}
	return out
}

// RemapVertexBuffer gathers src into a new buffer of vertexCount records
// where src[i] lands at remap[i]. Entries mapped to Unused are dropped; when
// several sources map to one slot they are equal by construction.
func RemapVertexBuffer[T any](src []T, remap []uint32, vertexCount int) []T {
	out := make([]T, vertexCount)
	for i, dst := range remap {
		if dst != Unused {
			out[dst] = src[i]
		}
	}
	return out
}

// OptimizeVertexFetchRemap builds a table that renumbers vertices in the
// order the index buffer first references them. It returns the table and
// the number of referenced vertices.
func OptimizeVertexFetchRemap(indices []uint32, vertexCount int) ([]uint32, int) {
	remap := make([]uint32, vertexCount)
	for i := range remap {
		remap[i] = Unused
	}
	next := uint32(0)
	for _, idx := range indices {
		if remap[idx] == Unused {
			remap[idx] = next
			next++
		}
	}
	return remap, int(next)
}
