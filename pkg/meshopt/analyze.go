package meshopt

// CacheStats summarizes how an index buffer performs on a FIFO vertex cache.
type CacheStats struct {
	// VerticesTransformed counts cache misses.
	VerticesTransformed int
	// ACMR is misses per triangle; 0.5 is the ideal for large regular meshes.
	ACMR float32
	// ATVR is misses per referenced vertex; 1.0 is optimal.
	ATVR float32
}

// AnalyzeVertexCache simulates a FIFO cache of cacheSize entries over the
// triangle list.
func AnalyzeVertexCache(indices []uint32, vertexCount, cacheSize int) CacheStats {
	var stats CacheStats
	faceCount := len(indices) / 3
	if faceCount == 0 {
		return stats
	}

	cache := newFIFOCache(vertexCount, cacheSize)
	referenced := make([]bool, vertexCount)
	unique := 0
	for f := 0; f < faceCount; f++ {
		a, b, c := indices[3*f], indices[3*f+1], indices[3*f+2]
		stats.VerticesTransformed += cache.triangle(a, b, c)
		for _, v := range [3]uint32{a, b, c} {
			if !referenced[v] {
				referenced[v] = true
				unique++
			}
		}
	}

	stats.ACMR = float32(stats.VerticesTransformed) / float32(faceCount)
	stats.ATVR = float32(stats.VerticesTransformed) / float32(unique)
	return stats
}
