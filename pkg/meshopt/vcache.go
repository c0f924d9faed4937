package meshopt

import "github.com/chewxy/math32"

// DefaultCacheSize is the FIFO vertex cache size the optimizers target.
const DefaultCacheSize = 16

// Forsyth scoring constants.
const (
	lastTriangleScore = 0.75
	cacheDecayPower   = 1.5
	valenceBoostScale = 2.0
	valenceBoostPower = 0.5
)

func vertexScore(cachePos, live, cacheSize int) float32 {
	if live == 0 {
		return -1
	}
	var score float32
	if cachePos >= 0 {
		if cachePos < 3 {
			score = lastTriangleScore
		} else {
			s := 1 - float32(cachePos-3)/float32(cacheSize-3)
			score = math32.Pow(s, cacheDecayPower)
		}
	}
	return score + valenceBoostScale*math32.Pow(float32(live), -valenceBoostPower)
}

// adjacency lists, per vertex, the triangles that are not emitted yet.
type adjacency struct {
	offsets []int
	counts  []int
	faces   []int
}

func buildAdjacency(indices []uint32, vertexCount int) *adjacency {
	a := &adjacency{
		offsets: make([]int, vertexCount+1),
		counts:  make([]int, vertexCount),
		faces:   make([]int, len(indices)),
	}
	for _, v := range indices {
		a.counts[v]++
	}
	for v := 0; v < vertexCount; v++ {
		a.offsets[v+1] = a.offsets[v] + a.counts[v]
	}
	fill := append([]int(nil), a.offsets[:vertexCount]...)
	for i, v := range indices {
		a.faces[fill[v]] = i / 3
		fill[v]++
	}
	return a
}

func (a *adjacency) live(v uint32) []int {
	return a.faces[a.offsets[v] : a.offsets[v]+a.counts[v]]
}

func (a *adjacency) remove(v uint32, face int) {
	list := a.live(v)
	for i, f := range list {
		if f == face {
			list[i] = list[len(list)-1]
			a.counts[v]--
			return
		}
	}
}

// OptimizeVertexCache reorders triangles to maximize hits in a FIFO
// post-transform cache of cacheSize entries. Each triangle keeps its winding;
// only the order of triangles changes.
func OptimizeVertexCache(indices []uint32, vertexCount, cacheSize int) []uint32 {
	faceCount := len(indices) / 3
	out := make([]uint32, 0, faceCount*3)
	if faceCount == 0 {
		return out
	}
	if cacheSize < 4 {
		cacheSize = 4
	}

	adj := buildAdjacency(indices[:faceCount*3], vertexCount)

	cachePos := make([]int, vertexCount)
	vscore := make([]float32, vertexCount)
	for v := range cachePos {
		cachePos[v] = -1
		vscore[v] = vertexScore(-1, adj.counts[v], cacheSize)
	}

	fscore := make([]float32, faceCount)
	best, bestScore := -1, float32(-1)
	for f := 0; f < faceCount; f++ {
		tri := indices[3*f : 3*f+3]
		fscore[f] = vscore[tri[0]] + vscore[tri[1]] + vscore[tri[2]]
		if fscore[f] > bestScore {
			best, bestScore = f, fscore[f]
		}
	}

	emitted := make([]bool, faceCount)
	cache := make([]uint32, 0, cacheSize+3)
	next := make([]uint32, 0, cacheSize+3)
	cursor := 0

	for len(out) < faceCount*3 {
		if best < 0 {
			// Dead end: continue with the next triangle in input order.
			for emitted[cursor] {
				cursor++
			}
			best = cursor
		}

		f := best
		tri := indices[3*f : 3*f+3]
		out = append(out, tri...)
		emitted[f] = true

		next = next[:0]
		for _, v := range tri {
			adj.remove(v, f)
			if !containsIndex(next, v) {
				next = append(next, v)
			}
		}
		for _, v := range cache {
			if !containsIndex(next, v) {
				next = append(next, v)
			}
		}
		for i, v := range next {
			if i < cacheSize {
				cachePos[v] = i
			} else {
				cachePos[v] = -1
			}
		}

		for _, v := range next {
			s := vertexScore(cachePos[v], adj.counts[v], cacheSize)
			delta := s - vscore[v]
			vscore[v] = s
			for _, g := range adj.live(v) {
				fscore[g] += delta
			}
		}

		if len(next) > cacheSize {
			next = next[:cacheSize]
		}
		cache, next = next, cache

		best, bestScore = -1, float32(-1)
		for _, v := range cache {
			for _, g := range adj.live(v) {
				if fscore[g] > bestScore {
					best, bestScore = g, fscore[g]
				}
			}
		}
	}
	return out
}

func containsIndex(s []uint32, v uint32) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
