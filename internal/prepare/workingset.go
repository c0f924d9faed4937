package prepare

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-meshprep/pkg/mesh"
	"github.com/Faultbox/midgard-meshprep/pkg/meshopt"
)

// Preparation errors. A fragment that fails with one of these is left
// untouched.
var (
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrIndexCount      = errors.New("index count is not a multiple of three")
	ErrBufferLength    = errors.New("per-vertex buffers disagree on vertex count")
	ErrNotRemappable   = errors.New("per-vertex component cannot be remapped")
)

// workingSet is the transient copy of a fragment's data that the pipeline
// rewrites. Nothing in it aliases fragment memory that a step mutates.
type workingSet struct {
	indices []uint32

	// streams holds every per-vertex buffer, skin and morph targets included,
	// in the order they were gathered.
	streams []mesh.VertexStream

	positions   [][3]float32
	vertexCount int
}

// gather builds the working set for f's triangle list ib.
func gather(f *mesh.Fragment, ib *mesh.IndexBuffer) (*workingSet, error) {
	if len(ib.Indices)%3 != 0 {
		return nil, fmt.Errorf("%w: %d indices", ErrIndexCount, len(ib.Indices))
	}
	ws := &workingSet{
		indices:     append([]uint32(nil), ib.Indices...),
		vertexCount: -1,
	}

	for _, cat := range mesh.WellKnownCategories() {
		if !cat.IsVertexAttribute() || cat == mesh.Skin || cat == mesh.Morph {
			continue
		}
		vs, err := vertexStream(f, cat)
		if err != nil {
			return nil, err
		}
		if vs != nil {
			ws.streams = append(ws.streams, vs)
		}
	}

	skin, err := vertexStream(f, mesh.Skin)
	if err != nil {
		return nil, err
	}
	if skin != nil {
		ws.streams = append(ws.streams, skin)
	}
	morph, err := vertexStream(f, mesh.Morph)
	if err != nil {
		return nil, err
	}
	if morph != nil {
		if mb, ok := morph.(*mesh.MorphBuffer); ok {
			if err := mb.Validate(); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrBufferLength, err)
			}
		}
		// Targets without deltas carry no per-vertex data to remap.
		if morph.Len() > 0 {
			ws.streams = append(ws.streams, morph)
		}
	}

	for _, s := range ws.streams {
		switch {
		case ws.vertexCount < 0:
			ws.vertexCount = s.Len()
		case s.Len() != ws.vertexCount:
			return nil, fmt.Errorf("%w: %s has %d records, want %d", ErrBufferLength, s.TypeName(), s.Len(), ws.vertexCount)
		}
	}
	if ws.vertexCount < 0 {
		// Index-only fragment: the vertex range is implied by the indices.
		ws.vertexCount = 0
		for _, idx := range ws.indices {
			ws.vertexCount = max(ws.vertexCount, int(idx)+1)
		}
	}

	for i, idx := range ws.indices {
		if int(idx) >= ws.vertexCount {
			return nil, fmt.Errorf("%w: index %d is %d, vertex count %d", ErrIndexOutOfRange, i, idx, ws.vertexCount)
		}
	}

	ws.syncPositions()
	return ws, nil
}

func vertexStream(f *mesh.Fragment, cat mesh.Category) (mesh.VertexStream, error) {
	c, ok := f.ByCategory(cat)
	if !ok {
		return nil, nil
	}
	vs, ok := c.(mesh.VertexStream)
	if !ok {
		return nil, fmt.Errorf("%w: %s (%T)", ErrNotRemappable, c.TypeName(), c)
	}
	return vs, nil
}

// key appends the bytes of vertex v across every stream. Index-only
// fragments have no data to compare, so each vertex keys on itself.
func (ws *workingSet) key(dst []byte, v int) []byte {
	if len(ws.streams) == 0 {
		return binary.LittleEndian.AppendUint32(dst, uint32(v))
	}
	for _, s := range ws.streams {
		dst = s.AppendKey(dst, v)
	}
	return dst
}

// apply rewrites the index list and every stream through one remap table.
func (ws *workingSet) apply(remap []uint32, vertexCount int) {
	ws.indices = meshopt.RemapIndexBuffer(ws.indices, remap)
	for i, s := range ws.streams {
		ws.streams[i] = s.Remapped(remap, vertexCount)
	}
	ws.vertexCount = vertexCount
	ws.syncPositions()
}

func (ws *workingSet) syncPositions() {
	ws.positions = nil
	for _, s := range ws.streams {
		if s.Category() != mesh.Position {
			continue
		}
		if vb, ok := s.(*mesh.VertexBuffer[[3]float32]); ok {
			ws.positions = vb.Data
		}
		return
	}
}
