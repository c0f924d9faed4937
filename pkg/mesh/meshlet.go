package mesh

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Faultbox/midgard-meshprep/pkg/meshopt"
)

// MeshletTypeName is the type name of the meshlet output component.
const MeshletTypeName = "Meshlets"

// MeshletBuffer is the GPU-facing output of meshlet construction. Bounds is
// nil unless cull data was requested.
type MeshletBuffer struct {
	Meshlets []meshopt.Meshlet
	Bounds   []meshopt.Bounds
}

// TypeName implements Component.
func (m *MeshletBuffer) TypeName() string { return MeshletTypeName }

// Category implements Component. Meshlets are derived data, not a flagged
// category.
func (m *MeshletBuffer) Category() Category { return CategoryNone }

// Len returns the meshlet count.
func (m *MeshletBuffer) Len() int { return len(m.Meshlets) }

// Gather implements Component.
func (m *MeshletBuffer) Gather(FilterMode) []Binding {
	var vertices, triangles int
	for i := range m.Meshlets {
		vertices += m.Meshlets[i].VertexCount
		triangles += m.Meshlets[i].TriangleCount
	}
	out := []Binding{
		{Name: "Meshlets", Target: TargetStorage, Stride: 16, Count: len(m.Meshlets)},
		{Name: "MeshletVertices", Target: TargetStorage, Stride: 4, Count: vertices},
		{Name: "MeshletPrimitives", Target: TargetStorage, Stride: 3, Count: triangles},
	}
	if m.Bounds != nil {
		out = append(out, Binding{Name: "MeshletCull", Target: TargetStorage, Stride: 16, Count: len(m.Bounds)})
	}
	return out
}

// WriteTo writes the meshlets followed by the bounds array.
func (m *MeshletBuffer) WriteTo(w io.Writer) (int64, error) {
	var buf []byte
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(m.Meshlets)))
	for i := range m.Meshlets {
		ml := &m.Meshlets[i]
		buf = binary.LittleEndian.AppendUint32(buf, uint32(ml.VertexCount))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(ml.TriangleCount))
		for _, v := range ml.Vertices[:ml.VertexCount] {
			buf = binary.LittleEndian.AppendUint32(buf, v)
		}
		for _, p := range ml.Primitives[:ml.TriangleCount] {
			buf = append(buf, p[0], p[1], p[2])
		}
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(m.Bounds)))
	for _, b := range m.Bounds {
		buf = vec3Codec.append(buf, b.Center)
		buf = appendFloat(buf, b.Radius)
	}
	n, err := w.Write(buf)
	return int64(n), err
}

// ReadFrom implements io.ReaderFrom.
func (m *MeshletBuffer) ReadFrom(r io.Reader) (int64, error) {
	cr := &countingReader{r: r}
	count, err := readCount(cr)
	if err != nil {
		return cr.n, err
	}
	// Every meshlet carries at least its two counts.
	if err := checkFits(cr, count, 8); err != nil {
		return cr.n, err
	}
	meshlets := make([]meshopt.Meshlet, count)
	for i := range meshlets {
		var hdr [8]byte
		if _, err := io.ReadFull(cr, hdr[:]); err != nil {
			return cr.n, ErrTruncated
		}
		vc := int(binary.LittleEndian.Uint32(hdr[:]))
		tc := int(binary.LittleEndian.Uint32(hdr[4:]))
		if vc > maxMeshletVertices || tc > maxMeshletTriangles {
			return cr.n, fmt.Errorf("%w: meshlet %d has %d vertices, %d triangles", ErrRecordCount, i, vc, tc)
		}
		if err := checkFits(cr, 1, vc*4+tc*3); err != nil {
			return cr.n, err
		}
		body := make([]byte, vc*4+tc*3)
		if _, err := io.ReadFull(cr, body); err != nil {
			return cr.n, ErrTruncated
		}
		ml := meshopt.Meshlet{
			Vertices:      make([]uint32, vc),
			Primitives:    make([][3]uint8, tc),
			VertexCount:   vc,
			TriangleCount: tc,
		}
		for j := range ml.Vertices {
			ml.Vertices[j] = binary.LittleEndian.Uint32(body[4*j:])
		}
		prims := body[4*vc:]
		for j := range ml.Primitives {
			ml.Primitives[j] = [3]uint8{prims[3*j], prims[3*j+1], prims[3*j+2]}
		}
		meshlets[i] = ml
	}

	raw, _, err := readRecords(cr, 16)
	if err != nil {
		return cr.n, err
	}
	var bounds []meshopt.Bounds
	if len(raw) > 0 {
		bounds = make([]meshopt.Bounds, len(raw)/16)
		for i := range bounds {
			bounds[i] = meshopt.Bounds{Center: vec3Codec.decode(raw[16*i:]), Radius: readFloat(raw[16*i+12:])}
		}
	}
	m.Meshlets = meshlets
	m.Bounds = bounds
	return cr.n, nil
}
