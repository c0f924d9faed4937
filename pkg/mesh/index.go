package mesh

import (
	"encoding/binary"
	"fmt"
	"io"
)

// IndexBuffer holds a face list. PerFace is 3 for triangle lists and 2 for
// line lists; Indices stores the faces back to back.
type IndexBuffer struct {
	category Category
	PerFace  int
	Indices  []uint32
}

// NewTriangleIndices creates a triangle list from index triples.
func NewTriangleIndices(faces [][3]uint32) *IndexBuffer {
	idx := make([]uint32, 0, len(faces)*3)
	for _, f := range faces {
		idx = append(idx, f[0], f[1], f[2])
	}
	return &IndexBuffer{category: TriangleIndex, PerFace: 3, Indices: idx}
}

// NewLineIndices creates a line list from index pairs.
func NewLineIndices(lines [][2]uint32) *IndexBuffer {
	idx := make([]uint32, 0, len(lines)*2)
	for _, l := range lines {
		idx = append(idx, l[0], l[1])
	}
	return &IndexBuffer{category: LineIndex, PerFace: 2, Indices: idx}
}

func newIndexBuffer(cat Category) *IndexBuffer {
	per := 3
	if cat == LineIndex {
		per = 2
	}
	return &IndexBuffer{category: cat, PerFace: per}
}

// TypeName implements Component.
func (b *IndexBuffer) TypeName() string { return b.category.String() }

// Category implements Component.
func (b *IndexBuffer) Category() Category { return b.category }

// Len returns the number of indices.
func (b *IndexBuffer) Len() int { return len(b.Indices) }

// IsTriangles reports whether the buffer is a triangle list.
func (b *IndexBuffer) IsTriangles() bool {
	return b.category == TriangleIndex && b.PerFace == 3
}

// Faces returns the triangle list as index triples.
func (b *IndexBuffer) Faces() [][3]uint32 {
	if !b.IsTriangles() {
		return nil
	}
	out := make([][3]uint32, len(b.Indices)/3)
	for i := range out {
		out[i] = [3]uint32{b.Indices[3*i], b.Indices[3*i+1], b.Indices[3*i+2]}
	}
	return out
}

// Gather implements Component.
func (b *IndexBuffer) Gather(FilterMode) []Binding {
	return []Binding{{
		Name:       b.TypeName(),
		Target:     TargetIndex,
		Stride:     4,
		Count:      len(b.Indices),
		Attributes: []Attribute{{Format: FormatUint32, Components: 1}},
	}}
}

// WriteTo writes the face count followed by PerFace indices per face.
func (b *IndexBuffer) WriteTo(w io.Writer) (int64, error) {
	if len(b.Indices)%b.PerFace != 0 {
		return 0, fmt.Errorf("%w: %d indices, %d per face", ErrPartialFace, len(b.Indices), b.PerFace)
	}
	faces := len(b.Indices) / b.PerFace
	buf := make([]byte, 0, 4+faces*b.PerFace*4)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(faces))
	for _, v := range b.Indices[:faces*b.PerFace] {
		buf = binary.LittleEndian.AppendUint32(buf, v)
	}
	n, err := w.Write(buf)
	return int64(n), err
}

// ReadFrom implements io.ReaderFrom.
func (b *IndexBuffer) ReadFrom(r io.Reader) (int64, error) {
	raw, n, err := readRecords(r, 4*b.PerFace)
	if err != nil {
		return n, err
	}
	idx := make([]uint32, len(raw)/4)
	for i := range idx {
		idx[i] = binary.LittleEndian.Uint32(raw[4*i:])
	}
	b.Indices = idx
	return n, nil
}
