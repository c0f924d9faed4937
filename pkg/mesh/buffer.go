package mesh

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/Faultbox/midgard-meshprep/pkg/meshopt"
)

// recordCodec describes the fixed-size little-endian layout of one record.
type recordCodec[T any] struct {
	size       int
	format     Format
	components int
	append     func(dst []byte, v T) []byte
	decode     func(src []byte) T
}

func appendFloat(dst []byte, v float32) []byte {
	return binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
}

func readFloat(src []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(src))
}

var vec2Codec = &recordCodec[[2]float32]{
	size: 8, format: FormatFloat32, components: 2,
	append: func(dst []byte, v [2]float32) []byte {
		return appendFloat(appendFloat(dst, v[0]), v[1])
	},
	decode: func(b []byte) [2]float32 {
		return [2]float32{readFloat(b), readFloat(b[4:])}
	},
}

var vec3Codec = &recordCodec[[3]float32]{
	size: 12, format: FormatFloat32, components: 3,
	append: func(dst []byte, v [3]float32) []byte {
		return appendFloat(appendFloat(appendFloat(dst, v[0]), v[1]), v[2])
	},
	decode: func(b []byte) [3]float32 {
		return [3]float32{readFloat(b), readFloat(b[4:]), readFloat(b[8:])}
	},
}

var vec4Codec = &recordCodec[[4]float32]{
	size: 16, format: FormatFloat32, components: 4,
	append: func(dst []byte, v [4]float32) []byte {
		for _, x := range v {
			dst = appendFloat(dst, x)
		}
		return dst
	},
	decode: func(b []byte) [4]float32 {
		return [4]float32{readFloat(b), readFloat(b[4:]), readFloat(b[8:]), readFloat(b[12:])}
	},
}

var uint32Codec = &recordCodec[uint32]{
	size: 4, format: FormatUint32, components: 1,
	append: func(dst []byte, v uint32) []byte {
		return binary.LittleEndian.AppendUint32(dst, v)
	},
	decode: func(b []byte) uint32 {
		return binary.LittleEndian.Uint32(b)
	},
}

// VertexBuffer is a per-vertex attribute stream of fixed-size records.
type VertexBuffer[T any] struct {
	name     string
	category Category
	codec    *recordCodec[T]

	Data []T
}

func newVertexBuffer[T any](cat Category, codec *recordCodec[T], data []T) *VertexBuffer[T] {
	return &VertexBuffer[T]{name: cat.String(), category: cat, codec: codec, Data: data}
}

// NewPositions creates a position stream.
func NewPositions(data [][3]float32) *VertexBuffer[[3]float32] {
	return newVertexBuffer(Position, vec3Codec, data)
}

// NewNormals creates a normal stream.
func NewNormals(data [][3]float32) *VertexBuffer[[3]float32] {
	return newVertexBuffer(Normal, vec3Codec, data)
}

// NewTangents creates a tangent stream; W carries the handedness sign.
func NewTangents(data [][4]float32) *VertexBuffer[[4]float32] {
	return newVertexBuffer(Tangent, vec4Codec, data)
}

// NewBitangents creates a bitangent stream.
func NewBitangents(data [][3]float32) *VertexBuffer[[3]float32] {
	return newVertexBuffer(Bitangent, vec3Codec, data)
}

// NewTexCoords creates a texture coordinate stream for channel 0-3.
func NewTexCoords(channel int, data [][2]float32) *VertexBuffer[[2]float32] {
	return newVertexBuffer(TexCoordChannel(channel), vec2Codec, data)
}

// NewColors creates an RGBA color stream.
func NewColors(data [][4]float32) *VertexBuffer[[4]float32] {
	return newVertexBuffer(Color, vec4Codec, data)
}

// NewPassMasks creates a per-vertex render pass mask stream.
func NewPassMasks(data []uint32) *VertexBuffer[uint32] {
	return newVertexBuffer(PassMask, uint32Codec, data)
}

// NewVelocities creates a per-vertex velocity stream.
func NewVelocities(data [][3]float32) *VertexBuffer[[3]float32] {
	return newVertexBuffer(Velocity, vec3Codec, data)
}

// TypeName implements Component.
func (b *VertexBuffer[T]) TypeName() string { return b.name }

// Category implements Component.
func (b *VertexBuffer[T]) Category() Category { return b.category }

// Len implements Component.
func (b *VertexBuffer[T]) Len() int { return len(b.Data) }

// Gather implements Component.
func (b *VertexBuffer[T]) Gather(mode FilterMode) []Binding {
	if !b.category.NeededBy(mode) {
		return nil
	}
	return []Binding{{
		Name:   b.name,
		Target: TargetVertex,
		Stride: b.codec.size,
		Count:  len(b.Data),
		Attributes: []Attribute{{
			Location:   attributeLocation(b.category),
			Format:     b.codec.format,
			Components: b.codec.components,
		}},
	}}
}

// AppendKey implements VertexStream.
func (b *VertexBuffer[T]) AppendKey(dst []byte, i int) []byte {
	return b.codec.append(dst, b.Data[i])
}

// Remapped implements VertexStream.
func (b *VertexBuffer[T]) Remapped(remap []uint32, vertexCount int) VertexStream {
	out := *b
	out.Data = meshopt.RemapVertexBuffer(b.Data, remap, vertexCount)
	return &out
}

// WriteTo writes the record count followed by the records.
func (b *VertexBuffer[T]) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, 0, 4+len(b.Data)*b.codec.size)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(b.Data)))
	for _, v := range b.Data {
		buf = b.codec.append(buf, v)
	}
	n, err := w.Write(buf)
	return int64(n), err
}

// ReadFrom replaces the records with the ones read from r.
func (b *VertexBuffer[T]) ReadFrom(r io.Reader) (int64, error) {
	raw, n, err := readRecords(r, b.codec.size)
	if err != nil {
		return n, err
	}
	data := make([]T, len(raw)/b.codec.size)
	for i := range data {
		data[i] = b.codec.decode(raw[i*b.codec.size:])
	}
	b.Data = data
	return n, nil
}
