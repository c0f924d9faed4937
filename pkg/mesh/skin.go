package mesh

import (
	"encoding/binary"
	"io"

	"github.com/Faultbox/midgard-meshprep/pkg/meshopt"
)

const skinWeightSize = 24

// SkinWeight binds a vertex to up to four joints.
type SkinWeight struct {
	Joints  [4]uint16
	Weights [4]float32
}

// SkinBuffer holds one SkinWeight per vertex.
type SkinBuffer struct {
	Data []SkinWeight
}

// NewSkin creates a skin weight stream.
func NewSkin(data []SkinWeight) *SkinBuffer {
	return &SkinBuffer{Data: data}
}

// TypeName implements Component.
func (s *SkinBuffer) TypeName() string { return Skin.String() }

// Category implements Component.
func (s *SkinBuffer) Category() Category { return Skin }

// Len implements Component.
func (s *SkinBuffer) Len() int { return len(s.Data) }

// Gather implements Component. Joints and weights share one interleaved buffer.
func (s *SkinBuffer) Gather(FilterMode) []Binding {
	return []Binding{{
		Name:   Skin.String(),
		Target: TargetVertex,
		Stride: skinWeightSize,
		Count:  len(s.Data),
		Attributes: []Attribute{
			{Location: LocationJoints, Format: FormatUint16, Components: 4, Offset: 0},
			{Location: LocationWeights, Format: FormatFloat32, Components: 4, Offset: 8},
		},
	}}
}

func appendSkinWeight(dst []byte, w SkinWeight) []byte {
	for _, j := range w.Joints {
		dst = binary.LittleEndian.AppendUint16(dst, j)
	}
	for _, x := range w.Weights {
		dst = appendFloat(dst, x)
	}
	return dst
}

// AppendKey implements VertexStream.
func (s *SkinBuffer) AppendKey(dst []byte, i int) []byte {
	return appendSkinWeight(dst, s.Data[i])
}

// Remapped implements VertexStream.
func (s *SkinBuffer) Remapped(remap []uint32, vertexCount int) VertexStream {
	return &SkinBuffer{Data: meshopt.RemapVertexBuffer(s.Data, remap, vertexCount)}
}

// WriteTo implements io.WriterTo.
func (s *SkinBuffer) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, 0, 4+len(s.Data)*skinWeightSize)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s.Data)))
	for _, sw := range s.Data {
		buf = appendSkinWeight(buf, sw)
	}
	n, err := w.Write(buf)
	return int64(n), err
}

// ReadFrom implements io.ReaderFrom.
func (s *SkinBuffer) ReadFrom(r io.Reader) (int64, error) {
	raw, n, err := readRecords(r, skinWeightSize)
	if err != nil {
		return n, err
	}
	data := make([]SkinWeight, len(raw)/skinWeightSize)
	for i := range data {
		rec := raw[i*skinWeightSize:]
		for j := range data[i].Joints {
			data[i].Joints[j] = binary.LittleEndian.Uint16(rec[2*j:])
		}
		for j := range data[i].Weights {
			data[i].Weights[j] = readFloat(rec[8+4*j:])
		}
	}
	s.Data = data
	return n, nil
}
