package mesh

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-meshprep/pkg/meshopt"
)

func sampleFragment() *Fragment {
	f := NewFragment("hull_lod0")
	f.Add(NewPositions([][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}}))
	f.Add(NewNormals([][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}}))
	f.Add(NewTexCoords(1, [][2]float32{{0, 0}, {1, 0}, {0, 1}, {1, 1}}))
	f.Add(NewColors([][4]float32{{1, 0, 0, 1}, {0, 1, 0, 1}, {0, 0, 1, 1}, {1, 1, 1, 1}}))
	f.Add(NewPassMasks([]uint32{1, 1, 3, 0xffffffff}))
	f.Add(NewSkin([]SkinWeight{
		{Joints: [4]uint16{0, 1}, Weights: [4]float32{0.5, 0.5}},
		{Joints: [4]uint16{1}, Weights: [4]float32{1}},
		{Joints: [4]uint16{2, 3}, Weights: [4]float32{0.25, 0.75}},
		{Joints: [4]uint16{3}, Weights: [4]float32{1}},
	}))
	f.Add(NewMorph([]MorphTarget{{
		Name:      "smile",
		Positions: [][3]float32{{0, 0, 0.1}, {0, 0, 0.2}, {0, 0, 0}, {0, 0, 0}},
		Colors:    [][4]float32{{0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {0.1, 0, 0, 0}},
	}}))
	f.Add(NewTriangleIndices([][3]uint32{{0, 1, 2}, {2, 1, 3}}))
	f.Add(&MeshletBuffer{
		Meshlets: []meshopt.Meshlet{{
			Vertices:      []uint32{0, 1, 2, 3},
			Primitives:    [][3]uint8{{0, 1, 2}, {2, 1, 3}},
			VertexCount:   4,
			TriangleCount: 2,
		}},
		Bounds: []meshopt.Bounds{{Center: [3]float32{0.5, 0.5, 0}, Radius: 0.7072}},
	})
	return f
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f := sampleFragment()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, f))

	got, err := Decode(bytes.NewReader(buf.Bytes()), New)
	require.NoError(t, err)

	assert.Equal(t, f.Name, got.Name)
	assert.Equal(t, f.Names(), got.Names())
	for _, c := range f.Components() {
		other, ok := got.Get(c.TypeName())
		require.True(t, ok, c.TypeName())
		assert.Equal(t, c, other, c.TypeName())
	}

	// Encoding the decoded fragment reproduces the same bytes.
	var again bytes.Buffer
	require.NoError(t, Encode(&again, got))
	assert.Equal(t, buf.Bytes(), again.Bytes())
}

func TestReadWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hull.mfrg")
	f := sampleFragment()

	require.NoError(t, WriteFile(path, f))
	got, err := ReadFile(path, New)
	require.NoError(t, err)
	assert.Equal(t, f.Names(), got.Names())
	assert.Equal(t, 4, got.VertexCount())
}

func TestDecodeErrors(t *testing.T) {
	var valid bytes.Buffer
	require.NoError(t, Encode(&valid, sampleFragment()))
	data := valid.Bytes()

	badVersion := append([]byte(nil), data...)
	binary.LittleEndian.PutUint16(badVersion[4:], 9)

	// A component whose declared size is larger than what ReadFrom consumes.
	var padded bytes.Buffer
	padded.WriteString(fragmentMagic)
	padded.Write(binary.LittleEndian.AppendUint16(nil, fragmentVersion))
	padded.Write(appendString(nil, "f"))
	padded.Write(binary.LittleEndian.AppendUint32(nil, 1))
	padded.Write(appendString(nil, "PassMask"))
	padded.Write(binary.LittleEndian.AppendUint32(nil, 12))
	padded.Write(binary.LittleEndian.AppendUint32(nil, 1))
	padded.Write(binary.LittleEndian.AppendUint32(nil, 7))
	padded.Write([]byte{0, 0, 0, 0})

	var unknown bytes.Buffer
	unknown.WriteString(fragmentMagic)
	unknown.Write(binary.LittleEndian.AppendUint16(nil, fragmentVersion))
	unknown.Write(appendString(nil, "f"))
	unknown.Write(binary.LittleEndian.AppendUint32(nil, 1))
	unknown.Write(appendString(nil, "Wind"))
	unknown.Write(binary.LittleEndian.AppendUint32(nil, 0))

	// Counts that claim far more records than the payload holds.
	hugeSkin := singleComponent("Skin", binary.LittleEndian.AppendUint32(nil, maxRecords-1))
	hugeMeshlets := singleComponent(MeshletTypeName, binary.LittleEndian.AppendUint32(nil, maxRecords-1))
	morph := binary.LittleEndian.AppendUint32(nil, 1)
	morph = appendString(morph, "blink")
	morph = append(morph, morphHasPositions)
	morph = binary.LittleEndian.AppendUint32(morph, maxRecords-1)
	hugeMorph := singleComponent("Morph", morph)

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"oversized skin count", hugeSkin, ErrRecordCount},
		{"oversized meshlet count", hugeMeshlets, ErrRecordCount},
		{"oversized morph delta count", hugeMorph, ErrRecordCount},
		{"empty", nil, ErrTruncated},
		{"bad magic", []byte("XFRG\x01\x00"), ErrInvalidMagic},
		{"bad version", badVersion, ErrUnsupportedVersion},
		{"truncated payload", data[:len(data)-5], ErrTruncated},
		{"trailing payload", padded.Bytes(), ErrTrailingData},
		{"unknown type", unknown.Bytes(), ErrUnknownType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data), New)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

// singleComponent builds a fragment file holding one component payload.
func singleComponent(typeName string, payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(fragmentMagic)
	buf.Write(binary.LittleEndian.AppendUint16(nil, fragmentVersion))
	buf.Write(appendString(nil, "f"))
	buf.Write(binary.LittleEndian.AppendUint32(nil, 1))
	buf.Write(appendString(nil, typeName))
	buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(len(payload))))
	buf.Write(payload)
	return buf.Bytes()
}

func TestReadFromDirectReaderChecksCount(t *testing.T) {
	var s SkinBuffer
	_, err := s.ReadFrom(bytes.NewReader(binary.LittleEndian.AppendUint32(nil, 1000)))
	assert.ErrorIs(t, err, ErrRecordCount)
	assert.Nil(t, s.Data)
}

func TestDecodeCustomFactory(t *testing.T) {
	f := NewFragment("lines")
	f.Add(NewLineIndices([][2]uint32{{0, 1}, {1, 2}}))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, f))

	var asked []string
	factory := func(name string) (Component, error) {
		asked = append(asked, name)
		return New(name)
	}
	got, err := Decode(&buf, factory)
	require.NoError(t, err)
	assert.Equal(t, []string{"LineIndex"}, asked)

	ib, ok := got.Indices()
	require.True(t, ok)
	assert.False(t, ib.IsTriangles())
	assert.Equal(t, []uint32{0, 1, 1, 2}, ib.Indices)
}

func TestEncodeRejectsPartialFace(t *testing.T) {
	f := NewFragment("ragged")
	ib := NewTriangleIndices([][3]uint32{{0, 1, 2}})
	ib.Indices = append(ib.Indices, 3)
	f.Add(ib)

	var buf bytes.Buffer
	err := Encode(&buf, f)
	assert.ErrorIs(t, err, ErrPartialFace)

	_, err = NewLineIndices([][2]uint32{{0, 1}}).WriteTo(&buf)
	assert.NoError(t, err)
}
