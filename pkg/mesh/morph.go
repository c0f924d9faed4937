package mesh

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Faultbox/midgard-meshprep/pkg/meshopt"
)

// MorphTarget stores per-vertex deltas for one blend shape. Arrays that the
// target does not animate are left empty.
type MorphTarget struct {
	Name      string
	Positions [][3]float32
	Normals   [][3]float32
	Tangents  [][3]float32
	TexCoords [4][][2]float32
	Colors    [][4]float32
}

// vertexCount returns the length of the first non-empty delta array.
func (t *MorphTarget) vertexCount() int {
	switch {
	case len(t.Positions) > 0:
		return len(t.Positions)
	case len(t.Normals) > 0:
		return len(t.Normals)
	case len(t.Tangents) > 0:
		return len(t.Tangents)
	case len(t.Colors) > 0:
		return len(t.Colors)
	}
	for _, uv := range t.TexCoords {
		if len(uv) > 0 {
			return len(uv)
		}
	}
	return 0
}

// Morph delta array presence bits in the persisted mask.
const (
	morphHasPositions = 1 << iota
	morphHasNormals
	morphHasTangents
	morphHasTexCoord0
	morphHasTexCoord1
	morphHasTexCoord2
	morphHasTexCoord3
	morphHasColors
)

func (t *MorphTarget) mask() uint8 {
	var m uint8
	if len(t.Positions) > 0 {
		m |= morphHasPositions
	}
	if len(t.Normals) > 0 {
		m |= morphHasNormals
	}
	if len(t.Tangents) > 0 {
		m |= morphHasTangents
	}
	for ch, uv := range t.TexCoords {
		if len(uv) > 0 {
			m |= morphHasTexCoord0 << ch
		}
	}
	if len(t.Colors) > 0 {
		m |= morphHasColors
	}
	return m
}

// MorphBuffer holds every morph target of a fragment.
type MorphBuffer struct {
	Targets []MorphTarget
}

// NewMorph creates a morph target component.
func NewMorph(targets []MorphTarget) *MorphBuffer {
	return &MorphBuffer{Targets: targets}
}

// TypeName implements Component.
func (m *MorphBuffer) TypeName() string { return Morph.String() }

// Category implements Component.
func (m *MorphBuffer) Category() Category { return Morph }

// Len returns the vertex count shared by all targets.
func (m *MorphBuffer) Len() int {
	for i := range m.Targets {
		if n := m.Targets[i].vertexCount(); n > 0 {
			return n
		}
	}
	return 0
}

// Validate checks that every non-empty delta array has the same length.
func (m *MorphBuffer) Validate() error {
	want := m.Len()
	for i := range m.Targets {
		t := &m.Targets[i]
		lens := []int{len(t.Positions), len(t.Normals), len(t.Tangents), len(t.Colors)}
		for _, uv := range t.TexCoords {
			lens = append(lens, len(uv))
		}
		for _, n := range lens {
			if n != 0 && n != want {
				return fmt.Errorf("morph target %q: %d deltas, want %d", t.Name, n, want)
			}
		}
	}
	return nil
}

// Gather implements Component. Deltas are bound as storage buffers.
func (m *MorphBuffer) Gather(mode FilterMode) []Binding {
	n := m.Len()
	if n == 0 {
		return nil
	}
	var union uint8
	for i := range m.Targets {
		union |= m.Targets[i].mask()
	}
	count := n * len(m.Targets)
	var out []Binding
	add := func(bit uint8, name string, stride int) {
		if union&bit != 0 {
			out = append(out, Binding{Name: "Morph." + name, Target: TargetStorage, Stride: stride, Count: count})
		}
	}
	add(morphHasPositions, "Positions", 12)
	if mode == FilterShading {
		add(morphHasNormals, "Normals", 12)
		add(morphHasTangents, "Tangents", 12)
		for ch := 0; ch < 4; ch++ {
			add(morphHasTexCoord0<<ch, fmt.Sprintf("TexCoord%d", ch), 8)
		}
		add(morphHasColors, "Colors", 16)
	}
	return out
}

// AppendKey implements VertexStream.
func (m *MorphBuffer) AppendKey(dst []byte, i int) []byte {
	for ti := range m.Targets {
		t := &m.Targets[ti]
		if len(t.Positions) > 0 {
			dst = vec3Codec.append(dst, t.Positions[i])
		}
		if len(t.Normals) > 0 {
			dst = vec3Codec.append(dst, t.Normals[i])
		}
		if len(t.Tangents) > 0 {
			dst = vec3Codec.append(dst, t.Tangents[i])
		}
		for _, uv := range t.TexCoords {
			if len(uv) > 0 {
				dst = vec2Codec.append(dst, uv[i])
			}
		}
		if len(t.Colors) > 0 {
			dst = vec4Codec.append(dst, t.Colors[i])
		}
	}
	return dst
}

func remapNonEmpty[T any](src []T, remap []uint32, n int) []T {
	if len(src) == 0 {
		return nil
	}
	return meshopt.RemapVertexBuffer(src, remap, n)
}

// Remapped implements VertexStream.
func (m *MorphBuffer) Remapped(remap []uint32, vertexCount int) VertexStream {
	out := &MorphBuffer{Targets: make([]MorphTarget, len(m.Targets))}
	for i := range m.Targets {
		src := &m.Targets[i]
		dst := &out.Targets[i]
		dst.Name = src.Name
		dst.Positions = remapNonEmpty(src.Positions, remap, vertexCount)
		dst.Normals = remapNonEmpty(src.Normals, remap, vertexCount)
		dst.Tangents = remapNonEmpty(src.Tangents, remap, vertexCount)
		for ch := range src.TexCoords {
			dst.TexCoords[ch] = remapNonEmpty(src.TexCoords[ch], remap, vertexCount)
		}
		dst.Colors = remapNonEmpty(src.Colors, remap, vertexCount)
	}
	return out
}

// WriteTo implements io.WriterTo.
func (m *MorphBuffer) WriteTo(w io.Writer) (int64, error) {
	var buf []byte
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(m.Targets)))
	for i := range m.Targets {
		t := &m.Targets[i]
		buf = appendString(buf, t.Name)
		buf = append(buf, t.mask())
		buf = binary.LittleEndian.AppendUint32(buf, uint32(t.vertexCount()))
		buf = appendRecords(buf, t.Positions, vec3Codec)
		buf = appendRecords(buf, t.Normals, vec3Codec)
		buf = appendRecords(buf, t.Tangents, vec3Codec)
		for _, uv := range t.TexCoords {
			buf = appendRecords(buf, uv, vec2Codec)
		}
		buf = appendRecords(buf, t.Colors, vec4Codec)
	}
	n, err := w.Write(buf)
	return int64(n), err
}

func appendRecords[T any](dst []byte, data []T, codec *recordCodec[T]) []byte {
	for _, v := range data {
		dst = codec.append(dst, v)
	}
	return dst
}

// ReadFrom implements io.ReaderFrom.
func (m *MorphBuffer) ReadFrom(r io.Reader) (int64, error) {
	cr := &countingReader{r: r}
	var count uint32
	if err := binary.Read(cr, binary.LittleEndian, &count); err != nil {
		return cr.n, fmt.Errorf("%w: morph target count", ErrTruncated)
	}
	if count > maxMorphTargets {
		return cr.n, fmt.Errorf("%w: %d morph targets", ErrRecordCount, count)
	}
	// A target is at least a name length, a mask and a delta count.
	if err := checkFits(cr, int(count), 7); err != nil {
		return cr.n, err
	}
	targets := make([]MorphTarget, count)
	for i := range targets {
		if err := readMorphTarget(cr, &targets[i]); err != nil {
			return cr.n, fmt.Errorf("morph target %d: %w", i, err)
		}
	}
	m.Targets = targets
	return cr.n, nil
}

func readMorphTarget(r io.Reader, t *MorphTarget) error {
	name, err := readString(r)
	if err != nil {
		return err
	}
	t.Name = name

	var hdr [5]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return ErrTruncated
	}
	mask := hdr[0]
	n := int(binary.LittleEndian.Uint32(hdr[1:]))
	if n > maxRecords {
		return fmt.Errorf("%w: %d deltas", ErrRecordCount, n)
	}

	if mask&morphHasPositions != 0 {
		if t.Positions, err = readFixed(r, n, vec3Codec); err != nil {
			return err
		}
	}
	if mask&morphHasNormals != 0 {
		if t.Normals, err = readFixed(r, n, vec3Codec); err != nil {
			return err
		}
	}
	if mask&morphHasTangents != 0 {
		if t.Tangents, err = readFixed(r, n, vec3Codec); err != nil {
			return err
		}
	}
	for ch := range t.TexCoords {
		if mask&(morphHasTexCoord0<<ch) != 0 {
			if t.TexCoords[ch], err = readFixed(r, n, vec2Codec); err != nil {
				return err
			}
		}
	}
	if mask&morphHasColors != 0 {
		if t.Colors, err = readFixed(r, n, vec4Codec); err != nil {
			return err
		}
	}
	return nil
}

func readFixed[T any](r io.Reader, n int, codec *recordCodec[T]) ([]T, error) {
	if err := checkFits(r, n, codec.size); err != nil {
		return nil, err
	}
	raw := make([]byte, n*codec.size)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, ErrTruncated
	}
	out := make([]T, n)
	for i := range out {
		out[i] = codec.decode(raw[i*codec.size:])
	}
	return out, nil
}
