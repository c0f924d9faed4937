package mesh

import (
	"io"

	"github.com/Faultbox/midgard-meshprep/pkg/meshopt"
)

// Component is one typed buffer owned by a fragment.
type Component interface {
	// TypeName is the registered component-type name; it also tags the
	// persisted payload.
	TypeName() string
	Category() Category
	// Len returns the number of records.
	Len() int
	// Gather returns the GPU bindings this component needs under mode.
	Gather(mode FilterMode) []Binding

	io.WriterTo
	io.ReaderFrom
}

// VertexStream is a per-vertex component that takes part in vertex remapping.
type VertexStream interface {
	Component
	// AppendKey appends the exact bytes describing vertex i.
	AppendKey(dst []byte, i int) []byte
	// Remapped returns a copy where old vertex i is stored at remap[i].
	// Entries equal to Unused are dropped.
	Remapped(remap []uint32, vertexCount int) VertexStream
}

// Unused marks a vertex that a remap table drops.
const Unused = meshopt.Unused

// Target is the kind of GPU buffer a binding feeds.
type Target uint8

const (
	TargetVertex Target = iota
	TargetIndex
	TargetStorage
)

// String returns the target name.
func (t Target) String() string {
	switch t {
	case TargetVertex:
		return "vertex"
	case TargetIndex:
		return "index"
	case TargetStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Format is the scalar type of an attribute.
type Format uint8

const (
	FormatFloat32 Format = iota
	FormatUint32
	FormatUint16
	FormatUint8
)

// Size returns the byte size of one scalar.
func (f Format) Size() int {
	switch f {
	case FormatUint16:
		return 2
	case FormatUint8:
		return 1
	default:
		return 4
	}
}

// Attribute is one vertex-input layout fragment.
type Attribute struct {
	Location   int
	Format     Format
	Components int
	Offset     int
}

// Binding describes one buffer a renderer has to bind for a component.
type Binding struct {
	Name       string
	Target     Target
	Stride     int
	Count      int
	Attributes []Attribute
}

// Shader attribute locations for the per-vertex categories.
const (
	LocationPosition = iota
	LocationNormal
	LocationTangent
	LocationBitangent
	LocationTexCoord0
	LocationTexCoord1
	LocationTexCoord2
	LocationTexCoord3
	LocationColor
	LocationJoints
	LocationWeights
	LocationPassMask
	LocationVelocity
)

func attributeLocation(c Category) int {
	switch c {
	case Position:
		return LocationPosition
	case Normal:
		return LocationNormal
	case Tangent:
		return LocationTangent
	case Bitangent:
		return LocationBitangent
	case TexCoord0, TexCoord1, TexCoord2, TexCoord3:
		return LocationTexCoord0 + int(c-TexCoord0)
	case Color:
		return LocationColor
	case PassMask:
		return LocationPassMask
	case Velocity:
		return LocationVelocity
	default:
		return -1
	}
}
