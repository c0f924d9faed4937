// Package mesh provides the mesh-fragment data model: typed per-vertex and
// per-face component buffers, the fragment container that owns them, their
// binary persistence, and the buffer-binding contract handed to renderers.
package mesh

import "fmt"

// Category identifies one well-known kind of mesh data.
type Category uint8

const (
	CategoryNone Category = iota
	Position
	Normal
	Tangent
	Bitangent
	TexCoord0
	TexCoord1
	TexCoord2
	TexCoord3
	Color
	Skin
	PassMask
	Morph
	Velocity
	LineIndex
	TriangleIndex
)

var categoryNames = [...]string{
	CategoryNone:  "None",
	Position:      "Position",
	Normal:        "Normal",
	Tangent:       "Tangent",
	Bitangent:     "Bitangent",
	TexCoord0:     "TexCoord0",
	TexCoord1:     "TexCoord1",
	TexCoord2:     "TexCoord2",
	TexCoord3:     "TexCoord3",
	Color:         "Color",
	Skin:          "Skin",
	PassMask:      "PassMask",
	Morph:         "Morph",
	Velocity:      "Velocity",
	LineIndex:     "LineIndex",
	TriangleIndex: "TriangleIndex",
}

// String returns the category name.
func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("Unknown(%d)", c)
}

// WellKnownCategories returns every category except CategoryNone, in
// declaration order.
func WellKnownCategories() []Category {
	out := make([]Category, 0, len(categoryNames)-1)
	for c := Position; c <= TriangleIndex; c++ {
		out = append(out, c)
	}
	return out
}

// IsVertexAttribute reports whether c describes one record per vertex.
func (c Category) IsVertexAttribute() bool {
	return c >= Position && c <= Velocity
}

// IsIndex reports whether c is an index topology.
func (c Category) IsIndex() bool {
	return c == LineIndex || c == TriangleIndex
}

// TexCoordChannel returns the texture coordinate category for channel 0-3.
func TexCoordChannel(ch int) Category {
	return TexCoord0 + Category(ch)
}

// FilterMode selects which components a draw configuration needs.
type FilterMode uint8

const (
	// FilterShading is a full shading pass.
	FilterShading FilterMode = iota
	// FilterDepth is a depth-only or shadow pass; only geometry-deforming data.
	FilterDepth
	// FilterMotion writes motion vectors.
	FilterMotion
)

// String returns the filter mode name.
func (m FilterMode) String() string {
	switch m {
	case FilterShading:
		return "Shading"
	case FilterDepth:
		return "Depth"
	case FilterMotion:
		return "Motion"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// Deforms reports whether data of category c changes the rasterized
// position of a vertex.
func (c Category) Deforms() bool {
	return c == Position || c == Skin || c == Morph
}

// NeededBy reports whether a component of category c contributes to a draw
// using filter mode m.
func (c Category) NeededBy(m FilterMode) bool {
	switch m {
	case FilterDepth:
		return c.Deforms() || c == PassMask || c.IsIndex()
	case FilterMotion:
		return c.Deforms() || c == PassMask || c == Velocity || c.IsIndex()
	default:
		return true
	}
}
