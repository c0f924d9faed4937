// Package glbind maps the renderer-neutral gather contract of mesh
// components onto OpenGL buffer targets and vertex attribute enums.
package glbind

import (
	"fmt"

	"github.com/go-gl/gl/v4.6-core/gl"

	"github.com/Faultbox/midgard-meshprep/pkg/mesh"
)

// Attribute is the argument set of glVertexAttribPointer or, when Integer
// is set, glVertexAttribIPointer.
type Attribute struct {
	Index   uint32
	Size    int32
	Type    uint32
	Integer bool
	Offset  uintptr
}

// Binding is one buffer binding ready for GL calls.
type Binding struct {
	Name       string
	Target     uint32
	Stride     int32
	Count      int
	Attributes []Attribute
}

// Target returns the GL buffer target for t.
func Target(t mesh.Target) uint32 {
	switch t {
	case mesh.TargetIndex:
		return gl.ELEMENT_ARRAY_BUFFER
	case mesh.TargetStorage:
		return gl.SHADER_STORAGE_BUFFER
	default:
		return gl.ARRAY_BUFFER
	}
}

// Type returns the GL scalar type for f.
func Type(f mesh.Format) uint32 {
	switch f {
	case mesh.FormatUint32:
		return gl.UNSIGNED_INT
	case mesh.FormatUint16:
		return gl.UNSIGNED_SHORT
	case mesh.FormatUint8:
		return gl.UNSIGNED_BYTE
	default:
		return gl.FLOAT
	}
}

// Translate converts gathered bindings. Index buffers keep their element
// type as a single attribute with Index 0.
func Translate(bindings []mesh.Binding) []Binding {
	out := make([]Binding, 0, len(bindings))
	for _, b := range bindings {
		gb := Binding{
			Name:   b.Name,
			Target: Target(b.Target),
			Stride: int32(b.Stride),
			Count:  b.Count,
		}
		for _, a := range b.Attributes {
			gb.Attributes = append(gb.Attributes, Attribute{
				Index:   uint32(max(a.Location, 0)),
				Size:    int32(a.Components),
				Type:    Type(a.Format),
				Integer: a.Format != mesh.FormatFloat32,
				Offset:  uintptr(a.Offset),
			})
		}
		out = append(out, gb)
	}
	return out
}

// TargetName returns the GL enum name of a buffer target.
func TargetName(target uint32) string {
	switch target {
	case gl.ARRAY_BUFFER:
		return "GL_ARRAY_BUFFER"
	case gl.ELEMENT_ARRAY_BUFFER:
		return "GL_ELEMENT_ARRAY_BUFFER"
	case gl.SHADER_STORAGE_BUFFER:
		return "GL_SHADER_STORAGE_BUFFER"
	default:
		return fmt.Sprintf("0x%04X", target)
	}
}

// TypeName returns the GL enum name of a scalar type.
func TypeName(typ uint32) string {
	switch typ {
	case gl.FLOAT:
		return "GL_FLOAT"
	case gl.UNSIGNED_INT:
		return "GL_UNSIGNED_INT"
	case gl.UNSIGNED_SHORT:
		return "GL_UNSIGNED_SHORT"
	case gl.UNSIGNED_BYTE:
		return "GL_UNSIGNED_BYTE"
	default:
		return fmt.Sprintf("0x%04X", typ)
	}
}
