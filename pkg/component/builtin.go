package component

import (
	"errors"
	"strings"

	"github.com/Faultbox/midgard-meshprep/pkg/mesh"
)

func builtinFields(c mesh.Category) []ShaderField {
	switch c {
	case mesh.Position:
		return []ShaderField{{Name: "position", Type: "vec3", Default: "vec3(0.0)"}}
	case mesh.Normal:
		return []ShaderField{{Name: "normal", Type: "vec3", Default: "vec3(0.0, 0.0, 1.0)"}}
	case mesh.Tangent:
		return []ShaderField{{Name: "tangent", Type: "vec4", Default: "vec4(1.0, 0.0, 0.0, 1.0)"}}
	case mesh.Bitangent:
		return []ShaderField{{Name: "bitangent", Type: "vec3", Default: "vec3(0.0, 1.0, 0.0)"}}
	case mesh.TexCoord0, mesh.TexCoord1, mesh.TexCoord2, mesh.TexCoord3:
		return []ShaderField{{Name: "uv" + c.String()[len("TexCoord"):], Type: "vec2", Default: "vec2(0.0)"}}
	case mesh.Color:
		return []ShaderField{{Name: "color", Type: "vec4", Default: "vec4(1.0)"}}
	case mesh.Skin:
		return []ShaderField{
			{Name: "joints", Type: "uvec4", Default: "uvec4(0u)"},
			{Name: "weights", Type: "vec4", Default: "vec4(1.0, 0.0, 0.0, 0.0)"},
		}
	case mesh.PassMask:
		return []ShaderField{{Name: "passMask", Type: "uint", Default: "0xffffffffu"}}
	case mesh.Morph:
		return []ShaderField{{Name: "morphOffset", Type: "uint", Default: "0u"}}
	case mesh.Velocity:
		return []ShaderField{{Name: "velocity", Type: "vec3", Default: "vec3(0.0)"}}
	default:
		return nil
	}
}

// BuiltinPlugin returns the plugin describing the built-in component type
// for category c.
func BuiltinPlugin(c mesh.Category) *BasicPlugin {
	name := c.String()
	fields := builtinFields(c)
	prods := make([]Production, 0, len(fields))
	for _, f := range fields {
		prods = append(prods, Production{Name: f.Name, Pattern: f.Type})
	}
	return &BasicPlugin{
		Cats:        []mesh.Category{c},
		Shader:      SurfaceShader{Component: name, Fields: fields},
		Productions: prods,
		SectionIDs:  []string{strings.ToLower(name)},
		Factory: func() mesh.Component {
			inst, _ := mesh.NewForCategory(c)
			return inst
		},
	}
}

// MeshletPlugin describes the meshlet output component. It carries no
// category and so is flagged by name.
func MeshletPlugin() *BasicPlugin {
	return &BasicPlugin{
		Shader: SurfaceShader{Component: mesh.MeshletTypeName},
		Factory: func() mesh.Component {
			return &mesh.MeshletBuffer{}
		},
	}
}

// RegisterBuiltins registers one plugin per well-known category plus the
// meshlet output type.
func RegisterBuiltins(r *Registry) error {
	var errs []error
	for _, c := range mesh.WellKnownCategories() {
		if _, err := r.Register(c.String(), BuiltinPlugin(c)); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := r.Register(mesh.MeshletTypeName, MeshletPlugin()); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
