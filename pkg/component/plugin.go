package component

import "github.com/Faultbox/midgard-meshprep/pkg/mesh"

// ShaderField is one member a component adds to the generated per-vertex
// surface structure.
type ShaderField struct {
	Name    string
	Type    string
	Default string
}

// SurfaceShader is the contribution of one component to shader generation.
type SurfaceShader struct {
	Component string
	Fields    []ShaderField
}

// Production is a named attribute parser exposed to the scene-description
// parser.
type Production struct {
	Name    string
	Pattern string
}

// Plugin describes the capabilities of one component type.
type Plugin interface {
	// Categories lists the well-known data categories the type carries.
	Categories() []mesh.Category
	// NeedsSurfaceShader reports whether the type contributes to shaders
	// generated for mode.
	NeedsSurfaceShader(mode mesh.FilterMode) bool
	SurfaceShader() SurfaceShader
	// NewInstance returns an empty component instance, or nil if the type
	// cannot be instantiated.
	NewInstance() mesh.Component
	Grammar() []Production
	Sections() []string
}

// ParserHooks is the scene-description parser side of plugin registration.
type ParserHooks interface {
	AddProductions(owner string, productions []Production, sections []string)
	RemoveProductions(owner string)
}

// BasicPlugin is a data-driven Plugin.
type BasicPlugin struct {
	Cats        []mesh.Category
	Shader      SurfaceShader
	Productions []Production
	SectionIDs  []string
	Factory     func() mesh.Component

	// Modes restricts shader contributions to these filter modes. When empty,
	// the categories decide via Category.NeededBy.
	Modes []mesh.FilterMode
}

// Categories implements Plugin.
func (p *BasicPlugin) Categories() []mesh.Category { return p.Cats }

// NeedsSurfaceShader implements Plugin.
func (p *BasicPlugin) NeedsSurfaceShader(mode mesh.FilterMode) bool {
	if len(p.Shader.Fields) == 0 {
		return false
	}
	if len(p.Modes) > 0 {
		for _, m := range p.Modes {
			if m == mode {
				return true
			}
		}
		return false
	}
	for _, c := range p.Cats {
		if c.NeededBy(mode) {
			return true
		}
	}
	return len(p.Cats) == 0
}

// SurfaceShader implements Plugin.
func (p *BasicPlugin) SurfaceShader() SurfaceShader { return p.Shader }

// NewInstance implements Plugin.
func (p *BasicPlugin) NewInstance() mesh.Component {
	if p.Factory == nil {
		return nil
	}
	return p.Factory()
}

// Grammar implements Plugin.
func (p *BasicPlugin) Grammar() []Production { return p.Productions }

// Sections implements Plugin.
func (p *BasicPlugin) Sections() []string { return p.SectionIDs }
