package mesh

import "fmt"

// Fragment owns the component instances of one mesh fragment, keyed by
// component-type name.
type Fragment struct {
	Name string

	components map[string]Component
	order      []string
}

// NewFragment creates an empty fragment.
func NewFragment(name string) *Fragment {
	return &Fragment{Name: name, components: make(map[string]Component)}
}

// Add stores c under its type name, replacing any previous instance.
func (f *Fragment) Add(c Component) {
	name := c.TypeName()
	if _, ok := f.components[name]; !ok {
		f.order = append(f.order, name)
	}
	f.components[name] = c
}

// Get returns the instance registered under typeName.
func (f *Fragment) Get(typeName string) (Component, bool) {
	c, ok := f.components[typeName]
	return c, ok
}

// Remove drops the instance registered under typeName.
func (f *Fragment) Remove(typeName string) {
	if _, ok := f.components[typeName]; !ok {
		return
	}
	delete(f.components, typeName)
	for i, n := range f.order {
		if n == typeName {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

// Names returns the type names in insertion order.
func (f *Fragment) Names() []string {
	return append([]string(nil), f.order...)
}

// Components returns the instances in insertion order.
func (f *Fragment) Components() []Component {
	out := make([]Component, 0, len(f.order))
	for _, n := range f.order {
		out = append(out, f.components[n])
	}
	return out
}

// ByCategory returns the first instance carrying category cat.
func (f *Fragment) ByCategory(cat Category) (Component, bool) {
	for _, n := range f.order {
		if c := f.components[n]; c.Category() == cat {
			return c, true
		}
	}
	return nil, false
}

// Indices returns the fragment's index component, triangle lists first.
func (f *Fragment) Indices() (*IndexBuffer, bool) {
	for _, cat := range []Category{TriangleIndex, LineIndex} {
		if c, ok := f.ByCategory(cat); ok {
			if ib, ok := c.(*IndexBuffer); ok {
				return ib, true
			}
		}
	}
	return nil, false
}

// Positions returns the fragment's position stream.
func (f *Fragment) Positions() ([][3]float32, bool) {
	c, ok := f.ByCategory(Position)
	if !ok {
		return nil, false
	}
	vb, ok := c.(*VertexBuffer[[3]float32])
	if !ok {
		return nil, false
	}
	return vb.Data, true
}

// VertexCount returns the record count of the position stream, or of the
// first per-vertex stream when there are no positions.
func (f *Fragment) VertexCount() int {
	if c, ok := f.ByCategory(Position); ok {
		return c.Len()
	}
	for _, n := range f.order {
		if c := f.components[n]; c.Category().IsVertexAttribute() {
			return c.Len()
		}
	}
	return 0
}

// Gather concatenates the bindings of every component under mode.
func (f *Fragment) Gather(mode FilterMode) []Binding {
	var out []Binding
	for _, n := range f.order {
		out = append(out, f.components[n].Gather(mode)...)
	}
	return out
}

// New creates an empty instance of a built-in component type.
func New(typeName string) (Component, error) {
	switch typeName {
	case "Position":
		return NewPositions(nil), nil
	case "Normal":
		return NewNormals(nil), nil
	case "Tangent":
		return NewTangents(nil), nil
	case "Bitangent":
		return NewBitangents(nil), nil
	case "TexCoord0", "TexCoord1", "TexCoord2", "TexCoord3":
		return NewTexCoords(int(typeName[len(typeName)-1]-'0'), nil), nil
	case "Color":
		return NewColors(nil), nil
	case "Skin":
		return NewSkin(nil), nil
	case "PassMask":
		return NewPassMasks(nil), nil
	case "Morph":
		return NewMorph(nil), nil
	case "Velocity":
		return NewVelocities(nil), nil
	case "LineIndex":
		return newIndexBuffer(LineIndex), nil
	case "TriangleIndex":
		return newIndexBuffer(TriangleIndex), nil
	case MeshletTypeName:
		return &MeshletBuffer{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}
}

// NewForCategory creates an empty instance of the built-in type for cat.
func NewForCategory(cat Category) (Component, error) {
	return New(cat.String())
}
