package component

import "github.com/Faultbox/midgard-meshprep/pkg/mesh"

// Combination is an interned set of flags. The Has* fields are derived from
// Flags when the combination is registered.
type Combination struct {
	Flags  Flags
	BaseID uint32

	HasPosition   bool
	HasNormal     bool
	HasTangent    bool
	HasBitangent  bool
	HasColor      bool
	HasSkin       bool
	HasPassMask   bool
	HasMorph      bool
	HasVelocity   bool
	HasLines      bool
	HasTriangles  bool
	TexCoordCount int
}

func (t *flagTable) derive(f Flags, id uint32) Combination {
	has := func(c mesh.Category) bool { return f.Has(t.byCategory[c]) }
	c := Combination{
		Flags:        f,
		BaseID:       id,
		HasPosition:  has(mesh.Position),
		HasNormal:    has(mesh.Normal),
		HasTangent:   has(mesh.Tangent),
		HasBitangent: has(mesh.Bitangent),
		HasColor:     has(mesh.Color),
		HasSkin:      has(mesh.Skin),
		HasPassMask:  has(mesh.PassMask),
		HasMorph:     has(mesh.Morph),
		HasVelocity:  has(mesh.Velocity),
		HasLines:     has(mesh.LineIndex),
		HasTriangles: has(mesh.TriangleIndex),
	}
	for ch := 0; ch < 4; ch++ {
		if has(mesh.TexCoordChannel(ch)) {
			c.TexCoordCount++
		}
	}
	return c
}
