package component

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/midgard-meshprep/pkg/mesh"
)

type fakeParser struct {
	added   map[string][]Production
	removed []string
}

func (p *fakeParser) AddProductions(owner string, prods []Production, sections []string) {
	if p.added == nil {
		p.added = make(map[string][]Production)
	}
	p.added[owner] = prods
}

func (p *fakeParser) RemoveProductions(owner string) {
	delete(p.added, owner)
	p.removed = append(p.removed, owner)
}

func TestPositionSkinCombinations(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register("Position", BuiltinPlugin(mesh.Position))
	require.NoError(t, err)
	_, err = r.Register("Skin", BuiltinPlugin(mesh.Skin))
	require.NoError(t, err)

	pos, ok := r.Flag(mesh.Position)
	require.True(t, ok)
	skin, ok := r.Flag(mesh.Skin)
	require.True(t, ok)
	assert.Equal(t, Flags(1), pos)
	assert.Equal(t, Flags(2), skin)

	a := r.RegisterCombination(pos)
	b := r.RegisterCombination(pos | skin)
	c := r.RegisterCombination(pos)

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, c)
	assert.Equal(t, uint32(1), a)
	assert.Equal(t, uint32(2), b)

	combo := r.Combination(b)
	assert.Equal(t, pos|skin, combo.Flags)
	assert.True(t, combo.HasPosition)
	assert.True(t, combo.HasSkin)
	assert.False(t, combo.HasMorph)
	assert.Equal(t, b, r.CombinationID(combo))
}

func TestFlagUniqueness(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r))

	seen := make(map[Flags]mesh.Category)
	for _, c := range mesh.WellKnownCategories() {
		f, ok := r.Flag(c)
		require.True(t, ok, c.String())
		assert.Equal(t, 1, f.Count(), "flag for %s is not a single bit", c)
		if other, dup := seen[f]; dup {
			t.Errorf("%s and %s share flag %s", c, other, f)
		}
		seen[f] = c
		assert.Equal(t, c, r.Category(f))
	}
	assert.Equal(t, mesh.CategoryNone, r.Category(Flags(1)<<63))
}

func TestFlagsSurviveUnregister(t *testing.T) {
	r := NewRegistry()
	id, err := r.Register("Normal", BuiltinPlugin(mesh.Normal))
	require.NoError(t, err)
	before, _ := r.Flag(mesh.Normal)

	_, err = r.Register("Color", BuiltinPlugin(mesh.Color))
	require.NoError(t, err)
	combo := r.RegisterCombination(before)

	require.NoError(t, r.Unregister(id))
	_, ok := r.Lookup("Normal")
	assert.False(t, ok)

	after, ok := r.Flag(mesh.Normal)
	require.True(t, ok)
	assert.Equal(t, before, after)
	assert.Equal(t, before, r.Combination(combo).Flags)

	// Re-registering reuses the flag instead of allocating a new bit.
	_, err = r.Register("Normal", BuiltinPlugin(mesh.Normal))
	require.NoError(t, err)
	again, _ := r.Flag(mesh.Normal)
	assert.Equal(t, before, again)
}

func TestSlotReuse(t *testing.T) {
	r := NewRegistry()
	a, _ := r.Register("Position", BuiltinPlugin(mesh.Position))
	b, _ := r.Register("Normal", BuiltinPlugin(mesh.Normal))
	c, _ := r.Register("Color", BuiltinPlugin(mesh.Color))
	assert.Equal(t, []int{1, 2, 3}, []int{a, b, c})

	require.NoError(t, r.Unregister(b))
	require.NoError(t, r.Unregister(a))

	first, err := r.Register("Velocity", BuiltinPlugin(mesh.Velocity))
	require.NoError(t, err)
	assert.Equal(t, 1, first, "lowest free slot is reused")
	second, err := r.Register("Tangent", BuiltinPlugin(mesh.Tangent))
	require.NoError(t, err)
	assert.Equal(t, 2, second)
	fourth, err := r.Register("Skin", BuiltinPlugin(mesh.Skin))
	require.NoError(t, err)
	assert.Equal(t, 4, fourth)

	assert.ErrorIs(t, r.Unregister(99), ErrUnknownComponentType)
	assert.ErrorIs(t, r.Unregister(0), ErrUnknownComponentType)
}

func TestDuplicateRegistration(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := NewRegistry(WithLogger(zap.New(core)))

	original := BuiltinPlugin(mesh.Position)
	id, err := r.Register("Position", original)
	require.NoError(t, err)

	_, err = r.Register("Position", BuiltinPlugin(mesh.Normal))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateComponentType))
	assert.Equal(t, 1, logs.FilterMessage("component type already registered").Len())

	d, ok := r.Lookup("Position")
	require.True(t, ok)
	assert.Equal(t, id, d.ID)
	assert.Same(t, original, d.Plugin)
	_, ok = r.Flag(mesh.Normal)
	assert.False(t, ok, "failed registration must not assign flags")
}

func TestCombinationMonotonic(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r))

	var last uint32
	for i := 0; i < 10; i++ {
		id := r.RegisterCombination(Flags(1)<<i | 1)
		if i > 0 {
			assert.Greater(t, id, last)
		}
		last = id
		assert.Equal(t, id, r.RegisterCombination(Flags(1)<<i|1))
		assert.Equal(t, Flags(1)<<i|1, r.Combination(id).Flags)
	}
	assert.Equal(t, 10, r.CombinationCount())
}

func TestConsistencyErrors(t *testing.T) {
	r := NewRegistry()
	r.RegisterCombination(1)

	assertConsistencyPanic := func(t *testing.T, fn func()) {
		t.Helper()
		defer func() {
			v := recover()
			require.NotNil(t, v)
			_, ok := v.(*ConsistencyError)
			assert.True(t, ok, "panic value %T", v)
		}()
		fn()
	}

	assertConsistencyPanic(t, func() { r.Combination(0) })
	assertConsistencyPanic(t, func() { r.Combination(2) })
	assertConsistencyPanic(t, func() { r.CombinationID(Combination{Flags: 6}) })
}

func TestSurfaceShaders(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r))

	var active Flags
	for _, c := range []mesh.Category{mesh.Skin, mesh.Position, mesh.Normal, mesh.Color} {
		f, _ := r.Flag(c)
		active |= f
	}

	components := func(ss []SurfaceShader) []string {
		var out []string
		for _, s := range ss {
			out = append(out, s.Component)
		}
		return out
	}

	// Registration order, not the order flags were combined in.
	assert.Equal(t, []string{"Position", "Normal", "Color", "Skin"},
		components(r.SurfaceShaders(active, mesh.FilterShading)))
	assert.Equal(t, []string{"Position", "Skin"},
		components(r.SurfaceShaders(active, mesh.FilterDepth)))

	skin := r.SurfaceShaders(active, mesh.FilterDepth)[1]
	require.Len(t, skin.Fields, 2)
	assert.Equal(t, "joints", skin.Fields[0].Name)
	assert.Equal(t, "vec4(1.0, 0.0, 0.0, 0.0)", skin.Fields[1].Default)
}

func TestSurfaceShadersSkipUnregistered(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Register("Position", BuiltinPlugin(mesh.Position))
	_, _ = r.Register("Normal", BuiltinPlugin(mesh.Normal))
	all := r.FragmentFlags(fragmentWith(mesh.Position, mesh.Normal))

	require.NoError(t, r.Unregister(id))
	ss := r.SurfaceShaders(all, mesh.FilterShading)
	require.Len(t, ss, 1)
	assert.Equal(t, "Normal", ss[0].Component)
}

func TestPluginModes(t *testing.T) {
	p := &BasicPlugin{
		Shader: SurfaceShader{Component: "Wind", Fields: []ShaderField{{Name: "wind", Type: "float", Default: "0.0"}}},
		Modes:  []mesh.FilterMode{mesh.FilterMotion},
	}
	assert.True(t, p.NeedsSurfaceShader(mesh.FilterMotion))
	assert.False(t, p.NeedsSurfaceShader(mesh.FilterShading))
	assert.Nil(t, p.NewInstance())

	empty := &BasicPlugin{Cats: []mesh.Category{mesh.Position}}
	assert.False(t, empty.NeedsSurfaceShader(mesh.FilterShading))
}

func TestCustomFlagForCategorylessPlugin(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r))

	d, ok := r.Lookup(mesh.MeshletTypeName)
	require.True(t, ok)
	assert.Equal(t, 1, d.Flags.Count())
	assert.Equal(t, mesh.CategoryNone, r.Category(d.Flags))

	for _, c := range mesh.WellKnownCategories() {
		f, _ := r.Flag(c)
		assert.NotEqual(t, f, d.Flags)
	}
}

func TestParserHooks(t *testing.T) {
	hooks := &fakeParser{}
	r := NewRegistry(WithParserHooks(hooks))

	id, err := r.Register("Skin", BuiltinPlugin(mesh.Skin))
	require.NoError(t, err)
	require.Contains(t, hooks.added, "Skin")
	assert.Len(t, hooks.added["Skin"], 2)

	require.NoError(t, r.Unregister(id))
	assert.NotContains(t, hooks.added, "Skin")
	assert.Equal(t, []string{"Skin"}, hooks.removed)
}

func TestNewInstance(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r))

	c, err := r.NewInstance("TexCoord2")
	require.NoError(t, err)
	assert.Equal(t, mesh.TexCoord2, c.Category())

	_, err = r.NewInstance("Wind")
	assert.ErrorIs(t, err, ErrUnknownComponentType)
}

func TestInternFragment(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r))

	f := fragmentWith(mesh.Position, mesh.TexCoord0, mesh.TexCoord1, mesh.TriangleIndex)
	id := r.InternFragment(f)
	combo := r.Combination(id)

	assert.True(t, combo.HasPosition)
	assert.True(t, combo.HasTriangles)
	assert.False(t, combo.HasLines)
	assert.Equal(t, 2, combo.TexCoordCount)
	assert.Equal(t, id, r.InternFragment(fragmentWith(mesh.TriangleIndex, mesh.TexCoord1, mesh.Position, mesh.TexCoord0)))
}

func TestFlagsString(t *testing.T) {
	assert.Equal(t, "{}", Flags(0).String())
	assert.Equal(t, "{0,3}", Flags(9).String())
	assert.True(t, Flags(9).Has(8))
	assert.False(t, Flags(9).Has(0))
	assert.False(t, Flags(9).Any(6))
}

func fragmentWith(cats ...mesh.Category) *mesh.Fragment {
	f := mesh.NewFragment("test")
	for _, c := range cats {
		inst, err := mesh.NewForCategory(c)
		if err != nil {
			panic(err)
		}
		f.Add(inst)
	}
	return f
}

func TestRegisterRejectsUnknownCategory(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register("Bogus", &BasicPlugin{Cats: []mesh.Category{mesh.Position, mesh.Category(40)}})
	require.ErrorIs(t, err, ErrInvalidCategory)

	_, ok := r.Lookup("Bogus")
	assert.False(t, ok)
	_, ok = r.Flag(mesh.Position)
	assert.False(t, ok, "rejected plugin must not assign flags")
}
