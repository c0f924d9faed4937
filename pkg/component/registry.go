package component

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-meshprep/pkg/mesh"
)

// Registry errors.
var (
	ErrDuplicateComponentType = errors.New("duplicate component type")
	ErrUnknownComponentType   = errors.New("unknown component type")
	ErrInvalidCategory        = errors.New("plugin reports an unknown category")
)

// ConsistencyError is the panic value for lookups that break the
// register-before-use contract.
type ConsistencyError struct {
	Op     string
	Detail string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("component registry consistency error in %s: %s", e.Op, e.Detail)
}

// Descriptor identifies a registered component type.
type Descriptor struct {
	ID     int
	Name   string
	Plugin Plugin
	// Flags is the union of the flags of the type's categories.
	Flags Flags
}

// Registry owns component-type descriptors, the flag table and the
// combination table. Descriptor ids are recycled after Unregister; flags and
// combination ids are permanent.
type Registry struct {
	mu    sync.RWMutex
	log   *zap.Logger
	hooks ParserHooks

	slots  []*Descriptor
	byName map[string]int

	flags        flagTable
	combinations []Combination
	byFlags      map[Flags]uint32
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for registration diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithParserHooks forwards plugin grammar to a scene-description parser.
func WithParserHooks(h ParserHooks) Option {
	return func(r *Registry) { r.hooks = h }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		log:     zap.NewNop(),
		byName:  make(map[string]int),
		flags:   newFlagTable(),
		byFlags: make(map[Flags]uint32),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a component type and returns its id. The lowest free slot
// is reused. Categories the plugin reports get a flag on first sight; a
// plugin without categories gets a flag of its own keyed by name.
func (r *Registry) Register(name string, p Plugin) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byName[name]; ok {
		r.log.Error("component type already registered",
			zap.String("name", name),
			zap.Int("id", id),
		)
		return 0, fmt.Errorf("%w: %q", ErrDuplicateComponentType, name)
	}

	cats := p.Categories()
	for _, c := range cats {
		if c != mesh.CategoryNone && !c.IsVertexAttribute() && !c.IsIndex() {
			return 0, fmt.Errorf("registering %q: %w: %d", name, ErrInvalidCategory, c)
		}
	}
	if r.flags.used+r.flags.pending(cats) > 64 {
		return 0, fmt.Errorf("registering %q: %w", name, ErrFlagsExhausted)
	}
	var flags Flags
	for _, c := range cats {
		if c == mesh.CategoryNone {
			continue
		}
		f, err := r.flags.category(c)
		if err != nil {
			return 0, fmt.Errorf("registering %q: %w", name, err)
		}
		flags |= f
	}
	if flags == 0 {
		f, err := r.flags.custom(name)
		if err != nil {
			return 0, fmt.Errorf("registering %q: %w", name, err)
		}
		flags = f
	}

	slot := len(r.slots)
	for i, d := range r.slots {
		if d == nil {
			slot = i
			break
		}
	}
	d := &Descriptor{ID: slot + 1, Name: name, Plugin: p, Flags: flags}
	if slot == len(r.slots) {
		r.slots = append(r.slots, d)
	} else {
		r.slots[slot] = d
	}
	r.byName[name] = d.ID

	if r.hooks != nil {
		if g, s := p.Grammar(), p.Sections(); len(g) > 0 || len(s) > 0 {
			r.hooks.AddProductions(name, g, s)
		}
	}

	r.log.Debug("registered component type",
		zap.String("name", name),
		zap.Int("id", d.ID),
		zap.Stringer("flags", flags),
	)
	return d.ID, nil
}

// Unregister frees the slot of id. Flags and combinations stay valid.
func (r *Registry) Unregister(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id < 1 || id > len(r.slots) || r.slots[id-1] == nil {
		return fmt.Errorf("%w: id %d", ErrUnknownComponentType, id)
	}
	d := r.slots[id-1]
	r.slots[id-1] = nil
	delete(r.byName, d.Name)

	if r.hooks != nil {
		r.hooks.RemoveProductions(d.Name)
	}
	r.log.Debug("unregistered component type", zap.String("name", d.Name), zap.Int("id", id))
	return nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	if !ok {
		return Descriptor{}, false
	}
	return *r.slots[id-1], true
}

// Descriptor returns the descriptor in slot id.
func (r *Registry) Descriptor(id int) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id < 1 || id > len(r.slots) || r.slots[id-1] == nil {
		return Descriptor{}, false
	}
	return *r.slots[id-1], true
}

// Components returns the registered descriptors in slot order.
func (r *Registry) Components() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.byName))
	for _, d := range r.slots {
		if d != nil {
			out = append(out, *d)
		}
	}
	return out
}

// Flag returns the flag assigned to category c.
func (r *Registry) Flag(c mesh.Category) (Flags, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(c) >= len(r.flags.byCategory) {
		return 0, false
	}
	f := r.flags.byCategory[c]
	return f, f != 0
}

// Category maps a single flag back to its category, or mesh.CategoryNone.
func (r *Registry) Category(f Flags) mesh.Category {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.flags.categories[f]; ok {
		return c
	}
	return mesh.CategoryNone
}

// RegisterCombination interns f and returns its id. Identical sets always
// get the same id; new ids are the table size after insertion.
func (r *Registry) RegisterCombination(f Flags) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byFlags[f]; ok {
		return id
	}
	id := uint32(len(r.combinations) + 1)
	r.combinations = append(r.combinations, r.flags.derive(f, id))
	r.byFlags[f] = id
	r.log.Debug("registered component combination", zap.Uint32("id", id), zap.Stringer("flags", f))
	return id
}

// CombinationID returns the id of an interned combination. It panics with a
// *ConsistencyError if c.Flags was never registered.
func (r *Registry) CombinationID(c Combination) uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byFlags[c.Flags]
	if !ok {
		panic(&ConsistencyError{Op: "CombinationID", Detail: "combination " + c.Flags.String() + " was never registered"})
	}
	return id
}

// Combination returns the combination with the given id. It panics with a
// *ConsistencyError for 0 or an id past the end of the table.
func (r *Registry) Combination(id uint32) Combination {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id == 0 || int(id) > len(r.combinations) {
		panic(&ConsistencyError{
			Op:     "Combination",
			Detail: fmt.Sprintf("id %d outside table of %d", id, len(r.combinations)),
		})
	}
	return r.combinations[id-1]
}

// CombinationCount returns the size of the combination table.
func (r *Registry) CombinationCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.combinations)
}

// SurfaceShaders collects the shader contributions of every registered type
// sharing a flag with active and needed under mode, in slot order.
func (r *Registry) SurfaceShaders(active Flags, mode mesh.FilterMode) []SurfaceShader {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []SurfaceShader
	for _, d := range r.slots {
		if d == nil || !active.Any(d.Flags) {
			continue
		}
		if d.Plugin.NeedsSurfaceShader(mode) {
			out = append(out, d.Plugin.SurfaceShader())
		}
	}
	return out
}

// NewInstance creates an empty instance of a registered type. Its signature
// matches mesh.Factory.
func (r *Registry) NewInstance(typeName string) (mesh.Component, error) {
	d, ok := r.Lookup(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownComponentType, typeName)
	}
	c := d.Plugin.NewInstance()
	if c == nil {
		return nil, fmt.Errorf("component type %q cannot be instantiated", typeName)
	}
	return c, nil
}

// FragmentFlags returns the flags of every registered component type present
// in f. Instances of unregistered types fall back to their category flag.
func (r *Registry) FragmentFlags(f *mesh.Fragment) Flags {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var flags Flags
	for _, c := range f.Components() {
		if id, ok := r.byName[c.TypeName()]; ok {
			flags |= r.slots[id-1].Flags
			continue
		}
		cat := c.Category()
		if int(cat) < len(r.flags.byCategory) && r.flags.byCategory[cat] != 0 {
			flags |= r.flags.byCategory[cat]
			continue
		}
		r.log.Debug("component has no flag",
			zap.String("fragment", f.Name),
			zap.String("type", c.TypeName()),
		)
	}
	return flags
}

// InternFragment registers the combination describing f and returns its id.
func (r *Registry) InternFragment(f *mesh.Fragment) uint32 {
	return r.RegisterCombination(r.FragmentFlags(f))
}
