// Package component implements the component registry: identity for mesh
// component types, the flag table that gives each data category a bit, and
// the deduplicated table of flag combinations used to pick shader variants.
//
// A Registry has a single-writer discipline. Register, Unregister and
// RegisterCombination are meant for start-up and plugin load/unload; the
// lookups are safe for concurrent readers once writers are done.
package component

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/Faultbox/midgard-meshprep/pkg/mesh"
)

// Flags is a bit-set of category flags. A single flag has exactly one bit set.
type Flags uint64

// Has reports whether every bit of other is set. A zero other is never
// contained.
func (f Flags) Has(other Flags) bool {
	return other != 0 && f&other == other
}

// Any reports whether f and other share a bit.
func (f Flags) Any(other Flags) bool {
	return f&other != 0
}

// Count returns the number of flags set.
func (f Flags) Count() int {
	return bits.OnesCount64(uint64(f))
}

// String formats the set as bit numbers, e.g. "{0,3}".
func (f Flags) String() string {
	var parts []string
	for b := uint64(f); b != 0; b &= b - 1 {
		parts = append(parts, fmt.Sprint(bits.TrailingZeros64(b)))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// ErrFlagsExhausted is returned when every bit of Flags is assigned.
var ErrFlagsExhausted = errors.New("component flag space exhausted")

// flagTable hands out one bit per category or custom type name. Assignments
// are permanent.
type flagTable struct {
	used       int
	byCategory [mesh.TriangleIndex + 1]Flags
	byName     map[string]Flags
	categories map[Flags]mesh.Category
}

func newFlagTable() flagTable {
	return flagTable{
		byName:     make(map[string]Flags),
		categories: make(map[Flags]mesh.Category),
	}
}

func (t *flagTable) alloc() (Flags, error) {
	if t.used >= 64 {
		return 0, ErrFlagsExhausted
	}
	f := Flags(1) << t.used
	t.used++
	return f, nil
}

// category returns the flag for c, assigning one on first use.
func (t *flagTable) category(c mesh.Category) (Flags, error) {
	if f := t.byCategory[c]; f != 0 {
		return f, nil
	}
	f, err := t.alloc()
	if err != nil {
		return 0, err
	}
	t.byCategory[c] = f
	t.categories[f] = c
	return f, nil
}

// custom returns the flag for a type that carries no well-known category.
func (t *flagTable) custom(name string) (Flags, error) {
	if f, ok := t.byName[name]; ok {
		return f, nil
	}
	f, err := t.alloc()
	if err != nil {
		return 0, err
	}
	t.byName[name] = f
	return f, nil
}

// pending returns how many new bits assigning cats would need.
func (t *flagTable) pending(cats []mesh.Category) int {
	n := 0
	seen := make(map[mesh.Category]bool, len(cats))
	for _, c := range cats {
		if t.byCategory[c] == 0 && !seen[c] {
			n++
		}
		seen[c] = true
	}
	return n
}
