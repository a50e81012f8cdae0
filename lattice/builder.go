package lattice

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tomerten/latticeconstructor/internal/monitoring"
)

// ErrNoHistory is returned by Undo when there is nothing to roll back.
var ErrNoHistory = errors.New("no previous states available")

// Builder assembles an element table from an ordered element list and
// a set of element definitions. Every mutating operation snapshots the
// current state first, so any change can be rolled back with Undo.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	name  string
	order []string
	defs  Defs
	at    []float64 // explicit centre positions from a sequence import
	table *Table

	history []snapshot
}

type snapshot struct {
	order []string
	defs  Defs
	at    []float64
	table *Table
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{defs: Defs{}}
}

// Name returns the lattice name (empty unless set or imported).
func (b *Builder) Name() string { return b.name }

// SetName sets the lattice name.
func (b *Builder) SetName(name string) { b.name = name }

// Order returns a copy of the ordered element-name list.
func (b *Builder) Order() []string {
	return append([]string(nil), b.order...)
}

// Definitions returns a deep copy of the element definitions.
func (b *Builder) Definitions() Defs { return b.defs.Clone() }

// Table returns the built element table, or nil if no table has been
// built yet.
func (b *Builder) Table() *Table { return b.table }

// Placements returns a copy of the explicit centre positions imported
// from a sequence file, aligned with Order. Nil when positions are
// derived from element lengths.
func (b *Builder) Placements() []float64 {
	return append([]float64(nil), b.at...)
}

func (b *Builder) push() {
	b.history = append(b.history, snapshot{
		order: append([]string(nil), b.order...),
		defs:  b.defs.Clone(),
		at:    append([]float64(nil), b.at...),
		table: b.table.Clone(),
	})
}

// Undo rolls back the most recent change.
func (b *Builder) Undo() error {
	if len(b.history) == 0 {
		return ErrNoHistory
	}
	last := b.history[len(b.history)-1]
	b.history = b.history[:len(b.history)-1]
	b.order, b.defs, b.at, b.table = last.order, last.defs, last.at, last.table
	return nil
}

// AddDefinitions merges definitions into the builder. Names and
// attribute keys are upper-cased, families converted to the MAD-X
// vocabulary, and later definitions override earlier ones. Negative
// lengths are rejected. If a table has already been built it is
// refreshed.
func (b *Builder) AddDefinitions(defs Defs) error {
	norm, err := defs.Normalize()
	if err != nil {
		return err
	}
	for _, def := range norm {
		if err := requireLength(def); err != nil {
			return err
		}
	}
	b.push()
	for k, v := range norm {
		b.defs[k] = v
	}
	b.refresh()
	return nil
}

// AddElements appends elements at the end of the lattice.
func (b *Builder) AddElements(names ...string) error {
	if len(names) == 0 {
		return errors.New("no elements given")
	}
	b.push()
	b.order = append(b.order, upperAll(names)...)
	b.invalidatePlacements()
	b.refresh()
	return nil
}

// ReplaceElement replaces the first occurrence of old (by name) with
// one or more new elements.
func (b *Builder) ReplaceElement(old string, new ...string) error {
	old = strings.ToUpper(old)
	for i, n := range b.order {
		if n == old {
			return b.ReplaceElementAt(i, new...)
		}
	}
	return fmt.Errorf("element %s not in lattice", old)
}

// ReplaceElementAt replaces the element at idx with one or more new
// elements.
func (b *Builder) ReplaceElementAt(idx int, new ...string) error {
	if err := b.checkIndex(idx); err != nil {
		return err
	}
	if len(new) == 0 {
		return errors.New("no replacement elements given")
	}
	b.push()
	b.order = splice(b.order, idx, idx, upperAll(new))
	b.invalidatePlacements()
	b.refresh()
	return nil
}

// ReplaceRange replaces the elements from start to end (inclusive)
// with one or more new elements.
func (b *Builder) ReplaceRange(start, end int, new ...string) error {
	if err := b.checkRange(start, end); err != nil {
		return err
	}
	if len(new) == 0 {
		return errors.New("no replacement elements given")
	}
	b.push()
	b.order = splice(b.order, start, end, upperAll(new))
	b.invalidatePlacements()
	b.refresh()
	return nil
}

// InsertBefore inserts elements before the element at idx.
func (b *Builder) InsertBefore(idx int, names ...string) error {
	if err := b.checkInsertIndex(idx); err != nil {
		return err
	}
	b.push()
	b.order = insertAt(b.order, idx, upperAll(names))
	b.invalidatePlacements()
	b.refresh()
	return nil
}

// InsertAfter inserts elements after the element at idx.
func (b *Builder) InsertAfter(idx int, names ...string) error {
	if err := b.checkIndex(idx); err != nil {
		return err
	}
	b.push()
	b.order = insertAt(b.order, idx+1, upperAll(names))
	b.invalidatePlacements()
	b.refresh()
	return nil
}

// RemoveAt removes the element at idx.
func (b *Builder) RemoveAt(idx int) error {
	return b.RemoveRange(idx, idx)
}

// RemoveRange removes the elements from start to end, inclusive.
func (b *Builder) RemoveRange(start, end int) error {
	if err := b.checkRange(start, end); err != nil {
		return err
	}
	b.push()
	b.order = splice(b.order, start, end, nil)
	b.invalidatePlacements()
	b.refresh()
	return nil
}

// SetLattice replaces the builder's entire state. File imports and the
// store use this to install a parsed lattice; the previous state
// remains reachable through Undo. at carries explicit centre positions
// (one per ordered element) from a sequence import and may be nil.
func (b *Builder) SetLattice(name string, defs Defs, order []string, at []float64) error {
	norm, err := defs.Normalize()
	if err != nil {
		return err
	}
	for _, def := range norm {
		if err := requireLength(def); err != nil {
			return err
		}
	}
	if at != nil && len(at) != len(order) {
		return fmt.Errorf("%d positions for %d elements", len(at), len(order))
	}
	b.push()
	if name != "" {
		b.name = name
	}
	b.defs = norm
	b.order = upperAll(order)
	b.at = append([]float64(nil), at...)
	b.table = nil
	return nil
}

// Indices returns all positions of the named element in the lattice.
func (b *Builder) Indices(name string) []int {
	name = strings.ToUpper(name)
	var out []int
	for i, n := range b.order {
		if n == name {
			out = append(out, i)
		}
	}
	return out
}

// BuildTable builds (or rebuilds) the element table. All ordered
// elements must be defined; otherwise an error naming the missing
// definitions is returned and the current table is left untouched.
func (b *Builder) BuildTable() (*Table, error) {
	b.push()
	if err := b.rebuild(); err != nil {
		// drop the snapshot taken for a change that did not happen
		b.history = b.history[:len(b.history)-1]
		return nil, err
	}
	return b.table, nil
}

// refresh rebuilds the table after an edit if one was already built.
// When the edit introduced undefined elements the stale table is
// dropped and a warning logged; the edit itself stands.
func (b *Builder) refresh() {
	if b.table == nil {
		return
	}
	if err := b.rebuild(); err != nil {
		monitoring.Logf("table invalidated: %v", err)
		b.table = nil
	}
}

func (b *Builder) rebuild() error {
	t, err := buildTable(b.name, b.order, b.defs, b.at)
	if err != nil {
		return err
	}
	b.table = t
	return nil
}

// invalidatePlacements drops imported sequence positions after a
// structural edit; they no longer line up with the element order.
func (b *Builder) invalidatePlacements() {
	if b.at != nil {
		monitoring.Logf("lattice edited: dropping %d imported sequence positions", len(b.at))
		b.at = nil
	}
}

func (b *Builder) checkIndex(idx int) error {
	if idx < 0 || idx >= len(b.order) {
		return fmt.Errorf("index %d out of range [0,%d)", idx, len(b.order))
	}
	return nil
}

func (b *Builder) checkInsertIndex(idx int) error {
	if idx < 0 || idx > len(b.order) {
		return fmt.Errorf("index %d out of range [0,%d]", idx, len(b.order))
	}
	return nil
}

func (b *Builder) checkRange(start, end int) error {
	if start < 0 || end >= len(b.order) || start > end {
		return fmt.Errorf("range [%d,%d] invalid for lattice of %d elements", start, end, len(b.order))
	}
	return nil
}

func upperAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strings.ToUpper(strings.TrimSpace(n))
	}
	return out
}

// splice replaces order[start..end] (inclusive) with repl.
func splice(order []string, start, end int, repl []string) []string {
	out := make([]string, 0, len(order)-(end-start+1)+len(repl))
	out = append(out, order[:start]...)
	out = append(out, repl...)
	out = append(out, order[end+1:]...)
	return out
}

func insertAt(order []string, idx int, elems []string) []string {
	out := make([]string, 0, len(order)+len(elems))
	out = append(out, order[:idx]...)
	out = append(out, elems...)
	out = append(out, order[idx:]...)
	return out
}
