package storage

import (
	"fmt"
	"reflect"

	"github.com/adfharrison1/go-tickindex/pkg/domain"
)

// Table stores every component of type C, each stamped with the tick it
// was added and last changed at. All access goes through the owning
// World's lock.
type Table[C any] struct {
	world   *World
	name    string
	rows    map[domain.Entity]*row[C]
	removed []removal
}

type row[C any] struct {
	value   C
	added   domain.Tick
	changed domain.Tick
}

type removal struct {
	entity domain.Entity
	tick   domain.Tick
}

// TableOf returns the table for component type C, creating it on first use.
func TableOf[C any](w *World) *Table[C] {
	typ := reflect.TypeFor[C]()

	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.tables[typ]; ok {
		return t.(*Table[C])
	}
	t := &Table[C]{
		world: w,
		name:  typ.String(),
		rows:  make(map[domain.Entity]*row[C]),
	}
	w.tables[typ] = t
	return t
}

// Insert attaches c to e at the current tick. Replacing an existing
// component counts as a change.
func (t *Table[C]) Insert(e domain.Entity, c C) error {
	w := t.world
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.alive[e]; !ok {
		return fmt.Errorf("failed to insert %s on %s: %w", t.name, e, ErrEntityNotFound)
	}
	if r, ok := t.rows[e]; ok {
		r.value = c
		r.changed = w.tick
		return nil
	}
	t.rows[e] = &row[C]{value: c, added: w.tick, changed: w.tick}
	return nil
}

// Get returns the component attached to e.
func (t *Table[C]) Get(e domain.Entity) (C, bool) {
	t.world.mu.RLock()
	defer t.world.mu.RUnlock()

	r, ok := t.rows[e]
	if !ok {
		var zero C
		return zero, false
	}
	return r.value, true
}

// Ref returns the component attached to e together with its ticks.
func (t *Table[C]) Ref(e domain.Entity) (domain.Ref[C], bool) {
	t.world.mu.RLock()
	defer t.world.mu.RUnlock()

	r, ok := t.rows[e]
	if !ok {
		return domain.Ref[C]{}, false
	}
	return r.ref(e), true
}

// Mutate calls fn with a pointer to e's component and marks it changed at
// the current tick, whether or not fn actually modified it.
func (t *Table[C]) Mutate(e domain.Entity, fn func(c *C)) error {
	w := t.world
	w.mu.Lock()
	defer w.mu.Unlock()

	r, ok := t.rows[e]
	if !ok {
		return fmt.Errorf("failed to mutate %s on %s: %w", t.name, e, ErrComponentNotFound)
	}
	fn(&r.value)
	r.changed = w.tick
	return nil
}

// Remove detaches the component from e and records the removal.
func (t *Table[C]) Remove(e domain.Entity) error {
	w := t.world
	w.mu.Lock()
	defer w.mu.Unlock()

	if !t.remove(e, w.tick) {
		return fmt.Errorf("failed to remove %s from %s: %w", t.name, e, ErrComponentNotFound)
	}
	return nil
}

// Len returns the number of stored components.
func (t *Table[C]) Len() int {
	t.world.mu.RLock()
	defer t.world.mu.RUnlock()
	return len(t.rows)
}

// View returns a live view of the table read at the world's current tick.
func (t *Table[C]) View() *TableView[C] {
	return &TableView[C]{table: t, tick: t.world.Tick()}
}

func (r *row[C]) ref(e domain.Entity) domain.Ref[C] {
	return domain.Ref[C]{Entity: e, Value: r.value, Added: r.added, Changed: r.changed}
}

func (t *Table[C]) componentName() string {
	return t.name
}

func (t *Table[C]) size() int {
	return len(t.rows)
}

func (t *Table[C]) remove(e domain.Entity, now domain.Tick) bool {
	if _, ok := t.rows[e]; !ok {
		return false
	}
	delete(t.rows, e)
	t.removed = append(t.removed, removal{entity: e, tick: now})
	return true
}

func (t *Table[C]) checkTicks(now domain.Tick) {
	for _, r := range t.rows {
		r.added = r.added.CheckTick(now)
		r.changed = r.changed.CheckTick(now)
	}
}

// trimRemovals forgets removals older than retention steps. The log is
// ordered by tick, so the expired ones form a prefix.
func (t *Table[C]) trimRemovals(now domain.Tick, retention uint32) {
	n := 0
	for n < len(t.removed) && t.removed[n].tick.Since(now) > retention {
		n++
	}
	if n > 0 {
		t.removed = append(t.removed[:0], t.removed[n:]...)
	}
}
