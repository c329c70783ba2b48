package storage

import (
	"iter"

	"github.com/adfharrison1/go-tickindex/pkg/domain"
)

// TableView is a read view over a Table pinned to the tick it was taken
// at. It implements domain.LiveView and domain.RemovalView.
type TableView[C any] struct {
	table *Table[C]
	tick  domain.Tick
}

func (v *TableView[C]) CurrentTick() domain.Tick {
	return v.tick
}

// All yields every stored component once. The world is read-locked for
// the duration of the loop, so the loop body must not write to the world.
func (v *TableView[C]) All() iter.Seq[domain.Ref[C]] {
	return func(yield func(domain.Ref[C]) bool) {
		v.table.world.mu.RLock()
		defer v.table.world.mu.RUnlock()

		for e, r := range v.table.rows {
			if !yield(r.ref(e)) {
				return
			}
		}
	}
}

// RemovedSince yields entities whose component was removed after last.
// Matching entries are copied out first, so the loop body may call back
// into the view.
func (v *TableView[C]) RemovedSince(last, current domain.Tick) iter.Seq[domain.Entity] {
	return func(yield func(domain.Entity) bool) {
		var entities []domain.Entity

		v.table.world.mu.RLock()
		removed := v.table.removed
		for i := len(removed) - 1; i >= 0; i-- {
			if !removed[i].tick.IsNewerThan(last, current) {
				break
			}
			entities = append(entities, removed[i].entity)
		}
		v.table.world.mu.RUnlock()

		for _, e := range entities {
			if !yield(e) {
				return
			}
		}
	}
}

// Contains reports whether e currently has the component.
func (v *TableView[C]) Contains(e domain.Entity) bool {
	v.table.world.mu.RLock()
	defer v.table.world.mu.RUnlock()
	_, ok := v.table.rows[e]
	return ok
}
