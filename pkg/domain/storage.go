package domain

import "iter"

// Ref is a read-only snapshot of one component as seen by a live view.
type Ref[C any] struct {
	Entity  Entity
	Value   C
	Added   Tick
	Changed Tick
}

// LiveView is what an index needs from the host store: the tick the
// caller is reading at, and every (entity, component) pair currently
// stored, each exactly once.
type LiveView[C any] interface {
	CurrentTick() Tick
	All() iter.Seq[Ref[C]]
}

// RemovalView is an optional extension of LiveView for hosts that keep a
// log of removed components. Indexes use it to drop entities that no
// longer carry the component.
type RemovalView interface {
	// RemovedSince yields entities whose component was removed after last,
	// as seen from current.
	RemovedSince(last, current Tick) iter.Seq[Entity]
	Contains(e Entity) bool
}
