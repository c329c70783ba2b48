package storage

import (
	"errors"
	"fmt"
	"log"
	"reflect"
	"sync"

	"github.com/adfharrison1/go-tickindex/pkg/domain"
)

var (
	ErrEntityNotFound    = errors.New("entity not found")
	ErrComponentNotFound = errors.New("component not found")
)

// World is the host store: it hands out entities, keeps one Table per
// component type and owns the tick clock that stamps every write.
type World struct {
	mu        sync.RWMutex
	tick      domain.Tick
	lastCheck domain.Tick
	nextID    domain.Entity
	alive     map[domain.Entity]struct{}
	tables    map[reflect.Type]table

	// Configuration
	removalRetention uint32
	logger           *log.Logger
}

// table is the part of Table[C] the World drives without knowing C.
type table interface {
	componentName() string
	size() int
	remove(e domain.Entity, now domain.Tick) bool
	checkTicks(now domain.Tick)
	trimRemovals(now domain.Tick, retention uint32)
}

// NewWorld creates an empty world. The clock starts at tick 1 so that a
// fresh index, whose watermark is 0, is always behind it.
func NewWorld(options ...WorldOption) *World {
	w := &World{
		tick:             1,
		nextID:           domain.NoEntity,
		alive:            make(map[domain.Entity]struct{}),
		tables:           make(map[reflect.Type]table),
		removalRetention: 4096,
		logger:           log.Default(),
	}

	for _, option := range options {
		option(w)
	}
	w.lastCheck = w.tick

	return w
}

// Tick returns the current logical step.
func (w *World) Tick() domain.Tick {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tick
}

// Advance starts the next logical step and returns its tick. Stored
// ticks are clamped every CheckTickThreshold steps.
func (w *World) Advance() domain.Tick {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.tick++
	if uint32(w.tick-w.lastCheck) >= domain.CheckTickThreshold {
		w.checkTicksLocked()
	}
	for _, t := range w.tables {
		t.trimRemovals(w.tick, w.removalRetention)
	}
	return w.tick
}

// CheckTicks clamps every stored tick so it stays comparable with the
// current one. Advance calls it on its own; exported for hosts that drive
// the clock in large jumps.
func (w *World) CheckTicks() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.checkTicksLocked()
}

func (w *World) checkTicksLocked() {
	for _, t := range w.tables {
		t.checkTicks(w.tick)
	}
	w.lastCheck = w.tick
	w.logger.Printf("INFO: Clamped component ticks at tick %d", w.tick)
}

// Spawn allocates a new entity with no components.
func (w *World) Spawn() domain.Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.spawnLocked()
}

func (w *World) spawnLocked() domain.Entity {
	w.nextID++
	e := w.nextID
	w.alive[e] = struct{}{}
	return e
}

// Despawn removes e and every component attached to it.
func (w *World) Despawn(e domain.Entity) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.alive[e]; !ok {
		return fmt.Errorf("failed to despawn %s: %w", e, ErrEntityNotFound)
	}
	for _, t := range w.tables {
		t.remove(e, w.tick)
	}
	delete(w.alive, e)
	return nil
}

// Alive reports whether e has been spawned and not despawned.
func (w *World) Alive(e domain.Entity) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.alive[e]
	return ok
}

// EntityCount returns the number of live entities.
func (w *World) EntityCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.alive)
}

// adopt marks e alive without allocating, moving the id counter past it.
// Used when rows are restored from a snapshot.
func (w *World) adopt(e domain.Entity) {
	w.alive[e] = struct{}{}
	if e > w.nextID {
		w.nextID = e
	}
}
