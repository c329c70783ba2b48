package indexing

import (
	"log"
	"sync"
	"time"

	"github.com/adfharrison1/go-tickindex/pkg/domain"
	"github.com/adfharrison1/go-tickindex/pkg/multimap"
)

// Store holds the state of one index between queries: which entities map
// to which key, and the watermark tick through which that mapping is known
// to be accurate.
type Store[K comparable] struct {
	mu        sync.Mutex
	name      string
	entries   *multimap.UniqueMultiMap[K, domain.Entity]
	watermark domain.Tick
	refreshed bool

	logger  *log.Logger
	debug   bool
	metrics *Metrics
}

// NewStore creates an empty store with a zero watermark.
func NewStore[K comparable](name string) *Store[K] {
	return &Store[K]{
		name:    name,
		entries: multimap.New[K, domain.Entity](),
		logger:  log.Default(),
	}
}

// Name returns the index name used in logs and metrics.
func (s *Store[K]) Name() string {
	return s.name
}

// Watermark returns the tick of the last refresh.
func (s *Store[K]) Watermark() domain.Tick {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watermark
}

// checkTick clamps the watermark the same way stored component ticks are
// clamped, so an idle store never wraps around into the future.
func (s *Store[K]) checkTick(current domain.Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refreshed {
		s.watermark = s.watermark.CheckTick(current)
	}
}

// Len returns the number of indexed entities.
func (s *Store[K]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.Len()
}

// KeyCount returns the number of distinct keys held by at least one entity.
func (s *Store[K]) KeyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.KeyCount()
}

// RefreshStats describes the work done by one refresh.
type RefreshStats struct {
	Skipped   bool
	Scanned   int
	Reindexed int
	Pruned    int
}

// Index is a short-lived handle pairing a Store with a live view of the
// component data. Obtain one per query with Open, use it, drop it.
//
// Every query method locks the store for its whole duration, so at most
// one refresh runs per store at a time. The caller must make sure any
// component writes it wants to see are visible through view before
// querying.
type Index[C any, K comparable] struct {
	store *Store[K]
	def   domain.Definition[C, K]
	view  domain.LiveView[C]
}

// NewIndex binds store, def and view together without a Registry.
func NewIndex[C any, K comparable](store *Store[K], def domain.Definition[C, K], view domain.LiveView[C]) *Index[C, K] {
	return &Index[C, K]{
		store: store,
		def:   def,
		view:  view,
	}
}

// Lookup returns the entities whose component currently maps to key.
// The result is a copy and is empty when no entity holds key.
func (idx *Index[C, K]) Lookup(key K) multimap.Set[domain.Entity] {
	idx.store.mu.Lock()
	defer idx.store.mu.Unlock()
	idx.refreshLocked()
	return idx.store.entries.Get(key)
}

// Count returns how many entities currently map to key.
func (idx *Index[C, K]) Count(key K) int {
	idx.store.mu.Lock()
	defer idx.store.mu.Unlock()
	idx.refreshLocked()
	return idx.store.entries.Count(key)
}

// KeyOf returns the key entity e is indexed under.
func (idx *Index[C, K]) KeyOf(e domain.Entity) (K, bool) {
	idx.store.mu.Lock()
	defer idx.store.mu.Unlock()
	idx.refreshLocked()
	return idx.store.entries.KeyOf(e)
}

// Refresh brings the store up to the view's current tick. Calling it again
// at the same tick does nothing.
func (idx *Index[C, K]) Refresh() RefreshStats {
	idx.store.mu.Lock()
	defer idx.store.mu.Unlock()
	return idx.refreshLocked()
}

func (idx *Index[C, K]) refreshLocked() RefreshStats {
	s := idx.store
	current := idx.view.CurrentTick()
	if s.refreshed && s.watermark == current {
		s.metrics.observeSkip(s.name)
		return RefreshStats{Skipped: true}
	}

	start := time.Now()
	var stats RefreshStats

	// The first refresh indexes everything, however old its stamp. So does
	// one whose watermark is too old to compare stamps against.
	full := !s.refreshed || uint32(current-s.watermark) >= domain.MaxChangeAge

	if removals, ok := idx.view.(domain.RemovalView); ok && !full {
		for e := range removals.RemovedSince(s.watermark-1, current) {
			if removals.Contains(e) {
				continue
			}
			if _, ok := s.entries.Remove(e); ok {
				stats.Pruned++
			}
		}
	}

	for ref := range idx.view.All() {
		stats.Scanned++
		if !full && !domain.ChangedSince(ref.Changed, s.watermark, current) {
			continue
		}
		key := idx.def.Key(ref.Value)
		s.entries.Insert(key, ref.Entity)
		stats.Reindexed++
		if s.debug {
			s.logger.Printf("DEBUG: Index '%s' updated %s -> %v", s.name, ref.Entity, key)
		}
	}

	s.watermark = current
	s.refreshed = true
	elapsed := time.Since(start)
	s.metrics.observeRefresh(s.name, stats, current, s.entries.Len(), elapsed)

	if s.debug {
		s.logger.Printf("DEBUG: Refreshed index '%s' to tick %d - scanned: %d, reindexed: %d, pruned: %d, took %v",
			s.name, current, stats.Scanned, stats.Reindexed, stats.Pruned, elapsed)
	}
	return stats
}
