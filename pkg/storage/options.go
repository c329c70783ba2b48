package storage

import (
	"log"

	"github.com/adfharrison1/go-tickindex/pkg/domain"
)

type WorldOption func(*World)

// WithStartTick sets the tick of the first step.
func WithStartTick(tick domain.Tick) WorldOption {
	return func(w *World) {
		w.tick = tick
	}
}

// WithRemovalRetention sets how many steps component removals are kept
// for indexes to observe. An index refreshed less often than this keeps
// stale entries for entities removed in between.
func WithRemovalRetention(steps uint32) WorldOption {
	return func(w *World) {
		w.removalRetention = steps
	}
}

func WithLogger(logger *log.Logger) WorldOption {
	return func(w *World) {
		w.logger = logger
	}
}
