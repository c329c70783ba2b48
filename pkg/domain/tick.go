package domain

import "math"

// Tick is the logical time assigned by the host to each update step.
// Ticks wrap around, so they are only ever compared relative to a
// current tick.
type Tick uint32

const (
	// CheckTickThreshold is how many steps may pass before stored ticks
	// must be clamped with CheckTick to stay comparable.
	CheckTickThreshold uint32 = 518_400_000

	// MaxChangeAge is the largest age two ticks can be told apart by.
	// Anything older compares as equally old.
	MaxChangeAge uint32 = math.MaxUint32 - (2*CheckTickThreshold - 1)
)

// Since returns how many steps passed between t and current, clamped to
// MaxChangeAge.
func (t Tick) Since(current Tick) uint32 {
	return min(uint32(current-t), MaxChangeAge)
}

// IsNewerThan reports whether t was set strictly after last, as seen
// from current.
func (t Tick) IsNewerThan(last, current Tick) bool {
	return last.Since(current) > t.Since(current)
}

// CheckTick clamps t so that its age relative to current never exceeds
// MaxChangeAge. Without it a very old tick would eventually wrap around
// and look brand new.
func (t Tick) CheckTick(current Tick) Tick {
	if uint32(current-t) > MaxChangeAge {
		return current - Tick(MaxChangeAge)
	}
	return t
}

// ChangedSince reports whether a component stamped with changed must be
// reindexed by a refresh moving the watermark up to current.
//
// The comparison is against watermark-1, not watermark: a component
// written in the same step that established the watermark may have been
// written after that refresh ran, so it is still treated as unseen.
func ChangedSince(changed, watermark, current Tick) bool {
	return changed.IsNewerThan(watermark-1, current)
}
