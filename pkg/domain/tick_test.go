package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTick_Since(t *testing.T) {
	assert.Equal(t, uint32(0), Tick(7).Since(7))
	assert.Equal(t, uint32(3), Tick(4).Since(7))
	// wrapped: 2 steps from MaxUint32 to 1
	assert.Equal(t, uint32(2), Tick(math.MaxUint32).Since(1))
	// clamped
	assert.Equal(t, MaxChangeAge, Tick(0).Since(Tick(MaxChangeAge+10)))
}

func TestTick_IsNewerThan(t *testing.T) {
	tests := []struct {
		name    string
		tick    Tick
		last    Tick
		current Tick
		want    bool
	}{
		{"after last", 6, 5, 10, true},
		{"equal to last", 5, 5, 10, false},
		{"before last", 4, 5, 10, false},
		{"at current", 10, 9, 10, true},
		{"across wraparound", math.MaxUint32 - 1, math.MaxUint32 - 3, 5, true},
		{"wrapped tick after last", 2, math.MaxUint32 - 3, 5, true},
		{"older across wraparound", math.MaxUint32 - 4, math.MaxUint32 - 3, 5, false},
		{"both beyond max age", 50, 0, Tick(MaxChangeAge + 100), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tick.IsNewerThan(tt.last, tt.current))
		})
	}
}

func TestTick_CheckTick(t *testing.T) {
	current := Tick(MaxChangeAge + 1000)

	assert.Equal(t, Tick(900), Tick(900).CheckTick(current+900-1000))
	assert.Equal(t, current-Tick(MaxChangeAge), Tick(10).CheckTick(current))
	assert.Equal(t, Tick(2000), Tick(2000).CheckTick(current))

	// after clamping the tick stays comparable and never looks new
	clamped := Tick(10).CheckTick(current)
	assert.False(t, clamped.IsNewerThan(current-1, current))
}

func TestChangedSince(t *testing.T) {
	tests := []struct {
		name      string
		changed   Tick
		watermark Tick
		current   Tick
		want      bool
	}{
		{"fresh watermark sees everything", 1, 0, 1, true},
		{"fresh watermark sees old stamps", 1, 0, 1000, true},
		{"same step as watermark", 5, 5, 6, true},
		{"after watermark", 8, 5, 9, true},
		{"before watermark", 4, 5, 9, false},
		{"watermark wrapped to zero", 0, 0, 3, true},
		{"stamp just before wrapped watermark", math.MaxUint32, 0, 3, false},
		{"stamp wrapped past watermark", 1, math.MaxUint32, 2, true},
		{"stamp older than wrapped watermark", math.MaxUint32 - 2, math.MaxUint32, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChangedSince(tt.changed, tt.watermark, tt.current))
		})
	}
}
