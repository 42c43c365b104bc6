package engine

import (
	"math/rand"
	"time"
)

// Source supplies uniform draws in [0, 1).
type Source interface {
	Float64() float64
}

// NewSource returns a math/rand source. A zero seed draws one from the clock.
func NewSource(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
