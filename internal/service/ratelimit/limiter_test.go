package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestLimiter_BurstThenRefill(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(1, 2, WithClock(clk.now))

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys are independent")

	clk.t = clk.t.Add(time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
}

func TestLimiter_Disabled(t *testing.T) {
	l := New(0, 1)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("a"))
	}
}

func TestLimiter_EvictsIdleKeys(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(1, 1, WithClock(clk.now), WithIdle(time.Minute))

	l.Allow("a")
	l.Allow("b")
	assert.Equal(t, 2, l.Len())

	clk.t = clk.t.Add(2 * time.Minute)
	l.Allow("c")
	assert.Equal(t, 1, l.Len())
}
