package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowBurst(t *testing.T) {
	l := NewLimiter(PerHour(1), 3)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("w1"), "event %d", i)
	}
	assert.False(t, l.Allow("w1"))

	assert.True(t, l.Allow("w2"), "keys have separate buckets")
}

func TestTokens(t *testing.T) {
	l := NewLimiter(PerHour(1), 5)

	assert.InDelta(t, 5, l.Tokens("w1"), 0.001)
	l.Allow("w1")
	assert.InDelta(t, 4, l.Tokens("w1"), 0.001)
	assert.Equal(t, 5, l.Burst())
}

func TestForget(t *testing.T) {
	l := NewLimiter(PerHour(1), 1)

	assert.True(t, l.Allow("w1"))
	assert.False(t, l.Allow("w1"))
	assert.Equal(t, 1, l.Len())

	l.Forget("w1")
	assert.Equal(t, 0, l.Len())
	assert.True(t, l.Allow("w1"))
}

func TestPerHour(t *testing.T) {
	assert.InDelta(t, 1.0, float64(PerHour(3600)), 1e-9)
}
