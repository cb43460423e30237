package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionLimiter_RefillsOverTime(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newSessionLimiter(6, 1, time.Hour)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	now = now.Add(10 * time.Second)
	assert.True(t, l.Allow("a"), "one token every 10s at 6/min")
}

func TestSessionLimiter_DropsIdleSessions(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newSessionLimiter(10, 1, time.Minute)
	l.now = func() time.Time { return now }

	l.Allow("a")
	l.Allow("b")
	assert.Equal(t, 2, l.size())

	now = now.Add(2 * time.Minute)
	l.Allow("c")
	assert.Equal(t, 1, l.size())
}
