package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(t *testing.T, now *time.Time) *RateLimiter {
	rl := NewRateLimiter(RateLimitConfig{
		MaxAttempts:     3,
		WindowDuration:  time.Minute,
		LockoutDuration: 5 * time.Minute,
	})
	rl.now = func() time.Time { return *now }
	t.Cleanup(rl.Stop)
	return rl
}

func TestRateLimiter_LocksAfterMaxAttempts(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newTestLimiter(t, &now)

	for i := 0; i < 2; i++ {
		locked, _ := rl.RecordFailure("1.2.3.4", "alice")
		assert.False(t, locked)
		allowed, _ := rl.Allow("1.2.3.4", "alice")
		assert.True(t, allowed)
	}

	locked, retry := rl.RecordFailure("1.2.3.4", "Alice")
	assert.True(t, locked, "username matching is case-insensitive")
	assert.Equal(t, 5*time.Minute, retry)

	allowed, retry := rl.Allow("1.2.3.4", "alice")
	assert.False(t, allowed)
	assert.Equal(t, 5*time.Minute, retry)

	allowed, _ = rl.Allow("5.6.7.8", "alice")
	assert.True(t, allowed, "other clients are unaffected")

	now = now.Add(6 * time.Minute)
	allowed, _ = rl.Allow("1.2.3.4", "alice")
	assert.True(t, allowed, "lockout expires")
}

func TestRateLimiter_WindowResets(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newTestLimiter(t, &now)

	rl.RecordFailure("ip", "bob")
	rl.RecordFailure("ip", "bob")
	now = now.Add(2 * time.Minute)

	locked, _ := rl.RecordFailure("ip", "bob")
	assert.False(t, locked)
}

func TestRateLimiter_SuccessClears(t *testing.T) {
	now := time.Now()
	rl := newTestLimiter(t, &now)

	rl.RecordFailure("ip", "carol")
	rl.RecordFailure("ip", "carol")
	rl.RecordSuccess("ip", "carol")

	locked, _ := rl.RecordFailure("ip", "carol")
	assert.False(t, locked)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	now := time.Now()
	rl := newTestLimiter(t, &now)

	rl.RecordFailure("ip", "dave")
	now = now.Add(time.Hour)
	rl.cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Empty(t, rl.attempts)
}
