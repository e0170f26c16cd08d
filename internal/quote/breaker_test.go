package quote

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestBreaker_OpensAfterThresholdConsecutiveFailures(t *testing.T) {
	b := NewBreaker(5, time.Minute, zap.NewNop())

	for i := 0; i < 4; i++ {
		assert.True(t, b.Allow())
		b.RecordFailure()
	}
	assert.Equal(t, "closed", b.State())

	assert.True(t, b.Allow())
	b.RecordFailure() // 5th consecutive failure trips it

	assert.Equal(t, "open", b.State())
	assert.False(t, b.Allow())
}

func TestBreaker_SuccessResetsConsecutiveCounter(t *testing.T) {
	b := NewBreaker(3, time.Minute, zap.NewNop())

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	assert.Equal(t, "closed", b.State(), "counter should have reset after the intervening success")
}

func TestBreaker_HalfOpenTrialAfterTimeout(t *testing.T) {
	b := NewBreaker(1, 10*time.Millisecond, zap.NewNop())

	b.RecordFailure()
	assert.Equal(t, "open", b.State())
	assert.False(t, b.Allow())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Allow(), "exactly one trial call should be permitted after timeout")
	assert.False(t, b.Allow(), "a second concurrent call should not also be admitted")
}

func TestBreaker_FailedHalfOpenTrialReopens(t *testing.T) {
	b := NewBreaker(1, 10*time.Millisecond, zap.NewNop())
	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Allow())

	b.RecordFailure()
	assert.Equal(t, "open", b.State())
}

func TestBreaker_SuccessfulHalfOpenTrialCloses(t *testing.T) {
	b := NewBreaker(1, 10*time.Millisecond, zap.NewNop())
	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Allow())

	b.RecordSuccess()
	assert.Equal(t, "closed", b.State())
}
