package quote

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_EnforcesMinimumSpacing(t *testing.T) {
	r := NewRateLimiter(30*time.Millisecond, 1000)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, r.Wait(ctx))
	require.NoError(t, r.Wait(ctx))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
}

func TestRateLimiter_EnforcesRollingWindowCap(t *testing.T) {
	r := NewRateLimiter(time.Millisecond, 2)
	ctx := context.Background()

	require.NoError(t, r.Wait(ctx))
	require.NoError(t, r.Wait(ctx))

	// third call within the window must wait; use a short deadline ctx
	// to prove it blocks rather than failing outright.
	shortCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := r.Wait(shortCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
