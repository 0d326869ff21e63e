package embedding

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Unlimited(t *testing.T) {
	r := NewRateLimiter(0)

	start := time.Now()
	for range 100 {
		require.NoError(t, r.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestRateLimiter_Throttles(t *testing.T) {
	r := NewRateLimiter(20) // burst 20, then one every 50ms

	start := time.Now()
	for range 22 {
		require.NoError(t, r.Wait(context.Background()))
	}
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestRateLimiter_RecordRateLimitError(t *testing.T) {
	r := NewRateLimiter(0)
	r.RecordRateLimitError(30 * time.Millisecond)

	start := time.Now()
	require.NoError(t, r.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestRateLimiter_WaitHonorsContext(t *testing.T) {
	r := NewRateLimiter(0)
	r.RecordRateLimitError(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := r.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
