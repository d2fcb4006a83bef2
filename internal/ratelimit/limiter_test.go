package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_Allow(t *testing.T) {
	limiter := New(5, time.Second)

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow(ClassPublic), "request %d should be allowed", i+1)
	}
	assert.False(t, limiter.Allow(ClassPublic), "request 6 should be blocked")
}

func TestLimiter_ClassesIndependentOfEachOther(t *testing.T) {
	limiter := New(4, time.Second)

	// Exhaust the private class only; the global budget still has room for
	// two public requests.
	assert.True(t, limiter.Allow(ClassPrivate))
	assert.True(t, limiter.Allow(ClassPrivate))
	assert.True(t, limiter.Allow(ClassPublic))
	assert.True(t, limiter.Allow(ClassPublic))
	assert.False(t, limiter.Allow(ClassPublic), "global budget exhausted")
}

func TestLimiter_Wait(t *testing.T) {
	limiter := New(5, 100*time.Millisecond)

	for i := 0; i < 5; i++ {
		assert.NoError(t, limiter.Wait(context.Background(), ClassPrivate))
	}
}

func TestLimiter_Wait_ContextCancellation(t *testing.T) {
	limiter := New(1, time.Second)

	assert.NoError(t, limiter.Wait(context.Background(), ClassPublic))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.Error(t, limiter.Wait(ctx, ClassPublic))
}

func TestLimiter_Stats(t *testing.T) {
	limiter := New(1, time.Second)

	limiter.Allow(ClassPublic)
	limiter.Allow(ClassPublic)

	total, denied := limiter.Stats()
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(1), denied)
}
