package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func TestServiceProgress_RoundTrip(t *testing.T) {
	c, _ := setupRedis(t)
	ctx := context.Background()

	err := c.SetServiceProgress(ctx, 7, ProgressSnapshot{Completed: 2, Total: 6}, time.Minute)
	require.NoError(t, err)

	got, err := c.GetServiceProgress(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Completed)
	assert.Equal(t, 6, got.Total)
}

func TestServiceProgress_MissAndExpiry(t *testing.T) {
	c, mr := setupRedis(t)
	ctx := context.Background()

	_, err := c.GetServiceProgress(ctx, 1)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.SetServiceProgress(ctx, 1, ProgressSnapshot{Completed: 1, Total: 1}, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err = c.GetServiceProgress(ctx, 1)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestServiceProgress_Delete(t *testing.T) {
	c, _ := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, c.SetServiceProgress(ctx, 3, ProgressSnapshot{Total: 4}, time.Minute))
	require.NoError(t, c.DeleteServiceProgress(ctx, 3))

	_, err := c.GetServiceProgress(ctx, 3)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSubmissionLock(t *testing.T) {
	c, mr := setupRedis(t)
	ctx := context.Background()

	ok, err := c.AcquireSubmission(ctx, "abc", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.AcquireSubmission(ctx, "abc", 30*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while the first is in flight")

	require.NoError(t, c.ReleaseSubmission(ctx, "abc"))
	ok, err = c.AcquireSubmission(ctx, "abc", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(time.Minute)
	ok, err = c.AcquireSubmission(ctx, "abc", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "lock expires after its ttl")
}
