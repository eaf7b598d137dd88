package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLock(t *testing.T) *SubmissionLock {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewSubmissionLock(client, time.Second)
}

func TestSubmissionLockRejectsConcurrentHolder(t *testing.T) {
	lock := newTestLock(t)
	ctx := context.Background()

	release, ok, err := lock.Acquire(ctx, 7, "ESSAY_WRITING")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = lock.Acquire(ctx, 7, "ESSAY_WRITING")
	require.NoError(t, err)
	require.False(t, ok)

	release()

	release, ok, err = lock.Acquire(ctx, 7, "ESSAY_WRITING")
	require.NoError(t, err)
	require.True(t, ok)
	release()
}

func TestSubmissionLockIsScopedPerStudentAndComponent(t *testing.T) {
	lock := newTestLock(t)
	ctx := context.Background()

	release1, ok, err := lock.Acquire(ctx, 7, "ESSAY_WRITING")
	require.NoError(t, err)
	require.True(t, ok)
	defer release1()

	release2, ok, err := lock.Acquire(ctx, 8, "ESSAY_WRITING")
	require.NoError(t, err)
	require.True(t, ok)
	defer release2()

	release3, ok, err := lock.Acquire(ctx, 7, "SPEAKING")
	require.NoError(t, err)
	require.True(t, ok)
	defer release3()
}

func TestSubmissionLockKeyIsCaseInsensitive(t *testing.T) {
	lock := newTestLock(t)
	ctx := context.Background()

	release, ok, err := lock.Acquire(ctx, 7, "Essay_Writing")
	require.NoError(t, err)
	require.True(t, ok)
	defer release()

	_, ok, err = lock.Acquire(ctx, 7, "ESSAY_WRITING")
	require.NoError(t, err)
	require.False(t, ok)
}
