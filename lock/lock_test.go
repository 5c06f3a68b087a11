package lock_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frobware/go-pagecache/lock"
)

func TestRun_HoldsLockAndWritesPid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", ".lock")

	called := false
	err := lock.Run(context.Background(), path, 0, func(ctx context.Context, s lock.Scope) error {
		called = true
		assert.Equal(t, path, s.Path())

		pid, err := lock.Holder(path)
		require.NoError(t, err)
		assert.Equal(t, os.Getpid(), pid)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestRun_PropagatesCallbackError(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")
	want := errors.New("boom")

	err := lock.Run(context.Background(), path, 0, func(context.Context, lock.Scope) error {
		return want
	})
	assert.ErrorIs(t, err, want)
}

func TestRun_SecondHolderFailsFast(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")

	err := lock.Run(context.Background(), path, 0, func(ctx context.Context, _ lock.Scope) error {
		inner := lock.Run(ctx, path, 0, func(context.Context, lock.Scope) error {
			t.Fatal("second holder must not run")
			return nil
		})
		require.Error(t, inner)
		assert.ErrorIs(t, inner, lock.ErrHeld)
		assert.Contains(t, inner.Error(), "pid")
		return nil
	})
	require.NoError(t, err)
}

func TestRun_WaitExpires(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")

	err := lock.Run(context.Background(), path, 0, func(ctx context.Context, _ lock.Scope) error {
		start := time.Now()
		inner := lock.Run(ctx, path, 150*time.Millisecond, func(context.Context, lock.Scope) error {
			return nil
		})
		assert.ErrorIs(t, inner, lock.ErrHeld)
		assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
		return nil
	})
	require.NoError(t, err)
}

func TestRun_WaitHonoursCancellation(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")

	err := lock.Run(context.Background(), path, 0, func(context.Context, lock.Scope) error {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		inner := lock.Run(ctx, path, time.Minute, func(context.Context, lock.Scope) error {
			return nil
		})
		assert.ErrorIs(t, inner, context.Canceled)
		return nil
	})
	require.NoError(t, err)
}

func TestRun_ReleasedAfterReturn(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")
	noop := func(context.Context, lock.Scope) error { return nil }

	require.NoError(t, lock.Run(context.Background(), path, 0, noop))
	require.NoError(t, lock.Run(context.Background(), path, 0, noop))
}

func TestHolder_NotAPid(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o644))

	_, err := lock.Holder(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not contain a pid")
}
