package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-venue-reservation/internal/config"
)

func TestLockManager_AcquireLock(t *testing.T) {
	client, err := NewClient(&config.RedisConfig{Host: "localhost", Port: "6379"})
	if err != nil {
		t.Skip("Redis not available")
	}
	defer client.Close()

	ctx := context.Background()
	manager := NewLockManager(client)

	t.Run("ロックを取得できる", func(t *testing.T) {
		lock, err := manager.AcquireLock(ctx, "venue-1:slot-1", 5*time.Second)
		require.NoError(t, err)
		require.NotNil(t, lock)
		defer lock.Release(ctx)
	})

	t.Run("同じキーのロックは取得できない", func(t *testing.T) {
		lock1, err := manager.AcquireLock(ctx, "venue-1:slot-2", 5*time.Second)
		require.NoError(t, err)
		defer lock1.Release(ctx)

		_, err = manager.AcquireLock(ctx, "venue-1:slot-2", 5*time.Second)
		assert.ErrorIs(t, err, ErrLockNotAcquired)
	})

	t.Run("解放後は再取得できる", func(t *testing.T) {
		lock1, err := manager.AcquireLock(ctx, "venue-1:slot-3", 5*time.Second)
		require.NoError(t, err)
		require.NoError(t, lock1.Release(ctx))

		lock2, err := manager.AcquireLock(ctx, "venue-1:slot-3", 5*time.Second)
		require.NoError(t, err)
		defer lock2.Release(ctx)
	})
}

func TestLockManager_AcquireLockWithRetry(t *testing.T) {
	client, err := NewClient(&config.RedisConfig{Host: "localhost", Port: "6379"})
	if err != nil {
		t.Skip("Redis not available")
	}
	defer client.Close()

	ctx := context.Background()
	manager := NewLockManager(client)

	t.Run("TTL切れ後にリトライで取得できる", func(t *testing.T) {
		lock1, err := manager.AcquireLock(ctx, "venue-1:retry", 200*time.Millisecond)
		require.NoError(t, err)
		_ = lock1

		lock2, err := manager.AcquireLockWithRetry(ctx, "venue-1:retry", 5*time.Second, 5, 100*time.Millisecond)
		require.NoError(t, err)
		defer lock2.Release(ctx)
	})

	t.Run("リトライ上限で諦める", func(t *testing.T) {
		lock1, err := manager.AcquireLock(ctx, "venue-1:held", 30*time.Second)
		require.NoError(t, err)
		defer lock1.Release(ctx)

		_, err = manager.AcquireLockWithRetry(ctx, "venue-1:held", 5*time.Second, 2, 50*time.Millisecond)
		assert.ErrorIs(t, err, ErrLockNotAcquired)
	})
}
