package lock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/xpro-storefront/internal/lock"
)

func newLocker(t *testing.T) (lock.Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.Locker{R: client, Prefix: "xpro:form:", RetryBackoff: 5 * time.Millisecond}, mr
}

func TestTryLockExcludesSecondHolder(t *testing.T) {
	locker, mr := newLocker(t)
	ctx := context.Background()

	release, ok, err := locker.TryLock(ctx, "s1:checkout", time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, mr.Exists("xpro:form:s1:checkout"))

	_, ok, err = locker.TryLock(ctx, "s1:checkout", time.Second)
	require.NoError(t, err)
	require.False(t, ok)

	release()
	release()
	require.False(t, mr.Exists("xpro:form:s1:checkout"))

	release, ok, err = locker.TryLock(ctx, "s1:checkout", time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	release()
}

func TestTryLockExpires(t *testing.T) {
	locker, mr := newLocker(t)
	ctx := context.Background()

	_, ok, err := locker.TryLock(ctx, "k", 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(100 * time.Millisecond)
	_, ok, err = locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok, "stale holder released by ttl")
}

func TestWithLockSerialises(t *testing.T) {
	locker, _ := newLocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var order []string
	var mu sync.Mutex
	firstDone := make(chan struct{})
	releaseFirst := make(chan struct{})

	go func() {
		_ = locker.WithLock(ctx, "demo", 100*time.Millisecond, func(context.Context) error {
			mu.Lock()
			order = append(order, "first")
			mu.Unlock()
			close(firstDone)
			<-releaseFirst
			return nil
		})
	}()

	<-firstDone

	go func() {
		_ = locker.WithLock(ctx, "demo", 100*time.Millisecond, func(context.Context) error {
			mu.Lock()
			order = append(order, "second")
			mu.Unlock()
			return nil
		})
	}()

	close(releaseFirst)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"first", "second"}, order)
}

func TestLockerWithoutClient(t *testing.T) {
	_, _, err := lock.Locker{}.TryLock(context.Background(), "k", time.Second)
	require.Error(t, err)
}
