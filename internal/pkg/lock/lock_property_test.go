package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestConcurrentBalanceSafetyProperty checks that read-modify-write sequences
// guarded by the lock give the same result as sequential execution.
func TestConcurrentBalanceSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(0, 100000).Draw(t, "initial")
		numOps := rapid.IntRange(2, 30).Draw(t, "numOps")
		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")

		amounts := make([]int64, numOps)
		expected := initial
		for i := range amounts {
			amounts[i] = rapid.Int64Range(-500, 500).Draw(t, "amount")
			expected += amounts[i]
		}

		ul := New[int64]()
		balance := initial

		var wg sync.WaitGroup
		wg.Add(numOps)
		for _, amount := range amounts {
			go func(amount int64) {
				defer wg.Done()
				_ = ul.WithLock(userID, func() error {
					current := balance
					balance = current + amount
					return nil
				})
			}(amount)
		}
		wg.Wait()

		if balance != expected {
			t.Fatalf("balance mismatch: expected %d, got %d", expected, balance)
		}
		if ul.Len() != 0 {
			t.Fatalf("expected no live entries after all operations, got %d", ul.Len())
		}
	})
}

// TestTryLockProperty checks that concurrent TryLock attempts on one key never
// overlap and the lock is free afterwards.
func TestTryLockProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")
		attempts := rapid.IntRange(2, 20).Draw(t, "attempts")

		ul := New[int64]()
		var inside atomic.Int32
		var overlap atomic.Bool

		start := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(attempts)
		for i := 0; i < attempts; i++ {
			go func() {
				defer wg.Done()
				<-start
				if ul.TryLock(userID) {
					if inside.Add(1) > 1 {
						overlap.Store(true)
					}
					inside.Add(-1)
					ul.Unlock(userID)
				}
			}()
		}
		close(start)
		wg.Wait()

		if overlap.Load() {
			t.Fatal("two holders inside the critical section")
		}
		if !ul.TryLock(userID) {
			t.Fatal("lock should be free after all attempts")
		}
		ul.Unlock(userID)
	})
}

func TestUserLock_IndependentKeys(t *testing.T) {
	ul := New[int64]()

	ul.Lock(1)
	defer ul.Unlock(1)

	assert.True(t, ul.TryLock(2), "other keys must not be blocked")
	ul.Unlock(2)
	assert.False(t, ul.TryLock(1))
}

func TestUserLock_UnlockUnknownKey(t *testing.T) {
	ul := New[string]()
	assert.NotPanics(t, func() { ul.Unlock("nobody") })
	assert.Equal(t, 0, ul.Len())
}

func TestUserLock_LockContextTimeout(t *testing.T) {
	ul := New[int64]()
	ul.Lock(7)

	err := ul.LockContext(context.Background(), 7, 20*time.Millisecond)
	require.ErrorIs(t, err, ErrLockTimeout)

	ul.Unlock(7)
	require.NoError(t, ul.LockContext(context.Background(), 7, time.Second))
	ul.Unlock(7)
	assert.Equal(t, 0, ul.Len())
}
