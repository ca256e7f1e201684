package infra

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKeys(t *testing.T) {
	assert.Equal(t, []string{"lot:a", "lot:b", "supplier:x"},
		normalizeKeys([]string{"supplier:x", "lot:b", "", "lot:a", "lot:b"}))
}

func TestMemoryLocker_TimesOutWhileHeld(t *testing.T) {
	l := NewMemoryLocker(30 * time.Millisecond)
	release, err := l.Acquire(context.Background(), "lot:a")
	require.NoError(t, err)

	_, err = l.Acquire(context.Background(), "lot:b", "lot:a")
	assert.True(t, errors.Is(err, ErrLockTimeout))

	release()
	release() // idempotent

	release, err = l.Acquire(context.Background(), "lot:a", "lot:b")
	require.NoError(t, err)
	release()
}

func TestMemoryLocker_PartialAcquireIsRolledBack(t *testing.T) {
	l := NewMemoryLocker(30 * time.Millisecond)
	holdB, err := l.Acquire(context.Background(), "lot:b")
	require.NoError(t, err)
	defer holdB()

	// lot:a is taken first, then the wait on lot:b times out.
	_, err = l.Acquire(context.Background(), "lot:a", "lot:b")
	require.Error(t, err)

	release, err := l.Acquire(context.Background(), "lot:a")
	require.NoError(t, err, "lot:a must be free again after the failed attempt")
	release()
}

func TestMemoryLocker_SerialisesOverlappingKeySets(t *testing.T) {
	l := NewMemoryLocker(5 * time.Second)
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		keys := []string{"lot:a", "lot:b"}
		if i%2 == 1 {
			keys = []string{"lot:b", "lot:a"}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), keys...)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
	assert.Empty(t, l.slots, "released slots are garbage collected")
}

func TestMemoryLocker_HonoursContextCancellation(t *testing.T) {
	l := NewMemoryLocker(time.Minute)
	release, err := l.Acquire(context.Background(), "lot:a")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Acquire(ctx, "lot:a")
	assert.True(t, errors.Is(err, ErrLockTimeout))
}
