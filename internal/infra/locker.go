package infra

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrLockTimeout is returned when a lock could not be acquired before the
// acquisition deadline.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Locker serialises ledger commands per lot identity. Acquire takes every key
// or none; keys are always taken in sorted order so two commands over
// overlapping key sets cannot deadlock.
type Locker interface {
	Acquire(ctx context.Context, keys ...string) (release func(), err error)
}

// normalizeKeys sorts and de-duplicates keys.
func normalizeKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup || k == "" {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MemoryLocker is a keyed mutex for single-process deployments and tests.
type MemoryLocker struct {
	mu      sync.Mutex
	slots   map[string]*lockSlot
	timeout time.Duration
}

type lockSlot struct {
	token chan struct{}
	refs  int
}

func NewMemoryLocker(timeout time.Duration) *MemoryLocker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MemoryLocker{slots: make(map[string]*lockSlot), timeout: timeout}
}

func (l *MemoryLocker) Acquire(ctx context.Context, keys ...string) (func(), error) {
	keys = normalizeKeys(keys)
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	held := make([]string, 0, len(keys))
	for _, key := range keys {
		slot := l.ref(key)
		select {
		case slot.token <- struct{}{}:
			held = append(held, key)
		case <-ctx.Done():
			l.unref(key)
			l.releaseAll(held)
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
	}

	var once sync.Once
	return func() { once.Do(func() { l.releaseAll(held) }) }, nil
}

func (l *MemoryLocker) ref(key string) *lockSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{token: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	return slot
}

func (l *MemoryLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot := l.slots[key]
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}

func (l *MemoryLocker) releaseAll(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		l.mu.Lock()
		slot := l.slots[keys[i]]
		l.mu.Unlock()
		<-slot.token
		l.unref(keys[i])
	}
}
