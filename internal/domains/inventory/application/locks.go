package application

import (
	"sort"
	"sync"
)

// keyedLocker hands out one mutex per key and forgets it once nobody holds or waits on it.
type keyedLocker struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{locks: map[string]*refLock{}}
}

// Lock acquires every key in sorted order and returns the matching unlock.
func (k *keyedLocker) Lock(keys ...string) func() {
	ordered := uniqueSorted(keys)
	for _, key := range ordered {
		k.acquire(key)
	}
	return func() {
		for i := len(ordered) - 1; i >= 0; i-- {
			k.release(ordered[i])
		}
	}
}

func (k *keyedLocker) acquire(key string) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()
	l.Lock()
}

func (k *keyedLocker) release(key string) {
	k.mu.Lock()
	l := k.locks[key]
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
	l.Unlock()
}

func (k *keyedLocker) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

func uniqueSorted(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
