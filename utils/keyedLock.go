package utils

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"github.com/bsm/redislock"
)

// KeyedMutex hands out one mutex per key. Entries are reference counted and dropped when idle.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

func (k *KeyedMutex) Lock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()
	e.mu.Lock()
}

func (k *KeyedMutex) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		k.mu.Unlock()
		return
	}
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
	e.mu.Unlock()
}

// Size is the number of keys currently held or waited on.
func (k *KeyedMutex) Size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

var stockLocks = NewKeyedMutex()

// LockKeys serializes writers on every key. Keys are deduplicated and taken in sorted
// order so two writers touching overlapping sets cannot deadlock. When redis is
// connected the same keys are also taken as distributed locks.
// The returned func releases everything and is safe to call once.
func LockKeys(ctx context.Context, keys []string) (func(), error) {
	keys = UniqueSlice(keys)
	sort.Strings(keys)

	for _, key := range keys {
		stockLocks.Lock(key)
	}
	releaseLocal := func() {
		for i := len(keys) - 1; i >= 0; i-- {
			stockLocks.Unlock(keys[i])
		}
	}

	locker := config.GetRedisLock()
	if locker == nil {
		return releaseLocal, nil
	}

	held := make([]*redislock.Lock, 0, len(keys))
	releaseAll := func() {
		for i := len(held) - 1; i >= 0; i-- {
			_ = held[i].Release(context.Background())
		}
		releaseLocal()
	}
	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 100),
	}
	for _, key := range keys {
		lock, err := locker.Obtain(ctx, "lock:"+key, 30*time.Second, opts)
		if err != nil {
			releaseAll()
			if errors.Is(err, redislock.ErrNotObtained) {
				return nil, errors.New("could not obtain lock for " + key)
			}
			return nil, err
		}
		held = append(held, lock)
	}
	return releaseAll, nil
}
