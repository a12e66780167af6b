package utils

import (
	"context"
	"sync"
	"testing"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("p1:l1")
			v := counter
			v++
			counter = v
			km.Unlock("p1:l1")
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("counter=%d, want 50", counter)
	}
	if km.Size() != 0 {
		t.Fatalf("expected idle entries to be dropped, got %d", km.Size())
	}
}

func TestLockKeysOverlappingSetsDoNotDeadlock(t *testing.T) {
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			release, err := LockKeys(ctx, []string{"a", "b", "c"})
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			release()
		}()
		go func() {
			defer wg.Done()
			release, err := LockKeys(ctx, []string{"c", "b", "a", "a"})
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			release()
		}()
	}
	wg.Wait()
}
