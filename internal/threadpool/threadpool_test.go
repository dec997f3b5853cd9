package threadpool

import (
	"sync"
	"testing"
)

func TestNaiveSpawnRunsAllJobs(t *testing.T) {
	pool := NewNaive()

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[int]bool{}

	for i := 0; i < 20; i++ {
		wg.Add(1)
		i := i
		pool.Spawn(func() {
			defer wg.Done()
			mu.Lock()
			seen[i] = true
			mu.Unlock()
		})
	}
	wg.Wait()

	if len(seen) != 20 {
		t.Fatalf("len(seen) = %d, want 20", len(seen))
	}
}
