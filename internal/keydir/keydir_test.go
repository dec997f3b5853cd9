package keydir

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetDelete(t *testing.T) {
	kd := New()

	_, ok := kd.Get("a")
	require.False(t, ok, "Get() on empty KeyDir found a key")

	kd.Set("a", Entry{FileID: 1, Offset: 10, Length: 20})
	e, ok := kd.Get("a")
	require.True(t, ok, "Get() after Set() not found")
	assert.Equal(t, Entry{FileID: 1, Offset: 10, Length: 20}, e)

	assert.True(t, kd.Contains("a"))

	require.True(t, kd.Delete("a"))
	require.False(t, kd.Delete("a"), "second Delete() should report not found")
	assert.False(t, kd.Contains("a"))
}

func TestLenAndRange(t *testing.T) {
	kd := New()
	want := map[string]Entry{}
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("key-%d", i)
		e := Entry{FileID: uint64(i), Offset: int64(i), Length: uint64(i)}
		kd.Set(key, e)
		want[key] = e
	}

	if got := kd.Len(); got != len(want) {
		t.Fatalf("Len() = %d, want %d", got, len(want))
	}

	seen := map[string]Entry{}
	kd.Range(func(key string, e Entry) bool {
		seen[key] = e
		return true
	})
	if len(seen) != len(want) {
		t.Fatalf("Range() visited %d keys, want %d", len(seen), len(want))
	}
	for k, e := range want {
		if seen[k] != e {
			t.Fatalf("Range() for %q = %+v, want %+v", k, seen[k], e)
		}
	}
}

func TestRangeEarlyStop(t *testing.T) {
	kd := New()
	for i := 0; i < 10; i++ {
		kd.Set(fmt.Sprintf("key-%d", i), Entry{FileID: uint64(i)})
	}

	count := 0
	kd.Range(func(key string, e Entry) bool {
		count++
		return false
	})
	if count != 1 {
		t.Fatalf("Range() visited %d keys after early stop, want 1", count)
	}
}

func TestConcurrentSetGetDelete(t *testing.T) {
	kd := New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%10)
			kd.Set(key, Entry{FileID: uint64(i)})
			kd.Get(key)
			kd.Delete(key)
		}(i)
	}
	wg.Wait()
}
