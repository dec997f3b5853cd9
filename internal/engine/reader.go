package engine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/aethercask/aethercask/internal/logdir"
	"github.com/aethercask/aethercask/internal/posio"
)

// readerPool caches one PosReader per log file id, opened lazily on first
// use and kept until evicted.
//
// Eviction is checkpoint-driven rather than compactor-forced: the compactor
// only publishes the file id below which no live data remains
// (publishCheckpoint); it never reaches into the pool to close a handle out
// from under a concurrent reader. Instead, evictStale is called by Get,
// lazily, on its own next pass through the pool, the way the engine's
// reader side is supposed to honor the checkpoint before ever consulting
// the keydir (spec.md §4.6). This keeps a compaction that retires file N
// from racing a concurrent Get that already holds (or is about to open) a
// handle to N.
type readerPool struct {
	dir     string
	bufSize int

	mu      sync.Mutex
	readers map[uint64]*posio.PosReader

	checkpoint atomic.Uint64
}

func newReaderPool(dir string, bufSize int) *readerPool {
	return &readerPool{
		dir:     dir,
		bufSize: bufSize,
		readers: make(map[uint64]*posio.PosReader),
	}
}

// get returns the cached reader for id, opening it if this is the first
// request for that file.
func (p *readerPool) get(id uint64) (*posio.PosReader, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if r, ok := p.readers[id]; ok {
		return r, nil
	}
	r, err := logdir.OpenLogReader(p.dir, id, p.bufSize)
	if err != nil {
		return nil, fmt.Errorf("engine: open reader for log %d: %w", id, err)
	}
	p.readers[id] = r
	return r, nil
}

// publishCheckpoint records the file id below which compaction has rewound
// every live record into a newer file. It does not itself touch the cache:
// callers evict their own stale entries the next time they pass through
// evictStale.
func (p *readerPool) publishCheckpoint(id uint64) {
	p.checkpoint.Store(id)
}

// evictStale drops and closes every cached reader whose file id has fallen
// below the current checkpoint. Readers are collected under p.mu but closed
// outside it: PosReader.Close blocks on its own mutex until any read it is
// mid-flight for finishes, so this never tears down a descriptor a
// concurrent Get is actively reading through, and never needs to hold the
// pool lock for the duration of a (possibly slow) close.
func (p *readerPool) evictStale() {
	cp := p.checkpoint.Load()

	p.mu.Lock()
	var stale []*posio.PosReader
	for id, r := range p.readers {
		if id < cp {
			stale = append(stale, r)
			delete(p.readers, id)
		}
	}
	p.mu.Unlock()

	for _, r := range stale {
		_ = r.Close()
	}
}

// closeAll closes every cached reader.
func (p *readerPool) closeAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for id, r := range p.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.readers, id)
	}
	return firstErr
}
