package engine

import (
	"fmt"

	"github.com/aethercask/aethercask/internal/keydir"
	"github.com/aethercask/aethercask/internal/logdir"
	"github.com/aethercask/aethercask/internal/record"
)

// compact rewrites every live record into a fresh log file, repoints the
// keydir at the new locations, and retires every older file. Callers must
// hold writeMu: compaction reads the keydir's current snapshot and the
// engine must not accept new writes while that snapshot is taken and
// copied, or a write landing in an old file between the snapshot and the
// retirement of that file would be silently lost.
func (e *KVEngine) compact() error {
	staleIDs, err := logdir.Scan(e.dir)
	if err != nil {
		return fmt.Errorf("engine: compact: %w", err)
	}

	compactID := e.activeID + 1
	newActiveID := e.activeID + 2

	compactWriter, err := logdir.NewLog(e.dir, compactID, bufSize(e.cfg))
	if err != nil {
		return fmt.Errorf("engine: compact: %w", err)
	}

	type liveKey struct {
		key   string
		entry keydir.Entry
	}
	var live []liveKey
	e.kd.Range(func(key string, entry keydir.Entry) bool {
		live = append(live, liveKey{key, entry})
		return true
	})

	rewritten := make(map[string]keydir.Entry, len(live))
	for _, lk := range live {
		reader, err := e.readers.get(lk.entry.FileID)
		if err != nil {
			_ = compactWriter.Close()
			return fmt.Errorf("engine: compact: %w", err)
		}

		buf := make([]byte, lk.entry.Length)
		if err := reader.ReadFull(lk.entry.Offset, buf); err != nil {
			_ = compactWriter.Close()
			return fmt.Errorf("engine: compact: %w", err)
		}
		cmd, err := record.Decode(buf)
		if err != nil {
			_ = compactWriter.Close()
			return fmt.Errorf("engine: compact: %w", err)
		}

		offset := compactWriter.Pos()
		if err := record.Encode(compactWriter, cmd); err != nil {
			_ = compactWriter.Close()
			return fmt.Errorf("engine: compact: %w", err)
		}
		length := uint64(compactWriter.Pos() - offset)
		rewritten[lk.key] = keydir.Entry{FileID: compactID, Offset: offset, Length: length}
	}

	if err := compactWriter.Close(); err != nil {
		return fmt.Errorf("engine: compact: %w", err)
	}

	// Publish the rewritten locations before tearing down the old files:
	// any Get racing with compaction either sees the old entry and reads
	// the old (still-open, or soon-to-be-retried) file, or the new one.
	for key, entry := range rewritten {
		e.kd.Set(key, entry)
	}

	if err := e.writer.Close(); err != nil {
		return fmt.Errorf("engine: compact: %w", err)
	}

	// Publish the checkpoint only after every live key has a new home: a
	// Get that observes the bump is guaranteed a fresh keydir lookup already
	// reflects it. The pool itself evicts and closes its stale handles
	// lazily, on its own next call (engine.Get's evictStale), rather than
	// having the compactor reach in and close a reader a concurrent Get
	// might be mid-read through.
	e.readers.publishCheckpoint(compactID)

	for _, id := range staleIDs {
		if id == compactID {
			continue
		}
		if err := logdir.Remove(e.dir, id); err != nil {
			return fmt.Errorf("engine: compact: %w", err)
		}
	}

	newWriter, err := logdir.NewLog(e.dir, newActiveID, bufSize(e.cfg))
	if err != nil {
		return fmt.Errorf("engine: compact: %w", err)
	}

	e.writer = newWriter
	e.activeID = newActiveID
	e.deadBytes = 0
	return nil
}
