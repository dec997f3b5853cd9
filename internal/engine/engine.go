// Package engine implements the Bitcask-style storage engine: an
// append-only log of records plus an in-memory index (the keydir) mapping
// each live key to its most recent record's location, with background-free
// inline compaction once dead bytes cross a configured threshold.
package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/aethercask/aethercask/internal/config"
	"github.com/aethercask/aethercask/internal/keydir"
	"github.com/aethercask/aethercask/internal/logdir"
	"github.com/aethercask/aethercask/internal/posio"
	"github.com/aethercask/aethercask/internal/record"
)

// EngineTag identifies this engine implementation in a store directory's
// engine tag file. A store opened by a different engine implementation
// refuses to start, per Open's engine-mismatch check.
const EngineTag = "kvs"

// Engine is the storage facade the server and any embedding caller use.
// A second engine implementation (e.g. backed by a third-party embedded
// store) could satisfy this interface without touching the wire protocol
// or server code, but no such implementation is part of this module.
type Engine interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
	Close() error
}

// KVEngine is the default Engine implementation: a single active append-only
// log file per store directory, plus however many immutable older log files
// compaction has not yet reclaimed.
type KVEngine struct {
	dir string
	cfg *config.Config

	kd      *keydir.KeyDir
	readers *readerPool

	writeMu   sync.Mutex
	writer    *posio.PosWriter
	activeID  uint64
	deadBytes uint64
}

var _ Engine = (*KVEngine)(nil)

func bufSize(cfg *config.Config) int {
	if cfg.WRITE_BUFFER_SIZE == 0 {
		return 4096
	}
	return int(cfg.WRITE_BUFFER_SIZE)
}

// Open opens (creating if necessary) the store directory dir, replaying its
// log files to rebuild the keydir before returning.
func Open(dir string, cfg *config.Config) (*KVEngine, error) {
	tag, ok, err := logdir.ReadEngineTag(dir)
	if err != nil {
		return nil, err
	}
	if ok {
		if tag != EngineTag {
			return nil, fmt.Errorf("%w: store tagged %q, opening as %q", ErrEngineMismatch, tag, EngineTag)
		}
	} else if err := logdir.WriteEngineTag(dir, EngineTag); err != nil {
		return nil, err
	}

	ids, err := logdir.Scan(dir)
	if err != nil {
		return nil, err
	}

	kd := keydir.New()
	deadBytes, err := replay(dir, ids, kd)
	if err != nil {
		return nil, err
	}

	activeID := uint64(1)
	if len(ids) > 0 {
		activeID = ids[len(ids)-1] + 1
	}

	writer, err := logdir.NewLog(dir, activeID, bufSize(cfg))
	if err != nil {
		return nil, err
	}

	return &KVEngine{
		dir:       dir,
		cfg:       cfg,
		kd:        kd,
		readers:   newReaderPool(dir, bufSize(cfg)),
		writer:    writer,
		activeID:  activeID,
		deadBytes: deadBytes,
	}, nil
}

// Get returns the current value for key. The bool is false, with a nil
// error, when the key does not exist.
func (e *KVEngine) Get(key string) (string, bool, error) {
	// Honor the checkpoint before ever consulting the keydir: a stale
	// cached reader left over from a compaction gets dropped here, never
	// forced shut by the compactor itself mid-read.
	e.readers.evictStale()

	entry, ok := e.kd.Get(key)
	if !ok {
		return "", false, nil
	}

	value, err := e.readEntry(entry)
	if err != nil && isRetiredLogFile(err) {
		// A compaction retired entry.FileID between our keydir lookup and
		// this read. Compaction always finishes repointing every live key
		// before it ever removes a file, so a fresh lookup now is
		// guaranteed to land on this record's new home rather than the
		// file that just disappeared.
		entry, ok = e.kd.Get(key)
		if !ok {
			return "", false, nil
		}
		value, err = e.readEntry(entry)
	}
	if err != nil {
		return "", false, fmt.Errorf("engine: get %q: %w", key, err)
	}
	return value, true, nil
}

// readEntry reads and decodes the record entry points at, failing with
// ErrCommandNotSupported if it is not a Set: the keydir invariant is that
// every entry points at the latest Set for its key, so anything else means
// the keydir or the log has become inconsistent.
func (e *KVEngine) readEntry(entry keydir.Entry) (string, error) {
	reader, err := e.readers.get(entry.FileID)
	if err != nil {
		return "", err
	}

	buf := make([]byte, entry.Length)
	if err := reader.ReadFull(entry.Offset, buf); err != nil {
		return "", err
	}

	cmd, err := record.Decode(buf)
	if err != nil {
		return "", err
	}
	if cmd.Kind != record.KindSet {
		return "", ErrCommandNotSupported
	}
	return cmd.Value, nil
}

// isRetiredLogFile reports whether err is the result of trying to open or
// read a log file id that a concurrent compaction has already unlinked.
func isRetiredLogFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// Set writes key=value, making it immediately visible to subsequent Get
// calls from any goroutine.
func (e *KVEngine) Set(key, value string) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	entry, err := e.append(record.Set(key, value))
	if err != nil {
		return fmt.Errorf("engine: set %q: %w", key, err)
	}

	if old, ok := e.kd.Get(key); ok {
		e.deadBytes += old.Length
	}
	e.kd.Set(key, entry)

	return e.maybeCompactLocked()
}

// Remove deletes key. It returns ErrKeyNotFound if the key does not exist.
func (e *KVEngine) Remove(key string) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	old, ok := e.kd.Get(key)
	if !ok {
		return ErrKeyNotFound
	}

	entry, err := e.append(record.Remove(key))
	if err != nil {
		return fmt.Errorf("engine: remove %q: %w", key, err)
	}

	e.kd.Delete(key)
	e.deadBytes += old.Length + entry.Length

	return e.maybeCompactLocked()
}

// append writes cmd to the active log file, flushing so it is immediately
// visible to reader file descriptors opened against the same path, and
// returns the keydir entry describing where it landed. Callers must hold
// writeMu.
func (e *KVEngine) append(cmd record.Cmd) (keydir.Entry, error) {
	offset := e.writer.Pos()
	if err := record.Encode(e.writer, cmd); err != nil {
		return keydir.Entry{}, err
	}
	if err := e.writer.Flush(); err != nil {
		return keydir.Entry{}, err
	}
	length := uint64(e.writer.Pos() - offset)
	return keydir.Entry{FileID: e.activeID, Offset: offset, Length: length}, nil
}

// maybeCompactLocked triggers compaction once accumulated dead bytes cross
// the configured threshold. Callers must hold writeMu.
func (e *KVEngine) maybeCompactLocked() error {
	if e.deadBytes < e.cfg.COMPACT_THRESHOLD {
		return nil
	}
	return e.compact()
}

// Close flushes and closes the active writer and every open reader.
func (e *KVEngine) Close() error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	var firstErr error
	if err := e.writer.Close(); err != nil {
		firstErr = err
	}
	if err := e.readers.closeAll(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// KeyDirLen reports the number of live keys, for diagnostics and tests.
func (e *KVEngine) KeyDirLen() int {
	return e.kd.Len()
}
