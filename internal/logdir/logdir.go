// Package logdir manages the on-disk layout of a store directory: the
// numbered log files that hold records, and the engine tag file that
// records which engine implementation created the directory.
package logdir

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/aethercask/aethercask/internal/posio"
)

const logExt = ".log"

// EngineTagFile is the name of the marker file written into a store
// directory recording which engine created it.
const EngineTagFile = "engine"

// Scan returns the ids of every log file in dir, sorted ascending. A
// directory with no log files yet (a fresh store) returns an empty slice,
// not an error.
func Scan(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("logdir: scan %s: %w", dir, err)
	}

	var ids []uint64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, logExt) {
			continue
		}
		idStr := strings.TrimSuffix(name, logExt)
		id, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Path returns the file path for log file id within dir.
func Path(dir string, id uint64) string {
	return filepath.Join(dir, strconv.FormatUint(id, 10)+logExt)
}

// NewLog creates log file id within dir, truncating it if it already exists,
// and returns a positioned writer ready to append to it.
func NewLog(dir string, id uint64, bufSize int) (*posio.PosWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logdir: mkdir %s: %w", dir, err)
	}
	path := Path(dir, id)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logdir: open %s: %w", path, err)
	}
	w, err := posio.NewPosWriter(f, bufSize)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

// OpenLogReader opens log file id within dir for reading.
func OpenLogReader(dir string, id uint64, bufSize int) (*posio.PosReader, error) {
	path := Path(dir, id)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("logdir: open %s: %w", path, err)
	}
	r, err := posio.NewPosReader(f, bufSize)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return r, nil
}

// Remove unlinks log file id within dir. On POSIX systems this is safe to
// call while other file descriptors for the same file remain open and in
// use: the underlying inode and its data stay valid until every descriptor
// referencing it is closed, so a reader mid-scan of a file being compacted
// away keeps working.
func Remove(dir string, id uint64) error {
	if err := os.Remove(Path(dir, id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("logdir: remove: %w", err)
	}
	return nil
}

// ReadEngineTag reads the engine tag file from dir, if present. The second
// return value reports whether the file existed.
func ReadEngineTag(dir string) (string, bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, EngineTagFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("logdir: read engine tag: %w", err)
	}
	return strings.TrimSpace(string(data)), true, nil
}

// WriteEngineTag atomically writes tag as the engine tag file for dir, so a
// reader never observes a partially-written tag.
func WriteEngineTag(dir, tag string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("logdir: mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, EngineTagFile)
	if err := atomic.WriteFile(path, strings.NewReader(tag)); err != nil {
		return fmt.Errorf("logdir: write engine tag: %w", err)
	}
	return nil
}
