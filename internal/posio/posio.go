// Package posio provides positioned buffered I/O wrappers around an *os.File:
// a reader and a writer that each track the absolute byte offset of the
// next byte they will read or have just written. The engine uses these to
// record a record's start offset before a write and recover its end offset
// after a flush, and to seek readers directly to a keydir-pointed record.
package posio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
)

// PosWriter wraps a buffered writer over a file, tracking the absolute file
// offset of the next byte that will be written.
type PosWriter struct {
	file *os.File
	buf  *bufio.Writer
	pos  int64
}

// NewPosWriter wraps file, whose current offset (via Seek(0, io.SeekCurrent))
// becomes the writer's initial position. bufSize configures the underlying
// bufio.Writer's buffer.
func NewPosWriter(file *os.File, bufSize int) (*PosWriter, error) {
	pos, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("posio: seek current: %w", err)
	}
	return &PosWriter{
		file: file,
		buf:  bufio.NewWriterSize(file, bufSize),
		pos:  pos,
	}, nil
}

// Pos returns the absolute offset of the next byte Write will produce.
func (w *PosWriter) Pos() int64 {
	return w.pos
}

// Write implements io.Writer, advancing Pos by the number of bytes written.
func (w *PosWriter) Write(p []byte) (int, error) {
	n, err := w.buf.Write(p)
	w.pos += int64(n)
	if err != nil {
		return n, fmt.Errorf("posio: write: %w", err)
	}
	return n, nil
}

// Flush drains the user-space buffer to the OS.
func (w *PosWriter) Flush() error {
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("posio: flush: %w", err)
	}
	return nil
}

// Sync flushes the buffer and fsyncs the underlying file.
func (w *PosWriter) Sync() error {
	if err := w.Flush(); err != nil {
		return err
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("posio: sync: %w", err)
	}
	return nil
}

// File returns the underlying *os.File, for callers (e.g. Sync scheduling)
// that need direct access.
func (w *PosWriter) File() *os.File {
	return w.file
}

// Close flushes and closes the underlying file.
func (w *PosWriter) Close() error {
	if err := w.Flush(); err != nil {
		_ = w.file.Close()
		return err
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("posio: close: %w", err)
	}
	return nil
}

// PosReader wraps a buffered reader over a file, tracking the absolute file
// offset of the next byte Read will consume, and supporting Seek by
// discarding the bufio buffer and resynchronizing with the OS file offset.
//
// A single PosReader may be cached and shared across concurrent callers
// (the engine's reader pool hands the same *PosReader to every goroutine
// that touches a given log file id), so Seek followed by Read must happen
// as one atomic step: mu serializes that pair so two concurrent ReadFull
// calls on the same reader can never interleave their seeks.
type PosReader struct {
	file    *os.File
	buf     *bufio.Reader
	pos     int64
	bufSize int

	mu sync.Mutex
}

// NewPosReader wraps file, whose current offset becomes the reader's
// initial position.
func NewPosReader(file *os.File, bufSize int) (*PosReader, error) {
	pos, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("posio: seek current: %w", err)
	}
	return &PosReader{
		file:    file,
		buf:     bufio.NewReaderSize(file, bufSize),
		pos:     pos,
		bufSize: bufSize,
	}, nil
}

// Pos returns the absolute offset of the next byte Read will consume.
func (r *PosReader) Pos() int64 {
	return r.pos
}

// Read implements io.Reader, advancing Pos by the number of bytes read.
func (r *PosReader) Read(p []byte) (int, error) {
	n, err := r.buf.Read(p)
	r.pos += int64(n)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("posio: read: %w", err)
	}
	return n, err
}

// Seek moves the reader to offset (relative to whence, per io.Seeker) and
// discards any buffered bytes, since they may now be stale relative to the
// new position.
func (r *PosReader) Seek(offset int64, whence int) (int64, error) {
	pos, err := r.file.Seek(offset, whence)
	if err != nil {
		return 0, fmt.Errorf("posio: seek: %w", err)
	}
	r.buf.Reset(r.file)
	r.pos = pos
	return pos, nil
}

// ReadFull reads exactly len(p) bytes, seeking to offset first. The seek and
// read happen under r.mu as one atomic step, since this reader may be the
// same cached instance handed to several concurrent engine.Get callers: two
// interleaved seeks on an unguarded reader would silently read the wrong
// bytes instead of failing loudly.
func (r *PosReader) ReadFull(offset int64, p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	if _, err := io.ReadFull(r, p); err != nil {
		return fmt.Errorf("posio: read full at %d: %w", offset, err)
	}
	return nil
}

// Close closes the underlying file. It takes r.mu so a close racing with an
// in-flight ReadFull waits for that read to finish instead of invalidating
// the descriptor mid-read.
func (r *PosReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("posio: close: %w", err)
	}
	return nil
}
