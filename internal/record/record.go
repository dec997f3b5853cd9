// Package record implements the self-delimiting log-record codec: the
// on-disk representation of a single Bitcask mutation (a Set or a Remove),
// written back-to-back with no separators, and a streaming decoder that
// recovers both the record and the absolute offset just past it.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Kind distinguishes the two log record variants.
type Kind uint8

const (
	// KindSet is a Set{Key,Value} record.
	KindSet Kind = iota
	// KindRemove is a Remove{Key} record.
	KindRemove
)

// Cmd is the tagged union of log record variants. Only the fields relevant
// to Kind are meaningful: KindSet populates Key and Value; KindRemove
// populates only Key.
type Cmd struct {
	Kind  Kind
	Key   string
	Value string
}

// Set builds a Set record.
func Set(key, value string) Cmd {
	return Cmd{Kind: KindSet, Key: key, Value: value}
}

// Remove builds a Remove record.
func Remove(key string) Cmd {
	return Cmd{Kind: KindRemove, Key: key}
}

// envelope is the on-the-wire JSON shape of a Cmd: an internally-tagged
// object, the Go analogue of the original Rust implementation's
// serde-derived enum encoding.
type envelope struct {
	Type  string `json:"type"`
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

const (
	typeSet    = "set"
	typeRemove = "remove"
)

// ErrCodec wraps any failure to encode or decode a record.
var ErrCodec = errors.New("record: codec error")

// Encode writes the self-delimiting JSON encoding of cmd to w. Concatenating
// successive Encode calls on the same writer produces a stream that Decoder
// reproduces in order.
func Encode(w io.Writer, cmd Cmd) error {
	env := envelope{Key: cmd.Key}
	switch cmd.Kind {
	case KindSet:
		env.Type = typeSet
		env.Value = cmd.Value
	case KindRemove:
		env.Type = typeRemove
	default:
		return fmt.Errorf("%w: unknown record kind %d", ErrCodec, cmd.Kind)
	}

	if err := json.NewEncoder(w).Encode(&env); err != nil {
		return fmt.Errorf("%w: %v", ErrCodec, err)
	}
	return nil
}

// Decode parses exactly one record from data. Used by the reader path, where
// a keydir entry's (offset, length) span is read back as a single byte slice.
func Decode(data []byte) (Cmd, error) {
	dec := NewDecoder(&bytesReader{data})
	cmd, err := dec.Next()
	if err != nil {
		return Cmd{}, err
	}
	return cmd, nil
}

// bytesReader is a minimal io.Reader over a fixed byte slice, avoiding a
// bytes.Reader import purely for Decode's convenience wrapper.
type bytesReader struct{ b []byte }

func (r *bytesReader) Read(p []byte) (int, error) {
	if len(r.b) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.b)
	r.b = r.b[n:]
	return n, nil
}

// Decoder streams records off a reader, tracking the absolute byte offset
// just past the most recently decoded record.
type Decoder struct {
	jd *json.Decoder
}

// NewDecoder wraps r for streaming record decode.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{jd: json.NewDecoder(r)}
}

// Next decodes the next record in the stream. It returns io.EOF on a clean
// end of stream (no bytes remain), and a wrapped ErrCodec on any parse
// failure, including a truncated trailing record.
func (d *Decoder) Next() (Cmd, error) {
	var env envelope
	if err := d.jd.Decode(&env); err != nil {
		if err == io.EOF {
			return Cmd{}, io.EOF
		}
		return Cmd{}, fmt.Errorf("%w: %v", ErrCodec, err)
	}

	switch env.Type {
	case typeSet:
		return Cmd{Kind: KindSet, Key: env.Key, Value: env.Value}, nil
	case typeRemove:
		return Cmd{Kind: KindRemove, Key: env.Key}, nil
	default:
		return Cmd{}, fmt.Errorf("%w: unknown record type %q", ErrCodec, env.Type)
	}
}

// Offset returns the absolute byte offset of the reader just past the last
// record returned by Next, including the newline Encode writes after it,
// mirroring the original Rust implementation's Deserializer::byte_offset().
// The newline is counted only once the decoder has read it from the
// underlying reader; otherwise the offset stops at the record's closing
// brace and the newline becomes the first byte of the next span, which
// Decode skips as whitespace.
func (d *Decoder) Offset() int64 {
	// json.Decoder stops at the closing brace; step over the newline if it
	// is already buffered.
	off := d.jd.InputOffset()
	var b [1]byte
	if n, _ := d.jd.Buffered().Read(b[:]); n == 1 && b[0] == '\n' {
		off++
	}
	return off
}
