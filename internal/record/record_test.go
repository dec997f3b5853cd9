package record

import (
	"bytes"
	"io"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		cmd  Cmd
	}{
		{"set", Set("key", "value")},
		{"set empty value", Set("key", "")},
		{"remove", Remove("key")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, tt.cmd); err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			got, err := Decode(buf.Bytes())
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got != tt.cmd {
				t.Errorf("Decode() = %+v, want %+v", got, tt.cmd)
			}
		})
	}
}

func TestDecoderStreamsConcatenatedRecords(t *testing.T) {
	var buf bytes.Buffer
	want := []Cmd{
		Set("a", "1"),
		Set("b", "2"),
		Remove("a"),
	}
	for _, cmd := range want {
		if err := Encode(&buf, cmd); err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
	}

	dec := NewDecoder(&buf)
	for i, w := range want {
		got, err := dec.Next()
		if err != nil {
			t.Fatalf("Next() #%d error = %v", i, err)
		}
		if got != w {
			t.Errorf("Next() #%d = %+v, want %+v", i, got, w)
		}
	}

	if _, err := dec.Next(); err != io.EOF {
		t.Errorf("Next() at end = %v, want io.EOF", err)
	}
}

func TestDecoderOffsetTracksRecordBoundaries(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, Set("a", "1")); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	firstLen := buf.Len()
	if err := Encode(&buf, Set("b", "2")); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	dec := NewDecoder(&buf)
	if _, err := dec.Next(); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if got := dec.Offset(); got != int64(firstLen) {
		t.Errorf("Offset() = %d, want %d", got, firstLen)
	}
}

func TestDecodeTruncatedRecordFails(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, Set("key", "value")); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	truncated := buf.Bytes()[:buf.Len()-3]
	if _, err := Decode(truncated); err == nil {
		t.Error("Decode() on truncated record should fail")
	}
}

func TestDecoderTruncatedTrailingRecordIsFatal(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, Set("key", "value")); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	buf.Truncate(buf.Len() - 3)

	dec := NewDecoder(&buf)
	if _, err := dec.Next(); err == nil || err == io.EOF {
		t.Errorf("Next() on truncated trailing record = %v, want a non-EOF error", err)
	}
}

func TestDecodeUnknownKindFails(t *testing.T) {
	if _, err := Decode([]byte(`{"type":"bogus","key":"k"}` + "\n")); err == nil {
		t.Error("Decode() with unknown type should fail")
	}
}
