package protocol

import (
	"bytes"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestRequestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []Request{
		Get("key"),
		Set("key", "value"),
		Set("key", ""),
		Remove("key"),
	}

	for _, want := range tests {
		var buf bytes.Buffer
		require.NoError(t, EncodeRequest(&buf, want))

		got, err := NewRequestDecoder(&buf).Next()
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Next() mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestResponseEncodeDecodeRoundTrip(t *testing.T) {
	tests := []Response{
		OkResponse("value", true),
		OkResponse("", false),
		ErrResponse("key not found"),
	}

	for _, want := range tests {
		var buf bytes.Buffer
		require.NoError(t, EncodeResponse(&buf, want))

		got, err := NewResponseDecoder(&buf).Next()
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Next() mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestRequestDecoderStreamsSequentialRequests(t *testing.T) {
	var buf bytes.Buffer
	want := []Request{Set("a", "1"), Get("a"), Remove("a")}
	for _, req := range want {
		require.NoError(t, EncodeRequest(&buf, req))
	}

	dec := NewRequestDecoder(&buf)
	for i, w := range want {
		got, err := dec.Next()
		require.NoErrorf(t, err, "Next() #%d", i)
		if diff := cmp.Diff(w, got); diff != "" {
			t.Errorf("Next() #%d mismatch (-want +got):\n%s", i, diff)
		}
	}

	_, err := dec.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestRequestDecoderUnknownTypeFails(t *testing.T) {
	dec := NewRequestDecoder(bytes.NewBufferString(`{"type":"bogus","key":"k"}` + "\n"))
	_, err := dec.Next()
	require.Error(t, err)
}
