package client

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aethercask/aethercask/internal/config"
	"github.com/aethercask/aethercask/internal/engine"
	"github.com/aethercask/aethercask/internal/server"
	"github.com/aethercask/aethercask/internal/threadpool"
)

func startTestServer(t *testing.T) string {
	t.Helper()

	cfg := &config.Config{COMPACT_THRESHOLD: 1 << 20, WRITE_BUFFER_SIZE: 256}
	eng, err := engine.Open(t.TempDir(), cfg)
	if err != nil {
		t.Fatalf("engine.Open() error = %v", err)
	}
	t.Cleanup(func() { eng.Close() })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	srv := server.New(eng, threadpool.NewNaive())
	go srv.Serve(ln)

	return ln.Addr().String()
}

func TestClientSetGetRemove(t *testing.T) {
	addr := startTestServer(t)

	c, err := Connect(addr)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set("key", "value"))

	got, err := c.Get("key")
	require.NoError(t, err)
	require.Equal(t, "value", got)

	require.NoError(t, c.Remove("key"))

	_, err = c.Get("key")
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestClientRemoveMissingKeyReturnsErrKeyNotFound(t *testing.T) {
	addr := startTestServer(t)

	c, err := Connect(addr)
	require.NoError(t, err)
	defer c.Close()

	require.ErrorIs(t, c.Remove("missing"), ErrKeyNotFound)
}
