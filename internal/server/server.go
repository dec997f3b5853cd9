// Package server implements the TCP front end: an accept loop that hands
// each connection to a Pool, and a per-connection dispatch loop that
// decodes requests, applies them to an engine, and writes back responses.
// The dispatch loop's shape (read request, act, reply, repeat until the
// peer disconnects) is carried over from the teacher's interactive
// read-eval-reply loop, now driven by the wire protocol instead of a
// terminal.
package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/aethercask/aethercask/internal/engine"
	"github.com/aethercask/aethercask/internal/protocol"
	"github.com/aethercask/aethercask/internal/threadpool"
)

// Server accepts connections on a listener and dispatches each to an
// Engine using a Pool.
type Server struct {
	eng  engine.Engine
	pool threadpool.Pool
}

// New returns a Server that serves eng, dispatching each accepted
// connection through pool.
func New(eng engine.Engine, pool threadpool.Pool) *Server {
	return &Server{eng: eng, pool: pool}
}

// Serve accepts connections on ln until it returns an error (including
// when ln is closed by another goroutine, the normal shutdown path).
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("server: accept: %w", err)
		}
		s.pool.Spawn(func() {
			s.handle(conn)
		})
	}
}

// handle runs the per-connection dispatch loop until the peer disconnects
// or a codec/transport error makes the connection unusable.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	addr := conn.RemoteAddr()
	dec := protocol.NewRequestDecoder(conn)

	for {
		req, err := dec.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Error("server: decode failed, dropping connection", "addr", addr, "error", err)
			}
			return
		}

		resp := s.apply(req)
		if err := protocol.EncodeResponse(conn, resp); err != nil {
			slog.Error("server: encode failed, dropping connection", "addr", addr, "error", err)
			return
		}
	}
}

// apply runs req against the engine. An engine error never drops the
// connection: it becomes an Err response instead, and the loop continues.
func (s *Server) apply(req protocol.Request) protocol.Response {
	switch req.Kind {
	case protocol.KindGet:
		value, found, err := s.eng.Get(req.Key)
		if err != nil {
			return protocol.ErrResponse(err.Error())
		}
		return protocol.OkResponse(value, found)

	case protocol.KindSet:
		if err := s.eng.Set(req.Key, req.Value); err != nil {
			return protocol.ErrResponse(err.Error())
		}
		return protocol.OkResponse("", false)

	case protocol.KindRemove:
		if err := s.eng.Remove(req.Key); err != nil {
			return protocol.ErrResponse(err.Error())
		}
		return protocol.OkResponse("", false)

	default:
		return protocol.ErrResponse(fmt.Sprintf("unsupported request kind %d", req.Kind))
	}
}
