// Package client implements a blocking TCP client for the wire protocol:
// one request and one response per call, all calls sharing the single
// connection opened by Connect until Close.
package client

import (
	"errors"
	"fmt"
	"net"

	"github.com/aethercask/aethercask/internal/engine"
	"github.com/aethercask/aethercask/internal/protocol"
)

// ErrKeyNotFound is returned by Get when the key does not exist.
var ErrKeyNotFound = errors.New("client: key not found")

// Client is a connection to a running server.
type Client struct {
	conn net.Conn
	dec  *protocol.ResponseDecoder
}

// Connect dials addr and returns a Client ready to issue requests.
func Connect(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: connect %s: %w", addr, err)
	}
	return &Client{conn: conn, dec: protocol.NewResponseDecoder(conn)}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) roundTrip(req protocol.Request) (protocol.Response, error) {
	if err := protocol.EncodeRequest(c.conn, req); err != nil {
		return protocol.Response{}, err
	}
	resp, err := c.dec.Next()
	if err != nil {
		return protocol.Response{}, fmt.Errorf("client: %w", err)
	}
	return resp, nil
}

// Get returns the value for key, or ErrKeyNotFound if it does not exist.
func (c *Client) Get(key string) (string, error) {
	resp, err := c.roundTrip(protocol.Get(key))
	if err != nil {
		return "", err
	}
	if !resp.Ok {
		return "", fmt.Errorf("client: %s", resp.Err)
	}
	if !resp.Found {
		return "", ErrKeyNotFound
	}
	return resp.Value, nil
}

// Set sets key to value.
func (c *Client) Set(key, value string) error {
	resp, err := c.roundTrip(protocol.Set(key, value))
	if err != nil {
		return err
	}
	if !resp.Ok {
		return fmt.Errorf("client: %s", resp.Err)
	}
	return nil
}

// Remove deletes key, returning ErrKeyNotFound if it does not exist.
func (c *Client) Remove(key string) error {
	resp, err := c.roundTrip(protocol.Remove(key))
	if err != nil {
		return err
	}
	if !resp.Ok {
		if resp.Err == engine.ErrKeyNotFound.Error() {
			return ErrKeyNotFound
		}
		return fmt.Errorf("client: %s", resp.Err)
	}
	return nil
}
