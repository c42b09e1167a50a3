package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Transport is the wire-level abstraction a connection speaks over —
// stdio by default, with room for an alternate transport (spec §11
// reserves a grpc-backed one) behind the same interface.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
	SendNotification(req *Request) error
	Close() error
}

// StdioTransport speaks newline-delimited JSON-RPC over a child process's
// stdin/stdout, matching MCP's stdio convention. Adapted from the
// teacher's sideload.StdioTransport — same read-loop/pending-map shape,
// retargeted to MCP's response correlation (no OnNotification hook, since
// the core driver never needs server-initiated MCP notifications).
type StdioTransport struct {
	stdin  io.WriteCloser
	stdout io.ReadCloser
	reader *bufio.Reader

	mu        sync.Mutex
	pending   map[interface{}]chan *Response
	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// NewStdioTransport starts the background read loop and returns
// immediately.
func NewStdioTransport(stdin io.WriteCloser, stdout io.ReadCloser) *StdioTransport {
	t := &StdioTransport{
		stdin:   stdin,
		stdout:  stdout,
		reader:  bufio.NewReaderSize(stdout, 64*1024),
		pending: make(map[interface{}]chan *Response),
		done:    make(chan struct{}),
	}
	go t.readLoop()
	return t
}

func (t *StdioTransport) readLoop() {
	defer close(t.done)

	for {
		line, err := t.reader.ReadBytes('\n')
		if len(line) > 0 {
			var resp Response
			if err := json.Unmarshal(line, &resp); err == nil && resp.ID != nil {
				key := normalizeID(resp.ID)
				t.mu.Lock()
				ch, ok := t.pending[key]
				if ok {
					delete(t.pending, key)
				}
				t.mu.Unlock()
				if ch != nil {
					ch <- &resp
				}
			}
		}
		if err != nil {
			return
		}
	}
}

// Send writes req and blocks until its matching response arrives, ctx is
// cancelled, or the transport closes.
func (t *StdioTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	ch := make(chan *Response, 1)
	key := normalizeID(req.ID)

	t.mu.Lock()
	t.pending[key] = ch
	t.mu.Unlock()

	if err := t.write(req); err != nil {
		t.mu.Lock()
		delete(t.pending, key)
		t.mu.Unlock()
		return nil, err
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		t.mu.Lock()
		delete(t.pending, key)
		t.mu.Unlock()
		return nil, ctx.Err()
	case <-t.done:
		return nil, fmt.Errorf("mcp transport closed")
	}
}

// SendNotification writes req without expecting a response.
func (t *StdioTransport) SendNotification(req *Request) error {
	return t.write(req)
}

// Close shuts down the transport's write side; the read loop exits once
// the child process closes its stdout.
func (t *StdioTransport) Close() error {
	var err error
	t.closeOnce.Do(func() { err = t.stdin.Close() })
	return err
}

func (t *StdioTransport) write(msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal mcp message: %w", err)
	}
	data = append(data, '\n')

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_, err = t.stdin.Write(data)
	return err
}

// normalizeID collapses float64-decoded JSON numbers to int so a request
// ID and its echoed response ID compare equal as map keys.
func normalizeID(id interface{}) interface{} {
	if f, ok := id.(float64); ok {
		return int(f)
	}
	return id
}
