package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"
)

// fakeServer reads requests off one pipe and writes canned responses to
// another, standing in for a real MCP server process in tests.
func fakeServer(t *testing.T, serverIn io.Reader, serverOut io.Writer, handle func(req Request) Response) {
	t.Helper()
	go func() {
		reader := bufio.NewReader(serverIn)
		for {
			line, err := reader.ReadBytes('\n')
			if len(line) > 0 {
				var req Request
				if jsonErr := json.Unmarshal(line, &req); jsonErr == nil {
					if req.ID == nil {
						continue // notification, no response
					}
					resp := handle(req)
					b, _ := json.Marshal(resp)
					b = append(b, '\n')
					_, _ = serverOut.Write(b)
				}
			}
			if err != nil {
				return
			}
		}
	}()
}

func TestStdioTransport_SendReceivesMatchingResponse(t *testing.T) {
	clientReader, serverWriter := io.Pipe()
	serverReader, clientWriter := io.Pipe()

	fakeServer(t, serverReader, serverWriter, func(req Request) Response {
		return Response{JSONRPC: jsonRPCVersion, ID: req.ID, Result: json.RawMessage(`{"ok":true}`)}
	})

	transport := NewStdioTransport(clientWriter, clientReader)
	defer transport.Close()

	req, err := newRequest(1, "ping", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := transport.Send(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var result map[string]bool
	if err := resp.parseResult(&result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result["ok"] {
		t.Fatalf("expected ok=true, got %+v", result)
	}
}

func TestStdioTransport_ContextCancelReturnsError(t *testing.T) {
	clientReader, _ := io.Pipe() // server never responds
	_, clientWriter := io.Pipe()

	transport := NewStdioTransport(clientWriter, clientReader)
	defer transport.Close()

	req, _ := newRequest(1, "ping", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := transport.Send(ctx, req); err == nil {
		t.Fatal("expected context deadline error")
	}
}
