// Package mcp implements the MCPClient Fabric (spec §4.4): one connection
// per configured MCP server, communicating over newline-delimited JSON-RPC
// 2.0, exposing each server's discovered tools back to the ToolExecutor.
// Transport and lifecycle are adapted from the teacher's sideload package,
// which already speaks newline-delimited JSON-RPC over a child process's
// stdio — the method vocabulary here is MCP's (initialize, tools/list,
// tools/call) instead of the teacher's own (tool/execute, provider/generate).
package mcp

import (
	"encoding/json"
	"fmt"
)

const jsonRPCVersion = "2.0"

// Request is a JSON-RPC 2.0 request. Absent ID marks a notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("mcp error %d: %s", e.Code, e.Message)
}

func newRequest(id interface{}, method string, params interface{}) (*Request, error) {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		raw = b
	}
	return &Request{JSONRPC: jsonRPCVersion, ID: id, Method: method, Params: raw}, nil
}

func newNotification(method string, params interface{}) (*Request, error) {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		raw = b
	}
	return &Request{JSONRPC: jsonRPCVersion, Method: method, Params: raw}, nil
}

func (r *Response) parseResult(v interface{}) error {
	if r.Result == nil {
		return nil
	}
	return json.Unmarshal(r.Result, v)
}

// --- MCP method names ---

const (
	methodInitialize              = "initialize"
	methodNotificationsInitialized = "notifications/initialized"
	methodToolsList                = "tools/list"
	methodToolsCall                = "tools/call"
)

// InitializeParams is sent Core -> server on connect.
type InitializeParams struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ClientInfo      ClientInfo             `json:"clientInfo"`
}

// ClientInfo identifies the calling client to the server.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the server's reply to initialize.
type InitializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ServerInfo      ClientInfo             `json:"serverInfo"`
}

// ToolSpec is one entry of a tools/list result.
type ToolSpec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// toolsListResult wraps the tools/list response envelope.
type toolsListResult struct {
	Tools []ToolSpec `json:"tools"`
}

// toolsCallParams is sent for a tools/call request.
type toolsCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ContentBlock is one element of a tools/call result's content array.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// toolsCallResult wraps the tools/call response envelope.
type toolsCallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}
