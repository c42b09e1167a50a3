package toolexec

import (
	"context"
	"fmt"
	"strings"

	domaintool "github.com/agentcore/core/internal/domain/tool"
	"go.uber.org/zap"
)

const mcpToolNamePrefix = "mcp_"

// MCPDispatchFunc calls a tool on a named MCP server connection. The
// caller is responsible for reporting whether that connection is ready;
// a not-ready connection must error rather than block (spec §4.4).
type MCPDispatchFunc func(ctx context.Context, server, tool string, args map[string]interface{}) (string, error)

// splitMCPToolName strips the mcp_ prefix and splits on the first
// remaining underscore into (server, tool). Multi-word server names are
// resolved against the first underscore after the prefix, accepting the
// documented ambiguity for servers whose own name contains an underscore.
func splitMCPToolName(name string) (server, tool string, ok bool) {
	if !strings.HasPrefix(name, mcpToolNamePrefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(name, mcpToolNamePrefix)
	idx := strings.Index(rest, "_")
	if idx < 0 {
		return rest, "", true
	}
	return rest[:idx], rest[idx+1:], true
}

// MCPProxyTool adapts a single mcp_{server}_{tool} invocation to a
// dispatch function, so every MCP tool surfaces through the same Tool
// interface as the built-ins.
type MCPProxyTool struct {
	name        string
	description string
	schema      map[string]interface{}
	server      string
	tool        string
	dispatch    MCPDispatchFunc
	logger      *zap.Logger
}

func NewMCPProxyTool(name, description string, schema map[string]interface{}, dispatch MCPDispatchFunc, logger *zap.Logger) (*MCPProxyTool, error) {
	server, tool, ok := splitMCPToolName(name)
	if !ok {
		return nil, fmt.Errorf("not an mcp tool name: %s", name)
	}
	return &MCPProxyTool{
		name:        name,
		description: description,
		schema:      schema,
		server:      server,
		tool:        tool,
		dispatch:    dispatch,
		logger:      logger,
	}, nil
}

func (t *MCPProxyTool) Name() string         { return t.name }
func (t *MCPProxyTool) Kind() domaintool.Kind { return domaintool.KindExecute }
func (t *MCPProxyTool) Description() string  { return t.description }
func (t *MCPProxyTool) Schema() map[string]interface{} {
	if t.schema != nil {
		return t.schema
	}
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

func (t *MCPProxyTool) Execute(ctx context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	if t.dispatch == nil {
		msg := fmt.Sprintf("mcp server %s is not configured", t.server)
		return &domaintool.Result{Success: false, Error: msg, Output: msg}, nil
	}
	out, err := t.dispatch(ctx, t.server, t.tool, args)
	if err != nil {
		msg := err.Error()
		return &domaintool.Result{Success: false, Error: msg, Output: msg}, nil
	}
	return &domaintool.Result{Success: true, Output: out}, nil
}
