package mcp

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentcore/core/internal/domain/agentcore"
	"go.uber.org/zap"
)

// Fabric owns one Connection per configured MCP server and is the
// MCPClient Fabric's public surface (spec §4.4). It is handed to the
// ToolExecutor as a dispatch function, and the driver registers its
// ToolSpecs with the executor as mcp_{server}_{tool} proxy tools.
type Fabric struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	logger      *zap.Logger
}

func NewFabric(logger *zap.Logger) *Fabric {
	return &Fabric{connections: make(map[string]*Connection), logger: logger}
}

// Connect starts a connection for every enabled server in specs that
// isn't already connected. A server that fails to connect is recorded in
// StateError rather than omitted, so its failure is observable.
func (f *Fabric) Connect(ctx context.Context, specs []agentcore.MCPServerSpec) {
	for _, spec := range specs {
		if !spec.Enabled {
			continue
		}
		f.mu.RLock()
		_, exists := f.connections[spec.Name]
		f.mu.RUnlock()
		if exists {
			continue
		}

		conn := NewConnection(spec, f.logger)
		f.mu.Lock()
		f.connections[spec.Name] = conn
		f.mu.Unlock()

		if err := conn.Connect(ctx); err != nil {
			f.logger.Warn("mcp server failed to connect", zap.String("server", spec.Name), zap.Error(err))
		}
	}
}

// ToolSpecs returns every ready connection's discovered tools, named
// under the flat mcp_{server}_{tool} space the ToolExecutor expects.
func (f *Fabric) ToolSpecs() map[string]ToolSpec {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(map[string]ToolSpec)
	for name, conn := range f.connections {
		if conn.State() != StateReady {
			continue
		}
		for _, t := range conn.Tools() {
			out[fmt.Sprintf("mcp_%s_%s", name, t.Name)] = t
		}
	}
	return out
}

// Dispatch calls tool on server. It is the function value handed to the
// ToolExecutor's SetMCPDispatch — a server that isn't ready errors
// immediately rather than blocking.
func (f *Fabric) Dispatch(ctx context.Context, server, tool string, args map[string]interface{}) (string, error) {
	f.mu.RLock()
	conn, ok := f.connections[server]
	f.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("mcp server %s is not configured", server)
	}
	return conn.CallTool(ctx, tool, args)
}

// Shutdown closes every connection. Safe to call more than once.
func (f *Fabric) Shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, conn := range f.connections {
		if err := conn.Shutdown(); err != nil {
			f.logger.Warn("mcp shutdown error", zap.String("server", conn.Name()), zap.Error(err))
		}
	}
}
