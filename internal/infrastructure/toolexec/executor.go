// Package toolexec implements the ToolExecutor (spec §4.3): a fixed set of
// built-in tools plus MCP-proxied tools, all addressed through one flat
// name space and one uniform Execute surface. Built from scratch rather
// than adapted from the teacher's shell-delegating tool files, because the
// exact byte-level format invariants the built-ins must honor (line
// prefixes, single-occurrence edits, path containment) are easiest to
// guarantee with native os/filepath calls instead of shelling out.
package toolexec

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/agentcore/core/internal/domain/agentcore"
	domaintool "github.com/agentcore/core/internal/domain/tool"
	"github.com/agentcore/core/internal/infrastructure/sandbox"
	"go.uber.org/zap"
)

// Executor is the concrete ToolExecutor: a registry of built-ins seeded at
// construction, plus hot-swappable injection points for the externally
// supplied search worker, MCP dispatch, service manager, and skill source
// (spec §9 — these are injected function values, not compiled-in
// dependencies).
type Executor struct {
	mu       sync.RWMutex
	tools    map[string]domaintool.Tool
	root     string
	logger   *zap.Logger

	search  SearchFunc
	dispatch MCPDispatchFunc
	mcpDefs  map[string]mcpDef // name -> description/schema, registered via RegisterMCPTool
}

type mcpDef struct {
	description string
	schema      map[string]interface{}
}

// NewExecutor wires the fixed built-in set against root (the project root
// every path-taking tool is confined to) and sb (the sandbox run_terminal
// delegates to).
func NewExecutor(root string, sb *sandbox.ProcessSandbox, logger *zap.Logger) *Executor {
	e := &Executor{
		tools:   make(map[string]domaintool.Tool),
		root:    root,
		logger:  logger,
		mcpDefs: make(map[string]mcpDef),
	}

	e.register(NewReadFileTool(root, logger))
	e.register(NewWriteFileTool(root, logger))
	e.register(NewEditFileTool(root, logger))
	e.register(NewListDirTool(root, logger))
	if sb != nil {
		e.register(NewRunTerminalTool(sb, logger))
	}
	e.register(NewSearchFilesTool(root, nil, logger)) // SetSearchFunc wires the delegate later
	e.register(NewLoadSkillTool(nil, logger))          // SetSkillSource wires the delegate later

	return e
}

func (e *Executor) register(t domaintool.Tool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tools[t.Name()] = t
}

// SetSearchFunc wires the search-worker delegate for search_files.
func (e *Executor) SetSearchFunc(fn SearchFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.search = fn
	e.tools[agentcore.ToolSearchFiles] = NewSearchFilesTool(e.root, fn, e.logger)
}

// SetSkillSource wires the skill-registry delegate for load_skill.
func (e *Executor) SetSkillSource(src SkillSource) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tools[agentcore.ToolLoadSkill] = NewLoadSkillTool(src, e.logger)
}

// SetServiceManager wires start_service/check_service/stop_service.
func (e *Executor) SetServiceManager(mgr ServiceManager) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tools[agentcore.ToolStartService] = NewStartServiceTool(mgr, e.logger)
	e.tools[agentcore.ToolCheckService] = NewCheckServiceTool(mgr, e.logger)
	e.tools[agentcore.ToolStopService] = NewStopServiceTool(mgr, e.logger)
}

// SetMCPDispatch wires the MCPClient Fabric call path used by every
// mcp_{server}_{tool} proxy tool.
func (e *Executor) SetMCPDispatch(fn MCPDispatchFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dispatch = fn
	for name, def := range e.mcpDefs {
		proxy, err := NewMCPProxyTool(name, def.description, def.schema, fn, e.logger)
		if err != nil {
			continue
		}
		e.tools[name] = proxy
	}
}

// RegisterMCPTool exposes one tool discovered from an MCP server's
// tools/list response under the flat mcp_{server}_{tool} name space. Call
// this whenever the MCPClient Fabric reports a fresh tool catalog; calling
// it again with the same name replaces the prior definition.
func (e *Executor) RegisterMCPTool(name, description string, schema map[string]interface{}) error {
	proxy, err := NewMCPProxyTool(name, description, schema, e.dispatchLocked(), e.logger)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mcpDefs[name] = mcpDef{description: description, schema: schema}
	e.tools[name] = proxy
	return nil
}

// UnregisterMCPTools drops every proxy tool registered for server (called
// when a connection closes or is shut down).
func (e *Executor) UnregisterMCPTools(server string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for name := range e.mcpDefs {
		s, _, ok := splitMCPToolName(name)
		if ok && s == server {
			delete(e.mcpDefs, name)
			delete(e.tools, name)
		}
	}
}

func (e *Executor) dispatchLocked() MCPDispatchFunc {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dispatch
}

// Execute runs the named tool. A lookup miss or a tool-level failure is
// always returned as a Result with Success=false, never as a Go error —
// per spec §4.3, a tool never panics and never reaches the driver as an
// error value.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]interface{}) (*domaintool.Result, error) {
	e.mu.RLock()
	t, ok := e.tools[name]
	e.mu.RUnlock()
	if !ok {
		msg := fmt.Sprintf("unknown tool: %s", name)
		return &domaintool.Result{Success: false, Error: msg, Output: msg}, nil
	}
	res, err := t.Execute(ctx, args)
	if err != nil {
		msg := fmt.Sprintf("tool %s failed: %v", name, err)
		return &domaintool.Result{Success: false, Error: msg, Output: msg}, nil
	}
	return res, nil
}

// ToolDefinitions returns the current callable set, sorted by name for
// deterministic prompts.
func (e *Executor) ToolDefinitions() []agentcore.ToolDefinition {
	e.mu.RLock()
	defer e.mu.RUnlock()

	defs := make([]agentcore.ToolDefinition, 0, len(e.tools))
	for _, t := range e.tools {
		defs = append(defs, agentcore.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Kind returns the Kind of a registered tool; the zero value and false
// indicate the tool is unknown.
func (e *Executor) Kind(name string) (domaintool.Kind, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.tools[name]
	if !ok {
		return "", false
	}
	return t.Kind(), true
}
