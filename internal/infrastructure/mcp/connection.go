package mcp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agentcore/core/internal/domain/agentcore"
	"go.uber.org/zap"
)

// State is a connection's lifecycle stage (spec §4.4).
type State int32

const (
	StateConnecting State = iota
	StateReady
	StateError
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const initializeTimeout = 10 * time.Second

const callTimeout = 30 * time.Second

// Connection is one MCP server process and its JSON-RPC transport,
// adapted from the teacher's sideload.Module lifecycle (state machine +
// atomic state + stdio pipes) and retargeted to MCP's handshake and tool
// surface instead of the teacher's own protocol.
type Connection struct {
	spec   agentcore.MCPServerSpec
	logger *zap.Logger

	transport Transport
	process   *os.Process

	state     atomic.Int32
	lastError error

	mu    sync.RWMutex
	tools []ToolSpec

	nextReqID atomic.Int64
}

// NewConnection constructs a not-yet-started connection for spec.
func NewConnection(spec agentcore.MCPServerSpec, logger *zap.Logger) *Connection {
	c := &Connection{
		spec:   spec,
		logger: logger.With(zap.String("mcp_server", spec.Name)),
	}
	c.state.Store(int32(StateConnecting))
	return c
}

// Name returns the configured server name.
func (c *Connection) Name() string { return c.spec.Name }

// State returns the connection's current lifecycle state.
func (c *Connection) State() State { return State(c.state.Load()) }

// Tools returns the last tools/list catalog discovered for this server.
func (c *Connection) Tools() []ToolSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ToolSpec, len(c.tools))
	copy(out, c.tools)
	return out
}

// Connect spawns the server process, performs the initialize handshake,
// sends notifications/initialized, and fetches the tool catalog. A
// connection that fails to start or initialize transitions to
// StateError and returns the error; it never panics.
func (c *Connection) Connect(ctx context.Context) error {
	cmd := exec.CommandContext(context.Background(), c.spec.Command, c.spec.Args...)
	cmd.Dir = ""
	env := os.Environ()
	for k, v := range c.spec.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = env

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return c.fail(fmt.Errorf("create stdin pipe: %w", err))
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return c.fail(fmt.Errorf("create stdout pipe: %w", err))
	}

	if err := cmd.Start(); err != nil {
		return c.fail(fmt.Errorf("start mcp server %s: %w", c.spec.Name, err))
	}
	c.process = cmd.Process
	c.transport = NewStdioTransport(stdin, stdout)

	go func() {
		_ = cmd.Wait()
		if c.State() != StateClosed {
			c.state.Store(int32(StateError))
		}
	}()

	if err := c.initialize(ctx); err != nil {
		return c.fail(err)
	}
	if err := c.listTools(ctx); err != nil {
		return c.fail(err)
	}

	c.state.Store(int32(StateReady))
	c.logger.Info("mcp server ready", zap.Int("tools", len(c.Tools())))
	return nil
}

func (c *Connection) fail(err error) error {
	c.state.Store(int32(StateError))
	c.lastError = err
	c.logger.Warn("mcp connect failed", zap.Error(err))
	return err
}

func (c *Connection) initialize(ctx context.Context) error {
	initCtx, cancel := context.WithTimeout(ctx, initializeTimeout)
	defer cancel()

	req, err := newRequest(c.nextID(), methodInitialize, InitializeParams{
		ProtocolVersion: "2024-11-05",
		Capabilities:    map[string]interface{}{},
		ClientInfo:      ClientInfo{Name: "agentcore", Version: "1"},
	})
	if err != nil {
		return err
	}

	resp, err := c.transport.Send(initCtx, req)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("initialize: %w", resp.Error)
	}
	var result InitializeResult
	if err := resp.parseResult(&result); err != nil {
		return fmt.Errorf("parse initialize result: %w", err)
	}

	notif, err := newNotification(methodNotificationsInitialized, nil)
	if err != nil {
		return err
	}
	return c.transport.SendNotification(notif)
}

func (c *Connection) listTools(ctx context.Context) error {
	req, err := newRequest(c.nextID(), methodToolsList, nil)
	if err != nil {
		return err
	}
	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		return fmt.Errorf("tools/list: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("tools/list: %w", resp.Error)
	}
	var result toolsListResult
	if err := resp.parseResult(&result); err != nil {
		return fmt.Errorf("parse tools/list result: %w", err)
	}

	c.mu.Lock()
	c.tools = result.Tools
	c.mu.Unlock()
	return nil
}

// CallTool invokes tool on this connection. Callers must check State()
// is StateReady first — CallTool itself still guards against a
// not-ready connection rather than blocking on one.
func (c *Connection) CallTool(ctx context.Context, tool string, args map[string]interface{}) (string, error) {
	if c.State() != StateReady {
		return "", fmt.Errorf("mcp server %s is not ready (state=%s)", c.spec.Name, c.State())
	}

	req, err := newRequest(c.nextID(), methodToolsCall, toolsCallParams{Name: tool, Arguments: args})
	if err != nil {
		return "", err
	}
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	resp, err := c.transport.Send(callCtx, req)
	if err != nil {
		return "", fmt.Errorf("tools/call %s: %w", tool, err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("tools/call %s: %w", tool, resp.Error)
	}

	var result toolsCallResult
	if err := resp.parseResult(&result); err != nil {
		return "", fmt.Errorf("parse tools/call result: %w", err)
	}

	var out string
	for _, block := range result.Content {
		out += block.Text
	}
	if result.IsError {
		return out, fmt.Errorf("tool %s reported an error: %s", tool, out)
	}
	return out, nil
}

// Shutdown closes the transport and marks the connection closed. Safe to
// call more than once.
func (c *Connection) Shutdown() error {
	if c.State() == StateClosed {
		return nil
	}
	c.state.Store(int32(StateClosed))
	if c.transport != nil {
		return c.transport.Close()
	}
	return nil
}

func (c *Connection) nextID() int64 {
	return c.nextReqID.Add(1)
}
