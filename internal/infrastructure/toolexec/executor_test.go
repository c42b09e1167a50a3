package toolexec

import (
	"context"
	"errors"
	"testing"

	"github.com/agentcore/core/internal/domain/agentcore"
	"go.uber.org/zap"
)

func TestExecutor_UnknownToolReturnsFailureResultNotError(t *testing.T) {
	e := NewExecutor(t.TempDir(), nil, zap.NewNop())
	res, err := e.Execute(context.Background(), "no_such_tool", nil)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if res.Success {
		t.Fatal("expected failure result for unknown tool")
	}
}

func TestExecutor_MCPDispatch_StripsPrefixAndSplitsServer(t *testing.T) {
	var gotServer, gotTool string
	e := NewExecutor(t.TempDir(), nil, zap.NewNop())
	e.SetMCPDispatch(func(_ context.Context, server, tool string, _ map[string]interface{}) (string, error) {
		gotServer, gotTool = server, tool
		return "ok", nil
	})
	if err := e.RegisterMCPTool("mcp_github_create_issue", "create an issue", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := e.Execute(context.Background(), "mcp_github_create_issue", map[string]interface{}{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.Output != "ok" {
		t.Fatalf("got %+v", res)
	}
	if gotServer != "github" || gotTool != "create_issue" {
		t.Fatalf("got server=%q tool=%q", gotServer, gotTool)
	}
}

func TestExecutor_MCPDispatch_NotReadyErrorsWithoutBlocking(t *testing.T) {
	e := NewExecutor(t.TempDir(), nil, zap.NewNop())
	e.SetMCPDispatch(func(_ context.Context, _, _ string, _ map[string]interface{}) (string, error) {
		return "", errors.New("server not ready")
	})
	if err := e.RegisterMCPTool("mcp_slack_post", "post a message", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := e.Execute(context.Background(), "mcp_slack_post", map[string]interface{}{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure result when server is not ready")
	}
}

func TestExecutor_ToolDefinitions_SortedAndIncludesBuiltins(t *testing.T) {
	e := NewExecutor(t.TempDir(), nil, zap.NewNop())
	defs := e.ToolDefinitions()

	names := make(map[string]bool)
	for i, d := range defs {
		names[d.Name] = true
		if i > 0 && defs[i-1].Name > d.Name {
			t.Fatalf("definitions not sorted: %q before %q", defs[i-1].Name, d.Name)
		}
	}
	for _, want := range []string{agentcore.ToolReadFile, agentcore.ToolWriteFile, agentcore.ToolEditFile, agentcore.ToolListDir} {
		if !names[want] {
			t.Fatalf("missing built-in tool %q", want)
		}
	}
}

func TestExecutor_UnregisterMCPTools_RemovesOnlyThatServer(t *testing.T) {
	e := NewExecutor(t.TempDir(), nil, zap.NewNop())
	e.SetMCPDispatch(func(_ context.Context, _, _ string, _ map[string]interface{}) (string, error) { return "ok", nil })
	_ = e.RegisterMCPTool("mcp_github_create_issue", "d", nil)
	_ = e.RegisterMCPTool("mcp_slack_post", "d", nil)

	e.UnregisterMCPTools("github")

	if _, err := e.Execute(context.Background(), "mcp_github_create_issue", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, _ := e.Execute(context.Background(), "mcp_github_create_issue", nil)
	if res.Success {
		t.Fatal("expected github tool to be gone")
	}
	res, _ = e.Execute(context.Background(), "mcp_slack_post", nil)
	if !res.Success {
		t.Fatal("expected slack tool to still work")
	}
}
