package mcp

import (
	"context"
	"testing"

	"github.com/agentcore/core/internal/domain/agentcore"
	"go.uber.org/zap"
)

func TestFabric_DispatchUnknownServerErrors(t *testing.T) {
	f := NewFabric(zap.NewNop())
	_, err := f.Dispatch(context.Background(), "nope", "tool", nil)
	if err == nil {
		t.Fatal("expected error for unconfigured server")
	}
}

func TestConnection_CallToolBeforeReadyErrorsWithoutBlocking(t *testing.T) {
	conn := NewConnection(agentcore.MCPServerSpec{Name: "git"}, zap.NewNop())
	done := make(chan struct{})
	go func() {
		_, err := conn.CallTool(context.Background(), "status", nil)
		if err == nil {
			t.Error("expected not-ready error")
		}
		close(done)
	}()
	<-done
}

func TestConnection_StateStringValues(t *testing.T) {
	cases := map[State]string{
		StateConnecting: "connecting",
		StateReady:      "ready",
		StateError:      "error",
		StateClosed:     "closed",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Fatalf("state %d: got %q want %q", state, got, want)
		}
	}
}
