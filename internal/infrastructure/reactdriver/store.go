// Package reactdriver implements the ReActDriver (spec §4.1): the turn
// engine that streams from the model, schedules tool calls in parallel,
// and reassembles the conversation. It is the wiring point for every
// other subsystem — ModelAdapter, MCPClient Fabric, ToolExecutor,
// ContextMemory, SkillSource and SystemPrompt Builder — so it lives
// alongside them in the infrastructure layer rather than the domain
// layer, the way the teacher's domain/service/agent_loop.go sits at the
// top of its own dependency graph pulling together llm.Provider,
// domaintool.Executor and domain/context.
//
// Grounded on the teacher's AgentLoop: the step-bounded state machine,
// the repetition bookkeeping, and the parallel tool-dispatch
// shape are kept; provider-specific plumbing is replaced by calls into
// the packages built around this one.
package reactdriver

import (
	"context"

	"github.com/agentcore/core/internal/domain/agentcore"
)

// Store is the persistence seam the driver consumes but never implements
// (spec §6.1). AddMessage returns the new message's id.
type Store interface {
	AddMessage(ctx context.Context, sessionID string, role agentcore.Role, content string, toolCallID string, toolCalls []agentcore.ToolCall) (string, error)
	GetMessages(ctx context.Context, sessionID string) ([]agentcore.Message, error)
	AddToolLog(ctx context.Context, sessionID, name, argsJSON, resultText string) error
	GetSessionMemory(ctx context.Context, sessionID string) (string, bool, error)
	SaveSessionMemory(ctx context.Context, sessionID, summary string) error
}
