package llm

import (
	"context"
	"strings"

	"github.com/agentcore/core/internal/domain/agentcore"
	domaintool "github.com/agentcore/core/internal/domain/tool"
)

// Client is the dialect-agnostic surface every provider implements: turn
// agentcore's wire vocabulary into a provider's own HTTP/SSE dialect and
// back. Provider embeds this so each dialect package (openai, anthropic,
// gemini) only has to translate, never invent its own request/response shape.
type Client interface {
	Generate(ctx context.Context, req *Request) (*Response, error)

	// GenerateStream streams deltas on deltaCh until the call finishes; the
	// channel is never closed by the callee. The returned Response is the
	// fully accumulated result once streaming completes.
	GenerateStream(ctx context.Context, req *Request, deltaCh chan<- Delta) (*Response, error)
}

// Delta is one incremental update from a streaming call, in agentcore's own
// vocabulary (agentcore.ToolCall, not a provider-specific tool-call shape).
// A dialect package's SSE parser emits these directly; modeladapter.ProviderAdapter
// fans them out as agentcore.Chunk with no further translation.
type Delta struct {
	DeltaText     string
	DeltaThinking string
	DeltaToolCall *agentcore.ToolCall
	FinishReason  string // "stop", "tool_calls", "" (not yet finished)
}

// Request is a dialect-agnostic LLM call.
type Request struct {
	Messages    []Message
	Tools       []domaintool.Definition
	Model       string
	MaxTokens   int
	Temperature float64
}

// Message is one turn of conversation history.
type Message struct {
	Role       string // "system", "user", "assistant", "tool"
	Content    string
	Parts      []ContentPart // multimodal content, takes precedence over Content
	ToolCalls  []agentcore.ToolCall
	ToolCallID string
	Name       string
}

// TextContent returns all text content, joining text parts or falling back to Content.
func (m *Message) TextContent() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var texts []string
	for _, p := range m.Parts {
		if p.Type == "text" && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	if len(texts) == 0 {
		return m.Content
	}
	return strings.Join(texts, "\n")
}

// HasMedia returns true if the message contains non-text content.
func (m *Message) HasMedia() bool {
	for _, p := range m.Parts {
		if p.Type != "text" {
			return true
		}
	}
	return false
}

// ContentPart represents a multimodal content fragment.
type ContentPart struct {
	Type     string // "text", "image", "audio", "file"
	Text     string
	MediaURL string
	MimeType string
	Data     []byte
}

// Response is a completed (non-streaming, or stream-terminal) reply.
type Response struct {
	Content    string
	ToolCalls  []agentcore.ToolCall
	ModelUsed  string
	TokensUsed int
}
