// Package modeladapter implements the ModelAdapter Layer (spec §4.5): a
// provider-agnostic Stream contract that normalizes every backend's SSE
// dialect into the same ordered Chunk sequence, plus the retry policy the
// driver relies on for transient failures. It wraps the teacher's
// existing per-provider dialect handling (openai/anthropic/gemini) rather
// than reimplementing SSE parsing, translating between this package's
// agentcore-shaped request/response and the llm package's llm.Request.
package modeladapter

import (
	"context"

	"github.com/agentcore/core/internal/domain/agentcore"
)

// Adapter is the normalized streaming contract every backend satisfies.
type Adapter interface {
	// Stream sends messages (with the given tool catalog) to model and
	// streams back a normalized Chunk sequence. The channel is closed
	// when the turn ends, whether by completion or by an error chunk.
	Stream(ctx context.Context, messages []agentcore.Message, tools []agentcore.ToolDefinition, model string) (<-chan agentcore.Chunk, error)
}

// ModelSummarizer adapts an Adapter into the ContextMemory's
// ModelSummarizer seam (spec §4.2), reusing the same Stream channel by
// draining it into a single string instead of forwarding chunks live.
type ModelSummarizer struct {
	Adapter Adapter
	Model   string
}

// Summarize drains a non-tool turn and concatenates its text chunks.
func (s ModelSummarizer) Summarize(ctx context.Context, systemPrompt, transcript string) (string, error) {
	messages := []agentcore.Message{
		{Role: agentcore.RoleSystem, Content: systemPrompt},
		{Role: agentcore.RoleUser, Content: transcript},
	}
	ch, err := s.Adapter.Stream(ctx, messages, nil, s.Model)
	if err != nil {
		return "", err
	}

	var out string
	for chunk := range ch {
		switch chunk.Type {
		case agentcore.ChunkText:
			out += chunk.Text
		case agentcore.ChunkError:
			return "", &StreamError{Message: chunk.Err}
		}
	}
	return out, nil
}

// StreamError wraps a terminal error chunk's message as a Go error.
type StreamError struct{ Message string }

func (e *StreamError) Error() string { return e.Message }
