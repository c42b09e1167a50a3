package modeladapter

import (
	"context"

	"github.com/agentcore/core/internal/domain/agentcore"
	domaintool "github.com/agentcore/core/internal/domain/tool"
	"github.com/agentcore/core/internal/infrastructure/llm"
	"go.uber.org/zap"
)

// ProviderAdapter implements Adapter over one of the llm.Provider dialect
// implementations (openai, anthropic, gemini — each translates its own SSE
// format directly into llm.Delta using agentcore's own Message/ToolCall
// vocabulary). This layer only fans the provider's delta channel out as a
// Chunk channel and accumulates fragmentary tool-call deltas by id.
type ProviderAdapter struct {
	provider llm.Provider
	logger   *zap.Logger
}

func NewProviderAdapter(provider llm.Provider, logger *zap.Logger) *ProviderAdapter {
	return &ProviderAdapter{provider: provider, logger: logger}
}

func (a *ProviderAdapter) Stream(ctx context.Context, messages []agentcore.Message, tools []agentcore.ToolDefinition, model string) (<-chan agentcore.Chunk, error) {
	req := &llm.Request{
		Messages: toLLMMessages(messages),
		Tools:    toToolDefinitions(tools),
		Model:    model,
	}

	delta := make(chan llm.Delta, 16)
	out := make(chan agentcore.Chunk, 16)

	go func() {
		defer close(out)

		errCh := make(chan error, 1)
		go func() {
			_, err := a.provider.GenerateStream(ctx, req, delta)
			close(delta)
			errCh <- err
		}()

		// accumulate fragmentary tool-call deltas by ID until the provider's
		// delta channel closes, so ChunkToolCall always carries complete arguments
		// (spec §4.5 invariant).
		pending := map[string]*agentcore.ToolCall{}
		order := []string{}

		for d := range delta {
			if d.DeltaText != "" {
				out <- agentcore.TextChunk(d.DeltaText)
			}
			if d.DeltaThinking != "" {
				out <- agentcore.ThinkingChunk(d.DeltaThinking)
			}
			if d.DeltaToolCall != nil {
				tc := d.DeltaToolCall
				cur, ok := pending[tc.ID]
				if !ok {
					cur = &agentcore.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: map[string]interface{}{}}
					pending[tc.ID] = cur
					order = append(order, tc.ID)
				}
				if tc.Name != "" {
					cur.Name = tc.Name
				}
				for k, v := range tc.Arguments {
					cur.Arguments[k] = v
				}
			}
		}

		if err := <-errCh; err != nil {
			out <- agentcore.ErrorChunk(err.Error())
			return
		}

		for _, id := range order {
			out <- agentcore.ToolCallChunk(*pending[id])
		}
		out <- agentcore.DoneChunk()
	}()

	return out, nil
}

func toLLMMessages(messages []agentcore.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		lm := llm.Message{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			ToolCalls:  append([]agentcore.ToolCall{}, m.ToolCalls...),
		}
		for _, img := range m.Images {
			lm.Parts = append(lm.Parts, llm.ContentPart{
				Type: "image", MediaURL: img.MediaURL, MimeType: img.MimeType,
			})
		}
		out = append(out, lm)
	}
	return out
}

func toToolDefinitions(tools []agentcore.ToolDefinition) []domaintool.Definition {
	out := make([]domaintool.Definition, 0, len(tools))
	for _, t := range tools {
		out = append(out, domaintool.Definition{Name: t.Name, Description: t.Description, Parameters: t.Parameters})
	}
	return out
}
