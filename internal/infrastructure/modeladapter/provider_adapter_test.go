package modeladapter

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/agentcore/core/internal/domain/agentcore"
	"github.com/agentcore/core/internal/infrastructure/llm"
)

// fakeProvider replays a fixed sequence of deltas, mimicking one of the
// three dialect packages' ParseSSEStream output.
type fakeProvider struct {
	deltas []llm.Delta
}

func (p *fakeProvider) Name() string                        { return "fake" }
func (p *fakeProvider) Models() []string                     { return []string{"fake-model"} }
func (p *fakeProvider) SupportsModel(model string) bool      { return true }
func (p *fakeProvider) IsAvailable(ctx context.Context) bool { return true }
func (p *fakeProvider) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	return &llm.Response{}, nil
}

func (p *fakeProvider) GenerateStream(ctx context.Context, req *llm.Request, deltaCh chan<- llm.Delta) (*llm.Response, error) {
	for _, d := range p.deltas {
		deltaCh <- d
	}
	return &llm.Response{}, nil
}

func TestProviderAdapter_StreamEmitsThinkingChunksSeparatelyFromText(t *testing.T) {
	provider := &fakeProvider{deltas: []llm.Delta{
		{DeltaThinking: "let me "},
		{DeltaThinking: "think this through"},
		{DeltaText: "the answer is 4"},
		{FinishReason: "stop"},
	}}
	adapter := NewProviderAdapter(provider, zap.NewNop())

	ch, err := adapter.Stream(context.Background(), []agentcore.Message{{Role: agentcore.RoleUser, Content: "2+2?"}}, nil, "fake-model")
	if err != nil {
		t.Fatal(err)
	}

	var thinking, text string
	var sawDone bool
	for chunk := range ch {
		switch chunk.Type {
		case agentcore.ChunkThinking:
			thinking += chunk.Text
		case agentcore.ChunkText:
			text += chunk.Text
		case agentcore.ChunkDone:
			sawDone = true
		case agentcore.ChunkError:
			t.Fatalf("unexpected error chunk: %s", chunk.Err)
		}
	}

	if thinking != "let me think this through" {
		t.Fatalf("expected accumulated thinking text, got %q", thinking)
	}
	if text != "the answer is 4" {
		t.Fatalf("expected text chunk content, got %q", text)
	}
	if !sawDone {
		t.Fatal("expected a terminal done chunk")
	}
}
