package context

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/agentcore/core/internal/domain/agentcore"
)

type stubSummarizer struct {
	out string
	err error
}

func (s stubSummarizer) Summarize(_ context.Context, _, _ string) (string, error) {
	return s.out, s.err
}

func TestCompressWithModel_IdempotentBelowThreshold(t *testing.T) {
	messages := []agentcore.Message{
		{Role: agentcore.RoleSystem, Content: "sys"},
		{Role: agentcore.RoleUser, Content: "hi"},
	}
	summary, kept, err := CompressWithModel(context.Background(), messages, "existing", stubSummarizer{out: "unused"}, 100000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary != "existing" {
		t.Fatalf("expected existing summary returned unchanged, got %q", summary)
	}
	if len(kept) != len(messages) {
		t.Fatalf("expected messages unchanged, got %d vs %d", len(kept), len(messages))
	}
}

func TestCompressWithModel_FallsBackOnAdapterFailure(t *testing.T) {
	var messages []agentcore.Message
	messages = append(messages, agentcore.Message{Role: agentcore.RoleSystem, Content: "sys"})
	for i := 0; i < 30; i++ {
		messages = append(messages, bigMessage(agentcore.RoleUser, 5000))
	}

	summary, kept, err := CompressWithModel(context.Background(), messages, "", stubSummarizer{err: errors.New("boom")}, 10000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary == "" {
		t.Fatalf("expected non-empty fallback summary")
	}
	if !strings.Contains(summary, "Project Info") {
		t.Fatalf("expected structured fallback sections, got %q", summary)
	}
	if EstimateTokens(kept) > 5000 {
		t.Fatalf("kept messages should be <= 50%% of budget, got %d tokens", EstimateTokens(kept))
	}
}

func TestCompressWithModel_UsesAdapterResultWhenAvailable(t *testing.T) {
	var messages []agentcore.Message
	messages = append(messages, agentcore.Message{Role: agentcore.RoleSystem, Content: "sys"})
	for i := 0; i < 30; i++ {
		messages = append(messages, bigMessage(agentcore.RoleUser, 5000))
	}

	summary, _, err := CompressWithModel(context.Background(), messages, "", stubSummarizer{out: "model summary"}, 10000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary != "model summary" {
		t.Fatalf("expected adapter summary to win, got %q", summary)
	}
}
