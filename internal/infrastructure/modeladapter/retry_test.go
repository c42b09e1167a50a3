package modeladapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agentcore/core/internal/domain/agentcore"
	"go.uber.org/zap"
)

type flakyAdapter struct {
	failures int
	calls    int
}

func (f *flakyAdapter) Stream(_ context.Context, _ []agentcore.Message, _ []agentcore.ToolDefinition, _ string) (<-chan agentcore.Chunk, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("transient failure")
	}
	ch := make(chan agentcore.Chunk, 1)
	ch <- agentcore.DoneChunk()
	close(ch)
	return ch, nil
}

func TestRetryingAdapter_SucceedsAfterTransientFailures(t *testing.T) {
	inner := &flakyAdapter{failures: 2}
	r := NewRetryingAdapter(inner, zap.NewNop())
	r.sleep = func(_ context.Context, _ time.Duration) error { return nil } // no real sleeping in tests

	ch, err := r.Stream(context.Background(), nil, nil, "gpt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 calls (2 failures + 1 success), got %d", inner.calls)
	}
	<-ch
}

func TestRetryingAdapter_ExhaustsAllAttempts(t *testing.T) {
	inner := &flakyAdapter{failures: 100}
	r := NewRetryingAdapter(inner, zap.NewNop())
	r.sleep = func(_ context.Context, _ time.Duration) error { return nil }

	_, err := r.Stream(context.Background(), nil, nil, "gpt")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if inner.calls != len(retryDelays)+1 {
		t.Fatalf("expected %d calls, got %d", len(retryDelays)+1, inner.calls)
	}
}

func TestRetryingAdapter_RateLimitOverridesDelay(t *testing.T) {
	inner := &flakyAdapter{failures: 1}
	var lastErr error
	inner2 := &rateLimitOnceAdapter{}
	r := NewRetryingAdapter(inner2, zap.NewNop())
	var seenDelay time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		seenDelay = d
		return nil
	}
	_, err := r.Stream(context.Background(), nil, nil, "gpt")
	lastErr = err
	if lastErr != nil {
		t.Fatalf("unexpected error: %v", lastErr)
	}
	if seenDelay < 2*time.Second || seenDelay > 4*time.Second {
		t.Fatalf("expected delay near Retry-After=2s, got %v", seenDelay)
	}
	_ = inner
}

type rateLimitOnceAdapter struct{ calls int }

func (r *rateLimitOnceAdapter) Stream(_ context.Context, _ []agentcore.Message, _ []agentcore.ToolDefinition, _ string) (<-chan agentcore.Chunk, error) {
	r.calls++
	if r.calls == 1 {
		return nil, &RateLimitError{RetryAfterSeconds: 2, Underlying: errors.New("rate limited")}
	}
	ch := make(chan agentcore.Chunk, 1)
	ch <- agentcore.DoneChunk()
	close(ch)
	return ch, nil
}
