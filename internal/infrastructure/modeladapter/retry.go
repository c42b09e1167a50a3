package modeladapter

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/agentcore/core/internal/domain/agentcore"
	"go.uber.org/zap"
)

// retryDelays is the fixed 5-attempt backoff schedule (spec §4.5): the
// first retry waits 5s, doubling up to 60s, with jitter added on top of
// each step. A 429 response's Retry-After header overrides the schedule
// for that one attempt.
var retryDelays = []time.Duration{
	5 * time.Second,
	10 * time.Second,
	20 * time.Second,
	40 * time.Second,
	60 * time.Second,
}

// RateLimitError carries a provider's Retry-After hint (seconds) when set.
type RateLimitError struct {
	RetryAfterSeconds int
	Underlying        error
}

func (e *RateLimitError) Error() string { return e.Underlying.Error() }
func (e *RateLimitError) Unwrap() error { return e.Underlying }

// RetryingAdapter wraps another Adapter with the 5-attempt backoff
// schedule. It retries only when the inner Stream call itself returns an
// error; failures delivered inside the stream as error chunks (which is
// how ProviderAdapter reports every provider failure, 429s included) pass
// through to the caller without a retry.
type RetryingAdapter struct {
	inner  Adapter
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewRetryingAdapter(inner Adapter, logger *zap.Logger) *RetryingAdapter {
	return &RetryingAdapter{inner: inner, logger: logger, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *RetryingAdapter) Stream(ctx context.Context, messages []agentcore.Message, tools []agentcore.ToolDefinition, model string) (<-chan agentcore.Chunk, error) {
	var lastErr error
	for attempt := 0; attempt <= len(retryDelays); attempt++ {
		ch, err := a.inner.Stream(ctx, messages, tools, model)
		if err == nil {
			return ch, nil
		}
		lastErr = err

		if attempt == len(retryDelays) {
			break
		}
		delay := retryDelays[attempt] + jitter()
		var rle *RateLimitError
		if errors.As(err, &rle) && rle.RetryAfterSeconds > 0 {
			delay = time.Duration(rle.RetryAfterSeconds)*time.Second + jitter()
		}

		a.logger.Warn("model adapter stream failed, retrying",
			zap.Int("attempt", attempt+1), zap.Duration("delay", delay), zap.Error(err))

		if sleepErr := a.sleep(ctx, delay); sleepErr != nil {
			return nil, sleepErr
		}
	}
	return nil, lastErr
}

func jitter() time.Duration {
	return time.Duration(rand.Intn(1000)) * time.Millisecond
}

// RetryAfterFromHeader parses an HTTP Retry-After header (seconds form)
// into a RateLimitError wrapping err, or returns err unchanged if absent
// or unparsable.
func RetryAfterFromHeader(resp *http.Response, err error) error {
	if resp == nil {
		return err
	}
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return err
	}
	secs, parseErr := strconv.Atoi(v)
	if parseErr != nil {
		return err
	}
	return &RateLimitError{RetryAfterSeconds: secs, Underlying: err}
}
