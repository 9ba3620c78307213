package llm

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"docproc-backend/internal/shared/telemetry"
)

const retryBaseDelay = 300 * time.Millisecond

type retrying struct {
	base  Client
	delay time.Duration
}

// WithRetry retries a transient provider failure once after a short delay.
func WithRetry(base Client) Client {
	if base == nil {
		return nil
	}
	return retrying{base: base, delay: retryBaseDelay}
}

func (r retrying) Summarize(ctx context.Context, text string) (string, error) {
	out, err := r.base.Summarize(ctx, text)
	if err == nil || !ShouldRetry(err) {
		return out, err
	}
	if err := r.wait(ctx, "summarize", err); err != nil {
		return "", err
	}
	return r.base.Summarize(ctx, text)
}

func (r retrying) AnalyzeStructure(ctx context.Context, text string) (StructureAnalysis, error) {
	out, err := r.base.AnalyzeStructure(ctx, text)
	if err == nil || !ShouldRetry(err) {
		return out, err
	}
	if err := r.wait(ctx, "analyze", err); err != nil {
		return StructureAnalysis{}, err
	}
	return r.base.AnalyzeStructure(ctx, text)
}

func (r retrying) wait(ctx context.Context, op string, cause error) error {
	telemetry.Warn("llm.retry", map[string]any{
		"request_id": telemetry.RequestIDFromContext(ctx),
		"operation":  op,
		"attempt":    1,
		"error":      cause.Error(),
	})
	select {
	case <-time.After(r.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ShouldRetry reports whether err looks transient.
func ShouldRetry(err error) bool {
	if err == nil || errors.Is(err, ErrNotConfigured) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "http status 429") || strings.Contains(msg, "server_error") {
		return true
	}
	for _, s := range []string{"timeout", "connection reset", "connection refused", "broken pipe", "unexpected eof"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
