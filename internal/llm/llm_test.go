package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

type flakyClient struct {
	errs  []error
	calls int
}

func (f *flakyClient) next() error {
	f.calls++
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *flakyClient) Summarize(ctx context.Context, text string) (string, error) {
	if err := f.next(); err != nil {
		return "", err
	}
	return "short", nil
}

func (f *flakyClient) AnalyzeStructure(ctx context.Context, text string) (StructureAnalysis, error) {
	if err := f.next(); err != nil {
		return StructureAnalysis{}, err
	}
	return StructureAnalysis{DocumentType: "report"}, nil
}

func TestRetryRecoversFromTransientError(t *testing.T) {
	base := &flakyClient{errs: []error{errors.New("openai http status 503: overloaded")}}
	client := retrying{base: base, delay: 0}

	out, err := client.Summarize(context.Background(), "text")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if out != "short" || base.calls != 2 {
		t.Fatalf("expected success on second call, got %q after %d calls", out, base.calls)
	}
}

func TestRetrySkipsPermanentError(t *testing.T) {
	base := &flakyClient{errs: []error{errors.New("openai http status 400: bad request")}}
	client := retrying{base: base, delay: 0}

	if _, err := client.AnalyzeStructure(context.Background(), "text"); err == nil {
		t.Fatalf("expected error")
	}
	if base.calls != 1 {
		t.Fatalf("expected a single call, got %d", base.calls)
	}
}

func TestShouldRetry(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrNotConfigured, false},
		{context.Canceled, false},
		{context.DeadlineExceeded, true},
		{errors.New("connection reset by peer"), true},
		{fmt.Errorf("openai request timeout: %w", context.DeadlineExceeded), true},
		{errors.New("openai http status 429: slow down"), true},
		{errors.New("openai response missing choices"), false},
	}
	for _, tc := range cases {
		if got := ShouldRetry(tc.err); got != tc.want {
			t.Fatalf("ShouldRetry(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestPlaceholderReturnsNotConfigured(t *testing.T) {
	var c Client = PlaceholderClient{}
	if _, err := c.Summarize(context.Background(), "x"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := c.AnalyzeStructure(context.Background(), "x"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("ñ", MaxInputRunes+10)
	if got := utf8.RuneCountInString(Truncate(long)); got != MaxInputRunes {
		t.Fatalf("expected %d runes, got %d", MaxInputRunes, got)
	}
	if Truncate("short") != "short" {
		t.Fatalf("short text must be unchanged")
	}
}
