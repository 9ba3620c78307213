package documents

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"docproc-backend/internal/extract"
	"docproc-backend/internal/llm"
	"docproc-backend/internal/shared/storage/object/local"
)

type fakeLLM struct {
	summary  string
	analysis llm.StructureAnalysis
	err      error
	calls    int
}

func (f *fakeLLM) Summarize(_ context.Context, text string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

func (f *fakeLLM) AnalyzeStructure(_ context.Context, text string) (llm.StructureAnalysis, error) {
	f.calls++
	if f.err != nil {
		return llm.StructureAnalysis{}, f.err
	}
	return f.analysis, nil
}

// stubExtractor accepts text/plain and runs fn for every extraction.
type stubExtractor struct {
	fn func(ctx context.Context) (extract.Result, error)
}

func (s stubExtractor) Supports(mime string) bool { return mime == extract.MimeText }

func (s stubExtractor) ProcessFile(ctx context.Context, _, _ string) (extract.Result, error) {
	return s.fn(ctx)
}

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	files := local.New(dir)
	return &Service{
		Repo:      NewMemoryRepo(),
		Files:     files,
		Extractor: extract.NewDispatcher(files, extract.NewDefaultRegistry(extract.Options{})),
		LLM:       &fakeLLM{summary: "a greeting"},
	}, dir
}

func upload(t *testing.T, svc *Service, name, mime, body string) Document {
	t.Helper()
	doc, err := svc.Upload(context.Background(), UploadInput{
		OriginalName: name,
		MimeType:     mime,
		Size:         int64(len(body)),
		Body:         strings.NewReader(body),
	})
	if err != nil {
		t.Fatalf("upload %s: %v", name, err)
	}
	return doc
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	return n
}

func TestUploadAndExtractHelloWorld(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	doc := upload(t, svc, "hello.txt", extract.MimeText, "hello world")
	require.Equal(t, int64(1), doc.ID)
	require.Equal(t, StatusPending, doc.Status)
	require.Equal(t, int64(11), doc.Size)
	require.Nil(t, doc.ExtractedText)
	require.Nil(t, doc.ProcessedAt)

	out, err := svc.Extract(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, "hello world", out.Text)
	require.Equal(t, 2, out.Metadata.Words)
	require.Equal(t, 11, out.Metadata.Characters)
	require.Equal(t, StatusCompleted, out.Document.Status)
	require.NotNil(t, out.Document.ProcessedAt)
	require.Nil(t, out.Document.ErrorMessage)

	stored, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, "hello world", *stored.ExtractedText)
	require.Equal(t, 2, stored.Metadata.Words)
}

func TestUploadRejectsInvalidInput(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	cases := []UploadInput{
		{OriginalName: "a.exe", MimeType: "application/x-msdownload", Size: 3, Body: strings.NewReader("abc")},
		{OriginalName: "  ", MimeType: extract.MimeText, Size: 3, Body: strings.NewReader("abc")},
		{OriginalName: "a.txt", MimeType: "TEXT/PLAIN", Size: 3, Body: strings.NewReader("abc")},
	}
	for _, in := range cases {
		if _, err := svc.Upload(ctx, in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("upload %q (%s): expected ErrInvalidInput, got %v", in.OriginalName, in.MimeType, err)
		}
	}

	docs, err := svc.List(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, docs)
	require.Equal(t, 0, countFiles(t, dir))
}

func TestUploadTooLarge(t *testing.T) {
	svc, dir := newTestService(t)
	svc.MaxUploadBytes = 8
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadInput{
		OriginalName: "big.txt", MimeType: extract.MimeText, Size: 9, Body: strings.NewReader("123456789"),
	})
	require.ErrorIs(t, err, ErrTooLarge)

	// Undeclared size is measured while streaming.
	_, err = svc.Upload(ctx, UploadInput{
		OriginalName: "big.txt", MimeType: extract.MimeText, Size: -1, Body: strings.NewReader("123456789"),
	})
	require.ErrorIs(t, err, ErrTooLarge)

	docs, err := svc.List(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, docs)
	require.Equal(t, 0, countFiles(t, dir))

	doc, err := svc.Upload(ctx, UploadInput{
		OriginalName: "ok.txt", MimeType: extract.MimeText, Size: -1, Body: strings.NewReader("12345678"),
	})
	require.NoError(t, err)
	require.Equal(t, int64(8), doc.Size)
}

func TestExtractCorruptPDFRecordsError(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	doc := upload(t, svc, "broken.pdf", extract.MimePDF, "this is not a pdf")
	_, err := svc.Extract(ctx, doc.ID)
	require.Error(t, err)
	var extErr *extract.ExtractionError
	require.ErrorAs(t, err, &extErr)

	stored, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, StatusError, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	require.Contains(t, *stored.ErrorMessage, "error processing PDF")
	require.Nil(t, stored.ExtractedText)
	require.Nil(t, stored.Metadata)
	require.Nil(t, stored.ProcessedAt)
}

func TestExtractMissingFileRecordsError(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	doc := upload(t, svc, "gone.txt", extract.MimeText, "soon gone")
	require.NoError(t, svc.Files.Delete(ctx, doc.Filename))

	_, err := svc.Extract(ctx, doc.ID)
	require.ErrorIs(t, err, extract.ErrFileNotFound)

	stored, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, StatusError, stored.Status)
}

func TestFailedReextractionDropsSummary(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	doc := upload(t, svc, "hello.txt", extract.MimeText, "hello world")
	_, err := svc.Extract(ctx, doc.ID)
	require.NoError(t, err)
	summary, _, err := svc.Summarize(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, "a greeting", summary)

	require.NoError(t, svc.Files.Delete(ctx, doc.Filename))
	out, err := svc.Extract(ctx, doc.ID)
	require.Error(t, err)
	require.Equal(t, StatusError, out.Document.Status)
	require.Nil(t, out.Document.ExtractedText)
	require.Nil(t, out.Document.Summary)

	stored, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	require.Nil(t, stored.Summary)
}

func TestReextractionDropsOldSummary(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	doc := upload(t, svc, "hello.txt", extract.MimeText, "hello world")
	_, err := svc.Extract(ctx, doc.ID)
	require.NoError(t, err)
	_, _, err = svc.Summarize(ctx, doc.ID)
	require.NoError(t, err)

	out, err := svc.Extract(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, out.Document.Status)
	require.Nil(t, out.Document.Summary)
}

func TestExtractUnknownDocument(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Extract(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestExtractFailureAfterSuccessClearsResult(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	doc := upload(t, svc, "note.txt", extract.MimeText, "first pass")

	fail := false
	svc.Extractor = stubExtractor{fn: func(context.Context) (extract.Result, error) {
		if fail {
			return extract.Result{}, &extract.ExtractionError{Format: "CSV file", Err: errors.New("bad\nquote")}
		}
		return extract.Result{Text: "first pass", Metadata: extract.Metadata{Words: 2, Characters: 10}}, nil
	}}

	out, err := svc.Extract(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, out.Document.Status)

	fail = true
	out, err = svc.Extract(ctx, doc.ID)
	require.Error(t, err)
	require.Equal(t, StatusError, out.Document.Status)
	require.Nil(t, out.Document.ExtractedText)
	require.Nil(t, out.Document.Metadata)
	require.Nil(t, out.Document.ProcessedAt)
	require.Equal(t, "error processing CSV file: bad quote", *out.Document.ErrorMessage)

	// Retry from error is legal and clears the message.
	fail = false
	out, err = svc.Extract(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, out.Document.Status)
	require.Nil(t, out.Document.ErrorMessage)
}

func TestExtractTimeout(t *testing.T) {
	svc, _ := newTestService(t)
	svc.ExtractionTimeout = 20 * time.Millisecond
	doc := upload(t, svc, "slow.txt", extract.MimeText, "slow")

	svc.Extractor = stubExtractor{fn: func(ctx context.Context) (extract.Result, error) {
		<-ctx.Done()
		return extract.Result{}, fmt.Errorf("%w: %w", extract.ErrTimeout, ctx.Err())
	}}

	out, err := svc.Extract(context.Background(), doc.ID)
	require.ErrorIs(t, err, extract.ErrTimeout)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, StatusError, out.Document.Status)
	require.Contains(t, *out.Document.ErrorMessage, "timed out")
}

func TestExtractPanicNeverLeavesProcessing(t *testing.T) {
	svc, _ := newTestService(t)
	doc := upload(t, svc, "boom.txt", extract.MimeText, "boom")

	svc.Extractor = stubExtractor{fn: func(context.Context) (extract.Result, error) {
		panic("boom")
	}}

	out, err := svc.Extract(context.Background(), doc.ID)
	require.Error(t, err)
	require.Equal(t, StatusError, out.Document.Status)
	require.Contains(t, *out.Document.ErrorMessage, "panic")
}

func TestExtractSerializedPerDocument(t *testing.T) {
	svc, _ := newTestService(t)
	doc := upload(t, svc, "busy.txt", extract.MimeText, "busy")

	var inflight, peak int32
	svc.Extractor = stubExtractor{fn: func(context.Context) (extract.Result, error) {
		n := atomic.AddInt32(&inflight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&inflight, -1)
		return extract.Result{Text: "busy", Metadata: extract.Metadata{Words: 1, Characters: 4}}, nil
	}}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Extract(context.Background(), doc.ID); err != nil {
				t.Errorf("extract: %v", err)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), atomic.LoadInt32(&peak))
}

func TestExtractAsync(t *testing.T) {
	svc, _ := newTestService(t)
	doc := upload(t, svc, "bg.txt", extract.MimeText, "in the background")

	_, err := svc.ExtractAsync(context.Background(), doc.ID)
	require.NoError(t, err)
	svc.Wait()

	stored, err := svc.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, stored.Status)
	require.Equal(t, "in the background", *stored.ExtractedText)
}

func TestExtractAsyncSynchronousRunsInline(t *testing.T) {
	svc, _ := newTestService(t)
	svc.Synchronous = true
	ctx := context.Background()

	doc := upload(t, svc, "inline.txt", extract.MimeText, "right now")
	got, err := svc.ExtractAsync(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)
	require.Equal(t, "right now", *got.ExtractedText)

	broken := upload(t, svc, "gone.txt", extract.MimeText, "gone")
	require.NoError(t, svc.Files.Delete(ctx, broken.Filename))
	got, err = svc.ExtractAsync(ctx, broken.ID)
	require.NoError(t, err)
	require.Equal(t, StatusError, got.Status)

	_, err = svc.ExtractAsync(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSummarizeRequiresExtractedText(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	model := svc.LLM.(*fakeLLM)
	doc := upload(t, svc, "hello.txt", extract.MimeText, "hello world")

	_, _, err := svc.Summarize(ctx, doc.ID)
	require.ErrorIs(t, err, ErrPrecondition)
	require.Equal(t, 0, model.calls)

	stored, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, stored.Status)
	require.Nil(t, stored.Summary)

	_, err = svc.Extract(ctx, doc.ID)
	require.NoError(t, err)

	summary, updated, err := svc.Summarize(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, "a greeting", summary)
	require.Equal(t, "a greeting", *updated.Summary)
	require.Equal(t, StatusCompleted, updated.Status)

	_, _, err = svc.Summarize(ctx, 99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSummarizeWithoutProvider(t *testing.T) {
	svc, _ := newTestService(t)
	svc.LLM = nil
	ctx := context.Background()
	doc := upload(t, svc, "hello.txt", extract.MimeText, "hello world")
	_, err := svc.Extract(ctx, doc.ID)
	require.NoError(t, err)

	_, _, err = svc.Summarize(ctx, doc.ID)
	require.ErrorIs(t, err, llm.ErrNotConfigured)
}

func TestAnalyzeIsReadOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.LLM = &fakeLLM{analysis: llm.StructureAnalysis{DocumentType: "letter", Language: "en"}}
	doc := upload(t, svc, "hello.txt", extract.MimeText, "hello world")

	_, err := svc.Analyze(ctx, doc.ID)
	require.ErrorIs(t, err, ErrPrecondition)

	_, err = svc.Extract(ctx, doc.ID)
	require.NoError(t, err)
	before, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)

	analysis, err := svc.Analyze(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, "letter", analysis.DocumentType)

	after, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(errors.New("line one\nline two")); got != "line one line two" {
		t.Fatalf("unexpected message %q", got)
	}
	long := UserMessage(errors.New(strings.Repeat("x", 900)))
	if len(long) != maxErrorMessageLen {
		t.Fatalf("expected %d chars, got %d", maxErrorMessageLen, len(long))
	}
	if UserMessage(nil) != "" {
		t.Fatal("expected empty message for nil error")
	}
}
