package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"docproc-backend/internal/extract"
	"docproc-backend/internal/llm"
	"docproc-backend/internal/shared/metrics"
	"docproc-backend/internal/shared/patch"
	"docproc-backend/internal/shared/storage/object"
	"docproc-backend/internal/shared/telemetry"
)

const (
	DefaultMaxUploadBytes    = 50 << 20
	DefaultExtractionTimeout = 2 * time.Minute
	maxErrorMessageLen       = 500
)

// Extractor is the extraction dispatcher as seen by the service.
type Extractor interface {
	ProcessFile(ctx context.Context, storageKey, mimeType string) (extract.Result, error)
	Supports(mimeType string) bool
}

// Service owns the document lifecycle: upload, extraction, summarization
// and structure analysis. Mutations of one document are serialized.
type Service struct {
	Repo              Repo
	Files             object.ObjectStore
	Extractor         Extractor
	LLM               llm.Client
	MaxUploadBytes    int64
	ExtractionTimeout time.Duration
	// Synchronous makes ExtractAsync run inline. Set on runtimes that freeze
	// between requests, where a goroutine cannot outlive the response.
	Synchronous bool

	locks    keyedMutex
	inflight sync.WaitGroup
}

// UploadInput describes one uploaded file.
type UploadInput struct {
	OriginalName string
	MimeType     string
	// Size is the declared size, or -1 when unknown. The stored size is
	// always measured.
	Size   int64
	Body   io.Reader
	UserID *int64
}

// ExtractionOutcome is the result of a successful extraction.
type ExtractionOutcome struct {
	Text     string
	Metadata extract.Metadata
	Document Document
}

// Upload validates and stores a file, then records a pending document.
// Rejected uploads leave no record and no stored bytes.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Document, error) {
	name := strings.TrimSpace(in.OriginalName)
	if name == "" {
		return Document{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	if in.Body == nil {
		return Document{}, fmt.Errorf("%w: file is required", ErrInvalidInput)
	}
	if !s.Extractor.Supports(in.MimeType) {
		return Document{}, fmt.Errorf("%w: unsupported file type %q", ErrInvalidInput, in.MimeType)
	}
	limit := s.maxUploadBytes()
	if in.Size > limit {
		return Document{}, fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, in.Size, limit)
	}

	namespace := ""
	if in.UserID != nil {
		namespace = strconv.FormatInt(*in.UserID, 10)
	}
	key, size, err := s.Files.Save(ctx, namespace, name, io.LimitReader(in.Body, limit+1))
	if err != nil {
		return Document{}, fmt.Errorf("store upload: %w", err)
	}
	if size > limit {
		s.discard(ctx, key)
		return Document{}, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, limit)
	}

	doc, err := s.Repo.Create(ctx, NewDocument{
		Filename:     key,
		OriginalName: name,
		MimeType:     in.MimeType,
		Size:         size,
		UserID:       in.UserID,
	})
	if err != nil {
		s.discard(ctx, key)
		return Document{}, fmt.Errorf("create document: %w", err)
	}

	telemetry.Info("document.status", map[string]any{
		"request_id":        telemetry.RequestIDFromContext(ctx),
		"document_id":       doc.ID,
		"mime_type":         doc.MimeType,
		"size":              doc.Size,
		"status":            doc.Status,
		"status_transition": "->pending",
	})
	return doc, nil
}

// Get returns a document by id.
func (s *Service) Get(ctx context.Context, id int64) (Document, error) {
	return s.Repo.GetByID(ctx, id)
}

// List returns documents in upload order, optionally for one owner.
func (s *Service) List(ctx context.Context, userID *int64) ([]Document, error) {
	return s.Repo.List(ctx, userID)
}

// Extract runs the dispatcher on a document and records the outcome. It is
// legal from any state. On failure the document ends in StatusError with
// the message recorded and the error is returned.
func (s *Service) Extract(ctx context.Context, id int64) (ExtractionOutcome, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return ExtractionOutcome{}, err
	}

	// State writes must land even if the caller goes away mid-extraction.
	writeCtx := context.WithoutCancel(ctx)
	processing := StatusProcessing
	if _, err := s.Repo.Update(writeCtx, id, Patch{Status: &processing}); err != nil {
		return ExtractionOutcome{}, fmt.Errorf("mark processing: %w", err)
	}
	metrics.IncExtractionStarted()
	s.logTransition(ctx, doc, doc.Status, StatusProcessing, nil)

	res, err := s.runExtraction(ctx, doc)
	if err != nil {
		metrics.IncExtractionFailed()
		failed, uerr := s.markFailed(writeCtx, doc, err)
		if uerr != nil {
			return ExtractionOutcome{}, errors.Join(err, uerr)
		}
		return ExtractionOutcome{Document: failed}, err
	}

	completed := StatusCompleted
	now := time.Now().UTC()
	updated, err := s.Repo.Update(writeCtx, id, Patch{
		Status:        &completed,
		ExtractedText: patch.Set(res.Text),
		Metadata:      patch.Set(res.Metadata),
		Summary:       patch.Clear[string](),
		ErrorMessage:  patch.Clear[string](),
		ProcessedAt:   patch.Set(now),
	})
	if err != nil {
		failed, uerr := s.markFailed(writeCtx, doc, fmt.Errorf("record extraction: %w", err))
		if uerr != nil {
			return ExtractionOutcome{}, errors.Join(err, uerr)
		}
		return ExtractionOutcome{Document: failed}, err
	}
	metrics.IncExtractionCompleted()
	s.logTransition(ctx, updated, StatusProcessing, StatusCompleted, map[string]any{
		"words":      res.Metadata.Words,
		"characters": res.Metadata.Characters,
	})

	return ExtractionOutcome{Text: res.Text, Metadata: res.Metadata, Document: updated}, nil
}

// ExtractAsync starts extraction in the background and returns immediately.
// Callers poll the document status. With Synchronous set it extracts inline
// and returns the document in its terminal state.
func (s *Service) ExtractAsync(ctx context.Context, id int64) (Document, error) {
	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if s.Synchronous {
		out, err := s.Extract(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return Document{}, err
		}
		if err != nil && out.Document.ID == 0 {
			return Document{}, err
		}
		return out.Document, nil
	}
	s.inflight.Add(1)
	go func(ctx context.Context) {
		defer s.inflight.Done()
		if _, err := s.Extract(ctx, id); err != nil {
			telemetry.Warn("document.extract.async_failed", map[string]any{
				"request_id":  telemetry.RequestIDFromContext(ctx),
				"document_id": id,
				"error":       err.Error(),
			})
		}
	}(telemetry.Detached(ctx))
	return doc, nil
}

// Wait blocks until background extractions finish.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// Summarize stores an LLM summary of the extracted text. Status is unchanged.
func (s *Service) Summarize(ctx context.Context, id int64) (string, Document, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return "", Document{}, err
	}
	if doc.ExtractedText == nil {
		return "", doc, ErrPrecondition
	}

	summary, err := s.llm().Summarize(ctx, *doc.ExtractedText)
	if err != nil {
		return "", doc, fmt.Errorf("summarize: %w", err)
	}
	updated, err := s.Repo.Update(ctx, id, Patch{Summary: patch.Set(summary)})
	if err != nil {
		return "", doc, fmt.Errorf("store summary: %w", err)
	}
	telemetry.Info("document.summarized", map[string]any{
		"request_id":  telemetry.RequestIDFromContext(ctx),
		"document_id": id,
		"length":      len(summary),
	})
	return summary, updated, nil
}

// Analyze returns a structural analysis of the extracted text. It does not
// modify the document.
func (s *Service) Analyze(ctx context.Context, id int64) (llm.StructureAnalysis, error) {
	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return llm.StructureAnalysis{}, err
	}
	if doc.ExtractedText == nil {
		return llm.StructureAnalysis{}, ErrPrecondition
	}
	analysis, err := s.llm().AnalyzeStructure(ctx, *doc.ExtractedText)
	if err != nil {
		return llm.StructureAnalysis{}, fmt.Errorf("analyze: %w", err)
	}
	return analysis, nil
}

// SupportedTypes lists the accepted upload MIME types.
func (s *Service) SupportedTypes() []string {
	if lister, ok := s.Extractor.(interface{ Supported() []string }); ok {
		return lister.Supported()
	}
	return nil
}

func (s *Service) runExtraction(ctx context.Context, doc Document) (res extract.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extraction panic: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, s.extractionTimeout())
	defer cancel()
	return s.Extractor.ProcessFile(ctx, doc.Filename, doc.MimeType)
}

func (s *Service) markFailed(ctx context.Context, doc Document, cause error) (Document, error) {
	failed := StatusError
	msg := UserMessage(cause)
	updated, err := s.Repo.Update(ctx, doc.ID, Patch{
		Status:        &failed,
		ExtractedText: patch.Clear[string](),
		Metadata:      patch.Clear[extract.Metadata](),
		Summary:       patch.Clear[string](),
		ProcessedAt:   patch.Clear[time.Time](),
		ErrorMessage:  patch.Set(msg),
	})
	if err != nil {
		telemetry.Error("document.status.write_failed", map[string]any{
			"request_id":  telemetry.RequestIDFromContext(ctx),
			"document_id": doc.ID,
			"error":       err.Error(),
			"cause":       cause.Error(),
		})
		return Document{}, fmt.Errorf("mark failed: %w", err)
	}
	s.logTransition(ctx, updated, StatusProcessing, StatusError, map[string]any{
		"error": cause.Error(),
	})
	return updated, nil
}

func (s *Service) logTransition(ctx context.Context, doc Document, from, to Status, extra map[string]any) {
	fields := map[string]any{
		"request_id":        telemetry.RequestIDFromContext(ctx),
		"document_id":       doc.ID,
		"mime_type":         doc.MimeType,
		"status":            to,
		"status_transition": string(from) + "->" + string(to),
	}
	for k, v := range extra {
		fields[k] = v
	}
	if to == StatusError {
		telemetry.Warn("document.status", fields)
		return
	}
	telemetry.Info("document.status", fields)
}

func (s *Service) discard(ctx context.Context, key string) {
	if err := s.Files.Delete(context.WithoutCancel(ctx), key); err != nil {
		telemetry.Warn("document.discard_failed", map[string]any{
			"storage_key": key,
			"error":       err.Error(),
		})
	}
}

func (s *Service) llm() llm.Client {
	if s.LLM == nil {
		return llm.PlaceholderClient{}
	}
	return s.LLM
}

func (s *Service) maxUploadBytes() int64 {
	if s.MaxUploadBytes <= 0 {
		return DefaultMaxUploadBytes
	}
	return s.MaxUploadBytes
}

func (s *Service) extractionTimeout() time.Duration {
	if s.ExtractionTimeout <= 0 {
		return DefaultExtractionTimeout
	}
	return s.ExtractionTimeout
}

// UserMessage renders err for display: a single line of bounded length.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.Join(strings.Fields(err.Error()), " ")
	if r := []rune(msg); len(r) > maxErrorMessageLen {
		msg = string(r[:maxErrorMessageLen])
	}
	return msg
}
