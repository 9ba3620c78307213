package conversions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"docproc-backend/internal/documents"
	"docproc-backend/internal/queue"
	"docproc-backend/internal/shared/metrics"
	"docproc-backend/internal/shared/patch"
	"docproc-backend/internal/shared/storage/object"
	"docproc-backend/internal/shared/telemetry"
)

const defaultPollInterval = 250 * time.Millisecond

// DocumentReader is the read side of the document service.
type DocumentReader interface {
	Get(ctx context.Context, id int64) (documents.Document, error)
}

// Service creates conversion jobs and renders them in the background.
type Service struct {
	Repo         Repo
	Documents    DocumentReader
	Files        object.ObjectStore
	Queue        queue.Client
	Renderer     *Renderer
	PollInterval time.Duration
}

// NewService wires a conversion service with the default renderer.
func NewService(repo Repo, docs DocumentReader, files object.ObjectStore, q queue.Client) *Service {
	return &Service{Repo: repo, Documents: docs, Files: files, Queue: q, Renderer: NewRenderer()}
}

// Create records a pending conversion of documentID into toFormat and
// enqueues it. If the job cannot be enqueued it is marked failed.
func (s *Service) Create(ctx context.Context, documentID int64, toFormat string) (Conversion, error) {
	format, ok := LookupFormat(toFormat)
	if !ok {
		return Conversion{}, fmt.Errorf("%w: unsupported target format %q", ErrInvalidInput, toFormat)
	}
	doc, err := s.Documents.Get(ctx, documentID)
	if err != nil {
		return Conversion{}, err
	}

	conv, err := s.Repo.Create(ctx, NewConversion{
		DocumentID: doc.ID,
		FromFormat: doc.MimeType,
		ToFormat:   format.Name,
	})
	if err != nil {
		return Conversion{}, fmt.Errorf("create conversion: %w", err)
	}
	s.logTransition(ctx, conv, "", StatusPending, nil)

	requestID := telemetry.RequestIDFromContext(ctx)
	if err := s.Queue.Send(ctx, queue.NewMessage(conv.ID, doc.ID, requestID)); err != nil {
		failed, ferr := s.markFailed(context.WithoutCancel(ctx), conv, fmt.Errorf("enqueue: %w", err))
		if ferr != nil {
			return Conversion{}, errors.Join(err, ferr)
		}
		return failed, fmt.Errorf("enqueue conversion: %w", err)
	}
	return conv, nil
}

// Get returns a conversion by id.
func (s *Service) Get(ctx context.Context, id int64) (Conversion, error) {
	return s.Repo.GetByID(ctx, id)
}

// ListByDocument returns the conversions of an existing document.
func (s *Service) ListByDocument(ctx context.Context, documentID int64) ([]Conversion, error) {
	if _, err := s.Documents.Get(ctx, documentID); err != nil {
		return nil, err
	}
	return s.Repo.ListByDocument(ctx, documentID)
}

// ProcessConversion renders a pending conversion and stores the output.
// Conversions that are no longer pending are skipped so redelivered jobs
// are harmless.
func (s *Service) ProcessConversion(ctx context.Context, id int64) error {
	conv, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if conv.Status != StatusPending {
		telemetry.Info("conversion.skipped", map[string]any{
			"request_id":    telemetry.RequestIDFromContext(ctx),
			"conversion_id": id,
			"status":        conv.Status,
		})
		return nil
	}

	key, err := s.render(ctx, conv)
	if err != nil {
		metrics.IncConversionFailed()
		if _, ferr := s.markFailed(context.WithoutCancel(ctx), conv, err); ferr != nil {
			return errors.Join(err, ferr)
		}
		return err
	}

	completed := StatusCompleted
	updated, err := s.Repo.Update(context.WithoutCancel(ctx), id, Patch{
		Status:         &completed,
		OutputFilename: patch.Set(key),
		ErrorMessage:   patch.Clear[string](),
		CompletedAt:    patch.Set(time.Now().UTC()),
	})
	if err != nil {
		return fmt.Errorf("record conversion: %w", err)
	}
	metrics.IncConversionCompleted()
	s.logTransition(ctx, updated, StatusPending, StatusCompleted, map[string]any{"output_key": key})
	return nil
}

// Await polls until the conversion reaches a terminal state or ctx ends.
func (s *Service) Await(ctx context.Context, id int64) (Conversion, error) {
	interval := s.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		conv, err := s.Repo.GetByID(ctx, id)
		if err != nil {
			return Conversion{}, err
		}
		if conv.Status.Terminal() {
			return conv, nil
		}
		select {
		case <-ctx.Done():
			return conv, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Open streams the output of a completed conversion.
func (s *Service) Open(ctx context.Context, id int64) (io.ReadCloser, Conversion, error) {
	conv, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, Conversion{}, err
	}
	if conv.Status != StatusCompleted || conv.OutputFilename == nil {
		return nil, conv, fmt.Errorf("%w: status is %s", ErrNotReady, conv.Status)
	}
	body, err := s.Files.Open(ctx, *conv.OutputFilename)
	if err != nil {
		return nil, conv, fmt.Errorf("open output: %w", err)
	}
	return body, conv, nil
}

func (s *Service) render(ctx context.Context, conv Conversion) (key string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panic: %v", r)
		}
	}()
	format, ok := LookupFormat(conv.ToFormat)
	if !ok {
		return "", fmt.Errorf("%w: unsupported target format %q", ErrInvalidInput, conv.ToFormat)
	}
	doc, err := s.Documents.Get(ctx, conv.DocumentID)
	if err != nil {
		return "", fmt.Errorf("load document: %w", err)
	}
	out, err := s.renderer().Render(doc, format)
	if err != nil {
		return "", err
	}
	key = fmt.Sprintf("conversions/%d/%s.%s", conv.DocumentID, uuid.NewString(), format.Extension)
	if _, err := s.Files.SaveWithKey(ctx, key, format.ContentType, bytes.NewReader(out)); err != nil {
		return "", fmt.Errorf("store output: %w", err)
	}
	return key, nil
}

func (s *Service) markFailed(ctx context.Context, conv Conversion, cause error) (Conversion, error) {
	failed := StatusFailed
	updated, err := s.Repo.Update(ctx, conv.ID, Patch{
		Status:       &failed,
		ErrorMessage: patch.Set(documents.UserMessage(cause)),
		CompletedAt:  patch.Set(time.Now().UTC()),
	})
	if err != nil {
		telemetry.Error("conversion.status.write_failed", map[string]any{
			"conversion_id": conv.ID,
			"error":         err.Error(),
			"cause":         cause.Error(),
		})
		return Conversion{}, fmt.Errorf("mark failed: %w", err)
	}
	s.logTransition(ctx, updated, conv.Status, StatusFailed, map[string]any{"error": cause.Error()})
	return updated, nil
}

func (s *Service) renderer() *Renderer {
	if s.Renderer == nil {
		return NewRenderer()
	}
	return s.Renderer
}

func (s *Service) logTransition(ctx context.Context, conv Conversion, from, to Status, extra map[string]any) {
	fields := map[string]any{
		"request_id":        telemetry.RequestIDFromContext(ctx),
		"conversion_id":     conv.ID,
		"document_id":       conv.DocumentID,
		"to_format":         conv.ToFormat,
		"status":            to,
		"status_transition": string(from) + "->" + string(to),
	}
	for k, v := range extra {
		fields[k] = v
	}
	if to == StatusFailed {
		telemetry.Warn("conversion.status", fields)
		return
	}
	telemetry.Info("conversion.status", fields)
}
