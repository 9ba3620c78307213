package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"docproc-backend/internal/shared/metrics"
	"docproc-backend/internal/shared/storage/object"
	"docproc-backend/internal/shared/telemetry"
)

// Opener is the read side of the object store.
type Opener interface {
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}

// Dispatcher routes stored files to the extractor registered for their MIME type.
// It holds no mutable state of its own and is safe for concurrent use.
type Dispatcher struct {
	files    Opener
	registry *Registry
}

// NewDispatcher wires a dispatcher over the given store and registry.
func NewDispatcher(files Opener, registry *Registry) *Dispatcher {
	return &Dispatcher{files: files, registry: registry}
}

// Supported lists the MIME types the dispatcher can handle.
func (d *Dispatcher) Supported() []string {
	return d.registry.Supported()
}

// Supports reports whether mime can be extracted.
func (d *Dispatcher) Supports(mime string) bool {
	return d.registry.Supports(mime)
}

// ProcessFile extracts text and metadata from the object at storageKey.
func (d *Dispatcher) ProcessFile(ctx context.Context, storageKey, mimeType string) (Result, error) {
	body, err := d.files.Open(ctx, storageKey)
	if err != nil {
		telemetry.Warn("extract.open_failed", map[string]any{
			"storage_key": storageKey,
			"error":       err.Error(),
		})
		// Storage keys stay in the logs; the error reaches the document record.
		if errors.Is(err, object.ErrNotFound) {
			return Result{}, fmt.Errorf("%w: %w", ErrFileNotFound, object.ErrNotFound)
		}
		return Result{}, fmt.Errorf("open stored file: %w", err)
	}
	defer body.Close()

	ex, ok := d.registry.Lookup(mimeType)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, mimeType)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		telemetry.Warn("extract.read_failed", map[string]any{
			"storage_key": storageKey,
			"error":       err.Error(),
		})
		return Result{}, fmt.Errorf("read stored file: %w", err)
	}

	start := time.Now()
	res, err := d.run(ctx, ex, mimeType, data)
	elapsed := time.Since(start)
	metrics.ObserveExtractionDurationMs(float64(elapsed.Milliseconds()))
	if err != nil {
		return Result{}, err
	}

	telemetry.Debug("extract.done", map[string]any{
		"mime_type":   mimeType,
		"bytes":       len(data),
		"words":       res.Metadata.Words,
		"duration_ms": elapsed.Milliseconds(),
	})
	return res, nil
}

type outcome struct {
	res Result
	err error
}

// run executes the extractor on its own goroutine so a stuck parser cannot
// outlive the caller's deadline. The goroutine finishes in the background.
func (d *Dispatcher) run(ctx context.Context, ex Extractor, mimeType string, data []byte) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, contextErr(err)
	}
	done := make(chan outcome, 1)
	go func() {
		var o outcome
		defer func() {
			if r := recover(); r != nil {
				o = outcome{err: failf(mimeType, "parser panic: %v", r)}
			}
			done <- o
		}()
		o.res, o.err = ex.Extract(ctx, data)
	}()

	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		return Result{}, contextErr(ctx.Err())
	}
}

func contextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
