package conversions

import (
	"context"
	"sync"
	"time"

	"docproc-backend/internal/queue"
	"docproc-backend/internal/shared/metrics"
	"docproc-backend/internal/shared/telemetry"
)

// DefaultWorkers is the pool size when none is configured.
const DefaultWorkers = 2

// Worker drains an in-process queue with a fixed number of goroutines.
type Worker struct {
	Svc   *Service
	Queue *queue.MemoryQueue
	Size  int

	wg sync.WaitGroup
}

// Start launches the pool. Jobs run detached from ctx cancellation so a
// shutdown never abandons a half-written conversion.
func (w *Worker) Start(ctx context.Context) {
	size := w.Size
	if size <= 0 {
		size = DefaultWorkers
	}
	base := context.WithoutCancel(ctx)
	for i := 0; i < size; i++ {
		w.wg.Add(1)
		go func(worker int) {
			defer w.wg.Done()
			for msg := range w.Queue.Messages() {
				w.handle(base, worker, msg)
			}
		}(i)
	}
	telemetry.Info("conversion.worker.started", map[string]any{"workers": size})
}

// Shutdown stops accepting jobs and waits for queued ones to finish or
// for ctx to end.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.Queue.Close()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) handle(ctx context.Context, worker int, msg queue.Message) {
	metrics.IncConversionJobsReceived()
	ctx = telemetry.WithRequestID(ctx, msg.RequestID)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			metrics.IncConversionFailed()
			telemetry.Error("conversion.worker.panic", map[string]any{
				"request_id":    msg.RequestID,
				"conversion_id": msg.ConversionID,
				"panic":         r,
			})
		}
	}()

	if err := w.Svc.ProcessConversion(ctx, msg.ConversionID); err != nil {
		telemetry.Warn("conversion.worker.failed", map[string]any{
			"request_id":    msg.RequestID,
			"conversion_id": msg.ConversionID,
			"worker":        worker,
			"error":         err.Error(),
		})
		return
	}
	telemetry.Debug("conversion.worker.done", map[string]any{
		"request_id":    msg.RequestID,
		"conversion_id": msg.ConversionID,
		"worker":        worker,
		"duration_ms":   time.Since(start).Milliseconds(),
	})
}
