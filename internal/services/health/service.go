package health

import (
	"context"
	"database/sql"
	"time"
)

const pingTimeout = 2 * time.Second

// Service reports liveness and which optional backends are wired.
type Service struct {
	DB          *sql.DB
	ObjectStore string
	LLMProvider string
	OCRVersion  string
}

// NewService constructs a new health service.
func NewService(db *sql.DB, objectStore, llmProvider, ocrVersion string) *Service {
	return &Service{DB: db, ObjectStore: objectStore, LLMProvider: llmProvider, OCRVersion: ocrVersion}
}

// Status returns the health payload. ok is false only when a configured
// database does not answer.
func (s *Service) Status(ctx context.Context) map[string]any {
	out := map[string]any{
		"ok":          true,
		"objectStore": s.ObjectStore,
		"llm":         s.LLMProvider,
		"ocr":         s.OCRVersion != "",
		"database":    "memory",
	}
	if s.DB != nil {
		ctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := s.DB.PingContext(ctx); err != nil {
			out["ok"] = false
			out["database"] = "unreachable"
		} else {
			out["database"] = "postgres"
		}
	}
	return out
}
