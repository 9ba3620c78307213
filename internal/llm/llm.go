package llm

import (
	"context"
	"errors"
	"unicode/utf8"
)

// MaxInputRunes bounds the document text sent to a provider.
const MaxInputRunes = 60000

// Client abstracts LLM providers for document summarization and analysis.
type Client interface {
	Summarize(ctx context.Context, text string) (string, error)
	AnalyzeStructure(ctx context.Context, text string) (StructureAnalysis, error)
}

// StructureAnalysis is the structural description of a document's text.
type StructureAnalysis struct {
	DocumentType string   `json:"documentType"`
	Language     string   `json:"language"`
	Title        string   `json:"title,omitempty"`
	Sections     []string `json:"sections"`
	KeyTopics    []string `json:"keyTopics"`
	Entities     []string `json:"entities,omitempty"`
	Summary      string   `json:"summary"`
}

// ErrNotConfigured is returned when no provider is wired.
var ErrNotConfigured = errors.New("llm provider not configured")

// PlaceholderClient is used when LLM_PROVIDER is "none".
type PlaceholderClient struct{}

func (PlaceholderClient) Summarize(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

func (PlaceholderClient) AnalyzeStructure(context.Context, string) (StructureAnalysis, error) {
	return StructureAnalysis{}, ErrNotConfigured
}

// Truncate cuts text to at most MaxInputRunes runes.
func Truncate(text string) string {
	if utf8.RuneCountInString(text) <= MaxInputRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:MaxInputRunes])
}
