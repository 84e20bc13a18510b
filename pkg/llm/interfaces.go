// Package llm provides an OpenAI-compatible LLM client used for insight
// enhancement, report summaries and natural-language queries. Failures
// never propagate past this boundary as anything other than a classified
// *Error; callers fall back to deterministic behavior.
package llm

import (
	"context"
)

// LLMClient defines the interface for LLM operations.
// Use this interface for dependency injection to enable mocking in tests.
type LLMClient interface {
	// Complete generates a single-shot completion for the prompt.
	Complete(ctx context.Context, prompt string, systemMessage string) (string, error)

	// CompleteStream generates a completion, sending ordered text chunks
	// to chunks as they arrive. Concatenating the chunks reconstructs the
	// same content a single-shot call would have returned. The channel is
	// not closed; that is the caller's responsibility.
	CompleteStream(ctx context.Context, prompt string, systemMessage string, chunks chan<- string) error

	// GetModel returns the configured model name.
	GetModel() string
}

// Ensure Client implements LLMClient at compile time.
var _ LLMClient = (*Client)(nil)
