package llm

import (
	"context"
)

// MockLLMClient is a configurable mock for testing LLM functionality.
// Set the function fields to control behavior in tests.
type MockLLMClient struct {
	// CompleteFunc is called when Complete is invoked.
	// If nil, returns empty string and nil error.
	CompleteFunc func(ctx context.Context, prompt string, systemMessage string) (string, error)

	// CompleteStreamFunc is called when CompleteStream is invoked.
	// If nil, sends StreamChunks to the channel and returns StreamErr.
	CompleteStreamFunc func(ctx context.Context, prompt string, systemMessage string, chunks chan<- string) error

	// StreamChunks are sent by the default CompleteStream implementation.
	StreamChunks []string

	// StreamErr is returned by the default CompleteStream implementation
	// after all StreamChunks have been sent.
	StreamErr error

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Call tracking for verification
	CompleteCalls       int
	CompleteStreamCalls int

	// LastPrompt records the prompt of the most recent call.
	LastPrompt string
}

// NewMockLLMClient creates a new mock with sensible defaults.
func NewMockLLMClient() *MockLLMClient {
	return &MockLLMClient{
		Model: "mock-model",
	}
}

// Complete implements LLMClient.
func (m *MockLLMClient) Complete(ctx context.Context, prompt string, systemMessage string) (string, error) {
	m.CompleteCalls++
	m.LastPrompt = prompt
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt, systemMessage)
	}
	return "", nil
}

// CompleteStream implements LLMClient.
func (m *MockLLMClient) CompleteStream(ctx context.Context, prompt string, systemMessage string, chunks chan<- string) error {
	m.CompleteStreamCalls++
	m.LastPrompt = prompt
	if m.CompleteStreamFunc != nil {
		return m.CompleteStreamFunc(ctx, prompt, systemMessage, chunks)
	}
	for _, chunk := range m.StreamChunks {
		select {
		case chunks <- chunk:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.StreamErr
}

// GetModel implements LLMClient.
func (m *MockLLMClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// Reset clears call tracking counters.
func (m *MockLLMClient) Reset() {
	m.CompleteCalls = 0
	m.CompleteStreamCalls = 0
	m.LastPrompt = ""
}

// Ensure MockLLMClient implements LLMClient at compile time.
var _ LLMClient = (*MockLLMClient)(nil)
