package mock

import (
	"context"
	"errors"
	"sync"
)

// ErrUnavailable simulates an unreachable language model.
var ErrUnavailable = errors.New("mock: language model unavailable")

// MockCompleter is a test double for ai.Completer.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	// If nil, returns a fixed answer.
	CompleteFunc func(ctx context.Context, prompt string) (string, error)

	mu         sync.Mutex
	callCount  int
	lastPrompt string
}

// NewMockCompleter creates a mock completer that always answers "mock answer".
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// NewFailingCompleter creates a mock completer that always fails with ErrUnavailable.
func NewFailingCompleter() *MockCompleter {
	return &MockCompleter{
		CompleteFunc: func(ctx context.Context, prompt string) (string, error) {
			return "", ErrUnavailable
		},
	}
}

// Complete records the prompt and returns the injected or default answer.
func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastPrompt = prompt
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt)
	}
	return "mock answer", nil
}

// CallCount returns the number of times Complete was called.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastPrompt returns the most recent prompt.
func (m *MockCompleter) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPrompt
}

// Reset clears the call count and injected behavior.
func (m *MockCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.lastPrompt = ""
	m.CompleteFunc = nil
}
