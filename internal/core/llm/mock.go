package llm

import (
	"context"
	"sync"
)

// Mock replays scripted responses in order and counts invocations. When the
// script runs out it keeps returning the last response.
type Mock struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
}

// NewMock returns a mock that answers with the given responses in order.
func NewMock(responses ...string) *Mock {
	return &Mock{responses: responses}
}

// FailWith makes every subsequent call return err.
func (m *Mock) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.err = err
}

func (m *Mock) CompleteJSON(_ context.Context, _, _ string, _ float32) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++

	if m.err != nil {
		return "", m.err
	}

	if len(m.responses) == 0 {
		return "{}", nil
	}

	idx := m.calls - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}

	return m.responses[idx], nil
}

// Calls reports how many completions were requested.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls
}
